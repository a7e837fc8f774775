// Package report records the outcome of a gridctl run as JSON.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/mitchellh/hashstructure/v2"
)

type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
)

type Step struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type Run struct {
	Release    string    `json:"release"`
	NodeCount  int       `json:"nodeCount"`
	ConfigHash string    `json:"configHash"`
	Steps      []Step    `json:"steps"`
	Job        string    `json:"job,omitempty"`
	LogsSHA256 string    `json:"logsSha256,omitempty"`
	Verdict    string    `json:"verdict"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
}

// AddStep appends a step. A nil err marks it ok.
func (r *Run) AddStep(name string, started time.Time, duration time.Duration, err error) {
	step := Step{
		Name:     name,
		Status:   StepOK,
		Started:  started,
		Duration: duration,
	}
	if err != nil {
		step.Status = StepFailed
		step.Error = err.Error()
	}
	r.Steps = append(r.Steps, step)
}

// Failed returns the first failed step, if any.
func (r *Run) Failed() (Step, bool) {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return s, true
		}
	}
	return Step{}, false
}

// ConfigHash returns a stable hash of v. Slice order is ignored.
func ConfigHash(v interface{}) (string, error) {
	hash, err := hashstructure.Hash(v, hashstructure.FormatV2, &hashstructure.HashOptions{
		SlicesAsSets: true,
		ZeroNil:      true,
	})
	if err != nil {
		return "", errors.Wrap(err, "hashing config")
	}
	return strconv.FormatUint(hash, 10), nil
}

// LogDigest is the hex sha256 of logs with trailing whitespace removed, so reruns that only
// differ by a final newline digest equally.
func LogDigest(logs string) string {
	sum := sha256.Sum256([]byte(strings.TrimRight(logs, " \t\r\n")))
	return hex.EncodeToString(sum[:])
}

func (r *Run) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteFile writes the report to path.
func (r *Run) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return errors.WrapIfWithDetails(os.WriteFile(path, data, 0o644), "writing report", "path", path)
}
