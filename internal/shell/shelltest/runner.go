// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"emperror.dev/errors"

	"github.com/voluzi/gridpilot/internal/shell"
)

// Call is a recorded invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type rule struct {
	prefix  string
	results []shell.Result
}

// Runner answers commands from rules matched by command-line prefix. Each rule replays its
// results in order and keeps returning the last one once exhausted. Unmatched commands return
// Default.
type Runner struct {
	mu      sync.Mutex
	rules   []*rule
	calls   []Call
	Default shell.Result
}

var _ shell.Runner = (*Runner)(nil)

func New() *Runner {
	return &Runner{}
}

// On registers results for every command line starting with prefix.
func (r *Runner) On(prefix string, results ...shell.Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, &rule{prefix: prefix, results: results})
	return r
}

func (r *Runner) Run(_ context.Context, name string, args ...string) shell.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := Call{Name: name, Args: append([]string{}, args...)}
	r.calls = append(r.calls, call)

	line := call.String()
	for _, rl := range r.rules {
		if !strings.HasPrefix(line, rl.prefix) || len(rl.results) == 0 {
			continue
		}
		res := rl.results[0]
		if len(rl.results) > 1 {
			rl.results = rl.results[1:]
		}
		res.Command, res.Args = name, call.Args
		return res
	}
	res := r.Default
	res.Command, res.Args = name, call.Args
	return res
}

// Calls returns the recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call{}, r.calls...)
}

// CallLines returns the recorded invocations as command lines.
func (r *Runner) CallLines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how many recorded command lines start with prefix.
func (r *Runner) Count(prefix string) int {
	n := 0
	for _, line := range r.CallLines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// Out is a successful result with the given stdout.
func Out(stdout string) shell.Result {
	return shell.Result{Stdout: stdout}
}

// Fail is a failed result with exit code 1 and the given stderr.
func Fail(stderr string) shell.Result {
	return shell.Result{Stderr: stderr, ExitCode: 1, Err: errors.New(stderr)}
}
