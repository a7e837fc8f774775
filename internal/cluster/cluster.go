// Package cluster exposes the handful of cluster operations the orchestrator needs, backed
// either by the kubectl binary or by the Kubernetes API.
package cluster

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Cluster is implemented by Kubectl and API.
type Cluster interface {
	// Delete removes a kind/name resource. A missing resource is not an error.
	Delete(ctx context.Context, resource string) error

	// CountRunning returns the number of pods matching selector in the Running phase.
	CountRunning(ctx context.Context, selector string) (int, error)

	// FindJobs returns the names of the jobs matching selector.
	FindJobs(ctx context.Context, selector string) ([]string, error)

	// WaitJobComplete blocks until the job reports condition complete or timeout elapses.
	WaitJobComplete(ctx context.Context, name string, timeout time.Duration) error

	// JobLogs returns the log output of the job.
	JobLogs(ctx context.Context, name string) (string, error)
}

// ParseCount reads a readiness count from command output. Anything that is not a plain
// non-negative decimal number yields 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
