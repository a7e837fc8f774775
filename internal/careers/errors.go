package careers

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageFilter   Stage = "filter"
	StageVerify   Stage = "verify"
	StageRedirect Stage = "redirect"
)

// AssertionError is a test failure, as opposed to an infrastructure error.
type AssertionError struct {
	Stage      Stage
	Message    string
	Violations []string
}

func (e *AssertionError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Message, strings.Join(e.Violations, "; "))
}

func failf(stage Stage, format string, args ...interface{}) *AssertionError {
	return &AssertionError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}
