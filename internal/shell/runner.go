package shell

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
)

// DefaultTimeout bounds a single command when the caller does not set one.
const DefaultTimeout = 5 * time.Minute

const (
	ErrTimeout  = errors.Sentinel("command timed out")
	ErrNotFound = errors.Sentinel("executable not found")
)

// Result captures a single external command invocation.
type Result struct {
	Command  string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// OK reports whether the command exited zero.
func (r Result) OK() bool {
	return r.Err == nil
}

// String renders the invocation the way a user would type it.
func (r Result) String() string {
	return strings.TrimSpace(r.Command + " " + strings.Join(r.Args, " "))
}

// Runner executes external binaries. Arguments are passed as a list and never
// interpreted by a shell.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct {
	// Timeout applies per command. Zero means DefaultTimeout.
	Timeout time.Duration

	// Env is appended to the inherited environment.
	Env []string

	// GlobalArgs are prepended to the arguments of every invocation of the named binary,
	// e.g. {"kubectl": {"--kubeconfig", path}}.
	GlobalArgs map[string][]string

	// SearchDirs are tried, in order, before PATH when resolving a binary.
	SearchDirs []string
}

var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) Result {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmdArgs := append(append([]string{}, r.GlobalArgs[name]...), args...)
	result := Result{Command: name, Args: cmdArgs}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := name
	if len(r.SearchDirs) > 0 {
		if path, err := r.LookPath(name); err == nil {
			bin = path
		}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, cmdArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	err := cmd.Run()
	result.Stdout = strings.TrimSpace(stdout.String())
	result.Stderr = strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		result.Err = errors.WithDetails(ErrTimeout, "command", result.String(), "timeout", timeout)
	case errors.Is(err, exec.ErrNotFound):
		result.ExitCode = -1
		result.Err = errors.WithDetails(ErrNotFound, "command", name)
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Err = errors.Wrapf(err, "%s: %s", result.String(), result.Stderr)
	default:
		result.ExitCode = -1
		result.Err = errors.Wrap(err, result.String())
	}
	return result
}

// LookPath resolves name the same way Run does.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return LookPath(name, r.SearchDirs...)
}

// LookPath resolves a binary in dirs first, then on PATH.
func LookPath(name string, dirs ...string) (string, error) {
	for _, dir := range dirs {
		if path, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
			return path, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.WithDetails(ErrNotFound, "binary", name)
	}
	return path, nil
}
