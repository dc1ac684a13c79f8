package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrCommandTimeout is returned when a command exceeds its timeout.
	ErrCommandTimeout = errors.New("command timed out")
	// ErrCommandNotFound is returned when the executable is not on PATH.
	ErrCommandNotFound = errors.New("command not found")
)

// DefaultCommandTimeout bounds external formatter and compiler invocations.
const DefaultCommandTimeout = 10 * time.Second

// CommandRequest captures process execution metadata.
type CommandRequest struct {
	Workdir string
	Args    []string
	Env     []string
	Input   string
	Timeout time.Duration
}

// CommandRunner describes a primitive capable of executing commands.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (stdout string, stderr string, err error)
}

// LocalCommandRunner executes commands directly on the host.
type LocalCommandRunner struct {
	// DefaultTimeout applies when the request does not carry one.
	DefaultTimeout time.Duration
}

// NewLocalCommandRunner returns a runner with the given fallback timeout.
func NewLocalCommandRunner(timeout time.Duration) *LocalCommandRunner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &LocalCommandRunner{DefaultTimeout: timeout}
}

// Run executes the command, feeding Input on stdin. A missing binary yields
// ErrCommandNotFound and an expired deadline yields ErrCommandTimeout; a
// non-zero exit is returned as *exec.ExitError.
func (r *LocalCommandRunner) Run(ctx context.Context, req CommandRequest) (string, string, error) {
	if len(req.Args) == 0 {
		return "", "", errors.New("command arguments required")
	}
	if _, err := exec.LookPath(req.Args[0]); err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrCommandNotFound, req.Args[0])
	}
	timeout := req.Timeout
	if timeout <= 0 && r != nil {
		timeout = r.DefaultTimeout
	}
	execCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()
	cmd := exec.CommandContext(execCtx, req.Args[0], req.Args[1:]...)
	cmd.Dir = req.Workdir
	if len(req.Env) > 0 {
		cmd.Env = append(cmd.Environ(), req.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}
	err := cmd.Run()
	if err != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %s", ErrCommandTimeout, timeout, req.Args[0])
	}
	return stdout.String(), stderr.String(), err
}

// ExitCode extracts the process exit status from a Run error, or -1 when the
// process never produced one.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr exitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// exitCoder is satisfied by *exec.ExitError.
type exitCoder interface {
	error
	ExitCode() int
}

// ExitError is a synthetic exit status, for runners that do not spawn real
// processes.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode implements exitCoder.
func (e *ExitError) ExitCode() int { return e.Code }

// ToolUnavailable reports errors meaning the tool could not be consulted at
// all, as opposed to the tool rejecting its input.
func ToolUnavailable(err error) bool {
	return errors.Is(err, ErrCommandNotFound) || errors.Is(err, ErrCommandTimeout) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
