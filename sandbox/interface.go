// Package sandbox provides the execution backends for harnessed scripts.
//
// The sandbox package implements the backend contract for running a
// generated harness under a time bound. It supports a remote runner
// service, a local child interpreter, and container execution via Docker
// or Podman.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// RunSpec carries one harness execution request.
//
// MemoryMB is enforced only by backends whose isolation primitive supports
// it (the container runner); the local and remote backends accept it for
// forward compatibility and document it as inert.
type RunSpec struct {
	Harness  string
	Timeout  time.Duration
	MemoryMB int
}

// RawResult is the unnormalized outcome of one backend run. It is
// produced by exactly one backend per request and never mutated after
// creation; the fallback note is attached by the orchestrator, not by a
// backend.
type RawResult struct {
	Stdout       string
	Stderr       string
	ExitStatus   int
	FallbackNote string
}

// Exit statuses shared across backends. StatusUserError and
// StatusNotSerializable originate in the generated harness; StatusTimeout
// and StatusInternal are produced by the backends themselves.
const (
	StatusOK              = 0
	StatusUserError       = 1
	StatusNotSerializable = 2
	StatusTimeout         = -1
	StatusInternal        = -2
)

// ErrUnavailable marks a transport-level backend failure, as opposed to a
// script-level one. The orchestrator falls back to the local backend only
// on this condition.
var ErrUnavailable = errors.New("runner unavailable")

// Runner is the common backend contract: run this harness under a time
// bound and report raw stdout, stderr and exit status. Script failures are
// data in the RawResult; the error return is reserved for transport-level
// conditions wrapping ErrUnavailable.
type Runner interface {
	Run(ctx context.Context, spec RunSpec) (RawResult, error)
}

// CommandRunner defines an interface for executing system commands
type CommandRunner interface {
	RunCommand(ctx context.Context, args []string) (stdout, stderr string, exitCode int, err error)
}

// RealCommandRunner implements CommandRunner using actual exec commands
type RealCommandRunner struct{}

// RunCommand executes the given command with arguments
func (RealCommandRunner) RunCommand(ctx context.Context, args []string) (stdout, stderr string, exitCode int, err error) {
	if len(args) < 1 {
		return "", "", 0, fmt.Errorf("no command provided")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // Safe as this is controlled input

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()

	exitCode = 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return "", "", 0, err
		}
	}

	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// FileSystem defines an interface for file system operations
type FileSystem interface {
	MkdirTemp(dir, pattern string) (string, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	RemoveAll(path string) error
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// FilePermission is used for the ephemeral harness file
const FilePermission = 0600

// HarnessFileName is the name given to the harness inside the ephemeral
// run directory.
const HarnessFileName = "harness.py"

// timeoutMessage renders the stderr text for a timed-out run
func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Execution timed out after %d seconds", int(timeout.Seconds()))
}
