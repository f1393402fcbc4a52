// Package sandbox provides the execution backends for harnessed scripts.
//
// The LocalRunner spawns a fresh interpreter process on the host against
// an ephemeral harness file. It provides no memory or CPU isolation and
// exists as the in-process fallback when the remote runner is
// unreachable.
package sandbox

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalRunner implements Runner by spawning a local interpreter process
type LocalRunner struct {
	logger    *zap.Logger
	pythonBin string
	cmdRunner CommandRunner
	fs        FileSystem
}

// LocalRunnerOption defines a functional option for LocalRunner
type LocalRunnerOption func(*LocalRunner)

// WithLocalCommandRunner sets the CommandRunner for LocalRunner
func WithLocalCommandRunner(cmdRunner CommandRunner) LocalRunnerOption {
	return func(l *LocalRunner) {
		l.cmdRunner = cmdRunner
	}
}

// WithLocalFileSystem sets the FileSystem for LocalRunner
func WithLocalFileSystem(fs FileSystem) LocalRunnerOption {
	return func(l *LocalRunner) {
		l.fs = fs
	}
}

// NewLocalRunner creates a new LocalRunner with default implementations and optional interfaces
func NewLocalRunner(logger *zap.Logger, pythonBin string, opts ...LocalRunnerOption) *LocalRunner {
	runner := &LocalRunner{
		logger:    logger,
		pythonBin: pythonBin,
		cmdRunner: &RealCommandRunner{}, // Default implementation
		fs:        &RealFileSystem{},    // Default implementation
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run writes the harness to an ephemeral private file, executes it under
// a deadline, and maps the outcome to a RawResult. The run directory is
// removed on every exit path. MemoryMB is not enforced here; internal
// faults surface as StatusInternal results rather than errors, so a
// misbehaving script can never propagate a failure past this boundary.
func (l *LocalRunner) Run(ctx context.Context, spec RunSpec) (RawResult, error) {
	tempDir, err := l.fs.MkdirTemp("", "pybox-run-*")
	if err != nil {
		return internalFault(fmt.Errorf("failed to create run dir: %w", err)), nil
	}
	defer func() {
		if rmErr := l.fs.RemoveAll(tempDir); rmErr != nil {
			l.logger.Error("failed to remove run directory", zap.String("path", tempDir), zap.Error(rmErr))
		}
	}()

	harnessPath := filepath.Join(tempDir, HarnessFileName)
	if writeErr := l.fs.WriteFile(harnessPath, []byte(spec.Harness), FilePermission); writeErr != nil {
		return internalFault(fmt.Errorf("failed to write harness: %w", writeErr)), nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	stdout, stderr, exitCode, runErr := l.cmdRunner.RunCommand(ctxWithTimeout, []string{l.pythonBin, harnessPath})

	// A deadline kill looks like any other non-zero exit, so check the
	// context explicitly
	if ctxWithTimeout.Err() == context.DeadlineExceeded {
		l.logger.Warn("local run timed out", zap.Duration("timeout", spec.Timeout))
		return RawResult{
			Stdout:     stdout,
			Stderr:     timeoutMessage(spec.Timeout),
			ExitStatus: StatusTimeout,
		}, nil
	}

	if runErr != nil {
		l.logger.Error("local run failed to execute interpreter",
			zap.String("python_bin", l.pythonBin), zap.Error(runErr))
		return internalFault(fmt.Errorf("failed to execute interpreter: %w", runErr)), nil
	}

	return RawResult{
		Stdout:     stdout,
		Stderr:     stderr,
		ExitStatus: exitCode,
	}, nil
}

// internalFault maps a backend-internal error to the StatusInternal
// result shape, mirroring what the remote runner service reports for its
// own faults.
func internalFault(err error) RawResult {
	return RawResult{
		Stderr:     fmt.Sprintf("Runner internal error: %v", err),
		ExitStatus: StatusInternal,
	}
}
