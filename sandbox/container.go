package sandbox

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ContainerRunner implements Runner using docker or podman
type ContainerRunner struct {
	logger    *zap.Logger
	binary    string // "docker" or "podman"
	image     string
	cmdRunner CommandRunner
	fs        FileSystem
}

// ContainerRunnerOption defines a functional option for ContainerRunner
type ContainerRunnerOption func(*ContainerRunner)

// WithContainerCommandRunner sets the CommandRunner for ContainerRunner
func WithContainerCommandRunner(cmdRunner CommandRunner) ContainerRunnerOption {
	return func(c *ContainerRunner) {
		c.cmdRunner = cmdRunner
	}
}

// WithContainerFileSystem sets the FileSystem for ContainerRunner
func WithContainerFileSystem(fs FileSystem) ContainerRunnerOption {
	return func(c *ContainerRunner) {
		c.fs = fs
	}
}

// NewContainerRunner creates a new ContainerRunner with default implementations and optional interfaces
func NewContainerRunner(logger *zap.Logger, binary, image string, opts ...ContainerRunnerOption) *ContainerRunner {
	runner := &ContainerRunner{
		logger:    logger,
		binary:    binary,
		image:     image,
		cmdRunner: &RealCommandRunner{}, // Default implementation
		fs:        &RealFileSystem{},    // Default implementation
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run executes the harness in a fresh container. Unlike the local
// backend, MemoryMB is enforced here via the container memory cap.
func (c *ContainerRunner) Run(ctx context.Context, spec RunSpec) (RawResult, error) {
	tempDir, err := c.fs.MkdirTemp("", "pybox-run-*")
	if err != nil {
		return internalFault(fmt.Errorf("failed to create run dir: %w", err)), nil
	}
	defer func() {
		if rmErr := c.fs.RemoveAll(tempDir); rmErr != nil {
			c.logger.Error("failed to remove run directory", zap.String("path", tempDir), zap.Error(rmErr))
		}
	}()

	harnessPath := filepath.Join(tempDir, HarnessFileName)
	if writeErr := c.fs.WriteFile(harnessPath, []byte(spec.Harness), FilePermission); writeErr != nil {
		return internalFault(fmt.Errorf("failed to write harness: %w", writeErr)), nil
	}

	containerName := fmt.Sprintf("pybox-exec-%d", time.Now().UnixNano())
	cmdArgs := c.buildRunArgs(containerName, tempDir, spec)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	stdout, stderr, exitCode, runErr := c.cmdRunner.RunCommand(ctxWithTimeout, cmdArgs)

	if ctxWithTimeout.Err() == context.DeadlineExceeded {
		// Best-effort stop; --rm removes the container afterwards
		if _, _, _, stopErr := c.cmdRunner.RunCommand(ctx, []string{c.binary, "stop", containerName}); stopErr != nil {
			c.logger.Warn("failed to stop container after timeout",
				zap.String("container", containerName), zap.Error(stopErr))
		}
		return RawResult{
			Stdout:     stdout,
			Stderr:     timeoutMessage(spec.Timeout),
			ExitStatus: StatusTimeout,
		}, nil
	}

	if runErr != nil {
		c.logger.Error("container run failed",
			zap.String("binary", c.binary), zap.String("image", c.image), zap.Error(runErr))
		return internalFault(fmt.Errorf("failed to execute container: %w", runErr)), nil
	}

	return RawResult{
		Stdout:     stdout,
		Stderr:     stderr,
		ExitStatus: exitCode,
	}, nil
}

// buildRunArgs assembles the container invocation with security
// restrictions applied.
func (c *ContainerRunner) buildRunArgs(containerName, tempDir string, spec RunSpec) []string {
	args := []string{
		c.binary, "run",
		"--name", containerName,
		"--rm", // Remove container after execution
		"-v", fmt.Sprintf("%s:/workdir:ro", tempDir),
		"--workdir", "/workdir",
		"--network", "none",
		"--security-opt", "no-new-privileges:true",
		"--user", "nobody",
		"--cap-drop", "ALL",
	}

	if spec.MemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", spec.MemoryMB))
	}

	args = append(args, c.image, "python3", "/workdir/"+HarnessFileName)
	return args
}
