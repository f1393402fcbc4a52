package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/pybox/config"
)

// NewFallbackRunner creates the backend used when the remote runner is
// unavailable, based on the configuration.
func NewFallbackRunner(logger *zap.Logger, cfg *config.Config) (Runner, error) {
	switch cfg.Runner.FallbackBackend {
	case "local":
		return NewLocalRunner(logger, cfg.Runner.PythonBin), nil
	case "docker", "podman":
		return NewContainerRunner(logger, cfg.Runner.FallbackBackend, cfg.Runner.ContainerImage), nil
	default:
		return nil, fmt.Errorf("unsupported fallback backend: %s", cfg.Runner.FallbackBackend)
	}
}

// NewRemoteRunnerFromConfig creates the primary remote backend from the
// configuration.
func NewRemoteRunnerFromConfig(logger *zap.Logger, cfg *config.Config) *RemoteRunner {
	return NewRemoteRunner(logger, cfg.Runner.RemoteURL, cfg.RequestTimeout())
}
