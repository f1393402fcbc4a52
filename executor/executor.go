package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isdmx/pybox/config"
	"github.com/isdmx/pybox/harness"
	"github.com/isdmx/pybox/sandbox"
	"github.com/isdmx/pybox/validate"
)

// Request is one script execution request. Zero Timeout and MemoryMB fall
// back to the configured defaults.
type Request struct {
	Script   string
	Timeout  time.Duration
	MemoryMB int
}

// Response is the caller-facing {result, stdout, error} triple. Exactly
// one of Result and Error is meaningful on a well-formed run; both are
// empty only when the script legitimately returned null.
type Response struct {
	Result any    `json:"result"`
	Stdout string `json:"stdout"`
	Error  string `json:"error,omitempty"`
}

// Executor validates a script, wraps it in the harness, runs it on the
// remote backend with local fallback, and normalizes the outcome. All
// state is read-only after construction, so one Executor serves requests
// concurrently without locking.
type Executor struct {
	logger          *zap.Logger
	validator       *validate.Validator
	remote          sandbox.Runner
	fallback        sandbox.Runner
	defaultTimeout  time.Duration
	defaultMemoryMB int
}

// New creates an Executor from explicit collaborators
func New(logger *zap.Logger, validator *validate.Validator, remote, fallback sandbox.Runner,
	defaultTimeout time.Duration, defaultMemoryMB int) *Executor {
	return &Executor{
		logger:          logger,
		validator:       validator,
		remote:          remote,
		fallback:        fallback,
		defaultTimeout:  defaultTimeout,
		defaultMemoryMB: defaultMemoryMB,
	}
}

// NewFromConfig creates an Executor with backends built from the
// application configuration.
func NewFromConfig(logger *zap.Logger, cfg *config.Config, validator *validate.Validator) (*Executor, error) {
	fallback, err := sandbox.NewFallbackRunner(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback runner: %w", err)
	}
	remote := sandbox.NewRemoteRunnerFromConfig(logger, cfg)
	return New(logger, validator, remote, fallback, cfg.ExecutionTimeout(), cfg.Runner.MemoryMB), nil
}

// Execute runs one script end to end: validate, build the harness,
// attempt the remote backend, fall back locally only when the remote
// transport is unavailable, then normalize. At most one remote attempt
// and one fallback attempt happen per request, run strictly in sequence.
// Nothing a script does can surface as a fault of the executor itself.
func (e *Executor) Execute(ctx context.Context, req Request) Response {
	log := e.logger.With(zap.String("run_id", uuid.NewString()))

	validation := e.validator.Validate(req.Script)
	if !validation.Accepted() {
		log.Warn("script rejected by validator", zap.Int("issues", len(validation.Issues)))
		return Response{Error: validation.Summary()}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	memoryMB := req.MemoryMB
	if memoryMB <= 0 {
		memoryMB = e.defaultMemoryMB
	}

	spec := sandbox.RunSpec{
		Harness:  harness.Build(req.Script),
		Timeout:  timeout,
		MemoryMB: memoryMB,
	}

	raw, err := e.remote.Run(ctx, spec)
	switch {
	case err == nil:
		// Remote result stands; the fallback is never consulted

	case errors.Is(err, sandbox.ErrUnavailable):
		log.Warn("remote runner unavailable, falling back", zap.Error(err))
		note := fmt.Sprintf("[runner-unavailable] %v", err)

		raw, err = e.fallback.Run(ctx, spec)
		if err != nil {
			// Fallback backends report faults as data; an error here is
			// unexpected but must not escape as a panic or fault
			log.Error("fallback runner failed", zap.Error(err))
			return Response{Error: fmt.Sprintf("execution failed: %v", err)}
		}

		raw.FallbackNote = note
		if raw.Stderr != "" {
			raw.Stderr = note + "\n" + raw.Stderr
		} else {
			raw.Stderr = note
		}

	default:
		// Not a transport condition: surfaced on the error path, never
		// retried against the fallback
		log.Error("remote runner failed", zap.Error(err))
		return Response{Error: err.Error()}
	}

	// When the remote service timed out on its side, its reported stderr
	// already carries a timeout message and takes priority inside
	// Normalize, so the locally rendered one never conflicts with it.
	resp := Normalize(raw, timeout)
	log.Info("execution completed",
		zap.Int("exit_status", raw.ExitStatus),
		zap.Bool("fell_back", raw.FallbackNote != ""),
		zap.Bool("has_result", resp.Error == ""))
	return resp
}
