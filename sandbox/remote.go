// Package sandbox provides the execution backends for harnessed scripts.
//
// The RemoteRunner forwards the harness to a dedicated runner service
// over HTTP. Transport-level failures are reported as ErrUnavailable so
// the orchestrator can fall back, never as script errors.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// remoteRequest is the wire format sent to the runner service
type remoteRequest struct {
	Harness string `json:"harness"`
	Timeout int    `json:"timeout"`
}

// remoteResponse is the wire format expected back from the runner service
type remoteResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
}

// RemoteRunner implements Runner against a remote execution endpoint
type RemoteRunner struct {
	logger *zap.Logger
	url    string
	client *http.Client
}

// RemoteRunnerOption defines a functional option for RemoteRunner
type RemoteRunnerOption func(*RemoteRunner)

// WithRemoteHTTPClient sets the HTTP client for RemoteRunner
func WithRemoteHTTPClient(client *http.Client) RemoteRunnerOption {
	return func(r *RemoteRunner) {
		r.client = client
	}
}

// NewRemoteRunner creates a new RemoteRunner. requestTimeout bounds the
// whole round trip and must exceed the execution timeout carried in each
// RunSpec, so network overhead never masquerades as a script timeout.
func NewRemoteRunner(logger *zap.Logger, url string, requestTimeout time.Duration, opts ...RemoteRunnerOption) *RemoteRunner {
	runner := &RemoteRunner{
		logger: logger,
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run posts the harness to the runner service and maps its response onto
// a RawResult. Any transport failure, non-success status, or malformed
// response body wraps ErrUnavailable.
func (r *RemoteRunner) Run(ctx context.Context, spec RunSpec) (RawResult, error) {
	// The wire field is whole seconds; round up so a sub-second timeout
	// never becomes an unbounded remote run.
	timeoutSec := int((spec.Timeout + time.Second - 1) / time.Second)
	body, err := json.Marshal(remoteRequest{
		Harness: spec.Harness,
		Timeout: timeoutSec,
	})
	if err != nil {
		return RawResult{}, fmt.Errorf("%w: encoding request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return RawResult{}, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return RawResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			r.logger.Warn("failed to close runner response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RawResult{}, fmt.Errorf("%w: runner returned status %d", ErrUnavailable, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResult{}, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	var decoded remoteResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return RawResult{}, fmt.Errorf("%w: malformed response body: %v", ErrUnavailable, err)
	}

	return RawResult{
		Stdout:     decoded.Stdout,
		Stderr:     decoded.Stderr,
		ExitStatus: decoded.ReturnCode,
	}, nil
}
