// Package sandbox provides the execution backends for harnessed scripts.
//
// The sandbox package implements one contract, running a harness source
// under a time bound and returning raw stdout, stderr and exit status, with
// three interchangeable backends: a remote runner service reached over
// HTTP, a local child interpreter process, and a Docker/Podman container.
//
// Script-level failures (user exceptions, timeouts, non-serializable
// results) are data carried in the RawResult. Only transport-level
// failures from the remote backend surface as errors, wrapping
// ErrUnavailable so the orchestrator can distinguish "backend is down"
// from "script misbehaved" and fall back accordingly.
//
// Usage:
//
//	runner := sandbox.NewLocalRunner(logger, "python3")
//	res, err := runner.Run(ctx, sandbox.RunSpec{
//	    Harness: source,
//	    Timeout: 5 * time.Second,
//	})
package sandbox
