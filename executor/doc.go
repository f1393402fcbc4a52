// Package executor orchestrates the full script execution pipeline.
//
// The executor package ties the pieces together: static validation,
// harness generation, the remote-then-local backend policy, and result
// normalization. The fallback policy is deliberately simple: at most one
// remote attempt and one local attempt per request, strictly sequential,
// with no retry loop, bounding worst-case latency to roughly the transport
// timeout plus the execution timeout.
//
// Script failures of every kind (rejection, user exception, timeout,
// non-serializable result, bad payload) flow into the Response error
// field as data; a misbehaving script can never crash or wedge the
// serving process.
package executor
