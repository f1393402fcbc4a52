// Package harness generates the Python wrapper around a user script.
//
// The harness package is a pure text transformation: it embeds an
// already-validated script, calls its top-level main(), and emits the
// return value as one JSON payload on a marker-prefixed stdout line so
// the result survives arbitrary interleaved print output. The marker
// constant and the harness exit statuses are the wire contract shared
// with the execution backends and the result normalizer.
package harness
