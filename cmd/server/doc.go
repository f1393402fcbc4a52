// Package main is the entry point for the pybox MCP server.
//
// The pybox server accepts untrusted Python scripts, statically screens
// them against configured denylists, wraps accepted scripts in a
// result-marker harness, and runs them on a remote runner service with
// transparent fallback to local execution. The server supports both
// stdio and HTTP transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
