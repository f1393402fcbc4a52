// Package main is the entry point for the pybox MCP server.
//
// The pybox server statically validates untrusted Python scripts, wraps
// them in a result-marker harness, and executes them on a remote runner
// service with transparent fallback to local execution when the runner is
// unreachable.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/pybox/config"
	"github.com/isdmx/pybox/executor"
	"github.com/isdmx/pybox/logger"
	"github.com/isdmx/pybox/mcpserver"
	"github.com/isdmx/pybox/validate"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Script validator with configured denylists
			validate.NewFromConfig,

			// Remote-with-fallback execution pipeline
			executor.NewFromConfig,
			func(e *executor.Executor) mcpserver.ScriptExecutor { return e },

			// MCP Server
			mcpserver.New,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					// Use fx to run this as a background task
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
