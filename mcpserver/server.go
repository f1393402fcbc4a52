// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes
// the execute_python_script tool as the front door to the validation and
// execution pipeline. It uses the mark3labs/mcp-go library to handle the
// protocol details.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/pybox/config"
	"github.com/isdmx/pybox/executor"
)

// ScriptExecutor is the pipeline contract the server drives
type ScriptExecutor interface {
	Execute(ctx context.Context, req executor.Request) executor.Response
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	exec      ScriptExecutor
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, exec ScriptExecutor) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		exec:   exec,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("runner.remote_url", s.config.Runner.RemoteURL),
		zap.Int("runner.request_timeout_sec", s.config.Runner.RequestTimeoutSec),
		zap.Int("runner.timeout_sec", s.config.Runner.TimeoutSec),
		zap.Int("runner.memory_mb", s.config.Runner.MemoryMB),
		zap.String("runner.fallback_backend", s.config.Runner.FallbackBackend),
		zap.Int("validator.max_script_size", s.config.Validator.MaxScriptSize),
		zap.Int("validator.max_function_defs", s.config.Validator.MaxFunctionDefs),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("pybox-executor", "A validated Python script execution server")

	// Register the execute_python_script tool
	s.registerExecutePythonScriptTool()

	return s, nil
}

// registerExecutePythonScriptTool registers the execute_python_script tool
func (s *MCPServer) registerExecutePythonScriptTool() {
	tool := mcp.Tool{
		Name:        "execute_python_script",
		Description: "Validate and execute a Python script defining main(), returning its JSON result",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"script": map[string]any{
					"type":        "string",
					"description": "Python source defining a top-level main() function",
				},
				"timeout_sec": map[string]any{
					"type":        "integer",
					"description": "Execution time limit in seconds (optional)",
				},
				"memory_limit_mb": map[string]any{
					"type":        "integer",
					"description": "Memory limit in MB; enforced only by container backends (optional)",
				},
			},
			Required: []string{"script"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecutePythonScript)
}

// handleExecutePythonScript handles the execute_python_script tool
func (s *MCPServer) handleExecutePythonScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("script execution requested")

	script, err := request.RequireString("script")
	if err != nil {
		return nil, fmt.Errorf("script parameter is required: %w", err)
	}

	timeoutSec := request.GetInt("timeout_sec", 0)
	memoryMB := request.GetInt("memory_limit_mb", 0)

	resp := s.exec.Execute(ctx, executor.Request{
		Script:   script,
		Timeout:  time.Duration(timeoutSec) * time.Second,
		MemoryMB: memoryMB,
	})

	s.logger.Info("script execution completed",
		zap.Bool("has_result", resp.Error == ""),
		zap.Int("stdout_len", len(resp.Stdout)))

	body, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(body),
			},
		},
		IsError: resp.Error != "",
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
