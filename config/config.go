package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// RunnerConfig holds execution backend configuration.
//
// RequestTimeoutSec bounds the whole remote round trip and must be strictly
// greater than TimeoutSec, so a hung remote service surfaces as unavailable
// instead of hanging the caller.
type RunnerConfig struct {
	RemoteURL         string `mapstructure:"remote_url"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	TimeoutSec        int    `mapstructure:"timeout_sec"`
	MemoryMB          int    `mapstructure:"memory_mb"`
	PythonBin         string `mapstructure:"python_bin"`
	FallbackBackend   string `mapstructure:"fallback_backend"`
	ContainerImage    string `mapstructure:"container_image"`
}

// ValidatorConfig holds static validation limits and denylists.
// Attribute entries use "object.attr" form, e.g. "os.system".
type ValidatorConfig struct {
	MaxScriptSize    int      `mapstructure:"max_script_size"`
	MaxFunctionDefs  int      `mapstructure:"max_function_defs"`
	DeniedNames      []string `mapstructure:"denied_names"`
	DeniedAttributes []string `mapstructure:"denied_attributes"`
	DeniedReferences []string `mapstructure:"denied_references"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)

	viper.SetDefault("runner.remote_url", "http://sandbox-runner:5000/run")
	viper.SetDefault("runner.request_timeout_sec", 10)
	viper.SetDefault("runner.timeout_sec", 5)
	viper.SetDefault("runner.memory_mb", 128)
	viper.SetDefault("runner.python_bin", "python3")
	viper.SetDefault("runner.fallback_backend", "local")
	viper.SetDefault("runner.container_image", "python:3.11-slim")

	viper.SetDefault("validator.max_script_size", 200*1024)
	viper.SetDefault("validator.max_function_defs", 100)
	viper.SetDefault("validator.denied_names", []string{
		"eval", "exec", "compile", "__import__",
		"importlib", "ctypes", "ctypes.util",
		"subprocess", "socket", "multiprocessing", "threading",
		"os.system", "sys.modules",
	})
	viper.SetDefault("validator.denied_attributes", []string{
		"os.system", "os.popen", "os.execv", "os.execl", "sys.exec_prefix",
	})
	viper.SetDefault("validator.denied_references", []string{
		"eval", "exec", "__import__",
	})

	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Runner.RemoteURL == "" {
		return fmt.Errorf("runner.remote_url must not be empty")
	}

	if c.Runner.TimeoutSec <= 0 {
		return fmt.Errorf("runner.timeout_sec must be positive, got: %d", c.Runner.TimeoutSec)
	}

	if c.Runner.RequestTimeoutSec <= c.Runner.TimeoutSec {
		return fmt.Errorf("runner.request_timeout_sec must be greater than runner.timeout_sec, got: %d <= %d",
			c.Runner.RequestTimeoutSec, c.Runner.TimeoutSec)
	}

	if c.Runner.MemoryMB <= 0 {
		return fmt.Errorf("runner.memory_mb must be positive, got: %d", c.Runner.MemoryMB)
	}

	if c.Runner.PythonBin == "" {
		return fmt.Errorf("runner.python_bin must not be empty")
	}

	supportedBackends := map[string]bool{
		"local":  true,
		"docker": true,
		"podman": true,
	}
	if !supportedBackends[c.Runner.FallbackBackend] {
		return fmt.Errorf("unsupported runner.fallback_backend: %s", c.Runner.FallbackBackend)
	}

	if c.Validator.MaxScriptSize <= 0 {
		return fmt.Errorf("validator.max_script_size must be positive, got: %d", c.Validator.MaxScriptSize)
	}

	if c.Validator.MaxFunctionDefs <= 0 {
		return fmt.Errorf("validator.max_function_defs must be positive, got: %d", c.Validator.MaxFunctionDefs)
	}

	return nil
}

// ExecutionTimeout returns the script execution timeout as a duration
func (c *Config) ExecutionTimeout() time.Duration {
	return time.Duration(c.Runner.TimeoutSec) * time.Second
}

// RequestTimeout returns the remote transport deadline as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Runner.RequestTimeoutSec) * time.Second
}
