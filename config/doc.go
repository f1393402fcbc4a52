// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files. It supports configuration for server
// settings, execution backend parameters (remote runner URL, timeouts,
// fallback backend), static validation limits and denylists, and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Remote runner: %s\n", cfg.Runner.RemoteURL)
package config
