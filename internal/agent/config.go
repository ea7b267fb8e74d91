// Package agent provides the HTTP API server each corrald node runs.
//
// The agent API is the narrow transport contract between cluster nodes: it
// accepts remote command executions (argv in, exit code and captured stdout
// out), remote error-stream writes for the stderr delivery protocol, health
// probes, and whitelisted config store access. Everything else about node
// communication stays behind this surface.
package agent

import (
	"fmt"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/validate"
)

const (
	// DefaultAgentPort is the default port for the agent HTTP API
	DefaultAgentPort = 9400
)

// Config holds configuration for the agent API server. The registry is the
// command table remote executions run against; NodeName identifies this
// node in origin headers.
type Config struct {
	BindAddr string            // HTTP server bind address (e.g. "0.0.0.0")
	BindPort int               // HTTP server bind port
	NodeName string            // This node's name, reported in health responses
	Registry *command.Registry // Command/config tables remote calls operate on
}

// DefaultConfig returns agent defaults. Loopback binding keeps local
// development safe; corrald overrides the bind address for cluster use.
func DefaultConfig() *Config {
	return &Config{
		BindAddr: "127.0.0.1",
		BindPort: DefaultAgentPort,
	}
}

// validateConfig checks agent server configuration
func validateConfig(config *Config) error {
	if err := validate.ValidateField(config.BindAddr, "required,ip"); err != nil {
		return fmt.Errorf("invalid bind address: %w", err)
	}

	if err := validate.ValidateField(config.BindPort, "min=1,max=65535"); err != nil {
		return fmt.Errorf("invalid bind port: %w", err)
	}

	if config.Registry == nil {
		return fmt.Errorf("command registry is required")
	}

	return nil
}
