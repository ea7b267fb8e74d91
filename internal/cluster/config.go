package cluster

import (
	"fmt"
	"time"

	"github.com/corralhq/corral/internal/validate"
)

// Config holds configuration for the membership Manager.
type Config struct {
	BindAddr  string            // Gossip bind address
	BindPort  int               // Gossip bind port
	NodeName  string            // Name of this node
	AgentAddr string            // host:port of this node's agent API, gossiped to peers
	Tags      map[string]string // Custom tags for the node

	EventBufferSize int           // Event buffer size
	JoinRetries     int           // Join retries
	JoinTimeout     time.Duration // Join timeout
	LogLevel        string        // Log level
}

// DefaultConfig returns a default configuration for the Manager. NodeName and
// AgentAddr have no sensible defaults and must be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		BindPort:        4200,
		EventBufferSize: 1024,
		JoinRetries:     3,
		JoinTimeout:     30 * time.Second,
		LogLevel:        "INFO",
		Tags:            make(map[string]string),
	}
}

// validateConfig validates manager configuration
func validateConfig(config *Config) error {
	if err := validate.ValidateRequiredString(config.NodeName, "node name"); err != nil {
		return err
	}

	if err := validate.RegistryNameFormat(config.NodeName); err != nil {
		return fmt.Errorf("invalid node name: %w", err)
	}

	if err := validate.ValidateField(config.BindAddr, "required,ip"); err != nil {
		return fmt.Errorf("invalid bind address: %w", err)
	}

	if err := validate.ValidateField(config.BindPort, "min=0,max=65535"); err != nil {
		return fmt.Errorf("invalid bind port: %w", err)
	}

	if config.AgentAddr != "" {
		if _, err := validate.ParseBindAddress(config.AgentAddr); err != nil {
			return fmt.Errorf("invalid agent address: %w", err)
		}
	}

	if config.EventBufferSize < 1 {
		return fmt.Errorf("event buffer size must be positive, got: %d", config.EventBufferSize)
	}

	if err := validate.ValidatePositiveTimeout(config.JoinTimeout, "join timeout"); err != nil {
		return err
	}

	if err := validateTags(config.Tags); err != nil {
		return fmt.Errorf("invalid tags: %w", err)
	}

	return nil
}

// validateTags validates that user-provided tags don't collide with the
// system tags gossiped by the manager itself.
func validateTags(tags map[string]string) error {
	reservedTags := map[string]bool{
		"node_id":    true,
		"agent_addr": true,
	}

	for tagName := range tags {
		if reservedTags[tagName] {
			return fmt.Errorf("tag name '%s' is reserved and cannot be used", tagName)
		}
	}

	return nil
}
