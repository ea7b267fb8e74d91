// Package validate provides input validation utilities shared by the Corral
// command framework, the corrald node agent, and configuration processing.
//
// Implements validation rules for network addresses, registry names (format
// names, config keys), and configuration parameters using the
// go-playground/validator library for standardized validation behavior.
//
// VALIDATION COVERAGE:
//   - Network Addresses: IP and port validation for agent endpoints
//   - Registry Names: format names and config keys registered by plugins
//   - Configuration: port ranges, required strings, timeouts
//
// Used throughout CLI tools, the agent API, and registry mutation paths to
// ensure consistent input validation across all system entry points.
package validate

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// Global validator instance using built-in validations
	validate *validator.Validate
)

func init() {
	validate = validator.New()
}

// NetworkAddress represents a validated network address with host and port
// components for agent communication endpoints. Uses struct tags for automatic
// validation via the go-playground/validator library.
type NetworkAddress struct {
	Host string `validate:"required,ip"`              // Built-in IP validator
	Port int    `validate:"required,min=0,max=65535"` // Built-in range validator
}

// String returns the network address in standard "host:port" format suitable
// for network connections, configuration display, and logging.
func (na NetworkAddress) String() string {
	return fmt.Sprintf("%s:%d", na.Host, na.Port)
}

// ParseBindAddress parses and validates a "host:port" address string for agent
// binding and communication endpoints. Provides format checking, IP address
// validation, and port range verification with clear error messages for
// troubleshooting misconfigured endpoints.
func ParseBindAddress(addr string) (*NetworkAddress, error) {
	if addr == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address format '%s': %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port '%s': %w", portStr, err)
	}

	netAddr := &NetworkAddress{
		Host: host,
		Port: port,
	}

	if err := validate.Struct(netAddr); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return netAddr, nil
}

// ValidateField validates individual values against specified validation rules
// using the go-playground/validator library. Supports all built-in validation
// tags including IP addresses, numeric ranges, and required field validation.
//
// Example: ValidateField("192.168.1.1", "required,ip")
func ValidateField(value interface{}, tag string) error {
	return validate.Var(value, tag)
}

// ValidateAddressList validates multiple network addresses for cluster joining
// operations. Ensures all provided addresses are properly formatted before any
// join attempt so that fallback addresses are usable when the first is down.
func ValidateAddressList(addresses []string) error {
	if len(addresses) == 0 {
		return fmt.Errorf("address list cannot be empty")
	}

	for i, addr := range addresses {
		if _, err := ParseBindAddress(addr); err != nil {
			return fmt.Errorf("invalid address at index %d: %w", i, err)
		}
	}

	return nil
}

// ValidatePortRange validates that a port number is within the valid range
// (1-65535). Rejects port 0 (OS-assigned) since cluster nodes require
// predictable addresses for discovery and cross-node delivery.
func ValidatePortRange(port int) error {
	return ValidateField(port, "required,min=1,max=65535")
}

// ValidateRequiredString validates that a string field is not empty.
// Prevents runtime failures from missing essential configuration parameters.
func ValidateRequiredString(value, fieldName string) error {
	if err := ValidateField(value, "required"); err != nil {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidatePositiveTimeout validates that a timeout duration is positive (> 0).
// Used across agent HTTP timeouts and remote-call timeouts to ensure proper
// timing behavior in cluster operations.
func ValidatePositiveTimeout(timeout time.Duration, name string) error {
	if timeout <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

// RegistryNameFormat validates names registered into framework tables: output
// format names ("human", "json") and node names. Ensures names contain only
// [a-z0-9_-] and don't start/end with special characters.
//
// Necessary for DNS compatibility and predictable lookups across cluster nodes
// and administrative tools.
func RegistryNameFormat(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	validNameRegex := regexp.MustCompile(`^[a-z0-9_-]+$`)
	if !validNameRegex.MatchString(name) {
		return fmt.Errorf("name '%s' must contain only lowercase letters [a-z], numbers [0-9], hyphens (-), and underscores (_)", name)
	}

	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "_") ||
		strings.HasSuffix(name, "-") || strings.HasSuffix(name, "_") {
		return fmt.Errorf("name '%s' cannot start or end with hyphen (-) or underscore (_)", name)
	}

	return nil
}

// ConfigKeyFormat validates configuration keys registered by applications.
// Keys are dotted paths of registry-safe segments, e.g. "cluster.join_timeout".
// Each segment must independently satisfy RegistryNameFormat.
func ConfigKeyFormat(key string) error {
	if key == "" {
		return fmt.Errorf("config key cannot be empty")
	}

	for _, segment := range strings.Split(key, ".") {
		if err := RegistryNameFormat(segment); err != nil {
			return fmt.Errorf("invalid config key '%s': %w", key, err)
		}
	}

	return nil
}
