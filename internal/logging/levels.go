// Package logging provides centralized log level validation for Corral.
//
// This file defines the canonical set of valid log levels used across all
// components including agent configuration, the command framework, and CLI
// tools. Centralizing validation ensures consistency and makes it easy to add
// new log levels without updating multiple files.
//
// All log level strings are case-sensitive and must be uppercase to maintain
// consistency with the logging system's internal level handling.
package logging

import "fmt"

// ValidLogLevels defines the canonical set of supported log levels across all
// Corral components. This map is the single source of truth for log level
// validation in agent configs and CLI flag processing.
var ValidLogLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

// IsValidLogLevel checks if the provided log level string is supported.
func IsValidLogLevel(level string) bool {
	return ValidLogLevels[level]
}

// ValidateLogLevel validates a log level string and returns an error if invalid.
// Used by configuration validation across agent startup and CLI flag processing
// to catch invalid log levels early with clear error messages.
func ValidateLogLevel(level string) error {
	if !IsValidLogLevel(level) {
		return fmt.Errorf("invalid log level: %s", level)
	}
	return nil
}
