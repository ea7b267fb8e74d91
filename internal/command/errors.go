package command

import (
	"fmt"
	"strings"
)

// Error taxonomy for the execution pipeline. Matcher and parser errors abort
// before any handler executes; handler errors are normalized into the error
// Status shape by the dispatcher. All errors are exit-code-bearing and none
// are swallowed.

// UnknownCommandError reports that no registered pattern matches the given
// argv prefix. No handler is invoked.
type UnknownCommandError struct {
	Path []string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", strings.Join(e.Path, " "))
}

// ValidationError reports missing or extra positional keys, unknown flags,
// or type coercion failures. Validation is strict: any failure aborts before
// execution and no partial execution occurs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func missingKeyError(key string) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf("missing required argument: %s", key)}
}

func excessArgsError(extra []string) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf("unexpected arguments: %s", strings.Join(extra, " "))}
}

func unknownFlagError(name string) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf("unknown flag: --%s", name)}
}

func flagTypeError(name, value, wantType string) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf("invalid value %q for flag --%s: expected %s", value, name, wantType)}
}

func keyTypeError(key, value, wantType string) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf("invalid value %q for argument %s: expected %s", value, key, wantType)}
}

// ConfigError reports config registry violations: mutating a key outside the
// whitelist, or whitelist registration naming keys the declaring application
// never registered. Keys carries the offending key list when applicable.
type ConfigError struct {
	Reason string
	Keys   []string
}

func (e *ConfigError) Error() string {
	if len(e.Keys) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Keys, ", "))
	}
	return e.Reason
}

// RenderingError reports that a requested output format has no registered
// writer. Never downgraded to a default format: silently falling back could
// mislead machine consumers expecting structured output.
type RenderingError struct {
	Format string
}

func (e *RenderingError) Error() string {
	return fmt.Sprintf("no writer registered for output format %q", e.Format)
}
