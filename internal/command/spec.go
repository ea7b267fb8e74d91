package command

import (
	"fmt"
	"strconv"
)

// ValueType tags the coercion applied to a positional key or flag value.
type ValueType int

const (
	// StringType accepts any token unchanged.
	StringType ValueType = iota
	// IntType requires a valid integer literal.
	IntType
	// BoolType marks presence flags: --name alone means true, an explicit
	// --name=true/false value is also accepted.
	BoolType
)

func (t ValueType) String() string {
	switch t {
	case IntType:
		return "integer"
	case BoolType:
		return "boolean"
	default:
		return "string"
	}
}

// KeySpec declares one named positional argument a handler accepts, in order.
// A single entry named Wildcard makes the command accept arbitrary extra
// positionals, deferring validation to the handler.
type KeySpec struct {
	Name     string
	Type     ValueType
	Required bool
}

// FlagSpec declares one named flag a handler accepts. A single entry named
// Wildcard makes the command accept unknown flags as raw strings.
type FlagSpec struct {
	Name     string
	Type     ValueType
	Required bool
}

// GlobalFlags is the fixed, handler-independent flag set recognized by every
// command. They are extracted before handler-specific validation so a handler
// that does not declare them never rejects them as unknown.
type GlobalFlags struct {
	All     bool   // fan execution out to every cluster node via the node finder
	Format  string // preferred output format name; empty means the status decides
	Timeout int    // remote call timeout in seconds; 0 means transport default
}

// ParsedArgs holds a command's validated arguments: positional key values by
// name, typed flag values by name, overflow positionals accepted under a
// wildcard key spec, and the extracted global flag set. Treated as immutable
// once validation succeeds.
type ParsedArgs struct {
	Keys    map[string]any
	Flags   map[string]any
	Extra   []string
	Globals GlobalFlags
}

// String returns the named key or flag as a string, preferring keys.
// Returns the empty string when absent or differently typed.
func (a *ParsedArgs) String(name string) string {
	if v, ok := a.Keys[name].(string); ok {
		return v
	}
	if v, ok := a.Flags[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the named key or flag as an integer, preferring keys.
// Returns 0 when absent or differently typed.
func (a *ParsedArgs) Int(name string) int {
	if v, ok := a.Keys[name].(int); ok {
		return v
	}
	if v, ok := a.Flags[name].(int); ok {
		return v
	}
	return 0
}

// Bool returns the named flag as a boolean. Absent flags are false.
func (a *ParsedArgs) Bool(name string) bool {
	v, ok := a.Flags[name].(bool)
	return ok && v
}

// coerce converts a raw token according to the declared value type.
func coerce(raw string, t ValueType) (any, error) {
	switch t {
	case IntType:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case BoolType:
		switch raw {
		case "true", "":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, fmt.Errorf("not a boolean: %q", raw)
		}
	default:
		return raw, nil
	}
}
