package command

import "fmt"

// DefaultFormat is the writer used for bare statuses and, unconditionally,
// for error statuses so diagnostics stay legible even when the operator
// requested machine output.
const DefaultFormat = "human"

// statusKind tags the three result shapes a handler may produce.
type statusKind int

const (
	statusBare   statusKind = iota // payload only: human format, exit 0
	statusTagged                   // payload with explicit exit code and format
	statusError                    // failure: human format, exit 1, always
)

// Status is the normalized result of a command execution, consumed by the
// output pipeline. Payload content is opaque to the framework and owned by
// the handler/writer pair.
type Status struct {
	kind     statusKind
	Payload  any
	ExitCode int
	Format   string // format name for tagged statuses; empty means default
	Err      error  // set only for error statuses
}

// OK returns a bare success status. Rendered with the "human" writer,
// exit code 0.
func OK(payload any) *Status {
	return &Status{kind: statusBare, Payload: payload}
}

// Tagged returns a status carrying an explicit exit code and format name.
// The final process exit code is exactly the given value.
func Tagged(payload any, exitCode int, format string) *Status {
	return &Status{kind: statusTagged, Payload: payload, ExitCode: exitCode, Format: format}
}

// Fail wraps an error into the error status shape. Error statuses always
// render through the "human" writer with exit code 1 regardless of the
// requested format; errors cannot customize their exit code.
func Fail(err error) *Status {
	return &Status{kind: statusError, ExitCode: 1, Err: err}
}

// Failf is shorthand for Fail(fmt.Errorf(...)).
func Failf(format string, v ...any) *Status {
	return Fail(fmt.Errorf(format, v...))
}

// IsError reports whether the status carries a failure.
func (s *Status) IsError() bool {
	return s.kind == statusError
}

// IsTagged reports whether the status carries an explicit exit code and
// format name.
func (s *Status) IsTagged() bool {
	return s.kind == statusTagged
}
