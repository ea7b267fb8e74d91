// Package writer provides the builtin output writers for the Corral command
// framework: "human" for operator-facing terminal output and "json" for
// machine consumers.
//
// Writers are pure rendering functions mapping a status to a (stdout, stderr)
// text pair; stream routing and exit-code policy stay in the framework. The
// human writer understands a small set of payload conventions (tables,
// key/value maps, stringers) and falls back to plain formatting for anything
// else, so handlers stay free to return whatever shape their writer pair
// understands.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/corralhq/corral/internal/command"
)

// Table is the payload convention for tabular human rendering. Handlers
// returning a Table get aligned column output under a styled header row.
type Table struct {
	Header []string
	Rows   [][]string
}

var (
	// Error text: light red/pink, matching the logging package's ERROR color
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4473"))

	// Table headers: subtle gray so data rows stay prominent
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
)

// Register installs the builtin "human" and "json" writers into the registry.
// Called once at application startup before any command runs.
func Register(r *command.Registry) error {
	if err := r.RegisterWriter("human", Human); err != nil {
		return fmt.Errorf("failed to register human writer: %w", err)
	}
	if err := r.RegisterWriter("json", JSON); err != nil {
		return fmt.Errorf("failed to register json writer: %w", err)
	}
	return nil
}

// Human renders a status for operators at a terminal. Error statuses produce
// stderr text only; success payloads render to stdout as a table, sorted
// key/value lines, or plain text depending on the payload shape.
func Human(status *command.Status, path []string) (string, string, error) {
	if status.IsError() {
		return "", errorStyle.Render(fmt.Sprintf("Error: %v", status.Err)) + "\n", nil
	}

	switch payload := status.Payload.(type) {
	case nil:
		return "", "", nil
	case Table:
		return renderTable(payload), "", nil
	case *Table:
		return renderTable(*payload), "", nil
	case map[string]string:
		return renderKeyValues(payload), "", nil
	case fmt.Stringer:
		return payload.String() + "\n", "", nil
	case string:
		return payload + "\n", "", nil
	default:
		return fmt.Sprintf("%v\n", payload), "", nil
	}
}

// JSON renders a status payload as indented JSON for machine consumers.
// Error statuses never reach this writer in the normal pipeline; rendering
// one anyway produces a minimal error object so the output stays parseable.
func JSON(status *command.Status, path []string) (string, string, error) {
	if status.IsError() {
		data, err := json.Marshal(map[string]string{"error": status.Err.Error()})
		if err != nil {
			return "", "", fmt.Errorf("failed to encode error: %w", err)
		}
		return "", string(data) + "\n", nil
	}

	data, err := json.MarshalIndent(status.Payload, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data) + "\n", "", nil
}

// renderTable aligns columns with tabwriter, then styles the header row.
// The header passes through tabwriter unstyled: ANSI escape bytes would
// otherwise count toward cell width and skew the columns on color terminals.
func renderTable(t Table) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if len(t.Header) > 0 {
		fmt.Fprintln(w, strings.Join(t.Header, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
	out := buf.String()
	if len(t.Header) == 0 {
		return out
	}
	if nl := strings.IndexByte(out, '\n'); nl >= 0 {
		return headerStyle.Render(out[:nl]) + out[nl:]
	}
	return headerStyle.Render(out)
}

// renderKeyValues prints a map as sorted, aligned "key: value" lines.
func renderKeyValues(kv map[string]string) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%s:\t%s\n", k, kv[k])
	}
	w.Flush()
	return buf.String()
}
