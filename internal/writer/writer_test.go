package writer

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/corralhq/corral/internal/command"
	"github.com/muesli/termenv"
)

func init() {
	// Force TrueColor output in tests so escape sequences are observable
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// ansiSequence matches the terminal escape sequences the styles emit.
var ansiSequence = regexp.MustCompile("\x1b\\[[0-9;]*m")

// TestRegister tests that both builtin writers land in the registry
func TestRegister(t *testing.T) {
	r := command.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register() error = %v, want nil", err)
	}

	for _, format := range []string{"human", "json"} {
		if _, err := r.LookupWriter(format); err != nil {
			t.Errorf("LookupWriter(%q) error = %v, want nil", format, err)
		}
	}
}

// TestHuman_ErrorStatus tests that errors render to stderr only
func TestHuman_ErrorStatus(t *testing.T) {
	status := command.Fail(errors.New("node unreachable"))

	stdout, stderr, err := Human(status, []string{"admin", "status"})
	if err != nil {
		t.Fatalf("Human() error = %v, want nil", err)
	}
	if stdout != "" {
		t.Errorf("Human() stdout = %q, want empty for error status", stdout)
	}
	if !strings.Contains(stderr, "node unreachable") {
		t.Errorf("Human() stderr = %q, want error text", stderr)
	}
}

// TestHuman_PayloadShapes tests the payload rendering conventions
func TestHuman_PayloadShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    []string
	}{
		{
			name:    "plain string",
			payload: "cluster is healthy",
			want:    []string{"cluster is healthy"},
		},
		{
			name: "table",
			payload: Table{
				Header: []string{"NAME", "STATUS"},
				Rows:   [][]string{{"node1", "alive"}, {"node2", "failed"}},
			},
			want: []string{"NAME", "STATUS", "node1", "alive", "node2", "failed"},
		},
		{
			name:    "key values sorted",
			payload: map[string]string{"version": "0.1.0-dev", "nodes": "3"},
			want:    []string{"nodes:", "version:"},
		},
		{
			name:    "nil payload",
			payload: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := Human(command.OK(tt.payload), nil)
			if err != nil {
				t.Fatalf("Human() error = %v, want nil", err)
			}
			if stderr != "" {
				t.Errorf("Human() stderr = %q, want empty for success", stderr)
			}
			for _, fragment := range tt.want {
				if !strings.Contains(stdout, fragment) {
					t.Errorf("Human() stdout = %q, want fragment %q", stdout, fragment)
				}
			}
			if tt.payload == nil && stdout != "" {
				t.Errorf("Human() stdout = %q, want empty for nil payload", stdout)
			}
		})
	}
}

// TestHuman_KeyValueOrder tests deterministic sorted output for maps
func TestHuman_KeyValueOrder(t *testing.T) {
	stdout, _, err := Human(command.OK(map[string]string{"b": "2", "a": "1"}), nil)
	if err != nil {
		t.Fatalf("Human() error = %v", err)
	}
	if strings.Index(stdout, "a:") > strings.Index(stdout, "b:") {
		t.Errorf("Human() keys not sorted: %q", stdout)
	}
}

// TestJSON_Payload tests machine-readable rendering
func TestJSON_Payload(t *testing.T) {
	payload := map[string]any{"nodes": 3, "healthy": true}

	stdout, stderr, err := JSON(command.OK(payload), nil)
	if err != nil {
		t.Fatalf("JSON() error = %v, want nil", err)
	}
	if stderr != "" {
		t.Errorf("JSON() stderr = %q, want empty", stderr)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(stdout), &decoded); err != nil {
		t.Fatalf("JSON() produced invalid JSON: %v", err)
	}
	if decoded["nodes"] != float64(3) {
		t.Errorf("JSON() nodes = %v, want 3", decoded["nodes"])
	}
}

// TestJSON_UnencodablePayload tests rendering failure propagation
func TestJSON_UnencodablePayload(t *testing.T) {
	if _, _, err := JSON(command.OK(make(chan int)), nil); err == nil {
		t.Error("JSON() with unencodable payload should return error")
	}
}

// TestHuman_TableHeaderAlignment tests that header styling never skews
// column widths: escape bytes must stay out of tabwriter's cell accounting
func TestHuman_TableHeaderAlignment(t *testing.T) {
	table := Table{
		Header: []string{"NODE", "EXIT"},
		Rows:   [][]string{{"node-with-long-name", "0"}},
	}

	stdout, _, err := Human(command.OK(table), nil)
	if err != nil {
		t.Fatalf("Human() error = %v, want nil", err)
	}

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Human() rendered %d lines, want 2: %q", len(lines), stdout)
	}

	if !strings.Contains(lines[0], "\x1b[") {
		t.Fatalf("header line %q carries no styling, alignment unverifiable", lines[0])
	}

	header := ansiSequence.ReplaceAllString(lines[0], "")
	row := lines[1]

	if got, want := strings.Index(header, "EXIT"), strings.Index(row, "0"); got != want {
		t.Errorf("EXIT column at offset %d in header, data at %d: %q vs %q",
			got, want, header, row)
	}
}
