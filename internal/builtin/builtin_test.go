package builtin

import (
	"fmt"
	"strings"
	"testing"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/writer"
)

func testRegistry(t *testing.T) *command.Registry {
	t.Helper()

	r := command.NewRegistry()
	if err := writer.Register(r); err != nil {
		t.Fatalf("registering writers: %v", err)
	}
	if err := Register(r, Options{Version: "0.1.0-test"}); err != nil {
		t.Fatalf("registering builtins: %v", err)
	}

	r.SetNodeFinder(func() ([]command.Node, error) {
		return []command.Node{
			{Name: "node-b", Addr: "10.0.0.2:9400"},
			{Name: "node-a", Addr: "10.0.0.1:9400"},
		}, nil
	})

	return r
}

func run(t *testing.T, r *command.Registry, argv ...string) *command.Status {
	t.Helper()

	entry, remaining, err := r.Match(argv)
	if err != nil {
		t.Fatalf("Match(%v) error = %v", argv, err)
	}
	args, err := command.Parse(entry, remaining)
	if err != nil {
		t.Fatalf("Parse(%v) error = %v", argv, err)
	}
	return r.Execute(entry, argv[:len(entry.Pattern)], args)
}

// TestClusterStatus tests the membership summary
func TestClusterStatus(t *testing.T) {
	r := testRegistry(t)

	status := run(t, r, "cluster", "status")
	if status.IsError() {
		t.Fatalf("cluster status failed: %v", status.Err)
	}

	payload, ok := status.Payload.(map[string]string)
	if !ok {
		t.Fatalf("payload = %T, want map[string]string", status.Payload)
	}

	if payload["nodes"] != "2" {
		t.Errorf("nodes = %q, want %q", payload["nodes"], "2")
	}
}

// TestClusterStatus_NoFinder tests degradation without cluster membership
func TestClusterStatus_NoFinder(t *testing.T) {
	r := testRegistry(t)
	r.SetNodeFinder(nil)

	status := run(t, r, "cluster", "status")
	if !status.IsError() {
		t.Fatal("cluster status without finder should fail")
	}
}

// TestClusterNodes tests node listing and name filtering
func TestClusterNodes(t *testing.T) {
	r := testRegistry(t)

	status := run(t, r, "cluster", "nodes")
	if status.IsError() {
		t.Fatalf("cluster nodes failed: %v", status.Err)
	}

	table, ok := status.Payload.(writer.Table)
	if !ok {
		t.Fatalf("payload = %T, want writer.Table", status.Payload)
	}

	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}

	// Sorted by name
	if table.Rows[0][0] != "node-a" || table.Rows[1][0] != "node-b" {
		t.Errorf("rows not sorted by name: %v", table.Rows)
	}

	status = run(t, r, "cluster", "nodes", "node-b")
	if status.IsError() {
		t.Fatalf("cluster nodes node-b failed: %v", status.Err)
	}

	payload, ok := status.Payload.(map[string]string)
	if !ok {
		t.Fatalf("payload = %T, want map[string]string", status.Payload)
	}
	if payload["address"] != "10.0.0.2:9400" {
		t.Errorf("address = %q, want %q", payload["address"], "10.0.0.2:9400")
	}

	status = run(t, r, "cluster", "nodes", "ghost")
	if !status.IsError() {
		t.Error("cluster nodes ghost should fail")
	}
}

// TestFanOut tests --all execution across nodes
func TestFanOut(t *testing.T) {
	r := command.NewRegistry()
	if err := writer.Register(r); err != nil {
		t.Fatalf("registering writers: %v", err)
	}

	var targets []string
	exec := func(node command.Node, argv []string, timeout int) (int, string, error) {
		targets = append(targets, node.Name)
		if node.Name == "node-b" {
			return 2, "degraded\n", nil
		}
		return 0, "healthy\n", nil
	}

	if err := Register(r, Options{Version: "0.1.0-test", Exec: exec}); err != nil {
		t.Fatalf("registering builtins: %v", err)
	}
	r.SetNodeFinder(func() ([]command.Node, error) {
		return []command.Node{
			{Name: "node-a", Addr: "10.0.0.1:9400"},
			{Name: "node-b", Addr: "10.0.0.2:9400"},
		}, nil
	})

	status := run(t, r, "cluster", "status", "--all")
	if status.IsError() {
		t.Fatalf("fan-out failed: %v", status.Err)
	}

	if len(targets) != 2 {
		t.Fatalf("fan-out targets = %v, want both nodes", targets)
	}

	// One node reported non-zero, so the aggregate is tagged with exit 1
	if !status.IsTagged() || status.ExitCode != 1 {
		t.Errorf("fan-out status = %+v, want tagged exit 1", status)
	}

	table, ok := status.Payload.(writer.Table)
	if !ok {
		t.Fatalf("payload = %T, want writer.Table", status.Payload)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(table.Rows))
	}
}

// TestFanOut_RemoteError tests that per-node transport failures become rows
func TestFanOut_RemoteError(t *testing.T) {
	r := command.NewRegistry()
	if err := writer.Register(r); err != nil {
		t.Fatalf("registering writers: %v", err)
	}

	exec := func(node command.Node, argv []string, timeout int) (int, string, error) {
		return 0, "", fmt.Errorf("connection refused")
	}

	if err := Register(r, Options{Exec: exec}); err != nil {
		t.Fatalf("registering builtins: %v", err)
	}
	r.SetNodeFinder(func() ([]command.Node, error) {
		return []command.Node{{Name: "node-a", Addr: "10.0.0.1:9400"}}, nil
	})

	status := run(t, r, "cluster", "status", "--all")
	if !status.IsTagged() || status.ExitCode != 1 {
		t.Errorf("status = %+v, want tagged exit 1", status)
	}
}

// TestConfigCommands tests config get/set through registry callbacks
func TestConfigCommands(t *testing.T) {
	r := testRegistry(t)

	values := map[string]string{"gossip.interval": "200ms"}
	entry := &command.ConfigEntry{
		Get: func(key string) (string, error) { return values[key], nil },
		Set: func(key, value string) error { values[key] = value; return nil },
	}
	if err := r.RegisterConfig("gossip.interval", entry); err != nil {
		t.Fatalf("registering config: %v", err)
	}
	if err := r.RegisterWhitelist("corrald", []string{"gossip.interval"}); err != nil {
		t.Fatalf("registering whitelist: %v", err)
	}

	status := run(t, r, "config", "get", "gossip.interval")
	if status.IsError() {
		t.Fatalf("config get failed: %v", status.Err)
	}
	if status.Payload != "200ms" {
		t.Errorf("config get = %v, want 200ms", status.Payload)
	}

	status = run(t, r, "config", "set", "gossip.interval", "500ms")
	if status.IsError() {
		t.Fatalf("config set failed: %v", status.Err)
	}
	if values["gossip.interval"] != "500ms" {
		t.Errorf("config value = %q, want 500ms", values["gossip.interval"])
	}

	// Unknown key fails through the registry error path
	status = run(t, r, "config", "get", "no.such.key")
	if !status.IsError() {
		t.Error("config get of unknown key should fail")
	}
}

// TestVersionCommand tests that version is tagged so --format applies
func TestVersionCommand(t *testing.T) {
	r := testRegistry(t)

	status := run(t, r, "version")
	if !status.IsTagged() {
		t.Fatal("version should return a tagged status")
	}
	if status.ExitCode != 0 {
		t.Errorf("version exit code = %d, want 0", status.ExitCode)
	}

	payload, ok := status.Payload.(map[string]string)
	if !ok {
		t.Fatalf("payload = %T, want map[string]string", status.Payload)
	}
	if payload["version"] != "0.1.0-test" {
		t.Errorf("version = %q, want 0.1.0-test", payload["version"])
	}
}

// TestHelpCommand tests usage resolution through the help command
func TestHelpCommand(t *testing.T) {
	r := testRegistry(t)

	status := run(t, r, "help")
	if status.IsError() {
		t.Fatalf("help failed: %v", status.Err)
	}
	text, ok := status.Payload.(string)
	if !ok {
		t.Fatalf("payload = %T, want string", status.Payload)
	}
	if !strings.Contains(text, "cluster status") {
		t.Errorf("root help = %q, want command listing", text)
	}

	status = run(t, r, "help", "config", "set")
	if status.IsError() {
		t.Fatalf("help config set failed: %v", status.Err)
	}
	text = status.Payload.(string)
	if !strings.Contains(text, "config set") {
		t.Errorf("config help = %q, want config usage", text)
	}
}
