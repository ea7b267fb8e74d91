package command

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// recordingDeliverer captures remote stderr writes for delivery tests
type recordingDeliverer struct {
	origin Origin
	text   string
	fail   bool
}

func (d *recordingDeliverer) DeliverStderr(origin Origin, text string) error {
	if d.fail {
		return errors.New("remote write refused")
	}
	d.origin = origin
	d.text = text
	return nil
}

// testRunner builds a runner with buffered streams and a human+json writer pair
func testRunner(t *testing.T) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	r := NewRegistry()
	if err := r.RegisterWriter("human", func(status *Status, path []string) (string, string, error) {
		if status.IsError() {
			return "", fmt.Sprintf("error: %v\n", status.Err), nil
		}
		return fmt.Sprintf("human: %v\n", status.Payload), "", nil
	}); err != nil {
		t.Fatalf("RegisterWriter(human) error = %v", err)
	}
	if err := r.RegisterWriter("json", func(status *Status, path []string) (string, string, error) {
		return fmt.Sprintf(`{"payload":%q}`+"\n", fmt.Sprint(status.Payload)), "", nil
	}); err != nil {
		t.Fatalf("RegisterWriter(json) error = %v", err)
	}

	rn := NewRunner(r)
	var stdout, stderr bytes.Buffer
	rn.Pipeline.Stdout = &stdout
	rn.Pipeline.Stderr = &stderr
	return rn, &stdout, &stderr
}

// TestRun_BareStatus tests the success path: bare payload, human writer, exit 0
func TestRun_BareStatus(t *testing.T) {
	rn, stdout, _ := testRunner(t)
	if err := rn.Registry.RegisterCommand("admin status", nil, nil, okHandler("all healthy")); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "status"})
	if code != 0 {
		t.Errorf("Run() exit code = %d, want 0", code)
	}
	if got := stdout.String(); got != "human: all healthy\n" {
		t.Errorf("Run() stdout = %q, want human-rendered payload", got)
	}
}

// TestRun_TaggedExitCode tests that tagged statuses surface their exact exit code
func TestRun_TaggedExitCode(t *testing.T) {
	rn, stdout, _ := testRunner(t)
	handler := func(inv *Invocation) (*Status, error) {
		return Tagged("stopping", 17, "human"), nil
	}
	if err := rn.Registry.RegisterCommand("admin stop", nil, nil, handler); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "stop"})
	if code != 17 {
		t.Errorf("Run() exit code = %d, want 17", code)
	}
	if !strings.Contains(stdout.String(), "stopping") {
		t.Errorf("Run() stdout = %q, want tagged payload", stdout.String())
	}
}

// TestRun_TaggedFormat tests that tagged statuses select their named writer
func TestRun_TaggedFormat(t *testing.T) {
	rn, stdout, _ := testRunner(t)
	handler := func(inv *Invocation) (*Status, error) {
		return Tagged("data", 0, "json"), nil
	}
	if err := rn.Registry.RegisterCommand("admin dump", nil, nil, handler); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "dump"})
	if code != 0 {
		t.Errorf("Run() exit code = %d, want 0", code)
	}
	if got := stdout.String(); got != `{"payload":"data"}`+"\n" {
		t.Errorf("Run() stdout = %q, want json-rendered payload", got)
	}
}

// TestRun_ErrorAlwaysHuman tests that error statuses render via the human
// writer with exit code 1 even when another format was requested
func TestRun_ErrorAlwaysHuman(t *testing.T) {
	rn, stdout, stderr := testRunner(t)
	handler := func(inv *Invocation) (*Status, error) {
		return nil, errors.New("disk on fire")
	}
	if err := rn.Registry.RegisterCommand("admin burn", nil, nil, handler); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "burn", "--format=json"})
	if code != 1 {
		t.Errorf("Run() exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "disk on fire") {
		t.Errorf("Run() stderr = %q, want human-rendered error text", stderr.String())
	}
	if strings.Contains(stdout.String(), "payload") {
		t.Errorf("Run() stdout = %q, error must not render as json", stdout.String())
	}
}

// TestRun_PreferredFormat tests that the global --format flag selects the
// writer for bare statuses
func TestRun_PreferredFormat(t *testing.T) {
	rn, stdout, _ := testRunner(t)
	if err := rn.Registry.RegisterCommand("admin status", nil, nil, okHandler("x")); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "status", "--format=json"})
	if code != 0 {
		t.Errorf("Run() exit code = %d, want 0", code)
	}
	if got := stdout.String(); got != `{"payload":"x"}`+"\n" {
		t.Errorf("Run() stdout = %q, want json rendering", got)
	}
}

// TestRun_UnknownCommand tests that unmatched paths exit 1 with no handler
// side effects
func TestRun_UnknownCommand(t *testing.T) {
	rn, _, stderr := testRunner(t)
	invoked := false
	handler := func(inv *Invocation) (*Status, error) {
		invoked = true
		return OK(nil), nil
	}
	if err := rn.Registry.RegisterCommand("admin status", nil, nil, handler); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "nope"})
	if code != 1 {
		t.Errorf("Run() exit code = %d, want 1", code)
	}
	if invoked {
		t.Error("Run() invoked a handler for an unknown command")
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("Run() stderr = %q, want unknown-command error", stderr.String())
	}
	if !strings.Contains(stderr.String(), "admin nope") {
		t.Errorf("Run() stderr = %q, want attempted path in message", stderr.String())
	}
}

// TestRun_ValidationAbortsExecution tests that parser failures prevent any
// handler execution
func TestRun_ValidationAbortsExecution(t *testing.T) {
	rn, _, stderr := testRunner(t)
	invoked := false
	handler := func(inv *Invocation) (*Status, error) {
		invoked = true
		return OK(nil), nil
	}
	keys := []KeySpec{{Name: "target", Type: StringType, Required: true}}
	if err := rn.Registry.RegisterCommand("admin ping", keys, nil, handler); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "ping"})
	if code != 1 {
		t.Errorf("Run() exit code = %d, want 1", code)
	}
	if invoked {
		t.Error("Run() invoked handler despite validation failure")
	}
	if !strings.Contains(stderr.String(), "target") {
		t.Errorf("Run() stderr = %q, want missing key name", stderr.String())
	}
}

// TestRenderAndDeliver_UnregisteredFormat tests fail-fast on unknown formats
// with no silent fallback
func TestRenderAndDeliver_UnregisteredFormat(t *testing.T) {
	rn, stdout, stderr := testRunner(t)
	handler := func(inv *Invocation) (*Status, error) {
		return Tagged("data", 0, "yaml"), nil
	}
	if err := rn.Registry.RegisterCommand("admin dump", nil, nil, handler); err != nil {
		t.Fatalf("RegisterCommand() error = %v", err)
	}

	code := rn.Run([]string{"admin", "dump"})
	if code != 1 {
		t.Errorf("Run() exit code = %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("Run() stdout = %q, want no fallback rendering", stdout.String())
	}
	if !strings.Contains(stderr.String(), "yaml") {
		t.Errorf("Run() stderr = %q, want offending format name", stderr.String())
	}
}

// TestDeliverStderr_RemoteOrigin tests the two-step delivery protocol:
// resolve origin, then remote write to the issuing node
func TestDeliverStderr_RemoteOrigin(t *testing.T) {
	rn, _, stderr := testRunner(t)
	remote := &recordingDeliverer{}
	rn.Pipeline.Remote = remote
	rn.Pipeline.ResolveOrigin = func() Origin {
		return Origin{Node: "node1", Addr: "10.0.0.1:8008"}
	}

	code := rn.PrintError(errors.New("remote trouble"), []string{"admin", "x"})
	if code != 1 {
		t.Errorf("PrintError() exit code = %d, want 1", code)
	}
	if remote.origin.Node != "node1" {
		t.Errorf("DeliverStderr() origin = %+v, want node1", remote.origin)
	}
	if !strings.Contains(remote.text, "remote trouble") {
		t.Errorf("DeliverStderr() text = %q, want error text", remote.text)
	}
	if stderr.Len() != 0 {
		t.Errorf("local stderr = %q, want empty when origin is remote", stderr.String())
	}
}

// TestDeliverStderr_RemoteFailureFallsBack tests that failed remote writes
// fall back to the local error stream
func TestDeliverStderr_RemoteFailureFallsBack(t *testing.T) {
	rn, _, stderr := testRunner(t)
	rn.Pipeline.Remote = &recordingDeliverer{fail: true}
	rn.Pipeline.ResolveOrigin = func() Origin {
		return Origin{Node: "node1", Addr: "10.0.0.1:8008"}
	}

	rn.PrintError(errors.New("remote trouble"), []string{"admin", "x"})
	if !strings.Contains(stderr.String(), "remote trouble") {
		t.Errorf("local stderr = %q, want fallback error text", stderr.String())
	}
}

// TestDeliverStderr_LocalOrigin tests the degraded non-distributed shape:
// a local origin writes straight to the process error stream
func TestDeliverStderr_LocalOrigin(t *testing.T) {
	rn, _, stderr := testRunner(t)
	remote := &recordingDeliverer{}
	rn.Pipeline.Remote = remote

	rn.PrintError(errors.New("local trouble"), []string{"admin", "x"})
	if !strings.Contains(stderr.String(), "local trouble") {
		t.Errorf("local stderr = %q, want error text", stderr.String())
	}
	if remote.text != "" {
		t.Errorf("remote deliverer received %q, want nothing for local origin", remote.text)
	}
}

// TestPrintUsage tests the usage print entry point with and without a match
func TestPrintUsage(t *testing.T) {
	rn, stdout, _ := testRunner(t)
	rn.Registry.RegisterUsage([]string{"admin"}, "admin commands manage the cluster")

	code := rn.PrintUsage([]string{"admin", "status"})
	if code != 0 {
		t.Errorf("PrintUsage() exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "admin commands manage the cluster") {
		t.Errorf("PrintUsage() stdout = %q, want registered text", stdout.String())
	}

	stdout.Reset()
	code = rn.PrintUsage([]string{"mystery"})
	if code != 0 {
		t.Errorf("PrintUsage() exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "no usage available") {
		t.Errorf("PrintUsage() stdout = %q, want generic fallback", stdout.String())
	}
}
