package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corralhq/corral/internal/command"
)

// testAgent spins up a fake agent API and returns its host:port address.
func testAgent(t *testing.T, handler http.Handler) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

// TestAgentClient_Exec tests remote execution round-trip
func TestAgentClient_Exec(t *testing.T) {
	var gotReq ExecRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/exec", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("exec method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding exec request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ExecResult{ExitCode: 3, Stdout: "node ok\n"})
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	result, err := client.Exec([]string{"cluster", "status"},
		command.Origin{Node: "origin-node", Addr: "10.0.0.1:9400"})
	if err != nil {
		t.Fatalf("Exec() error = %v, want nil", err)
	}

	if result.ExitCode != 3 {
		t.Errorf("Exec() ExitCode = %d, want 3", result.ExitCode)
	}

	if result.Stdout != "node ok\n" {
		t.Errorf("Exec() Stdout = %q, want %q", result.Stdout, "node ok\n")
	}

	if gotReq.Argv[0] != "cluster" || gotReq.Argv[1] != "status" {
		t.Errorf("exec request argv = %v, want [cluster status]", gotReq.Argv)
	}

	if gotReq.OriginNode != "origin-node" || gotReq.OriginAddr != "10.0.0.1:9400" {
		t.Errorf("exec request origin = %q/%q, want origin-node/10.0.0.1:9400",
			gotReq.OriginNode, gotReq.OriginAddr)
	}
}

// TestAgentClient_Exec_HTTPError tests non-200 handling
func TestAgentClient_Exec_HTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/exec", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	if _, err := client.Exec([]string{"x"}, command.Origin{}); err == nil {
		t.Error("Exec() error = nil, want HTTP status error")
	}
}

// TestAgentClient_WriteStderr tests remote stderr writes
func TestAgentClient_WriteStderr(t *testing.T) {
	var got StderrRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/streams/stderr", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding stderr request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	if err := client.WriteStderr("Error: disk full\n"); err != nil {
		t.Fatalf("WriteStderr() error = %v, want nil", err)
	}

	if got.Text != "Error: disk full\n" {
		t.Errorf("stderr request text = %q, want %q", got.Text, "Error: disk full\n")
	}
}

// TestAgentClient_GetNodes tests membership discovery over the agent API
func TestAgentClient_GetNodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/nodes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(APIResponse{
			Status: "ok",
			Data: []NodeInfo{
				{Name: "node-a", Address: "10.0.0.1:9400"},
				{Name: "node-b", Address: "10.0.0.2:9400"},
			},
		})
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	nodes, err := client.GetNodes()
	if err != nil {
		t.Fatalf("GetNodes() error = %v, want nil", err)
	}

	if len(nodes) != 2 {
		t.Fatalf("GetNodes() returned %d nodes, want 2", len(nodes))
	}

	if nodes[0].Name != "node-a" || nodes[0].Addr != "10.0.0.1:9400" {
		t.Errorf("GetNodes()[0] = %+v, want node-a at 10.0.0.1:9400", nodes[0])
	}
}

// TestAgentClient_Health tests health probing
func TestAgentClient_Health(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(APIResponse{Status: "ok"})
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	if err := client.Health(); err != nil {
		t.Errorf("Health() error = %v, want nil", err)
	}
}

// TestStderrDeliverer tests origin-addressed delivery and client reuse
func TestStderrDeliverer(t *testing.T) {
	calls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/streams/stderr", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	addr := testAgent(t, mux)
	deliverer := NewStderrDeliverer(5)
	origin := command.Origin{Node: "origin-node", Addr: addr}

	if err := deliverer.DeliverStderr(origin, "first"); err != nil {
		t.Fatalf("DeliverStderr() error = %v, want nil", err)
	}
	if err := deliverer.DeliverStderr(origin, "second"); err != nil {
		t.Fatalf("DeliverStderr() second error = %v, want nil", err)
	}

	if calls != 2 {
		t.Errorf("stderr endpoint calls = %d, want 2", calls)
	}

	if len(deliverer.clients) != 1 {
		t.Errorf("cached clients = %d, want 1", len(deliverer.clients))
	}
}

// TestStderrDeliverer_MissingAddr tests rejection of unaddressable origins
func TestStderrDeliverer_MissingAddr(t *testing.T) {
	deliverer := NewStderrDeliverer(5)

	err := deliverer.DeliverStderr(command.Origin{Node: "orphan"}, "text")
	if err == nil {
		t.Error("DeliverStderr() error = nil, want error for missing agent address")
	}
}

// TestAgentClient_Identity tests node name lookup through the health endpoint
func TestAgentClient_Identity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(APIResponse{
			Status: "ok",
			Data:   map[string]any{"node": "node-7", "version": "0.1.0"},
		})
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	name, err := client.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v, want nil", err)
	}

	if name != "node-7" {
		t.Errorf("Identity() = %q, want %q", name, "node-7")
	}
}

// TestAgentClient_Identity_MissingName tests rejection of anonymous agents
func TestAgentClient_Identity_MissingName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(APIResponse{Status: "ok", Data: map[string]any{}})
	})

	client := NewAgentClient(testAgent(t, mux), 5)

	if _, err := client.Identity(); err == nil {
		t.Error("Identity() error = nil, want error for missing node name")
	}
}
