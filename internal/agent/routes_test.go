package agent

import (
	"testing"

	"github.com/corralhq/corral/internal/command"
	"github.com/gin-gonic/gin"
)

// TestSetupRoutes tests that routes are properly registered in Gin's route tree
func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server, err := NewServer(&Config{
		BindAddr: "127.0.0.1",
		BindPort: 9400,
		NodeName: "test-node",
		Registry: command.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v, want nil", err)
	}

	router := gin.New()
	server.setupRoutes(router)

	routes := router.Routes()

	expectedRoutes := map[string]string{
		"GET /api/v1/health":          "health endpoint",
		"POST /api/v1/exec":           "remote execution endpoint",
		"POST /api/v1/streams/stderr": "stderr delivery endpoint",
		"GET /api/v1/config/:key":     "config read endpoint",
		"PUT /api/v1/config/:key":     "config write endpoint",
	}

	registeredRoutes := make(map[string]bool)
	for _, route := range routes {
		registeredRoutes[route.Method+" "+route.Path] = true
	}

	for expectedRoute, description := range expectedRoutes {
		t.Run(description, func(t *testing.T) {
			if !registeredRoutes[expectedRoute] {
				t.Errorf("Route %s not registered", expectedRoute)
			}
		})
	}

	if len(routes) < len(expectedRoutes) {
		t.Errorf("Expected at least %d routes, got %d", len(expectedRoutes), len(routes))
	}
}

// TestNewServer_InvalidConfig tests server creation with bad configuration
func TestNewServer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "missing registry",
			config: &Config{BindAddr: "127.0.0.1", BindPort: 9400},
		},
		{
			name:   "bad bind address",
			config: &Config{BindAddr: "nope", BindPort: 9400, Registry: command.NewRegistry()},
		},
		{
			name:   "port out of range",
			config: &Config{BindAddr: "127.0.0.1", BindPort: 0, Registry: command.NewRegistry()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config)
			if err == nil {
				t.Error("NewServer() error = nil, want error")
			}
			if server != nil {
				t.Error("NewServer() should return nil server on invalid config")
			}
		})
	}
}
