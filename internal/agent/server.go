package agent

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/logging"
	"github.com/corralhq/corral/internal/remote"
	"github.com/gin-gonic/gin"
)

// Server is the corrald agent API server.
type Server struct {
	registry   *command.Registry
	deliverer  command.ErrorStreamDeliverer
	httpServer *http.Server
	bindAddr   string
	bindPort   int
	nodeName   string
	stderr     io.Writer // destination for remote error-stream writes
	startTime  time.Time
}

// NewServer creates an agent API server instance.
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		registry:  config.Registry,
		deliverer: remote.NewStderrDeliverer(10),
		bindAddr:  config.BindAddr,
		bindPort:  config.BindPort,
		nodeName:  config.NodeName,
		stderr:    os.Stderr,
		startTime: time.Now(),
	}, nil
}

// Start starts the agent API server.
func (s *Server) Start() error {
	logging.Info("Starting agent API server on %s:%d", s.bindAddr, s.bindPort)

	router := gin.New()

	// Route Gin's internal logs through structured logging unless a CLI
	// already configured output
	if !logging.IsConfiguredByCLI() {
		gin.DefaultWriter = logging.NewLevelWriter("INFO", "gin")
		gin.DefaultErrorWriter = logging.NewLevelWriter("ERROR", "gin")
	}

	router.Use(s.requestLogger())
	router.Use(s.nodeIdentity())
	router.Use(gin.Recovery())

	s.setupRoutes(router)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.bindAddr, s.bindPort),
		Handler: router,
		// Timeouts for production
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Test binding first to catch errors immediately
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.httpServer.Addr, err)
	}
	listener.Close()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Agent API server failed: %v", err)
		}
	}()

	logging.Success("Agent API server started successfully")
	return nil
}

// Shutdown gracefully shuts down the agent API server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down agent API server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}
