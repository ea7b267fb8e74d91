// Package main implements the Corral node agent (corrald).
// Corrald joins the gossip cluster, serves the agent API that remote
// command execution and error-stream delivery ride on, and hosts the
// node's command registry and config store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corralhq/corral/internal/agent"
	"github.com/corralhq/corral/internal/builtin"
	"github.com/corralhq/corral/internal/cluster"
	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/configstore"
	"github.com/corralhq/corral/internal/logging"
	"github.com/corralhq/corral/internal/remote"
	"github.com/corralhq/corral/internal/validate"
	"github.com/corralhq/corral/internal/version"
	"github.com/corralhq/corral/internal/writer"
	"github.com/spf13/cobra"
)

const (
	DefaultBind      = "127.0.0.1:4200" // Default gossip bind address
	DefaultAgentBind = "127.0.0.1:9400" // Default agent API bind address
)

// Global configuration
var config struct {
	BindAddr      string   // Gossip address to bind to
	BindPort      int      // Gossip port to bind to
	AgentBind     string   // Agent API bind address (host:port)
	AgentAddr     string   // Agent API address advertised to peers
	AgentPort     int      // Agent API port, parsed from AgentBind
	AgentBindHost string   // Agent API host, parsed from AgentBind
	NodeName      string   // Name of this node
	JoinAddrs     []string // List of cluster addresses to join
	LogLevel      string   // Log level: DEBUG, INFO, WARN, ERROR
}

// Root command
var rootCmd = &cobra.Command{
	Use:   "corrald",
	Short: "Corral cluster node agent",
	Long: `Corral daemon (corrald) runs on every cluster node.

It joins the gossip cluster, exposes the agent API used for remote command
execution and error-stream delivery, and hosts the node's command registry
and config store.`,
	Version: version.CorraldVersion,
	Example: `  # Start the first node of a cluster
  corrald --bind=0.0.0.0:4200 --agent-bind=0.0.0.0:9400

  # Join an existing cluster
  corrald --bind=0.0.0.0:4201 --agent-bind=0.0.0.0:9401 --join=127.0.0.1:4200

  # Join with multiple addresses for fault tolerance
  corrald --bind=0.0.0.0:4202 --join=node1:4200,node2:4200,node3:4200`,
	PreRunE: validateDaemonConfig,
	RunE:    runDaemon,
}

func init() {
	// Network flags
	rootCmd.Flags().StringVar(&config.BindAddr, "bind", DefaultBind,
		"Gossip address and port to bind to (e.g., 0.0.0.0:4200)")
	rootCmd.Flags().StringVar(&config.AgentBind, "agent-bind", DefaultAgentBind,
		"Agent API address and port to bind to (e.g., 0.0.0.0:9400)")
	rootCmd.Flags().StringVar(&config.AgentAddr, "agent-addr", "",
		"Agent API address advertised to peers (defaults to the bind address)")

	// Node configuration flags
	rootCmd.Flags().StringVar(&config.NodeName, "node-name", "",
		"Node name (defaults to hostname)")

	// Cluster flags
	rootCmd.Flags().StringSliceVar(&config.JoinAddrs, "join", nil,
		"Comma-separated list of cluster addresses to join (e.g., node1:4200,node2:4200)\n"+
			"Multiple addresses provide fault tolerance - if first node is down, tries next one")

	// Operational flags
	rootCmd.Flags().StringVar(&config.LogLevel, "log-level", "INFO",
		"Log level: DEBUG, INFO, WARN, ERROR")
}

// Validates configuration before running
func validateDaemonConfig(cmd *cobra.Command, args []string) error {
	netAddr, err := validate.ParseBindAddress(config.BindAddr)
	if err != nil {
		return fmt.Errorf("invalid bind address: %w", err)
	}

	// Daemon requires non-zero ports (port 0 would let OS choose)
	if err := validate.ValidateField(netAddr.Port, "required,min=1,max=65535"); err != nil {
		return fmt.Errorf("daemon requires specific gossip port (not 0): %w", err)
	}

	config.BindAddr = netAddr.Host
	config.BindPort = netAddr.Port

	agentAddr, err := validate.ParseBindAddress(config.AgentBind)
	if err != nil {
		return fmt.Errorf("invalid agent bind address: %w", err)
	}
	if err := validate.ValidateField(agentAddr.Port, "required,min=1,max=65535"); err != nil {
		return fmt.Errorf("daemon requires specific agent port (not 0): %w", err)
	}

	config.AgentBindHost = agentAddr.Host
	config.AgentPort = agentAddr.Port

	// Advertised address defaults to the bind address; deployments behind
	// NAT override it with --agent-addr
	if config.AgentAddr == "" {
		config.AgentAddr = config.AgentBind
	}
	if _, err := validate.ParseBindAddress(config.AgentAddr); err != nil {
		return fmt.Errorf("invalid advertised agent address: %w", err)
	}

	// Set node name (default to hostname if not provided)
	if config.NodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		config.NodeName = hostname
	}

	if err := logging.ValidateLogLevel(config.LogLevel); err != nil {
		return err
	}

	// Validate join addresses if provided
	if len(config.JoinAddrs) > 0 {
		if err := validate.ValidateAddressList(config.JoinAddrs); err != nil {
			return fmt.Errorf("invalid join addresses: %w", err)
		}
	}

	return nil
}

// Converts daemon config to cluster manager config
func buildClusterConfig() *cluster.Config {
	clusterConfig := cluster.DefaultConfig()

	clusterConfig.BindAddr = config.BindAddr
	clusterConfig.BindPort = config.BindPort
	clusterConfig.NodeName = config.NodeName
	clusterConfig.AgentAddr = config.AgentAddr
	clusterConfig.LogLevel = config.LogLevel
	clusterConfig.Tags["corral_version"] = version.CorraldVersion

	return clusterConfig
}

// buildRegistry assembles the node's command registry: writers, builtin
// commands, and the config store with its whitelist.
func buildRegistry() (*command.Registry, error) {
	registry := command.NewRegistry()

	if err := writer.Register(registry); err != nil {
		return nil, err
	}

	// Fan-outs initiated on this node present the daemon's own identity as
	// the origin so remote error output routes back here; relayed executions
	// keep the identity of the node they started on.
	remoteExec := func(node command.Node, argv []string, timeout int) (int, string, error) {
		client := remote.NewAgentClient(node.Addr, timeout)
		origin := remote.ExecOrigin(command.Origin{
			Node: config.NodeName,
			Addr: config.AgentAddr,
		})
		result, err := client.Exec(argv, origin)
		if err != nil {
			return 0, "", err
		}
		return result.ExitCode, result.Stdout, nil
	}

	if err := builtin.Register(registry, builtin.Options{
		Version: version.CorraldVersion,
		Exec:    remoteExec,
	}); err != nil {
		return nil, err
	}

	store, err := configstore.New(map[string]string{
		"cluster.name":    "corral",
		"gossip.interval": "200ms",
		"log.level":       config.LogLevel,
	})
	if err != nil {
		return nil, err
	}

	if err := store.RegisterAll(registry); err != nil {
		return nil, err
	}

	// Only operational knobs are settable; identity keys stay read-only
	if err := registry.RegisterWhitelist("corrald", []string{
		"gossip.interval",
		"log.level",
	}); err != nil {
		return nil, err
	}

	store.Watch("log.level", func(key, oldValue, newValue string) {
		if err := logging.ValidateLogLevel(newValue); err != nil {
			logging.Warn("Ignoring invalid log level %q: %v", newValue, err)
			return
		}
		logging.SetLevel(newValue)
		logging.Info("Log level changed from %s to %s", oldValue, newValue)
	})

	return registry, nil
}

// Runs the daemon with graceful shutdown handling
func runDaemon(cmd *cobra.Command, args []string) error {
	logging.SetLevel(config.LogLevel)

	logging.Info("Starting Corral daemon v%s", version.CorraldVersion)
	logging.Info("Node: %s", config.NodeName)
	logging.Info("Gossip on %s:%d, agent API on %s:%d",
		config.BindAddr, config.BindPort, config.AgentBindHost, config.AgentPort)

	registry, err := buildRegistry()
	if err != nil {
		return fmt.Errorf("failed to build command registry: %w", err)
	}

	// Create cluster manager
	manager, err := cluster.NewManager(buildClusterConfig())
	if err != nil {
		return fmt.Errorf("failed to create cluster manager: %w", err)
	}

	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start cluster manager: %w", err)
	}

	registry.SetNodeFinder(manager.NodeFinder())

	// Join cluster if addresses provided
	if len(config.JoinAddrs) > 0 {
		logging.Info("Joining cluster via %v", config.JoinAddrs)
		if err := manager.Join(config.JoinAddrs); err != nil {
			logging.Error("Failed to join cluster: %v", err)
			// Don't fail startup - node can still operate independently
		}
	}

	// Start agent API server
	apiServer, err := agent.NewServer(&agent.Config{
		BindAddr: config.AgentBindHost,
		BindPort: config.AgentPort,
		NodeName: config.NodeName,
		Registry: registry,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent API server: %w", err)
	}

	if err := apiServer.Start(); err != nil {
		if shutdownErr := manager.Shutdown(); shutdownErr != nil {
			logging.Error("Error shutting down cluster manager: %v", shutdownErr)
		}
		return fmt.Errorf("failed to start agent API server: %w", err)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logging.Success("Corral daemon started successfully")
	logging.Info("Daemon running... Press Ctrl+C to shutdown")

	sig := <-sigCh
	logging.Info("Received signal: %v", sig)

	// Graceful shutdown
	logging.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Error shutting down agent API server: %v", err)
	}

	if err := manager.Shutdown(); err != nil {
		logging.Error("Error shutting down cluster manager: %v", err)
	}

	logging.Success("Corral daemon shutdown completed")
	return nil
}

// Main entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
