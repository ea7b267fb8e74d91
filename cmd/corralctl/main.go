// Package main provides the entry point for the Corral CLI tool (corralctl).
//
// corralctl drives a corral cluster through the command framework: the raw
// argument sequence from the shell is matched against the registry's command
// patterns, parsed and validated against the matched entry's specs, executed,
// and the resulting status rendered through the named writer. Exit codes come
// straight out of the pipeline, so scripts can rely on them.
//
// The CLI never joins the gossip layer; cluster membership and remote
// execution go through the local corrald agent API.
package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/corralhq/corral/internal/builtin"
	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/logging"
	"github.com/corralhq/corral/internal/remote"
	"github.com/corralhq/corral/internal/version"
	"github.com/corralhq/corral/internal/writer"
)

const (
	// DefaultAgentAddr is the corrald agent API corralctl talks to when
	// CORRAL_AGENT_ADDR is unset.
	DefaultAgentAddr = "127.0.0.1:9400"

	// EnvAgentAddr selects the local corrald agent API address.
	EnvAgentAddr = "CORRAL_AGENT_ADDR"

	defaultTimeout = 10 // seconds
)

// Config keys proxied to the daemon's store. The daemon enforces its own
// whitelist on writes; mirroring it here only improves local error messages.
var proxiedConfigKeys = []string{
	"cluster.name",
	"gossip.interval",
	"log.level",
}

var settableConfigKeys = []string{
	"gossip.interval",
	"log.level",
}

// setupLogging keeps CLI output clean: only errors reach the terminal
// unless DEBUG=true asks for the full stream.
func setupLogging() {
	if os.Getenv("DEBUG") == "true" {
		logging.RestoreOutput()
		logging.SetLevel("DEBUG")
	} else {
		logging.SuppressOutput()
	}
}

func agentAddr() string {
	if addr := os.Getenv(EnvAgentAddr); addr != "" {
		return addr
	}
	return DefaultAgentAddr
}

// buildRegistry assembles the CLI's command registry: writers, builtin
// commands with remote fan-out, proxied config access, and a node finder
// backed by the local agent.
func buildRegistry() (*command.Registry, error) {
	registry := command.NewRegistry()

	if err := writer.Register(registry); err != nil {
		return nil, err
	}

	localAgent := remote.NewAgentClient(agentAddr(), defaultTimeout)

	// The CLI presents its local daemon as the origin of fan-outs it starts,
	// so remote error output routes back to the agent the operator is
	// attached to. Resolved lazily: purely local commands never pay for the
	// identity lookup, and a missing daemon degrades to the agent address.
	var issuerOnce sync.Once
	var issuer command.Origin
	issuerOrigin := func() command.Origin {
		issuerOnce.Do(func() {
			addr := agentAddr()
			name, err := localAgent.Identity()
			if err != nil {
				logging.Debug("Local agent identity unavailable: %v", err)
				name = addr
			}
			issuer = command.Origin{Node: name, Addr: addr}
		})
		return issuer
	}

	remoteExec := func(node command.Node, argv []string, timeout int) (int, string, error) {
		client := remote.NewAgentClient(node.Addr, timeout)
		result, err := client.Exec(argv, remote.ExecOrigin(issuerOrigin()))
		if err != nil {
			return 0, "", err
		}
		return result.ExitCode, result.Stdout, nil
	}

	if err := builtin.Register(registry, builtin.Options{
		Version: version.CorralctlVersion,
		Exec:    remoteExec,
	}); err != nil {
		return nil, err
	}

	registry.SetNodeFinder(localAgent.GetNodes)

	// Config reads and writes proxy to the daemon's store, which enforces
	// the whitelist fail-closed on its side
	for _, key := range proxiedConfigKeys {
		entry := &command.ConfigEntry{
			Get: localAgent.GetConfig,
			Set: localAgent.SetConfig,
		}
		if err := registry.RegisterConfig(key, entry); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterWhitelist("corralctl", settableConfigKeys); err != nil {
		return nil, err
	}

	return registry, nil
}

func main() {
	setupLogging()

	registry, err := buildRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runner := command.NewRunner(registry)
	runner.Pipeline.ResolveOrigin = remote.ResolveOrigin
	runner.Pipeline.Remote = remote.NewStderrDeliverer(defaultTimeout)

	argv := os.Args[1:]
	if len(argv) == 0 {
		os.Exit(runner.PrintUsage(nil))
	}

	os.Exit(runner.Run(argv))
}
