// Package cluster provides Serf-based membership and node discovery for
// Corral. It backs the command framework's node finder: handlers fanning out
// with --all ask the finder for the current member set, and the finder asks
// this manager.
//
// The manager embeds hashicorp/serf's SWIM gossip for scalable membership and
// failure detection. Each node gossips two system tags: its random hex node
// ID and the host:port of its agent API, which is the address remote
// execution and error-stream delivery dial.
//
// Use odd-numbered clusters (3, 5, 7) for decisive name-conflict resolution
// during network partitions.
package cluster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/logging"
	"github.com/hashicorp/serf/serf"
)

// Member represents a node in the Corral cluster with its metadata.
type Member struct {
	ID        string            `json:"id"`        // Unique identifier for the node
	Name      string            `json:"name"`      // Name of the node
	Addr      net.IP            `json:"addr"`      // Gossip IP address of the node
	Port      uint16            `json:"port"`      // Gossip port number
	AgentAddr string            `json:"agentAddr"` // host:port of the node's agent API
	Status    serf.MemberStatus `json:"status"`    // Serf membership status
	Tags      map[string]string `json:"tags"`      // Tags for the node

	LastSeen time.Time `json:"lastSeen"` // Last seen time
}

// Manager manages Serf cluster membership and events for Corral.
type Manager struct {
	serf      *serf.Serf // Core Serf instance
	NodeID    string     // Unique identifier for the node
	NodeName  string     // Name of the node
	startTime time.Time  // When the manager was started

	// Two-channel producer-consumer pattern: internal processing never blocks
	// external consumers. Member tracking always happens even when nothing
	// drains the external channel.

	Events      chan serf.Event // EXTERNAL: optional event channel for consumers (can be slow/nil)
	ingestQueue chan serf.Event // INTERNAL: direct from Serf, always processed

	memberLock sync.RWMutex       // Member tracking
	members    map[string]*Member // Known cluster members by node ID
	ctx        context.Context    // Context
	cancel     context.CancelFunc // Cancel function
	wg         sync.WaitGroup     // Wait group
	config     *Config            // Manager configuration
}

// NewManager creates a new membership Manager instance.
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	nodeID, err := generateNodeID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate node ID: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	manager := &Manager{
		NodeID:   nodeID,
		NodeName: config.NodeName,

		// Internal buffer is 2x larger so Serf never blocks on ingest even
		// when external consumers are slow or absent.
		Events:      make(chan serf.Event, config.EventBufferSize),
		ingestQueue: make(chan serf.Event, config.EventBufferSize*2),

		members: make(map[string]*Member),
		ctx:     ctx,
		cancel:  cancel,
		config:  config,
	}

	return manager, nil
}

// Start starts the Manager and joins it to the gossip network.
func (m *Manager) Start() error {
	m.startTime = time.Now()
	logging.Info("Starting cluster manager for node %s", m.NodeID)

	serfConfig := serf.DefaultConfig()

	// CLI tools may have already configured the desired logging level
	if !logging.IsConfiguredByCLI() {
		logging.SetLevel(m.config.LogLevel)
	}

	// Configure logging BEFORE calling Init() so it is properly set up
	if m.config.LogLevel == "ERROR" {
		serfConfig.LogOutput = io.Discard
		serfConfig.MemberlistConfig.LogOutput = io.Discard
	} else {
		colorfulWriter := logging.NewColorfulSerfWriter()
		serfConfig.LogOutput = colorfulWriter
		serfConfig.MemberlistConfig.LogOutput = colorfulWriter
	}

	serfConfig.Init()
	serfConfig.NodeName = m.NodeName
	serfConfig.MemberlistConfig.BindAddr = m.config.BindAddr
	serfConfig.MemberlistConfig.BindPort = m.config.BindPort

	// Serf writes events to the internal ingest queue so member tracking
	// always happens regardless of external consumer availability.
	serfConfig.EventCh = m.ingestQueue

	serfConfig.Tags = m.buildNodeTags()

	var err error
	m.serf, err = serf.Create(serfConfig)
	if err != nil {
		return fmt.Errorf("failed to create serf instance: %w", err)
	}

	m.wg.Add(1)
	go m.processEvents()

	// Initialize with self as first member
	m.addMember(m.serf.LocalMember())

	logging.Success("Cluster manager started successfully on %s:%d",
		m.config.BindAddr, m.config.BindPort)

	return nil
}

// Join attempts to join an existing cluster using one or more seed addresses.
// Serf tries each address until one succeeds, which prevents single points of
// failure during cluster bootstrap and recovery.
func (m *Manager) Join(addresses []string) error {
	if len(addresses) == 0 {
		return fmt.Errorf("no join addresses provided")
	}

	logging.Info("Attempting to join cluster via %v", addresses)

	var lastErr error
	for attempt := 1; attempt <= m.config.JoinRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.JoinTimeout)

		joinDone := make(chan struct {
			n   int
			err error
		}, 1)

		go func() {
			n, err := m.serf.Join(addresses, false)
			joinDone <- struct {
				n   int
				err error
			}{n, err}
		}()

		select {
		case result := <-joinDone:
			cancel()
			if result.err != nil {
				lastErr = result.err
				logging.Warn("Join attempt %d/%d failed: %v",
					attempt, m.config.JoinRetries, result.err)

				if attempt < m.config.JoinRetries {
					time.Sleep(time.Duration(attempt) * time.Second)
				}
				continue
			}

			logging.Success("Successfully joined cluster, discovered %d nodes", result.n)
			return nil

		case <-ctx.Done():
			cancel()
			lastErr = fmt.Errorf("join attempt timed out after %v", m.config.JoinTimeout)
			logging.Warn("Join attempt %d/%d timed out after %v",
				attempt, m.config.JoinRetries, m.config.JoinTimeout)

			if attempt < m.config.JoinRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
			}
			continue
		}
	}

	return fmt.Errorf("failed to join cluster after %d attempts: %w",
		m.config.JoinRetries, lastErr)
}

// Leave gracefully leaves the cluster.
func (m *Manager) Leave() error {
	logging.Info("Leaving cluster gracefully")

	if m.serf != nil {
		if err := m.serf.Leave(); err != nil {
			return fmt.Errorf("failed to leave cluster: %w", err)
		}
	}

	return nil
}

// Shutdown stops the Manager and cleans up resources.
func (m *Manager) Shutdown() error {
	logging.Info("Shutting down cluster manager")

	m.cancel()

	if err := m.Leave(); err != nil {
		logging.Warn("Error during graceful leave: %v", err)
	}

	if m.serf != nil {
		if err := m.serf.Shutdown(); err != nil {
			logging.Error("Error shutting down Serf: %v", err)
		}
	}

	m.wg.Wait()

	logging.Success("Cluster manager shutdown completed")
	return nil
}

// Members returns a copy of all known cluster members keyed by node ID.
func (m *Manager) Members() map[string]*Member {
	m.memberLock.RLock()
	defer m.memberLock.RUnlock()

	members := make(map[string]*Member, len(m.members))
	for id, member := range m.members {
		members[id] = copyMember(member)
	}

	return members
}

// Member returns a specific cluster member by node ID.
func (m *Manager) Member(nodeID string) (*Member, bool) {
	m.memberLock.RLock()
	defer m.memberLock.RUnlock()

	member, exists := m.members[nodeID]
	if !exists {
		return nil, false
	}

	return copyMember(member), true
}

// LocalMember returns information about the local node.
func (m *Manager) LocalMember() *Member {
	member, _ := m.Member(m.NodeID)
	return member
}

// NodeFinder adapts the manager into the command framework's node finder
// contract. Only alive members with a known agent address participate in
// fan-out; the local node is included so --all means the whole cluster.
func (m *Manager) NodeFinder() command.NodeFinder {
	return func() ([]command.Node, error) {
		members := m.Members()

		nodes := make([]command.Node, 0, len(members))
		for _, member := range members {
			if member.Status != serf.StatusAlive || member.AgentAddr == "" {
				continue
			}
			nodes = append(nodes, command.Node{
				Name: member.Name,
				Addr: member.AgentAddr,
			})
		}
		return nodes, nil
	}
}

// copyMember creates a deep copy of a Member to prevent external
// modifications and race conditions. Only reference types need manual
// copying; value types are covered by the struct copy.
func copyMember(member *Member) *Member {
	memberCopy := *member

	memberCopy.Tags = make(map[string]string, len(member.Tags))
	for k, v := range member.Tags {
		memberCopy.Tags[k] = v
	}

	return &memberCopy
}

// buildNodeTags constructs the tags map gossiped for this node.
func (m *Manager) buildNodeTags() map[string]string {
	// User tags + 2 system tags (node_id, agent_addr)
	tags := make(map[string]string, len(m.config.Tags)+2)

	for k, v := range m.config.Tags {
		tags[k] = v
	}

	tags["node_id"] = m.NodeID
	if m.config.AgentAddr != "" {
		tags["agent_addr"] = m.config.AgentAddr
	}

	return tags
}

// generateNodeID generates a random hex node identifier (like Docker container IDs).
func generateNodeID() (string, error) {
	// 6 bytes of random data: 12 hex characters, like Docker short IDs
	bytes := make([]byte, 6)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
