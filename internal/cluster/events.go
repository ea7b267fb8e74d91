// Package cluster event handling for Corral membership tracking.
package cluster

import (
	"fmt"
	"time"

	"github.com/corralhq/corral/internal/logging"
	"github.com/hashicorp/serf/serf"
)

// processEvents handles incoming Serf events in a separate goroutine.
//
// Phase 1: ALWAYS process events internally (member tracking, failures).
// Phase 2: OPTIONALLY forward to external consumers, non-blocking.
//
// Membership operations never depend on external consumers draining Events.
func (m *Manager) processEvents() {
	defer m.wg.Done()

	logging.Info("Starting event processor")

	for {
		select {
		case event := <-m.ingestQueue:
			m.handleEvent(event)

			// Best-effort delivery; drop rather than block on slow consumers
			select {
			case m.Events <- event:
			default:
				logging.Warn("Event channel full, dropping event: %T", event)
			}

		case <-m.ctx.Done():
			logging.Info("Event processor shutting down")
			return
		}
	}
}

// handleEvent processes individual Serf events.
func (m *Manager) handleEvent(event serf.Event) {
	switch e := event.(type) {
	case serf.MemberEvent:
		m.handleMemberEvent(e)
	default:
		logging.Debug("Received unhandled event type: %T", event)
	}
}

// handleMemberEvent processes node join/leave/fail/update/reap events.
func (m *Manager) handleMemberEvent(event serf.MemberEvent) {
	for _, member := range event.Members {
		switch event.EventType() {
		case serf.EventMemberJoin:
			logging.Info("Corral node joined: %s (%s:%d)",
				member.Name, member.Addr, member.Port)
			m.addMember(member)

		case serf.EventMemberLeave:
			logging.Info("Corral node left: %s (%s:%d)",
				member.Name, member.Addr, member.Port)
			m.removeMember(member)

		case serf.EventMemberFailed:
			logging.Warn("Corral node failed: %s (%s:%d)",
				member.Name, member.Addr, member.Port)
			m.updateMemberStatus(member, serf.StatusFailed)

		case serf.EventMemberUpdate:
			logging.Info("Corral node updated: %s (%s:%d)",
				member.Name, member.Addr, member.Port)
			m.updateMember(member)

		case serf.EventMemberReap:
			logging.Info("Corral node reaped: %s (%s:%d)",
				member.Name, member.Addr, member.Port)
			m.removeMember(member)
		}
	}
}

// addMember adds a newly discovered node to the cluster tracking.
func (m *Manager) addMember(member serf.Member) {
	node := m.memberFromSerf(member)

	m.memberLock.Lock()
	m.members[node.ID] = node
	m.memberLock.Unlock()
}

// updateMember updates an existing node's information in the cluster.
func (m *Manager) updateMember(member serf.Member) {
	node := m.memberFromSerf(member)

	m.memberLock.Lock()
	if existing, exists := m.members[node.ID]; exists {
		// Preserve last seen time for nodes that are no longer alive
		if member.Status != serf.StatusAlive {
			node.LastSeen = existing.LastSeen
		}
	}
	m.members[node.ID] = node
	m.memberLock.Unlock()
}

// updateMemberStatus updates a node's status (alive/failed/left).
func (m *Manager) updateMemberStatus(member serf.Member, status serf.MemberStatus) {
	m.memberLock.Lock()
	if node, exists := m.members[nodeIDFor(member)]; exists {
		node.Status = status
		if status == serf.StatusAlive {
			node.LastSeen = time.Now()
		}
	}
	m.memberLock.Unlock()
}

// removeMember removes a node from the cluster tracking.
func (m *Manager) removeMember(member serf.Member) {
	m.memberLock.Lock()
	delete(m.members, nodeIDFor(member))
	m.memberLock.Unlock()
}

// memberFromSerf converts a serf.Member into a tracked Member.
func (m *Manager) memberFromSerf(member serf.Member) *Member {
	node := &Member{
		ID:        nodeIDFor(member),
		Name:      member.Name,
		Addr:      member.Addr,
		Port:      member.Port,
		AgentAddr: member.Tags["agent_addr"],
		Status:    member.Status,
		Tags:      make(map[string]string, len(member.Tags)),
		LastSeen:  time.Now(),
	}

	for k, v := range member.Tags {
		node.Tags[k] = v
	}

	return node
}

// nodeIDFor returns the gossiped node ID, falling back to a synthetic
// identity for members that predate the node_id tag.
func nodeIDFor(member serf.Member) string {
	if id, ok := member.Tags["node_id"]; ok && id != "" {
		return id
	}
	return fmt.Sprintf("%s@%s:%d", member.Name, member.Addr, member.Port)
}
