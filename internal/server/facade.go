// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package server

import (
	"context"
	"log/slog"

	"github.com/dscc-io/dscc/internal/audit"
	"github.com/dscc-io/dscc/internal/guard"
	"github.com/dscc-io/dscc/internal/locktable"
	"github.com/dscc-io/dscc/internal/vectorstore"
)

// Facade translates transport requests into table and commit operations.
// It performs argument extraction, input validation, delegation, response
// shaping, and audit recording — nothing else. All of its collaborators
// are explicit constructor arguments, never ambient globals.
type Facade struct {
	nodeID      string
	theta       float32
	table       *locktable.Table
	coordinator *guard.Coordinator
	health      *vectorstore.HealthTracker
	audit       *audit.Store
}

// NewFacade wires the components a running dsccd process needs into a
// single Facade.
func NewFacade(nodeID string, theta float32, table *locktable.Table, coordinator *guard.Coordinator, health *vectorstore.HealthTracker, auditStore *audit.Store) *Facade {
	return &Facade{
		nodeID:      nodeID,
		theta:       theta,
		table:       table,
		coordinator: coordinator,
		health:      health,
		audit:       auditStore,
	}
}

// Ping answers a liveness check with the requesting node's identity echoed
// back, mirroring the reference RPC surface.
func (f *Facade) Ping(fromNode string) string {
	return "pong to " + fromNode
}

// AcquireGuard runs the acquire-commit-release transaction and records the
// outcome to the audit trail before returning.
func (f *Facade) AcquireGuard(ctx context.Context, agentID string, embedding []float32) (granted bool, message string) {
	slog.Info("acquire attempt", "agent_id", agentID, "active_count", f.table.Size())
	granted, message = f.coordinator.AcquireGuard(ctx, agentID, embedding)

	decision := audit.DecisionDenied
	centroid := []float32(nil)
	if granted {
		decision = audit.DecisionGranted
		centroid = embedding
	}
	f.recordDecision(ctx, agentID, decision, message, centroid)

	slog.Info("acquire guard", "agent_id", agentID, "granted", granted, "active_count", f.table.Size())
	return granted, message
}

// ReleaseGuard releases every entry held by agentID and records the
// outcome.
func (f *Facade) ReleaseGuard(ctx context.Context, agentID string) bool {
	success := f.coordinator.ReleaseGuard(agentID)
	decision, message := audit.DecisionReleased, "released"
	if !success {
		decision, message = audit.DecisionDenied, "agent_id is required"
	}
	f.recordDecision(ctx, agentID, decision, message, nil)
	slog.Info("release guard", "agent_id", agentID, "success", success, "active_count", f.table.Size())
	return success
}

// InspectRecent returns recently recorded audit entries, optionally
// filtered by agent or ordered by similarity to a query embedding.
func (f *Facade) InspectRecent(ctx context.Context, agentID string, near []float32, limit int) ([]audit.Entry, error) {
	return f.audit.Recent(ctx, agentID, near, limit)
}

// Status reports the current process-wide state for operators.
func (f *Facade) Status() (nodeID string, activeLocks int, theta float32) {
	return f.nodeID, f.table.Size(), f.theta
}

func (f *Facade) recordDecision(ctx context.Context, agentID string, decision audit.Decision, message string, centroid []float32) {
	err := f.audit.Record(ctx, audit.Entry{
		AgentID:     agentID,
		Decision:    decision,
		Message:     message,
		ActiveCount: f.table.Size(),
		Centroid:    centroid,
	})
	if err != nil {
		slog.Warn("failed to record audit entry", "agent_id", agentID, "error", err)
	}
}
