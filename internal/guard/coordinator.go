// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

// Package guard implements the compound acquire-and-commit transaction that
// fronts the active-lock table: grant a semantic lock, durably commit the
// embedding to the vector store, then release the lock before replying.
package guard

import (
	"context"
	"log/slog"

	"github.com/dscc-io/dscc/internal/locktable"
	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// Committer is the subset of the vector store client the coordinator needs.
// Defined here (not in vectorstore) so guard depends on a narrow interface
// rather than a concrete client.
type Committer interface {
	UpsertPoint(ctx context.Context, agentID string, embedding []float32) error
}

// Coordinator owns the active-lock table and the vector-store committer, and
// implements the two RPC-facing operations: AcquireGuard and ReleaseGuard.
type Coordinator struct {
	table *locktable.Table
	store Committer
	theta float32
}

// New constructs a Coordinator over an existing table and committer.
func New(table *locktable.Table, store Committer, theta float32) *Coordinator {
	return &Coordinator{table: table, store: store, theta: theta}
}

// AcquireGuard validates the request, blocks until admission, commits the
// embedding to the vector store, then releases the lock regardless of
// commit outcome. The lock is never held past this call: a granted guard
// is a completed transaction, not an open lease.
func (c *Coordinator) AcquireGuard(ctx context.Context, agentID string, embedding []float32) (granted bool, message string) {
	if agentID == "" || len(embedding) == 0 {
		return false, "agent_id and embedding are required"
	}

	if err := c.table.Acquire(ctx, agentID, embedding, c.theta); err != nil {
		return false, "acquire cancelled: " + err.Error()
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		c.table.Release(agentID)
	}
	defer release()

	if err := c.store.UpsertPoint(ctx, agentID, embedding); err != nil {
		slog.Warn("guard commit failed", "agent_id", agentID, "error", err, "code", dsccerr.CodeOf(err))
		return false, "qdrant write failed"
	}

	return true, "granted and committed"
}

// ReleaseGuard removes every entry held by agentID. Releasing an agent that
// holds no guard still reports success.
func (c *Coordinator) ReleaseGuard(agentID string) bool {
	if agentID == "" {
		return false
	}
	c.table.Release(agentID)
	return true
}
