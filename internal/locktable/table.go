// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

// Package locktable implements the active-lock table: an in-memory,
// predicate-based mutual exclusion mechanism admitting agents only when
// their embedding does not semantically overlap an already-held guard.
package locktable

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/dscc-io/dscc/internal/similarity"
	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// SemanticLock is an entry in the active-lock table.
type SemanticLock struct {
	AgentID   string
	Centroid  []float32
	Threshold float32
}

// Table is the process-local, non-persistent set of currently held guards.
// Its zero value is not usable; construct one with New.
type Table struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []SemanticLock
}

// New creates an empty active-lock table.
func New() *Table {
	t := &Table{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Acquire blocks the caller until the table contains no entry whose
// centroid overlaps embedding at the given theta, then admits
// {agentID, embedding, theta} and returns.
//
// Only the incoming request's theta gates admission — the theta recorded
// on existing entries (SemanticLock.Threshold) is audit metadata only and is
// never read here.
// This keeps invariant 1 true as long as theta is constant across calls,
// which holds for a single process-wide theta; a future per-request theta
// would need to redefine the predicate (e.g. min(entry.Threshold, theta))
// to keep the same guarantee.
//
// If ctx is cancelled before admission, Acquire returns ctx.Err() and the
// entry is never appended. Preconditions (non-empty agentID and embedding)
// are the caller's responsibility; a violation panics as a programmer bug
// rather than being reported as a domain error.
func (t *Table) Acquire(ctx context.Context, agentID string, embedding []float32, theta float32) error {
	if agentID == "" || len(embedding) == 0 {
		panic(dsccerr.New(dsccerr.CodeLockTableInvariant, "acquire called with empty agentID or embedding"))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// cond.Wait has no cancellation point of its own, so a cancelled ctx
	// needs a Broadcast kicked in from outside to unstick the waiter. The
	// callback takes t.mu before broadcasting rather than calling
	// t.cond.Broadcast directly: sync.Cond.Wait only releases t.mu after it
	// has registered itself to receive the next Broadcast, so serializing
	// the callback on the same mutex rules out the window where cancellation
	// lands between the loop's ctx.Err check and its call to Wait — either
	// the callback runs before the loop takes the lock (waking nothing, but
	// ctx is already cancelled by then, so the loop's own ctx.Err check
	// catches it), or it blocks on t.mu until Wait has released the lock and
	// is genuinely registered, so the broadcast reaches it.
	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stop()

	t.mu.Lock()
	for t.overlapExistsLocked(embedding, theta) {
		if err := ctx.Err(); err != nil {
			t.mu.Unlock()
			return err
		}
		t.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		t.mu.Unlock()
		return err
	}

	t.entries = append(t.entries, SemanticLock{AgentID: agentID, Centroid: embedding, Threshold: theta})
	ids := t.agentIDsLocked()
	t.mu.Unlock()

	logActiveLocks(ids)
	return nil
}

// Release removes every entry whose AgentID equals agentID. Releasing an
// absent agentID is a no-op. All waiters are woken so they can
// re-evaluate their own predicates against the post-release table.
func (t *Table) Release(agentID string) {
	t.mu.Lock()
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.AgentID != agentID {
			kept = append(kept, e)
		}
	}
	t.entries = kept
	ids := t.agentIDsLocked()
	t.mu.Unlock()

	t.cond.Broadcast()
	logActiveLocks(ids)
}

// Size returns the current entry count. This is an observational, racy
// read — no synchronization is implied with concurrent Acquire/Release.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) overlapExistsLocked(embedding []float32, theta float32) bool {
	for _, e := range t.entries {
		if similarity.Cosine(embedding, e.Centroid) >= theta {
			return true
		}
	}
	return false
}

func (t *Table) agentIDsLocked() []string {
	ids := make([]string, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.AgentID
	}
	return ids
}

func logActiveLocks(agentIDs []string) {
	slog.Info("active locks", "agent_ids", strings.Join(agentIDs, ", "), "count", len(agentIDs))
}
