// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dscc-io/dscc/internal/locktable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommitter struct {
	mu       sync.Mutex
	err      error
	upserted []string
}

func (f *fakeCommitter) UpsertPoint(_ context.Context, agentID string, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, agentID)
	return nil
}

func TestAcquireGuardGrantsAndReleasesOnSuccess(t *testing.T) {
	tbl := locktable.New()
	store := &fakeCommitter{}
	c := New(tbl, store, 0.8)

	granted, message := c.AcquireGuard(context.Background(), "agent-1", []float32{1, 0, 0})

	assert.True(t, granted)
	assert.Equal(t, "granted and committed", message)
	assert.Equal(t, 0, tbl.Size(), "lock must be released once the transaction completes")
	assert.Equal(t, []string{"agent-1"}, store.upserted)
}

func TestAcquireGuardDeniesAndReleasesOnStoreFailure(t *testing.T) {
	tbl := locktable.New()
	store := &fakeCommitter{err: errors.New("connection refused")}
	c := New(tbl, store, 0.8)

	granted, message := c.AcquireGuard(context.Background(), "agent-1", []float32{1, 0, 0})

	assert.False(t, granted)
	assert.Equal(t, "qdrant write failed", message)
	assert.Equal(t, 0, tbl.Size(), "a failed commit must not leave a dangling lock entry")
}

func TestAcquireGuardRejectsEmptyInputsWithoutTouchingTable(t *testing.T) {
	tbl := locktable.New()
	store := &fakeCommitter{}
	c := New(tbl, store, 0.8)

	granted, _ := c.AcquireGuard(context.Background(), "", []float32{1, 0})
	assert.False(t, granted)

	granted, _ = c.AcquireGuard(context.Background(), "agent-1", nil)
	assert.False(t, granted)

	assert.Equal(t, 0, tbl.Size())
	assert.Empty(t, store.upserted)
}

func TestAcquireGuardReleasesOnContextCancellationDuringAcquire(t *testing.T) {
	tbl := locktable.New()
	store := &fakeCommitter{}
	c := New(tbl, store, 0.8)

	require.NoError(t, tbl.Acquire(context.Background(), "holder", []float32{1, 0, 0}, 0.8))

	cctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	granted, message := c.AcquireGuard(cctx, "agent-2", []float32{1, 0, 0})
	assert.False(t, granted)
	assert.Contains(t, message, "acquire cancelled")

	tbl.Release("holder")
	assert.Equal(t, 0, tbl.Size())
}

func TestReleaseGuardReportsSuccessEvenForUnknownAgent(t *testing.T) {
	tbl := locktable.New()
	c := New(tbl, &fakeCommitter{}, 0.8)

	assert.True(t, c.ReleaseGuard("nobody"))
}

func TestReleaseGuardRejectsEmptyAgentID(t *testing.T) {
	tbl := locktable.New()
	c := New(tbl, &fakeCommitter{}, 0.8)

	assert.False(t, c.ReleaseGuard(""))
}

func TestReleaseGuardRemovesHeldLock(t *testing.T) {
	tbl := locktable.New()
	c := New(tbl, &fakeCommitter{}, 0.8)
	require.NoError(t, tbl.Acquire(context.Background(), "agent-1", []float32{1, 0}, 0.8))

	assert.True(t, c.ReleaseGuard("agent-1"))
	assert.Equal(t, 0, tbl.Size())
}
