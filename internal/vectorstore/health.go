// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package vectorstore

import (
	"sync"
	"time"

	"github.com/dscc-io/dscc/pkg/health"
)

// DefaultHealthCooldown is the duration after which an unreachable vector
// store becomes eligible for the tracker to report available again.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker records vector-store reachability across requests. It is
// purely observational: nothing in the acquire path consults it before
// attempting a commit, and a failure here never gates admission.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
	nowFunc      func() time.Time
}

// NewHealthTracker creates a tracker that starts healthy, using cooldown as
// the recovery window after the most recent failure. cooldown <= 0 falls
// back to DefaultHealthCooldown.
func NewHealthTracker(cooldown time.Duration) *HealthTracker {
	if cooldown <= 0 {
		cooldown = DefaultHealthCooldown
	}
	return &HealthTracker{
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}
}

func (h *HealthTracker) isAvailableLocked() bool {
	if h.healthy {
		return true
	}
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

// RecordSuccess marks the store healthy.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.mu.Unlock()
}

// RecordFailure marks the store unhealthy and bumps the cumulative count.
func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.nowFunc()
	h.failureCount++
	h.mu.Unlock()
}

// SetNowFunc overrides the tracker's time source. Test-only.
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// Metrics returns a point-in-time, serializable snapshot.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{FailureCount: h.failureCount, Available: h.isAvailableLocked()}
	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}
	if !h.healthy {
		cooldownEnd := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &cooldownEnd
	}
	return m
}
