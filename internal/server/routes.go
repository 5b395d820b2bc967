// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dscc-io/dscc/pkg/health"
)

// RegisterFacade binds facade to the RPC surface and registers every
// domain and status route on the server's huma API.
func (s *Server) RegisterFacade(f *Facade, healthTracker healthSnapshotter) {
	s.facade = f
	s.registerRoutes(healthTracker)
}

// healthSnapshotter is the subset of vectorstore.HealthTracker the
// /api/v1/health route needs; defined narrowly here so routes.go doesn't
// import vectorstore just to describe the shape it depends on.
type healthSnapshotter interface {
	Metrics() health.Metrics
}

func (s *Server) registerRoutes(healthTracker healthSnapshotter) {
	huma.Register(s.api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodPost,
		Path:        "/api/v1/ping",
		Summary:     "Ping the node",
		Tags:        []string{"system"},
	}, s.handlePing)

	huma.Register(s.api, huma.Operation{
		OperationID: "acquire-guard",
		Method:      http.MethodPost,
		Path:        "/api/v1/guards/acquire",
		Summary:     "Acquire a semantic guard over a region of vector space",
		Tags:        []string{"guards"},
	}, s.handleAcquireGuard)

	huma.Register(s.api, huma.Operation{
		OperationID: "release-guard",
		Method:      http.MethodPost,
		Path:        "/api/v1/guards/release",
		Summary:     "Release a held semantic guard",
		Tags:        []string{"guards"},
	}, s.handleReleaseGuard)

	huma.Register(s.api, huma.Operation{
		OperationID: "inspect-recent",
		Method:      http.MethodGet,
		Path:        "/api/v1/audit/recent",
		Summary:     "Inspect recently recorded admission decisions",
		Tags:        []string{"audit"},
	}, s.handleInspectRecent)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Report node identity, active lock count, and theta",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "vector-store-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Report vector-store reachability",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*vectorStoreHealthOutput, error) {
		return &vectorStoreHealthOutput{Body: healthTracker.Metrics()}, nil
	})
}

// --- ping ---

type pingInput struct {
	Body struct {
		FromNode string `json:"from_node"`
	}
}
type pingOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (s *Server) handlePing(_ context.Context, in *pingInput) (*pingOutput, error) {
	out := &pingOutput{}
	out.Body.Message = s.facade.Ping(in.Body.FromNode)
	return out, nil
}

// --- acquire guard ---

type acquireGuardInput struct {
	Body struct {
		AgentID   string    `json:"agent_id"`
		Embedding []float32 `json:"embedding"`
	}
}
type acquireGuardOutput struct {
	Body struct {
		Granted bool   `json:"granted"`
		Message string `json:"message"`
	}
}

func (s *Server) handleAcquireGuard(ctx context.Context, in *acquireGuardInput) (*acquireGuardOutput, error) {
	granted, message := s.facade.AcquireGuard(ctx, in.Body.AgentID, in.Body.Embedding)
	out := &acquireGuardOutput{}
	out.Body.Granted = granted
	out.Body.Message = message
	return out, nil
}

// --- release guard ---

type releaseGuardInput struct {
	Body struct {
		AgentID string `json:"agent_id"`
	}
}
type releaseGuardOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

func (s *Server) handleReleaseGuard(ctx context.Context, in *releaseGuardInput) (*releaseGuardOutput, error) {
	out := &releaseGuardOutput{}
	out.Body.Success = s.facade.ReleaseGuard(ctx, in.Body.AgentID)
	return out, nil
}

// --- inspect recent (ambient debug operation) ---

type inspectRecentInput struct {
	AgentID string    `query:"agent_id"`
	Near    []float32 `query:"near"`
	Limit   int       `query:"limit"`
}
type inspectRecentOutput struct {
	Body struct {
		Entries []auditEntryView `json:"entries"`
	}
}

type auditEntryView struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Decision    string    `json:"decision"`
	Message     string    `json:"message"`
	ActiveCount int       `json:"active_count"`
	RecordedAt  string    `json:"recorded_at"`
	Centroid    []float32 `json:"centroid,omitempty"`
}

func (s *Server) handleInspectRecent(ctx context.Context, in *inspectRecentInput) (*inspectRecentOutput, error) {
	entries, err := s.facade.InspectRecent(ctx, in.AgentID, in.Near, in.Limit)
	if err != nil {
		return nil, huma.Error502BadGateway("querying audit trail", err)
	}

	out := &inspectRecentOutput{}
	out.Body.Entries = make([]auditEntryView, len(entries))
	for i, e := range entries {
		out.Body.Entries[i] = auditEntryView{
			ID:          e.ID,
			AgentID:     e.AgentID,
			Decision:    string(e.Decision),
			Message:     e.Message,
			ActiveCount: e.ActiveCount,
			RecordedAt:  e.RecordedAt.Format(time.RFC3339),
			Centroid:    e.Centroid,
		}
	}
	return out, nil
}

// --- status ---

type statusOutput struct {
	Body struct {
		NodeID      string  `json:"node_id"`
		ActiveLocks int     `json:"active_locks"`
		Theta       float32 `json:"theta"`
	}
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	nodeID, activeLocks, theta := s.facade.Status()
	out := &statusOutput{}
	out.Body.NodeID = nodeID
	out.Body.ActiveLocks = activeLocks
	out.Body.Theta = theta
	return out, nil
}

// --- vector store health ---

type vectorStoreHealthOutput struct {
	Body health.Metrics
}
