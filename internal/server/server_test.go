// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscc-io/dscc/internal/audit"
	"github.com/dscc-io/dscc/internal/guard"
	"github.com/dscc-io/dscc/internal/locktable"
	"github.com/dscc-io/dscc/internal/server"
	"github.com/dscc-io/dscc/internal/vectorstore"
)

type fakeCommitter struct{ fail bool }

func (f *fakeCommitter) UpsertPoint(_ context.Context, _ string, _ []float32) error {
	if f.fail {
		return errors.New("store unavailable")
	}
	return nil
}

func newTestServer(t *testing.T, fail bool) *server.Server {
	t.Helper()
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	table := locktable.New()
	coordinator := guard.New(table, &fakeCommitter{fail: fail}, 0.8)
	auditStore := audit.NewDisabled()
	healthTracker := vectorstore.NewHealthTracker(0)

	facade := server.NewFacade("node-1", 0.8, table, coordinator, healthTracker, auditStore)
	srv.RegisterFacade(facade, healthTracker)
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestPingEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/ping", map[string]string{"from_node": "node-2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong to node-2")
}

func TestAcquireAndReleaseGuardEndpoints(t *testing.T) {
	srv := newTestServer(t, false)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/guards/acquire", map[string]any{
		"agent_id":  "agent-1",
		"embedding": []float32{1, 0, 0},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var acquireResp struct {
		Granted bool   `json:"granted"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acquireResp))
	assert.True(t, acquireResp.Granted)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/guards/release", map[string]string{"agent_id": "agent-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var releaseResp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &releaseResp))
	assert.True(t, releaseResp.Success)
}

func TestAcquireGuardReportsDenialOnStoreFailure(t *testing.T) {
	srv := newTestServer(t, true)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/guards/acquire", map[string]any{
		"agent_id":  "agent-1",
		"embedding": []float32{1, 0, 0},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Granted bool   `json:"granted"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Granted)
	assert.Equal(t, "qdrant write failed", resp.Message)
}

func TestStatusEndpointReportsActiveCount(t *testing.T) {
	srv := newTestServer(t, false)

	doJSON(t, srv, http.MethodPost, "/api/v1/guards/acquire", map[string]any{
		"agent_id":  "agent-1",
		"embedding": []float32{1, 0, 0},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		NodeID      string  `json:"node_id"`
		ActiveLocks int     `json:"active_locks"`
		Theta       float32 `json:"theta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "node-1", resp.NodeID)
	assert.Equal(t, 0, resp.ActiveLocks, "the acquire-commit-release transaction always releases before replying")
	assert.InDelta(t, float32(0.8), resp.Theta, 1e-6)
}

func TestVectorStoreHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "available")
}
