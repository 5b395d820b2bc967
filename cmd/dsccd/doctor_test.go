// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorRunsAllChecks(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"doctor", "--address", "127.0.0.1:1"})

	require.NoError(t, root.Execute())

	output := buf.String()
	assert.Contains(t, output, "Binary:")
	assert.Contains(t, output, "Platform:")
	assert.Contains(t, output, "Daemon:")
	assert.Contains(t, output, "Vector Store:")
	assert.Contains(t, output, "Disk Space:")
}

func TestDoctorDaemonRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"node_id": "node-1"})
	}))
	defer srv.Close()

	old := defaultHTTPClient
	defaultHTTPClient = srv.Client()
	defer func() { defaultHTTPClient = old }()

	addr := srv.URL[len("http://"):]

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"doctor", "--address", addr})

	require.NoError(t, root.Execute())

	output := buf.String()
	assert.Contains(t, output, "Daemon:")
	assert.Contains(t, output, "node=node-1")
}

func TestDoctorDaemonNotRunning(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"doctor", "--address", "127.0.0.1:1"})

	require.NoError(t, root.Execute())

	output := buf.String()
	assert.Contains(t, output, "Daemon:")
	assert.Contains(t, output, "not running")
}

func TestDoctorVectorStoreUnreachable(t *testing.T) {
	t.Setenv("QDRANT_HOST", "127.0.0.1")
	t.Setenv("QDRANT_PORT", "1")

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"doctor", "--address", "127.0.0.1:1"})

	require.NoError(t, root.Execute())

	output := buf.String()
	assert.Contains(t, output, "Vector Store:")
	assert.Contains(t, output, "unreachable")
}

func TestDoctorDiskSpace(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"doctor", "--address", "127.0.0.1:1"})

	require.NoError(t, root.Execute())

	output := buf.String()
	assert.Contains(t, output, "Disk Space:")
	assert.Regexp(t, `\d+(\.\d+)?\s*(GB|MB|bytes)|available`, output)
}
