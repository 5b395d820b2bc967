// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

// Package vectorstore is a stateless HTTP/JSON client to an external,
// Qdrant-compatible vector store: it ensures a collection exists and
// upserts one point per committed guard.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// defaultTimeout bounds every request. The reference implementation has no
// explicit timeout; a hung TCP peer would otherwise leak the goroutine and
// the held lock for the lifetime of the process, so a generous ceiling is
// added and any timeout is treated the same as any other store failure.
const defaultTimeout = 10 * time.Second

// Client talks to a single collection on a single vector-store host.
type Client struct {
	host       string
	port       string
	collection string
	http       *http.Client
	health     *HealthTracker
}

// New constructs a Client. Each request opens a fresh connection
// (DisableKeepAlives) so the client never holds a pooled socket open
// against a store that may be restarted or rebalanced behind it.
func New(host, port, collection string, health *HealthTracker) *Client {
	return &Client{
		host:       host,
		port:       port,
		collection: collection,
		health:     health,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
	}
}

func (c *Client) baseURL() string {
	return fmt.Sprintf("http://%s:%s", c.host, c.port)
}

// Ping checks store reachability without mutating any collection state, so
// it's safe to call from diagnostics.
func (c *Client) Ping(ctx context.Context) error {
	url := c.baseURL() + "/collections/" + c.collection
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeVectorStoreFailure, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.health.RecordFailure()
		if isDNSError(err) {
			return dsccerr.Wrap(err, dsccerr.CodeVectorStoreDNSFailure, "resolve vector store host",
				dsccerr.FieldHost(c.host))
		}
		return dsccerr.Wrap(err, dsccerr.CodeVectorStoreFailure, "request vector store", dsccerr.FieldHost(c.host))
	}
	defer func() { _ = resp.Body.Close() }()

	// 404 just means the collection hasn't been created yet; the store
	// itself answered, so that still counts as reachable.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		c.health.RecordFailure()
		return dsccerr.New(dsccerr.CodeVectorStoreFailure,
			fmt.Sprintf("ping: unexpected status %d", resp.StatusCode), dsccerr.FieldHost(c.host))
	}
	c.health.RecordSuccess()
	return nil
}

// EnsureCollection creates the collection if absent, sized for vectorSize
// dimensions with cosine distance. A pre-existing collection (409) is not
// an error.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL(), c.collection)
	status, _, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusConflict {
		c.health.RecordFailure()
		return dsccerr.New(dsccerr.CodeVectorStoreFailure,
			fmt.Sprintf("ensure collection: unexpected status %d", status),
			dsccerr.FieldHost(c.host))
	}
	c.health.RecordSuccess()
	return nil
}

// UpsertPoint ensures the collection exists for embedding's dimensionality,
// then upserts one point keyed by agentID.
func (c *Client) UpsertPoint(ctx context.Context, agentID string, embedding []float32) error {
	if err := c.EnsureCollection(ctx, len(embedding)); err != nil {
		return err
	}

	vector := make([]json.Number, len(embedding))
	for i, f := range embedding {
		vector[i] = json.Number(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}

	body := map[string]any{
		"points": []map[string]any{
			{"id": agentID, "vector": vector},
		},
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL(), c.collection)
	status, _, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		c.health.RecordFailure()
		return dsccerr.New(dsccerr.CodeVectorStoreFailure,
			fmt.Sprintf("upsert point: unexpected status %d", status),
			dsccerr.FieldAgentID(agentID))
	}
	c.health.RecordSuccess()
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, dsccerr.Wrap(err, dsccerr.CodeVectorStoreFailure, "encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, dsccerr.Wrap(err, dsccerr.CodeVectorStoreFailure, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.health.RecordFailure()
		if isDNSError(err) {
			return 0, nil, dsccerr.Wrap(err, dsccerr.CodeVectorStoreDNSFailure, "resolve vector store host",
				dsccerr.FieldHost(c.host))
		}
		return 0, nil, dsccerr.Wrap(err, dsccerr.CodeVectorStoreFailure, "request vector store",
			dsccerr.FieldHost(c.host))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.health.RecordFailure()
		return 0, nil, dsccerr.Wrap(err, dsccerr.CodeVectorStoreFailure, "read response body")
	}
	return resp.StatusCode, respBody, nil
}

// isDNSError reports whether err's root cause is a DNS resolution failure,
// as opposed to a refused or timed-out connection to a resolved address.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
