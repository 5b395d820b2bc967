// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by daemon
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// daemonClient provides HTTP access to a running dsccd process.
type daemonClient struct {
	baseURL string
	http    *http.Client
}

// newDaemonClient creates a client targeting the given host:port address.
func newDaemonClient(addr string) *daemonClient {
	return &daemonClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// Returns a CodeCLIGatewayNotRunning error on connection refused.
func (c *daemonClient) getJSON(path string, dest interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return dsccerr.Wrap(err, dsccerr.CodeCLIGatewayNotRunning, "connecting to dsccd")
		}
		return dsccerr.Wrap(err, dsccerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return dsccerr.Errorf(dsccerr.CodeCLIRequestFailure, "dsccd returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeCLIResponseInvalid, "decoding response")
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
