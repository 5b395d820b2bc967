// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dscc-io/dscc/internal/audit"
	"github.com/dscc-io/dscc/internal/config"
	"github.com/dscc-io/dscc/internal/guard"
	"github.com/dscc-io/dscc/internal/locktable"
	"github.com/dscc-io/dscc/internal/server"
	"github.com/dscc-io/dscc/internal/vectorstore"
	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// Daemon holds every wired subsystem of a running dsccd process and manages
// their lifecycle as a unit.
type Daemon struct {
	Server        *server.Server
	Table         *locktable.Table
	Store         *vectorstore.Client
	HealthTracker *vectorstore.HealthTracker
	Coordinator   *guard.Coordinator
	Audit         *audit.Store

	listenAddr string
}

// WireDaemon creates all subsystems from cfg and wires them together into a
// Daemon, but does not start the HTTP server — call Start for that.
func WireDaemon(cfg *config.Config) (*Daemon, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeCLISetupFailure, "creating data directory")
	}

	table := locktable.New()
	healthTracker := vectorstore.NewHealthTracker(0)
	store := vectorstore.New(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, healthTracker)
	coordinator := guard.New(table, store, cfg.Theta)

	auditStore, err := wireAudit(cfg)
	if err != nil {
		return nil, err
	}

	listenAddr := "0.0.0.0:" + cfg.Port
	srv, err := server.New(server.Config{ListenAddr: listenAddr})
	if err != nil {
		_ = auditStore.Close()
		return nil, dsccerr.Wrap(err, dsccerr.CodeCLISetupFailure, "creating server")
	}

	facade := server.NewFacade(cfg.NodeID, cfg.Theta, table, coordinator, healthTracker, auditStore)
	srv.RegisterFacade(facade, healthTracker)

	return &Daemon{
		Server:        srv,
		Table:         table,
		Store:         store,
		HealthTracker: healthTracker,
		Coordinator:   coordinator,
		Audit:         auditStore,
		listenAddr:    listenAddr,
	}, nil
}

// wireAudit opens the on-disk audit trail when enabled, or returns a
// disabled store that drops writes silently. sqlite-vec load failures are
// non-fatal: the store falls back to insertion-order recency queries.
func wireAudit(cfg *config.Config) (*audit.Store, error) {
	if !cfg.AuditEnabled {
		return audit.NewDisabled(), nil
	}

	dbPath := cfg.DataDir + "/audit.db"
	store, err := audit.Open(dbPath, audit.LoadVecExtension)
	if err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeCLISetupFailure, "opening audit store")
	}
	return store, nil
}

// Start runs the HTTP server and blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("dsccd listening", "addr", d.listenAddr)
	return d.Server.Start(ctx)
}

// Close releases every resource the daemon holds.
func (d *Daemon) Close() error {
	return d.Audit.Close()
}
