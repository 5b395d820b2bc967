// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dscc-io/dscc/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dsccd daemon",
		Long:  "Load configuration from the environment, wire the lock table, vector store client, and audit trail, and serve the RPC surface until interrupted.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	daemon, err := WireDaemon(cfg)
	if err != nil {
		return fmt.Errorf("wiring daemon: %w", err)
	}
	defer func() { _ = daemon.Close() }()

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "dsccd node=%s theta=%.2f port=%s\n", cfg.NodeID, cfg.Theta, cfg.Port); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return daemon.Start(ctx)
}
