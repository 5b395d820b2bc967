// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/dscc-io/dscc/internal/config"
	"github.com/dscc-io/dscc/internal/vectorstore"
	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check binary health, daemon reachability, vector-store reachability, and disk space.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "127.0.0.1:50051", "dsccd address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")

	cfg, cfgErr := config.Load()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Daemon", func() string { return checkDaemon(addr) }},
		{"Vector Store", func() string { return checkVectorStore(cfg, cfgErr) }},
		{"Disk Space", func() string { return checkDiskSpace(cfg, cfgErr) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-14s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("dsccd %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkDaemon(addr string) string {
	client := newDaemonClient(addr)
	var body struct {
		NodeID string `json:"node_id"`
	}
	if err := client.getJSON("/api/v1/status", &body); err != nil {
		if dsccerr.HasCode(err, dsccerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'dsccd serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("running at %s, node=%s", addr, body.NodeID)
}

func checkVectorStore(cfg *config.Config, cfgErr error) string {
	if cfgErr != nil {
		return "unknown (config failed to load)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client := vectorstore.New(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, vectorstore.NewHealthTracker(0))
	if err := client.Ping(ctx); err != nil {
		return fmt.Sprintf("unreachable at %s:%s: %s", cfg.QdrantHost, cfg.QdrantPort, err)
	}
	return fmt.Sprintf("reachable at %s:%s", cfg.QdrantHost, cfg.QdrantPort)
}

func checkDiskSpace(cfg *config.Config, cfgErr error) string {
	path := "."
	if cfgErr == nil && cfg.DataDir != "" {
		path = cfg.DataDir
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.Getwd()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available at " + path
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
