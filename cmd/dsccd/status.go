// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dsccd status",
		Long:  "Check a running dsccd's status endpoint and display node identity, active lock count, and theta.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:50051", "dsccd address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	client := newDaemonClient(addr)
	var body struct {
		NodeID      string  `json:"node_id"`
		ActiveLocks int     `json:"active_locks"`
		Theta       float32 `json:"theta"`
	}
	if err := client.getJSON("/api/v1/status", &body); err != nil {
		if dsccerr.HasCode(err, dsccerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "dsccd at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "dsccd at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "dsccd at %s: node=%s active_locks=%d theta=%.2f\n", addr, body.NodeID, body.ActiveLocks, body.Theta)
	return nil
}
