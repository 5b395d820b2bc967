// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root dsccd command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dsccd",
		Short:         "dsccd — remote semantic mutual-exclusion service",
		Long:          "dsccd arbitrates exclusive rights over regions of vector space between competing agents, backed by cosine-similarity admission control and a committed vector-store record of every grant.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}
