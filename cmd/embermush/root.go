// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/embermush/embermush/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the EmberMUSH CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embermush",
		Short: "EmberMUSH - a scripted multi-user world shard",
		Long: `EmberMUSH runs a scripted multi-user world shard: a prototype-based
entity runtime with Lua behavior packs, four-phase event dispatch, and
PostgreSQL snapshots.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Without --config, fall back to the XDG config location when present.
	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		if configFile == "" {
			candidate := filepath.Join(xdg.ConfigDir(), "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
			}
		}
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewValidateCmd())

	return cmd
}

// resolveScriptsDir picks the script pack directory: the configured one when
// set, else the conventional XDG data location when it exists. Empty means
// no packs.
func resolveScriptsDir(configured string) string {
	if configured != "" {
		return configured
	}
	candidate := filepath.Join(xdg.DataDir(), "packs")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return ""
}
