// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/embermush/embermush/internal/config"
	"github.com/embermush/embermush/internal/seed"
	"github.com/embermush/embermush/internal/store"
	"github.com/embermush/embermush/internal/world"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed [files...]",
		Short: "Load seed files and snapshot the resulting world",
		Long: `Builds an entity graph from the given seed files (or the ones named
in the config) and writes it to the database as the initial snapshot.
Re-running overwrites the snapshot of every seeded entity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string, cfg *seedConfig) error {
	conf, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if conf.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	paths := args
	if len(paths) == 0 {
		paths = conf.Seeds
	}
	if len(paths) == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("no seed files given and none configured")
	}

	index := world.NewIndex()
	for _, path := range paths {
		f, err := seed.Parse(path)
		if err != nil {
			return err
		}
		if err := seed.Apply(f, nil, index); err != nil {
			return err
		}
		cmd.Printf("Loaded %s\n", path)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, conf.Database.URL)
	if err != nil {
		return err
	}
	snapshots := store.NewSnapshotStore(pool, nil)
	defer snapshots.Close()

	cmd.Println("Running migrations...")
	m, err := store.NewMigrator(conf.Database.URL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		_ = m.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	if err := m.Close(); err != nil {
		return err
	}

	if err := snapshots.SaveAll(ctx, index); err != nil {
		return err
	}

	cmd.Printf("World seeding complete: %d entities\n", index.Len())
	return nil
}
