// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/embermush/embermush/internal/config"
	"github.com/embermush/embermush/internal/logging"
	"github.com/embermush/embermush/internal/observability"
	"github.com/embermush/embermush/internal/script"
	"github.com/embermush/embermush/internal/seed"
	"github.com/embermush/embermush/internal/store"
	"github.com/embermush/embermush/internal/world"
	"github.com/embermush/embermush/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the world shard",
		Long: `Run the world shard: apply pending migrations, restore the entity
snapshot, load behavior script packs, and dispatch events until stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	cmd.Flags().String("shard", "", "shard name")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection string")
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("scripts.dir", "", "behavior script pack directory")
	cmd.Flags().String("world.root", "", "entity ref that receives lifecycle events")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("embermush", version, cfg.Log.Format, cfg.Log.Level)

	slog.Info("starting world shard", "shard", cfg.Shard)

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	migrator, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	if err := migrator.Close(); err != nil {
		return err
	}
	slog.Info("migrations applied")

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	snapshots := store.NewSnapshotStore(pool, nil)
	defer snapshots.Close()

	index := world.NewIndex()
	if err := snapshots.LoadAll(ctx, index); err != nil {
		return err
	}
	slog.Info("snapshot restored", "entities", index.Len())

	// An empty snapshot on first boot is seeded from the configured files.
	if index.Len() == 0 && len(cfg.Seeds) > 0 {
		for _, path := range cfg.Seeds {
			f, err := seed.Parse(path)
			if err != nil {
				return err
			}
			if err := seed.Apply(f, nil, index); err != nil {
				return err
			}
			slog.Info("seed applied", "path", path)
		}
		if err := snapshots.SaveAll(ctx, index); err != nil {
			return err
		}
	}

	host := script.NewHost()
	defer host.Close()
	if dir := resolveScriptsDir(cfg.Scripts.Dir); dir != "" {
		n, err := host.LoadDir(ctx, dir, index.Lookup)
		if err != nil {
			return err
		}
		slog.Info("script packs loaded", "packs", n, "dir", dir)
	}

	dispatcher := world.NewDispatcher(index.Lookup,
		world.WithPolicy(world.Policy{IncludeLocation: cfg.Dispatch.IncludeLocation}),
	)

	var root *world.Entity
	if cfg.World.Root != "" {
		rootRef, err := ulid.Parse(cfg.World.Root)
		if err != nil {
			return oops.Code("CONFIG_INVALID").With("world.root", cfg.World.Root).Wrap(err)
		}
		e, ok := index.Lookup(rootRef)
		if !ok {
			return oops.Code("CONFIG_INVALID").With("world.root", cfg.World.Root).Errorf("world root entity not found")
		}
		root = e
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

		obsServer.Metrics().EntitiesLoaded.Set(float64(index.Len()))
		obsServer.Metrics().ScriptPacks.Set(float64(host.Packs()))
	}

	if root != nil {
		dispatcher.Trigger(ctx, "startup", root, nil, nil, nil)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("World shard started")
	slog.Info("world shard ready", "shard", cfg.Shard, "entities", index.Len(), "packs", host.Packs())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if root != nil {
		dispatcher.Trigger(shutdownCtx, "shutdown", root, nil, nil, nil)
	}

	if err := snapshots.SaveAll(shutdownCtx, index); err != nil {
		errutil.LogError(slog.Default(), "failed to save final snapshot", err)
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the context when a server reports a fatal
// error, so a dead endpoint takes the shard down instead of lingering.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
