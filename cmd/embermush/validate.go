// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/embermush/embermush/internal/config"
	"github.com/embermush/embermush/internal/script"
	"github.com/embermush/embermush/internal/script/dsl"
	"github.com/embermush/embermush/internal/seed"
	"github.com/embermush/embermush/internal/world"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate seed files and script pack manifests without a database",
		Long: `Validates the configured seed files and script pack manifests:
JSON Schema conformance, prototype graph acyclicity, manifest semantics,
and constraint DSL syntax. Does NOT require a database connection.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch content errors early:
  embermush validate --config shard.yaml`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runValidate()
		},
	}
}

func runValidate() error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var failures []string

	// Seed files: schema, parse, and a dry-run apply that exercises
	// prototype linking and member conversion.
	index := world.NewIndex()
	for _, path := range cfg.Seeds {
		f, err := seed.Parse(path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("  %s: %v", path, err))
			continue
		}
		if err := seed.Apply(f, nil, index); err != nil {
			failures = append(failures, fmt.Sprintf("  %s: %v", path, err))
		}
	}

	// Pack manifests: schema, semantic checks, and constraint DSL syntax.
	// Binding targets need live entities, so they are not resolved here.
	packs := 0
	if dir := resolveScriptsDir(cfg.Scripts.Dir); dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			failures = append(failures, fmt.Sprintf("  %s: %v", dir, err))
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			packs++
			manifestPath := filepath.Join(dir, entry.Name(), "pack.yaml")
			if err := validateManifest(manifestPath); err != nil {
				failures = append(failures, fmt.Sprintf("  %s: %v", manifestPath, err))
			}
		}
	}

	if len(failures) > 0 {
		for _, f := range failures {
			slog.Error("validation failed", "detail", f)
		}
		return fmt.Errorf("validation failed: %d problem(s)", len(failures))
	}

	slog.Info("all content valid", "seeds", len(cfg.Seeds), "entities", index.Len(), "packs", packs)
	return nil
}

func validateManifest(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-configured content path
	if err != nil {
		return err
	}
	if err := script.ValidateSchema(data); err != nil {
		return err
	}
	m, err := script.ParseManifest(data)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	for _, h := range m.Handlers {
		if _, err := dsl.CompileAll(h.Constraints); err != nil {
			return fmt.Errorf("handler %q: %w", h.Function, err)
		}
	}
	return nil
}
