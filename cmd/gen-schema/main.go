// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Command gen-schema generates the JSON Schema files for script pack
// manifests and world seed files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/embermush/embermush/internal/script"
	"github.com/embermush/embermush/internal/seed"
	"github.com/embermush/embermush/internal/xdg"
)

func main() {
	outputs := []struct {
		name     string
		generate func() ([]byte, error)
	}{
		{"pack.schema.json", script.GenerateSchema},
		{"seed.schema.json", seed.GenerateSchema},
	}

	for _, out := range outputs {
		data, err := out.generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}

		outPath := filepath.Join("schemas", out.name)
		if err := xdg.EnsureDir(filepath.Dir(outPath)); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
			os.Exit(1)
		}

		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outPath)
	}
}
