// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package config loads shard configuration from YAML files and command-line
// flags, flags taking precedence.
package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the configuration of one world shard process.
type Config struct {
	Shard    string         `koanf:"shard"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Scripts  ScriptsConfig  `koanf:"scripts"`
	Seeds    []string       `koanf:"seeds"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	World    WorldConfig    `koanf:"world"`
}

// WorldConfig holds world bootstrap settings.
type WorldConfig struct {
	// Root is the ref of the entity that receives shard lifecycle events
	// (startup, shutdown). Empty disables lifecycle dispatch.
	Root string `koanf:"root"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig holds snapshot store settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// MetricsConfig holds observability endpoint settings.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// ScriptsConfig holds behavior script pack settings.
type ScriptsConfig struct {
	// Dir is the pack directory. Empty selects the XDG data convention.
	Dir string `koanf:"dir"`
}

// DispatchConfig holds event dispatch policy settings.
type DispatchConfig struct {
	// IncludeLocation controls whether the triggering location is part of
	// the observer set. Defaults to true (the later-revision behavior).
	IncludeLocation bool `koanf:"include_location"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Shard: "prime",
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
		Scripts: ScriptsConfig{
			Dir: "",
		},
		Dispatch: DispatchConfig{
			IncludeLocation: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// an optional flag set, in that precedence order.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.In("config").With("path", path).Hint("failed to read config file").Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.In("config").Hint("failed to merge flags").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.In("config").Hint("failed to unmarshal config").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Shard == "" {
		return fmt.Errorf("shard name is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}
