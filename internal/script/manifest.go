// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package script hosts designer-authored behavior scripts. A script pack is
// a directory holding a pack.yaml manifest plus Lua sources; the host binds
// the pack's functions to event handlers on prototype entities.
package script

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/embermush/embermush/internal/world"
)

// EngineVersion is the object-runtime version packs constrain against.
const EngineVersion = "0.4.0"

// Manifest represents a pack.yaml file.
type Manifest struct {
	Name     string        `yaml:"name" json:"name" jsonschema:"title=Pack name"`
	Version  string        `yaml:"version" json:"version" jsonschema:"title=Pack version (semver)"`
	Engine   string        `yaml:"engine,omitempty" json:"engine,omitempty" jsonschema:"title=Engine version constraint"`
	Entry    string        `yaml:"entry" json:"entry" jsonschema:"title=Lua entry file"`
	Events   []string      `yaml:"events,omitempty" json:"events,omitempty" jsonschema:"title=Event name grants (glob patterns)"`
	Handlers []HandlerDecl `yaml:"handlers" json:"handlers" jsonschema:"title=Handler bindings"`
}

// HandlerDecl binds a Lua function to an event on a prototype entity.
type HandlerDecl struct {
	Phase       string   `yaml:"phase" json:"phase" jsonschema:"enum=allow,enum=before,enum=when,enum=after"`
	Event       string   `yaml:"event" json:"event"`
	On          string   `yaml:"on" json:"on" jsonschema:"title=Receiving entity ref (ULID)"`
	Function    string   `yaml:"function" json:"function" jsonschema:"title=Lua global function name"`
	Constraints []string `yaml:"constraints,omitempty" json:"constraints,omitempty" jsonschema:"title=Per-argument constraint expressions"`
}

// maxNameLength is the maximum allowed length for pack names.
const maxNameLength = 64

// namePattern validates pack names: lowercase, digits, hyphens, must start
// with a letter and not end with a hyphen.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a pack.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	if m.Engine != "" {
		constraint, err := semver.NewConstraint(m.Engine)
		if err != nil {
			return fmt.Errorf("engine constraint %q is invalid: %w", m.Engine, err)
		}
		engine := semver.MustParse(EngineVersion)
		if !constraint.Check(engine) {
			return fmt.Errorf("pack requires engine %q, running %s", m.Engine, EngineVersion)
		}
	}

	if m.Entry == "" {
		return fmt.Errorf("entry is required")
	}

	for _, pattern := range m.Events {
		if _, err := glob.Compile(pattern, ' '); err != nil {
			return fmt.Errorf("event grant %q is not a valid pattern: %w", pattern, err)
		}
	}

	if len(m.Handlers) == 0 {
		return fmt.Errorf("at least one handler binding is required")
	}
	for i, h := range m.Handlers {
		if _, err := parsePhase(h.Phase); err != nil {
			return fmt.Errorf("handler %d: %w", i, err)
		}
		if h.Event == "" {
			return fmt.Errorf("handler %d: event is required", i)
		}
		if h.On == "" {
			return fmt.Errorf("handler %d: on is required", i)
		}
		if h.Function == "" {
			return fmt.Errorf("handler %d: function is required", i)
		}
	}

	return nil
}

// Grants compiles the manifest's event grants. A pack with no grants may
// register handlers for any event.
func (m *Manifest) Grants() ([]glob.Glob, error) {
	grants := make([]glob.Glob, 0, len(m.Events))
	for _, pattern := range m.Events {
		g, err := glob.Compile(pattern, ' ')
		if err != nil {
			return nil, fmt.Errorf("event grant %q: %w", pattern, err)
		}
		grants = append(grants, g)
	}
	return grants, nil
}

// Granted reports whether the event name is covered by the grants. An empty
// grant list grants everything.
func Granted(grants []glob.Glob, event string) bool {
	if len(grants) == 0 {
		return true
	}
	for _, g := range grants {
		if g.Match(event) {
			return true
		}
	}
	return false
}

func parsePhase(s string) (world.Phase, error) {
	switch s {
	case "allow":
		return world.PhaseAllow, nil
	case "before":
		return world.PhaseBefore, nil
	case "when":
		return world.PhaseWhen, nil
	case "after":
		return world.PhaseAfter, nil
	default:
		return 0, fmt.Errorf("phase must be allow, before, when, or after, got %q", s)
	}
}
