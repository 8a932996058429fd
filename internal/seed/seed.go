// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package seed loads world seed files: YAML declarations of prototypes and
// entities that are validated against a generated JSON Schema and applied
// through the public world API. Seeds own immutable facet data; mutable
// state they declare is just the initial snapshot.
package seed

import (
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/embermush/embermush/internal/facet"
	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

// File is the top-level shape of a seed file.
type File struct {
	Entities []EntityDecl `yaml:"entities" json:"entities"`
}

// EntityDecl declares one entity. Prototypes are ordinary entities that
// other declarations reference; declaration order does not matter.
type EntityDecl struct {
	Ref       string         `yaml:"ref" json:"ref" jsonschema:"title=Entity ref (ULID)"`
	Prototype string         `yaml:"prototype,omitempty" json:"prototype,omitempty" jsonschema:"title=Prototype ref (ULID)"`
	Archetype *ArchetypeDecl `yaml:"archetype,omitempty" json:"archetype,omitempty"`
	Members   map[string]any `yaml:"members,omitempty" json:"members,omitempty" jsonschema:"title=Initial member values"`
}

// ArchetypeDecl carries the immutable classification facet. Seeds are the
// only writer of immutable facet data.
type ArchetypeDecl struct {
	Kind string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Race string   `yaml:"race,omitempty" json:"race,omitempty"`
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Parse reads and validates a seed file.
func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // seed paths come from operator config
	if err != nil {
		return nil, oops.In("seed").With("path", path).Hint("failed to read seed file").Wrap(err)
	}

	if err := ValidateSchema(data); err != nil {
		return nil, oops.In("seed").With("path", path).Wrap(err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.In("seed").With("path", path).Hint("invalid YAML").Wrap(err)
	}
	if len(f.Entities) == 0 {
		return nil, oops.In("seed").With("path", path).New("seed file declares no entities")
	}
	return &f, nil
}

// Apply constructs the declared entities into the index: entities first,
// prototype links second (so forward references work), member values last.
// A prototype cycle or an unresolvable reference aborts the load; seeds are
// configuration and configuration errors are fatal.
func Apply(f *File, reg *facet.Registry, index *world.Index) error {
	if reg == nil {
		reg = facet.SharedRegistry()
	}

	refs := make([]ulid.ULID, len(f.Entities))
	for i, decl := range f.Entities {
		ref, err := ulid.Parse(decl.Ref)
		if err != nil {
			return oops.In("seed").With("ref", decl.Ref).Hint("invalid entity ref").Wrap(err)
		}
		refs[i] = ref

		e, err := world.NewEntity(reg, ref, nil)
		if err != nil {
			return oops.In("seed").With("ref", decl.Ref).Wrap(err)
		}
		if decl.Archetype != nil {
			if err := e.AttachFacet(&facet.Archetype{
				Kind: decl.Archetype.Kind,
				Race: decl.Archetype.Race,
				Tags: decl.Archetype.Tags,
			}); err != nil {
				return oops.In("seed").With("ref", decl.Ref).Wrap(err)
			}
		}
		if err := index.Add(e); err != nil {
			return oops.In("seed").With("ref", decl.Ref).Wrap(err)
		}
	}

	for i, decl := range f.Entities {
		if decl.Prototype == "" {
			continue
		}
		protoRef, err := ulid.Parse(decl.Prototype)
		if err != nil {
			return oops.In("seed").With("ref", decl.Ref).Hint("invalid prototype ref").Wrap(err)
		}
		proto, ok := index.Lookup(protoRef)
		if !ok {
			return oops.In("seed").With("ref", decl.Ref).With("prototype", decl.Prototype).New("prototype not declared")
		}
		e, _ := index.Lookup(refs[i])
		if err := e.SetPrototype(proto); err != nil {
			return oops.In("seed").With("ref", decl.Ref).Wrap(err)
		}
	}

	for i, decl := range f.Entities {
		e, _ := index.Lookup(refs[i])
		for member, raw := range decl.Members {
			v, err := DecodeValue(raw)
			if err != nil {
				return oops.In("seed").With("ref", decl.Ref).With("member", member).Wrap(err)
			}
			if err := e.Set(member, v); err != nil {
				return oops.In("seed").With("ref", decl.Ref).With("member", member).Wrap(err)
			}
		}
	}

	return nil
}

// DecodeValue maps YAML scalars to runtime values. Strings starting with
// "#" decode as entity refs, strings starting with ":" as symbols.
func DecodeValue(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Nil(), nil
	case bool:
		return value.Bool(v), nil
	case int:
		return value.Int(int64(v)), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return value.Float(v), nil
	case string:
		if rest, ok := strings.CutPrefix(v, "#"); ok {
			ref, err := ulid.Parse(rest)
			if err != nil {
				return value.Nil(), fmt.Errorf("invalid ref %q: %w", v, err)
			}
			return value.Ref(ref), nil
		}
		if rest, ok := strings.CutPrefix(v, ":"); ok {
			return value.Symbol(rest), nil
		}
		return value.String(v), nil
	case []any:
		elems := make([]value.Value, len(v))
		for i, item := range v {
			e, err := DecodeValue(item)
			if err != nil {
				return value.Nil(), fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = e
		}
		return value.List(elems...), nil
	default:
		return value.Nil(), fmt.Errorf("unsupported seed value type %T", raw)
	}
}
