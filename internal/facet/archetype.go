// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package facet

import "github.com/embermush/embermush/internal/value"

// Archetype carries the fixed classification of an entity: what kind of
// thing it is. Archetype data never changes after world load, so the facet
// is immutable and instances are shared read-through from prototypes.
type Archetype struct {
	Kind string
	Race string
	Tags []string
}

// FacetType implements Facet.
func (*Archetype) FacetType() Type { return TypeArchetype }

// Mutable implements Facet.
func (*Archetype) Mutable() bool { return false }

// Clone implements Facet. Immutable facets are never copied; Clone returns
// the receiver.
func (a *Archetype) Clone() Facet { return a }

func archetypeRegistration() Registration {
	return Registration{
		Type: TypeArchetype,
		New:  func() Facet { return &Archetype{} },
		Accessors: Table{
			"kind": {
				Get: func(f Facet) value.Value { return value.String(f.(*Archetype).Kind) },
				Set: func(f Facet, v value.Value) error { return errImmutableMember("kind") },
			},
			"race": {
				Get: func(f Facet) value.Value { return value.String(f.(*Archetype).Race) },
				Set: func(f Facet, v value.Value) error { return errImmutableMember("race") },
			},
			"tags": {
				Get: func(f Facet) value.Value {
					a := f.(*Archetype)
					elems := make([]value.Value, len(a.Tags))
					for i, tag := range a.Tags {
						elems[i] = value.Symbol(tag)
					}
					return value.List(elems...)
				},
				Set: func(f Facet, v value.Value) error { return errImmutableMember("tags") },
			},
		},
	}
}
