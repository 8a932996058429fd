// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package facet defines the capability bundles attached to entities and the
// accessor tables that expose their fields by member name. Facet types and
// their accessors are registered once at startup; the registry is read-only
// afterwards, which is what makes dynamic member dispatch safe without
// runtime reflection.
package facet

import "github.com/embermush/embermush/internal/value"

// Type identifies a facet type. At most one facet of a given type may be
// attached to an entity.
type Type string

// Built-in facet types.
const (
	TypeViewable  Type = "viewable"
	TypeContainer Type = "container"
	TypePortal    Type = "portal"
	TypeArchetype Type = "archetype"
)

// Facet is a capability bundle. Implementations are plain structs; their
// fields are reached through the accessor table registered for the type.
type Facet interface {
	// FacetType returns the type tag this facet is registered under.
	FacetType() Type

	// Mutable reports whether instances of this facet type may change after
	// creation. Immutable facets are shared read-through from prototypes and
	// never cloned.
	Mutable() bool

	// Clone returns a deep copy. Clone on an immutable facet returns the
	// receiver.
	Clone() Facet
}

// Accessor is a bidirectional binding between a member name and a field of
// one facet type. Get never fails for a correctly typed facet; Set returns a
// ConversionError and leaves the facet unchanged when the supplied value
// cannot convert to the field's type.
type Accessor struct {
	Get func(Facet) value.Value
	Set func(Facet, value.Value) error
}

// Table maps member names to accessors for one facet type.
type Table map[string]Accessor
