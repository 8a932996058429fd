// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package world implements the entity/facet/prototype object model and the
// event dispatch engine. Entities are addressable world objects composed of
// facets; behavior attaches as event handlers resolved along the prototype
// chain. All mutation and dispatch for one world shard is confined to a
// single goroutine; the types here do no locking of their own.
package world

import (
	"fmt"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/embermush/embermush/internal/facet"
	"github.com/embermush/embermush/internal/value"
)

// entityIDCounter backs runtime identity. IDs are process-unique and never
// reused.
var entityIDCounter atomic.Uint64

// Entity is an addressable world object: runtime identity, persistent
// reference, optional prototype, locally attached facets, and event
// handlers. Entities compare by identity only; two entities with identical
// facet contents are distinct.
type Entity struct {
	id        uint64
	ref       ulid.ULID
	prototype *Entity
	facets    []facet.Facet
	handlers  []*Handler
	registry  *facet.Registry
}

// NewEntity creates an entity with the given persistent reference and
// optional prototype. The prototype is shared, never owned; a nil registry
// selects the shared default. Returns ErrPrototypeCycle if the supplied
// prototype's chain is cyclic.
func NewEntity(reg *facet.Registry, ref ulid.ULID, prototype *Entity) (*Entity, error) {
	if reg == nil {
		reg = facet.SharedRegistry()
	}
	if prototype != nil {
		if err := checkChain(prototype); err != nil {
			return nil, err
		}
	}
	return &Entity{
		id:        entityIDCounter.Add(1),
		ref:       ref,
		prototype: prototype,
		registry:  reg,
	}, nil
}

// checkChain walks a prototype chain with a visited set, failing fast on a
// revisit.
func checkChain(start *Entity) error {
	visited := make(map[uint64]struct{})
	for e := start; e != nil; e = e.prototype {
		if _, seen := visited[e.id]; seen {
			return fmt.Errorf("%w: entity %s revisited", ErrPrototypeCycle, e.ref)
		}
		visited[e.id] = struct{}{}
	}
	return nil
}

// ID returns the runtime identity.
func (e *Entity) ID() uint64 { return e.id }

// Ref returns the persistent entity reference.
func (e *Entity) Ref() ulid.ULID { return e.ref }

// Prototype returns the prototype, or nil.
func (e *Entity) Prototype() *Entity { return e.prototype }

// SetPrototype replaces the prototype reference. Returns ErrPrototypeCycle
// if the resulting chain would revisit this entity.
func (e *Entity) SetPrototype(p *Entity) error {
	if p != nil {
		for anc := p; anc != nil; anc = anc.prototype {
			if anc == e {
				return fmt.Errorf("%w: entity %s would inherit from itself", ErrPrototypeCycle, e.ref)
			}
		}
		if err := checkChain(p); err != nil {
			return err
		}
	}
	e.prototype = p
	return nil
}

// localFacet returns the locally attached facet of the given type.
func (e *Entity) localFacet(t facet.Type) facet.Facet {
	for _, f := range e.facets {
		if f.FacetType() == t {
			return f
		}
	}
	return nil
}

// Facet resolves a facet by type: the local instance if present, else the
// prototype chain's, else nil. Reads never clone.
func (e *Entity) Facet(t facet.Type) facet.Facet {
	for anc := e; anc != nil; anc = anc.prototype {
		if f := anc.localFacet(t); f != nil {
			return f
		}
	}
	return nil
}

// AttachFacet attaches a facet locally. At most one facet per type may be
// attached; a second attach of the same type returns ErrDuplicateFacet.
func (e *Entity) AttachFacet(f facet.Facet) error {
	if f == nil {
		return fmt.Errorf("facet cannot be nil")
	}
	if e.localFacet(f.FacetType()) != nil {
		return fmt.Errorf("%w: %s on entity %s", ErrDuplicateFacet, f.FacetType(), e.ref)
	}
	e.facets = append(e.facets, f)
	return nil
}

// RequireFacet resolves the facet type owning the member name and returns a
// facet suitable for writing. For mutable types this is the single point
// where inherited state becomes owned state: the nearest prototype facet is
// cloned into the local list on first write (default-constructed if the
// chain has none). Immutable facet types are returned read-through from the
// chain without copying.
func (e *Entity) RequireFacet(member string) (facet.Facet, error) {
	t, ok := e.registry.TypeForMember(member)
	if !ok {
		return nil, fmt.Errorf("%w: %q", facet.ErrUnknownMember, member)
	}

	if !e.registry.Mutable(t) {
		if f := e.Facet(t); f != nil {
			return f, nil
		}
		f, err := e.registry.New(t)
		if err != nil {
			return nil, err
		}
		e.facets = append(e.facets, f)
		return f, nil
	}

	if f := e.localFacet(t); f != nil {
		return f, nil
	}

	var f facet.Facet
	if inherited := e.Facet(t); inherited != nil {
		f = inherited.Clone()
	} else {
		fresh, err := e.registry.New(t)
		if err != nil {
			return nil, err
		}
		f = fresh
	}
	e.facets = append(e.facets, f)
	return f, nil
}

// Get reads a member by name through the facet registry. Members whose
// facet is absent from the whole chain read as the facet type's default
// field values; no facet is materialized by a read.
func (e *Entity) Get(member string) (value.Value, error) {
	t, acc, ok := e.registry.Accessor(member)
	if !ok {
		return value.Nil(), fmt.Errorf("%w: %q", facet.ErrUnknownMember, member)
	}
	f := e.Facet(t)
	if f == nil {
		fresh, err := e.registry.New(t)
		if err != nil {
			return value.Nil(), err
		}
		f = fresh
	}
	return acc.Get(f), nil
}

// Set writes a member by name, materializing a local mutable facet first if
// needed. On conversion failure the entity keeps its prior values and the
// error is returned; writes are never partial. Members of immutable facet
// types return ErrImmutableMember.
func (e *Entity) Set(member string, v value.Value) error {
	t, acc, ok := e.registry.Accessor(member)
	if !ok {
		return fmt.Errorf("%w: %q", facet.ErrUnknownMember, member)
	}
	if !e.registry.Mutable(t) {
		return fmt.Errorf("%w: %q", facet.ErrImmutableMember, member)
	}
	f, err := e.RequireFacet(member)
	if err != nil {
		return err
	}
	return acc.Set(f, v)
}

// LocalFacets returns the locally attached facets in attachment order.
// Inherited facets are not included; persistence uses this to snapshot only
// owned state.
func (e *Entity) LocalFacets() []facet.Facet {
	out := make([]facet.Facet, len(e.facets))
	copy(out, e.facets)
	return out
}

// Registry returns the facet registry this entity resolves members against.
func (e *Entity) Registry() *facet.Registry { return e.registry }

// AddHandler appends an event handler. Handlers are matched in registration
// order.
func (e *Entity) AddHandler(h *Handler) {
	if h == nil {
		return
	}
	e.handlers = append(e.handlers, h)
}

// Handlers returns a copy of the locally registered handlers.
func (e *Entity) Handlers() []*Handler {
	out := make([]*Handler, len(e.handlers))
	copy(out, e.handlers)
	return out
}

// CanRespondTo reports whether any handler along the prototype chain
// matches the phase and event name. It is a pure query: no handler runs and
// no constraints are evaluated, so callers may use it only for short-circuit
// optimization, never for dispatch correctness.
func (e *Entity) CanRespondTo(phase Phase, name string) bool {
	for anc := e; anc != nil; anc = anc.prototype {
		for _, h := range anc.handlers {
			if h.Event.Phase == phase && h.Event.Name == name {
				return true
			}
		}
	}
	return false
}
