// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

import (
	"fmt"
	"sort"

	"github.com/oklog/ulid/v2"
)

// Index owns the canonical lifetime of a shard's entities and resolves
// entity references. Entities hold non-owning pointers to their prototypes;
// the index is what keeps prototypes alive. Like the rest of the shard it
// is confined to a single goroutine.
type Index struct {
	entities map[ulid.ULID]*Entity
}

// NewIndex creates an empty entity index.
func NewIndex() *Index {
	return &Index{entities: make(map[ulid.ULID]*Entity)}
}

// Add registers an entity under its reference. Adding a second entity with
// the same reference is an error.
func (ix *Index) Add(e *Entity) error {
	if e == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if _, exists := ix.entities[e.Ref()]; exists {
		return fmt.Errorf("entity %s already indexed", e.Ref())
	}
	ix.entities[e.Ref()] = e
	return nil
}

// Lookup resolves a reference to its entity.
func (ix *Index) Lookup(ref ulid.ULID) (*Entity, bool) {
	e, ok := ix.entities[ref]
	return e, ok
}

// Remove releases an entity from the index. The entity is destroyed once no
// container or collaborator references it; there is no garbage collection
// beyond ordinary ownership release.
func (ix *Index) Remove(ref ulid.ULID) {
	delete(ix.entities, ref)
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	return len(ix.entities)
}

// Refs returns all indexed references in sorted order. Used by persistence
// to enumerate the shard deterministically.
func (ix *Index) Refs() []ulid.ULID {
	refs := make([]ulid.ULID, 0, len(ix.entities))
	for ref := range ix.entities {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Compare(refs[j]) < 0 })
	return refs
}
