// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package facet

import (
	"errors"
	"sort"
	"sync"
)

// Registration ties a facet type to its constructor and accessor table.
type Registration struct {
	Type      Type
	New       func() Facet
	Accessors Table
}

// Registry maps facet types to accessor tables and maintains the derived
// member-name to facet-type index. It is populated at startup and read-only
// afterwards; the mutex exists so concurrent readers during operation are
// safe even while tests build private registries.
type Registry struct {
	mu      sync.RWMutex
	types   map[Type]Registration
	members map[string]Type
}

var (
	sharedRegistryOnce sync.Once
	sharedRegistry     *Registry
)

// NewRegistry creates an empty facet registry.
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[Type]Registration),
		members: make(map[string]Type),
	}
}

// Register adds a facet type. Registering the same type twice returns
// ErrDuplicateType; a member name already owned by another facet type
// returns an AmbiguousMemberError. On error no changes are made.
func (r *Registry) Register(reg Registration) error {
	if reg.Type == "" {
		return errors.New("facet type cannot be empty")
	}
	if reg.New == nil {
		return errors.New("facet constructor cannot be nil")
	}
	if len(reg.Accessors) == 0 {
		return errors.New("facet accessor table cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[reg.Type]; exists {
		return ErrDuplicateType
	}
	for member := range reg.Accessors {
		if owner, exists := r.members[member]; exists {
			return &AmbiguousMemberError{Member: member, Existing: owner, Incoming: reg.Type}
		}
	}

	r.types[reg.Type] = reg
	for member := range reg.Accessors {
		r.members[member] = reg.Type
	}
	return nil
}

// MustRegister adds a facet type, panicking on error. Intended for package
// initialization only.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// TypeForMember returns the facet type owning the member name.
func (r *Registry) TypeForMember(member string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.members[member]
	return t, ok
}

// Accessor returns the accessor for a member name along with its owning
// facet type.
func (r *Registry) Accessor(member string) (Type, Accessor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.members[member]
	if !ok {
		return "", Accessor{}, false
	}
	return t, r.types[t].Accessors[member], true
}

// New constructs a default instance of the facet type.
func (r *Registry) New(t Type) (Facet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.types[t]
	if !ok {
		return nil, ErrUnknownType
	}
	return reg.New(), nil
}

// Mutable reports whether the facet type is mutable. Unknown types report
// false.
func (r *Registry) Mutable(t Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.types[t]
	if !ok {
		return false
	}
	return reg.New().Mutable()
}

// Members returns the sorted member names owned by the facet type.
func (r *Registry) Members(t Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.types[t]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(reg.Accessors))
	for member := range reg.Accessors {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// AllMembers returns every registered member name, sorted. Used by the
// persistence layer to enumerate an entity's property surface.
func (r *Registry) AllMembers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.members))
	for member := range r.members {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// DefaultRegistry returns a registry with the built-in facet types
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(viewableRegistration())
	r.MustRegister(containerRegistration())
	r.MustRegister(portalRegistration())
	r.MustRegister(archetypeRegistration())
	return r
}

// SharedRegistry returns a shared default registry instance. Safe for
// concurrent access; avoids duplicate registrations.
func SharedRegistry() *Registry {
	sharedRegistryOnce.Do(func() {
		sharedRegistry = DefaultRegistry()
	})
	return sharedRegistry
}
