// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/embermush/embermush/internal/value"
)

// Lookup resolves an entity reference to its live entity. Supplied by the
// world store; this package never owns entity lifetimes.
type Lookup func(ref ulid.ULID) (*Entity, bool)

// ConstraintKind identifies a constraint variant.
type ConstraintKind uint8

// Constraint kinds. The set is closed; open-ended domain checks go through
// ConstraintPredicate and the predicate table.
const (
	// ConstraintNone always matches.
	ConstraintNone ConstraintKind = iota
	// ConstraintSelf requires the argument to be the observing entity.
	ConstraintSelf
	// ConstraintPrototypeOf requires the argument entity's prototype chain
	// to include the referenced entity.
	ConstraintPrototypeOf
	// ConstraintPredicate delegates to a registered domain predicate
	// (quest-phase-of, race-of, equipped-item-of, ...).
	ConstraintPredicate
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintNone:
		return "none"
	case ConstraintSelf:
		return "self"
	case ConstraintPrototypeOf:
		return "prototype-of"
	case ConstraintPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// Constraint is a predicate over one positional event argument.
type Constraint struct {
	Kind      ConstraintKind
	Ref       ulid.ULID   // prototype reference for ConstraintPrototypeOf
	Predicate string      // predicate table key for ConstraintPredicate
	Param     value.Value // predicate parameter (quest name, race, item ref)
}

// Predicate is a domain check over one event argument, parameterized by the
// constraint's declared value. Registered by the subsystem owning the data
// the check depends on.
type Predicate func(arg value.Value, param value.Value) bool

// PredicateTable maps constraint kind tags to domain predicates. Safe for
// concurrent use by multiple goroutines.
type PredicateTable struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
}

// Predicate tags for the built-in extensible constraint kinds.
const (
	PredicateQuestPhaseOf   = "quest-phase-of"
	PredicateRaceOf         = "race-of"
	PredicateEquippedItemOf = "equipped-item-of"
)

// NewPredicateTable creates an empty predicate table.
func NewPredicateTable() *PredicateTable {
	return &PredicateTable{predicates: make(map[string]Predicate)}
}

// Register adds a predicate under the given kind tag. Returns
// ErrDuplicatePredicate if the tag is taken.
func (t *PredicateTable) Register(tag string, p Predicate) error {
	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("predicate tag cannot be empty")
	}
	if p == nil {
		return fmt.Errorf("predicate cannot be nil")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.predicates[tag]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePredicate, tag)
	}
	t.predicates[tag] = p
	return nil
}

// MustRegister adds a predicate, panicking on error. Intended for package
// initialization only.
func (t *PredicateTable) MustRegister(tag string, p Predicate) {
	if err := t.Register(tag, p); err != nil {
		panic(err)
	}
}

// Lookup returns the predicate registered under the tag.
func (t *PredicateTable) Lookup(tag string) (Predicate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.predicates[tag]
	return p, ok
}

// Matches evaluates the constraint against one positional argument.
// Evaluation errors (unknown predicate, broken prototype chain) are
// returned so dispatch can log them; an erroring constraint never matches.
func (c Constraint) Matches(arg value.Value, observer *Entity, lookup Lookup, preds *PredicateTable) (bool, error) {
	switch c.Kind {
	case ConstraintNone:
		return true, nil

	case ConstraintSelf:
		ref, ok := arg.AsRef()
		if !ok {
			return false, nil
		}
		return observer != nil && ref == observer.Ref(), nil

	case ConstraintPrototypeOf:
		ref, ok := arg.AsRef()
		if !ok {
			return false, nil
		}
		if lookup == nil {
			return false, fmt.Errorf("prototype-of constraint requires a world lookup")
		}
		e, ok := lookup(ref)
		if !ok {
			return false, nil
		}
		visited := make(map[uint64]struct{})
		for anc := e; anc != nil; anc = anc.Prototype() {
			if _, seen := visited[anc.ID()]; seen {
				return false, fmt.Errorf("%w: entity %s", ErrPrototypeCycle, anc.Ref())
			}
			visited[anc.ID()] = struct{}{}
			if anc.Ref() == c.Ref {
				return true, nil
			}
		}
		return false, nil

	case ConstraintPredicate:
		if preds == nil {
			return false, fmt.Errorf("%w: %q (no predicate table)", ErrUnknownPredicate, c.Predicate)
		}
		p, ok := preds.Lookup(c.Predicate)
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownPredicate, c.Predicate)
		}
		return p(arg, c.Param), nil

	default:
		return false, fmt.Errorf("unknown constraint kind %d", c.Kind)
	}
}
