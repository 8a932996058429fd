// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

import "errors"

// ErrPrototypeCycle indicates an entity's prototype chain revisits an
// already-visited entity. This is a fatal configuration error.
var ErrPrototypeCycle = errors.New("prototype chain contains a cycle")

// ErrDuplicateFacet indicates a facet of the same type is already attached.
var ErrDuplicateFacet = errors.New("facet type already attached")

// ErrDuplicatePredicate indicates a constraint predicate was registered
// twice under the same kind tag.
var ErrDuplicatePredicate = errors.New("constraint predicate already registered")

// ErrUnknownPredicate indicates no predicate is registered for a constraint
// kind tag.
var ErrUnknownPredicate = errors.New("constraint predicate not registered")
