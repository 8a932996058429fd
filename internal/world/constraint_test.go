// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embermush/embermush/internal/value"
)

func TestConstraintNoneMatchesEverything(t *testing.T) {
	c := Constraint{Kind: ConstraintNone}

	for _, arg := range []value.Value{value.Nil(), value.Int(9), value.String("x")} {
		ok, err := c.Matches(arg, nil, nil, nil)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestConstraintSelf(t *testing.T) {
	observer := newEntity(t, refProto, nil)
	c := Constraint{Kind: ConstraintSelf}

	ok, err := c.Matches(value.Ref(observer.Ref()), observer, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Matches(value.Ref(ulid.MustParse(refOther)), observer, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// Non-ref arguments and a missing observer never match, never error.
	ok, err = c.Matches(value.String("me"), observer, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Matches(value.Ref(observer.Ref()), nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConstraintPrototypeOf(t *testing.T) {
	proto := newEntity(t, refProto, nil)
	child := newEntity(t, refChild, proto)
	stranger := newEntity(t, refOther, nil)

	index := NewIndex()
	require.NoError(t, index.Add(proto))
	require.NoError(t, index.Add(child))
	require.NoError(t, index.Add(stranger))

	c := Constraint{Kind: ConstraintPrototypeOf, Ref: proto.Ref()}

	// The prototype itself and its descendants match.
	for _, ref := range []ulid.ULID{proto.Ref(), child.Ref()} {
		ok, err := c.Matches(value.Ref(ref), nil, index.Lookup, nil)
		require.NoError(t, err)
		assert.True(t, ok, "ref %s should match", ref)
	}

	ok, err := c.Matches(value.Ref(stranger.Ref()), nil, index.Lookup, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unresolvable refs and non-ref args fail soft.
	missing := ulid.MustParse("01HZN3XS00000000000000000Z")
	ok, err = c.Matches(value.Ref(missing), nil, index.Lookup, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Matches(value.Int(1), nil, index.Lookup, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// No lookup is an evaluation error, not a silent mismatch.
	_, err = c.Matches(value.Ref(child.Ref()), nil, nil, nil)
	assert.Error(t, err)
}

func TestConstraintPredicate(t *testing.T) {
	preds := NewPredicateTable()
	preds.MustRegister(PredicateRaceOf, func(arg, param value.Value) bool {
		return arg.Equal(param)
	})

	c := Constraint{
		Kind:      ConstraintPredicate,
		Predicate: PredicateRaceOf,
		Param:     value.Symbol("elf"),
	}

	ok, err := c.Matches(value.Symbol("elf"), nil, nil, preds)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Matches(value.Symbol("dwarf"), nil, nil, preds)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown predicates error so dispatch can log the misconfiguration.
	bad := Constraint{Kind: ConstraintPredicate, Predicate: "alignment-of"}
	_, err = bad.Matches(value.Nil(), nil, nil, preds)
	assert.ErrorIs(t, err, ErrUnknownPredicate)

	_, err = c.Matches(value.Nil(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownPredicate)
}

func TestPredicateTableRegistration(t *testing.T) {
	preds := NewPredicateTable()

	assert.Error(t, preds.Register("", func(_, _ value.Value) bool { return true }))
	assert.Error(t, preds.Register("x", nil))

	require.NoError(t, preds.Register("x", func(_, _ value.Value) bool { return true }))
	assert.ErrorIs(t, preds.Register("x", func(_, _ value.Value) bool { return false }), ErrDuplicatePredicate)

	p, ok := preds.Lookup("x")
	require.True(t, ok)
	assert.True(t, p(value.Nil(), value.Nil()))
}

func TestHandlerAppliesTo(t *testing.T) {
	observer := newEntity(t, refProto, nil)

	h := &Handler{
		Event: Event{Phase: PhaseWhen, Name: "give"},
		Constraints: []Constraint{
			{Kind: ConstraintSelf},
			{Kind: ConstraintNone},
		},
	}

	args := []value.Value{value.Ref(observer.Ref()), value.Int(3)}

	ok, err := h.AppliesTo(Event{Phase: PhaseWhen, Name: "give"}, args, observer, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Wrong phase or name never matches.
	ok, err = h.AppliesTo(Event{Phase: PhaseAfter, Name: "give"}, args, observer, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.AppliesTo(Event{Phase: PhaseWhen, Name: "take"}, args, observer, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// Missing positional arguments are evaluated as Nil: self can't match.
	ok, err = h.AppliesTo(Event{Phase: PhaseWhen, Name: "give"}, nil, observer, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
