// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

import (
	"context"

	"github.com/embermush/embermush/internal/value"
)

// OutcomeKind identifies what a handler invocation produced.
type OutcomeKind uint8

// Handler outcomes.
const (
	// OutcomeDeferred means the handler committed no value. Search stops for
	// the observer; the event passes through with no veto.
	OutcomeDeferred OutcomeKind = iota
	// OutcomeValue short-circuits further handler search on the observer and
	// yields the value to the caller.
	OutcomeValue
	// OutcomeFallthrough continues the search: first the rest of the same
	// entity's handler list, then the prototype chain.
	OutcomeFallthrough
)

// Outcome is the three-way result of a handler invocation. Dispatch
// inspects it to decide whether to keep searching; there is no exception or
// early-return control transfer.
type Outcome struct {
	kind OutcomeKind
	val  value.Value
}

// Committed returns an outcome carrying a value.
func Committed(v value.Value) Outcome { return Outcome{kind: OutcomeValue, val: v} }

// Fallthrough returns the fallthrough outcome.
func Fallthrough() Outcome { return Outcome{kind: OutcomeFallthrough} }

// Deferred returns the deferred outcome.
func Deferred() Outcome { return Outcome{} }

// Kind returns the outcome variant.
func (o Outcome) Kind() OutcomeKind { return o.kind }

// Value returns the committed value, if any.
func (o Outcome) Value() (value.Value, bool) {
	if o.kind != OutcomeValue {
		return value.Nil(), false
	}
	return o.val, true
}

// Body is an opaque handler callable supplied by the scripting layer. The
// first positional argument is conventionally the observing entity itself.
// This core never interprets the callable's internals.
type Body func(ctx context.Context, self *Entity, args []value.Value) (Outcome, error)

// Handler binds an event to an executable body with per-argument parameter
// constraints. Handlers belong to one entity and are matched in
// registration order.
type Handler struct {
	Event       Event
	Constraints []Constraint
	Body        Body
}

// AppliesTo reports whether the handler matches the event and positional
// arguments as observed by the given entity. Constraints beyond the
// argument list are evaluated against Nil.
func (h *Handler) AppliesTo(ev Event, args []value.Value, observer *Entity, lookup Lookup, preds *PredicateTable) (bool, error) {
	if h.Event.Phase != ev.Phase || h.Event.Name != ev.Name {
		return false, nil
	}
	for i, c := range h.Constraints {
		arg := value.Nil()
		if i < len(args) {
			arg = args[i]
		}
		ok, err := c.Matches(arg, observer, lookup, preds)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
