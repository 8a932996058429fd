// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/embermush/embermush/internal/observability"
	"github.com/embermush/embermush/internal/value"
)

// maxDispatchDepth bounds reentrant triggers. A handler chain that nests
// this deep is a runaway script; the inner trigger is refused.
const maxDispatchDepth = 64

// Policy holds dispatch policy decisions that the source material left
// divergent.
type Policy struct {
	// IncludeLocation adds the triggering location itself to the observer
	// set. The default follows the later, more inclusive behavior.
	IncludeLocation bool
}

// DefaultPolicy returns the default dispatch policy.
func DefaultPolicy() Policy {
	return Policy{IncludeLocation: true}
}

// Dispatcher orchestrates the four-phase event protocol. It is single-
// threaded cooperative: one trigger resolves fully, and nested triggers
// from handler bodies resolve before the outer dispatch continues. Confine
// each dispatcher, together with the entities it reaches, to one goroutine.
type Dispatcher struct {
	lookup     Lookup
	predicates *PredicateTable
	policy     Policy
	logger     *slog.Logger
	depth      int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPolicy overrides the dispatch policy.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithPredicates supplies the domain predicate table for extensible
// constraints.
func WithPredicates(t *PredicateTable) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.predicates = t
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher. The lookup resolves entity references
// embedded in container contents, exits, and constraints; it may be nil for
// worlds without cross-references.
func NewDispatcher(lookup Lookup, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		lookup:     lookup,
		predicates: NewPredicateTable(),
		policy:     DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger runs the event protocol for the named event. Observers are the
// participants plus the location, its contents, and its exit portals. The
// Allow phase polls every observer; any committed false aborts the event
// before the effect body runs. The effect executes exactly once iff no
// observer vetoed. Returns whether the event proceeded.
func (d *Dispatcher) Trigger(ctx context.Context, name string, location *Entity, participants []*Entity, args []value.Value, effect func(context.Context) error) bool {
	if d.depth >= maxDispatchDepth {
		d.logger.Error("event dispatch depth exceeded, refusing nested trigger",
			"event", name, "depth", d.depth)
		return false
	}
	d.depth++
	defer func() { d.depth-- }()

	observers := d.observers(location, participants)

	// Allow gate. Every observer is polled so Allow handlers observe a
	// deterministic protocol regardless of earlier vetoes.
	allowed := true
	for _, obs := range observers {
		outcome := d.respond(ctx, obs, Event{Phase: PhaseAllow, Name: name}, args)
		if v, ok := outcome.Value(); ok && v.IsFalse() {
			d.logger.Debug("event vetoed",
				"event", name, "observer", obs.Ref().String())
			allowed = false
		}
	}
	if !allowed {
		observability.RecordEventVetoed(name)
		return false
	}

	for _, obs := range observers {
		d.respond(ctx, obs, Event{Phase: PhaseBefore, Name: name}, args)
	}

	if effect != nil {
		if err := effect(ctx); err != nil {
			d.logger.Error("event effect failed",
				"event", name, "error", err)
		}
	}

	for _, p := range participants {
		if p == nil {
			continue
		}
		d.respond(ctx, p, Event{Phase: PhaseWhen, Name: name}, args)
	}

	for _, obs := range observers {
		d.respond(ctx, obs, Event{Phase: PhaseAfter, Name: name}, args)
	}

	observability.RecordEventDispatched(name)
	return true
}

// CanRespondTo reports whether the entity could react to the phase and
// event name. Pure query; see Entity.CanRespondTo.
func (d *Dispatcher) CanRespondTo(e *Entity, phase Phase, name string) bool {
	return e != nil && e.CanRespondTo(phase, name)
}

// observers builds the deterministic per-call observer order: the location
// (policy permitting), its contents, its exit portals, then the explicit
// participants. Duplicates already counted as participants are dropped from
// the location side; every entity appears once.
func (d *Dispatcher) observers(location *Entity, participants []*Entity) []*Entity {
	isParticipant := make(map[uint64]struct{}, len(participants))
	for _, p := range participants {
		if p != nil {
			isParticipant[p.ID()] = struct{}{}
		}
	}

	seen := make(map[uint64]struct{})
	var out []*Entity
	add := func(e *Entity) {
		if e == nil {
			return
		}
		if _, dup := seen[e.ID()]; dup {
			return
		}
		if _, part := isParticipant[e.ID()]; part {
			return
		}
		seen[e.ID()] = struct{}{}
		out = append(out, e)
	}

	if location != nil {
		if d.policy.IncludeLocation {
			add(location)
		}
		for _, ref := range d.containedRefs(location, "contents") {
			add(d.resolve(ref))
		}
		for _, ref := range d.containedRefs(location, "exits") {
			add(d.resolve(ref))
		}
	}

	for _, p := range participants {
		if p == nil {
			continue
		}
		if _, dup := seen[p.ID()]; dup {
			continue
		}
		seen[p.ID()] = struct{}{}
		out = append(out, p)
	}

	return out
}

// containedRefs reads a list-of-refs member off the location, tolerating
// entities without a container facet.
func (d *Dispatcher) containedRefs(location *Entity, member string) []value.Value {
	v, err := location.Get(member)
	if err != nil {
		return nil
	}
	elems, ok := v.AsList()
	if !ok {
		return nil
	}
	return elems
}

func (d *Dispatcher) resolve(v value.Value) *Entity {
	ref, ok := v.AsRef()
	if !ok || d.lookup == nil {
		return nil
	}
	e, ok := d.lookup(ref)
	if !ok {
		d.logger.Debug("observer reference did not resolve", "ref", ref.String())
		return nil
	}
	return e
}

// respond resolves and invokes the most specific matching handler for the
// event on one observer: the observer's own handlers in registration order,
// then the prototype chain, closest override first. A committed value stops
// the search; fallthrough continues it; deferred (including handler
// failure) stops with no committed value.
func (d *Dispatcher) respond(ctx context.Context, observer *Entity, ev Event, args []value.Value) Outcome {
	visited := make(map[uint64]struct{})
	for anc := observer; anc != nil; anc = anc.Prototype() {
		if _, seen := visited[anc.ID()]; seen {
			d.logger.Error("prototype cycle during handler resolution",
				"observer", observer.Ref().String(), "event", ev.String())
			return Deferred()
		}
		visited[anc.ID()] = struct{}{}

		for _, h := range anc.Handlers() {
			match, err := h.AppliesTo(ev, args, observer, d.lookup, d.predicates)
			if err != nil {
				d.logger.Warn("constraint evaluation failed",
					"observer", observer.Ref().String(), "event", ev.String(), "error", err)
				continue
			}
			if !match {
				continue
			}

			outcome, err := d.invoke(ctx, h, observer, args)
			if err != nil {
				observability.RecordHandlerError(ev.Name)
				d.logger.Error("event handler failed",
					"observer", observer.Ref().String(),
					"entity_id", observer.ID(),
					"phase", ev.Phase.String(),
					"event", ev.Name,
					"error", err)
				return Deferred()
			}

			switch outcome.Kind() {
			case OutcomeValue, OutcomeDeferred:
				return outcome
			case OutcomeFallthrough:
				// keep searching this entity's list, then the chain
			}
		}
	}
	return Deferred()
}

// invoke runs one handler body, converting panics into handler errors so a
// broken script never takes down dispatch.
func (d *Dispatcher) invoke(ctx context.Context, h *Handler, observer *Entity, args []value.Value) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Deferred()
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Body(ctx, observer, args)
}
