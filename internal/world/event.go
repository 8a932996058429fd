// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package world

// Phase identifies a step of the event protocol. The total order
// Allow < Before < When < After sequences the protocol; it carries no other
// comparison semantics.
type Phase uint8

// Event phases in protocol order.
const (
	PhaseAllow Phase = iota
	PhaseBefore
	PhaseWhen
	PhaseAfter
)

func (p Phase) String() string {
	switch p {
	case PhaseAllow:
		return "allow"
	case PhaseBefore:
		return "before"
	case PhaseWhen:
		return "when"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Event pairs a phase with an event name. Equality is phase plus name.
type Event struct {
	Phase Phase
	Name  string
}

func (e Event) String() string {
	return e.Phase.String() + ":" + e.Name
}
