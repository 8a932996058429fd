// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package value defines the runtime's universal data representation: a closed
// tagged union covering every payload that can flow between facets, event
// handlers, and external collaborators (persistence, scripting).
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindRef
	KindList
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindRef:
		return "ref"
	case KindList:
		return "list"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

// ExitPayload describes a traversable portal: the portal entity itself, the
// direction label shown to players, and the destination entity.
type ExitPayload struct {
	Portal      ulid.ULID
	Direction   string
	Destination ulid.ULID
}

// Value is an immutable tagged union. The zero value is Nil.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	ref  ulid.ULID
	list []Value
	exit *ExitPayload
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Symbol returns a symbol value with the given name.
func Symbol(name string) Value { return Value{kind: KindSymbol, s: name} }

// Ref returns an entity-reference value.
func Ref(id ulid.ULID) Value { return Value{kind: KindRef, ref: id} }

// List returns a list value. The elements are copied so callers may reuse
// the slice.
func List(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindList, list: cp}
}

// Exit returns an exit value describing a portal traversal.
func Exit(portal ulid.ULID, direction string, destination ulid.ULID) Value {
	return Value{kind: KindExit, exit: &ExitPayload{
		Portal:      portal,
		Direction:   direction,
		Destination: destination,
	}}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsFalse reports whether the value is the distinguished boolean false used
// by Allow-phase handlers to veto an event. Nil is not false.
func (v Value) IsFalse() bool { return v.kind == KindBool && !v.b }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the integer payload. Floats with an exact integer value
// convert.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == float64(int64(v.f)) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// AsFloat returns the floating-point payload. Integers convert.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsSymbol returns the symbol name.
func (v Value) AsSymbol() (string, bool) {
	if v.kind != KindSymbol {
		return "", false
	}
	return v.s, true
}

// AsRef returns the entity reference.
func (v Value) AsRef() (ulid.ULID, bool) {
	if v.kind != KindRef {
		return ulid.ULID{}, false
	}
	return v.ref, true
}

// AsList returns a copy of the list payload.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Len returns the list length, or 0 for non-lists.
func (v Value) Len() int { return len(v.list) }

// At returns the list element at index i.
func (v Value) At(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// AsExit returns the exit payload.
func (v Value) AsExit() (ExitPayload, bool) {
	if v.kind != KindExit {
		return ExitPayload{}, false
	}
	return *v.exit, true
}

// Equal reports deep equality of tag and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString, KindSymbol:
		return v.s == o.s
	case KindRef:
		return v.ref == o.ref
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindExit:
		return *v.exit == *o.exit
	default:
		return false
	}
}

// String renders the value for logs and diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindSymbol:
		return ":" + v.s
	case KindRef:
		return "#" + v.ref.String()
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindExit:
		return fmt.Sprintf("exit(%s -> %s via #%s)", v.exit.Direction, v.exit.Destination, v.exit.Portal)
	default:
		return "unknown"
	}
}
