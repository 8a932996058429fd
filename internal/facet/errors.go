// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package facet

import (
	"errors"
	"fmt"

	"github.com/embermush/embermush/internal/value"
)

// ErrUnknownMember indicates no registered facet type owns the member name.
var ErrUnknownMember = errors.New("unknown member")

// ErrUnknownType indicates the facet type is not registered.
var ErrUnknownType = errors.New("unknown facet type")

// ErrDuplicateType indicates a facet type was registered twice.
var ErrDuplicateType = errors.New("facet type already registered")

// AmbiguousMemberError indicates two facet types declare the same member
// name. This is a configuration error detected at registration, never at
// lookup time.
type AmbiguousMemberError struct {
	Member   string
	Existing Type
	Incoming Type
}

func (e *AmbiguousMemberError) Error() string {
	return fmt.Sprintf("member %q declared by both facet type %q and %q", e.Member, e.Existing, e.Incoming)
}

// ErrImmutableMember indicates a write was attempted against a member of an
// immutable facet type.
var ErrImmutableMember = errors.New("member belongs to an immutable facet")

func errImmutableMember(member string) error {
	return fmt.Errorf("%w: %s", ErrImmutableMember, member)
}

// ConversionError indicates a value could not convert to the target field's
// type. The write is dropped; the facet keeps its prior state.
type ConversionError struct {
	Member string
	Want   string
	Got    value.Kind
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot set member %q: want %s, got %s", e.Member, e.Want, e.Got)
}
