// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package facet

import (
	"github.com/oklog/ulid/v2"

	"github.com/embermush/embermush/internal/value"
)

// Portal marks an entity as a traversable exit leading to a destination.
type Portal struct {
	Direction   string
	Destination ulid.ULID
}

// FacetType implements Facet.
func (*Portal) FacetType() Type { return TypePortal }

// Mutable implements Facet.
func (*Portal) Mutable() bool { return true }

// Clone implements Facet.
func (p *Portal) Clone() Facet {
	cp := *p
	return &cp
}

func portalRegistration() Registration {
	return Registration{
		Type: TypePortal,
		New:  func() Facet { return &Portal{} },
		Accessors: Table{
			"direction": {
				Get: func(f Facet) value.Value { return value.String(f.(*Portal).Direction) },
				Set: func(f Facet, v value.Value) error {
					s, ok := v.AsString()
					if !ok {
						return &ConversionError{Member: "direction", Want: "string", Got: v.Kind()}
					}
					f.(*Portal).Direction = s
					return nil
				},
			},
			"destination": {
				Get: func(f Facet) value.Value { return value.Ref(f.(*Portal).Destination) },
				Set: func(f Facet, v value.Value) error {
					id, ok := v.AsRef()
					if !ok {
						return &ConversionError{Member: "destination", Want: "ref", Got: v.Kind()}
					}
					f.(*Portal).Destination = id
					return nil
				},
			},
		},
	}
}
