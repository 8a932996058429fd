// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package facet

import "github.com/embermush/embermush/internal/value"

// Viewable carries the description surface of an entity: what players see
// when they look at it.
type Viewable struct {
	Name        string
	Description string
	Article     string
}

// FacetType implements Facet.
func (*Viewable) FacetType() Type { return TypeViewable }

// Mutable implements Facet.
func (*Viewable) Mutable() bool { return true }

// Clone implements Facet.
func (v *Viewable) Clone() Facet {
	cp := *v
	return &cp
}

func viewableRegistration() Registration {
	return Registration{
		Type: TypeViewable,
		New:  func() Facet { return &Viewable{} },
		Accessors: Table{
			"name": {
				Get: func(f Facet) value.Value { return value.String(f.(*Viewable).Name) },
				Set: func(f Facet, v value.Value) error {
					s, ok := v.AsString()
					if !ok {
						return &ConversionError{Member: "name", Want: "string", Got: v.Kind()}
					}
					f.(*Viewable).Name = s
					return nil
				},
			},
			"description": {
				Get: func(f Facet) value.Value { return value.String(f.(*Viewable).Description) },
				Set: func(f Facet, v value.Value) error {
					s, ok := v.AsString()
					if !ok {
						return &ConversionError{Member: "description", Want: "string", Got: v.Kind()}
					}
					f.(*Viewable).Description = s
					return nil
				},
			},
			"article": {
				Get: func(f Facet) value.Value { return value.String(f.(*Viewable).Article) },
				Set: func(f Facet, v value.Value) error {
					s, ok := v.AsString()
					if !ok {
						return &ConversionError{Member: "article", Want: "string", Got: v.Kind()}
					}
					f.(*Viewable).Article = s
					return nil
				},
			},
		},
	}
}
