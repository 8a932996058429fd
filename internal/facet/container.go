// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package facet

import (
	"github.com/oklog/ulid/v2"

	"github.com/embermush/embermush/internal/value"
)

// Container holds the entities contained in a location or held by a
// creature, plus the portals leading out of it.
type Container struct {
	Contents []ulid.ULID
	Exits    []ulid.ULID
	Capacity int64
}

// FacetType implements Facet.
func (*Container) FacetType() Type { return TypeContainer }

// Mutable implements Facet.
func (*Container) Mutable() bool { return true }

// Clone implements Facet.
func (c *Container) Clone() Facet {
	cp := &Container{Capacity: c.Capacity}
	cp.Contents = make([]ulid.ULID, len(c.Contents))
	copy(cp.Contents, c.Contents)
	cp.Exits = make([]ulid.ULID, len(c.Exits))
	copy(cp.Exits, c.Exits)
	return cp
}

// refList renders a slice of entity references as a list value.
func refList(ids []ulid.ULID) value.Value {
	elems := make([]value.Value, len(ids))
	for i, id := range ids {
		elems[i] = value.Ref(id)
	}
	return value.List(elems...)
}

// refSlice converts a list value of entity references, reporting the member
// name on conversion failure.
func refSlice(member string, v value.Value) ([]ulid.ULID, error) {
	elems, ok := v.AsList()
	if !ok {
		return nil, &ConversionError{Member: member, Want: "list of refs", Got: v.Kind()}
	}
	ids := make([]ulid.ULID, len(elems))
	for i, e := range elems {
		id, ok := e.AsRef()
		if !ok {
			return nil, &ConversionError{Member: member, Want: "list of refs", Got: e.Kind()}
		}
		ids[i] = id
	}
	return ids, nil
}

func containerRegistration() Registration {
	return Registration{
		Type: TypeContainer,
		New:  func() Facet { return &Container{} },
		Accessors: Table{
			"contents": {
				Get: func(f Facet) value.Value { return refList(f.(*Container).Contents) },
				Set: func(f Facet, v value.Value) error {
					ids, err := refSlice("contents", v)
					if err != nil {
						return err
					}
					f.(*Container).Contents = ids
					return nil
				},
			},
			"exits": {
				Get: func(f Facet) value.Value { return refList(f.(*Container).Exits) },
				Set: func(f Facet, v value.Value) error {
					ids, err := refSlice("exits", v)
					if err != nil {
						return err
					}
					f.(*Container).Exits = ids
					return nil
				},
			},
			"capacity": {
				Get: func(f Facet) value.Value { return value.Int(f.(*Container).Capacity) },
				Set: func(f Facet, v value.Value) error {
					n, ok := v.AsInt()
					if !ok {
						return &ConversionError{Member: "capacity", Want: "int", Got: v.Kind()}
					}
					f.(*Container).Capacity = n
					return nil
				},
			},
		},
	}
}
