// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package value

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// jsonValue is the wire shape used when persisting values. Exactly one
// payload field is set, matching the kind tag.
type jsonValue struct {
	Kind   string       `json:"kind"`
	Bool   *bool        `json:"bool,omitempty"`
	Int    *int64       `json:"int,omitempty"`
	Float  *float64     `json:"float,omitempty"`
	String *string      `json:"string,omitempty"`
	Symbol *string      `json:"symbol,omitempty"`
	Ref    *string      `json:"ref,omitempty"`
	List   []jsonValue  `json:"list,omitempty"`
	Exit   *jsonExit    `json:"exit,omitempty"`
}

type jsonExit struct {
	Portal      string `json:"portal"`
	Direction   string `json:"direction"`
	Destination string `json:"destination"`
}

func (v Value) toJSON() jsonValue {
	out := jsonValue{Kind: v.kind.String()}
	switch v.kind {
	case KindBool:
		out.Bool = &v.b
	case KindInt:
		out.Int = &v.i
	case KindFloat:
		out.Float = &v.f
	case KindString:
		out.String = &v.s
	case KindSymbol:
		out.Symbol = &v.s
	case KindRef:
		s := v.ref.String()
		out.Ref = &s
	case KindList:
		out.List = make([]jsonValue, len(v.list))
		for i, e := range v.list {
			out.List[i] = e.toJSON()
		}
	case KindExit:
		out.Exit = &jsonExit{
			Portal:      v.exit.Portal.String(),
			Direction:   v.exit.Direction,
			Destination: v.exit.Destination.String(),
		}
	}
	return out
}

func fromJSON(jv jsonValue) (Value, error) {
	switch jv.Kind {
	case "nil", "":
		return Nil(), nil
	case "bool":
		if jv.Bool == nil {
			return Value{}, fmt.Errorf("bool value missing payload")
		}
		return Bool(*jv.Bool), nil
	case "int":
		if jv.Int == nil {
			return Value{}, fmt.Errorf("int value missing payload")
		}
		return Int(*jv.Int), nil
	case "float":
		if jv.Float == nil {
			return Value{}, fmt.Errorf("float value missing payload")
		}
		return Float(*jv.Float), nil
	case "string":
		if jv.String == nil {
			return Value{}, fmt.Errorf("string value missing payload")
		}
		return String(*jv.String), nil
	case "symbol":
		if jv.Symbol == nil {
			return Value{}, fmt.Errorf("symbol value missing payload")
		}
		return Symbol(*jv.Symbol), nil
	case "ref":
		if jv.Ref == nil {
			return Value{}, fmt.Errorf("ref value missing payload")
		}
		id, err := ulid.Parse(*jv.Ref)
		if err != nil {
			return Value{}, fmt.Errorf("parse entity ref %q: %w", *jv.Ref, err)
		}
		return Ref(id), nil
	case "list":
		elems := make([]Value, len(jv.List))
		for i, e := range jv.List {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, fmt.Errorf("list element %d: %w", i, err)
			}
			elems[i] = v
		}
		return List(elems...), nil
	case "exit":
		if jv.Exit == nil {
			return Value{}, fmt.Errorf("exit value missing payload")
		}
		portal, err := ulid.Parse(jv.Exit.Portal)
		if err != nil {
			return Value{}, fmt.Errorf("parse exit portal %q: %w", jv.Exit.Portal, err)
		}
		dest, err := ulid.Parse(jv.Exit.Destination)
		if err != nil {
			return Value{}, fmt.Errorf("parse exit destination %q: %w", jv.Exit.Destination, err)
		}
		return Exit(portal, jv.Exit.Direction, dest), nil
	default:
		return Value{}, fmt.Errorf("unknown value kind %q", jv.Kind)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSON())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return fmt.Errorf("invalid value JSON: %w", err)
	}
	parsed, err := fromJSON(jv)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
