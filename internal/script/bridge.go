// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/embermush/embermush/internal/value"
)

// toLua converts a runtime value to its Lua representation. Symbols and
// entity refs flatten to strings; exits become tables with portal,
// direction, and destination fields.
func toLua(L *lua.LState, v value.Value) lua.LValue {
	switch v.Kind() {
	case value.KindNil:
		return lua.LNil
	case value.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case value.KindInt:
		n, _ := v.AsInt()
		return lua.LNumber(n)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return lua.LNumber(f)
	case value.KindString:
		s, _ := v.AsString()
		return lua.LString(s)
	case value.KindSymbol:
		s, _ := v.AsSymbol()
		return lua.LString(s)
	case value.KindRef:
		ref, _ := v.AsRef()
		return lua.LString(ref.String())
	case value.KindList:
		elems, _ := v.AsList()
		t := L.NewTable()
		for _, e := range elems {
			t.Append(toLua(L, e))
		}
		return t
	case value.KindExit:
		exit, _ := v.AsExit()
		t := L.NewTable()
		t.RawSetString("portal", lua.LString(exit.Portal.String()))
		t.RawSetString("direction", lua.LString(exit.Direction))
		t.RawSetString("destination", lua.LString(exit.Destination.String()))
		return t
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value back to a runtime value. Numbers with an
// exact integer value become ints; tables convert as arrays.
func fromLua(lv lua.LValue) value.Value {
	switch v := lv.(type) {
	case *lua.LNilType:
		return value.Nil()
	case lua.LBool:
		return value.Bool(bool(v))
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return value.Int(int64(f))
		}
		return value.Float(f)
	case lua.LString:
		return value.String(string(v))
	case *lua.LTable:
		var elems []value.Value
		v.ForEach(func(_, item lua.LValue) {
			elems = append(elems, fromLua(item))
		})
		return value.List(elems...)
	default:
		return value.Nil()
	}
}
