// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package script

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/embermush/embermush/internal/value"
)

func newLuaState(t *testing.T) *lua.LState {
	t.Helper()
	L, err := NewStateFactory().NewState(context.Background())
	require.NoError(t, err)
	t.Cleanup(L.Close)
	return L
}

func TestToLuaFlattensSymbolsAndRefs(t *testing.T) {
	L := newLuaState(t)
	ref := ulid.MustParse("01HZN3XS000000000000000001")

	assert.Equal(t, lua.LString("locked"), toLua(L, value.Symbol("locked")))
	assert.Equal(t, lua.LString(ref.String()), toLua(L, value.Ref(ref)))
	assert.Equal(t, lua.LNil, toLua(L, value.Nil()))
}

func TestToLuaExitBecomesTable(t *testing.T) {
	L := newLuaState(t)
	portal := ulid.MustParse("01HZN3XS000000000000000001")
	dest := ulid.MustParse("01HZN3XS000000000000000002")

	lv := toLua(L, value.Exit(portal, "north", dest))
	table, ok := lv.(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LString("north"), table.RawGetString("direction"))
	assert.Equal(t, lua.LString(portal.String()), table.RawGetString("portal"))
	assert.Equal(t, lua.LString(dest.String()), table.RawGetString("destination"))
}

func TestLuaListRoundTrip(t *testing.T) {
	L := newLuaState(t)

	v := value.List(value.Int(1), value.String("two"), value.List(value.Bool(true)))
	back := fromLua(toLua(L, v))
	assert.True(t, v.Equal(back), "want %s, got %s", v, back)
}

func TestFromLuaNumbers(t *testing.T) {
	assert.True(t, fromLua(lua.LNumber(3)).Equal(value.Int(3)),
		"integral numbers come back as ints")
	assert.True(t, fromLua(lua.LNumber(3.5)).Equal(value.Float(3.5)))
}
