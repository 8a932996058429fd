// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/embermush/embermush/internal/facet"
	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const doorRef = "01HZN3XS000000000000000001"

// writePack lays out a pack directory under dir.
func writePack(t *testing.T, dir, name, manifest, entry string) string {
	t.Helper()
	packDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(packDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(packDir, "pack.yaml"), []byte(manifest), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(packDir, "main.lua"), []byte(entry), 0o600))
	return packDir
}

func newWorldWithDoor(t *testing.T) (*world.Index, *world.Entity) {
	t.Helper()
	index := world.NewIndex()
	door, err := world.NewEntity(facet.DefaultRegistry(), ulid.MustParse(doorRef), nil)
	require.NoError(t, err)
	require.NoError(t, index.Add(door))
	return index, door
}

const doorManifest = `
name: door-pack
version: 0.1.0
entry: main.lua
events:
  - "open"
handlers:
  - phase: allow
    event: open
    on: ` + doorRef + `
    function: allow_open
`

const doorScript = `
function allow_open(self, who)
  if who == self then
    return true
  end
  return false
end
`

func TestLoadPackBindsHandlers(t *testing.T) {
	index, door := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	dir := writePack(t, t.TempDir(), "door-pack", doorManifest, doorScript)
	require.NoError(t, host.LoadPack(context.Background(), dir, index.Lookup))
	assert.Equal(t, 1, host.Packs())

	handlers := door.Handlers()
	require.Len(t, handlers, 1)
	assert.Equal(t, world.Event{Phase: world.PhaseAllow, Name: "open"}, handlers[0].Event)

	// Invoke the bound body: the script compares the first argument against
	// its own ref and commits a boolean.
	out, err := handlers[0].Body(context.Background(), door, []value.Value{value.Ref(door.Ref())})
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.True(t, v.Equal(value.Bool(true)))

	out, err = handlers[0].Body(context.Background(), door, []value.Value{value.String("someone")})
	require.NoError(t, err)
	v, ok = out.Value()
	require.True(t, ok)
	assert.True(t, v.IsFalse())
}

func TestLuaReturnProtocol(t *testing.T) {
	index, door := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	manifest := `
name: outcome-pack
version: 0.1.0
entry: main.lua
handlers:
  - phase: before
    event: poke
    on: ` + doorRef + `
    function: defer_it
  - phase: before
    event: prod
    on: ` + doorRef + `
    function: fall_through
  - phase: before
    event: ping
    on: ` + doorRef + `
    function: commit_table
`
	script := `
function defer_it() return nil end
function fall_through() return "fallthrough" end
function commit_table() return {1, 2.5, "x"} end
`
	dir := writePack(t, t.TempDir(), "outcome-pack", manifest, script)
	require.NoError(t, host.LoadPack(context.Background(), dir, index.Lookup))

	handlers := door.Handlers()
	require.Len(t, handlers, 3)

	out, err := handlers[0].Body(context.Background(), door, nil)
	require.NoError(t, err)
	assert.Equal(t, world.OutcomeDeferred, out.Kind())

	out, err = handlers[1].Body(context.Background(), door, nil)
	require.NoError(t, err)
	assert.Equal(t, world.OutcomeFallthrough, out.Kind())

	out, err = handlers[2].Body(context.Background(), door, nil)
	require.NoError(t, err)
	v, ok := out.Value()
	require.True(t, ok)
	assert.True(t, v.Equal(value.List(value.Int(1), value.Float(2.5), value.String("x"))))
}

func TestLoadPackRejectsUngrantedEvent(t *testing.T) {
	index, door := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	manifest := `
name: greedy-pack
version: 0.1.0
entry: main.lua
events:
  - "door:*"
handlers:
  - phase: after
    event: teleport
    on: ` + doorRef + `
    function: f
`
	dir := writePack(t, t.TempDir(), "greedy-pack", manifest, `function f() end`)

	err := host.LoadPack(context.Background(), dir, index.Lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not covered by pack grants")
	assert.Empty(t, door.Handlers(), "a rejected pack must not leave handlers behind")
	assert.Equal(t, 0, host.Packs())
}

func TestLoadPackFailedBindingLeavesNoPartialState(t *testing.T) {
	index, door := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	// Second binding targets an entity that does not exist; the first must
	// not stay attached.
	manifest := `
name: half-pack
version: 0.1.0
entry: main.lua
handlers:
  - phase: before
    event: open
    on: ` + doorRef + `
    function: f
  - phase: before
    event: open
    on: 01HZN3XS00000000000000ZZZZ
    function: f
`
	dir := writePack(t, t.TempDir(), "half-pack", manifest, `function f() end`)

	require.Error(t, host.LoadPack(context.Background(), dir, index.Lookup))
	assert.Empty(t, door.Handlers())
	assert.Equal(t, 0, host.Packs())
}

func TestLoadPackDuplicateName(t *testing.T) {
	index, _ := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	base := t.TempDir()
	first := writePack(t, base, "a", doorManifest, doorScript)
	second := writePack(t, base, "b", doorManifest, doorScript)

	require.NoError(t, host.LoadPack(context.Background(), first, index.Lookup))
	err := host.LoadPack(context.Background(), second, index.Lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already loaded")
}

func TestLoadPackScriptError(t *testing.T) {
	index, _ := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	dir := writePack(t, t.TempDir(), "broken", doorManifest, `this is not lua`)
	assert.Error(t, host.LoadPack(context.Background(), dir, index.Lookup))
}

func TestLoadDir(t *testing.T) {
	index, door := newWorldWithDoor(t)

	host := NewHost()
	defer host.Close()

	base := t.TempDir()
	writePack(t, base, "door-pack", doorManifest, doorScript)
	// Directories without a manifest are skipped, not errors.
	require.NoError(t, os.MkdirAll(filepath.Join(base, "notes"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(base, "README.md"), []byte("docs"), 0o600))

	n, err := host.LoadDir(context.Background(), base, index.Lookup)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, door.Handlers(), 1)
}

func TestHostClose(t *testing.T) {
	index, _ := newWorldWithDoor(t)

	host := NewHost()
	dir := writePack(t, t.TempDir(), "door-pack", doorManifest, doorScript)
	require.NoError(t, host.LoadPack(context.Background(), dir, index.Lookup))

	host.Close()
	assert.Equal(t, 0, host.Packs())
	assert.Error(t, host.LoadPack(context.Background(), dir, index.Lookup))
	host.Close() // idempotent
}

func TestSandboxBlocksUnsafeLibraries(t *testing.T) {
	factory := NewStateFactory()
	L, err := factory.NewState(context.Background())
	require.NoError(t, err)
	defer L.Close()

	// os/io never load; the filesystem loaders are stubbed out of base.
	for _, snippet := range []string{
		`return os ~= nil`,
		`return io ~= nil`,
		`return dofile ~= nil`,
		`return loadstring ~= nil`,
	} {
		require.NoError(t, L.DoString("result = (function() "+snippet+" end)()"))
		assert.Equal(t, "false", L.GetGlobal("result").String(), snippet)
	}

	// The safe libraries work.
	require.NoError(t, L.DoString(`result = string.upper("ok") .. tostring(math.floor(2.9))`))
	assert.Equal(t, "OK2", L.GetGlobal("result").String())
}
