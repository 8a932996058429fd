// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/embermush/embermush/internal/script/dsl"
	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

// loadedPack holds a pack's manifest, compiled grants, and its Lua state.
// The state lives for the lifetime of the pack; handler bodies call into it.
type loadedPack struct {
	manifest *Manifest
	grants   []glob.Glob
	state    *lua.LState
}

// Host loads script packs and binds their functions to entity event
// handlers. Lua states are not safe for concurrent use; the host belongs to
// the shard goroutine along with the entities it touches.
type Host struct {
	factory *StateFactory
	packs   map[string]*loadedPack
	closed  bool
}

// NewHost creates an empty script host.
func NewHost() *Host {
	return &Host{
		factory: NewStateFactory(),
		packs:   make(map[string]*loadedPack),
	}
}

// luaFallthrough is the sentinel string a Lua handler returns to continue
// the handler search instead of committing a value.
const luaFallthrough = "fallthrough"

// LoadDir loads every pack under dir (one subdirectory per pack, each with
// a pack.yaml). Returns the number of packs loaded.
func (h *Host) LoadDir(ctx context.Context, dir string, lookup world.Lookup) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, oops.In("script").With("dir", dir).Hint("failed to read pack directory").Wrap(err)
	}

	loaded := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(packDir, "pack.yaml")); err != nil {
			continue
		}
		if err := h.LoadPack(ctx, packDir, lookup); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// LoadPack loads one pack directory: validates the manifest against the
// schema, runs the entry file in a fresh sandboxed state, and registers the
// declared handlers on their target entities.
func (h *Host) LoadPack(ctx context.Context, dir string, lookup world.Lookup) error {
	if h.closed {
		return oops.In("script").With("dir", dir).New("host is closed")
	}

	manifestPath := filepath.Join(dir, "pack.yaml")
	data, err := os.ReadFile(filepath.Clean(manifestPath))
	if err != nil {
		return oops.In("script").With("path", manifestPath).Hint("failed to read manifest").Wrap(err)
	}

	if err := ValidateSchema(data); err != nil {
		return oops.In("script").With("path", manifestPath).Wrap(err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return oops.In("script").With("path", manifestPath).Wrap(err)
	}

	if _, exists := h.packs[manifest.Name]; exists {
		return oops.In("script").With("pack", manifest.Name).New("pack already loaded")
	}

	grants, err := manifest.Grants()
	if err != nil {
		return oops.In("script").With("pack", manifest.Name).Wrap(err)
	}

	entryPath := filepath.Join(dir, manifest.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return oops.In("script").With("pack", manifest.Name).With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return oops.In("script").With("pack", manifest.Name).Hint("failed to create state").Wrap(err)
	}

	if err := L.DoString(string(code)); err != nil {
		L.Close()
		return oops.In("script").With("pack", manifest.Name).With("entry", manifest.Entry).Hint("script error").Wrap(err)
	}

	pack := &loadedPack{manifest: manifest, grants: grants, state: L}

	// Resolve every binding before attaching any handler, so a broken
	// manifest never leaves a half-registered pack behind.
	type binding struct {
		target  *world.Entity
		handler *world.Handler
	}
	bindings := make([]binding, 0, len(manifest.Handlers))
	for i, decl := range manifest.Handlers {
		target, handler, err := h.bind(pack, decl, lookup)
		if err != nil {
			L.Close()
			return oops.In("script").With("pack", manifest.Name).With("handler", i).Wrap(err)
		}
		bindings = append(bindings, binding{target: target, handler: handler})
	}
	for _, b := range bindings {
		b.target.AddHandler(b.handler)
	}

	h.packs[manifest.Name] = pack
	return nil
}

// bind resolves one declared handler binding.
func (h *Host) bind(pack *loadedPack, decl HandlerDecl, lookup world.Lookup) (*world.Entity, *world.Handler, error) {
	if !Granted(pack.grants, decl.Event) {
		return nil, nil, fmt.Errorf("event %q not covered by pack grants", decl.Event)
	}

	phase, err := parsePhase(decl.Phase)
	if err != nil {
		return nil, nil, err
	}

	ref, err := ulid.Parse(decl.On)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid target ref %q: %w", decl.On, err)
	}
	if lookup == nil {
		return nil, nil, fmt.Errorf("handler target resolution requires a world lookup")
	}
	target, ok := lookup(ref)
	if !ok {
		return nil, nil, fmt.Errorf("handler target %s not found", ref)
	}

	constraints, err := dsl.CompileAll(decl.Constraints)
	if err != nil {
		return nil, nil, err
	}

	fn := decl.Function
	state := pack.state
	handler := &world.Handler{
		Event:       world.Event{Phase: phase, Name: decl.Event},
		Constraints: constraints,
		Body: func(_ context.Context, self *world.Entity, args []value.Value) (world.Outcome, error) {
			return callLua(state, fn, self, args)
		},
	}
	return target, handler, nil
}

// callLua invokes a pack function as a handler body. The function receives
// the observing entity's ref followed by the positional arguments. A nil
// return defers, the string "fallthrough" falls through, anything else
// commits as the handler's value.
func callLua(L *lua.LState, fn string, self *world.Entity, args []value.Value) (world.Outcome, error) {
	callable := L.GetGlobal(fn)
	if callable == lua.LNil {
		return world.Deferred(), fmt.Errorf("function %q not defined", fn)
	}

	luaArgs := make([]lua.LValue, 0, len(args)+1)
	luaArgs = append(luaArgs, lua.LString(self.Ref().String()))
	for _, a := range args {
		luaArgs = append(luaArgs, toLua(L, a))
	}

	if err := L.CallByParam(lua.P{Fn: callable, NRet: 1, Protect: true}, luaArgs...); err != nil {
		return world.Deferred(), fmt.Errorf("call %q: %w", fn, err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	if ret == lua.LNil {
		return world.Deferred(), nil
	}
	if s, ok := ret.(lua.LString); ok && string(s) == luaFallthrough {
		return world.Fallthrough(), nil
	}
	return world.Committed(fromLua(ret)), nil
}

// Packs returns the number of loaded packs.
func (h *Host) Packs() int {
	return len(h.packs)
}

// Close releases every pack's Lua state. The host cannot be reused.
func (h *Host) Close() {
	if h.closed {
		return
	}
	h.closed = true
	for _, p := range h.packs {
		p.state.Close()
	}
	h.packs = make(map[string]*loadedPack)
}
