// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/embermush/embermush/internal/facet"
	"github.com/embermush/embermush/internal/script"
	"github.com/embermush/embermush/internal/seed"
	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

const (
	refVaultProto = "01HZN3XS0000000000000000P1"
	refVaultDoor  = "01HZN3XS0000000000000000D1"
	refPlainDoor  = "01HZN3XS0000000000000000D2"
	refGuard      = "01HZN3XS0000000000000000G1"
	refRoom       = "01HZN3XS0000000000000000R1"
	refPlayer     = "01HZN3XS0000000000000000A1"
)

// The full pipeline: a seeded world, a script pack bound to a seeded
// entity, and the event protocol running over both.
const worldSeed = `
entities:
  - ref: ` + refVaultProto + `
    archetype:
      kind: scenery
      tags: [openable, secured]
    members:
      name: "a vault door"
      description: "a slab of riveted iron"
  - ref: ` + refVaultDoor + `
    prototype: ` + refVaultProto + `
    members:
      name: "the vault door"
  - ref: ` + refPlainDoor + `
    members:
      name: "a plain door"
  - ref: ` + refGuard + `
    members:
      name: "the guard"
  - ref: ` + refPlayer + `
    members:
      name: "a wary adventurer"
  - ref: ` + refRoom + `
    members:
      name: "the antechamber"
      contents: ["#` + refVaultDoor + `", "#` + refPlainDoor + `", "#` + refGuard + `"]
`

// The guard objects to any door descended from the vault prototype. The
// constraint scopes the binding; the function itself is unconditional.
const guardManifest = `
name: vault-guard
version: 1.0.0
engine: ">= 0.4.0, < 1.0.0"
entry: main.lua
events:
  - open
handlers:
  - phase: allow
    event: open
    on: ` + refGuard + `
    function: guard_allow
    constraints:
      - proto(` + refVaultProto + `)
`

const guardScript = `
function guard_allow(self, target)
  return false
end
`

var _ = Describe("Door opening protocol", func() {
	var (
		ctx        context.Context
		index      *world.Index
		dispatcher *world.Dispatcher
		room       *world.Entity
		player     *world.Entity
	)

	lookupEntity := func(ref string) *world.Entity {
		e, ok := index.Lookup(ulid.MustParse(ref))
		ExpectWithOffset(1, ok).To(BeTrue(), "entity %s should be seeded", ref)
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()

		dir := GinkgoT().TempDir()
		seedPath := filepath.Join(dir, "world.yaml")
		Expect(os.WriteFile(seedPath, []byte(worldSeed), 0o600)).To(Succeed())

		f, err := seed.Parse(seedPath)
		Expect(err).NotTo(HaveOccurred())

		index = world.NewIndex()
		Expect(seed.Apply(f, nil, index)).To(Succeed())

		packDir := filepath.Join(dir, "packs", "vault-guard")
		Expect(os.MkdirAll(packDir, 0o750)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(packDir, "pack.yaml"), []byte(guardManifest), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(packDir, "main.lua"), []byte(guardScript), 0o600)).To(Succeed())

		host := script.NewHost()
		DeferCleanup(host.Close)
		loaded, err := host.LoadDir(ctx, filepath.Join(dir, "packs"), index.Lookup)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(1))

		dispatcher = world.NewDispatcher(index.Lookup)
		room = lookupEntity(refRoom)
		player = lookupEntity(refPlayer)
	})

	openDoor := func(doorRef string) (bool, int) {
		effects := 0
		proceeded := dispatcher.Trigger(ctx, "open", room,
			[]*world.Entity{player},
			[]value.Value{value.Ref(ulid.MustParse(doorRef))},
			func(context.Context) error {
				effects++
				return nil
			})
		return proceeded, effects
	}

	It("runs the effect when no observer objects", func() {
		proceeded, effects := openDoor(refPlainDoor)
		Expect(proceeded).To(BeTrue())
		Expect(effects).To(Equal(1))
	})

	It("lets the guard veto the vault door before the effect", func() {
		proceeded, effects := openDoor(refVaultDoor)
		Expect(proceeded).To(BeFalse())
		Expect(effects).To(BeZero())
	})

	It("scopes the guard's veto to descendants of the vault prototype", func() {
		// The guard observes both openings; only the constrained one sticks.
		proceeded, _ := openDoor(refPlainDoor)
		Expect(proceeded).To(BeTrue())

		proceeded, _ = openDoor(refVaultDoor)
		Expect(proceeded).To(BeFalse())
	})

	It("keeps vetoing after a handler has already run", func() {
		for range 3 {
			proceeded, effects := openDoor(refVaultDoor)
			Expect(proceeded).To(BeFalse())
			Expect(effects).To(BeZero())
		}
	})

	Describe("seeded world definition", func() {
		It("inherits members down the prototype chain", func() {
			door := lookupEntity(refVaultDoor)

			v, err := door.Get("name")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Equal(value.String("the vault door"))).To(BeTrue())

			v, err = door.Get("description")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Equal(value.String("a slab of riveted iron"))).To(BeTrue())
		})

		It("exposes archetype data read-only", func() {
			door := lookupEntity(refVaultDoor)

			v, err := door.Get("kind")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Equal(value.String("scenery"))).To(BeTrue())

			err = door.Set("kind", value.String("portal"))
			Expect(err).To(MatchError(facet.ErrImmutableMember))
		})

		It("writes through copy-on-first-write without touching the prototype", func() {
			door := lookupEntity(refVaultDoor)
			proto := lookupEntity(refVaultProto)

			Expect(door.Set("description", value.String("scorched and dented"))).To(Succeed())

			v, err := door.Get("description")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Equal(value.String("scorched and dented"))).To(BeTrue())

			v, err = proto.Get("description")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Equal(value.String("a slab of riveted iron"))).To(BeTrue())
		})
	})
})
