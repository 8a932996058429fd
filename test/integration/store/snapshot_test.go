// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

//go:build integration

package store_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

const (
	refProto = "01HZN3XS000000000000000001"
	refChild = "01HZN3XS000000000000000002"
	refRoom  = "01HZN3XS0000000000000000R1"
)

var _ = Describe("Snapshot persistence", func() {
	var (
		ctx   context.Context
		index *world.Index
	)

	newEntity := func(ref string, prototype *world.Entity) *world.Entity {
		e, err := world.NewEntity(nil, ulid.MustParse(ref), prototype)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		ExpectWithOffset(1, index.Add(e)).To(Succeed())
		return e
	}

	reload := func() *world.Index {
		restored := world.NewIndex()
		ExpectWithOffset(1, env.snapshots.LoadAll(ctx, restored)).To(Succeed())
		return restored
	}

	BeforeEach(func() {
		ctx = context.Background()
		truncateSnapshots(ctx, env.pool)
		index = world.NewIndex()
	})

	It("round-trips prototype links and local members", func() {
		proto := newEntity(refProto, nil)
		Expect(proto.Set("name", value.String("a door"))).To(Succeed())
		Expect(proto.Set("description", value.String("plain and wooden"))).To(Succeed())

		child := newEntity(refChild, proto)
		Expect(child.Set("name", value.String("the vault door"))).To(Succeed())

		Expect(env.snapshots.SaveAll(ctx, index)).To(Succeed())

		restored := reload()
		Expect(restored.Len()).To(Equal(2))

		rChild, ok := restored.Lookup(ulid.MustParse(refChild))
		Expect(ok).To(BeTrue())
		rProto, ok := restored.Lookup(ulid.MustParse(refProto))
		Expect(ok).To(BeTrue())
		Expect(rChild.Prototype()).To(BeIdenticalTo(rProto))

		v, err := rChild.Get("name")
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Equal(value.String("the vault door"))).To(BeTrue())

		// The override was local; the description still reads through.
		v, err = rChild.Get("description")
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Equal(value.String("plain and wooden"))).To(BeTrue())
	})

	It("keeps inheritance live across a reload", func() {
		proto := newEntity(refProto, nil)
		Expect(proto.Set("description", value.String("before"))).To(Succeed())
		newEntity(refChild, proto)

		Expect(env.snapshots.SaveAll(ctx, index)).To(Succeed())

		restored := reload()
		rProto, _ := restored.Lookup(ulid.MustParse(refProto))
		rChild, _ := restored.Lookup(ulid.MustParse(refChild))

		// The child never materialized the facet, so a prototype edit after
		// the reload is still visible through it.
		Expect(rProto.Set("description", value.String("after"))).To(Succeed())
		v, err := rChild.Get("description")
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Equal(value.String("after"))).To(BeTrue())
	})

	It("persists structured values", func() {
		room := newEntity(refRoom, nil)
		contents := value.List(
			value.Ref(ulid.MustParse(refChild)),
			value.Ref(ulid.MustParse(refProto)),
		)
		Expect(room.Set("contents", contents)).To(Succeed())
		newEntity(refChild, nil)
		newEntity(refProto, nil)

		Expect(env.snapshots.SaveAll(ctx, index)).To(Succeed())

		restored := reload()
		rRoom, _ := restored.Lookup(ulid.MustParse(refRoom))
		v, err := rRoom.Get("contents")
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Equal(contents)).To(BeTrue())
	})

	It("replaces stale members on re-save", func() {
		e := newEntity(refChild, nil)
		Expect(e.Set("name", value.String("first"))).To(Succeed())
		Expect(env.snapshots.Save(ctx, e)).To(Succeed())

		Expect(e.Set("name", value.String("second"))).To(Succeed())
		Expect(env.snapshots.Save(ctx, e)).To(Succeed())

		restored := reload()
		rE, _ := restored.Lookup(ulid.MustParse(refChild))
		v, err := rE.Get("name")
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Equal(value.String("second"))).To(BeTrue())
	})

	It("removes deleted snapshots and their members", func() {
		e := newEntity(refChild, nil)
		Expect(e.Set("name", value.String("doomed"))).To(Succeed())
		Expect(env.snapshots.Save(ctx, e)).To(Succeed())

		Expect(env.snapshots.Delete(ctx, e.Ref())).To(Succeed())

		Expect(reload().Len()).To(BeZero())

		var members int
		Expect(env.pool.QueryRow(ctx,
			"SELECT count(*) FROM entity_members").Scan(&members)).To(Succeed())
		Expect(members).To(BeZero(), "member rows should cascade with the entity")
	})
})
