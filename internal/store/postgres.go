// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

// Package store persists entity snapshots to PostgreSQL. It is a
// collaborator of the object runtime: it reads and writes entities only
// through the generic member access surface, never through facet
// internals. Immutable facet data is world-definition material owned by
// seed files and is not snapshotted.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/embermush/embermush/internal/facet"
	"github.com/embermush/embermush/internal/value"
	"github.com/embermush/embermush/internal/world"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// unit tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// SnapshotStore reads and writes entity snapshots.
type SnapshotStore struct {
	db  DB
	reg *facet.Registry
}

// NewSnapshotStore creates a store over an existing connection. A nil
// registry selects the shared default.
func NewSnapshotStore(db DB, reg *facet.Registry) *SnapshotStore {
	if reg == nil {
		reg = facet.SharedRegistry()
	}
	return &SnapshotStore{db: db, reg: reg}
}

// Connect establishes a pooled connection, retrying transient failures with
// fibonacci backoff. Configuration errors are not retried.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	backoff := retry.NewFibonacci(500 * time.Millisecond)
	backoff = retry.WithMaxRetries(5, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.In("store").With("operation", "connect").Wrap(err)
	}
	return pool, nil
}

// Close releases the underlying connection.
func (s *SnapshotStore) Close() {
	s.db.Close()
}

// IsUniqueViolation reports whether the error is a unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Save snapshots one entity: its prototype reference and the members of its
// locally materialized mutable facets. Inherited state is not written, so
// prototype inheritance survives a reload.
func (s *SnapshotStore) Save(ctx context.Context, e *world.Entity) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return oops.In("store").With("ref", e.Ref().String()).Hint("begin transaction").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var protoRef *string
	if p := e.Prototype(); p != nil {
		s := p.Ref().String()
		protoRef = &s
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO entities (ref, prototype_ref) VALUES ($1, $2)
		 ON CONFLICT (ref) DO UPDATE SET prototype_ref = EXCLUDED.prototype_ref`,
		e.Ref().String(), protoRef,
	); err != nil {
		return oops.In("store").With("ref", e.Ref().String()).Hint("upsert entity").Wrap(err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM entity_members WHERE ref = $1`, e.Ref().String(),
	); err != nil {
		return oops.In("store").With("ref", e.Ref().String()).Hint("clear members").Wrap(err)
	}

	for _, f := range e.LocalFacets() {
		if !f.Mutable() {
			continue
		}
		for _, member := range s.reg.Members(f.FacetType()) {
			v, err := e.Get(member)
			if err != nil {
				return oops.In("store").With("ref", e.Ref().String()).With("member", member).Wrap(err)
			}
			data, err := json.Marshal(v)
			if err != nil {
				return oops.In("store").With("ref", e.Ref().String()).With("member", member).Hint("marshal value").Wrap(err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO entity_members (ref, member, value) VALUES ($1, $2, $3)`,
				e.Ref().String(), member, data,
			); err != nil {
				return oops.In("store").With("ref", e.Ref().String()).With("member", member).Hint("insert member").Wrap(err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.In("store").With("ref", e.Ref().String()).Hint("commit").Wrap(err)
	}
	return nil
}

// SaveAll snapshots every entity in the index in deterministic ref order.
func (s *SnapshotStore) SaveAll(ctx context.Context, index *world.Index) error {
	for _, ref := range index.Refs() {
		e, ok := index.Lookup(ref)
		if !ok {
			continue
		}
		if err := s.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an entity snapshot and its members.
func (s *SnapshotStore) Delete(ctx context.Context, ref ulid.ULID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM entities WHERE ref = $1`, ref.String()); err != nil {
		return oops.In("store").With("ref", ref.String()).Hint("delete entity").Wrap(err)
	}
	return nil
}

// LoadAll restores every snapshot into the index. Entities are created
// first, prototype references linked second (so order of rows does not
// matter), and member values applied last through the generic Set surface.
// A member that no longer converts is logged and skipped; the entity keeps
// its defaults for that member.
func (s *SnapshotStore) LoadAll(ctx context.Context, index *world.Index) error {
	rows, err := s.db.Query(ctx, `SELECT ref, prototype_ref FROM entities ORDER BY ref`)
	if err != nil {
		return oops.In("store").Hint("query entities").Wrap(err)
	}

	type row struct {
		ref   ulid.ULID
		proto *ulid.ULID
	}
	var loaded []row
	for rows.Next() {
		var refStr string
		var protoStr *string
		if err := rows.Scan(&refStr, &protoStr); err != nil {
			rows.Close()
			return oops.In("store").Hint("scan entity row").Wrap(err)
		}
		ref, err := ulid.Parse(refStr)
		if err != nil {
			rows.Close()
			return oops.In("store").With("ref", refStr).Hint("corrupt entity ref").Wrap(err)
		}
		r := row{ref: ref}
		if protoStr != nil {
			proto, err := ulid.Parse(*protoStr)
			if err != nil {
				rows.Close()
				return oops.In("store").With("ref", refStr).Hint("corrupt prototype ref").Wrap(err)
			}
			r.proto = &proto
		}
		loaded = append(loaded, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return oops.In("store").Hint("iterate entity rows").Wrap(err)
	}

	for _, r := range loaded {
		e, err := world.NewEntity(s.reg, r.ref, nil)
		if err != nil {
			return oops.In("store").With("ref", r.ref.String()).Wrap(err)
		}
		if err := index.Add(e); err != nil {
			return oops.In("store").With("ref", r.ref.String()).Wrap(err)
		}
	}

	for _, r := range loaded {
		if r.proto == nil {
			continue
		}
		e, _ := index.Lookup(r.ref)
		proto, ok := index.Lookup(*r.proto)
		if !ok {
			return oops.In("store").With("ref", r.ref.String()).With("prototype", r.proto.String()).New("prototype snapshot missing")
		}
		if err := e.SetPrototype(proto); err != nil {
			return oops.In("store").With("ref", r.ref.String()).Wrap(err)
		}
	}

	memberRows, err := s.db.Query(ctx, `SELECT ref, member, value FROM entity_members ORDER BY ref, member`)
	if err != nil {
		return oops.In("store").Hint("query members").Wrap(err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var refStr, member string
		var data []byte
		if err := memberRows.Scan(&refStr, &member, &data); err != nil {
			return oops.In("store").Hint("scan member row").Wrap(err)
		}
		ref, err := ulid.Parse(refStr)
		if err != nil {
			return oops.In("store").With("ref", refStr).Hint("corrupt member ref").Wrap(err)
		}
		e, ok := index.Lookup(ref)
		if !ok {
			slog.Warn("member snapshot for unknown entity, skipping", "ref", refStr, "member", member)
			continue
		}
		var v value.Value
		if err := json.Unmarshal(data, &v); err != nil {
			slog.Warn("member snapshot does not decode, skipping",
				"ref", refStr, "member", member, "error", err)
			continue
		}
		if err := e.Set(member, v); err != nil {
			slog.Warn("member snapshot no longer converts, keeping default",
				"ref", refStr, "member", member, "error", err)
		}
	}
	if err := memberRows.Err(); err != nil {
		return oops.In("store").Hint("iterate member rows").Wrap(err)
	}

	return nil
}
