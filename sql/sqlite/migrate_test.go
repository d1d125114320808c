// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)

func newEmitter(t *testing.T, c *schema.Conventions) (*Emitter, *migrate.MemDir) {
	var (
		n   int
		dir = &migrate.MemDir{}
	)
	e, err := NewEmitter(dir, c, WithClock(func() time.Time { return clock }), WithIDs(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}))
	require.NoError(t, err)
	return e, dir
}

func pickOne(t *testing.T, c *schema.Conventions) *schema.TableSpec {
	audit, err := c.AuditColumns()
	require.NoError(t, err)
	cols := c.KeyColumns()
	for _, n := range []string{"tbl_from", "col_schema_from", "col_db_from", "option"} {
		cols = append(cols, &schema.Column{Name: n, Type: "TEXT", Constraint: "NOT NULL"})
	}
	return &schema.TableSpec{
		Name:     "meta_pick_one",
		Category: "meta",
		Family:   schema.FamilyPickOne,
		Columns:  append(cols, audit...),
		Seed: []schema.Row{
			{"geo_place", "region", "_fk_region_meta_pick_one", "north"},
			{"geo_place", "region", "_fk_region_meta_pick_one", "o'hara"},
		},
	}
}

func TestEmitter_CreateTable(t *testing.T) {
	e, _ := newEmitter(t, schema.DefaultConventions())
	tbl := &schema.TableSpec{
		Name: "geo_place",
		Columns: []*schema.Column{
			{Name: "__oid", Type: "TEXT", Constraint: "NOT NULL", Kind: schema.KindKey},
			{Name: "__uid", Type: "TEXT", Constraint: "NOT NULL PRIMARY KEY", Kind: schema.KindKey},
			{Name: "code", Type: "TEXT", Check: &schema.Check{Expr: "length(code) = 3"}},
		},
	}
	require.Equal(t, `CREATE TABLE IF NOT EXISTS geo_place (
  __oid TEXT NOT NULL,
  __uid TEXT NOT NULL PRIMARY KEY,
  code TEXT CHECK (length(code) = 3)
);`, e.CreateTable(tbl))
}

func TestEmitter_CreateTableAbout(t *testing.T) {
	e, _ := newEmitter(t, schema.DefaultConventions())
	tbl := &schema.TableSpec{
		Name: "geo_place",
		Columns: []*schema.Column{
			{Name: "__uid", Type: "TEXT", Constraint: "NOT NULL PRIMARY KEY", Kind: schema.KindKey},
			{Name: "code", Type: "TEXT", About: "Three letter code,\n(upper case)."},
			{Name: "name", Type: "TEXT", About: "Name; it's unique."},
		},
	}
	require.Equal(t, `CREATE TABLE IF NOT EXISTS geo_place (
  __uid TEXT NOT NULL PRIMARY KEY,
  -- Three letter code, (upper case).
  code TEXT,
  -- Name; it's unique.
  name TEXT
);`, e.CreateTable(tbl))
}

func TestEmitter_Inserts(t *testing.T) {
	c := schema.DefaultConventions()
	e, _ := newEmitter(t, c)
	tbl := pickOne(t, c)
	stmts, err := e.Inserts(tbl)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	sum := sha256.Sum256([]byte("geo_place\x1fregion\x1f_fk_region_meta_pick_one\x1fnorth"))
	require.Equal(t, "INSERT INTO meta_pick_one (__oid, __uid, tbl_from, col_schema_from, col_db_from, option, _a_create_ts, _a_remove_ts, _a_update_ts, _a_hash) "+
		"VALUES ('id1', 'id2', 'geo_place', 'region', '_fk_region_meta_pick_one', 'north', '2024-03-09T12:30:00Z', NULL, '2024-03-09T12:30:00Z', '"+hex.EncodeToString(sum[:])+"');", stmts[0])
	// Literals are escaped.
	require.Contains(t, stmts[1], "'o''hara'")
	require.Contains(t, stmts[1], "'id3', 'id4'")

	tbl.Seed = append(tbl.Seed, schema.Row{"geo_place"})
	_, err = e.Inserts(tbl)
	require.True(t, schema.IsConfigurationError(err))
	require.Contains(t, err.Error(), "seed row 2 has 1 values, expect 4")
}

func TestEmitter_Hash(t *testing.T) {
	for algo, size := range map[string]int{schema.HashSHA1: 40, schema.HashSHA256: 64, schema.HashSHA512: 128} {
		c := schema.DefaultConventions()
		c.HashAlgo = algo
		e, _ := newEmitter(t, c)
		h1, err := e.Hash(schema.Row{"a", "b"})
		require.NoError(t, err)
		require.Len(t, h1, size)
		h2, err := e.Hash(schema.Row{"a", "b"})
		require.NoError(t, err)
		require.Equal(t, h1, h2)
		h3, err := e.Hash(schema.Row{"ab", ""})
		require.NoError(t, err)
		require.NotEqual(t, h1, h3)
	}
	c := schema.DefaultConventions()
	c.HashAlgo = "md5"
	_, err := NewEmitter(&migrate.MemDir{}, c)
	require.Error(t, err)
}

func TestEmitter_Emit(t *testing.T) {
	c := schema.DefaultConventions()
	e, dir := newEmitter(t, c)
	tbl := pickOne(t, c)
	names, err := e.Emit(tbl)
	require.NoError(t, err)
	require.Equal(t, []string{"create_meta_pick_one.sql", "insert_meta_pick_one.sql"}, names)

	b, err := dir.ReadFile("create_meta_pick_one.sql")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "-- saskan:table meta_pick_one\n-- saskan:family pick_one\nCREATE TABLE IF NOT EXISTS meta_pick_one (\n"))
	stmts, err := migrate.Stmts(string(b))
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Equal(t, []string{"meta_pick_one"}, stmts[0].Directive("table"))

	b, err = dir.ReadFile("insert_meta_pick_one.sql")
	require.NoError(t, err)
	stmts, err = migrate.Stmts(string(b))
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0].Text, "'north'")

	// Re-emitting without seed rows drops the stale DML artifact.
	tbl.Seed = nil
	names, err = e.Emit(tbl)
	require.NoError(t, err)
	require.Equal(t, []string{"create_meta_pick_one.sql"}, names)
	all, err := dir.Names()
	require.NoError(t, err)
	require.Equal(t, []string{"create_meta_pick_one.sql"}, all)
}

func TestEmitter_ULID(t *testing.T) {
	e, err := NewEmitter(&migrate.MemDir{}, schema.DefaultConventions(), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)
	seen := make(map[string]bool)
	var last string
	for i := 0; i < 100; i++ {
		id := e.newID()
		_, err := ulid.ParseStrict(id)
		require.NoError(t, err)
		require.False(t, seen[id])
		require.Greater(t, id, last)
		seen[id], last = true, id
	}
}
