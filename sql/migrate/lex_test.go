// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStmts(t *testing.T) {
	stmts, err := Stmts(`
-- saskan:table geo_place
CREATE TABLE IF NOT EXISTS geo_place (
  __oid TEXT NOT NULL,
  kind TEXT CHECK (kind IN ('a;b', 'c')),
  note TEXT -- inline comment; not a delimiter
);

-- hello
-- world
INSERT INTO t (a) VALUES ('it''s; fine');

-- skip
-- this

/* one */
INSERT INTO t (a) VALUES ("x")
`)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	require.Equal(t, `CREATE TABLE IF NOT EXISTS geo_place (
  __oid TEXT NOT NULL,
  kind TEXT CHECK (kind IN ('a;b', 'c')),
  note TEXT -- inline comment; not a delimiter
);`, stmts[0].Text)
	require.Equal(t, []string{"-- saskan:table geo_place\n"}, stmts[0].Comments)
	require.Equal(t, []string{"geo_place"}, stmts[0].Directive("table"))
	require.Empty(t, stmts[0].Directive("tab"))

	require.Equal(t, "INSERT INTO t (a) VALUES ('it''s; fine');", stmts[1].Text)
	require.Equal(t, []string{"-- hello\n", "-- world\n"}, stmts[1].Comments)
	require.Empty(t, stmts[1].Directive("table"))

	require.Equal(t, `INSERT INTO t (a) VALUES ("x")`, stmts[2].Text)
	require.Equal(t, []string{"/* one */"}, stmts[2].Comments)
}

func TestStmts_Directive(t *testing.T) {
	stmts, err := Stmts(`--saskan:table a
-- saskan:family pick_one
/*saskan:table b*/
/* saskan:tables not a directive */
SELECT 1;`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Equal(t, []string{"a", "b"}, stmts[0].Directive("table"))
	require.Equal(t, []string{"pick_one"}, stmts[0].Directive("family"))
}

func TestStmts_Errors(t *testing.T) {
	for _, input := range []string{
		"CREATE TABLE t (a TEXT;",
		"SELECT 1);",
		"INSERT INTO t VALUES ('a);",
	} {
		_, err := Stmts(input)
		require.Error(t, err, input)
	}
	stmts, err := Stmts("  \n-- only comments\n;;")
	require.NoError(t, err)
	require.Empty(t, stmts)
}
