// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/genuinemerit/saskan-app-sub000/sql/internal/sqltest"
	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	entries []migrate.LogEntry
}

func (m *mockLogger) Log(e migrate.LogEntry) { m.entries = append(m.entries, e) }

func TestNewExecutor(t *testing.T) {
	_, err := migrate.NewExecutor(nil, &migrate.MemDir{})
	require.EqualError(t, err, "sql/migrate: no store connection given")
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = migrate.NewExecutor(db, nil)
	require.EqualError(t, err, "sql/migrate: no dir given")
	ex, err := migrate.NewExecutor(db, &migrate.MemDir{})
	require.NoError(t, err)
	require.NotNil(t, ex)
}

func TestExecutor_Create(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	var (
		dir migrate.MemDir
		log mockLogger
	)
	ddl := "CREATE TABLE IF NOT EXISTS geo_place (\n  __oid TEXT NOT NULL\n);"
	require.NoError(t, dir.WriteFile("create_geo_place.sql", []byte("-- saskan:table geo_place\n"+ddl+"\n")))
	ex, err := migrate.NewExecutor(db, &dir, migrate.WithLogger(&log))
	require.NoError(t, err)

	m.ExpectBegin()
	m.ExpectExec(sqltest.Escape(ddl)).WillReturnResult(sqlmock.NewResult(0, 0))
	m.ExpectCommit()
	require.NoError(t, ex.Create(context.Background(), "geo_place"))
	require.NoError(t, m.ExpectationsWereMet())
	require.Equal(t, []migrate.LogEntry{
		migrate.LogTable{Table: "geo_place", Phase: migrate.PhaseCreate, File: "create_geo_place.sql"},
		migrate.LogStmt{Table: "geo_place", SQL: ddl},
		migrate.LogDone{Table: "geo_place", Phase: migrate.PhaseCreate, Stmts: 1},
	}, log.entries)
}

func TestExecutor_CreateFails(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	var dir migrate.MemDir
	require.NoError(t, dir.WriteFile("create_t.sql", []byte("CREATE TABLE t (c TEXT CHECK (c <>));\nCREATE INDEX i ON t (c);")))
	ex, err := migrate.NewExecutor(db, &dir)
	require.NoError(t, err)

	boom := errors.New("near \")\": syntax error")
	m.ExpectBegin()
	m.ExpectExec(sqltest.Escape("CREATE TABLE t (c TEXT CHECK (c <>));")).WillReturnError(boom)
	m.ExpectRollback()
	err = ex.Create(context.Background(), "t")
	require.True(t, schema.IsExecutionError(err))
	require.ErrorIs(t, err, boom)
	// The second statement is never attempted.
	require.NoError(t, m.ExpectationsWereMet())
}

func TestExecutor_Seed(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	var (
		dir migrate.MemDir
		log mockLogger
	)
	require.NoError(t, dir.WriteFile("insert_t.sql", []byte(`INSERT INTO t (c) VALUES ('a');
INSERT INTO t (c) VALUES ('b');
INSERT INTO t (c) VALUES ('c');
`)))
	ex, err := migrate.NewExecutor(db, &dir, migrate.WithLogger(&log))
	require.NoError(t, err)

	boom := errors.New("constraint failed")
	m.ExpectBegin()
	m.ExpectExec(sqltest.Escape("INSERT INTO t (c) VALUES ('a');")).WillReturnResult(sqlmock.NewResult(1, 1))
	m.ExpectExec(sqltest.Escape("INSERT INTO t (c) VALUES ('b');")).WillReturnError(boom)
	m.ExpectExec(sqltest.Escape("INSERT INTO t (c) VALUES ('c');")).WillReturnResult(sqlmock.NewResult(2, 1))
	m.ExpectCommit()
	err = ex.Seed(context.Background(), "t")
	var exErr *schema.ExecutionError
	require.ErrorAs(t, err, &exErr)
	require.Equal(t, "t", exErr.Table)
	require.Equal(t, "seed", exErr.Phase)
	require.Len(t, exErr.Stmts, 1)
	require.Equal(t, "INSERT INTO t (c) VALUES ('b');", exErr.Stmts[0].Stmt)
	require.NoError(t, m.ExpectationsWereMet())
	require.Contains(t, log.entries, migrate.LogDone{Table: "t", Phase: migrate.PhaseSeed, Stmts: 3, Failed: 1})
	require.Contains(t, log.entries, migrate.LogError{Table: "t", Phase: migrate.PhaseSeed, SQL: "INSERT INTO t (c) VALUES ('b');", Error: boom})
}

func TestExecutor_Artifacts(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	var dir migrate.MemDir
	ex, err := migrate.NewExecutor(db, &dir)
	require.NoError(t, err)

	// Missing artifact.
	err = ex.Seed(context.Background(), "t")
	require.True(t, schema.IsFileAccessError(err))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), "mem://insert_t.sql")

	// Artifact of another table.
	require.NoError(t, dir.WriteFile("create_t.sql", []byte("-- saskan:table x\nCREATE TABLE x (c TEXT);")))
	err = ex.Create(context.Background(), "t")
	require.True(t, schema.IsFileAccessError(err))
	require.NotErrorIs(t, err, fs.ErrNotExist)

	// Malformed artifact.
	require.NoError(t, dir.WriteFile("create_t.sql", []byte("CREATE TABLE t (c TEXT")))
	err = ex.Create(context.Background(), "t")
	require.True(t, schema.IsExecutionError(err))

	// Store is not reachable.
	require.NoError(t, dir.WriteFile("create_t.sql", []byte("CREATE TABLE t (c TEXT);")))
	m.ExpectBegin().WillReturnError(sql.ErrConnDone)
	err = ex.Create(context.Background(), "t")
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.False(t, schema.IsExecutionError(err))
	require.NoError(t, m.ExpectationsWereMet())
}
