// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlite implements the embedded store of the generated schema:
// opening the store file, emitting the DDL/DML artifacts in the SQLite
// dialect, and reading the schema back from a built store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"golang.org/x/mod/semver"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DriverName holds the name used for registration.
const DriverName = "sqlite"

// MinVersion is the oldest SQLite version that supports the generated
// schema (CHECK constraints and "CREATE TABLE IF NOT EXISTS" semantics
// used by the artifacts).
const MinVersion = "3.8.3"

type (
	// Driver represents an opened SQLite store.
	Driver struct {
		conn
		db *sql.DB // Owned handle, if opened by OpenFile.
	}

	// database connection and its information.
	conn struct {
		schema.ExecQuerier
		// System variables that are set on `Open`.
		fkEnabled bool
		version   string
	}
)

// Open opens a new SQLite driver over the given connection. An error
// is returned if the store version is older than MinVersion.
func Open(ctx context.Context, db schema.ExecQuerier) (*Driver, error) {
	c := conn{ExecQuerier: db}
	if err := queryRow(ctx, db, "SELECT sqlite_version()", &c.version); err != nil {
		return nil, fmt.Errorf("sqlite: scanning database version: %w", err)
	}
	if semver.Compare("v"+c.version, "v"+MinVersion) < 0 {
		return nil, fmt.Errorf("sqlite: unsupported version %q, expect %s or above", c.version, MinVersion)
	}
	if err := queryRow(ctx, db, "PRAGMA foreign_keys", &c.fkEnabled); err != nil {
		return nil, fmt.Errorf("sqlite: check foreign_keys pragma: %w", err)
	}
	return &Driver{conn: c}, nil
}

// OpenFile opens the store file at the given path with the embedded
// SQLite driver. The parent directory must exist. If create is false,
// the store file must exist too, else a FileAccessError is returned.
func OpenFile(ctx context.Context, path string, create bool) (*Driver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &schema.FileAccessError{Path: path, Err: errors.New("store path is required")}
	}
	clean := filepath.Clean(path)
	if _, err := os.Stat(filepath.Dir(clean)); err != nil {
		return nil, &schema.FileAccessError{Path: clean, Err: err}
	}
	if !create {
		if _, err := os.Stat(clean); err != nil {
			return nil, &schema.FileAccessError{Path: clean, Err: err}
		}
	}
	db, err := sql.Open(DriverName, DSN(clean))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &schema.FileAccessError{Path: clean, Err: err}
	}
	drv, err := Open(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	drv.db = db
	return drv, nil
}

// DSN returns the data source name of the store file at the given path.
func DSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// DB returns the handle opened by OpenFile, or nil.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Version returns the version of the connected store.
func (d *Driver) Version() string {
	return d.version
}

// ForeignKeys reports if foreign key enforcement is enabled on the connection.
func (d *Driver) ForeignKeys() bool {
	return d.fkEnabled
}

// Close closes the handle opened by OpenFile. It is a no-op for
// drivers created with Open.
func (d *Driver) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// IsConstraintError reports if the error was caused by a violated
// CHECK, NOT NULL, PRIMARY KEY or UNIQUE constraint.
func IsConstraintError(err error) bool {
	var e *msqlite.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_CHECK, sqlite3lib.SQLITE_CONSTRAINT_NOTNULL,
		sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func queryRow(ctx context.Context, db schema.ExecQuerier, query string, dest any) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(dest); err != nil {
		return err
	}
	return rows.Close()
}
