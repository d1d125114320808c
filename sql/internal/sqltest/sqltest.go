// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqltest holds helpers for testing store queries with sqlmock.
package sqltest

import (
	"database/sql/driver"
	"regexp"
	"strings"
	"unicode"

	"github.com/DATA-DOG/go-sqlmock"
)

// Rows converts a table printed in the sqlite3 box mode to sql.Rows.
// All row values are parsed as text except the "nil" and NULL keywords.
// For example:
//
//	+-----------+-----------+---------------------+
//	| tbl_catg  | tbl_name  | tbl_about           |
//	+-----------+-----------+---------------------+
//	| geo       | geo_place | A place on the map. |
//	| meta      | meta_x    | NULL                |
//	+-----------+-----------+---------------------+
func Rows(table string) *sqlmock.Rows {
	var (
		nc    int
		rows  *sqlmock.Rows
		lines = strings.Split(table, "\n")
	)
	for i := 0; i < len(lines); i++ {
		line := strings.TrimFunc(lines[i], unicode.IsSpace)
		// Skip new lines, header and footer.
		if line == "" || strings.IndexAny(line, "+-") == 0 {
			continue
		}
		columns := strings.FieldsFunc(line, func(r rune) bool {
			return r == '|'
		})
		for i, c := range columns {
			columns[i] = strings.TrimSpace(c)
		}
		if rows == nil {
			nc = len(columns)
			rows = sqlmock.NewRows(columns)
		} else {
			values := make([]driver.Value, nc)
			for i, c := range columns {
				switch c {
				case "", "nil", "NULL":
				default:
					values[i] = c
				}
			}
			rows.AddRow(values...)
		}
	}
	return rows
}

// Escape escapes all regular expression metacharacters in the given query.
// Multi-line statements are joined into one line, as sqlmock matches them.
func Escape(query string) string {
	rows := strings.Split(query, "\n")
	for i := range rows {
		rows[i] = strings.TrimPrefix(rows[i], " ")
	}
	query = strings.Join(rows, " ")
	return strings.TrimSpace(regexp.QuoteMeta(query)) + "$"
}

// Table returns the rows of a sqlite_master lookup: the name and the
// CREATE statement of each given table, in pairs.
func Table(defs ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"name", "sql"})
	for i := 0; i+1 < len(defs); i += 2 {
		rows.AddRow(defs[i], defs[i+1])
	}
	return rows
}
