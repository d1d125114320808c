// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ExecQuerier wraps the standard sql.DB methods.
type ExecQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type (
	// ColumnMeta describes a stored column as it is read back from the store.
	ColumnMeta struct {
		Name     string
		Label    string // Human readable name.
		Type     string // Declared SQL type.
		Def      string // Full column definition text.
		About    string // Column comment, if any.
		Kind     ColumnKind
		Nullable bool
		Primary  bool
		Check    string // Raw CHECK expression, if any.
		Rule     Rule   // Nil if the column has no parseable CHECK rule.
	}

	// Rule is a CHECK constraint rule recognized by the introspector.
	// The set of rules is closed: Enum, Length and Range.
	Rule interface {
		rule()
		// Text returns a human readable rendering of the rule.
		Text() string
	}

	// Enum requires the value to be one of Values.
	Enum struct {
		Expr   string
		Values []string
	}

	// Length requires the value to have exactly N characters.
	Length struct {
		Expr string
		N    int
	}

	// Range requires the value to be in [Min, Max].
	Range struct {
		Expr     string
		Min, Max string
	}

	// An Edge is a documented link resolved for a given column.
	Edge struct {
		Type       LinkType
		FromTable  string
		FromColumn string
		ToTable    string
		ToColumn   string
	}

	// Introspector is the interface implemented by the drivers for reading
	// the generated schema back from a built store.
	Introspector interface {
		// Categories returns the distinct table categories.
		Categories(ctx context.Context) ([]string, error)

		// Tables returns the table names of the given category.
		Tables(ctx context.Context, category string) ([]string, error)

		// Columns returns the columns of the given table. A NotExistError
		// is returned if the table does not exist in the store.
		Columns(ctx context.Context, table string) ([]*ColumnMeta, error)

		// About returns the description of the given table.
		About(ctx context.Context, table string) (string, error)

		// Edges returns the documented links of the given table column.
		Edges(ctx context.Context, table, column string) ([]*Edge, error)
	}
)

func (*Enum) rule()   {}
func (*Length) rule() {}
func (*Range) rule()  {}

// Text implements Rule.
func (r *Enum) Text() string {
	return "One of: " + strings.Join(r.Values, ", ")
}

// Text implements Rule.
func (r *Length) Text() string {
	return fmt.Sprintf("Length is %d", r.N)
}

// Text implements Rule.
func (r *Range) Text() string {
	return fmt.Sprintf("Range is %s to %s", r.Min, r.Max)
}
