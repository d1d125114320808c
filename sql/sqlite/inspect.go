// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/genuinemerit/saskan-app-sub000/sql/internal/sqlx"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
	"github.com/genuinemerit/saskan-app-sub000/sql/sqlspec"

	"github.com/go-openapi/inflect"
)

// Inspector reads the generated schema back from a built store. The table
// definitions are loaded on first successful use, and parsed on demand.
// It is safe for concurrent use.
type Inspector struct {
	db schema.ExecQuerier
	c  *schema.Conventions

	load sync.Mutex
	defs map[string]string // Table name to its CREATE statement. Nil until loaded.

	mu   sync.RWMutex
	cols map[string][]*schema.ColumnMeta
}

var _ schema.Introspector = (*Inspector)(nil)

// NewInspector returns an Inspector for the given store.
func NewInspector(db schema.ExecQuerier, c *schema.Conventions) *Inspector {
	return &Inspector{db: db, c: c, cols: make(map[string][]*schema.ColumnMeta)}
}

// Query to list tables and their definitions.
const tablesQuery = "SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"

// definitions returns the table definitions of the store. A failed
// load is not cached and is retried by the next call.
func (i *Inspector) definitions(ctx context.Context) (map[string]string, error) {
	i.load.Lock()
	defer i.load.Unlock()
	if i.defs != nil {
		return i.defs, nil
	}
	rows, err := i.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query tables: %w", err)
	}
	defer rows.Close()
	defs := make(map[string]string)
	for rows.Next() {
		var (
			name string
			def  sql.NullString
		)
		if err := rows.Scan(&name, &def); err != nil {
			return nil, fmt.Errorf("sqlite: scan table definition: %w", err)
		}
		defs[name] = def.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan table definitions: %w", err)
	}
	i.defs = defs
	return defs, nil
}

// Definition returns the stored CREATE statement of the given table.
func (i *Inspector) Definition(ctx context.Context, table string) (string, error) {
	defs, err := i.definitions(ctx)
	if err != nil {
		return "", err
	}
	def, ok := defs[table]
	if !ok {
		return "", &schema.NotExistError{Err: fmt.Errorf("sqlite: table %q was not found", table)}
	}
	return def, nil
}

// Columns returns the ordered column descriptors of the given table.
func (i *Inspector) Columns(ctx context.Context, table string) ([]*schema.ColumnMeta, error) {
	i.mu.RLock()
	cols, ok := i.cols[table]
	i.mu.RUnlock()
	if ok {
		return cols, nil
	}
	def, err := i.Definition(ctx, table)
	if err != nil {
		return nil, err
	}
	if cols, err = i.parse(def); err != nil {
		return nil, fmt.Errorf("sqlite: parse definition of %q: %w", table, err)
	}
	i.mu.Lock()
	i.cols[table] = cols
	i.mu.Unlock()
	return cols, nil
}

// Categories returns the distinct categories of the documented tables.
func (i *Inspector) Categories(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %[1]s", sqlspec.ColTblCatg, i.about()))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query categories: %w", err)
	}
	return sqlx.ScanStrings(rows)
}

// Tables returns the names of the documented tables of the given category.
func (i *Inspector) Tables(ctx context.Context, category string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %[1]s", sqlspec.ColTblName, i.about(), sqlspec.ColTblCatg), category)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query tables: %w", err)
	}
	return sqlx.ScanStrings(rows)
}

// About returns the description of the given table.
func (i *Inspector) About(ctx context.Context, table string) (string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", sqlspec.ColTblAbout, i.about(), sqlspec.ColTblName), table)
	if err != nil {
		return "", fmt.Errorf("sqlite: query about: %w", err)
	}
	vs, err := sqlx.ScanStrings(rows)
	if err != nil {
		return "", err
	}
	if len(vs) == 0 {
		return "", &schema.NotExistError{Err: fmt.Errorf("sqlite: table %q is not documented", table)}
	}
	return vs[0], nil
}

// Edges returns the documented links of the given column. For key
// columns, all incoming links are returned. For other columns, the
// outgoing link is returned, if any. Link columns may be given by
// their stored or declared name.
func (i *Inspector) Edges(ctx context.Context, table, column string) ([]*schema.Edge, error) {
	cols, err := i.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	var col *schema.ColumnMeta
	for _, c := range cols {
		if c.Name == column {
			col = c
		}
	}
	var (
		b    = &strings.Builder{}
		args []any
	)
	fmt.Fprintf(b, "SELECT %s, %s, %s, %s, %s FROM %s WHERE ",
		sqlspec.ColLinkType, sqlspec.ColTblFrom, sqlspec.ColColDBFrom, sqlspec.ColTblTo, sqlspec.ColColTo, i.c.MustMetaTable(schema.FamilyForeignKey))
	// Declared attribute names are resolved by the outgoing link.
	if col != nil && col.Kind == schema.KindKey {
		fmt.Fprintf(b, "%s = ? AND %s = ? ORDER BY %s, %s", sqlspec.ColTblTo, sqlspec.ColColTo, sqlspec.ColTblFrom, sqlspec.ColColDBFrom)
		args = append(args, table, column)
	} else {
		fmt.Fprintf(b, "%s = ? AND (%s = ? OR %s = ?) LIMIT 1", sqlspec.ColTblFrom, sqlspec.ColColDBFrom, sqlspec.ColColSchemaFrom)
		args = append(args, table, column, column)
	}
	rows, err := i.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query edges: %w", err)
	}
	defer rows.Close()
	var edges []*schema.Edge
	for rows.Next() {
		var (
			e   schema.Edge
			typ string
		)
		if err := rows.Scan(&typ, &e.FromTable, &e.FromColumn, &e.ToTable, &e.ToColumn); err != nil {
			return nil, fmt.Errorf("sqlite: scan edge: %w", err)
		}
		e.Type = schema.LinkType(typ)
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if col == nil && len(edges) == 0 {
		return nil, &schema.NotExistError{Err: fmt.Errorf("sqlite: column %q was not found in table %q", column, table)}
	}
	return edges, nil
}

func (i *Inspector) about() string {
	return i.c.MustMetaTable(schema.FamilyAbout)
}

// parse parses the column definitions of a CREATE TABLE statement.
func (i *Inspector) parse(def string) ([]*schema.ColumnMeta, error) {
	body, err := sqlx.Body(def)
	if err != nil {
		return nil, err
	}
	var cols []*schema.ColumnMeta
	for _, part := range sqlx.SplitComma(body) {
		about, part := sqlx.LeadingComments(part)
		fields := strings.Fields(part)
		// Table constraints.
		if len(fields) == 0 || isKeyword(fields[0]) {
			continue
		}
		c := &schema.ColumnMeta{
			Name:     sqlx.Unquote(fields[0]),
			Def:      part,
			About:    about,
			Nullable: true,
		}
		var types []string
		for _, f := range fields[1:] {
			if isKeyword(f) || strings.EqualFold(f, "NOT") || strings.EqualFold(f, "NULL") || strings.EqualFold(f, "DEFAULT") {
				break
			}
			types = append(types, f)
		}
		c.Type = strings.Join(types, " ")
		upper := strings.ToUpper(part)
		if j := checkIndex(upper); j != -1 {
			if c.Check, err = sqlx.Body(part[j:]); err != nil {
				return nil, err
			}
			c.Check = strings.TrimSpace(c.Check)
			// Constraints after the CHECK clause are not part of the column flags.
			upper = upper[:j]
		}
		c.Nullable = !strings.Contains(upper, "NOT NULL") && !strings.Contains(upper, "PRIMARY KEY")
		c.Primary = strings.Contains(upper, "PRIMARY KEY")
		c.Kind = i.c.Kind(c.Name, len(cols))
		c.Label = i.label(c)
		c.Rule = ParseRule(c.Check)
		cols = append(cols, c)
	}
	return cols, nil
}

// label returns the human readable name of the column.
func (i *Inspector) label(c *schema.ColumnMeta) string {
	switch c.Kind {
	case schema.KindKey:
		return i.c.Texts.KeyLabel + inflect.Humanize(strings.TrimPrefix(c.Name, i.c.KeyPrefix))
	case schema.KindLink:
		return i.c.Texts.LinkLabel + inflect.Humanize(strings.TrimPrefix(c.Name, i.c.LinkPrefix))
	case schema.KindAudit:
		return i.c.Texts.AuditLabel + inflect.Humanize(strings.TrimPrefix(c.Name, i.c.AuditPrefix))
	default:
		return inflect.Humanize(c.Name)
	}
}

// isKeyword reports if the token starts a constraint clause.
func isKeyword(s string) bool {
	switch strings.ToUpper(s) {
	case "CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN", "REFERENCES", "COLLATE", "GENERATED", "AS":
		return true
	}
	return false
}

var reCheck = regexp.MustCompile(`\bCHECK\s*\(`)

// checkIndex returns the index of the CHECK clause in the upper-cased column definition.
func checkIndex(upper string) int {
	loc := reCheck.FindStringIndex(upper)
	if loc == nil {
		return -1
	}
	return loc[0]
}

var (
	reEnum   = regexp.MustCompile(`(?is)^\s*(\w+)\s+IN\s*\((.*)\)\s*$`)
	reLength = regexp.MustCompile(`(?i)^\s*length\s*\(\s*(\w+)\s*\)\s*=\s*(\d+)\s*$`)
	reRange  = regexp.MustCompile(`(?i)^\s*(\w+)\s+BETWEEN\s+(\S+)\s+AND\s+(\S+)\s*$`)
	reBounds = regexp.MustCompile(`(?i)^\s*(\w+)\s*>=\s*(\S+)\s+AND\s+(\w+)\s*<=\s*(\S+)\s*$`)
)

// ParseRule translates a CHECK expression into one of the recognized
// rules: enumerated values, fixed length or bounded range. Nil is
// returned for any other expression.
func ParseRule(expr string) schema.Rule {
	switch expr = strings.TrimSpace(expr); {
	case expr == "":
		return nil
	case reEnum.MatchString(expr):
		m := reEnum.FindStringSubmatch(expr)
		parts := sqlx.SplitComma(m[2])
		values := make([]string, len(parts))
		for i, p := range parts {
			values[i] = sqlx.Unquote(p)
		}
		return &schema.Enum{Expr: expr, Values: values}
	case reLength.MatchString(expr):
		m := reLength.FindStringSubmatch(expr)
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil
		}
		return &schema.Length{Expr: expr, N: n}
	case reRange.MatchString(expr):
		m := reRange.FindStringSubmatch(expr)
		return &schema.Range{Expr: expr, Min: sqlx.Unquote(m[2]), Max: sqlx.Unquote(m[3])}
	case reBounds.MatchString(expr):
		m := reBounds.FindStringSubmatch(expr)
		if m[1] != m[3] {
			return nil
		}
		return &schema.Range{Expr: expr, Min: sqlx.Unquote(m[2]), Max: sqlx.Unquote(m[4])}
	}
	return nil
}
