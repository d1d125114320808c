// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package schema describes the generated relational schema: table
// specifications, their ordered columns, the documented links between
// them and the naming conventions shared by the generator and readers.
package schema

import "strings"

type (
	// A TableSpec represents a generated table definition. Columns are kept
	// in their explicit order: keys first, domain columns in declaration
	// order, audit columns last.
	TableSpec struct {
		Name     string
		Category string
		Family   Family
		Columns  []*Column
		About    string
		// Seed holds the static rows of the table. Each row holds the values
		// of the data columns (see DataColumns), in column order.
		Seed []Row
		// Links holds the relationships that originate from this table
		// and are documented in the foreign-key table.
		Links []*Link
	}

	// A Column represents a column definition.
	Column struct {
		Name       string
		Type       string // SQL type, e.g. TEXT.
		Constraint string // Column constraints, e.g. NOT NULL.
		Check      *Check // Optional CHECK rule.
		Kind       ColumnKind
		// Declared holds the attribute name as declared in the
		// domain model, for columns derived from an attribute.
		Declared string
		// About is the attribute description. It is stored as a
		// comment of the column definition.
		About string
	}

	// A Check describes a CHECK constraint expression.
	Check struct {
		Expr string
	}

	// A Row holds the values of a seed row.
	Row []string

	// A Link documents a logical relationship between two table columns.
	Link struct {
		Type         LinkType
		FromTable    string
		FromDeclared string // Attribute name as declared, if any.
		FromColumn   string // Column name as stored.
		ToTable      string
		ToColumn     string
	}

	// Family identifies the family of a generated table. Families are
	// built in their numeric order.
	Family uint8

	// ColumnKind classifies a column by its role in the table.
	ColumnKind uint8

	// LinkType classifies a documented link.
	LinkType string
)

// List of table families, in build order.
const (
	FamilyPickOne Family = iota + 1
	FamilyPickMany
	FamilyAssoc
	FamilyForeignKey
	FamilyAbout
	FamilyBasic
)

// List of column kinds.
const (
	KindAttr ColumnKind = iota
	KindKey
	KindLink
	KindAudit
)

// List of link types.
const (
	LinkForeignKey LinkType = "foreign_key"
	LinkEdgeAssoc  LinkType = "edge_assoc"
	LinkPickOne    LinkType = "pick_one"
	LinkPickMany   LinkType = "pick_many"
)

// String implements fmt.Stringer.
func (f Family) String() string {
	switch f {
	case FamilyPickOne:
		return "pick_one"
	case FamilyPickMany:
		return "pick_many"
	case FamilyAssoc:
		return "edge_assoc"
	case FamilyForeignKey:
		return "foreign_key"
	case FamilyAbout:
		return "about"
	case FamilyBasic:
		return "basic"
	default:
		return "unknown"
	}
}

// String implements fmt.Stringer.
func (k ColumnKind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindLink:
		return "link"
	case KindAudit:
		return "audit"
	default:
		return "attr"
	}
}

// IsAssociation reports if the table is an association (edge) table.
func (t *TableSpec) IsAssociation() bool {
	return t.Family == FamilyAssoc
}

// Column returns the first column that matched the given name.
func (t *TableSpec) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the names of the table columns in order.
func (t *TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// DataColumns returns the columns that are neither keys nor audit columns.
func (t *TableSpec) DataColumns() []*Column {
	var cs []*Column
	for _, c := range t.Columns {
		if c.Kind != KindKey && c.Kind != KindAudit {
			cs = append(cs, c)
		}
	}
	return cs
}

// Count returns the number of columns of the given kind.
func (t *TableSpec) Count(k ColumnKind) int {
	var n int
	for _, c := range t.Columns {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// Def returns the column definition text without its name,
// e.g. "TEXT NOT NULL CHECK (length(c) = 2)".
func (c *Column) Def() string {
	parts := []string{c.Type}
	if c.Constraint != "" {
		parts = append(parts, c.Constraint)
	}
	if c.Check != nil && c.Check.Expr != "" {
		parts = append(parts, "CHECK ("+c.Check.Expr+")")
	}
	return strings.Join(parts, " ")
}
