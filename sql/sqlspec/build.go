// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/meta"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
)

// Build returns the table specifications of the schema in build order:
// the pick tables, the association tables (sorted by name), the foreign-key
// table, the about table and the basic tables (in declaration order).
//
// Every table starts with the key columns and ends with the audit columns.
// An attribute of an unregistered primitive type, or two different tables
// sharing the same name, are reported as a ConfigurationError.
func Build(idx *meta.Index, m *model.Model, c *schema.Conventions) ([]*schema.TableSpec, error) {
	b := &builder{idx: idx, m: m, c: c, names: make(map[string]string)}
	return b.build()
}

type builder struct {
	idx   *meta.Index
	m     *model.Model
	c     *schema.Conventions
	names map[string]string // table name to its owner.
}

func (b *builder) build() ([]*schema.TableSpec, error) {
	pickOne, err := b.pickTable(schema.FamilyPickOne)
	if err != nil {
		return nil, err
	}
	pickMany, err := b.pickTable(schema.FamilyPickMany)
	if err != nil {
		return nil, err
	}
	assoc, err := b.assocTables()
	if err != nil {
		return nil, err
	}
	fk, err := b.metaTable(schema.FamilyForeignKey, ColLinkType, ColTblFrom, ColColSchemaFrom, ColColDBFrom, ColTblTo, ColColTo)
	if err != nil {
		return nil, err
	}
	about, err := b.metaTable(schema.FamilyAbout, ColTblCatg, ColTblName, ColTblAbout)
	if err != nil {
		return nil, err
	}
	basic := make([]*schema.TableSpec, 0, len(b.idx.Entities))
	for _, e := range b.idx.Entities {
		t, err := b.basicTable(e)
		if err != nil {
			return nil, err
		}
		basic = append(basic, t)
	}
	tables := []*schema.TableSpec{pickOne, pickMany}
	tables = append(tables, assoc...)
	tables = append(tables, fk, about)
	tables = append(tables, basic...)
	// The documentation tables are seeded last, once all tables and links are known.
	for _, t := range tables {
		for _, l := range t.Links {
			fk.Seed = append(fk.Seed, schema.Row{string(l.Type), l.FromTable, l.FromDeclared, l.FromColumn, l.ToTable, l.ToColumn})
		}
		about.Seed = append(about.Seed, schema.Row{t.Category, t.Name, t.About})
	}
	return tables, nil
}

// claim registers a table name, failing if it was already taken by another owner.
func (b *builder) claim(name, owner string) error {
	if !schema.ValidIdent(name) {
		return schema.Errorf(owner, "invalid table name %q", name)
	}
	if prev, ok := b.names[name]; ok && prev != owner {
		return schema.Errorf(owner, "table name %q collides with %s", name, prev)
	}
	b.names[name] = owner
	return nil
}

// metaTable returns a meta table of the given family with TEXT NOT NULL data columns.
func (b *builder) metaTable(f schema.Family, cols ...string) (*schema.TableSpec, error) {
	name, err := b.c.MetaTable(f)
	if err != nil {
		return nil, err
	}
	if err := b.claim(name, b.c.MetaCategory+"."+f.String()); err != nil {
		return nil, err
	}
	t := &schema.TableSpec{
		Name:     name,
		Category: b.c.MetaCategory,
		Family:   f,
		About:    b.c.About(f),
	}
	data := make([]*schema.Column, len(cols))
	for i, n := range cols {
		data[i] = &schema.Column{Name: n, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindAttr}
	}
	if err := b.columns(t, data); err != nil {
		return nil, err
	}
	return t, nil
}

// columns sets the columns of the table: keys, data and audit columns.
func (b *builder) columns(t *schema.TableSpec, data []*schema.Column) error {
	audit, err := b.c.AuditColumns()
	if err != nil {
		return err
	}
	t.Columns = append(b.c.KeyColumns(), data...)
	t.Columns = append(t.Columns, audit...)
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return schema.Errorf(t.Name, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func (b *builder) pickTable(f schema.Family) (*schema.TableSpec, error) {
	t, err := b.metaTable(f, ColTblFrom, ColColSchemaFrom, ColColDBFrom, ColOption)
	if err != nil {
		return nil, err
	}
	for _, e := range b.idx.Entities {
		for _, a := range e.Attrs {
			var opts []string
			switch s := a.Spec.(type) {
			case *meta.PickOne:
				if f == schema.FamilyPickOne {
					opts = s.Options
				}
			case *meta.PickMany:
				if f == schema.FamilyPickMany {
					opts = s.Options
				}
			}
			for _, o := range opts {
				t.Seed = append(t.Seed, schema.Row{TableName(e.Key), a.Key.Attr, b.c.LinkColumn(a.Key.Attr, t.Name), o})
			}
		}
	}
	return t, nil
}

func (b *builder) assocTables() ([]*schema.TableSpec, error) {
	var (
		tables []*schema.TableSpec
		byName = make(map[string]*schema.TableSpec)
	)
	for _, e := range b.idx.Entities {
		for _, a := range e.Attrs {
			s, ok := a.Spec.(*meta.EdgeAssoc)
			if !ok {
				continue
			}
			name := AssocName(b.c, e.Key, s.Target)
			// The same pair declared twice shares one table.
			owner := fmt.Sprintf("%s->%s", e.Key, s.Target)
			if err := b.claim(name, owner); err != nil {
				return nil, err
			}
			if _, ok := byName[name]; ok {
				continue
			}
			from, to := TableName(e.Key), TableName(s.Target.EntityKey)
			t := &schema.TableSpec{
				Name:     name,
				Category: e.Key.Category,
				Family:   schema.FamilyAssoc,
				About:    fmt.Sprintf("%s %s to %s.", strings.TrimSuffix(b.c.Texts.EdgeAssoc, "."), from, to),
				Links: []*schema.Link{
					{Type: schema.LinkEdgeAssoc, FromTable: name, FromDeclared: AssocIn, FromColumn: b.c.LinkPrefix + AssocIn, ToTable: from, ToColumn: b.c.OID},
					{Type: schema.LinkEdgeAssoc, FromTable: name, FromDeclared: AssocOut, FromColumn: b.c.LinkPrefix + AssocOut, ToTable: to, ToColumn: b.c.OID},
				},
			}
			data := []*schema.Column{
				{Name: ColTblFrom, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindAttr},
				{Name: ColColFrom, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindAttr},
				{Name: ColTblTo, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindAttr},
				{Name: ColColTo, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindAttr},
				{Name: b.c.LinkPrefix + AssocIn, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindLink, Declared: AssocIn},
				{Name: b.c.LinkPrefix + AssocOut, Type: b.c.TextType, Constraint: "NOT NULL", Kind: schema.KindLink, Declared: AssocOut},
			}
			if err := b.columns(t, data); err != nil {
				return nil, err
			}
			byName[name] = t
			tables = append(tables, t)
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

func (b *builder) basicTable(e *meta.Entity) (*schema.TableSpec, error) {
	name := TableName(e.Key)
	if err := b.claim(name, e.Key.String()); err != nil {
		return nil, err
	}
	t := &schema.TableSpec{
		Name:     name,
		Category: e.Key.Category,
		Family:   schema.FamilyBasic,
		About:    e.About,
	}
	var data []*schema.Column
	for _, a := range e.Attrs {
		switch s := a.Spec.(type) {
		case *meta.Primitive:
			p, ok := b.m.Primitive(s.Type)
			if !ok {
				return nil, schema.Errorf(a.Key.String(), "unknown primitive type %q", s.Type)
			}
			c := &schema.Column{
				Name:       a.Key.Attr,
				Type:       p.SQLType,
				Constraint: p.Constraint,
				Kind:       schema.KindAttr,
				Declared:   a.Key.Attr,
				About:      a.About,
			}
			if p.Check != "" {
				c.Check = &schema.Check{Expr: strings.ReplaceAll(p.Check, model.Placeholder, a.Key.Attr)}
			}
			data = append(data, c)
		case *meta.PickOne:
			data = append(data, b.link(t, a, schema.LinkPickOne, b.c.MustMetaTable(schema.FamilyPickOne)))
		case *meta.PickMany:
			data = append(data, b.link(t, a, schema.LinkPickMany, b.c.MustMetaTable(schema.FamilyPickMany)))
		case *meta.ForeignKeyRef:
			data = append(data, b.link(t, a, schema.LinkForeignKey, TableName(s.Target.EntityKey)))
		case *meta.EdgeAssoc:
			// Stored in the association table.
		default:
			return nil, schema.Errorf(a.Key.String(), "unexpected attribute spec %T", a.Spec)
		}
	}
	if err := b.columns(t, data); err != nil {
		return nil, err
	}
	return t, nil
}

// link returns the link column of the attribute and documents it on the table.
func (b *builder) link(t *schema.TableSpec, a *meta.Attr, typ schema.LinkType, to string) *schema.Column {
	c := &schema.Column{
		Name:     b.c.LinkColumn(a.Key.Attr, to),
		Type:     b.c.TextType,
		Kind:     schema.KindLink,
		Declared: a.Key.Attr,
		About:    a.About,
	}
	t.Links = append(t.Links, &schema.Link{
		Type:         typ,
		FromTable:    t.Name,
		FromDeclared: a.Key.Attr,
		FromColumn:   c.Name,
		ToTable:      to,
		ToColumn:     b.c.OID,
	})
	return c
}
