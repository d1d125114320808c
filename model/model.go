// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package model holds the declarative domain model that is turned into
// a relational store: categories of entities with typed, enumerated and
// relationship attributes, plus the registry of primitive column types.
package model

type (
	// A Model is the root of a domain model document. The order of its
	// primitives, categories, entities and attributes is the declaration
	// order in the source document, and is preserved by all loaders.
	Model struct {
		Primitives []*Primitive `hcl:"primitive,block" yaml:"primitives"`
		Categories []*Category  `hcl:"category,block" yaml:"categories"`
	}

	// A Primitive describes a reusable column type. Check is a template
	// where the Placeholder is replaced with the actual column name.
	Primitive struct {
		Name       string `hcl:"name,label" yaml:"name"`
		SQLType    string `hcl:"sql_type" yaml:"sql_type"`
		Constraint string `hcl:"constraint,optional" yaml:"constraint,omitempty"`
		Check      string `hcl:"check,optional" yaml:"check,omitempty"`
	}

	// A Category groups related entities. Its name is used as the
	// prefix of all table names generated for its entities, and its
	// description completes the default description of its entities.
	Category struct {
		Name     string    `hcl:"name,label" yaml:"name"`
		About    string    `hcl:"about,optional" yaml:"about,omitempty"`
		Entities []*Entity `hcl:"entity,block" yaml:"entities"`
	}

	// An Entity describes one kind of record.
	Entity struct {
		Name  string  `hcl:"name,label" yaml:"name"`
		About string  `hcl:"about,optional" yaml:"about,omitempty"`
		Attrs []*Attr `hcl:"attr,block" yaml:"attrs"`
	}

	// An Attr describes one attribute of an entity. Exactly one of Type,
	// PickOne, PickMany or Assoc is expected to be set.
	//
	// Type holds either the name of a registered primitive, or a reference
	// to the object id of another entity in the form "<category>.<entity>.oid".
	Attr struct {
		Name     string   `hcl:"name,label" yaml:"name"`
		About    string   `hcl:"about,optional" yaml:"about,omitempty"`
		Type     string   `hcl:"type,optional" yaml:"type,omitempty"`
		PickOne  []string `hcl:"pick_one,optional" yaml:"pick_one,omitempty"`
		PickMany []string `hcl:"pick_many,optional" yaml:"pick_many,omitempty"`
		Assoc    string   `hcl:"assoc,optional" yaml:"assoc,omitempty"`
	}
)

// Placeholder is replaced with the column name in primitive check templates.
const Placeholder = "{col}"

// Primitive returns the first primitive that matched the given name.
func (m *Model) Primitive(name string) (*Primitive, bool) {
	for _, p := range m.Primitives {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// DefaultPrimitives returns the builtin primitive registry. Loaders merge
// it under the primitives declared by the document itself.
func DefaultPrimitives() []*Primitive {
	return []*Primitive{
		{Name: "text", SQLType: "TEXT"},
		{Name: "name", SQLType: "TEXT", Constraint: "NOT NULL", Check: "length({col}) <= 128"},
		{Name: "int", SQLType: "INTEGER"},
		{Name: "float", SQLType: "NUMERIC"},
		{Name: "bool", SQLType: "BOOLEAN", Check: "{col} IN (0, 1)"},
		{Name: "date", SQLType: "TEXT", Check: "length({col}) = 10"},
		{Name: "code2", SQLType: "TEXT", Check: "length({col}) = 2"},
		{Name: "percent", SQLType: "NUMERIC", Check: "{col} BETWEEN 0 AND 100"},
	}
}

// WithDefaults adds the builtin primitives that are not overridden
// by the model. Declared primitives keep their position first.
func (m *Model) WithDefaults() *Model {
	for _, p := range DefaultPrimitives() {
		if _, ok := m.Primitive(p.Name); !ok {
			m.Primitives = append(m.Primitives, p)
		}
	}
	return m
}
