// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlspec turns the metadata index of a domain model into the
// ordered list of table specifications of the relational schema.
package sqlspec

import (
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/sql/meta"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
)

// Data columns of the meta tables.
const (
	ColTblFrom       = "tbl_from"
	ColColSchemaFrom = "col_schema_from"
	ColColDBFrom     = "col_db_from"
	ColOption        = "option"
	ColLinkType      = "link_type"
	ColTblTo         = "tbl_to"
	ColColTo         = "col_to"
	ColColFrom       = "col_from"
	ColTblCatg       = "tbl_catg"
	ColTblName       = "tbl_name"
	ColTblAbout      = "tbl_about"
)

// Attributes that own the in/out links of association tables.
const (
	AssocIn  = "oid_in"
	AssocOut = "oid_out"
)

// TableName returns the name of the basic table of the given entity.
func TableName(k meta.EntityKey) string {
	return k.Category + "_" + k.Entity
}

// AssocName returns the name of the association table linking the given
// entity to the target. The category is not repeated if the entity name
// already starts with it, and the target is written without its category
// if both sides share the same one. For example:
//
//	geo.place -> geo.place.oid   geo_place_x_place
//	geo.place -> sky.star.oid    geo_place_x_sky_star
//	geo.geo_area -> geo.place    geo_area_x_place
func AssocName(c *schema.Conventions, from meta.EntityKey, to meta.Ref) string {
	var b strings.Builder
	if !strings.HasPrefix(from.Entity, from.Category+"_") {
		b.WriteString(from.Category)
		b.WriteByte('_')
	}
	b.WriteString(from.Entity)
	b.WriteString(c.AssocSep)
	b.WriteString(toKey(from, to))
	return b.String()
}

// toKey derives the target part of an association name from the
// reference, without its category (if shared) or object id marker.
func toKey(from meta.EntityKey, to meta.Ref) string {
	parts := strings.Split(strings.TrimSuffix(to.String(), ".oid"), ".")
	if parts[0] == from.Category {
		parts = parts[1:]
	}
	return strings.Join(parts, "_")
}
