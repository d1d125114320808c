// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package api

import (
	"net/http"

	"github.com/genuinemerit/saskan-app-sub000/internal/logging"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/gin-gonic/gin"
)

type (
	column struct {
		Name     string `json:"name"`
		Label    string `json:"label"`
		Type     string `json:"type"`
		Def      string `json:"def"`
		Kind     string `json:"kind"`
		Nullable bool   `json:"nullable"`
		Primary  bool   `json:"primary,omitempty"`
		Check    string `json:"check,omitempty"`
		Rule     *rule  `json:"rule,omitempty"`
		About    string `json:"about,omitempty"`
	}

	rule struct {
		Kind   string   `json:"kind"`
		Text   string   `json:"text"`
		Values []string `json:"values,omitempty"`
		Length int      `json:"length,omitempty"`
		Min    string   `json:"min,omitempty"`
		Max    string   `json:"max,omitempty"`
	}

	edge struct {
		Type       string `json:"type"`
		FromTable  string `json:"from_table"`
		FromColumn string `json:"from_column"`
		ToTable    string `json:"to_table"`
		ToColumn   string `json:"to_column"`
	}
)

// CategoriesHandler lists the table categories of the store.
func CategoriesHandler(insp schema.Introspector, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		catgs, err := insp.Categories(c.Request.Context())
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": nonNil(catgs)})
	}
}

// TablesHandler lists the tables of the category given in the path.
func TablesHandler(insp schema.Introspector, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tables, err := insp.Tables(c.Request.Context(), c.Param("catg"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": c.Param("catg"), "tables": nonNil(tables)})
	}
}

// ColumnsHandler describes the columns of a table, including their
// validation rules and descriptions.
func ColumnsHandler(insp schema.Introspector, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cols, err := insp.Columns(c.Request.Context(), c.Param("table"))
		if err != nil {
			fail(c, log, err)
			return
		}
		out := make([]column, len(cols))
		for i, col := range cols {
			out[i] = column{
				Name:     col.Name,
				Label:    col.Label,
				Type:     col.Type,
				Def:      col.Def,
				Kind:     col.Kind.String(),
				Nullable: col.Nullable,
				Primary:  col.Primary,
				Check:    col.Check,
				Rule:     newRule(col.Rule),
				About:    col.About,
			}
		}
		c.JSON(http.StatusOK, gin.H{"table": c.Param("table"), "columns": out})
	}
}

// AboutHandler returns the description of a table.
func AboutHandler(insp schema.Introspector, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		about, err := insp.About(c.Request.Context(), c.Param("table"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"table": c.Param("table"), "about": about})
	}
}

// EdgesHandler returns the relations a column takes part in.
func EdgesHandler(insp schema.Introspector, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		edges, err := insp.Edges(c.Request.Context(), c.Param("table"), c.Param("column"))
		if err != nil {
			fail(c, log, err)
			return
		}
		out := make([]edge, len(edges))
		for i, e := range edges {
			out[i] = edge{
				Type:       string(e.Type),
				FromTable:  e.FromTable,
				FromColumn: e.FromColumn,
				ToTable:    e.ToTable,
				ToColumn:   e.ToColumn,
			}
		}
		c.JSON(http.StatusOK, gin.H{"table": c.Param("table"), "column": c.Param("column"), "edges": out})
	}
}

func newRule(r schema.Rule) *rule {
	switch r := r.(type) {
	case *schema.Enum:
		return &rule{Kind: "enum", Text: r.Text(), Values: r.Values}
	case *schema.Length:
		return &rule{Kind: "length", Text: r.Text(), Length: r.N}
	case *schema.Range:
		return &rule{Kind: "range", Text: r.Text(), Min: r.Min, Max: r.Max}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
