// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/genuinemerit/saskan-app-sub000/internal/api"
	"github.com/genuinemerit/saskan-app-sub000/internal/logging"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type mockInspector struct {
	err error
}

func (m *mockInspector) Categories(context.Context) ([]string, error) {
	return []string{"geo", "meta"}, m.err
}

func (m *mockInspector) Tables(_ context.Context, catg string) ([]string, error) {
	if catg != "geo" {
		return nil, m.err
	}
	return []string{"geo_place"}, m.err
}

func (m *mockInspector) Columns(_ context.Context, table string) ([]*schema.ColumnMeta, error) {
	if table != "geo_place" {
		return nil, &schema.NotExistError{Err: errors.New("table not found")}
	}
	return []*schema.ColumnMeta{
		{Name: "__uid", Label: "Key column: Uid", Type: "TEXT", Kind: schema.KindKey, Primary: true},
		{Name: "code", Label: "Code", Type: "TEXT", Nullable: true, Check: "length(code) = 3", Rule: &schema.Length{Expr: "length(code) = 3", N: 3}, About: "Three letter code."},
		{Name: "kind", Label: "Kind", Type: "TEXT", Check: "kind IN ('a', 'b')", Rule: &schema.Enum{Expr: "kind IN ('a', 'b')", Values: []string{"a", "b"}}},
	}, m.err
}

func (m *mockInspector) About(_ context.Context, table string) (string, error) {
	if table != "geo_place" {
		return "", &schema.NotExistError{Err: errors.New("table not documented")}
	}
	return "A place on the map.", m.err
}

func (m *mockInspector) Edges(_ context.Context, table, column string) ([]*schema.Edge, error) {
	return []*schema.Edge{
		{Type: schema.LinkPickOne, FromTable: table, FromColumn: column, ToTable: "meta_pick_one", ToColumn: "__oid"},
	}, m.err
}

func do(t *testing.T, r http.Handler, path string, v any) int {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if v != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
	}
	return rec.Code
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := api.NewRouter(&mockInspector{}, logging.NewNop())

	var catgs struct{ Categories []string }
	require.Equal(t, http.StatusOK, do(t, r, "/categories", &catgs))
	require.Equal(t, []string{"geo", "meta"}, catgs.Categories)

	var tables struct {
		Category string
		Tables   []string
	}
	require.Equal(t, http.StatusOK, do(t, r, "/categories/geo/tables", &tables))
	require.Equal(t, "geo", tables.Category)
	require.Equal(t, []string{"geo_place"}, tables.Tables)
	require.Equal(t, http.StatusOK, do(t, r, "/categories/sky/tables", &tables))
	require.NotNil(t, tables.Tables)
	require.Empty(t, tables.Tables)

	var cols struct {
		Columns []struct {
			Name    string
			Kind    string
			Primary bool
			About   string
			Rule    *struct {
				Kind   string
				Text   string
				Values []string
				Length int
			}
		}
	}
	require.Equal(t, http.StatusOK, do(t, r, "/tables/geo_place/columns", &cols))
	require.Len(t, cols.Columns, 3)
	require.Equal(t, "key", cols.Columns[0].Kind)
	require.True(t, cols.Columns[0].Primary)
	require.Nil(t, cols.Columns[0].Rule)
	require.Equal(t, "length", cols.Columns[1].Rule.Kind)
	require.Equal(t, 3, cols.Columns[1].Rule.Length)
	require.Equal(t, "Length is 3", cols.Columns[1].Rule.Text)
	require.Equal(t, []string{"a", "b"}, cols.Columns[2].Rule.Values)
	require.Equal(t, "Three letter code.", cols.Columns[1].About)
	require.Empty(t, cols.Columns[0].About)

	var about struct{ About string }
	require.Equal(t, http.StatusOK, do(t, r, "/tables/geo_place/about", &about))
	require.Equal(t, "A place on the map.", about.About)

	var edges struct {
		Edges []struct {
			Type       string
			FromColumn string `json:"from_column"`
			ToTable    string `json:"to_table"`
		}
	}
	require.Equal(t, http.StatusOK, do(t, r, "/tables/geo_place/columns/region/edges", &edges))
	require.Len(t, edges.Edges, 1)
	require.Equal(t, "pick_one", edges.Edges[0].Type)
	require.Equal(t, "region", edges.Edges[0].FromColumn)
	require.Equal(t, "meta_pick_one", edges.Edges[0].ToTable)
}

func TestRouter_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := api.NewRouter(&mockInspector{}, logging.NewNop())
	var body struct{ Error string }
	require.Equal(t, http.StatusNotFound, do(t, r, "/tables/geo_river/columns", &body))
	require.Equal(t, "table not found", body.Error)
	require.Equal(t, http.StatusNotFound, do(t, r, "/tables/geo_river/about", &body))
	require.Equal(t, http.StatusNotFound, do(t, r, "/unknown", nil))

	r = api.NewRouter(&mockInspector{err: errors.New("database is locked")}, logging.NewNop())
	require.Equal(t, http.StatusInternalServerError, do(t, r, "/categories", &body))
	require.Equal(t, "internal error", body.Error)
}
