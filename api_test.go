// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package saskan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	saskan "github.com/genuinemerit/saskan-app-sub000"
	"github.com/genuinemerit/saskan-app-sub000/lifecycle"
	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/stretchr/testify/require"
)

const geoYAML = `
categories:
  - name: geo
    about: Geography
    entities:
      - name: region
        attrs:
          - name: name
            type: name
          - name: capital
            type: geo.place.oid
      - name: place
        about: A place on the map.
        attrs:
          - name: region
            pick_one: [north, south]
          - name: features
            pick_many: [river, lake]
`

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(modelPath, []byte(geoYAML), 0644))
	p := lifecycle.Paths{
		Store:      filepath.Join(dir, "saskan.db"),
		Backup:     filepath.Join(dir, "saskan.bak"),
		ArchiveDir: dir,
		Token:      filepath.Join(dir, "saskan.status"),
		Artifacts:  filepath.Join(dir, "sql"),
	}
	require.NoError(t, os.Mkdir(p.Artifacts, 0755))

	r, err := saskan.Rebuild(ctx, modelPath, nil, p)
	require.NoError(t, err)
	require.Empty(t, r.Skipped)
	require.Contains(t, r.Built, "geo_region")

	insp, err := saskan.OpenInspector(ctx, p.Store, nil)
	require.NoError(t, err)
	defer insp.Close()
	catgs, err := insp.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"geo", "meta"}, catgs)
	edges, err := insp.Edges(ctx, "geo_region", "capital")
	require.NoError(t, err)
	require.Equal(t, []*schema.Edge{
		{Type: schema.LinkForeignKey, FromTable: "geo_region", FromColumn: "_fk_capital_geo_place", ToTable: "geo_place", ToColumn: "__oid"},
	}, edges)
	about, err := insp.About(ctx, "geo_region")
	require.NoError(t, err)
	require.Equal(t, "Geo region (Geography)", about)

	_, err = saskan.Rebuild(ctx, filepath.Join(dir, "model.json"), nil, p)
	require.True(t, schema.IsFileAccessError(err))
	_, err = saskan.OpenInspector(ctx, filepath.Join(dir, "missing.db"), nil)
	require.True(t, schema.IsFileAccessError(err))
}

func TestGenerate(t *testing.T) {
	m, err := model.ParseYAML([]byte(geoYAML))
	require.NoError(t, err)
	dir := &migrate.MemDir{}
	require.NoError(t, dir.WriteFile("create_stale.sql", []byte("CREATE TABLE stale (c TEXT);")))
	tables, err := saskan.Generate(m, schema.DefaultConventions(), dir)
	require.NoError(t, err)
	names, err := dir.Names()
	require.NoError(t, err)
	require.NotContains(t, names, "create_stale.sql")
	for _, tbl := range tables {
		require.Contains(t, names, migrate.FileName(tbl.Name, migrate.PhaseCreate))
		if len(tbl.Seed) > 0 {
			require.Contains(t, names, migrate.FileName(tbl.Name, migrate.PhaseSeed))
		}
	}
	b, err := dir.ReadFile("insert_meta_pick_one.sql")
	require.NoError(t, err)
	require.Contains(t, string(b), "'geo_place', 'region', '_fk_region_meta_pick_one', 'north'")
	require.Contains(t, string(b), "'geo_place', 'region', '_fk_region_meta_pick_one', 'south'")
}
