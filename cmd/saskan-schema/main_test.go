// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/stretchr/testify/require"
)

const geoHCL = `
category "geo" {
  entity "place" {
    about = "A place on the map."
    attr "code" {
      type  = "code2"
      about = "Two letter code."
    }
    attr "region" {
      pick_one = ["north", "south"]
    }
  }
}
`

func flags(t *testing.T) []string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.hcl"), []byte(geoHCL), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sql"), 0755))
	return []string{
		"--model", filepath.Join(dir, "model.hcl"),
		"--artifacts", filepath.Join(dir, "sql"),
		"--store", filepath.Join(dir, "saskan.db"),
		"--backup", filepath.Join(dir, "saskan.bak"),
		"--archive", dir,
		"--token", filepath.Join(dir, "saskan.status"),
		"--log", "quiet",
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	f := flags(t)
	var out bytes.Buffer
	require.NoError(t, run(ctx, append([]string{"rebuild"}, f...), &out))
	require.Contains(t, out.String(), "states:  not_built -> archiving -> destroying -> building -> complete")
	require.Contains(t, out.String(), "built:   5 table(s)")

	out.Reset()
	require.NoError(t, run(ctx, append([]string{"inspect"}, f...), &out))
	require.Contains(t, out.String(), "geo   geo_place")
	require.Contains(t, out.String(), "meta_about")

	out.Reset()
	require.NoError(t, run(ctx, append(append([]string{"inspect"}, f...), "geo_place"), &out))
	require.Contains(t, out.String(), "A place on the map.")
	require.Contains(t, out.String(), "Length is 2")
	require.Contains(t, out.String(), "Two letter code.")

	out.Reset()
	require.NoError(t, run(ctx, append(append([]string{"inspect"}, f...), "geo_place", "region"), &out))
	require.Contains(t, out.String(), "geo_place._fk_region_meta_pick_one")

	out.Reset()
	require.NoError(t, run(ctx, append([]string{"generate"}, f...), &out))
	require.Contains(t, out.String(), "pick_one\tmeta_pick_one")
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	// The root command prints its usage.
	require.NoError(t, run(ctx, nil, &out))
	require.Contains(t, out.String(), "rebuild")
	require.Contains(t, out.String(), "--store")
	require.ErrorContains(t, run(ctx, append([]string{"drop"}, flags(t)...), &out), `unknown command "drop"`)
	// The store is not built yet.
	err := run(ctx, append([]string{"inspect"}, flags(t)...), &out)
	require.True(t, schema.IsFileAccessError(err))
	require.Error(t, run(ctx, append([]string{"inspect", "a", "b", "c"}, flags(t)...), &out))
	require.ErrorContains(t, run(ctx, append([]string{"generate", "--hash", "md5"}, flags(t)...), &out), "invalid conventions")
}

func TestRun_EnvOverride(t *testing.T) {
	ctx := context.Background()
	f := flags(t)
	// The flags win over the environment.
	t.Setenv("SASKAN_STORE_PATH", filepath.Join(t.TempDir(), "missing", "saskan.db"))
	var out bytes.Buffer
	require.NoError(t, run(ctx, append([]string{"rebuild"}, f...), &out))
	require.Contains(t, out.String(), "built:   5 table(s)")
}
