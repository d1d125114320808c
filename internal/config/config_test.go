// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package config_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/genuinemerit/saskan-app-sub000/internal/config"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := config.ParseConfig(pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
	require.NoError(t, err)
	require.Equal(t, "model.hcl", cfg.ModelPath)
	require.Equal(t, "data/saskan.db", cfg.StorePath)
	require.Equal(t, "sha256", cfg.HashAlgo)
	require.False(t, cfg.Force)
	p := cfg.Paths()
	require.Equal(t, "data/sql", p.Artifacts)
	require.Equal(t, "data/saskan.status", p.Token)
}

func TestParseConfig_Overrides(t *testing.T) {
	t.Setenv("SASKAN_STORE_PATH", "/env/store.db")
	t.Setenv("SASKAN_HASH_ALGO", "sha512")
	t.Setenv("SASKAN_FORCE", "true")
	cfg, err := config.ParseConfig(pflag.NewFlagSet("test", pflag.ContinueOnError), []string{"--store", "/flag/store.db", "--strict", "extra"})
	require.NoError(t, err)
	// Flags win over the environment.
	require.Equal(t, "/flag/store.db", cfg.StorePath)
	require.Equal(t, "sha512", cfg.HashAlgo)
	require.True(t, cfg.Force)
	require.True(t, cfg.Strict)
	conv, err := cfg.Conventions()
	require.NoError(t, err)
	require.Equal(t, schema.HashSHA512, conv.HashAlgo)
}

func TestParseConfig_BadEnv(t *testing.T) {
	t.Setenv("SASKAN_FORCE", "maybe")
	_, err := config.ParseConfig(pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
	require.ErrorContains(t, err, "parse env")
}

func TestParseConfig_Errors(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, err := config.ParseConfig(fs, []string{"--unknown"})
	require.Error(t, err)

	cfg, err := config.ParseConfig(pflag.NewFlagSet("test", pflag.ContinueOnError), []string{"--hash", "md5"})
	require.NoError(t, err)
	_, err = cfg.Conventions()
	require.ErrorIs(t, err, schema.ErrInvalidConventions)
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		ModelPath:    filepath.Join(dir, "model.hcl"),
		ArtifactsDir: filepath.Join(dir, "sql"),
		StorePath:    filepath.Join(dir, "saskan.db"),
		BackupPath:   filepath.Join(dir, "saskan.bak"),
		ArchiveDir:   filepath.Join(dir, "archive"),
		TokenPath:    filepath.Join(dir, "saskan.status"),
	}
	err := cfg.Validate(true)
	require.True(t, schema.IsFileAccessError(err))
	require.ErrorContains(t, err, cfg.ModelPath)
	require.ErrorContains(t, err, cfg.ArtifactsDir)
	require.ErrorContains(t, err, cfg.ArchiveDir)

	require.NoError(t, os.WriteFile(cfg.ModelPath, nil, 0644))
	require.NoError(t, os.Mkdir(cfg.ArtifactsDir, 0755))
	require.NoError(t, os.Mkdir(cfg.ArchiveDir, 0755))
	require.NoError(t, cfg.Validate(true))

	require.True(t, schema.IsFileAccessError(cfg.Validate(false)))
	require.NoError(t, os.WriteFile(cfg.StorePath, nil, 0644))
	require.NoError(t, cfg.Validate(false))
}
