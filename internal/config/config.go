// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package config loads the configuration of the schema tools from the
// environment, with command-line flag overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/genuinemerit/saskan-app-sub000/lifecycle"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// Config holds the schema tools configuration.
type Config struct {
	ModelPath    string `env:"SASKAN_MODEL_PATH" envDefault:"model.hcl"`
	ArtifactsDir string `env:"SASKAN_ARTIFACTS_DIR" envDefault:"data/sql"`
	StorePath    string `env:"SASKAN_STORE_PATH" envDefault:"data/saskan.db"`
	BackupPath   string `env:"SASKAN_BACKUP_PATH" envDefault:"data/saskan.bak"`
	ArchiveDir   string `env:"SASKAN_ARCHIVE_DIR" envDefault:"data/archive"`
	TokenPath    string `env:"SASKAN_TOKEN_PATH" envDefault:"data/saskan.status"`
	HashAlgo     string `env:"SASKAN_HASH_ALGO" envDefault:"sha256"`
	LogMode      string `env:"SASKAN_LOG_MODE" envDefault:"dev"`
	HTTPAddr     string `env:"SASKAN_HTTP_ADDR" envDefault:"localhost:8080"`
	Force        bool   `env:"SASKAN_FORCE"`
	Strict       bool   `env:"SASKAN_STRICT"`
}

// ParseEnv loads the configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseConfig loads the configuration from environment variables, and
// overrides it with the flags parsed from args.
func ParseConfig(fs *pflag.FlagSet, args []string) (Config, error) {
	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RegisterFlags binds the configuration fields to the given flag set.
// The current values of the fields are used as the flag defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ModelPath, "model", c.ModelPath, "path to the domain model (.hcl, .yaml or .yml)")
	fs.StringVar(&c.ArtifactsDir, "artifacts", c.ArtifactsDir, "directory of the generated DDL/DML artifacts")
	fs.StringVar(&c.StorePath, "store", c.StorePath, "path to the sqlite store")
	fs.StringVar(&c.BackupPath, "backup", c.BackupPath, "path to the backup copy of the store")
	fs.StringVar(&c.ArchiveDir, "archive", c.ArchiveDir, "directory of the store archives")
	fs.StringVar(&c.TokenPath, "token", c.TokenPath, "path to the rebuild status token")
	fs.StringVar(&c.HashAlgo, "hash", c.HashAlgo, "content hash algorithm (sha1|sha256|sha512)")
	fs.StringVar(&c.LogMode, "log", c.LogMode, "log mode (dev|prod|quiet)")
	fs.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "listen address of the read API")
	fs.BoolVar(&c.Force, "force", c.Force, "rebuild even if the store is complete")
	fs.BoolVar(&c.Strict, "strict", c.Strict, "fail the rebuild if any table was skipped")
	fs.SortFlags = false
}

// Conventions returns the schema conventions of the configuration.
func (c Config) Conventions() (*schema.Conventions, error) {
	conv := schema.DefaultConventions()
	conv.HashAlgo = c.HashAlgo
	if err := conv.Check(); err != nil {
		return nil, err
	}
	return conv, nil
}

// Paths returns the rebuild paths of the configuration.
func (c Config) Paths() lifecycle.Paths {
	return lifecycle.Paths{
		Store:      c.StorePath,
		Backup:     c.BackupPath,
		ArchiveDir: c.ArchiveDir,
		Token:      c.TokenPath,
		Artifacts:  c.ArtifactsDir,
	}
}

// Validate checks that the configured directories exist. Missing paths
// are reported as FileAccessErrors. If build is false, only the store
// itself is checked.
func (c Config) Validate(build bool) error {
	if !build {
		return isFile(c.StorePath)
	}
	var errs []error
	if err := isFile(c.ModelPath); err != nil {
		errs = append(errs, err)
	}
	for _, d := range []string{c.ArtifactsDir, c.ArchiveDir} {
		if err := isDir(d); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range []string{c.StorePath, c.BackupPath, c.TokenPath} {
		if err := isDir(filepath.Dir(p)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &schema.FileAccessError{Path: path, Err: err}
	}
	if !fi.IsDir() {
		return &schema.FileAccessError{Path: path, Err: errors.New("not a directory")}
	}
	return nil
}

func isFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &schema.FileAccessError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return &schema.FileAccessError{Path: path, Err: errors.New("is a directory")}
	}
	return nil
}
