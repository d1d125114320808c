// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package saskan generates, builds and inspects the relational store of
// a declarative domain model.
package saskan

import (
	"context"

	"github.com/genuinemerit/saskan-app-sub000/lifecycle"
	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/meta"
	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
	"github.com/genuinemerit/saskan-app-sub000/sql/sqlite"
	"github.com/genuinemerit/saskan-app-sub000/sql/sqlspec"
)

// Rebuild loads the domain model from the given path and rebuilds the
// store with it. The default conventions are used if conv is nil.
func Rebuild(ctx context.Context, modelPath string, conv *schema.Conventions, paths lifecycle.Paths, opts ...lifecycle.Option) (*lifecycle.Report, error) {
	m, err := model.Load(modelPath, nil)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = schema.DefaultConventions()
	}
	c, err := lifecycle.New(m, conv, paths, opts...)
	if err != nil {
		return nil, err
	}
	return c.Rebuild(ctx)
}

// Generate builds the table specifications of the given model and writes
// their DDL/DML artifacts to the given directory, without touching any
// store. Stale artifacts in the directory are removed first.
func Generate(m *model.Model, conv *schema.Conventions, dir migrate.Dir) ([]*schema.TableSpec, error) {
	if err := conv.Check(); err != nil {
		return nil, err
	}
	idx, err := meta.Harvest(m, conv)
	if err != nil {
		return nil, err
	}
	tables, err := sqlspec.Build(idx, m, conv)
	if err != nil {
		return nil, err
	}
	if err := migrate.Clean(dir); err != nil {
		return nil, err
	}
	em, err := sqlite.NewEmitter(dir, conv)
	if err != nil {
		return nil, err
	}
	if err := em.EmitAll(tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// Inspector reads the schema of an opened store. It must be closed
// when it is no longer used.
type Inspector struct {
	*sqlite.Inspector
	drv *sqlite.Driver
}

// OpenInspector opens the built store at the given path for reading.
// The default conventions are used if conv is nil.
func OpenInspector(ctx context.Context, path string, conv *schema.Conventions) (*Inspector, error) {
	if conv == nil {
		conv = schema.DefaultConventions()
	}
	drv, err := sqlite.OpenFile(ctx, path, false)
	if err != nil {
		return nil, err
	}
	return &Inspector{Inspector: sqlite.NewInspector(drv, conv), drv: drv}, nil
}

// Close closes the underlying store.
func (i *Inspector) Close() error {
	return i.drv.Close()
}
