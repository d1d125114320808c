// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package lifecycle rebuilds the relational store from a domain model:
// the prior store is archived and destroyed, the schema is generated,
// emitted and executed, and a status token marks the rebuild complete.
//
// A rebuild assumes a single writer. The status token is an idempotency
// marker, not a lock, and concurrent rebuilds must be prevented by the
// caller.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/genuinemerit/saskan-app-sub000/internal/logging"
	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/meta"
	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
	"github.com/genuinemerit/saskan-app-sub000/sql/sqlite"
	"github.com/genuinemerit/saskan-app-sub000/sql/sqlspec"
)

// State is a state of the rebuild state machine.
type State string

// States of a rebuild, in their transition order.
const (
	NotBuilt   State = "not_built"
	Archiving  State = "archiving"
	Destroying State = "destroying"
	Building   State = "building"
	Complete   State = "complete"
)

// ArchiveExt is the extension of archived stores.
const ArchiveExt = ".arcv"

// ErrIncomplete is returned in strict mode when tables were skipped.
var ErrIncomplete = errors.New("lifecycle: rebuild skipped tables")

type (
	// Paths holds the file locations used by a rebuild.
	Paths struct {
		Store      string // Main store file.
		Backup     string // Backup copy of the store, taken after a build.
		ArchiveDir string // Directory of the timestamped archives.
		Token      string // Status token file.
		Artifacts  string // Directory of the DDL/DML artifacts.
	}

	// Controller drives the rebuild state machine.
	Controller struct {
		model  *model.Model
		conv   *schema.Conventions
		paths  Paths
		log    *logging.Logger
		now    func() time.Time
		force  bool
		strict bool
		emit   []sqlite.EmitOption
	}

	// Option allows configuring a Controller using functional arguments.
	Option func(*Controller)

	// Report summarizes a rebuild.
	Report struct {
		States   []State                  // Visited states.
		Built    []string                 // Tables created.
		Skipped  []string                 // Tables whose DDL failed.
		Failures []*schema.ExecutionError // Failed DDL and DML statements, per table and phase.
		Archive  string                   // Archive of the prior store, if any.
	}
)

// WithLogger sets the logger of the Controller.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithClock sets the clock used for archive names and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithForce rebuilds the store even if the status token reads COMPLETE.
func WithForce(b bool) Option {
	return func(c *Controller) {
		c.force = b
	}
}

// WithStrictComplete keeps the status token in progress and fails the
// rebuild if any table was skipped.
func WithStrictComplete(b bool) Option {
	return func(c *Controller) {
		c.strict = b
	}
}

// WithEmitOptions sets additional options of the artifacts Emitter.
func WithEmitOptions(opts ...sqlite.EmitOption) Option {
	return func(c *Controller) {
		c.emit = append(c.emit, opts...)
	}
}

// New returns a Controller for the given model and conventions.
func New(m *model.Model, conv *schema.Conventions, paths Paths, opts ...Option) (*Controller, error) {
	if m == nil {
		return nil, errors.New("lifecycle: no model given")
	}
	if err := conv.Check(); err != nil {
		return nil, err
	}
	for _, p := range []struct{ name, path string }{
		{"store", paths.Store}, {"backup", paths.Backup}, {"archive", paths.ArchiveDir},
		{"token", paths.Token}, {"artifacts", paths.Artifacts},
	} {
		if strings.TrimSpace(p.path) == "" {
			return nil, &schema.FileAccessError{Path: p.path, Err: fmt.Errorf("%s path is required", p.name)}
		}
	}
	c := &Controller{model: m, conv: conv, paths: paths, log: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Status returns the current status token.
func (c *Controller) Status() (Token, error) {
	return ReadToken(c.paths.Token)
}

// Rebuild runs the state machine. If the status token reads COMPLETE
// and the rebuild is not forced, it is a no-op. Otherwise, the prior
// store is archived and destroyed, and the schema is built from scratch.
//
// Configuration and file access errors abort the rebuild. Execution
// errors are logged, the failing table or row is skipped, and the
// rebuild still completes unless strict mode is enabled.
func (c *Controller) Rebuild(ctx context.Context) (*Report, error) {
	r := &Report{}
	tok, err := c.Status()
	if err != nil {
		return r, err
	}
	if tok == TokenComplete && !c.force {
		c.enter(r, Complete)
		c.log.Info("store is complete, skipping rebuild", "token", c.paths.Token)
		return r, nil
	}
	c.enter(r, NotBuilt)
	c.enter(r, Archiving)
	if err := WriteToken(c.paths.Token, TokenInProgress); err != nil {
		return r, err
	}
	if r.Archive, err = c.archive(); err != nil {
		return r, err
	}
	c.enter(r, Destroying)
	if err := c.destroy(); err != nil {
		return r, err
	}
	c.enter(r, Building)
	if err := c.build(ctx, r); err != nil {
		return r, err
	}
	if err := copyFile(c.paths.Store, c.paths.Backup); err != nil {
		return r, err
	}
	c.log.Info("store backed up", "path", c.paths.Backup)
	if c.strict && len(r.Skipped) > 0 {
		return r, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(r.Skipped, ", "))
	}
	if err := WriteToken(c.paths.Token, TokenComplete); err != nil {
		return r, err
	}
	c.enter(r, Complete)
	c.log.Info("rebuild complete", "built", len(r.Built), "skipped", len(r.Skipped), "failures", len(r.Failures))
	return r, nil
}

func (c *Controller) enter(r *Report, s State) {
	r.States = append(r.States, s)
	c.log.Debug("entering state", "state", s)
}

// archive copies the prior store, if any, to a timestamped archive.
func (c *Controller) archive() (string, error) {
	ok, err := exists(c.paths.Store)
	if err != nil {
		return "", err
	}
	if !ok {
		c.log.Info("no prior store to archive", "path", c.paths.Store)
		return "", nil
	}
	path, err := freePath(ArchivePath(c.paths.ArchiveDir, c.paths.Store, c.now()))
	if err != nil {
		return "", err
	}
	if err := copyFile(c.paths.Store, path); err != nil {
		return "", err
	}
	c.log.Info("store archived", "path", path)
	return path, nil
}

// destroy removes the prior main and backup stores.
func (c *Controller) destroy() error {
	for _, p := range []string{c.paths.Store, c.paths.Backup} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &schema.FileAccessError{Path: p, Err: err}
		}
		c.log.Debug("store removed", "path", p)
	}
	return nil
}

// build generates, emits and executes the schema on a new store.
func (c *Controller) build(ctx context.Context, r *Report) error {
	idx, err := meta.Harvest(c.model, c.conv)
	if err != nil {
		return err
	}
	tables, err := sqlspec.Build(idx, c.model, c.conv)
	if err != nil {
		return err
	}
	dir, err := migrate.NewLocalDir(c.paths.Artifacts)
	if err != nil {
		return &schema.FileAccessError{Path: c.paths.Artifacts, Err: err}
	}
	if err := migrate.Clean(dir); err != nil {
		return &schema.FileAccessError{Path: c.paths.Artifacts, Err: err}
	}
	em, err := sqlite.NewEmitter(dir, c.conv, append([]sqlite.EmitOption{sqlite.WithClock(c.now)}, c.emit...)...)
	if err != nil {
		return err
	}
	if err := em.EmitAll(tables); err != nil {
		return err
	}
	c.log.Info("artifacts emitted", "dir", c.paths.Artifacts, "tables", len(tables))
	drv, err := sqlite.OpenFile(ctx, c.paths.Store, true)
	if err != nil {
		return err
	}
	defer drv.Close()
	ex, err := migrate.NewExecutor(drv.DB(), dir, migrate.WithLogger(c.log))
	if err != nil {
		return err
	}
	for _, t := range tables {
		log := c.log.With("table", t.Name, "family", t.Family.String())
		if err := ex.Create(ctx, t.Name); err != nil {
			if !c.failed(r, err) {
				return err
			}
			log.Warn("table skipped", "error", err, "constraint", sqlite.IsConstraintError(err))
			r.Skipped = append(r.Skipped, t.Name)
			continue
		}
		r.Built = append(r.Built, t.Name)
		if len(t.Seed) == 0 {
			continue
		}
		if err := ex.Seed(ctx, t.Name); err != nil {
			if !c.failed(r, err) {
				return err
			}
			log.Warn("seed rows skipped", "error", err, "constraint", sqlite.IsConstraintError(err))
		}
	}
	return drv.Close()
}

// failed records an execution error in the report. It reports false
// for errors that must abort the rebuild.
func (c *Controller) failed(r *Report, err error) bool {
	var ex *schema.ExecutionError
	if !errors.As(err, &ex) {
		return false
	}
	r.Failures = append(r.Failures, ex)
	return true
}

// ArchivePath returns the archive path of the given store at the given
// time, e.g. "archive/saskan_20240309_123000.arcv".
func ArchivePath(dir, store string, t time.Time) string {
	base := filepath.Base(store)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"_"+t.Format("20060102_150405")+ArchiveExt)
}

// freePath returns the given path if no file exists there. Otherwise,
// a numeric suffix is added before its extension, e.g. "saskan_20240309_123000_1.arcv".
func freePath(path string) (string, error) {
	ext := filepath.Ext(path)
	for i, p := 0, path; ; i++ {
		if i > 0 {
			p = strings.TrimSuffix(path, ext) + "_" + strconv.Itoa(i) + ext
		}
		switch ok, err := exists(p); {
		case err != nil:
			return "", err
		case !ok:
			return p, nil
		}
	}
}
