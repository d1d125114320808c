// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/genuinemerit/saskan-app-sub000/sql/internal/sqlx"
	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/oklog/ulid/v2"
)

type (
	// Emitter renders the DDL and DML artifacts of table specifications
	// and writes them to the artifacts directory.
	Emitter struct {
		dir    migrate.Dir
		c      *schema.Conventions
		hasher func() hash.Hash
		now    func() time.Time

		mu      sync.Mutex
		entropy io.Reader
		newID   func() string
	}

	// EmitOption allows configuring an Emitter using functional arguments.
	EmitOption func(*Emitter)
)

// WithClock sets the clock used for the audit timestamps.
func WithClock(now func() time.Time) EmitOption {
	return func(e *Emitter) {
		e.now = now
	}
}

// WithIDs sets the generator of the object and unique ids of seed rows.
func WithIDs(id func() string) EmitOption {
	return func(e *Emitter) {
		e.newID = id
	}
}

// NewEmitter returns an Emitter that writes to the given directory.
func NewEmitter(dir migrate.Dir, c *schema.Conventions, opts ...EmitOption) (*Emitter, error) {
	h, err := c.Hasher()
	if err != nil {
		return nil, err
	}
	e := &Emitter{
		dir:     dir,
		c:       c,
		hasher:  h,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	e.newID = e.ulid
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emit writes the artifacts of the given table: the DDL artifact, and
// the DML artifact if the table has seed rows. The names of the written
// artifacts are returned. Emitting the same table twice overwrites its
// artifacts.
func (e *Emitter) Emit(t *schema.TableSpec) ([]string, error) {
	names := []string{migrate.FileName(t.Name, migrate.PhaseCreate)}
	if err := e.write(names[0], t, []string{e.CreateTable(t)}); err != nil {
		return nil, err
	}
	if len(t.Seed) == 0 {
		// Drop stale seed artifacts of previous emissions.
		if err := e.dir.Remove(migrate.FileName(t.Name, migrate.PhaseSeed)); err != nil {
			return nil, &schema.FileAccessError{Path: e.dir.Path(migrate.FileName(t.Name, migrate.PhaseSeed)), Err: err}
		}
		return names, nil
	}
	stmts, err := e.Inserts(t)
	if err != nil {
		return nil, err
	}
	names = append(names, migrate.FileName(t.Name, migrate.PhaseSeed))
	if err := e.write(names[1], t, stmts); err != nil {
		return nil, err
	}
	return names, nil
}

// EmitAll emits the artifacts of all given tables.
func (e *Emitter) EmitAll(ts []*schema.TableSpec) error {
	for _, t := range ts {
		if _, err := e.Emit(t); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable returns the DDL statement of the given table. Columns
// are written in the explicit order of the table specification, each
// preceded by its description comment, if any.
func (e *Emitter) CreateTable(t *schema.TableSpec) string {
	b := Build("CREATE TABLE IF NOT EXISTS")
	b.Indent = "  "
	b.Ident(t.Name)
	b.Wrap(func(b *sqlx.Builder) {
		b.MapComma(t.Columns, func(i int, b *sqlx.Builder) {
			if t.Columns[i].About != "" {
				b.Comment(t.Columns[i].About)
			}
			b.Ident(t.Columns[i].Name).P(t.Columns[i].Def())
		})
	})
	return b.String() + ";"
}

// Inserts returns the DML statements of the seed rows of the given table.
// Every row is completed with fresh keys, the audit timestamps and the
// content hash of its data values.
func (e *Emitter) Inserts(t *schema.TableSpec) ([]string, error) {
	data := t.DataColumns()
	cols := t.ColumnNames()
	stmts := make([]string, 0, len(t.Seed))
	for i, row := range t.Seed {
		if len(row) != len(data) {
			return nil, schema.Errorf(t.Name, "seed row %d has %d values, expect %d", i, len(row), len(data))
		}
		values, err := e.values(t, row)
		if err != nil {
			return nil, err
		}
		b := Build("INSERT INTO").Ident(t.Name)
		b.Wrap(func(b *sqlx.Builder) {
			b.MapComma(cols, func(i int, b *sqlx.Builder) {
				b.Ident(cols[i])
			})
		})
		b.P("VALUES").Wrap(func(b *sqlx.Builder) {
			b.MapComma(values, func(i int, b *sqlx.Builder) {
				if values[i] == nil {
					b.P("NULL")
				} else {
					b.Lit(*values[i])
				}
			})
		})
		stmts = append(stmts, b.String()+";")
	}
	return stmts, nil
}

// values returns the values of all columns of a seed row. Nil
// values are written as NULL.
func (e *Emitter) values(t *schema.TableSpec, row schema.Row) ([]*string, error) {
	var (
		next = 0
		ts   = e.now().UTC().Format(time.RFC3339)
		vs   = make([]*string, len(t.Columns))
	)
	digest, err := e.Hash(row)
	if err != nil {
		return nil, err
	}
	for i, c := range t.Columns {
		var v string
		switch {
		case c.Kind == schema.KindKey:
			v = e.newID()
		case c.Name == e.c.CreateTS, c.Name == e.c.UpdateTS:
			v = ts
		case c.Name == e.c.RemoveTS:
			continue
		case c.Name == e.c.Hash:
			v = digest
		case c.Kind == schema.KindAudit:
			return nil, schema.Errorf(t.Name, "unexpected audit column %q", c.Name)
		default:
			v = row[next]
			next++
		}
		vs[i] = &v
	}
	return vs, nil
}

// Hash returns the hex encoded content hash of the given data values.
func (e *Emitter) Hash(row schema.Row) (string, error) {
	h := e.hasher()
	if _, err := io.WriteString(h, strings.Join(row, "\x1f")); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Emitter) write(name string, t *schema.TableSpec, stmts []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s%s %s\n", migrate.DirectivePrefix, migrate.DirectiveTable, t.Name)
	fmt.Fprintf(&b, "-- %sfamily %s\n", migrate.DirectivePrefix, t.Family)
	for _, s := range stmts {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	if err := e.dir.WriteFile(name, []byte(b.String())); err != nil {
		return &schema.FileAccessError{Path: e.dir.Path(name), Err: err}
	}
	return nil
}

func (e *Emitter) ulid() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(e.now()), e.entropy).String()
}

// Build instantiates a new builder and writes the given phrase to it.
func Build(phrase string) *sqlx.Builder {
	b := &sqlx.Builder{}
	return b.P(phrase)
}
