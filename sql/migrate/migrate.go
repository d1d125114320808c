// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package migrate executes the generated SQL artifacts against the store.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
)

type (
	// Conner opens a dedicated connection to the store. It is implemented by *sql.DB.
	Conner interface {
		Conn(context.Context) (*sql.Conn, error)
	}

	// Executor runs the artifacts of a table against the store. Every
	// call opens a scoped connection, runs the artifact statements in a
	// transaction and releases the connection on all paths.
	Executor struct {
		db  Conner
		dir Dir
		log Logger
	}

	// ExecutorOption allows configuring an Executor using functional arguments.
	ExecutorOption func(*Executor) error
)

// NewExecutor creates a new Executor with default values.
func NewExecutor(db Conner, dir Dir, opts ...ExecutorOption) (*Executor, error) {
	if db == nil {
		return nil, errors.New("sql/migrate: no store connection given")
	}
	if dir == nil {
		return nil, errors.New("sql/migrate: no dir given")
	}
	ex := &Executor{db: db, dir: dir}
	for _, opt := range opts {
		if err := opt(ex); err != nil {
			return nil, err
		}
	}
	if ex.log == nil {
		ex.log = NopLogger{}
	}
	return ex, nil
}

// WithLogger sets the Logger of the Executor.
func WithLogger(l Logger) ExecutorOption {
	return func(ex *Executor) error {
		ex.log = l
		return nil
	}
}

// Create runs the DDL artifact of the given table.
func (e *Executor) Create(ctx context.Context, table string) error {
	return e.Exec(ctx, table, PhaseCreate)
}

// Seed runs the DML artifact of the given table.
func (e *Executor) Seed(ctx context.Context, table string) error {
	return e.Exec(ctx, table, PhaseSeed)
}

// Exec locates the artifact of the given table and phase and executes it.
//
// A missing artifact is reported as a FileAccessError. A failing DDL
// statement aborts the phase and is reported as an ExecutionError. A
// failing DML statement is logged and skipped, and the other statements
// are still attempted. All failed DML statements are then reported in
// one ExecutionError.
func (e *Executor) Exec(ctx context.Context, table string, phase Phase) error {
	name := FileName(table, phase)
	e.log.Log(LogTable{Table: table, Phase: phase, File: name})
	b, err := e.dir.ReadFile(name)
	if err != nil {
		return &schema.FileAccessError{Path: e.dir.Path(name), Err: err}
	}
	stmts, err := Stmts(string(b))
	if err != nil {
		return e.failed(table, phase, &schema.StmtError{Stmt: name, Err: fmt.Errorf("scan artifact: %w", err)})
	}
	if err := e.owner(table, name, stmts); err != nil {
		return err
	}
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("sql/migrate: open store connection: %w", err)
	}
	defer conn.Close()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sql/migrate: begin transaction: %w", err)
	}
	var failed []*schema.StmtError
	for _, s := range stmts {
		e.log.Log(LogStmt{Table: table, SQL: s.Text})
		if _, err := tx.ExecContext(ctx, s.Text); err != nil {
			failed = append(failed, &schema.StmtError{Stmt: s.Text, Err: err})
			e.log.Log(LogError{Table: table, Phase: phase, SQL: s.Text, Error: err})
			if phase == PhaseCreate {
				if rerr := tx.Rollback(); rerr != nil {
					failed = append(failed, &schema.StmtError{Stmt: "ROLLBACK", Err: rerr})
				}
				return e.failed(table, phase, failed...)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sql/migrate: commit %s of %q: %w", phase, table, err)
	}
	e.log.Log(LogDone{Table: table, Phase: phase, Stmts: len(stmts), Failed: len(failed)})
	if len(failed) > 0 {
		return &schema.ExecutionError{Table: table, Phase: string(phase), Stmts: failed}
	}
	return nil
}

// owner checks the artifact was generated for the given table,
// if it carries the table directive.
func (e *Executor) owner(table, name string, stmts []*Stmt) error {
	if len(stmts) == 0 {
		return nil
	}
	for _, d := range stmts[0].Directive(DirectiveTable) {
		if d != table {
			return &schema.FileAccessError{
				Path: e.dir.Path(name),
				Err:  fmt.Errorf("artifact belongs to table %q", d),
			}
		}
	}
	return nil
}

func (e *Executor) failed(table string, phase Phase, stmts ...*schema.StmtError) error {
	e.log.Log(LogDone{Table: table, Phase: phase, Failed: len(stmts)})
	return &schema.ExecutionError{Table: table, Phase: string(phase), Stmts: stmts}
}

// DirectiveTable names the table an artifact was generated for.
const DirectiveTable = "table"

type (
	// Logger is used by the Executor to report its progress.
	Logger interface {
		Log(LogEntry)
	}

	// LogEntry marks several types of logs to be passed to a Logger.
	LogEntry interface {
		logEntry()
	}

	// LogTable is sent when the execution of a table artifact starts.
	LogTable struct {
		Table string
		Phase Phase
		File  string
	}

	// LogStmt is sent before a statement is executed.
	LogStmt struct {
		Table string
		SQL   string
	}

	// LogError is sent when a statement fails.
	LogError struct {
		Table string
		Phase Phase
		SQL   string
		Error error
	}

	// LogDone is sent when the execution of a table artifact ends.
	LogDone struct {
		Table  string
		Phase  Phase
		Stmts  int
		Failed int
	}

	// NopLogger is a Logger that does nothing.
	NopLogger struct{}
)

func (LogTable) logEntry() {}
func (LogStmt) logEntry()  {}
func (LogError) logEntry() {}
func (LogDone) logEntry()  {}

// Log implements the Logger interface.
func (NopLogger) Log(LogEntry) {}
