// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// A ConfigurationError reports a domain model or convention that cannot be
// turned into a deterministic schema: an unclassifiable attribute, an unknown
// primitive type or an unknown meta category. It is always fatal.
type ConfigurationError struct {
	Elem string // Element that failed, e.g. "geo.place.region".
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("schema: configuration: %s: %v", e.Elem, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Errorf returns a ConfigurationError for the given element.
func Errorf(elem, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Elem: elem, Err: fmt.Errorf(format, args...)}
}

// A FileAccessError reports a missing or unwritable artifact, store or
// token path. It is always fatal.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("schema: file access %q: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// An ExecutionError reports statements that failed against the store.
// It is not fatal: the failing table (or seed rows) is skipped.
type ExecutionError struct {
	Table string
	Phase string
	Stmts []*StmtError
}

// A StmtError holds a single failed statement.
type StmtError struct {
	Stmt string
	Err  error
}

func (e *ExecutionError) Error() string {
	msgs := make([]string, len(e.Stmts))
	for i, s := range e.Stmts {
		msgs[i] = s.Err.Error()
	}
	return fmt.Sprintf("schema: %s %q: %d statement(s) failed: %s", e.Phase, e.Table, len(e.Stmts), strings.Join(msgs, "; "))
}

// Unwrap returns the errors of the failed statements.
func (e *ExecutionError) Unwrap() []error {
	errs := make([]error, len(e.Stmts))
	for i, s := range e.Stmts {
		errs[i] = s.Err
	}
	return errs
}

// A NotExistError wraps another error to retain its original text
// but makes it possible to the caller to catch it.
type NotExistError struct {
	Err error
}

func (e NotExistError) Error() string { return e.Err.Error() }

// IsNotExistError reports an error is a NotExistError.
func IsNotExistError(err error) bool {
	if err == nil {
		return false
	}
	var e *NotExistError
	return errors.As(err, &e)
}

// IsConfigurationError reports an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsFileAccessError reports an error is a FileAccessError.
func IsFileAccessError(err error) bool {
	var e *FileAccessError
	return errors.As(err, &e)
}

// IsExecutionError reports an error is an ExecutionError.
func IsExecutionError(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}
