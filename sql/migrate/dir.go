// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing/fstest"
)

type (
	// Dir wraps the functionality used to interact with the directory
	// that holds the generated SQL artifacts.
	Dir interface {
		fs.FS
		// ReadFile returns the contents of the named artifact.
		ReadFile(string) ([]byte, error)
		// WriteFile writes (or overwrites) the named artifact.
		WriteFile(string, []byte) error
		// Remove removes the named artifact.
		Remove(string) error
		// Names returns the names of the SQL artifacts, sorted.
		Names() ([]string, error)
		// Path returns the location of the named artifact, for reporting.
		Path(string) string
	}

	// Phase identifies the artifact kind of a table.
	Phase string
)

// List of phases.
const (
	PhaseCreate Phase = "create"
	PhaseSeed   Phase = "seed"
)

// extension of the SQL artifacts.
const extension = ".sql"

// FileName returns the deterministic artifact name of the
// given table and phase, e.g. "create_geo_place.sql".
func FileName(table string, p Phase) string {
	if p == PhaseSeed {
		return "insert_" + table + extension
	}
	return "create_" + table + extension
}

// Clean removes all SQL artifacts from the directory.
func Clean(d Dir) error {
	names, err := d.Names()
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := d.Remove(n); err != nil {
			return err
		}
	}
	return nil
}

// LocalDir implements Dir for a local artifacts directory.
type LocalDir struct {
	path string
}

var _ Dir = (*LocalDir)(nil)

// NewLocalDir returns a new Dir to interact with the artifacts
// directory at the given path. The directory must exist.
func NewLocalDir(path string) (*LocalDir, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sql/migrate: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("sql/migrate: %q is not a dir", path)
	}
	return &LocalDir{path: path}, nil
}

// Open implements fs.FS.
func (d *LocalDir) Open(name string) (fs.File, error) {
	return os.Open(filepath.Join(d.path, name))
}

// ReadFile implements Dir.ReadFile.
func (d *LocalDir) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.path, name))
}

// WriteFile implements Dir.WriteFile.
func (d *LocalDir) WriteFile(name string, b []byte) error {
	return os.WriteFile(filepath.Join(d.path, name), b, 0644)
}

// Remove implements Dir.Remove.
func (d *LocalDir) Remove(name string) error {
	err := os.Remove(filepath.Join(d.path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Names implements Dir.Names.
func (d *LocalDir) Names() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), extension) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Path implements Dir.Path.
func (d *LocalDir) Path(name string) string {
	return filepath.Join(d.path, name)
}

// MemDir provides an in-memory Dir implementation.
type MemDir struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ Dir = (*MemDir)(nil)

// Open implements fs.FS.
func (d *MemDir) Open(name string) (fs.File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return fstest.MapFS{name: &fstest.MapFile{Data: b}}.Open(name)
}

// ReadFile implements Dir.ReadFile.
func (d *MemDir) ReadFile(name string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), b...), nil
}

// WriteFile implements Dir.WriteFile.
func (d *MemDir) WriteFile(name string, b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.files == nil {
		d.files = make(map[string][]byte)
	}
	d.files[name] = append([]byte(nil), b...)
	return nil
}

// Remove implements Dir.Remove.
func (d *MemDir) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, name)
	return nil
}

// Names implements Dir.Names.
func (d *MemDir) Names() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.files))
	for n := range d.files {
		if strings.HasSuffix(n, extension) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Path implements Dir.Path.
func (d *MemDir) Path(name string) string {
	return "mem://" + name
}
