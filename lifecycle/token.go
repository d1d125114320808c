// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package lifecycle

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
)

// Token is the persisted status of the last rebuild.
type Token string

// Token values.
const (
	TokenAbsent     Token = ""
	TokenInProgress Token = "IN_PROGRESS"
	TokenComplete   Token = "COMPLETE"
)

// ReadToken reads the status token at the given path. A missing token
// file reads as TokenAbsent. Unknown contents read as TokenInProgress.
func ReadToken(path string) (Token, error) {
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return TokenAbsent, nil
	case err != nil:
		return TokenAbsent, &schema.FileAccessError{Path: path, Err: err}
	}
	switch t := Token(strings.TrimSpace(string(b))); t {
	case TokenComplete, TokenAbsent:
		return t, nil
	default:
		return TokenInProgress, nil
	}
}

// WriteToken persists the given status token.
func WriteToken(path string, t Token) error {
	if err := os.WriteFile(path, []byte(t), 0644); err != nil {
		return &schema.FileAccessError{Path: path, Err: err}
	}
	return nil
}

// copyFile copies the file src to dst, replacing dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &schema.FileAccessError{Path: src, Err: err}
	}
	defer in.Close()
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return &schema.FileAccessError{Path: dst, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return &schema.FileAccessError{Path: dst, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &schema.FileAccessError{Path: dst, Err: err}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return &schema.FileAccessError{Path: dst, Err: err}
	}
	return nil
}

// exists reports if a file exists at the given path.
func exists(path string) (bool, error) {
	switch _, err := os.Stat(path); {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &schema.FileAccessError{Path: path, Err: err}
	}
}
