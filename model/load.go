// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Load reads the model document at the given path. The format is picked
// by the file extension: ".hcl" for HCL documents, ".yaml" or ".yml" for
// YAML documents. The builtin primitives are merged into the result.
func Load(path string, input map[string]cty.Value) (*Model, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		return LoadHCL([]string{path}, input)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, &schema.FileAccessError{
			Path: path,
			Err:  fmt.Errorf("model: unsupported document extension %q", ext),
		}
	}
}

// LoadHCL evaluates the HCL files in the provided paths using the input
// variables and decodes them into a single Model. Variables are reachable
// from the documents as var.<name>.
func LoadHCL(paths []string, input map[string]cty.Value) (*Model, error) {
	parser := hclparse.NewParser()
	files := make([]*hcl.File, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, &schema.FileAccessError{Path: path, Err: err}
		}
		f, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("model: parse %s: %w", path, diags)
		}
		files = append(files, f)
	}
	return decodeHCL(files, input)
}

// ParseHCL parses and evaluates an in-memory HCL document.
func ParseHCL(src []byte, filename string, input map[string]cty.Value) (*Model, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("model: parse %s: %w", filename, diags)
	}
	return decodeHCL([]*hcl.File{f}, input)
}

func decodeHCL(files []*hcl.File, input map[string]cty.Value) (*Model, error) {
	vars := cty.EmptyObjectVal
	if len(input) > 0 {
		vars = cty.ObjectVal(input)
	}
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": vars},
	}
	m := &Model{}
	if diags := gohcl.DecodeBody(hcl.MergeFiles(files), ctx, m); diags.HasErrors() {
		return nil, fmt.Errorf("model: decode: %w", diags)
	}
	return m.WithDefaults(), nil
}

// LoadYAML reads a YAML model document from the given path.
func LoadYAML(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &schema.FileAccessError{Path: path, Err: err}
	}
	return ParseYAML(b)
}

// ParseYAML decodes an in-memory YAML model document. Unknown
// keys are rejected to catch misspelled attribute kinds.
func ParseYAML(b []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	m := &Model{}
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("model: decode yaml: %w", err)
	}
	return m.WithDefaults(), nil
}
