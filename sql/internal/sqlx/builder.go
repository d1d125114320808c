// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlx

import (
	"bytes"
	"reflect"
	"strings"
)

// Builder provides a syntactic sugar API for writing SQL statements.
type Builder struct {
	bytes.Buffer
	// QuoteChar quotes identifiers. Identifiers are written
	// as-is if it is zero.
	QuoteChar byte
	// Indent, if set, writes the elements of wrapped lists
	// one per line, prefixed with the indent.
	Indent string
}

// P writes a list of phrases to the builder separated by whitespace.
func (b *Builder) P(phrases ...string) *Builder {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if b.Len() > 0 && !b.separated() {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b
}

// Ident writes the given string quoted as an SQL identifier.
func (b *Builder) Ident(s string) *Builder {
	if b.QuoteChar == 0 {
		return b.P(s)
	}
	q := string(b.QuoteChar)
	return b.P(q + strings.ReplaceAll(s, q, q+q) + q)
}

// Lit writes the given string as a single-quoted SQL literal.
func (b *Builder) Lit(s string) *Builder {
	return b.P(Quote(s))
}

// Comma writes a comma. In indent mode, the next element
// starts on a new line.
func (b *Builder) Comma() *Builder {
	if b.Indent != "" {
		b.WriteString(",\n")
		b.WriteString(b.Indent)
		return b
	}
	b.WriteString(", ")
	return b
}

// MapComma maps the slice x using the function f and separates each
// element with a comma. It panics if x is not a slice.
func (b *Builder) MapComma(x any, f func(i int, b *Builder)) *Builder {
	s := reflect.ValueOf(x)
	for i := 0; i < s.Len(); i++ {
		if i > 0 {
			b.Comma()
		}
		f(i, b)
	}
	return b
}

// Wrap wraps the written string with parentheses.
func (b *Builder) Wrap(f func(b *Builder)) *Builder {
	b.P("(")
	if b.Indent != "" {
		b.WriteByte('\n')
		b.WriteString(b.Indent)
	}
	f(b)
	if b.Indent != "" {
		b.WriteByte('\n')
	}
	b.WriteByte(')')
	return b
}

// Comment writes the given text as a line comment. Line breaks in
// the text are folded, and the next element starts on a new line.
func (b *Builder) Comment(s string) *Builder {
	b.P("--", strings.Join(strings.Fields(s), " "))
	b.WriteByte('\n')
	b.WriteString(b.Indent)
	return b
}

// String overrides the Buffer.String method and ensures no spaces pad the returned statement.
func (b *Builder) String() string {
	return strings.TrimSpace(b.Buffer.String())
}

// separated reports if the last written byte separates phrases.
func (b *Builder) separated() bool {
	switch b.Bytes()[b.Len()-1] {
	case ' ', '(', '\n':
		return true
	}
	return false
}

// Quote returns the given string as a single-quoted SQL literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
