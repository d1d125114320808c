// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlx

import (
	"database/sql"
	"fmt"
	"strings"
)

// ScanStrings scans sql.Rows into a slice of strings and closes it at the end.
func ScanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var vs []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, rows.Err()
}

// Body returns the text between the first opening parenthesis of the
// statement and its matching closing one. For example, the column and
// constraint definitions of a CREATE TABLE statement.
func Body(stmt string) (string, error) {
	start := strings.IndexByte(stmt, '(')
	if start == -1 {
		return "", fmt.Errorf("sqlx: missing opening parenthesis in %q", stmt)
	}
	var (
		depth int
		quote byte
	)
	for i := start; i < len(stmt); i++ {
		switch c := stmt[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '-' && strings.HasPrefix(stmt[i:], "--"):
			i = lineEnd(stmt, i)
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth--; depth == 0 {
				return stmt[start+1 : i], nil
			}
		}
	}
	return "", fmt.Errorf("sqlx: unbalanced parentheses in %q", stmt)
}

// SplitComma splits the given text by its top-level commas. Commas that
// are wrapped with parentheses, quotes or line comments are ignored. The returned parts
// are trimmed and empty parts are dropped.
func SplitComma(s string) []string {
	var (
		parts []string
		depth int
		quote byte
		last  int
	)
	add := func(p string) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '-' && strings.HasPrefix(s[i:], "--"):
			i = lineEnd(s, i)
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			add(s[last:i])
			last = i + 1
		}
	}
	add(s[last:])
	return parts
}

// lineEnd returns the index of the line break that ends the
// line at position i, or the last index of s.
func lineEnd(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j != -1 {
		return i + j
	}
	return len(s) - 1
}

// LeadingComments splits the leading line comments of the given
// text from the rest. The comment texts are joined with a space.
func LeadingComments(s string) (string, string) {
	var cs []string
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "--") {
		j := lineEnd(s, 0)
		cs = append(cs, strings.TrimSpace(strings.TrimPrefix(s[:j+1], "--")))
		s = strings.TrimSpace(s[j+1:])
	}
	return strings.Join(cs, " "), s
}

// Unquote removes the quotes of a quoted identifier or literal.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch q := s[0]; q {
	case '\'', '"', '`':
		if s[len(s)-1] == q {
			return strings.ReplaceAll(s[1:len(s)-1], string([]byte{q, q}), string(q))
		}
	case '[':
		if s[len(s)-1] == ']' {
			return s[1 : len(s)-1]
		}
	}
	return s
}
