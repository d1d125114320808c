// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stmt represents a scanned statement text along with its
// position in the artifact and associated comments group.
type Stmt struct {
	Pos      int      // statement position
	Text     string   // statement text
	Comments []string // associated comments
}

// DirectivePrefix prefixes the name of directive comments,
// e.g. "-- saskan:table geo_place".
const DirectivePrefix = "saskan:"

// Directive returns all directive comments with the given name.
func (s *Stmt) Directive(name string) (ds []string) {
	for _, c := range s.Comments {
		switch {
		case strings.HasPrefix(c, "/*") && !strings.Contains(c, "\n"):
			if d, ok := directive(strings.TrimSuffix(c, "*/"), name, "/*"); ok {
				ds = append(ds, d)
			}
		default:
			if d, ok := directive(c, name, "--"); ok {
				ds = append(ds, d)
			}
		}
	}
	return
}

// directive parses a "<prefix> saskan:<name> <value>" comment.
func directive(c, name, prefix string) (string, bool) {
	if !strings.HasPrefix(c, prefix) {
		return "", false
	}
	c = strings.TrimSpace(c[len(prefix):])
	d := DirectivePrefix + name
	if !strings.HasPrefix(c, d) {
		return "", false
	}
	rest := c[len(d):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// Stmts splits the contents of an artifact into its SQL statements.
// Statements are terminated by a semicolon outside of quotes, comments
// and parentheses. The last statement may omit its terminator.
func Stmts(input string) ([]*Stmt, error) {
	var (
		stmts []*Stmt
		l     = &lex{input: input}
	)
	for {
		s, err := l.stmt()
		if err == io.EOF {
			return stmts, nil
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
}

type lex struct {
	input    string
	pos      int      // current and real position
	total    int      // total bytes scanned so far
	width    int      // size of latest rune
	depth    int      // depth of parentheses
	comments []string // collected comments
}

const (
	eos       = -1
	delimiter = ';'
)

func (l *lex) stmt() (*Stmt, error) {
	var text string
	l.skipSpaces()
Scan:
	for {
		switch r := l.next(); {
		case r == eos:
			if l.depth > 0 {
				return nil, errors.New("unclosed parentheses")
			}
			if l.pos > 0 {
				text = l.input
				break Scan
			}
			return nil, io.EOF
		case r == '(':
			l.depth++
		case r == ')':
			if l.depth == 0 {
				return nil, fmt.Errorf("unexpected ')' at position %d", l.total)
			}
			l.depth--
		case r == '\'', r == '"', r == '`':
			if err := l.skipQuote(r); err != nil {
				return nil, err
			}
		case r == delimiter && l.depth == 0:
			text = l.input[:l.pos]
			break Scan
		case r == '-' && l.peek() == '-':
			l.comment("--", "\n")
		case r == '/' && l.peek() == '*':
			l.comment("/*", "*/")
		}
	}
	s := l.emit(text)
	// A trailing comments group is not a statement.
	if strings.TrimSpace(strings.TrimSuffix(s.Text, string(delimiter))) == "" {
		return l.stmt()
	}
	return s, nil
}

func (l *lex) next() rune {
	if l.pos >= len(l.input) {
		return eos
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.addPos(w)
	return r
}

func (l *lex) peek() rune {
	if l.pos >= len(l.input) {
		return eos
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *lex) addPos(p int) {
	l.pos += p
	l.total += p
}

// skipQuote skips a quoted text. Quotes are escaped by doubling
// them, which is scanned as two adjacent quoted texts.
func (l *lex) skipQuote(quote rune) error {
	for {
		switch r := l.next(); r {
		case eos:
			return fmt.Errorf("unclosed quote %q", quote)
		case quote:
			return nil
		}
	}
}

func (l *lex) comment(left, right string) {
	// Skip the second rune of the left marker.
	l.next()
	i := strings.Index(l.input[l.pos:], right)
	if i == -1 {
		// Line comments may end with the input.
		if right != "\n" {
			return
		}
		i = len(l.input) - l.pos - len(right)
	}
	l.addPos(i + len(right))
	// Comments that reside inside a statement are part of its text.
	if strings.TrimSpace(l.input[:l.pos-i-len(right)-len(left)]) != "" {
		return
	}
	// If we did not scan any statement characters, it
	// can be skipped and stored in the comments group.
	l.comments = append(l.comments, l.input[:l.pos])
	l.input = l.input[l.pos:]
	l.pos = 0
	// An empty line separates the comments group from the statement.
	if strings.HasPrefix(l.input, "\n\n") || right == "\n" && strings.HasPrefix(l.input, "\n") {
		l.comments = nil
	}
	l.skipSpaces()
}

func (l *lex) skipSpaces() {
	n := len(l.input)
	l.input = strings.TrimLeftFunc(l.input, unicode.IsSpace)
	l.total += n - len(l.input)
}

func (l *lex) emit(text string) *Stmt {
	s := &Stmt{Pos: l.total - len(text), Text: strings.TrimSpace(text), Comments: l.comments}
	l.input = l.input[l.pos:]
	l.pos = 0
	l.comments = nil
	return s
}
