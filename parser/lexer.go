// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/open2b/curly/ast"
)

var errUnexpectedClose = errors.New("unexpected }")

// lexer scans a template source and builds the nodes of the tree.
//
// Scanning is a single left to right pass: an open brace starts a tag whose
// children are scanned recursively up to, and including, the matching close
// brace.
type lexer struct {
	src    []byte // source.
	p      int    // index of the next byte to scan.
	line   int    // current line starting from 1.
	column int    // current column starting from 1.
}

// newLexer returns a new lexer for src.
func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1, column: 1}
}

// position returns the current position with the given length.
func (l *lexer) position(length int) *ast.Position {
	return &ast.Position{
		Line:   l.line,
		Column: l.column,
		Start:  l.p,
		End:    l.p + length - 1,
	}
}

// advance advances the lexer by n bytes keeping track of line and column.
func (l *lexer) advance(n int) {
	for _, c := range l.src[l.p : l.p+n] {
		if c == '\n' {
			l.line++
			l.column = 1
		} else if utf8.RuneStart(c) {
			l.column++
		}
	}
	l.p += n
}

// scan scans the nodes up to the end of the source, if root is true, or up
// to the close brace of the current tag. On return, if root is false, the
// close brace has not been consumed.
func (l *lexer) scan(root bool) ([]ast.Node, bool, error) {
	var nodes []ast.Node
	for {
		i := bytes.IndexAny(l.src[l.p:], "{}")
		if i == -1 {
			if n := len(l.src) - l.p; n > 0 {
				nodes = append(nodes, ast.NewText(l.position(n), l.src[l.p:]))
				l.advance(n)
			}
			return nodes, false, nil
		}
		if i > 0 {
			nodes = append(nodes, ast.NewText(l.position(i), l.src[l.p:l.p+i]))
			l.advance(i)
		}
		if l.src[l.p] == '}' {
			if root {
				return nil, false, &SyntaxError{Pos: *l.position(1), Err: errUnexpectedClose}
			}
			return nodes, true, nil
		}
		pos := l.position(1)
		l.advance(1)
		children, closed, err := l.scan(false)
		if err != nil {
			return nil, false, err
		}
		if !closed {
			return nil, false, &SyntaxError{Pos: *pos, Err: errors.New("unclosed tag")}
		}
		pos.End = l.p
		l.advance(1)
		nodes = append(nodes, ast.NewTag(pos, children))
	}
}

// textPosition returns the position of the text src[start:end] given the
// position of src[from:], with from <= start.
func textPosition(src []byte, pos ast.Position, from, start, end int) *ast.Position {
	line, column := pos.Line, pos.Column
	for _, c := range src[from:start] {
		if c == '\n' {
			line++
			column = 1
		} else if utf8.RuneStart(c) {
			column++
		}
	}
	return &ast.Position{Line: line, Column: column, Start: start, End: end - 1}
}
