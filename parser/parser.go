// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parser implements methods to parse template sources and return
// their trees.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/open2b/curly/ast"
)

// SyntaxError records a syntax error in a template source.
type SyntaxError struct {
	Path string
	Pos  ast.Position
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: syntax error: %s", e.Pos, e.Err)
	}
	return fmt.Sprintf("%s:%s: syntax error: %s", e.Path, e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parse parses src and returns its tree.
//
// The tree is built only if the whole source is well formed: a syntax error
// in any tag, or an open brace or control-flow tag without its close, makes
// Parse return a *SyntaxError and a nil tree.
func Parse(src []byte) (*ast.Tree, error) {
	return ParseTemplate("", src)
}

// ParseTemplate is like Parse but sets the path of the tree and of the
// returned syntax errors.
func ParseTemplate(path string, src []byte) (*ast.Tree, error) {
	lex := newLexer(src)
	nodes, _, err := lex.scan(true)
	if err == nil {
		err = resolveNodes(src, nodes)
	}
	if err != nil {
		if e, ok := err.(*SyntaxError); ok {
			e.Path = path
		}
		return nil, err
	}
	tree := ast.NewTree(path, nodes)
	if len(src) > 0 {
		tree.Position.End = len(src) - 1
	}
	return tree, nil
}

// resolveNodes resolves the tags in nodes and checks that the contexts
// opened in nodes are closed in nodes.
func resolveNodes(src []byte, nodes []ast.Node) error {
	for _, node := range nodes {
		tag, ok := node.(*ast.Tag)
		if !ok {
			continue
		}
		err := resolveTag(src, tag)
		if err != nil {
			return err
		}
	}
	return checkContexts(nodes)
}

// resolveTag resolves the module, the name and the parameters of tag.
func resolveTag(src []byte, tag *ast.Tag) error {

	// Replace the nested tags with placeholders.
	var b strings.Builder
	for _, node := range tag.Nodes {
		switch n := node.(type) {
		case *ast.Text:
			if i := strings.IndexByte(string(n.Text), placeholder); i >= 0 {
				pos := textPosition(src, *n.Position, n.Start, n.Start+i, n.Start+i+1)
				return &SyntaxError{Pos: *pos, Err: errors.New("invalid NUL character")}
			}
			b.Write(n.Text)
		case *ast.Tag:
			b.WriteByte(placeholder)
		}
	}
	text := b.String()

	h, err := parseTag(text)
	if err != nil {
		return &SyntaxError{Pos: *tag.Position, Err: err}
	}

	if strings.IndexByte(text[:h.head], placeholder) >= 0 {
		tag.Dynamic = true
		return resolveNodes(src, tag.Nodes)
	}

	tag.Module = h.module
	tag.Name = h.name
	if h.name != "" {
		tag.Builtin = ast.LookupBuiltin(h.name)
		tag.Params = sliceNodes(src, tag.Nodes, h.start, h.end)
	}
	return resolveNodes(src, tag.Params)
}

// sliceNodes returns the nodes that fall in text[start:end], where text is
// the concatenation of the texts of nodes with a placeholder for each tag.
// Texts across the boundaries are cut.
func sliceNodes(src []byte, nodes []ast.Node, start, end int) []ast.Node {
	var params []ast.Node
	offset := 0
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.Text:
			s, e := offset, offset+len(n.Text)
			offset = e
			if e <= start || s >= end {
				continue
			}
			if s >= start && e <= end {
				params = append(params, n)
				continue
			}
			cs, ce := max(s, start)-s, min(e, end)-s
			if cs == ce {
				continue
			}
			pos := textPosition(src, *n.Position, n.Start, n.Start+cs, n.Start+ce)
			params = append(params, ast.NewText(pos, n.Text[cs:ce]))
		case *ast.Tag:
			if offset >= start && offset < end {
				params = append(params, n)
			}
			offset++
		}
	}
	return params
}

// checkContexts checks that every control-flow tag in nodes is closed by an
// empty tag in nodes. Surplus close tags are not errors.
func checkContexts(nodes []ast.Node) error {
	var open []*ast.Tag
	for _, node := range nodes {
		tag, ok := node.(*ast.Tag)
		if !ok {
			continue
		}
		switch {
		case tag.Opens():
			open = append(open, tag)
		case tag.IsClose():
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}
	if len(open) > 0 {
		tag := open[len(open)-1]
		return &SyntaxError{Pos: *tag.Position, Err: fmt.Errorf("unclosed tag %s", tag)}
	}
	return nil
}
