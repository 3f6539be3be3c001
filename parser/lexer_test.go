// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/open2b/curly/ast"
)

// shape returns a compact representation of the structure of nodes: texts
// are quoted and tags are enclosed in braces.
func shape(nodes []ast.Node) string {
	var b strings.Builder
	for i, node := range nodes {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch n := node.(type) {
		case *ast.Text:
			b.WriteString("'" + string(n.Text) + "'")
		case *ast.Tag:
			b.WriteString("{" + shape(n.Nodes) + "}")
		}
	}
	return b.String()
}

var scanTests = []struct {
	src   string
	shape string
}{
	{"", ""},
	{"a", "'a'"},
	{"{}", "{}"},
	{"a{}b", "'a' {} 'b'"},
	{"{a}", "{'a'}"},
	{"{a}{b}", "{'a'} {'b'}"},
	{"<p>{title}</p>", "'<p>' {'title'} '</p>'"},
	{"{A.foo({B.bar(x)})}", "{'A.foo(' {'B.bar(x)'} ')'}"},
	{"{{{a}}}", "{{{'a'}}}"},
	{"{a{b}c{d}e}", "{'a' {'b'} 'c' {'d'} 'e'}"},
	{"x\n{if(a)}\n€{}\n", "'x\n' {'if(a)'} '\n€' {} '\n'"},
}

func TestScan(t *testing.T) {
	for _, test := range scanTests {
		lex := newLexer([]byte(test.src))
		nodes, _, err := lex.scan(true)
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		if got := shape(nodes); got != test.shape {
			t.Errorf("source: %q, unexpected %s, expecting %s", test.src, got, test.shape)
		}
	}
}

// leaves returns the concatenation of the texts of nodes in document order.
func leaves(nodes []ast.Node) string {
	var b strings.Builder
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.Text:
			b.Write(n.Text)
		case *ast.Tag:
			b.WriteString(leaves(n.Nodes))
		}
	}
	return b.String()
}

func TestScanLeaves(t *testing.T) {
	for _, test := range scanTests {
		lex := newLexer([]byte(test.src))
		nodes, _, err := lex.scan(true)
		if err != nil {
			t.Fatal(err)
		}
		expected := strings.NewReplacer("{", "", "}", "").Replace(test.src)
		if got := leaves(nodes); got != expected {
			t.Errorf("source: %q, unexpected leaves %q, expecting %q", test.src, got, expected)
		}
	}
}

var scanErrorTests = []struct {
	src string
	pos ast.Position
	err string
}{
	{"{", ast.Position{Line: 1, Column: 1, Start: 0, End: 0}, "unclosed tag"},
	{"a {b", ast.Position{Line: 1, Column: 3, Start: 2, End: 2}, "unclosed tag"},
	{"{a}\n {b{c}", ast.Position{Line: 2, Column: 2, Start: 5, End: 5}, "unclosed tag"},
	{"}", ast.Position{Line: 1, Column: 1, Start: 0, End: 0}, "unexpected }"},
	{"€€}", ast.Position{Line: 1, Column: 3, Start: 6, End: 6}, "unexpected }"},
	{"{a}}", ast.Position{Line: 1, Column: 4, Start: 3, End: 3}, "unexpected }"},
}

func TestScanErrors(t *testing.T) {
	for _, test := range scanErrorTests {
		lex := newLexer([]byte(test.src))
		_, _, err := lex.scan(true)
		if err == nil {
			t.Errorf("source: %q, expecting error %q", test.src, test.err)
			continue
		}
		var e *SyntaxError
		if !errors.As(err, &e) {
			t.Errorf("source: %q, unexpected error type %T", test.src, err)
			continue
		}
		if e.Err.Error() != test.err {
			t.Errorf("source: %q, unexpected error %q, expecting %q", test.src, e.Err, test.err)
		}
		if e.Pos != test.pos {
			t.Errorf("source: %q, unexpected position %#v, expecting %#v", test.src, e.Pos, test.pos)
		}
	}
}

func TestScanPositions(t *testing.T) {
	src := "ab\n{c{d}}\n€{}"
	lex := newLexer([]byte(src))
	nodes, _, err := lex.scan(true)
	if err != nil {
		t.Fatal(err)
	}
	expected := []ast.Position{
		{Line: 1, Column: 1, Start: 0, End: 2},
		{Line: 2, Column: 1, Start: 3, End: 8},
		{Line: 2, Column: 7, Start: 9, End: 12},
		{Line: 3, Column: 2, Start: 13, End: 14},
	}
	if len(nodes) != len(expected) {
		t.Fatalf("unexpected %d nodes, expecting %d", len(nodes), len(expected))
	}
	for i, node := range nodes {
		if *node.Pos() != expected[i] {
			t.Errorf("node %d: unexpected position %#v, expecting %#v", i, *node.Pos(), expected[i])
		}
	}
	inner := nodes[1].(*ast.Tag).Nodes[1].Pos()
	if e := (ast.Position{Line: 2, Column: 3, Start: 5, End: 7}); *inner != e {
		t.Errorf("unexpected position %#v, expecting %#v", *inner, e)
	}
}
