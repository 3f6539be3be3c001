// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open2b/curly/ast"
)

// node is a position independent description of a resolved node.
type node struct {
	Text    string
	Module  string
	Name    string
	Builtin ast.Builtin
	Dynamic bool
	Params  []node
	Nodes   []node
}

func describe(nodes []ast.Node) []node {
	var desc []node
	for _, n := range nodes {
		switch n := n.(type) {
		case *ast.Text:
			desc = append(desc, node{Text: string(n.Text)})
		case *ast.Tag:
			d := node{Module: n.Module, Name: n.Name, Builtin: n.Builtin, Dynamic: n.Dynamic}
			if n.Dynamic {
				d.Nodes = describe(n.Nodes)
			} else {
				d.Params = describe(n.Params)
			}
			desc = append(desc, d)
		}
	}
	return desc
}

func text(s string) node { return node{Text: s} }

var closeTag = node{}

var treeTests = []struct {
	src   string
	nodes []node
}{
	{"", nil},
	{"a", []node{text("a")}},
	{"{}", []node{closeTag}},
	{"a{}b", []node{text("a"), closeTag, text("b")}},
	{"{title}", []node{{Name: "html", Builtin: ast.BuiltinHTML, Params: []node{text("title")}}}},
	{"<b>{Shop.price(sku)}</b>", []node{
		text("<b>"),
		{Module: "Shop", Name: "price", Params: []node{text("sku")}},
		text("</b>"),
	}},
	{"{(x)}", []node{{Name: "print", Builtin: ast.BuiltinPrint, Params: []node{text("x")}}}},
	{"{if(a == 1)}yes{}", []node{
		{Name: "if", Builtin: ast.BuiltinIf, Params: []node{text("a == 1")}},
		text("yes"),
		closeTag,
	}},
	{"{IF(a)}{ELSE()}{}", []node{
		{Name: "IF", Builtin: ast.BuiltinIf, Params: []node{text("a")}},
		{Name: "ELSE", Builtin: ast.BuiltinElse},
		closeTag,
	}},
	{"{ }", []node{closeTag}},
	{"{forEach()}x{}", []node{
		{Name: "forEach", Builtin: ast.BuiltinForEach},
		text("x"),
		closeTag,
	}},
	{"{A.foo({B.bar(x)})}", []node{
		{Module: "A", Name: "foo", Params: []node{
			{Module: "B", Name: "bar", Params: []node{text("x")}},
		}},
	}},
	{"{foo(a{b}c)}", []node{
		{Name: "foo", Params: []node{
			text("a"),
			{Name: "html", Builtin: ast.BuiltinHTML, Params: []node{text("b")}},
			text("c"),
		}},
	}},
	{"{{mod}.name(x)}", []node{
		{Dynamic: true, Nodes: []node{
			{Name: "html", Builtin: ast.BuiltinHTML, Params: []node{text("mod")}},
			text(".name(x)"),
		}},
	}},
	{"{Shop.{tag}(x)}", []node{
		{Dynamic: true, Nodes: []node{
			text("Shop."),
			{Name: "html", Builtin: ast.BuiltinHTML, Params: []node{text("tag")}},
			text("(x)"),
		}},
	}},
	{"{forEach(3)}{if(x)}{}{}", []node{
		{Name: "forEach", Builtin: ast.BuiltinForEach, Params: []node{text("3")}},
		{Name: "if", Builtin: ast.BuiltinIf, Params: []node{text("x")}},
		closeTag,
		closeTag,
	}},
	{"{if(a)}{}{}", []node{
		{Name: "if", Builtin: ast.BuiltinIf, Params: []node{text("a")}},
		closeTag,
		closeTag,
	}},
}

func TestTrees(t *testing.T) {
	for _, test := range treeTests {
		tree, err := Parse([]byte(test.src))
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		if diff := cmp.Diff(test.nodes, describe(tree.Nodes)); diff != "" {
			t.Errorf("source: %q, unexpected tree (-want +got):\n%s", test.src, diff)
		}
	}
}

var treeErrorTests = []struct {
	src string
	err string
}{
	{"{if(a)}x", "1:1: syntax error: unclosed tag {if(a)}"},
	{"ab\n{forEach(3)}{if(x)}{}", "2:1: syntax error: unclosed tag {forEach(3)}"},
	{"{select(a)}{if(x)}", "1:12: syntax error: unclosed tag {if(x)}"},
	{"{foo({if(x)})}", "1:6: syntax error: unclosed tag {if(x)}"},
	{"{A.B.c(x)}", `1:1: syntax error: malformed tag "A.B.c(x)": unexpected '.' after module name`},
	{"x {foo(x}", "1:3: syntax error: unclosed parameter list"},
	{"{foo(x)", "1:1: syntax error: unclosed tag"},
	{"a}", "1:2: syntax error: unexpected }"},
	{"{a\x00}", "1:3: syntax error: invalid NUL character"},
}

func TestTreeErrors(t *testing.T) {
	for _, test := range treeErrorTests {
		tree, err := Parse([]byte(test.src))
		if err == nil {
			t.Errorf("source: %q, expecting error %q", test.src, test.err)
			continue
		}
		if tree != nil {
			t.Errorf("source: %q, unexpected tree, expecting nil", test.src)
		}
		if err.Error() != test.err {
			t.Errorf("source: %q, unexpected error %q, expecting %q", test.src, err, test.err)
		}
	}
}

func TestParseTemplatePath(t *testing.T) {
	tree, err := ParseTemplate("index.html", []byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if tree.Path != "index.html" {
		t.Errorf("unexpected path %q, expecting %q", tree.Path, "index.html")
	}
	if tree.End != 2 {
		t.Errorf("unexpected end %d, expecting 2", tree.End)
	}
	_, err = ParseTemplate("index.html", []byte("{if(a)}"))
	var e *SyntaxError
	if !errors.As(err, &e) {
		t.Fatalf("unexpected error %#v, expecting a *SyntaxError", err)
	}
	if e.Path != "index.html" {
		t.Errorf("unexpected path %q, expecting %q", e.Path, "index.html")
	}
	if expected := "index.html:1:1: syntax error: unclosed tag {if(a)}"; e.Error() != expected {
		t.Errorf("unexpected error %q, expecting %q", e, expected)
	}
}

func TestParamPositions(t *testing.T) {
	tree, err := Parse([]byte("\n{foo(a{b}c)}"))
	if err != nil {
		t.Fatal(err)
	}
	tag := tree.Nodes[1].(*ast.Tag)
	expected := []ast.Position{
		{Line: 2, Column: 6, Start: 6, End: 6},
		{Line: 2, Column: 7, Start: 7, End: 9},
		{Line: 2, Column: 10, Start: 10, End: 10},
	}
	if len(tag.Params) != len(expected) {
		t.Fatalf("unexpected %d params, expecting %d", len(tag.Params), len(expected))
	}
	for i, param := range tag.Params {
		if diff := cmp.Diff(expected[i], *param.Pos()); diff != "" {
			t.Errorf("param %d: unexpected position (-want +got):\n%s", i, diff)
		}
	}
}
