// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"testing"
)

var n1 = NewBasicLiteral(nil, NumberLiteral, "1")
var n2 = NewBasicLiteral(nil, NumberLiteral, "2")
var n3 = NewBasicLiteral(nil, NumberLiteral, "3")

var expressionStringTests = []struct {
	str  string
	expr Expression
}{
	{"1", n1},
	{"3.59", NewBasicLiteral(nil, NumberLiteral, "3.59")},
	{`"abc"`, NewBasicLiteral(nil, StringLiteral, "abc")},
	{"\"a\\tb\"", NewBasicLiteral(nil, StringLiteral, "a\tb")},
	{"true", NewBasicLiteral(nil, BoolLiteral, "true")},
	{"x", NewIdentifier(nil, "x")},
	{"-1", NewUnaryOperator(nil, OperatorSubtraction, n1)},
	{"not x", NewUnaryOperator(nil, OperatorNot, NewIdentifier(nil, "x"))},
	{"1 + 2", NewBinaryOperator(nil, OperatorAddition, n1, n2)},
	{"-(1 + 2)", NewUnaryOperator(nil, OperatorSubtraction, NewBinaryOperator(nil, OperatorAddition, n1, n2))},
	{"1 * 2 + -3", NewBinaryOperator(nil, OperatorAddition,
		NewBinaryOperator(nil, OperatorMultiplication, n1, n2),
		NewUnaryOperator(nil, OperatorSubtraction, n3))},
	{"(1 + 2) * 3", NewBinaryOperator(nil, OperatorMultiplication,
		NewBinaryOperator(nil, OperatorAddition, n1, n2), n3)},
	{"1 - (2 - 3)", NewBinaryOperator(nil, OperatorSubtraction,
		n1, NewBinaryOperator(nil, OperatorSubtraction, n2, n3))},
	{"a == 1 and b contains \"x\"", NewBinaryOperator(nil, OperatorAnd,
		NewBinaryOperator(nil, OperatorEqual, NewIdentifier(nil, "a"), n1),
		NewBinaryOperator(nil, OperatorContains, NewIdentifier(nil, "b"), NewBasicLiteral(nil, StringLiteral, "x")))},
	{"(a or b) and c", NewBinaryOperator(nil, OperatorAnd,
		NewBinaryOperator(nil, OperatorOr, NewIdentifier(nil, "a"), NewIdentifier(nil, "b")),
		NewIdentifier(nil, "c"))},
}

func TestExpressionString(t *testing.T) {
	for _, e := range expressionStringTests {
		if e.expr.String() != e.str {
			t.Errorf("unexpected %q, expecting %q\n", e.expr.String(), e.str)
		}
	}
}

func TestLookupBuiltin(t *testing.T) {
	tests := map[string]Builtin{
		"if":        BuiltinIf,
		"IF":        BuiltinIf,
		"Else":      BuiltinElse,
		"selectrow": BuiltinSelectRow,
		"forSelect": BuiltinForSelect,
		"FOREACH":   BuiltinForEach,
		"cache":     BuiltinCache,
		"html":      BuiltinHTML,
		"print":     BuiltinPrint,
		"markdown":  BuiltinMarkdown,
		"title":     NotBuiltin,
		"":          NotBuiltin,
	}
	for name, expected := range tests {
		if got := LookupBuiltin(name); got != expected {
			t.Errorf("name %q: unexpected %q, expecting %q", name, got, expected)
		}
	}
}

func TestBuiltinIsControl(t *testing.T) {
	controls := []Builtin{BuiltinIf, BuiltinSelect, BuiltinSelectRow, BuiltinForSelect, BuiltinForEach}
	for _, b := range controls {
		if !b.IsControl() {
			t.Errorf("%s: expecting a control tag", b)
		}
	}
	for _, b := range []Builtin{NotBuiltin, BuiltinElse, BuiltinCache, BuiltinHTML, BuiltinPrint} {
		if b.IsControl() {
			t.Errorf("%s: unexpected control tag", b)
		}
	}
}

func TestTagString(t *testing.T) {
	tag := NewTag(nil, []Node{
		NewText(nil, []byte("A.foo(")),
		NewTag(nil, []Node{NewText(nil, []byte("B.bar(x)"))}),
		NewText(nil, []byte(")")),
	})
	if s := tag.String(); s != "{A.foo({B.bar(x)})}" {
		t.Errorf("unexpected %q, expecting %q", s, "{A.foo({B.bar(x)})}")
	}
	if s := NewTag(nil, nil).String(); s != "{}" {
		t.Errorf("unexpected %q, expecting %q", s, "{}")
	}
}

func TestConcat(t *testing.T) {
	nodes := []Node{
		NewText(nil, []byte("a")),
		NewTag(nil, nil),
		NewText(nil, []byte("b")),
	}
	if s := Concat(nodes); s != "ab" {
		t.Errorf("unexpected %q, expecting %q", s, "ab")
	}
	if IsStatic(nodes) {
		t.Errorf("unexpected static nodes")
	}
	if !IsStatic(nodes[:1]) {
		t.Errorf("expecting static nodes")
	}
}
