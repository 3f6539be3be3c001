// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ast declares the types used to define template trees.
//
// For example, the source in a template file named "products.html":
//
//	{forSelect(category=fruit)}<li>{name}</li>{}
//
// is represented with the tree:
//
//	ast.NewTree("products.html", []ast.Node{
//		&ast.Tag{
//			Position: &ast.Position{Line: 1, Column: 1, Start: 0, End: 26},
//			Nodes:    []ast.Node{ast.NewText(&ast.Position{...}, []byte("forSelect(category=fruit)"))},
//			Name:     "forSelect",
//			Params:   []ast.Node{ast.NewText(&ast.Position{...}, []byte("category=fruit"))},
//			Builtin:  ast.BuiltinForSelect,
//		},
//		ast.NewText(&ast.Position{Line: 1, Column: 28, Start: 27, End: 30}, []byte("<li>")),
//		...
//	})
//
// Control-flow tags are not nested in the tree: a context opened by a tag
// such as forSelect extends, in the same node list, up to the matching
// close tag "{}".
package ast

import (
	"strconv"
	"strings"
)

// Node is a node of the tree.
type Node interface {
	Pos() *Position // position in the original source
}

// Position is a position of a node in the source.
type Position struct {
	Line   int // line starting from 1
	Column int // column in characters starting from 1
	Start  int // index of the first byte
	End    int // index of the last byte
}

// Pos returns the position p.
func (p *Position) Pos() *Position {
	return p
}

// String returns the line and column separated by a colon, for example "37:18".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// WithEnd returns a copy of the position but with the given end index.
func (p *Position) WithEnd(end int) *Position {
	pp := *p
	pp.End = end
	return &pp
}

// Builtin identifies a built-in tag. Built-in names are matched case
// insensitively.
type Builtin int

const (
	NotBuiltin Builtin = iota
	BuiltinIf
	BuiltinElse
	BuiltinSelect
	BuiltinSelectRow
	BuiltinForSelect
	BuiltinForEach
	BuiltinCache
	BuiltinHTML
	BuiltinRaw
	BuiltinPrint
	BuiltinMarkdown
)

var builtinNames = [...]string{
	NotBuiltin:       "",
	BuiltinIf:        "if",
	BuiltinElse:      "else",
	BuiltinSelect:    "select",
	BuiltinSelectRow: "selectRow",
	BuiltinForSelect: "forSelect",
	BuiltinForEach:   "forEach",
	BuiltinCache:     "cache",
	BuiltinHTML:      "html",
	BuiltinRaw:       "raw",
	BuiltinPrint:     "print",
	BuiltinMarkdown:  "markdown",
}

var builtinByName map[string]Builtin

func init() {
	builtinByName = make(map[string]Builtin, len(builtinNames))
	for b, name := range builtinNames {
		if name != "" {
			builtinByName[strings.ToLower(name)] = Builtin(b)
		}
	}
}

// LookupBuiltin returns the built-in tag with the given name, or NotBuiltin
// if name is not the name of a built-in tag.
func LookupBuiltin(name string) Builtin {
	return builtinByName[strings.ToLower(name)]
}

// String returns the canonical name of the built-in tag.
func (b Builtin) String() string {
	return builtinNames[b]
}

// IsControl reports whether the built-in tag opens a context that must be
// closed by an empty tag.
func (b Builtin) IsControl() bool {
	switch b {
	case BuiltinIf, BuiltinSelect, BuiltinSelectRow, BuiltinForSelect, BuiltinForEach:
		return true
	}
	return false
}

// Text node represents a text in a template source.
type Text struct {
	*Position        // position in the source.
	Text      []byte // text.
}

// NewText returns a new Text node.
func NewText(pos *Position, text []byte) *Text {
	return &Text{pos, text}
}

// String returns the string representation of n.
func (n *Text) String() string {
	return string(n.Text)
}

// Tag node represents a brace-delimited tag.
type Tag struct {
	*Position         // position in the source, from '{' to '}'.
	Nodes     []Node  // nodes between the braces, in document order.
	Module    string  // module name, empty for the active module.
	Name      string  // tag name, empty for the close tag.
	Params    []Node  // parameters, literal texts and nested tags.
	Builtin   Builtin // built-in tag, NotBuiltin for module tags.

	// Dynamic reports whether a nested tag precedes the parameters, so the
	// module and name are known only after rendering Nodes.
	Dynamic bool
}

// NewTag returns a new Tag node with the given children. Module, Name,
// Params and Builtin are resolved by the parser.
func NewTag(pos *Position, nodes []Node) *Tag {
	return &Tag{Position: pos, Nodes: nodes}
}

// IsClose reports whether n is the empty tag that closes the innermost
// open context.
func (n *Tag) IsClose() bool {
	return !n.Dynamic && n.Name == ""
}

// Opens reports whether n opens a context.
func (n *Tag) Opens() bool {
	return !n.Dynamic && n.Builtin.IsControl()
}

// String returns the source of n.
func (n *Tag) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for _, node := range n.Nodes {
		switch node := node.(type) {
		case *Text:
			b.Write(node.Text)
		case *Tag:
			b.WriteString(node.String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

// Tree node represents a tree.
type Tree struct {
	*Position
	Path  string // path of the tree.
	Nodes []Node // nodes of the first level of the tree.
}

// NewTree returns a new Tree node.
func NewTree(path string, nodes []Node) *Tree {
	if nodes == nil {
		nodes = []Node{}
	}
	tree := &Tree{
		Path:     path,
		Nodes:    nodes,
		Position: &Position{1, 1, 0, 0},
	}
	return tree
}

// IsStatic reports whether nodes contains only texts.
func IsStatic(nodes []Node) bool {
	for _, node := range nodes {
		if _, ok := node.(*Text); !ok {
			return false
		}
	}
	return true
}

// Concat returns the concatenation of the texts in nodes. Tags are ignored.
func Concat(nodes []Node) string {
	if len(nodes) == 1 {
		if t, ok := nodes[0].(*Text); ok {
			return string(t.Text)
		}
	}
	var b strings.Builder
	for _, node := range nodes {
		if t, ok := node.(*Text); ok {
			b.Write(t.Text)
		}
	}
	return b.String()
}
