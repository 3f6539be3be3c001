// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"strings"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/internal/eval"
	"github.com/open2b/curly/internal/runtime"
	"github.com/open2b/curly/parser"
)

// An emitter emits the instructions of a template.
type emitter struct {
	fb *programBuilder
}

// block is a control-flow tag with its body split by the else tags.
type block struct {
	tag      *ast.Tag
	segments [][]ast.Node
}

// emitNodes emits the instructions of nodes.
func (em *emitter) emitNodes(nodes []ast.Node) {
	for i := 0; i < len(nodes); i++ {
		switch node := nodes[i].(type) {
		case *ast.Text:
			if len(node.Text) > 0 {
				em.fb.Text(em.fb.makeStringConstant(string(node.Text)))
			}
		case *ast.Tag:
			switch {
			case node.IsClose():
				em.fb.addPosAndTag(node)
				em.fb.Warn(em.fb.makeStringConstant("unexpected close tag, no open context"))
			case node.Opens():
				var b block
				b, i = splitBlock(nodes, i)
				em.emitBlock(b)
			case isElse(node):
				em.fb.addPosAndTag(node)
				em.fb.Warn(em.fb.makeStringConstant("else tag with no open context"))
			default:
				em.emitTag(node)
			}
		}
	}
}

// isElse reports whether tag is a static else tag.
func isElse(tag *ast.Tag) bool {
	return tag.Builtin == ast.BuiltinElse && !tag.Dynamic
}

// splitBlock returns the block opened by the tag nodes[i] and the index of
// its close tag. The body is split at the else tags of the block. If the
// close tag is missing, the block ends with nodes.
func splitBlock(nodes []ast.Node, i int) (block, int) {
	b := block{tag: nodes[i].(*ast.Tag)}
	depth := 0
	start := i + 1
	j := start
	for ; j < len(nodes); j++ {
		tag, ok := nodes[j].(*ast.Tag)
		if !ok {
			continue
		}
		switch {
		case tag.Opens():
			depth++
			continue
		case tag.IsClose():
			if depth > 0 {
				depth--
				continue
			}
		case isElse(tag) && depth == 0:
		default:
			continue
		}
		b.segments = append(b.segments, nodes[start:j])
		start = j + 1
		if tag.IsClose() {
			return b, j
		}
	}
	b.segments = append(b.segments, nodes[start:])
	return b, j
}

// emitParams emits the instructions that render nodes and returns the
// operand of the result. k reports whether the operand is a constant.
// The instructions must be emitted in a virtual stack.
func (em *emitter) emitParams(nodes []ast.Node) (params int32, k bool) {
	if ast.IsStatic(nodes) {
		return em.fb.makeStringConstant(ast.Concat(nodes)), true
	}
	r := em.fb.newRegister()
	em.fb.Buffer()
	em.fb.enterStack()
	em.emitNodes(nodes)
	em.fb.exitStack()
	em.fb.Capture(r)
	return r, false
}

// emitBlock emits the instructions of a control-flow block.
//
// The even segments are executed, and repeated by the looping tags, if the
// setup succeeds; the odd segments if it fails.
func (em *emitter) emitBlock(b block) {

	fb := em.fb
	tag := b.tag

	fb.enterStack()
	params, k := em.emitParams(tag.Params)

	slot := fb.newSlot()
	fail := fb.newLabel()
	end := fb.newLabel()

	fb.addPosAndTag(tag)
	fb.Open(slot, fb.makeStringConstant(tag.Module))
	fb.If(runtime.ConditionNotOK)
	fb.Goto(fail)

	fb.addPosAndTag(tag)
	switch tag.Builtin {
	case ast.BuiltinIf:
		expr := int32(-1)
		if k {
			if e, err := parser.ParseExpression(fb.program.Strings[params]); err == nil {
				expr = fb.makeExprConstant(e)
			}
		}
		fb.Eval(k, slot, params, expr)
	case ast.BuiltinSelect, ast.BuiltinForSelect:
		fb.View(k, slot, params, tag.Builtin == ast.BuiltinForSelect)
	case ast.BuiltinSelectRow:
		fb.Row(k, slot, params)
	case ast.BuiltinForEach:
		fb.ForEach(k, slot, params)
	}
	fb.exitStack()
	fb.If(runtime.ConditionNotOK)
	fb.Goto(fail)

	if tag.Builtin != ast.BuiltinIf {
		fb.addPosAndTag(tag)
		fb.Reset(slot)
		fb.If(runtime.ConditionNotOK)
		fb.Goto(fail)
	}

	loop := fb.newLabel()
	fb.setLabelAddr(loop)
	for i := 0; i < len(b.segments); i += 2 {
		em.emitNodes(b.segments[i])
	}
	if tag.Builtin == ast.BuiltinForSelect || tag.Builtin == ast.BuiltinForEach {
		fb.addPosAndTag(tag)
		fb.Next(slot)
		fb.If(runtime.ConditionOK)
		fb.Goto(loop)
	}
	if tag.Builtin == ast.BuiltinForEach {
		fb.addPosAndTag(tag)
		fb.Stop(slot)
	}
	fb.Goto(end)

	fb.setLabelAddr(fail)
	for i := 1; i < len(b.segments); i += 2 {
		em.emitNodes(b.segments[i])
	}

	fb.setLabelAddr(end)
	fb.addPosAndTag(tag)
	fb.Close(slot)

}

// emitTag emits the instructions of a tag that does not open a context.
func (em *emitter) emitTag(tag *ast.Tag) {

	fb := em.fb
	fb.enterStack()
	defer fb.exitStack()

	if tag.Dynamic {
		r := fb.newRegister()
		fb.Buffer()
		fb.enterStack()
		em.emitNodes(tag.Nodes)
		fb.exitStack()
		fb.Capture(r)
		fb.addPosAndTag(tag)
		fb.Dynamic(r)
		return
	}

	params, k := em.emitParams(tag.Params)

	if tag.Builtin == ast.BuiltinCache {
		if k {
			v := strings.TrimSpace(fb.program.Strings[params])
			fb.program.Cacheable = v == "" || eval.Truth(v)
		} else {
			fb.program.Cacheable = true
		}
		return
	}

	fb.addPosAndTag(tag)
	switch tag.Builtin {
	case ast.BuiltinPrint:
		fb.Print(k, params)
	case ast.BuiltinMarkdown:
		fb.Markdown(k, params)
	case ast.BuiltinHTML:
		fb.HTML(k, fb.makeStringConstant(tag.Module), params)
	case ast.BuiltinRaw:
		fb.Raw(k, fb.makeStringConstant(tag.Module), params)
	default:
		fb.Tag(k, fb.makeStringConstant(tag.Module), params, fb.makeStringConstant(tag.Name))
	}

}
