// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/internal/runtime"
)

type programBuilder struct {
	program    *runtime.Program
	labels     []runtime.Addr
	gotos      map[runtime.Addr]uint32
	strings    map[string]int32
	numRegs    int32 // number of registers allocated.
	stackSizes []int32
}

// newBuilder returns a new builder for the program p.
func newBuilder(p *runtime.Program) *programBuilder {
	p.Body = nil
	p.DebugInfo = map[runtime.Addr]runtime.DebugInfo{}
	return &programBuilder{
		program: p,
		gotos:   map[runtime.Addr]uint32{},
		strings: map[string]int32{},
	}
}

// enterStack enters a new virtual stack, whose registers will be reused
// after calling exitStack.
// Every enterStack call must be paired with a corresponding exitStack call.
//
// Usage:
//
//	builder.enterStack()
//	reg := builder.newRegister()
//	// use reg in some way
//	builder.exitStack()
//	// reg location is now available for reusing
func (builder *programBuilder) enterStack() {
	builder.stackSizes = append(builder.stackSizes, builder.numRegs)
}

// exitStack exits the current virtual stack.
// Every exitStack call must be paired with a corresponding enterStack call.
func (builder *programBuilder) exitStack() {
	last := len(builder.stackSizes) - 1
	builder.numRegs = builder.stackSizes[last]
	builder.stackSizes = builder.stackSizes[:last]
}

// newRegister makes a new string register.
func (builder *programBuilder) newRegister() int32 {
	reg := builder.numRegs
	builder.numRegs++
	if int(builder.numRegs) > builder.program.NumRegs {
		builder.program.NumRegs = int(builder.numRegs)
	}
	return reg
}

// newSlot makes a new context slot.
func (builder *programBuilder) newSlot() int32 {
	slot := int32(builder.program.NumSlots)
	builder.program.NumSlots++
	return slot
}

// makeStringConstant makes a new string constant, returning its index.
func (builder *programBuilder) makeStringConstant(s string) int32 {
	if k, ok := builder.strings[s]; ok {
		return k
	}
	k := int32(len(builder.program.Strings))
	builder.program.Strings = append(builder.program.Strings, s)
	builder.strings[s] = k
	return k
}

// makeExprConstant adds a parsed expression, returning its index.
func (builder *programBuilder) makeExprConstant(expr ast.Expression) int32 {
	builder.program.Exprs = append(builder.program.Exprs, expr)
	return int32(len(builder.program.Exprs) - 1)
}

// currentAddr returns builder's current address.
func (builder *programBuilder) currentAddr() runtime.Addr {
	return runtime.Addr(len(builder.program.Body))
}

// newLabel creates a new empty label. Use setLabelAddr to associate an
// address to it.
func (builder *programBuilder) newLabel() uint32 {
	builder.labels = append(builder.labels, 0)
	return uint32(len(builder.labels))
}

// setLabelAddr sets label's address as builder's current address.
func (builder *programBuilder) setLabelAddr(label uint32) {
	builder.labels[label-1] = builder.currentAddr()
}

// addPosAndTag adds the position and the source of tag as debug information
// of the next instruction.
func (builder *programBuilder) addPosAndTag(tag *ast.Tag) {
	builder.program.DebugInfo[builder.currentAddr()] = runtime.DebugInfo{
		Position: *tag.Position,
		Tag:      tag.String(),
	}
}

// emit appends in to the program body.
func (builder *programBuilder) emit(in runtime.Instruction) {
	builder.program.Body = append(builder.program.Body, in)
}

// end resolves the addresses of the Goto instructions.
func (builder *programBuilder) end() {
	body := builder.program.Body
	for addr, label := range builder.gotos {
		body[addr].A = int32(builder.labels[label-1])
	}
	builder.gotos = nil
}
