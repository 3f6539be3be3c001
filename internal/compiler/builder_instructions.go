// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"github.com/open2b/curly/internal/runtime"
)

// operation returns op, or -op if k is true.
func operation(op runtime.Operation, k bool) runtime.Operation {
	if k {
		return -op
	}
	return op
}

// Buffer appends a new "Buffer" instruction to the program body.
//
//	push(buffer)
func (builder *programBuilder) Buffer() {
	builder.emit(runtime.Instruction{Op: runtime.OpBuffer})
}

// Capture appends a new "Capture" instruction to the program body.
//
//	r = pop(buffer).String()
func (builder *programBuilder) Capture(r int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpCapture, A: r})
}

// Close appends a new "Close" instruction to the program body.
//
//	destroy(slot); pop(slot)
func (builder *programBuilder) Close(slot int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpClose, A: slot})
}

// Dynamic appends a new "Dynamic" instruction to the program body.
//
//	execute(parseTag(r))
func (builder *programBuilder) Dynamic(r int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpDynamic, B: r})
}

// Eval appends a new "Eval" instruction to the program body. expr is the
// index of the parsed expression, or -1 if it must be parsed from params.
//
//	ok = eval(params)
func (builder *programBuilder) Eval(k bool, slot, params, expr int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpEval, k), A: slot, B: params, C: expr})
}

// ForEach appends a new "ForEach" instruction to the program body.
//
//	ok = forEach(slot, params)
func (builder *programBuilder) ForEach(k bool, slot, params int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpForEach, k), A: slot, B: params})
}

// Goto appends a new "Goto" instruction to the program body.
//
//	goto label
func (builder *programBuilder) Goto(label uint32) {
	in := runtime.Instruction{Op: runtime.OpGoto}
	if addr := builder.labels[label-1]; addr == 0 {
		builder.gotos[builder.currentAddr()] = label
	} else {
		in.A = int32(addr)
	}
	builder.emit(in)
}

// HTML appends a new "HTML" instruction to the program body.
//
//	write(escape(value(mod, params)))
func (builder *programBuilder) HTML(k bool, mod, params int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpHTML, k), A: mod, B: params})
}

// If appends a new "If" instruction to the program body.
//
//	if cond is false { skip next instruction }
func (builder *programBuilder) If(cond runtime.Condition) {
	builder.emit(runtime.Instruction{Op: runtime.OpIf, A: int32(cond)})
}

// Markdown appends a new "Markdown" instruction to the program body.
//
//	write(markdown(params))
func (builder *programBuilder) Markdown(k bool, params int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpMarkdown, k), B: params})
}

// Next appends a new "Next" instruction to the program body.
//
//	ok = next(slot)
func (builder *programBuilder) Next(slot int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpNext, A: slot})
}

// Open appends a new "Open" instruction to the program body.
//
//	push(slot); ok = resolve(mod)
func (builder *programBuilder) Open(slot, mod int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpOpen, A: slot, B: mod})
}

// Print appends a new "Print" instruction to the program body.
//
//	write(params)
func (builder *programBuilder) Print(k bool, params int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpPrint, k), B: params})
}

// Raw appends a new "Raw" instruction to the program body.
//
//	write(value(mod, params))
func (builder *programBuilder) Raw(k bool, mod, params int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpRaw, k), A: mod, B: params})
}

// Reset appends a new "Reset" instruction to the program body.
//
//	ok = start(slot)
func (builder *programBuilder) Reset(slot int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpReset, A: slot})
}

// Row appends a new "Row" instruction to the program body.
//
//	slot.cursor, ok = module.Row(params)
func (builder *programBuilder) Row(k bool, slot, params int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpRow, k), A: slot, B: params})
}

// Stop appends a new "Stop" instruction to the program body.
//
//	stop(slot)
func (builder *programBuilder) Stop(slot int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpStop, A: slot})
}

// Tag appends a new "Tag" instruction to the program body.
//
//	write(module(mod).Tag(name, params, row))
func (builder *programBuilder) Tag(k bool, mod, params, name int32) {
	builder.emit(runtime.Instruction{Op: operation(runtime.OpTag, k), A: mod, B: params, C: name})
}

// Text appends a new "Text" instruction to the program body.
//
//	write(text)
func (builder *programBuilder) Text(text int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpText, A: text})
}

// View appends a new "View" instruction to the program body. loop reports
// whether the context iterates the view.
//
//	slot.cursor, ok = module.View(params)
func (builder *programBuilder) View(k bool, slot, params int32, loop bool) {
	in := runtime.Instruction{Op: operation(runtime.OpView, k), A: slot, B: params}
	if loop {
		in.C = 1
	}
	builder.emit(in)
}

// Warn appends a new "Warn" instruction to the program body.
//
//	log(msg)
func (builder *programBuilder) Warn(msg int32) {
	builder.emit(runtime.Instruction{Op: runtime.OpWarn, A: msg})
}
