// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runtime implements the virtual machine that executes the programs
// emitted by the compiler.
package runtime

import (
	"errors"
	"io"
	"log/slog"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/module"
)

// Converter converts a Markdown source to HTML.
type Converter func(src []byte, out io.Writer) error

// Program is a compiled template. A program is immutable and can be run
// concurrently by different virtual machines.
type Program struct {
	Path      string             // path of the template.
	Body      []Instruction      // instructions.
	Strings   []string           // string constants.
	Exprs     []ast.Expression   // parsed if expressions.
	NumRegs   int                // number of string registers.
	NumSlots  int                // number of context slots.
	Cacheable bool               // the template called the cache tag.
	DebugInfo map[Addr]DebugInfo // debug information of the instructions.
}

// Addr is the address of an instruction.
type Addr uint32

// DebugInfo represents the debug information associated to an instruction.
type DebugInfo struct {
	Position ast.Position // position of the tag in the source.
	Tag      string       // source of the tag.
}

// Instruction is an instruction of a program.
//
// If Op is negative, the operand B is the index of a string constant,
// otherwise it is the index of a register.
type Instruction struct {
	Op      Operation
	A, B, C int32
}

type Condition int8

const (
	ConditionOK    Condition = iota // [vm.ok]
	ConditionNotOK                  // ![vm.ok]
)

type Operation int8

const (
	OpNone Operation = iota

	OpBuffer

	OpCapture

	OpClose

	OpDynamic

	OpEval

	OpForEach

	OpGoto

	OpHTML

	OpIf

	OpMarkdown

	OpNext

	OpOpen

	OpPrint

	OpRaw

	OpReset

	OpRow

	OpStop

	OpTag

	OpText

	OpView

	OpWarn
)

var operationName = [...]string{
	OpNone:     "None",
	OpBuffer:   "Buffer",
	OpCapture:  "Capture",
	OpClose:    "Close",
	OpDynamic:  "Dynamic",
	OpEval:     "Eval",
	OpForEach:  "ForEach",
	OpGoto:     "Goto",
	OpHTML:     "HTML",
	OpIf:       "If",
	OpMarkdown: "Markdown",
	OpNext:     "Next",
	OpOpen:     "Open",
	OpPrint:    "Print",
	OpRaw:      "Raw",
	OpReset:    "Reset",
	OpRow:      "Row",
	OpStop:     "Stop",
	OpTag:      "Tag",
	OpText:     "Text",
	OpView:     "View",
	OpWarn:     "Warn",
}

func (op Operation) String() string {
	if op < 0 {
		op = -op
	}
	if int(op) < len(operationName) {
		return operationName[op]
	}
	return "Op(?)"
}

// slotKind is the kind of iteration of a context slot.
type slotKind int8

const (
	noIteration    slotKind = iota
	ownCursor               // cursor opened by the context, closed on destroy.
	borrowedCursor          // cursor of an enclosing context.
	counterLoop             // counted loop.
)

// slot holds the state of an open context.
type slot struct {
	name     string
	module   module.Module
	kind     slotKind
	cursor   module.Cursor
	loops    bool // the context iterates its cursor or counter.
	reset    bool // the borrowed cursor is reset when the loop stops.
	counter  int
	limit    int
	saved    string
	hasSaved bool
}

// row returns the row in scope of the slot, nil if there is none.
func (s *slot) row() module.Row {
	if s.cursor == nil || !s.cursor.Valid() {
		return nil
	}
	return s.cursor.Row()
}

// VM is a virtual machine that runs programs.
type VM struct {
	pc       Addr                     // program counter.
	ok       bool                     // ok flag.
	program  *Program                 // running program.
	registry module.Registry          // module registry.
	logger   *slog.Logger             // logger of the warnings.
	markdown Converter                // Markdown converter.
	writers  []io.Writer              // writer stack, the output first.
	regs     []string                 // string registers.
	slots    []slot                   // context slots.
	open     []int32                  // open slots, innermost last.
	modules  map[string]module.Module // resolved modules.
}

// NewVM returns a new virtual machine.
func NewVM() *VM {
	return &VM{logger: slog.Default()}
}

// Reset resets the virtual machine so that it is ready for a new call to
// Run. The output, the logger and the converter are preserved.
func (vm *VM) Reset() {
	vm.pc = 0
	vm.ok = false
	vm.program = nil
	vm.registry = nil
	if len(vm.writers) > 1 {
		vm.writers = vm.writers[:1]
	}
	vm.regs = nil
	vm.slots = nil
	vm.open = vm.open[:0]
	vm.modules = nil
}

// SetRenderer sets the output and the Markdown converter. If conv is nil,
// the parameter of the markdown tag is written HTML escaped.
func (vm *VM) SetRenderer(out io.Writer, conv Converter) {
	vm.writers = []io.Writer{out}
	vm.markdown = conv
}

// SetLogger sets the logger of the warnings. If l is nil, slog.Default() is
// used.
func (vm *VM) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	vm.logger = l
}

// Run runs p resolving the modules through registry. If a module returns an
// error, Run closes the open contexts and returns an *Error.
func (vm *VM) Run(p *Program, registry module.Registry) error {
	if p == nil {
		return errors.New("curly/runtime: program is nil")
	}
	if registry == nil {
		return errors.New("curly/runtime: registry is nil")
	}
	if len(vm.writers) == 0 {
		return errors.New("curly/runtime: output is not set")
	}
	vm.Reset()
	vm.program = p
	vm.registry = registry
	vm.regs = make([]string, p.NumRegs)
	vm.slots = make([]slot, p.NumSlots)
	vm.modules = map[string]module.Module{}
	err := vm.run()
	if err != nil {
		vm.unwind()
	}
	return err
}

// unwind destroys the open slots, from the innermost, and releases the
// writers.
func (vm *VM) unwind() {
	for i := len(vm.open) - 1; i >= 0; i-- {
		vm.destroy(vm.open[i])
	}
	vm.open = vm.open[:0]
	vm.writers = vm.writers[:1]
}
