// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/internal/eval"
	"github.com/open2b/curly/module"
	"github.com/open2b/curly/parser"
)

func (vm *VM) run() error {

	var op Operation
	var a, b, c int32
	var err error

	body := vm.program.Body

	for int(vm.pc) < len(body) {

		in := body[vm.pc]

		vm.pc++
		op, a, b, c = in.Op, in.A, in.B, in.C

		switch op {

		// Buffer
		case OpBuffer:
			vm.writers = append(vm.writers, &bytes.Buffer{})

		// Capture
		case OpCapture:
			buf := vm.writers[len(vm.writers)-1].(*bytes.Buffer)
			vm.regs[a] = buf.String()
			vm.writers = vm.writers[:len(vm.writers)-1]

		// Close
		case OpClose:
			vm.destroy(a)
			vm.open = vm.open[:len(vm.open)-1]

		// Dynamic
		case OpDynamic:
			err = vm.dynamic(vm.regs[b])

		// Eval
		case OpEval, -OpEval:
			vm.ok = vm.eval(a, vm.stringk(b, op < 0), c)

		// ForEach
		case OpForEach, -OpForEach:
			vm.ok = vm.forEach(a, vm.stringk(b, op < 0))

		// Goto
		case OpGoto:
			vm.pc = Addr(a)

		// HTML, Raw
		case OpHTML, -OpHTML, OpRaw, -OpRaw:
			err = vm.value(vm.program.Strings[a], vm.stringk(b, op < 0), op == OpHTML || op == -OpHTML)

		// If
		case OpIf:
			if (Condition(a) == ConditionOK) != vm.ok {
				vm.pc++
			}

		// Markdown
		case OpMarkdown, -OpMarkdown:
			err = vm.writeMarkdown(vm.stringk(b, op < 0))

		// Next
		case OpNext:
			vm.ok = vm.next(a)

		// Open
		case OpOpen:
			vm.ok = vm.openSlot(a, vm.program.Strings[b])

		// Print
		case OpPrint, -OpPrint:
			err = vm.writeString(vm.stringk(b, op < 0))

		// Reset
		case OpReset:
			vm.ok = vm.start(a)

		// Row, View
		case OpRow, -OpRow, OpView, -OpView:
			s := &vm.slots[a]
			s.kind = ownCursor
			params := vm.stringk(b, op < 0)
			if op == OpRow || op == -OpRow {
				s.cursor, err = s.module.Row(strings.TrimSpace(params))
			} else {
				s.cursor, err = s.module.View(params)
				s.loops = c != 0
			}
			vm.ok = err == nil
			if err != nil {
				vm.warn("cannot set up context", "err", err)
				err = nil
			}

		// Stop
		case OpStop:
			if s := &vm.slots[a]; s.kind == borrowedCursor && s.reset {
				if err := s.cursor.Reset(); err != nil {
					vm.warn("cannot stop context", "err", err)
				}
			}

		// Tag
		case OpTag, -OpTag:
			err = vm.tag(vm.program.Strings[a], vm.program.Strings[c], vm.stringk(b, op < 0))

		// Text
		case OpText:
			err = vm.writeString(vm.program.Strings[a])

		// Warn
		case OpWarn:
			vm.warn(vm.program.Strings[a])

		}

		if err != nil {
			return err
		}

	}

	return nil
}

// stringk returns the string constant with index i if k is true, otherwise
// the value of the register i.
func (vm *VM) stringk(i int32, k bool) string {
	if k {
		return vm.program.Strings[i]
	}
	return vm.regs[i]
}

// writeString writes s to the current writer.
func (vm *VM) writeString(s string) error {
	_, err := io.WriteString(vm.writers[len(vm.writers)-1], s)
	return err
}

// writeMarkdown converts src with the Markdown converter and writes the
// result to the current writer.
func (vm *VM) writeMarkdown(src string) error {
	if vm.markdown == nil {
		return vm.writeString(html.EscapeString(src))
	}
	err := vm.markdown([]byte(src), vm.writers[len(vm.writers)-1])
	if err != nil {
		return vm.errorf("markdown: %w", err)
	}
	return nil
}

// module returns the module with the given name. If name is empty, it
// returns the module of the innermost open slot or the default module.
func (vm *VM) module(name string) (string, module.Module, error) {
	if name == "" {
		for i := len(vm.open) - 1; i >= 0; i-- {
			if s := &vm.slots[vm.open[i]]; s.module != nil {
				name = s.name
				break
			}
		}
	}
	if m, ok := vm.modules[name]; ok {
		return name, m, nil
	}
	m, err := vm.registry.Module(name)
	if err != nil {
		return name, nil, err
	}
	vm.modules[name] = m
	return name, m, nil
}

// row returns the row in scope for the named module, nil if there is none.
func (vm *VM) row(name string) module.Row {
	for i := len(vm.open) - 1; i >= 0; i-- {
		s := &vm.slots[vm.open[i]]
		if s.module != nil && s.name == name && s.cursor != nil {
			return s.row()
		}
	}
	return nil
}

// activeSlot returns the innermost open slot of the named module with a
// cursor, nil if there is none.
func (vm *VM) activeSlot(name string) *slot {
	for i := len(vm.open) - 1; i >= 0; i-- {
		s := &vm.slots[vm.open[i]]
		if s.name == name && s.cursor != nil {
			return s
		}
	}
	return nil
}

// openSlot opens the slot i for the module with the given name and reports
// whether the module has been resolved.
func (vm *VM) openSlot(i int32, name string) bool {
	s := &vm.slots[i]
	*s = slot{}
	var err error
	s.name, s.module, err = vm.module(name)
	vm.open = append(vm.open, i)
	if err != nil {
		s.module = nil
		vm.warn("cannot set up context", "err", err)
		return false
	}
	return true
}

// destroy destroys the slot i.
func (vm *VM) destroy(i int32) {
	s := &vm.slots[i]
	switch s.kind {
	case ownCursor:
		if s.cursor != nil {
			if err := s.cursor.Close(); err != nil {
				vm.warn("cannot destroy context", "err", err)
			}
		}
	case counterLoop:
		if s.hasSaved {
			s.module.Properties().Set(module.CounterProperty, s.saved)
		} else {
			s.module.Properties().Delete(module.CounterProperty)
		}
	}
	*s = slot{}
}

// eval evaluates the if expression of the slot i and reports whether it is
// true. If e is negative, the expression is parsed from src.
func (vm *VM) eval(i int32, src string, e int32) bool {
	s := &vm.slots[i]
	var expr ast.Expression
	if e >= 0 {
		expr = vm.program.Exprs[e]
	} else {
		var err error
		expr, err = parser.ParseExpression(src)
		if err != nil {
			vm.warn("cannot set up context", "err", err)
			return false
		}
	}
	ok, err := eval.Bool(expr, vm.lookupFunc(s.name))
	if err != nil {
		vm.warn("cannot set up context", "err", err)
		return false
	}
	return ok
}

// forEach sets up the forEach loop of the slot i and reports whether the
// setup succeeded.
func (vm *VM) forEach(i int32, params string) bool {
	s := &vm.slots[i]
	s.loops = true
	arg := strings.TrimSpace(params)
	if arg == "" {
		owner := vm.activeSlot(s.name)
		if owner == nil {
			vm.warn("cannot set up context", "err", errNoActiveCursor)
			return false
		}
		s.kind = borrowedCursor
		s.cursor = owner.cursor
		s.reset = !owner.loops
		return true
	}
	if n, err := strconv.Atoi(arg); err == nil {
		s.kind = counterLoop
		s.limit = n
		s.saved, s.hasSaved = s.module.Properties().Get(module.CounterProperty)
		return true
	}
	var err error
	s.kind = ownCursor
	s.cursor, err = s.module.Source(arg)
	if err != nil {
		vm.warn("cannot set up context", "err", err)
		return false
	}
	return true
}

// start starts the iteration of the slot i and reports whether the body has
// to be executed.
func (vm *VM) start(i int32) bool {
	s := &vm.slots[i]
	if s.kind == counterLoop {
		if s.limit < 1 {
			return false
		}
		s.counter = 1
		s.module.Properties().Set(module.CounterProperty, "1")
		return true
	}
	if err := s.cursor.Reset(); err != nil {
		vm.warn("cannot set up context", "err", err)
		return false
	}
	return s.cursor.Valid()
}

// next advances the iteration of the slot i and reports whether the body has
// to be executed again.
func (vm *VM) next(i int32) bool {
	s := &vm.slots[i]
	if s.kind == counterLoop {
		if s.counter >= s.limit {
			return false
		}
		s.counter++
		s.module.Properties().Set(module.CounterProperty, strconv.Itoa(s.counter))
		return true
	}
	if err := s.cursor.Next(); err != nil {
		vm.warn("cannot advance context", "err", err)
		return false
	}
	return s.cursor.Valid()
}

// value writes the value of the named property of the module mod.
func (vm *VM) value(mod, name string, escape bool) error {
	modName, m, err := vm.module(mod)
	if err != nil {
		return vm.errorf("%w: %q", err, modName)
	}
	row := vm.row(modName)
	name = strings.TrimSpace(name)
	if v, ok := module.Value(m, row, name); ok {
		if escape {
			v = html.EscapeString(v)
		}
		return vm.writeString(v)
	}
	tag := ast.BuiltinRaw
	if escape {
		tag = ast.BuiltinHTML
	}
	out, err := m.Tag(tag.String(), name, row)
	if err != nil {
		return vm.newError(err)
	}
	return vm.writeString(out)
}

// tag calls the named tag of the module mod.
func (vm *VM) tag(mod, name, params string) error {
	modName, m, err := vm.module(mod)
	if err != nil {
		return vm.errorf("%w: %q", err, modName)
	}
	out, err := m.Tag(name, params, vm.row(modName))
	if err != nil {
		return vm.newError(err)
	}
	return vm.writeString(out)
}

// dynamic executes the dynamic tag whose rendered text is text.
func (vm *VM) dynamic(text string) error {
	mod, name, params, err := parser.ParseTag(text)
	if err != nil {
		return vm.newError(err)
	}
	builtin := ast.LookupBuiltin(name)
	if name == "" || builtin.IsControl() || builtin == ast.BuiltinElse {
		return vm.errorf("dynamic tag {%s} cannot be a control-flow tag", text)
	}
	switch builtin {
	case ast.BuiltinCache:
		return nil
	case ast.BuiltinPrint:
		return vm.writeString(params)
	case ast.BuiltinMarkdown:
		return vm.writeMarkdown(params)
	case ast.BuiltinHTML, ast.BuiltinRaw:
		return vm.value(mod, params, builtin == ast.BuiltinHTML)
	}
	return vm.tag(mod, name, params)
}

// lookupFunc returns the function used to resolve the identifiers of an if
// expression. An identifier "Mod.name" refers to the property name of the
// module Mod, otherwise to the property of the module with name def.
func (vm *VM) lookupFunc(def string) eval.Lookup {
	return func(name string) (string, error) {
		modName := def
		if mod, prop, ok := strings.Cut(name, "."); ok {
			modName, name = mod, prop
		}
		modName, m, err := vm.module(modName)
		if err != nil {
			return "", fmt.Errorf("%w: %q", err, modName)
		}
		row := vm.row(modName)
		if v, ok := module.Value(m, row, name); ok {
			return v, nil
		}
		return m.Tag(ast.BuiltinRaw.String(), name, row)
	}
}
