// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/open2b/curly/internal/runtime"
)

// Disassemble writes to w the listing of the program p.
func Disassemble(w io.Writer, p *runtime.Program) (int64, error) {

	var b bytes.Buffer

	labelOf := map[runtime.Addr]int{}
	for _, in := range p.Body {
		if in.Op == runtime.OpGoto {
			labelOf[runtime.Addr(in.A)] = 0
		}
	}
	if len(labelOf) > 0 {
		addresses := make([]int, 0, len(labelOf))
		for addr := range labelOf {
			addresses = append(addresses, int(addr))
		}
		sort.Ints(addresses)
		for i, addr := range addresses {
			labelOf[runtime.Addr(addr)] = i + 1
		}
	}

	_, _ = fmt.Fprintf(&b, "Template %s\n", p.Path)
	_, _ = fmt.Fprintf(&b, "\t; regs(%d) slots(%d)", p.NumRegs, p.NumSlots)
	if p.Cacheable {
		_, _ = b.WriteString(" cacheable")
	}
	_ = b.WriteByte('\n')

	for addr := range p.Body {
		if label, ok := labelOf[runtime.Addr(addr)]; ok {
			_, _ = fmt.Fprintf(&b, "%d:", label)
		}
		in := p.Body[addr]
		if in.Op == runtime.OpGoto {
			_, _ = fmt.Fprintf(&b, "\tGoto %d\n", labelOf[runtime.Addr(in.A)])
			continue
		}
		_, _ = fmt.Fprintf(&b, "\t%s\n", disassembleInstruction(p, in))
	}
	if label, ok := labelOf[runtime.Addr(len(p.Body))]; ok {
		_, _ = fmt.Fprintf(&b, "%d:\n", label)
	}

	return b.WriteTo(w)
}

// DisassembleInstruction writes to w the instruction at address addr of p.
func DisassembleInstruction(w io.Writer, p *runtime.Program, addr runtime.Addr) (int64, error) {
	n, err := io.WriteString(w, disassembleInstruction(p, p.Body[addr]))
	return int64(n), err
}

func disassembleInstruction(p *runtime.Program, in runtime.Instruction) string {
	op, a, b, c := in.Op, in.A, in.B, in.C
	k := false
	if op < 0 {
		op = -op
		k = true
	}
	s := op.String()
	switch op {
	case runtime.OpCapture:
		s += " " + disassembleRegister(a)
	case runtime.OpClose, runtime.OpNext, runtime.OpReset, runtime.OpStop:
		s += " " + disassembleSlot(a)
	case runtime.OpDynamic:
		s += " " + disassembleRegister(b)
	case runtime.OpEval:
		s += " " + disassembleSlot(a)
		s += " " + disassembleOperand(p, b, k)
		if c >= 0 {
			s += " ; parsed"
		}
	case runtime.OpForEach, runtime.OpRow, runtime.OpView:
		s += " " + disassembleSlot(a)
		s += " " + disassembleOperand(p, b, k)
		if op == runtime.OpView && c != 0 {
			s += " ; loop"
		}
	case runtime.OpGoto:
		s += " " + strconv.Itoa(int(a))
	case runtime.OpHTML, runtime.OpRaw:
		s += " " + disassembleOperand(p, a, true)
		s += " " + disassembleOperand(p, b, k)
	case runtime.OpIf:
		if runtime.Condition(a) == runtime.ConditionOK {
			s += " OK"
		} else {
			s += " NotOK"
		}
	case runtime.OpMarkdown, runtime.OpPrint:
		s += " " + disassembleOperand(p, b, k)
	case runtime.OpOpen:
		s += " " + disassembleSlot(a)
		s += " " + disassembleOperand(p, b, true)
	case runtime.OpTag:
		s += " " + disassembleOperand(p, a, true)
		s += " " + p.Strings[c]
		s += " " + disassembleOperand(p, b, k)
	case runtime.OpText, runtime.OpWarn:
		s += " " + disassembleOperand(p, a, true)
	}
	return s
}

// disassembleOperand returns the string constant with index i quoted, if k
// is true, otherwise the register i.
func disassembleOperand(p *runtime.Program, i int32, k bool) string {
	if k {
		return strconv.Quote(p.Strings[i])
	}
	return disassembleRegister(i)
}

func disassembleRegister(r int32) string {
	return "R" + strconv.Itoa(int(r))
}

func disassembleSlot(s int32) string {
	return "S" + strconv.Itoa(int(s))
}
