// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler implements the compiler that translates a template tree
// into a program executed by the virtual machine of the runtime package.
//
// Each control-flow tag is compiled to a block of instructions:
//
//	    Open slot, module
//	    If NotOK; Goto FAIL
//	    View|Row|ForEach|Eval slot, params
//	    If NotOK; Goto FAIL
//	    Reset slot
//	    If NotOK; Goto FAIL
//	LOOP:
//	    body, before the first else tag
//	    Next slot
//	    If OK; Goto LOOP
//	    Goto END
//	FAIL:
//	    body, after the first else tag
//	END:
//	    Close slot
//
// The Next instruction is emitted only for forSelect and forEach, and the
// Reset instruction is not emitted for if.
package compiler

import (
	"errors"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/internal/runtime"
)

// Compile compiles tree and returns the program.
func Compile(tree *ast.Tree) (*runtime.Program, error) {
	if tree == nil {
		return nil, errors.New("curly/compiler: tree is nil")
	}
	p := &runtime.Program{Path: tree.Path}
	em := &emitter{fb: newBuilder(p)}
	em.emitNodes(tree.Nodes)
	em.fb.end()
	return p, nil
}
