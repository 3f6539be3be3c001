// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"errors"
	"fmt"

	"github.com/open2b/curly/ast"
)

var errNoActiveCursor = errors.New("no active cursor")

// Error records an error occurred executing an instruction.
type Error struct {
	Path string
	Pos  ast.Position
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.Path, e.Pos, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError returns a new *Error for the running instruction.
func (vm *VM) newError(err error) *Error {
	return &Error{
		Path: vm.program.Path,
		Pos:  vm.program.DebugInfo[vm.pc-1].Position,
		Err:  err,
	}
}

// errorf returns a new *Error for the running instruction.
func (vm *VM) errorf(format string, args ...any) *Error {
	return vm.newError(fmt.Errorf(format, args...))
}

// warn logs a warning about the running instruction.
func (vm *VM) warn(msg string, args ...any) {
	info := vm.program.DebugInfo[vm.pc-1]
	attrs := []any{"path", vm.program.Path, "pos", info.Position.String()}
	if info.Tag != "" {
		attrs = append(attrs, "tag", info.Tag)
	}
	vm.logger.Warn(msg, append(attrs, args...)...)
}
