// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderer

import (
	"errors"
	"strconv"
	"strings"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/internal/eval"
	"github.com/open2b/curly/module"
	"github.com/open2b/curly/parser"
)

var errNoActiveCursor = errors.New("no active cursor")

// Context is the lifecycle record of an open control-flow tag.
//
// A Context is created when the tag is entered and destroyed when its close
// tag is processed. When OnLoop reports that the body must be executed again,
// the context is replaced by a copy of itself, so the cursor moves to the
// new context, and rendering resumes after the opening tag.
type Context struct {
	Tag        *ast.Tag      // opening tag.
	ModuleName string        // name of the owner module.
	Module     module.Module // owner module.
	Cursor     module.Cursor // cursor in scope, nil if there is none.

	OnCreate  func(ctx *Context) error
	OnStart   func(ctx *Context) (bool, error)
	OnLoop    func(ctx *Context) (bool, error)
	OnStop    func(ctx *Context) error
	OnDestroy func(ctx *Context) error

	resume  int  // index of the node following the opening tag.
	skip    bool // output is discarded.
	forced  bool // skipping because an enclosing context skips.
	active  bool // setup succeeded and the body is executed.
	discard bool // a discard writer has been pushed.

	counter  int    // current value of the counter.
	limit    int    // last value of the counter.
	saved    string // value of the counter property before the loop.
	hasSaved bool   // the counter property had a value before the loop.
}

// Skip reports whether the output of the context is discarded.
func (ctx *Context) Skip() bool {
	return ctx.skip
}

// Active reports whether the setup of the context succeeded and its body
// is executed.
func (ctx *Context) Active() bool {
	return ctx.active
}

// Row returns the row in scope of the context, nil if there is none.
func (ctx *Context) Row() module.Row {
	if ctx.Cursor == nil || !ctx.Cursor.Valid() {
		return nil
	}
	return ctx.Cursor.Row()
}

// bind binds the hooks of the control-flow tag builtin to ctx.
// params are the rendered parameters of the tag.
func (s *state) bind(ctx *Context, builtin ast.Builtin, params string) {

	switch builtin {

	case ast.BuiltinIf:
		ctx.OnStart = func(ctx *Context) (bool, error) {
			expr, err := parser.ParseExpression(params)
			if err != nil {
				return false, err
			}
			return eval.Bool(expr, s.lookupFunc(ctx.ModuleName))
		}

	case ast.BuiltinSelect, ast.BuiltinSelectRow, ast.BuiltinForSelect:
		ctx.OnCreate = func(ctx *Context) (err error) {
			if builtin == ast.BuiltinSelectRow {
				ctx.Cursor, err = ctx.Module.Row(strings.TrimSpace(params))
			} else {
				ctx.Cursor, err = ctx.Module.View(params)
			}
			return err
		}
		ctx.OnStart = startCursor
		if builtin == ast.BuiltinForSelect {
			ctx.OnLoop = nextCursor
		}
		ctx.OnDestroy = closeCursor

	case ast.BuiltinForEach:
		arg := strings.TrimSpace(params)
		if arg == "" {
			// Iterate the active cursor again. The cursor is reset when the
			// loop stops only if its owner does not loop, otherwise it is
			// left exhausted and the owner loop ends too.
			ctx.OnCreate = func(ctx *Context) error {
				owner := s.activeContext(ctx.ModuleName)
				if owner == nil {
					return errNoActiveCursor
				}
				ctx.Cursor = owner.Cursor
				if owner.OnLoop == nil {
					ctx.OnStop = func(ctx *Context) error {
						return ctx.Cursor.Reset()
					}
				}
				return nil
			}
			ctx.OnStart = startCursor
			ctx.OnLoop = nextCursor
			return
		}
		if n, err := strconv.Atoi(arg); err == nil {
			ctx.limit = n
			ctx.OnCreate = func(ctx *Context) error {
				ctx.saved, ctx.hasSaved = ctx.Module.Properties().Get(module.CounterProperty)
				return nil
			}
			ctx.OnStart = func(ctx *Context) (bool, error) {
				if ctx.limit < 1 {
					return false, nil
				}
				ctx.counter = 1
				ctx.Module.Properties().Set(module.CounterProperty, "1")
				return true, nil
			}
			ctx.OnLoop = func(ctx *Context) (bool, error) {
				if ctx.counter >= ctx.limit {
					return false, nil
				}
				ctx.counter++
				ctx.Module.Properties().Set(module.CounterProperty, strconv.Itoa(ctx.counter))
				return true, nil
			}
			ctx.OnDestroy = func(ctx *Context) error {
				if ctx.hasSaved {
					ctx.Module.Properties().Set(module.CounterProperty, ctx.saved)
				} else {
					ctx.Module.Properties().Delete(module.CounterProperty)
				}
				return nil
			}
			return
		}
		ctx.OnCreate = func(ctx *Context) (err error) {
			ctx.Cursor, err = ctx.Module.Source(arg)
			return err
		}
		ctx.OnStart = startCursor
		ctx.OnLoop = nextCursor
		ctx.OnDestroy = closeCursor

	}

}

// startCursor positions the cursor of ctx on the first row and reports
// whether there is a row.
func startCursor(ctx *Context) (bool, error) {
	if err := ctx.Cursor.Reset(); err != nil {
		return false, err
	}
	return ctx.Cursor.Valid(), nil
}

// nextCursor advances the cursor of ctx and reports whether there is a row.
func nextCursor(ctx *Context) (bool, error) {
	if err := ctx.Cursor.Next(); err != nil {
		return false, err
	}
	return ctx.Cursor.Valid(), nil
}

// closeCursor closes the cursor of ctx, if it has been opened.
func closeCursor(ctx *Context) error {
	if ctx.Cursor == nil {
		return nil
	}
	err := ctx.Cursor.Close()
	ctx.Cursor = nil
	return err
}
