// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/module"
	"github.com/open2b/curly/parser"
)

// Error records an error occurred rendering a tag.
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

// Converter converts a Markdown source to HTML.
type Converter func(src []byte, out io.Writer) error

// Options are the rendering options.
type Options struct {

	// Logger logs the warnings. If nil, slog.Default() is used.
	Logger *slog.Logger

	// MarkdownConverter converts the parameter of the markdown tag. If nil,
	// the parameter is written HTML escaped.
	MarkdownConverter Converter
}

// Render renders tree and writes the result to w. Modules are resolved
// through registry; the tags with no module refer to the module of the
// innermost context or, outside of contexts, to the default module.
//
// A control-flow tag that cannot be set up, an unmatched close tag and an
// else tag with no context are logged as warnings. An error returned by a
// module aborts the rendering and is returned as an *Error.
func Render(w io.Writer, tree *ast.Tree, registry module.Registry, options *Options) error {

	if w == nil {
		return errors.New("curly/renderer: w is nil")
	}
	if tree == nil {
		return errors.New("curly/renderer: tree is nil")
	}
	if registry == nil {
		return errors.New("curly/renderer: registry is nil")
	}

	s := &state{
		path:     tree.Path,
		registry: registry,
		logger:   slog.Default(),
		writers:  []io.Writer{w},
		modules:  map[string]module.Module{},
	}
	if options != nil {
		if options.Logger != nil {
			s.logger = options.Logger
		}
		s.markdown = options.MarkdownConverter
	}

	err := s.render(tree.Nodes)
	if err != nil {
		s.unwind()
	}
	return err
}

// state represents the state of rendering of a tree.
type state struct {
	path     string
	registry module.Registry
	logger   *slog.Logger
	markdown Converter
	contexts []*Context
	writers  []io.Writer
	modules  map[string]module.Module
}

// errorf builds and returns a rendering error.
func (s *state) errorf(node ast.Node, format string, args ...any) error {
	return &Error{
		Path: s.path,
		Pos:  *node.Pos(),
		Err:  fmt.Errorf(format, args...),
	}
}

// warn logs a warning about node.
func (s *state) warn(node ast.Node, msg string, args ...any) {
	attrs := []any{"path", s.path, "pos", node.Pos().String()}
	if tag, ok := node.(*ast.Tag); ok {
		attrs = append(attrs, "tag", tag.String())
	}
	s.logger.Warn(msg, append(attrs, args...)...)
}

// render renders nodes. The contexts opened in nodes are closed in nodes.
func (s *state) render(nodes []ast.Node) error {

	base := len(s.contexts)

	for i := 0; i < len(nodes); i++ {

		switch node := nodes[i].(type) {

		case *ast.Text:

			if err := s.write(node.Text); err != nil {
				return err
			}

		case *ast.Tag:

			switch {

			case node.IsClose():
				if len(s.contexts) == base {
					s.warn(node, "unexpected close tag, no open context")
					continue
				}
				ctx := s.contexts[len(s.contexts)-1]
				if next := s.close(ctx); next != nil {
					s.contexts = append(s.contexts, next)
					i = next.resume - 1
				}

			case node.Opens():
				err := s.open(node, i+1)
				if err != nil {
					return err
				}

			case node.Builtin == ast.BuiltinElse && !node.Dynamic:
				if len(s.contexts) == base {
					s.warn(node, "else tag with no open context")
					continue
				}
				s.toggle(s.contexts[len(s.contexts)-1])

			default:
				if s.skipping() {
					continue
				}
				err := s.tag(node)
				if err != nil {
					return err
				}

			}

		}
	}

	return nil
}

// open opens the context of the control-flow tag, whose body starts at the
// node with index resume.
func (s *state) open(tag *ast.Tag, resume int) error {

	ctx := &Context{Tag: tag, resume: resume}

	if s.skipping() {
		ctx.skip = true
		ctx.forced = true
		s.contexts = append(s.contexts, ctx)
		return nil
	}

	params, err := s.params(tag.Params)
	if err != nil {
		return err
	}

	ctx.ModuleName, ctx.Module, err = s.module(tag.Module)
	if err == nil {
		s.bind(ctx, tag.Builtin, params)
		if ctx.OnCreate != nil {
			err = ctx.OnCreate(ctx)
		}
	}
	enter := err == nil
	if err == nil && ctx.OnStart != nil {
		enter, err = ctx.OnStart(ctx)
	}
	if err != nil {
		s.warn(tag, "cannot set up context", "err", err)
		enter = false
	}

	s.contexts = append(s.contexts, ctx)
	ctx.active = enter
	if !enter {
		s.setSkip(ctx, true)
	}

	return nil
}

// close closes ctx, the innermost context. If the context loops, it returns
// the context of the next iteration.
func (s *state) close(ctx *Context) *Context {
	s.pop(ctx)
	if ctx.forced {
		return nil
	}
	if ctx.active && ctx.OnLoop != nil {
		again, err := ctx.OnLoop(ctx)
		if err != nil {
			s.warn(ctx.Tag, "cannot advance context", "err", err)
			again = false
		}
		if again {
			next := *ctx
			next.skip = false
			next.discard = false
			return &next
		}
	}
	if ctx.active && ctx.OnStop != nil {
		if err := ctx.OnStop(ctx); err != nil {
			s.warn(ctx.Tag, "cannot stop context", "err", err)
		}
	}
	s.destroy(ctx)
	return nil
}

// destroy runs the OnDestroy hook of ctx.
func (s *state) destroy(ctx *Context) {
	if ctx.forced || ctx.OnDestroy == nil {
		return
	}
	if err := ctx.OnDestroy(ctx); err != nil {
		s.warn(ctx.Tag, "cannot destroy context", "err", err)
	}
}

// pop pops ctx, the innermost context, and its discard writer.
func (s *state) pop(ctx *Context) {
	if ctx.discard {
		s.popWriter()
		ctx.discard = false
	}
	s.contexts = s.contexts[:len(s.contexts)-1]
}

// unwind destroys the open contexts, from the innermost, and releases the
// writers. It is called when rendering stops on an error.
func (s *state) unwind() {
	for i := len(s.contexts) - 1; i >= 0; i-- {
		s.destroy(s.contexts[i])
	}
	s.contexts = nil
	s.writers = s.writers[:1]
}

// toggle toggles the skip state of ctx. It does nothing if ctx skips
// because an enclosing context skips.
func (s *state) toggle(ctx *Context) {
	if ctx.forced {
		return
	}
	s.setSkip(ctx, !ctx.skip)
}

// setSkip sets the skip state of ctx, the innermost context, pushing or
// popping its discard writer.
func (s *state) setSkip(ctx *Context, skip bool) {
	if ctx.skip == skip {
		return
	}
	ctx.skip = skip
	if skip {
		s.pushWriter(io.Discard)
		ctx.discard = true
	} else if ctx.discard {
		s.popWriter()
		ctx.discard = false
	}
}

// skipping reports whether the output is discarded.
func (s *state) skipping() bool {
	return len(s.contexts) > 0 && s.contexts[len(s.contexts)-1].skip
}

func (s *state) pushWriter(w io.Writer) {
	s.writers = append(s.writers, w)
}

func (s *state) popWriter() {
	s.writers = s.writers[:len(s.writers)-1]
}

// write writes p to the current writer.
func (s *state) write(p []byte) error {
	_, err := s.writers[len(s.writers)-1].Write(p)
	return err
}

// writeString writes str to the current writer.
func (s *state) writeString(str string) error {
	_, err := io.WriteString(s.writers[len(s.writers)-1], str)
	return err
}

// params renders nodes to a capture buffer and returns its content.
func (s *state) params(nodes []ast.Node) (string, error) {
	if len(nodes) == 0 {
		return "", nil
	}
	if ast.IsStatic(nodes) {
		return ast.Concat(nodes), nil
	}
	var b bytes.Buffer
	s.pushWriter(&b)
	err := s.render(nodes)
	s.popWriter()
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// tag executes a tag that does not open a context.
func (s *state) tag(tag *ast.Tag) error {

	mod, name, builtin := tag.Module, tag.Name, tag.Builtin

	var params string
	var err error

	if tag.Dynamic {
		var text string
		text, err = s.params(tag.Nodes)
		if err != nil {
			return err
		}
		mod, name, params, err = parser.ParseTag(text)
		if err != nil {
			return &Error{Path: s.path, Pos: *tag.Position, Err: err}
		}
		builtin = ast.LookupBuiltin(name)
		if name == "" || builtin.IsControl() || builtin == ast.BuiltinElse {
			return s.errorf(tag, "dynamic tag {%s} cannot be a control-flow tag", text)
		}
	} else {
		params, err = s.params(tag.Params)
		if err != nil {
			return err
		}
	}

	switch builtin {
	case ast.BuiltinCache:
		return nil
	case ast.BuiltinPrint:
		return s.writeString(params)
	case ast.BuiltinMarkdown:
		if s.markdown == nil {
			return s.writeString(html.EscapeString(params))
		}
		err = s.markdown([]byte(params), s.writers[len(s.writers)-1])
		if err != nil {
			return s.errorf(tag, "markdown: %w", err)
		}
		return nil
	}

	modName, m, err := s.module(mod)
	if err != nil {
		return s.errorf(tag, "%w: %q", err, modName)
	}
	row := s.row(modName)

	var out string
	switch builtin {
	case ast.BuiltinHTML, ast.BuiltinRaw:
		name := strings.TrimSpace(params)
		v, ok := module.Value(m, row, name)
		if ok {
			if builtin == ast.BuiltinHTML {
				v = html.EscapeString(v)
			}
			out = v
			break
		}
		out, err = m.Tag(builtin.String(), name, row)
	default:
		out, err = m.Tag(name, params, row)
	}
	if err != nil {
		return &Error{Path: s.path, Pos: *tag.Position, Err: err}
	}

	return s.writeString(out)
}

// module returns the module with the given name. If name is empty, it
// returns the module of the innermost context or the default module.
func (s *state) module(name string) (string, module.Module, error) {
	if name == "" {
		for i := len(s.contexts) - 1; i >= 0; i-- {
			if ctx := s.contexts[i]; ctx.Module != nil {
				name = ctx.ModuleName
				break
			}
		}
	}
	if m, ok := s.modules[name]; ok {
		return name, m, nil
	}
	m, err := s.registry.Module(name)
	if err != nil {
		return name, nil, err
	}
	s.modules[name] = m
	return name, m, nil
}

// row returns the row in scope for the named module, nil if there is none.
func (s *state) row(name string) module.Row {
	for i := len(s.contexts) - 1; i >= 0; i-- {
		ctx := s.contexts[i]
		if ctx.Module != nil && ctx.ModuleName == name && ctx.Cursor != nil {
			return ctx.Row()
		}
	}
	return nil
}

// activeContext returns the innermost context of the named module with a
// cursor, nil if there is none.
func (s *state) activeContext(name string) *Context {
	for i := len(s.contexts) - 1; i >= 0; i-- {
		ctx := s.contexts[i]
		if ctx.ModuleName == name && ctx.Cursor != nil {
			return ctx
		}
	}
	return nil
}

// lookupFunc returns the function used to resolve the identifiers of an if
// expression. An identifier "Mod.name" refers to the property name of the
// module Mod, otherwise to the property of the module with name def.
func (s *state) lookupFunc(def string) func(string) (string, error) {
	return func(name string) (string, error) {
		modName := def
		if mod, prop, ok := strings.Cut(name, "."); ok {
			modName, name = mod, prop
		}
		modName, m, err := s.module(modName)
		if err != nil {
			return "", fmt.Errorf("%w: %q", err, modName)
		}
		row := s.row(modName)
		if v, ok := module.Value(m, row, name); ok {
			return v, nil
		}
		return m.Tag(ast.BuiltinRaw.String(), name, row)
	}
}
