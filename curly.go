// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package curly

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/open2b/curly/internal/compiler"
	"github.com/open2b/curly/internal/runtime"
	"github.com/open2b/curly/module"
	"github.com/open2b/curly/parser"
	"github.com/open2b/curly/renderer"
)

// Converter is implemented by format converters.
type Converter func(src []byte, out io.Writer) error

// RenderOptions are the options of the interpreter.
type RenderOptions struct {

	// Logger logs the warnings. If nil, slog.Default() is used.
	Logger *slog.Logger

	// MarkdownConverter converts the parameter of the markdown tag to HTML.
	// If nil, the parameter is written HTML escaped.
	MarkdownConverter Converter
}

// BuildOptions are the options of the compiler.
type BuildOptions struct {

	// MarkdownConverter converts the parameter of the markdown tag to HTML.
	// If nil, the parameter is written HTML escaped.
	MarkdownConverter Converter
}

// RunOptions are the options of a template execution.
type RunOptions struct {

	// Logger logs the warnings. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Render renders the template source src with the interpreter and writes
// the result to out. path is the path of the template, used in the errors
// and in the warnings.
//
// If src has a syntax error, Render returns a *parser.SyntaxError and writes
// nothing. If a module returns an error, it returns a *renderer.Error.
func Render(out io.Writer, path string, src []byte, registry module.Registry, options *RenderOptions) error {
	tree, err := parser.ParseTemplate(path, src)
	if err != nil {
		return err
	}
	ro := &renderer.Options{}
	if options != nil {
		ro.Logger = options.Logger
		ro.MarkdownConverter = renderer.Converter(options.MarkdownConverter)
	}
	return renderer.Render(out, tree, registry, ro)
}

// RenderTemplate renders the named template file of fsys with the
// interpreter. If the file does not exist, the returned error satisfies
// errors.Is(err, fs.ErrNotExist).
func RenderTemplate(out io.Writer, fsys fs.FS, name string, registry module.Registry, options *RenderOptions) error {
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	return Render(out, name, src, registry, options)
}

// Template is a template compiled with the Build or BuildTemplate function.
// A template can be run many times, also concurrently.
type Template struct {
	program *runtime.Program
	conv    runtime.Converter
}

// Build compiles the template source src. path is the path of the template,
// used in the errors and in the warnings.
//
// If src has a syntax error, Build returns a *parser.SyntaxError.
func Build(path string, src []byte, options *BuildOptions) (*Template, error) {
	tree, err := parser.ParseTemplate(path, src)
	if err != nil {
		return nil, err
	}
	program, err := compiler.Compile(tree)
	if err != nil {
		return nil, err
	}
	t := &Template{program: program}
	if options != nil {
		t.conv = runtime.Converter(options.MarkdownConverter)
	}
	return t, nil
}

// BuildTemplate compiles the named template file of fsys. If the file does
// not exist, the returned error satisfies errors.Is(err, fs.ErrNotExist).
func BuildTemplate(fsys fs.FS, name string, options *BuildOptions) (*Template, error) {
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return Build(name, src, options)
}

// Run runs the template, resolving the modules through registry, and
// writes the result to out.
//
// If a module returns an error, Run returns a *RunError.
func (t *Template) Run(out io.Writer, registry module.Registry, options *RunOptions) error {
	if out == nil {
		return errors.New("invalid nil out")
	}
	vm := runtime.NewVM()
	if options != nil {
		vm.SetLogger(options.Logger)
	}
	vm.SetRenderer(out, t.conv)
	err := vm.Run(t.program, registry)
	if e, ok := err.(*runtime.Error); ok {
		err = &RunError{Path: e.Path, Pos: e.Pos, Err: e.Err}
	}
	return err
}

// Cacheable reports whether the template called the cache tag, and then
// the caller should keep the template to run it again.
func (t *Template) Cacheable() bool {
	return t.program.Cacheable
}

// Disassemble disassembles the template and returns its listing.
func (t *Template) Disassemble() []byte {
	var b bytes.Buffer
	_, _ = compiler.Disassemble(&b, t.program)
	return b.Bytes()
}
