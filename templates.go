// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package curly

import (
	"io/fs"
	"sync"

	"github.com/open2b/curly/internal/compiler"
	"github.com/open2b/curly/internal/runtime"
	"github.com/open2b/curly/parser"
)

// Templates builds the template files of a file system and keeps the
// cacheable templates, so that they are built only once. It is safe for
// concurrent use; concurrent requests of the same template build it once.
type Templates struct {
	parser    *parser.Parser
	conv      runtime.Converter
	templates map[string]*Template
	waits     map[string]*sync.WaitGroup
	sync.Mutex
}

// NewTemplates returns a new Templates that reads the template files from
// fsys.
func NewTemplates(fsys fs.FS, options *BuildOptions) *Templates {
	ts := &Templates{
		parser:    parser.New(fsys),
		templates: map[string]*Template{},
		waits:     map[string]*sync.WaitGroup{},
	}
	if options != nil {
		ts.conv = runtime.Converter(options.MarkdownConverter)
	}
	return ts
}

// Get returns the named template. A template that is not cacheable is built
// again on each call.
//
// If the file does not exist, the returned error satisfies
// errors.Is(err, fs.ErrNotExist). If name is not a valid path, it returns
// parser.ErrInvalidPath.
func (ts *Templates) Get(name string) (*Template, error) {
	ts.Lock()
	if t, ok := ts.templates[name]; ok {
		ts.Unlock()
		return t, nil
	}
	if wait, ok := ts.waits[name]; ok {
		ts.Unlock()
		wait.Wait()
		return ts.Get(name)
	}
	wait := &sync.WaitGroup{}
	wait.Add(1)
	ts.waits[name] = wait
	ts.Unlock()

	t, err := ts.build(name)

	ts.Lock()
	if err == nil && t.Cacheable() {
		ts.templates[name] = t
	}
	delete(ts.waits, name)
	wait.Done()
	ts.Unlock()

	return t, err
}

// build builds the named template.
func (ts *Templates) build(name string) (*Template, error) {
	tree, err := ts.parser.Parse(name)
	if err != nil {
		return nil, err
	}
	program, err := compiler.Compile(tree)
	if err != nil {
		return nil, err
	}
	return &Template{program: program, conv: ts.conv}, nil
}

// Invalidate removes the named template from the cache, so the next call to
// Get reads the file again.
func (ts *Templates) Invalidate(name string) {
	ts.Lock()
	delete(ts.templates, name)
	ts.Unlock()
	ts.parser.Invalidate(name)
}
