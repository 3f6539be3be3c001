// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"errors"
	"io/fs"

	"github.com/open2b/curly/ast"
)

// ErrInvalidPath is returned by the Parse method of Parser when the name is
// not a valid path.
var ErrInvalidPath = errors.New("curly/parser: invalid path")

// Parser reads and parses the template files of a file system. Trees are
// parsed once and cached by path until Invalidate is called.
//
// The returned trees are shared and must not be modified.
type Parser struct {
	fsys  fs.FS
	cache cache
}

// New returns a new parser that reads the template files from fsys.
func New(fsys fs.FS) *Parser {
	return &Parser{fsys: fsys}
}

// Parse reads and parses the named template file. If the file does not
// exist, the returned error satisfies errors.Is(err, fs.ErrNotExist).
func (p *Parser) Parse(name string) (*ast.Tree, error) {
	if !fs.ValidPath(name) {
		return nil, ErrInvalidPath
	}
	tree, ok := p.cache.get(name)
	if ok {
		return tree, nil
	}
	defer p.cache.done(name)
	src, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return nil, err
	}
	tree, err = ParseTemplate(name, src)
	if err != nil {
		return nil, err
	}
	p.cache.add(name, tree)
	return tree, nil
}

// Invalidate removes the named tree from the cache, so the next call to
// Parse reads the file again.
func (p *Parser) Invalidate(name string) {
	p.cache.remove(name)
}
