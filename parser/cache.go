// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"sync"

	"github.com/open2b/curly/ast"
)

// cache caches the parsed trees by path. Only one goroutine at a time parses
// a given path, the others wait for its tree.
type cache struct {
	sync.Mutex
	trees   map[string]*ast.Tree
	parsing map[string]*parsing
}

// parsing is a parse in progress.
type parsing struct {
	sync.WaitGroup
	stale bool // the path has been removed while parsing.
}

// get returns the tree with the given path and true if it is cached.
// Otherwise it returns false and the caller, which now parses the path, must
// call done when it has finished.
func (c *cache) get(path string) (*ast.Tree, bool) {
	for {
		c.Lock()
		if t, ok := c.trees[path]; ok {
			c.Unlock()
			return t, true
		}
		p, ok := c.parsing[path]
		if !ok {
			p = &parsing{}
			p.Add(1)
			if c.parsing == nil {
				c.parsing = map[string]*parsing{}
			}
			c.parsing[path] = p
			c.Unlock()
			return nil, false
		}
		c.Unlock()
		p.Wait()
	}
}

// add adds the tree parsed for path. The tree is discarded if the path has
// been removed since the call to get.
func (c *cache) add(path string, tree *ast.Tree) {
	c.Lock()
	if p := c.parsing[path]; p == nil || !p.stale {
		if c.trees == nil {
			c.trees = map[string]*ast.Tree{}
		}
		c.trees[path] = tree
	}
	c.Unlock()
}

// done ends the parse of path and wakes the goroutines waiting for it.
func (c *cache) done(path string) {
	c.Lock()
	p := c.parsing[path]
	delete(c.parsing, path)
	c.Unlock()
	p.Done()
}

// remove removes the tree with the given path. A parse in progress of path
// does not add its tree.
func (c *cache) remove(path string) {
	c.Lock()
	delete(c.trees, path)
	if p, ok := c.parsing[path]; ok {
		p.stale = true
	}
	c.Unlock()
}
