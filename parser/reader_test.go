// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
)

func TestParser(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":        {Data: []byte("{if(a)}{title}{}")},
		"broken.html":       {Data: []byte("{if(a)}")},
		"products/list.txt": {Data: []byte("{forEach(3)}{counter}{}")},
	}
	p := New(fsys)

	tree, err := p.Parse("index.html")
	if err != nil {
		t.Fatal(err)
	}
	if tree.Path != "index.html" {
		t.Errorf("unexpected path %q, expecting %q", tree.Path, "index.html")
	}
	if len(tree.Nodes) != 3 {
		t.Errorf("unexpected %d nodes, expecting 3", len(tree.Nodes))
	}

	// The tree is cached.
	tree2, err := p.Parse("index.html")
	if err != nil {
		t.Fatal(err)
	}
	if tree2 != tree {
		t.Errorf("expecting the cached tree")
	}

	// Invalidate discards the cached tree.
	fsys["index.html"] = &fstest.MapFile{Data: []byte("changed")}
	p.Invalidate("index.html")
	tree3, err := p.Parse("index.html")
	if err != nil {
		t.Fatal(err)
	}
	if tree3 == tree {
		t.Errorf("unexpected cached tree after Invalidate")
	}
	if len(tree3.Nodes) != 1 {
		t.Errorf("unexpected %d nodes, expecting 1", len(tree3.Nodes))
	}

	if _, err = p.Parse("products/list.txt"); err != nil {
		t.Errorf("unexpected error %q", err)
	}

	_, err = p.Parse("missing.html")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("unexpected error %v, expecting fs.ErrNotExist", err)
	}

	_, err = p.Parse("broken.html")
	var e *SyntaxError
	if !errors.As(err, &e) {
		t.Fatalf("unexpected error %v, expecting a *SyntaxError", err)
	}
	if e.Path != "broken.html" {
		t.Errorf("unexpected path %q, expecting %q", e.Path, "broken.html")
	}

	for _, name := range []string{"/index.html", "../index.html", "a//b.html", ""} {
		if _, err = p.Parse(name); err != ErrInvalidPath {
			t.Errorf("path %q: unexpected error %v, expecting %v", name, err, ErrInvalidPath)
		}
	}
}

func TestParserConcurrency(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html": {Data: []byte("{forSelect(category=fruit)}{name}{}")},
	}
	p := New(fsys)
	const n = 8
	var wg sync.WaitGroup
	trees := make([]any, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tree, err := p.Parse("index.html")
			if err != nil {
				t.Error(err)
				return
			}
			trees[i] = tree
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if trees[i] != trees[0] {
			t.Fatalf("goroutine %d: expecting the same tree", i)
		}
	}
}
