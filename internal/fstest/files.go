// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fstest implements the file systems used by the tests.
package fstest

import (
	"io/fs"
	"testing/fstest"

	"golang.org/x/tools/txtar"
)

// Files implements a file system that reads the files from a map. The map
// can be changed between two calls to Open.
type Files map[string]string

func (fsys Files) Open(name string) (fs.File, error) {
	m := make(fstest.MapFS, len(fsys))
	for n, data := range fsys {
		m[n] = &fstest.MapFile{Data: []byte(data), Mode: 0644}
	}
	return m.Open(name)
}

// Archive parses a txtar archive and returns its files and its comment.
func Archive(data []byte) (Files, string) {
	a := txtar.Parse(data)
	files := make(Files, len(a.Files))
	for _, f := range a.Files {
		files[f.Name] = string(f.Data)
	}
	return files, string(a.Comment)
}
