// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// templateFS implements a file system that reads the files in a directory
// and reports the names of the files, read at least once, that are written.
type templateFS struct {
	root    string
	fsys    fs.FS
	watcher *fsnotify.Watcher
	changed chan string
	errors  chan error

	sync.Mutex
	watched map[string]bool
}

func newTemplateFS(root string) (*templateFS, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	t := &templateFS{
		root:    root,
		fsys:    os.DirFS(root),
		watcher: watcher,
		watched: map[string]bool{},
		changed: make(chan string),
		errors:  make(chan error),
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					if name, err := filepath.Rel(root, event.Name); err == nil {
						t.changed <- filepath.ToSlash(name)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.errors <- err
			}
		}
	}()
	return t, nil
}

// Changed returns the channel of the names of the changed files.
func (t *templateFS) Changed() <-chan string {
	return t.changed
}

// Errors returns the channel of the errors of the watcher.
func (t *templateFS) Errors() <-chan error {
	return t.errors
}

func (t *templateFS) Close() error {
	return t.watcher.Close()
}

func (t *templateFS) Open(name string) (fs.File, error) {
	f, err := t.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	if err = t.watch(name); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// watch watches the named file. A file removed and created again is
// watched again when it is opened.
func (t *templateFS) watch(name string) error {
	t.Lock()
	defer t.Unlock()
	if t.watched[name] {
		return nil
	}
	if err := t.watcher.Add(filepath.Join(t.root, filepath.FromSlash(name))); err != nil {
		return err
	}
	t.watched[name] = true
	return nil
}

// forget stops considering name as watched.
func (t *templateFS) forget(name string) {
	t.Lock()
	delete(t.watched, name)
	t.Unlock()
}
