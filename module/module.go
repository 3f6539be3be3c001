// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package module declares the capabilities that a template engine consumes
// from the modules of the application: property lookup, tag evaluation and
// row iteration.
//
// The engines never implement a capability, they resolve a module through a
// Registry and invoke it by name.
package module

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotExist is returned by a Registry when a module does not exist.
var ErrNotExist = errors.New("module does not exist")

// CounterProperty is the property that holds the counter of a counted
// forEach loop.
const CounterProperty = "counter"

// Registry resolves the modules by name. The empty name refers to the
// default module, used by the tags with no module.
type Registry interface {
	Module(name string) (Module, error)
}

// Module is the capability set of a module.
type Module interface {

	// Tag evaluates the named tag with the given parameters and returns its
	// output. row is the row in scope for the module, nil if there is none.
	Tag(name, params string, row Row) (string, error)

	// View opens a cursor over the rows selected by query.
	View(query string) (Cursor, error)

	// Row opens a cursor over the row with the given identifier.
	Row(id string) (Cursor, error)

	// Source opens a cursor over the special iteration source with the
	// given name, for example the list of the fields.
	Source(name string) (Cursor, error)

	// Properties returns the property bag of the module.
	Properties() Properties
}

// Cursor iterates over a sequence of rows. A cursor is positioned before
// the first row until Reset is called.
type Cursor interface {

	// Reset positions the cursor on the first row.
	Reset() error

	// Next advances the cursor to the next row.
	Next() error

	// Valid reports whether the cursor is positioned on a row.
	Valid() bool

	// Row returns the current row. It must be called only if Valid returns
	// true.
	Row() Row

	// Close releases the resources of the cursor.
	Close() error
}

// Row is a row of a cursor.
type Row interface {

	// Field returns the value of the named field and true, or false if the
	// row has no such field.
	Field(name string) (string, bool)
}

// Properties is a mutable keyed property bag.
type Properties interface {
	Get(name string) (string, bool)
	Set(name, value string)
	Delete(name string)
}

// Value returns the value of the named property of m and true. The property
// is looked up in the property bag of m and then in row, if row is not nil.
// It returns false if the property is not found.
func Value(m Module, row Row, name string) (string, bool) {
	if v, ok := m.Properties().Get(name); ok {
		return v, true
	}
	if row != nil {
		return row.Field(name)
	}
	return "", false
}

// Map is a Registry that maps names to modules. The module with the empty
// name is the default module.
type Map map[string]Module

// Module returns the named module. It returns ErrNotExist if there is no
// module with that name.
func (m Map) Module(name string) (Module, error) {
	if mod, ok := m[name]; ok {
		return mod, nil
	}
	return nil, ErrNotExist
}

// Names returns the sorted names of the modules in m, the default module
// excluded.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PropertyMap is a Properties implementation safe for concurrent use.
type PropertyMap struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewPropertyMap returns a new PropertyMap with the given initial values.
func NewPropertyMap(values map[string]string) *PropertyMap {
	p := &PropertyMap{values: make(map[string]string, len(values))}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

func (p *PropertyMap) Get(name string) (string, bool) {
	p.mu.RLock()
	v, ok := p.values[name]
	p.mu.RUnlock()
	return v, ok
}

func (p *PropertyMap) Set(name, value string) {
	p.mu.Lock()
	if p.values == nil {
		p.values = map[string]string{}
	}
	p.values[name] = value
	p.mu.Unlock()
}

func (p *PropertyMap) Delete(name string) {
	p.mu.Lock()
	delete(p.values, name)
	p.mu.Unlock()
}

// Fields is a Row backed by a map.
type Fields map[string]string

// Field returns the value of the named field.
func (f Fields) Field(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// SliceCursor is a Cursor over a slice of rows.
type SliceCursor struct {
	rows []Row
	i    int
}

// NewSliceCursor returns a cursor over rows.
func NewSliceCursor(rows []Row) *SliceCursor {
	return &SliceCursor{rows: rows, i: -1}
}

func (c *SliceCursor) Reset() error {
	c.i = 0
	return nil
}

func (c *SliceCursor) Next() error {
	if c.i < len(c.rows) {
		c.i++
	}
	return nil
}

func (c *SliceCursor) Valid() bool {
	return c.i >= 0 && c.i < len(c.rows)
}

func (c *SliceCursor) Row() Row {
	return c.rows[c.i]
}

func (c *SliceCursor) Close() error {
	c.rows = nil
	c.i = -1
	return nil
}
