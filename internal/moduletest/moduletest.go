// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package moduletest implements an in-memory module that records the calls
// made by the engines.
package moduletest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/open2b/curly/module"
)

// TagFunc implements a tag of a Module.
type TagFunc func(params string, row module.Row) (string, error)

// Module is an in-memory module.Module.
type Module struct {
	Views   map[string][]module.Row // rows by query.
	Rows    map[string]module.Row   // rows by identifier.
	Sources map[string][]module.Row // rows by source name.
	Tags    map[string]TagFunc      // tags by name.
	Props   *module.PropertyMap

	Calls  []string // calls to the capabilities, in order.
	Opened int      // number of opened cursors.
	Closed int      // number of closed cursors.
}

// New returns a new module with the given properties.
func New(props map[string]string) *Module {
	return &Module{Props: module.NewPropertyMap(props)}
}

// Tag calls the tag with the given name. The html and raw tags return an
// empty string if they are not defined; any other undefined tag returns an
// error.
func (m *Module) Tag(name, params string, row module.Row) (string, error) {
	m.Calls = append(m.Calls, fmt.Sprintf("Tag(%s,%s)", name, params))
	if f, ok := m.Tags[name]; ok {
		return f(params, row)
	}
	if name == "html" || name == "raw" {
		return "", nil
	}
	return "", fmt.Errorf("unknown tag %q", name)
}

func (m *Module) View(query string) (module.Cursor, error) {
	m.Calls = append(m.Calls, "View("+query+")")
	rows, ok := m.Views[query]
	if !ok {
		return nil, fmt.Errorf("invalid query %q", query)
	}
	return m.cursor(rows), nil
}

func (m *Module) Row(id string) (module.Cursor, error) {
	m.Calls = append(m.Calls, "Row("+id+")")
	var rows []module.Row
	if row, ok := m.Rows[id]; ok {
		rows = []module.Row{row}
	}
	return m.cursor(rows), nil
}

func (m *Module) Source(name string) (module.Cursor, error) {
	m.Calls = append(m.Calls, "Source("+name+")")
	rows, ok := m.Sources[name]
	if !ok {
		return nil, errors.New("unknown source " + name)
	}
	return m.cursor(rows), nil
}

func (m *Module) Properties() module.Properties {
	if m.Props == nil {
		m.Props = module.NewPropertyMap(nil)
	}
	return m.Props
}

func (m *Module) cursor(rows []module.Row) module.Cursor {
	m.Opened++
	return &cursor{SliceCursor: module.NewSliceCursor(rows), m: m}
}

type cursor struct {
	*module.SliceCursor
	m *Module
}

func (c *cursor) Close() error {
	c.m.Closed++
	return c.SliceCursor.Close()
}

// Rows returns rows built from the field maps.
func Rows(fields ...map[string]string) []module.Row {
	rows := make([]module.Row, len(fields))
	for i, f := range fields {
		rows[i] = module.Fields(f)
	}
	return rows
}

// Shop returns a module with some fruits, used by the tests of the engines.
//
// Properties: title and modname. Views: "category=fruit" (apple and pear),
// "category=none" (no rows). Rows: "1" (apple). Sources: "fields". Tags:
// upper, price and fail.
func Shop() *Module {
	apple := map[string]string{"id": "1", "name": "apple", "price": "1.50"}
	pear := map[string]string{"id": "2", "name": "pear", "price": "2"}
	m := New(map[string]string{"title": "Fruit & Co", "modname": "Blog"})
	m.Views = map[string][]module.Row{
		"category=fruit": Rows(apple, pear),
		"category=none":  nil,
	}
	m.Rows = map[string]module.Row{"1": module.Fields(apple)}
	m.Sources = map[string][]module.Row{
		"fields": Rows(map[string]string{"name": "name"}, map[string]string{"name": "price"}),
	}
	m.Tags = map[string]TagFunc{
		"upper": func(params string, _ module.Row) (string, error) {
			return strings.ToUpper(params), nil
		},
		"price": func(_ string, row module.Row) (string, error) {
			if row == nil {
				return "", errors.New("no row")
			}
			p, _ := row.Field("price")
			return "€ " + p, nil
		},
		"fail": func(string, module.Row) (string, error) {
			return "", ErrFail
		},
	}
	return m
}

// Blog returns a module with a post.
//
// Properties: title. Views: "all". Tags: bar.
func Blog() *Module {
	m := New(map[string]string{"title": "News"})
	m.Views = map[string][]module.Row{
		"all": Rows(map[string]string{"name": "post"}),
	}
	m.Tags = map[string]TagFunc{
		"bar": func(params string, row module.Row) (string, error) {
			return "B(" + params + ")", nil
		},
	}
	return m
}

// ErrFail is returned by the fail tag of Shop.
var ErrFail = errors.New("tag failed")

// Registry returns a registry with Shop as default module and as "Shop",
// and Blog as "Blog".
func Registry() (module.Map, *Module, *Module) {
	shop, blog := Shop(), Blog()
	return module.Map{"": shop, "Shop": shop, "Blog": blog}, shop, blog
}
