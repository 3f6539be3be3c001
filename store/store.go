// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements modules whose properties, rows and tags are read
// from a YAML document.
//
// A document has the form:
//
//	default: Shop
//	modules:
//	  Shop:
//	    properties:
//	      title: Fruit & Co
//	    rows:
//	      - {id: 1, name: apple, category: fruit, price: 1.50}
//	      - {id: 2, name: pear, category: fruit, price: 2}
//	    tags:
//	      greeting: Hello $params!
//
// default is the name of the module used by the tags with no module.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open2b/curly/module"
)

// ErrUnknownTag is returned by the Tag method of Module for a tag that is
// not defined.
var ErrUnknownTag = errors.New("curly/store: unknown tag")

// Store is a module.Registry of modules read from a YAML document.
type Store struct {
	def     string
	modules map[string]*Module
}

// Module is a module.Module whose data is read from a YAML document.
type Module struct {
	name  string
	store *Store
	props *module.PropertyMap
	rows  []module.Fields
	tags  map[string]string
}

type document struct {
	Default string                    `yaml:"default"`
	Modules map[string]moduleDocument `yaml:"modules"`
}

type moduleDocument struct {
	Properties map[string]string   `yaml:"properties"`
	Rows       []map[string]string `yaml:"rows"`
	Tags       map[string]string   `yaml:"tags"`
}

// Load reads a YAML document from r and returns its store.
func Load(r io.Reader) (*Store, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("curly/store: %w", err)
	}
	s := &Store{def: doc.Default, modules: make(map[string]*Module, len(doc.Modules))}
	for name, md := range doc.Modules {
		if name == "" {
			return nil, errors.New("curly/store: empty module name")
		}
		m := &Module{
			name:  name,
			store: s,
			props: module.NewPropertyMap(md.Properties),
			tags:  md.Tags,
		}
		m.rows = make([]module.Fields, len(md.Rows))
		for i, row := range md.Rows {
			m.rows[i] = row
		}
		s.modules[name] = m
	}
	if s.def != "" {
		if _, ok := s.modules[s.def]; !ok {
			return nil, fmt.Errorf("curly/store: default module %q does not exist", s.def)
		}
	}
	return s, nil
}

// LoadFile reads the named YAML file and returns its store.
func LoadFile(name string) (*Store, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Module returns the named module. The empty name refers to the default
// module. It returns module.ErrNotExist if the module does not exist.
func (s *Store) Module(name string) (module.Module, error) {
	if name == "" {
		name = s.def
	}
	if m, ok := s.modules[name]; ok {
		return m, nil
	}
	return nil, module.ErrNotExist
}

// Names returns the sorted names of the modules.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the name of the module.
func (m *Module) Name() string {
	return m.name
}

// Tag evaluates the named tag.
//
// The html and raw tags are called for properties that do not exist, and
// return an empty string. The count tag returns the number of rows selected
// by the query in params. Any other tag is looked up in the tags of the
// module, where $params is replaced with params.
func (m *Module) Tag(name, params string, row module.Row) (string, error) {
	switch name {
	case "html", "raw":
		return "", nil
	case "count":
		rows, err := m.selectRows(params)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(len(rows)), nil
	}
	if text, ok := m.tags[name]; ok {
		return strings.ReplaceAll(text, "$params", params), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownTag, name)
}

// View opens a cursor over the rows selected by query. See the Query type
// for the syntax of a query.
func (m *Module) View(query string) (module.Cursor, error) {
	rows, err := m.selectRows(query)
	if err != nil {
		return nil, err
	}
	return module.NewSliceCursor(rows), nil
}

// Row opens a cursor over the row whose id field is id.
func (m *Module) Row(id string) (module.Cursor, error) {
	var rows []module.Row
	for _, row := range m.rows {
		if row["id"] == id {
			rows = append(rows, row)
			break
		}
	}
	return module.NewSliceCursor(rows), nil
}

// Source opens a cursor over the named source. The source fields iterates
// over the names of the fields of the rows, the source modules over the
// names of the modules of the store. Both have a single field, name.
func (m *Module) Source(name string) (module.Cursor, error) {
	var names []string
	switch name {
	case "fields":
		seen := map[string]bool{}
		for _, row := range m.rows {
			for field := range row {
				if !seen[field] {
					seen[field] = true
					names = append(names, field)
				}
			}
		}
		sort.Strings(names)
	case "modules":
		names = m.store.Names()
	default:
		return nil, fmt.Errorf("curly/store: unknown source %q", name)
	}
	rows := make([]module.Row, len(names))
	for i, n := range names {
		rows[i] = module.Fields{"name": n}
	}
	return module.NewSliceCursor(rows), nil
}

// Properties returns the property bag of the module.
func (m *Module) Properties() module.Properties {
	return m.props
}

// selectRows returns the rows selected by query.
func (m *Module) selectRows(query string) ([]module.Row, error) {
	q, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return q.apply(m.rows), nil
}
