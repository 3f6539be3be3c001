// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads the configuration file of the curly command.
//
// The file is written in HCL:
//
//	log_level = "info"
//	engine    = "compiler"
//	data      = "data.yaml"
//	module    = "Shop"
//
//	globals = {
//	  site = "Fruit & Co"
//	  year = 2024
//	}
//
//	serve {
//	  addr = ":8080"
//	  root = "templates"
//	}
//
// Every attribute and block is optional. The values of globals are
// converted to strings and set as properties of the default module.
package config

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// DefaultFile is the name of the configuration file read when no file is
// given.
const DefaultFile = "curly.hcl"

// Engines are the names of the engines.
var Engines = []string{"interpreter", "compiler"}

// Config is the configuration of the curly command.
type Config struct {
	LogLevel string            // level of the logged messages.
	Engine   string            // "interpreter" or "compiler".
	Data     string            // store file, empty if there is none.
	Module   string            // default module, empty for the one of the store.
	Globals  map[string]string // properties of the default module.
	Serve    Serve
}

// Serve is the configuration of the serve command.
type Serve struct {
	Addr string // TCP address to listen on.
	Root string // directory of the templates.
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Engine:   "interpreter",
		Globals:  map[string]string{},
		Serve: Serve{
			Addr: ":8080",
			Root: ".",
		},
	}
}

// Level returns the log level of c.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// Validate validates c.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	for _, engine := range Engines {
		if c.Engine == engine {
			return nil
		}
	}
	return fmt.Errorf("invalid engine %q, it must be %q or %q", c.Engine, Engines[0], Engines[1])
}

// file is the HCL representation of a configuration file.
type file struct {
	LogLevel *string        `hcl:"log_level,optional"`
	Engine   *string        `hcl:"engine,optional"`
	Data     *string        `hcl:"data,optional"`
	Module   *string        `hcl:"module,optional"`
	Globals  hcl.Expression `hcl:"globals,optional"`
	Serve    *serveBlock    `hcl:"serve,block"`
}

type serveBlock struct {
	Addr *string `hcl:"addr,optional"`
	Root *string `hcl:"root,optional"`
}

// Load reads the named configuration file and returns the default
// configuration overridden by the values of the file.
func Load(filename string) (*Config, error) {
	f, diags := hclparse.NewParser().ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decode(f)
}

// Parse parses the configuration src, read from the named file, and returns
// the default configuration overridden by its values.
func Parse(src []byte, filename string) (*Config, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return decode(f)
}

// decode decodes the body of f.
func decode(f *hcl.File) (*Config, error) {
	var doc file
	if diags := gohcl.DecodeBody(f.Body, nil, &doc); diags.HasErrors() {
		return nil, diags
	}
	c := Default()
	set(&c.LogLevel, doc.LogLevel)
	set(&c.Engine, doc.Engine)
	set(&c.Data, doc.Data)
	set(&c.Module, doc.Module)
	if doc.Serve != nil {
		set(&c.Serve.Addr, doc.Serve.Addr)
		set(&c.Serve.Root, doc.Serve.Root)
	}
	if doc.Globals != nil {
		globals, err := decodeGlobals(doc.Globals)
		if err != nil {
			return nil, err
		}
		c.Globals = globals
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Body.MissingItemRange().Filename, err)
	}
	return c, nil
}

// decodeGlobals evaluates the globals expression and converts its value to
// a map of strings. Null elements are left out.
func decodeGlobals(expr hcl.Expression) (map[string]string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	globals := map[string]string{}
	if val.IsNull() {
		return globals, nil
	}
	val, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		r := expr.Range()
		return nil, fmt.Errorf("%s: globals must be a map of strings: %w", r.String(), err)
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("%s: globals must be known", expr.Range().String())
	}
	if val.IsNull() || val.LengthInt() == 0 {
		return globals, nil
	}
	for name, v := range val.AsValueMap() {
		if v.IsNull() {
			continue
		}
		globals[name] = v.AsString()
	}
	return globals, nil
}

// Names returns the sorted names of the globals of c.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Globals))
	for name := range c.Globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
