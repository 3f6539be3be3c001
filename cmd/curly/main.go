// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command curly renders, compiles, checks and serves curly templates.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"

	"github.com/open2b/curly/internal/config"
	"github.com/open2b/curly/internal/ctxlog"
	"github.com/open2b/curly/module"
	"github.com/open2b/curly/store"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by the commands.
type app struct {
	configFile string
	logLevel   string
	config     *config.Config
}

// newRootCmd returns the curly command with its subcommands.
func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "curly",
		Short:        "Render templates made of recursive curly-brace tags",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file (default \""+config.DefaultFile+"\" if it exists)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.AddCommand(
		newRenderCmd(a),
		newBuildCmd(a),
		newCheckCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup reads the configuration and sets the logger in the context of cmd.
func (a *app) setup(cmd *cobra.Command) error {
	c, err := a.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		c.LogLevel = a.logLevel
	}
	level, err := c.Level()
	if err != nil {
		return err
	}
	a.config = c
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	if a.configFile != "" {
		logger.Debug("configuration loaded", "file", a.configFile)
	}
	return nil
}

// loadConfig loads the configuration file. If no file is given and the
// default file does not exist, it returns the default configuration.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configFile != "" {
		return config.Load(a.configFile)
	}
	if _, err := os.Stat(config.DefaultFile); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	a.configFile = config.DefaultFile
	return config.Load(a.configFile)
}

// dataFlags are the flags of the commands that execute templates.
type dataFlags struct {
	engine string
	data   string
	module string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.engine, "engine", "", "engine: interpreter or compiler")
	cmd.Flags().StringVar(&f.data, "data", "", "YAML file with the modules")
	cmd.Flags().StringVar(&f.module, "module", "", "name of the default module")
}

// apply overrides the configuration with the flags set on cmd.
func (f *dataFlags) apply(cmd *cobra.Command, c *config.Config) error {
	if cmd.Flags().Changed("engine") {
		c.Engine = f.engine
	}
	if cmd.Flags().Changed("data") {
		c.Data = f.data
	}
	if cmd.Flags().Changed("module") {
		c.Module = f.module
	}
	return c.Validate()
}

// registry resolves the empty module name to the module named def.
type registry struct {
	module.Registry
	def string
}

func (r registry) Module(name string) (module.Module, error) {
	if name == "" {
		name = r.def
	}
	return r.Registry.Module(name)
}

// loadRegistry loads the store of the configuration and sets the globals as
// properties of the default module.
func loadRegistry(c *config.Config) (module.Registry, error) {
	var s *store.Store
	var err error
	if c.Data == "" {
		s, err = store.Load(strings.NewReader(""))
	} else {
		s, err = store.LoadFile(c.Data)
	}
	if err != nil {
		return nil, err
	}
	var r module.Registry = s
	if c.Module != "" {
		r = registry{Registry: s, def: c.Module}
	}
	if len(c.Globals) > 0 {
		m, err := r.Module("")
		if err != nil {
			return nil, fmt.Errorf("cannot set globals: %w", err)
		}
		for _, name := range c.Names() {
			m.Properties().Set(name, c.Globals[name])
		}
	}
	return r, nil
}

// markdown converts Markdown to HTML.
func markdown(src []byte, out io.Writer) error {
	return goldmark.Convert(src, out)
}
