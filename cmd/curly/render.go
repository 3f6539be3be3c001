// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/open2b/curly"
	"github.com/open2b/curly/internal/ctxlog"
	"github.com/open2b/curly/parser"
)

func newRenderCmd(a *app) *cobra.Command {
	var flags dataFlags
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template and write the result to the standard output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, a.config); err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			registry, err := loadRegistry(a.config)
			if err != nil {
				return err
			}
			logger := ctxlog.FromContext(cmd.Context())
			logger.Debug("rendering template", "path", args[0], "engine", a.config.Engine)
			out := bufio.NewWriter(cmd.OutOrStdout())
			if a.config.Engine == "compiler" {
				var template *curly.Template
				template, err = curly.Build(args[0], src, &curly.BuildOptions{MarkdownConverter: markdown})
				if err == nil {
					err = template.Run(out, registry, &curly.RunOptions{Logger: logger})
				}
			} else {
				options := &curly.RenderOptions{Logger: logger, MarkdownConverter: markdown}
				err = curly.Render(out, args[0], src, registry, options)
			}
			if ferr := out.Flush(); err == nil {
				err = ferr
			}
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build <template>",
		Short: "Compile a template and print the disassembled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			template, err := curly.Build(args[0], src, nil)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(template.Disassemble())
			return err
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <template>...",
		Short: "Check the syntax of templates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctxlog.FromContext(cmd.Context())
			for _, name := range args {
				src, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				if _, err = parser.ParseTemplate(name, src); err != nil {
					return err
				}
				logger.Info("template checked", "path", name)
			}
			return nil
		},
	}
}
