// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/open2b/curly"
	"github.com/open2b/curly/internal/config"
	"github.com/open2b/curly/internal/ctxlog"
	"github.com/open2b/curly/parser"
	"github.com/open2b/curly/renderer"
)

func newServeCmd(a *app) *cobra.Command {
	var flags dataFlags
	var addr, root string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the templates of a directory over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.config.Serve.Addr = addr
			}
			if cmd.Flags().Changed("root") {
				a.config.Serve.Root = root
			}
			if err := flags.apply(cmd, a.config); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, a.config)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "TCP address to listen on (default \":8080\")")
	cmd.Flags().StringVar(&root, "root", "", "directory of the templates (default \".\")")
	return cmd
}

// serve serves the templates until ctx is done.
func serve(ctx context.Context, c *config.Config) error {

	logger := ctxlog.FromContext(ctx)

	fsys, err := newTemplateFS(c.Serve.Root)
	if err != nil {
		return err
	}
	defer fsys.Close()

	srv := newServer(c, fsys, logger)

	go func() {
		for {
			select {
			case name := <-fsys.Changed():
				fsys.forget(name)
				srv.templates.Invalidate(name)
				logger.Debug("template changed", "name", name)
			case err := <-fsys.Errors():
				logger.Error("cannot watch templates", "err", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	s := &http.Server{
		Addr:           c.Serve.Addr,
		Handler:        srv,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdown)
	}()

	logger.Info("web server started", "addr", c.Serve.Addr, "root", c.Serve.Root, "engine", c.Engine)

	err = s.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// server is the HTTP handler that renders the templates.
type server struct {
	config    *config.Config
	fsys      fs.FS
	static    http.Handler
	templates *curly.Templates
	logger    *slog.Logger
}

func newServer(c *config.Config, fsys fs.FS, logger *slog.Logger) *server {
	return &server{
		config:    c,
		fsys:      fsys,
		static:    http.FileServer(http.FS(fsys)),
		templates: curly.NewTemplates(fsys, &curly.BuildOptions{MarkdownConverter: markdown}),
		logger:    logger,
	}
}

func (srv *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		name += "index.html"
	}

	if path.Ext(name) != ".html" {
		srv.static.ServeHTTP(w, r)
		return
	}

	// The store is loaded on each request, so that the counter properties
	// of concurrent requests do not interfere.
	registry, err := loadRegistry(srv.config)
	if err != nil {
		srv.logger.Error("cannot load data", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	logger := srv.logger.With("url", r.URL.Path)
	var b bytes.Buffer
	if srv.config.Engine == "compiler" {
		var template *curly.Template
		template, err = srv.templates.Get(name)
		if err == nil {
			err = template.Run(&b, registry, &curly.RunOptions{Logger: logger})
		}
	} else {
		options := &curly.RenderOptions{Logger: logger, MarkdownConverter: markdown}
		err = curly.RenderTemplate(&b, srv.fsys, name, registry, options)
	}
	if err != nil {
		srv.error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = b.WriteTo(w); err != nil {
		logger.Warn("cannot write response", "err", err)
		return
	}
	logger.Debug("template rendered", "name", name, "time", time.Since(start))
}

// error writes the response for an error occurred rendering a template.
func (srv *server) error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) || errors.Is(err, parser.ErrInvalidPath) {
		http.NotFound(w, r)
		return
	}
	var syntaxErr *parser.SyntaxError
	var runErr *curly.RunError
	var renderErr *renderer.Error
	if errors.As(err, &syntaxErr) || errors.As(err, &runErr) || errors.As(err, &renderErr) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s", err)
		return
	}
	srv.logger.Error("cannot render template", "url", r.URL.Path, "err", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
