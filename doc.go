// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package curly implements a template engine whose templates are made of
// recursive curly-brace tags:
//
//	<h1>{title}</h1>
//	<ul>
//	  {forSelect(category=fruit&order=name)}
//	  <li>{name}: {price()}</li>
//	  {else()}
//	  <li>no fruits</li>
//	  {}
//	</ul>
//
// A tag is [module "."] name ["(" params ")"]. The parameters can contain
// other tags, rendered before the tag is executed. A tag with no parenthesis
// shows a property. The empty tag {} closes the innermost control-flow tag.
//
// The data of a template comes from modules, resolved by name through a
// module.Registry. The store package implements modules read from a YAML
// document.
//
// Templates are executed by two engines with the same semantics. Render
// interprets the tree of the template:
//
//	err := curly.Render(w, "index.html", src, registry, nil)
//
// Build compiles the template to a program that can be run many times:
//
//	t, err := curly.Build("index.html", src, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = t.Run(w, registry, nil)
//
// Templates keeps the templates built from a file system, for the
// templates that call the cache tag.
//
// Syntax errors are returned as *parser.SyntaxError. Problems that do not
// stop the execution, as a query that cannot be executed, are logged as
// warnings with log/slog.
package curly
