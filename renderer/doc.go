// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package renderer implements the interpreter that renders template trees.
//
// To render a tree use the function Render, where w is the writer where to
// write the result and registry resolves the modules:
//
//	err := renderer.Render(w, tree, registry, nil)
//
// # Tags
//
// A tag with no parenthesis shows a property, so {title} writes the property
// title HTML escaped. The property is looked up in the property bag of the
// module, then in the row in scope and finally the html tag of the module is
// called. The raw tag is like html but does not escape.
//
// A tag that is not built-in calls the Tag method of its module, passing the
// rendered parameters and the row in scope. For example:
//
//	{Shop.price({sku})}
//
// renders {sku} first and then calls the tag price of the module Shop.
//
// # Contexts
//
// The control-flow tags if, select, selectRow, forSelect and forEach open a
// context that is closed by the empty tag {}. The else tag toggles the output
// of the innermost context:
//
//	{forSelect(category=fruit)}
//	  <li>{name}</li>
//	{else()}
//	  <li>no fruits</li>
//	{}
//
// A context that cannot be set up, because for example the query is not
// valid, skips its body; the error is logged as a warning and rendering
// continues.
//
// forEach has three forms: forEach(n) loops n times setting the property
// counter from 1 to n, forEach() iterates again the cursor of the enclosing
// context, and forEach(name) iterates the named source of the module. When
// forEach() stops, the cursor is reset to its first row if the enclosing
// context is a select or selectRow; the cursor of a loop is left exhausted,
// so the loop ends.
package renderer
