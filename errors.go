// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package curly

import (
	"fmt"

	"github.com/open2b/curly/ast"
)

// RunError records an error occurred running a template. Err is the error
// returned by the module.
type RunError struct {
	Path string
	Pos  ast.Position
	Err  error
}

func (err *RunError) Error() string {
	return fmt.Sprintf("%s:%s: %s", err.Path, err.Pos, err.Err)
}

func (err *RunError) Unwrap() error {
	return err.Err
}
