// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected the default logger")
	}
	var b bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&b, nil))
	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("hello", "name", "curly")
	if !strings.Contains(b.String(), "msg=hello name=curly") {
		t.Fatalf("unexpected log %q", b.String())
	}
}
