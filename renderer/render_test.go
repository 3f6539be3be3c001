// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderer

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open2b/curly/ast"
	"github.com/open2b/curly/internal/moduletest"
	"github.com/open2b/curly/module"
	"github.com/open2b/curly/parser"
)

var rendererTests = []struct {
	src string
	res string
}{
	{"", ""},
	{"abc", "abc"},
	{"{title}", "Fruit &amp; Co"},
	{"{html(title)}", "Fruit &amp; Co"},
	{"{raw(title)}", "Fruit & Co"},
	{"{ title }", "Fruit &amp; Co"},
	{"{Blog.title}", "News"},
	{"{missing}", ""},
	{"{(a < b)}", "a < b"},
	{"{print(a < b)}", "a < b"},
	{"{({title})}", "Fruit &amp; Co"},
	{"{cache()}x", "x"},
	{"{markdown(<b>)}", "&lt;b&gt;"},
	{"{upper(abc)}", "ABC"},
	{"{Shop.upper(abc)}", "ABC"},
	{"{Blog.bar(x)}", "B(x)"},
	{"{Shop.upper({Blog.bar(x)})}", "B(X)"},
	{"{upper(a{raw(title)}b)}", "AFRUIT & COB"},
	{"{if(true)}body{}", "body"},
	{"{if(false)}body{}", ""},
	{"{IF(TRUE)}body{}", "body"},
	{"a{if(1 == 1)}b{else()}c{}d", "abd"},
	{"a{if(1 == 2)}b{else()}c{}d", "acd"},
	{"{if(false)}a{else()}b{else()}c{}", "b"},
	{"{if(true)}a{else()}b{else()}c{}", "ac"},
	{"{if(title contains \"Fruit\")}yes{}", "yes"},
	{"{if(Blog.title == \"News\")}yes{}", "yes"},
	{"{if(a ==)}x{else()}y{}", "y"},
	{"{if(1 / 0)}x{else()}y{}", "y"},
	{"{if({raw(title)} == {raw(title)})}same{}", ""},
	{"{if(\"{raw(modname)}\" == \"Blog\")}same{}", "same"},
	{"{if(true)}{if(false)}a{else()}b{}{}", "b"},
	{"{if(false)}{if(true)}a{else()}b{}{}", ""},
	{"{forEach(3)}{counter},{}", "1,2,3,"},
	{"{forEach(3)}{counter}{}{raw(counter)}", "123"},
	{"{forEach(0)}x{else()}none{}", "none"},
	{"{forEach(2)}{forEach(2)}{counter}{}{counter};{}", "121;122;"},
	{"{forSelect(category=fruit)}{name}:{price};{}", "apple:1.50;pear:2;"},
	{"{forSelect(category=fruit)}{price()} {}", "€ 1.50 € 2 "},
	{"{forSelect(category=none)}x{else()}empty{}", "empty"},
	{"{forSelect(category=fruit)}{if(price > 1.6)}{name}{}{}", "pear"},
	{"{forSelect(category=fruit)}{forEach(2)}{name}{counter}{}|{}", "apple1apple2|pear1pear2|"},
	{"{select(category=fruit)}{name}{}", "apple"},
	{"{select(category=none)}{name}{else()}none{}", "none"},
	{"{selectRow(1)}{name}{}", "apple"},
	{"{selectRow(9)}{name}{else()}none{}", "none"},
	{"{select(category=fruit)}{forEach()}{name},{}{name}{}", "apple,pear,apple"},
	{"{forSelect(category=fruit)}{name}:{forEach()}{name},{}|{}", "apple:apple,pear,|"},
	{"{if(1 == 2)}a{forEach(2)}b{else()}c{}d{else()}e{}", "e"},
	{"{select(category=fruit)}{forEach()}{name}[{forEach()}{name}{}]{}{name}{}", "apple[applepear]apple"},
	{"{forEach()}x{else()}no cursor{}", "no cursor"},
	{"{forEach(fields)}{name} {}", "name price "},
	{"{forEach(nothing)}x{else()}y{}", "y"},
	{"{select(bad)}x{else()}y{}", "y"},
	{"{Nope.select(x)}a{else()}b{}", "b"},
	{"{Blog.forSelect(all)}{name}/{Shop.raw(name)}{}", "post/"},
	{"{forSelect(category=fruit)}{Blog.forSelect(all)}{name}{}{name}{}", "postapplepostpear"},
	{"{{raw(modname)}.title}", "News"},
	{"{{raw(modname)}.bar(y)}", "B(y)"},
	{"{}", ""},
	{"a{}b", "ab"},
	{"{else()}a", "a"},
	{"{if(true)}a{}{}b", "ab"},
	{"{upper({if(true)}a{else()}b{})}", "A"},
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestRenderer(t *testing.T) {
	for _, test := range rendererTests {
		tree, err := parser.Parse([]byte(test.src))
		if err != nil {
			t.Errorf("source: %q, %s", test.src, err)
			continue
		}
		registry, _, _ := moduletest.Registry()
		var b bytes.Buffer
		err = Render(&b, tree, registry, &Options{Logger: newLogger(io.Discard)})
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		if res := b.String(); res != test.res {
			t.Errorf("source: %q, unexpected %q, expecting %q", test.src, res, test.res)
		}
	}
}

var warningTests = []struct {
	src     string
	warning string
}{
	{"{}", "unexpected close tag, no open context"},
	{"{else()}", "else tag with no open context"},
	{"{select(bad)}{}", "cannot set up context"},
	{"{if(a ==)}{}", "cannot set up context"},
	{"{forEach()}{}", "no active cursor"},
	{"{Nope.if(true)}{}", "module does not exist"},
}

func TestWarnings(t *testing.T) {
	for _, test := range warningTests {
		tree, err := parser.ParseTemplate("index.html", []byte(test.src))
		if err != nil {
			t.Errorf("source: %q, %s", test.src, err)
			continue
		}
		registry, _, _ := moduletest.Registry()
		var logs bytes.Buffer
		var b bytes.Buffer
		err = Render(&b, tree, registry, &Options{Logger: newLogger(&logs)})
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		if b.Len() > 0 {
			t.Errorf("source: %q, unexpected output %q", test.src, b.String())
		}
		out := logs.String()
		if !strings.Contains(out, "level=WARN") || !strings.Contains(out, test.warning) {
			t.Errorf("source: %q, unexpected log %q, expecting warning %q", test.src, out, test.warning)
		}
		if !strings.Contains(out, "path=index.html") || !strings.Contains(out, "pos=1:1") {
			t.Errorf("source: %q, expecting path and position in log %q", test.src, out)
		}
	}
}

func TestRenderErrors(t *testing.T) {

	tests := []struct {
		src string
		err string
		is  error
	}{
		{"ab\n {fail()}", "index.html:2:2: tag failed", moduletest.ErrFail},
		{"{Nope.title}", `index.html:1:1: module does not exist: "Nope"`, module.ErrNotExist},
		{"{unknown()}", `index.html:1:1: unknown tag "unknown"`, nil},
		{"{{raw(title)}.x}", `index.html:1:1: invalid name "Fruit & Co"`, nil},
		{"{{raw(modname)}.if(x)}", "index.html:1:1: dynamic tag {Blog.if(x)} cannot be a control-flow tag", nil},
		{"{forSelect(category=fruit)}{if(true)}{fail()}{}{}", "index.html:1:38: tag failed", moduletest.ErrFail},
	}

	for _, test := range tests {
		tree, err := parser.ParseTemplate("index.html", []byte(test.src))
		if err != nil {
			t.Errorf("source: %q, %s", test.src, err)
			continue
		}
		registry, shop, _ := moduletest.Registry()
		err = Render(io.Discard, tree, registry, &Options{Logger: newLogger(io.Discard)})
		if err == nil {
			t.Errorf("source: %q, expecting error %q", test.src, test.err)
			continue
		}
		var e *Error
		if !errors.As(err, &e) {
			t.Errorf("source: %q, unexpected error type %T", test.src, err)
			continue
		}
		if err.Error() != test.err {
			t.Errorf("source: %q, unexpected error %q, expecting %q", test.src, err, test.err)
		}
		if test.is != nil && !errors.Is(err, test.is) {
			t.Errorf("source: %q, expecting error to wrap %q", test.src, test.is)
		}
		if shop.Opened != shop.Closed {
			t.Errorf("source: %q, %d cursors opened but %d closed", test.src, shop.Opened, shop.Closed)
		}
	}
}

func TestCursorsAreClosed(t *testing.T) {
	src := "{forSelect(category=fruit)}{select(category=fruit)}{name}{}{}{selectRow(1)}{}{forEach(fields)}{}"
	tree, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	registry, shop, _ := moduletest.Registry()
	err = Render(io.Discard, tree, registry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if shop.Opened != 5 || shop.Closed != 5 {
		t.Fatalf("unexpected %d opened and %d closed cursors, expecting 5 and 5", shop.Opened, shop.Closed)
	}
}

func TestSkippedTagsAreNotCalled(t *testing.T) {
	src := "{if(false)}{forSelect(category=fruit)}{upper(x)}{}{fail()}{else()}{upper(y)}{}"
	tree, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	registry, shop, _ := moduletest.Registry()
	var b bytes.Buffer
	err = Render(&b, tree, registry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.String() != "Y" {
		t.Errorf("unexpected %q, expecting %q", b.String(), "Y")
	}
	if diff := cmp.Diff([]string{"Tag(upper,y)"}, shop.Calls); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}
}

func TestNestedTagsOrder(t *testing.T) {
	tree, err := parser.Parse([]byte("{A.foo({B.bar(x)})}"))
	if err != nil {
		t.Fatal(err)
	}
	var calls []string
	newModule := func(name string) *moduletest.Module {
		m := moduletest.New(nil)
		m.Tags = map[string]moduletest.TagFunc{
			"foo": func(params string, row module.Row) (string, error) {
				calls = append(calls, name+".foo("+params+")")
				return "<" + params + ">", nil
			},
			"bar": func(params string, row module.Row) (string, error) {
				calls = append(calls, name+".bar("+params+")")
				return "[" + params + "]", nil
			},
		}
		return m
	}
	registry := module.Map{"": moduletest.New(nil), "A": newModule("A"), "B": newModule("B")}
	var b bytes.Buffer
	if err = Render(&b, tree, registry, nil); err != nil {
		t.Fatal(err)
	}
	if b.String() != "<[x]>" {
		t.Errorf("unexpected %q, expecting %q", b.String(), "<[x]>")
	}
	if diff := cmp.Diff([]string{"B.bar(x)", "A.foo([x])"}, calls); diff != "" {
		t.Errorf("unexpected calls (-want +got):\n%s", diff)
	}
}

func TestCounterIsRestored(t *testing.T) {
	tree, err := parser.Parse([]byte("{forEach(3)}{raw(counter)}{}"))
	if err != nil {
		t.Fatal(err)
	}
	registry, shop, _ := moduletest.Registry()
	var b bytes.Buffer
	if err = Render(&b, tree, registry, nil); err != nil {
		t.Fatal(err)
	}
	if b.String() != "123" {
		t.Errorf("unexpected %q, expecting %q", b.String(), "123")
	}
	if v, ok := shop.Properties().Get(module.CounterProperty); ok {
		t.Errorf("unexpected counter %q after the loop, expecting no counter", v)
	}

	shop.Properties().Set(module.CounterProperty, "outer")
	b.Reset()
	if err = Render(&b, tree, registry, nil); err != nil {
		t.Fatal(err)
	}
	if v, _ := shop.Properties().Get(module.CounterProperty); v != "outer" {
		t.Errorf("unexpected counter %q after the loop, expecting %q", v, "outer")
	}
}

func TestHooks(t *testing.T) {
	tree, err := parser.Parse([]byte("{forSelect(category=fruit)}{name}{}"))
	if err != nil {
		t.Fatal(err)
	}
	registry, _, _ := moduletest.Registry()
	s := &state{
		registry: registry,
		logger:   newLogger(io.Discard),
		writers:  []io.Writer{io.Discard},
		modules:  map[string]module.Module{},
	}
	tag := tree.Nodes[0].(*ast.Tag)
	var contexts []*Context
	if err := s.open(tag, 1); err != nil {
		t.Fatal(err)
	}
	for len(s.contexts) > 0 {
		ctx := s.contexts[len(s.contexts)-1]
		contexts = append(contexts, ctx)
		if !ctx.Active() || ctx.Skip() {
			t.Fatalf("context %d: expecting an active context", len(contexts))
		}
		if next := s.close(ctx); next != nil {
			s.contexts = append(s.contexts, next)
		}
	}
	if len(contexts) != 2 {
		t.Fatalf("unexpected %d contexts, expecting 2", len(contexts))
	}
	if contexts[0] == contexts[1] {
		t.Fatal("expecting a new context for each iteration")
	}
	if contexts[1].Cursor != nil {
		t.Fatal("expecting the cursor to be released by the last context")
	}
	if len(s.writers) != 1 {
		t.Fatalf("unexpected %d writers, expecting 1", len(s.writers))
	}
}
