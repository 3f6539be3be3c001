// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eval

import (
	"errors"
	"testing"

	"github.com/open2b/curly/parser"
)

var properties = map[string]string{
	"price":    "12.50",
	"quantity": "3",
	"name":     "Golden apple",
	"empty":    "",
	"zero":     "0",
	"off":      "false",
}

func lookup(name string) (string, error) {
	return properties[name], nil
}

var evalTests = []struct {
	src string
	res string
}{
	{`1`, "1"},
	{`1.50`, "1.5"},
	{`"a"`, "a"},
	{`true`, "true"},
	{`price`, "12.50"},
	{`missing`, ""},
	{`-1`, "-1"},
	{`-price`, "-12.5"},
	{`1 + 2 * 3`, "7"},
	{`(1 + 2) * 3`, "9"},
	{`price * quantity`, "37.5"},
	{`7 % 3`, "1"},
	{`10 / 4`, "2.5"},
	{`"a" + "b"`, "ab"},
	{`name + 1`, "Golden apple1"},
	{`price == 12.5`, "true"},
	{`price == "12.5"`, "true"},
	{`quantity > 10`, "false"},
	{`quantity < 10`, "true"},
	{`"10" > "9"`, "true"},
	{`"b" > "a"`, "true"},
	{`name == "Golden apple"`, "true"},
	{`name != "Golden apple"`, "false"},
	{`name <= "Golden"`, "false"},
	{`name >= "Golden"`, "true"},
	{`name contains "apple"`, "true"},
	{`name contains "pear"`, "false"},
	{`true == 1`, "true"},
	{`false == zero`, "true"},
	{`not empty`, "true"},
	{`not zero`, "true"},
	{`not off`, "true"},
	{`!name`, "false"},
	{`empty or name`, "true"},
	{`empty and name`, "false"},
	{`quantity > 1 && price < 20`, "true"},
	{`quantity > 5 || price < 20`, "true"},
}

func TestEval(t *testing.T) {
	for _, test := range evalTests {
		expr, err := parser.ParseExpression(test.src)
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		v, err := Eval(expr, lookup)
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		if res := String(v); res != test.res {
			t.Errorf("source: %q, unexpected %q, expecting %q", test.src, res, test.res)
		}
	}
}

var evalErrorTests = []struct {
	src string
	err string
}{
	{`1 / 0`, "1:1: division by zero"},
	{`5 % zero`, "1:1: division by zero"},
	{`-name`, `1:1: invalid operation: -name (string)`},
	{`name * 2`, `1:1: invalid operation: name * 2 (mismatched types string and number)`},
	{`1 + (true - 1)`, `1:6: invalid operation: true - 1 (mismatched types bool and number)`},
}

func TestEvalErrors(t *testing.T) {
	for _, test := range evalErrorTests {
		expr, err := parser.ParseExpression(test.src)
		if err != nil {
			t.Errorf("source: %q, unexpected error %q", test.src, err)
			continue
		}
		_, err = Eval(expr, lookup)
		if err == nil {
			t.Errorf("source: %q, expecting error %q", test.src, test.err)
			continue
		}
		if err.Error() != test.err {
			t.Errorf("source: %q, unexpected error %q, expecting %q", test.src, err, test.err)
		}
	}
}

func TestEvalLookupError(t *testing.T) {
	errLookup := errors.New("lookup failed")
	expr, err := parser.ParseExpression("a and b")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Eval(expr, func(name string) (string, error) {
		if name == "b" {
			return "", errLookup
		}
		return "1", nil
	})
	if !errors.Is(err, errLookup) {
		t.Fatalf("unexpected error %v, expecting %v", err, errLookup)
	}
	var e *Error
	if !errors.As(err, &e) || e.Pos.Column != 7 {
		t.Fatalf("unexpected error %#v, expecting an *Error at column 7", err)
	}
}

func TestTruth(t *testing.T) {
	falsy := []any{false, "", "0", "false", "FALSE"}
	for _, v := range falsy {
		if Truth(v) {
			t.Errorf("value %#v: expecting false", v)
		}
	}
	truthy := []any{true, "1", "a", "0.0"}
	for _, v := range truthy {
		if !Truth(v) {
			t.Errorf("value %#v: expecting true", v)
		}
	}
}
