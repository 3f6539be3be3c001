// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eval evaluates the expressions of the if tags.
//
// Values are strings, numbers and booleans. Numbers are decimal.Decimal
// values. Properties are strings but behave as numbers when they are
// compared or combined with numbers.
package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/open2b/curly/ast"

	"github.com/shopspring/decimal"
)

// Lookup returns the value of the named property.
type Lookup func(name string) (string, error)

// Error is an evaluation error.
type Error struct {
	Pos ast.Position
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var errDivisionByZero = errors.New("division by zero")

// Eval evaluates expr and returns its value. Identifiers are resolved with
// lookup.
func Eval(expr ast.Expression, lookup Lookup) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Error); ok {
				err = e
			} else {
				panic(r)
			}
		}
	}()
	s := evaluator{lookup: lookup}
	return s.evalExpression(expr), nil
}

// Bool evaluates expr and returns its truth value.
func Bool(expr ast.Expression, lookup Lookup) (bool, error) {
	v, err := Eval(expr, lookup)
	if err != nil {
		return false, err
	}
	return Truth(v), nil
}

// Truth returns the truth value of v: false, the empty string, the strings
// "0" and "false" and the number zero are false, every other value is true.
func Truth(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "0" && !strings.EqualFold(v, "false")
	case decimal.Decimal:
		return !v.IsZero()
	}
	return false
}

// String returns the textual representation of v.
func String(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	}
	return ""
}

type evaluator struct {
	lookup Lookup
}

func (s *evaluator) errorf(node ast.Node, format string, args ...any) *Error {
	return &Error{Pos: posOf(node), Err: fmt.Errorf(format, args...)}
}

func posOf(node ast.Node) ast.Position {
	if p := node.Pos(); p != nil {
		return *p
	}
	return ast.Position{}
}

// evalExpression evaluates an expression and returns its value.
// In the event of an error, calls panic with the error as parameter.
func (s *evaluator) evalExpression(expr ast.Expression) any {
	switch e := expr.(type) {
	case *ast.BasicLiteral:
		switch e.Type {
		case ast.StringLiteral:
			return e.Value
		case ast.NumberLiteral:
			n, err := decimal.NewFromString(e.Value)
			if err != nil {
				panic(s.errorf(e, "invalid number %s", e.Value))
			}
			return n
		case ast.BoolLiteral:
			return e.Value == "true"
		}
	case *ast.Identifier:
		v, err := s.lookup(e.Name)
		if err != nil {
			panic(&Error{Pos: posOf(e), Err: err})
		}
		return v
	case *ast.UnaryOperator:
		return s.evalUnaryOperator(e)
	case *ast.BinaryOperator:
		return s.evalBinaryOperator(e)
	}
	panic(s.errorf(expr, "unexpected node type %T", expr))
}

// evalUnaryOperator evaluates a unary operator and returns its value.
// On error it calls panic with the error as parameter.
func (s *evaluator) evalUnaryOperator(node *ast.UnaryOperator) any {
	e := s.evalExpression(node.Expr)
	switch node.Op {
	case ast.OperatorNot:
		return !Truth(e)
	case ast.OperatorSubtraction:
		if n, ok := asNumber(e); ok {
			return n.Neg()
		}
		panic(s.errorf(node, "invalid operation: -%s (%s)", node.Expr, typeof(e)))
	}
	panic(s.errorf(node, "unknown unary operator %s", node.Op))
}

// evalBinaryOperator evaluates a binary operator and returns its value.
// On error it calls panic with the error as parameter.
func (s *evaluator) evalBinaryOperator(node *ast.BinaryOperator) any {

	expr1 := s.evalExpression(node.Expr1)

	switch node.Op {
	case ast.OperatorAnd:
		if !Truth(expr1) {
			return false
		}
		return Truth(s.evalExpression(node.Expr2))
	case ast.OperatorOr:
		if Truth(expr1) {
			return true
		}
		return Truth(s.evalExpression(node.Expr2))
	}

	expr2 := s.evalExpression(node.Expr2)

	switch node.Op {

	case ast.OperatorEqual, ast.OperatorNotEqual, ast.OperatorLess,
		ast.OperatorLessEqual, ast.OperatorGreater, ast.OperatorGreaterEqual:
		c := compare(expr1, expr2)
		switch node.Op {
		case ast.OperatorEqual:
			return c == 0
		case ast.OperatorNotEqual:
			return c != 0
		case ast.OperatorLess:
			return c < 0
		case ast.OperatorLessEqual:
			return c <= 0
		case ast.OperatorGreater:
			return c > 0
		default:
			return c >= 0
		}

	case ast.OperatorContains:
		return strings.Contains(String(expr1), String(expr2))

	case ast.OperatorAddition, ast.OperatorSubtraction, ast.OperatorMultiplication,
		ast.OperatorDivision, ast.OperatorModulo:
		n1, ok1 := asNumber(expr1)
		n2, ok2 := asNumber(expr2)
		if !ok1 || !ok2 {
			if node.Op == ast.OperatorAddition {
				if _, ok := expr1.(string); ok {
					return String(expr1) + String(expr2)
				}
			}
			panic(s.errorf(node, "invalid operation: %s (mismatched types %s and %s)",
				node, typeof(expr1), typeof(expr2)))
		}
		switch node.Op {
		case ast.OperatorAddition:
			return n1.Add(n2)
		case ast.OperatorSubtraction:
			return n1.Sub(n2)
		case ast.OperatorMultiplication:
			return n1.Mul(n2)
		case ast.OperatorDivision:
			if n2.IsZero() {
				panic(&Error{Pos: posOf(node), Err: errDivisionByZero})
			}
			return n1.Div(n2)
		default:
			if n2.IsZero() {
				panic(&Error{Pos: posOf(node), Err: errDivisionByZero})
			}
			return n1.Mod(n2)
		}

	}

	panic(s.errorf(node, "unknown binary operator %s", node.Op))
}

// compare compares v1 and v2 and returns -1, 0 or +1. Two values that are
// both numbers, or strings representing numbers, are compared numerically.
// Booleans are compared by truth value. Other values are compared as
// strings.
func compare(v1, v2 any) int {
	if n1, ok := asNumber(v1); ok {
		if n2, ok := asNumber(v2); ok {
			return n1.Cmp(n2)
		}
	}
	_, b1 := v1.(bool)
	_, b2 := v2.(bool)
	if b1 || b2 {
		t1, t2 := Truth(v1), Truth(v2)
		switch {
		case t1 == t2:
			return 0
		case t2:
			return -1
		}
		return 1
	}
	return strings.Compare(String(v1), String(v2))
}

// asNumber returns v as a number, if v is a number or a string that
// represents a number.
func asNumber(v any) (decimal.Decimal, bool) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Decimal{}, false
		}
		n, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return n, true
	}
	return decimal.Decimal{}, false
}

// typeof returns the name of the type of v.
func typeof(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case string:
		return "string"
	case decimal.Decimal:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
