// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import "strconv"

// OperatorType represents an operator type in a unary and binary expression.
type OperatorType int

const (
	OperatorEqual          OperatorType = iota // ==
	OperatorNotEqual                           // !=
	OperatorLess                               // <
	OperatorLessEqual                          // <=
	OperatorGreater                            // >
	OperatorGreaterEqual                       // >=
	OperatorNot                                // not
	OperatorAnd                                // and
	OperatorOr                                 // or
	OperatorAddition                           // +
	OperatorSubtraction                        // -
	OperatorMultiplication                     // *
	OperatorDivision                           // /
	OperatorModulo                             // %
	OperatorContains                           // contains
)

// String returns the string representation of the operator type.
func (op OperatorType) String() string {
	return []string{"==", "!=", "<", "<=", ">", ">=", "not", "and", "or",
		"+", "-", "*", "/", "%", "contains"}[op]
}

// LiteralType represents the type of a literal.
type LiteralType int

const (
	StringLiteral LiteralType = iota
	NumberLiteral
	BoolLiteral
)

// Expression node represents an expression of an if tag.
type Expression interface {
	Node
	String() string
}

// Operator represents an operator expression. It is implemented by the
// UnaryOperator and BinaryOperator nodes.
type Operator interface {
	Expression
	Operator() OperatorType
	Precedence() int
}

// BasicLiteral represents number, string and boolean literals.
type BasicLiteral struct {
	*Position             // position in the source.
	Type      LiteralType // type.
	Value     string      // value, unquoted for strings.
}

// NewBasicLiteral returns a new BasicLiteral node.
func NewBasicLiteral(pos *Position, typ LiteralType, value string) *BasicLiteral {
	return &BasicLiteral{pos, typ, value}
}

// String returns the string representation of n.
func (n *BasicLiteral) String() string {
	if n.Type == StringLiteral {
		return strconv.Quote(n.Value)
	}
	return n.Value
}

// Identifier node represents a property name.
type Identifier struct {
	*Position        // position in the source.
	Name      string // name.
}

// NewIdentifier returns a new Identifier node.
func NewIdentifier(pos *Position, name string) *Identifier {
	return &Identifier{pos, name}
}

// String returns the string representation of n.
func (n *Identifier) String() string {
	return n.Name
}

// UnaryOperator node represents an unary operator expression.
type UnaryOperator struct {
	*Position              // position in the source.
	Op        OperatorType // operator.
	Expr      Expression   // expression.
}

// NewUnaryOperator returns a new UnaryOperator node.
func NewUnaryOperator(pos *Position, op OperatorType, expr Expression) *UnaryOperator {
	return &UnaryOperator{pos, op, expr}
}

// String returns the string representation of n.
func (n *UnaryOperator) String() string {
	s := n.Op.String()
	if n.Op == OperatorNot {
		s += " "
	}
	if _, ok := n.Expr.(*BinaryOperator); ok {
		return s + "(" + n.Expr.String() + ")"
	}
	return s + n.Expr.String()
}

// Operator returns the operator type of the expression.
func (n *UnaryOperator) Operator() OperatorType {
	return n.Op
}

// Precedence returns a number that represents the precedence of the
// expression.
func (n *UnaryOperator) Precedence() int {
	return 6
}

// BinaryOperator node represents a binary operator expression.
type BinaryOperator struct {
	*Position              // position in the source.
	Op        OperatorType // operator.
	Expr1     Expression   // first expression.
	Expr2     Expression   // second expression.
}

// NewBinaryOperator returns a new binary operator.
func NewBinaryOperator(pos *Position, op OperatorType, expr1, expr2 Expression) *BinaryOperator {
	return &BinaryOperator{pos, op, expr1, expr2}
}

// String returns the string representation of n.
func (n *BinaryOperator) String() string {
	var s string
	if e, ok := n.Expr1.(Operator); ok && e.Precedence() < n.Precedence() {
		s += "(" + n.Expr1.String() + ")"
	} else {
		s += n.Expr1.String()
	}
	s += " " + n.Op.String() + " "
	if e, ok := n.Expr2.(Operator); ok && e.Precedence() <= n.Precedence() {
		s += "(" + n.Expr2.String() + ")"
	} else {
		s += n.Expr2.String()
	}
	return s
}

// Operator returns the operator type of the expression.
func (n *BinaryOperator) Operator() OperatorType {
	return n.Op
}

// Precedence returns a number that represents the precedence of the
// expression.
func (n *BinaryOperator) Precedence() int {
	switch n.Op {
	case OperatorMultiplication, OperatorDivision, OperatorModulo:
		return 5
	case OperatorAddition, OperatorSubtraction:
		return 4
	case OperatorEqual, OperatorNotEqual, OperatorLess, OperatorLessEqual,
		OperatorGreater, OperatorGreaterEqual, OperatorContains:
		return 3
	case OperatorAnd:
		return 2
	case OperatorOr:
		return 1
	}
	panic("invalid operator type")
}
