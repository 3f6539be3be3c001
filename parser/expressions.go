// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/open2b/curly/ast"
)

// The expression of an if tag is parsed with a precedence climbing parser.
// Operands are number, string and boolean literals, property names and
// parenthesized expressions. Operators, from the highest precedence:
//
//	not ! -            (unary)
//	* / %
//	+ -
//	== != < <= > >= contains
//	and &&
//	or ||

// exprTokenType is the type of a token of an expression.
type exprTokenType int

const (
	exprEOF exprTokenType = iota
	exprNumber
	exprString
	exprIdentifier
	exprOperator
	exprLeftParenthesis
	exprRightParenthesis
)

// exprToken is a token of an expression.
type exprToken struct {
	typ exprTokenType
	txt string // text, unquoted for strings.
	pos int    // index of the first byte.
	end int    // index of the last byte.
}

func (tok exprToken) String() string {
	switch tok.typ {
	case exprEOF:
		return "EOF"
	case exprString:
		return strconv.Quote(tok.txt)
	}
	return tok.txt
}

// ParseExpression parses the expression of an if tag.
func ParseExpression(src string) (ast.Expression, error) {
	tokens, err := lexExpression(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	if p.peek().typ == exprEOF {
		return nil, &SyntaxError{Pos: exprPos(0, 0), Err: errors.New("missing expression")}
	}
	expr, err := p.parse(1)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != exprEOF {
		return nil, &SyntaxError{Pos: exprPos(tok.pos, tok.end), Err: fmt.Errorf("unexpected %s", tok)}
	}
	return expr, nil
}

func exprPos(start, end int) ast.Position {
	return ast.Position{Line: 1, Column: start + 1, Start: start, End: end}
}

// lexExpression returns the tokens of the expression src.
func lexExpression(src string) ([]exprToken, error) {
	var tokens []exprToken
	p := 0
	for p < len(src) {
		r, size := utf8.DecodeRuneInString(src[p:])
		switch {
		case unicode.IsSpace(r):
			p += size
			continue
		case r == '(':
			tokens = append(tokens, exprToken{exprLeftParenthesis, "(", p, p})
			p++
			continue
		case r == ')':
			tokens = append(tokens, exprToken{exprRightParenthesis, ")", p, p})
			p++
			continue
		case r == '"' || r == '\'':
			n, s, err := lexString(src[p:])
			if err != nil {
				return nil, &SyntaxError{Pos: exprPos(p, p), Err: err}
			}
			tokens = append(tokens, exprToken{exprString, s, p, p + n - 1})
			p += n
			continue
		case '0' <= r && r <= '9' || r == '.' && p+1 < len(src) && '0' <= src[p+1] && src[p+1] <= '9':
			n := lexNumber(src[p:])
			tokens = append(tokens, exprToken{exprNumber, src[p : p+n], p, p + n - 1})
			p += n
			continue
		case r == '_' || unicode.IsLetter(r):
			n := lexIdentifier(src[p:])
			word := src[p : p+n]
			switch strings.ToLower(word) {
			case "and", "or", "not", "contains":
				tokens = append(tokens, exprToken{exprOperator, strings.ToLower(word), p, p + n - 1})
			default:
				tokens = append(tokens, exprToken{exprIdentifier, word, p, p + n - 1})
			}
			p += n
			continue
		}
		var op string
		for _, o := range []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "!", "+", "-", "*", "/", "%"} {
			if strings.HasPrefix(src[p:], o) {
				op = o
				break
			}
		}
		if op == "" {
			return nil, &SyntaxError{Pos: exprPos(p, p+size-1), Err: fmt.Errorf("unexpected %q", r)}
		}
		switch op {
		case "&&":
			tokens = append(tokens, exprToken{exprOperator, "and", p, p + 1})
		case "||":
			tokens = append(tokens, exprToken{exprOperator, "or", p, p + 1})
		case "!":
			tokens = append(tokens, exprToken{exprOperator, "not", p, p})
		default:
			tokens = append(tokens, exprToken{exprOperator, op, p, p + len(op) - 1})
		}
		p += len(op)
	}
	tokens = append(tokens, exprToken{exprEOF, "", len(src), len(src)})
	return tokens, nil
}

// lexString lexes a quoted string at the beginning of src and returns its
// length and its unquoted value.
func lexString(src string) (int, string, error) {
	quote := src[0]
	for i := 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			if quote == '\'' {
				return i + 1, strings.ReplaceAll(src[1:i], `\'`, "'"), nil
			}
			s, err := strconv.Unquote(src[:i+1])
			if err != nil {
				return 0, "", errors.New("invalid string literal")
			}
			return i + 1, s, nil
		}
	}
	return 0, "", errors.New("string literal not terminated")
}

// lexNumber returns the length of the number at the beginning of src.
func lexNumber(src string) int {
	dot := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '.' && !dot {
			dot = true
			continue
		}
		if c < '0' || c > '9' {
			return i
		}
	}
	return len(src)
}

// lexIdentifier returns the length of the identifier at the beginning of
// src. Identifiers may contain dots to refer to a property of a module.
func lexIdentifier(src string) int {
	for i, r := range src {
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return i
		}
	}
	return len(src)
}

// exprParser parses the tokens of an expression.
type exprParser struct {
	tokens []exprToken
	i      int
}

func (p *exprParser) peek() exprToken {
	return p.tokens[p.i]
}

func (p *exprParser) next() exprToken {
	tok := p.tokens[p.i]
	if tok.typ != exprEOF {
		p.i++
	}
	return tok
}

var binaryOperators = map[string]ast.OperatorType{
	"==":       ast.OperatorEqual,
	"!=":       ast.OperatorNotEqual,
	"<":        ast.OperatorLess,
	"<=":       ast.OperatorLessEqual,
	">":        ast.OperatorGreater,
	">=":       ast.OperatorGreaterEqual,
	"contains": ast.OperatorContains,
	"and":      ast.OperatorAnd,
	"or":       ast.OperatorOr,
	"+":        ast.OperatorAddition,
	"-":        ast.OperatorSubtraction,
	"*":        ast.OperatorMultiplication,
	"/":        ast.OperatorDivision,
	"%":        ast.OperatorModulo,
}

// parse parses a binary expression whose operators have a precedence
// greater or equal than min.
func (p *exprParser) parse(min int) (ast.Expression, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.typ != exprOperator {
			return expr, nil
		}
		op, ok := binaryOperators[tok.txt]
		if !ok {
			return nil, &SyntaxError{Pos: exprPos(tok.pos, tok.end), Err: fmt.Errorf("unexpected %s", tok)}
		}
		bin := ast.NewBinaryOperator(nil, op, expr, nil)
		prec := bin.Precedence()
		if prec < min {
			return expr, nil
		}
		p.next()
		right, err := p.parse(prec + 1)
		if err != nil {
			return nil, err
		}
		start := expr.Pos().Start
		pos := exprPos(start, right.Pos().End)
		bin.Position = &pos
		bin.Expr2 = right
		expr = bin
	}
}

// parseUnary parses an unary expression or an operand.
func (p *exprParser) parseUnary() (ast.Expression, error) {
	tok := p.next()
	switch tok.typ {
	case exprOperator:
		var op ast.OperatorType
		switch tok.txt {
		case "not":
			op = ast.OperatorNot
		case "-":
			op = ast.OperatorSubtraction
		default:
			return nil, &SyntaxError{Pos: exprPos(tok.pos, tok.end), Err: fmt.Errorf("unexpected %s", tok)}
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		pos := exprPos(tok.pos, operand.Pos().End)
		return ast.NewUnaryOperator(&pos, op, operand), nil
	case exprNumber:
		pos := exprPos(tok.pos, tok.end)
		return ast.NewBasicLiteral(&pos, ast.NumberLiteral, tok.txt), nil
	case exprString:
		pos := exprPos(tok.pos, tok.end)
		return ast.NewBasicLiteral(&pos, ast.StringLiteral, tok.txt), nil
	case exprIdentifier:
		pos := exprPos(tok.pos, tok.end)
		switch strings.ToLower(tok.txt) {
		case "true", "false":
			return ast.NewBasicLiteral(&pos, ast.BoolLiteral, strings.ToLower(tok.txt)), nil
		}
		return ast.NewIdentifier(&pos, tok.txt), nil
	case exprLeftParenthesis:
		expr, err := p.parse(1)
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.typ != exprRightParenthesis {
			return nil, &SyntaxError{Pos: exprPos(t.pos, t.end), Err: fmt.Errorf("unexpected %s, expecting )", t)}
		}
		return expr, nil
	}
	return nil, &SyntaxError{Pos: exprPos(tok.pos, tok.end), Err: fmt.Errorf("unexpected %s, expecting expression", tok)}
}
