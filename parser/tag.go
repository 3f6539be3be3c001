// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/open2b/curly/ast"
)

// placeholder replaces a nested tag in the text passed to parseTag.
const placeholder = '\x00'

var (
	errUnclosedParams = errors.New("unclosed parameter list")
	errMissingModule  = errors.New("missing module name before '.'")
	errMissingName    = errors.New("missing tag name after '.'")
)

// tagHead is the result of the parsing of the text of a tag.
type tagHead struct {
	module string
	name   string
	start  int // index of the first byte of the parameters.
	end    int // index of the byte following the parameters.
	head   int // index of the byte following the module and the name.
}

// ParseTag parses the text between the braces of a tag, with nested tags
// already rendered, and returns its module, name and parameters.
//
// The grammar is
//
//	[module "."] name ["(" params ")"]
//
// An empty text is the close tag and has an empty name. A text without
// parenthesis is the parameter of the implicit html tag, so "{title}" shows
// the property title. A text that starts with "(" is the parameter of the
// print tag.
func ParseTag(text string) (module, name, params string, err error) {
	h, err := parseTag(text)
	if err != nil {
		return "", "", "", err
	}
	return h.module, h.name, text[h.start:h.end], nil
}

// parseTag parses the text of a tag.
func parseTag(text string) (tagHead, error) {

	start, end := trimSpaces(text, 0, len(text))
	if start == end {
		return tagHead{start: end, end: end, head: end}, nil
	}

	var h tagHead

	paren := strings.IndexByte(text, '(')
	limit := len(text)
	if paren >= 0 {
		limit = paren
	}

	// Module.
	if dot := indexDot(text, start, limit); dot >= 0 {
		ms, me := trimSpaces(text, start, dot)
		if ms == me {
			return h, errMissingModule
		}
		h.module = unescapeDots(text[ms:me])
		if err := checkName(h.module); err != nil {
			return h, err
		}
		start = dot + 1
		if dot2 := indexDot(text, start, limit); dot2 >= 0 {
			return h, fmt.Errorf("malformed tag %q: unexpected '.' after module name", text)
		}
		if s, e := trimSpaces(text, start, end); s == e {
			return h, errMissingName
		}
	}

	// Implicit html tag.
	if paren == -1 {
		h.name = ast.BuiltinHTML.String()
		h.start, h.end = trimSpaces(text, start, end)
		h.head = h.start
		return h, nil
	}

	if text[end-1] != ')' {
		return h, errUnclosedParams
	}

	ns, ne := trimSpaces(text, start, paren)
	if ns == ne {
		h.name = ast.BuiltinPrint.String()
	} else {
		h.name = unescapeDots(text[ns:ne])
		if err := checkName(h.name); err != nil {
			return h, err
		}
	}
	h.start = paren + 1
	h.end = end - 1
	h.head = paren

	return h, nil
}

// indexDot returns the index of the first unescaped dot in text[start:end],
// or -1 if there is no dot.
func indexDot(text string, start, end int) int {
	for i := start; i < end; i++ {
		switch text[i] {
		case '\\':
			i++
		case '.':
			return i
		}
	}
	return -1
}

// unescapeDots replaces the escaped dots in s with dots.
func unescapeDots(s string) string {
	if !strings.Contains(s, `\.`) {
		return s
	}
	return strings.ReplaceAll(s, `\.`, ".")
}

// checkName checks that name is a valid module or tag name. A name that
// contains a placeholder is checked at run time.
func checkName(name string) error {
	for _, r := range name {
		if r == placeholder {
			return nil
		}
		if unicode.IsSpace(r) || r == '(' || r == ')' {
			return fmt.Errorf("invalid name %q", name)
		}
	}
	return nil
}

// trimSpaces returns the indexes of text[start:end] without leading and
// trailing white spaces.
func trimSpaces(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}
