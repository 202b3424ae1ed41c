// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package token defines the lexical tokens produced by the SDSCP lexer and
// carried, with their origin, through preprocessing and parsing.
package token

import "fmt"

// Kind is the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	String
	Char
	Punct
	Directive
	Newline
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "eof"
	case Ident:
		return "ident"
	case Int:
		return "int"
	case String:
		return "string"
	case Char:
		return "char"
	case Punct:
		return "punct"
	case Directive:
		return "directive"
	case Newline:
		return "newline"
	default:
		return "unknown"
	}
}

// Origin is the source position a token (or a span it was expanded from)
// came from: the path the file was opened under, and a 1-based line and
// column.
type Origin struct {
	File   string
	Line   int
	Col    int
}

func (o Origin) String() string {
	return fmt.Sprintf("%s:%d:%d", o.File, o.Line, o.Col)
}

// Token is a single lexical unit. Text holds the literal spelling for
// Ident/Punct/Directive tokens and for Int tokens (with '_' separators
// removed, so "0xFF" stays "0xFF"); String and Char tokens carry their
// decoded payload in Text. IntVal holds the numeric value that the
// preprocessor and parser interpret.
type Token struct {
	Kind   Kind
	Text   string
	Origin Origin

	// IntVal holds the decoded value of an Int token, taken mod 2^32 and
	// read as a signed 32-bit value (0xFFFFFFFF gives -1), stored in an
	// int64.
	IntVal int64

	// ExpandedFrom is non-nil when this token (or its containing line) was
	// produced by macro expansion; it points at the origin of the most
	// recent macro invocation that produced it. Earlier invocations in a
	// nested expansion are not kept.
	ExpandedFrom *Origin

	// LeadingComment holds the text of any //-or-/* */ comment(s) the lexer
	// skipped immediately before this token, joined by "\n" if more than one
	// preceded it with no other token in between. Empty when there was none.
	// Only consumed downstream when #pragma comments true is set.
	LeadingComment string
}

// ExpandedAt returns a copy of t whose ExpandedFrom is replaced by o, used
// by the preprocessor when it substitutes a macro's replacement list at a
// use site.
func (t Token) ExpandedAt(o Origin) Token {
	t.ExpandedFrom = &o
	return t
}

func (t Token) String() string {
	switch t.Kind {
	case String:
		return fmt.Sprintf("%q", t.Text)
	case Char:
		return fmt.Sprintf("'%s'", t.Text)
	default:
		return t.Text
	}
}

// Is reports whether t is a Punct or Directive token with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == Punct || t.Kind == Directive) && t.Text == text
}
