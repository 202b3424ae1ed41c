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

// Package lexer turns a single source file's bytes into a token stream,
// per spec.md 4.1. It strips comments and joins backslash-continued lines
// before tokenizing, the way the teacher's parser.readLine joins
// trailing-backslash lines before handing them to the statement parser.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// Lexer holds the state needed to tokenize one file.
type Lexer struct {
	file string
	src  []byte
	pos  int
	line int
	col  int
	sink *diag.Sink

	// pendingComment accumulates //-or-/* */ comment text skipped since the
	// last real token, so it can be stamped onto whichever token comes next
	// (spec.md 6 "comments").
	pendingComment string
}

// New returns a Lexer over src, attributing tokens to file.
func New(file string, src []byte, sink *diag.Sink) *Lexer {
	return &Lexer{file: file, src: joinContinuations(src), line: 1, col: 1, sink: sink}
}

// joinContinuations removes a trailing "\\\n" (or "\\\r\n") sequence,
// splicing the next physical line onto the current one. This must run
// before comment stripping, since SDS-C allows multi-line macro bodies to
// be continued this way (spec.md 4.1).
func joinContinuations(src []byte) []byte {
	var out []byte
	for i := 0; i < len(src); i++ {
		if src[i] == '\\' && i+1 < len(src) {
			j := i + 1
			if src[j] == '\r' {
				j++
			}
			if j < len(src) && src[j] == '\n' {
				i = j
				continue
			}
		}
		out = append(out, src[i])
	}
	return out
}

// Tokenize runs the lexer to completion and returns every token, including
// a trailing EOF. Diagnostics are reported on l.sink; Tokenize keeps going
// after a lexical error so multiple problems can be surfaced in one run.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		t, ok := l.next()
		if ok {
			toks = append(toks, t)
		}
		if t.Kind == token.EOF {
			break
		}
	}
	return toks
}

func (l *Lexer) origin() token.Origin {
	return token.Origin{File: l.file, Line: l.line, Col: l.col}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentCont(c byte) bool  { return isIdentStart(c) || (c >= '0' && c <= '9') }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }

func (l *Lexer) next() (token.Token, bool) {
	l.skipSpaceAndComments()
	origin := l.origin()
	var t token.Token
	switch {
	case l.pos >= len(l.src):
		t = token.Token{Kind: token.EOF, Origin: origin}
	case l.peek() == '\n':
		l.advance()
		t = token.Token{Kind: token.Newline, Origin: origin}
	case l.peek() == '#' && l.peekAt(1) == '#':
		l.advance()
		l.advance()
		t = token.Token{Kind: token.Punct, Text: "##", Origin: origin}
	case l.peek() == '#':
		t = l.lexDirective(origin)
	case isIdentStart(l.peek()):
		t = l.lexIdent(origin)
	case isDigit(l.peek()):
		t = l.lexNumber(origin)
	case l.peek() == '"':
		t = l.lexString(origin)
	case l.peek() == '\'':
		t = l.lexChar(origin)
	default:
		t = l.lexPunct(origin)
	}
	// A comment immediately before a bare newline stays pending for
	// whichever real token follows it, rather than attaching to the
	// newline itself.
	if t.Kind != token.Newline {
		t.LeadingComment = l.pendingComment
		l.pendingComment = ""
	}
	return t, true
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		if c == ' ' || c == '\t' || c == '\r' {
			l.advance()
			continue
		}
		if c == '/' && l.peekAt(1) == '/' {
			start := l.pos
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			l.addPendingComment(string(l.src[start:l.pos]))
			continue
		}
		if c == '/' && l.peekAt(1) == '*' {
			start := l.pos
			l.advance()
			l.advance()
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
			l.addPendingComment(string(l.src[start:l.pos]))
			continue
		}
		break
	}
}

// addPendingComment strips the comment markers off raw and appends it to
// pendingComment, joining consecutive comments (e.g. a run of "//" lines)
// with a newline.
func (l *Lexer) addPendingComment(raw string) {
	var text string
	switch {
	case strings.HasPrefix(raw, "//"):
		text = strings.TrimSpace(strings.TrimPrefix(raw, "//"))
	case strings.HasPrefix(raw, "/*"):
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/"))
	default:
		text = raw
	}
	if l.pendingComment == "" {
		l.pendingComment = text
	} else {
		l.pendingComment += "\n" + text
	}
}

func (l *Lexer) lexDirective(origin token.Origin) token.Token {
	l.advance() // '#'
	for l.pos < len(l.src) && (l.peek() == ' ' || l.peek() == '\t') {
		l.advance()
	}
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peek()) {
		l.advance()
	}
	name := string(l.src[start:l.pos])
	return token.Token{Kind: token.Directive, Text: name, Origin: origin}
}

func (l *Lexer) lexIdent(origin token.Origin) token.Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peek()) {
		l.advance()
	}
	return token.Token{Kind: token.Ident, Text: string(l.src[start:l.pos]), Origin: origin}
}

func (l *Lexer) lexNumber(origin token.Origin) token.Token {
	start := l.pos
	base := 10
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		base = 16
		start = l.pos
		for l.pos < len(l.src) && (isHex(l.peek()) || l.peek() == '_') {
			l.advance()
		}
	} else if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		base = 2
		start = l.pos
		for l.pos < len(l.src) && (l.peek() == '0' || l.peek() == '1' || l.peek() == '_') {
			l.advance()
		}
	} else {
		for l.pos < len(l.src) && (isDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
	}
	digits := strings.ReplaceAll(string(l.src[start:l.pos]), "_", "")
	var text string
	var val uint64
	switch base {
	case 16:
		text = "0x" + digits
		val, _ = strconv.ParseUint(digits, 16, 64)
	case 2:
		text = "0b" + digits
		val, _ = strconv.ParseUint(digits, 2, 64)
	default:
		text = digits
		sv, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || sv > 1<<31-1 || sv < -(1<<31) {
			if l.sink != nil {
				l.sink.Errorf(diag.Lexical, origin, "decimal integer literal %q out of 32-bit signed range", digits)
			}
		}
		val = uint64(sv)
	}
	if base != 10 {
		val &= 0xFFFFFFFF
	}
	glog.V(3).Infof("%s: int literal %s = %d", origin, text, int64(uint32(val)))
	return token.Token{Kind: token.Int, Text: text, Origin: origin, IntVal: int64(int32(uint32(val)))}
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) lexString(origin token.Origin) token.Token {
	l.advance() // opening quote
	var buf strings.Builder
	for l.pos < len(l.src) && l.peek() != '"' {
		c := l.advance()
		if c == '\\' {
			buf.WriteByte(l.decodeEscape(origin))
			continue
		}
		if c == '\n' {
			if l.sink != nil {
				l.sink.Errorf(diag.Lexical, origin, "unterminated string literal")
			}
			break
		}
		buf.WriteByte(c)
	}
	if l.pos < len(l.src) {
		l.advance() // closing quote
	} else if l.sink != nil {
		l.sink.Errorf(diag.Lexical, origin, "unterminated string literal")
	}
	return token.Token{Kind: token.String, Text: buf.String(), Origin: origin}
}

func (l *Lexer) lexChar(origin token.Origin) token.Token {
	l.advance() // opening quote
	var b byte
	if l.pos < len(l.src) && l.peek() == '\\' {
		l.advance()
		b = l.decodeEscape(origin)
	} else if l.pos < len(l.src) {
		b = l.advance()
	}
	if l.pos < len(l.src) && l.peek() == '\'' {
		l.advance()
	} else if l.sink != nil {
		l.sink.Errorf(diag.Lexical, origin, "unterminated character literal")
	}
	return token.Token{Kind: token.Char, Text: string(b), Origin: origin, IntVal: int64(b)}
}

func (l *Lexer) decodeEscape(origin token.Origin) byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.advance()
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '"':
		return '"'
	case '\'':
		return '\''
	case '\\':
		return '\\'
	default:
		if l.sink != nil {
			l.sink.Errorf(diag.Lexical, origin, "invalid escape sequence '\\%c'", c)
		}
		return c
	}
}

var puncts = []string{
	"<<=", ">>=",
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "++", "--", "+=", "-=",
	"*=", "/=", "%=", "&=", "|=", "^=", "...",
	"(", ")", "{", "}", "[", "]", ";", ",", "=", "+", "-", "*", "/", "%",
	"<", ">", "!", "&", "|", "^", "~", "?", ":", ".",
}

func (l *Lexer) lexPunct(origin token.Origin) token.Token {
	for _, p := range puncts {
		if l.match(p) {
			for range p {
				l.advance()
			}
			return token.Token{Kind: token.Punct, Text: p, Origin: origin}
		}
	}
	c := l.advance()
	if l.sink != nil {
		l.sink.Errorf(diag.Lexical, origin, "unexpected character %q", fmt.Sprintf("%c", c))
	}
	return token.Token{Kind: token.Punct, Text: string(c), Origin: origin}
}

func (l *Lexer) match(s string) bool {
	if l.pos+len(s) > len(l.src) {
		return false
	}
	return string(l.src[l.pos:l.pos+len(s)]) == s
}
