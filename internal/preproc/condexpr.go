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

package preproc

import (
	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// condEval evaluates a tokenized #if/#elif constant expression (spec.md
// 4.2 "Conditional compilation"). Identifiers are resolved against the
// macro table: defined -> 1, undefined -> 0, unless wrapped in defined(X)
// in which case X itself is never macro-expanded. Everything else is first
// macro-expanded, then parsed with a small precedence-climbing evaluator.
func (p *Preprocessor) condEval(toks []token.Token) int64 {
	pre := preprocessDefined(toks, p.macros)
	expanded := p.macros.expandTokens(pre, hideset{}, p.sink)
	c := &condParser{toks: expanded, sink: p.sink}
	v := c.parseExpr(0)
	if c.pos < len(c.toks) {
		p.sink.Warnf(diag.Preprocessor, c.toks[c.pos].Origin, "trailing tokens in #if expression ignored")
	}
	return v
}

// preprocessDefined replaces every "defined ( X )" or "defined X" with a
// literal 1/0 token before macro expansion runs, so defined() sees X's
// definedness rather than its expansion.
func preprocessDefined(toks []token.Token, macros *Table) []token.Token {
	var out []token.Token
	for i := 0; i < len(toks); i++ {
		if toks[i].Kind == token.Ident && toks[i].Text == "defined" {
			j := i + 1
			paren := false
			if j < len(toks) && toks[j].Is("(") {
				paren = true
				j++
			}
			if j < len(toks) && toks[j].Kind == token.Ident {
				name := toks[j].Text
				j++
				if paren {
					if j < len(toks) && toks[j].Is(")") {
						j++
					}
				}
				v := int64(0)
				if macros.IsDefined(name) {
					v = 1
				}
				out = append(out, token.Token{Kind: token.Int, Text: "1", Origin: toks[i].Origin, IntVal: v})
				i = j - 1
				continue
			}
		}
		out = append(out, toks[i])
	}
	return out
}

type condParser struct {
	toks []token.Token
	pos  int
	sink *diag.Sink
}

func (c *condParser) peek() token.Token {
	if c.pos < len(c.toks) {
		return c.toks[c.pos]
	}
	return token.Token{Kind: token.EOF}
}

func (c *condParser) next() token.Token {
	t := c.peek()
	c.pos++
	return t
}

// precedence mirrors standard C, with | ^ & each on its own tier, for the
// operator set of spec.md's grammar: "binary + - * / % == != < <= > >= && || & | ^ << >>".
var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (c *condParser) parseExpr(minPrec int) int64 {
	left := c.parseUnary()
	for {
		t := c.peek()
		if t.Kind != token.Punct {
			break
		}
		prec, ok := binPrec[t.Text]
		if !ok || prec < minPrec {
			break
		}
		c.next()
		right := c.parseExpr(prec + 1)
		left = applyBinOp(t.Text, left, right)
	}
	return left
}

func (c *condParser) parseUnary() int64 {
	t := c.peek()
	switch {
	case t.Is("!"):
		c.next()
		if c.parseUnary() == 0 {
			return 1
		}
		return 0
	case t.Is("-"):
		c.next()
		return -c.parseUnary()
	case t.Is("~"):
		c.next()
		return ^c.parseUnary()
	case t.Is("("):
		c.next()
		v := c.parseExpr(0)
		if c.peek().Is(")") {
			c.next()
		} else {
			c.sink.Warnf(diag.Preprocessor, t.Origin, "missing ')' in #if expression")
		}
		return v
	case t.Kind == token.Int:
		c.next()
		return t.IntVal
	case t.Kind == token.Char:
		c.next()
		return t.IntVal
	case t.Kind == token.Ident:
		c.next()
		c.sink.Warnf(diag.Preprocessor, t.Origin, "undefined identifier %q in #if expression treated as 0", t.Text)
		return 0
	default:
		c.sink.Errorf(diag.Preprocessor, t.Origin, "unexpected token %q in #if expression", t.Text)
		return 0
	}
}

func applyBinOp(op string, a, b int64) int64 {
	toBool := func(v bool) int64 {
		if v {
			return 1
		}
		return 0
	}
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		if b == 0 {
			return 0
		}
		return a / b
	case "%":
		if b == 0 {
			return 0
		}
		return a % b
	case "==":
		return toBool(a == b)
	case "!=":
		return toBool(a != b)
	case "<":
		return toBool(a < b)
	case "<=":
		return toBool(a <= b)
	case ">":
		return toBool(a > b)
	case ">=":
		return toBool(a >= b)
	case "&&":
		return toBool(a != 0 && b != 0)
	case "||":
		return toBool(a != 0 || b != 0)
	case "&":
		return a & b
	case "|":
		return a | b
	case "^":
		return a ^ b
	case "<<":
		return a << uint(b)
	case ">>":
		return a >> uint(b)
	default:
		return 0
	}
}
