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

package parser

import (
	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/token"
)

// precedence follows standard C, collapsed to the flat operator set
// spec.md 3 allows for expressions.
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

func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		t := p.peek()
		if t.Kind != token.Punct {
			break
		}
		prec, ok := binPrec[t.Text]
		if !ok || prec < minPrec {
			break
		}
		p.next()
		right := p.parseExpr(prec + 1)
		left = &ast.BinaryExpr{Node: ast.Node{Origin: t.Origin}, Op: t.Text, X: left, Y: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	t := p.peek()
	if t.Is("!") || t.Is("-") || t.Is("~") {
		p.next()
		x := p.parseUnary()
		return &ast.UnaryExpr{Node: ast.Node{Origin: t.Origin}, Op: t.Text, X: x}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch {
	case t.Kind == token.Int:
		p.next()
		return &ast.IntLit{Node: ast.Node{Origin: t.Origin}, Value: int32(t.IntVal)}
	case t.Kind == token.Char:
		p.next()
		return &ast.IntLit{Node: ast.Node{Origin: t.Origin}, Value: int32(t.IntVal)}
	case t.Kind == token.String:
		p.next()
		return &ast.StringLit{Node: ast.Node{Origin: t.Origin}, Value: t.Text}
	case t.Is("("):
		p.next()
		x := p.parseExpr(0)
		p.expect(")")
		return ast.MarkGrouped(x)
	case t.Kind == token.Ident && (t.Text == "sys" || t.Text == "ram" || t.Text == "text") && p.peekAt(1).Is("["):
		p.next()
		p.next() // "["
		idx := p.parseExpr(0)
		p.expect("]")
		return &ast.IndexExpr{Node: ast.Node{Origin: t.Origin}, Array: t.Text, Index: idx}
	case t.Kind == token.Ident && p.peekAt(1).Is("("):
		p.next()
		p.next() // "("
		var args []ast.Expr
		for !p.peek().Is(")") && p.peek().Kind != token.EOF {
			args = append(args, p.parseExpr(0))
			if p.peek().Is(",") {
				p.next()
			}
		}
		p.expect(")")
		return &ast.CallExpr{Node: ast.Node{Origin: t.Origin}, Callee: t.Text, Args: args}
	case t.Kind == token.Ident:
		p.next()
		return &ast.Ident{Node: ast.Node{Origin: t.Origin}, Name: t.Text}
	default:
		p.errorf("unexpected token %q in expression", t.Text)
		p.next()
		return &ast.IntLit{Node: ast.Node{Origin: t.Origin}, Value: 0}
	}
}
