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

// Package parser turns the preprocessor's expanded token stream into the
// typed AST of internal/ast, per spec.md 4.3. It is a small hand-written
// recursive-descent parser over a strict C subset -- declarations,
// function definitions with an implicit integer return type, and the
// statement/expression grammar of spec.md 3 -- in the same directly-coded
// style the teacher uses for Makefile syntax in parser.go, rather than a
// generated grammar.
package parser

import (
	"github.com/golang/glog"

	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// Parser holds the token cursor and loop/switch/function nesting state
// needed to enforce spec.md 4.3's placement rules for break/continue/return.
type Parser struct {
	toks []token.Token
	pos  int
	sink *diag.Sink

	loopDepth   int
	switchDepth int
	inFunc      bool
}

// New returns a Parser over an already-expanded token stream.
func New(toks []token.Token, sink *diag.Sink) *Parser {
	// Drop Newline tokens; they carry no grammatical meaning past the
	// preprocessor (statements are semicolon/brace delimited).
	filtered := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != token.Newline {
			filtered = append(filtered, t)
		}
	}
	return &Parser{toks: filtered, sink: sink}
}

// Parse consumes the whole token stream and returns the top-level file.
func (p *Parser) Parse() *ast.File {
	f := &ast.File{}
	for p.peek().Kind != token.EOF {
		f.Decls = append(f.Decls, p.parseTopLevel())
	}
	return f
}

func (p *Parser) peek() token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return token.Token{Kind: token.EOF}
}

func (p *Parser) peekAt(off int) token.Token {
	if p.pos+off < len(p.toks) {
		return p.toks[p.pos+off]
	}
	return token.Token{Kind: token.EOF}
}

func (p *Parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, a ...interface{}) {
	p.sink.Errorf(diag.Parse, p.peek().Origin, format, a...)
}

// expect consumes and returns the current token if it matches text,
// otherwise reports a ParseError and returns the token unconsumed so the
// parser can attempt to resynchronize at the next statement boundary.
func (p *Parser) expect(text string) token.Token {
	t := p.peek()
	if !t.Is(text) {
		p.errorf("expected %q, got %q", text, t.Text)
		return t
	}
	return p.next()
}

// syncToSemicolon skips tokens until past the next top-level ';' or '}',
// the recovery strategy spec.md 7 calls for in the parser.
func (p *Parser) syncToSemicolon() {
	for {
		t := p.peek()
		if t.Kind == token.EOF {
			return
		}
		p.next()
		if t.Is(";") || t.Is("}") {
			return
		}
	}
}

func (p *Parser) parseTopLevel() ast.Stmt {
	leading := p.peek().LeadingComment
	decl := p.parseTopLevelInner()
	if leading != "" {
		if cs, ok := decl.(interface{ SetComment(string) }); ok {
			cs.SetComment(leading)
		}
	}
	return decl
}

func (p *Parser) parseTopLevelInner() ast.Stmt {
	if p.peek().Kind == token.Ident && p.peek().Text == "var" {
		return p.parseVarDecl()
	}
	if p.peek().Kind == token.Ident && p.peekAt(1).Is("(") {
		return p.parseFuncDecl()
	}
	p.errorf("expected a variable or function declaration, got %q", p.peek().Text)
	p.syncToSemicolon()
	return &ast.VarDecl{Node: ast.Node{Origin: p.peek().Origin}, Name: "__parse_error"}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	origin := p.next().Origin // "var"
	name := p.expect_ident()
	var init ast.Expr
	if p.peek().Is("=") {
		p.next()
		init = p.parseExpr(0)
	}
	p.expect(";")
	return &ast.VarDecl{Node: ast.Node{Origin: origin}, Name: name, Init: init}
}

func (p *Parser) expect_ident() string {
	t := p.peek()
	if t.Kind != token.Ident {
		p.errorf("expected identifier, got %q", t.Text)
		return ""
	}
	p.next()
	return t.Text
}

func (p *Parser) parseFuncDecl() ast.Stmt {
	nameTok := p.next()
	p.expect("(")
	var params []string
	for !p.peek().Is(")") && p.peek().Kind != token.EOF {
		params = append(params, p.expect_ident())
		if p.peek().Is(",") {
			p.next()
		}
	}
	p.expect(")")
	wasInFunc := p.inFunc
	p.inFunc = true
	body := p.parseBlock()
	p.inFunc = wasInFunc
	if len(params) > 4 {
		p.sink.Errorf(diag.Lowering, nameTok.Origin, "function %s declares %d parameters, maximum supported is 4", nameTok.Text, len(params))
	}
	glog.V(2).Infof("%s: parsed function %s/%d", nameTok.Origin, nameTok.Text, len(params))
	return &ast.FuncDecl{Node: ast.Node{Origin: nameTok.Origin}, Name: nameTok.Text, Params: params, Body: body}
}

func (p *Parser) parseBlock() *ast.Block {
	origin := p.expect("{").Origin
	b := &ast.Block{Node: ast.Node{Origin: origin}}
	for !p.peek().Is("}") && p.peek().Kind != token.EOF {
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	p.expect("}")
	return b
}

// parseStmt wraps parseStmtInner to attach any comment text the lexer
// captured immediately ahead of the statement (spec.md 6 "comments"), since
// every parseXxx branch below builds its ast.Node literal inline rather than
// through one shared constructor.
func (p *Parser) parseStmt() ast.Stmt {
	leading := p.peek().LeadingComment
	s := p.parseStmtInner()
	if leading != "" {
		if cs, ok := s.(interface{ SetComment(string) }); ok {
			cs.SetComment(leading)
		}
	}
	return s
}

func (p *Parser) parseStmtInner() ast.Stmt {
	t := p.peek()
	if t.Is("{") {
		return p.parseBlock()
	}
	if t.Kind == token.Ident {
		switch t.Text {
		case "var":
			return p.parseVarDecl()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "for":
			return p.parseFor()
		case "switch":
			return p.parseSwitch()
		case "break":
			p.next()
			if p.loopDepth == 0 && p.switchDepth == 0 {
				p.sink.Errorf(diag.Semantic, t.Origin, "'break' outside a loop or switch")
			}
			p.expect(";")
			return &ast.BreakStmt{Node: ast.Node{Origin: t.Origin}}
		case "continue":
			p.next()
			if p.loopDepth == 0 {
				p.sink.Errorf(diag.Semantic, t.Origin, "'continue' outside a loop")
			}
			p.expect(";")
			return &ast.ContinueStmt{Node: ast.Node{Origin: t.Origin}}
		case "return":
			p.next()
			if !p.inFunc {
				p.sink.Errorf(diag.Semantic, t.Origin, "'return' outside a function body")
			}
			var v ast.Expr
			if !p.peek().Is(";") {
				v = p.parseExpr(0)
			}
			p.expect(";")
			return &ast.ReturnStmt{Node: ast.Node{Origin: t.Origin}, Value: v}
		case "goto":
			p.next()
			name := p.expect_ident()
			p.expect(";")
			return &ast.GotoStmt{Node: ast.Node{Origin: t.Origin}, Label: name}
		}
		if p.peekAt(1).Is(":") {
			p.next()
			p.next()
			return &ast.LabelStmt{Node: ast.Node{Origin: t.Origin}, Name: t.Text}
		}
	}
	return p.parseSimpleStmt()
}

func (p *Parser) parseSimpleStmt() ast.Stmt {
	origin := p.peek().Origin
	x := p.parseExpr(0)
	if op, ok := assignOp(p.peek().Text); ok && p.peek().Kind == token.Punct {
		p.next()
		rhs := p.parseExpr(0)
		p.expect(";")
		return &ast.AssignStmt{Node: ast.Node{Origin: origin}, LHS: x, Op: op, RHS: rhs}
	}
	if p.peek().Is("++") || p.peek().Is("--") {
		op := ast.AddAssn
		if p.peek().Text == "--" {
			op = ast.SubAssn
		}
		p.next()
		p.expect(";")
		one := &ast.IntLit{Node: ast.Node{Origin: origin}, Value: 1}
		return &ast.AssignStmt{Node: ast.Node{Origin: origin}, LHS: x, Op: op, RHS: one}
	}
	p.expect(";")
	return &ast.ExprStmt{Node: ast.Node{Origin: origin}, X: x}
}

func assignOp(text string) (ast.AssignOp, bool) {
	switch text {
	case "=":
		return ast.Assign, true
	case "+=":
		return ast.AddAssn, true
	case "-=":
		return ast.SubAssn, true
	case "*=":
		return ast.MulAssn, true
	case "/=":
		return ast.DivAssn, true
	case "%=":
		return ast.ModAssn, true
	case "&=":
		return ast.AndAssn, true
	case "|=":
		return ast.OrAssn, true
	case "^=":
		return ast.XorAssn, true
	case "<<=":
		return ast.ShlAssn, true
	case ">>=":
		return ast.ShrAssn, true
	default:
		return "", false
	}
}

func (p *Parser) parseIf() ast.Stmt {
	origin := p.next().Origin
	p.expect("(")
	cond := p.parseExpr(0)
	p.expect(")")
	then := p.parseStmt()
	var els ast.Stmt
	if p.peek().Kind == token.Ident && p.peek().Text == "else" {
		p.next()
		els = p.parseStmt()
	}
	return &ast.IfStmt{Node: ast.Node{Origin: origin}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Stmt {
	origin := p.next().Origin
	p.expect("(")
	cond := p.parseExpr(0)
	p.expect(")")
	p.loopDepth++
	body := p.parseStmt()
	p.loopDepth--
	return &ast.WhileStmt{Node: ast.Node{Origin: origin}, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	origin := p.next().Origin
	p.loopDepth++
	body := p.parseStmt()
	p.loopDepth--
	if p.peek().Kind == token.Ident && p.peek().Text == "while" {
		p.next()
	} else {
		p.errorf("expected 'while' after 'do' block")
	}
	p.expect("(")
	cond := p.parseExpr(0)
	p.expect(")")
	p.expect(";")
	return &ast.DoWhileStmt{Node: ast.Node{Origin: origin}, Body: body, Cond: cond}
}

func (p *Parser) parseFor() ast.Stmt {
	origin := p.next().Origin
	p.expect("(")
	var init ast.Stmt
	if !p.peek().Is(";") {
		init = p.parseForClause()
	} else {
		p.next()
	}
	var cond ast.Expr
	if !p.peek().Is(";") {
		cond = p.parseExpr(0)
	}
	p.expect(";")
	var step ast.Stmt
	if !p.peek().Is(")") {
		step = p.parseForStep()
	}
	p.expect(")")
	p.loopDepth++
	body := p.parseStmt()
	p.loopDepth--
	return &ast.ForStmt{Node: ast.Node{Origin: origin}, Init: init, Cond: cond, Step: step, Body: body}
}

// parseForClause parses the init clause of a for(), which is a full
// statement (so it consumes its own trailing ';').
func (p *Parser) parseForClause() ast.Stmt {
	if p.peek().Kind == token.Ident && p.peek().Text == "var" {
		return p.parseVarDecl()
	}
	return p.parseSimpleStmt()
}

// parseForStep parses the step clause, which has no trailing ';' of its
// own (the enclosing "for(...)" ')' follows directly).
func (p *Parser) parseForStep() ast.Stmt {
	origin := p.peek().Origin
	x := p.parseExpr(0)
	if op, ok := assignOp(p.peek().Text); ok && p.peek().Kind == token.Punct {
		p.next()
		rhs := p.parseExpr(0)
		return &ast.AssignStmt{Node: ast.Node{Origin: origin}, LHS: x, Op: op, RHS: rhs}
	}
	if p.peek().Is("++") || p.peek().Is("--") {
		op := ast.AddAssn
		if p.peek().Text == "--" {
			op = ast.SubAssn
		}
		p.next()
		one := &ast.IntLit{Node: ast.Node{Origin: origin}, Value: 1}
		return &ast.AssignStmt{Node: ast.Node{Origin: origin}, LHS: x, Op: op, RHS: one}
	}
	return &ast.ExprStmt{Node: ast.Node{Origin: origin}, X: x}
}

func (p *Parser) parseSwitch() ast.Stmt {
	origin := p.next().Origin
	p.expect("(")
	expr := p.parseExpr(0)
	p.expect(")")
	p.expect("{")
	p.switchDepth++
	sw := &ast.SwitchStmt{Node: ast.Node{Origin: origin}, Expr: expr, Default: -1}
	for !p.peek().Is("}") && p.peek().Kind != token.EOF {
		if p.peek().Kind == token.Ident && p.peek().Text == "case" {
			p.next()
			v := p.parseExpr(0)
			p.expect(":")
			body := p.parseCaseBody()
			sw.Cases = append(sw.Cases, ast.Case{Value: v, Body: body})
		} else if p.peek().Kind == token.Ident && p.peek().Text == "default" {
			p.next()
			p.expect(":")
			body := p.parseCaseBody()
			sw.Default = len(sw.Cases)
			sw.Cases = append(sw.Cases, ast.Case{Value: nil, Body: body})
		} else {
			p.errorf("expected 'case' or 'default' in switch body, got %q", p.peek().Text)
			p.syncToSemicolon()
		}
	}
	p.switchDepth--
	p.expect("}")
	return sw
}

func (p *Parser) parseCaseBody() []ast.Stmt {
	var body []ast.Stmt
	for {
		t := p.peek()
		if t.Is("}") || t.Kind == token.EOF {
			break
		}
		if t.Kind == token.Ident && (t.Text == "case" || t.Text == "default") {
			break
		}
		body = append(body, p.parseStmt())
	}
	return body
}
