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

// Package ast defines the typed statement/expression tree produced by the
// parser (spec.md 3 "AST", 4.3). Unlike the teacher's kati.AST, whose eval
// method runs a Makefile statement directly against an Evaluator, SDSCP's
// tree is purely structural: the lowering pass (internal/lower) is the only
// consumer, and walks it with a type switch rather than a virtual eval.
package ast

import "github.com/mightypork/sdscp/internal/token"

// Node is the base of every AST node: it carries the originating token for
// diagnostics, mirroring the teacher's ASTBase{filename, lineno}.
type Node struct {
	Origin token.Origin

	// Comment holds source comment text (from token.Token.LeadingComment)
	// immediately preceding this node, captured by the parser so lowering
	// can re-emit it as an ir.Comment under #pragma comments true.
	Comment string
}

// LeadingComment returns any source comment captured immediately ahead of
// this node, or "" if none.
func (n Node) LeadingComment() string { return n.Comment }

// SetComment attaches leading comment text to the node; the parser calls
// this once per statement after dispatch, since the concrete node literal
// is built inline across many parseXxx branches.
func (n *Node) SetComment(text string) { n.Comment = text }

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	Pos() token.Origin
	LeadingComment() string
}

// Expr is implemented by every expression node.
type Expr interface {
	exprNode()
	Pos() token.Origin
	// Grouped reports whether this expression was written inside explicit
	// parentheses in the source, so the
	// lowering/render passes can preserve the grouping in emitted text even
	// after flattening (spec.md 4.5 L1, the expr_grouping2.out.c case).
	Grouped() bool
}

func (n Node) Pos() token.Origin { return n.Origin }

// ---- Statements ----

type Block struct {
	Node
	Stmts []Stmt
}

func (*Block) stmtNode() {}

type VarDecl struct {
	Node
	Name string
	Init Expr // nil if uninitialized
}

func (*VarDecl) stmtNode() {}

type AssignOp string

const (
	Assign   AssignOp = "="
	AddAssn  AssignOp = "+="
	SubAssn  AssignOp = "-="
	MulAssn  AssignOp = "*="
	DivAssn  AssignOp = "/="
	ModAssn  AssignOp = "%="
	AndAssn  AssignOp = "&="
	OrAssn   AssignOp = "|="
	XorAssn  AssignOp = "^="
	ShlAssn  AssignOp = "<<="
	ShrAssn  AssignOp = ">>="
)

type AssignStmt struct {
	Node
	LHS Expr
	Op  AssignOp
	RHS Expr
}

func (*AssignStmt) stmtNode() {}

type IfStmt struct {
	Node
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

func (*IfStmt) stmtNode() {}

type WhileStmt struct {
	Node
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}

type DoWhileStmt struct {
	Node
	Body Stmt
	Cond Expr
}

func (*DoWhileStmt) stmtNode() {}

type ForStmt struct {
	Node
	Init Stmt // may be nil
	Cond Expr // may be nil (treated as always-true)
	Step Stmt // may be nil
	Body Stmt
}

func (*ForStmt) stmtNode() {}

type Case struct {
	// Value is nil for the default case.
	Value Expr
	Body  []Stmt
}

type SwitchStmt struct {
	Node
	Expr    Expr
	Cases   []Case
	Default int // index into Cases of the default clause, or -1
}

func (*SwitchStmt) stmtNode() {}

type BreakStmt struct{ Node }

func (*BreakStmt) stmtNode() {}

type ContinueStmt struct{ Node }

func (*ContinueStmt) stmtNode() {}

type ReturnStmt struct {
	Node
	Value Expr // nil for bare "return;"
}

func (*ReturnStmt) stmtNode() {}

type GotoStmt struct {
	Node
	Label string
}

func (*GotoStmt) stmtNode() {}

type LabelStmt struct {
	Node
	Name string
}

func (*LabelStmt) stmtNode() {}

type ExprStmt struct {
	Node
	X Expr
}

func (*ExprStmt) stmtNode() {}

// FuncDecl is a top-level function definition. It is carried in the AST as
// a Stmt so the parser can return a flat top-level statement list, but
// sema/lower treat it distinctly from executable statements.
type FuncDecl struct {
	Node
	Name   string
	Params []string
	Body   *Block
}

func (*FuncDecl) stmtNode() {}

// ---- Expressions ----

type IntLit struct {
	Node
	Value   int32
	grouped bool
}

func (*IntLit) exprNode()        {}
func (e *IntLit) Grouped() bool  { return e.grouped }

type StringLit struct {
	Node
	Value   string
	grouped bool
}

func (*StringLit) exprNode()       {}
func (e *StringLit) Grouped() bool { return e.grouped }

type Ident struct {
	Node
	Name    string
	grouped bool
}

func (*Ident) exprNode()       {}
func (e *Ident) Grouped() bool { return e.grouped }

// IndexExpr is a reference into one of the three hardware arrays:
// sys[i], ram[i], text[i].
type IndexExpr struct {
	Node
	Array   string // "sys", "ram", or "text"
	Index   Expr
	grouped bool
}

func (*IndexExpr) exprNode()       {}
func (e *IndexExpr) Grouped() bool { return e.grouped }

type UnaryExpr struct {
	Node
	Op      string // "-", "!", "~"
	X       Expr
	grouped bool
}

func (*UnaryExpr) exprNode()       {}
func (e *UnaryExpr) Grouped() bool { return e.grouped }

type BinaryExpr struct {
	Node
	Op      string
	X, Y    Expr
	grouped bool
}

func (*BinaryExpr) exprNode()       {}
func (e *BinaryExpr) Grouped() bool { return e.grouped }

type CallExpr struct {
	Node
	Callee  string
	Args    []Expr
	grouped bool
}

func (*CallExpr) exprNode()       {}
func (e *CallExpr) Grouped() bool { return e.grouped }

// ParenExpr marks an explicitly-parenthesized sub-expression. The parser
// never builds one: it sets the inner expression's grouped bit instead, so
// ParenExpr never appears in a parsed tree.
type ParenExpr struct {
	Node
	X Expr
}

func (*ParenExpr) exprNode()       {}
func (e *ParenExpr) Grouped() bool { return true }

// MarkGrouped returns e with its "written in parens" bit set, used by the
// parser when it reduces a "( expr )" primary.
func MarkGrouped(e Expr) Expr {
	switch v := e.(type) {
	case *IntLit:
		v.grouped = true
		return v
	case *StringLit:
		v.grouped = true
		return v
	case *Ident:
		v.grouped = true
		return v
	case *IndexExpr:
		v.grouped = true
		return v
	case *UnaryExpr:
		v.grouped = true
		return v
	case *BinaryExpr:
		v.grouped = true
		return v
	case *CallExpr:
		v.grouped = true
		return v
	default:
		return e
	}
}

// File is the parsed result of one translation unit: a flat list of
// top-level globals and function definitions, in source order.
type File struct {
	Decls []Stmt // *VarDecl or *FuncDecl, in source order
}
