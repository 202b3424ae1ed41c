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

// Package ir defines the flat, labeled-statement intermediate
// representation lowering produces (spec.md 3 "Lowered IR") and the
// renderer consumes. Only the statement kinds spec.md names survive this
// far: Assign, IfGoto, Goto, Label, CallBuiltin, ReturnToDispatcher.
// Expressions are restricted to at most one binary operator or one call,
// enforced by construction in internal/lower rather than by a validator
// here (mirrors the teacher's ninja.go, which is likewise a pure
// restricted-output IR with no behavior of its own).
package ir

// Expr is a flattened IR expression: a literal, a variable/register
// reference, an indexed hardware-array reference, or a single unary/binary
// operation whose operands are themselves one of those simple forms.
type Expr interface {
	isExpr()
}

type Lit struct {
	Value int32
	// Hex marks a literal that renders in hex (0x...). No lowering path
	// sets it, so every literal is emitted in decimal.
	Hex bool
}

func (Lit) isExpr() {}

type VarRef struct {
	Name string
}

func (VarRef) isExpr() {}

// StrLit is a string literal, valid only as a builtin-call argument (SDS-C
// has no string-typed storage outside of the fixed builtins that accept
// one, e.g. echo("text")).
type StrLit struct {
	Value string
}

func (StrLit) isExpr() {}

type IndexRef struct {
	Array string // "sys", "ram", or "text"
	Index Expr
}

func (IndexRef) isExpr() {}

type Unary struct {
	Op      string
	X       Expr
	Grouped bool
}

func (Unary) isExpr() {}

type Binary struct {
	Op      string
	X, Y    Expr
	Grouped bool
}

func (Binary) isExpr() {}

// Stmt is implemented by every surviving lowered statement kind.
type Stmt interface {
	isStmt()
}

// Assign is "lhs = rhs;" where LHS is a VarRef or IndexRef.
type Assign struct {
	LHS Expr
	RHS Expr
}

func (Assign) isStmt() {}

// IfGoto is "if (cond) goto label;".
type IfGoto struct {
	Cond  Expr
	Label string
}

func (IfGoto) isStmt() {}

// Goto is an unconditional jump.
type Goto struct {
	Label string
}

func (Goto) isStmt() {}

// Label declares a jump target; spec.md invariant: defined at most once.
type Label struct {
	Name string
}

func (Label) isStmt() {}

// CallBuiltin invokes one of the fixed device builtins (spec.md 6), as a
// statement. ResultVar, if non-empty, names the variable that receives the
// builtin's value for builtins SDSCP treats as value-producing (atoi).
type CallBuiltin struct {
	Name      string
	Args      []Expr
	ResultVar string
}

func (CallBuiltin) isStmt() {}

// ReturnToDispatcher marks a user function's return point: __rval (if any)
// has already been assigned, and control must reach the caller's specific
// return label via the __ret dispatch chain lowering builds per callee
// (spec.md 4.5 L3).
type ReturnToDispatcher struct {
	Callee string
}

func (ReturnToDispatcher) isStmt() {}

// Comment is a non-semantic annotation carried into the IR only when
// #pragma comments true is set, so the renderer can echo source comments
// verbatim (spec.md 6 "comments"). Lowering never relies on its presence.
type Comment struct {
	Text string
}

func (Comment) isStmt() {}

// Global is one top-level variable declaration in the lowered program,
// with an optional constant initializer (register-bank globals like __sp
// are emitted with one; ordinary globalized locals default to 0).
type Global struct {
	Name string
	Init Expr // nil if zero-initialized
}

// Program is the complete lowered output: the global variable list plus
// the single flat statement list that becomes the SDS-C "main" body.
type Program struct {
	Globals []Global
	Stmts   []Stmt
}
