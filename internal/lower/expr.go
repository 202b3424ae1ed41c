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

package lower

import "github.com/mightypork/sdscp/internal/ast"
import "github.com/mightypork/sdscp/internal/ir"

// flattenTop lowers the outermost expression of a statement (an assignment
// RHS, an if/while condition, ...): the single top-level operator, if any,
// is kept as one IR Binary/Unary node, but every operand that is itself
// non-trivial is first materialized into a temporary by flattenOperand
// (spec.md 4.5 L1).
func (lw *Lowerer) flattenTop(e ast.Expr, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	switch v := e.(type) {
	case *ast.BinaryExpr:
		x := lw.flattenOperand(v.X, fc, out)
		y := lw.flattenOperand(v.Y, fc, out)
		return ir.Binary{Op: v.Op, X: x, Y: y, Grouped: v.Grouped()}
	case *ast.UnaryExpr:
		x := lw.flattenOperand(v.X, fc, out)
		return ir.Unary{Op: v.Op, X: x, Grouped: v.Grouped()}
	case *ast.CallExpr:
		return lw.lowerCallExpr(v, fc, out)
	default:
		return lw.flattenOperand(e, fc, out)
	}
}

// flattenOperand always yields a "simple" IR expression (Lit, VarRef, or
// IndexRef): a nested binary/unary op, or a call, is evaluated into a
// fresh temporary first. Per spec.md 4.5 L1, a call argument that is
// itself a call is materialized before the outer call begins assigning
// argument registers -- this falls out naturally here, since any CallExpr
// operand goes through lowerCallExpr (which itself assigns __a0.. before
// jumping) before the *outer* call's own argument setup runs.
func (lw *Lowerer) flattenOperand(e ast.Expr, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	switch v := e.(type) {
	case *ast.IntLit:
		return ir.Lit{Value: v.Value}
	case *ast.StringLit:
		// SDS-C has no string type outside of builtin-call arguments; a
		// bare string used as a value expression has no numeric meaning,
		// so it is only valid directly as a CallBuiltin argument, handled
		// in lowerCallExpr's argument loop rather than here.
		lw.sink.Errorf(loweringClass, v.Origin, "string literal used outside of a builtin call argument")
		return ir.Lit{Value: 0}
	case *ast.Ident:
		return ir.VarRef{Name: fc.resolveIdent(v.Name)}
	case *ast.IndexExpr:
		idx := lw.flattenOperand(v.Index, fc, out)
		return ir.IndexRef{Array: v.Array, Index: idx}
	case *ast.UnaryExpr:
		x := lw.flattenOperand(v.X, fc, out)
		t := fc.temps.alloc()
		lw.addGlobal(t, nil)
		*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: t}, RHS: ir.Unary{Op: v.Op, X: x, Grouped: v.Grouped()}})
		fc.temps.free_(t)
		return ir.VarRef{Name: t}
	case *ast.BinaryExpr:
		x := lw.flattenOperand(v.X, fc, out)
		y := lw.flattenOperand(v.Y, fc, out)
		t := fc.temps.alloc()
		lw.addGlobal(t, nil)
		*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: t}, RHS: ir.Binary{Op: v.Op, X: x, Y: y, Grouped: v.Grouped()}})
		fc.temps.free_(t)
		return ir.VarRef{Name: t}
	case *ast.CallExpr:
		result := lw.lowerCallExpr(v, fc, out)
		t := fc.temps.alloc()
		lw.addGlobal(t, nil)
		*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: t}, RHS: result})
		fc.temps.free_(t)
		return ir.VarRef{Name: t}
	default:
		lw.sink.Errorf(loweringClass, e.Pos(), "internal: unhandled expression kind in flattenOperand")
		return ir.Lit{Value: 0}
	}
}

// flattenLValue lowers an assignment target, which is always a simple
// Ident or IndexExpr (never itself an operation).
func (lw *Lowerer) flattenLValue(e ast.Expr, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	switch v := e.(type) {
	case *ast.Ident:
		return ir.VarRef{Name: fc.resolveIdent(v.Name)}
	case *ast.IndexExpr:
		idx := lw.flattenOperand(v.Index, fc, out)
		return ir.IndexRef{Array: v.Array, Index: idx}
	default:
		lw.sink.Errorf(loweringClass, e.Pos(), "invalid assignment target")
		return ir.VarRef{Name: "__invalid"}
	}
}

// constInt reports whether e is a literal integer AST node (after
// preprocessing/parsing, before any further evaluation), for simplify_ifs
// constant folding (spec.md 4.5 L2, 4.2/9 "post-expansion" resolution).
func constInt(e ast.Expr) (int32, bool) {
	if v, ok := e.(*ast.IntLit); ok {
		return v.Value, true
	}
	return 0, false
}
