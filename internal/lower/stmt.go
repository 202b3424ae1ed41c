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

import (
	"fmt"

	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/ir"
)

func (lw *Lowerer) lowerBlock(b *ast.Block, fc *funcCtx) []ir.Stmt {
	var out []ir.Stmt
	if b == nil {
		return out
	}
	for _, s := range b.Stmts {
		out = append(out, lw.lowerStmt(s, fc)...)
	}
	return out
}

// lowerStmt wraps lowerStmtInner to prepend an ir.Comment echoing the
// statement's source comment, when #pragma comments true is set and the
// parser captured one ahead of it (spec.md 6 "comments").
func (lw *Lowerer) lowerStmt(s ast.Stmt, fc *funcCtx) []ir.Stmt {
	out := lw.lowerStmtInner(s, fc)
	if lw.opts.Comments && s.LeadingComment() != "" {
		out = append([]ir.Stmt{ir.Comment{Text: s.LeadingComment()}}, out...)
	}
	return out
}

func (lw *Lowerer) lowerStmtInner(s ast.Stmt, fc *funcCtx) []ir.Stmt {
	var out []ir.Stmt
	switch v := s.(type) {
	case *ast.Block:
		return lw.lowerBlock(v, fc)

	case *ast.VarDecl:
		name := lw.sem.GlobalName[v]
		if name == "" {
			name = v.Name
		}
		fc.localVar[v.Name] = name
		lw.addGlobal(name, nil)
		if v.Init != nil {
			rhs := lw.flattenTop(v.Init, fc, &out)
			out = append(out, ir.Assign{LHS: ir.VarRef{Name: name}, RHS: rhs})
		}
		return out

	case *ast.AssignStmt:
		return lw.lowerAssign(v, fc)

	case *ast.ExprStmt:
		lw.flattenTop(v.X, fc, &out)
		return out

	case *ast.IfStmt:
		return lw.lowerIf(v, fc)

	case *ast.WhileStmt:
		return lw.lowerWhile(v, fc)

	case *ast.DoWhileStmt:
		return lw.lowerDoWhile(v, fc)

	case *ast.ForStmt:
		return lw.lowerFor(v, fc)

	case *ast.SwitchStmt:
		return lw.lowerSwitch(v, fc)

	case *ast.BreakStmt:
		return []ir.Stmt{ir.Goto{Label: fc.currentBreak()}}

	case *ast.ContinueStmt:
		return []ir.Stmt{ir.Goto{Label: fc.currentContinue()}}

	case *ast.GotoStmt:
		return []ir.Stmt{ir.Goto{Label: v.Label}}

	case *ast.LabelStmt:
		return []ir.Stmt{ir.Label{Name: v.Name}}

	case *ast.ReturnStmt:
		return lw.lowerReturn(v, fc)

	default:
		lw.sink.Errorf(loweringClass, s.Pos(), "internal: unhandled statement kind in lowering")
		return nil
	}
}

func (lw *Lowerer) lowerAssign(v *ast.AssignStmt, fc *funcCtx) []ir.Stmt {
	var out []ir.Stmt
	lhs := lw.flattenLValue(v.LHS, fc, &out)
	if v.Op == ast.Assign {
		rhs := lw.flattenTop(v.RHS, fc, &out)
		out = append(out, ir.Assign{LHS: lhs, RHS: rhs})
		return out
	}
	// Compound assignment ("x += e") desugars to "x = x <op> e", with the
	// read-modify-write's RHS flattened the same way a plain binary
	// expression would be.
	op := compoundBinOp(v.Op)
	rhs := lw.flattenOperand(v.RHS, fc, &out)
	out = append(out, ir.Assign{LHS: lhs, RHS: ir.Binary{Op: op, X: lhs, Y: rhs}})
	return out
}

func compoundBinOp(op ast.AssignOp) string {
	switch op {
	case ast.AddAssn:
		return "+"
	case ast.SubAssn:
		return "-"
	case ast.MulAssn:
		return "*"
	case ast.DivAssn:
		return "/"
	case ast.ModAssn:
		return "%"
	case ast.AndAssn:
		return "&"
	case ast.OrAssn:
		return "|"
	case ast.XorAssn:
		return "^"
	case ast.ShlAssn:
		return "<<"
	case ast.ShrAssn:
		return ">>"
	default:
		return "+"
	}
}

// lowerIf implements spec.md 4.5 L2:
//   if (c) goto __if_then_k; <E>; goto __if_end_k; __if_then_k:; <T>; __if_end_k:
// When simplify_ifs is enabled and c is a compile-time constant, the dead
// branch is dropped entirely and no labels are emitted at all.
func (lw *Lowerer) lowerIf(v *ast.IfStmt, fc *funcCtx) []ir.Stmt {
	if lw.opts.SimplifyIfs {
		if c, ok := constInt(v.Cond); ok {
			if c != 0 {
				return lw.lowerStmt(v.Then, fc)
			}
			if v.Else != nil {
				return lw.lowerStmt(v.Else, fc)
			}
			return nil
		}
	}
	id := lw.newID()
	thenLabel := fmt.Sprintf("__if_then_%d", id)
	endLabel := fmt.Sprintf("__if_end_%d", id)

	var out []ir.Stmt
	cond := lw.flattenTop(v.Cond, fc, &out)
	out = append(out, ir.IfGoto{Cond: cond, Label: thenLabel})
	if v.Else != nil {
		out = append(out, lw.lowerStmt(v.Else, fc)...)
	}
	out = append(out, ir.Goto{Label: endLabel})
	out = append(out, ir.Label{Name: thenLabel})
	out = append(out, lw.lowerStmt(v.Then, fc)...)
	out = append(out, ir.Label{Name: endLabel})
	return out
}

// lowerWhile implements:
//   __wh_k: if (!c) goto __wh_break_k; <B>; goto __wh_k; __wh_break_k:
func (lw *Lowerer) lowerWhile(v *ast.WhileStmt, fc *funcCtx) []ir.Stmt {
	id := lw.newID()
	top := fmt.Sprintf("__wh_%d", id)
	brk := fmt.Sprintf("__wh_break_%d", id)

	var out []ir.Stmt
	out = append(out, ir.Label{Name: top})
	negated := negate(v.Cond)
	cond := lw.flattenTop(negated, fc, &out)
	out = append(out, ir.IfGoto{Cond: cond, Label: brk})
	fc.pushLoop(brk, top)
	out = append(out, lw.lowerStmt(v.Body, fc)...)
	fc.popLoop()
	out = append(out, ir.Goto{Label: top})
	out = append(out, ir.Label{Name: brk})
	return out
}

// negate wraps e in a synthetic unary "!" for conditions that must be
// tested inverted (while/for loop-continuation checks).
func negate(e ast.Expr) ast.Expr {
	return &ast.UnaryExpr{Node: ast.Node{Origin: e.Pos()}, Op: "!", X: e}
}

// lowerDoWhile implements "__do_k: <B>; __do_cont_k: if (c) goto __do_k;
// __do_break_k:". spec.md's literal grammar does not name a continue
// target for do-while; __do_cont_k is this compiler's resolution (recorded
// in DESIGN.md) so that `continue` re-checks the condition instead of
// unconditionally re-running the body from the top.
func (lw *Lowerer) lowerDoWhile(v *ast.DoWhileStmt, fc *funcCtx) []ir.Stmt {
	id := lw.newID()
	top := fmt.Sprintf("__do_%d", id)
	cont := fmt.Sprintf("__do_cont_%d", id)
	brk := fmt.Sprintf("__do_break_%d", id)

	var out []ir.Stmt
	out = append(out, ir.Label{Name: top})
	fc.pushLoop(brk, cont)
	out = append(out, lw.lowerStmt(v.Body, fc)...)
	fc.popLoop()
	out = append(out, ir.Label{Name: cont})
	cond := lw.flattenTop(v.Cond, fc, &out)
	out = append(out, ir.IfGoto{Cond: cond, Label: top})
	out = append(out, ir.Label{Name: brk})
	return out
}

// lowerFor implements:
//   <init>; __for_k: if (!cond) goto __for_break_k; <B>;
//   __for_cont_k: <step>; goto __for_k; __for_break_k:
func (lw *Lowerer) lowerFor(v *ast.ForStmt, fc *funcCtx) []ir.Stmt {
	id := lw.newID()
	top := fmt.Sprintf("__for_%d", id)
	cont := fmt.Sprintf("__for_cont_%d", id)
	brk := fmt.Sprintf("__for_break_%d", id)

	var out []ir.Stmt
	if v.Init != nil {
		out = append(out, lw.lowerStmt(v.Init, fc)...)
	}
	out = append(out, ir.Label{Name: top})
	if v.Cond != nil {
		cond := lw.flattenTop(negate(v.Cond), fc, &out)
		out = append(out, ir.IfGoto{Cond: cond, Label: brk})
	}
	fc.pushLoop(brk, cont)
	out = append(out, lw.lowerStmt(v.Body, fc)...)
	fc.popLoop()
	out = append(out, ir.Label{Name: cont})
	if v.Step != nil {
		out = append(out, lw.lowerStmt(v.Step, fc)...)
	}
	out = append(out, ir.Goto{Label: top})
	out = append(out, ir.Label{Name: brk})
	return out
}

// lowerSwitch implements spec.md 4.5 L2's dispatch-table-then-bodies
// scheme: the switch value is copied into a fresh temporary, each case's
// value is re-evaluated (and dispatched on) in source order every time the
// switch runs, default dispatches last regardless of its textual position,
// and bodies are emitted in source order so fallthrough (no break) behaves
// like C (spec.md 6 supplemented features, tests-unit/switch.in.c).
func (lw *Lowerer) lowerSwitch(v *ast.SwitchStmt, fc *funcCtx) []ir.Stmt {
	id := lw.newID()
	swVar := fmt.Sprintf("__sw_%d", id)
	end := fmt.Sprintf("__sw_end_%d", id)
	lw.addGlobal(swVar, nil)

	var out []ir.Stmt
	val := lw.flattenTop(v.Expr, fc, &out)
	out = append(out, ir.Assign{LHS: ir.VarRef{Name: swVar}, RHS: val})

	caseLabels := make([]string, len(v.Cases))
	for i := range v.Cases {
		caseLabels[i] = fmt.Sprintf("__case_%d_%d", id, i)
	}

	for i, c := range v.Cases {
		if i == v.Default {
			continue
		}
		cmp := lw.flattenOperand(c.Value, fc, &out)
		out = append(out, ir.IfGoto{Cond: ir.Binary{Op: "==", X: ir.VarRef{Name: swVar}, Y: cmp}, Label: caseLabels[i]})
	}
	if v.Default >= 0 {
		out = append(out, ir.Goto{Label: caseLabels[v.Default]})
	} else {
		out = append(out, ir.Goto{Label: end})
	}

	fc.pushSwitch(end)
	for i, c := range v.Cases {
		out = append(out, ir.Label{Name: caseLabels[i]})
		for _, cs := range c.Body {
			out = append(out, lw.lowerStmt(cs, fc)...)
		}
	}
	fc.popSwitch()
	out = append(out, ir.Label{Name: end})
	return out
}

func (lw *Lowerer) lowerReturn(v *ast.ReturnStmt, fc *funcCtx) []ir.Stmt {
	var out []ir.Stmt
	switch ret := fc.ret.(type) {
	case dispatcherReturn:
		if v.Value != nil {
			val := lw.flattenTop(v.Value, fc, &out)
			out = append(out, ir.Assign{LHS: ir.VarRef{Name: regRVal}, RHS: val})
		}
		out = append(out, ir.ReturnToDispatcher{Callee: ret.callee})
	case inlineReturn:
		if v.Value != nil && ret.destVar != "" {
			val := lw.flattenTop(v.Value, fc, &out)
			out = append(out, ir.Assign{LHS: ir.VarRef{Name: ret.destVar}, RHS: val})
		}
		out = append(out, ir.Goto{Label: ret.endLabel})
	}
	return out
}
