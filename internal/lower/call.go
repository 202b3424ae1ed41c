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
	"github.com/mightypork/sdscp/internal/sema"
)

// builtins is the fixed set of device-level calls the renderer passes
// through verbatim (spec.md 6 "Input surface"). atoi is the only one that
// produces a usable value; the rest are lowered as plain statements.
var builtins = map[string]bool{
	"echo":                             true,
	"echoinline":                       true,
	"wait":                             true,
	"http_get":                         true,
	"read_dataflash":                   true,
	"write_ram_block_to_dataflash_page": true,
	"read_dataflash_page_to_ram":        true,
	"sprintf":                           true,
	"atoi":                             true,
}

func entryLabel(name string) string { return fmt.Sprintf("__fn_%s_entry", name) }

func (lw *Lowerer) lowerCallExpr(v *ast.CallExpr, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	if builtins[v.Callee] {
		return lw.lowerBuiltinCall(v, fc, out)
	}
	fi, ok := lw.sem.Funcs[v.Callee]
	if !ok {
		lw.sink.Errorf(loweringClass, v.Origin, "call to undefined function %q", v.Callee)
		return ir.Lit{Value: 0}
	}
	if fi.Inlineable {
		return lw.lowerInlineCall(v, fi, fc, out)
	}
	if lw.isTrampolined(fi) {
		return lw.lowerTrampolineCall(v, fi, fc, out)
	}
	return lw.lowerDirectCall(v, fi, fc, out)
}

// lowerBuiltinCall lowers one of the fixed device builtins. String-literal
// arguments pass through as ir.StrLit; every other argument is flattened
// like an ordinary call argument. Only atoi yields a usable result value.
func (lw *Lowerer) lowerBuiltinCall(v *ast.CallExpr, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	args := make([]ir.Expr, len(v.Args))
	for i, a := range v.Args {
		if s, ok := a.(*ast.StringLit); ok {
			args[i] = ir.StrLit{Value: s.Value}
			continue
		}
		args[i] = lw.flattenOperand(a, fc, out)
	}
	if v.Callee == "atoi" {
		t := fc.temps.alloc()
		lw.addGlobal(t, nil)
		*out = append(*out, ir.CallBuiltin{Name: v.Callee, Args: args, ResultVar: t})
		fc.temps.free_(t)
		return ir.VarRef{Name: t}
	}
	*out = append(*out, ir.CallBuiltin{Name: v.Callee, Args: args})
	return ir.Lit{Value: 0}
}

// isTrampolined reports whether calls to fi go through the software-stack
// calling convention rather than plain register assignment: always true for
// a recursive function (a single global __ret cannot otherwise nest across
// re-entrant calls), and additionally true for any call whose argument
// count exceeds the configured threshold once push_pop_trampolines is on
// (spec.md 4.5 L3), trading code size for the added push/pop bookkeeping.
func (lw *Lowerer) isTrampolined(fi *sema.FuncInfo) bool {
	if fi.Recursive {
		return true
	}
	return lw.opts.PushPopTrampolines && len(fi.Decl.Params) > lw.opts.TrampolineThreshold()
}

// lowerDirectCall implements the default calling convention of spec.md 4.5
// L3: arguments land in __a0.. registers, a fresh per-call-site id is
// recorded into __ret, control jumps to the callee's entry label, and
// resumes at a call-site-specific return label once the callee dispatches
// back.
func (lw *Lowerer) lowerDirectCall(v *ast.CallExpr, fi *sema.FuncInfo, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	args := lw.evalArgs(v, fc, out)
	lw.emitArgSetup(args, out)

	lw.addGlobal(regRet, nil)
	retID := len(lw.callSites[v.Callee])
	retLabel := fmt.Sprintf("__call_ret_%s_%d", v.Callee, retID)
	lw.callSites[v.Callee] = append(lw.callSites[v.Callee], retLabel)

	*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: regRet}, RHS: ir.Lit{Value: int32(retID)}})
	*out = append(*out, ir.Goto{Label: entryLabel(v.Callee)})
	*out = append(*out, ir.Label{Name: retLabel})
	return ir.VarRef{Name: regRVal}
}

// lowerTrampolineCall is the same calling convention as lowerDirectCall,
// plus a software-stack save/restore of __ret around the jump so that
// nested (recursive, or simply high-arity) calls don't clobber the
// in-flight return id of an outer call still awaiting its own dispatch
// (spec.md 4.5 L3/L4).
func (lw *Lowerer) lowerTrampolineCall(v *ast.CallExpr, fi *sema.FuncInfo, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	args := lw.evalArgs(v, fc, out)
	lw.emitArgSetup(args, out)

	lw.addGlobal(regRet, nil)
	lw.needStack = true
	retID := len(lw.callSites[v.Callee])
	retLabel := fmt.Sprintf("__call_ret_%s_%d", v.Callee, retID)
	lw.callSites[v.Callee] = append(lw.callSites[v.Callee], retLabel)

	*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: regRet}, RHS: ir.Lit{Value: int32(retID)}})
	// __sp moves into the window before the overflow check runs against
	// it, so the check sees the slot this push is about to claim rather
	// than the not-yet-decremented value from the previous frame.
	*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: regSP}, RHS: ir.Binary{Op: "-", X: ir.VarRef{Name: regSP}, Y: ir.Lit{Value: 1}}})
	if lw.opts.SafeStack {
		*out = append(*out, ir.IfGoto{
			Cond:  ir.Binary{Op: "<=", X: ir.VarRef{Name: regSP}, Y: ir.VarRef{Name: regStackLo}},
			Label: lw.overflowLabel(),
		})
	}
	*out = append(*out, ir.Assign{LHS: ir.IndexRef{Array: "ram", Index: ir.VarRef{Name: regSP}}, RHS: ir.VarRef{Name: regRet}})
	*out = append(*out, ir.Goto{Label: entryLabel(v.Callee)})
	*out = append(*out, ir.Label{Name: retLabel})
	return ir.VarRef{Name: regRVal}
}

// evalArgs flattens call arguments left-to-right, materializing any
// argument that is itself non-trivial (including a nested call) into a
// temporary before any __a* register is touched (spec.md 4.5 L1).
func (lw *Lowerer) evalArgs(v *ast.CallExpr, fc *funcCtx, out *[]ir.Stmt) []ir.Expr {
	args := make([]ir.Expr, len(v.Args))
	for i, a := range v.Args {
		args[i] = lw.flattenOperand(a, fc, out)
	}
	return args
}

func (lw *Lowerer) emitArgSetup(args []ir.Expr, out *[]ir.Stmt) {
	for i, a := range args {
		lw.addGlobal(argReg(i), nil)
		*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: argReg(i)}, RHS: a})
	}
}

// lowerInlineCall substitutes a single-use, non-recursive callee's body
// directly at the call site: each parameter becomes a fresh assignment into
// its own globalized storage, the body lowers in place under an
// inlineReturn context that turns "return e" into an assignment plus a
// goto past the substituted block, and the call's value is read back out
// of a temporary (spec.md 4.5 L3, "Inlining").
func (lw *Lowerer) lowerInlineCall(v *ast.CallExpr, fi *sema.FuncInfo, fc *funcCtx, out *[]ir.Stmt) ir.Expr {
	childFC := lw.newFuncCtx(fi.Decl.Name, nil)

	for i, p := range fi.Decl.Params {
		if i >= len(v.Args) {
			break
		}
		argVal := lw.flattenOperand(v.Args[i], fc, out)
		name := paramGlobal(fi.Decl.Name, p)
		lw.addGlobal(name, nil)
		*out = append(*out, ir.Assign{LHS: ir.VarRef{Name: name}, RHS: argVal})
		childFC.paramVar[p] = name
	}

	id := lw.newID()
	endLabel := fmt.Sprintf("__inline_%s_end_%d", fi.Decl.Name, id)
	destVar := fc.temps.alloc()
	lw.addGlobal(destVar, nil)
	childFC.ret = inlineReturn{destVar: destVar, endLabel: endLabel}

	*out = append(*out, lw.lowerBlock(fi.Decl.Body, childFC)...)
	*out = append(*out, ir.Label{Name: endLabel})

	fc.temps.free_(destVar)
	return ir.VarRef{Name: destVar}
}

func (lw *Lowerer) overflowLabel() string {
	if lw.needOverflow == "" {
		lw.needOverflow = "__stack_overflow"
	}
	return lw.needOverflow
}

func (lw *Lowerer) underflowLabel() string {
	if lw.needUnderflow == "" {
		lw.needUnderflow = "__stack_underflow"
	}
	return lw.needUnderflow
}
