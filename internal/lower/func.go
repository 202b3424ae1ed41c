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
	"github.com/mightypork/sdscp/internal/ir"
	"github.com/mightypork/sdscp/internal/sema"
)

// lowerFunctionBody lowers one non-inlined function into its own labeled
// block: the entry label, a prologue that copies __a* into the function's
// own globalized parameter storage (so a further call the body makes can
// safely clobber __a* again), and the lowered body. The return dispatch
// epilogue is appended separately by buildEpilogue once every call site in
// the program has been discovered (spec.md 4.5 L3).
func (lw *Lowerer) lowerFunctionBody(fi *sema.FuncInfo) []ir.Stmt {
	var out []ir.Stmt
	if lw.opts.Comments && fi.Decl.LeadingComment() != "" {
		out = append(out, ir.Comment{Text: fi.Decl.LeadingComment()})
	}
	out = append(out, ir.Label{Name: entryLabel(fi.Decl.Name)})

	fc := lw.newFuncCtx(fi.Decl.Name, dispatcherReturn{callee: fi.Decl.Name})
	for i, p := range fi.Decl.Params {
		name := paramGlobal(fi.Decl.Name, p)
		lw.addGlobal(name, nil)
		lw.addGlobal(argReg(i), nil)
		fc.paramVar[p] = name
		out = append(out, ir.Assign{LHS: ir.VarRef{Name: name}, RHS: ir.VarRef{Name: argReg(i)}})
	}

	out = append(out, lw.lowerBlock(fi.Decl.Body, fc)...)
	return out
}

// buildEpilogue appends, after a non-inlined function's lowered body, the
// computed return dispatch of spec.md 4.5 L3: for a trampolined callee, the
// saved __ret is first popped off the software stack; then control returns
// to whichever call site is named by the current __ret value, as a single
// goto when there is exactly one call site or an if-chain otherwise.
func (lw *Lowerer) buildEpilogue(fi *sema.FuncInfo) []ir.Stmt {
	var out []ir.Stmt

	if lw.isTrampolined(fi) {
		lw.needStack = true
		// Symmetric with the push in lowerTrampolineCall: __sp still
		// points at this frame's slot when the underflow check and the
		// read run, and only advances back past it afterwards. An empty
		// stack sits at stack_end+1, so a pop attempted there is the one
		// case the check must catch.
		if lw.opts.SafeStack && lw.opts.BuiltinErrorLogging {
			out = append(out, ir.IfGoto{
				Cond:  ir.Binary{Op: ">", X: ir.VarRef{Name: regSP}, Y: ir.VarRef{Name: regStackHi}},
				Label: lw.underflowLabel(),
			})
		}
		out = append(out, ir.Assign{LHS: ir.VarRef{Name: regRet}, RHS: ir.IndexRef{Array: "ram", Index: ir.VarRef{Name: regSP}}})
		out = append(out, ir.Assign{LHS: ir.VarRef{Name: regSP}, RHS: ir.Binary{Op: "+", X: ir.VarRef{Name: regSP}, Y: ir.Lit{Value: 1}}})
	}

	labels := lw.callSites[fi.Decl.Name]
	switch len(labels) {
	case 0:
		// Never actually called (dead code after e.g. a constant-folded
		// branch removed its only call site); nothing to dispatch to.
	case 1:
		out = append(out, ir.Goto{Label: labels[0]})
	default:
		for i, lbl := range labels {
			out = append(out, ir.IfGoto{
				Cond:  ir.Binary{Op: "==", X: ir.VarRef{Name: regRet}, Y: ir.Lit{Value: int32(i)}},
				Label: lbl,
			})
		}
	}
	return out
}

// overflowHandlerBlock emits the stack overflow/underflow traps referenced
// by buildEpilogue/lowerTrampolineCall, each a label, an error echo, and a
// spin (spec.md 4.5 L4).
func (lw *Lowerer) overflowHandlerBlock() []ir.Stmt {
	var out []ir.Stmt
	if lw.needOverflow != "" {
		out = append(out,
			ir.Label{Name: lw.needOverflow},
			ir.CallBuiltin{Name: "echo", Args: []ir.Expr{ir.StrLit{Value: "Stack overflow"}}},
			ir.Goto{Label: lw.needOverflow},
		)
	}
	if lw.needUnderflow != "" {
		out = append(out,
			ir.Label{Name: lw.needUnderflow},
			ir.CallBuiltin{Name: "echo", Args: []ir.Expr{ir.StrLit{Value: "Stack underflow"}}},
			ir.Goto{Label: lw.needUnderflow},
		)
	}
	return out
}
