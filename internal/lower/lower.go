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

// Package lower implements spec.md 4.5, the core of the compiler: it
// transforms the typed AST into the flat ir.Program of labels, gotos, and
// simple assignments that the SDS-C EXE runtime understands. Structured
// control flow becomes goto/label pairs (L2), user functions become
// trampoline-style call/return sequences built on a software stack of
// argument registers (L3), and every expression is reduced to at most one
// operation per statement via temporaries (L1). Implemented as one
// recursive tree traversal carrying a lowering context, per the "visitor
// pattern replaces runtime attribute probing" design note (spec.md 9) --
// the teacher's equivalent is exec.go's single walk over the dependency
// graph building ninja/shell commands.
package lower

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/config"
	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/ir"
	"github.com/mightypork/sdscp/internal/sema"
)

// Register bank names, fixed per spec.md 3 "Register model".
const (
	regRVal      = "__rval"
	regSP        = "__sp"
	regStackLo   = "stack_start"
	regStackHi   = "stack_end"
	regRet       = "__ret"
	maxArgs      = 4
)

func argReg(i int) string { return fmt.Sprintf("__a%d", i) }

const loweringClass = diag.Lowering

// Lowerer carries all state shared across the single tree traversal that
// lowers a whole translation unit: the label/temp allocators, the
// resolved pragma configuration, the semantic-pass results, and the
// diagnostic sink.
type Lowerer struct {
	sem    *sema.Result
	opts   config.Options
	sink   *diag.Sink
	labels labelAlloc

	globals       []ir.Global
	globalSet     map[string]bool
	needStack     bool
	needOverflow  string // label name of the stack-overflow handler, lazily created
	needUnderflow string // label name of the stack-underflow handler, lazily created

	// callSites accumulates, per non-inlined callee, the list of unique
	// return labels created at its call sites (in first-use order -- the
	// label's index in this slice doubles as the __ret id compared against
	// in that callee's dispatch epilogue) so the callee can emit the
	// "computed" return dispatch (spec.md 4.5 L3).
	callSites map[string][]string
}

// Lower runs the full lowering pass and returns the flat IR program.
func Lower(file *ast.File, sem *sema.Result, opts config.Options, sink *diag.Sink) *ir.Program {
	lw := &Lowerer{
		sem:       sem,
		opts:      opts,
		sink:      sink,
		globalSet: map[string]bool{},
		callSites: map[string][]string{},
	}
	lw.addGlobal(regRVal, nil)

	var prog ir.Program

	// init() and main() share one synthetic end label: a bare "return" in
	// either one falls straight through to the program's terminal spin
	// rather than entering the __ret dispatch protocol real user functions
	// use, since nothing ever "calls" main or init that way.
	const programEnd = "__program_end"

	// File-scope "var" declarations (spec.md 3 "Global variable") are
	// already ordinary globals, not locals sema needs to rename -- lowerStmt
	// falls back to the declared name when sema recorded no globalized
	// alias for a VarDecl. Any initializer runs before init()/main(), in
	// source order, mirroring C's file-scope initialization order.
	fileVarsFC := lw.newFuncCtx("", inlineReturn{endLabel: programEnd})
	for _, decl := range file.Decls {
		if vd, ok := decl.(*ast.VarDecl); ok {
			prog.Stmts = append(prog.Stmts, lw.lowerStmt(vd, fileVarsFC)...)
		}
	}

	// init() runs once before main; its locals are already globalized by
	// sema, so its body is simply lowered inline ahead of main's.
	if initFn, ok := sem.Funcs["init"]; ok {
		fc := lw.newFuncCtx("init", inlineReturn{endLabel: programEnd})
		prog.Stmts = append(prog.Stmts, lw.lowerBlock(initFn.Decl.Body, fc)...)
	}
	if mainFn, ok := sem.Funcs["main"]; ok {
		fc := lw.newFuncCtx("main", inlineReturn{endLabel: programEnd})
		prog.Stmts = append(prog.Stmts, lw.lowerBlock(mainFn.Decl.Body, fc)...)
	}
	prog.Stmts = append(prog.Stmts, ir.Label{Name: programEnd}, ir.Goto{Label: programEnd})

	// Every non-inlined, non-entry function becomes its own labeled block.
	// Bodies are lowered first (discovering every call site program-wide,
	// including calls from functions processed later in FuncOrder) and only
	// then does each function get its dispatch epilogue appended, so a
	// callee's epilogue never misses a call site recorded by a
	// later-processed caller.
	type fnBlock struct {
		fi    *sema.FuncInfo
		stmts []ir.Stmt
	}
	var blocks []fnBlock
	for _, name := range sem.FuncOrder {
		if name == "main" || name == "init" {
			continue
		}
		fi := sem.Funcs[name]
		if fi.Inlineable {
			continue
		}
		blocks = append(blocks, fnBlock{fi: fi, stmts: lw.lowerFunctionBody(fi)})
	}
	for _, b := range blocks {
		// Every return in the body jumps to the callee's epilogue, which
		// dispatches on __ret back to the caller.
		retLabel := fmt.Sprintf("__fn_%s_return", b.fi.Decl.Name)
		for i, s := range b.stmts {
			if _, ok := s.(ir.ReturnToDispatcher); ok {
				b.stmts[i] = ir.Goto{Label: retLabel}
			}
		}
		prog.Stmts = append(prog.Stmts, b.stmts...)
		prog.Stmts = append(prog.Stmts, ir.Label{Name: retLabel})
		prog.Stmts = append(prog.Stmts, lw.buildEpilogue(b.fi)...)
	}

	if lw.needStack {
		// __sp starts one past the top of the [stack_start, stack_end]
		// window (expr_grouping2.out.c emits "__sp = 512" against the
		// default stack_end of 511) and decrements into the window on
		// every push, so a freshly initialized stack has nothing pushed
		// yet rather than already sitting on the overflow boundary.
		lw.addGlobal(regSP, ir.Lit{Value: int32(opts.StackEnd) + 1})
		lw.addGlobal(regStackLo, ir.Lit{Value: int32(opts.StackStart)})
		lw.addGlobal(regStackHi, ir.Lit{Value: int32(opts.StackEnd)})
	}
	if lw.needOverflow != "" || lw.needUnderflow != "" {
		prog.Stmts = append(prog.Stmts, lw.overflowHandlerBlock()...)
	}

	prog.Globals = lw.globals
	glog.V(1).Infof("lowering produced %d globals, %d statements", len(prog.Globals), len(prog.Stmts))
	return &prog
}

func (lw *Lowerer) addGlobal(name string, init ir.Expr) {
	if lw.globalSet[name] {
		return
	}
	lw.globalSet[name] = true
	lw.globals = append(lw.globals, ir.Global{Name: name, Init: init})
}

func (lw *Lowerer) newID() int { return lw.labels.id() }
