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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/config"
	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/ir"
	"github.com/mightypork/sdscp/internal/sema"
)

func globalNames(prog *ir.Program) []string {
	var out []string
	for _, g := range prog.Globals {
		out = append(out, g.Name)
	}
	return out
}

func labelNames(prog *ir.Program) []string {
	var out []string
	for _, s := range prog.Stmts {
		if l, ok := s.(ir.Label); ok {
			out = append(out, l.Name)
		}
	}
	return out
}

func TestLower_MainCallingAHelperUsesDirectCallConvention(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: "helper", Args: []ast.Expr{&ast.IntLit{Value: 1}}}},
		}}},
		&ast.FuncDecl{Name: "helper", Params: []string{"n"}, Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{},
		}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())

	prog := Lower(file, sem, config.Defaults(), sink)
	require.False(t, sink.HasErrors())

	assert.Contains(t, globalNames(prog), "__a0")
	assert.Contains(t, globalNames(prog), regRet)
	assert.Contains(t, labelNames(prog), entryLabel("helper"))
	assert.NotContains(t, globalNames(prog), regSP, "a non-recursive, below-threshold call must not engage the software stack")
}

func TestLower_RecursiveFunctionAlwaysUsesTheSoftwareStack(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: "fact", Args: []ast.Expr{&ast.IntLit{Value: 5}}}},
		}}},
		&ast.FuncDecl{Name: "fact", Params: []string{"n"}, Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.CallExpr{Callee: "fact", Args: []ast.Expr{&ast.Ident{Name: "n"}}}},
		}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())
	require.True(t, sem.Funcs["fact"].Recursive)

	opts := config.Defaults()
	opts.SafeStack = true
	prog := Lower(file, sem, opts, sink)
	require.False(t, sink.HasErrors())

	assert.Contains(t, globalNames(prog), regSP)
	assert.Contains(t, globalNames(prog), regStackLo)
	assert.Contains(t, globalNames(prog), regStackHi)
	assert.Contains(t, labelNames(prog), "__stack_overflow")
}

// pushSequence locates the decrement/overflow-check/write triple that
// lowerTrampolineCall emits at a recursive call site, identified by the
// IfGoto that targets the overflow label (call.go's push order: decrement,
// check, write).
func pushSequence(prog *ir.Program) (decr ir.Assign, check ir.IfGoto, write ir.Assign, ok bool) {
	for i, s := range prog.Stmts {
		ig, isIfGoto := s.(ir.IfGoto)
		if !isIfGoto || ig.Label != "__stack_overflow" {
			continue
		}
		if i == 0 || i+1 >= len(prog.Stmts) {
			continue
		}
		d, dok := prog.Stmts[i-1].(ir.Assign)
		w, wok := prog.Stmts[i+1].(ir.Assign)
		if dok && wok {
			return d, ig, w, true
		}
	}
	return ir.Assign{}, ir.IfGoto{}, ir.Assign{}, false
}

// evalInt evaluates the tiny subset of ir.Expr the stack bookkeeping
// statements use, against a flat register environment.
func evalInt(e ir.Expr, env map[string]int32) int32 {
	switch v := e.(type) {
	case ir.Lit:
		return v.Value
	case ir.VarRef:
		return env[v.Name]
	case ir.Binary:
		x, y := evalInt(v.X, env), evalInt(v.Y, env)
		switch v.Op {
		case "-":
			return x - y
		case "+":
			return x + y
		}
	}
	panic("unsupported expr in test")
}

func evalCond(e ir.Expr, env map[string]int32) bool {
	b := e.(ir.Binary)
	x, y := evalInt(b.X, env), evalInt(b.Y, env)
	switch b.Op {
	case "<=":
		return x <= y
	case ">":
		return x > y
	}
	panic("unsupported condition in test")
}

// TestLower_StackWindowSurvivesMoreCallsThanTheWindowSize drives the actual
// emitted push sequence of a recursive, safe-stacked function well past
// stack_end-stack_start iterations and checks the overflow branch only
// trips once that many pushes have happened, not on the very first one.
func TestLower_StackWindowSurvivesMoreCallsThanTheWindowSize(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: "sum", Args: []ast.Expr{&ast.IntLit{Value: 100}}}},
		}}},
		&ast.FuncDecl{Name: "sum", Params: []string{"n"}, Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.CallExpr{Callee: "sum", Args: []ast.Expr{&ast.Ident{Name: "n"}}}},
		}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())
	require.True(t, sem.Funcs["sum"].Recursive)

	opts := config.Defaults()
	opts.SafeStack = true
	opts.StackStart = 100
	opts.StackEnd = 200
	window := opts.StackEnd - opts.StackStart // 100, per spec.md's own S5 numbers

	prog := Lower(file, sem, opts, sink)
	require.False(t, sink.HasErrors())

	decr, check, _, ok := pushSequence(prog)
	require.True(t, ok, "expected a decrement/overflow-check/write push sequence in the lowered program")

	env := map[string]int32{}
	for _, g := range prog.Globals {
		if g.Init != nil {
			env[g.Name] = evalInt(g.Init, env)
		}
	}
	require.Equal(t, int32(opts.StackEnd+1), env[regSP], "the stack starts one past stack_end, with nothing pushed yet")

	overflowAt := -1
	for i := 1; i <= window+20; i++ {
		env[regSP] = evalInt(decr.RHS, env)
		if evalCond(check.Cond, env) {
			overflowAt = i
			break
		}
	}

	require.NotEqual(t, 1, overflowAt, "overflow must not fire on the very first push")
	assert.Equal(t, window+1, overflowAt, "exactly stack_end-stack_start pushes must succeed before the (window+1)th one overflows")
}

func TestLower_InlineOneUseFunctionLeavesNoEntryLabel(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: "once", Args: []ast.Expr{&ast.IntLit{Value: 1}}}},
		}}},
		&ast.FuncDecl{Name: "once", Params: []string{"n"}, Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.Ident{Name: "n"}},
		}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{InlineOneUseFunctions: true}, sink)
	require.False(t, sink.HasErrors())
	require.True(t, sem.Funcs["once"].Inlineable)

	prog := Lower(file, sem, config.Defaults(), sink)
	require.False(t, sink.HasErrors())

	assert.NotContains(t, labelNames(prog), entryLabel("once"))
}

func TestLower_IfStmtFlattensToIfGotoAndLabel(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.VarDecl{Name: "x", Init: &ast.IntLit{Value: 0}},
			&ast.IfStmt{
				Cond: &ast.BinaryExpr{Op: "==", X: &ast.Ident{Name: "x"}, Y: &ast.IntLit{Value: 0}},
				Then: &ast.Block{Stmts: []ast.Stmt{
					&ast.AssignStmt{LHS: &ast.Ident{Name: "x"}, Op: ast.Assign, RHS: &ast.IntLit{Value: 1}},
				}},
			},
		}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())

	prog := Lower(file, sem, config.Defaults(), sink)
	require.False(t, sink.HasErrors())

	var sawIfGoto bool
	for _, s := range prog.Stmts {
		if _, ok := s.(ir.IfGoto); ok {
			sawIfGoto = true
		}
	}
	assert.True(t, sawIfGoto)
}

func TestLower_FileScopeVarDeclBecomesAnInitializedGlobal(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		&ast.VarDecl{Name: "counter", Init: &ast.IntLit{Value: 7}},
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: "echo", Args: []ast.Expr{&ast.Ident{Name: "counter"}}}},
		}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())

	prog := Lower(file, sem, config.Defaults(), sink)
	require.False(t, sink.HasErrors())

	assert.Contains(t, globalNames(prog), "counter")
	var sawInit bool
	for _, s := range prog.Stmts {
		if a, ok := s.(ir.Assign); ok {
			if ref, ok := a.LHS.(ir.VarRef); ok && ref.Name == "counter" {
				if lit, ok := a.RHS.(ir.Lit); ok && lit.Value == 7 {
					sawInit = true
				}
			}
		}
	}
	assert.True(t, sawInit, "counter's initializer must be emitted as an assignment ahead of main")
}

func TestLower_LeadingCommentOnStatementAndFunctionSurvivesUnderCommentsPragma(t *testing.T) {
	helperDecl := &ast.FuncDecl{Name: "helper", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ReturnStmt{},
	}}}
	helperDecl.SetComment("describes helper")

	echoStmt := &ast.ExprStmt{X: &ast.CallExpr{Callee: "helper", Args: nil}}
	echoStmt.SetComment("say hi")

	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
			echoStmt,
		}}},
		helperDecl,
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())

	opts := config.Defaults()
	opts.Comments = true
	prog := Lower(file, sem, opts, sink)
	require.False(t, sink.HasErrors())

	var texts []string
	for _, s := range prog.Stmts {
		if c, ok := s.(ir.Comment); ok {
			texts = append(texts, c.Text)
		}
	}
	assert.Contains(t, texts, "say hi")
	assert.Contains(t, texts, "describes helper")
}

func TestLower_CommentsSuppressedWhenPragmaOff(t *testing.T) {
	echoStmt := &ast.ExprStmt{X: &ast.CallExpr{Callee: "echo", Args: []ast.Expr{&ast.IntLit{Value: 1}}}}
	echoStmt.SetComment("say hi")

	file := &ast.File{Decls: []ast.Stmt{
		&ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{echoStmt}}},
	}}

	sink := &diag.Sink{}
	sem := sema.Analyze(file, sema.Options{}, sink)
	require.False(t, sink.HasErrors())

	opts := config.Defaults()
	opts.Comments = false
	prog := Lower(file, sem, opts, sink)
	require.False(t, sink.HasErrors())

	for _, s := range prog.Stmts {
		_, ok := s.(ir.Comment)
		assert.False(t, ok, "no ir.Comment should be emitted when the comments pragma is off")
	}
}
