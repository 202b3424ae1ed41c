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

package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/diag"
)

func call(name string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Callee: name, Args: args}
}

func exprStmt(e ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{X: e} }

func block(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

func fn(name string, body *ast.Block, params ...string) *ast.FuncDecl {
	return &ast.FuncDecl{Name: name, Params: params, Body: body}
}

func TestAnalyze_BasicFunctionTable(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(exprStmt(call("helper")))),
		fn("helper", block()),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{}, sink)

	require.False(t, sink.HasErrors())
	assert.True(t, result.HasMain)
	assert.False(t, result.HasInit)
	assert.Len(t, result.Funcs, 2)
	assert.Equal(t, 1, result.Funcs["helper"].UseCount)
	assert.False(t, result.Funcs["helper"].Recursive)
}

func TestAnalyze_MissingMainIsAnError(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("helper", block()),
	}}

	sink := &diag.Sink{}
	Analyze(file, Options{}, sink)

	assert.True(t, sink.HasErrors())
}

func TestAnalyze_DuplicateFunctionIsAnError(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block()),
		fn("helper", block()),
		fn("helper", block()),
	}}

	sink := &diag.Sink{}
	Analyze(file, Options{}, sink)

	assert.True(t, sink.HasErrors())
}

func TestAnalyze_DirectRecursionIsDetected(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(exprStmt(call("fact", &ast.IntLit{Value: 5})))),
		fn("fact", block(exprStmt(call("fact", &ast.IntLit{Value: 1}))), "n"),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{}, sink)

	require.False(t, sink.HasErrors())
	assert.True(t, result.Funcs["fact"].Recursive)
}

func TestAnalyze_MutualRecursionIsDetected(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(exprStmt(call("isEven", &ast.IntLit{Value: 4})))),
		fn("isEven", block(exprStmt(call("isOdd", &ast.IntLit{Value: 3}))), "n"),
		fn("isOdd", block(exprStmt(call("isEven", &ast.IntLit{Value: 2}))), "n"),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{}, sink)

	require.False(t, sink.HasErrors())
	assert.True(t, result.Funcs["isEven"].Recursive)
	assert.True(t, result.Funcs["isOdd"].Recursive)
}

func TestAnalyze_InlineOneUseFunctions(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(
			exprStmt(call("once")),
			exprStmt(call("twice")),
			exprStmt(call("twice")),
		)),
		fn("once", block()),
		fn("twice", block()),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{InlineOneUseFunctions: true}, sink)

	require.False(t, sink.HasErrors())
	assert.True(t, result.Funcs["once"].Inlineable)
	assert.False(t, result.Funcs["twice"].Inlineable)
}

func TestAnalyze_RecursiveFunctionIsNeverInlineable(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(exprStmt(call("fact", &ast.IntLit{Value: 5})))),
		fn("fact", block(exprStmt(call("fact", &ast.IntLit{Value: 1}))), "n"),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{InlineOneUseFunctions: true}, sink)

	require.False(t, sink.HasErrors())
	assert.False(t, result.Funcs["fact"].Inlineable)
}

func TestAnalyze_GlobalNamesAreUniquePerLocal(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(
			&ast.VarDecl{Name: "x"},
			&ast.VarDecl{Name: "y"},
		)),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{}, sink)

	require.False(t, sink.HasErrors())
	mainBody := file.Decls[0].(*ast.FuncDecl).Body
	first := mainBody.Stmts[0].(*ast.VarDecl)
	second := mainBody.Stmts[1].(*ast.VarDecl)
	assert.NotEqual(t, result.GlobalName[first], result.GlobalName[second])
	assert.Contains(t, result.GlobalName[first], "main")
}

func TestAnalyze_KeepNamesPreservesSourceNameVerbatim(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(&ast.VarDecl{Name: "counter"})),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{KeepNames: true}, sink)

	require.False(t, sink.HasErrors())
	vd := file.Decls[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.VarDecl)
	assert.Equal(t, "counter", result.GlobalName[vd])
}

func TestAnalyze_KeepNamesFallsBackOnCollision(t *testing.T) {
	file := &ast.File{Decls: []ast.Stmt{
		fn("main", block(exprStmt(call("helper")), &ast.VarDecl{Name: "n"})),
		fn("helper", block(&ast.VarDecl{Name: "n"})),
	}}

	sink := &diag.Sink{}
	result := Analyze(file, Options{KeepNames: true}, sink)

	require.False(t, sink.HasErrors())
	mainDecl := file.Decls[0].(*ast.FuncDecl).Body.Stmts[1].(*ast.VarDecl)
	helperDecl := file.Decls[1].(*ast.FuncDecl).Body.Stmts[0].(*ast.VarDecl)
	assert.Equal(t, "n", result.GlobalName[mainDecl])
	assert.NotEqual(t, "n", result.GlobalName[helperDecl], "a later declaration of the same source name must not alias the first one's storage")
}
