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

// Package sema implements the semantic pass of spec.md 4.4: it builds the
// function table, rejects duplicate definitions, counts call sites per
// function to find single-use candidates, and runs Tarjan's SCC over the
// call graph to find recursive functions (which can never be inlined).
// Mirrors the teacher's approach of building a symbol table once up front
// (symtab.go) and feeding it to later passes rather than re-deriving it.
package sema

import (
	"fmt"

	"github.com/mightypork/sdscp/internal/ast"
	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// FuncInfo describes one user-defined function after semantic analysis.
type FuncInfo struct {
	Decl       *ast.FuncDecl
	UseCount   int
	Recursive  bool
	Inlineable bool
}

// Result is the output of Analyze: the function table plus a per-VarDecl
// globalized name, since the device has no stack frames and every local
// must become a uniquely named global (spec.md 3 "Global variable").
type Result struct {
	Funcs      map[string]*FuncInfo
	FuncOrder  []string // definition order, for deterministic iteration
	GlobalName map[*ast.VarDecl]string
	HasMain    bool
	HasInit    bool
}

// Options carries the pragma state sema needs (spec.md 6 Pragmas).
type Options struct {
	InlineOneUseFunctions bool
	KeepNames             bool
}

// Analyze runs the full semantic pass over a parsed file.
func Analyze(file *ast.File, opts Options, sink *diag.Sink) *Result {
	r := &Result{
		Funcs:      map[string]*FuncInfo{},
		GlobalName: map[*ast.VarDecl]string{},
	}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if _, dup := r.Funcs[fd.Name]; dup {
			sink.Errorf(diag.Semantic, fd.Origin, "duplicate definition of function %q", fd.Name)
			continue
		}
		r.Funcs[fd.Name] = &FuncInfo{Decl: fd}
		r.FuncOrder = append(r.FuncOrder, fd.Name)
		if fd.Name == "main" {
			r.HasMain = true
		}
		if fd.Name == "init" {
			r.HasInit = true
		}
	}
	if !r.HasMain {
		sink.Errorf(diag.Semantic, firstOrigin(file), "program has no 'main' function")
	}

	assignGlobalNames(file, r, opts)
	graph := buildCallGraph(file, r, sink)
	countUses(file, r)
	markRecursive(graph, r)

	if opts.InlineOneUseFunctions {
		for name, fi := range r.Funcs {
			if name == "main" || name == "init" {
				continue
			}
			fi.Inlineable = fi.UseCount == 1 && !fi.Recursive
		}
	}
	return r
}

func firstOrigin(file *ast.File) token.Origin {
	if len(file.Decls) > 0 {
		return file.Decls[0].Pos()
	}
	return token.Origin{}
}

// assignGlobalNames walks every function body's var-decls (including for-
// loop init decls) and stamps a globalized name per spec.md 4.4, guaranteeing
// two locals never share storage unless a later lowering step proves their
// lifetimes disjoint. Under #pragma keep_names true, a local's source name
// is emitted verbatim as long as no earlier declaration (in any function, or
// a file-scope var) already claimed it; any collision falls back to the
// mangled "__fn<caller>L<ix>_<orig>" form so storage is never aliased.
func assignGlobalNames(file *ast.File, r *Result, opts Options) {
	used := map[string]bool{}
	for _, decl := range file.Decls {
		if vd, ok := decl.(*ast.VarDecl); ok {
			used[vd.Name] = true
		}
	}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		idx := 0
		walkVarDecls(fd.Body, func(vd *ast.VarDecl) {
			name := fmt.Sprintf("__fn%sL%d_%s", fd.Name, idx, vd.Name)
			idx++
			if opts.KeepNames && !used[vd.Name] {
				name = vd.Name
			}
			used[name] = true
			r.GlobalName[vd] = name
		})
	}
}

func walkVarDecls(s ast.Stmt, visit func(*ast.VarDecl)) {
	if s == nil {
		return
	}
	switch v := s.(type) {
	case *ast.VarDecl:
		visit(v)
	case *ast.Block:
		for _, c := range v.Stmts {
			walkVarDecls(c, visit)
		}
	case *ast.IfStmt:
		walkVarDecls(v.Then, visit)
		walkVarDecls(v.Else, visit)
	case *ast.WhileStmt:
		walkVarDecls(v.Body, visit)
	case *ast.DoWhileStmt:
		walkVarDecls(v.Body, visit)
	case *ast.ForStmt:
		walkVarDecls(v.Init, visit)
		walkVarDecls(v.Body, visit)
	case *ast.SwitchStmt:
		for _, c := range v.Cases {
			for _, cs := range c.Body {
				walkVarDecls(cs, visit)
			}
		}
	}
}

// callGraph maps a function name to the set of user-defined function names
// it calls directly, used as the Tarjan input.
type callGraph map[string]map[string]bool

func buildCallGraph(file *ast.File, r *Result, sink *diag.Sink) callGraph {
	g := callGraph{}
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		edges := map[string]bool{}
		walkCalls(fd.Body, func(callee string) {
			if _, isUserFunc := r.Funcs[callee]; isUserFunc {
				edges[callee] = true
			}
		})
		g[fd.Name] = edges
	}
	return g
}

func countUses(file *ast.File, r *Result) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		walkCalls(fd.Body, func(callee string) {
			if fi, ok := r.Funcs[callee]; ok {
				fi.UseCount++
			}
		})
	}
}

func walkCalls(s ast.Stmt, visit func(callee string)) {
	if s == nil {
		return
	}
	switch v := s.(type) {
	case *ast.Block:
		for _, c := range v.Stmts {
			walkCalls(c, visit)
		}
	case *ast.VarDecl:
		walkCallsExpr(v.Init, visit)
	case *ast.AssignStmt:
		walkCallsExpr(v.LHS, visit)
		walkCallsExpr(v.RHS, visit)
	case *ast.IfStmt:
		walkCallsExpr(v.Cond, visit)
		walkCalls(v.Then, visit)
		walkCalls(v.Else, visit)
	case *ast.WhileStmt:
		walkCallsExpr(v.Cond, visit)
		walkCalls(v.Body, visit)
	case *ast.DoWhileStmt:
		walkCalls(v.Body, visit)
		walkCallsExpr(v.Cond, visit)
	case *ast.ForStmt:
		walkCalls(v.Init, visit)
		walkCallsExpr(v.Cond, visit)
		walkCalls(v.Step, visit)
		walkCalls(v.Body, visit)
	case *ast.SwitchStmt:
		walkCallsExpr(v.Expr, visit)
		for _, c := range v.Cases {
			walkCallsExpr(c.Value, visit)
			for _, cs := range c.Body {
				walkCalls(cs, visit)
			}
		}
	case *ast.ReturnStmt:
		walkCallsExpr(v.Value, visit)
	case *ast.ExprStmt:
		walkCallsExpr(v.X, visit)
	}
}

func walkCallsExpr(e ast.Expr, visit func(callee string)) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.CallExpr:
		visit(v.Callee)
		for _, a := range v.Args {
			walkCallsExpr(a, visit)
		}
	case *ast.UnaryExpr:
		walkCallsExpr(v.X, visit)
	case *ast.BinaryExpr:
		walkCallsExpr(v.X, visit)
		walkCallsExpr(v.Y, visit)
	case *ast.IndexExpr:
		walkCallsExpr(v.Index, visit)
	}
}

// markRecursive runs Tarjan's strongly-connected-components algorithm over
// the call graph and flags every function in a nontrivial SCC, plus any
// function with a direct self-loop, as Recursive (spec.md 4.4).
func markRecursive(g callGraph, r *Result) {
	t := &tarjan{graph: g, index: map[string]int{}, low: map[string]int{}, onStack: map[string]bool{}}
	for _, name := range r.FuncOrder {
		if _, seen := t.index[name]; !seen {
			t.strongConnect(name)
		}
	}
	for _, scc := range t.sccs {
		recursive := len(scc) > 1
		if len(scc) == 1 && g[scc[0]][scc[0]] {
			recursive = true
		}
		if recursive {
			for _, name := range scc {
				if fi, ok := r.Funcs[name]; ok {
					fi.Recursive = true
				}
			}
		}
	}
}

type tarjan struct {
	graph   callGraph
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for w := range t.graph[v] {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.low[w] < t.low[v] {
				t.low[v] = t.low[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.low[v] {
				t.low[v] = t.index[w]
			}
		}
	}

	if t.low[v] == t.index[v] {
		var scc []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
