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

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mightypork/sdscp/internal/config"
	"github.com/mightypork/sdscp/internal/ir"
)

func sampleProgram() *ir.Program {
	return &ir.Program{
		Globals: []ir.Global{
			{Name: "__sp", Init: ir.Lit{Value: 511}},
			{Name: "x"},
		},
		Stmts: []ir.Stmt{
			ir.Label{Name: "__fn_helper_entry"},
			ir.IfGoto{Cond: ir.Binary{Op: "==", X: ir.VarRef{Name: "x"}, Y: ir.Lit{Value: 0}}, Label: "__done"},
			ir.Assign{LHS: ir.VarRef{Name: "x"}, RHS: ir.Unary{Op: "!", X: ir.VarRef{Name: "x"}}},
			ir.CallBuiltin{Name: "echo", Args: []ir.Expr{ir.StrLit{Value: "hi"}}},
			ir.Goto{Label: "__fn_helper_entry"},
			ir.Label{Name: "__done"},
		},
	}
}

func TestRender_SDS1Spelling(t *testing.T) {
	out := Render(sampleProgram(), config.Options{Renderer: "sds1", Indent: "  "})

	assert.Contains(t, out, "var __sp;")
	assert.Contains(t, out, "var x;")
	assert.Contains(t, out, "__sp = 511;")
	assert.Contains(t, out, "label __fn_helper_entry:")
	assert.Contains(t, out, "if (x == 0) goto __done;")
	assert.Contains(t, out, "x = (! x);")
	assert.Contains(t, out, "echo('hi');")
	assert.True(t, strings.HasPrefix(out, "var __sp;\nvar x;\n\nmain\n{\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestRender_SDS2DropsLabelKeywordAndTightensIf(t *testing.T) {
	out := Render(sampleProgram(), config.Options{Renderer: "sds2", Indent: "  "})

	assert.Contains(t, out, "__fn_helper_entry:")
	assert.NotContains(t, out, "label __fn_helper_entry:")
	assert.Contains(t, out, "if(x == 0) goto __done;")
}

func TestRender_HeaderPragma(t *testing.T) {
	withHeader := Render(sampleProgram(), config.Options{Renderer: "sds1", Header: true})
	withoutHeader := Render(sampleProgram(), config.Options{Renderer: "sds1", Header: false})

	assert.True(t, strings.HasPrefix(withHeader, "// Generated by SDSCP"))
	assert.False(t, strings.HasPrefix(withoutHeader, "// Generated by SDSCP"))
}

func TestRender_CommentsGatedByPragma(t *testing.T) {
	prog := &ir.Program{Stmts: []ir.Stmt{ir.Comment{Text: "note"}}}

	withComments := Render(prog, config.Options{Renderer: "sds1", Comments: true})
	withoutComments := Render(prog, config.Options{Renderer: "sds1", Comments: false})

	assert.Contains(t, withComments, "// note")
	assert.NotContains(t, withoutComments, "note")
}

func TestRender_GroupedBinaryKeepsParens(t *testing.T) {
	prog := &ir.Program{Stmts: []ir.Stmt{
		ir.Assign{
			LHS: ir.VarRef{Name: "x"},
			RHS: ir.Binary{Op: "+", Grouped: true, X: ir.Lit{Value: 1}, Y: ir.Lit{Value: 2}},
		},
	}}
	out := Render(prog, config.Options{Renderer: "sds1", Indent: "  "})
	assert.Contains(t, out, "x = (1 + 2);")
}
