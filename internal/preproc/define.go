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

package preproc

import (
	"strings"

	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// parseDefine consumes the tokens of a "#define NAME ... " logical line
// (directive token already consumed) and returns the resulting Macro.
//
// Shape recognition follows spec.md 4.2: function-like requires "(" with no
// intervening whitespace after the name, array-like requires "[" the same
// way. Since whitespace is not preserved as a token, adjacency is checked
// via column arithmetic on the raw origins instead.
func (p *Preprocessor) parseDefine(toks []token.Token) *Macro {
	if len(toks) == 0 {
		p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "#define with no name")
		return nil
	}
	nameTok := toks[0]
	if nameTok.Kind != token.Ident {
		p.sink.Errorf(diag.Preprocessor, nameTok.Origin, "#define name must be an identifier, got %q", nameTok.Text)
		return nil
	}
	m := &Macro{Name: nameTok.Text, Origin: nameTok.Origin, VariadicIndex: -1}
	rest := toks[1:]

	adjacent := len(rest) > 0 && rest[0].Origin.Line == nameTok.Origin.Line &&
		rest[0].Origin.Col == nameTok.Origin.Col+len(nameTok.Text)

	switch {
	case adjacent && len(rest) > 0 && rest[0].Is("("):
		m.Shape = FunctionLike
		params, body, ok := splitParamList(rest, "(", ")")
		if !ok {
			p.sink.Errorf(diag.Macro, nameTok.Origin, "unterminated parameter list in #define %s", m.Name)
			return nil
		}
		if err := assignParams(m, params); err != nil {
			p.sink.Errorf(diag.Macro, nameTok.Origin, "%s", err.Error())
			return nil
		}
		m.Body = trimLeadingSpace(body)
	case adjacent && len(rest) > 0 && rest[0].Is("["):
		m.Shape = ArrayLike
		params, body, ok := splitParamList(rest, "[", "]")
		if !ok {
			p.sink.Errorf(diag.Macro, nameTok.Origin, "unterminated index parameter in #define %s", m.Name)
			return nil
		}
		if len(params) != 1 || len(params[0]) != 1 || params[0][0].Kind != token.Ident {
			p.sink.Errorf(diag.Macro, nameTok.Origin, "array-like #define %s must take exactly one identifier index parameter", m.Name)
			return nil
		}
		m.Params = []string{params[0][0].Text}
		m.Body = trimLeadingSpace(body)
	default:
		m.Shape = ObjectLike
		m.Body = trimLeadingSpace(rest)
	}
	return m
}

func trimLeadingSpace(toks []token.Token) []token.Token {
	return toks
}

// splitParamList expects toks[0] == open and scans to the matching close at
// nesting depth 0, returning the comma-separated parameter token groups and
// the remaining tokens after the close bracket as the replacement list.
func splitParamList(toks []token.Token, open, close string) ([][]token.Token, []token.Token, bool) {
	depth := 0
	var params [][]token.Token
	var cur []token.Token
	i := 0
	for ; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is(open):
			depth++
			if depth == 1 {
				continue
			}
		case t.Is(close):
			depth--
			if depth == 0 {
				params = append(params, cur)
				return params, toks[i+1:], true
			}
		case t.Is(",") && depth == 1:
			params = append(params, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, nil, false
}

// assignParams fills m.Params/Variadic/VariadicIndex from the raw
// parameter token groups, detecting a trailing "..." on a parameter name as
// the variadic marker (spec.md 3: "NAME...").
func assignParams(m *Macro, raw [][]token.Token) error {
	if len(raw) == 1 && len(raw[0]) == 0 {
		return nil // f() with no parameters
	}
	for i, grp := range raw {
		if len(grp) == 0 {
			continue
		}
		name := grp[0].Text
		variadic := false
		if len(grp) >= 2 && grp[len(grp)-1].Is("...") {
			variadic = true
		} else if strings.HasSuffix(name, "...") {
			name = strings.TrimSuffix(name, "...")
			variadic = true
		}
		if variadic {
			if m.Variadic {
				return duplicateVariadicErr(m.Name)
			}
			m.Variadic = true
			m.VariadicIndex = i
		}
		m.Params = append(m.Params, name)
	}
	return nil
}

type dupVariadicError string

func (e dupVariadicError) Error() string { return string(e) }

func duplicateVariadicErr(name string) error {
	return dupVariadicError("macro " + name + " declares more than one variadic parameter")
}
