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
	"github.com/golang/glog"

	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// hideset tracks macro names currently being expanded on the active
// expansion path, enforcing "a macro may not re-expand itself in its own
// expansion" (spec.md 3). Expansion recurses through expandUse, and this
// set is the only bound on that recursion's depth.
type hideset map[string]bool

func (h hideset) with(name string) hideset {
	n := make(hideset, len(h)+1)
	for k := range h {
		n[k] = true
	}
	n[name] = true
	return n
}

// expandTokens rescans toks left to right, expanding every macro use it
// finds that is not in hide, and returns the fully expanded token list.
func (t *Table) expandTokens(toks []token.Token, hide hideset, sink *diag.Sink) []token.Token {
	var out []token.Token
	for i := 0; i < len(toks); {
		tok := toks[i]
		if tok.Kind != token.Ident {
			out = append(out, tok)
			i++
			continue
		}
		if hide[tok.Text] {
			out = append(out, tok)
			i++
			continue
		}
		// Array-like use: NAME[expr]
		if i+1 < len(toks) && toks[i+1].Is("[") {
			if m := t.ResolveArray(tok.Text); m != nil {
				idx, next, ok := sliceBracket(toks, i+1)
				if ok {
					expanded := t.expandUse(m, [][]token.Token{idx}, tok.Origin, hide, sink)
					out = append(out, expanded...)
					i = next
					continue
				}
			}
		}
		// Function-like use: NAME(args)
		if i+1 < len(toks) && toks[i+1].Is("(") {
			args, next, ok := splitCallArgs(toks, i+1)
			if ok {
				if m := t.ResolveCall(tok.Text, len(args)); m != nil {
					expanded := t.expandUse(m, args, tok.Origin, hide, sink)
					out = append(out, expanded...)
					i = next
					continue
				}
				if len(t.Lookup(tok.Text)) > 0 {
					sink.Warnf(diag.Macro, tok.Origin, "no overload of macro %q matches %d argument(s); left unexpanded", tok.Text, len(args))
				}
			}
		}
		// Object-like use: bare NAME.
		if m := t.ResolveObject(tok.Text); m != nil {
			expanded := t.expandUse(m, nil, tok.Origin, hide, sink)
			out = append(out, expanded...)
			i++
			continue
		}
		out = append(out, tok)
		i++
	}
	return out
}

// expandUse binds args to m's parameters, substitutes into the body, and
// rescans the result with m.Name added to the hideset.
func (t *Table) expandUse(m *Macro, args [][]token.Token, use token.Origin, hide hideset, sink *diag.Sink) []token.Token {
	glog.V(2).Infof("%s: expanding %s %s (%d args)", use, m.Shape, m.Name, len(args))
	bindings := bindArgs(m, args, use, sink)
	substituted := substituteBody(m.Body, bindings, use)
	return t.expandTokens(substituted, hide.with(m.Name), sink)
}

// bindArgs maps each parameter name to its argument token slice, honoring
// the greedy "trailing parameters fed from the end" rule for a variadic
// parameter placed anywhere but last (spec.md 3 "Macro").
func bindArgs(m *Macro, args [][]token.Token, use token.Origin, sink *diag.Sink) map[string][]token.Token {
	bindings := make(map[string][]token.Token)
	if m.Shape == ArrayLike {
		if len(args) == 1 {
			bindings[m.Params[0]] = args[0]
		}
		return bindings
	}
	if !m.Variadic {
		for i, p := range m.Params {
			if i < len(args) {
				bindings[p] = args[i]
			}
		}
		return bindings
	}
	before := m.VariadicIndex
	after := len(m.Params) - m.VariadicIndex - 1
	if len(args) < before+after {
		sink.Errorf(diag.Macro, use, "macro %s expects at least %d argument(s), got %d", m.Name, before+after, len(args))
		return bindings
	}
	for i := 0; i < before; i++ {
		bindings[m.Params[i]] = args[i]
	}
	for i := 0; i < after; i++ {
		bindings[m.Params[m.VariadicIndex+1+i]] = args[len(args)-after+i]
	}
	variadicArgs := args[before : len(args)-after]
	var flat []token.Token
	for i, a := range variadicArgs {
		if i > 0 {
			flat = append(flat, token.Token{Kind: token.Punct, Text: ",", Origin: use})
		}
		flat = append(flat, a...)
	}
	bindings[m.Params[m.VariadicIndex]] = flat
	return bindings
}

// substituteBody replaces parameter identifiers in body with their bound
// argument tokens (unexpanded -- expansion happens in the caller's rescan),
// and implements the "##param" empty-variadic comma elision rule: when
// "## name" appears right after a comma and name's binding is empty, both
// the preceding comma and the "##name" marker are dropped from the output.
func substituteBody(body []token.Token, bindings map[string][]token.Token, use token.Origin) []token.Token {
	var out []token.Token
	for i := 0; i < len(body); i++ {
		t := body[i]
		if t.Is("##") && i+1 < len(body) && body[i+1].Kind == token.Ident {
			name := body[i+1].Text
			if bound, isParam := bindings[name]; isParam {
				if len(bound) == 0 {
					if n := len(out); n > 0 && out[n-1].Is(",") {
						out = out[:n-1]
					}
					i++
					continue
				}
				out = append(out, stampAll(bound, use)...)
				i++
				continue
			}
		}
		if t.Kind == token.Ident {
			if bound, isParam := bindings[t.Text]; isParam {
				out = append(out, stampAll(bound, use)...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func stampAll(toks []token.Token, use token.Origin) []token.Token {
	out := make([]token.Token, len(toks))
	for i, t := range toks {
		out[i] = t.ExpandedAt(use)
	}
	return out
}

// sliceBracket expects toks[open] == "[" and returns the token slice inside
// the matching "]", plus the index just past it.
func sliceBracket(toks []token.Token, open int) ([]token.Token, int, bool) {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].Is("["):
			depth++
		case toks[i].Is("]"):
			depth--
			if depth == 0 {
				return toks[open+1 : i], i + 1, true
			}
		}
	}
	return nil, 0, false
}

// splitCallArgs expects toks[open] == "(" and splits the tokens up to the
// matching ")" into top-level comma-separated argument groups, nesting
// through (), [], {} and treating string/char literals as opaque so commas
// inside them never split an argument.
func splitCallArgs(toks []token.Token, open int) ([][]token.Token, int, bool) {
	depth := 0
	var args [][]token.Token
	var cur []token.Token
	started := false
	for i := open; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			depth++
			if depth == 1 {
				started = true
				continue
			}
		case t.Is(")") || t.Is("]") || t.Is("}"):
			depth--
			if depth == 0 {
				if started && !(len(cur) == 0 && len(args) == 0) {
					args = append(args, cur)
				} else if !started {
					// empty call: f()
				}
				return args, i + 1, true
			}
		case t.Is(",") && depth == 1:
			args = append(args, cur)
			cur = nil
			continue
		}
		if depth >= 1 {
			cur = append(cur, t)
		}
	}
	return nil, 0, false
}
