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

// Package preproc implements the SDS-C preprocessor of spec.md 4.2: it owns
// the macro table and include stack, consumes a raw token stream per file,
// and yields a fully expanded stream with no directives and no macro names
// left in it. Modeled, like the teacher's var.go/expr.go expansion engine,
// as a table of named entries (here Macros instead of kati's Vars) that are
// looked up and substituted at use sites, with a context object
// (Preprocessor) instead of hidden globals (spec.md 9).
package preproc

import (
	"path/filepath"

	"github.com/golang/glog"

	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/lexer"
	"github.com/mightypork/sdscp/internal/token"
)

// maxIncludeDepth bounds recursive #include cycles not broken by a guard
// (spec.md 4.2 "Include policy"; default 64 per that section).
const maxIncludeDepth = 64

// FileSystem abstracts reading include sources so Preprocessor has no
// direct OS dependency; the CLI driver supplies the real implementation.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// Pragmas accumulates every #pragma other than "once": renderer in its own
// field, all others (safe_stack, indent, and so on) by name in Extra, which
// internal/config.ApplyPragmas reads.
type Pragmas struct {
	Renderer string // "sds1" (default) or "sds2"
	Extra    map[string]string
}

// Preprocessor holds the macro table, include bookkeeping, and diagnostic
// sink for a single compilation (the "one CompilerContext" design note,
// spec.md 9).
type Preprocessor struct {
	fs         FileSystem
	searchPath []string
	sink       *diag.Sink
	macros     *Table
	Pragmas    Pragmas

	processed  map[string]bool // normalized paths fully processed already
	openStack  []string        // normalized paths currently being processed

	lastOrigin token.Origin
}

// New returns a Preprocessor ready to process a top-level file.
func New(fs FileSystem, searchPath []string, sink *diag.Sink) *Preprocessor {
	return &Preprocessor{
		fs:         fs,
		searchPath: searchPath,
		sink:       sink,
		macros:     NewTable(),
		Pragmas:    Pragmas{Renderer: "sds1", Extra: map[string]string{}},
		processed:  map[string]bool{},
	}
}

// Macros exposes the macro table, e.g. for tests asserting on definitions.
func (p *Preprocessor) Macros() *Table { return p.macros }

// Process expands path and every file it transitively #includes, returning
// one fully expanded token stream with no directives and no macro names.
func (p *Preprocessor) Process(path string) []token.Token {
	return p.processFile(path)
}

type condState struct {
	satisfied bool // some branch in this #if/#elif/#else chain already ran
	taking    bool // the currently active branch is emitting tokens
	sawElse   bool
}

func (p *Preprocessor) processFile(path string) []token.Token {
	norm := normalizePath(path)
	if p.processed[norm] {
		glog.V(1).Infof("skipping already-processed include %s", norm)
		return nil
	}
	for _, open := range p.openStack {
		if open == norm {
			if len(p.openStack) > maxIncludeDepth {
				p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "include cycle detected involving %s (depth > %d)", norm, maxIncludeDepth)
				return nil
			}
			break
		}
	}
	if len(p.openStack) > maxIncludeDepth {
		p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "include depth exceeded %d while opening %s", maxIncludeDepth, norm)
		return nil
	}
	src, err := p.fs.ReadFile(path)
	if err != nil {
		p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "cannot read %s: %v", path, err)
		return nil
	}
	p.openStack = append(p.openStack, norm)
	defer func() { p.openStack = p.openStack[:len(p.openStack)-1] }()

	lx := lexer.New(path, src, p.sink)
	toks := lx.Tokenize()
	segs := splitLines(toks)

	var ifStack []condState
	var out []token.Token
	pragmaOnce := false

	taking := func() bool {
		for _, c := range ifStack {
			if !c.taking {
				return false
			}
		}
		return true
	}

	for _, seg := range segs {
		if len(seg.toks) == 0 {
			continue
		}
		if !seg.isDirective {
			if taking() {
				expanded := p.macros.expandTokens(seg.toks, hideset{}, p.sink)
				out = append(out, expanded...)
			}
			continue
		}
		head := seg.toks[0]
		p.lastOrigin = head.Origin
		rest := seg.toks[1:]
		switch head.Text {
		case "ifdef", "ifndef", "if":
			cond := p.evalCondDirective(head.Text, rest, taking())
			ifStack = append(ifStack, condState{satisfied: cond, taking: taking() && cond})
		case "elif":
			if len(ifStack) == 0 {
				p.sink.Errorf(diag.Preprocessor, head.Origin, "#elif without matching #if")
				continue
			}
			top := &ifStack[len(ifStack)-1]
			parentTaking := true
			if len(ifStack) > 1 {
				for _, c := range ifStack[:len(ifStack)-1] {
					parentTaking = parentTaking && c.taking
				}
			}
			if top.satisfied || !parentTaking {
				top.taking = false
			} else {
				cond := p.condEval(rest) != 0
				top.taking = cond
				top.satisfied = cond
			}
		case "else":
			if len(ifStack) == 0 {
				p.sink.Errorf(diag.Preprocessor, head.Origin, "#else without matching #if")
				continue
			}
			top := &ifStack[len(ifStack)-1]
			if top.sawElse {
				p.sink.Errorf(diag.Preprocessor, head.Origin, "duplicate #else")
				continue
			}
			top.sawElse = true
			parentTaking := true
			if len(ifStack) > 1 {
				for _, c := range ifStack[:len(ifStack)-1] {
					parentTaking = parentTaking && c.taking
				}
			}
			top.taking = parentTaking && !top.satisfied
			top.satisfied = true
		case "endif":
			if len(ifStack) == 0 {
				p.sink.Errorf(diag.Preprocessor, head.Origin, "#endif without matching #if")
				continue
			}
			ifStack = ifStack[:len(ifStack)-1]
		case "define":
			if taking() {
				if m := p.parseDefine(rest); m != nil {
					p.macros.Define(m)
				}
			}
		case "undef":
			if taking() && len(rest) > 0 {
				p.macros.Undef(rest[0].Text)
			}
		case "include":
			if taking() {
				out = append(out, p.processIncludePath(path, rest)...)
			}
		case "pragma":
			if taking() {
				if handlePragmaOnce(rest) {
					pragmaOnce = true
				} else {
					p.recordPragma(rest)
				}
			}
		case "error":
			if taking() {
				p.sink.Errorf(diag.Preprocessor, head.Origin, "#error %s", joinText(rest))
				return out
			}
		default:
			p.sink.Warnf(diag.Preprocessor, head.Origin, "unknown directive #%s ignored", head.Text)
		}
	}
	if len(ifStack) > 0 {
		p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "missing #endif for %d open conditional(s) in %s", len(ifStack), path)
	}
	p.processed[norm] = true
	_ = pragmaOnce
	return out
}

func (p *Preprocessor) evalCondDirective(kind string, rest []token.Token, parentTaking bool) bool {
	if !parentTaking {
		return false
	}
	switch kind {
	case "ifdef":
		if len(rest) == 0 {
			return false
		}
		return p.macros.IsDefined(rest[0].Text)
	case "ifndef":
		if len(rest) == 0 {
			return true
		}
		return !p.macros.IsDefined(rest[0].Text)
	default: // "if"
		return p.condEval(rest) != 0
	}
}

func handlePragmaOnce(rest []token.Token) bool {
	return len(rest) > 0 && rest[0].Kind == token.Ident && rest[0].Text == "once"
}

func (p *Preprocessor) recordPragma(rest []token.Token) {
	if len(rest) == 0 {
		return
	}
	name := rest[0].Text
	value := joinText(rest[1:])
	if name == "renderer" {
		p.Pragmas.Renderer = value
		return
	}
	switch name {
	case "inline_one_use_functions", "push_pop_trampolines", "safe_stack",
		"stack_start", "stack_end", "comments", "header", "indent",
		"keep_names", "simplify_ifs", "builtin_logging",
		"builtin_error_logging", "fullspeed":
	default:
		p.sink.Warnf(diag.Preprocessor, p.lastOrigin, "unknown #pragma %s ignored", name)
	}
	p.Pragmas.Extra[name] = value
}

func joinText(toks []token.Token) string {
	s := ""
	for i, t := range toks {
		if i > 0 {
			s += " "
		}
		s += t.String()
	}
	return s
}

func (p *Preprocessor) processIncludePath(fromFile string, rest []token.Token) []token.Token {
	if len(rest) == 0 || rest[0].Kind != token.String {
		p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "#include expects a \"path\"")
		return nil
	}
	inc := rest[0].Text
	resolved := p.resolveInclude(fromFile, inc)
	if resolved == "" {
		p.sink.Errorf(diag.Preprocessor, p.lastOrigin, "cannot find include file %q", inc)
		return nil
	}
	return p.processFile(resolved)
}

func (p *Preprocessor) resolveInclude(fromFile, inc string) string {
	candidate := filepath.Join(filepath.Dir(fromFile), inc)
	if p.exists(candidate) {
		return candidate
	}
	for _, dir := range p.searchPath {
		candidate = filepath.Join(dir, inc)
		if p.exists(candidate) {
			return candidate
		}
	}
	return ""
}

func (p *Preprocessor) exists(path string) bool {
	_, err := p.fs.ReadFile(path)
	return err == nil
}

func normalizePath(path string) string {
	return filepath.Clean(path)
}

// segment is one directive line, or one run of consecutive non-directive
// code merged across line breaks so macro/call-argument scanning can see
// constructs that span multiple physical lines.
type segment struct {
	isDirective bool
	toks        []token.Token
}

// splitLines groups a flat token stream into segments: each line whose
// first token is a Directive becomes its own directive segment running to
// the next Newline; every other line is merged into the current code
// segment, with Newline/EOF markers dropped.
func splitLines(toks []token.Token) []segment {
	var segs []segment
	var code []token.Token
	flushCode := func() {
		if len(code) > 0 {
			segs = append(segs, segment{toks: code})
			code = nil
		}
	}

	lineStart := true
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind == token.Newline {
			i++
			lineStart = true
			continue
		}
		if t.Kind == token.EOF {
			break
		}
		if lineStart && t.Kind == token.Directive {
			flushCode()
			var line []token.Token
			for i < len(toks) && toks[i].Kind != token.Newline && toks[i].Kind != token.EOF {
				line = append(line, toks[i])
				i++
			}
			segs = append(segs, segment{isDirective: true, toks: line})
			lineStart = true
			continue
		}
		code = append(code, t)
		i++
		lineStart = false
	}
	flushCode()
	return segs
}
