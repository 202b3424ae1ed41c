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

// Package config resolves the layered configuration of spec.md 6
// "Pragmas": CLI flags layered over #pragma directives collected from the
// source by internal/preproc, with CLI flags winning ties -- the same
// layering the teacher's cmdline.go gives command-line flags over
// Makefile-embedded directives.
package config

import "strconv"

// Options is the fully resolved configuration a single compilation runs
// under.
type Options struct {
	Renderer string // "sds1" or "sds2"

	InlineOneUseFunctions bool
	PushPopTrampolines    bool
	SafeStack             bool
	StackStart            int
	StackEnd              int
	Comments              bool
	Header                bool
	KeepNames             bool
	SimplifyIfs           bool
	BuiltinLogging        bool
	BuiltinErrorLogging   bool
	Fullspeed             bool
	Indent                string
}

// Defaults returns the pragma defaults of spec.md 6.
func Defaults() Options {
	return Options{
		Renderer:    "sds1",
		SafeStack:   true,
		StackStart:  300,
		StackEnd:    511,
		SimplifyIfs: false,
		Indent:      "  ",
	}
}

// ApplyPragmas overlays the #pragma values collected by the preprocessor
// (already split into Renderer and a free-form Extra map by
// internal/preproc) onto o, returning the merged result. Unknown pragma
// names are skipped here; internal/preproc warns about them when it records
// them. config only recognizes the documented set.
func ApplyPragmas(o Options, renderer string, extra map[string]string) Options {
	if renderer != "" {
		o.Renderer = renderer
	}
	for name, value := range extra {
		switch name {
		case "inline_one_use_functions":
			o.InlineOneUseFunctions = parseBool(value, o.InlineOneUseFunctions)
		case "push_pop_trampolines":
			o.PushPopTrampolines = parseBool(value, o.PushPopTrampolines)
		case "safe_stack":
			o.SafeStack = parseBool(value, o.SafeStack)
		case "stack_start":
			o.StackStart = parseInt(value, o.StackStart)
		case "stack_end":
			o.StackEnd = parseInt(value, o.StackEnd)
		case "comments":
			o.Comments = parseBool(value, o.Comments)
		case "header":
			o.Header = parseBool(value, o.Header)
		case "indent":
			o.Indent = value
		case "keep_names":
			o.KeepNames = parseBool(value, o.KeepNames)
		case "simplify_ifs":
			o.SimplifyIfs = parseBool(value, o.SimplifyIfs)
		case "builtin_logging":
			o.BuiltinLogging = parseBool(value, o.BuiltinLogging)
		case "builtin_error_logging":
			o.BuiltinErrorLogging = parseBool(value, o.BuiltinErrorLogging)
		case "fullspeed":
			o.Fullspeed = parseBool(value, o.Fullspeed)
		}
	}
	return o
}

func parseBool(s string, def bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func parseInt(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// CLIOverrides holds flags set explicitly on the command line, which win
// over pragmas regardless of order (spec.md 6). A nil pointer field means
// "not set on the CLI".
type CLIOverrides struct {
	Renderer              *string
	InlineOneUseFunctions *bool
	PushPopTrampolines    *bool
	SafeStack             *bool
	StackStart            *int
	StackEnd              *int
	Comments              *bool
	Header                *bool
	KeepNames             *bool
	SimplifyIfs           *bool
	Indent                *string
}

// ApplyCLI overlays explicit CLI overrides on top of the pragma-resolved
// options.
func ApplyCLI(o Options, cli CLIOverrides) Options {
	if cli.Renderer != nil {
		o.Renderer = *cli.Renderer
	}
	if cli.InlineOneUseFunctions != nil {
		o.InlineOneUseFunctions = *cli.InlineOneUseFunctions
	}
	if cli.PushPopTrampolines != nil {
		o.PushPopTrampolines = *cli.PushPopTrampolines
	}
	if cli.SafeStack != nil {
		o.SafeStack = *cli.SafeStack
	}
	if cli.StackStart != nil {
		o.StackStart = *cli.StackStart
	}
	if cli.StackEnd != nil {
		o.StackEnd = *cli.StackEnd
	}
	if cli.Comments != nil {
		o.Comments = *cli.Comments
	}
	if cli.Header != nil {
		o.Header = *cli.Header
	}
	if cli.KeepNames != nil {
		o.KeepNames = *cli.KeepNames
	}
	if cli.SimplifyIfs != nil {
		o.SimplifyIfs = *cli.SimplifyIfs
	}
	if cli.Indent != nil {
		o.Indent = *cli.Indent
	}
	return o
}

// TrampolineThreshold returns the argument count above which a call site
// routes through a shared push/pop trampoline (spec.md 4.5 L3): 4 by
// default, tightened to 2 when safe_stack is also enabled, since the added
// bookkeeping of a bounds-checked software stack makes the trampoline
// worthwhile at a lower arity.
func (o Options) TrampolineThreshold() int {
	if o.SafeStack {
		return 2
	}
	return 4
}
