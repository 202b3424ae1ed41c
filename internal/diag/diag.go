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

// Package diag implements the SDSCP diagnostic taxonomy and sink: every
// pass reports errors and warnings through a *Sink rather than returning
// bare strings, so the driver can collect multiple diagnostics per run and
// map them to the documented process exit codes.
package diag

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/mightypork/sdscp/internal/token"
)

// Class names the taxonomy a Diagnostic belongs to.
type Class string

const (
	Lexical      Class = "lexical error"
	Preprocessor Class = "preprocessor error"
	Macro        Class = "macro error"
	Parse        Class = "parse error"
	Semantic     Class = "semantic error"
	Lowering     Class = "lowering error"
	Internal     Class = "internal error"
)

// Severity distinguishes a hard error (aborts the translation unit) from a
// warning (collected and printed, compilation continues).
type Severity int

const (
	Warning Severity = iota
	Error
)

// Diagnostic is one reported problem with its primary origin. Chain lists
// expansion origins when a reporter fills it in; Errorf and Warnf leave it
// empty, so diagnostics carry no macro-expansion chain.
type Diagnostic struct {
	Class    Class
	Severity Severity
	Origin   token.Origin
	Chain    []token.Origin
	Message  string
}

func (d *Diagnostic) String() string {
	var buf bytes.Buffer
	kind := "error"
	if d.Severity == Warning {
		kind = "warning"
	}
	fmt.Fprintf(&buf, "%s: %s: %s", d.Origin, kind, d.Message)
	for _, o := range d.Chain {
		fmt.Fprintf(&buf, "\n\t(expanded from %s)", o)
	}
	return buf.String()
}

// Error implements the error interface so a *Diagnostic can be returned
// from pass functions and still be matched with errors.As against its
// Class.
func (d *Diagnostic) Error() string { return d.String() }

// Sink collects diagnostics for a single compilation run. The zero value is
// ready to use.
type Sink struct {
	mu    sync.Mutex
	diags []*Diagnostic
}

// Report records a diagnostic and, for warnings, prints it immediately
// (mirrors the teacher's Warn, which prints at the point of discovery
// rather than batching).
func (s *Sink) Report(d *Diagnostic) {
	s.mu.Lock()
	s.diags = append(s.diags, d)
	s.mu.Unlock()
	if d.Severity == Warning {
		fmt.Println(d.String())
	}
	glog.V(1).Infof("%s", d.String())
}

// Errorf records and returns an Error-severity diagnostic in one step, for
// the common "build it and return it" call pattern.
func (s *Sink) Errorf(class Class, origin token.Origin, format string, a ...interface{}) *Diagnostic {
	d := &Diagnostic{Class: class, Severity: Error, Origin: origin, Message: fmt.Sprintf(format, a...)}
	s.Report(d)
	return d
}

// Warnf records a Warning-severity diagnostic.
func (s *Sink) Warnf(class Class, origin token.Origin, format string, a ...interface{}) {
	s.Report(&Diagnostic{Class: class, Severity: Warning, Origin: origin, Message: fmt.Sprintf(format, a...)})
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, in report order.
func (s *Sink) All() []*Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

// ExitCode maps the sink's worst recorded diagnostic to the process exit
// codes documented for the CLI: 0 clean, 1 compilation error. I/O errors
// (2) are returned directly by the driver rather than routed through the
// sink. No diagnostic maps to exit code 3; an Internal-class error gives 1
// like any other error.
func (s *Sink) ExitCode() int {
	if s.HasErrors() {
		return 1
	}
	return 0
}
