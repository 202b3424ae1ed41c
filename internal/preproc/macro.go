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

import "github.com/mightypork/sdscp/internal/token"

// Shape distinguishes the three syntactic forms a macro definition can take
// (spec.md 3 "Macro").
type Shape int

const (
	ObjectLike Shape = iota
	FunctionLike
	ArrayLike
)

func (s Shape) String() string {
	switch s {
	case ObjectLike:
		return "object-like"
	case FunctionLike:
		return "function-like"
	case ArrayLike:
		return "array-like"
	default:
		return "unknown"
	}
}

// Macro is one definition of a macro. A name may have several *Macro
// entries simultaneously distinguished by Shape and, for FunctionLike, by
// arity -- this is "overloading" per spec.md 3.
type Macro struct {
	Name   string
	Shape  Shape
	Params []string // parameter names; for ArrayLike, the single index parameter
	Body   []token.Token

	// Variadic is true when the last (or, for non-trailing placement, some)
	// parameter is declared "name...".
	Variadic bool
	// VariadicIndex is the position of the variadic parameter within
	// Params, or -1 if Variadic is false. Per spec.md 3, this may be
	// prefix (0), middle, or trailing (len(Params)-1); trailing is the
	// documented best practice.
	VariadicIndex int

	Origin token.Origin
}

// FixedArity is the number of non-variadic parameters.
func (m *Macro) FixedArity() int {
	if m.Variadic {
		return len(m.Params) - 1
	}
	return len(m.Params)
}

// Table holds every macro currently defined, keyed by name, with each
// name's overload set kept in definition order so "first syntactic + arity
// match wins" is deterministic.
type Table struct {
	entries map[string][]*Macro
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{entries: make(map[string][]*Macro)}
}

// Define adds m to the table, replacing any prior entry with the exact same
// Shape and arity signature (so "#define" followed by a second "#define"
// of the identical signature redefines rather than overloads, matching the
// classic C preprocessor's redefinition semantics; distinct signatures
// accumulate as overloads).
func (t *Table) Define(m *Macro) {
	set := t.entries[m.Name]
	for i, existing := range set {
		if sameSignature(existing, m) {
			set[i] = m
			t.entries[m.Name] = set
			return
		}
	}
	t.entries[m.Name] = append(set, m)
}

func sameSignature(a, b *Macro) bool {
	if a.Shape != b.Shape {
		return false
	}
	if a.Shape == FunctionLike {
		return a.FixedArity() == b.FixedArity() && a.Variadic == b.Variadic
	}
	return true
}

// Undef removes every entry for name (all overloads), per "#undef".
func (t *Table) Undef(name string) {
	delete(t.entries, name)
}

// IsDefined reports whether any entry (of any shape) exists for name, used
// by #ifdef/#ifndef/defined().
func (t *Table) IsDefined(name string) bool {
	return len(t.entries[name]) > 0
}

// Lookup returns every overload registered for name.
func (t *Table) Lookup(name string) []*Macro {
	return t.entries[name]
}

// ResolveObject returns the object-like definition for name, if any.
func (t *Table) ResolveObject(name string) *Macro {
	for _, m := range t.entries[name] {
		if m.Shape == ObjectLike {
			return m
		}
	}
	return nil
}

// ResolveArray returns the array-like definition for name, if any.
func (t *Table) ResolveArray(name string) *Macro {
	for _, m := range t.entries[name] {
		if m.Shape == ArrayLike {
			return m
		}
	}
	return nil
}

// ResolveCall picks the function-like overload matching argc actual
// arguments, per spec.md 4.2 "Overload resolution": prefer an exact
// non-variadic match, and fall back to a variadic entry whose fixed count
// is satisfied (argc >= fixed arity) only when no exact non-variadic match
// exists.
func (t *Table) ResolveCall(name string, argc int) *Macro {
	var variadicMatch *Macro
	for _, m := range t.entries[name] {
		if m.Shape != FunctionLike {
			continue
		}
		if !m.Variadic && m.FixedArity() == argc {
			return m
		}
		if m.Variadic && argc >= m.FixedArity() && variadicMatch == nil {
			variadicMatch = m
		}
	}
	return variadicMatch
}
