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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mightypork/sdscp/internal/diag"
	"github.com/mightypork/sdscp/internal/token"
)

// fakeFS is an in-memory preproc.FileSystem for tests, the SDS-C analogue
// of the teacher's own habit of driving file-touching passes off small
// fixture maps rather than real temp directories.
type fakeFS map[string]string

func (f fakeFS) ReadFile(path string) ([]byte, error) {
	s, ok := f[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(s), nil
}

func tokenTexts(toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		out = append(out, t.Text)
	}
	return out
}

func TestProcess_MacroExpansion(t *testing.T) {
	fs := fakeFS{"main.c": "#define LIMIT 10\nx = LIMIT;\n"}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	toks := p.Process("main.c")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []string{"x", "=", "10", ";"}, tokenTexts(toks))
}

func TestProcess_IfdefSkipsUndefinedBranch(t *testing.T) {
	fs := fakeFS{"main.c": "#ifdef FEATURE\nx = 1;\n#else\nx = 2;\n#endif\n"}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	toks := p.Process("main.c")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []string{"x", "=", "2", ";"}, tokenTexts(toks))
}

func TestProcess_Include(t *testing.T) {
	fs := fakeFS{
		"main.c": "#include \"util.h\"\ny = VAL;\n",
		"util.h": "#define VAL 7\n",
	}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	toks := p.Process("main.c")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []string{"y", "=", "7", ";"}, tokenTexts(toks))
}

func TestProcess_PragmaOnceSkipsSecondInclude(t *testing.T) {
	fs := fakeFS{
		"main.c": "#include \"once.h\"\n#include \"once.h\"\nz = COUNT;\n",
		"once.h": "#pragma once\n#define COUNT 1\n",
	}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	toks := p.Process("main.c")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []string{"z", "=", "1", ";"}, tokenTexts(toks))
}

func TestProcess_RendererPragmaIsRecorded(t *testing.T) {
	fs := fakeFS{"main.c": "#pragma renderer sds2\nx = 1;\n"}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	p.Process("main.c")
	require.False(t, sink.HasErrors())
	assert.Equal(t, "sds2", p.Pragmas.Renderer)
}

func TestProcess_UnterminatedIfIsAnError(t *testing.T) {
	fs := fakeFS{"main.c": "#ifdef FEATURE\nx = 1;\n"}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	p.Process("main.c")
	assert.True(t, sink.HasErrors())
}

func TestProcess_MissingIncludeIsAnError(t *testing.T) {
	fs := fakeFS{"main.c": "#include \"nope.h\"\n"}
	sink := &diag.Sink{}
	p := New(fs, nil, sink)

	p.Process("main.c")
	assert.True(t, sink.HasErrors())
}
