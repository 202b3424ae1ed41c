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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "sds1", d.Renderer)
	assert.True(t, d.SafeStack)
	assert.Equal(t, 300, d.StackStart)
	assert.Equal(t, 511, d.StackEnd)
}

func TestApplyPragmas_OverlaysExtraValues(t *testing.T) {
	o := ApplyPragmas(Defaults(), "sds2", map[string]string{
		"safe_stack":            "false",
		"push_pop_trampolines":  "true",
		"stack_start":           "100",
		"builtin_error_logging": "true",
	})

	assert.Equal(t, "sds2", o.Renderer)
	assert.False(t, o.SafeStack)
	assert.True(t, o.PushPopTrampolines)
	assert.Equal(t, 100, o.StackStart)
	assert.True(t, o.BuiltinErrorLogging)
}

func TestApplyPragmas_UnparsableValueKeepsDefault(t *testing.T) {
	o := ApplyPragmas(Defaults(), "", map[string]string{"safe_stack": "maybe"})
	assert.True(t, o.SafeStack)
}

func TestApplyCLI_OverridesWinOverPragmas(t *testing.T) {
	base := ApplyPragmas(Defaults(), "", map[string]string{"safe_stack": "false"})
	assert.False(t, base.SafeStack)

	overriddenTrue := true
	final := ApplyCLI(base, CLIOverrides{SafeStack: &overriddenTrue})
	assert.True(t, final.SafeStack)
}

func TestApplyCLI_NilFieldsLeaveOptionsUntouched(t *testing.T) {
	base := Defaults()
	final := ApplyCLI(base, CLIOverrides{})
	assert.Equal(t, base, final)
}

func TestTrampolineThreshold(t *testing.T) {
	assert.Equal(t, 2, Options{SafeStack: true}.TrampolineThreshold())
	assert.Equal(t, 4, Options{SafeStack: false}.TrampolineThreshold())
}
