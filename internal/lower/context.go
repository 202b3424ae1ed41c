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

package lower

import "fmt"

// returnMode tells lowerStmt how to turn a "return expr;" into IR: either
// the normal function-call dispatcher protocol, or (while inlining) a
// direct assignment into the call's result variable followed by a goto to
// the inlined block's end label.
type returnMode interface{ isReturnMode() }

type dispatcherReturn struct{ callee string }

func (dispatcherReturn) isReturnMode() {}

type inlineReturn struct {
	destVar  string
	endLabel string
}

func (inlineReturn) isReturnMode() {}

// funcCtx is the per-function (or per-inlined-call) lowering scope: it
// tracks parameter/local storage names, the active break/continue target
// labels, and how a "return" statement should lower.
type funcCtx struct {
	fnName     string
	temps      *tempPool
	paramVar   map[string]string // source param name -> globalized storage name
	localVar   map[string]string // source local name -> globalized storage name
	breakL     []string
	continueL  []string
	ret        returnMode
}

func (lw *Lowerer) newFuncCtx(name string, ret returnMode) *funcCtx {
	return &funcCtx{
		fnName:   name,
		temps:    newTempPool(),
		paramVar: map[string]string{},
		localVar: map[string]string{},
		ret:      ret,
	}
}

// paramGlobal is the globalized storage name for parameter p of function
// fn -- stable and unique across the program regardless of whether fn ends
// up direct-called, trampolined, or inlined.
func paramGlobal(fn, p string) string {
	return fmt.Sprintf("__fn%s_arg_%s", fn, p)
}

// resolveIdent maps a source identifier to its IR storage name: a
// parameter, a local (globalized by sema), or (falling through) a
// file-scope global referenced verbatim.
func (c *funcCtx) resolveIdent(name string) string {
	if g, ok := c.paramVar[name]; ok {
		return g
	}
	if g, ok := c.localVar[name]; ok {
		return g
	}
	return name
}

func (c *funcCtx) pushLoop(breakLabel, continueLabel string) {
	c.breakL = append(c.breakL, breakLabel)
	c.continueL = append(c.continueL, continueLabel)
}

func (c *funcCtx) popLoop() {
	c.breakL = c.breakL[:len(c.breakL)-1]
	c.continueL = c.continueL[:len(c.continueL)-1]
}

func (c *funcCtx) pushSwitch(breakLabel string) {
	c.breakL = append(c.breakL, breakLabel)
	c.continueL = append(c.continueL, sentinelNoContinue)
}

func (c *funcCtx) popSwitch() {
	c.breakL = c.breakL[:len(c.breakL)-1]
	c.continueL = c.continueL[:len(c.continueL)-1]
}

const sentinelNoContinue = ""

func (c *funcCtx) currentBreak() string {
	if len(c.breakL) == 0 {
		return ""
	}
	return c.breakL[len(c.breakL)-1]
}

// currentContinue walks outward past switch frames (which push a
// sentinelNoContinue marker) to find the nearest enclosing loop's continue
// target, since `continue` inside a `switch` still targets the loop.
func (c *funcCtx) currentContinue() string {
	for i := len(c.continueL) - 1; i >= 0; i-- {
		if c.continueL[i] != sentinelNoContinue {
			return c.continueL[i]
		}
	}
	return ""
}
