// Copyright 2026 Ant Group Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import "fmt"

// The compiler reports failures through a small set of typed errors.
// All of them are fatal for the request that raised them, there is no
// partial result and no retry path.

// RequestShapeError reports a compilation request that is malformed
// before any work starts: unknown fetch variables, a precomputed
// function list whose length disagrees with the group count, alias
// cycles and the like.
type RequestShapeError struct {
	Reason string
}

func (e *RequestShapeError) Error() string {
	return fmt.Sprintf("request shape error: %s", e.Reason)
}

// LoweringFailure reports a group the operator strategy could not
// turn into at least one lowered function.
type LoweringFailure struct {
	GroupIndex int
	FnName     string
	Cause      error
}

func (e *LoweringFailure) Error() string {
	return fmt.Sprintf("lowering failure: group %d (%s): %v", e.GroupIndex, e.FnName, e.Cause)
}

func (e *LoweringFailure) Unwrap() error { return e.Cause }

// CodegenFailure reports a group whose lowered functions could not be
// rendered into source.
type CodegenFailure struct {
	GroupIndex int
	Cause      error
}

func (e *CodegenFailure) Error() string {
	return fmt.Sprintf("codegen failure: group %d: %v", e.GroupIndex, e.Cause)
}

func (e *CodegenFailure) Unwrap() error { return e.Cause }

// LoadFailure reports a compiled artifact that could not be realized
// as callable kernels: a kernel build error, an attached source with
// no cached module, or a function name the module does not export.
type LoadFailure struct {
	FnName string
	Cause  error
}

func (e *LoadFailure) Error() string {
	if e.FnName == "" {
		return fmt.Sprintf("load failure: %v", e.Cause)
	}
	return fmt.Sprintf("load failure: fn %s: %v", e.FnName, e.Cause)
}

func (e *LoadFailure) Unwrap() error { return e.Cause }

// BindingFailure reports an instruction whose arguments could not be
// matched against the compiled function or the scope.
type BindingFailure struct {
	FnName  string
	VarName string
	Reason  string
}

func (e *BindingFailure) Error() string {
	switch {
	case e.FnName == "":
		return fmt.Sprintf("binding failure: var %s: %s", e.VarName, e.Reason)
	case e.VarName == "":
		return fmt.Sprintf("binding failure: fn %s: %s", e.FnName, e.Reason)
	default:
		return fmt.Sprintf("binding failure: fn %s: var %s: %s", e.FnName, e.VarName, e.Reason)
	}
}

// LifetimeInvariantViolation reports a variable whose computed free
// step precedes its alloc step.
type LifetimeInvariantViolation struct {
	VarName   string
	AllocStep int
	FreeStep  int
}

func (e *LifetimeInvariantViolation) Error() string {
	return fmt.Sprintf("lifetime invariant violation: var %s allocated at step %d but freed at step %d",
		e.VarName, e.AllocStep, e.FreeStep)
}
