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

import (
	"fmt"

	"github.com/secretflow/kiln/pkg/runtime"
	"github.com/secretflow/kiln/pkg/util/sliceutil"
)

// referencedVarSet collects every variable the schedule touches.
func referencedVarSet(instrs []*runtime.Instruction) map[string]bool {
	set := make(map[string]bool)
	for _, instr := range instrs {
		for _, name := range instr.Args() {
			set[name] = true
		}
	}
	return set
}

// InstantiateVariables eagerly realizes every variable the schedule
// references, in name order.
func InstantiateVariables(scope *runtime.Scope, instrs []*runtime.Instruction) error {
	for _, name := range sliceutil.SortedKeys(referencedVarSet(instrs)) {
		t, ok := scope.FindVar(name)
		if !ok {
			return &BindingFailure{VarName: name, Reason: "referenced by schedule but not in scope"}
		}
		if err := t.Instantiate(); err != nil {
			return fmt.Errorf("InstantiateVariables: %v", err)
		}
	}
	return nil
}

// RemoveInvalidVariables erases scope variables the schedule never
// references. Fetched variables stay addressable no matter what.
func RemoveInvalidVariables(scope *runtime.Scope, instrs []*runtime.Instruction, fetch map[string]bool) {
	referenced := referencedVarSet(instrs)
	for _, name := range scope.VarNames() {
		if referenced[name] || fetch[name] {
			continue
		}
		scope.EraseVar(name)
	}
}

// InsertBufferHandlers weaves alloc markers before a variable's first
// use and free markers after its last use. Markers sharing a step are
// emitted in lexical order, fetched variables are never freed.
func InsertBufferHandlers(instrs []*runtime.Instruction, fetch map[string]bool) ([]*runtime.Instruction, error) {
	step2alloc, step2free, err := AnalyzeVariableLifeTime(instrs, fetch)
	if err != nil {
		return nil, err
	}
	out := make([]*runtime.Instruction, 0, 2*len(instrs))
	for i, instr := range instrs {
		for _, name := range step2alloc[i] {
			out = append(out, runtime.NewAllocInstruction(name))
		}
		out = append(out, instr)
		for _, name := range step2free[i] {
			out = append(out, runtime.NewFreeInstruction(name))
		}
	}
	return out, nil
}

// FilterBufferMarkers drops alloc and free markers, leaving the
// compute schedule.
func FilterBufferMarkers(instrs []*runtime.Instruction) []*runtime.Instruction {
	out := make([]*runtime.Instruction, 0, len(instrs))
	for _, instr := range instrs {
		if instr.Kind == runtime.InstrCompute {
			out = append(out, instr)
		}
	}
	return out
}
