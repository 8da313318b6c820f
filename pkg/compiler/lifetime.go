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
	"sort"

	"github.com/secretflow/kiln/pkg/runtime"
)

// VarFirstUse maps a variable to the first schedule step touching it.
type VarFirstUse map[string]int

// VarLastUse maps a variable to the last schedule step touching it.
type VarLastUse map[string]int

func (m VarFirstUse) Record(name string, step int) {
	if cur, ok := m[name]; !ok || step < cur {
		m[name] = step
	}
}

func (m VarLastUse) Record(name string, step int) {
	if cur, ok := m[name]; !ok || step > cur {
		m[name] = step
	}
}

// AnalyzeVariableLifeTime scans a pure compute schedule and reports,
// per step, which variables become live there and which die there.
// Variables in the fetch set never die. Names within one step come
// back in lexical order.
func AnalyzeVariableLifeTime(instrs []*runtime.Instruction, fetch map[string]bool) (map[int][]string, map[int][]string, error) {
	first := make(VarFirstUse)
	last := make(VarLastUse)
	for i, instr := range instrs {
		if instr.Kind != runtime.InstrCompute {
			return nil, nil, fmt.Errorf(
				"AnalyzeVariableLifeTime: instruction %v is a %v marker, analysis expects a pure compute schedule",
				i, instr.Kind)
		}
		for _, name := range instr.Args() {
			first.Record(name, i)
			last.Record(name, i)
		}
	}

	step2alloc := make(map[int][]string)
	step2free := make(map[int][]string)
	for name, step := range first {
		if lastStep := last[name]; lastStep < step {
			return nil, nil, &LifetimeInvariantViolation{VarName: name, AllocStep: step, FreeStep: lastStep}
		}
		step2alloc[step] = append(step2alloc[step], name)
	}
	for name, step := range last {
		if fetch[name] {
			continue
		}
		step2free[step] = append(step2free[step], name)
	}
	for _, names := range step2alloc {
		sort.Strings(names)
	}
	for _, names := range step2free {
		sort.Strings(names)
	}
	return step2alloc, step2free, nil
}
