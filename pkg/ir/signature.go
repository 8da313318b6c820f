// Copyright 2025 Ant Group Co., Ltd.
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

package ir

import "fmt"

// CheckArgumentBinding verifies the flattened in/out argument names
// line up with fn's declared parameter order and roles. Instruction
// construction runs this before an instruction is accepted.
func CheckArgumentBinding(fn *LoweredFunc, inNames, outNames []string) error {
	if got, want := len(inNames)+len(outNames), len(fn.Args); got != want {
		return fmt.Errorf("CheckArgumentBinding: fn %v len(params):%v != len(in)+len(out):%v",
			fn.Name, want, got)
	}
	flat := make([]string, 0, len(fn.Args))
	flat = append(flat, inNames...)
	flat = append(flat, outNames...)
	for i, p := range fn.Args {
		if flat[i] != p.Name {
			return fmt.Errorf("CheckArgumentBinding: fn %v param %d is %q, bound argument is %q",
				fn.Name, i, p.Name, flat[i])
		}
		wantRole := ArgInput
		if i >= len(inNames) {
			wantRole = ArgOutput
		}
		if p.Role != wantRole {
			return fmt.Errorf("CheckArgumentBinding: fn %v param %q role mismatch, actual:%v, expected:%v",
				fn.Name, p.Name, p.Role, wantRole)
		}
	}
	return nil
}
