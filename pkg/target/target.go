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

package target

import "fmt"

// TargetKind tells which class of device compiled code runs on.
type TargetKind int

const (
	TargetHost TargetKind = iota
	TargetAccel
)

func (k TargetKind) String() string {
	switch k {
	case TargetHost:
		return "host"
	case TargetAccel:
		return "accel"
	default:
		return "unknown"
	}
}

// Target describes where generated code runs. Values compare with ==,
// so contexts and caches can key on it directly.
type Target struct {
	Kind TargetKind
	Arch string
	Bits int
}

// HostTarget returns the default CPU target.
func HostTarget() Target {
	return Target{Kind: TargetHost, Arch: "x86_64", Bits: 64}
}

// AccelTarget returns an accelerator target for the given architecture,
// e.g. "sm_80".
func AccelTarget(arch string) Target {
	return Target{Kind: TargetAccel, Arch: arch, Bits: 64}
}

// IsAccel reports whether compiled groups additionally carry device code.
func (t Target) IsAccel() bool {
	return t.Kind == TargetAccel
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s-%d", t.Kind, t.Arch, t.Bits)
}
