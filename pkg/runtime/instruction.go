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

package runtime

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// KernelFunc is a callable compiled kernel. Arguments arrive in
// binding order, inputs first then outputs.
type KernelFunc func(args []*Tensor) error

// InstrKind separates compute steps from buffer bookkeeping markers.
type InstrKind int

const (
	InstrCompute InstrKind = iota
	InstrAllocBuffer
	InstrFreeBuffer
)

func (k InstrKind) String() string {
	switch k {
	case InstrCompute:
		return "compute"
	case InstrAllocBuffer:
		return "alloc"
	case InstrFreeBuffer:
		return "free"
	default:
		return "unknown"
	}
}

// Instruction is one program step. Compute instructions carry a kernel
// and its argument names, buffer markers name exactly one variable.
type Instruction struct {
	Kind    InstrKind
	FnName  string
	Fn      KernelFunc
	InArgs  []string
	OutArgs []string
}

func NewComputeInstruction(fnName string, fn KernelFunc, inArgs, outArgs []string) *Instruction {
	return &Instruction{
		Kind:    InstrCompute,
		FnName:  fnName,
		Fn:      fn,
		InArgs:  inArgs,
		OutArgs: outArgs,
	}
}

func NewAllocInstruction(varName string) *Instruction {
	return &Instruction{Kind: InstrAllocBuffer, OutArgs: []string{varName}}
}

func NewFreeInstruction(varName string) *Instruction {
	return &Instruction{Kind: InstrFreeBuffer, InArgs: []string{varName}}
}

// Args returns all referenced variable names, inputs first.
func (i *Instruction) Args() []string {
	args := make([]string, 0, len(i.InArgs)+len(i.OutArgs))
	args = append(args, i.InArgs...)
	args = append(args, i.OutArgs...)
	return args
}

// VarName returns the single variable a buffer marker names.
func (i *Instruction) VarName() string {
	switch i.Kind {
	case InstrAllocBuffer:
		return i.OutArgs[0]
	case InstrFreeBuffer:
		return i.InArgs[0]
	default:
		return ""
	}
}

// Run executes the step against the scope.
func (i *Instruction) Run(scope *Scope) error {
	switch i.Kind {
	case InstrAllocBuffer:
		t, ok := scope.FindVar(i.VarName())
		if !ok {
			return errors.Errorf("Run: alloc references undefined variable %q", i.VarName())
		}
		return t.Instantiate()
	case InstrFreeBuffer:
		t, ok := scope.FindVar(i.VarName())
		if !ok {
			return errors.Errorf("Run: free references undefined variable %q", i.VarName())
		}
		t.Release()
		return nil
	case InstrCompute:
		if i.Fn == nil {
			return errors.Errorf("Run: instruction %s has no kernel", i.FnName)
		}
		args := make([]*Tensor, 0, len(i.InArgs)+len(i.OutArgs))
		for _, name := range i.Args() {
			t, ok := scope.FindVar(name)
			if !ok {
				return errors.Errorf("Run: instruction %s references undefined variable %q", i.FnName, name)
			}
			args = append(args, t)
		}
		if err := i.Fn(args); err != nil {
			return errors.Wrapf(err, "Run: kernel %s", i.FnName)
		}
		return nil
	default:
		return errors.Errorf("Run: unknown instruction kind %d", i.Kind)
	}
}

func (i *Instruction) String() string {
	switch i.Kind {
	case InstrAllocBuffer:
		return fmt.Sprintf("alloc %s", i.VarName())
	case InstrFreeBuffer:
		return fmt.Sprintf("free %s", i.VarName())
	default:
		return fmt.Sprintf("compute %s(%s) -> (%s)",
			i.FnName, strings.Join(i.InArgs, ", "), strings.Join(i.OutArgs, ", "))
	}
}
