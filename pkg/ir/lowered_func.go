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

import (
	"fmt"
	"strings"

	"github.com/secretflow/kiln/pkg/graph"
)

// Tensor describes one buffer-backed value of a lowered function.
type Tensor struct {
	Name  string
	Shape []int
	DType graph.DataType
}

// TensorFromMeta converts graph variable metadata.
func TensorFromMeta(m *graph.VarMeta) Tensor {
	return Tensor{Name: m.Name, Shape: m.Shape, DType: m.DType}
}

// Numel returns the number of elements the shape holds.
func (t Tensor) Numel() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

func (t Tensor) String() string {
	return fmt.Sprintf("%s:%s%v", t.Name, t.DType, t.Shape)
}

// ArgRole tells whether a function parameter is read or written.
type ArgRole int

const (
	ArgInput ArgRole = iota
	ArgOutput
)

func (r ArgRole) String() string {
	if r == ArgOutput {
		return "out"
	}
	return "in"
}

// Argument is one formal parameter of a lowered function.
type Argument struct {
	Tensor
	Role ArgRole
}

// Stmt is one vector operation of a function body. Dest and Args name
// parameters or temporaries of the enclosing function.
type Stmt struct {
	Op    string
	Dest  string
	Args  []string
	Attrs map[string]float64
}

func (s *Stmt) String() string {
	return fmt.Sprintf("%s = %s(%s)", s.Dest, s.Op, strings.Join(s.Args, ", "))
}

// LoweredFunc is a target-independent low-level function. The Args
// order is the binding contract: instruction arguments must be passed
// in exactly this order.
type LoweredFunc struct {
	Name  string
	Args  []Argument
	Temps []Tensor
	Body  []Stmt
}

// ParamNames returns parameter names in declared order.
func (f *LoweredFunc) ParamNames() []string {
	names := make([]string, len(f.Args))
	for i, a := range f.Args {
		names[i] = a.Name
	}
	return names
}

// InputNames returns the names of read-only parameters in order.
func (f *LoweredFunc) InputNames() []string {
	var names []string
	for _, a := range f.Args {
		if a.Role == ArgInput {
			names = append(names, a.Name)
		}
	}
	return names
}

// OutputNames returns the names of written parameters in order.
func (f *LoweredFunc) OutputNames() []string {
	var names []string
	for _, a := range f.Args {
		if a.Role == ArgOutput {
			names = append(names, a.Name)
		}
	}
	return names
}

// Validate rejects functions whose body references undeclared names.
func (f *LoweredFunc) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("Validate: lowered function has empty name")
	}
	if len(f.Args) == 0 {
		return fmt.Errorf("Validate: function %q has no arguments", f.Name)
	}
	known := make(map[string]bool, len(f.Args)+len(f.Temps))
	for _, a := range f.Args {
		known[a.Name] = true
	}
	for _, tmp := range f.Temps {
		known[tmp.Name] = true
	}
	for i := range f.Body {
		s := &f.Body[i]
		if !known[s.Dest] {
			return fmt.Errorf("Validate: function %q stmt %d writes undeclared %q", f.Name, i, s.Dest)
		}
		for _, arg := range s.Args {
			if !known[arg] {
				return fmt.Errorf("Validate: function %q stmt %d reads undeclared %q", f.Name, i, arg)
			}
		}
	}
	return nil
}

func (f *LoweredFunc) String() string {
	params := make([]string, len(f.Args))
	for i, a := range f.Args {
		params[i] = fmt.Sprintf("%s %s", a.Role, a.Tensor)
	}
	return fmt.Sprintf("%s(%s) {%d stmts}", f.Name, strings.Join(params, ", "), len(f.Body))
}
