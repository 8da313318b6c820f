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
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/util/sliceutil"
)

// Scope is the variable store shared between a compilation and the
// program it produces. Single writer: compilation mutates it before
// the program runs, nothing here locks.
type Scope struct {
	mem  memory.Allocator
	vars map[string]*Tensor
}

func NewScope() *Scope {
	return NewScopeWithAllocator(memory.DefaultAllocator)
}

func NewScopeWithAllocator(mem memory.Allocator) *Scope {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Scope{mem: mem, vars: make(map[string]*Tensor)}
}

// Var creates the named variable or returns the existing one. An
// existing variable must agree on shape and dtype.
func (s *Scope) Var(meta *graph.VarMeta) (*Tensor, error) {
	if t, ok := s.vars[meta.Name]; ok {
		if !t.meta.ShapeEqual(meta) || t.meta.DType != meta.DType {
			return nil, errors.Errorf("Var: variable %q redeclared as %s, existing %s",
				meta.Name, meta, t.meta)
		}
		return t, nil
	}
	if err := meta.Validate(); err != nil {
		return nil, errors.Wrap(err, "Var")
	}
	t := NewTensor(meta, s.mem)
	s.vars[meta.Name] = t
	return t, nil
}

// FindVar looks up a variable by name.
func (s *Scope) FindVar(name string) (*Tensor, bool) {
	t, ok := s.vars[name]
	return t, ok
}

func (s *Scope) HasVar(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// EraseVar drops the variable and frees its storage. Unknown names are
// ignored.
func (s *Scope) EraseVar(name string) {
	if t, ok := s.vars[name]; ok {
		t.Release()
		delete(s.vars, name)
	}
}

// VarNames returns all variable names in ascending order.
func (s *Scope) VarNames() []string {
	return sliceutil.SortedKeys(s.vars)
}

// Size returns the number of variables.
func (s *Scope) Size() int {
	return len(s.vars)
}

// Allocator returns the allocator backing new tensors.
func (s *Scope) Allocator() memory.Allocator {
	return s.mem
}
