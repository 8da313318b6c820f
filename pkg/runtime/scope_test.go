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
	"testing"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretflow/kiln/pkg/graph"
)

func TestScopeVarCreateOrGet(t *testing.T) {
	s := NewScope()

	meta := &graph.VarMeta{Name: "x", Shape: []int{4}, DType: graph.F64}
	t1, err := s.Var(meta)
	require.NoError(t, err)

	// second Var with the same meta returns the same tensor
	t2, err := s.Var(meta)
	require.NoError(t, err)
	assert.Same(t, t1, t2)

	// conflicting redeclaration is rejected
	_, err = s.Var(&graph.VarMeta{Name: "x", Shape: []int{5}, DType: graph.F64})
	assert.ErrorContains(t, err, "redeclared")
	_, err = s.Var(&graph.VarMeta{Name: "x", Shape: []int{4}, DType: graph.F32})
	assert.ErrorContains(t, err, "redeclared")

	// invalid meta is rejected
	_, err = s.Var(&graph.VarMeta{Name: "bad", Shape: nil, DType: graph.F64})
	assert.Error(t, err)
}

func TestScopeLookupAndErase(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	s := NewScopeWithAllocator(mem)
	_, err := s.Var(&graph.VarMeta{Name: "b", Shape: []int{2}, DType: graph.F64})
	require.NoError(t, err)
	_, err = s.Var(&graph.VarMeta{Name: "a", Shape: []int{2}, DType: graph.F64})
	require.NoError(t, err)

	assert.True(t, s.HasVar("a"))
	assert.False(t, s.HasVar("z"))
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, []string{"a", "b"}, s.VarNames())

	found, ok := s.FindVar("a")
	require.True(t, ok)
	require.NoError(t, found.Instantiate())

	// erase frees storage and drops the entry
	s.EraseVar("a")
	assert.False(t, s.HasVar("a"))
	assert.Equal(t, 1, s.Size())

	// erasing an unknown name is a no-op
	s.EraseVar("never_there")
	assert.Equal(t, 1, s.Size())
}

func TestScopeVarMetaIsCopied(t *testing.T) {
	s := NewScope()
	meta := &graph.VarMeta{Name: "x", Shape: []int{4}, DType: graph.F64}
	tsr, err := s.Var(meta)
	require.NoError(t, err)

	// caller-side mutation must not leak into the scope
	meta.Shape[0] = 99
	assert.Equal(t, 4, tsr.Meta().Shape[0])
}
