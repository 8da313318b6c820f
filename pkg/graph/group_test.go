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

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSingleNode(t *testing.T) {
	g := buildDiamond(t)
	grp := &Group{Index: 2, Nodes: []*Node{g.Nodes()[2]}}

	assert.Equal(t, "fn_add_2", grp.FnName())
	assert.Equal(t, "op_add_2", grp.NodeID())
	assert.Equal(t, "add", grp.Impl())
	assert.Equal(t, []string{"a", "b"}, grp.InputNames())
	assert.Equal(t, []string{"c"}, grp.OutputNames())
}

func TestGroupFused(t *testing.T) {
	// fuse relu(x)->a and add(a,b)->c into one group: "a" is internal,
	// the group consumes x and b from outside and writes both a and c
	b := NewGraphBuilder()
	require.NoError(t, b.AddInput(&VarMeta{Name: "x", Shape: []int{4}, DType: F64}))
	require.NoError(t, b.AddInput(&VarMeta{Name: "b", Shape: []int{4}, DType: F64}))
	require.NoError(t, b.AddNode("relu", []string{"x"}, "a", nil))
	require.NoError(t, b.AddNode("add", []string{"a", "b"}, "c", nil))
	g, err := b.Build()
	require.NoError(t, err)

	grp := &Group{Index: 0, Nodes: g.Nodes()}
	assert.Equal(t, []string{"x", "b"}, grp.InputNames())
	assert.Equal(t, []string{"a", "c"}, grp.OutputNames())
	assert.Equal(t, "fn_add_0", grp.FnName())
	assert.Equal(t, "op_add_1", grp.NodeID())

	// hint overrides the master op tag
	grp.ImplHint = "fused_elementwise"
	assert.Equal(t, "fused_elementwise", grp.Impl())
}

func TestGroupRepeatedInput(t *testing.T) {
	// same variable consumed twice shows up once
	b := NewGraphBuilder()
	require.NoError(t, b.AddInput(&VarMeta{Name: "x", Shape: []int{4}, DType: F64}))
	require.NoError(t, b.AddNode("mul", []string{"x", "x"}, "sq", nil))
	g, err := b.Build()
	require.NoError(t, err)

	grp := &Group{Index: 0, Nodes: g.Nodes()}
	assert.Equal(t, []string{"x"}, grp.InputNames())
}
