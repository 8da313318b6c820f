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

func TestVarMeta(t *testing.T) {
	m := &VarMeta{Name: "x", Shape: []int{2, 3}, DType: F64}
	assert.NoError(t, m.Validate())
	assert.Equal(t, 6, m.Numel())
	assert.Equal(t, 48, m.ByteSize())
	assert.Equal(t, "x:float64[2 3]", m.String())

	c := m.Clone()
	c.Shape[0] = 7
	assert.Equal(t, 2, m.Shape[0])

	assert.Error(t, (&VarMeta{Name: "", Shape: []int{1}, DType: F64}).Validate())
	assert.Error(t, (&VarMeta{Name: "x", Shape: []int{1}, DType: Unknown}).Validate())
	assert.Error(t, (&VarMeta{Name: "x", Shape: nil, DType: F64}).Validate())
	assert.Error(t, (&VarMeta{Name: "x", Shape: []int{2, 0}, DType: F64}).Validate())
}

func TestGraphBuilderBasic(t *testing.T) {
	b := NewGraphBuilder()
	require.NoError(t, b.AddInput(&VarMeta{Name: "x", Shape: []int{4}, DType: F64}))
	require.NoError(t, b.AddInput(&VarMeta{Name: "y", Shape: []int{4}, DType: F64}))
	require.NoError(t, b.AddNode("add", []string{"x", "y"}, "t0", nil))
	require.NoError(t, b.AddNode("relu", []string{"t0"}, "t1", nil))
	require.NoError(t, b.MarkOutput("t1"))
	// marking twice is a no-op
	require.NoError(t, b.MarkOutput("t1"))

	g, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, g.Nodes(), 2)
	assert.Equal(t, []string{"x", "y"}, g.InputNames())
	assert.Equal(t, []string{"t1"}, g.OutputNames())
	assert.Equal(t, []string{"t0", "t1", "x", "y"}, g.VarNames())

	// inferred metadata for intermediates
	m, ok := g.VarMeta("t0")
	require.True(t, ok)
	assert.Equal(t, []int{4}, m.Shape)
	assert.Equal(t, F64, m.DType)

	// producer bookkeeping
	assert.Nil(t, g.Producer("x"))
	require.NotNil(t, g.Producer("t1"))
	assert.Equal(t, "relu", g.Producer("t1").Op)
	assert.Equal(t, "op_add_0", g.Nodes()[0].UniqueName())
}

func TestGraphBuilderErrors(t *testing.T) {
	b := NewGraphBuilder()
	require.NoError(t, b.AddInput(&VarMeta{Name: "x", Shape: []int{4}, DType: F64}))

	// duplicate input
	assert.Error(t, b.AddInput(&VarMeta{Name: "x", Shape: []int{4}, DType: F64}))
	// undefined variable
	assert.Error(t, b.AddNode("add", []string{"x", "nope"}, "t0", nil))
	// unknown op
	assert.Error(t, b.AddNode("fancy_conv", []string{"x"}, "t0", nil))
	// empty output name
	assert.Error(t, b.AddNode("relu", []string{"x"}, "", nil))
	// duplicate producer
	require.NoError(t, b.AddNode("relu", []string{"x"}, "t0", nil))
	assert.Error(t, b.AddNode("exp", []string{"x"}, "t0", nil))
	// unmarked output name
	assert.Error(t, b.MarkOutput("nope"))
	// empty graph
	_, err := NewGraphBuilder().Build()
	assert.Error(t, err)
}

func TestGraphVarsSorted(t *testing.T) {
	b := NewGraphBuilder()
	require.NoError(t, b.AddInput(&VarMeta{Name: "zebra", Shape: []int{1}, DType: F32}))
	require.NoError(t, b.AddInput(&VarMeta{Name: "alpha", Shape: []int{1}, DType: F32}))
	require.NoError(t, b.AddNode("add", []string{"zebra", "alpha"}, "mid", nil))
	g, err := b.Build()
	require.NoError(t, err)

	var names []string
	for _, m := range g.Vars() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, names)
}
