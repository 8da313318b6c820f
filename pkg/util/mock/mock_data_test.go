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

package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretflow/kiln/pkg/graph"
)

func TestMockVector(t *testing.T) {
	a := MockVector(42, 16)
	b := MockVector(42, 16)
	require.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, MockVector(43, 16))
	for _, v := range a {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 1.0)
	}
}

func TestMockMatrix(t *testing.T) {
	m := MockMatrix(7, 3, 4)
	require.Len(t, m, 12)
	assert.Equal(t, MockVector(7, 12), m)
}

func TestMockInputs(t *testing.T) {
	b := graph.NewGraphBuilder()
	require.NoError(t, b.AddInput(&graph.VarMeta{Name: "x", Shape: []int{2, 3}, DType: graph.F64}))
	require.NoError(t, b.AddInput(&graph.VarMeta{Name: "w", Shape: []int{3, 2}, DType: graph.F64}))
	require.NoError(t, b.AddNode("matmul", []string{"x", "w"}, "h", nil))
	require.NoError(t, b.MarkOutput("h"))
	g, err := b.Build()
	require.NoError(t, err)

	data, err := MockInputs(g, 1)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Len(t, data["x"], 6)
	assert.Len(t, data["w"], 6)

	again, err := MockInputs(g, 1)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	other, err := MockInputs(g, 2)
	require.NoError(t, err)
	assert.NotEqual(t, data, other)
}

func TestMockInputsRejectsNonF64(t *testing.T) {
	b := graph.NewGraphBuilder()
	require.NoError(t, b.AddInput(&graph.VarMeta{Name: "ids", Shape: []int{4}, DType: graph.I64}))
	require.NoError(t, b.AddNode("identity", []string{"ids"}, "out", nil))
	g, err := b.Build()
	require.NoError(t, err)

	_, err = MockInputs(g, 1)
	assert.ErrorContains(t, err, "f64 only")
}
