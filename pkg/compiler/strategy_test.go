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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/target"
)

func vec(name string, n int) ir.Tensor {
	return ir.Tensor{Name: name, Shape: []int{n}, DType: graph.F64}
}

func TestDefaultStrategySingleNode(t *testing.T) {
	r := require.New(t)

	req := &LowerRequest{
		Impl:    "relu",
		Inputs:  []ir.Tensor{vec("x", 4)},
		Outputs: []ir.Tensor{vec("y", 4)},
		NodeID:  "op_relu_0",
		FnName:  "fn_relu_0",
		Target:  target.HostTarget(),
		Nodes: []*graph.Node{
			{ID: 0, Op: "relu", Inputs: []string{"x"}, Outputs: []string{"y"}},
		},
	}
	fns, err := NewDefaultStrategy().LowerGroup(req)
	r.NoError(err)
	r.Len(fns, 1)

	fn := fns[0]
	r.Equal("fn_relu_0", fn.Name)
	r.Equal([]string{"x", "y"}, fn.ParamNames())
	r.Equal([]string{"x"}, fn.InputNames())
	r.Equal([]string{"y"}, fn.OutputNames())
	r.Len(fn.Body, 1)
	r.Equal("relu", fn.Body[0].Op)
	r.Equal("y", fn.Body[0].Dest)
}

func TestDefaultStrategyFusedGroup(t *testing.T) {
	r := require.New(t)

	// u = relu(x); y = mul(u, x), lowered as one two-statement function
	req := &LowerRequest{
		Impl:    "mul",
		Inputs:  []ir.Tensor{vec("x", 4)},
		Outputs: []ir.Tensor{vec("u", 4), vec("y", 4)},
		NodeID:  "op_mul_1",
		FnName:  "fn_mul_0",
		Target:  target.HostTarget(),
		Nodes: []*graph.Node{
			{ID: 0, Op: "relu", Inputs: []string{"x"}, Outputs: []string{"u"}},
			{ID: 1, Op: "mul", Inputs: []string{"u", "x"}, Outputs: []string{"y"}},
		},
	}
	fns, err := NewDefaultStrategy().LowerGroup(req)
	r.NoError(err)
	r.Len(fns, 1)

	fn := fns[0]
	r.Equal([]string{"x", "u", "y"}, fn.ParamNames())
	r.Len(fn.Body, 2)
	r.Equal("u", fn.Body[0].Dest)
	r.Equal("y", fn.Body[1].Dest)
	r.Equal([]string{"u", "x"}, fn.Body[1].Args)
}

func TestDefaultStrategyAttrFlattening(t *testing.T) {
	r := require.New(t)

	attrs := map[string]*graph.Attribute{
		"scale": graph.FloatAttr(2.5),
		"bias":  graph.IntAttr(1),
		"label": graph.StringAttr("ignored"),
	}
	req := &LowerRequest{
		Impl:    "scale",
		Inputs:  []ir.Tensor{vec("x", 3)},
		Outputs: []ir.Tensor{vec("y", 3)},
		FnName:  "fn_scale_0",
		Target:  target.HostTarget(),
		Nodes: []*graph.Node{
			{ID: 0, Op: "scale", Inputs: []string{"x"}, Outputs: []string{"y"}, Attrs: attrs},
		},
	}
	fns, err := NewDefaultStrategy().LowerGroup(req)
	r.NoError(err)

	got := fns[0].Body[0].Attrs
	r.Equal(map[string]float64{"scale": 2.5, "bias": 1}, got)
}

func TestDefaultStrategyErrors(t *testing.T) {
	s := NewDefaultStrategy()

	_, err := s.LowerGroup(nil)
	assert.ErrorContains(t, err, "nil request")

	_, err = s.LowerGroup(&LowerRequest{FnName: "fn_x_0"})
	assert.ErrorContains(t, err, "empty group")

	_, err = s.LowerGroup(&LowerRequest{
		FnName:  "fn_fancy_0",
		Inputs:  []ir.Tensor{vec("x", 2)},
		Outputs: []ir.Tensor{vec("y", 2)},
		Nodes: []*graph.Node{
			{ID: 0, Op: "fancy", Inputs: []string{"x"}, Outputs: []string{"y"}},
		},
	})
	assert.ErrorContains(t, err, "not lowerable")

	_, err = s.LowerGroup(&LowerRequest{
		FnName: "fn_relu_0",
		Inputs: []ir.Tensor{vec("x", 2)},
		Nodes: []*graph.Node{
			{ID: 0, Op: "relu", Inputs: []string{"x"}, Outputs: []string{"a", "b"}},
		},
	})
	assert.ErrorContains(t, err, "exactly one output")
}
