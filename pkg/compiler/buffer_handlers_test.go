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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/runtime"
)

// markerTrace renders a schedule compactly for assertions.
func markerTrace(instrs []*runtime.Instruction) []string {
	out := make([]string, len(instrs))
	for i, instr := range instrs {
		switch instr.Kind {
		case runtime.InstrCompute:
			out[i] = "compute " + instr.FnName
		default:
			out[i] = fmt.Sprintf("%s %s", instr.Kind, instr.VarName())
		}
	}
	return out
}

func namedStep(fn string, in []string, out []string) *runtime.Instruction {
	return runtime.NewComputeInstruction(fn, nil, in, out)
}

func TestInsertBufferHandlersWeave(t *testing.T) {
	r := require.New(t)

	instrs := []*runtime.Instruction{
		namedStep("f0", []string{"x"}, []string{"y0"}),
		namedStep("f1", []string{"y0"}, []string{"y1"}),
	}
	woven, err := InsertBufferHandlers(instrs, map[string]bool{"y1": true})
	r.NoError(err)

	r.Equal([]string{
		"alloc x",
		"alloc y0",
		"compute f0",
		"free x",
		"alloc y1",
		"compute f1",
		"free y0",
	}, markerTrace(woven))
}

func TestFilterBufferMarkersRestoresSchedule(t *testing.T) {
	r := require.New(t)

	instrs := []*runtime.Instruction{
		namedStep("f0", []string{"x"}, []string{"y0"}),
		namedStep("f1", []string{"y0"}, []string{"y1"}),
		namedStep("f2", []string{"y1"}, []string{"y2"}),
	}
	woven, err := InsertBufferHandlers(instrs, nil)
	r.NoError(err)
	r.Greater(len(woven), len(instrs))

	// stripping the markers must give back the exact compute sequence
	r.Equal(instrs, FilterBufferMarkers(woven))
}

func TestSingleStepVariableMarkersAreAdjacent(t *testing.T) {
	r := require.New(t)

	// zz lives only inside step 0, so its markers must hug that step
	instrs := []*runtime.Instruction{
		namedStep("f0", []string{"x"}, []string{"zz"}),
		namedStep("f1", []string{"x"}, []string{"y"}),
	}
	woven, err := InsertBufferHandlers(instrs, map[string]bool{"y": true})
	r.NoError(err)

	r.Equal([]string{
		"alloc x",
		"alloc zz",
		"compute f0",
		"free zz",
		"alloc y",
		"compute f1",
		"free x",
	}, markerTrace(woven))
}

func TestInstantiateVariables(t *testing.T) {
	r := require.New(t)

	scope := runtime.NewScope()
	a, err := scope.Var(&graph.VarMeta{Name: "a", Shape: []int{3}, DType: graph.F64})
	r.NoError(err)
	b, err := scope.Var(&graph.VarMeta{Name: "b", Shape: []int{3}, DType: graph.F64})
	r.NoError(err)
	r.False(a.Instantiated())

	instrs := []*runtime.Instruction{namedStep("f0", []string{"a"}, []string{"b"})}
	r.NoError(InstantiateVariables(scope, instrs))
	r.True(a.Instantiated())
	r.True(b.Instantiated())

	// a schedule referencing an unknown variable cannot bind
	bad := []*runtime.Instruction{namedStep("f0", []string{"ghost"}, []string{"b"})}
	err = InstantiateVariables(scope, bad)
	var bf *BindingFailure
	r.ErrorAs(err, &bf)
	r.Equal("ghost", bf.VarName)
}

func TestRemoveInvalidVariables(t *testing.T) {
	r := require.New(t)

	scope := runtime.NewScope()
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := scope.Var(&graph.VarMeta{Name: name, Shape: []int{2}, DType: graph.F64})
		r.NoError(err)
	}

	instrs := []*runtime.Instruction{namedStep("f0", []string{"a"}, []string{"b"})}
	RemoveInvalidVariables(scope, instrs, map[string]bool{"c": true})

	// referenced and fetched variables survive, the rest is gone
	assert.Equal(t, []string{"a", "b", "c"}, scope.VarNames())
	assert.False(t, scope.HasVar("d"))
}
