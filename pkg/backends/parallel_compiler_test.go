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

package backends

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/target"
)

func unaryTask(idx int, op string) *CompileTask {
	fnName := fmt.Sprintf("fn_%s_%d", op, idx)
	fn := &ir.LoweredFunc{
		Name: fnName,
		Args: []ir.Argument{
			{Tensor: ir.Tensor{Name: "x", Shape: []int{4}, DType: graph.F64}, Role: ir.ArgInput},
			{Tensor: ir.Tensor{Name: "y", Shape: []int{4}, DType: graph.F64}, Role: ir.ArgOutput},
		},
		Body: []ir.Stmt{{Op: op, Dest: "y", Args: []string{"x"}}},
	}
	return &CompileTask{GroupIndex: idx, FnName: fnName, Funcs: []*ir.LoweredFunc{fn}}
}

func TestParallelCompile(t *testing.T) {
	pc := NewParallelCompiler(NewEngine(), target.HostTarget())
	tasks := []*CompileTask{
		unaryTask(0, "relu"),
		unaryTask(1, "exp"),
		unaryTask(2, "neg"),
	}

	results, err := pc.Compile(tasks)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// results come back in group order with linked kernels
	for i, r := range results {
		assert.Equal(t, i, r.GroupIndex)
		assert.Contains(t, r.Source, tasks[i].FnName)
		assert.Empty(t, r.DeviceCode)
		require.NotNil(t, r.Module)
		_, ok := r.Module.Kernel(tasks[i].FnName)
		assert.True(t, ok)
	}
}

func TestParallelCompileSingleWorker(t *testing.T) {
	pc := NewParallelCompiler(NewEngine(), target.HostTarget())
	pc.SetWorkers(1)

	results, err := pc.Compile([]*CompileTask{unaryTask(0, "relu"), unaryTask(1, "exp")})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestParallelCompileDeviceCode(t *testing.T) {
	pc := NewParallelCompiler(NewEngine(), target.AccelTarget("sm_80"))
	results, err := pc.Compile([]*CompileTask{unaryTask(0, "relu")})
	require.NoError(t, err)
	assert.Contains(t, results[0].DeviceCode, "__global__")
}

func TestParallelCompileCacheReuse(t *testing.T) {
	e := NewEngine()
	pc := NewParallelCompiler(e, target.HostTarget())

	// same function body in two groups renders identical source
	t0 := unaryTask(0, "relu")
	t1 := unaryTask(1, "relu")
	t1.Funcs[0].Name = t0.Funcs[0].Name
	t1.FnName = t0.FnName

	results, err := pc.Compile([]*CompileTask{t0, t1})
	require.NoError(t, err)
	assert.Same(t, results[0].Module, results[1].Module)

	hits, misses := e.CacheStats()
	assert.Equal(t, 1, misses)
	assert.GreaterOrEqual(t, hits, 1)
}

func TestParallelCompileFailure(t *testing.T) {
	pc := NewParallelCompiler(NewEngine(), target.HostTarget())

	bad := unaryTask(1, "relu")
	bad.Funcs[0].Body[0].Op = "fancy_conv"
	results, err := pc.Compile([]*CompileTask{unaryTask(0, "relu"), bad})
	require.Error(t, err)

	// the failure is tagged with its phase
	var phaseErr *PhaseError
	require.True(t, errors.As(err, &phaseErr))
	assert.Equal(t, PhaseRender, phaseErr.Phase)

	// healthy groups still compiled
	require.NotNil(t, results)
	assert.NotNil(t, results[0].Module)
	assert.Error(t, results[1].Err)
}

func TestParallelCompileTaskOrder(t *testing.T) {
	pc := NewParallelCompiler(NewEngine(), target.HostTarget())
	_, err := pc.Compile([]*CompileTask{unaryTask(1, "relu")})
	assert.ErrorContains(t, err, "group order")

	// empty input is a no-op
	results, err := pc.Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}
