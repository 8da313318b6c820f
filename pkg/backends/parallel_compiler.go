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
	goruntime "runtime"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/runtime"
	"github.com/secretflow/kiln/pkg/target"
)

const (
	PhaseRender = "render"
	PhaseLink   = "link"
)

// PhaseError tags a task failure with the phase it came from, callers
// map phases onto their error taxonomy.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// CompileTask is one group's codegen and link work.
type CompileTask struct {
	GroupIndex int
	FnName     string
	Funcs      []*ir.LoweredFunc
}

// TaskResult carries one compiled group back to the caller.
type TaskResult struct {
	GroupIndex int
	Source     string
	DeviceCode string
	Module     *Module
	Err        error
}

// ParallelCompiler fans per-group compilation out over a bounded
// worker pool. Workers share nothing but the engine cache, which locks
// internally, every other write lands in the worker's own result.
type ParallelCompiler struct {
	engine  *Engine
	codegen *Codegen
	workers int
}

func NewParallelCompiler(engine *Engine, tgt target.Target) *ParallelCompiler {
	return &ParallelCompiler{
		engine:  engine,
		codegen: NewCodegen(tgt),
		workers: goruntime.NumCPU(),
	}
}

// SetWorkers caps worker concurrency. Values below 1 reset the
// default.
func (pc *ParallelCompiler) SetWorkers(n int) {
	if n < 1 {
		n = goruntime.NumCPU()
	}
	pc.workers = n
}

// Compile runs all tasks and returns results in group order. Tasks
// must arrive in group order too. All tasks run to completion even
// when some fail, the returned error is the first failure by group
// order, not by completion time.
func (pc *ParallelCompiler) Compile(tasks []*CompileTask) ([]*TaskResult, error) {
	for i, task := range tasks {
		if task.GroupIndex != i {
			return nil, errors.Errorf("Compile: task %d carries group index %d, tasks must arrive in group order",
				i, task.GroupIndex)
		}
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	workers := pc.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	taskCh := make(chan *CompileTask, len(tasks))
	resultCh := make(chan *TaskResult, len(tasks))
	for w := 0; w < workers; w++ {
		go func() {
			for task := range taskCh {
				resultCh <- pc.compileOne(task)
			}
		}()
	}
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]*TaskResult, len(tasks))
	for range tasks {
		r := <-resultCh
		results[r.GroupIndex] = r
	}
	for _, r := range results {
		if r.Err != nil {
			return results, errors.Wrapf(r.Err, "Compile: group %d", r.GroupIndex)
		}
	}
	return results, nil
}

func (pc *ParallelCompiler) compileOne(task *CompileTask) *TaskResult {
	log.Debugf("Compiling group %d (%s)", task.GroupIndex, task.FnName)
	res := &TaskResult{GroupIndex: task.GroupIndex}

	src, err := pc.codegen.Render(task.Funcs)
	if err != nil {
		res.Err = &PhaseError{Phase: PhaseRender, Err: err}
		return res
	}
	res.Source = src

	device, err := pc.codegen.RenderDevice(task.Funcs)
	if err != nil {
		res.Err = &PhaseError{Phase: PhaseRender, Err: err}
		return res
	}
	res.DeviceCode = device

	// a previously linked identical unit is reused as is
	if m, ok := pc.engine.Lookup(src); ok {
		res.Module = m
		return res
	}

	kernels := make(map[string]runtime.KernelFunc, len(task.Funcs))
	for _, fn := range task.Funcs {
		k, err := BuildKernel(fn)
		if err != nil {
			res.Err = &PhaseError{Phase: PhaseLink, Err: err}
			return res
		}
		kernels[fn.Name] = k
	}
	m, err := pc.engine.Link(src, kernels)
	if err != nil {
		res.Err = &PhaseError{Phase: PhaseLink, Err: err}
		return res
	}
	res.Module = m
	return res
}
