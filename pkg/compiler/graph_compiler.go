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
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/secretflow/kiln/pkg/backends"
	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/runtime"
	"github.com/secretflow/kiln/pkg/util/sliceutil"
)

// GraphCompiler drives one compilation request through lowering,
// codegen and instruction building. It accumulates stage results, so
// give each request its own instance and hold it by pointer, a copy
// would split that state.
type GraphCompiler struct {
	ctx      *CompilationContext
	strategy Strategy
	engine   *backends.Engine

	validated bool
	prov      funcProvenance
	aliases   map[string]string
	fetch     map[string]bool

	funcs   [][]*ir.LoweredFunc
	sources []string
	devices []string
	modules []*backends.Module
	instrs  []*runtime.Instruction
}

func NewGraphCompiler(ctx *CompilationContext) *GraphCompiler {
	return &GraphCompiler{ctx: ctx}
}

// Engine returns the module cache this build links against. Handing it
// to a later context lets that build reuse compiled artifacts.
func (gc *GraphCompiler) Engine() *backends.Engine {
	return gc.engine
}

// Build runs the pipeline up to the context's stage and returns
// whatever exists at that point. Program is nil unless the build ran
// to StageDefault. The first failing stage aborts the build.
func (gc *GraphCompiler) Build() (*CompilationResult, error) {
	if err := gc.runStage("validate_request", gc.ensureValidated); err != nil {
		return nil, err
	}
	if err := gc.runStage("build_scope", gc.BuildScope); err != nil {
		return nil, err
	}
	if err := gc.runStage("lowering", gc.Lowering); err != nil {
		return nil, err
	}
	if gc.ctx.Stage == StageLowering {
		return gc.result(nil), nil
	}
	if err := gc.runStage("codegen_and_jit", gc.CodegenAndJit); err != nil {
		return nil, err
	}
	if gc.ctx.Stage == StageCodegenAndJit {
		return gc.result(nil), nil
	}
	if err := gc.runStage("build_instruction", gc.BuildInstruction); err != nil {
		return nil, err
	}
	if gc.ctx.Stage == StageBuildInstruction {
		return gc.result(nil), nil
	}
	var program *runtime.Program
	if err := gc.runStage("finalize", func() error {
		p, err := gc.finalize()
		program = p
		return err
	}); err != nil {
		return nil, err
	}
	return gc.result(program), nil
}

// BuildFromSource builds against previously compiled source text
// instead of lowering the graph. The engine must already hold the
// module for exactly this text, which means the context has to share
// the engine of an earlier build. Call it on a fresh compiler.
func (gc *GraphCompiler) BuildFromSource(src string) (*CompilationResult, error) {
	gc.ctx.AttachedSource = src
	return gc.Build()
}

func (gc *GraphCompiler) runStage(name string, fn func() error) error {
	log.Debugf("Build stage: %s", name)
	if err := fn(); err != nil {
		return fmt.Errorf("[%s] failed: %w", name, err)
	}
	return nil
}

func (gc *GraphCompiler) ensureValidated() error {
	if gc.validated {
		return nil
	}
	return gc.validateRequest()
}

// validateRequest rejects malformed requests before any stage spends
// work on them and fixes the derived state later stages share: the
// effective fetch set, resolved aliases, strategy and engine.
func (gc *GraphCompiler) validateRequest() error {
	ctx := gc.ctx
	if ctx == nil {
		return &RequestShapeError{Reason: "nil compilation context"}
	}
	if ctx.Graph == nil {
		return &RequestShapeError{Reason: "nil graph"}
	}
	if len(ctx.Groups) == 0 {
		return &RequestShapeError{Reason: "no groups to compile"}
	}
	for i, grp := range ctx.Groups {
		if grp == nil || len(grp.Nodes) == 0 {
			return &RequestShapeError{Reason: fmt.Sprintf("group at position %d is empty", i)}
		}
		if grp.Index != i {
			return &RequestShapeError{Reason: fmt.Sprintf(
				"group at position %d carries index %d, want contiguous indices", i, grp.Index)}
		}
		for _, name := range grp.InputNames() {
			if !ctx.Graph.HasVar(name) {
				return &RequestShapeError{Reason: fmt.Sprintf(
					"group %d reads unknown variable %s", i, name)}
			}
		}
		for _, name := range grp.OutputNames() {
			if !ctx.Graph.HasVar(name) {
				return &RequestShapeError{Reason: fmt.Sprintf(
					"group %d writes unknown variable %s", i, name)}
			}
		}
	}

	for _, name := range sliceutil.SortedKeys(ctx.FetchVarNames) {
		if !ctx.FetchVarNames[name] {
			continue
		}
		if !ctx.Graph.HasVar(name) {
			return &RequestShapeError{Reason: fmt.Sprintf(
				"fetch variable %s does not exist in the graph", name)}
		}
	}
	gc.fetch = make(map[string]bool, len(ctx.FetchVarNames))
	for name, on := range ctx.FetchVarNames {
		if on {
			gc.fetch[name] = true
		}
	}
	for _, name := range ctx.Graph.OutputNames() {
		gc.fetch[name] = true
	}

	for _, alias := range sliceutil.SortedKeys(ctx.ReuseVarsMap) {
		if !ctx.Graph.HasVar(alias) {
			return &RequestShapeError{Reason: fmt.Sprintf(
				"reuse source %s is not a graph variable", alias)}
		}
		if tgt := ctx.ReuseVarsMap[alias]; !ctx.Graph.HasVar(tgt) {
			return &RequestShapeError{Reason: fmt.Sprintf(
				"reuse target %s is not a graph variable", tgt)}
		}
	}
	aliases, err := resolveAliases(ctx.ReuseVarsMap)
	if err != nil {
		return err
	}
	for _, alias := range sliceutil.SortedKeys(aliases) {
		if gc.fetch[alias] {
			return &RequestShapeError{Reason: fmt.Sprintf(
				"fetched variable %s must keep its own storage, remove it from the reuse map", alias)}
		}
		root := aliases[alias]
		am, _ := ctx.Graph.VarMeta(alias)
		rm, _ := ctx.Graph.VarMeta(root)
		if am.DType != rm.DType || am.Numel() != rm.Numel() {
			return &RequestShapeError{Reason: fmt.Sprintf(
				"variable %s cannot reuse storage of %s, %s vs %s", alias, root, am, rm)}
		}
	}
	gc.aliases = aliases

	prov, err := ctx.functionProvenance()
	if err != nil {
		return err
	}
	gc.prov = prov

	gc.strategy = ctx.Strategy
	if gc.strategy == nil {
		gc.strategy = NewDefaultStrategy()
	}
	gc.engine = ctx.Engine
	if gc.engine == nil {
		gc.engine = backends.NewEngine()
	}
	gc.validated = true
	return nil
}

// resolveAliases flattens reuse chains to their storage roots and
// rejects cycles.
func resolveAliases(reuse map[string]string) (map[string]string, error) {
	if len(reuse) == 0 {
		return nil, nil
	}
	resolved := make(map[string]string, len(reuse))
	for _, alias := range sliceutil.SortedKeys(reuse) {
		seen := map[string]bool{alias: true}
		root := alias
		for {
			next, ok := reuse[root]
			if !ok {
				break
			}
			if seen[next] {
				return nil, &RequestShapeError{Reason: fmt.Sprintf(
					"variable reuse chain starting at %s forms a cycle", alias)}
			}
			seen[next] = true
			root = next
		}
		resolved[alias] = root
	}
	return resolved, nil
}

func (gc *GraphCompiler) substitute(name string) string {
	if root, ok := gc.aliases[name]; ok {
		return root
	}
	return name
}

func (gc *GraphCompiler) substituteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = gc.substitute(n)
	}
	return out
}

// BuildScope ensures every graph variable has a scope slot carrying
// its metadata. An existing scope is kept, its variables must agree
// with the graph.
func (gc *GraphCompiler) BuildScope() error {
	if err := gc.ensureValidated(); err != nil {
		return err
	}
	if gc.ctx.Scope == nil {
		gc.ctx.Scope = runtime.NewScope()
	}
	for _, m := range gc.ctx.Graph.Vars() {
		if _, err := gc.ctx.Scope.Var(m); err != nil {
			return &RequestShapeError{Reason: err.Error()}
		}
	}
	return nil
}

// Lowering turns every group into lowered functions. Precomputed
// entries are adopted as is, a nil entry falls back to the strategy
// for that group. Requests carrying attached source skip lowering.
func (gc *GraphCompiler) Lowering() error {
	if err := gc.ensureValidated(); err != nil {
		return err
	}
	if gc.prov == provenanceAttached {
		log.Debugf("Lowering: skipped, request carries attached source")
		return nil
	}
	funcs := make([][]*ir.LoweredFunc, len(gc.ctx.Groups))
	for i, grp := range gc.ctx.Groups {
		var fns []*ir.LoweredFunc
		if gc.prov == provenancePrecomputed && gc.ctx.LoweredFuncs[i] != nil {
			fns = gc.ctx.LoweredFuncs[i]
			for _, fn := range fns {
				if fn == nil {
					return &LoweringFailure{GroupIndex: i, FnName: grp.FnName(),
						Cause: fmt.Errorf("precomputed entry holds a nil function")}
				}
				if err := fn.Validate(); err != nil {
					return &LoweringFailure{GroupIndex: i, FnName: grp.FnName(), Cause: err}
				}
			}
		} else {
			var err error
			fns, err = gc.strategy.LowerGroup(gc.lowerRequest(grp))
			if err != nil {
				return &LoweringFailure{GroupIndex: i, FnName: grp.FnName(), Cause: err}
			}
		}
		if len(fns) == 0 {
			return &LoweringFailure{GroupIndex: i, FnName: grp.FnName(),
				Cause: fmt.Errorf("no lowered functions produced")}
		}
		funcs[i] = fns
	}
	gc.funcs = funcs
	return nil
}

func (gc *GraphCompiler) lowerRequest(grp *graph.Group) *LowerRequest {
	master := grp.Master()
	var packed []*graph.Attribute
	for a := range sliceutil.ValueSortedByMapKey(master.Attrs) {
		packed = append(packed, a)
	}
	toTensors := func(names []string) []ir.Tensor {
		ts := make([]ir.Tensor, 0, len(names))
		for _, name := range names {
			if m, ok := gc.ctx.Graph.VarMeta(name); ok {
				ts = append(ts, ir.TensorFromMeta(m))
			}
		}
		return ts
	}
	return &LowerRequest{
		Impl:        grp.Impl(),
		PackedAttrs: packed,
		Inputs:      toTensors(grp.InputNames()),
		Outputs:     toTensors(grp.OutputNames()),
		NodeID:      grp.NodeID(),
		FnName:      grp.FnName(),
		Target:      gc.ctx.Target,
		Nodes:       grp.Nodes,
	}
}

// CodegenAndJit renders each group's functions and links them into
// callable modules, groups compile in parallel over a bounded pool.
// Attached source resolves its module from the engine cache instead.
func (gc *GraphCompiler) CodegenAndJit() error {
	if err := gc.ensureValidated(); err != nil {
		return err
	}
	if gc.prov == provenanceAttached {
		return gc.loadAttachedSource()
	}
	if gc.funcs == nil {
		if err := gc.Lowering(); err != nil {
			return err
		}
	}

	tasks := make([]*backends.CompileTask, len(gc.ctx.Groups))
	for i, grp := range gc.ctx.Groups {
		tasks[i] = &backends.CompileTask{GroupIndex: i, FnName: grp.FnName(), Funcs: gc.funcs[i]}
	}
	pc := backends.NewParallelCompiler(gc.engine, gc.ctx.Target)
	if gc.ctx.Workers > 0 {
		pc.SetWorkers(gc.ctx.Workers)
	}
	results, err := pc.Compile(tasks)
	if err != nil {
		for _, r := range results {
			if r == nil || r.Err == nil {
				continue
			}
			var pe *backends.PhaseError
			if errors.As(r.Err, &pe) && pe.Phase == backends.PhaseLink {
				return &LoadFailure{FnName: gc.ctx.Groups[r.GroupIndex].FnName(), Cause: pe.Err}
			}
			return &CodegenFailure{GroupIndex: r.GroupIndex, Cause: r.Err}
		}
		return &CodegenFailure{GroupIndex: -1, Cause: err}
	}

	sources := make([]string, len(results))
	devices := make([]string, len(results))
	modules := make([]*backends.Module, len(results))
	for i, r := range results {
		sources[i] = r.Source
		devices[i] = r.DeviceCode
		modules[i] = r.Module
	}
	gc.sources, gc.devices, gc.modules = sources, devices, modules
	return nil
}

func (gc *GraphCompiler) loadAttachedSource() error {
	m, ok := gc.engine.Lookup(gc.ctx.AttachedSource)
	if !ok {
		return &LoadFailure{Cause: fmt.Errorf(
			"attached source has no cached module, compile it against this engine first")}
	}
	log.Debugf("CodegenAndJit: reusing cached module %s for attached source", m.Digest[:12])
	gc.sources = []string{gc.ctx.AttachedSource}
	gc.devices = nil
	modules := make([]*backends.Module, len(gc.ctx.Groups))
	for i := range modules {
		modules[i] = m
	}
	gc.modules = modules
	return nil
}

// BuildInstruction emits exactly one instruction per group. Argument
// names go through reuse substitution, argument order follows the
// group function's parameter order.
func (gc *GraphCompiler) BuildInstruction() error {
	if err := gc.ensureValidated(); err != nil {
		return err
	}
	if gc.ctx.Scope == nil {
		if err := gc.BuildScope(); err != nil {
			return err
		}
	}
	if gc.modules == nil {
		if err := gc.CodegenAndJit(); err != nil {
			return err
		}
	}
	instrs := make([]*runtime.Instruction, 0, len(gc.ctx.Groups))
	for i, grp := range gc.ctx.Groups {
		instr, err := gc.buildGroupInstruction(i, grp)
		if err != nil {
			return err
		}
		instrs = append(instrs, instr)
	}
	gc.instrs = instrs
	return nil
}

func (gc *GraphCompiler) buildGroupInstruction(i int, grp *graph.Group) (*runtime.Instruction, error) {
	inNames := grp.InputNames()
	outNames := grp.OutputNames()
	fnName := grp.FnName()
	module := gc.modules[i]

	var kernel runtime.KernelFunc
	if gc.prov == provenanceAttached {
		k, ok := module.Kernel(fnName)
		if !ok {
			return nil, &LoadFailure{FnName: fnName,
				Cause: fmt.Errorf("attached module does not export the function")}
		}
		kernel = k
	} else {
		// every function of a multi-function group must share the
		// group's parameter list, they run back to back over one
		// argument vector
		fns := gc.funcs[i]
		for _, fn := range fns {
			if err := ir.CheckArgumentBinding(fn, inNames, outNames); err != nil {
				return nil, &BindingFailure{FnName: fn.Name, Reason: err.Error()}
			}
		}
		kernels := make([]runtime.KernelFunc, len(fns))
		for j, fn := range fns {
			k, ok := module.Kernel(fn.Name)
			if !ok {
				return nil, &LoadFailure{FnName: fn.Name,
					Cause: fmt.Errorf("module %s does not export the function", module.Digest[:12])}
			}
			kernels[j] = k
		}
		kernel = composeKernels(kernels)
		fnName = fns[0].Name
	}

	in := gc.substituteAll(inNames)
	out := gc.substituteAll(outNames)
	for _, name := range append(append([]string{}, in...), out...) {
		if !gc.ctx.Scope.HasVar(name) {
			return nil, &BindingFailure{FnName: fnName, VarName: name, Reason: "not present in scope"}
		}
	}
	return runtime.NewComputeInstruction(fnName, kernel, in, out), nil
}

// composeKernels chains a group's kernels over one argument vector.
func composeKernels(kernels []runtime.KernelFunc) runtime.KernelFunc {
	if len(kernels) == 1 {
		return kernels[0]
	}
	return func(args []*runtime.Tensor) error {
		for _, k := range kernels {
			if err := k(args); err != nil {
				return err
			}
		}
		return nil
	}
}

// finalize applies the context's variable post-processing and wraps
// the schedule into a Program.
func (gc *GraphCompiler) finalize() (*runtime.Program, error) {
	final := gc.instrs
	if gc.ctx.RemoveUnusedVariables {
		RemoveInvalidVariables(gc.ctx.Scope, final, gc.fetch)
	}
	if gc.ctx.WithInstantiateVariables {
		if err := InstantiateVariables(gc.ctx.Scope, final); err != nil {
			return nil, err
		}
	}
	if gc.ctx.WithBufferHandleInstructionInserted {
		withMarkers, err := InsertBufferHandlers(final, gc.fetch)
		if err != nil {
			return nil, err
		}
		final = withMarkers
	}
	gc.instrs = final
	return runtime.NewProgram(gc.ctx.Scope, final), nil
}

func (gc *GraphCompiler) result(program *runtime.Program) *CompilationResult {
	return &CompilationResult{
		Program:      program,
		LoweredFuncs: gc.funcs,
		SourceCodes:  gc.sources,
		DeviceCodes:  gc.devices,
		Instructions: gc.instrs,
	}
}
