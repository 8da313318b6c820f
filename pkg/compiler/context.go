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

	"github.com/secretflow/kiln/pkg/backends"
	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/runtime"
	"github.com/secretflow/kiln/pkg/target"
	"github.com/secretflow/kiln/pkg/tuning"
)

// Stage names the point after which Build stops early. Later stages
// include all earlier ones.
type Stage int

const (
	// StageLowering stops after lowered functions exist.
	StageLowering Stage = iota
	// StageCodegenAndJit stops after source rendering and kernel linking.
	StageCodegenAndJit
	// StageBuildInstruction stops after instructions exist, before any
	// variable post-processing.
	StageBuildInstruction
	// StageDefault runs the whole pipeline and yields a Program.
	StageDefault
)

func (s Stage) String() string {
	switch s {
	case StageLowering:
		return "lowering"
	case StageCodegenAndJit:
		return "codegen_and_jit"
	case StageBuildInstruction:
		return "build_instruction"
	case StageDefault:
		return "default"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// CompilationContext carries everything one compilation request needs:
// the graph, its fused groups, placement, variable stores and the
// knobs steering post-processing. A context belongs to a single build
// at a time.
type CompilationContext struct {
	Target target.Target
	Graph  *graph.Graph
	Groups []*graph.Group

	// Scope holds the request's tensors. Nil means the build creates a
	// fresh one.
	Scope *runtime.Scope

	// Engine caches linked modules across builds. Nil means the build
	// creates a private one, which makes attached-source builds miss.
	Engine *backends.Engine

	// FetchVarNames marks variables the caller wants to read back.
	// Fetched variables are never erased and never freed.
	FetchVarNames map[string]bool

	// ReuseVarsMap redirects a variable's storage to another variable.
	// Instructions reference the redirect target instead.
	ReuseVarsMap map[string]string

	// LoweredFuncs, when set, supplies precomputed functions and skips
	// strategy lowering. Its length must equal the group count. A nil
	// entry falls back to the strategy for that group.
	LoweredFuncs [][]*ir.LoweredFunc

	// AttachedSource, when set, supplies finished source text. The
	// build then only resolves kernels from the engine cache.
	AttachedSource string

	// Stage stops the build early. Defaults to StageDefault.
	Stage Stage

	// Strategy lowers groups to functions. Nil means DefaultStrategy.
	Strategy Strategy

	// Workers caps codegen parallelism. Zero or negative means one
	// worker per CPU.
	Workers int

	WithInstantiateVariables            bool
	WithBufferHandleInstructionInserted bool
	RemoveUnusedVariables               bool
}

// NewCompilationContext returns a context with the default knobs:
// variables are instantiated eagerly, unused variables are dropped and
// no buffer markers are woven in.
func NewCompilationContext(g *graph.Graph, groups []*graph.Group, tgt target.Target) *CompilationContext {
	return &CompilationContext{
		Target:                   tgt,
		Graph:                    g,
		Groups:                   groups,
		Stage:                    StageDefault,
		FetchVarNames:            make(map[string]bool),
		WithInstantiateVariables: true,
		RemoveUnusedVariables:    true,
	}
}

// Fetch marks variables for read-back and returns the context for
// chaining.
func (ctx *CompilationContext) Fetch(names ...string) *CompilationContext {
	if ctx.FetchVarNames == nil {
		ctx.FetchVarNames = make(map[string]bool, len(names))
	}
	for _, n := range names {
		ctx.FetchVarNames[n] = true
	}
	return ctx
}

// Apply folds an auto-tuning result into the context. Empty result
// fields leave the context untouched.
func (ctx *CompilationContext) Apply(tr *tuning.Result) {
	if tr == nil {
		return
	}
	if len(tr.Groups) > 0 {
		ctx.Groups = tr.Groups
	}
	if tr.Target != nil {
		ctx.Target = *tr.Target
	}
	if len(tr.LoweredFuncs) > 0 {
		ctx.LoweredFuncs = tr.LoweredFuncs
	}
}

// funcProvenance classifies where a build's lowered functions come
// from. Exactly one source wins per request.
type funcProvenance int

const (
	provenanceStrategy funcProvenance = iota
	provenancePrecomputed
	provenanceAttached
)

func (p funcProvenance) String() string {
	switch p {
	case provenanceStrategy:
		return "strategy"
	case provenancePrecomputed:
		return "precomputed"
	case provenanceAttached:
		return "attached"
	}
	return fmt.Sprintf("provenance(%d)", int(p))
}

// functionProvenance decides the function source for this request and
// rejects ambiguous or ill-sized combinations.
func (ctx *CompilationContext) functionProvenance() (funcProvenance, error) {
	if ctx.AttachedSource != "" && ctx.LoweredFuncs != nil {
		return 0, &RequestShapeError{Reason: "both attached source and precomputed functions supplied"}
	}
	if ctx.AttachedSource != "" {
		return provenanceAttached, nil
	}
	if ctx.LoweredFuncs != nil {
		if len(ctx.LoweredFuncs) != len(ctx.Groups) {
			return 0, &RequestShapeError{Reason: fmt.Sprintf(
				"precomputed function list holds %d entries, want %d groups",
				len(ctx.LoweredFuncs), len(ctx.Groups))}
		}
		return provenancePrecomputed, nil
	}
	return provenanceStrategy, nil
}

// CompilationResult bundles everything a build produced up to its
// stopping stage. Program is nil unless the build ran to StageDefault.
type CompilationResult struct {
	Program      *runtime.Program
	LoweredFuncs [][]*ir.LoweredFunc
	SourceCodes  []string
	DeviceCodes  []string
	Instructions []*runtime.Instruction
}
