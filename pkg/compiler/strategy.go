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

	log "github.com/sirupsen/logrus"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/target"
	"github.com/secretflow/kiln/pkg/util/sliceutil"
)

// LowerRequest carries one group's lowering inputs. Inputs and
// Outputs follow the group's argument order, which is also the
// parameter order of every function the strategy emits.
type LowerRequest struct {
	// Impl names the implementation the group was fused for. Defaults
	// to the master node's op.
	Impl string
	// PackedAttrs holds the master node's attributes in key order.
	PackedAttrs []*graph.Attribute
	Inputs      []ir.Tensor
	Outputs     []ir.Tensor
	// NodeID identifies the group's master node.
	NodeID string
	FnName string
	Target target.Target
	// Nodes lists the fused nodes in schedule order.
	Nodes []*graph.Node
}

// Strategy turns a fused group into lowered functions. Implementations
// must be pure: the compiler may invoke them for any group in any
// order, and a group must always yield at least one function.
type Strategy interface {
	LowerGroup(req *LowerRequest) ([]*ir.LoweredFunc, error)
}

// DefaultStrategy lowers every node of a group to one statement and
// emits a single function per group whose parameters are the group
// inputs followed by the group outputs.
type DefaultStrategy struct {
	ops map[string]bool
}

// NewDefaultStrategy returns a strategy covering the built-in op set.
func NewDefaultStrategy() *DefaultStrategy {
	ops := make(map[string]bool)
	for _, op := range graph.SupportedOps() {
		ops[op] = true
	}
	return &DefaultStrategy{ops: ops}
}

func (s *DefaultStrategy) LowerGroup(req *LowerRequest) ([]*ir.LoweredFunc, error) {
	if req == nil {
		return nil, fmt.Errorf("LowerGroup: nil request")
	}
	if len(req.Nodes) == 0 {
		return nil, fmt.Errorf("LowerGroup: %v: empty group", req.FnName)
	}
	log.Debugf("DefaultStrategy: lowering %v impl=%v nodes=%v", req.FnName, req.Impl, len(req.Nodes))

	args := make([]ir.Argument, 0, len(req.Inputs)+len(req.Outputs))
	for _, t := range req.Inputs {
		args = append(args, ir.Argument{Tensor: t, Role: ir.ArgInput})
	}
	for _, t := range req.Outputs {
		args = append(args, ir.Argument{Tensor: t, Role: ir.ArgOutput})
	}

	body := make([]ir.Stmt, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		if !s.ops[n.Op] {
			return nil, fmt.Errorf("LowerGroup: op %v is not lowerable", n.Op)
		}
		if len(n.Outputs) != 1 {
			return nil, fmt.Errorf("LowerGroup: node %v must have exactly one output, got %v",
				n.UniqueName(), len(n.Outputs))
		}
		body = append(body, ir.Stmt{
			Op:    n.Op,
			Dest:  n.Outputs[0],
			Args:  append([]string(nil), n.Inputs...),
			Attrs: flattenAttrs(n.Attrs),
		})
	}

	fn := &ir.LoweredFunc{Name: req.FnName, Args: args, Body: body}
	if err := fn.Validate(); err != nil {
		return nil, fmt.Errorf("LowerGroup: %v", err)
	}
	return []*ir.LoweredFunc{fn}, nil
}

// flattenAttrs projects numeric node attributes into the scalar form
// statements carry. String attributes do not reach codegen.
func flattenAttrs(attrs map[string]*graph.Attribute) map[string]float64 {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]float64, len(attrs))
	for k, a := range sliceutil.SortedMap(attrs) {
		if v, ok := a.GetFloat(); ok {
			out[k] = v
			continue
		}
		if v, ok := a.GetInt(); ok {
			out[k] = float64(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
