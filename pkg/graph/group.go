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
	"fmt"
	"strings"

	"github.com/secretflow/kiln/pkg/util/sliceutil"
)

// Group is one fused unit of work. A group lowers to one function and
// runs as one instruction. Nodes keep their topological order.
// Compilation treats groups as read-only.
type Group struct {
	Index int
	Nodes []*Node
	// ImplHint overrides the implementation tag handed to the operator
	// strategy, empty means the master op decides.
	ImplHint string
}

// Master returns the node that names the group, the last one.
func (g *Group) Master() *Node {
	return g.Nodes[len(g.Nodes)-1]
}

// FnName returns the function symbol the group compiles to. Stable for
// a given (master op, index) pair, which makes compiled artifacts
// cacheable across builds.
func (g *Group) FnName() string {
	return fmt.Sprintf("fn_%s_%d", g.Master().Op, g.Index)
}

// NodeID returns the master node identity for diagnostics.
func (g *Group) NodeID() string {
	return g.Master().UniqueName()
}

// Impl returns the implementation tag for the operator strategy.
func (g *Group) Impl() string {
	if g.ImplHint != "" {
		return g.ImplHint
	}
	return g.Master().Op
}

// InputNames returns the variables the group consumes from outside,
// in first-reference order.
func (g *Group) InputNames() []string {
	internal := make(map[string]bool)
	var ins []string
	for _, n := range g.Nodes {
		for _, in := range n.Inputs {
			if !internal[in] {
				ins = append(ins, in)
			}
		}
		for _, out := range n.Outputs {
			internal[out] = true
		}
	}
	return sliceutil.SliceDeDup(ins)
}

// OutputNames returns every variable the group writes, in
// first-reference order. Intermediate values of multi-node groups are
// outputs too, the group kernel materializes all of them.
func (g *Group) OutputNames() []string {
	var outs []string
	for _, n := range g.Nodes {
		outs = append(outs, n.Outputs...)
	}
	return sliceutil.SliceDeDup(outs)
}

func (g *Group) String() string {
	names := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		names = append(names, n.UniqueName())
	}
	return fmt.Sprintf("Group#%d{fn: %s, nodes: [%s]}", g.Index, g.FnName(), strings.Join(names, ", "))
}
