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

// Graph is an operator graph assembled by GraphBuilder. Compilation
// reads it but never mutates it, several compilations may share one
// Graph value.
type Graph struct {
	nodes    []*Node
	varMetas map[string]*VarMeta
	producer map[string]*Node
	inputs   []string
	outputs  []string
}

// Nodes returns nodes in insertion order, which is a valid topological
// order by construction.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// VarMeta looks up the metadata of a named variable.
func (g *Graph) VarMeta(name string) (*VarMeta, bool) {
	m, ok := g.varMetas[name]
	return m, ok
}

// HasVar reports whether name is a graph variable.
func (g *Graph) HasVar(name string) bool {
	_, ok := g.varMetas[name]
	return ok
}

// VarNames returns all variable names in ascending order.
func (g *Graph) VarNames() []string {
	return sliceutil.SortedKeys(g.varMetas)
}

// Vars returns all variable metas sorted by name.
func (g *Graph) Vars() []*VarMeta {
	metas := make([]*VarMeta, 0, len(g.varMetas))
	for m := range sliceutil.ValueSortedByMapKey(g.varMetas) {
		metas = append(metas, m)
	}
	return metas
}

// Producer returns the node writing the named variable, nil for graph
// inputs.
func (g *Graph) Producer(name string) *Node {
	return g.producer[name]
}

// InputNames returns declared graph inputs in declaration order.
func (g *Graph) InputNames() []string {
	return g.inputs
}

// OutputNames returns marked graph outputs in marking order.
func (g *Graph) OutputNames() []string {
	return g.outputs
}

func (g *Graph) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Graph{nodes: %d, vars: %d}\n", len(g.nodes), len(g.varMetas)))
	sb.WriteString(fmt.Sprintf("  inputs: [%s]\n", strings.Join(g.inputs, ", ")))
	sb.WriteString(fmt.Sprintf("  outputs: [%s]\n", strings.Join(g.outputs, ", ")))
	for _, n := range g.nodes {
		sb.WriteString("  ")
		sb.WriteString(n.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
