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
)

// GraphBuilder assembles a Graph. Nodes must be added after the
// variables they consume, which keeps the node list topologically
// ordered and the graph acyclic by construction.
type GraphBuilder struct {
	nodes    []*Node
	varMetas map[string]*VarMeta
	producer map[string]*Node
	inputs   []string
	outputs  []string
	nextID   int
}

func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		varMetas: make(map[string]*VarMeta),
		producer: make(map[string]*Node),
	}
}

// AddInput declares a graph input variable.
func (b *GraphBuilder) AddInput(meta *VarMeta) error {
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("AddInput: %v", err)
	}
	if _, ok := b.varMetas[meta.Name]; ok {
		return fmt.Errorf("AddInput: variable %q already defined", meta.Name)
	}
	b.varMetas[meta.Name] = meta.Clone()
	b.inputs = append(b.inputs, meta.Name)
	return nil
}

// AddNode appends an operator writing output from inputs. The output
// metadata is inferred from the input metas and the op rule.
func (b *GraphBuilder) AddNode(op string, inputs []string, output string, attrs map[string]*Attribute) error {
	if output == "" {
		return fmt.Errorf("AddNode: op %q has empty output name", op)
	}
	if _, ok := b.varMetas[output]; ok {
		// one producer per variable
		return fmt.Errorf("AddNode: variable %q already defined", output)
	}
	inMetas := make([]*VarMeta, 0, len(inputs))
	for _, in := range inputs {
		m, ok := b.varMetas[in]
		if !ok {
			return fmt.Errorf("AddNode: op %q reads undefined variable %q", op, in)
		}
		inMetas = append(inMetas, m)
	}
	outMeta, err := InferNodeMeta(op, output, inMetas, attrs)
	if err != nil {
		return fmt.Errorf("AddNode: %v", err)
	}

	node := &Node{
		ID:      b.nextID,
		Op:      op,
		Inputs:  append([]string(nil), inputs...),
		Outputs: []string{output},
		Attrs:   attrs,
	}
	b.nextID++
	b.nodes = append(b.nodes, node)
	b.varMetas[output] = outMeta
	b.producer[output] = node
	return nil
}

// MarkOutput flags a variable as a graph output. Outputs are always
// part of the effective fetch set during compilation.
func (b *GraphBuilder) MarkOutput(name string) error {
	if _, ok := b.varMetas[name]; !ok {
		return fmt.Errorf("MarkOutput: variable %q not defined", name)
	}
	for _, o := range b.outputs {
		if o == name {
			return nil
		}
	}
	b.outputs = append(b.outputs, name)
	return nil
}

// Build finalizes the graph.
func (b *GraphBuilder) Build() (*Graph, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("Build: graph has no nodes")
	}
	g := &Graph{
		nodes:    b.nodes,
		varMetas: b.varMetas,
		producer: b.producer,
		inputs:   b.inputs,
		outputs:  b.outputs,
	}
	// construction keeps the graph acyclic, the sort doubles as a
	// consistency check
	if _, err := g.TopologicalSort(); err != nil {
		return nil, fmt.Errorf("Build: %v", err)
	}
	return g, nil
}
