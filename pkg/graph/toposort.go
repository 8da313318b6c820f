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

	"github.com/secretflow/kiln/pkg/util/pqueue"
)

// TopologicalSort orders nodes so every producer precedes its
// consumers. Among simultaneously ready nodes the lowest ID goes
// first, so the order is deterministic for a given graph.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	indeg := make(map[*Node]int, len(g.nodes))
	consumers := make(map[*Node][]*Node, len(g.nodes))
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if p, ok := g.producer[in]; ok {
				indeg[n]++
				consumers[p] = append(consumers[p], n)
			}
		}
	}

	ready := pqueue.NewPriorityQueue(func(n *Node) int { return -n.ID })
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready.Enqueue(n)
		}
	}

	sorted := make([]*Node, 0, len(g.nodes))
	for {
		n, ok := ready.Dequeue()
		if !ok {
			break
		}
		sorted = append(sorted, n)
		for _, c := range consumers[n] {
			indeg[c]--
			if indeg[c] == 0 {
				ready.Enqueue(c)
			}
		}
	}
	if len(sorted) != len(g.nodes) {
		return nil, fmt.Errorf("TopologicalSort: graph contains a cycle")
	}
	return sorted, nil
}
