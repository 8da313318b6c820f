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

package passes

import (
	"fmt"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/util/pqueue"
)

// Context carries what fusion passes read and write: the input graph
// and the group list being formed.
type Context struct {
	Graph  *graph.Graph
	Groups []*graph.Group
}

// FusePass turns a graph into fused groups. Passes are stateless,
// one instance serves any number of Apply calls.
type FusePass interface {
	// FuseMode names the pass for registration and lookup.
	FuseMode() string
	// Benefit ranks competing passes, higher wins.
	Benefit() int
	// Apply fills ctx.Groups from ctx.Graph.
	Apply(ctx *Context) error
}

// Registry holds fusion passes and ranks them by benefit. The
// compilation core never depends on this, callers pick groups however
// they like and hand them to the compiler.
type Registry struct {
	passes []FusePass
	byMode map[string]FusePass
}

func NewRegistry() *Registry {
	return &Registry{byMode: make(map[string]FusePass)}
}

// Register adds a pass. Modes are unique.
func (r *Registry) Register(p FusePass) error {
	mode := p.FuseMode()
	if _, ok := r.byMode[mode]; ok {
		return fmt.Errorf("Register: fuse mode %q already registered", mode)
	}
	r.byMode[mode] = p
	r.passes = append(r.passes, p)
	return nil
}

// Get looks a pass up by mode.
func (r *Registry) Get(mode string) (FusePass, bool) {
	p, ok := r.byMode[mode]
	return p, ok
}

// Ranked returns passes by descending benefit, ties broken by
// registration order.
func (r *Registry) Ranked() []FusePass {
	pq := pqueue.NewPriorityQueue(func(i int) int { return r.passes[i].Benefit() })
	for i := range r.passes {
		pq.Enqueue(i)
	}
	ranked := make([]FusePass, 0, len(r.passes))
	for {
		i, ok := pq.Dequeue()
		if !ok {
			break
		}
		ranked = append(ranked, r.passes[i])
	}
	return ranked
}

// ApplyBest runs the top-ranked pass.
func (r *Registry) ApplyBest(ctx *Context) error {
	ranked := r.Ranked()
	if len(ranked) == 0 {
		return fmt.Errorf("ApplyBest: no fuse pass registered")
	}
	best := ranked[0]
	if err := best.Apply(ctx); err != nil {
		return fmt.Errorf("[%s] failed: %w", best.FuseMode(), err)
	}
	return nil
}
