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
)

// NaiveFusePass puts every node in its own group, in topological
// order. No fusion at all, which makes it the baseline grouping for
// demos and tests.
type NaiveFusePass struct{}

func (NaiveFusePass) FuseMode() string {
	return "naive"
}

func (NaiveFusePass) Benefit() int {
	return 0
}

func (NaiveFusePass) Apply(ctx *Context) error {
	sorted, err := ctx.Graph.TopologicalSort()
	if err != nil {
		return fmt.Errorf("NaiveFusePass: %v", err)
	}
	groups := make([]*graph.Group, 0, len(sorted))
	for i, n := range sorted {
		groups = append(groups, &graph.Group{Index: i, Nodes: []*graph.Node{n}})
	}
	ctx.Groups = groups
	return nil
}
