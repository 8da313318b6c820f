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
)

// Node is one operator application. Inputs and Outputs reference
// variables by name; the variable metadata lives on the Graph.
type Node struct {
	ID      int
	Op      string
	Inputs  []string
	Outputs []string
	Attrs   map[string]*Attribute
}

// UniqueName returns the node identity used in diagnostics and
// function naming, stable across builds of the same graph.
func (n *Node) UniqueName() string {
	return fmt.Sprintf("op_%s_%d", n.Op, n.ID)
}

// Attr looks up an attribute, nil when absent.
func (n *Node) Attr(name string) *Attribute {
	if n.Attrs == nil {
		return nil
	}
	return n.Attrs[name]
}

func (n *Node) String() string {
	return fmt.Sprintf("%s: (%s) -> (%s)",
		n.UniqueName(), strings.Join(n.Inputs, ", "), strings.Join(n.Outputs, ", "))
}
