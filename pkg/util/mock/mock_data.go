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

// Package mock fabricates deterministic tensor data for demos and
// tests. The same seed always yields the same values, so independent
// runs can be compared bit for bit.
package mock

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/secretflow/kiln/pkg/graph"
)

// MockVector returns n values drawn uniformly from [-1, 1).
func MockVector(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = rng.Float64()*2 - 1
	}
	return vals
}

// MockMatrix returns rows*cols values in row major order.
func MockMatrix(seed int64, rows, cols int) []float64 {
	return MockVector(seed, rows*cols)
}

// MockInputs fills every graph input with seeded random data, keyed by
// variable name. Inputs are visited in sorted name order, so the graph
// structure alone fixes the values.
func MockInputs(g *graph.Graph, seed int64) (map[string][]float64, error) {
	names := append([]string(nil), g.InputNames()...)
	sort.Strings(names)

	rng := rand.New(rand.NewSource(seed))
	data := make(map[string][]float64, len(names))
	for _, name := range names {
		meta, ok := g.VarMeta(name)
		if !ok {
			return nil, fmt.Errorf("MockInputs: input %s has no metadata", name)
		}
		if meta.DType != graph.F64 {
			return nil, fmt.Errorf("MockInputs: input %s is %s, mock data covers f64 only", name, meta.DType)
		}
		vals := make([]float64, meta.Numel())
		for i := range vals {
			vals[i] = rng.Float64()*2 - 1
		}
		data[name] = vals
	}
	return data, nil
}
