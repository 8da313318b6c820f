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

	"github.com/secretflow/kiln/pkg/util/sliceutil"
)

// shapeRule infers the output shape and dtype of one operator.
type shapeRule func(op string, ins []*VarMeta, attrs map[string]*Attribute) ([]int, DataType, error)

var shapeRules = map[string]shapeRule{
	"add":        inferElementwiseBinary,
	"sub":        inferElementwiseBinary,
	"mul":        inferElementwiseBinary,
	"div":        inferElementwiseBinary,
	"max":        inferElementwiseBinary,
	"relu":       inferElementwiseUnary,
	"exp":        inferElementwiseUnary,
	"neg":        inferElementwiseUnary,
	"identity":   inferElementwiseUnary,
	"scale":      inferElementwiseUnary,
	"matmul":     inferMatmul,
	"reduce_sum": inferReduceSum,
}

// SupportedOps lists operator names with an inference rule, ascending.
func SupportedOps() []string {
	return sliceutil.SortedKeys(shapeRules)
}

// InferNodeMeta computes output metadata for op applied to ins.
func InferNodeMeta(op string, output string, ins []*VarMeta, attrs map[string]*Attribute) (*VarMeta, error) {
	rule, ok := shapeRules[op]
	if !ok {
		return nil, fmt.Errorf("InferNodeMeta: unsupported op %q", op)
	}
	shape, dtype, err := rule(op, ins, attrs)
	if err != nil {
		return nil, fmt.Errorf("InferNodeMeta: %v", err)
	}
	return &VarMeta{Name: output, Shape: shape, DType: dtype}, nil
}

func inferElementwiseBinary(op string, ins []*VarMeta, _ map[string]*Attribute) ([]int, DataType, error) {
	if len(ins) != 2 {
		return nil, Unknown, fmt.Errorf("op %q wants 2 inputs, got %d", op, len(ins))
	}
	a, b := ins[0], ins[1]
	if !a.ShapeEqual(b) {
		return nil, Unknown, fmt.Errorf("op %q input shapes differ: %v vs %v", op, a.Shape, b.Shape)
	}
	wider, ok := GetWiderType(a.DType, b.DType)
	if !ok {
		return nil, Unknown, fmt.Errorf("op %q input dtypes do not mix: %s vs %s", op, a.DType, b.DType)
	}
	return a.Shape, wider, nil
}

func inferElementwiseUnary(op string, ins []*VarMeta, _ map[string]*Attribute) ([]int, DataType, error) {
	if len(ins) != 1 {
		return nil, Unknown, fmt.Errorf("op %q wants 1 input, got %d", op, len(ins))
	}
	return ins[0].Shape, ins[0].DType, nil
}

func inferMatmul(op string, ins []*VarMeta, _ map[string]*Attribute) ([]int, DataType, error) {
	if len(ins) != 2 {
		return nil, Unknown, fmt.Errorf("op %q wants 2 inputs, got %d", op, len(ins))
	}
	a, b := ins[0], ins[1]
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, Unknown, fmt.Errorf("op %q wants rank-2 inputs, got %v and %v", op, a.Shape, b.Shape)
	}
	if a.Shape[1] != b.Shape[0] {
		return nil, Unknown, fmt.Errorf("op %q contraction dims differ: %v x %v", op, a.Shape, b.Shape)
	}
	wider, ok := GetWiderType(a.DType, b.DType)
	if !ok {
		return nil, Unknown, fmt.Errorf("op %q input dtypes do not mix: %s vs %s", op, a.DType, b.DType)
	}
	return []int{a.Shape[0], b.Shape[1]}, wider, nil
}

// reduce_sum collapses the whole input to a single element.
func inferReduceSum(op string, ins []*VarMeta, _ map[string]*Attribute) ([]int, DataType, error) {
	if len(ins) != 1 {
		return nil, Unknown, fmt.Errorf("op %q wants 1 input, got %d", op, len(ins))
	}
	if !ins[0].DType.IsNumericType() {
		return nil, Unknown, fmt.Errorf("op %q wants a numeric input, got %s", op, ins[0].DType)
	}
	return []int{1}, ins[0].DType, nil
}
