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
	"slices"
)

// VarMeta describes one graph variable: its name, dense shape and
// element type. Metadata only, the backing buffer lives in the runtime
// scope.
type VarMeta struct {
	Name  string
	Shape []int
	DType DataType
}

// Numel returns the number of elements the shape holds.
func (m *VarMeta) Numel() int {
	n := 1
	for _, d := range m.Shape {
		n *= d
	}
	return n
}

// ByteSize returns the dense buffer size in bytes.
func (m *VarMeta) ByteSize() int {
	return m.Numel() * m.DType.ByteWidth()
}

// Validate rejects empty names, unknown dtypes and non-positive dims.
func (m *VarMeta) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("Validate: variable has empty name")
	}
	if m.DType == Unknown {
		return fmt.Errorf("Validate: variable %q has unknown dtype", m.Name)
	}
	if len(m.Shape) == 0 {
		return fmt.Errorf("Validate: variable %q has empty shape", m.Name)
	}
	for _, d := range m.Shape {
		if d <= 0 {
			return fmt.Errorf("Validate: variable %q has non-positive dim %d", m.Name, d)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *VarMeta) Clone() *VarMeta {
	return &VarMeta{
		Name:  m.Name,
		Shape: slices.Clone(m.Shape),
		DType: m.DType,
	}
}

// ShapeEqual reports whether two metas have identical shapes.
func (m *VarMeta) ShapeEqual(other *VarMeta) bool {
	return slices.Equal(m.Shape, other.Shape)
}

func (m *VarMeta) String() string {
	return fmt.Sprintf("%s:%s%v", m.Name, m.DType, m.Shape)
}
