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
	"github.com/apache/arrow/go/v17/arrow"
)

// DataType is the element type of a variable.
type DataType int

const (
	Unknown DataType = iota
	Bool
	I32
	I64
	F32
	F64
)

var numericTypes = map[DataType]bool{
	I32: true,
	I64: true,
	F32: true,
	F64: true,
}

var floatTypes = map[DataType]bool{
	F32: true,
	F64: true,
}

var typeNames = map[DataType]string{
	Unknown: "unknown",
	Bool:    "bool",
	I32:     "int32",
	I64:     "int64",
	F32:     "float32",
	F64:     "float64",
}

var typeWidths = map[DataType]int{
	Bool: 1,
	I32:  4,
	I64:  8,
	F32:  4,
	F64:  8,
}

var arrowTypes = map[DataType]arrow.DataType{
	Bool: arrow.FixedWidthTypes.Boolean,
	I32:  arrow.PrimitiveTypes.Int32,
	I64:  arrow.PrimitiveTypes.Int64,
	F32:  arrow.PrimitiveTypes.Float32,
	F64:  arrow.PrimitiveTypes.Float64,
}

func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ByteWidth returns the storage width of one element, 0 for Unknown.
func (t DataType) ByteWidth() int {
	return typeWidths[t]
}

// ArrowType maps to the equivalent arrow type used for buffer views.
func (t DataType) ArrowType() arrow.DataType {
	return arrowTypes[t]
}

// IsNumericType reports whether t supports arithmetic ops.
func (t DataType) IsNumericType() bool {
	return numericTypes[t]
}

// IsFloatType reports whether t is a floating point type.
func (t DataType) IsFloatType() bool {
	return floatTypes[t]
}

// GetWiderType finds a type both a and b convert to without losing
// precision. Returns false when the two do not mix, e.g. Bool with I32.
func GetWiderType(a, b DataType) (DataType, bool) {
	if a == b {
		return a, true
	}
	if !a.IsNumericType() || !b.IsNumericType() {
		return Unknown, false
	}
	if a.IsFloatType() != b.IsFloatType() {
		// integer widens to float
		if a.IsFloatType() {
			return a, true
		}
		return b, true
	}
	if a.ByteWidth() >= b.ByteWidth() {
		return a, true
	}
	return b, true
}
