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

import "fmt"

type attrKind int

const (
	attrNone attrKind = iota
	attrFloat
	attrInt
	attrString
)

// Attribute holds one scalar operator attribute. Only the last Set
// call counts, an Attribute is exactly one of float/int/string.
type Attribute struct {
	kind attrKind
	f    float64
	i    int64
	s    string
}

// FloatAttr builds a float attribute.
func FloatAttr(v float64) *Attribute {
	a := &Attribute{}
	a.SetFloat(v)
	return a
}

// IntAttr builds an int attribute.
func IntAttr(v int64) *Attribute {
	a := &Attribute{}
	a.SetInt(v)
	return a
}

// StringAttr builds a string attribute.
func StringAttr(v string) *Attribute {
	a := &Attribute{}
	a.SetString(v)
	return a
}

func (a *Attribute) SetFloat(v float64) {
	a.kind = attrFloat
	a.f = v
}

func (a *Attribute) SetInt(v int64) {
	a.kind = attrInt
	a.i = v
}

func (a *Attribute) SetString(v string) {
	a.kind = attrString
	a.s = v
}

func (a *Attribute) GetFloat() (float64, bool) {
	return a.f, a.kind == attrFloat
}

func (a *Attribute) GetInt() (int64, bool) {
	return a.i, a.kind == attrInt
}

func (a *Attribute) GetString() (string, bool) {
	return a.s, a.kind == attrString
}

// FloatOr reads a float value falling back to def when the attribute
// holds no float. Int values are widened rather than dropped.
func (a *Attribute) FloatOr(def float64) float64 {
	if a == nil {
		return def
	}
	switch a.kind {
	case attrFloat:
		return a.f
	case attrInt:
		return float64(a.i)
	default:
		return def
	}
}

func (a *Attribute) String() string {
	switch a.kind {
	case attrFloat:
		return fmt.Sprintf("%g", a.f)
	case attrInt:
		return fmt.Sprintf("%d", a.i)
	case attrString:
		return a.s
	default:
		return "<unset>"
	}
}
