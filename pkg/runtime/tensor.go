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

package runtime

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"

	"github.com/secretflow/kiln/pkg/graph"
)

// Tensor binds variable metadata to scope storage. Metadata survives a
// Release, so a released tensor can be instantiated again.
type Tensor struct {
	meta *graph.VarMeta
	buf  *Buffer
}

func NewTensor(meta *graph.VarMeta, mem memory.Allocator) *Tensor {
	return &Tensor{meta: meta.Clone(), buf: NewBuffer(mem)}
}

func (t *Tensor) Meta() *graph.VarMeta {
	return t.meta
}

func (t *Tensor) Name() string {
	return t.meta.Name
}

// Instantiate sizes the buffer to hold the dense value, zero-filled.
// Instantiating an already instantiated tensor keeps its contents.
func (t *Tensor) Instantiate() error {
	want := t.meta.ByteSize()
	if want <= 0 {
		return errors.Errorf("Instantiate: variable %q has no storable shape", t.meta.Name)
	}
	if t.buf.Size() == want {
		return nil
	}
	t.buf.Resize(want)
	return nil
}

// Release frees the storage but keeps the metadata.
func (t *Tensor) Release() {
	t.buf.Free()
}

// Instantiated reports whether storage is currently held.
func (t *Tensor) Instantiated() bool {
	return t.buf.Size() > 0
}

// Bytes exposes raw storage, nil before Instantiate.
func (t *Tensor) Bytes() []byte {
	return t.buf.Bytes()
}

// Float64s returns a typed view over the storage. Only F64 tensors
// have one, kernels read and write values through it.
func (t *Tensor) Float64s() ([]float64, error) {
	if t.meta.DType != graph.F64 {
		return nil, errors.Errorf("Float64s: variable %q is %s, not float64", t.meta.Name, t.meta.DType)
	}
	if !t.Instantiated() {
		return nil, errors.Errorf("Float64s: variable %q not instantiated", t.meta.Name)
	}
	return arrow.Float64Traits.CastFromBytes(t.buf.Bytes()), nil
}

// SetFloat64s copies vals into the tensor, instantiating on demand.
func (t *Tensor) SetFloat64s(vals []float64) error {
	if len(vals) != t.meta.Numel() {
		return errors.Errorf("SetFloat64s: variable %q wants %d values, got %d",
			t.meta.Name, t.meta.Numel(), len(vals))
	}
	if err := t.Instantiate(); err != nil {
		return err
	}
	view, err := t.Float64s()
	if err != nil {
		return err
	}
	copy(view, vals)
	return nil
}
