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
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Buffer owns one resizable chunk of scope memory. Allocation is lazy,
// a fresh Buffer holds no storage until Resize.
type Buffer struct {
	mem memory.Allocator
	buf *memory.Buffer
}

func NewBuffer(mem memory.Allocator) *Buffer {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Buffer{mem: mem}
}

// Resize grows or shrinks the storage to n bytes. Newly exposed bytes
// are zeroed by the allocator.
func (b *Buffer) Resize(n int) {
	if b.buf == nil {
		b.buf = memory.NewResizableBuffer(b.mem)
	}
	b.buf.Resize(n)
}

// Free returns the storage to the allocator. The Buffer stays usable,
// the next Resize allocates again.
func (b *Buffer) Free() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// Size returns the current storage size in bytes.
func (b *Buffer) Size() int {
	if b.buf == nil {
		return 0
	}
	return b.buf.Len()
}

// Bytes exposes the raw storage, nil when unallocated.
func (b *Buffer) Bytes() []byte {
	if b.buf == nil {
		return nil
	}
	return b.buf.Bytes()
}
