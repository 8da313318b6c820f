// Copyright 2026 Ant Group Co., Ltd.
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

package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretflow/kiln/pkg/runtime"
)

func TestSourceDigest(t *testing.T) {
	d1 := SourceDigest("void f() {}")
	d2 := SourceDigest("void f() {}")
	d3 := SourceDigest("void g() {}")
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.Len(t, d1, 64)
}

func TestEngineLinkAndCache(t *testing.T) {
	e := NewEngine()
	noop := runtime.KernelFunc(func([]*runtime.Tensor) error { return nil })

	m1, err := e.Link("src-a", map[string]runtime.KernelFunc{"fn_a": noop})
	require.NoError(t, err)
	assert.Equal(t, SourceDigest("src-a"), m1.Digest)

	// identical source reuses the linked module
	m2, err := e.Link("src-a", map[string]runtime.KernelFunc{"fn_a": noop})
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	hits, misses := e.CacheStats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	// kernel resolution
	fn, ok := m1.Kernel("fn_a")
	assert.True(t, ok)
	assert.NotNil(t, fn)
	_, ok = m1.Kernel("fn_missing")
	assert.False(t, ok)

	// empty link is rejected
	_, err = e.Link("src-b", nil)
	assert.Error(t, err)
}

func TestEngineLookup(t *testing.T) {
	e := NewEngine()
	noop := runtime.KernelFunc(func([]*runtime.Tensor) error { return nil })

	_, ok := e.Lookup("never linked")
	assert.False(t, ok)

	m, err := e.Link("src-a", map[string]runtime.KernelFunc{"fn_a": noop})
	require.NoError(t, err)

	got, ok := e.Lookup("src-a")
	assert.True(t, ok)
	assert.Same(t, m, got)

	hits, _ := e.CacheStats()
	assert.Equal(t, 1, hits)
}
