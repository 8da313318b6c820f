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
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/secretflow/kiln/pkg/runtime"
)

// Module is one linked translation unit holding resolved kernel
// handles, keyed by function name.
type Module struct {
	Digest  string
	Source  string
	kernels map[string]runtime.KernelFunc
}

// Kernel resolves a function handle by name.
func (m *Module) Kernel(fnName string) (runtime.KernelFunc, bool) {
	fn, ok := m.kernels[fnName]
	return fn, ok
}

// FnNames returns the function names linked into the module.
func (m *Module) FnNames() []string {
	names := make([]string, 0, len(m.kernels))
	for name := range m.kernels {
		names = append(names, name)
	}
	return names
}

// Engine links rendered source into callable modules and caches them
// by source digest, identical text never links twice. Safe for
// concurrent use, compile workers share one engine.
type Engine struct {
	mu      sync.Mutex
	modules map[string]*Module
	hits    int
	misses  int
}

func NewEngine() *Engine {
	return &Engine{modules: make(map[string]*Module)}
}

// SourceDigest returns the cache key for a translation unit.
func SourceDigest(src string) string {
	crypt := sha256.New()
	crypt.Write([]byte(src))
	return fmt.Sprintf("%x", crypt.Sum(nil))
}

// Link registers kernels for the given source text, reusing the cached
// module when the digest is already present.
func (e *Engine) Link(src string, kernels map[string]runtime.KernelFunc) (*Module, error) {
	if len(kernels) == 0 {
		return nil, errors.New("Link: no kernels to link")
	}
	digest := SourceDigest(src)

	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.modules[digest]; ok {
		e.hits++
		log.Debugf("Engine cache hit for %s", digest[:12])
		return m, nil
	}
	e.misses++
	m := &Module{Digest: digest, Source: src, kernels: kernels}
	e.modules[digest] = m
	return m, nil
}

// Lookup finds the module previously linked for the exact source text.
// This is the load path for requests carrying their own source.
func (e *Engine) Lookup(src string) (*Module, bool) {
	digest := SourceDigest(src)
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.modules[digest]
	if ok {
		e.hits++
	}
	return m, ok
}

// CacheStats reports cache hits and misses since creation.
func (e *Engine) CacheStats() (hits, misses int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.misses
}
