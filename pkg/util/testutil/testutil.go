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

// Package testutil holds helpers shared by tests, mainly golden file
// checking for generated source text.
package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var record bool

func init() {
	flag.BoolVar(&record, "record", false, "whether to record golden files instead of comparing")
}

// CheckGolden compares got against the golden file at path. Under
// -record it rewrites the file and passes.
func CheckGolden(t *testing.T, path, got string) {
	t.Helper()
	if record {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(got), 0o644))
		return
	}
	want, err := os.ReadFile(path)
	require.NoError(t, err, "golden file %s missing, rerun with -record", path)
	require.Equal(t, string(want), got, "output drifted from %s, rerun with -record to refresh", path)
}
