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

// Package tuning defines the payload an external auto-tuner feeds
// back into a compilation request. The compiler consumes it, how the
// tuner searches is not this module's business.
package tuning

import (
	"fmt"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/target"
)

// Result carries tuned compilation inputs. Empty fields mean "keep
// what the request already has".
type Result struct {
	Groups       []*graph.Group
	Target       *target.Target
	LoweredFuncs [][]*ir.LoweredFunc
}

func (r *Result) String() string {
	if r == nil {
		return "tuning.Result(nil)"
	}
	tgt := "unchanged"
	if r.Target != nil {
		tgt = r.Target.String()
	}
	return fmt.Sprintf("tuning.Result{groups: %d, target: %s, funcs: %d}",
		len(r.Groups), tgt, len(r.LoweredFuncs))
}
