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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Program is the executable outcome of a compilation: a scope plus an
// ordered instruction schedule. The caller owns it, the compiler keeps
// no reference after handing it over. Immutable once constructed.
type Program struct {
	scope  *Scope
	instrs []*Instruction
}

func NewProgram(scope *Scope, instrs []*Instruction) *Program {
	return &Program{scope: scope, instrs: instrs}
}

// Execute runs the schedule strictly in order and stops at the first
// failing step.
func (p *Program) Execute() error {
	start := time.Now()
	for idx, instr := range p.instrs {
		log.Debugf("Executing instruction %d: %s", idx, instr)
		if err := instr.Run(p.scope); err != nil {
			return errors.Wrapf(err, "Execute: instruction %d", idx)
		}
	}
	log.Debugf("Executed %d instructions in %v", len(p.instrs), time.Since(start))
	return nil
}

// Size returns the number of instructions.
func (p *Program) Size() int {
	return len(p.instrs)
}

func (p *Program) Instructions() []*Instruction {
	return p.instrs
}

func (p *Program) Scope() *Scope {
	return p.scope
}

// DumpTable renders the instruction schedule for diagnostics.
func (p *Program) DumpTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Kind", "Fn", "In", "Out"})
	for idx, instr := range p.instrs {
		table.Append([]string{
			fmt.Sprintf("%d", idx),
			instr.Kind.String(),
			instr.FnName,
			strings.Join(instr.InArgs, ","),
			strings.Join(instr.OutArgs, ","),
		})
	}
	table.Render()
}
