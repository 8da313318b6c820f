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
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/target"
)

var cTypeNames = map[graph.DataType]string{
	graph.Bool: "bool",
	graph.I32:  "int32_t",
	graph.I64:  "int64_t",
	graph.F32:  "float",
	graph.F64:  "double",
}

// Codegen renders lowered functions into source text. Rendering is a
// pure function of its input, equal functions give byte-identical
// text, which the engine cache relies on.
type Codegen struct {
	tgt target.Target
}

func NewCodegen(tgt target.Target) *Codegen {
	return &Codegen{tgt: tgt}
}

// Render emits one translation unit for the given functions.
func (c *Codegen) Render(fns []*ir.LoweredFunc) (string, error) {
	var sb strings.Builder
	sb.WriteString("// generated by kiln codegen, do not edit\n")
	sb.WriteString("#include <math.h>\n")
	sb.WriteString("#include <stdint.h>\n")
	for _, fn := range fns {
		sb.WriteString("\n")
		text, err := c.renderFunc(fn)
		if err != nil {
			return "", errors.Wrapf(err, "Render: fn %s", fn.Name)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// RenderDevice emits accelerator text for the given functions. Host
// targets have none.
func (c *Codegen) RenderDevice(fns []*ir.LoweredFunc) (string, error) {
	if !c.tgt.IsAccel() {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("// generated by kiln codegen for %s, do not edit\n", c.tgt.Arch))
	for _, fn := range fns {
		sb.WriteString("\n")
		text, err := c.renderDeviceFunc(fn)
		if err != nil {
			return "", errors.Wrapf(err, "RenderDevice: fn %s", fn.Name)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (c *Codegen) renderFunc(fn *ir.LoweredFunc) (string, error) {
	if err := fn.Validate(); err != nil {
		return "", err
	}
	shapes := tensorTable(fn)

	var sb strings.Builder
	params := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		qual := "const "
		if a.Role == ir.ArgOutput {
			qual = ""
		}
		params[i] = fmt.Sprintf("%s%s* %s", qual, cTypeNames[a.DType], a.Name)
	}
	sb.WriteString(fmt.Sprintf("void %s(%s) {\n", fn.Name, strings.Join(params, ", ")))
	for _, tmp := range fn.Temps {
		sb.WriteString(fmt.Sprintf("  %s %s[%d];\n", cTypeNames[tmp.DType], tmp.Name, tmp.Numel()))
	}
	for i := range fn.Body {
		text, err := renderStmt(&fn.Body[i], shapes)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}

func (c *Codegen) renderDeviceFunc(fn *ir.LoweredFunc) (string, error) {
	if err := fn.Validate(); err != nil {
		return "", err
	}
	shapes := tensorTable(fn)

	var sb strings.Builder
	params := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		qual := "const "
		if a.Role == ir.ArgOutput {
			qual = ""
		}
		params[i] = fmt.Sprintf("%s%s* %s", qual, cTypeNames[a.DType], a.Name)
	}
	sb.WriteString(fmt.Sprintf("extern \"C\" __global__ void %s_kernel(%s) {\n", fn.Name, strings.Join(params, ", ")))
	sb.WriteString("  int i = blockIdx.x * blockDim.x + threadIdx.x;\n")
	for _, tmp := range fn.Temps {
		sb.WriteString(fmt.Sprintf("  __shared__ %s %s[%d];\n", cTypeNames[tmp.DType], tmp.Name, tmp.Numel()))
	}
	for i := range fn.Body {
		if i > 0 {
			sb.WriteString("  __syncthreads();\n")
		}
		text, err := renderDeviceStmt(&fn.Body[i], shapes)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}

func tensorTable(fn *ir.LoweredFunc) map[string]ir.Tensor {
	shapes := make(map[string]ir.Tensor, len(fn.Args)+len(fn.Temps))
	for _, a := range fn.Args {
		shapes[a.Name] = a.Tensor
	}
	for _, tmp := range fn.Temps {
		shapes[tmp.Name] = tmp
	}
	return shapes
}

var binaryExprs = map[string]string{
	"add": "%s[i] + %s[i]",
	"sub": "%s[i] - %s[i]",
	"mul": "%s[i] * %s[i]",
	"div": "%s[i] / %s[i]",
	"max": "fmax(%s[i], %s[i])",
}

var unaryExprs = map[string]string{
	"relu":     "fmax(%s[i], 0.0)",
	"exp":      "exp(%s[i])",
	"neg":      "-%s[i]",
	"identity": "%s[i]",
}

func renderStmt(s *ir.Stmt, shapes map[string]ir.Tensor) (string, error) {
	if err := checkStmtArity(s); err != nil {
		return "", err
	}
	n := shapes[s.Dest].Numel()
	if expr, ok := binaryExprs[s.Op]; ok {
		body := fmt.Sprintf(expr, s.Args[0], s.Args[1])
		return fmt.Sprintf("  for (int i = 0; i < %d; ++i) {\n    %s[i] = %s;\n  }\n", n, s.Dest, body), nil
	}
	if expr, ok := unaryExprs[s.Op]; ok {
		body := fmt.Sprintf(expr, s.Args[0])
		return fmt.Sprintf("  for (int i = 0; i < %d; ++i) {\n    %s[i] = %s;\n  }\n", n, s.Dest, body), nil
	}
	switch s.Op {
	case "scale":
		alpha, beta := scaleCoeffs(s)
		return fmt.Sprintf("  for (int i = 0; i < %d; ++i) {\n    %s[i] = %g * %s[i] + %g;\n  }\n",
			n, s.Dest, alpha, s.Args[0], beta), nil
	case "reduce_sum":
		in := shapes[s.Args[0]].Numel()
		return fmt.Sprintf("  %s[0] = 0.0;\n  for (int i = 0; i < %d; ++i) {\n    %s[0] += %s[i];\n  }\n",
			s.Dest, in, s.Dest, s.Args[0]), nil
	case "matmul":
		m, k, n2, err := matmulDims(s, shapes)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"  for (int r = 0; r < %d; ++r) {\n"+
				"    for (int c = 0; c < %d; ++c) {\n"+
				"      double acc = 0.0;\n"+
				"      for (int p = 0; p < %d; ++p) {\n"+
				"        acc += %s[r * %d + p] * %s[p * %d + c];\n"+
				"      }\n"+
				"      %s[r * %d + c] = acc;\n"+
				"    }\n"+
				"  }\n",
			m, n2, k, s.Args[0], k, s.Args[1], n2, s.Dest, n2), nil
	default:
		return "", errors.Errorf("renderStmt: unsupported op %q", s.Op)
	}
}

func renderDeviceStmt(s *ir.Stmt, shapes map[string]ir.Tensor) (string, error) {
	if err := checkStmtArity(s); err != nil {
		return "", err
	}
	n := shapes[s.Dest].Numel()
	if expr, ok := binaryExprs[s.Op]; ok {
		body := fmt.Sprintf(expr, s.Args[0], s.Args[1])
		return fmt.Sprintf("  if (i < %d) {\n    %s[i] = %s;\n  }\n", n, s.Dest, body), nil
	}
	if expr, ok := unaryExprs[s.Op]; ok {
		body := fmt.Sprintf(expr, s.Args[0])
		return fmt.Sprintf("  if (i < %d) {\n    %s[i] = %s;\n  }\n", n, s.Dest, body), nil
	}
	switch s.Op {
	case "scale":
		alpha, beta := scaleCoeffs(s)
		return fmt.Sprintf("  if (i < %d) {\n    %s[i] = %g * %s[i] + %g;\n  }\n",
			n, s.Dest, alpha, s.Args[0], beta), nil
	case "reduce_sum":
		in := shapes[s.Args[0]].Numel()
		return fmt.Sprintf(
			"  if (i == 0) {\n    %s[0] = 0.0;\n    for (int p = 0; p < %d; ++p) {\n      %s[0] += %s[p];\n    }\n  }\n",
			s.Dest, in, s.Dest, s.Args[0]), nil
	case "matmul":
		m, k, n2, err := matmulDims(s, shapes)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"  if (i < %d) {\n"+
				"    int r = i / %d;\n"+
				"    int c = i %% %d;\n"+
				"    double acc = 0.0;\n"+
				"    for (int p = 0; p < %d; ++p) {\n"+
				"      acc += %s[r * %d + p] * %s[p * %d + c];\n"+
				"    }\n"+
				"    %s[i] = acc;\n"+
				"  }\n",
			m*n2, n2, n2, k, s.Args[0], k, s.Args[1], n2, s.Dest), nil
	default:
		return "", errors.Errorf("renderDeviceStmt: unsupported op %q", s.Op)
	}
}

var stmtArity = map[string]int{
	"add": 2, "sub": 2, "mul": 2, "div": 2, "max": 2, "matmul": 2,
	"relu": 1, "exp": 1, "neg": 1, "identity": 1, "scale": 1, "reduce_sum": 1,
}

// checkStmtArity rejects statements whose operand count does not fit
// their op before any renderer indexes into them. Unknown ops pass,
// the renderer reports those itself.
func checkStmtArity(s *ir.Stmt) error {
	want, ok := stmtArity[s.Op]
	if !ok {
		return nil
	}
	if len(s.Args) != want {
		return errors.Errorf("checkStmtArity: op %q wants %d args, got %d", s.Op, want, len(s.Args))
	}
	return nil
}

func scaleCoeffs(s *ir.Stmt) (float64, float64) {
	alpha, beta := 1.0, 0.0
	if v, ok := s.Attrs["scale"]; ok {
		alpha = v
	}
	if v, ok := s.Attrs["bias"]; ok {
		beta = v
	}
	return alpha, beta
}

func matmulDims(s *ir.Stmt, shapes map[string]ir.Tensor) (m, k, n int, err error) {
	a := shapes[s.Args[0]].Shape
	b := shapes[s.Args[1]].Shape
	if len(a) != 2 || len(b) != 2 || a[1] != b[0] {
		return 0, 0, 0, errors.Errorf("matmulDims: bad operand shapes %v x %v", a, b)
	}
	return a[0], a[1], b[1], nil
}
