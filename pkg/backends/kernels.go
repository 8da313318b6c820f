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
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/secretflow/kiln/pkg/graph"
	"github.com/secretflow/kiln/pkg/ir"
	"github.com/secretflow/kiln/pkg/runtime"
)

// step executes one compiled statement against the value environment.
type step func(env map[string][]float64) error

// binaryTo mirrors the gonum floats XTo signature.
type binaryTo func(dst, s, t []float64) []float64

var binaryOps = map[string]binaryTo{
	"add": floats.AddTo,
	"sub": floats.SubTo,
	"mul": floats.MulTo,
	"div": floats.DivTo,
	"max": maxTo,
}

// maxTo is the elementwise maximum, gonum floats has no XTo for it.
func maxTo(dst, s, t []float64) []float64 {
	for i := range dst {
		dst[i] = math.Max(s[i], t[i])
	}
	return dst
}

var unaryOps = map[string]func(dst, s []float64){
	"relu": func(dst, s []float64) {
		for i := range dst {
			dst[i] = math.Max(s[i], 0)
		}
	},
	"exp": func(dst, s []float64) {
		for i := range dst {
			dst[i] = math.Exp(s[i])
		}
	},
	"neg": func(dst, s []float64) {
		floats.ScaleTo(dst, -1, s)
	},
	"identity": func(dst, s []float64) {
		copy(dst, s)
	},
}

// BuildKernel compiles one lowered function into a callable closure.
// The host path supports float64 values only, other dtypes compile to
// source text but have no runnable kernel.
func BuildKernel(fn *ir.LoweredFunc) (runtime.KernelFunc, error) {
	if err := fn.Validate(); err != nil {
		return nil, errors.Wrap(err, "BuildKernel")
	}
	shapes := tensorTable(fn)
	for name, tsr := range shapes {
		if tsr.DType != graph.F64 {
			return nil, errors.Errorf("BuildKernel: fn %s value %q is %s, host kernels support float64 only",
				fn.Name, name, tsr.DType)
		}
	}

	steps := make([]step, 0, len(fn.Body))
	for i := range fn.Body {
		st, err := compileStmt(&fn.Body[i], shapes)
		if err != nil {
			return nil, errors.Wrapf(err, "BuildKernel: fn %s stmt %d", fn.Name, i)
		}
		steps = append(steps, st)
	}

	params := fn.Args
	temps := fn.Temps
	return func(args []*runtime.Tensor) error {
		if len(args) != len(params) {
			return errors.Errorf("kernel %s wants %d args, got %d", fn.Name, len(params), len(args))
		}
		env := make(map[string][]float64, len(params)+len(temps))
		// positional binding: scope variable names may differ from
		// parameter names after alias substitution
		for i, t := range args {
			view, err := t.Float64s()
			if err != nil {
				return errors.Wrapf(err, "kernel %s arg %d", fn.Name, i)
			}
			if len(view) != params[i].Numel() {
				return errors.Errorf("kernel %s arg %d holds %d elements, param %q wants %d",
					fn.Name, i, len(view), params[i].Name, params[i].Numel())
			}
			env[params[i].Name] = view
		}
		for _, tmp := range temps {
			env[tmp.Name] = make([]float64, tmp.Numel())
		}
		for _, st := range steps {
			if err := st(env); err != nil {
				return errors.Wrapf(err, "kernel %s", fn.Name)
			}
		}
		return nil
	}, nil
}

func compileStmt(s *ir.Stmt, shapes map[string]ir.Tensor) (step, error) {
	if op, ok := binaryOps[s.Op]; ok {
		if len(s.Args) != 2 {
			return nil, errors.Errorf("compileStmt: op %q wants 2 args, got %d", s.Op, len(s.Args))
		}
		dest, a, b := s.Dest, s.Args[0], s.Args[1]
		return func(env map[string][]float64) error {
			op(env[dest], env[a], env[b])
			return nil
		}, nil
	}
	if op, ok := unaryOps[s.Op]; ok {
		if len(s.Args) != 1 {
			return nil, errors.Errorf("compileStmt: op %q wants 1 arg, got %d", s.Op, len(s.Args))
		}
		dest, a := s.Dest, s.Args[0]
		return func(env map[string][]float64) error {
			op(env[dest], env[a])
			return nil
		}, nil
	}
	switch s.Op {
	case "scale":
		if len(s.Args) != 1 {
			return nil, errors.Errorf("compileStmt: op %q wants 1 arg, got %d", s.Op, len(s.Args))
		}
		alpha, beta := scaleCoeffs(s)
		dest, a := s.Dest, s.Args[0]
		return func(env map[string][]float64) error {
			floats.ScaleTo(env[dest], alpha, env[a])
			if beta != 0 {
				floats.AddConst(beta, env[dest])
			}
			return nil
		}, nil
	case "reduce_sum":
		if len(s.Args) != 1 {
			return nil, errors.Errorf("compileStmt: op %q wants 1 arg, got %d", s.Op, len(s.Args))
		}
		dest, a := s.Dest, s.Args[0]
		return func(env map[string][]float64) error {
			env[dest][0] = floats.Sum(env[a])
			return nil
		}, nil
	case "matmul":
		if len(s.Args) != 2 {
			return nil, errors.Errorf("compileStmt: op %q wants 2 args, got %d", s.Op, len(s.Args))
		}
		m, k, n, err := matmulDims(s, shapes)
		if err != nil {
			return nil, errors.Wrap(err, "compileStmt")
		}
		dest, a, b := s.Dest, s.Args[0], s.Args[1]
		return func(env map[string][]float64) error {
			left := mat.NewDense(m, k, env[a])
			right := mat.NewDense(k, n, env[b])
			// a scratch receiver keeps aliased destinations safe
			var ws mat.Dense
			ws.Mul(left, right)
			copy(env[dest], ws.RawMatrix().Data)
			return nil
		}, nil
	default:
		return nil, errors.Errorf("compileStmt: unsupported op %q", s.Op)
	}
}
