package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// lpRelax points to the function used to solve the root relaxation. It can be
// overridden in tests to simulate solver failures.
var lpRelax = relaxModel

var errRelaxShape = errors.New("lp relaxation: more equalities than variables")

// relaxModel solves the linear relaxation of m (0 <= x <= 1) with the
// simplex method and returns its optimal objective, constant included.
//
// The standard form is built directly: one slack per inequality, equality
// rows for exactly-one groups and equality constraints.
func relaxModel(m *Model) (bound float64, err error) {
	n := m.NumVars()
	if n == 0 {
		return float64(m.Constant()), nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lp relaxation: %v", r)
		}
	}()

	var ineq, eq [][]float64
	var h, b []float64
	for j := 0; j < n; j++ {
		r := make([]float64, n)
		r[j] = 1
		ineq = append(ineq, r)
		h = append(h, 1)
	}
	for _, g := range m.Groups() {
		r := make([]float64, n)
		for _, v := range g {
			r[v] = 1
		}
		eq = append(eq, r)
		b = append(b, 1)
	}
	for _, c := range m.Constraints() {
		r := make([]float64, n)
		zero := true
		for _, t := range c.Terms {
			r[t.Var] += float64(t.Coef)
		}
		for _, v := range r {
			if v != 0 {
				zero = false
				break
			}
		}
		if zero {
			continue
		}
		switch c.Sense {
		case LessOrEqual:
			ineq = append(ineq, r)
			h = append(h, float64(c.RHS))
		case GreaterOrEqual:
			for j := range r {
				r[j] = -r[j]
			}
			ineq = append(ineq, r)
			h = append(h, -float64(c.RHS))
		default:
			eq = append(eq, r)
			b = append(b, float64(c.RHS))
		}
	}
	if len(eq) > n {
		return 0, errRelaxShape
	}

	rows, cols := len(ineq)+len(eq), n+len(ineq)
	A := mat.NewDense(rows, cols, nil)
	rhs := make([]float64, rows)
	for i, r := range ineq {
		for j, v := range r {
			if v != 0 {
				A.Set(i, j, v)
			}
		}
		A.Set(i, n+i, 1)
		rhs[i] = h[i]
	}
	for i, r := range eq {
		for j, v := range r {
			if v != 0 {
				A.Set(len(ineq)+i, j, v)
			}
		}
		rhs[len(ineq)+i] = b[i]
	}
	c := make([]float64, cols)
	for j := 0; j < n; j++ {
		c[j] = float64(m.Objective(Var(j)))
	}

	opt, _, err := lp.Simplex(c, A, rhs, 1e-10, nil)
	if err != nil {
		return 0, err
	}
	return opt + float64(m.Constant()), nil
}
