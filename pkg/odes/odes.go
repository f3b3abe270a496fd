// Package odes provides closed-form solutions for the linear ordinary
// differential equations used by the thermal simulation: a scalar equation
// f'(t) = X·f(t) + Y + Z·t and its vector form Y'(t) = M·Y(t) + A + B·t,
// the latter solved component-wise in the eigenbasis of M.
package odes

import (
	"fmt"
	"math"
	"math/cmplx"
)

// SolveScalar returns the solution of f'(t) = X·f(t) + Y + Z·t with
// f(t0) = f0, evaluated at each element of tVals.
//
// The X == 0 case uses the exact polynomial solution rather than a
// perturbed exponential one.
func SolveScalar(t0, f0, X, Y, Z float64, tVals []float64) []float64 {
	out := make([]float64, len(tVals))
	if X == 0 {
		c := f0 - Y*t0 - Z*t0*t0/2
		for i, t := range tVals {
			out[i] = c + Y*t + Z*t*t/2
		}
		return out
	}
	rX := 1 / X
	rX2 := rX * rX
	for i, t := range tVals {
		expPart := math.Exp(X * (t - t0))
		out[i] = expPart*(f0+rX*(Z*t0+Y)+rX2*Z) - rX*(Z*t+Y) - rX2*Z
	}
	return out
}

// solveScalarC is SolveScalar over complex coefficients, used for eigenbasis
// components when the eigensystem has complex-conjugate pairs.
func solveScalarC(t0 float64, f0, x, y, z complex128, tVals []float64) []complex128 {
	out := make([]complex128, len(tVals))
	if x == 0 {
		ct0 := complex(t0, 0)
		c := f0 - y*ct0 - z*ct0*ct0/2
		for i, t := range tVals {
			ct := complex(t, 0)
			out[i] = c + y*ct + z*ct*ct/2
		}
		return out
	}
	rx := 1 / x
	rx2 := rx * rx
	ct0 := complex(t0, 0)
	for i, t := range tVals {
		ct := complex(t, 0)
		expPart := cmplx.Exp(x * (ct - ct0))
		out[i] = expPart*(f0+rx*(z*ct0+y)+rx2*z) - rx*(z*ct+y) - rx2*z
	}
	return out
}

// SolveVector returns the solution of Y'(t) = M·Y(t) + A + B·t with
// Y(t0) = y0, evaluated at each element of tVals.
//
// The result has one row per component of Y. The computation runs in the
// eigenbasis of M, so complex eigensystems are handled transparently; the
// returned values are the real parts, which for the physically meaningful
// systems fed to this solver are exact to working precision.
func SolveVector(t0 float64, y0 []float64, m *DiagonalizedMatrix, a, b []float64, tVals []float64) ([][]float64, error) {
	n := m.Dim()
	if len(y0) != n || len(a) != n || len(b) != n {
		return nil, fmt.Errorf("dimension mismatch: matrix is %dx%d, vectors are %d/%d/%d", n, n, len(y0), len(a), len(b))
	}

	// Transform the initial condition and inhomogeneous terms into the
	// eigenbasis: Z = E⁻¹Y, so Z'(t) = diag(e)Z(t) + E⁻¹A + E⁻¹B·t.
	z0 := m.applyInverse(y0)
	c := m.applyInverse(a)
	d := m.applyInverse(b)

	z := make([][]complex128, n)
	for i := 0; i < n; i++ {
		z[i] = solveScalarC(t0, z0[i], m.eig[i], c[i], d[i], tVals)
	}

	// Transform back: Y = E·Z.
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(tVals))
		for k := range tVals {
			var sum complex128
			for j := 0; j < n; j++ {
				sum += m.vecs.At(i, j) * z[j][k]
			}
			row[k] = real(sum)
		}
		out[i] = row
	}
	return out, nil
}
