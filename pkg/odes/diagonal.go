package odes

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DiagonalizedMatrix is a square matrix whose eigen-decomposition has been
// pre-computed: M = E·diag(e)·E⁻¹. It is built once per regime by the
// Building and read concurrently thereafter.
type DiagonalizedMatrix struct {
	n    int
	eig  []complex128
	vecs *mat.CDense // E
	inv  *mat.CDense // E⁻¹
}

// NewDiagonalizedMatrix computes the eigen-decomposition of m. The matrix
// must be diagonalizable; eigenvalues and eigenvectors may be complex.
func NewDiagonalizedMatrix(m *mat.Dense) (*DiagonalizedMatrix, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("matrix must be square, got %dx%d", r, c)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenRight); !ok {
		return nil, fmt.Errorf("eigen-decomposition failed for %dx%d matrix", r, c)
	}

	vecs := mat.NewCDense(r, r, nil)
	eig.VectorsTo(vecs)

	inv, err := invertComplex(vecs)
	if err != nil {
		return nil, fmt.Errorf("eigenvector matrix is singular (matrix not diagonalizable): %w", err)
	}

	return &DiagonalizedMatrix{
		n:    r,
		eig:  eig.Values(nil),
		vecs: vecs,
		inv:  inv,
	}, nil
}

// Dim returns the dimension of the decomposed matrix.
func (d *DiagonalizedMatrix) Dim() int { return d.n }

// Eigenvalues returns a copy of the eigenvalues e.
func (d *DiagonalizedMatrix) Eigenvalues() []complex128 {
	out := make([]complex128, d.n)
	copy(out, d.eig)
	return out
}

// Eigenvectors returns the column eigenvector matrix E.
func (d *DiagonalizedMatrix) Eigenvectors() *mat.CDense { return d.vecs }

// InverseEigenvectors returns E⁻¹.
func (d *DiagonalizedMatrix) InverseEigenvectors() *mat.CDense { return d.inv }

// applyInverse computes E⁻¹·v for a real vector v.
func (d *DiagonalizedMatrix) applyInverse(v []float64) []complex128 {
	out := make([]complex128, d.n)
	for i := 0; i < d.n; i++ {
		var sum complex128
		for j := 0; j < d.n; j++ {
			sum += d.inv.At(i, j) * complex(v[j], 0)
		}
		out[i] = sum
	}
	return out
}

// invertComplex inverts a complex matrix E = A + iB through the real block
// embedding [A -B; B A], whose inverse is [C -D; D C] with E⁻¹ = C + iD.
// This keeps the numerical work inside gonum, which has no complex inverse.
func invertComplex(m *mat.CDense) (*mat.CDense, error) {
	n, _ := m.Dims()
	block := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			block.Set(i, j, real(v))
			block.Set(i+n, j+n, real(v))
			block.Set(i, j+n, -imag(v))
			block.Set(i+n, j, imag(v))
		}
	}

	var blockInv mat.Dense
	if err := blockInv.Inverse(block); err != nil {
		return nil, err
	}

	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, complex(blockInv.At(i, j), blockInv.At(i+n, j)))
		}
	}
	return out, nil
}
