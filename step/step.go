// Package step computes the exact time-domain step response of Cauer RC
// ladders via state-space modal decomposition. There is no time-stepping and
// therefore no discretization error: accuracy is limited only by floating
// point and the conditioning of the eigendecomposition.
package step

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-thermal/network"
)

// Errors returned by Response.
var (
	ErrSingularSystem = errors.New("step: conductance matrix is singular")
	ErrEigenFailure   = errors.New("step: eigendecomposition failed")
)

// conditioningTol is the modal reconstruction residual above which a
// ConditioningWarning is reported.
const conditioningTol = 1e-8

// ConditioningWarning reports an ill-conditioned modal decomposition. The
// response returned alongside it is still usable; its accuracy is degraded by
// roughly the reported relative residual.
type ConditioningWarning struct {
	Residual float64
}

func (w *ConditioningWarning) Error() string {
	return fmt.Sprintf("step: ill-conditioned modal decomposition (relative residual %.3g)", w.Residual)
}

// Response returns Zth(t) of the ladder at the requested times: the node-0
// voltage under a unit current step injected at node 0, which by
// electro-thermal duality is the temperature rise per watt after a unit power
// step.
//
// The ladder is decomposed once into its modes (O(N^3)); each requested time
// then costs O(N). If the returned error is a *ConditioningWarning the
// response slice is still populated and usable.
func Response(t []float64, ladder network.Cauer) ([]float64, error) {
	if err := ladder.Validate(); err != nil {
		return nil, err
	}

	n := ladder.Order()

	g := stampConductance(ladder)

	// DC solution: G*Vinf = e0.
	e0 := mat.NewVecDense(n, nil)
	e0.SetVec(0, 1)

	var chol mat.Cholesky
	if !chol.Factorize(g) {
		return nil, ErrSingularSystem
	}

	var vinf mat.VecDense
	if err := chol.SolveVecTo(&vinf, e0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	// State matrix A = C^-1 * G governs dV/dt = -A*V + C^-1*I(t).
	a := mat.NewDense(n, n, nil)
	for i := range n {
		for j := range n {
			a.Set(i, j, g.At(i, j)/ladder.C[i])
		}
	}

	var eig mat.Eigen
	if !eig.Factorize(a, mat.EigenRight) {
		return nil, ErrEigenFailure
	}

	lambda := eig.Values(nil)

	var w mat.CDense
	eig.VectorsTo(&w)

	y0, residual, err := modalProjection(&w, &vinf)
	if err != nil {
		return nil, err
	}

	// V(t) = Vinf - W * (exp(-lambda*t) .* y0); Zth is the real part at
	// node 0. Modal arithmetic stays complex until this last extraction.
	out := make([]float64, len(t))
	for k, tk := range t {
		acc := complex(vinf.AtVec(0), 0)
		for j := range n {
			acc -= w.At(0, j) * cmplx.Exp(-lambda[j]*complex(tk, 0)) * y0[j]
		}

		out[k] = real(acc)
	}

	if residual > conditioningTol {
		return out, &ConditioningWarning{Residual: residual}
	}

	return out, nil
}

// stampConductance builds the nodal conductance matrix of the ladder: each
// series resistor stamps +g on both adjacent diagonals and -g on the
// off-diagonals, and the final resistor stamps its ground return onto the
// last diagonal entry alone.
func stampConductance(ladder network.Cauer) *mat.SymDense {
	n := ladder.Order()

	g := mat.NewSymDense(n, nil)
	for i := range n - 1 {
		gi := 1 / ladder.R[i]
		g.SetSym(i, i, g.At(i, i)+gi)
		g.SetSym(i+1, i+1, g.At(i+1, i+1)+gi)
		g.SetSym(i, i+1, g.At(i, i+1)-gi)
	}

	g.SetSym(n-1, n-1, g.At(n-1, n-1)+1/ladder.R[n-1])

	return g
}

// modalProjection solves W*y0 = vinf for the modal coordinates of the DC
// solution and returns the relative reconstruction residual ||W*y0-vinf|| /
// ||vinf|| as a conditioning measure. The complex system is solved through
// its real 2N x 2N augmentation because gonum carries no complex dense
// solver.
func modalProjection(w *mat.CDense, vinf *mat.VecDense) ([]complex128, float64, error) {
	n, _ := w.Dims()

	aug := mat.NewDense(2*n, 2*n, nil)
	for i := range n {
		for j := range n {
			re := real(w.At(i, j))
			im := imag(w.At(i, j))
			aug.Set(i, j, re)
			aug.Set(i, n+j, -im)
			aug.Set(n+i, j, im)
			aug.Set(n+i, n+j, re)
		}
	}

	b := mat.NewVecDense(2*n, nil)
	for i := range n {
		b.SetVec(i, vinf.AtVec(i))
	}

	var lu mat.LU
	lu.Factorize(aug)

	var sol mat.VecDense
	if err := lu.SolveVecTo(&sol, false, b); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrEigenFailure, err)
	}

	y0 := make([]complex128, n)
	for j := range n {
		y0[j] = complex(sol.AtVec(j), sol.AtVec(n+j))
	}

	var num, den float64
	for i := range n {
		acc := complex(-vinf.AtVec(i), 0)
		for j := range n {
			acc += w.At(i, j) * y0[j]
		}

		num += real(acc)*real(acc) + imag(acc)*imag(acc)
		den += vinf.AtVec(i) * vinf.AtVec(i)
	}

	residual := math.Sqrt(num / math.Max(den, 1e-300))

	return y0, residual, nil
}
