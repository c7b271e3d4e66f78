// Package leastsq implements a damped Gauss-Newton (Levenberg-Marquardt)
// solver for small dense nonlinear least-squares problems with optional
// elementwise lower bounds. Jacobians are taken by forward differences, and
// steps are projected onto the feasible box, so bounds hold by construction.
//
// Steps are controlled by the gain ratio between actual and model cost
// reduction: a trial step is accepted only when the ratio is positive, the
// damping follows Nielsen's update, and every step is capped at a trust
// radius that shrinks when the quadratic model proves unreliable. The cap
// keeps near-Gauss-Newton steps from overshooting into flat regions where
// the Jacobian is small.
package leastsq

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Errors returned by Solve.
var (
	ErrDimension      = errors.New("leastsq: residual and parameter counts must be positive")
	ErrBoundsMismatch = errors.New("leastsq: lower bounds must match the parameter count")
	ErrNonFinite      = errors.New("leastsq: residual is not finite at the starting point")
)

const (
	defaultMaxEvaluations = 8000
	defaultTolerance      = 1e-12

	initialDamping = 1e-3
	dampingGrow    = 2.0
	dampingFloor   = 1e-14
	dampingCeil    = 1e12

	// minGainRatio is the smallest actual-to-predicted reduction ratio at
	// which a trial step is accepted.
	minGainRatio = 1e-4

	// The trust radius shrinks by radiusShrink after an unreliable step and
	// grows by radiusGrow after a high-gain step that hit the cap.
	radiusShrink = 0.25
	radiusGrow   = 2.0
)

// Func evaluates the residual vector for parameters x, writing all m elements
// into dst. It must not retain either slice.
type Func func(dst, x []float64)

// Settings configures a Solve call. The zero value selects defaults.
type Settings struct {
	// Lower holds elementwise lower bounds on the parameters; nil means
	// unbounded below. There are no upper bounds.
	Lower []float64

	// MaxEvaluations caps the number of residual evaluations, including
	// those spent on finite-difference Jacobian columns. Zero selects the
	// default of 8000.
	MaxEvaluations int

	// FTol, XTol and GTol are the relative cost-reduction, step-size and
	// gradient stopping tolerances. Zero values select 1e-12.
	FTol, XTol, GTol float64
}

func (s *Settings) fill(n int) error {
	if s.Lower != nil && len(s.Lower) != n {
		return ErrBoundsMismatch
	}

	if s.MaxEvaluations <= 0 {
		s.MaxEvaluations = defaultMaxEvaluations
	}

	if s.FTol <= 0 {
		s.FTol = defaultTolerance
	}

	if s.XTol <= 0 {
		s.XTol = defaultTolerance
	}

	if s.GTol <= 0 {
		s.GTol = defaultTolerance
	}

	return nil
}

// Solve minimizes 0.5*||f(x)||^2 over x starting from x0, where f produces m
// residual elements. It returns the best parameter vector found. The run is
// bounded by Settings.MaxEvaluations, so Solve always terminates; reaching
// the cap returns the current best point without error.
func Solve(f Func, x0 []float64, m int, s Settings) ([]float64, error) {
	n := len(x0)
	if n == 0 || m <= 0 {
		return nil, ErrDimension
	}

	if err := s.fill(n); err != nil {
		return nil, err
	}

	x := make([]float64, n)
	copy(x, x0)
	project(x, s.Lower)

	evals := 0
	r := make([]float64, m)

	cost, finite := evalCost(f, r, x, &evals)
	if !finite {
		return nil, ErrNonFinite
	}

	jac := mat.NewDense(m, n, nil)
	jtj := mat.NewSymDense(n, nil)
	grad := mat.NewVecDense(n, nil)
	damped := mat.NewSymDense(n, nil)

	var (
		delta  mat.VecDense
		chol   mat.Cholesky
		trialR = make([]float64, m)
		trialX = make([]float64, n)
	)

	damping := initialDamping
	nu := dampingGrow
	radius := initialRadius(x)

	for evals < s.MaxEvaluations {
		fd.Jacobian(jac, f, x, &fd.JacobianSettings{
			Formula:     fd.Forward,
			OriginValue: r,
		})
		evals += n

		normalEquations(jtj, grad, jac, r)

		if gradNormInf(grad) <= s.GTol {
			break
		}

		accepted := false

		for damping <= dampingCeil {
			dampSym(damped, jtj, damping)

			if !chol.Factorize(damped) {
				damping *= nu
				nu *= 2
				continue
			}

			if err := chol.SolveVecTo(&delta, grad); err != nil {
				damping *= nu
				nu *= 2
				continue
			}

			// Cap the step at the trust radius. Near-singular normal
			// equations otherwise produce arbitrarily long steps.
			scale := 1.0
			stepNorm := vecNorm(&delta)
			if stepNorm > radius {
				scale = radius / stepNorm
			}

			for i := range trialX {
				trialX[i] = x[i] - scale*delta.AtVec(i)
			}
			project(trialX, s.Lower)

			pred := predictedReduction(jtj, grad, &delta, scale)
			trialCost, ok := evalCost(f, trialR, trialX, &evals)

			rho := -1.0
			if ok && pred > 0 {
				rho = (cost - trialCost) / pred
			}

			if rho > minGainRatio {
				stepDone := stepConverged(x, trialX, s.XTol)
				costDone := cost-trialCost <= s.FTol*cost

				copy(x, trialX)
				copy(r, trialR)
				cost = trialCost

				switch {
				case rho < 0.25:
					radius = radiusShrink * scale * stepNorm
				case rho > 0.75 && scale < 1:
					radius *= radiusGrow
				}

				t := 2*rho - 1
				damping = math.Max(damping*math.Max(1.0/3, 1-t*t*t), dampingFloor)
				nu = dampingGrow
				accepted = true

				if stepDone || costDone {
					return x, nil
				}

				break
			}

			radius = math.Min(radius, radiusShrink*scale*stepNorm)
			damping *= nu
			nu *= 2

			if evals >= s.MaxEvaluations {
				break
			}
		}

		// Damping overflow means no descent direction remains at this
		// point; treat it as convergence.
		if !accepted {
			break
		}
	}

	return x, nil
}

// initialRadius picks the starting trust radius from the scale of x0.
func initialRadius(x []float64) float64 {
	var norm float64
	for _, v := range x {
		norm += v * v
	}

	return math.Max(1, math.Sqrt(norm))
}

// predictedReduction evaluates the reduction the local quadratic model
// predicts for the step -scale*delta: scale*g.delta - scale^2/2 * delta.J^T
// J.delta. The LM step descends the model over the whole segment, so the
// value is positive for any scale in (0, 1].
func predictedReduction(jtj *mat.SymDense, grad, delta *mat.VecDense, scale float64) float64 {
	n := grad.Len()

	var gd, djd float64
	for i := range n {
		di := delta.AtVec(i)
		gd += grad.AtVec(i) * di

		var acc float64
		for j := range n {
			acc += jtj.At(i, j) * delta.AtVec(j)
		}

		djd += di * acc
	}

	return scale*gd - 0.5*scale*scale*djd
}

func vecNorm(v *mat.VecDense) float64 {
	var norm float64
	for i := range v.Len() {
		norm += v.AtVec(i) * v.AtVec(i)
	}

	return math.Sqrt(norm)
}

// evalCost evaluates f into r and returns half the squared residual norm. It
// reports false if any residual element is NaN or Inf.
func evalCost(f Func, r, x []float64, evals *int) (float64, bool) {
	f(r, x)
	*evals++

	var cost float64
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}

		cost += 0.5 * v * v
	}

	return cost, true
}

// normalEquations fills jtj = J^T*J and grad = J^T*r.
func normalEquations(jtj *mat.SymDense, grad *mat.VecDense, jac *mat.Dense, r []float64) {
	m, n := jac.Dims()

	for i := range n {
		var g float64
		for k := range m {
			g += jac.At(k, i) * r[k]
		}

		grad.SetVec(i, g)

		for j := i; j < n; j++ {
			var s float64
			for k := range m {
				s += jac.At(k, i) * jac.At(k, j)
			}

			jtj.SetSym(i, j, s)
		}
	}
}

// dampSym fills dst with jtj plus Marquardt scaling of its diagonal.
func dampSym(dst, jtj *mat.SymDense, damping float64) {
	dst.CopySym(jtj)

	n := jtj.SymmetricDim()
	for i := range n {
		d := jtj.At(i, i)
		if d <= 0 {
			d = 1
		}

		dst.SetSym(i, i, jtj.At(i, i)+damping*d)
	}
}

func gradNormInf(grad *mat.VecDense) float64 {
	maxAbs := 0.0
	for i := range grad.Len() {
		if a := math.Abs(grad.AtVec(i)); a > maxAbs {
			maxAbs = a
		}
	}

	return maxAbs
}

func stepConverged(x, trial []float64, xtol float64) bool {
	var stepNorm, xNorm float64
	for i := range x {
		d := trial[i] - x[i]
		stepNorm += d * d
		xNorm += x[i] * x[i]
	}

	return math.Sqrt(stepNorm) <= xtol*(math.Sqrt(xNorm)+xtol)
}

func project(x, lower []float64) {
	if lower == nil {
		return
	}

	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
	}
}
