package fit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-thermal/internal/leastsq"
	"github.com/cwbudde/algo-thermal/network"
)

// Errors returned by Foster.
var (
	ErrLengthMismatch = errors.New("fit: t and z must have equal length")
	ErrInvalidOrder   = errors.New("fit: order must be at least 1")
	ErrTooFewPoints   = errors.New("fit: fewer valid samples than requested order")
	ErrSolverFailure  = errors.New("fit: least-squares refinement failed")
)

const (
	// amplitudeFloor clamps the inner linear solve. Heuristic: it keeps the
	// resistances physical without a constrained solve.
	amplitudeFloor = 1e-18

	// tauSpan widens the initial time-constant grid beyond the data span so
	// edge time constants stay reachable.
	tauSpan = 5.0

	// minTime floors the smallest usable sample time.
	minTime = 1e-9

	// epsDenominator floors the error-metric denominators.
	epsDenominator = 1e-12

	// machEps is the float64 machine epsilon used for the singular-value
	// cutoff of the inner solve.
	machEps = 2.220446049250313e-16
)

// Result holds an identified Foster network together with fit diagnostics.
type Result struct {
	// Network is the fitted model in canonical ascending-tau order.
	Network network.Foster

	// Tau holds the fitted time constants, ascending.
	Tau []float64

	// Time holds the filtered, time-sorted sample instants the fit ran on.
	Time []float64

	// Fitted is the model evaluated at Time.
	Fitted []float64

	// RMSErrorPct is the RMS residual as a percentage of the sample span.
	RMSErrorPct float64

	// DCErrorPct is the steady-state mismatch between the model's total
	// resistance and the largest-time sample, in percent.
	DCErrorPct float64
}

// Foster fits an order-term Foster network to the (t, z) samples.
//
// Samples with non-finite values or non-positive times are dropped; the rest
// are sorted ascending by time. At least order valid samples must remain.
func Foster(t, z []float64, order int, opts ...Option) (*Result, error) {
	if len(t) != len(z) {
		return nil, ErrLengthMismatch
	}

	if order < 1 {
		return nil, ErrInvalidOrder
	}

	cfg := applyOptions(opts)

	ft, fz := filterSamples(t, z)
	if len(ft) < order {
		return nil, fmt.Errorf("%w: %d of %d usable, need %d", ErrTooFewPoints, len(ft), len(t), order)
	}

	tau := initialTau(ft, order)

	logTau := make([]float64, order)
	for i := range logTau {
		logTau[i] = math.Log(tau[i])
	}

	residual := func(dst, lt []float64) {
		ct := expSlice(lt)

		r, ok := solveAmplitudes(ft, fz, ct)
		if !ok {
			for i := range dst {
				dst[i] = math.Inf(1)
			}

			return
		}

		applyModel(dst, ft, ct, r)
		floats.Sub(dst, fz)
	}

	for range cfg.refineIters {
		refined, err := leastsq.Solve(residual, logTau, len(ft), leastsq.Settings{
			MaxEvaluations: cfg.maxEvals,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSolverFailure, err)
		}

		logTau = refined
	}

	tau = expSlice(logTau)

	r, ok := solveAmplitudes(ft, fz, tau)
	if !ok {
		return nil, fmt.Errorf("%w: singular design matrix", ErrSolverFailure)
	}

	c := make([]float64, order)
	for i := range c {
		c[i] = tau[i] / math.Max(r[i], amplitudeFloor)
	}

	sortByTau(r, c, tau)

	fitted := make([]float64, len(ft))
	applyModel(fitted, ft, tau, r)

	return &Result{
		Network:     network.Foster{R: r, C: c},
		Tau:         tau,
		Time:        ft,
		Fitted:      fitted,
		RMSErrorPct: rmsErrorPct(fz, fitted),
		DCErrorPct:  dcErrorPct(fz, floats.Sum(r)),
	}, nil
}

// filterSamples drops non-finite pairs and non-positive times, then sorts the
// survivors ascending by time. Fresh slices are returned; the inputs are not
// touched.
func filterSamples(t, z []float64) ([]float64, []float64) {
	ft := make([]float64, 0, len(t))
	fz := make([]float64, 0, len(z))

	for i := range t {
		if t[i] > 0 && !math.IsInf(t[i], 0) && !math.IsNaN(z[i]) && !math.IsInf(z[i], 0) {
			ft = append(ft, t[i])
			fz = append(fz, z[i])
		}
	}

	idx := make([]int, len(ft))
	for i := range idx {
		idx[i] = i
	}

	sort.Slice(idx, func(a, b int) bool { return ft[idx[a]] < ft[idx[b]] })

	st := make([]float64, len(ft))
	sz := make([]float64, len(fz))
	for i, j := range idx {
		st[i] = ft[j]
		sz[i] = fz[j]
	}

	return st, sz
}

// initialTau spreads order time constants geometrically over the data span
// with a tauSpan margin on each side.
func initialTau(t []float64, order int) []float64 {
	tmin := math.Max(t[0], minTime)
	tmax := t[len(t)-1]

	return geomSpace(tmin/tauSpan, tmax*tauSpan, order)
}

// designMatrix builds Phi[i][j] = 1 - exp(-t_i/tau_j).
func designMatrix(t, tau []float64) *mat.Dense {
	phi := mat.NewDense(len(t), len(tau), nil)
	for i, ti := range t {
		for j, tj := range tau {
			phi.Set(i, j, 1-math.Exp(-ti/math.Max(tj, 1e-300)))
		}
	}

	return phi
}

// solveAmplitudes recovers the branch resistances for fixed time constants by
// an SVD pseudo-inverse least-squares solve, then clamps each at
// amplitudeFloor. It reports false when the factorization fails.
func solveAmplitudes(t, z, tau []float64) ([]float64, bool) {
	m := len(t)
	n := len(tau)
	phi := designMatrix(t, tau)

	var svd mat.SVD
	if !svd.Factorize(phi, mat.SVDThin) {
		return nil, false
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	cutoff := s[0] * float64(max(m, n)) * machEps

	// x = V * S^+ * U^T * z
	uz := make([]float64, n)
	for j := range n {
		if s[j] <= cutoff {
			continue
		}

		var acc float64
		for i := range m {
			acc += u.At(i, j) * z[i]
		}

		uz[j] = acc / s[j]
	}

	r := make([]float64, n)
	for i := range n {
		var acc float64
		for j := range n {
			acc += v.At(i, j) * uz[j]
		}

		r[i] = math.Max(acc, amplitudeFloor)
	}

	return r, true
}

// applyModel writes Phi(t,tau)*r into dst.
func applyModel(dst, t, tau, r []float64) {
	for i, ti := range t {
		var acc float64
		for j, tj := range tau {
			acc += r[j] * (1 - math.Exp(-ti/math.Max(tj, 1e-300)))
		}

		dst[i] = acc
	}
}

func rmsErrorPct(z, fitted []float64) float64 {
	var sq float64
	for i := range z {
		d := z[i] - fitted[i]
		sq += d * d
	}

	span := floats.Max(z) - floats.Min(z)

	return 100 * math.Sqrt(sq/float64(len(z))) / math.Max(span, epsDenominator)
}

func dcErrorPct(z []float64, rSum float64) float64 {
	zLast := z[len(z)-1]

	return 100 * math.Abs(rSum-zLast) / math.Max(math.Abs(zLast), epsDenominator)
}

func sortByTau(r, c, tau []float64) {
	idx := make([]int, len(tau))
	for i := range idx {
		idx[i] = i
	}

	sort.Slice(idx, func(a, b int) bool { return tau[idx[a]] < tau[idx[b]] })

	rs := make([]float64, len(r))
	cs := make([]float64, len(c))
	ts := make([]float64, len(tau))
	for i, j := range idx {
		rs[i] = r[j]
		cs[i] = c[j]
		ts[i] = tau[j]
	}

	copy(r, rs)
	copy(c, cs)
	copy(tau, ts)
}

func expSlice(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.Exp(x[i])
	}

	return out
}

// geomSpace returns n geometrically spaced values from start to stop
// inclusive. A single point collapses to start.
func geomSpace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}

	logStart := math.Log(start)
	step := (math.Log(stop) - logStart) / float64(n-1)
	for i := range out {
		out[i] = math.Exp(logStart + float64(i)*step)
	}

	return out
}
