// Package cauer converts Foster RC networks into Cauer ladder networks of the
// same order by matching their complex impedance over a logarithmic frequency
// grid, then enforcing exact DC-resistance equality.
package cauer

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-thermal/internal/leastsq"
	"github.com/cwbudde/algo-thermal/network"
)

// ErrSolverFailure reports that the ladder impedance match did not produce a
// usable network.
var ErrSolverFailure = errors.New("cauer: ladder impedance matching failed")

const (
	// elementFloor is the lower bound on every candidate R and C during the
	// match.
	elementFloor = 1e-12

	// magnitudeFloor guards the relative-magnitude residual denominator.
	magnitudeFloor = 1e-12

	// The frequency grid spans [gridLowScale/max(tau), gridHighScale/min(tau)],
	// roughly two to three decades of guard band around the Foster poles on
	// each side.
	gridLowScale  = 0.1 / 50.0
	gridHighScale = 10.0 / 0.02

	// Initial series resistances taper linearly front-to-back before being
	// renormalized to the total DC resistance.
	taperFront = 1.3
	taperBack  = 0.7
)

// FromFoster derives a Cauer ladder whose frequency response matches the
// Foster network's. The result has the same order; its total series
// resistance equals the Foster network's Rth exactly.
//
// The match minimizes a stacked residual of relative magnitude error
// (weight 1) and phase error (weight 0.3 by default, see WithPhaseWeight)
// across the frequency grid, with all elements bounded below at 1e-12. The
// optimizer only approximately matches DC, so the series resistances are
// rescaled afterwards to make the DC equality exact.
func FromFoster(f network.Foster, opts ...Option) (network.Cauer, error) {
	if err := f.Validate(); err != nil {
		return network.Cauer{}, err
	}

	cfg := applyOptions(opts)
	n := f.Order()

	tau := f.Tau()
	omega := logSpace(gridLowScale/floats.Max(tau), gridHighScale/floats.Min(tau), cfg.points)

	magT, angT := polar(f.Impedance(omega))

	rtot := f.Rth()
	x0 := initialGuess(f, rtot)

	lower := make([]float64, 2*n)
	for i := range lower {
		lower[i] = elementFloor
		if x0[i] < elementFloor {
			x0[i] = elementFloor
		}
	}

	residual := func(dst, x []float64) {
		magC, angC := polar(network.Cauer{R: x[:n], C: x[n:]}.Impedance(omega))

		for k := range omega {
			dst[k] = (magC[k] - magT[k]) / math.Max(magT[k], magnitudeFloor)
			dst[len(omega)+k] = cfg.phaseWeight * (angC[k] - angT[k])
		}
	}

	x, err := leastsq.Solve(residual, x0, 2*cfg.points, leastsq.Settings{
		Lower:          lower,
		MaxEvaluations: cfg.maxEvals,
	})
	if err != nil {
		return network.Cauer{}, fmt.Errorf("%w: %v", ErrSolverFailure, err)
	}

	r := make([]float64, n)
	c := make([]float64, n)
	copy(r, x[:n])
	copy(c, x[n:])

	// Exact DC equality: Z(w->0) of the Foster network is rtot, so rescale
	// the series resistances onto it.
	if s := floats.Sum(r); s > 0 {
		floats.Scale(rtot/s, r)
	}

	return network.Cauer{R: r, C: c}, nil
}

// initialGuess seeds the match with a tapered, DC-preserving resistance split
// and the Foster capacitances in ascending-tau order.
func initialGuess(f network.Foster, rtot float64) []float64 {
	n := f.Order()

	x0 := make([]float64, 2*n)
	for i := range n {
		taper := taperFront
		if n > 1 {
			taper += (taperBack - taperFront) * float64(i) / float64(n-1)
		}

		x0[i] = rtot / (1.8 * float64(n)) * taper
	}

	floats.Scale(rtot/math.Max(floats.Sum(x0[:n]), elementFloor), x0[:n])

	copy(x0[n:], f.SortedByTau().C)

	return x0
}

// polar splits a complex spectrum into magnitude and phase.
func polar(z []complex128) (mag, ang []float64) {
	re := make([]float64, len(z))
	im := make([]float64, len(z))
	for i, v := range z {
		re[i] = real(v)
		im[i] = imag(v)
	}

	mag = make([]float64, len(z))
	vecmath.Magnitude(mag, re, im)

	ang = make([]float64, len(z))
	for i := range ang {
		ang[i] = math.Atan2(im[i], re[i])
	}

	return mag, ang
}

// logSpace returns n logarithmically spaced values from start to stop
// inclusive.
func logSpace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}

	logStart := math.Log10(start)
	step := (math.Log10(stop) - logStart) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, logStart+float64(i)*step)
	}

	return out
}
