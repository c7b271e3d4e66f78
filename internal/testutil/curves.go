package testutil

import "math"

// FosterCurve evaluates sum_i r[i]*(1-exp(-t/tau[i])) at each time. It is an
// independent oracle for the model the fitter and solvers must reproduce.
func FosterCurve(t, r, tau []float64) []float64 {
	out := make([]float64, len(t))
	for k, tk := range t {
		var z float64
		for i := range r {
			z += r[i] * (1 - math.Exp(-tk/tau[i]))
		}

		out[k] = z
	}

	return out
}

// GeomSpace returns n geometrically spaced values from start to stop
// inclusive.
func GeomSpace(start, stop float64, n int) []float64 {
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
