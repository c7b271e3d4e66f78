package network

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Errors returned by network validation.
var (
	ErrEmptyNetwork   = errors.New("network: at least one RC stage is required")
	ErrLengthMismatch = errors.New("network: R and C must have equal length")
	ErrNonPositive    = errors.New("network: R and C values must be strictly positive and finite")
)

// tauFloor guards divisions by vanishing time constants.
const tauFloor = 1e-300

// Foster is a parallel-branch RC network of order len(R). Branch i has
// thermal resistance R[i] and capacitance C[i]; its time constant is
// tau_i = R[i]*C[i]. The step response is the sum of the branch exponentials,
// and the steady-state thermal resistance equals the sum of R.
//
// Canonical branch order is ascending tau.
type Foster struct {
	R []float64 // branch resistances, K/W
	C []float64 // branch capacitances, J/K
}

// Cauer is a ladder RC network of order len(R). Series resistor R[i] connects
// node i-1 to node i (node 0 is the excitation point), shunt capacitor C[i]
// ties node i to ambient, and the final resistor R[len(R)-1] terminates the
// ladder to ambient.
//
// Unlike Foster branches, ladder stages carry no canonical ordering; their
// values come straight out of the impedance match that produced them.
type Cauer struct {
	R []float64 // series resistances, K/W
	C []float64 // shunt capacitances, J/K
}

func validateRC(r, c []float64) error {
	if len(r) == 0 || len(c) == 0 {
		return ErrEmptyNetwork
	}

	if len(r) != len(c) {
		return ErrLengthMismatch
	}

	for i := range r {
		if !(r[i] > 0) || !(c[i] > 0) || math.IsInf(r[i], 1) || math.IsInf(c[i], 1) {
			return ErrNonPositive
		}
	}

	return nil
}

// Validate checks the Foster network invariants.
func (n Foster) Validate() error { return validateRC(n.R, n.C) }

// Order returns the number of RC branches.
func (n Foster) Order() int { return len(n.R) }

// Rth returns the steady-state (DC) thermal resistance, the sum of all branch
// resistances.
func (n Foster) Rth() float64 { return floats.Sum(n.R) }

// Tau returns the branch time constants R[i]*C[i] as a fresh slice.
func (n Foster) Tau() []float64 {
	tau := make([]float64, len(n.R))
	for i := range tau {
		tau[i] = n.R[i] * n.C[i]
	}

	return tau
}

// SortedByTau returns a copy of the network with branches reordered into
// canonical ascending-tau order. The receiver is left untouched.
func (n Foster) SortedByTau() Foster {
	tau := n.Tau()

	idx := make([]int, len(tau))
	for i := range idx {
		idx[i] = i
	}

	sort.Slice(idx, func(a, b int) bool { return tau[idx[a]] < tau[idx[b]] })

	out := Foster{
		R: make([]float64, len(n.R)),
		C: make([]float64, len(n.C)),
	}
	for i, j := range idx {
		out.R[i] = n.R[j]
		out.C[i] = n.C[j]
	}

	return out
}

// Zth evaluates the network's step response at the given times:
//
//	Zth(t) = sum_i R_i * (1 - exp(-t/tau_i))
func (n Foster) Zth(t []float64) []float64 {
	tau := n.Tau()

	out := make([]float64, len(t))
	for k, tk := range t {
		var z float64
		for i := range n.R {
			z += n.R[i] * (1 - math.Exp(-tk/math.Max(tau[i], tauFloor)))
		}

		out[k] = z
	}

	return out
}

// Impedance evaluates the complex network impedance at the given angular
// frequencies (rad/s, all positive):
//
//	Z(jw) = sum_i R_i / (1 + jw*R_i*C_i)
func (n Foster) Impedance(omega []float64) []complex128 {
	out := make([]complex128, len(omega))
	for k, w := range omega {
		jw := complex(0, w)

		var z complex128
		for i := range n.R {
			z += complex(n.R[i], 0) / (1 + jw*complex(n.R[i]*n.C[i], 0))
		}

		out[k] = z
	}

	return out
}

// Validate checks the Cauer network invariants.
func (n Cauer) Validate() error { return validateRC(n.R, n.C) }

// Order returns the number of ladder stages.
func (n Cauer) Order() int { return len(n.R) }

// Rth returns the steady-state (DC) thermal resistance, the sum of all series
// resistances.
func (n Cauer) Rth() float64 { return floats.Sum(n.R) }

// Impedance evaluates the ladder input impedance at the given angular
// frequencies (rad/s, all positive) via the continued-fraction recursion,
// computed inward from the grounded end:
//
//	Z_k = R_k + 1/(jw*C_k + 1/Z_{k+1})
//
// terminating with Z_{N-1} = R_{N-1} + 1/(jw*C_{N-1}).
func (n Cauer) Impedance(omega []float64) []complex128 {
	last := len(n.R) - 1

	out := make([]complex128, len(omega))
	for k, w := range omega {
		jw := complex(0, w)

		z := complex(n.R[last], 0) + 1/(jw*complex(n.C[last], 0))
		for i := last - 1; i >= 0; i-- {
			z = complex(n.R[i], 0) + 1/(jw*complex(n.C[i], 0)+1/z)
		}

		out[k] = z
	}

	return out
}
