// Package network defines lumped-element thermal RC network models and their
// frequency- and time-domain step responses.
//
// Two canonical topologies describe the transient thermal impedance Zth(t) of
// a power device:
//
//   - A Foster network is a series chain of parallel RC pairs. Each branch
//     contributes an independent exponential term R_i*(1-exp(-t/tau_i)) with
//     tau_i = R_i*C_i. Foster elements are a curve-fit artifact with no direct
//     physical meaning, but the model is linear in R for fixed tau, which
//     makes it the natural target for identification from measured samples.
//
//   - A Cauer network is a ladder of series resistors with shunt capacitors
//     to ambient. Its stages map onto the physical layer stack (die, solder,
//     baseplate, heatsink), which is why datasheets and simulation tools
//     prefer it.
//
// Both forms share the same steady-state (DC) thermal resistance: the sum of
// their resistances.
//
// # Usage
//
// Evaluate a known Foster model:
//
//	f := network.Foster{
//	    R: []float64{0.5, 0.5},
//	    C: []float64{2e-6, 2e-4},
//	}
//	zth := f.Zth([]float64{1e-6, 1e-4, 1e-2})
//
// Networks are value types: methods never mutate the receiver and derived
// slices are always freshly allocated, so values can be shared freely across
// goroutines.
package network
