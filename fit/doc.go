// Package fit identifies Foster thermal networks from measured transient
// thermal impedance samples.
//
// The model Z(t) = sum_i R_i*(1-exp(-t/tau_i)) is linear in the resistances R
// for fixed time constants tau, so the fit is separable ("variable
// projection"): an inner ordinary least-squares solve recovers R for any
// candidate tau, and an outer damped least-squares refinement searches over
// log(tau) only, re-running the inner solve on every residual evaluation.
// Working in log space keeps the time constants positive by construction.
//
// # Usage
//
//	res, err := fit.Foster(t, z, 4)
//	if err != nil {
//	    // handle
//	}
//	fmt.Println(res.Network.Rth(), res.RMSErrorPct, res.DCErrorPct)
//
// The inner solve clamps each resistance at a tiny positive floor rather than
// solving a true non-negativity-constrained problem; for severely
// ill-conditioned sample sets the floored values are an approximation of the
// constrained optimum.
package fit
