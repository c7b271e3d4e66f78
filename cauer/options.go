package cauer

const (
	defaultFrequencyPoints = 400
	defaultMaxEvaluations  = 8000

	// defaultPhaseWeight is an empirical tuning constant carried over from
	// measurement practice; no derivation is known for it.
	defaultPhaseWeight = 0.3
)

type config struct {
	points      int
	phaseWeight float64
	maxEvals    int
}

// Option mutates the conversion configuration.
type Option func(*config)

// WithFrequencyPoints sets the number of grid points the impedance match
// evaluates.
func WithFrequencyPoints(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.points = n
		}
	}
}

// WithPhaseWeight sets the weight of the phase residual relative to the
// magnitude residual.
func WithPhaseWeight(w float64) Option {
	return func(cfg *config) {
		if w >= 0 {
			cfg.phaseWeight = w
		}
	}
}

// WithMaxEvaluations caps the residual evaluations of the match.
func WithMaxEvaluations(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxEvals = n
		}
	}
}

func applyOptions(opts []Option) config {
	cfg := config{
		points:      defaultFrequencyPoints,
		phaseWeight: defaultPhaseWeight,
		maxEvals:    defaultMaxEvaluations,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
