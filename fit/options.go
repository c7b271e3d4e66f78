package fit

const (
	defaultRefineIterations = 2
	defaultMaxEvaluations   = 8000
)

type config struct {
	refineIters int
	maxEvals    int
}

// Option mutates the fit configuration.
type Option func(*config)

// WithRefineIterations sets the number of outer nonlinear refinement rounds.
// Zero skips refinement entirely and keeps the initial geometric
// time-constant grid.
func WithRefineIterations(n int) Option {
	return func(cfg *config) {
		if n >= 0 {
			cfg.refineIters = n
		}
	}
}

// WithMaxEvaluations caps the residual evaluations per refinement round.
func WithMaxEvaluations(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxEvals = n
		}
	}
}

func applyOptions(opts []Option) config {
	cfg := config{
		refineIters: defaultRefineIterations,
		maxEvals:    defaultMaxEvaluations,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
