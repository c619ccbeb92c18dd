package linear

// Option configures an estimator in this package. Options that do not apply to an
// estimator (WithL1Ratio on Ridge, for instance) are ignored by it.
type Option func(*options)

type options struct {
	alpha        float64
	l1Ratio      float64
	fitIntercept bool
	maxIter      int
	tol          float64
}

func defaultOptions() options {
	return options{
		alpha:        1.0,
		l1Ratio:      0.5,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-4,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAlpha sets the regularization strength
func WithAlpha(alpha float64) Option {
	return func(o *options) {
		o.alpha = alpha
	}
}

// WithL1Ratio sets the elastic-net mixing parameter, 0 <= l1Ratio <= 1
func WithL1Ratio(l1Ratio float64) Option {
	return func(o *options) {
		o.l1Ratio = l1Ratio
	}
}

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(o *options) {
		o.fitIntercept = fit
	}
}

// WithMaxIter sets the maximum number of coordinate descent passes
func WithMaxIter(n int) Option {
	return func(o *options) {
		o.maxIter = n
	}
}

// WithTol sets the tolerance for the optimization
func WithTol(tol float64) Option {
	return func(o *options) {
		o.tol = tol
	}
}
