package ensemble

// Option configures a DecisionTreeClassifier or a RandomForestClassifier.
type Option func(*options)

type options struct {
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	randomState     int64
	nEstimators     int
	bootstrap       bool
	nJobs           int
}

func applyOptions(o options, opts []Option) options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCriterion sets the split quality measure, "gini" or "entropy"
func WithCriterion(criterion string) Option {
	return func(o *options) {
		o.criterion = criterion
	}
}

// WithMaxDepth limits the depth of each tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) Option {
	return func(o *options) {
		o.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required in a leaf
func WithMinSamplesLeaf(n int) Option {
	return func(o *options) {
		o.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are considered per split: "sqrt", "log2" or
// "all".
func WithMaxFeatures(maxFeatures string) Option {
	return func(o *options) {
		o.maxFeatures = maxFeatures
	}
}

// WithRandomState seeds feature sampling and bootstrapping
func WithRandomState(seed int64) Option {
	return func(o *options) {
		o.randomState = seed
	}
}

// WithNEstimators sets the number of trees in a forest
func WithNEstimators(n int) Option {
	return func(o *options) {
		o.nEstimators = n
	}
}

// WithBootstrap sets whether forest trees are fitted on bootstrap samples
func WithBootstrap(bootstrap bool) Option {
	return func(o *options) {
		o.bootstrap = bootstrap
	}
}

// WithNJobs sets the number of goroutines fitting trees. -1 uses every core.
func WithNJobs(n int) Option {
	return func(o *options) {
		o.nJobs = n
	}
}
