package ensemble

import (
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/core/parallel"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// RandomForestClassifier averages the class probabilities of trees fitted on bootstrap
// samples with random feature subsets.
//
// Every tree gets its own seed drawn from RandomState before fitting starts, so the
// result does not depend on NJobs.
type RandomForestClassifier struct {
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     int64
	NJobs           int

	State               *model.StateManager
	Estimators_         []*DecisionTreeClassifier
	Classes_            []float64
	NClasses_           int
	FeatureImportances_ []float64
}

// NewRandomForestClassifier creates a forest of 100 gini trees with bootstrap sampling and
// sqrt(n_features) candidate features per split.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	o := applyOptions(options{
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesSqrt,
		nEstimators:     100,
		bootstrap:       true,
		nJobs:           -1,
	}, opts)

	return &RandomForestClassifier{
		NEstimators:     o.nEstimators,
		Criterion:       o.criterion,
		MaxDepth:        o.maxDepth,
		MinSamplesSplit: o.minSamplesSplit,
		MinSamplesLeaf:  o.minSamplesLeaf,
		MaxFeatures:     o.maxFeatures,
		Bootstrap:       o.bootstrap,
		RandomState:     o.randomState,
		NJobs:           o.nJobs,
		State:           model.NewStateManager(),
	}
}

// Fit grows NEstimators trees.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")
	start := time.Now()

	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}
	if err := validateTreeParams(f.Criterion, f.MaxDepth, f.MinSamplesSplit, f.MinSamplesLeaf, f.MaxFeatures); err != nil {
		return err
	}
	rows, cols, err := model.ValidateFitInput("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if f.State == nil {
		f.State = model.NewStateManager()
	}
	f.State.Reset()

	Xd := mat.DenseCopyOf(X)
	encoded, classes := encodeClasses(y)

	seed := uint64(f.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	trees := make([]*DecisionTreeClassifier, f.NEstimators)
	errs := make([]error, f.NEstimators)

	workers := f.NJobs
	if workers < 0 {
		workers = runtime.NumCPU()
	}
	parallel.ParallelizeWorkers(f.NEstimators, workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			errs[i] = errors.SafeExecute("RandomForestClassifier.Fit", func() error {
				trees[i] = f.fitTree(Xd, encoded, classes, rows, seeds[i], uint64(i))
				return nil
			})
		}
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	f.Estimators_ = trees
	f.Classes_ = classes
	f.NClasses_ = len(classes)
	f.FeatureImportances_ = forestImportances(trees, cols)
	f.State.SetFitted(cols, rows)

	log.GetLoggerWithName("ensemble").Info("forest fitted",
		log.ModelNameKey, "RandomForestClassifier",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", f.NEstimators,
		log.RandomSeedKey, f.RandomState,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (f *RandomForestClassifier) fitTree(X *mat.Dense, y []int, classes []float64, rows int, seed, stream uint64) *DecisionTreeClassifier {
	rng := rand.New(rand.NewPCG(seed, stream))

	samples := make([]int, rows)
	for i := range samples {
		if f.Bootstrap {
			samples[i] = rng.IntN(rows)
		} else {
			samples[i] = i
		}
	}

	tree := &DecisionTreeClassifier{
		Criterion:       f.Criterion,
		MaxDepth:        f.MaxDepth,
		MinSamplesSplit: f.MinSamplesSplit,
		MinSamplesLeaf:  f.MinSamplesLeaf,
		MaxFeatures:     f.MaxFeatures,
		RandomState:     int64(seed),
		State:           model.NewStateManager(),
	}
	tree.fitEncoded(X, y, classes, samples, rng)
	return tree
}

// forestImportances averages the importances of trees that split at least once and
// renormalizes them.
func forestImportances(trees []*DecisionTreeClassifier, nFeatures int) []float64 {
	sum := make([]float64, nFeatures)
	for _, t := range trees {
		if len(t.Nodes) <= 1 {
			continue
		}
		for j, v := range t.FeatureImportances_ {
			sum[j] += v
		}
	}
	return normalizeImportances(sum)
}

// PredictProba returns the mean tree probability per class as an n×n_classes matrix.
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if f.State == nil || len(f.Estimators_) == 0 {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	if err := f.State.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := f.State.RequireFeatures("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	proba := mat.NewDense(r, f.NClasses_, nil)
	for _, t := range f.Estimators_ {
		for i := 0; i < r; i++ {
			leaf := t.leaf(X, i)
			for c, p := range leaf.Value {
				proba.Set(i, c, proba.At(i, c)+p)
			}
		}
	}
	proba.Scale(1/float64(len(f.Estimators_)), proba)
	return proba, nil
}

// Predict returns the class with the highest mean probability for every row.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, f.Classes_), nil
}

// Score returns the accuracy on X, y.
func (f *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	return accuracyScore(f, X, y)
}

// Classes returns the sorted labels seen during fitting.
func (f *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), f.Classes_...)
}

// FeatureImportances returns the mean impurity decrease per feature, summing to 1.
func (f *RandomForestClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), f.FeatureImportances_...)
}

// GetParams returns the hyperparameters.
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.NEstimators,
		"criterion":         f.Criterion,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
		"n_jobs":            f.NJobs,
	}
}
