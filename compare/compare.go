// Package compare fits a fixed, ordered set of regressors on one train/test split and
// selects the one with the highest held-out R².
package compare

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/metrics"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
)

// NamedEstimator pairs an estimator with its display name. Compare visits estimators in
// slice order, which is also the tie-break order.
type NamedEstimator struct {
	Name      string
	Estimator model.Estimator
}

// Result holds the metrics of one fitted estimator.
type Result struct {
	Name  string
	Train metrics.Bundle
	Test  metrics.Bundle

	TrainR2  float64
	TestR2   float64
	TestRMSE float64
	TestMAE  float64
	// Overfitting is TrainR2 - TestR2. It is negative when the model does better on
	// the test partition.
	Overfitting float64
}

// Report is the outcome of Compare.
type Report struct {
	// Results in estimator order.
	Results []Result
	ByName  map[string]Result
	Winner  string
	// Model is the fitted winning estimator.
	Model model.Estimator
}

// WinnerResult returns the Result of the winning estimator.
func (r *Report) WinnerResult() Result {
	return r.ByName[r.Winner]
}

// Compare fits every estimator on the training partition, scores it on both partitions
// and picks the highest test R². Ties keep the earliest estimator and a NaN score never
// wins against a finite one. Any fit or predict failure aborts the comparison.
//
// Estimators are fitted in place; persisting the winner is left to the caller.
func Compare(split *dataset.Split, estimators []NamedEstimator) (*Report, error) {
	if split == nil {
		return nil, errors.NewValueError("Compare", "nil split")
	}
	if len(estimators) == 0 {
		return nil, errors.NewValueError("Compare", "no estimators")
	}
	if err := split.Validate(); err != nil {
		return nil, errors.Wrap(err, "compare")
	}

	seen := make(map[string]struct{}, len(estimators))
	for _, ne := range estimators {
		if ne.Estimator == nil {
			return nil, errors.NewValidationError("estimators", "nil estimator", ne.Name)
		}
		if _, dup := seen[ne.Name]; dup {
			return nil, errors.NewValidationError("estimators", "duplicate name", ne.Name)
		}
		seen[ne.Name] = struct{}{}
	}

	logger := log.GetLoggerWithName("compare").With(log.OperationKey, log.OperationCompare)
	nSamples, nFeatures := split.XTrain.Dims()
	logger.Info("comparing models",
		"models", len(estimators),
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
	)

	report := &Report{
		Results: make([]Result, 0, len(estimators)),
		ByName:  make(map[string]Result, len(estimators)),
	}

	best := -1
	for i, ne := range estimators {
		res, err := evaluate(split, ne)
		if err != nil {
			logger.Error("model evaluation failed", err, log.ModelNameKey, ne.Name)
			return nil, err
		}
		report.Results = append(report.Results, res)
		report.ByName[ne.Name] = res

		if beats(res.TestR2, best, report.Results) {
			best = i
		}
	}
	if best < 0 {
		// every test R² is NaN
		best = 0
	}

	report.Winner = estimators[best].Name
	report.Model = estimators[best].Estimator

	w := report.Results[best]
	logger.Info("best model selected",
		log.WinnerKey, w.Name,
		log.R2ScoreKey, w.TestR2,
		log.RMSEKey, w.TestRMSE,
	)
	return report, nil
}

// beats reports whether r2 strictly improves on the current best.
func beats(r2 float64, best int, results []Result) bool {
	if math.IsNaN(r2) {
		return false
	}
	return best < 0 || r2 > results[best].TestR2
}

func evaluate(split *dataset.Split, ne NamedEstimator) (Result, error) {
	logger := log.GetLoggerWithName("compare").With(log.ModelNameKey, ne.Name)
	start := time.Now()

	if err := ne.Estimator.Fit(split.XTrain, split.YTrain); err != nil {
		return Result{}, errors.Wrapf(err, "fit %s", ne.Name)
	}

	train, err := score(ne, split.XTrain, split.YTrain)
	if err != nil {
		return Result{}, errors.Wrapf(err, "evaluate %s on training data", ne.Name)
	}
	test, err := score(ne, split.XTest, split.YTest)
	if err != nil {
		return Result{}, errors.Wrapf(err, "evaluate %s on test data", ne.Name)
	}

	res := Result{
		Name:        ne.Name,
		Train:       train,
		Test:        test,
		TrainR2:     train.R2,
		TestR2:      test.R2,
		TestRMSE:    test.RMSE,
		TestMAE:     test.MAE,
		Overfitting: train.R2 - test.R2,
	}

	logger.Info("model evaluated",
		log.R2ScoreKey, res.TestR2,
		log.RMSEKey, res.TestRMSE,
		log.MAEKey, res.TestMAE,
		log.OverfittingKey, res.Overfitting,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

func score(ne NamedEstimator, X, y mat.Matrix) (metrics.Bundle, error) {
	pred, err := ne.Estimator.Predict(X)
	if err != nil {
		return metrics.Bundle{}, err
	}
	rows, _ := X.Dims()
	if r, _ := pred.Dims(); r != rows {
		return metrics.Bundle{}, errors.NewDimensionError(ne.Name+".Predict", rows, r, 0)
	}
	return metrics.Evaluate(y, pred)
}
