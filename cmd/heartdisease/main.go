// Command heartdisease compares linear, ridge, lasso and elastic-net regression on the
// heart disease prevalence dataset and persists the model with the best test R².
//
// Usage:
//
//	heartdisease [config.yaml|config.toml]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/healthml/compare"
	"github.com/YuminosukeSato/healthml/config"
	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/linear"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"github.com/YuminosukeSato/healthml/preprocessing"
	"github.com/YuminosukeSato/healthml/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.GetLogger().Error("heart disease pipeline failed", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("heartdisease", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: heartdisease [config file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errors.Newf("expected at most one config file, got %d arguments", fs.NArg())
	}

	cfg := config.HeartDiseaseDefaults()
	if fs.NArg() == 1 {
		var err error
		if cfg, err = config.Load(fs.Arg(0), cfg); err != nil {
			return err
		}
	}
	if err := log.SetupLogger(stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := log.GetLoggerWithName("heartdisease").With(log.RunIDKey, runID)
	start := time.Now()

	split, err := dataset.LoadSplit(cfg.Dataset)
	if err != nil {
		return err
	}
	var scaler *preprocessing.StandardScaler
	if cfg.Standardize {
		if scaler, split.XTrain, split.XTest, err = preprocessing.ScaleSplit(split.XTrain, split.XTest); err != nil {
			return errors.Wrap(err, "standardize features")
		}
	}

	rep, err := compare.Compare(split, regressors(cfg.Linear))
	if err != nil {
		return err
	}
	ranking, err := rep.FeatureImportance(split.FeatureNames)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "== Model comparison ==")
	if err := report.WriteComparison(stdout, rep); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n== Top %d coefficients (%s) ==\n", cfg.TopN, rep.Winner)
	if err := report.WriteRanking(stdout, "coefficient", ranking, cfg.TopN); err != nil {
		return err
	}

	if cfg.PlotsDir != "" {
		if err := plots(cfg, split, rep, ranking); err != nil {
			return err
		}
	}
	if cfg.Artifact.Path != "" {
		if err := persist(cfg, runID, split, rep, scaler); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nSaved %s to %s\n", rep.Winner, cfg.Artifact.Path)
	}

	logger.Info("pipeline finished",
		log.WinnerKey, rep.Winner,
		log.R2ScoreKey, rep.WinnerResult().TestR2,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// regressors returns the candidates in comparison order, which is also the tie-break
// order.
func regressors(c config.LinearConfig) []compare.NamedEstimator {
	return []compare.NamedEstimator{
		{Name: "Linear Regression", Estimator: linear.NewLinearRegression()},
		{Name: "Ridge Regression", Estimator: linear.NewRidge(linear.WithAlpha(c.RidgeAlpha))},
		{Name: "Lasso Regression", Estimator: linear.NewLasso(
			linear.WithAlpha(c.LassoAlpha),
			linear.WithMaxIter(c.MaxIter),
			linear.WithTol(c.Tol),
		)},
		{Name: "ElasticNet", Estimator: linear.NewElasticNet(
			linear.WithAlpha(c.ElasticNetAlpha),
			linear.WithL1Ratio(c.L1Ratio),
			linear.WithMaxIter(c.MaxIter),
			linear.WithTol(c.Tol),
		)},
	}
}

func plots(cfg *config.Config, split *dataset.Split, rep *compare.Report, ranking *compare.FeatureRanking) error {
	pred, err := rep.Model.Predict(split.XTest)
	if err != nil {
		return errors.Wrap(err, "predict for plot")
	}
	if err := report.PlotPredictions(filepath.Join(cfg.PlotsDir, "heart_disease_predictions.png"),
		rep.Winner+": predicted vs actual", split.YTest, pred); err != nil {
		return err
	}
	if err := report.PlotRanking(filepath.Join(cfg.PlotsDir, "heart_disease_coefficients.png"),
		rep.Winner+" coefficients", ranking, cfg.TopN); err != nil {
		return err
	}
	return report.PlotComparison(filepath.Join(cfg.PlotsDir, "heart_disease_r2.png"), rep)
}

func persist(cfg *config.Config, runID string, split *dataset.Split, rep *compare.Report, scaler *preprocessing.StandardScaler) error {
	best := rep.WinnerResult()
	meta := model.ArtifactMetadata{
		RunID:     runID,
		ModelName: rep.Winner,
		CreatedAt: time.Now().UTC(),
		Features:  split.FeatureNames,
		Metrics: map[string]float64{
			"train_r2":    best.TrainR2,
			"test_r2":     best.TestR2,
			"test_rmse":   best.TestRMSE,
			"test_mae":    best.TestMAE,
			"test_mape":   best.Test.MAPE,
			"test_ev":     best.Test.ExplainedVariance,
			"overfitting": best.Overfitting,
		},
		Params: map[string]interface{}{"standardize": cfg.Standardize},
	}
	if pg, ok := rep.Model.(model.ParameterGetter); ok {
		for k, v := range pg.GetParams() {
			meta.Params[k] = v
		}
	}
	if err := model.SaveArtifact(cfg.Artifact.Path, rep.Model, meta); err != nil {
		return err
	}
	if scaler != nil {
		if err := model.SaveModel(scaler, preprocessing.ScalerPath(cfg.Artifact.Path)); err != nil {
			return err
		}
	}

	if cfg.Artifact.WeightsPath == "" {
		return nil
	}
	lm, ok := rep.Model.(model.LinearModel)
	if !ok {
		return errors.Newf("%s does not expose coefficients", rep.Winner)
	}
	weights, err := model.ExportWeights(rep.Winner, lm, split.FeatureNames)
	if err != nil {
		return err
	}
	weights.Metadata = map[string]interface{}{"run_id": runID, "test_r2": best.TestR2}
	return weights.WriteFile(cfg.Artifact.WeightsPath)
}
