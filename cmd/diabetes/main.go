// Command diabetes trains a random forest classifier on the diabetes dataset, reports its
// scores and feature importances next to a logistic regression baseline, and persists the
// forest. With artifact.reuse set, an existing artifact is loaded and scored instead of
// training a new forest. The artifact must match the dataset features and the standardize
// setting; its stored scaler is applied when standardize is on.
//
// Usage:
//
//	diabetes [config.yaml|config.toml]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/healthml/compare"
	"github.com/YuminosukeSato/healthml/config"
	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/ensemble"
	"github.com/YuminosukeSato/healthml/linear"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"github.com/YuminosukeSato/healthml/preprocessing"
	"github.com/YuminosukeSato/healthml/report"
)

const (
	modelName    = "Random Forest"
	baselineName = "Logistic Regression"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.GetLogger().Error("diabetes pipeline failed", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("diabetes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: diabetes [config file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errors.Newf("expected at most one config file, got %d arguments", fs.NArg())
	}

	cfg := config.DiabetesDefaults()
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
	logger := log.GetLoggerWithName("diabetes").With(log.RunIDKey, runID)
	start := time.Now()

	split, err := dataset.LoadSplit(cfg.Dataset)
	if err != nil {
		return err
	}
	art, err := reusable(cfg)
	if err != nil {
		return err
	}
	var scaler *preprocessing.StandardScaler
	if art != nil {
		if err := checkArtifact(art, split, cfg.Standardize); err != nil {
			return err
		}
		if cfg.Standardize {
			scaler = &preprocessing.StandardScaler{}
			if err := model.LoadModel(scaler, preprocessing.ScalerPath(cfg.Artifact.Path)); err != nil {
				return errors.Wrap(err, "load artifact scaler")
			}
			if split.XTrain, split.XTest, err = scaler.TransformSplit(split.XTrain, split.XTest); err != nil {
				return errors.Wrap(err, "standardize features")
			}
		}
	} else if cfg.Standardize {
		if scaler, split.XTrain, split.XTest, err = preprocessing.ScaleSplit(split.XTrain, split.XTest); err != nil {
			return errors.Wrap(err, "standardize features")
		}
	}

	rep, reused, err := evaluate(cfg, split, art, logger)
	if err != nil {
		return err
	}
	rf, ok := rep.Model.(model.FeatureImporter)
	if !ok {
		return errors.Newf("%T does not expose feature importances", rep.Model)
	}
	ranking, err := compare.RankImportances(split.FeatureNames, rf.FeatureImportances())
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "== %s ==\n", modelName)
	if err := report.WriteClassifier(stdout, rep); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n== Top %d feature importances ==\n", cfg.TopN)
	if err := report.WriteRanking(stdout, "importance", ranking, cfg.TopN); err != nil {
		return err
	}

	if cfg.Logistic.Enabled {
		baseline, err := compare.EvaluateClassifier(split, baselineName, linear.NewLogisticRegression(
			linear.WithC(cfg.Logistic.C),
			linear.WithLogisticMaxIter(cfg.Logistic.MaxIter),
		))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\n== %s (baseline) ==\n", baselineName)
		if err := report.WriteClassifier(stdout, baseline); err != nil {
			return err
		}
	}

	if cfg.PlotsDir != "" {
		if err := report.PlotRanking(filepath.Join(cfg.PlotsDir, "diabetes_feature_importances.png"),
			modelName+" feature importances", ranking, cfg.TopN); err != nil {
			return err
		}
	}
	if cfg.Artifact.Path != "" && !reused {
		if err := persist(cfg, runID, split, rep, scaler); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nSaved %s to %s\n", modelName, cfg.Artifact.Path)
	}

	logger.Info("pipeline finished",
		log.AccuracyKey, rep.Test.Accuracy,
		"model.reused", reused,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// reusable loads the configured artifact when artifact.reuse is set and the file exists.
// It returns nil otherwise.
func reusable(cfg *config.Config) (*model.Artifact, error) {
	if !cfg.Artifact.Reuse || cfg.Artifact.Path == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.Artifact.Path); err != nil {
		return nil, nil
	}
	return model.LoadArtifact(cfg.Artifact.Path)
}

// checkArtifact rejects an artifact trained on other features or another scaling setting
// than the current run.
func checkArtifact(art *model.Artifact, split *dataset.Split, standardize bool) error {
	if !slices.Equal(art.Metadata.Features, split.FeatureNames) {
		return errors.NewValueError("reuse artifact", fmt.Sprintf(
			"artifact features %v do not match dataset features %v", art.Metadata.Features, split.FeatureNames))
	}
	trained, _ := art.Metadata.Params["standardize"].(bool)
	if trained != standardize {
		return errors.NewValueError("reuse artifact", fmt.Sprintf(
			"artifact was trained with standardize=%t, config has standardize=%t", trained, standardize))
	}
	return nil
}

// evaluate scores art when given and trains a new forest otherwise.
func evaluate(cfg *config.Config, split *dataset.Split, art *model.Artifact, logger log.Logger) (*compare.ClassifierReport, bool, error) {
	if art != nil {
		clf, ok := art.Model.(model.Classifier)
		if !ok {
			return nil, false, errors.Newf("artifact %s holds %T, not a classifier", cfg.Artifact.Path, art.Model)
		}
		logger.Info("reusing artifact",
			log.PathKey, cfg.Artifact.Path,
			log.ModelNameKey, art.Metadata.ModelName,
			"artifact.run_id", art.Metadata.RunID,
		)
		rep, err := compare.ScoreClassifier(split, modelName, clf)
		return rep, true, err
	}

	fc := cfg.Forest
	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(fc.NEstimators),
		ensemble.WithMaxDepth(fc.MaxDepth),
		ensemble.WithMaxFeatures(fc.MaxFeatures),
		ensemble.WithRandomState(fc.RandomState),
		ensemble.WithNJobs(fc.NJobs),
	)
	rep, err := compare.EvaluateClassifier(split, modelName, rf)
	return rep, false, err
}

func persist(cfg *config.Config, runID string, split *dataset.Split, rep *compare.ClassifierReport, scaler *preprocessing.StandardScaler) error {
	meta := model.ArtifactMetadata{
		RunID:     runID,
		ModelName: modelName,
		CreatedAt: time.Now().UTC(),
		Features:  split.FeatureNames,
		Metrics: map[string]float64{
			"train_accuracy": rep.Train.Accuracy,
			"test_accuracy":  rep.Test.Accuracy,
			"test_precision": rep.Test.Precision,
			"test_recall":    rep.Test.Recall,
			"test_f1":        rep.Test.F1,
			"test_auc":       rep.Test.AUC,
			"overfitting":    rep.Overfitting,
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
		return model.SaveModel(scaler, preprocessing.ScalerPath(cfg.Artifact.Path))
	}
	return nil
}
