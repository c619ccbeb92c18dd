// Package healthml trains and compares small models on pre-cleaned public health data.
//
// Two pipelines ship as commands:
//
//   - cmd/heartdisease fits linear, ridge, lasso and elastic-net regression on the heart
//     disease prevalence split, picks the model with the best test R² and ranks its
//     coefficients.
//   - cmd/diabetes trains a random forest classifier on the diabetes split, reports its
//     scores and feature importances next to a logistic regression baseline.
//
// Both read four CSV files (X_train, y_train, X_test, y_test), take an optional YAML or
// TOML config file as their only argument and persist the selected model as an artifact.
//
// # Quick Start
//
//	split, err := dataset.LoadSplit(dataset.Paths{
//	    XTrain: "data/heart_disease/X_train.csv",
//	    YTrain: "data/heart_disease/y_train.csv",
//	    XTest:  "data/heart_disease/X_test.csv",
//	    YTest:  "data/heart_disease/y_test.csv",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rep, err := compare.Compare(split, []compare.NamedEstimator{
//	    {Name: "Linear Regression", Estimator: linear.NewLinearRegression()},
//	    {Name: "Ridge Regression", Estimator: linear.NewRidge(linear.WithAlpha(1))},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ranking, _ := rep.FeatureImportance(split.FeatureNames)
//	report.WriteComparison(os.Stdout, rep)
//	report.WriteRanking(os.Stdout, "coefficient", ranking, compare.DefaultTopN)
//
// # Packages
//
//   - compare: model comparison, winner selection, feature ranking, classifier evaluation
//   - linear: LinearRegression, Ridge, Lasso, ElasticNet, LogisticRegression
//   - ensemble: DecisionTreeClassifier, RandomForestClassifier
//   - metrics: regression and classification scores
//   - dataset: CSV loading into gonum matrices
//   - preprocessing: StandardScaler
//   - report: console tables and PNG charts
//   - config: YAML/TOML run configuration
//   - core/model: estimator interfaces, artifacts, exported weights
//   - core/parallel: worker pool helpers
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// # Artifacts
//
// model.SaveArtifact writes a header (magic "HMLA" and a format version), a zstd
// compressed gob payload and an xxhash64 checksum. model.LoadArtifact verifies the
// checksum before decoding.
package healthml
