package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is implemented by models that compute their default score.
type Scorer interface {
	// Score returns R² for regressors and accuracy for classifiers.
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns an n_samples × n_classes matrix of class probabilities,
	// columns aligned with Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted labels seen during fitting.
	Classes() []float64
}

// FeatureImporter is implemented by models with impurity based feature importances.
type FeatureImporter interface {
	FeatureImportances() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters keyed by their conventional snake_case names.
	GetParams() map[string]interface{}
}
