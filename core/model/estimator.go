package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit learns parameters from X (n_samples × n_features) and y (n_samples × 1).
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict returns an n_samples × 1 matrix. It is a pure function of the learned
	// parameters and X.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is anything that can be fitted and then predict.
type Estimator interface {
	Fitter
	Predictor
}

// LinearModel exposes the learned parameters of a linear estimator.
type LinearModel interface {
	// Coefficients returns one weight per feature, in input column order.
	Coefficients() []float64
	// Intercept returns the learned bias term.
	Intercept() float64
}
