package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit learns the transformation from X.
	Fit(X mat.Matrix) error

	// Transform applies the learned transformation.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform is Fit followed by Transform on the same data.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
