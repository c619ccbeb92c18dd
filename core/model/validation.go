package model

import (
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ValidateFitInput checks the shapes every supervised Fit expects and rejects NaN/Inf.
func ValidateFitInput(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return 0, 0, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	if err := errors.CheckMatrix(op, X); err != nil {
		return 0, 0, err
	}
	if err := errors.CheckMatrix(op, y); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// TargetVector copies the first column of y.
func TargetVector(y mat.Matrix) *mat.VecDense {
	r, _ := y.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, y.At(i, 0))
	}
	return v
}
