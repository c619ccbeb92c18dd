// Package metrics implements regression and classification scores with scikit-learn
// semantics.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// When yTrue is constant the ratio is undefined; like scikit-learn the score is 1 for a
// perfect prediction and 0 otherwise.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		yPredVal := yPred.AtVec(i)

		tss += (yTrueVal - yMean) * (yTrueVal - yMean)
		rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
	}

	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する
//
// The result is a fraction (0.05 means 5%). A zero in yTrue is not skipped: the division
// yields Inf (or NaN for 0/0) and that value is returned without an error.
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		sum += math.Abs(yTrueVal-yPred.AtVec(i)) / math.Abs(yTrueVal)
	}
	return sum / float64(n), nil
}

// ExplainedVarianceScore は説明分散スコアを計算する
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yTrueMean, diffMean float64
	for i := 0; i < n; i++ {
		yTrueMean += yTrue.AtVec(i)
		diffMean += yTrue.AtVec(i) - yPred.AtVec(i)
	}
	yTrueMean /= float64(n)
	diffMean /= float64(n)

	var varYTrue, varDiff float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		diff := yTrueVal - yPred.AtVec(i)

		varYTrue += (yTrueVal - yTrueMean) * (yTrueVal - yTrueMean)
		varDiff += (diff - diffMean) * (diff - diffMean)
	}

	if varYTrue == 0 {
		if varDiff == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - varDiff/varYTrue, nil
}

// Bundle holds the standard regression metrics for one (true, predicted) pair.
type Bundle struct {
	R2                float64
	MSE               float64
	RMSE              float64
	MAE               float64
	MAPE              float64
	ExplainedVariance float64
}

// Evaluate computes a Bundle. Both arguments must be n×1 matrices.
func Evaluate(yTrue, yPred mat.Matrix) (Bundle, error) {
	t, err := columnVector("Evaluate", yTrue)
	if err != nil {
		return Bundle{}, err
	}
	p, err := columnVector("Evaluate", yPred)
	if err != nil {
		return Bundle{}, err
	}

	var b Bundle
	if b.R2, err = R2Score(t, p); err != nil {
		return Bundle{}, err
	}
	if b.MSE, err = MSE(t, p); err != nil {
		return Bundle{}, err
	}
	b.RMSE = math.Sqrt(b.MSE)
	if b.MAE, err = MAE(t, p); err != nil {
		return Bundle{}, err
	}
	if b.MAPE, err = MAPE(t, p); err != nil {
		return Bundle{}, err
	}
	if b.ExplainedVariance, err = ExplainedVarianceScore(t, p); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func columnVector(op string, m mat.Matrix) (*mat.VecDense, error) {
	if v, ok := m.(*mat.VecDense); ok {
		return v, nil
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}
