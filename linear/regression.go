// Package linear implements least squares regressors with scikit-learn semantics:
// LinearRegression, Ridge, Lasso and ElasticNet. All of them fit an unpenalized intercept
// by centering the training data.
package linear

import (
	"encoding/gob"
	"time"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&LinearRegression{})
	gob.Register(&Ridge{})
	gob.Register(&Lasso{})
	gob.Register(&ElasticNet{})
}

// rcond below which singular values are treated as zero in the least squares fallback
const svdRcond = 1e-12

// LinearRegression は線形回帰モデル
//
// Ordinary least squares. The centered problem is solved by QR decomposition; rank
// deficient designs fall back to the minimum-norm SVD solution, like numpy's lstsq.
type LinearRegression struct {
	FitIntercept bool

	State      *model.StateManager
	Coef_      []float64
	Intercept_ float64
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	o := applyOptions(opts)
	return &LinearRegression{
		FitIntercept: o.fitIntercept,
		State:        model.NewStateManager(),
	}
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")
	start := time.Now()

	r, c, err := model.ValidateFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.Reset()

	data := center(X, y, lr.FitIntercept)

	w, err := leastSquares(data.X, data.y)
	if err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", w.RawVector().Data, 0); err != nil {
		return err
	}

	lr.Coef_ = mat.Col(nil, 0, w)
	lr.Intercept_ = data.intercept(lr.Coef_, lr.FitIntercept)
	lr.State.SetFitted(c, r)

	log.GetLoggerWithName("linear").Debug("model fitted",
		log.ModelNameKey, "LinearRegression",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// leastSquares solves min ||Xw - y||².
func leastSquares(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	r, c := X.Dims()
	w := mat.NewVecDense(c, nil)

	if r >= c {
		var qr mat.QR
		qr.Factorize(X)
		if qr.Cond() < 1/svdRcond {
			err := qr.SolveVecTo(w, false, y)
			if err == nil {
				return w, nil
			}
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return nil, errors.NewModelError("LinearRegression.Fit", "QR solve failed", err)
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(svdRcond)
	if rank == 0 {
		// every column is constant after centering
		return w, nil
	}
	svd.SolveVecTo(w, y, rank)
	return w, nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictLinear("LinearRegression.Predict", lr.State, "LinearRegression", lr.Coef_, lr.Intercept_, X)
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return scoreR2(lr, X, y)
}

// Coefficients は学習された重み（係数）を返す
func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.Coef_...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.Intercept_
}

// GetParams returns the hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.FitIntercept,
	}
}

// IsFitted reports whether Fit has completed.
func (lr *LinearRegression) IsFitted() bool {
	return lr.State != nil && lr.State.IsFitted()
}
