package linear

import (
	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/core/parallel"
	"github.com/YuminosukeSato/healthml/metrics"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// centered is the training data with column means removed.
type centered struct {
	X     *mat.Dense
	y     *mat.VecDense
	xMean []float64
	yMean float64
}

// center copies X and y, subtracting their means when fitIntercept is set so that the
// intercept can be recovered as yMean - xMean·w and is never penalized.
func center(X, y mat.Matrix, fitIntercept bool) *centered {
	r, c := X.Dims()

	xMean := make([]float64, c)
	var yMean float64
	if fitIntercept {
		col := make([]float64, r)
		for j := 0; j < c; j++ {
			xMean[j] = stat.Mean(mat.Col(col, j, X), nil)
		}
		yMean = stat.Mean(mat.Col(col, 0, y), nil)
	}

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.At(i, 0)-yMean)
		}
	})

	return &centered{X: Xc, y: yc, xMean: xMean, yMean: yMean}
}

// intercept returns yMean - xMean·w, or 0 without an intercept.
func (c *centered) intercept(w []float64, fitIntercept bool) float64 {
	if !fitIntercept {
		return 0
	}
	b := c.yMean
	for j, m := range c.xMean {
		b -= m * w[j]
	}
	return b
}

// predictLinear computes X·coef + intercept as an n×1 matrix.
func predictLinear(op string, state *model.StateManager, name string, coef []float64, intercept float64, X mat.Matrix) (mat.Matrix, error) {
	if state == nil {
		return nil, errors.NewNotFittedError(name, "Predict")
	}
	if err := state.RequireFitted(name, "Predict"); err != nil {
		return nil, err
	}
	if err := state.RequireFeatures(op, X); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(coef), coef))

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, out.AtVec(i)+intercept)
	}
	return predictions, nil
}

// scoreR2 returns the R² of p's predictions on X against y.
func scoreR2(p model.Predictor, X, y mat.Matrix) (float64, error) {
	yPred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	b, err := metrics.Evaluate(y, yPred)
	if err != nil {
		return 0, err
	}
	return b.R2, nil
}

func validateAlpha(alpha float64) error {
	if alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", alpha)
	}
	return nil
}
