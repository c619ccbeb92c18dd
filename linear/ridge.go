package linear

import (
	"time"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Ridge is least squares with an L2 penalty:
//
//	minimize ||y - Xw||² + alpha·||w||²
//
// solved in closed form, (XcᵀXc + alpha·I) w = Xcᵀyc, with a Cholesky factorization.
type Ridge struct {
	Alpha        float64
	FitIntercept bool

	State      *model.StateManager
	Coef_      []float64
	Intercept_ float64
}

// NewRidge creates a Ridge regressor. alpha defaults to 1.0.
func NewRidge(opts ...Option) *Ridge {
	o := applyOptions(opts)
	return &Ridge{
		Alpha:        o.alpha,
		FitIntercept: o.fitIntercept,
		State:        model.NewStateManager(),
	}
}

// Fit learns the coefficients.
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")
	start := time.Now()

	if err := validateAlpha(r.Alpha); err != nil {
		return err
	}
	rows, cols, err := model.ValidateFitInput("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	if r.State == nil {
		r.State = model.NewStateManager()
	}
	r.State.Reset()

	data := center(X, y, r.FitIntercept)

	// A = XcᵀXc + αI
	var a mat.SymDense
	a.SymOuterK(1, data.X.T())
	for j := 0; j < cols; j++ {
		a.SetSym(j, j, a.At(j, j)+r.Alpha)
	}

	var b mat.VecDense
	b.MulVec(data.X.T(), data.y)

	var w *mat.VecDense
	var chol mat.Cholesky
	if ok := chol.Factorize(&a); ok {
		w = mat.NewVecDense(cols, nil)
		if err := chol.SolveVecTo(w, &b); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return errors.NewModelError("Ridge.Fit", "cholesky solve failed", err)
			}
		}
	} else {
		// alpha == 0 with collinear columns
		w, err = leastSquares(data.X, data.y)
		if err != nil {
			return err
		}
	}
	if err := errors.CheckNumericalStability("Ridge.Fit", w.RawVector().Data, 0); err != nil {
		return err
	}

	r.Coef_ = mat.Col(nil, 0, w)
	r.Intercept_ = data.intercept(r.Coef_, r.FitIntercept)
	r.State.SetFitted(cols, rows)

	log.GetLoggerWithName("linear").Debug("model fitted",
		log.ModelNameKey, "Ridge",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.RegularizationKey, r.Alpha,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns X·w + b as an n×1 matrix.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictLinear("Ridge.Predict", r.State, "Ridge", r.Coef_, r.Intercept_, X)
}

// Score returns the R² of the prediction.
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	return scoreR2(r, X, y)
}

// Coefficients returns a copy of the learned weights.
func (r *Ridge) Coefficients() []float64 {
	return append([]float64(nil), r.Coef_...)
}

// Intercept returns the learned bias.
func (r *Ridge) Intercept() float64 {
	return r.Intercept_
}

// GetParams returns the hyperparameters.
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         r.Alpha,
		"fit_intercept": r.FitIntercept,
	}
}
