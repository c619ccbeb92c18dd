package linear

import (
	"math"
	"time"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ElasticNet is least squares with a combined L1 and L2 penalty:
//
//	minimize (1/2n)||y - Xw||² + alpha·l1Ratio·||w||₁ + ½·alpha·(1 - l1Ratio)·||w||²
//
// It is solved by cyclic coordinate descent. The loop stops when the duality gap falls
// below tol·||y||²; if MaxIter passes are not enough a ConvergenceWarning is raised and
// the last iterate is kept.
type ElasticNet struct {
	Alpha        float64
	L1Ratio      float64
	FitIntercept bool
	MaxIter      int
	Tol          float64

	State      *model.StateManager
	Coef_      []float64
	Intercept_ float64
	NIter_     int
	DualGap_   float64
}

// NewElasticNet creates an ElasticNet regressor. alpha defaults to 1.0 and l1Ratio to 0.5.
func NewElasticNet(opts ...Option) *ElasticNet {
	o := applyOptions(opts)
	return &ElasticNet{
		Alpha:        o.alpha,
		L1Ratio:      o.l1Ratio,
		FitIntercept: o.fitIntercept,
		MaxIter:      o.maxIter,
		Tol:          o.tol,
		State:        model.NewStateManager(),
	}
}

// Fit learns the coefficients.
func (e *ElasticNet) Fit(X, y mat.Matrix) error {
	return e.fit("ElasticNet", X, y)
}

func (e *ElasticNet) validate() error {
	if err := validateAlpha(e.Alpha); err != nil {
		return err
	}
	if e.L1Ratio < 0 || e.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", e.L1Ratio)
	}
	if e.MaxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", e.MaxIter)
	}
	if e.Tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", e.Tol)
	}
	return nil
}

func (e *ElasticNet) fit(name string, X, y mat.Matrix) (err error) {
	op := name + ".Fit"
	defer errors.Recover(&err, op)
	start := time.Now()

	if err := e.validate(); err != nil {
		return err
	}
	rows, cols, err := model.ValidateFitInput(op, X, y)
	if err != nil {
		return err
	}
	if e.State == nil {
		e.State = model.NewStateManager()
	}
	e.State.Reset()

	data := center(X, y, e.FitIntercept)

	n := float64(rows)
	res := coordinateDescent(data.X, data.y.RawVector().Data,
		e.Alpha*e.L1Ratio*n, e.Alpha*(1-e.L1Ratio)*n, e.MaxIter, e.Tol)

	if !res.converged {
		errors.Warn(errors.NewConvergenceWarning(name, res.nIter,
			"objective did not converge, consider increasing max_iter or alpha"))
	}
	if err := errors.CheckNumericalStability(op, res.w, res.nIter); err != nil {
		return err
	}

	e.Coef_ = res.w
	e.Intercept_ = data.intercept(e.Coef_, e.FitIntercept)
	e.NIter_ = res.nIter
	e.DualGap_ = res.gap
	e.State.SetFitted(cols, rows)

	log.GetLoggerWithName("linear").Debug("model fitted",
		log.ModelNameKey, name,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.RegularizationKey, e.Alpha,
		log.IterationKey, res.nIter,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

type cdResult struct {
	w         []float64
	nIter     int
	gap       float64
	converged bool
}

// coordinateDescent minimizes ½||y - Xw||² + l1·||w||₁ + ½·l2·||w||².
func coordinateDescent(X *mat.Dense, y []float64, l1, l2 float64, maxIter int, tol float64) cdResult {
	_, nFeatures := X.Dims()

	// columns as contiguous slices
	cols := make([][]float64, nFeatures)
	normCols := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		cols[j] = mat.Col(nil, j, X)
		normCols[j] = floats.Dot(cols[j], cols[j])
	}

	w := make([]float64, nFeatures)
	resid := append([]float64(nil), y...)
	gapTol := tol * floats.Dot(y, y)

	var gap float64
	for iter := 0; iter < maxIter; iter++ {
		var wMax, dwMax float64
		for j := 0; j < nFeatures; j++ {
			if normCols[j] == 0 {
				continue
			}
			wj := w[j]
			if wj != 0 {
				floats.AddScaled(resid, wj, cols[j])
			}

			tmp := floats.Dot(cols[j], resid)
			w[j] = errors.SoftThreshold(tmp, l1) / (normCols[j] + l2)

			if w[j] != 0 {
				floats.AddScaled(resid, -w[j], cols[j])
			}

			dwMax = math.Max(dwMax, math.Abs(w[j]-wj))
			wMax = math.Max(wMax, math.Abs(w[j]))
		}

		if wMax == 0 || dwMax/wMax < tol || iter == maxIter-1 {
			gap = dualityGap(cols, y, resid, w, l1, l2)
			if gap < gapTol {
				return cdResult{w: w, nIter: iter + 1, gap: gap, converged: true}
			}
		}
	}
	return cdResult{w: w, nIter: maxIter, gap: gap, converged: false}
}

// dualityGap is the gap between the primal objective and the dual of the
// elastic-net problem at w, with resid = y - Xw.
func dualityGap(cols [][]float64, y, resid, w []float64, l1, l2 float64) float64 {
	var dualNorm float64
	for j, col := range cols {
		xta := floats.Dot(col, resid) - l2*w[j]
		dualNorm = math.Max(dualNorm, math.Abs(xta))
	}

	rNorm2 := floats.Dot(resid, resid)
	wNorm2 := floats.Dot(w, w)

	var constant, gap float64
	if dualNorm > l1 {
		constant = l1 / dualNorm
		aNorm2 := rNorm2 * constant * constant
		gap = 0.5 * (rNorm2 + aNorm2)
	} else {
		constant = 1
		gap = rNorm2
	}

	l1Norm := floats.Norm(w, 1)
	gap += l1*l1Norm - constant*floats.Dot(resid, y) + 0.5*l2*(1+constant*constant)*wNorm2
	return gap
}

// Predict returns X·w + b as an n×1 matrix.
func (e *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictLinear("ElasticNet.Predict", e.State, "ElasticNet", e.Coef_, e.Intercept_, X)
}

// Score returns the R² of the prediction.
func (e *ElasticNet) Score(X, y mat.Matrix) (float64, error) {
	return scoreR2(e, X, y)
}

// Coefficients returns a copy of the learned weights.
func (e *ElasticNet) Coefficients() []float64 {
	return append([]float64(nil), e.Coef_...)
}

// Intercept returns the learned bias.
func (e *ElasticNet) Intercept() float64 {
	return e.Intercept_
}

// GetParams returns the hyperparameters.
func (e *ElasticNet) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         e.Alpha,
		"l1_ratio":      e.L1Ratio,
		"fit_intercept": e.FitIntercept,
		"max_iter":      e.MaxIter,
		"tol":           e.Tol,
	}
}

// Lasso is ElasticNet with l1Ratio fixed at 1:
//
//	minimize (1/2n)||y - Xw||² + alpha·||w||₁
type Lasso struct {
	ElasticNet
}

// NewLasso creates a Lasso regressor. alpha defaults to 1.0.
func NewLasso(opts ...Option) *Lasso {
	en := NewElasticNet(opts...)
	en.L1Ratio = 1
	return &Lasso{ElasticNet: *en}
}

// Fit learns the coefficients.
func (l *Lasso) Fit(X, y mat.Matrix) error {
	l.L1Ratio = 1
	return l.fit("Lasso", X, y)
}

// Predict returns X·w + b as an n×1 matrix.
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	return predictLinear("Lasso.Predict", l.State, "Lasso", l.Coef_, l.Intercept_, X)
}

// Score returns the R² of the prediction.
func (l *Lasso) Score(X, y mat.Matrix) (float64, error) {
	return scoreR2(l, X, y)
}

// GetParams returns the hyperparameters.
func (l *Lasso) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         l.Alpha,
		"fit_intercept": l.FitIntercept,
		"max_iter":      l.MaxIter,
		"tol":           l.Tol,
	}
}
