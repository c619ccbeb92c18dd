package linear

import (
	"encoding/gob"
	"math"
	"slices"
	"time"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&LogisticRegression{})
}

// LogisticRegression implements binary logistic regression with an L2 penalty.
//
// It minimizes C·Σ logloss + ½||w||², the intercept unpenalized, like scikit-learn's
// lbfgs solver. The problem is smooth and strictly convex, so it is solved by damped
// Newton iterations.
type LogisticRegression struct {
	C            float64
	FitIntercept bool
	MaxIter      int
	Tol          float64

	State      *model.StateManager
	Coef_      []float64
	Intercept_ float64
	Classes_   []float64
	NIter_     int
}

// LogisticOption configures a LogisticRegression.
type LogisticOption func(*LogisticRegression)

// WithC sets the inverse regularization strength.
func WithC(c float64) LogisticOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLogisticFitIntercept sets whether to fit an intercept.
func WithLogisticFitIntercept(fit bool) LogisticOption {
	return func(lr *LogisticRegression) { lr.FitIntercept = fit }
}

// WithLogisticMaxIter sets the maximum number of Newton iterations.
func WithLogisticMaxIter(n int) LogisticOption {
	return func(lr *LogisticRegression) { lr.MaxIter = n }
}

// WithLogisticTol sets the stopping tolerance on the largest gradient component.
func WithLogisticTol(tol float64) LogisticOption {
	return func(lr *LogisticRegression) { lr.Tol = tol }
}

// NewLogisticRegression creates a classifier with C = 1, an intercept, 100 iterations and
// tol = 1e-4.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	lr := &LogisticRegression{
		C:            1.0,
		FitIntercept: true,
		MaxIter:      100,
		Tol:          1e-4,
		State:        model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

func (lr *LogisticRegression) validate() error {
	switch {
	case lr.C <= 0 || math.IsNaN(lr.C):
		return errors.NewValidationError("C", "must be positive", lr.C)
	case lr.MaxIter < 1:
		return errors.NewValidationError("max_iter", "must be at least 1", lr.MaxIter)
	case lr.Tol < 0:
		return errors.NewValidationError("tol", "must be non-negative", lr.Tol)
	}
	return nil
}

// Fit trains the logistic regression model. y must hold exactly two distinct labels; the
// larger one is the positive class.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")
	start := time.Now()

	if err := lr.validate(); err != nil {
		return err
	}
	r, c, err := model.ValidateFitInput("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.Reset()

	labels := mat.Col(nil, 0, y)
	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	if len(classes) != 2 {
		return errors.NewValueError("LogisticRegression.Fit", "binary labels required")
	}
	target := make([]float64, r)
	for i, v := range labels {
		if v == classes[1] {
			target[i] = 1
		}
	}

	// the last column of A is the intercept feature
	p := c
	if lr.FitIntercept {
		p++
	}
	A := mat.NewDense(r, p, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			A.Set(i, j, X.At(i, j))
		}
		if lr.FitIntercept {
			A.Set(i, c, 1)
		}
	}

	theta, nIter, converged, err := lr.newton(A, target, c)
	if err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("LogisticRegression.Fit", theta, nIter); err != nil {
		return err
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", nIter,
			"Increase the number of iterations (max_iter) or scale the data."))
	}

	lr.Coef_ = theta[:c]
	lr.Intercept_ = 0
	if lr.FitIntercept {
		lr.Intercept_ = theta[c]
	}
	lr.Classes_ = classes
	lr.NIter_ = nIter
	lr.State.SetFitted(c, r)

	log.GetLoggerWithName("linear").Debug("model fitted",
		log.ModelNameKey, "LogisticRegression",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.IterationKey, nIter,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// newton minimizes the penalized loss over theta. Columns of A at index >= nPenalized
// are not penalized.
func (lr *LogisticRegression) newton(A *mat.Dense, y []float64, nPenalized int) ([]float64, int, bool, error) {
	r, p := A.Dims()
	theta := mat.NewVecDense(p, nil)
	prob := make([]float64, r)
	grad := mat.NewVecDense(p, nil)
	resid := mat.NewVecDense(r, nil)
	step := mat.NewVecDense(p, nil)
	weighted := mat.NewDense(r, p, nil)
	hess := mat.NewSymDense(p, nil)
	var chol mat.Cholesky

	loss := lr.objective(A, theta, y, nPenalized)
	for iter := 1; iter <= lr.MaxIter; iter++ {
		lr.probabilities(A, theta, prob)

		// gradient: C·Aᵀ(p − y) + w
		for i := range prob {
			resid.SetVec(i, prob[i]-y[i])
		}
		grad.MulVec(A.T(), resid)
		grad.ScaleVec(lr.C, grad)
		for j := 0; j < nPenalized; j++ {
			grad.SetVec(j, grad.AtVec(j)+theta.AtVec(j))
		}
		if mat.Norm(grad, math.Inf(1)) < lr.Tol {
			return theta.RawVector().Data, iter - 1, true, nil
		}

		// Hessian: C·AᵀWA + I on penalized coordinates
		for i := 0; i < r; i++ {
			w := lr.C * prob[i] * (1 - prob[i])
			for j := 0; j < p; j++ {
				weighted.Set(i, j, math.Sqrt(w)*A.At(i, j))
			}
		}
		hess.SymOuterK(1, weighted.T())
		for j := 0; j < p; j++ {
			d := 1.0
			if j >= nPenalized {
				d = 1e-10
			}
			hess.SetSym(j, j, hess.At(j, j)+d)
		}
		if ok := chol.Factorize(hess); !ok {
			return nil, iter, false, errors.NewModelError("LogisticRegression.Fit", "Hessian is not positive definite", errors.ErrSingularMatrix)
		}
		if err := chol.SolveVecTo(step, grad); err != nil {
			return nil, iter, false, errors.NewModelError("LogisticRegression.Fit", "Newton step failed", err)
		}

		// backtracking keeps the loss decreasing
		t := 1.0
		candidate := mat.NewVecDense(p, nil)
		for {
			candidate.AddScaledVec(theta, -t, step)
			next := lr.objective(A, candidate, y, nPenalized)
			if next <= loss || t < 1e-10 {
				theta.CopyVec(candidate)
				loss = next
				break
			}
			t /= 2
		}
	}
	return theta.RawVector().Data, lr.MaxIter, false, nil
}

func (lr *LogisticRegression) probabilities(A mat.Matrix, theta mat.Vector, out []float64) {
	var z mat.VecDense
	z.MulVec(A, theta)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i))
	}
}

func (lr *LogisticRegression) objective(A mat.Matrix, theta mat.Vector, y []float64, nPenalized int) float64 {
	var z mat.VecDense
	z.MulVec(A, theta)
	var loss float64
	for i, yi := range y {
		zi := z.AtVec(i)
		// log(1 + e^z) − y·z, stable for large |z|
		loss += math.Max(zi, 0) + math.Log1p(math.Exp(-math.Abs(zi))) - yi*zi
	}
	var penalty float64
	for j := 0; j < nPenalized; j++ {
		penalty += theta.AtVec(j) * theta.AtVec(j)
	}
	return lr.C*loss + 0.5*penalty
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

func (lr *LogisticRegression) decision(op string, X mat.Matrix) ([]float64, error) {
	if lr.State == nil {
		return nil, errors.NewNotFittedError("LogisticRegression", op)
	}
	if err := lr.State.RequireFitted("LogisticRegression", op); err != nil {
		return nil, err
	}
	if err := lr.State.RequireFeatures("LogisticRegression."+op, X); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("LogisticRegression."+op, X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := make([]float64, r)
	coef := mat.NewVecDense(len(lr.Coef_), lr.Coef_)
	var z mat.VecDense
	z.MulVec(X, coef)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + lr.Intercept_)
	}
	return out, nil
}

// PredictProba returns an n×2 matrix of class probabilities ordered as Classes.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.decision("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(p), 2, nil)
	for i, v := range p {
		out.Set(i, 0, 1-v)
		out.Set(i, 1, v)
	}
	return out, nil
}

// Predict returns the positive class where its probability is at least 0.5.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.decision("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(p), 1, nil)
	for i, v := range p {
		label := lr.Classes_[0]
		if v >= 0.5 {
			label = lr.Classes_[1]
		}
		out.Set(i, 0, label)
	}
	return out, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	yr, _ := y.Dims()
	if yr != r {
		return 0, errors.NewDimensionError("LogisticRegression.Score", r, yr, 0)
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// Classes returns the two labels seen during fitting, sorted.
func (lr *LogisticRegression) Classes() []float64 {
	return slices.Clone(lr.Classes_)
}

// Coefficients returns the weights of the positive class.
func (lr *LogisticRegression) Coefficients() []float64 {
	return slices.Clone(lr.Coef_)
}

// Intercept returns the learned intercept.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.Intercept_
}

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.State != nil && lr.State.IsFitted()
}

// GetParams returns the model hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.C,
		"fit_intercept": lr.FitIntercept,
		"max_iter":      lr.MaxIter,
		"tol":           lr.Tol,
	}
}
