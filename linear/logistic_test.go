package linear

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestLogisticRegression_SymmetricSolution(t *testing.T) {
	// minimizer of 2·log(1+e^-w) + w²/2 satisfies w = 2σ(-w)
	const want = 0.6748316143423994
	X := mat.NewDense(2, 1, []float64{-1, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})

	for _, fitIntercept := range []bool{false, true} {
		lr := NewLogisticRegression(WithLogisticFitIntercept(fitIntercept), WithLogisticTol(1e-10))
		if err := lr.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		if math.Abs(lr.Coefficients()[0]-want) > 1e-8 {
			t.Errorf("fit_intercept=%v: coef = %v, want %v", fitIntercept, lr.Coefficients()[0], want)
		}
		if math.Abs(lr.Intercept()) > 1e-8 {
			t.Errorf("fit_intercept=%v: intercept = %v, want 0", fitIntercept, lr.Intercept())
		}
	}
}

func TestLogisticRegression_Separates(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	n := 200
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		X.Set(i, 0, label*4+rng.NormFloat64())
		X.Set(i, 1, rng.NormFloat64())
		y.Set(i, 0, label*3+2) // labels 2 and 5
	}

	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := lr.Classes(); got[0] != 2 || got[1] != 5 {
		t.Errorf("Classes() = %v, want [2 5]", got)
	}

	acc, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if acc < 0.95 {
		t.Errorf("accuracy = %v, want >= 0.95", acc)
	}

	proba, err := lr.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if s := proba.At(i, 0) + proba.At(i, 1); math.Abs(s-1) > 1e-12 {
			t.Fatalf("row %d sums to %v", i, s)
		}
	}
	if lr.Coefficients()[0] <= 0 {
		t.Errorf("informative coefficient = %v, want positive", lr.Coefficients()[0])
	}
}

func TestLogisticRegression_StrongerPenaltyShrinks(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	weak := NewLogisticRegression(WithC(10))
	strong := NewLogisticRegression(WithC(0.01))
	for _, lr := range []*LogisticRegression{weak, strong} {
		if err := lr.Fit(X, y); err != nil {
			t.Fatal(err)
		}
	}
	if math.Abs(strong.Coefficients()[0]) >= math.Abs(weak.Coefficients()[0]) {
		t.Errorf("C=0.01 coef %v not smaller than C=10 coef %v", strong.Coefficients()[0], weak.Coefficients()[0])
	}
}

func TestLogisticRegression_Errors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})

	lr := NewLogisticRegression()
	if _, err := lr.Predict(X); err == nil {
		t.Error("Predict before Fit should fail")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("want NotFittedError, got %T", err)
		}
	}

	if err := lr.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 2})); err == nil {
		t.Error("three classes should be rejected")
	}
	if err := NewLogisticRegression(WithC(0)).Fit(X, mat.NewDense(3, 1, []float64{0, 1, 1})); err == nil {
		t.Error("C = 0 should be rejected")
	}

	if err := lr.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 1})); err != nil {
		t.Fatal(err)
	}
	if _, err := lr.Predict(mat.NewDense(1, 2, nil)); err == nil {
		t.Error("feature mismatch should fail")
	}
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	got := captureWarnings(t)

	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	lr := NewLogisticRegression(WithLogisticMaxIter(1), WithLogisticTol(0))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	if len(*got) != 1 {
		t.Fatalf("got %d warnings, want 1", len(*got))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As((*got)[0], &cw) {
		t.Errorf("want ConvergenceWarning, got %T", (*got)[0])
	}
}
