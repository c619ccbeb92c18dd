package linear

import (
	"bytes"
	"math"
	"testing"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestLinearRegression_Basic(t *testing.T) {
	// Test basic linear regression y = 2x + 1
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()

	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	if math.Abs(lr.Coefficients()[0]-2.0) > 1e-9 {
		t.Errorf("Expected coefficient ~2.0, got %f", lr.Coefficients()[0])
	}
	if math.Abs(lr.Intercept()-1.0) > 1e-9 {
		t.Errorf("Expected intercept ~1.0, got %f", lr.Intercept())
	}

	XTest := mat.NewDense(2, 1, []float64{5, 6})
	pred, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}

	expected := []float64{11, 13}
	for i := 0; i < 2; i++ {
		if math.Abs(pred.At(i, 0)-expected[i]) > 1e-9 {
			t.Errorf("Expected prediction %f, got %f", expected[i], pred.At(i, 0))
		}
	}
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	// Test without intercept: y = 2x
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))

	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if math.Abs(lr.Coefficients()[0]-2.0) > 1e-9 {
		t.Errorf("Expected coefficient ~2.0, got %f", lr.Coefficients()[0])
	}
	if lr.Intercept() != 0 {
		t.Errorf("Expected intercept 0, got %f", lr.Intercept())
	}
}

func TestLinearRegression_MultipleFeatures(t *testing.T) {
	// Test with multiple features: y = 2*x1 + 3*x2 + 1
	X := mat.NewDense(5, 2, []float64{
		1, 1,
		2, 1,
		3, 2,
		4, 2,
		5, 3,
	})
	y := mat.NewDense(5, 1, []float64{6, 8, 13, 15, 20})

	lr := NewLinearRegression()

	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	coef := lr.Coefficients()
	if math.Abs(coef[0]-2) > 1e-9 {
		t.Errorf("Expected first coefficient ~2.0, got %f", coef[0])
	}
	if math.Abs(coef[1]-3) > 1e-9 {
		t.Errorf("Expected second coefficient ~3.0, got %f", coef[1])
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(score-1) > 1e-12 {
		t.Errorf("Score() = %v, want 1", score)
	}
}

func TestLinearRegression_CollinearFeatures(t *testing.T) {
	// x2 = 2*x1; the minimum-norm solution splits the weight 1:2
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})
	y := mat.NewDense(4, 1, []float64{5, 10, 15, 20})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	coef := lr.Coefficients()
	if math.Abs(coef[0]-1) > 1e-8 || math.Abs(coef[1]-2) > 1e-8 {
		t.Errorf("Expected minimum-norm coefficients [1 2], got %v", coef)
	}
	if math.Abs(lr.Intercept()) > 1e-8 {
		t.Errorf("Expected intercept 0, got %f", lr.Intercept())
	}
}

func allEstimators() map[string]model.Regressor {
	return map[string]model.Regressor{
		"LinearRegression": NewLinearRegression(),
		"Ridge":            NewRidge(),
		"Lasso":            NewLasso(WithAlpha(0.01)),
		"ElasticNet":       NewElasticNet(WithAlpha(0.01)),
	}
}

func TestEstimators_PredictReturnsOneRowPerSample(t *testing.T) {
	X, y := createBenchmarkData(60, 4)
	XTest, _ := createBenchmarkData(17, 4)

	for name, est := range allEstimators() {
		t.Run(name, func(t *testing.T) {
			if err := est.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			pred, err := est.Predict(XTest)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			r, c := pred.Dims()
			if r != 17 || c != 1 {
				t.Errorf("Predict() dims = (%d, %d), want (17, 1)", r, c)
			}
		})
	}
}

func TestEstimators_Errors(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	for name, est := range allEstimators() {
		t.Run(name+"/not fitted", func(t *testing.T) {
			_, err := est.Predict(X)
			var nf *errors.NotFittedError
			if !errors.As(err, &nf) {
				t.Errorf("Predict() before Fit error = %v, want NotFittedError", err)
			}
		})

		t.Run(name+"/row mismatch", func(t *testing.T) {
			err := est.Fit(X, mat.NewDense(2, 1, []float64{1, 2}))
			var de *errors.DimensionError
			if !errors.As(err, &de) {
				t.Errorf("Fit() error = %v, want DimensionError", err)
			}
		})

		t.Run(name+"/non-finite input", func(t *testing.T) {
			bad := mat.NewDense(3, 2, []float64{1, math.NaN(), 3, 4, 5, 6})
			err := est.Fit(bad, y)
			var ni *errors.NumericalInstabilityError
			if !errors.As(err, &ni) {
				t.Errorf("Fit() error = %v, want NumericalInstabilityError", err)
			}
		})

		t.Run(name+"/feature mismatch", func(t *testing.T) {
			if err := est.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			_, err := est.Predict(mat.NewDense(2, 3, nil))
			var de *errors.DimensionError
			if !errors.As(err, &de) {
				t.Errorf("Predict() error = %v, want DimensionError", err)
			}
		})
	}
}

func TestEstimators_ArtifactRoundTrip(t *testing.T) {
	X, y := createBenchmarkData(50, 3)

	for name, est := range allEstimators() {
		t.Run(name, func(t *testing.T) {
			if err := est.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			want, err := est.Predict(X)
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			if err := model.WriteArtifact(&buf, est, model.ArtifactMetadata{ModelName: name}); err != nil {
				t.Fatalf("WriteArtifact() error = %v", err)
			}
			a, err := model.ReadArtifact(&buf)
			if err != nil {
				t.Fatalf("ReadArtifact() error = %v", err)
			}
			if a.Metadata.ModelName != name {
				t.Errorf("ModelName = %q, want %q", a.Metadata.ModelName, name)
			}

			got, err := a.Model.Predict(X)
			if err != nil {
				t.Fatalf("Predict() on reloaded model error = %v", err)
			}
			if !mat.EqualApprox(got, want, 1e-12) {
				t.Error("reloaded model predicts differently")
			}
		})
	}
}
