package ensemble

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// makeBlobs returns two Gaussian clusters separated along feature 0; the remaining
// features are noise.
func makeBlobs(n, features int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, features, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		y.Set(i, 0, label)
		X.Set(i, 0, label*4+rng.NormFloat64())
		for j := 1; j < features; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}
	return X, y
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := makeBlobs(200, 5, 1)
	XTest, yTest := makeBlobs(100, 5, 2)

	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(42))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	acc, err := rf.Score(XTest, yTest)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if acc < 0.9 {
		t.Errorf("test accuracy = %v, want >= 0.9", acc)
	}

	pred, err := rf.Predict(XTest)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := pred.Dims(); r != 100 || c != 1 {
		t.Errorf("Predict() dims = (%d, %d), want (100, 1)", r, c)
	}
}

func TestRandomForestClassifier_PredictProbaRowsSumToOne(t *testing.T) {
	X, y := makeBlobs(80, 3, 3)

	rf := NewRandomForestClassifier(WithNEstimators(10), WithRandomState(7))
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	proba, err := rf.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	r, c := proba.Dims()
	if c != 2 {
		t.Fatalf("expected 2 probability columns, got %d", c)
	}
	for i := 0; i < r; i++ {
		if s := proba.At(i, 0) + proba.At(i, 1); math.Abs(s-1) > 1e-9 {
			t.Errorf("row %d sums to %v", i, s)
		}
	}
}

func TestRandomForestClassifier_DeterministicAcrossWorkers(t *testing.T) {
	X, y := makeBlobs(120, 4, 5)

	sequential := NewRandomForestClassifier(WithNEstimators(16), WithRandomState(11), WithNJobs(1))
	concurrent := NewRandomForestClassifier(WithNEstimators(16), WithRandomState(11), WithNJobs(4))
	if err := sequential.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := concurrent.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	p1, _ := sequential.PredictProba(X)
	p2, _ := concurrent.PredictProba(X)
	if !mat.Equal(p1, p2) {
		t.Error("probabilities differ between NJobs=1 and NJobs=4")
	}

	imp1, imp2 := sequential.FeatureImportances(), concurrent.FeatureImportances()
	for j := range imp1 {
		if imp1[j] != imp2[j] {
			t.Errorf("importance[%d] differs: %v vs %v", j, imp1[j], imp2[j])
		}
	}
}

func TestRandomForestClassifier_FeatureImportances(t *testing.T) {
	X, y := makeBlobs(200, 4, 9)

	rf := NewRandomForestClassifier(WithNEstimators(20), WithRandomState(1))
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	imp := rf.FeatureImportances()
	if len(imp) != 4 {
		t.Fatalf("expected 4 importances, got %d", len(imp))
	}
	var sum float64
	for j, v := range imp {
		sum += v
		if j > 0 && v >= imp[0] {
			t.Errorf("noise feature %d importance %v >= signal importance %v", j, v, imp[0])
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", sum)
	}
}

func TestRandomForestClassifier_Errors(t *testing.T) {
	X, y := makeBlobs(20, 2, 1)

	rf := NewRandomForestClassifier()
	_, err := rf.Predict(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Predict() before Fit error = %v, want NotFittedError", err)
	}

	bad := NewRandomForestClassifier(WithNEstimators(0))
	var ve *errors.ValidationError
	if err := bad.Fit(X, y); !errors.As(err, &ve) {
		t.Errorf("Fit() with n_estimators=0 error = %v, want ValidationError", err)
	}

	rf = NewRandomForestClassifier(WithNEstimators(3))
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var de *errors.DimensionError
	if _, err := rf.Predict(mat.NewDense(2, 5, nil)); !errors.As(err, &de) {
		t.Errorf("Predict() with wrong width error = %v, want DimensionError", err)
	}
}

func TestRandomForestClassifier_ArtifactRoundTrip(t *testing.T) {
	X, y := makeBlobs(60, 3, 4)

	rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(3))
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	want, _ := rf.PredictProba(X)

	var buf bytes.Buffer
	if err := model.WriteArtifact(&buf, rf, model.ArtifactMetadata{ModelName: "RandomForestClassifier"}); err != nil {
		t.Fatalf("WriteArtifact() error = %v", err)
	}
	a, err := model.ReadArtifact(&buf)
	if err != nil {
		t.Fatalf("ReadArtifact() error = %v", err)
	}

	loaded, ok := a.Model.(*RandomForestClassifier)
	if !ok {
		t.Fatalf("loaded model type %T", a.Model)
	}
	got, err := loaded.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(got, want) {
		t.Error("reloaded forest predicts differently")
	}
}
