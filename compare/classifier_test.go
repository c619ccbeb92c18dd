package compare

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/ensemble"
)

func blobs(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		y.Set(i, 0, label)
		X.Set(i, 0, label*5+rng.NormFloat64())
		X.Set(i, 1, rng.NormFloat64())
		X.Set(i, 2, rng.NormFloat64())
	}
	return X, y
}

func TestEvaluateClassifier(t *testing.T) {
	XTrain, yTrain := blobs(150, 1)
	XTest, yTest := blobs(60, 2)
	split := &dataset.Split{
		XTrain: XTrain, YTrain: yTrain, XTest: XTest, YTest: yTest,
		FeatureNames: []string{"glucose", "noise1", "noise2"},
	}

	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(20), ensemble.WithRandomState(42))
	rep, err := EvaluateClassifier(split, "Random Forest", rf)
	require.NoError(t, err)

	assert.Equal(t, "Random Forest", rep.Name)
	assert.Greater(t, rep.Test.Accuracy, 0.9)
	assert.Greater(t, rep.Test.AUC, 0.9)
	assert.False(t, math.IsNaN(rep.Train.AUC))
	assert.InDelta(t, rep.Train.Accuracy-rep.Test.Accuracy, rep.Overfitting, 1e-15)

	require.Equal(t, []float64{0, 1}, rep.Labels)
	total := 0
	for _, row := range rep.ConfusionMatrix {
		for _, v := range row {
			total += v
		}
	}
	assert.Equal(t, 60, total)

	ranking, err := RankImportances(split.FeatureNames, rf.FeatureImportances())
	require.NoError(t, err)
	assert.Equal(t, "glucose", ranking.Features[0].Name)
}

func TestEvaluateClassifier_NilInputs(t *testing.T) {
	_, err := EvaluateClassifier(nil, "x", ensemble.NewRandomForestClassifier())
	assert.Error(t, err)
}

func TestScoreClassifier_MatchesEvaluate(t *testing.T) {
	XTrain, yTrain := blobs(100, 3)
	XTest, yTest := blobs(40, 4)
	split := &dataset.Split{XTrain: XTrain, YTrain: yTrain, XTest: XTest, YTest: yTest}

	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(10), ensemble.WithRandomState(7))
	fitted, err := EvaluateClassifier(split, "rf", rf)
	require.NoError(t, err)

	scored, err := ScoreClassifier(split, "rf", rf)
	require.NoError(t, err)
	assert.Equal(t, fitted.Test, scored.Test)
	assert.Equal(t, fitted.ConfusionMatrix, scored.ConfusionMatrix)

	_, err = ScoreClassifier(split, "unfitted", ensemble.NewRandomForestClassifier())
	assert.Error(t, err)
}
