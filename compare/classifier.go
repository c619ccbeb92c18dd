package compare

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/metrics"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
)

// ClassificationMetrics are binary scores with 1 as the positive label. AUC is NaN
// unless the classes are exactly {0, 1}.
type ClassificationMetrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	AUC       float64
}

// ClassifierReport is the outcome of EvaluateClassifier.
type ClassifierReport struct {
	Name  string
	Train ClassificationMetrics
	Test  ClassificationMetrics
	// ConfusionMatrix of the test partition, rows true labels and columns predictions,
	// both ordered as Labels.
	ConfusionMatrix [][]int
	Labels          []float64
	// Overfitting is train accuracy minus test accuracy.
	Overfitting float64
	Model       model.Classifier
}

// EvaluateClassifier fits clf on the training partition and scores both partitions.
func EvaluateClassifier(split *dataset.Split, name string, clf model.Classifier) (*ClassifierReport, error) {
	if split == nil || clf == nil {
		return nil, errors.NewValueError("EvaluateClassifier", "nil split or classifier")
	}
	if err := split.Validate(); err != nil {
		return nil, errors.Wrap(err, "evaluate classifier")
	}
	if err := clf.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrapf(err, "fit %s", name)
	}
	return ScoreClassifier(split, name, clf)
}

// ScoreClassifier scores an already fitted clf on both partitions, e.g. one reloaded
// from an artifact.
func ScoreClassifier(split *dataset.Split, name string, clf model.Classifier) (*ClassifierReport, error) {
	if split == nil || clf == nil {
		return nil, errors.NewValueError("ScoreClassifier", "nil split or classifier")
	}
	if err := split.Validate(); err != nil {
		return nil, errors.Wrap(err, "score classifier")
	}

	train, _, err := classify(clf, split.XTrain, split.YTrain)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s on training data", name)
	}
	test, yPred, err := classify(clf, split.XTest, split.YTest)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s on test data", name)
	}

	yTrue := mat.Col(nil, 0, split.YTest)
	cm, labels, err := metrics.ConfusionMatrix(yTrue, yPred, metrics.UniqueLabels(clf.Classes(), yTrue))
	if err != nil {
		return nil, err
	}

	rep := &ClassifierReport{
		Name:            name,
		Train:           train,
		Test:            test,
		ConfusionMatrix: cm,
		Labels:          labels,
		Overfitting:     train.Accuracy - test.Accuracy,
		Model:           clf,
	}

	log.GetLoggerWithName("compare").Info("classifier evaluated",
		log.ModelNameKey, name,
		log.AccuracyKey, test.Accuracy,
		"metrics.f1", test.F1,
		"metrics.auc", test.AUC,
		log.OverfittingKey, rep.Overfitting,
	)
	return rep, nil
}

func classify(clf model.Classifier, X, y mat.Matrix) (ClassificationMetrics, []float64, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return ClassificationMetrics{}, nil, err
	}
	yTrue := mat.Col(nil, 0, y)
	yPred := mat.Col(nil, 0, pred)

	var m ClassificationMetrics
	if m.Accuracy, err = metrics.Accuracy(yTrue, yPred); err != nil {
		return ClassificationMetrics{}, nil, err
	}
	if m.Precision, err = metrics.Precision(yTrue, yPred); err != nil {
		return ClassificationMetrics{}, nil, err
	}
	if m.Recall, err = metrics.Recall(yTrue, yPred); err != nil {
		return ClassificationMetrics{}, nil, err
	}
	if m.F1, err = metrics.F1Score(yTrue, yPred); err != nil {
		return ClassificationMetrics{}, nil, err
	}

	m.AUC = math.NaN()
	if classes := clf.Classes(); len(classes) == 2 && classes[0] == 0 && classes[1] == 1 && isBinary(yTrue) {
		proba, err := clf.PredictProba(X)
		if err != nil {
			return ClassificationMetrics{}, nil, err
		}
		if m.AUC, err = metrics.AUC(yTrue, mat.Col(nil, 1, proba)); err != nil {
			return ClassificationMetrics{}, nil, err
		}
	}
	return m, yPred, nil
}

func isBinary(y []float64) bool {
	for _, v := range y {
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}
