package metrics

import (
	"sort"

	"github.com/YuminosukeSato/healthml/pkg/errors"
)

// PositiveLabel is the class treated as positive by the binary scores.
const PositiveLabel = 1.0

func checkLabels(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty labels")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// Accuracy returns the fraction of exact label matches.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkLabels("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ConfusionMatrix counts outcomes for the given labels. Rows are true labels, columns
// predicted labels, both in the order of labels. If labels is nil the sorted union of
// observed labels is used and returned.
func ConfusionMatrix(yTrue, yPred, labels []float64) ([][]int, []float64, error) {
	if err := checkLabels("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		ti, okT := index[yTrue[i]]
		pi, okP := index[yPred[i]]
		if okT && okP {
			cm[ti][pi]++
		}
	}
	return cm, labels, nil
}

// UniqueLabels returns the sorted set of values appearing in any of the slices.
func UniqueLabels(ys ...[]float64) []float64 {
	seen := map[float64]struct{}{}
	for _, y := range ys {
		for _, v := range y {
			seen[v] = struct{}{}
		}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func binaryCounts(yTrue, yPred []float64) (tp, fp, fn int) {
	for i := range yTrue {
		t := yTrue[i] == PositiveLabel
		p := yPred[i] == PositiveLabel
		switch {
		case t && p:
			tp++
		case !t && p:
			fp++
		case t && !p:
			fn++
		}
	}
	return tp, fp, fn
}

// Precision is tp / (tp + fp) for PositiveLabel. With no positive predictions it warns
// and returns 0.
func Precision(yTrue, yPred []float64) (float64, error) {
	if err := checkLabels("Precision", yTrue, yPred); err != nil {
		return 0, err
	}
	tp, fp, _ := binaryCounts(yTrue, yPred)
	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fp), nil
}

// Recall is tp / (tp + fn) for PositiveLabel. With no positive samples it warns and
// returns 0.
func Recall(yTrue, yPred []float64) (float64, error) {
	if err := checkLabels("Recall", yTrue, yPred); err != nil {
		return 0, err
	}
	tp, _, fn := binaryCounts(yTrue, yPred)
	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fn), nil
}

// F1Score is the harmonic mean of precision and recall.
func F1Score(yTrue, yPred []float64) (float64, error) {
	if err := checkLabels("F1Score", yTrue, yPred); err != nil {
		return 0, err
	}
	tp, fp, fn := binaryCounts(yTrue, yPred)
	if 2*tp+fp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "no true nor predicted samples", 0))
		return 0, nil
	}
	return 2 * float64(tp) / float64(2*tp+fp+fn), nil
}

// AUC is the area under the ROC curve for binary labels (0/1) and positive class scores.
// Tied scores get average ranks. If only one class is present it returns 0.5.
func AUC(yTrue, yScore []float64) (float64, error) {
	if err := checkLabels("AUC", yTrue, yScore); err != nil {
		return 0, err
	}

	nPos, nNeg := 0, 0
	for _, v := range yTrue {
		switch v {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	idx := make([]int, len(yScore))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore[idx[a]] < yScore[idx[b]] })

	// Mann-Whitney U with average ranks for ties
	var rankSumPos float64
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && yScore[idx[j+1]] == yScore[idx[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue[idx[k]] == 1 {
				rankSumPos += avgRank
			}
		}
		i = j + 1
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}
