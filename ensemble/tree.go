// Package ensemble implements CART decision trees and random forests for classification.
package ensemble

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/metrics"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&DecisionTreeClassifier{})
	gob.Register(&RandomForestClassifier{})
}

const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"

	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// Node is one node of a fitted tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	// Value holds the class distribution of the training samples reaching the node.
	Value    []float64
	Impurity float64
	NSamples int
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return n.Left < 0 }

// DecisionTreeClassifier is a CART classifier with axis aligned binary splits.
type DecisionTreeClassifier struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	RandomState     int64

	State               *model.StateManager
	Nodes               []Node
	Classes_            []float64
	NClasses_           int
	FeatureImportances_ []float64
}

// NewDecisionTreeClassifier creates a tree. Defaults follow scikit-learn: gini, unlimited
// depth, min_samples_split 2, min_samples_leaf 1, every feature considered per split.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	o := applyOptions(options{
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesAll,
	}, opts)

	return &DecisionTreeClassifier{
		Criterion:       o.criterion,
		MaxDepth:        o.maxDepth,
		MinSamplesSplit: o.minSamplesSplit,
		MinSamplesLeaf:  o.minSamplesLeaf,
		MaxFeatures:     o.maxFeatures,
		RandomState:     o.randomState,
		State:           model.NewStateManager(),
	}
}

func validateTreeParams(criterion string, maxDepth, minSamplesSplit, minSamplesLeaf int, maxFeatures string) error {
	if criterion != CriterionGini && criterion != CriterionEntropy {
		return errors.NewValidationError("criterion", "must be gini or entropy", criterion)
	}
	if maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", maxDepth)
	}
	if minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", minSamplesSplit)
	}
	if minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", minSamplesLeaf)
	}
	switch maxFeatures {
	case MaxFeaturesSqrt, MaxFeaturesLog2, MaxFeaturesAll, "":
	default:
		return errors.NewValidationError("max_features", "must be sqrt, log2 or all", maxFeatures)
	}
	return nil
}

func resolveMaxFeatures(maxFeatures string, nFeatures int) int {
	var k int
	switch maxFeatures {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	return max(1, min(k, nFeatures))
}

// encodeClasses maps each label to its index in the sorted set of labels.
func encodeClasses(y mat.Matrix) ([]int, []float64) {
	r, _ := y.Dims()
	labels := make([]float64, r)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	classes := metrics.UniqueLabels(labels)

	index := make(map[float64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded := make([]int, r)
	for i, l := range labels {
		encoded[i] = index[l]
	}
	return encoded, classes
}

// Fit grows the tree on X and class labels y.
func (t *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if err := validateTreeParams(t.Criterion, t.MaxDepth, t.MinSamplesSplit, t.MinSamplesLeaf, t.MaxFeatures); err != nil {
		return err
	}
	rows, _, err := model.ValidateFitInput("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	encoded, classes := encodeClasses(y)
	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}

	seed := uint64(t.RandomState)
	t.fitEncoded(mat.DenseCopyOf(X), encoded, classes, samples, rand.New(rand.NewPCG(seed, seed)))
	return nil
}

// fitEncoded grows the tree on the given rows of X. samples may repeat rows.
func (t *DecisionTreeClassifier) fitEncoded(X *mat.Dense, y []int, classes []float64, samples []int, rng *rand.Rand) {
	_, nFeatures := X.Dims()
	if t.State == nil {
		t.State = model.NewStateManager()
	}
	t.State.Reset()

	t.Classes_ = append([]float64(nil), classes...)
	t.NClasses_ = len(classes)
	t.Nodes = t.Nodes[:0]

	s := &splitter{
		X:              X,
		y:              y,
		nClasses:       len(classes),
		criterion:      t.Criterion,
		rng:            rng,
		maxFeatures:    resolveMaxFeatures(t.MaxFeatures, nFeatures),
		minSamplesLeaf: t.MinSamplesLeaf,
		importances:    make([]float64, nFeatures),
	}
	t.build(s, samples, 0)

	t.FeatureImportances_ = normalizeImportances(s.importances)
	t.State.SetFitted(nFeatures, len(samples))
}

func (t *DecisionTreeClassifier) build(s *splitter, samples []int, depth int) int {
	counts := s.classCounts(samples)
	n := len(samples)
	imp := s.impurity(counts, float64(n))

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    distribution(counts, float64(n)),
		Impurity: imp,
		NSamples: n,
	})

	if imp <= 0 || n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return idx
	}

	best, ok := s.bestSplit(samples, counts)
	if !ok {
		return idx
	}

	left := make([]int, 0, best.nLeft)
	right := make([]int, 0, n-best.nLeft)
	for _, i := range samples {
		if s.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	s.importances[best.feature] += float64(n)*imp -
		float64(len(left))*best.impLeft - float64(len(right))*best.impRight

	l := t.build(s, left, depth+1)
	r := t.build(s, right, depth+1)

	t.Nodes[idx].Feature = best.feature
	t.Nodes[idx].Threshold = best.threshold
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

type split struct {
	feature   int
	threshold float64
	score     float64
	impLeft   float64
	impRight  float64
	nLeft     int
}

type splitter struct {
	X              *mat.Dense
	y              []int
	nClasses       int
	criterion      string
	rng            *rand.Rand
	maxFeatures    int
	minSamplesLeaf int
	importances    []float64
}

func (s *splitter) classCounts(samples []int) []float64 {
	counts := make([]float64, s.nClasses)
	for _, i := range samples {
		counts[s.y[i]]++
	}
	return counts
}

func (s *splitter) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	switch s.criterion {
	case CriterionEntropy:
		var h float64
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / n
			g -= p * p
		}
		return g
	}
}

// bestSplit scans features in random order until maxFeatures non-constant ones have been
// evaluated and returns the split minimizing the weighted child impurity.
func (s *splitter) bestSplit(samples []int, parent []float64) (split, bool) {
	_, nFeatures := s.X.Dims()
	n := len(samples)

	best := split{score: math.Inf(1)}
	sorted := make([]int, n)
	left := make([]float64, s.nClasses)
	right := make([]float64, s.nClasses)

	visited := 0
	for _, f := range s.rng.Perm(nFeatures) {
		if visited >= s.maxFeatures {
			break
		}

		copy(sorted, samples)
		sort.Slice(sorted, func(a, b int) bool {
			return s.X.At(sorted[a], f) < s.X.At(sorted[b], f)
		})
		if s.X.At(sorted[0], f) == s.X.At(sorted[n-1], f) {
			continue
		}
		visited++

		for c := range left {
			left[c] = 0
		}
		copy(right, parent)

		for i := 0; i < n-1; i++ {
			c := s.y[sorted[i]]
			left[c]++
			right[c]--

			v, next := s.X.At(sorted[i], f), s.X.At(sorted[i+1], f)
			if v == next {
				continue
			}
			nLeft, nRight := i+1, n-i-1
			if nLeft < s.minSamplesLeaf || nRight < s.minSamplesLeaf {
				continue
			}

			impL := s.impurity(left, float64(nLeft))
			impR := s.impurity(right, float64(nRight))
			score := (float64(nLeft)*impL + float64(nRight)*impR) / float64(n)
			if score < best.score {
				thr := v + (next-v)/2
				if thr == next {
					thr = v
				}
				best = split{feature: f, threshold: thr, score: score, impLeft: impL, impRight: impR, nLeft: nLeft}
			}
		}
	}
	return best, !math.IsInf(best.score, 1)
}

func distribution(counts []float64, n float64) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / n
	}
	return out
}

func normalizeImportances(raw []float64) []float64 {
	out := make([]float64, len(raw))
	var total float64
	for _, v := range raw {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range raw {
		out[i] = v / total
	}
	return out
}

func (t *DecisionTreeClassifier) leaf(X mat.Matrix, row int) *Node {
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if X.At(row, node.Feature) <= node.Threshold {
			node = &t.Nodes[node.Left]
		} else {
			node = &t.Nodes[node.Right]
		}
	}
	return node
}

func (t *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) error {
	if t.State == nil || len(t.Nodes) == 0 {
		return errors.NewNotFittedError("DecisionTreeClassifier", method)
	}
	if err := t.State.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	return t.State.RequireFeatures("DecisionTreeClassifier."+method, X)
}

// PredictProba returns an n×n_classes matrix of class probabilities in Classes order.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := t.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	proba := mat.NewDense(r, t.NClasses_, nil)
	for i := 0; i < r; i++ {
		proba.SetRow(i, t.leaf(X, i).Value)
	}
	return proba, nil
}

// Predict returns the most probable class label for every row as an n×1 matrix.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, t.Classes_), nil
}

// argmaxLabels picks the label of the highest probability column, first column on ties.
func argmaxLabels(proba mat.Matrix, classes []float64) *mat.Dense {
	r, c := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, classes[best])
	}
	return out
}

// Score returns the accuracy on X, y.
func (t *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	return accuracyScore(t, X, y)
}

func accuracyScore(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(mat.Col(nil, 0, y), mat.Col(nil, 0, pred))
}

// Classes returns the sorted labels seen during fitting.
func (t *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), t.Classes_...)
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), t.FeatureImportances_...)
}

// GetDepth returns the depth of the fitted tree; a single leaf has depth 0.
func (t *DecisionTreeClassifier) GetDepth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(0)
}

// GetNLeaves returns the number of leaves.
func (t *DecisionTreeClassifier) GetNLeaves() int {
	leaves := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			leaves++
		}
	}
	return leaves
}

// GetParams returns the hyperparameters.
func (t *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         t.Criterion,
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
		"random_state":      t.RandomState,
	}
}

// SetParams updates hyperparameters by their GetParams names.
func (t *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			t.Criterion, ok = value.(string)
		case "max_depth":
			t.MaxDepth, ok = value.(int)
		case "min_samples_split":
			t.MinSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			t.MinSamplesLeaf, ok = value.(int)
		case "max_features":
			t.MaxFeatures, ok = value.(string)
		case "random_state":
			var seed int
			seed, ok = value.(int)
			t.RandomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return validateTreeParams(t.Criterion, t.MaxDepth, t.MinSamplesSplit, t.MinSamplesLeaf, t.MaxFeatures)
}
