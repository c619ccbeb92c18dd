package compare

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
)

// DefaultTopN is the number of features shown in reports.
const DefaultTopN = 10

// FeatureCoefficient is one feature's weight in a fitted model.
type FeatureCoefficient struct {
	Name           string
	Coefficient    float64
	AbsCoefficient float64
}

// FeatureRanking orders features by absolute weight.
type FeatureRanking struct {
	// Features sorted by AbsCoefficient descending; equal values keep input order.
	Features []FeatureCoefficient

	PositiveCount int
	NegativeCount int
	// MostPositive is the largest positive coefficient and MostNegative the most negative
	// one, the earliest feature on ties. Each is zero-valued when its count is 0.
	MostPositive FeatureCoefficient
	MostNegative FeatureCoefficient
}

// Top returns at most n leading features.
func (r *FeatureRanking) Top(n int) []FeatureCoefficient {
	if n < 0 || n > len(r.Features) {
		n = len(r.Features)
	}
	return r.Features[:n]
}

// RankCoefficients pairs names with coefs and sorts them by |coef|.
func RankCoefficients(names []string, coefs []float64) (*FeatureRanking, error) {
	if len(names) != len(coefs) {
		return nil, errors.NewValidationError("feature_names",
			"length must match the number of coefficients", len(names))
	}
	if len(coefs) == 0 {
		return nil, errors.NewValueError("RankCoefficients", "no coefficients")
	}

	r := &FeatureRanking{Features: make([]FeatureCoefficient, len(coefs))}
	mostPos, mostNeg := -1, -1
	for i, c := range coefs {
		r.Features[i] = FeatureCoefficient{Name: names[i], Coefficient: c, AbsCoefficient: math.Abs(c)}
		switch {
		case c > 0:
			r.PositiveCount++
			if mostPos < 0 || c > coefs[mostPos] {
				mostPos = i
			}
		case c < 0:
			r.NegativeCount++
			if mostNeg < 0 || c < coefs[mostNeg] {
				mostNeg = i
			}
		}
	}
	if mostPos >= 0 {
		r.MostPositive = r.Features[mostPos]
	}
	if mostNeg >= 0 {
		r.MostNegative = r.Features[mostNeg]
	}

	sort.SliceStable(r.Features, func(a, b int) bool {
		return r.Features[a].AbsCoefficient > r.Features[b].AbsCoefficient
	})
	return r, nil
}

// RankImportances ranks non-negative importances (e.g. from a random forest) the same way
// coefficients are ranked.
func RankImportances(names []string, importances []float64) (*FeatureRanking, error) {
	return RankCoefficients(names, importances)
}

// FeatureImportance ranks the coefficients of the winning model. It fails if the winner
// does not expose linear coefficients.
func (r *Report) FeatureImportance(names []string) (*FeatureRanking, error) {
	lm, ok := r.Model.(model.LinearModel)
	if !ok {
		return nil, errors.NewValidationError("model", "winner is not a linear model", r.Winner)
	}
	return RankCoefficients(names, lm.Coefficients())
}
