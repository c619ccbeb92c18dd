// Package report renders comparison results as console tables and PNG charts.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/healthml/compare"
	"github.com/YuminosukeSato/healthml/pkg/errors"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteComparison prints one row per estimator in comparison order followed by the winner.
func WriteComparison(w io.Writer, rep *compare.Report) error {
	if rep == nil {
		return errors.NewValueError("WriteComparison", "nil report")
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "MODEL\tTRAIN R2\tTEST R2\tTEST RMSE\tTEST MAE\tTEST EV\tOVERFITTING")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			r.Name, r.TrainR2, r.TestR2, r.TestRMSE, r.TestMAE, r.Test.ExplainedVariance, r.Overfitting)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "write comparison table")
	}

	best := rep.WinnerResult()
	_, err := fmt.Fprintf(w, "\nBest model: %s (test R2 = %.4f)\n", rep.Winner, best.TestR2)
	return err
}

// WriteRanking prints the top n features of a ranking and a short summary of signs and
// extremes. title names the weight column, e.g. "COEFFICIENT" or "IMPORTANCE".
func WriteRanking(w io.Writer, title string, ranking *compare.FeatureRanking, n int) error {
	if ranking == nil {
		return errors.NewValueError("WriteRanking", "nil ranking")
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "RANK\tFEATURE\t%s\n", strings.ToUpper(title))
	for i, f := range ranking.Top(n) {
		fmt.Fprintf(tw, "%d\t%s\t%+.4f\n", i+1, f.Name, f.Coefficient)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "write ranking table")
	}

	_, err := fmt.Fprintf(w, "\nPositive: %d  Negative: %d\nMost positive: %s\nMost negative: %s\n",
		ranking.PositiveCount, ranking.NegativeCount,
		extreme(ranking.MostPositive, ranking.PositiveCount),
		extreme(ranking.MostNegative, ranking.NegativeCount))
	return err
}

func extreme(f compare.FeatureCoefficient, count int) string {
	if count == 0 {
		return "none"
	}
	return fmt.Sprintf("%s (%+.4f)", f.Name, f.Coefficient)
}

// WriteClassifier prints train and test scores and the test confusion matrix.
func WriteClassifier(w io.Writer, rep *compare.ClassifierReport) error {
	if rep == nil {
		return errors.NewValueError("WriteClassifier", "nil report")
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "PARTITION\tACCURACY\tPRECISION\tRECALL\tF1\tAUC")
	for _, row := range []struct {
		name string
		m    compare.ClassificationMetrics
	}{{"train", rep.Train}, {"test", rep.Test}} {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			row.name, row.m.Accuracy, row.m.Precision, row.m.Recall, row.m.F1, row.m.AUC)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "write classifier table")
	}
	fmt.Fprintf(w, "\nOverfitting (train - test accuracy): %.4f\n\n", rep.Overfitting)

	tw = newTable(w)
	header := []string{"TRUE \\ PRED"}
	for _, l := range rep.Labels {
		header = append(header, formatLabel(l))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range rep.ConfusionMatrix {
		cells := []string{formatLabel(rep.Labels[i])}
		for _, v := range row {
			cells = append(cells, strconv.Itoa(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "write confusion matrix")
	}
	return nil
}

func formatLabel(l float64) string {
	return strconv.FormatFloat(l, 'g', -1, 64)
}
