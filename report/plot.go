package report

import (
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/healthml/compare"
	"github.com/YuminosukeSato/healthml/pkg/errors"
)

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

// PlotPredictions writes a predicted-vs-actual scatter plot with the y = x reference line.
// yTrue and yPred must be n×1.
func PlotPredictions(path, title string, yTrue, yPred mat.Matrix) error {
	n, c := yTrue.Dims()
	pn, pc := yPred.Dims()
	if c != 1 || pc != 1 {
		return errors.NewValueError("PlotPredictions", "targets must be column vectors")
	}
	if n != pn {
		return errors.NewDimensionError("PlotPredictions", n, pn, 0)
	}
	if n == 0 {
		return errors.NewValueError("PlotPredictions", "empty targets")
	}

	pts := make(plotter.XYs, n)
	lo, hi := yTrue.At(0, 0), yTrue.At(0, 0)
	for i := range pts {
		pts[i].X = yTrue.At(i, 0)
		pts[i].Y = yPred.At(i, 0)
		for _, v := range []float64{pts[i].X, pts[i].Y} {
			lo, hi = min(lo, v), max(hi, v)
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	scatter.GlyphStyle.Color = plotutil.Color(0)
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	ideal, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "reference line")
	}
	ideal.Color = color.RGBA{R: 200, A: 255}
	ideal.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), scatter, ideal)
	p.Legend.Add("samples", scatter)
	p.Legend.Add("y = x", ideal)
	p.Legend.Top = true
	p.Legend.Left = true

	return save(p, 6*vg.Inch, 6*vg.Inch, path)
}

// PlotRanking writes a bar chart of the top n entries of a ranking, in ranking order.
func PlotRanking(path, title string, ranking *compare.FeatureRanking, n int) error {
	if ranking == nil {
		return errors.NewValueError("PlotRanking", "nil ranking")
	}
	top := ranking.Top(n)
	if len(top) == 0 {
		return errors.NewValueError("PlotRanking", "no features to plot")
	}

	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, f := range top {
		values[i] = f.Coefficient
		names[i] = f.Name
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Weight"

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Color = plotutil.Color(1)
	bars.LineStyle.Width = 0

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -1.0

	return save(p, 8*vg.Inch, 4*vg.Inch, path)
}

// PlotComparison writes train and test R² per estimator as two line series over the
// comparison order.
func PlotComparison(path string, rep *compare.Report) error {
	if rep == nil || len(rep.Results) == 0 {
		return errors.NewValueError("PlotComparison", "empty report")
	}

	train := make(plotter.XYs, len(rep.Results))
	test := make(plotter.XYs, len(rep.Results))
	names := make([]string, len(rep.Results))
	for i, r := range rep.Results {
		train[i] = plotter.XY{X: float64(i), Y: r.TrainR2}
		test[i] = plotter.XY{X: float64(i), Y: r.TestR2}
		names[i] = r.Name
	}

	p := plot.New()
	p.Title.Text = "R2 by model"
	p.Y.Label.Text = "R2"
	if err := plotutil.AddLinePoints(p, "Train", train, "Test", test); err != nil {
		return errors.Wrap(err, "add lines")
	}
	p.NominalX(names...)

	return save(p, 8*vg.Inch, 4*vg.Inch, path)
}
