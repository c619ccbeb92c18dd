package compare_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/healthml/compare"
	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/linear"
)

func ExampleCompare() {
	// y = 3a - 2b + 1
	target := func(X *mat.Dense) *mat.Dense {
		r, _ := X.Dims()
		y := mat.NewDense(r, 1, nil)
		for i := 0; i < r; i++ {
			y.Set(i, 0, 3*X.At(i, 0)-2*X.At(i, 1)+1)
		}
		return y
	}
	XTrain := mat.NewDense(6, 2, []float64{1, 0, 0, 1, 1, 1, 2, 1, 3, 2, 1, 3})
	XTest := mat.NewDense(3, 2, []float64{2, 2, 0, 3, 4, 1})
	split := &dataset.Split{
		XTrain: XTrain, YTrain: target(XTrain),
		XTest: XTest, YTest: target(XTest),
		FeatureNames: []string{"a", "b"},
	}

	rep, err := compare.Compare(split, []compare.NamedEstimator{
		{Name: "Linear Regression", Estimator: linear.NewLinearRegression()},
		{Name: "Ridge Regression", Estimator: linear.NewRidge(linear.WithAlpha(10))},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("winner:", rep.Winner)

	ranking, err := rep.FeatureImportance(split.FeatureNames)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, f := range ranking.Top(compare.DefaultTopN) {
		fmt.Printf("%s %+.2f\n", f.Name, f.Coefficient)
	}
	// Output:
	// winner: Linear Regression
	// a +3.00
	// b -2.00
}
