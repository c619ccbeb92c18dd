// Package dataset loads pre-split numeric CSV tables into gonum matrices.
package dataset

import (
	"io"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
)

// Paths names the four CSV files of a train/test split.
type Paths struct {
	XTrain string `yaml:"x_train" toml:"x_train"`
	YTrain string `yaml:"y_train" toml:"y_train"`
	XTest  string `yaml:"x_test" toml:"x_test"`
	YTest  string `yaml:"y_test" toml:"y_test"`
}

// Split is a fixed train/test partition. Feature matrices share FeatureNames as their
// column order; targets are n×1.
type Split struct {
	XTrain       *mat.Dense
	YTrain       *mat.Dense
	XTest        *mat.Dense
	YTest        *mat.Dense
	FeatureNames []string
}

// LoadCSVMatrix reads a CSV file with a header row and numeric cells.
func LoadCSVMatrix(path string) (*mat.Dense, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewDatasetError(path, -1, "", "cannot open", err)
	}
	defer f.Close()
	return ReadCSVMatrix(f, path)
}

// ReadCSVMatrix parses CSV from r. name is used in error messages.
func ReadCSVMatrix(r io.Reader, name string) (*mat.Dense, []string, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return nil, nil, errors.NewDatasetError(name, -1, "", "cannot parse CSV", df.Err)
	}
	return fromDataFrame(df, name)
}

func fromDataFrame(df dataframe.DataFrame, name string) (*mat.Dense, []string, error) {
	rows, cols := df.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, errors.NewDatasetError(name, -1, "", "no data rows", errors.ErrEmptyData)
	}

	names := df.Names()
	m := mat.NewDense(rows, cols, nil)
	for j, col := range names {
		s := df.Col(col)
		values := s.Float()
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, errors.NewDatasetError(name, i, col,
					"non-numeric or missing value "+strconv.Quote(s.Elem(i).String()), nil)
			}
			m.Set(i, j, v)
		}
	}
	return m, names, nil
}

// LoadTarget reads a single column CSV into an n×1 matrix.
func LoadTarget(path string) (*mat.Dense, error) {
	m, names, err := LoadCSVMatrix(path)
	if err != nil {
		return nil, err
	}
	if len(names) != 1 {
		return nil, errors.NewDatasetError(path, -1, "", "target file must have exactly one column", nil)
	}
	return m, nil
}

// LoadSplit reads the four files of p and checks that they form a consistent split.
func LoadSplit(p Paths) (*Split, error) {
	logger := log.GetLoggerWithName("dataset")

	XTrain, trainNames, err := LoadCSVMatrix(p.XTrain)
	if err != nil {
		return nil, err
	}
	XTest, testNames, err := LoadCSVMatrix(p.XTest)
	if err != nil {
		return nil, err
	}
	YTrain, err := LoadTarget(p.YTrain)
	if err != nil {
		return nil, err
	}
	YTest, err := LoadTarget(p.YTest)
	if err != nil {
		return nil, err
	}

	if !slices.Equal(trainNames, testNames) {
		return nil, errors.NewDatasetError(p.XTest, -1, "",
			"feature columns differ from "+p.XTrain, nil)
	}

	s := &Split{
		XTrain:       XTrain,
		YTrain:       YTrain,
		XTest:        XTest,
		YTest:        YTest,
		FeatureNames: trainNames,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	trainRows, nFeatures := XTrain.Dims()
	testRows, _ := XTest.Dims()
	logger.Info("dataset loaded",
		log.PathKey, p.XTrain,
		log.SamplesKey, trainRows,
		"data.test_samples", testRows,
		log.FeaturesKey, nFeatures,
	)
	return s, nil
}

// Validate checks the shape invariants of the split.
func (s *Split) Validate() error {
	if s.XTrain == nil || s.YTrain == nil || s.XTest == nil || s.YTest == nil {
		return errors.NewValueError("Split.Validate", "missing partition")
	}

	trainRows, trainCols := s.XTrain.Dims()
	testRows, testCols := s.XTest.Dims()
	yTrainRows, yTrainCols := s.YTrain.Dims()
	yTestRows, yTestCols := s.YTest.Dims()

	switch {
	case yTrainRows != trainRows:
		return errors.NewDimensionError("Split.Validate train", trainRows, yTrainRows, 0)
	case yTestRows != testRows:
		return errors.NewDimensionError("Split.Validate test", testRows, yTestRows, 0)
	case testCols != trainCols:
		return errors.NewDimensionError("Split.Validate", trainCols, testCols, 1)
	case yTrainCols != 1:
		return errors.NewDimensionError("Split.Validate train target", 1, yTrainCols, 1)
	case yTestCols != 1:
		return errors.NewDimensionError("Split.Validate test target", 1, yTestCols, 1)
	case len(s.FeatureNames) != trainCols:
		return errors.NewDimensionError("Split.Validate feature names", trainCols, len(s.FeatureNames), 1)
	}
	return nil
}

// NumFeatures returns the number of feature columns.
func (s *Split) NumFeatures() int {
	_, c := s.XTrain.Dims()
	return c
}
