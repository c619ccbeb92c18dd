package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/healthml/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeSplit(t *testing.T, xTest string) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		XTrain: writeFile(t, dir, "X_train.csv", "age,bmi,smoking\n40,22.5,0\n55,30.1,1\n61,27.3,1\n"),
		YTrain: writeFile(t, dir, "y_train.csv", "target\n3.5\n7.25\n6.0\n"),
		XTest:  writeFile(t, dir, "X_test.csv", xTest),
		YTest:  writeFile(t, dir, "y_test.csv", "target\n4.0\n5.5\n"),
	}
}

func TestReadCSVMatrix(t *testing.T) {
	m, names, err := ReadCSVMatrix(strings.NewReader("a,b\n1,2\n3.5,-4\n"), "inline")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, names)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 3.5, m.At(1, 0))
	assert.Equal(t, -4.0, m.At(1, 1))
}

func TestReadCSVMatrix_NonNumericCell(t *testing.T) {
	_, _, err := ReadCSVMatrix(strings.NewReader("a,b\n1,2\n3,oops\n"), "bad.csv")
	require.Error(t, err)

	var de *errors.DatasetError
	require.True(t, errors.As(err, &de), "want DatasetError, got %v", err)
	assert.Equal(t, "bad.csv", de.Path)
	assert.Equal(t, 1, de.Row)
	assert.Equal(t, "b", de.Column)
}

func TestReadCSVMatrix_Empty(t *testing.T) {
	_, _, err := ReadCSVMatrix(strings.NewReader("a,b\n"), "empty.csv")
	require.Error(t, err)

	var de *errors.DatasetError
	assert.True(t, errors.As(err, &de))
}

func TestLoadCSVMatrix_MissingFile(t *testing.T) {
	_, _, err := LoadCSVMatrix(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)

	var de *errors.DatasetError
	assert.True(t, errors.As(err, &de))
}

func TestLoadSplit(t *testing.T) {
	p := writeSplit(t, "age,bmi,smoking\n38,24.0,0\n70,31.2,1\n")

	s, err := LoadSplit(p)
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "bmi", "smoking"}, s.FeatureNames)
	assert.Equal(t, 3, s.NumFeatures())

	r, c := s.XTrain.Dims()
	assert.Equal(t, [2]int{3, 3}, [2]int{r, c})
	r, c = s.YTrain.Dims()
	assert.Equal(t, [2]int{3, 1}, [2]int{r, c})
	r, _ = s.XTest.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 7.25, s.YTrain.At(1, 0))
}

func TestLoadSplit_ColumnMismatch(t *testing.T) {
	p := writeSplit(t, "age,smoking,bmi\n38,0,24.0\n70,1,31.2\n")

	_, err := LoadSplit(p)
	require.Error(t, err)

	var de *errors.DatasetError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, p.XTest, de.Path)
}

func TestLoadSplit_RowCountMismatch(t *testing.T) {
	p := writeSplit(t, "age,bmi,smoking\n38,24.0,0\n70,31.2,1\n45,26.0,0\n")

	_, err := LoadSplit(p)
	require.Error(t, err)

	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim), "want DimensionError, got %v", err)
}

func TestLoadTarget_MultipleColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "y.csv", "a,b\n1,2\n")

	_, err := LoadTarget(path)
	require.Error(t, err)
}
