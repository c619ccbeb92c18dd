package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/healthml/pkg/errors"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, HeartDiseaseDefaults().Validate())
	require.NoError(t, DiabetesDefaults().Validate())

	d := HeartDiseaseDefaults()
	assert.Equal(t, 1.0, d.Linear.RidgeAlpha)
	assert.Equal(t, 0.5, d.Linear.L1Ratio)
	assert.Equal(t, 10, d.TopN)
	assert.Equal(t, 100, DiabetesDefaults().Forest.NEstimators)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "run.yaml", `
dataset:
  x_train: data/X_train.csv
  y_train: data/y_train.csv
  x_test: data/X_test.csv
  y_test: /abs/y_test.csv
linear:
  ridge_alpha: 0.5
log:
  level: debug
  format: json
standardize: true
`)

	cfg, err := Load(path, HeartDiseaseDefaults())
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "data/X_train.csv"), cfg.Dataset.XTrain)
	assert.Equal(t, "/abs/y_test.csv", cfg.Dataset.YTest)
	assert.Equal(t, 0.5, cfg.Linear.RidgeAlpha)
	// untouched fields keep their defaults
	assert.Equal(t, 1.0, cfg.Linear.LassoAlpha)
	assert.Equal(t, 1000, cfg.Linear.MaxIter)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Standardize)
}

func TestLoad_TOML(t *testing.T) {
	path := write(t, "run.toml", `
top_n = 5

[forest]
n_estimators = 25
random_state = 7
max_features = "log2"
`)

	cfg, err := Load(path, DiabetesDefaults())
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Forest.NEstimators)
	assert.Equal(t, int64(7), cfg.Forest.RandomState)
	assert.Equal(t, "log2", cfg.Forest.MaxFeatures)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data/diabetes/X_train.csv"), cfg.Dataset.XTrain)
}

func TestLoad_DoesNotMutateDefaults(t *testing.T) {
	defaults := HeartDiseaseDefaults()
	path := write(t, "run.yaml", "linear:\n  ridge_alpha: 3\n")

	_, err := Load(path, defaults)
	require.NoError(t, err)
	assert.Equal(t, 1.0, defaults.Linear.RidgeAlpha)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "run.json", `{}`},
		{"unknown yaml key", "run.yaml", "ridge: 1\n"},
		{"unknown toml key", "run.toml", "ridge = 1\n"},
		{"invalid value", "run.yaml", "linear:\n  l1_ratio: 2\n"},
		{"invalid level", "run.toml", "[log]\nlevel = \"loud\"\n"},
		{"malformed", "run.yaml", "linear: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.file, tt.content), HeartDiseaseDefaults())
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), HeartDiseaseDefaults())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"empty path", func(c *Config) { c.Dataset.XTest = "" }, "dataset.x_test"},
		{"negative alpha", func(c *Config) { c.Linear.LassoAlpha = -1 }, "linear.lasso_alpha"},
		{"zero iterations", func(c *Config) { c.Linear.MaxIter = 0 }, "linear.max_iter"},
		{"no trees", func(c *Config) { c.Forest.NEstimators = 0 }, "forest.n_estimators"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero top n", func(c *Config) { c.TopN = 0 }, "top_n"},
		{"zero C", func(c *Config) { c.Logistic.C = 0 }, "logistic.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := HeartDiseaseDefaults()
			tt.mutate(c)

			err := c.Validate()
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"effective.yaml", "effective.toml"} {
		t.Run(name, func(t *testing.T) {
			c := HeartDiseaseDefaults()
			c.Dataset.XTrain = "/data/X_train.csv"
			c.Dataset.YTrain = "/data/y_train.csv"
			c.Dataset.XTest = "/data/X_test.csv"
			c.Dataset.YTest = "/data/y_test.csv"
			c.Artifact.Path = "/models/m.hmla"
			c.Artifact.WeightsPath = ""
			c.Linear.RidgeAlpha = 2.5

			path := filepath.Join(t.TempDir(), "out", name)
			require.NoError(t, c.Save(path))

			loaded, err := Load(path, HeartDiseaseDefaults())
			require.NoError(t, err)
			assert.Equal(t, c.Dataset, loaded.Dataset)
			assert.Equal(t, c.Linear, loaded.Linear)
			assert.Equal(t, c.Forest, loaded.Forest)
		})
	}
}
