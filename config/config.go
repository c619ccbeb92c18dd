// Package config holds the run configuration of the command line pipelines. Files are
// YAML (.yaml, .yml) or TOML (.toml); fields left out keep their defaults.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/YuminosukeSato/healthml/dataset"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
)

// Config is the full run configuration.
type Config struct {
	Dataset     dataset.Paths  `yaml:"dataset" toml:"dataset"`
	Linear      LinearConfig   `yaml:"linear" toml:"linear"`
	Forest      ForestConfig   `yaml:"forest" toml:"forest"`
	Logistic    LogisticConfig `yaml:"logistic" toml:"logistic"`
	Artifact    ArtifactConfig `yaml:"artifact" toml:"artifact"`
	Log         LogConfig      `yaml:"log" toml:"log"`
	PlotsDir    string         `yaml:"plots_dir" toml:"plots_dir"`
	Standardize bool           `yaml:"standardize" toml:"standardize"`
	TopN        int            `yaml:"top_n" toml:"top_n"`
}

// LinearConfig holds the hyperparameters of the regression estimators.
type LinearConfig struct {
	RidgeAlpha      float64 `yaml:"ridge_alpha" toml:"ridge_alpha"`
	LassoAlpha      float64 `yaml:"lasso_alpha" toml:"lasso_alpha"`
	ElasticNetAlpha float64 `yaml:"elasticnet_alpha" toml:"elasticnet_alpha"`
	L1Ratio         float64 `yaml:"l1_ratio" toml:"l1_ratio"`
	MaxIter         int     `yaml:"max_iter" toml:"max_iter"`
	Tol             float64 `yaml:"tol" toml:"tol"`
}

// ForestConfig holds the random forest hyperparameters.
type ForestConfig struct {
	NEstimators int    `yaml:"n_estimators" toml:"n_estimators"`
	MaxDepth    int    `yaml:"max_depth" toml:"max_depth"`
	MaxFeatures string `yaml:"max_features" toml:"max_features"`
	RandomState int64  `yaml:"random_state" toml:"random_state"`
	NJobs       int    `yaml:"n_jobs" toml:"n_jobs"`
}

// LogisticConfig controls the logistic regression baseline reported next to the forest.
type LogisticConfig struct {
	Enabled bool    `yaml:"enabled" toml:"enabled"`
	C       float64 `yaml:"c" toml:"c"`
	MaxIter int     `yaml:"max_iter" toml:"max_iter"`
}

// ArtifactConfig says where the selected model is written. An empty Path disables
// persistence; WeightsPath is optional.
type ArtifactConfig struct {
	Path        string `yaml:"path" toml:"path"`
	WeightsPath string `yaml:"weights_path" toml:"weights_path"`
	// Reuse loads an existing artifact instead of training when it is present.
	Reuse bool `yaml:"reuse" toml:"reuse"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

func base() *Config {
	return &Config{
		Linear: LinearConfig{
			RidgeAlpha:      1.0,
			LassoAlpha:      1.0,
			ElasticNetAlpha: 1.0,
			L1Ratio:         0.5,
			MaxIter:         1000,
			Tol:             1e-4,
		},
		Forest: ForestConfig{
			NEstimators: 100,
			MaxFeatures: "sqrt",
			RandomState: 42,
			NJobs:       -1,
		},
		Logistic: LogisticConfig{
			C:       1.0,
			MaxIter: 100,
		},
		Log:  LogConfig{Level: "info", Format: "console"},
		TopN: 10,
	}
}

// HeartDiseaseDefaults is the configuration of the regression comparison.
func HeartDiseaseDefaults() *Config {
	c := base()
	c.Dataset = splitPaths("data/heart_disease")
	c.Artifact = ArtifactConfig{
		Path:        "models/best_heart_disease_model.hmla",
		WeightsPath: "models/best_heart_disease_model.weights.json",
	}
	return c
}

// DiabetesDefaults is the configuration of the random forest pipeline.
func DiabetesDefaults() *Config {
	c := base()
	c.Dataset = splitPaths("data/diabetes")
	c.Artifact = ArtifactConfig{Path: "models/diabetes_random_forest.hmla"}
	c.Logistic.Enabled = true
	return c
}

func splitPaths(dir string) dataset.Paths {
	return dataset.Paths{
		XTrain: filepath.Join(dir, "X_train.csv"),
		YTrain: filepath.Join(dir, "y_train.csv"),
		XTest:  filepath.Join(dir, "X_test.csv"),
		YTest:  filepath.Join(dir, "y_test.csv"),
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, errors.NewValidationError("config", "unsupported file extension, want .yaml, .yml or .toml", path)
	}
}

// Load reads path over a copy of defaults and validates the result. Unknown keys are
// rejected. Relative dataset and artifact paths are resolved against the directory of
// the config file.
func Load(path string, defaults *Config) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := *defaults
	switch f {
	case formatYAML:
		err = yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict())
	case formatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}

	log.GetLoggerWithName("config").Debug("configuration loaded", log.PathKey, path)
	return &cfg, nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{
		&c.Dataset.XTrain, &c.Dataset.YTrain, &c.Dataset.XTest, &c.Dataset.YTest,
		&c.Artifact.Path, &c.Artifact.WeightsPath, &c.PlotsDir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks every field and returns the first problem as a ValidationError.
func (c *Config) Validate() error {
	for _, p := range []struct{ name, value string }{
		{"dataset.x_train", c.Dataset.XTrain},
		{"dataset.y_train", c.Dataset.YTrain},
		{"dataset.x_test", c.Dataset.XTest},
		{"dataset.y_test", c.Dataset.YTest},
	} {
		if p.value == "" {
			return errors.NewValidationError(p.name, "must not be empty", p.value)
		}
	}

	l := c.Linear
	switch {
	case l.RidgeAlpha < 0:
		return errors.NewValidationError("linear.ridge_alpha", "must be non-negative", l.RidgeAlpha)
	case l.LassoAlpha < 0:
		return errors.NewValidationError("linear.lasso_alpha", "must be non-negative", l.LassoAlpha)
	case l.ElasticNetAlpha < 0:
		return errors.NewValidationError("linear.elasticnet_alpha", "must be non-negative", l.ElasticNetAlpha)
	case l.L1Ratio < 0 || l.L1Ratio > 1:
		return errors.NewValidationError("linear.l1_ratio", "must be in [0, 1]", l.L1Ratio)
	case l.MaxIter <= 0:
		return errors.NewValidationError("linear.max_iter", "must be positive", l.MaxIter)
	case l.Tol < 0:
		return errors.NewValidationError("linear.tol", "must be non-negative", l.Tol)
	}

	fc := c.Forest
	switch {
	case fc.NEstimators < 1:
		return errors.NewValidationError("forest.n_estimators", "must be at least 1", fc.NEstimators)
	case fc.MaxDepth < 0:
		return errors.NewValidationError("forest.max_depth", "must be non-negative", fc.MaxDepth)
	case fc.MaxFeatures != "sqrt" && fc.MaxFeatures != "log2" && fc.MaxFeatures != "all":
		return errors.NewValidationError("forest.max_features", "must be sqrt, log2 or all", fc.MaxFeatures)
	}

	switch {
	case c.Logistic.C <= 0:
		return errors.NewValidationError("logistic.c", "must be positive", c.Logistic.C)
	case c.Logistic.MaxIter < 1:
		return errors.NewValidationError("logistic.max_iter", "must be at least 1", c.Logistic.MaxIter)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}
	if c.TopN < 1 {
		return errors.NewValidationError("top_n", "must be positive", c.TopN)
	}
	return nil
}

// Save writes c to path, choosing YAML or TOML by extension.
func (c *Config) Save(path string) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(c)
	case formatTOML:
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
