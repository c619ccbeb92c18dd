package model

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/healthml/pkg/errors"
)

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
//
// It is the human readable companion of a binary artifact: the learned coefficients of a
// linear model keyed by feature name.
type ModelWeights struct {
	ModelType       string                 `json:"model_type"`
	Version         string                 `json:"version"`
	Coefficients    []float64              `json:"coefficients"`
	Intercept       float64                `json:"intercept"`
	Features        []string               `json:"features,omitempty"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	IsFitted        bool                   `json:"is_fitted"`
}

// WeightsVersion is written into every exported ModelWeights.
const WeightsVersion = "1.0.0"

// ExportWeights captures the parameters of a fitted linear model.
func ExportWeights(modelType string, lm LinearModel, features []string) (*ModelWeights, error) {
	coefs := lm.Coefficients()
	if len(coefs) == 0 {
		return nil, errors.NewNotFittedError(modelType, "ExportWeights")
	}
	if len(features) > 0 && len(features) != len(coefs) {
		return nil, errors.NewDimensionError("ExportWeights", len(coefs), len(features), 1)
	}

	mw := &ModelWeights{
		ModelType:       modelType,
		Version:         WeightsVersion,
		Coefficients:    append([]float64(nil), coefs...),
		Intercept:       lm.Intercept(),
		Features:        append([]string(nil), features...),
		Hyperparameters: map[string]interface{}{},
		IsFitted:        true,
	}
	if pg, ok := lm.(ParameterGetter); ok {
		for k, v := range pg.GetParams() {
			mw.Hyperparameters[k] = v
		}
	}
	return mw, nil
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// WriteFile writes the JSON form to path.
func (mw *ModelWeights) WriteFile(path string) error {
	data, err := mw.ToJSON()
	if err != nil {
		return errors.Wrap(err, "marshal weights")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewValidationError("version", "is required", mw.Version)
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return errors.NewValidationError("coefficients", "unfitted model should not have coefficients", len(mw.Coefficients))
	}
	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}
	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return errors.NewValidationError("features", "must match coefficient count", len(mw.Features))
	}
	return nil
}
