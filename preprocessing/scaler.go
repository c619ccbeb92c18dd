// Package preprocessing provides feature scaling for the training pipelines.
package preprocessing

import (
	"encoding/gob"
	"fmt"
	"math"

	"github.com/YuminosukeSato/healthml/core/model"
	"github.com/YuminosukeSato/healthml/pkg/errors"
	"github.com/YuminosukeSato/healthml/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func init() {
	gob.Register(&StandardScaler{})
}

var _ model.Transformer = (*StandardScaler)(nil)

// ScalerPath is where the pipelines store the scaler fitted for the artifact at
// artifactPath.
func ScalerPath(artifactPath string) string {
	return artifactPath + ".scaler.gob"
}

// columns whose standard deviation is below this are left unscaled
const minScale = 1e-8

// StandardScaler はscikit-learn互換の標準化スケーラー
// 平均0、分散1になるようにデータを変換する
//
// The standard deviation is the population one (ddof = 0). Constant columns keep a
// scale of 1 so they are only centered.
type StandardScaler struct {
	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差
	Scale []float64

	// WithMean は平均を引くかどうか
	WithMean bool

	// WithStd は標準偏差で割るかどうか
	WithStd bool

	State *model.StateManager
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(XTrain)
//	XTestScaled, err := scaler.Transform(XTest)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
		State:    model.NewStateManager(),
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer errors.Recover(&err, "StandardScaler.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("StandardScaler.Fit", X); err != nil {
		return err
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	s.State.Reset()

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		if s.WithStd {
			if std := math.Sqrt(variance); std >= minScale {
				s.Scale[j] = std
			}
		}
	}

	s.State.SetFitted(c, r)
	log.GetLoggerWithName("preprocessing").Debug("scaler fitted",
		log.ModelNameKey, "StandardScaler",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.check("Transform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.check("InverseTransform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

func (s *StandardScaler) check(method string, X mat.Matrix) error {
	if s.State == nil {
		return errors.NewNotFittedError("StandardScaler", method)
	}
	if err := s.State.RequireFitted("StandardScaler", method); err != nil {
		return err
	}
	return s.State.RequireFeatures("StandardScaler."+method, X)
}

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool {
	return s.State != nil && s.State.IsFitted()
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	nFeatures, _ := s.State.GetDimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, nFeatures)
}

// ScaleSplit fits a scaler on the training features and applies it to both partitions.
// It returns the fitted scaler together with the scaled training and test matrices.
func ScaleSplit(xTrain, xTest mat.Matrix) (*StandardScaler, *mat.Dense, *mat.Dense, error) {
	s := NewStandardScalerDefault()
	if err := s.Fit(xTrain); err != nil {
		return nil, nil, nil, err
	}
	train, test, err := s.TransformSplit(xTrain, xTest)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, train, test, nil
}

// TransformSplit applies an already fitted scaler to both partitions.
func (s *StandardScaler) TransformSplit(xTrain, xTest mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	train, err := s.Transform(xTrain)
	if err != nil {
		return nil, nil, err
	}
	test, err := s.Transform(xTest)
	if err != nil {
		return nil, nil, err
	}
	return train.(*mat.Dense), test.(*mat.Dense), nil
}
