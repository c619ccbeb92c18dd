package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/healthml/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
//	var reg linear.Ridge
//	// ... fit ...
//	err := model.SaveModel(&reg, "ridge.gob")
//
// The encoding is not versioned; use SaveArtifact for files that outlive a build.
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create %s", filename)
	}
	defer file.Close()

	return SaveModelToWriter(m, file)
}

// LoadModel はファイルからモデルを読み込む. m must be a pointer to the concrete type.
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "open %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(m, file)
}

// SaveModelToWriter gob-encodes m to w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader gob-decodes into m from r.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
