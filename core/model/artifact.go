package model

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/healthml/pkg/errors"
)

// Artifact file layout, little endian:
//
//	magic    [4]byte "HMLA"
//	version  uint16
//	reserved uint16
//	length   uint64  size of payload
//	payload  []byte  zstd(gob(artifactPayload))
//	checksum uint64  xxhash64(payload)
const (
	artifactMagic      = "HMLA"
	artifactVersion    = uint16(1)
	artifactHeaderSize = 4 + 2 + 2 + 8

	// refuse to allocate more than this for a single payload
	maxArtifactPayload = 1 << 30
)

// ArtifactMetadata describes a persisted model.
type ArtifactMetadata struct {
	RunID     string
	ModelName string
	CreatedAt time.Time
	Features  []string
	Metrics   map[string]float64
	Params    map[string]interface{}
}

// Artifact is a persisted estimator plus its metadata.
type Artifact struct {
	Metadata ArtifactMetadata
	Model    Estimator
}

type artifactPayload struct {
	Metadata ArtifactMetadata
	Model    Estimator
}

// WriteArtifact encodes est and meta to w. The concrete type of est must have been
// registered with gob (estimator packages do this in init).
func WriteArtifact(w io.Writer, est Estimator, meta ArtifactMetadata) error {
	if est == nil {
		return errors.NewValueError("WriteArtifact", "nil estimator")
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(&artifactPayload{Metadata: meta, Model: est}); err != nil {
		return errors.Wrap(err, "encode artifact payload")
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return errors.Wrap(err, "create zstd encoder")
	}
	payload := enc.EncodeAll(raw.Bytes(), nil)
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "close zstd encoder")
	}

	header := make([]byte, artifactHeaderSize)
	copy(header[0:4], artifactMagic)
	binary.LittleEndian.PutUint16(header[4:6], artifactVersion)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))

	trailer := make([]byte, 8)
	binary.LittleEndian.PutUint64(trailer, xxhash.Sum64(payload))

	for _, chunk := range [][]byte{header, payload, trailer} {
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, "write artifact")
		}
	}
	return nil
}

// ReadArtifact decodes an artifact written by WriteArtifact.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	header := make([]byte, artifactHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "read artifact header")
	}
	if string(header[0:4]) != artifactMagic {
		return nil, errors.NewValueError("ReadArtifact", "not a model artifact (bad magic)")
	}
	if v := binary.LittleEndian.Uint16(header[4:6]); v != artifactVersion {
		return nil, errors.NewValueError("ReadArtifact", "unsupported artifact version "+strconv.Itoa(int(v)))
	}
	length := binary.LittleEndian.Uint64(header[8:16])
	if length > maxArtifactPayload {
		return nil, errors.NewValueError("ReadArtifact", "payload too large")
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "read artifact payload")
	}
	trailer := make([]byte, 8)
	if _, err := io.ReadFull(r, trailer); err != nil {
		return nil, errors.Wrap(err, "read artifact checksum")
	}
	if binary.LittleEndian.Uint64(trailer) != xxhash.Sum64(payload) {
		return nil, errors.WithStack(errors.ErrChecksumMismatch)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decompress artifact payload")
	}

	var p artifactPayload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode artifact payload")
	}
	return &Artifact{Metadata: p.Metadata, Model: p.Model}, nil
}

// SaveArtifact writes an artifact to path, creating parent directories. The bytes go to a
// temporary file in the same directory which is then renamed over path.
func SaveArtifact(path string, est Estimator, meta ArtifactMetadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := WriteArtifact(tmp, est, meta); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// LoadArtifact reads an artifact from path.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	a, err := ReadArtifact(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return a, nil
}
