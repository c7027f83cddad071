package forest

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrInvalidModel means an artifact could not be decoded or fails structural checks
var ErrInvalidModel = errors.New("invalid model artifact")

// Write encodes m as gzip-compressed JSON
func Write(w io.Writer, m *Model) error {
	zw, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return errors.Wrap(err, "failed to create gzip writer")
	}
	if err := json.NewEncoder(zw).Encode(m); err != nil {
		zw.Close()
		return errors.Wrap(err, "failed to encode model")
	}
	return errors.Wrap(zw.Close(), "failed to flush model")
}

// Read decodes a model written by Write and validates its trees
func Read(r io.Reader) (*Model, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidModel, "not a gzip stream: %v", err)
	}
	defer zr.Close()

	var m Model
	if err := json.NewDecoder(zr).Decode(&m); err != nil {
		return nil, errors.Wrapf(ErrInvalidModel, "failed to decode: %v", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Trees) == 0 {
		return errors.Wrap(ErrInvalidModel, "model has no trees")
	}
	if len(m.FeatureNames) == 0 {
		return errors.Wrap(ErrInvalidModel, "model has no feature names")
	}
	for i := range m.Trees {
		if m.Trees[i].FeatureSize != len(m.FeatureNames) {
			return errors.Wrapf(ErrInvalidModel, "tree %d expects %d features, model has %d",
				i, m.Trees[i].FeatureSize, len(m.FeatureNames))
		}
		if err := m.Trees[i].validate(); err != nil {
			return errors.Wrapf(ErrInvalidModel, "tree %d: %v", i, err)
		}
	}
	return nil
}

// Save writes m to path, replacing any existing artifact. The file is written to a temporary
// name in the same directory and renamed, so readers never see a partial model.
func Save(path string, m *Model) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create model directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary model file")
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, m); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary model file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to move model into place")
	}

	klog.V(2).InfoS("Saved model artifact", "path", path, "trees", len(m.Trees))
	return nil
}

// Load reads the artifact at path and checks it was trained on featureNames.
// A missing file is returned as an os.ErrNotExist error.
func Load(path string, featureNames []string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "model %s", path)
	}
	if err := m.CheckFeatures(featureNames); err != nil {
		return nil, errors.Wrapf(ErrInvalidModel, "model %s: %v", path, err)
	}
	return m, nil
}
