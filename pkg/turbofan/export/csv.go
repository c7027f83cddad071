// Package export writes and reads the labeled CSV file handed between pipeline stages.
package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// Write encodes labeled readings with a header row in common.LabeledColumns order
func Write(w io.Writer, labeled []types.LabeledReading) error {
	if err := gocsv.Marshal(&labeled, w); err != nil {
		return errors.Wrap(err, "failed to encode labeled readings")
	}
	return nil
}

// WriteCSV writes labeled readings to path, replacing any existing file
func WriteCSV(path string, labeled []types.LabeledReading) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create export directory")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, labeled); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}

	klog.InfoS("Exported labeled readings", "path", path, "rows", len(labeled))
	return nil
}

// Read decodes a labeled CSV. The header must list exactly common.LabeledColumns, in order.
func Read(r io.Reader) ([]types.LabeledReading, error) {
	br := bufio.NewReader(r)
	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to read header")
	}
	header, err := csv.NewReader(strings.NewReader(headerLine)).Read()
	if err != nil {
		return nil, errors.Wrapf(types.ErrMalformedInput, "bad header: %v", err)
	}
	if want := common.LabeledColumns(); strings.Join(header, ",") != strings.Join(want, ",") {
		return nil, errors.Wrapf(types.ErrMalformedInput, "header %v does not match %v", header, want)
	}

	var labeled []types.LabeledReading
	body := io.MultiReader(strings.NewReader(headerLine), br)
	if err := gocsv.Unmarshal(body, &labeled); err != nil {
		return nil, errors.Wrapf(types.ErrMalformedInput, "failed to decode labeled readings: %v", err)
	}
	return labeled, nil
}

// ReadCSV reads a labeled CSV file written by WriteCSV
func ReadCSV(path string) ([]types.LabeledReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	labeled, err := Read(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "file %s", path)
	}

	klog.V(2).InfoS("Read labeled readings", "path", path, "rows", len(labeled))
	return labeled, nil
}
