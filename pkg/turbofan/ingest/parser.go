// Package ingest reads the raw whitespace-delimited turbofan sensor log.
//
// Each non-blank line carries 26 fields: unit_number, time_in_cycles, op_setting_1..3 and
// sensor_1..21. Trailing delimiters produce no extra fields. Any malformed line fails the whole
// parse so callers never ingest a partial file.
package ingest

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// ErrMalformedInput marks raw data that is non-numeric or does not match the 26-column schema
var ErrMalformedInput = types.ErrMalformedInput

// maxLineBytes bounds a single raw line; real lines are well under 1KB
const maxLineBytes = 64 * 1024

// ParseFile parses a raw sensor log from disk
func ParseFile(path string) ([]types.SensorReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open raw log %s", path)
	}
	defer f.Close()

	readings, err := Parse(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse %s", path)
	}

	klog.V(2).InfoS("Parsed raw sensor log", "path", path, "rows", len(readings))
	return readings, nil
}

// Parse reads every reading from r. Blank lines are skipped.
func Parse(r io.Reader) ([]types.SensorReading, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var readings []types.SensorReading
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		reading, err := parseFields(fields)
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d", lineNo)
		}
		readings = append(readings, reading)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrMalformedInput, "line %d: %v", lineNo+1, err)
	}

	return readings, nil
}

func parseFields(fields []string) (types.SensorReading, error) {
	if len(fields) != common.RawColumnCount {
		return types.SensorReading{}, errors.Wrapf(ErrMalformedInput,
			"expected %d columns, got %d", common.RawColumnCount, len(fields))
	}

	unit, err := parseIndex(common.ColumnUnitNumber, fields[0])
	if err != nil {
		return types.SensorReading{}, err
	}
	cycle, err := parseIndex(common.ColumnTimeInCycles, fields[1])
	if err != nil {
		return types.SensorReading{}, err
	}

	var fv types.FeatureVector
	for i, raw := range fields[2:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.SensorReading{}, errors.Wrapf(ErrMalformedInput,
				"%s: %q is not a finite number", common.FeatureColumns[i], raw)
		}
		fv[i] = v
	}

	return types.NewSensorReading(unit, cycle, fv), nil
}

// parseIndex accepts "12" and "12.0" but rejects fractional or non-positive values
func parseIndex(column, raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		if v <= 0 {
			return 0, errors.Wrapf(ErrMalformedInput, "%s must be positive, got %d", column, v)
		}
		return v, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, errors.Wrapf(ErrMalformedInput, "%s: %q is not an integer", column, raw)
	}
	if f <= 0 {
		return 0, errors.Wrapf(ErrMalformedInput, "%s must be positive, got %s", column, raw)
	}
	return int(f), nil
}
