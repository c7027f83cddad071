package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

func sampleLabeled() []types.LabeledReading {
	var out []types.LabeledReading
	for c := 1; c <= 3; c++ {
		fv := types.DefaultFeatureVector()
		fv[4] = 642.15 + float64(c)/100
		out = append(out, types.LabeledReading{
			SensorReading: types.NewSensorReading(1, c, fv),
			RUL:           3 - c,
		})
	}
	return out
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleLabeled()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(common.LabeledColumns(), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,1,"))
	assert.True(t, strings.HasSuffix(lines[1], ",2"))
}

func TestWriteReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "labeled.csv")
	want := sampleLabeled()

	require.NoError(t, WriteCSV(path, want))
	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadRejectsBadInput(t *testing.T) {
	header := strings.Join(common.LabeledColumns(), ",")
	row := func(rul string) string {
		fields := make([]string, 0, len(common.LabeledColumns()))
		fields = append(fields, "1", "1")
		for range common.FeatureColumns {
			fields = append(fields, "0.5")
		}
		return strings.Join(append(fields, rul), ",")
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "missing rul column", input: strings.Join(common.RawColumns(), ",") + "\n"},
		{name: "reordered header", input: strings.Replace(header, "sensor_1,sensor_2", "sensor_2,sensor_1", 1) + "\n"},
		{name: "non-numeric rul", input: header + "\n" + row("soon") + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrMalformedInput))
		})
	}

	labeled, err := Read(strings.NewReader(header + "\n" + row("7") + "\n"))
	require.NoError(t, err)
	require.Len(t, labeled, 1)
	assert.Equal(t, 7, labeled[0].RUL)
	assert.Equal(t, 0.5, labeled[0].Sensor21)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
