package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// First two lines of train_FD001.txt
const fd001Head = `1 1 -0.0007 -0.0004 100.0 518.67 641.82 1589.70 1400.60 14.62 21.61 554.36 2388.06 9046.19 1.30 47.47 521.66 2388.02 8138.62 8.4195 0.03 392 2388 100.00 39.06 23.4190
1 2 0.0019 -0.0003 100.0 518.67 642.15 1591.82 1403.14 14.62 21.61 553.75 2388.04 9044.07 1.30 47.49 522.28 2388.07 8131.49 8.4318 0.03 392 2388 100.00 39.00 23.4236
`

func TestParseDatasetLines(t *testing.T) {
	readings, err := Parse(strings.NewReader(fd001Head))
	require.NoError(t, err)
	require.Len(t, readings, 2)

	first := readings[0]
	assert.Equal(t, 1, first.UnitNumber)
	assert.Equal(t, 1, first.TimeInCycles)
	assert.Equal(t, -0.0007, first.OpSetting1)
	assert.Equal(t, 100.0, first.OpSetting3)
	assert.Equal(t, 518.67, first.Sensor1)
	assert.Equal(t, 23.4190, first.Sensor21)

	assert.Equal(t, 2, readings[1].TimeInCycles)
	assert.Equal(t, 0.0019, readings[1].OpSetting1)
}

func TestParseSkipsBlankLinesAndTabs(t *testing.T) {
	line := strings.Join(strings.Fields(strings.SplitN(fd001Head, "\n", 2)[0]), "\t")
	input := "\n   \n" + line + "\t\t\n\n"

	readings, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestParseAcceptsIntegralFloatIndexes(t *testing.T) {
	fields := strings.Fields(strings.SplitN(fd001Head, "\n", 2)[0])
	fields[0], fields[1] = "3.0", "17.0"

	readings, err := Parse(strings.NewReader(strings.Join(fields, " ")))
	require.NoError(t, err)
	assert.Equal(t, 3, readings[0].UnitNumber)
	assert.Equal(t, 17, readings[0].TimeInCycles)
}

func TestParseMalformed(t *testing.T) {
	good := strings.Fields(strings.SplitN(fd001Head, "\n", 2)[0])

	mutate := func(f func(fields []string) []string) string {
		cp := append([]string(nil), good...)
		return strings.Join(f(cp), " ")
	}

	tests := []struct {
		name    string
		line    string
		wantMsg string
	}{
		{
			name:    "too few columns",
			line:    mutate(func(f []string) []string { return f[:25] }),
			wantMsg: "expected 26 columns, got 25",
		},
		{
			name:    "too many columns",
			line:    mutate(func(f []string) []string { return append(f, "1.0") }),
			wantMsg: "expected 26 columns, got 27",
		},
		{
			name:    "non-numeric sensor",
			line:    mutate(func(f []string) []string { f[10] = "n/a"; return f }),
			wantMsg: "sensor_6",
		},
		{
			name:    "non-numeric cycle",
			line:    mutate(func(f []string) []string { f[1] = "x"; return f }),
			wantMsg: "time_in_cycles",
		},
		{
			name:    "fractional unit",
			line:    mutate(func(f []string) []string { f[0] = "1.5"; return f }),
			wantMsg: "unit_number",
		},
		{
			name:    "zero cycle",
			line:    mutate(func(f []string) []string { f[1] = "0"; return f }),
			wantMsg: "must be positive",
		},
		{
			name:    "NaN sensor",
			line:    mutate(func(f []string) []string { f[5] = "NaN"; return f }),
			wantMsg: "not a finite number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A good first line must not survive a bad second line
			input := strings.Join(good, " ") + "\n" + tt.line + "\n"
			readings, err := Parse(strings.NewReader(input))
			require.Error(t, err)
			assert.Nil(t, readings)
			assert.True(t, errors.Is(err, ErrMalformedInput))
			assert.Contains(t, err.Error(), "line 2")
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train_FD001.txt")
	require.NoError(t, os.WriteFile(path, []byte(fd001Head), 0644))

	readings, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedInput))
}

func TestSampleNewReadings(t *testing.T) {
	samples := SampleNewReadings()
	require.Len(t, samples, 2)
	for i, s := range samples {
		assert.Equal(t, 100, s.UnitNumber)
		assert.Equal(t, 201+i, s.TimeInCycles)
	}
	assert.Equal(t, 394.0, samples[0].Sensor17)
	assert.Equal(t, 23.15, samples[1].Sensor21)
}
