package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/nights"
	"github.com/somnolab/sleepwin/pkg/summary"
)

func mkSeries(t *testing.T, labels []epoch.RawLabel) *epoch.Series {
	t.Helper()
	start := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(labels))
	for i := range labels {
		times[i] = start.Add(time.Duration(i) * epoch.DefaultLength)
	}
	s, err := epoch.New(times, labels, epoch.DefaultLength)
	require.NoError(t, err)
	return s
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWritePredictions(t *testing.T) {
	s := mkSeries(t, []epoch.RawLabel{epoch.Wake, epoch.NREM, epoch.REM, epoch.NonWear})
	path := filepath.Join(t.TempDir(), "predictions.csv")

	require.NoError(t, WritePredictions(path, s, s.RawLabels(), nil, nil))

	rows := readCSV(t, path)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"time", "sleep_wake", "sleep_stage", "raw_label"}, rows[0])
	assert.Equal(t, []string{"2024-05-01 22:00:00", "wake", "wake", "0"}, rows[1])
	assert.Equal(t, []string{"2024-05-01 22:00:30", "sleep", "nrem", "1"}, rows[2])
	assert.Equal(t, []string{"2024-05-01 22:01:00", "sleep", "rem", "2"}, rows[3])
	assert.Equal(t, []string{"2024-05-01 22:01:30", "non-wear", "non-wear", "-1"}, rows[4])
}

func TestWritePredictionsWithEnvironment(t *testing.T) {
	s := mkSeries(t, []epoch.RawLabel{epoch.NREM, epoch.NREM})
	path := filepath.Join(t.TempDir(), "predictions.csv")

	require.NoError(t, WritePredictions(path, s, s.RawLabels(),
		[]float64{36.1, 36.2}, []float64{0, 1.5}))

	rows := readCSV(t, path)
	assert.Equal(t, []string{"time", "sleep_wake", "sleep_stage", "raw_label", "temperature", "light"}, rows[0])
	assert.Equal(t, "36.10", rows[1][4])
	assert.Equal(t, "1.50", rows[2][5])
}

func TestWritePredictionsLengthMismatch(t *testing.T) {
	s := mkSeries(t, []epoch.RawLabel{epoch.NREM, epoch.NREM})
	path := filepath.Join(t.TempDir(), "predictions.csv")

	assert.Error(t, WritePredictions(path, s, []epoch.RawLabel{epoch.NREM}, nil, nil))
	assert.Error(t, WritePredictions(path, s, s.RawLabels(), []float64{1}, []float64{1}))
}

func TestWriteSleepBlocks(t *testing.T) {
	anchor := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tbl := &nights.Table{
		Windows: []nights.Window{{
			Start:         anchor.Add(10 * time.Hour),
			End:           anchor.Add(18 * time.Hour),
			IntervalStart: anchor,
			IntervalEnd:   anchor.Add(24 * time.Hour),
			WearHours:     23.5,
			Longest:       true,
		}},
	}
	path := filepath.Join(t.TempDir(), "sleep_block.csv")

	require.NoError(t, WriteSleepBlocks(path, tbl))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"start", "end", "interval_start", "interval_end", "wear_duration_H", "is_longest_block"}, rows[0])
	assert.Equal(t, []string{
		"2024-05-01 22:00:00", "2024-05-02 06:00:00",
		"2024-05-01 12:00:00", "2024-05-02 12:00:00",
		"23.50", "true",
	}, rows[1])
}

func TestWriteDaySummary(t *testing.T) {
	anchor := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ns := []summary.Night{{
		Start:      anchor,
		End:        anchor.Add(24 * time.Hour),
		WearHours:  24,
		SleepHours: 7.5,
		Onset:      anchor.Add(10 * time.Hour),
		Offset:     anchor.Add(18 * time.Hour),
		NREMHours:  6,
		REMHours:   1.5,
		Efficiency: 0.9375,
		Windows:    1,
		Eligible:   true,
	}}
	path := filepath.Join(t.TempDir(), "day_summary.csv")

	require.NoError(t, WriteDaySummary(path, ns))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "7.50", rows[1][3])
	assert.Equal(t, "0.938", rows[1][8])
	assert.Equal(t, "true", rows[1][10])
}

func TestWriteSummaryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	in := summary.Overall{
		Nights:         7,
		EligibleNights: 6,
		MinWearHours:   22,
		MeanSleepHours: 7.4,
		StdSleepHours:  0.8,
		MeanWearHours:  23.1,
		MeanEfficiency: 0.91,
	}

	require.NoError(t, WriteSummaryJSON(path, in))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var out summary.Overall
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestRenderNightChart(t *testing.T) {
	anchor := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ns := []summary.Night{
		{Start: anchor, SleepHours: 7.5, WearHours: 24},
		{Start: anchor.Add(24 * time.Hour), SleepHours: 6.2, WearHours: 22.8},
	}
	path := filepath.Join(t.TempDir(), "nights.html")

	require.NoError(t, RenderNightChart(path, "Sleep per night", ns))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "Sleep per night")
	assert.Contains(t, html, "May 01")
}
