// Package report persists pipeline outputs: per-epoch prediction CSVs, the
// sleep block table, night summaries and an HTML timeline chart.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/nights"
	"github.com/somnolab/sleepwin/pkg/summary"
)

const timeLayout = "2006-01-02 15:04:05"

// WritePredictions writes one row per epoch with the sleep/wake and stage
// display labels derived from the label tables. temperature and light are
// optional parallel arrays; pass nil to omit the columns.
func WritePredictions(path string, s *epoch.Series, labels []epoch.RawLabel, temperature, light []float64) error {
	if len(labels) != s.Len() {
		return fmt.Errorf("predictions: %d labels for %d epochs", len(labels), s.Len())
	}
	withEnv := temperature != nil && light != nil
	if withEnv && (len(temperature) != s.Len() || len(light) != s.Len()) {
		return fmt.Errorf("predictions: temperature/light length mismatch with %d epochs", s.Len())
	}

	header := []string{"time", "sleep_wake", "sleep_stage", "raw_label"}
	if withEnv {
		header = append(header, "temperature", "light")
	}

	return writeCSV(path, header, s.Len(), func(i int) []string {
		row := []string{
			s.Epochs[i].Time.Format(timeLayout),
			labels[i].BinaryName(),
			labels[i].StageName(),
			strconv.Itoa(int(labels[i])),
		}
		if withEnv {
			row = append(row,
				strconv.FormatFloat(temperature[i], 'f', 2, 64),
				strconv.FormatFloat(light[i], 'f', 2, 64))
		}
		return row
	})
}

// WriteSleepBlocks writes the sleep block table.
func WriteSleepBlocks(path string, t *nights.Table) error {
	header := []string{"start", "end", "interval_start", "interval_end", "wear_duration_H", "is_longest_block"}
	return writeCSV(path, header, len(t.Windows), func(i int) []string {
		w := t.Windows[i]
		return []string{
			w.Start.Format(timeLayout),
			w.End.Format(timeLayout),
			w.IntervalStart.Format(timeLayout),
			w.IntervalEnd.Format(timeLayout),
			strconv.FormatFloat(w.WearHours, 'f', 2, 64),
			strconv.FormatBool(w.Longest),
		}
	})
}

// WriteDaySummary writes one row per night.
func WriteDaySummary(path string, ns []summary.Night) error {
	header := []string{
		"interval_start", "interval_end", "wear_duration_H", "sleep_duration_H",
		"sleep_onset", "sleep_offset", "nrem_H", "rem_H", "efficiency", "windows", "eligible",
	}
	return writeCSV(path, header, len(ns), func(i int) []string {
		n := ns[i]
		return []string{
			n.Start.Format(timeLayout),
			n.End.Format(timeLayout),
			strconv.FormatFloat(n.WearHours, 'f', 2, 64),
			strconv.FormatFloat(n.SleepHours, 'f', 2, 64),
			n.Onset.Format(timeLayout),
			n.Offset.Format(timeLayout),
			strconv.FormatFloat(n.NREMHours, 'f', 2, 64),
			strconv.FormatFloat(n.REMHours, 'f', 2, 64),
			strconv.FormatFloat(n.Efficiency, 'f', 3, 64),
			strconv.Itoa(n.Windows),
			strconv.FormatBool(n.Eligible),
		}
	})
}

// WriteSummaryJSON writes the cross-night summary.
func WriteSummaryJSON(path string, o summary.Overall) error {
	data, err := json.MarshalIndent(o, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func writeCSV(path string, header []string, rows int, row func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range rows {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}
