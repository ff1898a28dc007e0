// Package ingest reads already-classified epoch series from CSV. Raw sensor
// parsing and resampling happen upstream; this boundary only accepts the
// (time, label) rows that stage produces, with optional per-epoch mean
// temperature and light columns.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/somnolab/sleepwin/pkg/epoch"
)

const timeLayout = "2006-01-02 15:04:05"

// Environment carries optional per-epoch sensor aggregates.
type Environment struct {
	Temperature []float64
	Light       []float64
}

// ReadSeries reads an epoch series CSV. Expected header: time,label with
// optional temperature,light columns. The returned series is validated
// against the input contract.
func ReadSeries(path string, step time.Duration) (*epoch.Series, *Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening series: %w", err)
	}
	defer f.Close()

	s, env, err := readSeries(f, step)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s, env, nil
}

func readSeries(r io.Reader, step time.Duration) (*epoch.Series, *Environment, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	timeCol, ok := col["time"]
	if !ok {
		return nil, nil, fmt.Errorf("missing required column %q", "time")
	}
	labelCol, ok := col["label"]
	if !ok {
		return nil, nil, fmt.Errorf("missing required column %q", "label")
	}
	tempCol, hasTemp := col["temperature"]
	lightCol, hasLight := col["light"]
	withEnv := hasTemp && hasLight

	var times []time.Time
	var labels []epoch.RawLabel
	env := &Environment{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		t, err := time.Parse(timeLayout, rec[timeCol])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parsing time: %w", line, err)
		}
		code, err := strconv.Atoi(rec[labelCol])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parsing label: %w", line, err)
		}
		label := epoch.RawLabel(code)
		if !label.Known() {
			return nil, nil, fmt.Errorf("line %d: unknown label code %d", line, code)
		}
		times = append(times, t)
		labels = append(labels, label)

		if withEnv {
			temp, err := strconv.ParseFloat(rec[tempCol], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: parsing temperature: %w", line, err)
			}
			light, err := strconv.ParseFloat(rec[lightCol], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: parsing light: %w", line, err)
			}
			env.Temperature = append(env.Temperature, temp)
			env.Light = append(env.Light, light)
		}
	}

	s, err := epoch.New(times, labels, step)
	if err != nil {
		return nil, nil, err
	}
	if !withEnv {
		env = nil
	}
	return s, env, nil
}

// ReadRefined reads refinement-model predictions from CSV with header
// block_id,label; rows must be ordered chronologically within each block.
func ReadRefined(path string) (map[int][]epoch.RawLabel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening refined predictions: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 || header[0] != "block_id" || header[1] != "label" {
		return nil, fmt.Errorf("unexpected header %v, want block_id,label", header)
	}

	out := make(map[int][]epoch.RawLabel)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		blockID, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing block_id: %w", line, err)
		}
		code, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing label: %w", line, err)
		}
		label := epoch.RawLabel(code)
		if !label.Known() {
			return nil, fmt.Errorf("line %d: unknown label code %d", line, code)
		}
		out[blockID] = append(out[blockID], label)
	}
	return out, nil
}
