// Package store persists segmentation runs to SQLite so nights from repeated
// recordings can be compared after the fact.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/somnolab/sleepwin/pkg/nights"
	"github.com/somnolab/sleepwin/pkg/summary"
)

//go:embed schema.sql
var schemaSQL string

const timeLayout = "2006-01-02 15:04:05"

// Store wraps the results database.
type Store struct {
	*sql.DB
}

// RunParams records the configuration a run was segmented with.
type RunParams struct {
	Source        string
	EpochLength   time.Duration
	MinSleepBlock time.Duration
	GapThreshold  time.Duration
	AnchorHour    int
	Epochs        int
	GapsFilled    int
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db}, nil
}

// SaveRun stores one segmentation run with its windows and night summaries,
// returning the generated run ID.
func (s *Store) SaveRun(params RunParams, t *nights.Table, ns []summary.Night) (string, error) {
	runID := uuid.NewString()

	tx, err := s.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, source, epoch_seconds, min_sleep_block_seconds,
			gap_threshold_seconds, night_anchor_hour, epochs, gaps_filled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, params.Source,
		int(params.EpochLength.Seconds()), int(params.MinSleepBlock.Seconds()),
		int(params.GapThreshold.Seconds()), params.AnchorHour,
		params.Epochs, params.GapsFilled)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, w := range t.Windows {
		_, err = tx.Exec(`
			INSERT INTO sleep_blocks (run_id, block_id, start_time, end_time,
				interval_start, interval_end, wear_duration_h, is_longest_block)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, w.BlockID,
			w.Start.Format(timeLayout), w.End.Format(timeLayout),
			w.IntervalStart.Format(timeLayout), w.IntervalEnd.Format(timeLayout),
			w.WearHours, boolInt(w.Longest))
		if err != nil {
			return "", fmt.Errorf("inserting sleep block %d: %w", w.BlockID, err)
		}
	}

	for _, n := range ns {
		_, err = tx.Exec(`
			INSERT INTO night_summaries (run_id, interval_start, interval_end,
				wear_duration_h, sleep_duration_h, sleep_onset, sleep_offset,
				nrem_h, rem_h, efficiency, windows, eligible)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			n.Start.Format(timeLayout), n.End.Format(timeLayout),
			n.WearHours, n.SleepHours,
			n.Onset.Format(timeLayout), n.Offset.Format(timeLayout),
			n.NREMHours, n.REMHours, n.Efficiency, n.Windows, boolInt(n.Eligible))
		if err != nil {
			return "", fmt.Errorf("inserting night summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// BlockCount returns the number of stored sleep blocks for a run.
func (s *Store) BlockCount(runID string) (int, error) {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM sleep_blocks WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sleep blocks: %w", err)
	}
	return n, nil
}

// LongestBlocks returns the per-night longest block table for a run, ordered
// by night.
func (s *Store) LongestBlocks(runID string) ([]nights.Window, error) {
	rows, err := s.Query(`
		SELECT block_id, start_time, end_time, interval_start, interval_end, wear_duration_h
		FROM sleep_blocks
		WHERE run_id = ? AND is_longest_block = 1
		ORDER BY interval_start`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying longest blocks: %w", err)
	}
	defer rows.Close()

	var out []nights.Window
	for rows.Next() {
		var w nights.Window
		var start, end, ivStart, ivEnd string
		if err := rows.Scan(&w.BlockID, &start, &end, &ivStart, &ivEnd, &w.WearHours); err != nil {
			return nil, fmt.Errorf("scanning longest block: %w", err)
		}
		if w.Start, err = time.Parse(timeLayout, start); err != nil {
			return nil, fmt.Errorf("parsing block start: %w", err)
		}
		if w.End, err = time.Parse(timeLayout, end); err != nil {
			return nil, fmt.Errorf("parsing block end: %w", err)
		}
		if w.IntervalStart, err = time.Parse(timeLayout, ivStart); err != nil {
			return nil, fmt.Errorf("parsing interval start: %w", err)
		}
		if w.IntervalEnd, err = time.Parse(timeLayout, ivEnd); err != nil {
			return nil, fmt.Errorf("parsing interval end: %w", err)
		}
		w.Longest = true
		out = append(out, w)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
