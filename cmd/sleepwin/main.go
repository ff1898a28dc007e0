// Package main implements the sleepwin CLI: it turns a per-epoch sleep/wake
// classification CSV into sleep windows, night summaries and reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/somnolab/sleepwin/pkg/artifact"
	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/hypnogram"
	"github.com/somnolab/sleepwin/pkg/ingest"
	"github.com/somnolab/sleepwin/pkg/nights"
	"github.com/somnolab/sleepwin/pkg/report"
	"github.com/somnolab/sleepwin/pkg/sleepwin"
	"github.com/somnolab/sleepwin/pkg/stitch"
	"github.com/somnolab/sleepwin/pkg/store"
	"github.com/somnolab/sleepwin/pkg/summary"
	"github.com/somnolab/sleepwin/pkg/weights"
)

var (
	outdir        = flag.String("outdir", "outputs", "Folder for output files")
	epochSeconds  = flag.Int("epoch", 30, "Epoch length in seconds")
	minBlock      = flag.Duration("min-block", sleepwin.DefaultMinSleepBlock, "Minimum duration a sleep run must exceed to count")
	gapThreshold  = flag.Duration("gap-threshold", sleepwin.DefaultGapThreshold, "Bridge non-sleep gaps shorter than this")
	nightAnchor   = flag.Int("night-anchor", nights.DefaultAnchorHour, "Hour of day at which nights start and end")
	minWear       = flag.Float64("min-wear", summary.DefaultMinWearHours, "Minimum wear hours for a night to enter summary statistics")
	refinedPath   = flag.String("refined", "", "CSV of refinement-model predictions (block_id,label)")
	dbPath        = flag.String("db", "", "SQLite results database path (or set SLEEPWIN_DB)")
	chart         = flag.Bool("chart", false, "Render an HTML chart of nightly sleep and wear hours")
	forceRun      = flag.Bool("force-run", false, "Recompute everything, ignoring cached intermediates")
	weightsURL    = flag.String("weights-url", "", "Download refinement model weights from this URL if missing (or set SLEEPWIN_WEIGHTS_URL)")
	weightsPath   = flag.String("weights", "", "Local path for refinement model weights")
	forceDownload = flag.Bool("force-download", false, "Re-download model weights even if present")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	version       = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("sleepwin v0.4.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <epoch-series.csv>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	source := args[0]

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *dbPath == "" {
		*dbPath = os.Getenv("SLEEPWIN_DB")
	}
	if *weightsURL == "" {
		*weightsURL = os.Getenv("SLEEPWIN_WEIGHTS_URL")
	}

	if err := run(logger, source); err != nil {
		logger.Error("sleepwin failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, source string) error {
	ctx := context.Background()

	sg, err := sleepwin.New(logger,
		sleepwin.WithEpochLength(time.Duration(*epochSeconds)*time.Second),
		sleepwin.WithMinSleepBlock(*minBlock),
		sleepwin.WithGapThreshold(*gapThreshold),
		sleepwin.WithNightAnchorHour(*nightAnchor),
	)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	runDir := filepath.Join(*outdir, base)
	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	logger.Info("saving files", "dir", runDir)

	if *weightsURL != "" {
		path := *weightsPath
		if path == "" {
			path = filepath.Join(runDir, "weights.bin")
		}
		fetcher := weights.New(nil, logger)
		if path, err = fetcher.Ensure(ctx, *weightsURL, path, *forceDownload); err != nil {
			return err
		}
		logger.Info("model weights ready", "path", path)
	}

	series, env, err := ingest.ReadSeries(source, sg.EpochLength())
	if err != nil {
		return err
	}
	logger.Info("loaded epoch series", "epochs", series.Len(), "step", series.Step)

	result, err := sg.Segment(series)
	if err != nil {
		return err
	}

	if result.Empty() {
		// Zero sleep windows is a reportable outcome, not a failure: skip
		// refinement and summaries, keep the coarse predictions on disk.
		fmt.Printf("No sleep windows longer than %s detected.\n", *minBlock)
		return report.WritePredictions(
			filepath.Join(runDir, "predictions.csv"), series, result.Coarse,
			envTemp(env), envLight(env))
	}

	labels, err := finalLabels(ctx, logger, runDir, source, result)
	if err != nil {
		return err
	}

	ns := summary.Nights(result.Table, series.Step, labels, *minWear)
	overall := summary.Summarize(ns, *minWear)

	if err := writeOutputs(runDir, series, labels, env, result, ns, overall); err != nil {
		return err
	}

	if *dbPath != "" {
		if err := saveRun(logger, source, result, ns); err != nil {
			return err
		}
	}

	fmt.Print(hypnogram.Render(result.Series, result.Table))
	fmt.Printf("%d sleep windows over %d nights, %d gaps bridged\n",
		len(result.Table.Windows), overall.Nights, len(result.Filled))
	return nil
}

// finalLabels returns the stitched per-epoch labels, reusing the cached array
// from a previous run unless -force-run is set. Without refined predictions
// the coarse labels stand.
func finalLabels(ctx context.Context, logger *slog.Logger, runDir, source string, result *sleepwin.Result) ([]epoch.RawLabel, error) {
	if *refinedPath == "" {
		return result.Coarse, nil
	}

	cache, err := artifact.New(filepath.Join(runDir, "cache"), *forceRun, logger)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("stitched|%s|%s|%s|%s", source, *refinedPath, *minBlock, *gapThreshold)
	data, err := cache.LoadOrCompute(ctx, key, func(context.Context) ([]byte, error) {
		refined, err := ingest.ReadRefined(*refinedPath)
		if err != nil {
			return nil, err
		}
		labels, err := stitch.Apply(result.Coarse, result.Table.Windows, refined)
		if err != nil {
			return nil, err
		}
		return encodeLabels(labels), nil
	})
	if err != nil {
		return nil, err
	}

	labels := decodeLabels(data)
	if len(labels) != len(result.Coarse) {
		// A stale artifact from an older input; recompute once.
		logger.Warn("cached stitched labels are stale, recomputing",
			"cached", len(labels), "epochs", len(result.Coarse))
		cache.Invalidate(key)
		return finalLabels(ctx, logger, runDir, source, result)
	}
	return labels, nil
}

func writeOutputs(runDir string, series *epoch.Series, labels []epoch.RawLabel, env *ingest.Environment,
	result *sleepwin.Result, ns []summary.Night, overall summary.Overall,
) error {
	if err := report.WritePredictions(filepath.Join(runDir, "predictions.csv"),
		series, labels, envTemp(env), envLight(env)); err != nil {
		return err
	}
	if err := report.WriteSleepBlocks(filepath.Join(runDir, "sleep_block.csv"), result.Table); err != nil {
		return err
	}
	if err := report.WriteDaySummary(filepath.Join(runDir, "day_summary.csv"), ns); err != nil {
		return err
	}
	if err := report.WriteSummaryJSON(filepath.Join(runDir, "summary.json"), overall); err != nil {
		return err
	}
	if *chart {
		if err := report.RenderNightChart(filepath.Join(runDir, "nights.html"), "Sleep per night", ns); err != nil {
			return err
		}
	}
	return nil
}

func saveRun(logger *slog.Logger, source string, result *sleepwin.Result, ns []summary.Night) error {
	db, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.SaveRun(store.RunParams{
		Source:        source,
		EpochLength:   time.Duration(*epochSeconds) * time.Second,
		MinSleepBlock: *minBlock,
		GapThreshold:  *gapThreshold,
		AnchorHour:    *nightAnchor,
		Epochs:        result.Series.Len(),
		GapsFilled:    len(result.Filled),
	}, result.Table, ns)
	if err != nil {
		return err
	}
	logger.Info("run stored", "db", *dbPath, "run_id", runID)
	return nil
}

func encodeLabels(labels []epoch.RawLabel) []byte {
	out := make([]byte, len(labels))
	for i, l := range labels {
		out[i] = byte(l)
	}
	return out
}

func decodeLabels(data []byte) []epoch.RawLabel {
	out := make([]epoch.RawLabel, len(data))
	for i, b := range data {
		out[i] = epoch.RawLabel(int8(b))
	}
	return out
}

func envTemp(env *ingest.Environment) []float64 {
	if env == nil {
		return nil
	}
	return env.Temperature
}

func envLight(env *ingest.Environment) []float64 {
	if env == nil {
		return nil
	}
	return env.Light
}
