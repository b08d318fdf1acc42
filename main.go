// Command blink-report analyses a recorded landmark capture for eye blinks
// and writes a per-event CSV log, a text report, and optionally an EAR
// timeline plot and a SQLite record of the run.
//
// The video itself is not decoded here: the external detector utility
// records a .landmarks.jsonl capture next to the video, and this tool
// replays it through the blink pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/capture"
	"github.com/banshee-data/blink.report/internal/config"
	"github.com/banshee-data/blink.report/internal/db"
	"github.com/banshee-data/blink.report/internal/report"
	"github.com/banshee-data/blink.report/internal/timeutil"
	"github.com/banshee-data/blink.report/internal/version"
)

// Config holds the CLI configuration for one analysis run.
type Config struct {
	VideoPath     string
	LandmarksPath string
	OutputDir     string
	DBPath        string
	TuningPath    string
	Threshold     float64
	MinRun        int
	ExportCSV     bool
	ExportReport  bool
	ExportPlot    bool
	Quiet         bool
	ShowVersion   bool

	thresholdSet bool
	minRunSet    bool
}

// Result collects everything produced by one analysis run.
type Result struct {
	VideoPath        string
	Meta             capture.Metadata
	Stats            blink.Stats
	Events           []blink.Event
	Samples          []blink.FrameSample
	Detector         blink.Config
	ProcessingTimeMs int64
}

func parseFlags(args []string) (Config, error) {
	cfg := Config{}

	fs := flag.NewFlagSet("blink-report", flag.ContinueOnError)
	fs.StringVar(&cfg.LandmarksPath, "landmarks", "", "Path to the landmark capture (default <video>.landmarks.jsonl)")
	fs.StringVar(&cfg.OutputDir, "output", ".", "Output directory for results")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path (optional, for persistence)")
	fs.StringVar(&cfg.TuningPath, "config", "", "Detection tuning JSON file (optional)")
	fs.Float64Var(&cfg.Threshold, "threshold", blink.DefaultEARThreshold, "EAR threshold below which an eye counts as closed")
	fs.IntVar(&cfg.MinRun, "min-run", blink.DefaultMinRun, "Minimum consecutive closed frames to confirm a blink")
	fs.BoolVar(&cfg.ExportCSV, "csv", true, "Write the blink event CSV log")
	fs.BoolVar(&cfg.ExportReport, "report", true, "Write the text report")
	fs.BoolVar(&cfg.ExportPlot, "plot", false, "Write an EAR timeline PNG")
	fs.BoolVar(&cfg.Quiet, "q", false, "Suppress progress output")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <video file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Detects eye blinks in a recorded landmark capture and writes a CSV\n")
		fmt.Fprintf(os.Stderr, "event log plus a text report.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s interview.mp4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -threshold 0.18 -plot -db blink.db interview.mp4\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threshold":
			cfg.thresholdSet = true
		case "min-run":
			cfg.minRunSet = true
		}
	})

	if cfg.ShowVersion {
		return cfg, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, errors.New("exactly one video file argument is required")
	}
	cfg.VideoPath = fs.Arg(0)
	if cfg.LandmarksPath == "" {
		cfg.LandmarksPath = cfg.VideoPath + ".landmarks.jsonl"
	}
	return cfg, nil
}

// detectorConfig resolves the detection parameters: tuning file values when
// -config is given, overridden by any explicitly set flags.
func detectorConfig(cfg Config) (blink.Config, error) {
	det := blink.DefaultConfig()
	if cfg.TuningPath != "" {
		tuning, err := config.Load(cfg.TuningPath)
		if err != nil {
			return det, err
		}
		det = tuning.DetectorConfig()
	}
	if cfg.thresholdSet {
		det.EARThreshold = cfg.Threshold
	}
	if cfg.minRunSet {
		det.MinRun = cfg.MinRun
	}
	if det.MinRun < 1 {
		return det, fmt.Errorf("min-run must be at least 1, got %d", det.MinRun)
	}
	if det.EARThreshold <= 0 || det.EARThreshold >= 1 {
		return det, fmt.Errorf("threshold must be in (0, 1), got %f", det.EARThreshold)
	}
	return det, nil
}

// analyse replays the capture through the blink pipeline, frame by frame in
// recorded order.
func analyse(reader *capture.Reader, det blink.Config, quiet bool) *Result {
	meta := reader.Metadata()
	session := blink.NewSession()
	var state blink.State

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(meta.FrameCount,
			progressbar.OptionSetDescription("Analysing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	start := time.Now()
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		sample := frame.Sample()
		session.AddFrame(sample)

		if !sample.FaceDetected {
			continue
		}
		var event *blink.Event
		state, event = det.Step(state, sample)
		if event != nil {
			session.AddEvent(*event)
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	return &Result{
		VideoPath:        reader.Metadata().Video,
		Meta:             meta,
		Stats:            session.Stats(meta.DurationSeconds()),
		Events:           session.Events(),
		Samples:          session.Samples(),
		Detector:         det,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

func printSummary(result *Result) {
	meta := result.Meta
	stats := result.Stats

	fmt.Println("\n========== Blink Analysis Summary ==========")
	fmt.Printf("Video: %s\n", result.VideoPath)
	fmt.Printf("Resolution: %dx%d\n", meta.Width, meta.Height)
	fmt.Printf("FPS: %.2f\n", meta.FPS)
	fmt.Printf("Duration: %s\n", timeutil.FormatMilliseconds(meta.DurationSeconds()*1000))
	fmt.Printf("Processing time: %d ms\n", result.ProcessingTimeMs)
	fmt.Println()
	fmt.Printf("Frames: %d processed, %d with a detected face\n", stats.TotalFrames, stats.SampledFrames)
	fmt.Printf("Blinks: %d\n", stats.TotalBlinks)
	if stats.TotalBlinks > 0 {
		fmt.Printf("Blink rate: %.2f blinks/min\n", stats.BlinkRatePerMin)
	}
	if stats.SampledFrames > 0 {
		fmt.Println("\nEAR statistics:")
		fmt.Printf("  Mean: %.4f\n", stats.MeanEAR)
		fmt.Printf("  Min:  %.4f\n", stats.MinEAR)
		fmt.Printf("  Max:  %.4f\n", stats.MaxEAR)
		fmt.Printf("  Std:  %.4f\n", stats.StdDevEAR)
	}
	if n := len(result.Events); n > 0 {
		fmt.Println("\nFirst blinks:")
		for i, e := range result.Events {
			if i == 5 {
				break
			}
			fmt.Printf("  %d. %s (frame %d) - EAR: %.4f\n",
				e.BlinkNumber, timeutil.FormatMilliseconds(e.EndTimestampMs),
				e.StartFrame, e.AvgEAR)
		}
	}
	fmt.Println("============================================")
}

func exportResults(cfg Config, result *Result) error {
	analysedAt := time.Now()

	if cfg.ExportCSV {
		csvPath := filepath.Join(cfg.OutputDir, report.CSVFileName(cfg.VideoPath, analysedAt))
		if err := report.WriteCSVFile(csvPath, result.Events); err != nil {
			return err
		}
		fmt.Printf("CSV log: %s\n", csvPath)
	}

	if cfg.ExportReport {
		reportPath := filepath.Join(cfg.OutputDir, report.ReportFileName(cfg.VideoPath, analysedAt))
		if err := report.WriteReportFile(reportPath, cfg.VideoPath, result.Meta, result.Stats, result.Events, analysedAt); err != nil {
			return err
		}
		fmt.Printf("Text report: %s\n", reportPath)
	}

	if cfg.ExportPlot {
		if len(result.Samples) == 0 {
			log.Printf("skipping plot: no EAR samples")
		} else {
			plotPath := filepath.Join(cfg.OutputDir, report.PlotFileName(cfg.VideoPath, analysedAt))
			if err := report.WritePlotFile(plotPath, result.Samples, result.Detector.EARThreshold); err != nil {
				return err
			}
			fmt.Printf("EAR plot: %s\n", plotPath)
		}
	}

	return nil
}

func persistRun(cfg Config, result *Result) error {
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	run := db.NewRun(cfg.VideoPath, result.Meta, result.Detector, result.Stats)
	if err := database.SaveRun(context.Background(), run, result.Events, result.Samples); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("Saved run %s to %s\n", run.RunID, cfg.DBPath)
	return nil
}

// run executes one full analysis. All failures come back as errors so main
// alone decides the exit code.
func run(cfg Config) error {
	if _, err := os.Stat(cfg.VideoPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("video file not found: %s", cfg.VideoPath)
		}
		return fmt.Errorf("cannot access video file: %w", err)
	}

	det, err := detectorConfig(cfg)
	if err != nil {
		return err
	}

	reader, err := capture.Open(cfg.LandmarksPath)
	if err != nil {
		if errors.Is(err, capture.ErrInputNotFound) {
			return fmt.Errorf("landmark capture not found: %s (run the detector utility first)", cfg.LandmarksPath)
		}
		return err
	}
	defer reader.Close()

	if cfg.OutputDir != "." {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	result := analyse(reader, det, cfg.Quiet)
	result.VideoPath = cfg.VideoPath

	if !cfg.Quiet {
		printSummary(result)
	}

	if err := exportResults(cfg, result); err != nil {
		return err
	}

	if cfg.DBPath != "" {
		if err := persistRun(cfg, result); err != nil {
			log.Printf("Warning: database persistence failed: %v", err)
		}
	}

	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Printf("blink-report %s\n", version.String())
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
