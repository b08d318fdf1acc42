package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/capture"
	"github.com/banshee-data/blink.report/internal/timeutil"
)

// ReportFileName derives the text report filename for a video analysed at t.
func ReportFileName(videoPath string, t time.Time) string {
	return fmt.Sprintf("blink_report_%s_%s.txt", baseName(videoPath), runStamp(t))
}

// WriteReport writes the full text report: video metadata, detection
// results, EAR statistics, and a fixed-width table of every blink event.
func WriteReport(w io.Writer, videoPath string, meta capture.Metadata, stats blink.Stats, events []blink.Event, analysedAt time.Time) error {
	var err error
	p := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	rule := "============================================================\n"
	p(rule)
	p("Blink Detection Report\n")
	p(rule)
	p("\n")
	p("Video file: %s\n", videoPath)
	p("Analysed at: %s\n", analysedAt.Format("2006-01-02 15:04:05"))
	p("\n")

	p("--- Video Information ---\n")
	p("Resolution: %dx%d\n", meta.Width, meta.Height)
	p("FPS: %.2f\n", meta.FPS)
	p("Total frames: %d\n", meta.FrameCount)
	p("Duration: %s\n", timeutil.FormatMilliseconds(meta.DurationSeconds()*1000))
	p("\n")

	p("--- Detection Results ---\n")
	p("Total blinks: %d\n", stats.TotalBlinks)
	if stats.TotalBlinks > 0 {
		p("Blink rate: %.2f blinks/min\n", stats.BlinkRatePerMin)
	}
	p("\n")

	if stats.SampledFrames > 0 {
		p("--- EAR Statistics ---\n")
		p("Mean EAR: %.4f\n", stats.MeanEAR)
		p("Min EAR: %.4f\n", stats.MinEAR)
		p("Max EAR: %.4f\n", stats.MaxEAR)
		p("Std dev: %.4f\n", stats.StdDevEAR)
		p("\n")
	}

	p("--- Blink Log ---\n")
	p("%-5s %-15s %-10s %-12s %-12s %-12s\n",
		"No.", "Timestamp", "Frame", "Left EAR", "Right EAR", "Avg EAR")
	p("--------------------------------------------------------------------------------\n")
	for _, e := range events {
		p("%-5d %-15s %-10d %-12.4f %-12.4f %-12.4f\n",
			e.BlinkNumber,
			timeutil.FormatMilliseconds(e.EndTimestampMs),
			e.StartFrame,
			e.AvgLeftEAR,
			e.AvgRightEAR,
			e.AvgEAR)
	}

	return err
}

// WriteReportFile writes the text report to path.
func WriteReportFile(path, videoPath string, meta capture.Metadata, stats blink.Stats, events []blink.Event, analysedAt time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteReport(f, videoPath, meta, stats, events, analysedAt); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
