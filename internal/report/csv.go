// Package report writes the per-run outputs: the blink event CSV log, the
// text report, and the EAR timeline plot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/timeutil"
)

// earPrecision is the number of decimal places for EAR values in both the
// CSV log and the text report.
const earPrecision = 4

func formatEAR(v float64) string {
	return strconv.FormatFloat(v, 'f', earPrecision, 64)
}

// baseName returns the video filename without its extension, used to derive
// output filenames.
func baseName(videoPath string) string {
	return strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
}

// runStamp formats the analysis time used in output filenames.
func runStamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// CSVFileName derives the event log filename for a video analysed at t.
func CSVFileName(videoPath string, t time.Time) string {
	return fmt.Sprintf("blink_log_%s_%s.csv", baseName(videoPath), runStamp(t))
}

// WriteCSV writes the per-event log: one header row and one row per
// confirmed blink, timestamps as HH:MM:SS.mmm and EARs to four decimal
// places.
func WriteCSV(w io.Writer, events []blink.Event) error {
	cw := csv.NewWriter(w)

	header := []string{"blink_number", "timestamp", "frame", "left_ear", "right_ear", "avg_ear"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, e := range events {
		row := []string{
			strconv.Itoa(e.BlinkNumber),
			timeutil.FormatMilliseconds(e.EndTimestampMs),
			strconv.Itoa(e.StartFrame),
			formatEAR(e.AvgLeftEAR),
			formatEAR(e.AvgRightEAR),
			formatEAR(e.AvgEAR),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the event log to path.
func WriteCSVFile(path string, events []blink.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, events); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}
