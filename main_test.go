package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/db"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags([]string{"interview.mp4"})
	require.NoError(t, err)

	assert.Equal(t, "interview.mp4", cfg.VideoPath)
	assert.Equal(t, "interview.mp4.landmarks.jsonl", cfg.LandmarksPath)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Empty(t, cfg.DBPath)
	assert.InDelta(t, blink.DefaultEARThreshold, cfg.Threshold, 1e-12)
	assert.Equal(t, blink.DefaultMinRun, cfg.MinRun)
	assert.True(t, cfg.ExportCSV)
	assert.True(t, cfg.ExportReport)
	assert.False(t, cfg.ExportPlot)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.thresholdSet)
	assert.False(t, cfg.minRunSet)
}

func TestParseFlagsOverrides(t *testing.T) {
	cfg, err := parseFlags([]string{
		"-threshold", "0.18",
		"-min-run", "3",
		"-landmarks", "other.jsonl",
		"-output", "out",
		"-db", "blink.db",
		"-plot",
		"-q",
		"clip.avi",
	})
	require.NoError(t, err)

	assert.Equal(t, "clip.avi", cfg.VideoPath)
	assert.Equal(t, "other.jsonl", cfg.LandmarksPath)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "blink.db", cfg.DBPath)
	assert.InDelta(t, 0.18, cfg.Threshold, 1e-12)
	assert.Equal(t, 3, cfg.MinRun)
	assert.True(t, cfg.ExportPlot)
	assert.True(t, cfg.Quiet)
	assert.True(t, cfg.thresholdSet)
	assert.True(t, cfg.minRunSet)
}

func TestParseFlagsRequiresVideoArg(t *testing.T) {
	_, err := parseFlags([]string{})
	assert.Error(t, err)

	_, err = parseFlags([]string{"a.mp4", "b.mp4"})
	assert.Error(t, err)
}

func TestParseFlagsVersionNeedsNoVideoArg(t *testing.T) {
	cfg, err := parseFlags([]string{"-version"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
	assert.Empty(t, cfg.VideoPath)
}

func TestParseFlagsHelp(t *testing.T) {
	_, err := parseFlags([]string{"-h"})
	assert.Equal(t, flag.ErrHelp, err)
}

func TestDetectorConfigDefaults(t *testing.T) {
	cfg, err := parseFlags([]string{"a.mp4"})
	require.NoError(t, err)

	det, err := detectorConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, blink.DefaultConfig(), det)
}

func TestDetectorConfigFlagOverridesTuningFile(t *testing.T) {
	tuningPath := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(tuningPath,
		[]byte(`{"ear_threshold": 0.3, "min_run": 5}`), 0o644))

	// Only -threshold is set on the command line, so min_run should come
	// from the file and the threshold from the flag.
	cfg, err := parseFlags([]string{"-config", tuningPath, "-threshold", "0.15", "a.mp4"})
	require.NoError(t, err)

	det, err := detectorConfig(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, det.EARThreshold, 1e-12)
	assert.Equal(t, 5, det.MinRun)
}

func TestDetectorConfigRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"-threshold", "0", "a.mp4"},
		{"-threshold", "1", "a.mp4"},
		{"-threshold", "-0.5", "a.mp4"},
		{"-min-run", "0", "a.mp4"},
	} {
		cfg, err := parseFlags(args)
		require.NoError(t, err)
		_, err = detectorConfig(cfg)
		assert.Error(t, err, "args %v", args)
	}
}

func TestDetectorConfigBadTuningFile(t *testing.T) {
	cfg, err := parseFlags([]string{"-config", filepath.Join(t.TempDir(), "absent.json"), "a.mp4"})
	require.NoError(t, err)

	_, err = detectorConfig(cfg)
	assert.Error(t, err)
}

// writeTestCapture writes a stub video file plus a landmark capture beside it
// containing one two-frame blink, and returns the video path.
func writeTestCapture(t *testing.T, dir string) string {
	t.Helper()

	videoPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("stub"), 0o644))

	eyeLine := func(frame int, vertical float64) string {
		var sb strings.Builder
		fmt.Fprintf(&sb, `{"frame":%d,"timestamp_ms":%.1f,"landmarks":{`, frame, float64(frame-1)*1000.0/30.0)
		first := true
		for _, indices := range [][blink.EyePointCount]int{blink.LeftEyeIndices, blink.RightEyeIndices} {
			xs := []float64{0.1, 0.2, 0.3, 0.5, 0.3, 0.2}
			ys := []float64{0.5, 0.5 + vertical/2, 0.5 + vertical/2, 0.5, 0.5 - vertical/2, 0.5 - vertical/2}
			for role, idx := range indices {
				if !first {
					sb.WriteString(",")
				}
				first = false
				fmt.Fprintf(&sb, `"%d":[%g,%g]`, idx, xs[role], ys[role])
			}
		}
		sb.WriteString("}}")
		return sb.String()
	}

	// EAR per frame is vertical/0.4: 0.12 is open (0.3), 0.04 is closed
	// (0.1).
	lines := []string{
		`{"video":"clip.mp4","width":1280,"height":720,"fps":30,"frame_count":6}`,
		eyeLine(1, 0.12),
		eyeLine(2, 0.12),
		eyeLine(3, 0.04),
		eyeLine(4, 0.04),
		eyeLine(5, 0.12),
		eyeLine(6, 0.12),
	}
	require.NoError(t, os.WriteFile(videoPath+".landmarks.jsonl",
		[]byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return videoPath
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	videoPath := writeTestCapture(t, dir)
	outDir := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "blink.db")

	cfg, err := parseFlags([]string{
		"-output", outDir,
		"-db", dbPath,
		"-plot",
		"-q",
		videoPath,
	})
	require.NoError(t, err)
	require.NoError(t, run(cfg))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)

	var haveCSV, haveReport, havePlot bool
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "blink_log_clip_") && strings.HasSuffix(e.Name(), ".csv"):
			haveCSV = true
		case strings.HasPrefix(e.Name(), "blink_report_clip_") && strings.HasSuffix(e.Name(), ".txt"):
			haveReport = true
		case strings.HasPrefix(e.Name(), "blink_plot_clip_") && strings.HasSuffix(e.Name(), ".png"):
			havePlot = true
		}
	}
	assert.True(t, haveCSV, "CSV log missing from %v", entries)
	assert.True(t, haveReport, "text report missing from %v", entries)
	assert.True(t, havePlot, "EAR plot missing from %v", entries)

	database, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	defer database.Close()

	runs, err := database.ListRuns(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].TotalBlinks)
	assert.Equal(t, 6, runs[0].TotalFrames)

	events, err := database.RunEvents(t.Context(), runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].StartFrame)
	assert.Equal(t, 2, events[0].DurationFrames)
}

func TestRunMissingVideo(t *testing.T) {
	cfg, err := parseFlags([]string{filepath.Join(t.TempDir(), "absent.mp4")})
	require.NoError(t, err)

	err = run(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video file not found")
}

func TestRunMissingCapture(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("stub"), 0o644))

	cfg, err := parseFlags([]string{videoPath})
	require.NoError(t, err)

	err = run(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "landmark capture not found")
}
