package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/capture"
	"github.com/banshee-data/blink.report/internal/db"
)

// setupServer returns a test server over a fresh database plus the ID of one
// stored run with an event and EAR samples.
func setupServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	meta := capture.Metadata{Video: "clip.mp4", Width: 1280, Height: 720, FPS: 30, FrameCount: 90}
	det := blink.Config{EARThreshold: 0.2, MinRun: 2}
	stats := blink.Stats{TotalFrames: 90, SampledFrames: 88, TotalBlinks: 1, MeanEAR: 0.28, MinEAR: 0.1, MaxEAR: 0.33, StdDevEAR: 0.04, BlinkRatePerMin: 20}
	run := db.NewRun("/videos/clip.mp4", meta, det, stats)

	events := []blink.Event{
		{BlinkNumber: 1, StartFrame: 40, EndTimestampMs: 1433.3, DurationFrames: 3, AvgLeftEAR: 0.12, AvgRightEAR: 0.13, AvgEAR: 0.125},
	}
	samples := []blink.FrameSample{
		{FrameIndex: 1, TimestampMs: 0, FaceDetected: true, LeftEAR: 0.3, RightEAR: 0.3, AvgEAR: 0.3},
		{FrameIndex: 2, TimestampMs: 33.3, FaceDetected: true, LeftEAR: 0.1, RightEAR: 0.1, AvgEAR: 0.1},
	}
	require.NoError(t, database.SaveRun(context.Background(), run, events, samples))

	ts := httptest.NewServer(NewServer(database).ServeMux())
	t.Cleanup(ts.Close)
	return ts, run.RunID
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestListRunsEndpoint(t *testing.T) {
	ts, runID := setupServer(t)

	var runs []db.AnalysisRun
	resp := getJSON(t, ts.URL+"/api/runs", &runs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, 1, runs[0].TotalBlinks)
}

func TestListRunsBadLimit(t *testing.T) {
	ts, _ := setupServer(t)

	resp := getJSON(t, ts.URL+"/api/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getJSON(t, ts.URL+"/api/runs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestShowRunEndpoint(t *testing.T) {
	ts, runID := setupServer(t)

	var run db.AnalysisRun
	resp := getJSON(t, ts.URL+"/api/runs/"+runID, &run)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, runID, run.RunID)
	assert.InDelta(t, 0.2, run.EARThreshold, 1e-12)
}

func TestShowRunNotFound(t *testing.T) {
	ts, _ := setupServer(t)

	resp := getJSON(t, ts.URL+"/api/runs/no-such-run", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunEventsEndpoint(t *testing.T) {
	ts, runID := setupServer(t)

	var events []blink.Event
	resp := getJSON(t, ts.URL+"/api/runs/"+runID+"/events", &events)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, events, 1)
	assert.Equal(t, 40, events[0].StartFrame)
}

func TestRunSamplesEndpoint(t *testing.T) {
	ts, runID := setupServer(t)

	var samples []blink.FrameSample
	resp := getJSON(t, ts.URL+"/api/runs/"+runID+"/samples", &samples)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, samples, 2)
	assert.Equal(t, 1, samples[0].FrameIndex)
}

func TestRunSubresourceUnknown(t *testing.T) {
	ts, runID := setupServer(t)

	resp := getJSON(t, ts.URL+"/api/runs/"+runID+"/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, runID := setupServer(t)

	resp, err := http.Post(ts.URL+"/api/runs/"+runID, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIndexPage(t *testing.T) {
	ts, runID := setupServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body := readAll(t, resp)
	assert.Contains(t, body, "Blink Analysis Runs")
	assert.Contains(t, body, "/runs/"+runID+"/chart")
	assert.Contains(t, body, "clip.mp4")
}

func TestRunChartEndpoint(t *testing.T) {
	ts, runID := setupServer(t)

	resp, err := http.Get(ts.URL + "/runs/" + runID + "/chart")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body := readAll(t, resp)
	assert.Contains(t, body, "echarts")
	assert.Contains(t, body, "avg EAR")
}

func TestRunChartNotFound(t *testing.T) {
	ts, _ := setupServer(t)

	resp, err := http.Get(ts.URL + "/runs/no-such-run/chart")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
