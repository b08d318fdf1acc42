package api

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/blink.report/internal/db"
	"github.com/banshee-data/blink.report/internal/timeutil"
)

// indexPage renders a plain HTML listing of stored runs with links to
// their charts.
func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	runs, err := s.db.ListRuns(r.Context(), defaultRunLimit)
	if err != nil {
		log.Printf("failed to list runs: %v", err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html><head><title>Blink Analysis Runs</title>
<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}
td,th{border:1px solid #ccc;padding:4px 10px;text-align:left}</style>
</head><body>
<h1>Blink Analysis Runs</h1>
<table>
<tr><th>Created</th><th>Video</th><th>Blinks</th><th>Rate (blinks/min)</th><th>Mean EAR</th><th>Chart</th></tr>
`)
	for _, run := range runs {
		fmt.Fprintf(&b,
			"<tr><td>%s</td><td>%s</td><td>%d</td><td>%.2f</td><td>%.4f</td>"+
				`<td><a href="/runs/%s/chart">chart</a> <a href="/api/runs/%s">json</a></td></tr>`+"\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			html.EscapeString(run.Video),
			run.TotalBlinks, run.BlinkRatePerMin, run.MeanEAR,
			run.RunID, run.RunID,
		)
	}
	b.WriteString("</table></body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// runChart renders an EAR time series chart (HTML) for one run using
// go-echarts, with the detection threshold drawn as a mark line.
func (s *Server) runChart(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	if len(parts) != 2 || parts[1] != "chart" || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	runID := parts[0]

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, db.ErrRunNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("failed to load run %s: %v", runID, err)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	samples, err := s.db.RunSamples(r.Context(), runID)
	if err != nil {
		log.Printf("failed to load samples for run %s: %v", runID, err)
		http.Error(w, "Failed to load samples", http.StatusInternalServerError)
		return
	}
	if len(samples) == 0 {
		http.Error(w, "No EAR samples recorded for run", http.StatusNotFound)
		return
	}

	labels := make([]string, 0, len(samples))
	avg := make([]opts.LineData, 0, len(samples))
	left := make([]opts.LineData, 0, len(samples))
	right := make([]opts.LineData, 0, len(samples))
	for _, s := range samples {
		labels = append(labels, timeutil.FormatMilliseconds(s.TimestampMs))
		avg = append(avg, opts.LineData{Value: s.AvgEAR})
		left = append(left, opts.LineData{Value: s.LeftEAR})
		right = append(right, opts.LineData{Value: s.RightEAR})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Eye Aspect Ratio", Width: "1400px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Eye Aspect Ratio Over Time",
			Subtitle: fmt.Sprintf("%s blinks=%d threshold=%.2f", run.Video, run.TotalBlinks, run.EARThreshold),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "EAR"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	line.SetXAxis(labels).
		AddSeries("avg EAR", avg,
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "threshold", YAxis: run.EARThreshold})).
		AddSeries("left EAR", left).
		AddSeries("right EAR", right).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		log.Printf("failed to render chart for run %s: %v", runID, err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
