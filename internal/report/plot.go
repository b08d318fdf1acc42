package report

import (
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/blink.report/internal/blink"
)

// PlotFileName derives the EAR timeline plot filename for a video analysed
// at t.
func PlotFileName(videoPath string, t time.Time) string {
	return fmt.Sprintf("blink_plot_%s_%s.png", baseName(videoPath), runStamp(t))
}

// WritePlotFile renders the EAR timeline to a PNG: one line of per-frame
// average EAR over video time, with a horizontal rule at the closed-eye
// threshold. Returns an error when there are no samples to plot.
func WritePlotFile(path string, samples []blink.FrameSample, threshold float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("no EAR samples to plot")
	}

	p := plot.New()
	p.Title.Text = "Eye Aspect Ratio Timeline"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Average EAR"

	pts := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		pts = append(pts, plotter.XY{X: s.TimestampMs / 1000, Y: s.AvgEAR})
	}

	earLine, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	earLine.Width = vg.Points(1)
	earLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(earLine)
	p.Legend.Add("avg EAR", earLine)

	thresholdPts := plotter.XYs{
		{X: pts[0].X, Y: threshold},
		{X: pts[len(pts)-1].X, Y: threshold},
	}
	thresholdLine, err := plotter.NewLine(thresholdPts)
	if err != nil {
		return err
	}
	thresholdLine.Width = vg.Points(1)
	thresholdLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	thresholdLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(thresholdLine)
	p.Legend.Add("threshold", thresholdLine)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
