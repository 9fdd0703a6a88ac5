// Package forecastplot renders a power forecast as a PNG line chart.
package forecastplot

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default image size
const (
	DefaultWidth  = 12 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

var lineColor = color.RGBA{R: 255, G: 140, B: 0, A: 255}

// Point is one sample of the plotted series
type Point struct {
	Time  time.Time
	Value float64
}

// Options control the chart labels and size
type Options struct {
	Title  string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// Render draws points as an orange line over a grid and returns PNG bytes
func Render(points []Point, opts Options) ([]byte, error) {
	if len(points) == 0 {
		return nil, errors.New("nothing to plot")
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.YLabel == "" {
		opts.YLabel = "Power (W)"
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time (UTC)"
	p.Y.Label.Text = opts.YLabel
	p.X.Tick.Marker = plot.TimeTicks{
		Format: "01-02 15:04",
		Time:   plot.UnixTimeIn(time.UTC),
	}
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Time.Unix())
		xys[i].Y = pt.Value
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("building plot line: %w", err)
	}
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("creating png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("rendering png: %w", err)
	}
	return buf.Bytes(), nil
}
