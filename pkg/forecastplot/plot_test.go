package forecastplot

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func TestRenderProducesPNG(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var pts []Point
	for h := 0; h < 48; h++ {
		pts = append(pts, Point{
			Time:  start.Add(time.Duration(h) * time.Hour),
			Value: math.Max(0, 3000*math.Sin(math.Pi*float64(h%24-5)/15)),
		})
	}

	img, err := Render(pts, Options{Title: "PV Forecast 2024-06-01 → 2024-06-02 | 50.850,4.350 | 4 kWp", Width: 4 * vg.Inch, Height: 2 * vg.Inch})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderEmpty(t *testing.T) {
	_, err := Render(nil, Options{})
	assert.Error(t, err)
}
