// Package render draws decoded leads as PNG images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

// DefaultLeads are plotted when no lead list is given.
var DefaultLeads = []waveform.Lead{waveform.AVF, waveform.V2, waveform.V5}

// TraceOptions control the strip layout.
type TraceOptions struct {
	Width       int // pixels; 0 selects 1600
	StripHeight int // pixels per lead; 0 selects 200
	GridEvery   int // pixels between vertical grid lines; 0 selects 50
}

var (
	background = color.RGBA{255, 255, 255, 255}
	gridColor  = color.RGBA{255, 205, 205, 255}
	axisColor  = color.RGBA{200, 200, 200, 255}
	traceColor = color.RGBA{0, 0, 0, 255}
)

// ErrNoLeads is returned when every requested lead is empty.
var ErrNoLeads = errors.New("no samples in the requested leads")

func (o TraceOptions) withDefaults() TraceOptions {
	if o.Width <= 0 {
		o.Width = 1600
	}
	if o.StripHeight <= 0 {
		o.StripHeight = 200
	}
	if o.GridEvery <= 0 {
		o.GridEvery = 50
	}
	return o
}

// Traces draws one horizontal strip per lead, top to bottom in the given
// order, and writes the image to w as PNG. Each strip is scaled to its own
// amplitude range.
func Traces(w io.Writer, ls waveform.LeadSet, leads []waveform.Lead, opts TraceOptions) error {
	if len(leads) == 0 {
		leads = DefaultLeads
	}
	opts = opts.withDefaults()

	empty := true
	for _, lead := range leads {
		if !lead.Valid() {
			return fmt.Errorf("cannot plot %s", lead)
		}
		if ls.Len(lead) > 0 {
			empty = false
		}
	}
	if empty {
		return ErrNoLeads
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.StripHeight*len(leads)))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i, lead := range leads {
		strip := image.Rect(0, i*opts.StripHeight, opts.Width, (i+1)*opts.StripHeight)
		drawGrid(img, strip, opts.GridEvery)
		drawSeries(img, strip, ls.Get(lead))
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func drawGrid(img *image.RGBA, r image.Rectangle, every int) {
	for x := r.Min.X; x < r.Max.X; x += every {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(x, y, gridColor)
		}
	}
	mid := (r.Min.Y + r.Max.Y) / 2
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, mid, axisColor)
		img.SetRGBA(x, r.Max.Y-1, axisColor)
	}
}

func drawSeries(img *image.RGBA, r image.Rectangle, s waveform.Series) {
	if len(s) == 0 {
		return
	}

	lo, hi := s[0], s[0]
	for _, v := range s {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	margin := r.Dy() / 10

	toY := func(v float64) int {
		if span == 0 {
			return (r.Min.Y + r.Max.Y) / 2
		}
		frac := (v - lo) / span
		return r.Max.Y - 1 - margin - int(frac*float64(r.Dy()-1-2*margin))
	}
	toX := func(i int) int {
		if len(s) == 1 {
			return r.Min.X
		}
		return r.Min.X + i*(r.Dx()-1)/(len(s)-1)
	}

	px, py := toX(0), toY(s[0])
	img.SetRGBA(px, py, traceColor)
	for i := 1; i < len(s); i++ {
		x, y := toX(i), toY(s[i])
		line(img, px, py, x, y)
		px, py = x, y
	}
}

// line draws a segment with Bresenham's algorithm.
func line(img *image.RGBA, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, traceColor)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
