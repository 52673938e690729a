// Package render draws isolines onto an equirectangular PNG.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"go.ngs.io/climatology-api/internal/isobar"
)

// Style sets the drawing colours. Lines are coloured from Low to High by
// level within [MinLevel, MaxLevel].
type Style struct {
	Background color.Color
	Low        color.Color
	High       color.Color
	LineWidth  float64
	MinLevel   float64
	MaxLevel   float64
	Labels     bool
}

// DefaultStyle draws blue-to-red lines on a transparent background.
func DefaultStyle(minLevel, maxLevel float64) Style {
	return Style{
		Background: color.Transparent,
		Low:        color.RGBA{R: 0x1f, G: 0x4e, B: 0xd8, A: 0xff},
		High:       color.RGBA{R: 0xd8, G: 0x2a, B: 0x1f, A: 0xff},
		LineWidth:  2,
		MinLevel:   minLevel,
		MaxLevel:   maxLevel,
		Labels:     true,
	}
}

// projection maps the viewport's unwrapped extent onto the image.
type projection struct {
	e    isobar.Extent
	w, h float64
}

func (p projection) xy(pt isobar.Point) (float64, float64) {
	x := (pt.Lon - p.e.MinLon) * p.w / (p.e.MaxLon - p.e.MinLon)
	y := p.h - (pt.Lat-p.e.MinLat)*p.h/(p.e.MaxLat-p.e.MinLat)
	return x, y
}

// Image draws the isolines for vp.
func Image(lines []isobar.Isobar, vp isobar.Viewport, s Style) (image.Image, error) {
	if vp.WidthPx <= 0 || vp.HeightPx <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", vp.WidthPx, vp.HeightPx)
	}
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	p := projection{e: vp.Unwrapped(), w: float64(vp.WidthPx), h: float64(vp.HeightPx)}

	dc := gg.NewContext(vp.WidthPx, vp.HeightPx)
	if s.Background != nil {
		dc.SetColor(s.Background)
		dc.Clear()
	}
	dc.SetLineWidth(s.LineWidth)

	for _, line := range lines {
		if len(line.Points) < 2 {
			continue
		}
		dc.SetColor(s.colorOf(line.Level))
		x, y := p.xy(line.Points[0])
		dc.MoveTo(x, y)
		for _, pt := range line.Points[1:] {
			x, y = p.xy(pt)
			dc.LineTo(x, y)
		}
		dc.Stroke()

		if s.Labels {
			mid := line.Points[len(line.Points)/2]
			lx, ly := p.xy(mid)
			dc.DrawStringAnchored(formatLevel(line.Level), lx, ly, 0.5, 0.5)
		}
	}
	return dc.Image(), nil
}

// PNG draws the isolines and encodes them to w.
func PNG(w io.Writer, lines []isobar.Isobar, vp isobar.Viewport, s Style) error {
	img, err := Image(lines, vp, s)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}

func (s Style) colorOf(level float64) color.Color {
	t := 0.5
	if s.MaxLevel > s.MinLevel {
		t = (level - s.MinLevel) / (s.MaxLevel - s.MinLevel)
	}
	t = math.Max(0, math.Min(1, t))
	lr, lg, lb, la := s.Low.RGBA()
	hr, hg, hb, ha := s.High.RGBA()
	mix := func(a, b uint32) uint8 {
		return uint8((float64(a)*(1-t) + float64(b)*t) / 0x101)
	}
	return color.RGBA{R: mix(lr, hr), G: mix(lg, hg), B: mix(lb, hb), A: mix(la, ha)}
}

func formatLevel(l float64) string {
	if l == math.Trunc(l) {
		return fmt.Sprintf("%.0f", l)
	}
	return fmt.Sprintf("%g", l)
}

// LevelRange returns the smallest and largest level of lines.
func LevelRange(lines []isobar.Isobar) (lo, hi float64) {
	if len(lines) == 0 {
		return 0, 0
	}
	lo, hi = lines[0].Level, lines[0].Level
	for _, l := range lines[1:] {
		lo = math.Min(lo, l.Level)
		hi = math.Max(hi, l.Level)
	}
	return lo, hi
}
