// Package chart draws a glucose trace with braille dots.
package chart

import (
	"image/color"
	"strings"

	drawille "github.com/exrook/drawille-go"

	"charm.land/lipgloss/v2"

	"github.com/garrettladley/minimon/internal/tui/theme"
)

// braille cells are 2 dots wide and 4 dots tall
const (
	dotsPerCellX = 2
	dotsPerCellY = 4
)

type Chart struct {
	Values []float64
	Width  int // cells
	Height int // cells
	Min    float64
	Max    float64
	// Low and High draw dotted target lines when High > Low.
	Low       float64
	High      float64
	LineColor color.Color
	BandColor color.Color
}

type Option func(*Chart)

func WithScale(lo, hi float64) Option {
	return func(c *Chart) {
		c.Min = lo
		c.Max = hi
	}
}

func WithBand(lo, hi float64) Option {
	return func(c *Chart) {
		c.Low = lo
		c.High = hi
	}
}

func WithLineColor(col color.Color) Option {
	return func(c *Chart) { c.LineColor = col }
}

func New(values []float64, width, height int, opts ...Option) Chart {
	c := Chart{
		Values:    values,
		Width:     max(width, 1),
		Height:    max(height, 1),
		Min:       40,
		Max:       400,
		LineColor: theme.ColorInRange,
		BandColor: theme.ColorBgLight,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Chart) Render() string {
	band := lipgloss.NewStyle().Foreground(c.BandColor).Render(c.plotBand())
	line := c.plotLine()
	lineStyle := lipgloss.NewStyle().Foreground(c.LineColor)

	bandLines := strings.Split(band, "\n")
	traceLines := strings.Split(line, "\n")
	out := make([]string, len(traceLines))
	for i, l := range traceLines {
		if hasDots(l) {
			out[i] = lineStyle.Render(l)
			continue
		}
		out[i] = bandLines[i]
	}
	return strings.Join(out, "\n")
}

// plotLine returns the uncolored trace, Height lines of Width runes.
func (c Chart) plotLine() string {
	canvas := drawille.NewCanvas()
	dotsW, dotsH := c.Width*dotsPerCellX, c.Height*dotsPerCellY

	n := len(c.Values)
	prevX, prevY := -1, -1
	for i, v := range c.Values {
		x := dotsW / 2
		if n > 1 {
			x = i * (dotsW - 1) / (n - 1)
		}
		y := c.scaleY(v, dotsH)
		if prevX < 0 {
			canvas.Set(x, y)
		} else {
			drawLine(&canvas, prevX, prevY, x, y)
		}
		prevX, prevY = x, y
	}

	return canvasString(&canvas, dotsW, dotsH)
}

func (c Chart) plotBand() string {
	canvas := drawille.NewCanvas()
	dotsW, dotsH := c.Width*dotsPerCellX, c.Height*dotsPerCellY

	if c.High > c.Low {
		for _, v := range []float64{c.Low, c.High} {
			y := c.scaleY(v, dotsH)
			for x := 0; x < dotsW; x += 4 {
				canvas.Set(x, y)
			}
		}
	}

	return canvasString(&canvas, dotsW, dotsH)
}

func (c Chart) scaleY(v float64, dotsH int) int {
	span := c.Max - c.Min
	if span <= 0 {
		return dotsH - 1
	}
	frac := (v - c.Min) / span
	frac = min(max(frac, 0), 1)
	return (dotsH - 1) - int(frac*float64(dotsH-1)+0.5)
}

// drawLine sets every dot between two points (Bresenham).
func drawLine(canvas *drawille.Canvas, x0, y0, x1, y1 int) {
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
		canvas.Set(x0, y0)
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

// canvasString extracts the canvas with exact dimensions: drawille trims
// empty rows and columns, the layout needs a fixed box.
func canvasString(canvas *drawille.Canvas, width, height int) string {
	charWidth := width / dotsPerCellX
	charHeight := height / dotsPerCellY

	rows := canvas.Rows(0, 0, width, height)

	lines := make([]string, 0, charHeight)
	for i := range charHeight {
		line := ""
		if i < len(rows) {
			line = rows[i]
		}
		runes := []rune(line)
		switch {
		case len(runes) < charWidth:
			line += strings.Repeat(" ", charWidth-len(runes))
		case len(runes) > charWidth:
			line = string(runes[:charWidth])
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

const emptyBraille rune = '\u2800'

func hasDots(line string) bool {
	for _, r := range line {
		if r > emptyBraille && r <= 0x28FF {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
