package chart

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// brailleDot maps a pixel position within one cell to its bit in the
// braille pattern block (U+2800). A cell is 2 pixels wide, 4 tall.
var brailleDot = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// canvas is a braille pixel grid: cols×rows cells, 2·cols × 4·rows
// pixels, origin at the top left. Each cell remembers the last series
// drawn into it so overlapping lines take the newest color.
type canvas struct {
	cols, rows int
	dots       []uint8
	series     []int
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{
		cols:   cols,
		rows:   rows,
		dots:   make([]uint8, cols*rows),
		series: make([]int, cols*rows),
	}
	for i := range c.series {
		c.series[i] = -1
	}
	return c
}

func (c *canvas) pixelWidth() int  { return c.cols * 2 }
func (c *canvas) pixelHeight() int { return c.rows * 4 }

// set turns on one pixel. Out-of-range coordinates are ignored.
func (c *canvas) set(x, y, series int) {
	if x < 0 || y < 0 || x >= c.pixelWidth() || y >= c.pixelHeight() {
		return
	}
	cell := (y/4)*c.cols + x/2
	c.dots[cell] |= brailleDot[y%4][x%2]
	c.series[cell] = series
}

// line draws a pixel segment between two points (Bresenham walk).
func (c *canvas) line(x0, y0, x1, y1, series int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, series)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// render returns one string per cell row, empty cells as spaces, set
// cells as braille runes in the style of their owning series.
func (c *canvas) render(styles []lipgloss.Style) []string {
	lines := make([]string, c.rows)
	for row := 0; row < c.rows; row++ {
		var b strings.Builder
		for col := 0; col < c.cols; col++ {
			cell := row*c.cols + col
			mask := c.dots[cell]
			if mask == 0 {
				b.WriteByte(' ')
				continue
			}
			r := string(rune(0x2800 + int(mask)))
			if s := c.series[cell]; s >= 0 && s < len(styles) {
				r = styles[s].Render(r)
			}
			b.WriteString(r)
		}
		lines[row] = b.String()
	}
	return lines
}

// plot scales a value series across the full pixel grid between the
// given bounds and draws it as a connected line.
func (c *canvas) plot(values []float64, lo, hi float64, series int) {
	if len(values) == 0 {
		return
	}

	maxX := c.pixelWidth() - 1
	maxY := c.pixelHeight() - 1
	span := hi - lo

	pixelX := func(i int) int {
		if len(values) == 1 {
			return 0
		}
		return i * maxX / (len(values) - 1)
	}
	pixelY := func(v float64) int {
		if span <= 0 {
			return maxY
		}
		return maxY - int((v-lo)/span*float64(maxY)+0.5)
	}

	prevX, prevY := pixelX(0), pixelY(values[0])
	c.set(prevX, prevY, series)
	for i := 1; i < len(values); i++ {
		x, y := pixelX(i), pixelY(values[i])
		c.line(prevX, prevY, x, y, series)
		prevX, prevY = x, y
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
