package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// dash describes a repeating on/off pattern along the x axis, in dots.
type dash struct {
	name   string
	period int
	on     int
}

func (d dash) draws(x int) bool {
	if d.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%d.period < d.on
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	fallbackWidth     = 80
	axisTop           = "max"
	axisMid           = "mid"
	axisBottom        = "min"
	axisRule          = " │ "
	scaleNote         = "Scaled per series; see min/max below."
)

var dashes = []dash{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var palette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
}

// PlotSeries renders a multi-line braille plot for the provided series.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return plotSeries(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders a braille plot, coloring each series when forced
// or when w is a terminal.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	return plotSeries(w, title, series, width, height, forceColor)
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(minPlotWidth, totalWidth-axisWidth())
}

func axisWidth() int {
	return runewidth.StringWidth(axisTop) + runewidth.StringWidth(axisRule)
}

func plotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	var kept []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	layers := make([]*canvas, len(kept))
	bounds := make([][2]float64, len(kept))
	for i, s := range kept {
		values := resample(s.Values, width)
		kept[i].Values = values
		lo, hi := seriesBounds(values)
		if hi-lo < 1e-9 {
			lo--
			hi++
		}
		bounds[i] = [2]float64{lo, hi}
		layers[i] = newCanvas(width, height)
		layers[i].trace(values, lo, hi, dashes[i%len(dashes)])
	}

	useColor := shouldUseColor(w, forceColor)
	lines := make([]string, 0, height+len(kept)+4)
	if title != "" {
		lines = append(lines, title)
	}
	lines = append(lines, scaleNote)
	for i, s := range kept {
		lines = append(lines, fmt.Sprintf("%s: min=%.2f max=%.2f", s.Name, bounds[i][0], bounds[i][1]))
	}
	labels := axisLabels(height)
	labelWidth := runewidth.StringWidth(axisTop)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(labels[y], labelWidth))
		row.WriteString(axisRule)
		for x := 0; x < width; x++ {
			mask, owner := overlay(layers, x, y)
			cell := string(braille(mask))
			if useColor && owner >= 0 {
				cell = palette[owner%len(palette)].Render(cell)
			}
			row.WriteString(cell)
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, legend(kept, useColor), "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// canvas is a grid of braille cells, each 2 dots wide and 4 dots tall.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{cells: cells}
}

func (c *canvas) dotRows() int {
	return len(c.cells) * 4
}

// trace draws the values as a connected line, one value per cell column.
func (c *canvas) trace(values []float64, lo, hi float64, d dash) {
	rows := c.dotRows()
	prevX, prevY := -1, -1
	for i, v := range values {
		x := i * 2
		y := clamp(int(math.Round((1-(v-lo)/(hi-lo))*float64(rows-1))), 0, rows-1)
		if prevX < 0 {
			if d.draws(x) {
				c.set(x, y)
			}
		} else {
			line(prevX, prevY, x, y, func(px, py int) {
				if d.draws(px) {
					c.set(px, py)
				}
			})
		}
		prevX, prevY = x, y
	}
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	cy, cx := y/4, x/2
	if cy >= len(c.cells) || cx >= len(c.cells[cy]) {
		return
	}
	c.cells[cy][cx] |= dotBit(x%2, y%4)
}

// overlay merges every layer's cell; the first layer with dots owns the color.
func overlay(layers []*canvas, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, l := range layers {
		bits := l.cells[y][x]
		if bits == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= bits
	}
	return mask, owner
}

// dotBit maps a dot within a cell to its braille bit.
func dotBit(col, row int) uint8 {
	left := [4]uint8{0x01, 0x02, 0x04, 0x40}
	right := [4]uint8{0x08, 0x10, 0x20, 0x80}
	if col == 0 {
		return left[row]
	}
	return right[row]
}

func braille(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

// line walks the dots between two points with Bresenham's algorithm.
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, sx := abs(x1-x0), sign(x1-x0)
	dy, sy := -abs(y1-y0), sign(y1-y0)
	err := dx + dy
	for {
		plot(x0, y0)
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

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	if height == 0 {
		return labels
	}
	labels[0] = axisTop
	if height > 2 {
		labels[height/2] = axisMid
	}
	if height > 1 {
		labels[height-1] = axisBottom
	}
	return labels
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", braille(0x01), s.Name, dashes[i%len(dashes)].name)
		if useColor {
			label = palette[i%len(palette)].Render(label)
		}
		parts[i] = label
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	n := len(values)
	if n == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func seriesBounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
