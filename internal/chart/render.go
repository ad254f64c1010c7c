package chart

import (
	"fmt"
	"math"
	"strings"
)

var volumeBlocks = []rune(" ▁▂▃▄▅▆▇█")

// fit returns at most width values, keeping the most recent ones.
func fit(values []float64, width int) []float64 {
	if width <= 0 {
		return nil
	}
	if len(values) > width {
		return values[len(values)-width:]
	}
	return values
}

// PriceLines draws values as an ASCII line chart of the given height. Each
// value takes one column; consecutive points are joined vertically.
func PriceLines(values []float64, width, height int) []string {
	values = fit(values, width)
	if len(values) == 0 || height <= 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	row := func(v float64) int {
		if hi == lo {
			return height / 2
		}
		return int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", len(values)))
	}

	prev := -1
	for x, v := range values {
		y := row(v)
		if prev >= 0 && prev != y {
			from, to := prev, y
			if from > to {
				from, to = to, from
			}
			for r := from + 1; r < to; r++ {
				grid[r][x] = '│'
			}
		}
		grid[y][x] = '•'
		prev = y
	}

	lines := make([]string, height)
	for i, r := range grid {
		lines[i] = string(r)
	}
	return lines
}

// VolumeBars renders one row of block characters scaled to the largest value.
func VolumeBars(values []float64, width int) string {
	values = fit(values, width)
	var peak float64
	for _, v := range values {
		peak = math.Max(peak, v)
	}

	var b strings.Builder
	for _, v := range values {
		if peak <= 0 || v <= 0 {
			b.WriteRune(volumeBlocks[0])
			continue
		}
		idx := int(math.Ceil(v / peak * float64(len(volumeBlocks)-1)))
		b.WriteRune(volumeBlocks[idx])
	}
	return b.String()
}

// axisLabels returns the max and min labels for the price axis.
func axisLabels(values []float64) (string, string) {
	if len(values) == 0 {
		return "", ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return fmt.Sprintf("%10.2f", hi), fmt.Sprintf("%10.2f", lo)
}
