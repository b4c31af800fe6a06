package inbox

import "math"

// Grid geometry for the thread board. Cells are square; the board area is
// roughly as tall as it is wide, so both dimensions are held to the minimum.
const (
	gridGap     = 3
	minCellSize = 8

	// DefaultGridWidth matches the sidebar the board renders into.
	DefaultGridWidth = 196
)

// GridColumns picks the column count whose rows-by-columns shape is closest
// to square for count cells in a container width pixels wide. Fewer columns
// win ties. Zero cells, or a count no layout can fit, fall back to a single
// column.
func GridColumns(count, width int) int {
	if count == 0 {
		return 1
	}

	bestCols := 0
	bestRatio := math.Inf(1)
	for cols := 1; cols <= count; cols++ {
		rows := (count + cols - 1) / cols
		cellW := float64(width-gridGap*(cols-1)) / float64(cols)
		cellH := float64(width-gridGap*(rows-1)) / float64(rows)
		if cellW < minCellSize || cellH < minCellSize {
			continue
		}
		ratio := math.Max(float64(cols)/float64(rows), float64(rows)/float64(cols))
		if ratio < bestRatio {
			bestRatio = ratio
			bestCols = cols
		}
	}
	if bestCols == 0 {
		return 1
	}
	return bestCols
}
