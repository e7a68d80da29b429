// Package mask labels connected regions of boolean window masks and checks
// candidate peak footprints against shape thresholds.
package mask

import (
	"peakskew/internal/models"
)

// offsets4 are the edge-sharing neighbours of a cell.
var offsets4 = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Labels assigns each true cell of a mask the number of its 4-connected
// component; false cells hold 0.
type Labels struct {
	Grid [][]int
	// Sizes[l] is the pixel count of component l; Sizes[0] is unused.
	Sizes []int
}

// Count returns the number of components.
func (l *Labels) Count() int {
	return len(l.Sizes) - 1
}

// At returns the label of a cell, 0 when outside the grid.
func (l *Labels) At(row, col int) int {
	if row < 0 || row >= len(l.Grid) || col < 0 || col >= len(l.Grid[row]) {
		return 0
	}
	return l.Grid[row][col]
}

// Component returns the mask of a single component.
func (l *Labels) Component(label int) models.Mask {
	out := models.NewMask(len(l.Grid), gridCols(l.Grid))
	if label == 0 {
		return out
	}
	for r, row := range l.Grid {
		for c, v := range row {
			out[r][c] = v == label
		}
	}
	return out
}

// Label numbers the 4-connected components of m in raster order of their
// first cell, starting from 1.
func Label(m models.Mask) *Labels {
	rows, cols := m.Rows(), m.Cols()
	l := &Labels{Grid: make([][]int, rows), Sizes: []int{0}}
	for r := range l.Grid {
		l.Grid[r] = make([]int, cols)
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !m[r][c] || l.Grid[r][c] != 0 {
				continue
			}
			label := len(l.Sizes)
			l.Grid[r][c] = label
			queue := [][2]int{{r, c}}
			for qi := 0; qi < len(queue); qi++ {
				u := queue[qi]
				for _, d := range offsets4 {
					vr, vc := u[0]+d[0], u[1]+d[1]
					if vr < 0 || vr >= rows || vc < 0 || vc >= cols || !m[vr][vc] || l.Grid[vr][vc] != 0 {
						continue
					}
					l.Grid[vr][vc] = label
					queue = append(queue, [2]int{vr, vc})
				}
			}
			l.Sizes = append(l.Sizes, len(queue))
		}
	}
	return l
}

// Dilate grows m by one cell in all eight directions, clipped to the window.
func Dilate(m models.Mask) models.Mask {
	rows, cols := m.Rows(), m.Cols()
	out := models.NewMask(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !m[r][c] {
				continue
			}
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					vr, vc := r+dr, c+dc
					if vr >= 0 && vr < rows && vc >= 0 && vc < cols {
						out[vr][vc] = true
					}
				}
			}
		}
	}
	return out
}

// Select returns the label of the component holding (row, col). When that
// cell is not part of any component and nearest is set, the component with
// the closest cell is chosen instead, ties going to the larger component.
// It returns 0 when no component qualifies.
func (l *Labels) Select(row, col int, nearest bool) int {
	if label := l.At(row, col); label != 0 || !nearest {
		return label
	}
	best, bestDist := 0, 0
	dist := make([]int, len(l.Sizes))
	for i := range dist {
		dist[i] = -1
	}
	for r, cells := range l.Grid {
		for c, v := range cells {
			if v == 0 {
				continue
			}
			d := (r-row)*(r-row) + (c-col)*(c-col)
			if dist[v] < 0 || d < dist[v] {
				dist[v] = d
			}
		}
	}
	for label := 1; label < len(dist); label++ {
		d := dist[label]
		if d < 0 {
			continue
		}
		if best == 0 || d < bestDist || (d == bestDist && l.Sizes[label] > l.Sizes[best]) {
			best, bestDist = label, d
		}
	}
	return best
}

func gridCols(g [][]int) int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}
