package models

// DetectorWindow is a local 2D neighbourhood of detector pixels around a peak.
type DetectorWindow struct {
	// IDs holds detector IDs indexed [row][col]; 0 marks an absent pixel.
	IDs [][]int

	// Edge is true for pixels that lie close to a detector boundary.
	Edge [][]bool

	// PeakRow and PeakCol index the cell holding the peak's own detector.
	PeakRow int
	PeakCol int
}

// Rows returns the number of window rows.
func (w *DetectorWindow) Rows() int {
	return len(w.IDs)
}

// Cols returns the number of window columns.
func (w *DetectorWindow) Cols() int {
	if len(w.IDs) == 0 {
		return 0
	}
	return len(w.IDs[0])
}

// PeakID returns the detector ID at the peak-centre cell.
func (w *DetectorWindow) PeakID() int {
	return w.IDs[w.PeakRow][w.PeakCol]
}

// Present returns a mask of the cells that hold a real detector.
func (w *DetectorWindow) Present() Mask {
	m := NewMask(w.Rows(), w.Cols())
	for r, row := range w.IDs {
		for c, id := range row {
			m[r][c] = id != 0
		}
	}
	return m
}

// EdgeMask returns the edge flags as a Mask.
func (w *DetectorWindow) EdgeMask() Mask {
	return Mask(w.Edge)
}

// SignalCube holds the counts and squared errors of every window pixel over
// all time-of-flight bins.
type SignalCube struct {
	// Signal is indexed [row][col][bin].
	Signal [][][]float64

	// ErrorSq is the squared error, indexed like Signal.
	ErrorSq [][][]float64

	// X holds the bin centres shared by every pixel.
	X []float64
}

// NumBins returns the number of TOF bins.
func (c *SignalCube) NumBins() int {
	return len(c.X)
}

// SumOver sums the signal of every pixel over the bins of w.
func (c *SignalCube) SumOver(w TOFWindow) [][]float64 {
	out := make([][]float64, len(c.Signal))
	for r, row := range c.Signal {
		out[r] = make([]float64, len(row))
		for col, y := range row {
			s := 0.0
			for b := w.Lo; b < w.Hi; b++ {
				s += y[b]
			}
			out[r][col] = s
		}
	}
	return out
}

// Mask is a boolean image over a detector window, indexed [row][col].
type Mask [][]bool

// NewMask allocates an all-false mask.
func NewMask(rows, cols int) Mask {
	m := make(Mask, rows)
	for r := range m {
		m[r] = make([]bool, cols)
	}
	return m
}

// Rows returns the number of rows.
func (m Mask) Rows() int {
	return len(m)
}

// Cols returns the number of columns.
func (m Mask) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Count returns the number of true cells.
func (m Mask) Count() int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy.
func (m Mask) Clone() Mask {
	out := make(Mask, len(m))
	for r, row := range m {
		out[r] = append([]bool(nil), row...)
	}
	return out
}

// Or returns the cell-wise union of m and o.
func (m Mask) Or(o Mask) Mask {
	out := m.Clone()
	for r, row := range o {
		for c, v := range row {
			out[r][c] = out[r][c] || v
		}
	}
	return out
}

// AndNot returns the cells of m that are not set in o.
func (m Mask) AndNot(o Mask) Mask {
	out := m.Clone()
	for r, row := range o {
		for c, v := range row {
			out[r][c] = out[r][c] && !v
		}
	}
	return out
}

// Intersects reports whether m and o share any true cell.
func (m Mask) Intersects(o Mask) bool {
	for r, row := range m {
		for c, v := range row {
			if v && o[r][c] {
				return true
			}
		}
	}
	return false
}

// TOFWindow is a half-open range of TOF bin indices [Lo, Hi).
type TOFWindow struct {
	Lo int
	Hi int
}

// Len returns the number of bins in the window.
func (w TOFWindow) Len() int {
	return w.Hi - w.Lo
}

// Contains reports whether o lies entirely inside w.
func (w TOFWindow) Contains(o TOFWindow) bool {
	return w.Lo <= o.Lo && w.Hi >= o.Hi
}

// Union returns the smallest window covering both w and o.
func (w TOFWindow) Union(o TOFWindow) TOFWindow {
	return TOFWindow{Lo: min(w.Lo, o.Lo), Hi: max(w.Hi, o.Hi)}
}
