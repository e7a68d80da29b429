// Package skew separates peak signal from background without a fixed
// threshold, by trimming the largest values until the remainder is no longer
// skewed towards high values.
package skew

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Skewness returns the third standardised moment of x. It is zero for fewer
// than two values and for constant input.
func Skewness(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	lo, hi := x[0], x[0]
	for _, v := range x[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo == hi {
		return 0
	}
	m2 := stat.Moment(2, x, nil)
	if m2 == 0 {
		return 0
	}
	return stat.Moment(3, x, nil) / math.Pow(m2, 1.5)
}

// Separate splits the indices of values into background and peak sets.
// Values are ranked largest first; the largest remaining value is removed
// until the skewness of what is left drops to zero or below. The removed
// values are the peak, the rest the background. Both slices hold indices
// into values in descending order of value; equal values keep their
// original order.
//
// Values far above a symmetric background are always removed. A finite
// background sample is itself skewed to either side about half the time,
// and when it leans high the rule also trims its upper tail, so the peak
// set can hold a few background values as well.
func Separate(values []float64) (background, peak []int) {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	sorted := make([]float64, len(values))
	for i, idx := range order {
		sorted[i] = values[idx]
	}

	k := 0
	for k < len(sorted) && Skewness(sorted[k:]) > 0 {
		k++
	}
	return order[k:], order[:k]
}

// SeparateMasked runs Separate over the cells of img where include is true
// and returns the mask of peak cells. A nil include selects every cell.
func SeparateMasked(img [][]float64, include [][]bool) [][]bool {
	type cell struct{ r, c int }
	var cells []cell
	var values []float64
	out := make([][]bool, len(img))
	for r, row := range img {
		out[r] = make([]bool, len(row))
		for c, v := range row {
			if include != nil && !include[r][c] {
				continue
			}
			cells = append(cells, cell{r, c})
			values = append(values, v)
		}
	}
	_, peak := Separate(values)
	for _, i := range peak {
		out[cells[i].r][cells[i].c] = true
	}
	return out
}
