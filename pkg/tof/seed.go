// Package tof sizes and optimises time-of-flight windows over focused
// spectra.
package tof

import (
	"math"
	"sort"

	"peakskew/internal/models"
)

// SeedParams selects how the initial TOF window is sized. A positive
// FractionalWindow gives a full width of FractionalWindow*TOF; otherwise the
// resolution formula TOF*sqrt(Resolution^2 + (ThetaWidth*cot(theta))^2) is used.
type SeedParams struct {
	FractionalWindow float64
	ThetaWidth       float64
	Resolution       float64
}

// Width returns the full seed width in TOF units for a peak at tof with
// scattering half-angle theta (radians).
func (p SeedParams) Width(tof, theta float64) float64 {
	if p.FractionalWindow > 0 {
		return p.FractionalWindow * tof
	}
	angular := p.ThetaWidth / math.Tan(theta)
	return tof * math.Hypot(p.Resolution, angular)
}

// BinIndex returns the first bin whose centre is not below v, clamped to
// [0, len(x)-1].
func BinIndex(x []float64, v float64) int {
	i := sort.SearchFloat64s(x, v)
	return max(min(i, len(x)-1), 0)
}

// Seed returns the bin range centred on tof, at least one bin wide and
// within the bounds of x.
func Seed(x []float64, tof, theta float64, p SeedParams) models.TOFWindow {
	half := 0.5 * p.Width(tof, theta)
	n := len(x)
	lo := sort.SearchFloat64s(x, tof-half)
	hi := sort.SearchFloat64s(x, tof+half)
	lo = max(min(lo, n-1), 0)
	hi = max(min(hi, n), lo+1)
	return models.TOFWindow{Lo: lo, Hi: hi}
}
