package integration

import (
	"math"

	"peakskew/internal/models"
	"peakskew/pkg/focus"
)

// binWidths returns the spacing of the bin centres in x. Each bin takes the
// distance to its left neighbour; the first bin borrows the width of the
// second.
func binWidths(x []float64) []float64 {
	dx := make([]float64, len(x))
	if len(x) < 2 {
		for i := range dx {
			dx[i] = 1
		}
		return dx
	}
	for i := 1; i < len(x); i++ {
		dx[i] = x[i] - x[i-1]
	}
	dx[0] = dx[1]
	return dx
}

// integrate sums the bin-width normalised spectrum over rng and applies the
// Lorentz factor.
func integrate(x []float64, sp focus.Spectrum, rng models.TOFWindow, lorentz float64) (intensity, sigma float64) {
	dx := binWidths(x)
	var sum, varSum float64
	for b := rng.Lo; b < rng.Hi; b++ {
		sum += sp.Y[b] / dx[b]
		varSum += sp.ErrSq[b] / (dx[b] * dx[b])
	}
	return lorentz * sum, lorentz * math.Sqrt(varSum)
}
