package tof

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"peakskew/internal/models"
	"peakskew/pkg/skew"
)

// Params controls the greedy window expansion.
type Params struct {
	// NBackground is the number of bins beyond the moving edge used to
	// estimate the local background.
	NBackground int

	// NTolerance is the number of consecutive non-improving steps allowed
	// before the expansion stops.
	NTolerance int
}

// IOverSigma returns the background-subtracted intensity over its error for
// bins [lo, hi), or 0 when the error is zero.
func IOverSigma(y, esq []float64, lo, hi int, bg float64) float64 {
	variance := floats.Sum(esq[lo:hi])
	if variance <= 0 {
		return 0
	}
	signal := floats.Sum(y[lo:hi]) - bg*float64(hi-lo)
	return signal / math.Sqrt(variance)
}

// localBackground is the mean of y[lo:hi], floored at 0. ok is false when
// the range does not fit inside y.
func localBackground(y []float64, lo, hi int) (float64, bool) {
	if lo < 0 || hi > len(y) || lo >= hi {
		return 0, false
	}
	return math.Max(stat.Mean(y[lo:hi], nil), 0), true
}

// Optimize expands seed to the right and then to the left, one bin at a
// time, keeping the edge position that maximises IOverSigma. Each side stops
// once more than NTolerance consecutive steps fail to improve on the best
// value. The background estimate only ever decreases as an edge moves
// outward, so a neighbouring peak cannot raise it. The result always
// contains seed.
func Optimize(y, esq []float64, seed models.TOFWindow, p Params) models.TOFWindow {
	n := len(y)
	lo, hi := seed.Lo, seed.Hi

	bg, _ := localBackground(y, hi, hi+p.NBackground)
	best := IOverSigma(y, esq, lo, hi, bg)
	bestHi, bad := hi, 0
	for h := hi + 1; h <= n; h++ {
		if next, ok := localBackground(y, h, h+p.NBackground); ok {
			bg = math.Min(bg, next)
		}
		if r := IOverSigma(y, esq, lo, h, bg); r > best {
			best, bestHi, bad = r, h, 0
		} else {
			bad++
			if bad > p.NTolerance {
				break
			}
		}
	}
	hi = bestHi

	bg, _ = localBackground(y, lo-p.NBackground, lo)
	best = IOverSigma(y, esq, lo, hi, bg)
	bestLo := lo
	bad = 0
	for l := lo - 1; l >= 0; l-- {
		if next, ok := localBackground(y, l-p.NBackground, l); ok {
			bg = math.Min(bg, next)
		}
		if r := IOverSigma(y, esq, l, hi, bg); r > best {
			best, bestLo, bad = r, l, 0
		} else {
			bad++
			if bad > p.NTolerance {
				break
			}
		}
	}
	return models.TOFWindow{Lo: bestLo, Hi: hi}
}

// FindPeakLimits locates the peak inside the candidate range of a focused
// spectrum and optimises its extent. The skew separator splits the bins of
// the candidate range into background and peak; the longest run of
// consecutive peak bins (the first one on ties) seeds Optimize. When no bin
// stands out the whole candidate range is the seed.
//
// The result contains that run, not the candidate range: a peak narrower
// than the candidate comes back narrower than it.
func FindPeakLimits(y, esq []float64, candidate models.TOFWindow, p Params) models.TOFWindow {
	_, peak := skew.Separate(y[candidate.Lo:candidate.Hi])
	isPeak := make([]bool, candidate.Len())
	for _, i := range peak {
		isPeak[i] = true
	}

	seed := candidate
	bestLen := 0
	for i := 0; i < len(isPeak); {
		if !isPeak[i] {
			i++
			continue
		}
		j := i
		for j < len(isPeak) && isPeak[j] {
			j++
		}
		if j-i > bestLen {
			bestLen = j - i
			seed = models.TOFWindow{Lo: candidate.Lo + i, Hi: candidate.Lo + j}
		}
		i = j
	}
	return Optimize(y, esq, seed, p)
}
