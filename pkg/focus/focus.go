// Package focus collapses a signal cube into a background-subtracted
// spectrum for a peak mask.
package focus

import (
	"gonum.org/v1/gonum/floats"

	"peakskew/internal/models"
	"peakskew/pkg/mask"
)

// Spectrum is a focused 1D spectrum.
type Spectrum struct {
	Y     []float64
	ErrSq []float64
}

// Focus sums the peak pixels of c bin by bin and subtracts the background
// measured on a one-pixel shell around the peak. The shell is the 3x3
// dilation of peak minus every cell set in exclude, and its sums are scaled
// by the ratio of peak to shell pixel counts. An empty shell means zero
// background. Zero errors are replaced by the mean non-zero error of the
// same quarter of the spectrum, where quarters are split at the peak bin
// ixpk.
func Focus(c *models.SignalCube, peak, exclude models.Mask, ixpk int) Spectrum {
	nbins := c.NumBins()
	ypk, epk := sumMasked(c, peak, nbins)

	shell := mask.Dilate(peak).AndNot(exclude)
	ybg, ebg := sumMasked(c, shell, nbins)
	if nshell := shell.Count(); nshell > 0 {
		scale := float64(peak.Count()) / float64(nshell)
		floats.Scale(scale, ybg)
		floats.Scale(scale, ebg)
	}

	fillZeroErrors(epk, ixpk)
	fillZeroErrors(ebg, ixpk)

	out := Spectrum{Y: make([]float64, nbins), ErrSq: make([]float64, nbins)}
	floats.SubTo(out.Y, ypk, ybg)
	floats.AddTo(out.ErrSq, epk, ebg)
	return out
}

func sumMasked(c *models.SignalCube, m models.Mask, nbins int) (y, esq []float64) {
	y = make([]float64, nbins)
	esq = make([]float64, nbins)
	for r, row := range m {
		for col, in := range row {
			if !in {
				continue
			}
			floats.Add(y, c.Signal[r][col])
			floats.Add(esq, c.ErrorSq[r][col])
		}
	}
	return y, esq
}

// fillZeroErrors replaces zero entries of esq in place. Each quarter uses
// the mean of its own non-zero entries, falling back to the whole spectrum
// when a quarter has none. All-zero input is left unchanged.
func fillZeroErrors(esq []float64, ixpk int) {
	n := len(esq)
	overall, ok := nonZeroMean(esq)
	if !ok {
		return
	}
	ixpk = max(min(ixpk, n), 0)
	bounds := []int{0, ixpk / 2, ixpk, (ixpk + n) / 2, n}
	for q := 0; q < 4; q++ {
		part := esq[bounds[q]:bounds[q+1]]
		fill, ok := nonZeroMean(part)
		if !ok {
			fill = overall
		}
		for i, v := range part {
			if v == 0 {
				part[i] = fill
			}
		}
	}
}

func nonZeroMean(x []float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, v := range x {
		if v != 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
