// Package cube reads the spectra of a detector window into a signal cube.
package cube

import (
	"errors"
	"fmt"

	"peakskew/internal/models"
	"peakskew/pkg/instrument"
)

// Reader translates detector windows into signal cubes from a dataset.
type Reader struct {
	data instrument.Dataset
}

// NewReader creates a reader over a read-only dataset.
func NewReader(data instrument.Dataset) *Reader {
	return &Reader{data: data}
}

// Read returns the signal and squared errors of every pixel in the window.
// Absent pixels (ID 0) read as zero counts with zero error.
func (r *Reader) Read(w *models.DetectorWindow) (*models.SignalCube, error) {
	nbins := r.data.NumBins()

	var ids []int
	for _, row := range w.IDs {
		for _, id := range row {
			if id != 0 {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("window holds no detectors")
	}
	indices, err := r.data.SpectrumIndices(ids)
	if err != nil {
		return nil, fmt.Errorf("resolving window spectra: %w", err)
	}

	c := &models.SignalCube{
		Signal:  make([][][]float64, w.Rows()),
		ErrorSq: make([][][]float64, w.Rows()),
		X:       Centres(r.data.ReadX(indices[0]), nbins),
	}
	k := 0
	for ri, row := range w.IDs {
		c.Signal[ri] = make([][]float64, len(row))
		c.ErrorSq[ri] = make([][]float64, len(row))
		for ci, id := range row {
			y := make([]float64, nbins)
			esq := make([]float64, nbins)
			if id != 0 {
				idx := indices[k]
				k++
				src, e := r.data.ReadY(idx), r.data.ReadE(idx)
				if len(src) != nbins || len(e) != nbins {
					return nil, fmt.Errorf("detector %d: spectrum has %d bins, want %d", id, len(src), nbins)
				}
				copy(y, src)
				for b, v := range e {
					esq[b] = v * v
				}
			}
			c.Signal[ri][ci] = y
			c.ErrorSq[ri][ci] = esq
		}
	}
	return c, nil
}

// Centres converts a TOF axis to bin centres. An axis one longer than the
// number of bins holds edges; any other axis is returned as a copy.
func Centres(x []float64, nbins int) []float64 {
	if len(x) != nbins+1 {
		return append([]float64(nil), x...)
	}
	out := make([]float64, nbins)
	for i := range out {
		out[i] = 0.5 * (x[i] + x[i+1])
	}
	return out
}
