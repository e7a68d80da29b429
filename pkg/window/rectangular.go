package window

import (
	"fmt"

	"peakskew/internal/models"
	"peakskew/pkg/instrument"
)

// Rectangular extracts windows from rectangular panels. The window is
// clamped to the panel, so peaks near a boundary get a smaller window.
type Rectangular struct {
	inst *instrument.Instrument
	opts Options
}

// NewRectangular creates the rectangular strategy.
func NewRectangular(inst *instrument.Instrument, opts Options) *Rectangular {
	return &Rectangular{inst: inst, opts: opts}
}

// Window returns the window centred on detID.
func (r *Rectangular) Window(detID int) (*models.DetectorWindow, error) {
	if err := checkDetector(r.inst, detID); err != nil {
		return nil, err
	}
	bank, ok := r.inst.RectangularBankOf(detID)
	if !ok {
		return nil, fmt.Errorf("detector %d is not on a rectangular bank: %w", detID, instrument.ErrUnknownDetector)
	}
	row, col, _ := bank.Locate(detID)

	r0, r1 := max(row-r.opts.DRows, 0), min(row+r.opts.DRows, bank.NRows-1)
	c0, c1 := max(col-r.opts.DCols, 0), min(col+r.opts.DCols, bank.NCols-1)

	w := &models.DetectorWindow{
		IDs:     newGrid[int](r1-r0+1, c1-c0+1),
		Edge:    newGrid[bool](r1-r0+1, c1-c0+1),
		PeakRow: row - r0,
		PeakCol: col - c0,
	}
	for br := r0; br <= r1; br++ {
		rowEdge := br < r.opts.NRowsEdge || br >= bank.NRows-r.opts.NRowsEdge
		for bc := c0; bc <= c1; bc++ {
			colEdge := bc < r.opts.NColsEdge || bc >= bank.NCols-r.opts.NColsEdge
			w.IDs[br-r0][bc-c0] = bank.DetectorID(br, bc)
			w.Edge[br-r0][bc-c0] = rowEdge || colEdge
		}
	}
	return w, nil
}
