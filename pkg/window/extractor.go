// Package window extracts the local 2D neighbourhood of detector pixels
// around a peak. Two geometry strategies share one contract: rectangular
// panels, where neighbours follow fixed ID strides, and assemblies of linear
// tubes, where neighbours are found by component addressing and windows may
// continue into an adjacent bank.
package window

import (
	"errors"
	"fmt"

	"peakskew/internal/models"
	"peakskew/pkg/instrument"
)

// ErrDetectorUnavailable is returned when the peak's detector is masked or a monitor.
var ErrDetectorUnavailable = errors.New("detector unavailable")

// Options controls the window size and edge margins.
type Options struct {
	// DRows and DCols are half-sizes: windows span up to 2*DRows+1 rows
	// and 2*DCols+1 columns.
	DRows int
	DCols int

	// NRowsEdge and NColsEdge are the number of pixels from a bank
	// boundary flagged as edge.
	NRowsEdge int
	NColsEdge int

	// AdjacencyTolerance is the multiple of the tube pitch within which an
	// edge tube of a sibling bank is accepted as adjacent.
	AdjacencyTolerance float64
}

// Extractor maps a detector ID to its window.
type Extractor interface {
	Window(detID int) (*models.DetectorWindow, error)
}

// NewExtractor picks the strategy once for the instrument: rectangular
// when it has rectangular panels, otherwise tube assemblies addressed by
// component names.
func NewExtractor(inst *instrument.Instrument, opts Options) (Extractor, error) {
	if inst.HasRectangularBanks() {
		return NewRectangular(inst, opts), nil
	}
	addr, err := NewNameAddressing(inst)
	if err != nil {
		return nil, err
	}
	return NewAssembly(addr, inst, opts), nil
}

// checkDetector fails for unknown, masked and monitor detectors.
func checkDetector(inst *instrument.Instrument, id int) error {
	switch {
	case !inst.Known(id):
		return fmt.Errorf("detector %d: %w", id, instrument.ErrUnknownDetector)
	case inst.IsMonitor(id):
		return fmt.Errorf("detector %d is a monitor: %w", id, ErrDetectorUnavailable)
	case inst.IsMasked(id):
		return fmt.Errorf("detector %d is masked: %w", id, ErrDetectorUnavailable)
	}
	return nil
}

func newGrid[T any](rows, cols int) [][]T {
	g := make([][]T, rows)
	for r := range g {
		g[r] = make([]T, cols)
	}
	return g
}
