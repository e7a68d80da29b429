// Package diagnostics renders one page per integrated peak: the detector
// window with the peak mask overlaid, and the focused spectrum with the
// seed and optimised TOF windows marked. Documents are write-only and never
// influence the integration.
package diagnostics

import (
	"peakskew/internal/models"
)

// Page holds what is drawn for one peak.
type Page struct {
	Peak models.Peak

	// Counts is the window summed over the final TOF range, indexed [row][col].
	Counts [][]float64

	// PeakMask and NonBackground are the masks over the window.
	PeakMask      models.Mask
	NonBackground models.Mask

	// X, Y and ErrSq are the focused spectrum; empty when the peak was
	// rejected before focusing.
	X     []float64
	Y     []float64
	ErrSq []float64

	Seed      models.TOFWindow
	Optimized models.TOFWindow
}

// Document receives pages during a run and is closed once afterwards.
type Document interface {
	AddPage(p *Page) error
	Close() error
}

type nop struct{}

func (nop) AddPage(*Page) error { return nil }
func (nop) Close() error        { return nil }

// Nop returns a document that discards every page.
func Nop() Document {
	return nop{}
}
