package instrument

import (
	"fmt"
)

// Dataset is the read-only raw data collaborator: one spectrum of counts
// and errors per detector, over a common TOF axis.
type Dataset interface {
	// Instrument returns the geometry the data was recorded on.
	Instrument() *Instrument

	// NumBins returns the number of counts per spectrum.
	NumBins() int

	// SpectrumIndices maps detector IDs to spectrum indices in one call.
	// An error is returned if any ID has no spectrum.
	SpectrumIndices(ids []int) ([]int, error)

	// ReadY, ReadE and ReadX return the counts, errors and TOF axis of a
	// spectrum. ReadX may hold bin edges (one longer than ReadY) or centres.
	// Callers must not modify the returned slices.
	ReadY(index int) []float64
	ReadE(index int) []float64
	ReadX(index int) []float64
}

// Workspace is an in-memory Dataset sharing one TOF axis across spectra.
type Workspace struct {
	inst  *Instrument
	x     []float64
	y     [][]float64
	e     [][]float64
	index map[int]int
}

// NewWorkspace creates an empty workspace. x holds either bin edges or bin centres.
func NewWorkspace(inst *Instrument, x []float64) *Workspace {
	return &Workspace{
		inst:  inst,
		x:     x,
		index: make(map[int]int),
	}
}

// NumBins returns the number of counts per spectrum.
func (w *Workspace) NumBins() int {
	if len(w.y) > 0 {
		return len(w.y[0])
	}
	if n := len(w.x); n > 0 {
		return n - 1
	}
	return 0
}

// AddSpectrum stores counts and errors for a detector and returns its index.
func (w *Workspace) AddSpectrum(detID int, y, e []float64) (int, error) {
	if !w.inst.Known(detID) {
		return 0, fmt.Errorf("spectrum for detector %d: %w", detID, ErrUnknownDetector)
	}
	if _, dup := w.index[detID]; dup {
		return 0, fmt.Errorf("detector %d already has a spectrum", detID)
	}
	if len(y) != len(e) {
		return 0, fmt.Errorf("detector %d: %d counts but %d errors", detID, len(y), len(e))
	}
	if len(w.x) != len(y) && len(w.x) != len(y)+1 {
		return 0, fmt.Errorf("detector %d: %d counts do not match a TOF axis of %d points", detID, len(y), len(w.x))
	}
	w.index[detID] = len(w.y)
	w.y = append(w.y, y)
	w.e = append(w.e, e)
	return len(w.y) - 1, nil
}

// Instrument returns the workspace geometry.
func (w *Workspace) Instrument() *Instrument { return w.inst }

// SpectrumIndices maps detector IDs to spectrum indices.
func (w *Workspace) SpectrumIndices(ids []int) ([]int, error) {
	out := make([]int, len(ids))
	for k, id := range ids {
		idx, ok := w.index[id]
		if !ok {
			return nil, fmt.Errorf("no spectrum for detector %d: %w", id, ErrUnknownDetector)
		}
		out[k] = idx
	}
	return out, nil
}

// ReadY returns the counts of a spectrum.
func (w *Workspace) ReadY(index int) []float64 { return w.y[index] }

// ReadE returns the errors of a spectrum.
func (w *Workspace) ReadE(index int) []float64 { return w.e[index] }

// ReadX returns the shared TOF axis.
func (w *Workspace) ReadX(index int) []float64 { return w.x }
