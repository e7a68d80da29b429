// Package integration drives skew integration over a peak table: for each
// peak it extracts the detector window, separates the peak footprint from
// background, optimises the TOF window and integrates the focused spectrum.
package integration

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"peakskew/internal/models"
	"peakskew/pkg/config"
	"peakskew/pkg/cube"
	"peakskew/pkg/diagnostics"
	"peakskew/pkg/instrument"
	"peakskew/pkg/mask"
	"peakskew/pkg/tof"
	"peakskew/pkg/window"
)

var (
	// ErrEmptyPeakTable is returned when there are no peaks to integrate.
	ErrEmptyPeakTable = errors.New("peak table is empty")

	// ErrInstrumentMismatch is returned when the peaks were indexed on a
	// different instrument from the dataset.
	ErrInstrumentMismatch = errors.New("peak table and dataset instruments differ")
)

// ProgressCallback is called after each peak with the number of peaks done.
type ProgressCallback func(completed, total int, message string)

// Params holds the inputs of an integration run.
type Params struct {
	// Dataset is the read-only raw data, including its instrument.
	Dataset instrument.Dataset

	// Peaks is the input table; it is not modified.
	Peaks *models.PeakTable

	// Options holds window sizes, thresholds and switches.
	Options *config.Options

	// Logger receives per-peak decisions at debug level. Nil disables logging.
	Logger *zerolog.Logger

	// Progress is optional.
	Progress ProgressCallback

	// Document receives one page per integrated or rejected peak. Nil
	// disables diagnostics. It is closed when Process returns.
	Document diagnostics.Document
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total    int
	Skipped  int
	ByStatus map[models.Status]int
}

// Result is the output of a run: a new peak table holding every peak that
// could be resolved to a detector window, in input order.
type Result struct {
	Peaks *models.PeakTable

	// InputRows[i] is the row of the input table that Peaks.Peaks[i] came from.
	InputRows []int

	Summary Summary
}

// Integrator runs skew integration over a peak table.
type Integrator struct {
	params    *Params
	opts      *config.Options
	log       zerolog.Logger
	doc       diagnostics.Document
	extractor window.Extractor
	reader    *cube.Reader
}

// NewIntegrator creates an integrator for the given parameters.
func NewIntegrator(params *Params) *Integrator {
	in := &Integrator{
		params: params,
		opts:   params.Options,
		log:    zerolog.Nop(),
		doc:    params.Document,
	}
	if params.Logger != nil {
		in.log = *params.Logger
	}
	if in.opts == nil {
		in.opts = config.DefaultOptions()
	}
	if in.doc == nil {
		in.doc = diagnostics.Nop()
	}
	return in
}

// checkPreconditions fails before any peak is processed when the run
// cannot produce meaningful results.
func (in *Integrator) checkPreconditions() error {
	if err := in.opts.Validate(); err != nil {
		return err
	}
	if in.params.Peaks == nil || in.params.Peaks.Len() == 0 {
		return ErrEmptyPeakTable
	}
	if in.params.Dataset == nil {
		return errors.New("no dataset")
	}
	inst := in.params.Dataset.Instrument()
	if in.params.Peaks.Instrument != inst.Name {
		return fmt.Errorf("%w: peaks from %q, data from %q", ErrInstrumentMismatch, in.params.Peaks.Instrument, inst.Name)
	}
	return nil
}

// Process integrates every peak and returns the new table. The diagnostic
// document is closed on every return path.
func (in *Integrator) Process() (res *Result, err error) {
	defer func() {
		if cerr := in.doc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing diagnostics: %w", cerr)
		}
	}()

	if err := in.checkPreconditions(); err != nil {
		return nil, err
	}

	in.extractor, err = window.NewExtractor(in.params.Dataset.Instrument(), window.Options{
		DRows:              in.opts.Window.NRows,
		DCols:              in.opts.Window.NCols,
		NRowsEdge:          in.opts.Window.NRowsEdge,
		NColsEdge:          in.opts.Window.NColsEdge,
		AdjacencyTolerance: in.opts.Window.AdjacencyTolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("indexing detector geometry: %w", err)
	}
	in.reader = cube.NewReader(in.params.Dataset)

	input := in.params.Peaks
	out := &models.PeakTable{Instrument: input.Instrument, Peaks: make([]models.Peak, 0, input.Len())}
	rows := make([]int, 0, input.Len())
	summary := Summary{Total: input.Len(), ByStatus: make(map[models.Status]int)}

	for i, p := range input.Peaks {
		page, perr := in.integratePeak(&p)
		if perr != nil {
			summary.Skipped++
			in.log.Warn().Err(perr).Int("peak", i).Int("detector", p.DetectorID).Msg("skipping peak")
		} else {
			out.Peaks = append(out.Peaks, p)
			rows = append(rows, i)
			summary.ByStatus[p.Status]++
			in.log.Debug().
				Int("peak", i).
				Int("detector", p.DetectorID).
				Stringer("status", p.Status).
				Float64("intensity", p.Intensity).
				Float64("sigma", p.Sigma).
				Msg("integrated peak")
			if err := in.doc.AddPage(page); err != nil {
				return nil, fmt.Errorf("diagnostics page for peak %d: %w", i, err)
			}
		}
		if in.params.Progress != nil {
			in.params.Progress(i+1, input.Len(), fmt.Sprintf("Integrated peak %d of %d", i+1, input.Len()))
		}
	}

	ev := in.log.Info().Int("peaks", summary.Total).Int("skipped", summary.Skipped)
	for _, s := range models.Statuses() {
		if n := summary.ByStatus[s]; n > 0 {
			ev = ev.Int(s.String(), n)
		}
	}
	ev.Msg("integration finished")

	return &Result{Peaks: out, InputRows: rows, Summary: summary}, nil
}

func (in *Integrator) thresholds() mask.Thresholds {
	m := in.opts.Mask
	return mask.Thresholds{
		NPixMin:           m.NPixMin,
		DensityPixMin:     m.DensityPixMin,
		NRowMax:           m.NRowMax,
		NColMax:           m.NColMax,
		NVacanciesMax:     m.NVacanciesMax,
		NPixPerVacancyMin: m.NPixPerVacancyMin,
	}
}

func (in *Integrator) seedParams() tof.SeedParams {
	return tof.SeedParams{
		FractionalWindow: in.opts.TOFWindow.FractionalWindow,
		ThetaWidth:       in.opts.TOFWindow.ThetaWidth,
		Resolution:       in.opts.TOFWindow.BackScatteringResolution,
	}
}

func (in *Integrator) tofParams() tof.Params {
	return tof.Params{
		NBackground: in.opts.TOFWindow.NBackgroundBins,
		NTolerance:  in.opts.TOFWindow.NTolerance,
	}
}
