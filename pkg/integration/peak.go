package integration

import (
	"math"

	"peakskew/internal/models"
	"peakskew/pkg/diagnostics"
	"peakskew/pkg/focus"
	"peakskew/pkg/mask"
	"peakskew/pkg/skew"
	"peakskew/pkg/tof"
)

// footprint is a peak mask found on the window summed over a TOF range.
type footprint struct {
	peak  models.Mask
	nonBg models.Mask
}

// peakState carries one peak through the integration steps.
type peakState struct {
	win    *models.DetectorWindow
	cube   *models.SignalCube
	absent models.Mask
	ixpk   int

	seed     models.TOFWindow
	fp       footprint
	spectrum focus.Spectrum
	opt      models.TOFWindow
}

// findFootprint separates the window summed over rng into peak and
// background pixels and picks the component at the peak pixel.
func (in *Integrator) findFootprint(st *peakState, rng models.TOFWindow) footprint {
	img := st.cube.SumOver(rng)
	nonBg := models.Mask(skew.SeparateMasked(img, st.win.Present()))
	labels := mask.Label(nonBg)
	label := labels.Select(st.win.PeakRow, st.win.PeakCol, in.opts.Flags.UseNearestPeak)
	return footprint{peak: labels.Component(label), nonBg: nonBg}
}

// check returns the status of a candidate footprint: ON_EDGE first, unless
// edge peaks are integrated, then the shape thresholds.
func (in *Integrator) check(st *peakState, fp footprint) models.Status {
	if !in.opts.Flags.IntegrateIfOnEdge && fp.peak.Intersects(st.win.EdgeMask()) {
		return models.StatusOnEdge
	}
	return mask.Validate(fp.peak, in.thresholds())
}

// focusAndOptimise collapses the cube for fp and finds the TOF range of
// the peak, starting from the seed range.
func (in *Integrator) focusAndOptimise(st *peakState, fp footprint) (focus.Spectrum, models.TOFWindow) {
	sp := focus.Focus(st.cube, fp.peak, fp.nonBg.Or(st.absent), st.ixpk)
	return sp, tof.FindPeakLimits(sp.Y, sp.ErrSq, st.seed, in.tofParams())
}

// integratePeak runs every step for one peak and writes the outcome into p.
// An error means the peak has no usable detector window and must be dropped.
func (in *Integrator) integratePeak(p *models.Peak) (*diagnostics.Page, error) {
	win, err := in.extractor.Window(p.DetectorID)
	if err != nil {
		return nil, err
	}
	c, err := in.reader.Read(win)
	if err != nil {
		return nil, err
	}

	absent := win.Present()
	for _, row := range absent {
		for col := range row {
			row[col] = !row[col]
		}
	}
	st := &peakState{
		win:    win,
		cube:   c,
		absent: absent,
		ixpk:   tof.BinIndex(c.X, p.TOF),
		seed:   tof.Seed(c.X, p.TOF, p.Theta, in.seedParams()),
	}

	st.fp = in.findFootprint(st, st.seed)
	if status := in.check(st, st.fp); status != models.StatusValid {
		p.Reject(status)
		return in.page(p, st, st.seed), nil
	}

	st.spectrum, st.opt = in.focusAndOptimise(st, st.fp)
	if in.opts.Flags.OptimiseMask {
		if status := in.optimiseMask(st); status != models.StatusValid {
			p.Reject(status)
			return in.page(p, st, st.opt), nil
		}
	}

	if in.opts.Flags.UpdatePeakPosition {
		in.updatePosition(p, st)
	}

	p.Intensity, p.Sigma = integrate(st.cube.X, st.spectrum, st.opt, p.LorentzFactor())
	p.Status = models.StatusValid
	return in.page(p, st, st.opt), nil
}

// optimiseMask re-derives the footprint over the optimised TOF range and
// grows the mask by it. The grown mask must pass every check again; its
// status is returned and anything but VALID rejects the peak. On success the
// TOF range is re-optimised from the union of the previous range and the one
// found on the new spectrum.
func (in *Integrator) optimiseMask(st *peakState) models.Status {
	st.fp = grow(st.fp, in.findFootprint(st, st.opt))
	if status := in.check(st, st.fp); status != models.StatusValid {
		return status
	}

	sp, limits := in.focusAndOptimise(st, st.fp)
	st.spectrum = sp
	st.opt = tof.Optimize(sp.Y, sp.ErrSq, st.opt.Union(limits), in.tofParams())
	return models.StatusValid
}

// grow merges found into fp. The peak mask keeps only the connected part of
// the union that holds fp, so it stays a single component.
func grow(fp, found footprint) footprint {
	labels := mask.Label(fp.peak.Or(found.peak))
	label := 0
	for r, row := range fp.peak {
		for c, inPeak := range row {
			if inPeak {
				label = labels.At(r, c)
				break
			}
		}
		if label != 0 {
			break
		}
	}
	return footprint{peak: labels.Component(label), nonBg: fp.nonBg.Or(found.nonBg)}
}

// updatePosition moves the peak to the mask pixel with the most counts over
// the optimised range and to the TOF bin of maximum focused intensity.
func (in *Integrator) updatePosition(p *models.Peak, st *peakState) {
	counts := st.cube.SumOver(st.opt)
	best := math.Inf(-1)
	for r, row := range st.fp.peak {
		for c, inPeak := range row {
			if inPeak && counts[r][c] > best {
				best = counts[r][c]
				p.DetectorID = st.win.IDs[r][c]
			}
		}
	}

	ibin := st.opt.Lo
	for b := st.opt.Lo; b < st.opt.Hi; b++ {
		if st.spectrum.Y[b] > st.spectrum.Y[ibin] {
			ibin = b
		}
	}
	p.TOF = st.cube.X[ibin]
}

func (in *Integrator) page(p *models.Peak, st *peakState, rng models.TOFWindow) *diagnostics.Page {
	return &diagnostics.Page{
		Peak:          *p,
		Counts:        st.cube.SumOver(rng),
		PeakMask:      st.fp.peak,
		NonBackground: st.fp.nonBg,
		X:             st.cube.X,
		Y:             st.spectrum.Y,
		ErrSq:         st.spectrum.ErrSq,
		Seed:          st.seed,
		Optimized:     st.opt,
	}
}
