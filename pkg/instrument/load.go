package instrument

import (
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// datasetFile is the YAML layout accepted by LoadDataset.
type datasetFile struct {
	Instrument string `yaml:"instrument"`

	Groups []struct {
		Name     string     `yaml:"name"`
		Parent   string     `yaml:"parent"`
		Position [3]float64 `yaml:"position"`
	} `yaml:"groups"`

	Banks []struct {
		Name   string `yaml:"name"`
		Type   string `yaml:"type"`
		Parent string `yaml:"parent"`

		FirstID int `yaml:"firstId"`

		// rectangular
		Rows      int `yaml:"rows"`
		Cols      int `yaml:"cols"`
		RowStride int `yaml:"rowStride"`
		ColStride int `yaml:"colStride"`

		// tubes
		Tubes       int        `yaml:"tubes"`
		Pixels      int        `yaml:"pixels"`
		Origin      [3]float64 `yaml:"origin"`
		TubeStep    [3]float64 `yaml:"tubeStep"`
		PixelStep   [3]float64 `yaml:"pixelStep"`
		TubePrefix  string     `yaml:"tubePrefix"`
		PixelPrefix string     `yaml:"pixelPrefix"`
		Digits      int        `yaml:"digits"`
	} `yaml:"banks"`

	TOF struct {
		Edges []float64 `yaml:"edges"`
		Start float64   `yaml:"start"`
		Width float64   `yaml:"width"`
		Bins  int       `yaml:"bins"`
	} `yaml:"tof"`

	// Background is the flat count level of detectors without a listed spectrum.
	Background float64 `yaml:"background"`

	Masked   []int `yaml:"masked"`
	Monitors []int `yaml:"monitors"`

	Spectra []struct {
		Detector int       `yaml:"detector"`
		Counts   []float64 `yaml:"counts"`
		Errors   []float64 `yaml:"errors"`
	} `yaml:"spectra"`
}

// LoadDataset reads an instrument description and its spectra from YAML.
func LoadDataset(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset file: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset builds a Workspace from YAML content.
func ParseDataset(data []byte) (*Workspace, error) {
	var f datasetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing dataset file: %w", err)
	}
	if f.Instrument == "" {
		return nil, fmt.Errorf("dataset file has no instrument name")
	}

	inst := New(f.Instrument)
	parentOf := func(name string) (*Component, error) {
		if name == "" {
			return inst.Root(), nil
		}
		c := inst.ComponentByName(name)
		if c == nil {
			return nil, fmt.Errorf("parent component %q not found", name)
		}
		return c, nil
	}

	for _, g := range f.Groups {
		parent, err := parentOf(g.Parent)
		if err != nil {
			return nil, err
		}
		inst.AddGroup(parent, g.Name, vec(g.Position))
	}

	for _, b := range f.Banks {
		switch b.Type {
		case "rectangular":
			err := inst.AddRectangularBank(RectangularBank{
				Name: b.Name, NRows: b.Rows, NCols: b.Cols,
				FirstID: b.FirstID, RowStride: b.RowStride, ColStride: b.ColStride,
			})
			if err != nil {
				return nil, err
			}
		case "tubes":
			parent, err := parentOf(b.Parent)
			if err != nil {
				return nil, err
			}
			_, err = inst.AddTubeBank(parent, TubeBank{
				Name: b.Name, Tubes: b.Tubes, Pixels: b.Pixels, FirstID: b.FirstID,
				Origin: vec(b.Origin), TubeStep: vec(b.TubeStep), PixelStep: vec(b.PixelStep),
				TubePrefix: b.TubePrefix, PixelPrefix: b.PixelPrefix, Digits: b.Digits,
			})
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("bank %q: unknown type %q", b.Name, b.Type)
		}
	}
	inst.SetMasked(f.Masked...)
	inst.SetMonitors(f.Monitors...)

	x := f.TOF.Edges
	if len(x) == 0 {
		if f.TOF.Bins < 1 || f.TOF.Width <= 0 {
			return nil, fmt.Errorf("dataset file needs tof.edges or tof.bins and tof.width")
		}
		x = make([]float64, f.TOF.Bins+1)
		for k := range x {
			x[k] = f.TOF.Start + float64(k)*f.TOF.Width
		}
	}
	nbins := len(x) - 1

	ws := NewWorkspace(inst, x)
	listed := make(map[int]bool, len(f.Spectra))
	for _, s := range f.Spectra {
		errs := s.Errors
		if errs == nil {
			errs = poissonErrors(s.Counts)
		}
		if _, err := ws.AddSpectrum(s.Detector, s.Counts, errs); err != nil {
			return nil, err
		}
		listed[s.Detector] = true
	}
	for _, id := range inst.DetectorIDs() {
		if listed[id] {
			continue
		}
		y := make([]float64, nbins)
		for k := range y {
			y[k] = f.Background
		}
		if _, err := ws.AddSpectrum(id, y, poissonErrors(y)); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func vec(v [3]float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func poissonErrors(y []float64) []float64 {
	e := make([]float64, len(y))
	for k, v := range y {
		e[k] = math.Sqrt(math.Max(v, 0))
	}
	return e
}
