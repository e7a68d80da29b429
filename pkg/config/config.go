// Package config provides configuration loading and management for peakskew.
// It handles loading integration options from YAML files, provides default
// values, and checks the options for consistency before a run starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultAdjacencyTolerance is the fraction of the nominal tube pitch within
// which an edge tube of a neighbouring bank is accepted as adjacent.
const DefaultAdjacencyTolerance = 1.1

// ErrInvalidOptions is returned by Validate when the options cannot be used.
var ErrInvalidOptions = errors.New("invalid integration options")

// Options represents the integration options loaded from YAML
type Options struct {
	// Detector window parameters
	Window struct {
		// NRows and NCols are the half-sizes of the window around the peak pixel
		NRows int `yaml:"nRows"`
		NCols int `yaml:"nCols"`

		// NRowsEdge and NColsEdge are the number of pixels from a bank
		// boundary that count as detector edge
		NRowsEdge int `yaml:"nRowsEdge"`
		NColsEdge int `yaml:"nColsEdge"`

		// AdjacencyTolerance scales the tube pitch when matching an edge tube
		// of a neighbouring bank
		AdjacencyTolerance float64 `yaml:"adjacencyTolerance"`
	} `yaml:"window"`

	// TOF window parameters
	TOFWindow struct {
		// FractionalWindow selects a window of full width FractionalWindow*TOF
		// when positive; otherwise the resolution formula is used
		FractionalWindow float64 `yaml:"fractionalWindow"`

		// ThetaWidth is the angular spread of the peak in radians
		ThetaWidth float64 `yaml:"thetaWidth"`

		// BackScatteringResolution is dT/T at two-theta = 180 degrees
		BackScatteringResolution float64 `yaml:"backScatteringResolution"`

		// NBackgroundBins is the number of bins beyond the window used to
		// estimate local background while growing it
		NBackgroundBins int `yaml:"nBackgroundBins"`

		// NTolerance is the number of consecutive non-improving steps allowed
		// before the window stops growing
		NTolerance int `yaml:"nTolerance"`
	} `yaml:"tofWindow"`

	// Peak mask thresholds
	Mask struct {
		NPixMin           int     `yaml:"nPixMin"`
		DensityPixMin     float64 `yaml:"densityPixMin"`
		NRowMax           int     `yaml:"nRowMax"`
		NColMax           int     `yaml:"nColMax"`
		NVacanciesMax     int     `yaml:"nVacanciesMax"`
		NPixPerVacancyMin int     `yaml:"nPixPerVacancyMin"`
	} `yaml:"mask"`

	// Behaviour switches
	Flags struct {
		IntegrateIfOnEdge  bool `yaml:"integrateIfOnEdge"`
		OptimiseMask       bool `yaml:"optimiseMask"`
		UseNearestPeak     bool `yaml:"useNearestPeak"`
		UpdatePeakPosition bool `yaml:"updatePeakPosition"`
	} `yaml:"flags"`

	// Output parameters
	Output struct {
		// DiagnosticsFile is the PDF written with one page per peak; empty disables it
		DiagnosticsFile string `yaml:"diagnosticsFile"`

		// LogLevel is a zerolog level name
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultOptions returns options with default values
func DefaultOptions() *Options {
	opts := &Options{}

	opts.Window.NRows = 8
	opts.Window.NCols = 8
	opts.Window.NRowsEdge = 1
	opts.Window.NColsEdge = 1
	opts.Window.AdjacencyTolerance = DefaultAdjacencyTolerance

	opts.TOFWindow.ThetaWidth = 0.015
	opts.TOFWindow.BackScatteringResolution = 0.0025
	opts.TOFWindow.NBackgroundBins = 5
	opts.TOFWindow.NTolerance = 8

	opts.Mask.NPixMin = 8
	opts.Mask.DensityPixMin = 0.35
	opts.Mask.NRowMax = 15
	opts.Mask.NColMax = 15
	opts.Mask.NVacanciesMax = 0
	opts.Mask.NPixPerVacancyMin = 1

	opts.Flags.OptimiseMask = true
	opts.Flags.UseNearestPeak = true

	opts.Output.LogLevel = "info"

	return opts
}

// Load loads options from a YAML file
// If the file doesn't exist, it returns the default options
func Load(path string) (*Options, error) {
	opts := DefaultOptions()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading options file: %w", err)
	}

	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("error parsing options file: %w", err)
	}

	return opts, nil
}

// Save saves the options to a YAML file
func Save(opts *Options, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating options directory: %w", err)
	}

	data, err := opts.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing options file: %w", err)
	}

	return nil
}

// Marshal encodes the options as YAML
func (o *Options) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("error marshaling options: %w", err)
	}
	return data, nil
}

// WindowRows returns the full number of rows in a detector window
func (o *Options) WindowRows() int {
	return 2*o.Window.NRows + 1
}

// WindowCols returns the full number of columns in a detector window
func (o *Options) WindowCols() int {
	return 2*o.Window.NCols + 1
}

// UsesFractionalWindow reports whether the seed TOF window is a fixed
// fraction of the peak TOF rather than the resolution formula
func (o *Options) UsesFractionalWindow() bool {
	return o.TOFWindow.FractionalWindow > 0
}

// Validate checks that the thresholds are consistent with each other and
// with the window size. Every failure wraps ErrInvalidOptions.
func (o *Options) Validate() error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if o.Window.NRows < 1 || o.Window.NCols < 1 {
		fail("window half-sizes must be positive, got nRows=%d nCols=%d", o.Window.NRows, o.Window.NCols)
	}
	if o.Window.NRowsEdge < 0 || o.Window.NColsEdge < 0 {
		fail("edge margins must not be negative")
	}
	if o.Window.AdjacencyTolerance <= 1 {
		fail("adjacencyTolerance must exceed 1, got %g", o.Window.AdjacencyTolerance)
	}

	if !o.UsesFractionalWindow() {
		if o.TOFWindow.ThetaWidth < 0 || o.TOFWindow.BackScatteringResolution < 0 {
			fail("TOF resolution parameters must not be negative")
		}
		if o.TOFWindow.ThetaWidth == 0 && o.TOFWindow.BackScatteringResolution == 0 {
			fail("either fractionalWindow or the TOF resolution parameters must be set")
		}
	}
	if o.TOFWindow.NBackgroundBins < 1 {
		fail("nBackgroundBins must be at least 1")
	}
	if o.TOFWindow.NTolerance < 0 {
		fail("nTolerance must not be negative")
	}

	if o.Mask.NRowMax > o.WindowRows() {
		fail("nRowMax=%d exceeds the window height %d", o.Mask.NRowMax, o.WindowRows())
	}
	if o.Mask.NColMax > o.WindowCols() {
		fail("nColMax=%d exceeds the window width %d", o.Mask.NColMax, o.WindowCols())
	}
	if o.Mask.NPixMin > o.WindowRows()*o.WindowCols() {
		fail("nPixMin=%d exceeds the number of window pixels %d", o.Mask.NPixMin, o.WindowRows()*o.WindowCols())
	}
	if o.Mask.DensityPixMin < 0 || o.Mask.DensityPixMin > 1 {
		fail("densityPixMin must lie in [0, 1], got %g", o.Mask.DensityPixMin)
	}
	if o.Mask.NVacanciesMax < 0 || o.Mask.NPixPerVacancyMin < 1 {
		fail("vacancy thresholds must be nVacanciesMax >= 0 and nPixPerVacancyMin >= 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(problems...))
	}
	return nil
}
