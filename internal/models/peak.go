package models

import "math"

// Status records the outcome of integrating a single peak.
type Status int

const (
	// StatusValid means the peak mask passed every check and was integrated.
	StatusValid Status = iota

	// StatusNoPeak means no connected peak region was found at the peak position.
	StatusNoPeak

	// StatusNPixMin means the peak mask had fewer pixels than required.
	StatusNPixMin

	// StatusNColMax means the peak mask spanned too many detector columns.
	StatusNColMax

	// StatusNRowMax means the peak mask spanned too many detector rows.
	StatusNRowMax

	// StatusDensityMin means the peak mask filled too little of its bounding box.
	StatusDensityMin

	// StatusVacancyMax means the peak mask enclosed too many background holes.
	StatusVacancyMax

	// StatusOnEdge means the peak mask touched the detector edge.
	StatusOnEdge
)

var statusNames = [...]string{
	StatusValid:      "VALID",
	StatusNoPeak:     "NO_PEAK",
	StatusNPixMin:    "NPIX_MIN",
	StatusNColMax:    "NCOL_MAX",
	StatusNRowMax:    "NROW_MAX",
	StatusDensityMin: "DENSITY_MIN",
	StatusVacancyMax: "VACANCY_MAX",
	StatusOnEdge:     "ON_EDGE",
}

// String returns the upper-case name used in peak tables and logs.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// ParseStatus converts a status name back to a Status.
func ParseStatus(name string) (Status, bool) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), true
		}
	}
	return 0, false
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statusNames))
	for i := range statusNames {
		out[i] = Status(i)
	}
	return out
}

// Peak is a single row of a peak table. Peaks are mutable value objects:
// integration writes Intensity, Sigma and Status in place, and a position
// update simply reassigns DetectorID and TOF.
type Peak struct {
	// DetectorID is the detector pixel nearest the predicted peak centre.
	DetectorID int

	// BankName is the detector bank the peak falls on.
	BankName string

	// Row and Col are the pixel coordinates of the peak within its bank.
	Row int
	Col int

	// TOF is the predicted time-of-flight of the peak centre in microseconds.
	TOF float64

	// Theta is the scattering half-angle (two-theta / 2) in radians.
	Theta float64

	// Wavelength is the neutron wavelength at the peak in Angstrom.
	Wavelength float64

	// Intensity and Sigma are the integrated, Lorentz-corrected results.
	Intensity float64
	Sigma     float64

	// Status is the outcome of the last integration.
	Status Status
}

// LorentzFactor returns sin^2(theta) / lambda^4 for the peak.
func (p *Peak) LorentzFactor() float64 {
	s := math.Sin(p.Theta)
	l2 := p.Wavelength * p.Wavelength
	return s * s / (l2 * l2)
}

// Reject clears the integrated values and records why.
func (p *Peak) Reject(status Status) {
	p.Intensity = 0
	p.Sigma = 0
	p.Status = status
}

// PeakTable is an ordered collection of peaks measured on one instrument.
type PeakTable struct {
	// Instrument is the name of the instrument the peaks were indexed on.
	Instrument string

	// Peaks holds the rows in table order.
	Peaks []Peak
}

// Len returns the number of rows.
func (t *PeakTable) Len() int {
	return len(t.Peaks)
}
