package peakstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"peakskew/internal/models"
)

// peakFile is the YAML layout accepted by ReadPeakTableFile.
type peakFile struct {
	Instrument string `yaml:"instrument"`
	Peaks      []struct {
		Detector   int     `yaml:"detector"`
		Bank       string  `yaml:"bank"`
		Row        int     `yaml:"row"`
		Col        int     `yaml:"col"`
		TOF        float64 `yaml:"tof"`
		Theta      float64 `yaml:"theta"`
		Wavelength float64 `yaml:"wavelength"`
	} `yaml:"peaks"`
}

// ReadPeakTableFile reads a predicted peak table from YAML.
func ReadPeakTableFile(path string) (*models.PeakTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading peak file: %w", err)
	}
	return ParsePeakTable(data)
}

// ParsePeakTable decodes a YAML peak table. Every peak needs a detector ID
// and a positive wavelength.
func ParsePeakTable(data []byte) (*models.PeakTable, error) {
	var f peakFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing peak file: %w", err)
	}

	t := &models.PeakTable{Instrument: f.Instrument}
	for i, p := range f.Peaks {
		if p.Detector <= 0 {
			return nil, fmt.Errorf("peak %d: detector ID must be positive, got %d", i, p.Detector)
		}
		if p.Wavelength <= 0 {
			return nil, fmt.Errorf("peak %d: wavelength must be positive, got %g", i, p.Wavelength)
		}
		t.Peaks = append(t.Peaks, models.Peak{
			DetectorID: p.Detector,
			BankName:   p.Bank,
			Row:        p.Row,
			Col:        p.Col,
			TOF:        p.TOF,
			Theta:      p.Theta,
			Wavelength: p.Wavelength,
		})
	}
	return t, nil
}
