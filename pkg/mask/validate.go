package mask

import (
	"peakskew/internal/models"
)

// Thresholds bound the shape of an acceptable peak footprint.
type Thresholds struct {
	NPixMin           int
	DensityPixMin     float64
	NRowMax           int
	NColMax           int
	NVacanciesMax     int
	NPixPerVacancyMin int
}

// Validate checks a single-component peak mask. Checks run in a fixed order
// and the first failure is returned; an empty mask has no peak.
func Validate(peak models.Mask, th Thresholds) models.Status {
	npix := peak.Count()
	if npix == 0 {
		return models.StatusNoPeak
	}
	if npix < th.NPixMin {
		return models.StatusNPixMin
	}

	rows, cols := occupied(peak)
	if cols > th.NColMax {
		return models.StatusNColMax
	}
	if rows > th.NRowMax {
		return models.StatusNRowMax
	}
	if float64(npix)/float64(rows*cols) < th.DensityPixMin {
		return models.StatusDensityMin
	}
	if Vacancies(peak, th.NPixPerVacancyMin) > th.NVacanciesMax {
		return models.StatusVacancyMax
	}
	return models.StatusValid
}

// occupied counts the distinct rows and columns holding peak pixels.
func occupied(m models.Mask) (rows, cols int) {
	colUsed := make([]bool, m.Cols())
	for _, row := range m {
		used := false
		for c, v := range row {
			if v {
				used = true
				colUsed[c] = true
			}
		}
		if used {
			rows++
		}
	}
	for _, v := range colUsed {
		if v {
			cols++
		}
	}
	return rows, cols
}

// Vacancies counts the holes in m: connected regions of the complement that
// do not touch the window border and hold at least minPix cells.
func Vacancies(m models.Mask, minPix int) int {
	rows, cols := m.Rows(), m.Cols()
	complement := models.NewMask(rows, cols)
	for r, row := range m {
		for c, v := range row {
			complement[r][c] = !v
		}
	}
	l := Label(complement)

	touches := make([]bool, len(l.Sizes))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == 0 || r == rows-1 || c == 0 || c == cols-1 {
				touches[l.Grid[r][c]] = true
			}
		}
	}
	n := 0
	for label := 1; label < len(l.Sizes); label++ {
		if !touches[label] && l.Sizes[label] >= minPix {
			n++
		}
	}
	return n
}
