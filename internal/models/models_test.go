package models

import (
	"math"
	"testing"
)

func TestStatusNames(t *testing.T) {
	for _, s := range Statuses() {
		got, ok := ParseStatus(s.String())
		if !ok || got != s {
			t.Errorf("ParseStatus(%q) = %v, %v; want %v", s.String(), got, ok, s)
		}
	}
	if got := Status(99).String(); got != "UNKNOWN" {
		t.Errorf("Status(99).String() = %q, want UNKNOWN", got)
	}
	if _, ok := ParseStatus("BOGUS"); ok {
		t.Error("ParseStatus accepted an unknown name")
	}
}

func TestLorentzFactor(t *testing.T) {
	p := Peak{Theta: math.Pi / 6, Wavelength: 2}
	if got, want := p.LorentzFactor(), 0.25/16; math.Abs(got-want) > 1e-15 {
		t.Errorf("LorentzFactor() = %g, want %g", got, want)
	}
}

func TestRejectClearsResults(t *testing.T) {
	p := Peak{Intensity: 10, Sigma: 2, Status: StatusValid}
	p.Reject(StatusDensityMin)
	if p.Intensity != 0 || p.Sigma != 0 || p.Status != StatusDensityMin {
		t.Errorf("after Reject: %+v", p)
	}
}

func TestMaskOps(t *testing.T) {
	a := NewMask(2, 3)
	a[0][0], a[1][2] = true, true
	b := NewMask(2, 3)
	b[1][2], b[0][1] = true, true

	if n := a.Or(b).Count(); n != 3 {
		t.Errorf("Or count = %d, want 3", n)
	}
	if d := a.AndNot(b); !d[0][0] || d[1][2] || d.Count() != 1 {
		t.Errorf("AndNot = %v", d)
	}
	if !a.Intersects(b) {
		t.Error("masks sharing (1,2) should intersect")
	}
	b[1][2] = false
	if a.Intersects(b) {
		t.Error("disjoint masks should not intersect")
	}

	c := a.Clone()
	c[0][0] = false
	if !a[0][0] {
		t.Error("Clone shares storage with the original")
	}
	if a.Rows() != 2 || a.Cols() != 3 || Mask(nil).Cols() != 0 {
		t.Error("unexpected mask dimensions")
	}
}

func TestTOFWindow(t *testing.T) {
	w := TOFWindow{Lo: 3, Hi: 8}
	if w.Len() != 5 {
		t.Errorf("Len() = %d, want 5", w.Len())
	}
	if !w.Contains(TOFWindow{4, 8}) || w.Contains(TOFWindow{2, 5}) {
		t.Error("Contains gave the wrong answer")
	}
	if got := w.Union(TOFWindow{1, 5}); got != (TOFWindow{1, 8}) {
		t.Errorf("Union = %+v, want {1 8}", got)
	}
}

func TestWindowAndCube(t *testing.T) {
	w := &DetectorWindow{
		IDs:     [][]int{{0, 4}, {5, 6}},
		PeakRow: 1,
		PeakCol: 0,
	}
	if w.PeakID() != 5 {
		t.Errorf("PeakID() = %d, want 5", w.PeakID())
	}
	present := w.Present()
	if present[0][0] || !present[0][1] || present.Count() != 3 {
		t.Errorf("Present() = %v", present)
	}

	c := &SignalCube{
		Signal: [][][]float64{
			{{1, 2, 3}, {4, 5, 6}},
			{{0, 0, 1}, {1, 1, 1}},
		},
		X: []float64{10, 20, 30},
	}
	sum := c.SumOver(TOFWindow{1, 3})
	want := [][]float64{{5, 11}, {1, 2}}
	for r := range want {
		for col := range want[r] {
			if sum[r][col] != want[r][col] {
				t.Errorf("SumOver[%d][%d] = %g, want %g", r, col, sum[r][col], want[r][col])
			}
		}
	}
	if c.NumBins() != 3 {
		t.Errorf("NumBins() = %d, want 3", c.NumBins())
	}
}
