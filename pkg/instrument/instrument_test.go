package instrument

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func TestRectangularBankLocate(t *testing.T) {
	banks := []RectangularBank{
		{Name: "colmajor", NRows: 4, NCols: 3, FirstID: 100, RowStride: 1, ColStride: 4},
		{Name: "rowmajor", NRows: 4, NCols: 3, FirstID: 200, RowStride: 3, ColStride: 1},
	}
	for _, b := range banks {
		for r := 0; r < b.NRows; r++ {
			for c := 0; c < b.NCols; c++ {
				id := b.DetectorID(r, c)
				gr, gc, ok := b.Locate(id)
				if !ok || gr != r || gc != c {
					t.Errorf("%s: Locate(%d) = (%d, %d, %v), want (%d, %d)", b.Name, id, gr, gc, ok, r, c)
				}
			}
		}
		if _, _, ok := b.Locate(b.FirstID - 1); ok {
			t.Errorf("%s: ID below the bank should not locate", b.Name)
		}
		if b.DetectorID(b.NRows, 0) != 0 {
			t.Errorf("%s: out-of-range pixel should have ID 0", b.Name)
		}
	}
}

func TestAddRectangularBankRejectsOverlap(t *testing.T) {
	inst := New("TEST")
	if err := inst.AddRectangularBank(RectangularBank{Name: "a", NRows: 2, NCols: 2, FirstID: 1, RowStride: 1, ColStride: 2}); err != nil {
		t.Fatal(err)
	}
	err := inst.AddRectangularBank(RectangularBank{Name: "b", NRows: 2, NCols: 2, FirstID: 3, RowStride: 1, ColStride: 2})
	if err == nil {
		t.Fatal("expected an overlap error")
	}
}

func TestAddTubeBank(t *testing.T) {
	inst := New("TUBES")
	bank, err := inst.AddTubeBank(nil, TubeBank{
		Name: "bank1", Tubes: 3, Pixels: 4, FirstID: 1,
		TubeStep:  r3.Vector{X: 0.01},
		PixelStep: r3.Vector{Y: 0.005},
		Digits:    3,
	})
	if err != nil {
		t.Fatalf("AddTubeBank failed: %v", err)
	}

	if got := len(bank.Children()); got != 3 {
		t.Fatalf("bank has %d tubes, want 3", got)
	}
	tube := bank.Child("tube002")
	if tube == nil {
		t.Fatal("tube002 not found")
	}
	px := tube.Child("pixel004")
	if px == nil || px.DetectorID != 8 {
		t.Fatalf("pixel004 of tube002 = %+v, want detector 8", px)
	}
	if px.Parent() != tube || tube.Parent() != bank || bank.Parent() != inst.Root() {
		t.Error("parent links are broken")
	}

	// tube centre sits halfway along its pixels
	if math.Abs(tube.Position.Y-0.0075) > 1e-12 || math.Abs(tube.Position.X-0.01) > 1e-12 {
		t.Errorf("tube002 position = %v", tube.Position)
	}

	c, err := inst.Detector(8)
	if err != nil || c != px {
		t.Errorf("Detector(8) = %v, %v", c, err)
	}
	if _, err := inst.Detector(99); !errors.Is(err, ErrUnknownDetector) {
		t.Errorf("Detector(99) error = %v, want ErrUnknownDetector", err)
	}
	if inst.ComponentByName("bank1") != bank {
		t.Error("ComponentByName did not find bank1")
	}
	if _, err := inst.AddTubeBank(nil, TubeBank{Name: "dup", Tubes: 1, Pixels: 1, FirstID: 5}); err == nil {
		t.Error("expected duplicate detector error")
	}
}

func TestWorkspaceSpectrumIndices(t *testing.T) {
	inst := New("TEST")
	if err := inst.AddRectangularBank(RectangularBank{Name: "a", NRows: 2, NCols: 2, FirstID: 1, RowStride: 1, ColStride: 2}); err != nil {
		t.Fatal(err)
	}
	ws := NewWorkspace(inst, []float64{0, 1, 2, 3})
	for _, id := range []int{4, 2} {
		if _, err := ws.AddSpectrum(id, []float64{1, 2, 3}, []float64{1, 1, 1}); err != nil {
			t.Fatalf("AddSpectrum(%d) failed: %v", id, err)
		}
	}

	idx, err := ws.SpectrumIndices([]int{2, 4})
	if err != nil {
		t.Fatal(err)
	}
	if idx[0] != 1 || idx[1] != 0 {
		t.Errorf("SpectrumIndices = %v, want [1 0]", idx)
	}
	if _, err := ws.SpectrumIndices([]int{3}); !errors.Is(err, ErrUnknownDetector) {
		t.Errorf("missing spectrum error = %v", err)
	}
	if _, err := ws.AddSpectrum(9, []float64{1, 2, 3}, []float64{1, 1, 1}); err == nil {
		t.Error("spectrum for an unknown detector should fail")
	}
	if _, err := ws.AddSpectrum(1, []float64{1, 2}, []float64{1, 1}); err == nil {
		t.Error("spectrum not matching the TOF axis should fail")
	}
	if ws.NumBins() != 3 {
		t.Errorf("NumBins = %d, want 3", ws.NumBins())
	}
}

func TestParseDataset(t *testing.T) {
	doc := `
instrument: MINI
groups:
  - name: module1
banks:
  - name: bankA
    type: tubes
    parent: module1
    tubes: 2
    pixels: 3
    firstId: 10
    tubeStep: [0.01, 0, 0]
    pixelStep: [0, 0.01, 0]
  - name: panel
    type: rectangular
    rows: 2
    cols: 2
    firstId: 100
    rowStride: 1
    colStride: 2
tof:
  start: 1000
  width: 10
  bins: 4
background: 4
masked: [11]
spectra:
  - detector: 10
    counts: [1, 9, 16, 0]
`
	ws, err := ParseDataset([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDataset failed: %v", err)
	}
	inst := ws.Instrument()
	if inst.Name != "MINI" || !inst.IsMasked(11) || inst.IsMasked(10) {
		t.Errorf("instrument flags not loaded")
	}
	if bank := inst.ComponentByName("bankA"); bank == nil || bank.Parent().Name != "module1" {
		t.Error("bankA should hang below module1")
	}

	idx, err := ws.SpectrumIndices([]int{10, 101})
	if err != nil {
		t.Fatalf("SpectrumIndices failed: %v", err)
	}
	if e := ws.ReadE(idx[0]); e[1] != 3 || e[2] != 4 {
		t.Errorf("Poisson errors = %v", e)
	}
	if y := ws.ReadY(idx[1]); y[0] != 4 || len(y) != 4 {
		t.Errorf("background spectrum = %v", y)
	}
	if x := ws.ReadX(idx[0]); len(x) != 5 || x[4] != 1040 {
		t.Errorf("TOF edges = %v", x)
	}
}
