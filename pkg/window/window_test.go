package window

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"

	"peakskew/pkg/instrument"
)

var testOpts = Options{DRows: 1, DCols: 2, NRowsEdge: 1, NColsEdge: 1, AdjacencyTolerance: 1.1}

// newTubeInstrument builds two 4x8 tube banks side by side in one module,
// a distant bank in the same module, and a bank in another module placed one
// pitch left of bank1. When mirrored, bank2's tubes are numbered right to left.
func newTubeInstrument(t *testing.T, mirrored bool, bank2Pixels int) *instrument.Instrument {
	t.Helper()
	inst := instrument.New("TUBES")
	module := inst.AddGroup(nil, "module1", r3.Vector{})
	other := inst.AddGroup(nil, "module2", r3.Vector{})

	pitch := r3.Vector{X: 0.01}
	pixel := r3.Vector{Y: 0.01}
	banks := []struct {
		parent *instrument.Component
		bank   instrument.TubeBank
	}{
		{module, instrument.TubeBank{Name: "bank1", Tubes: 4, Pixels: 8, FirstID: 1, TubeStep: pitch, PixelStep: pixel}},
		// Shorter tubes are centred on bank1's tubes.
		{module, instrument.TubeBank{Name: "bank2", Tubes: 4, Pixels: bank2Pixels, FirstID: 101,
			Origin: r3.Vector{X: 0.04, Y: float64(8-bank2Pixels) * 0.005}, TubeStep: pitch, PixelStep: pixel}},
		{module, instrument.TubeBank{Name: "bank3", Tubes: 4, Pixels: 8, FirstID: 201, Origin: r3.Vector{X: 1}, TubeStep: pitch, PixelStep: pixel}},
		{other, instrument.TubeBank{Name: "bank4", Tubes: 4, Pixels: 8, FirstID: 301, Origin: r3.Vector{X: -0.04}, TubeStep: pitch, PixelStep: pixel}},
	}
	if mirrored {
		banks[1].bank.Origin.X = 0.07
		banks[1].bank.TubeStep = r3.Vector{X: -0.01}
	}
	for _, b := range banks {
		if _, err := inst.AddTubeBank(b.parent, b.bank); err != nil {
			t.Fatalf("AddTubeBank(%s) failed: %v", b.bank.Name, err)
		}
	}
	return inst
}

func newPanelInstrument(t *testing.T) *instrument.Instrument {
	t.Helper()
	inst := instrument.New("PANEL")
	err := inst.AddRectangularBank(instrument.RectangularBank{
		Name: "bank1", NRows: 10, NCols: 10, FirstID: 1000, RowStride: 1, ColStride: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func TestNewExtractorSelectsStrategy(t *testing.T) {
	rect, err := NewExtractor(newPanelInstrument(t), testOpts)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rect.(*Rectangular); !ok {
		t.Errorf("panel instrument got %T, want *Rectangular", rect)
	}

	tubes, err := NewExtractor(newTubeInstrument(t, false, 8), testOpts)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tubes.(*Assembly); !ok {
		t.Errorf("tube instrument got %T, want *Assembly", tubes)
	}
}

func TestRectangularWindowInterior(t *testing.T) {
	inst := newPanelInstrument(t)
	ext := NewRectangular(inst, Options{DRows: 2, DCols: 1, NRowsEdge: 1, NColsEdge: 1})

	// row 5, col 4
	w, err := ext.Window(1045)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	want := [][]int{
		{1033, 1043, 1053},
		{1034, 1044, 1054},
		{1035, 1045, 1055},
		{1036, 1046, 1056},
		{1037, 1047, 1057},
	}
	if diff := cmp.Diff(want, w.IDs); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if w.PeakRow != 2 || w.PeakCol != 1 {
		t.Errorf("peak indices = (%d, %d), want (2, 1)", w.PeakRow, w.PeakCol)
	}
	if w.EdgeMask().Count() != 0 {
		t.Errorf("interior window should have no edge pixels")
	}
}

func TestRectangularWindowClampedAtCorner(t *testing.T) {
	inst := newPanelInstrument(t)
	ext := NewRectangular(inst, Options{DRows: 2, DCols: 2, NRowsEdge: 1, NColsEdge: 2})

	// row 0, col 9
	w, err := ext.Window(1090)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if w.Rows() != 3 || w.Cols() != 3 {
		t.Fatalf("window is %dx%d, want 3x3", w.Rows(), w.Cols())
	}
	if w.PeakRow != 0 || w.PeakCol != 2 {
		t.Errorf("peak indices = (%d, %d), want (0, 2)", w.PeakRow, w.PeakCol)
	}
	wantEdge := [][]bool{
		{true, true, true},
		{false, true, true},
		{false, true, true},
	}
	if diff := cmp.Diff(wantEdge, w.Edge); diff != "" {
		t.Errorf("edge mismatch (-want +got):\n%s", diff)
	}
}

func TestPeakIndicesAddressPeakDetector(t *testing.T) {
	for name, inst := range map[string]*instrument.Instrument{
		"panel": newPanelInstrument(t),
		"tubes": newTubeInstrument(t, false, 8),
	} {
		ext, err := NewExtractor(inst, testOpts)
		if err != nil {
			t.Fatal(err)
		}
		for _, id := range inst.DetectorIDs() {
			w, err := ext.Window(id)
			if err != nil {
				t.Fatalf("%s: Window(%d) failed: %v", name, id, err)
			}
			if got := w.PeakID(); got != id {
				t.Errorf("%s: Window(%d) peak cell holds %d", name, id, got)
			}
			if w.Rows() > 2*testOpts.DRows+1 || w.Cols() > 2*testOpts.DCols+1 {
				t.Errorf("%s: Window(%d) is %dx%d", name, id, w.Rows(), w.Cols())
			}
		}
	}
}

func TestAssemblyWindowContinuesIntoAdjacentBank(t *testing.T) {
	tests := []struct {
		name     string
		mirrored bool
		want     [][]int
	}{
		{"aligned", false, [][]int{
			{11, 19, 27, 103, 111},
			{12, 20, 28, 104, 112},
			{13, 21, 29, 105, 113},
		}},
		{"mirrored", true, [][]int{
			{11, 19, 27, 127, 119},
			{12, 20, 28, 128, 120},
			{13, 21, 29, 129, 121},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := newTubeInstrument(t, tt.mirrored, 8)
			ext, err := NewExtractor(inst, testOpts)
			if err != nil {
				t.Fatal(err)
			}

			// bank1 tube4 pixel4
			w, err := ext.Window(28)
			if err != nil {
				t.Fatalf("Window failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, w.IDs); diff != "" {
				t.Errorf("IDs mismatch (-want +got):\n%s", diff)
			}
			if w.PeakRow != 1 || w.PeakCol != 2 {
				t.Errorf("peak indices = (%d, %d), want (1, 2)", w.PeakRow, w.PeakCol)
			}
			if n := w.EdgeMask().Count(); n != 0 {
				t.Errorf("%d edge pixels flagged next to a confirmed neighbour", n)
			}
		})
	}
}

func TestAssemblyWindowAtUnconnectedEdge(t *testing.T) {
	inst := newTubeInstrument(t, false, 8)
	ext, err := NewExtractor(inst, testOpts)
	if err != nil {
		t.Fatal(err)
	}

	// bank1 tube1 pixel1; bank4 sits one pitch to the left but in another module
	w, err := ext.Window(1)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	wantIDs := [][]int{{1, 9, 17}, {2, 10, 18}}
	if diff := cmp.Diff(wantIDs, w.IDs); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	wantEdge := [][]bool{{true, true, true}, {true, false, false}}
	if diff := cmp.Diff(wantEdge, w.Edge); diff != "" {
		t.Errorf("edge mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemblyWindowTrimsEmptyColumns(t *testing.T) {
	inst := newTubeInstrument(t, false, 2)
	ext, err := NewExtractor(inst, testOpts)
	if err != nil {
		t.Fatal(err)
	}

	// bank1 tube4 pixel6: bank2 is adjacent but has no pixels at rows 5-7
	w, err := ext.Window(30)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	want := [][]int{{13, 21, 29}, {14, 22, 30}, {15, 23, 31}}
	if diff := cmp.Diff(want, w.IDs); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if w.EdgeMask().Count() != 0 {
		t.Errorf("bank1's right edge has a neighbour and must not be flagged")
	}
}

func TestUnavailableDetectors(t *testing.T) {
	inst := newPanelInstrument(t)
	inst.SetMasked(1011)
	inst.SetMonitors(1012)
	ext := NewRectangular(inst, testOpts)

	for _, id := range []int{1011, 1012} {
		if _, err := ext.Window(id); !errors.Is(err, ErrDetectorUnavailable) {
			t.Errorf("Window(%d) error = %v, want ErrDetectorUnavailable", id, err)
		}
	}
	if _, err := ext.Window(5); !errors.Is(err, instrument.ErrUnknownDetector) {
		t.Errorf("Window(5) error = %v, want ErrUnknownDetector", err)
	}
}

// gridAddressing is a back-end that knows row and column indices directly.
type gridAddressing struct {
	cols, rows int
}

func (g gridAddressing) Locate(detID int) (Address, error) {
	if detID < 1 || detID > g.cols*g.rows {
		return Address{}, instrument.ErrUnknownDetector
	}
	return Address{Bank: "grid", Col: (detID-1)/g.rows + 1, Row: (detID-1)%g.rows + 1}, nil
}

func (g gridAddressing) DetectorAt(a Address) int {
	if a.Bank != "grid" || a.Col < 1 || a.Col > g.cols || a.Row < 1 || a.Row > g.rows {
		return 0
	}
	return (a.Col-1)*g.rows + a.Row
}

func (g gridAddressing) Columns(string) int { return g.cols }
func (g gridAddressing) Rows(string) int { return g.rows }
func (g gridAddressing) ColumnPosition(_ string, col int) (r3.Vector, bool) {
	return r3.Vector{X: float64(col)}, true
}
func (g gridAddressing) Banks() []string { return []string{"grid"} }
func (g gridAddressing) Group(string) string { return "" }

func TestAssemblyWithStructuredAddressing(t *testing.T) {
	inst := instrument.New("GRID")
	if _, err := inst.AddTubeBank(nil, instrument.TubeBank{Name: "grid", Tubes: 5, Pixels: 5, FirstID: 1}); err != nil {
		t.Fatal(err)
	}
	ext := NewAssembly(gridAddressing{cols: 5, rows: 5}, inst, Options{DRows: 1, DCols: 1, AdjacencyTolerance: 1.1})

	w, err := ext.Window(13)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	want := [][]int{{7, 12, 17}, {8, 13, 18}, {9, 14, 19}}
	if diff := cmp.Diff(want, w.IDs); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestTrailingNumber(t *testing.T) {
	tests := []struct {
		in     string
		prefix string
		n      int
		ok     bool
	}{
		{"tube007", "tube", 7, true},
		{"pixel12", "pixel", 12, true},
		{"bank", "bank", 0, false},
		{"42", "", 42, true},
	}
	for _, tt := range tests {
		prefix, n, ok := trailingNumber(tt.in)
		if prefix != tt.prefix || n != tt.n || ok != tt.ok {
			t.Errorf("trailingNumber(%q) = (%q, %d, %v), want (%q, %d, %v)", tt.in, prefix, n, ok, tt.prefix, tt.n, tt.ok)
		}
	}
}
