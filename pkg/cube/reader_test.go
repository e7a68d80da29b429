package cube

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"peakskew/internal/models"
	"peakskew/pkg/instrument"
)

func newTestWorkspace(t *testing.T, x []float64) *instrument.Workspace {
	t.Helper()
	inst := instrument.New("TEST")
	if err := inst.AddRectangularBank(instrument.RectangularBank{
		Name: "bank1", NRows: 2, NCols: 2, FirstID: 1, RowStride: 1, ColStride: 2,
	}); err != nil {
		t.Fatal(err)
	}
	ws := instrument.NewWorkspace(inst, x)
	for id := 1; id <= 3; id++ {
		v := float64(id)
		if _, err := ws.AddSpectrum(id, []float64{v, 2 * v, 3 * v}, []float64{1, 2, 3}); err != nil {
			t.Fatal(err)
		}
	}
	return ws
}

func TestReadWindow(t *testing.T) {
	ws := newTestWorkspace(t, []float64{10, 20, 30, 40})
	w := &models.DetectorWindow{IDs: [][]int{{1, 3}, {2, 0}}}

	c, err := NewReader(ws).Read(w)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	wantSignal := [][][]float64{
		{{1, 2, 3}, {3, 6, 9}},
		{{2, 4, 6}, {0, 0, 0}},
	}
	if diff := cmp.Diff(wantSignal, c.Signal); diff != "" {
		t.Errorf("signal mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 4, 9}, c.ErrorSq[0][1]); diff != "" {
		t.Errorf("squared errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 0, 0}, c.ErrorSq[1][1]); diff != "" {
		t.Errorf("absent pixel errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{15, 25, 35}, c.X); diff != "" {
		t.Errorf("bin centres mismatch (-want +got):\n%s", diff)
	}
}

func TestReadDoesNotAliasDataset(t *testing.T) {
	ws := newTestWorkspace(t, []float64{10, 20, 30})
	c, err := NewReader(ws).Read(&models.DetectorWindow{IDs: [][]int{{1}}})
	if err != nil {
		t.Fatal(err)
	}
	c.Signal[0][0][0] = 99
	if got := ws.ReadY(0)[0]; got != 1 {
		t.Errorf("dataset was modified through the cube: %v", got)
	}
	if diff := cmp.Diff([]float64{10, 20, 30}, c.X); diff != "" {
		t.Errorf("centres axis mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMissingSpectrum(t *testing.T) {
	ws := newTestWorkspace(t, []float64{10, 20, 30})
	_, err := NewReader(ws).Read(&models.DetectorWindow{IDs: [][]int{{1, 4}}})
	if !errors.Is(err, instrument.ErrUnknownDetector) {
		t.Errorf("Read error = %v, want ErrUnknownDetector", err)
	}
}
