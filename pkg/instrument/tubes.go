package instrument

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// TubeBank describes a bank of parallel linear detector tubes. Tubes and
// pixels are numbered from 1 and named <prefix><number>, with the number
// zero-padded to Digits when Digits > 0.
type TubeBank struct {
	Name    string
	Tubes   int
	Pixels  int
	FirstID int

	// Origin is the position of pixel 1 of tube 1.
	Origin r3.Vector

	// TubeStep separates neighbouring tubes; PixelStep neighbouring pixels.
	TubeStep  r3.Vector
	PixelStep r3.Vector

	TubePrefix  string
	PixelPrefix string
	Digits      int
}

// DetectorID returns the ID assigned to (tube, pixel), both 1-based.
func (b TubeBank) DetectorID(tube, pixel int) int {
	return b.FirstID + (tube-1)*b.Pixels + (pixel - 1)
}

func (b TubeBank) name(prefix string, n int) string {
	if b.Digits > 0 {
		return fmt.Sprintf("%s%0*d", prefix, b.Digits, n)
	}
	return fmt.Sprintf("%s%d", prefix, n)
}

// AddTubeBank materialises a tube bank under parent (the instrument root when
// parent is nil) and returns the bank component. Tube components sit at the
// centre of their pixels.
func (i *Instrument) AddTubeBank(parent *Component, b TubeBank) (*Component, error) {
	if b.Tubes < 1 || b.Pixels < 1 {
		return nil, fmt.Errorf("tube bank %q: needs at least one tube and pixel", b.Name)
	}
	if b.TubePrefix == "" {
		b.TubePrefix = "tube"
	}
	if b.PixelPrefix == "" {
		b.PixelPrefix = "pixel"
	}
	if parent == nil {
		parent = i.root
	}

	half := b.PixelStep.Mul(float64(b.Pixels-1) / 2)
	bank := NewComponent(b.Name, b.Origin.Add(b.TubeStep.Mul(float64(b.Tubes-1)/2)).Add(half))
	for t := 1; t <= b.Tubes; t++ {
		start := b.Origin.Add(b.TubeStep.Mul(float64(t - 1)))
		tube := NewComponent(b.name(b.TubePrefix, t), start.Add(half))
		for p := 1; p <= b.Pixels; p++ {
			id := b.DetectorID(t, p)
			if i.Known(id) {
				return nil, fmt.Errorf("tube bank %q: detector %d already assigned", b.Name, id)
			}
			px := NewComponent(b.name(b.PixelPrefix, p), start.Add(b.PixelStep.Mul(float64(p-1))))
			px.DetectorID = id
			tube.children = append(tube.children, px)
			px.parent = tube
		}
		bank.children = append(bank.children, tube)
		tube.parent = bank
	}
	return i.Attach(parent, bank), nil
}

// AddGroup adds a plain grouping component, such as a detector module that
// holds several banks.
func (i *Instrument) AddGroup(parent *Component, name string, pos r3.Vector) *Component {
	if parent == nil {
		parent = i.root
	}
	return i.Attach(parent, NewComponent(name, pos))
}
