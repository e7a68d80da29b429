// Package instrument models the read-only collaborators of peak integration:
// the instrument geometry (a tree of named components with positions, plus
// rectangular detector banks) and the dataset of per-detector spectra.
package instrument

import (
	"errors"
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
)

// ErrUnknownDetector is returned when a detector ID is not part of the instrument.
var ErrUnknownDetector = errors.New("unknown detector")

// Component is a node in the instrument tree. Leaf components with a
// non-zero DetectorID are detector pixels.
type Component struct {
	// Name is unique among the component's siblings.
	Name string

	// Position is the component's centre in the laboratory frame (metres).
	Position r3.Vector

	// DetectorID is non-zero for detector pixels.
	DetectorID int

	parent   *Component
	children []*Component
}

// NewComponent creates a detached component.
func NewComponent(name string, pos r3.Vector) *Component {
	return &Component{Name: name, Position: pos}
}

// Parent returns the enclosing component, nil for the instrument root.
func (c *Component) Parent() *Component { return c.parent }

// Children returns the direct children in insertion order.
func (c *Component) Children() []*Component { return c.children }

// Child returns the direct child with the given name, or nil.
func (c *Component) Child(name string) *Component {
	for _, ch := range c.children {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// IsDetector reports whether the component is a detector pixel.
func (c *Component) IsDetector() bool { return c.DetectorID != 0 }

// walk visits c and every descendant depth first.
func (c *Component) walk(fn func(*Component) bool) bool {
	if !fn(c) {
		return false
	}
	for _, ch := range c.children {
		if !ch.walk(fn) {
			return false
		}
	}
	return true
}

// RectangularBank is a detector panel whose pixel IDs follow fixed row and
// column strides: id(row, col) = FirstID + row*RowStride + col*ColStride.
type RectangularBank struct {
	Name      string
	NRows     int
	NCols     int
	FirstID   int
	RowStride int
	ColStride int
}

// DetectorID returns the ID of the pixel at (row, col), 0 if out of range.
func (b RectangularBank) DetectorID(row, col int) int {
	if row < 0 || row >= b.NRows || col < 0 || col >= b.NCols {
		return 0
	}
	return b.FirstID + row*b.RowStride + col*b.ColStride
}

// Locate inverts DetectorID.
func (b RectangularBank) Locate(id int) (row, col int, ok bool) {
	off := id - b.FirstID
	if off < 0 {
		return 0, 0, false
	}
	// The larger stride is the outer index.
	if b.ColStride >= b.RowStride {
		col, row = off/b.ColStride, (off%b.ColStride)/b.RowStride
	} else {
		row, col = off/b.RowStride, (off%b.RowStride)/b.ColStride
	}
	if b.DetectorID(row, col) != id {
		return 0, 0, false
	}
	return row, col, true
}

// Instrument is the geometry collaborator. It is built once and then only read.
type Instrument struct {
	// Name identifies the instrument; peak tables must carry the same name.
	Name string

	root      *Component
	detectors map[int]*Component
	rect      []RectangularBank
	rectIndex map[int]int
	masked    map[int]bool
	monitors  map[int]bool
}

// New creates an instrument with an empty root component.
func New(name string) *Instrument {
	return &Instrument{
		Name:      name,
		root:      NewComponent(name, r3.Vector{}),
		detectors: make(map[int]*Component),
		rectIndex: make(map[int]int),
		masked:    make(map[int]bool),
		monitors:  make(map[int]bool),
	}
}

// Root returns the top of the component tree.
func (i *Instrument) Root() *Component { return i.root }

// Attach adds child below parent and indexes any detectors it contains.
func (i *Instrument) Attach(parent, child *Component) *Component {
	child.parent = parent
	parent.children = append(parent.children, child)
	child.walk(func(c *Component) bool {
		if c.IsDetector() {
			i.detectors[c.DetectorID] = c
		}
		return true
	})
	return child
}

// AddRectangularBank registers a rectangular panel. Its pixels are known to
// the instrument but are not materialised as components.
func (i *Instrument) AddRectangularBank(b RectangularBank) error {
	if b.NRows < 1 || b.NCols < 1 || b.RowStride < 1 || b.ColStride < 1 {
		return fmt.Errorf("rectangular bank %q: invalid extent or strides", b.Name)
	}
	idx := len(i.rect)
	for r := 0; r < b.NRows; r++ {
		for c := 0; c < b.NCols; c++ {
			id := b.DetectorID(r, c)
			if _, dup := i.rectIndex[id]; dup {
				return fmt.Errorf("rectangular bank %q: detector %d already assigned", b.Name, id)
			}
			i.rectIndex[id] = idx
		}
	}
	i.rect = append(i.rect, b)
	return nil
}

// HasRectangularBanks reports whether any rectangular panel is registered.
func (i *Instrument) HasRectangularBanks() bool { return len(i.rect) > 0 }

// RectangularBanks returns the registered panels.
func (i *Instrument) RectangularBanks() []RectangularBank { return i.rect }

// RectangularBankOf returns the panel containing a detector.
func (i *Instrument) RectangularBankOf(id int) (RectangularBank, bool) {
	idx, ok := i.rectIndex[id]
	if !ok {
		return RectangularBank{}, false
	}
	return i.rect[idx], true
}

// Detector returns the component of a tube-style detector pixel.
func (i *Instrument) Detector(id int) (*Component, error) {
	c, ok := i.detectors[id]
	if !ok {
		return nil, fmt.Errorf("detector %d: %w", id, ErrUnknownDetector)
	}
	return c, nil
}

// Known reports whether the ID belongs to any detector.
func (i *Instrument) Known(id int) bool {
	if _, ok := i.detectors[id]; ok {
		return true
	}
	_, ok := i.rectIndex[id]
	return ok
}

// ComponentByName returns the first component with the given name in
// depth-first order, or nil.
func (i *Instrument) ComponentByName(name string) *Component {
	var found *Component
	i.root.walk(func(c *Component) bool {
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// SetMasked flags detectors as masked.
func (i *Instrument) SetMasked(ids ...int) {
	for _, id := range ids {
		i.masked[id] = true
	}
}

// SetMonitors flags detectors as monitors.
func (i *Instrument) SetMonitors(ids ...int) {
	for _, id := range ids {
		i.monitors[id] = true
	}
}

// IsMasked reports whether a detector is masked.
func (i *Instrument) IsMasked(id int) bool { return i.masked[id] }

// IsMonitor reports whether a detector is a monitor.
func (i *Instrument) IsMonitor(id int) bool { return i.monitors[id] }

// DetectorIDs returns every detector ID in ascending order.
func (i *Instrument) DetectorIDs() []int {
	ids := make([]int, 0, len(i.detectors)+len(i.rectIndex))
	for id := range i.detectors {
		ids = append(ids, id)
	}
	for id := range i.rectIndex {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
