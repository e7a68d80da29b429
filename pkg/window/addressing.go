package window

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/golang/geo/r3"

	"peakskew/pkg/instrument"
)

// Address locates a detector pixel as (column, row) within a bank.
// Columns and rows are numbered from 1.
type Address struct {
	Bank string
	Col  int
	Row  int
}

// Addressing gives structured access to banks of detector columns.
// Back-ends that already know row and column indices can implement it
// directly; NameAddressing derives them from component names.
type Addressing interface {
	// Locate returns the address of a detector.
	Locate(detID int) (Address, error)

	// DetectorAt returns the detector at an address, 0 when there is none.
	DetectorAt(a Address) int

	// Columns and Rows return the extent of a bank.
	Columns(bank string) int
	Rows(bank string) int

	// ColumnPosition returns the centre of a column.
	ColumnPosition(bank string, col int) (r3.Vector, bool)

	// Banks lists every bank.
	Banks() []string

	// Group names the component holding the bank; banks with the same
	// group are siblings.
	Group(bank string) string
}

type columnEntry struct {
	pos  r3.Vector
	rows map[int]int
}

type bankEntry struct {
	group string
	cols  map[int]*columnEntry
	ncols int
	nrows int
}

// NameAddressing indexes a tube instrument whose banks hold columns named
// <prefix><n> which in turn hold pixels named <prefix><m>, such as
// bank12/tube007/pixel113. Names are parsed once when the index is built.
type NameAddressing struct {
	banks   map[string]*bankEntry
	order   []string
	located map[int]Address
}

// NewNameAddressing builds the index from the instrument tree. Detectors
// whose names do not end in a number are left out of the index.
func NewNameAddressing(inst *instrument.Instrument) (*NameAddressing, error) {
	na := &NameAddressing{
		banks:   make(map[string]*bankEntry),
		located: make(map[int]Address),
	}
	for _, id := range inst.DetectorIDs() {
		px, err := inst.Detector(id)
		if err != nil {
			continue
		}
		tube := px.Parent()
		if tube == nil || tube.Parent() == nil {
			continue
		}
		bank := tube.Parent()
		_, row, okRow := trailingNumber(px.Name)
		_, col, okCol := trailingNumber(tube.Name)
		if !okRow || !okCol {
			continue
		}

		be, ok := na.banks[bank.Name]
		if !ok {
			group := ""
			if bank.Parent() != nil {
				group = bank.Parent().Name
			}
			be = &bankEntry{group: group, cols: make(map[int]*columnEntry)}
			na.banks[bank.Name] = be
			na.order = append(na.order, bank.Name)
		}
		ce, ok := be.cols[col]
		if !ok {
			ce = &columnEntry{pos: tube.Position, rows: make(map[int]int)}
			be.cols[col] = ce
		}
		if prev, dup := ce.rows[row]; dup && prev != id {
			return nil, fmt.Errorf("bank %s column %d row %d holds detectors %d and %d", bank.Name, col, row, prev, id)
		}
		ce.rows[row] = id
		be.ncols = max(be.ncols, col)
		be.nrows = max(be.nrows, row)
		na.located[id] = Address{Bank: bank.Name, Col: col, Row: row}
	}
	sort.Strings(na.order)
	return na, nil
}

// trailingNumber splits "tube007" into ("tube", 7).
func trailingNumber(name string) (string, int, bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}

// Locate returns the address of a detector.
func (na *NameAddressing) Locate(detID int) (Address, error) {
	a, ok := na.located[detID]
	if !ok {
		return Address{}, fmt.Errorf("detector %d has no column address: %w", detID, instrument.ErrUnknownDetector)
	}
	return a, nil
}

// DetectorAt returns the detector at an address, 0 when there is none.
func (na *NameAddressing) DetectorAt(a Address) int {
	be, ok := na.banks[a.Bank]
	if !ok {
		return 0
	}
	ce, ok := be.cols[a.Col]
	if !ok {
		return 0
	}
	return ce.rows[a.Row]
}

// Columns returns the highest column number of a bank.
func (na *NameAddressing) Columns(bank string) int {
	if be, ok := na.banks[bank]; ok {
		return be.ncols
	}
	return 0
}

// Rows returns the highest row number of a bank.
func (na *NameAddressing) Rows(bank string) int {
	if be, ok := na.banks[bank]; ok {
		return be.nrows
	}
	return 0
}

// ColumnPosition returns the centre of a column.
func (na *NameAddressing) ColumnPosition(bank string, col int) (r3.Vector, bool) {
	be, ok := na.banks[bank]
	if !ok {
		return r3.Vector{}, false
	}
	ce, ok := be.cols[col]
	if !ok {
		return r3.Vector{}, false
	}
	return ce.pos, true
}

// Banks lists the indexed banks in name order.
func (na *NameAddressing) Banks() []string {
	return na.order
}

// Group returns the name of the bank's parent component.
func (na *NameAddressing) Group(bank string) string {
	if be, ok := na.banks[bank]; ok {
		return be.group
	}
	return ""
}
