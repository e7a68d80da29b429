package window

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"peakskew/internal/models"
	"peakskew/pkg/instrument"
)

// neighbour is the continuation of a bank past one of its edges.
type neighbour struct {
	found bool
	bank  string
	col   int
	step  int
}

// columnAt returns the column reached m columns past the edge (m >= 1).
func (n neighbour) columnAt(m int) int {
	return n.col + (m-1)*n.step
}

type sideKey struct {
	bank string
	side int
}

// Assembly extracts windows from banks of linear tubes. Columns requested
// beyond a bank edge continue into the adjacent sibling bank when one is
// found within AdjacencyTolerance times the tube pitch.
type Assembly struct {
	addr  Addressing
	inst  *instrument.Instrument
	opts  Options
	edges *kdtree.Tree
	cache map[sideKey]neighbour
}

// NewAssembly creates the assembly strategy and indexes bank edges.
func NewAssembly(addr Addressing, inst *instrument.Instrument, opts Options) *Assembly {
	return &Assembly{
		addr:  addr,
		inst:  inst,
		opts:  opts,
		edges: buildEdgeTree(addr),
		cache: make(map[sideKey]neighbour),
	}
}

// adjacent finds the bank continuing past the left (side < 0) or right
// (side > 0) edge of bank.
func (a *Assembly) adjacent(bank string, side int) neighbour {
	key := sideKey{bank, side}
	if n, ok := a.cache[key]; ok {
		return n
	}

	var n neighbour
	ncols := a.addr.Columns(bank)
	first, okFirst := a.addr.ColumnPosition(bank, 1)
	last, okLast := a.addr.ColumnPosition(bank, ncols)
	if ncols > 1 && okFirst && okLast {
		pitch := first.Distance(last) / float64(ncols-1)
		from := first
		if side > 0 {
			from = last
		}
		if e, ok := nearestForeignEdge(a.edges, a.addr, bank, from, a.opts.AdjacencyTolerance*pitch); ok {
			n = neighbour{found: true, bank: e.Bank, col: e.Col, step: e.Step}
		}
	}
	a.cache[key] = n
	return n
}

// Window returns the window centred on detID. Columns whose pixels are all
// absent are dropped from the window.
func (a *Assembly) Window(detID int) (*models.DetectorWindow, error) {
	if err := checkDetector(a.inst, detID); err != nil {
		return nil, err
	}
	loc, err := a.addr.Locate(detID)
	if err != nil {
		return nil, err
	}

	ncols, nrows := a.addr.Columns(loc.Bank), a.addr.Rows(loc.Bank)
	r0, r1 := max(loc.Row-a.opts.DRows, 1), min(loc.Row+a.opts.DRows, nrows)
	left, right := a.adjacent(loc.Bank, -1), a.adjacent(loc.Bank, 1)

	rowEdge := func(bank string, row int) bool {
		n := a.addr.Rows(bank)
		return row-1 < a.opts.NRowsEdge || n-row < a.opts.NRowsEdge
	}

	type column struct {
		ids  []int
		edge []bool
	}
	var cols []column
	peakCol := -1
	for dc := -a.opts.DCols; dc <= a.opts.DCols; dc++ {
		col := loc.Col + dc
		bank, colEdge := loc.Bank, false
		switch {
		case col < 1:
			if !left.found {
				continue
			}
			bank, col = left.bank, left.columnAt(1-col)
		case col > ncols:
			if !right.found {
				continue
			}
			bank, col = right.bank, right.columnAt(col-ncols)
		default:
			colEdge = (col-1 < a.opts.NColsEdge && !left.found) || (ncols-col < a.opts.NColsEdge && !right.found)
		}

		c := column{ids: make([]int, r1-r0+1), edge: make([]bool, r1-r0+1)}
		present := false
		for row := r0; row <= r1; row++ {
			id := a.addr.DetectorAt(Address{Bank: bank, Col: col, Row: row})
			c.ids[row-r0] = id
			c.edge[row-r0] = colEdge || rowEdge(bank, row)
			present = present || id != 0
		}
		if !present {
			continue
		}
		if dc == 0 {
			peakCol = len(cols)
		}
		cols = append(cols, c)
	}

	w := &models.DetectorWindow{
		IDs:     newGrid[int](r1-r0+1, len(cols)),
		Edge:    newGrid[bool](r1-r0+1, len(cols)),
		PeakRow: loc.Row - r0,
		PeakCol: peakCol,
	}
	for ci, c := range cols {
		for ri := range c.ids {
			w.IDs[ri][ci] = c.ids[ri]
			w.Edge[ri][ci] = c.edge[ri]
		}
	}
	return w, nil
}
