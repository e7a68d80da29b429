package window

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// edgeColumn is the first or last column of a bank, indexed for nearest
// neighbour search. Step is the column increment that moves from the edge
// into the bank.
type edgeColumn struct {
	Pos  r3.Vector
	Bank string
	Col  int
	Step int
}

// Compare implements the kdtree.Comparable interface
func (e edgeColumn) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(edgeColumn)
	switch d {
	case 0:
		return e.Pos.X - q.Pos.X
	case 1:
		return e.Pos.Y - q.Pos.Y
	case 2:
		return e.Pos.Z - q.Pos.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (e edgeColumn) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two columns
func (e edgeColumn) Distance(c kdtree.Comparable) float64 {
	d := e.Pos.Sub(c.(edgeColumn).Pos)
	return d.Dot(d)
}

// edgeColumns satisfies kdtree.Interface
type edgeColumns []edgeColumn

func (e edgeColumns) Index(i int) kdtree.Comparable         { return e[i] }
func (e edgeColumns) Len() int                              { return len(e) }
func (e edgeColumns) Slice(start, end int) kdtree.Interface { return e[start:end] }

// Pivot implements the kdtree.Interface method
func (e edgeColumns) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(columnPlane{edgeColumns: e, Dim: d}, kdtree.MedianOfRandoms(columnPlane{edgeColumns: e, Dim: d}, 100))
}

// columnPlane implements sort.Interface and kdtree.SortSlicer for edgeColumns
type columnPlane struct {
	edgeColumns
	kdtree.Dim
}

func (p columnPlane) Less(i, j int) bool {
	return p.edgeColumns[i].Compare(p.edgeColumns[j], p.Dim) < 0
}

func (p columnPlane) Slice(start, end int) kdtree.SortSlicer {
	return columnPlane{edgeColumns: p.edgeColumns[start:end], Dim: p.Dim}
}

func (p columnPlane) Swap(i, j int) {
	p.edgeColumns[i], p.edgeColumns[j] = p.edgeColumns[j], p.edgeColumns[i]
}

// buildEdgeTree indexes the two end columns of every bank.
func buildEdgeTree(addr Addressing) *kdtree.Tree {
	var cols edgeColumns
	for _, bank := range addr.Banks() {
		n := addr.Columns(bank)
		if pos, ok := addr.ColumnPosition(bank, 1); ok {
			cols = append(cols, edgeColumn{Pos: pos, Bank: bank, Col: 1, Step: 1})
		}
		if n > 1 {
			if pos, ok := addr.ColumnPosition(bank, n); ok {
				cols = append(cols, edgeColumn{Pos: pos, Bank: bank, Col: n, Step: -1})
			}
		}
	}
	if len(cols) == 0 {
		return nil
	}
	return kdtree.New(cols, false)
}

// nearestForeignEdge returns the closest edge column of a sibling bank
// lying strictly within radius of pos.
func nearestForeignEdge(tree *kdtree.Tree, addr Addressing, bank string, pos r3.Vector, radius float64) (edgeColumn, bool) {
	if tree == nil {
		return edgeColumn{}, false
	}
	limit := radius * radius
	keeper := kdtree.NewDistKeeper(limit)
	tree.NearestSet(keeper, edgeColumn{Pos: pos})

	group := addr.Group(bank)
	var best edgeColumn
	bestDist := limit
	found := false
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		cand := item.Comparable.(edgeColumn)
		if cand.Bank == bank || addr.Group(cand.Bank) != group {
			continue
		}
		closer := item.Dist < bestDist
		// Equal distances resolve by name so tree shape cannot change the answer.
		if found && item.Dist == bestDist {
			closer = cand.Bank < best.Bank || (cand.Bank == best.Bank && cand.Col < best.Col)
		}
		if closer {
			best, bestDist, found = cand, item.Dist, true
		}
	}
	return best, found
}
