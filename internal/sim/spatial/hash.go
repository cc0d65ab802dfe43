// Package spatial provides the broad-phase structures the simulation uses
// to find nearby agents without scanning every pair.
package spatial

import "math"

type cellKey struct {
	col int32
	row int32
}

// Hash buckets agent indices by square cell on the XZ plane. It is rebuilt
// every pass rather than updated incrementally, which keeps it trivially
// correct while agents move.
//
// Not safe for concurrent use.
type Hash struct {
	cellSize float64
	inv      float64
	buckets  map[cellKey][]int32
	scratch  []int32
}

// NewHash creates an empty hash with the given cell size. A non-positive
// size is replaced with 1.
func NewHash(cellSize float64) *Hash {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Hash{
		cellSize: cellSize,
		inv:      1 / cellSize,
		buckets:  make(map[cellKey][]int32),
	}
}

// Reset empties the hash and adopts a new cell size.
func (h *Hash) Reset(cellSize float64) {
	if cellSize <= 0 {
		cellSize = 1
	}
	h.cellSize = cellSize
	h.inv = 1 / cellSize
	clear(h.buckets)
}

func (h *Hash) key(x, z float64) cellKey {
	return cellKey{
		col: int32(math.Floor(x * h.inv)),
		row: int32(math.Floor(z * h.inv)),
	}
}

// Insert records an agent index at a world position.
func (h *Hash) Insert(idx int32, x, z float64) {
	k := h.key(x, z)
	h.buckets[k] = append(h.buckets[k], idx)
}

// Neighborhood returns the indices stored in the cell containing (x, z)
// and its eight surrounding cells. With the cell size matching the
// interaction radius, every agent within that radius is guaranteed to be
// in one of those nine cells. The returned slice is reused by the next
// call; do not retain it.
func (h *Hash) Neighborhood(x, z float64) []int32 {
	k := h.key(x, z)
	out := h.scratch[:0]
	for dr := int32(-1); dr <= 1; dr++ {
		for dc := int32(-1); dc <= 1; dc++ {
			out = append(out, h.buckets[cellKey{col: k.col + dc, row: k.row + dr}]...)
		}
	}
	h.scratch = out
	return out
}
