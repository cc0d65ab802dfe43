package flowfield

import (
	"slices"

	"hordesim/internal/geom"
)

// State is a deep copy of a field's layers, safe to use after the owner's
// lock is released. The overlay renderer and debug endpoints consume it.
type State struct {
	Width    int
	Height   int
	CellSize float64
	Origin   geom.Vec2

	GoalCol int
	GoalRow int
	HasGoal bool

	Costs       []uint8
	Integration []uint16
	Directions  []geom.Vec2
}

// Snapshot copies all field layers into a State. This allocates three
// grid-sized slices; it is meant for rendering and debugging, not the
// tick path.
func (f *Field) Snapshot() State {
	return State{
		Width:       f.width,
		Height:      f.height,
		CellSize:    f.cellSize,
		Origin:      f.origin,
		GoalCol:     f.goalCol,
		GoalRow:     f.goalRow,
		HasGoal:     f.hasGoal,
		Costs:       slices.Clone(f.costs),
		Integration: slices.Clone(f.integration),
		Directions:  slices.Clone(f.directions),
	}
}

// Index returns the flat index of a cell in the copied layers.
func (s *State) Index(col, row int) int {
	return row*s.Width + col
}
