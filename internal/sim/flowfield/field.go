// Package flowfield implements a grid flow field for steering large groups
// of agents toward a shared goal.
//
// The field keeps three flat row-major layers over the same grid: a cost
// layer describing how expensive each cell is to cross, an integration
// layer holding the accumulated travel cost from each cell to the goal,
// and a direction layer holding the unit vector each cell should follow.
// Solving runs a wavefront out from the goal and then points every cell at
// its cheapest neighbor, so any number of agents can share one solve.
package flowfield

import (
	"math"

	"hordesim/internal/geom"
)

const (
	// CostMin and CostMax bound the traversable cost range. SetCost clamps
	// into this range so a cost of zero can never make a cell free to cross.
	CostMin uint8 = 1
	CostMax uint8 = 254

	// CostBlocked marks a cell as impassable. Blocked cells never receive
	// an integration value and always carry a zero direction.
	CostBlocked uint8 = 255

	// Unreached is the integration value of cells the wavefront never
	// visited: blocked cells, and cells with no path to the goal.
	Unreached uint16 = math.MaxUint16
)

// Field is a solvable flow field over a fixed-size grid anchored in world
// space. The zero value is not usable; construct with New.
//
// A Field is not safe for concurrent use. The engine owns one and
// serializes all access through its tick loop.
type Field struct {
	width    int
	height   int
	cellSize float64
	origin   geom.Vec2

	costs       []uint8
	integration []uint16
	directions  []geom.Vec2

	goalCol int
	goalRow int
	hasGoal bool

	// queue is the reusable wavefront worklist. Keeping it on the struct
	// means repeated solves stop allocating once it reaches steady size.
	queue []int
}

// New creates a field of width x height cells whose minimum corner sits at
// origin. Dimensions are clamped to at least one cell and cellSize to a
// positive value. Every cell starts at the minimum traversable cost.
func New(width, height int, cellSize float64, origin geom.Vec2) *Field {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	n := width * height
	f := &Field{
		width:       width,
		height:      height,
		cellSize:    cellSize,
		origin:      origin,
		costs:       make([]uint8, n),
		integration: make([]uint16, n),
		directions:  make([]geom.Vec2, n),
	}
	f.reset()
	return f
}

// Width returns the grid width in cells.
func (f *Field) Width() int { return f.width }

// Height returns the grid height in cells.
func (f *Field) Height() int { return f.height }

// CellSize returns the world-space size of one cell.
func (f *Field) CellSize() float64 { return f.cellSize }

// Origin returns the world-space minimum corner of the grid.
func (f *Field) Origin() geom.Vec2 { return f.origin }

// Goal returns the current goal cell. ok is false before the first SetGoal.
func (f *Field) Goal() (col, row int, ok bool) {
	return f.goalCol, f.goalRow, f.hasGoal
}

// WorldToGrid maps a world position to the cell containing it. Positions
// outside the field map to out-of-range cells; callers that need a valid
// cell should check InBounds or clamp.
func (f *Field) WorldToGrid(p geom.Vec3) (col, row int) {
	col = int(math.Floor((p.X - f.origin.X) / f.cellSize))
	row = int(math.Floor((p.Z - f.origin.Y) / f.cellSize))
	return col, row
}

// GridToWorld returns the world-space center of a cell on the ground plane.
func (f *Field) GridToWorld(col, row int) geom.Vec3 {
	return geom.Vec3{
		X: f.origin.X + (float64(col)+0.5)*f.cellSize,
		Z: f.origin.Y + (float64(row)+0.5)*f.cellSize,
	}
}

// InBounds reports whether the cell lies inside the grid.
func (f *Field) InBounds(col, row int) bool {
	return col >= 0 && col < f.width && row >= 0 && row < f.height
}

func (f *Field) index(col, row int) int {
	return row*f.width + col
}

// SetCost assigns a traversable cost to one cell, clamped to
// [CostMin, CostMax]. Use SetBlocked to make a cell impassable.
// Out-of-range cells are ignored.
func (f *Field) SetCost(col, row int, cost uint8) {
	if !f.InBounds(col, row) {
		return
	}
	if cost < CostMin {
		cost = CostMin
	} else if cost > CostMax {
		cost = CostMax
	}
	f.costs[f.index(col, row)] = cost
}

// SetBlocked marks one cell impassable. Out-of-range cells are ignored.
func (f *Field) SetBlocked(col, row int) {
	if !f.InBounds(col, row) {
		return
	}
	f.costs[f.index(col, row)] = CostBlocked
}

// IsWalkable reports whether a cell can be traversed. Out-of-range cells
// are not walkable.
func (f *Field) IsWalkable(col, row int) bool {
	return f.InBounds(col, row) && f.costs[f.index(col, row)] != CostBlocked
}

// CostAt returns the raw cost of a cell, or CostBlocked out of range.
func (f *Field) CostAt(col, row int) uint8 {
	if !f.InBounds(col, row) {
		return CostBlocked
	}
	return f.costs[f.index(col, row)]
}

// IntegrationAt returns the accumulated travel cost from a cell to the
// goal, or Unreached when the cell is blocked, unreachable, or out of
// range.
func (f *Field) IntegrationAt(col, row int) uint16 {
	if !f.InBounds(col, row) {
		return Unreached
	}
	return f.integration[f.index(col, row)]
}

// DirectionAt returns the flow direction of a cell, or the zero vector out
// of range. The Y component of the result maps to world Z.
func (f *Field) DirectionAt(col, row int) geom.Vec2 {
	if !f.InBounds(col, row) {
		return geom.Vec2{}
	}
	return f.directions[f.index(col, row)]
}

// AddObstacle blocks every cell inside a square around a world position.
// The square extends radius world units in each direction, rounded up to
// whole cells, so even a small obstacle blocks at least one full cell.
func (f *Field) AddObstacle(center geom.Vec3, radius float64) {
	col, row := f.WorldToGrid(center)
	r := int(math.Ceil(radius / f.cellSize))
	for dr := -r; dr <= r; dr++ {
		for dc := -r; dc <= r; dc++ {
			f.SetBlocked(col+dc, row+dr)
		}
	}
}

// Clear resets every cell to the minimum traversable cost, erases the
// solved layers, and drops the active goal. It is a full reset, not a
// selective unblock: obstacles that should persist must be re-stamped, and
// sampling returns zero vectors until the next SetGoal or SetGoalCell.
func (f *Field) Clear() {
	f.reset()
	f.hasGoal = false
}

func (f *Field) reset() {
	for i := range f.costs {
		f.costs[i] = CostMin
	}
	for i := range f.integration {
		f.integration[i] = Unreached
	}
	for i := range f.directions {
		f.directions[i] = geom.Vec2{}
	}
}
