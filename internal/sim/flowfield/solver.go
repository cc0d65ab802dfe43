package flowfield

import "hordesim/internal/geom"

// Step costs for the wavefront. The diagonal cost approximates sqrt(2)
// times the straight cost so distance spreads in an octagon instead of a
// diamond.
const (
	costStraight uint16 = 10
	costDiagonal uint16 = 14
)

// neighbors is the fixed scan order for both the wavefront and direction
// derivation: cardinals first, then diagonals. Ties resolve to the
// earliest entry, which keeps solves fully deterministic.
var neighbors = [8]struct {
	dc, dr int
	step   uint16
}{
	{-1, 0, costStraight},
	{1, 0, costStraight},
	{0, -1, costStraight},
	{0, 1, costStraight},
	{-1, -1, costDiagonal},
	{1, -1, costDiagonal},
	{-1, 1, costDiagonal},
	{1, 1, costDiagonal},
}

// SolveOutcome reports what a solve did with the requested goal.
type SolveOutcome uint8

const (
	// SolveOK means the wavefront ran and the direction layer is fresh.
	SolveOK SolveOutcome = iota
	// SolveGoalBlocked means the goal cell was impassable. The integration
	// and direction layers are left fully reset, so sampling yields zero
	// vectors until a reachable goal is set.
	SolveGoalBlocked
)

func (o SolveOutcome) String() string {
	switch o {
	case SolveOK:
		return "ok"
	case SolveGoalBlocked:
		return "goal_blocked"
	default:
		return "unknown"
	}
}

// SetGoal re-centers the field on a world position and solves toward it.
//
// The grid slides so the goal lands in the middle cell, which keeps a
// fixed-size field useful on an unbounded map: agents near the goal always
// have flow data under them. Costs keep their grid positions across the
// slide, so world-space obstacles must be re-stamped after a large goal
// move.
func (f *Field) SetGoal(goal geom.Vec3) SolveOutcome {
	f.origin = geom.Vec2{
		X: goal.X - float64(f.width)*f.cellSize/2,
		Y: goal.Z - float64(f.height)*f.cellSize/2,
	}
	col, row := f.WorldToGrid(goal)
	return f.SetGoalCell(col, row)
}

// SetGoalCell sets the goal by cell, clamped into the grid, and solves the
// field toward it.
func (f *Field) SetGoalCell(col, row int) SolveOutcome {
	col = clampInt(col, 0, f.width-1)
	row = clampInt(row, 0, f.height-1)
	f.goalCol = col
	f.goalRow = row
	f.hasGoal = true

	outcome := f.integrate(col, row)
	f.deriveDirections()
	return outcome
}

// integrate floods accumulated travel cost outward from the goal cell.
// Cells are relaxed with a FIFO worklist: a cell re-enters the list
// whenever a cheaper route to it is found, so the pass converges to the
// same values Dijkstra would produce.
func (f *Field) integrate(goalCol, goalRow int) SolveOutcome {
	for i := range f.integration {
		f.integration[i] = Unreached
	}

	goal := f.index(goalCol, goalRow)
	if f.costs[goal] == CostBlocked {
		return SolveGoalBlocked
	}
	f.integration[goal] = 0

	queue := f.queue[:0]
	queue = append(queue, goal)
	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		col := idx % f.width
		row := idx / f.width
		current := f.integration[idx]

		for _, n := range neighbors {
			nc := col + n.dc
			nr := row + n.dr
			if !f.InBounds(nc, nr) {
				continue
			}
			nidx := f.index(nc, nr)
			cost := f.costs[nidx]
			if cost == CostBlocked {
				continue
			}
			// Step cost plus the destination cell's own cost, scaled so a
			// cost-254 cell is far more expensive than a detour around it.
			total := uint32(current) + uint32(n.step) + uint32(cost)*10
			if total >= uint32(Unreached) {
				continue
			}
			if uint16(total) < f.integration[nidx] {
				f.integration[nidx] = uint16(total)
				queue = append(queue, nidx)
			}
		}
	}
	f.queue = queue
	return SolveOK
}

// deriveDirections points every traversable, reached cell at its cheapest
// neighbor. The goal cell keeps a zero direction since nothing beats an
// integration of zero, and blocked or unreached cells are zeroed so
// samples there read as "no flow".
func (f *Field) deriveDirections() {
	for row := 0; row < f.height; row++ {
		for col := 0; col < f.width; col++ {
			idx := f.index(col, row)
			if f.costs[idx] == CostBlocked || f.integration[idx] == Unreached {
				f.directions[idx] = geom.Vec2{}
				continue
			}

			best := f.integration[idx]
			var dir geom.Vec2
			for _, n := range neighbors {
				nc := col + n.dc
				nr := row + n.dr
				if !f.InBounds(nc, nr) {
					continue
				}
				if v := f.integration[f.index(nc, nr)]; v < best {
					best = v
					dir = geom.Vec2{X: float64(n.dc), Y: float64(n.dr)}
				}
			}
			f.directions[idx] = dir.NormalizeOrZero()
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
