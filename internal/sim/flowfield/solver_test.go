package flowfield

import (
	"math"
	"math/rand"
	"testing"

	"hordesim/internal/geom"
)

// offsetFromDirection recovers the grid offset a normalized direction was
// derived from. Directions only ever come from the eight neighbor offsets,
// so rounding each component is exact.
func offsetFromDirection(d geom.Vec2) (dc, dr int) {
	return int(math.Round(d.X)), int(math.Round(d.Y))
}

func TestSetGoalRecentersField(t *testing.T) {
	f := New(100, 100, 2.0, geom.Vec2{X: -100, Y: -100})

	goal := geom.Vec3{X: 40, Z: -25}
	if outcome := f.SetGoal(goal); outcome != SolveOK {
		t.Fatalf("Expected SolveOK, got %v", outcome)
	}

	// The origin slides so the goal sits at the field center.
	wantOrigin := geom.Vec2{X: 40 - 100, Y: -25 - 100}
	if math.Abs(f.Origin().X-wantOrigin.X) > 1e-9 || math.Abs(f.Origin().Y-wantOrigin.Y) > 1e-9 {
		t.Errorf("Origin = %+v, want %+v", f.Origin(), wantOrigin)
	}

	col, row, ok := f.Goal()
	if !ok {
		t.Fatal("Goal not recorded")
	}
	if col != 50 || row != 50 {
		t.Errorf("Goal cell = (%d,%d), want center (50,50)", col, row)
	}
	if f.IntegrationAt(col, row) != 0 {
		t.Errorf("Goal integration = %d, want 0", f.IntegrationAt(col, row))
	}
}

func TestSetGoalCellClampsIntoGrid(t *testing.T) {
	f := New(10, 10, 1.0, geom.Vec2{})

	if outcome := f.SetGoalCell(-5, 27); outcome != SolveOK {
		t.Fatalf("Expected SolveOK, got %v", outcome)
	}
	col, row, _ := f.Goal()
	if col != 0 || row != 9 {
		t.Errorf("Goal cell = (%d,%d), want clamped (0,9)", col, row)
	}
}

func TestIntegrationSpreadsFromGoal(t *testing.T) {
	f := New(11, 11, 1.0, geom.Vec2{})
	f.SetGoalCell(5, 5)

	if got := f.IntegrationAt(5, 5); got != 0 {
		t.Fatalf("Goal integration = %d, want 0", got)
	}
	// One cardinal step on a min-cost field: step 10 plus cost 1*10.
	if got := f.IntegrationAt(6, 5); got != 20 {
		t.Errorf("Cardinal neighbor integration = %d, want 20", got)
	}
	// One diagonal step: 14 plus 10.
	if got := f.IntegrationAt(6, 6); got != 24 {
		t.Errorf("Diagonal neighbor integration = %d, want 24", got)
	}
	// Three cardinal steps.
	if got := f.IntegrationAt(8, 5); got != 60 {
		t.Errorf("Integration at distance 3 = %d, want 60", got)
	}

	// Walking away from the goal in a straight line must be monotonic.
	prev := f.IntegrationAt(5, 5)
	for col := 6; col < 11; col++ {
		cur := f.IntegrationAt(col, 5)
		if cur <= prev {
			t.Fatalf("Integration not increasing away from goal: cell (%d,5) = %d after %d", col, cur, prev)
		}
		prev = cur
	}

	// The far corner flows diagonally toward the goal.
	if d := f.DirectionAt(0, 0); d.X <= 0 || d.Y <= 0 {
		t.Errorf("Corner flow should head toward the goal, got %+v", d)
	}
}

func TestDirectionsDescendIntegration(t *testing.T) {
	f := New(20, 20, 1.0, geom.Vec2{})
	f.SetBlocked(10, 8)
	f.SetBlocked(10, 9)
	f.SetBlocked(10, 10)
	f.SetCost(4, 4, 120)
	f.SetGoalCell(15, 10)

	for row := 0; row < f.Height(); row++ {
		for col := 0; col < f.Width(); col++ {
			d := f.DirectionAt(col, row)
			if f.IntegrationAt(col, row) == Unreached {
				if !d.IsZero() {
					t.Fatalf("Unreached cell (%d,%d) has direction %+v", col, row, d)
				}
				continue
			}
			if d.IsZero() {
				// Only the goal may sit flowless on a reached field.
				if gc, gr, _ := f.Goal(); col != gc || row != gr {
					t.Fatalf("Reached cell (%d,%d) has no direction", col, row)
				}
				continue
			}
			if math.Abs(d.Length()-1.0) > 1e-6 {
				t.Fatalf("Direction at (%d,%d) not unit length: %f", col, row, d.Length())
			}
			dc, dr := offsetFromDirection(d)
			if f.IntegrationAt(col+dc, row+dr) >= f.IntegrationAt(col, row) {
				t.Fatalf("Direction at (%d,%d) does not descend: %d -> %d",
					col, row, f.IntegrationAt(col, row), f.IntegrationAt(col+dc, row+dr))
			}
		}
	}
}

// TestNoFlowIntoWallRandomGrids scatters random walls and costs over many
// seeded grids and checks every produced direction lands on a walkable,
// strictly closer cell.
func TestNoFlowIntoWallRandomGrids(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f := New(16, 16, 1.0, geom.Vec2{})

		for i := 0; i < 40; i++ {
			f.SetBlocked(rng.Intn(16), rng.Intn(16))
		}
		for i := 0; i < 20; i++ {
			f.SetCost(rng.Intn(16), rng.Intn(16), uint8(2+rng.Intn(200)))
		}

		goalCol, goalRow := rng.Intn(16), rng.Intn(16)
		// Carve the goal free so the solve cannot abort.
		f.SetCost(goalCol, goalRow, CostMin)
		if outcome := f.SetGoalCell(goalCol, goalRow); outcome != SolveOK {
			t.Fatalf("Seed %d: solve failed: %v", seed, outcome)
		}

		for row := 0; row < 16; row++ {
			for col := 0; col < 16; col++ {
				d := f.DirectionAt(col, row)
				if d.IsZero() {
					continue
				}
				dc, dr := offsetFromDirection(d)
				if !f.IsWalkable(col+dc, row+dr) {
					t.Fatalf("Seed %d: flow at (%d,%d) points into a wall", seed, col, row)
				}
				if f.IntegrationAt(col+dc, row+dr) >= f.IntegrationAt(col, row) {
					t.Fatalf("Seed %d: flow at (%d,%d) does not descend", seed, col, row)
				}
			}
		}
	}
}

func TestFlowRoutesAroundWall(t *testing.T) {
	f := New(12, 12, 1.0, geom.Vec2{})
	// Vertical wall at column 6 with a gap at the bottom rows.
	for row := 0; row < 9; row++ {
		f.SetBlocked(6, row)
	}
	f.SetGoalCell(10, 4)

	// A cell left of the wall is still reached and flows somewhere.
	if f.IntegrationAt(2, 4) == Unreached {
		t.Fatal("Cell behind wall should still be reachable through the gap")
	}

	// Greedily following directions must arrive at the goal without ever
	// stepping on a blocked cell.
	col, row := 2, 4
	goalCol, goalRow, _ := f.Goal()
	for step := 0; step < f.Width()*f.Height(); step++ {
		if col == goalCol && row == goalRow {
			return
		}
		d := f.DirectionAt(col, row)
		if d.IsZero() {
			t.Fatalf("Flow dead-ends at (%d,%d) after %d steps", col, row, step)
		}
		dc, dr := offsetFromDirection(d)
		col += dc
		row += dr
		if !f.IsWalkable(col, row) {
			t.Fatalf("Flow led into blocked cell (%d,%d)", col, row)
		}
	}
	t.Fatalf("Flow never reached goal, stuck near (%d,%d)", col, row)
}

func TestUnreachablePocketStaysFlowless(t *testing.T) {
	f := New(10, 10, 1.0, geom.Vec2{})
	// Wall off a pocket in the corner.
	for i := 0; i <= 3; i++ {
		f.SetBlocked(3, i)
		f.SetBlocked(i, 3)
	}
	f.SetGoalCell(8, 8)

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if f.IntegrationAt(col, row) != Unreached {
				t.Errorf("Pocket cell (%d,%d) should be unreached, got %d", col, row, f.IntegrationAt(col, row))
			}
			if !f.DirectionAt(col, row).IsZero() {
				t.Errorf("Pocket cell (%d,%d) should have zero direction", col, row)
			}
		}
	}
	if f.IntegrationAt(8, 0) == Unreached {
		t.Error("Open cells outside the pocket should still be reached")
	}
}

func TestBlockedGoalAborts(t *testing.T) {
	f := New(10, 10, 1.0, geom.Vec2{})
	f.SetBlocked(5, 5)

	if outcome := f.SetGoalCell(5, 5); outcome != SolveGoalBlocked {
		t.Fatalf("Expected SolveGoalBlocked, got %v", outcome)
	}

	for row := 0; row < f.Height(); row++ {
		for col := 0; col < f.Width(); col++ {
			if f.IntegrationAt(col, row) != Unreached {
				t.Fatalf("Cell (%d,%d) integrated despite blocked goal", col, row)
			}
			if !f.DirectionAt(col, row).IsZero() {
				t.Fatalf("Cell (%d,%d) kept a direction despite blocked goal", col, row)
			}
		}
	}

	// A later reachable goal recovers the field.
	if outcome := f.SetGoalCell(2, 2); outcome != SolveOK {
		t.Fatalf("Expected recovery solve to return SolveOK, got %v", outcome)
	}
	if f.DirectionAt(7, 7).IsZero() {
		t.Error("Field should flow again after a reachable goal is set")
	}
}

func TestExpensiveCellDetour(t *testing.T) {
	f := New(5, 5, 1.0, geom.Vec2{})
	f.SetCost(2, 2, 254)
	f.SetGoalCell(4, 2)

	// Crossing the expensive cell costs over 2500; the detour around it
	// stays cheap, so the cell west of it must flow diagonally past.
	d := f.DirectionAt(1, 2)
	dc, dr := offsetFromDirection(d)
	if dc != 1 || dr == 0 {
		t.Errorf("Expected diagonal detour around expensive cell, got offset (%d,%d)", dc, dr)
	}
	if f.IntegrationAt(2, 2) < 2500 {
		t.Errorf("Expensive cell integration = %d, want > 2500", f.IntegrationAt(2, 2))
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	build := func() *Field {
		f := New(30, 30, 1.5, geom.Vec2{X: -20, Y: -20})
		f.AddObstacle(geom.Vec3{X: 0, Z: 0}, 2.0)
		f.AddObstacle(geom.Vec3{X: 8, Z: -3}, 1.0)
		f.SetCost(4, 20, 90)
		f.SetGoal(geom.Vec3{X: 10, Z: 10})
		return f
	}

	a := build()
	b := build()
	for row := 0; row < a.Height(); row++ {
		for col := 0; col < a.Width(); col++ {
			if a.IntegrationAt(col, row) != b.IntegrationAt(col, row) {
				t.Fatalf("Integration differs at (%d,%d): %d vs %d",
					col, row, a.IntegrationAt(col, row), b.IntegrationAt(col, row))
			}
			if a.DirectionAt(col, row) != b.DirectionAt(col, row) {
				t.Fatalf("Direction differs at (%d,%d): %+v vs %+v",
					col, row, a.DirectionAt(col, row), b.DirectionAt(col, row))
			}
		}
	}

	// Re-solving the same field in place must also be stable.
	gc, gr, _ := a.Goal()
	a.SetGoalCell(gc, gr)
	for row := 0; row < a.Height(); row++ {
		for col := 0; col < a.Width(); col++ {
			if a.DirectionAt(col, row) != b.DirectionAt(col, row) {
				t.Fatalf("Re-solve changed direction at (%d,%d)", col, row)
			}
		}
	}
}
