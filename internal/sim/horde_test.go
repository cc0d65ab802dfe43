package sim

import (
	"math"
	"testing"

	"hordesim/internal/geom"
	"hordesim/internal/sim/flowfield"
)

// testController builds a controller over a pre-solved field so steering
// tests do not depend on the solve throttle. The huge goal interval keeps
// Step from re-solving underneath the test.
func testController(target geom.Vec3) *Controller {
	f := flowfield.New(60, 60, 1.0, geom.Vec2{X: -30, Y: -30})
	f.SetGoal(target)
	c := NewController(f, 1e9)
	c.UpdateTarget(target)
	return c
}

func testAgent(pos geom.Vec3, state AIState) *Agent {
	return &Agent{
		Position:       pos,
		MaxSpeed:       6.0,
		AggroRange:     85.0,
		AttackRange:    2.5,
		AttackCooldown: 1.0,
		State:          state,
	}
}

func TestChasingAgentApproachesTarget(t *testing.T) {
	target := geom.Vec3{X: 10, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{X: -10, Z: 0}, StateIdle)

	before := target.Sub(a.Position).Length()
	dt := 1.0 / 30.0
	for i := 0; i < 30; i++ {
		c.Step([]*Agent{a}, dt)
	}
	after := target.Sub(a.Position).Length()

	if a.State != StateChasing {
		t.Fatalf("Expected chasing, got %v", a.State)
	}
	if after >= before {
		t.Errorf("Distance should shrink: %f -> %f", before, after)
	}
	// Roughly one second at max speed 6.
	if before-after < 4.0 {
		t.Errorf("Agent barely moved: closed %f units in 1s", before-after)
	}
	if speed := a.Velocity.Length(); math.Abs(speed-a.MaxSpeed) > 1e-6 {
		t.Errorf("Chase speed should pin to max speed, got %f", speed)
	}
}

func TestChaseFacesMovement(t *testing.T) {
	target := geom.Vec3{X: 10, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{X: -10, Z: 0}, StateChasing)

	c.Step([]*Agent{a}, 1.0/30.0)

	// Moving east means facing +X, yaw pi/2 from the +Z reference.
	if math.Abs(a.Facing-math.Pi/2) > 0.3 {
		t.Errorf("Facing = %f, want about %f", a.Facing, math.Pi/2)
	}
}

func TestAttackingAgentHoldsAndFaces(t *testing.T) {
	target := geom.Vec3{X: 5, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{X: 3, Z: 0}, StateChasing)
	a.Velocity = geom.Vec3{X: 6, Z: 0}

	c.Step([]*Agent{a}, 1.0/30.0)

	if a.State != StateAttacking {
		t.Fatalf("Expected attacking at distance 2, got %v", a.State)
	}
	if a.Velocity != (geom.Vec3{}) {
		t.Errorf("Attacking agent should halt, velocity %+v", a.Velocity)
	}
	pos := a.Position
	c.Step([]*Agent{a}, 1.0/30.0)
	if a.Position != pos {
		t.Error("Attacking agent should not move")
	}
	if math.Abs(a.Facing-math.Pi/2) > 1e-6 {
		t.Errorf("Attacking agent should face target, yaw %f", a.Facing)
	}
}

func TestCooldownTicksOnlyWhileAttacking(t *testing.T) {
	target := geom.Vec3{X: 5, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{X: 3.5, Z: 0}, StateAttacking)
	a.TriggerAttack()

	dt := 0.1
	for i := 0; i < 5; i++ {
		c.Step([]*Agent{a}, dt)
	}
	if math.Abs(a.CooldownLeft-0.5) > 1e-9 {
		t.Fatalf("Cooldown should have ticked to 0.5, got %f", a.CooldownLeft)
	}

	// Yank the agent out of attack range; the release tick still counts
	// one cooldown step, further chasing ticks must not.
	a.Position = geom.Vec3{X: -5, Z: 0}
	c.Step([]*Agent{a}, dt)
	if a.State != StateChasing {
		t.Fatalf("Expected release to chasing, got %v", a.State)
	}
	after := a.CooldownLeft
	if math.Abs(after-0.4) > 1e-9 {
		t.Errorf("Release tick should still decrement cooldown, got %f", after)
	}

	c.Step([]*Agent{a}, dt)
	c.Step([]*Agent{a}, dt)
	if a.CooldownLeft != after {
		t.Errorf("Cooldown must freeze outside attacking, %f -> %f", after, a.CooldownLeft)
	}
}

func TestAttackSwingCadence(t *testing.T) {
	target := geom.Vec3{X: 5, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{X: 3.5, Z: 0}, StateChasing)

	// dt of 0.25 is exact in binary, so the cooldown arithmetic is too.
	dt := 0.25
	c.Step([]*Agent{a}, dt)
	if a.State != StateAttacking {
		t.Fatalf("Expected attacking at distance 1.5, got %v", a.State)
	}
	if a.CooldownLeft != a.AttackCooldown {
		t.Fatalf("Entering range should swing immediately, cooldown %f", a.CooldownLeft)
	}

	for i := 0; i < 3; i++ {
		c.Step([]*Agent{a}, dt)
	}
	if a.CooldownLeft != dt {
		t.Fatalf("Cooldown should be one tick from rearming, got %f", a.CooldownLeft)
	}

	// The rearming tick swings again in the same step.
	c.Step([]*Agent{a}, dt)
	if a.CooldownLeft != a.AttackCooldown {
		t.Errorf("Swing should restart the cooldown, got %f", a.CooldownLeft)
	}
}

func TestIdleAgentBleedsVelocity(t *testing.T) {
	target := geom.Vec3{X: 500, Z: 500}
	c := testController(target)
	a := testAgent(geom.Vec3{}, StateIdle)
	a.Velocity = geom.Vec3{X: 4, Z: 3}

	pos := a.Position
	c.Step([]*Agent{a}, 1.0/30.0)

	if a.State != StateIdle {
		t.Fatalf("Target far away, agent should stay idle, got %v", a.State)
	}
	if a.Position != pos {
		t.Error("Idle agent should not move")
	}
	want := geom.Vec3{X: 4 * idleDecay, Z: 3 * idleDecay}
	if math.Abs(a.Velocity.X-want.X) > 1e-9 || math.Abs(a.Velocity.Z-want.Z) > 1e-9 {
		t.Errorf("Velocity should decay by %g, got %+v", idleDecay, a.Velocity)
	}
}

func TestFleeingAgentRunsAway(t *testing.T) {
	target := geom.Vec3{X: 10, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{X: 5, Z: 0}, StateFleeing)

	dt := 1.0 / 30.0
	c.Step([]*Agent{a}, dt)

	if a.State != StateFleeing {
		t.Fatalf("Fleeing must stick, got %v", a.State)
	}
	if a.Velocity.X >= 0 {
		t.Errorf("Flee should run away from the target, velocity %+v", a.Velocity)
	}
	wantSpeed := a.MaxSpeed * fleeSpeedBoost
	if math.Abs(a.Velocity.Length()-wantSpeed) > 1e-9 {
		t.Errorf("Flee speed = %f, want %f", a.Velocity.Length(), wantSpeed)
	}
	if a.Position.X >= 5 {
		t.Error("Fleeing agent should have moved away")
	}
}

func TestDeadAgentIsInert(t *testing.T) {
	target := geom.Vec3{X: 1, Z: 0}
	c := testController(target)
	a := testAgent(geom.Vec3{}, StateDead)
	a.Velocity = geom.Vec3{X: 9, Z: 9}

	pos := a.Position
	c.Step([]*Agent{a}, 1.0/30.0)

	if a.State != StateDead {
		t.Fatalf("Dead must stick, got %v", a.State)
	}
	if a.Velocity != (geom.Vec3{}) {
		t.Errorf("Dead agent velocity should zero out, got %+v", a.Velocity)
	}
	if a.Position != pos {
		t.Error("Dead agent should not move")
	}
}

func TestSolveThrottle(t *testing.T) {
	f := flowfield.New(20, 20, 1.0, geom.Vec2{X: -10, Y: -10})
	c := NewController(f, 0.35)
	c.UpdateTarget(geom.Vec3{X: 3, Z: 3})

	for i := 0; i < 3; i++ {
		if solved, _ := c.Step(nil, 0.1); solved {
			t.Fatalf("Solve ran after only %d ticks", i+1)
		}
	}
	solved, _ := c.Step(nil, 0.1)
	if !solved {
		t.Fatal("Solve should run once the interval elapses")
	}
	if c.LastOutcome() != flowfield.SolveOK {
		t.Fatalf("Expected SolveOK, got %v", c.LastOutcome())
	}
	if _, _, ok := f.Goal(); !ok {
		t.Error("Field should carry a goal after the first solve")
	}

	// The accumulator reset: the very next step must not solve again.
	if solved, _ := c.Step(nil, 0.1); solved {
		t.Error("Solve should wait out a fresh interval")
	}
}

func TestBlockedGoalFallsBackToDirectPursuit(t *testing.T) {
	f := flowfield.New(20, 20, 1.0, geom.Vec2{X: -10, Y: -10})
	c := NewController(f, 0.35)
	target := geom.Vec3{X: 0, Z: 0}
	c.UpdateTarget(target)

	// First solve re-centers the field on the target; the goal cell lands
	// in the middle. Blocking it forces the next solve to abort.
	c.Step(nil, 0.4)
	col, row, _ := f.Goal()
	f.SetBlocked(col, row)
	c.Step(nil, 0.4)

	if c.LastOutcome() != flowfield.SolveGoalBlocked {
		t.Fatalf("Expected goal_blocked, got %v", c.LastOutcome())
	}

	// Flow is gone, but a chasing agent still closes in directly.
	a := testAgent(geom.Vec3{X: -8, Z: 0}, StateChasing)
	before := target.Sub(a.Position).Length()
	for i := 0; i < 10; i++ {
		c.Step([]*Agent{a}, 1.0/30.0)
	}
	if after := target.Sub(a.Position).Length(); after >= before {
		t.Errorf("Direct pursuit fallback failed: %f -> %f", before, after)
	}
}
