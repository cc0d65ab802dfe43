package sim

import (
	"math"
	"time"

	"hordesim/internal/geom"
	"hordesim/internal/sim/flowfield"
)

// Velocity shaping for the chase behavior.
const (
	// velocitySmoothing blends the previous velocity toward the desired
	// one. Higher is more responsive, lower is more fluid.
	velocitySmoothing = 0.25
	// directPursuitBlend mixes straight-line pursuit into the flow
	// direction: 0 is pure flow, 1 is pure pursuit. The mix cuts the
	// zig-zag agents pick up at cell boundaries.
	directPursuitBlend = 0.35
	// idleDecay bleeds velocity off agents with nothing to chase.
	idleDecay = 0.9
	// fleeSpeedBoost lets fleeing agents outrun their own chase speed.
	fleeSpeedBoost = 1.5
)

// Controller drives the horde. It keeps the shared flow field solved
// toward the current target on a throttle and steers every agent through
// its state machine each tick.
//
// The engine owns the Controller and calls it under its own lock.
type Controller struct {
	field        *flowfield.Field
	target       geom.Vec3
	goalInterval float64
	sinceSolve   float64
	lastOutcome  flowfield.SolveOutcome
}

// NewController wraps a field. goalInterval throttles how often a moving
// target forces a re-solve; solving every tick would dominate the frame
// budget for nothing.
func NewController(field *flowfield.Field, goalInterval float64) *Controller {
	return &Controller{
		field:        field,
		goalInterval: goalInterval,
	}
}

// UpdateTarget records the position the horde converges on. The field
// re-solves on the next due tick, not immediately.
func (c *Controller) UpdateTarget(target geom.Vec3) {
	c.target = target
}

// Target returns the current chase target.
func (c *Controller) Target() geom.Vec3 {
	return c.target
}

// Field exposes the underlying flow field for sampling and rendering.
func (c *Controller) Field() *flowfield.Field {
	return c.field
}

// LastOutcome returns the result of the most recent solve.
func (c *Controller) LastOutcome() flowfield.SolveOutcome {
	return c.lastOutcome
}

// AddObstacle stamps a blocked square into the field. Flow routes around
// it after the next re-solve.
func (c *Controller) AddObstacle(center geom.Vec3, radius float64) {
	c.field.AddObstacle(center, radius)
}

// ClearObstacles resets the field to open ground. The cleared field stays
// unsolved until the next re-solve.
func (c *Controller) ClearObstacles() {
	c.field.Clear()
}

// Step advances every agent by dt, re-solving the field first when the
// goal interval has elapsed. It reports whether a solve ran and how long
// it took so the engine can surface the numbers.
func (c *Controller) Step(agents []*Agent, dt float64) (solved bool, solveDur time.Duration) {
	c.sinceSolve += dt
	if c.sinceSolve >= c.goalInterval {
		c.sinceSolve = 0
		start := time.Now()
		c.lastOutcome = c.field.SetGoal(c.target)
		solveDur = time.Since(start)
		solved = true
	}

	for _, a := range agents {
		c.steer(a, dt)
	}
	return solved, solveDur
}

// steer runs one agent through its state transition and the movement for
// the resulting state.
func (c *Controller) steer(a *Agent, dt float64) {
	toTarget := c.target.Sub(a.Position)
	distance := toTarget.Length()

	wasAttacking := a.State == StateAttacking
	a.State = NextState(a.State, distance, a.AggroRange, a.AttackRange)
	if wasAttacking {
		a.tickCooldown(dt)
	}

	switch a.State {
	case StateChasing:
		c.chase(a, toTarget, dt)

	case StateAttacking:
		// Hold position and keep facing the target between swings.
		a.Velocity = geom.Vec3{}
		if look := toTarget.NormalizeOrZero(); look.LengthSq() > 0.01 {
			a.Facing = math.Atan2(look.X, look.Z)
		}
		if a.CanAttack() {
			a.TriggerAttack()
		}

	case StateIdle:
		a.Velocity = a.Velocity.Scale(idleDecay)

	case StateFleeing:
		flee := toTarget.NormalizeOrZero().Scale(-1)
		a.Velocity = geom.Vec3{X: flee.X, Z: flee.Z}.Scale(a.MaxSpeed * fleeSpeedBoost)
		a.Position = a.Position.Add(a.Velocity.Scale(dt))

	case StateDead:
		a.Velocity = geom.Vec3{}
	}
}

// chase blends the smoothed flow sample with direct pursuit, eases the
// velocity toward the result, and integrates position.
func (c *Controller) chase(a *Agent, toTarget geom.Vec3, dt float64) {
	flowDir := c.field.SampleSmooth(a.Position)
	direct := geom.Vec3{X: toTarget.X, Z: toTarget.Z}.NormalizeOrZero()

	// An unsolved or blocked patch of field samples as zero; fall back to
	// straight pursuit rather than stalling.
	flow := direct
	if flowDir.LengthSq() > 0.01 {
		flow = flowDir.ToVec3()
	}

	moveDir := flow.Scale(1 - directPursuitBlend).
		Add(direct.Scale(directPursuitBlend)).
		NormalizeOrZero()
	targetVel := moveDir.Scale(a.MaxSpeed)

	// Ease toward the new heading, then re-stretch to full speed so the
	// smoothing shapes direction without costing pace.
	if a.Velocity.Length() > 0.01 {
		smoothed := a.Velocity.Scale(1 - velocitySmoothing).
			Add(targetVel.Scale(velocitySmoothing))
		a.Velocity = smoothed.NormalizeOrZero().Scale(a.MaxSpeed)
	} else {
		a.Velocity = targetVel
	}

	a.Position = a.Position.Add(a.Velocity.Scale(dt))

	if a.Velocity.LengthSq() > 0.01 {
		dir := a.Velocity.NormalizeOrZero()
		a.Facing = math.Atan2(dir.X, dir.Z)
	}
}
