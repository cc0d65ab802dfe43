// Package sim runs the horde simulation: a tick loop that steers agents
// across a shared flow field toward a common target, keeps the crowd
// separated, and publishes immutable snapshots for the API layer.
package sim

import "hordesim/internal/geom"

// AIState is the behavior state of one agent.
type AIState uint8

const (
	StateIdle AIState = iota
	StateChasing
	StateAttacking
	StateFleeing
	StateDead
)

func (s AIState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChasing:
		return "chasing"
	case StateAttacking:
		return "attacking"
	case StateFleeing:
		return "fleeing"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ParseState maps a state name back to its AIState. The second return is
// false for names String never produces.
func ParseState(name string) (AIState, bool) {
	switch name {
	case "idle":
		return StateIdle, true
	case "chasing":
		return StateChasing, true
	case "attacking":
		return StateAttacking, true
	case "fleeing":
		return StateFleeing, true
	case "dead":
		return StateDead, true
	default:
		return StateIdle, false
	}
}

// stateHysteresis widens a state's exit threshold relative to its entry
// threshold so agents sitting on the boundary do not flip every tick.
const stateHysteresis = 1.5

// NextState returns the state an agent moves to given its distance to the
// target. Fleeing and Dead are sticky: nothing here leaves them, only an
// external call does.
func NextState(s AIState, distance, aggroRange, attackRange float64) AIState {
	switch s {
	case StateIdle:
		if distance < aggroRange {
			return StateChasing
		}
	case StateChasing:
		if distance < attackRange {
			return StateAttacking
		}
		if distance > aggroRange*stateHysteresis {
			return StateIdle
		}
	case StateAttacking:
		if distance > attackRange*stateHysteresis {
			return StateChasing
		}
	}
	return s
}

// Agent is one member of the horde. All fields are owned by the engine
// tick loop; outside it, read agent data through snapshots.
type Agent struct {
	ID       uint32
	Position geom.Vec3
	Velocity geom.Vec3
	Facing   float64 // Yaw in radians; zero faces +Z, positive turns toward +X

	MaxSpeed       float64
	AggroRange     float64
	AttackRange    float64
	AttackCooldown float64
	CooldownLeft   float64

	State AIState
}

// Alive reports whether the agent still acts and takes part in crowd
// separation.
func (a *Agent) Alive() bool {
	return a.State != StateDead
}

// CanAttack reports whether the attack cooldown has elapsed.
func (a *Agent) CanAttack() bool {
	return a.CooldownLeft <= 0
}

// TriggerAttack restarts the attack cooldown after a swing.
func (a *Agent) TriggerAttack() {
	a.CooldownLeft = a.AttackCooldown
}

func (a *Agent) tickCooldown(dt float64) {
	if a.CooldownLeft > 0 {
		a.CooldownLeft -= dt
	}
}
