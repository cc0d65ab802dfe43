package sim

import "hordesim/internal/geom"

// AgentView is one agent inside a Snapshot, shaped for JSON transport.
type AgentView struct {
	ID       uint32    `json:"id"`
	Position geom.Vec3 `json:"position"`
	Velocity geom.Vec3 `json:"velocity"`
	Facing   float64   `json:"facing"`
	State    string    `json:"state"`
	Cooldown float64   `json:"cooldown"`
}

// StateCounts tallies agents per behavior state.
type StateCounts struct {
	Idle      int `json:"idle"`
	Chasing   int `json:"chasing"`
	Attacking int `json:"attacking"`
	Fleeing   int `json:"fleeing"`
	Dead      int `json:"dead"`
}

// GoalCell is the grid cell the flow field last solved toward.
type GoalCell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Snapshot is an immutable copy of the simulation state, published after
// every tick. The API layer serves and broadcasts snapshots without ever
// touching engine locks.
type Snapshot struct {
	Tick     int64       `json:"tick"`
	Target   geom.Vec3   `json:"target"`
	Outcome  string      `json:"solve_outcome"`
	GoalCell *GoalCell   `json:"goal_cell,omitempty"`
	Counts   StateCounts `json:"counts"`
	Agents   []AgentView `json:"agents"`
}

// buildSnapshot copies the live state into a fresh Snapshot. Caller holds
// e.mu.
func (e *Engine) buildSnapshot() *Snapshot {
	snap := &Snapshot{
		Tick:    e.tickCount,
		Target:  e.controller.Target(),
		Outcome: e.controller.LastOutcome().String(),
		Agents:  make([]AgentView, 0, len(e.agents)),
	}
	if col, row, ok := e.controller.Field().Goal(); ok {
		snap.GoalCell = &GoalCell{Col: col, Row: row}
	}

	for _, a := range e.agents {
		snap.Agents = append(snap.Agents, AgentView{
			ID:       a.ID,
			Position: a.Position,
			Velocity: a.Velocity,
			Facing:   a.Facing,
			State:    a.State.String(),
			Cooldown: a.CooldownLeft,
		})
		switch a.State {
		case StateIdle:
			snap.Counts.Idle++
		case StateChasing:
			snap.Counts.Chasing++
		case StateAttacking:
			snap.Counts.Attacking++
		case StateFleeing:
			snap.Counts.Fleeing++
		case StateDead:
			snap.Counts.Dead++
		}
	}
	return snap
}
