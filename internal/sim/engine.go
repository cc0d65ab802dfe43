package sim

import (
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"hordesim/internal/config"
	"hordesim/internal/geom"
	"hordesim/internal/sim/flowfield"
	"hordesim/internal/sim/spatial"
)

// EngineConfig bundles everything an Engine needs. Zero-valued sections
// fall back to the package defaults from the config package.
type EngineConfig struct {
	Field  config.FieldConfig
	Sim    config.SimConfig
	Agent  config.AgentConfig
	Limits config.ResourceLimits

	// Terrain supplies ground height. Nil means flat ground at Y zero.
	Terrain TerrainSampler
}

// TickInfo carries timing details for one completed tick.
type TickInfo struct {
	Tick          int64
	Duration      time.Duration
	AgentCount    int
	Solved        bool
	SolveDuration time.Duration
	Outcome       flowfield.SolveOutcome
}

// Engine is the simulation core: it owns the agents, the flow field
// controller, and the separation pass, and advances them all on a fixed
// tick. All mutation happens under one lock inside Step; everything else
// reads published snapshots.
type Engine struct {
	mu sync.RWMutex

	agents []*Agent
	nextID uint32

	controller *Controller
	separator  *spatial.Separator
	terrain    TerrainSampler

	agentDefaults config.AgentConfig
	simCfg        config.SimConfig
	limits        config.ResourceLimits

	tickRate  int
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	tickCount int64

	// Deterministic RNG: the seed chain advances every tick, so two
	// engines built from the same seed replay identically.
	rng       *rand.Rand
	rngSeed   int64
	startSeed int64

	// Scratch buffers reused by the separation pass.
	sepPositions  []geom.Vec3
	sepVelocities []*geom.Vec3

	snapshot atomic.Pointer[Snapshot]

	// OnTick, if set before Start, receives timing details after every
	// tick. The API layer uses it to feed metrics.
	OnTick func(TickInfo)
}

// NewEngine creates an engine. The flow field is centered on the world
// origin until the first target re-centers it.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Field.Width <= 0 || cfg.Field.Height <= 0 || cfg.Field.CellSize <= 0 {
		cfg.Field = config.DefaultField()
	}
	if cfg.Sim.TickRate <= 0 {
		cfg.Sim = config.DefaultSim()
	}
	if cfg.Agent.MaxSpeed <= 0 {
		cfg.Agent = config.DefaultAgent()
	}
	if cfg.Limits.MaxAgents <= 0 {
		cfg.Limits = config.DefaultLimits()
	}
	if cfg.Terrain == nil {
		cfg.Terrain = FlatTerrain{}
	}

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	origin := geom.Vec2{
		X: -float64(cfg.Field.Width) * cfg.Field.CellSize / 2,
		Y: -float64(cfg.Field.Height) * cfg.Field.CellSize / 2,
	}
	field := flowfield.New(cfg.Field.Width, cfg.Field.Height, cfg.Field.CellSize, origin)

	e := &Engine{
		agents:        make([]*Agent, 0, cfg.Limits.MaxAgents),
		controller:    NewController(field, cfg.Sim.GoalInterval),
		separator:     spatial.NewSeparator(),
		terrain:       cfg.Terrain,
		agentDefaults: cfg.Agent,
		simCfg:        cfg.Sim,
		limits:        cfg.Limits,
		tickRate:      cfg.Sim.TickRate,
		stopChan:      make(chan struct{}),
		rng:           rand.New(rand.NewSource(seed)),
		rngSeed:       seed,
		startSeed:     seed,
	}
	e.snapshot.Store(e.buildSnapshot())
	return e
}

// Start begins the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.Step()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🐜 Horde engine started at %d TPS (seed %d)", e.tickRate, e.startSeed)
}

// Stop halts the tick loop. An engine cannot be restarted after Stop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Horde engine stopped")
}

// Step runs one simulation tick synchronously. The ticker calls it while
// the engine runs; headless drivers and tests call it directly.
func (e *Engine) Step() {
	start := time.Now()

	e.mu.Lock()
	e.tickCount++
	dt := 1.0 / float64(e.tickRate)

	// Advance the RNG chain even on ticks that consume no randomness so
	// replays stay aligned tick for tick.
	e.rngSeed = e.rng.Int63()
	e.rng.Seed(e.rngSeed)

	solved, solveDur := e.controller.Step(e.agents, dt)

	// Terrain snap: steering moved agents on the XZ plane, the ground
	// decides their height.
	for _, a := range e.agents {
		if a.State == StateDead {
			continue
		}
		a.Position.Y = e.terrain.SampleHeight(a.Position.X, a.Position.Z)
	}

	if e.simCfg.SeparationEvery > 0 && e.tickCount%int64(e.simCfg.SeparationEvery) == 0 {
		e.applySeparation()
	}

	snap := e.buildSnapshot()
	info := TickInfo{
		Tick:          e.tickCount,
		AgentCount:    len(e.agents),
		Solved:        solved,
		SolveDuration: solveDur,
		Outcome:       e.controller.LastOutcome(),
	}
	cb := e.OnTick
	e.mu.Unlock()

	e.snapshot.Store(snap)

	if cb != nil {
		info.Duration = time.Since(start)
		cb(info)
	}
}

// applySeparation runs the crowd repulsion pass over every living agent.
// Caller holds e.mu.
func (e *Engine) applySeparation() {
	e.sepPositions = e.sepPositions[:0]
	e.sepVelocities = e.sepVelocities[:0]
	for _, a := range e.agents {
		if !a.Alive() {
			continue
		}
		e.sepPositions = append(e.sepPositions, a.Position)
		e.sepVelocities = append(e.sepVelocities, &a.Velocity)
	}
	e.separator.Apply(e.sepPositions, e.sepVelocities, e.simCfg.SeparationRadius, e.simCfg.SeparationForce)
}

// SpawnOptions override the engine's default agent stats. Zero fields
// keep the defaults.
type SpawnOptions struct {
	MaxSpeed       float64
	AggroRange     float64
	AttackRange    float64
	AttackCooldown float64
}

// Spawn creates one idle agent at a position, snapped to the terrain.
// Returns nil when the agent cap is reached.
func (e *Engine) Spawn(pos geom.Vec3, opts SpawnOptions) *Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawnLocked(pos, opts)
}

func (e *Engine) spawnLocked(pos geom.Vec3, opts SpawnOptions) *Agent {
	if len(e.agents) >= e.limits.MaxAgents {
		return nil
	}
	a := &Agent{
		ID: e.nextID,
		Position: geom.Vec3{
			X: pos.X,
			Y: e.terrain.SampleHeight(pos.X, pos.Z),
			Z: pos.Z,
		},
		MaxSpeed:       orDefault(opts.MaxSpeed, e.agentDefaults.MaxSpeed),
		AggroRange:     orDefault(opts.AggroRange, e.agentDefaults.AggroRange),
		AttackRange:    orDefault(opts.AttackRange, e.agentDefaults.AttackRange),
		AttackCooldown: orDefault(opts.AttackCooldown, e.agentDefaults.AttackCooldown),
		State:          StateIdle,
	}
	e.nextID++
	e.agents = append(e.agents, a)
	return a
}

// SpawnGroup scatters count agents uniformly within spread world units of
// a center point. Returns how many spawned before the agent cap cut the
// group off.
func (e *Engine) SpawnGroup(center geom.Vec3, count int, spread float64, opts SpawnOptions) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	spawned := 0
	for i := 0; i < count; i++ {
		offset := geom.Vec3{
			X: (e.rng.Float64()*2 - 1) * spread,
			Z: (e.rng.Float64()*2 - 1) * spread,
		}
		if e.spawnLocked(center.Add(offset), opts) == nil {
			break
		}
		spawned++
	}
	return spawned
}

// SetAgentState forces an agent into a state, for deaths and scripted
// routs. Reports whether the ID was found.
func (e *Engine) SetAgentState(id uint32, s AIState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.agents {
		if a.ID == id {
			a.State = s
			return true
		}
	}
	return false
}

// RemoveDead drops dead agents and returns how many were removed. The
// slice is filtered in place so the pass allocates nothing.
func (e *Engine) RemoveDead() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.agents[:0]
	for _, a := range e.agents {
		if a.State == StateDead {
			continue
		}
		kept = append(kept, a)
	}
	removed := len(e.agents) - len(kept)
	// Nil out the tail so removed agents can be collected.
	for i := len(kept); i < len(e.agents); i++ {
		e.agents[i] = nil
	}
	e.agents = kept
	return removed
}

// UpdateTarget moves the chase target. The field re-solves on the next
// due tick, not immediately.
func (e *Engine) UpdateTarget(target geom.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controller.UpdateTarget(target)
}

// Target returns the current chase target.
func (e *Engine) Target() geom.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.controller.Target()
}

// AddObstacle stamps a blocked square into the flow field around a world
// position. Flow routes around it after the next re-solve.
func (e *Engine) AddObstacle(center geom.Vec3, radius float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controller.AddObstacle(center, radius)
}

// ClearObstacles resets the flow field to open ground.
func (e *Engine) ClearObstacles() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controller.ClearObstacles()
}

// SampleFlow returns the raw and smoothed flow directions at a world
// position. Debugging aid for the API layer.
func (e *Engine) SampleFlow(p geom.Vec3) (raw, smooth geom.Vec2) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.controller.Field().Sample(p), e.controller.Field().SampleSmooth(p)
}

// FieldSnapshot copies the current flow field layers for the overlay
// renderer. Allocates; meant for debug endpoints, not the tick path.
func (e *Engine) FieldSnapshot() flowfield.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.controller.Field().Snapshot()
}

// Snapshot returns the most recently published simulation snapshot. Safe
// for concurrent use; the returned value is never mutated.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// AgentCount returns the number of simulated agents, dead included.
func (e *Engine) AgentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.agents)
}

// Seed returns the seed the engine started from, for logging reproducible
// runs.
func (e *Engine) Seed() int64 {
	return e.startSeed
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
