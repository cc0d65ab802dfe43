package main

import (
	"flag"
	"fmt"
	"sort"
	"time"

	"hordesim/internal/config"
	"hordesim/internal/geom"
	"hordesim/internal/sim"
	"hordesim/internal/sim/flowfield"
)

// runStats collects everything one headless run reports on.
type runStats struct {
	runIndex int
	seed     int64
	ticks    int

	firstChaseTick  int64
	firstAttackTick int64
	solves          int
	blockedSolves   int

	tickDurations  []time.Duration
	solveDurations []time.Duration

	finalCounts  sim.StateCounts
	agentCount   int
	meanDistance float64
	outcome      string
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string
	var agents int
	var spread float64

	flag.IntVar(&runs, "runs", 3, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 900, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "", "scenario YAML file (overrides -agents/-spread)")
	flag.IntVar(&agents, "agents", 200, "agents to spawn when no scenario is given")
	flag.Float64Var(&spread, "spread", 20, "spawn scatter radius when no scenario is given")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}

	fmt.Printf("=== Headless Horde Report ===\n")
	fmt.Printf("runs=%d ticks=%d seed_base=%d seed_step=%d scenario=%q agents=%d\n\n",
		runs, ticks, seedBase, seedStep, scenario, agents)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats, err := runOnce(i+1, seed, ticks, scenario, agents, spread)
		if err != nil {
			fmt.Printf("error: run %d: %v\n", i+1, err)
			return
		}
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all)
}

func runOnce(runIndex int, seed int64, ticks int, scenarioPath string, agents int, spread float64) (runStats, error) {
	appCfg := config.Load()
	appCfg.Sim.Seed = seed

	engine := sim.NewEngine(sim.EngineConfig{
		Field:  appCfg.Field,
		Sim:    appCfg.Sim,
		Agent:  appCfg.Agent,
		Limits: appCfg.Limits,
	})

	stats := runStats{
		runIndex:        runIndex,
		seed:            seed,
		ticks:           ticks,
		firstChaseTick:  -1,
		firstAttackTick: -1,
		tickDurations:   make([]time.Duration, 0, ticks),
	}

	engine.OnTick = func(info sim.TickInfo) {
		stats.tickDurations = append(stats.tickDurations, info.Duration)
		if info.Solved {
			stats.solves++
			stats.solveDurations = append(stats.solveDurations, info.SolveDuration)
			if info.Outcome == flowfield.SolveGoalBlocked {
				stats.blockedSolves++
			}
		}
		if stats.firstChaseTick >= 0 && stats.firstAttackTick >= 0 {
			return
		}
		counts := engine.Snapshot().Counts
		if stats.firstChaseTick < 0 && counts.Chasing > 0 {
			stats.firstChaseTick = info.Tick
		}
		if stats.firstAttackTick < 0 && counts.Attacking > 0 {
			stats.firstAttackTick = info.Tick
		}
	}

	if scenarioPath != "" {
		s, err := config.LoadScenario(scenarioPath)
		if err != nil {
			return stats, err
		}
		if total := s.TotalAgents(); total > appCfg.Limits.MaxAgents {
			return stats, fmt.Errorf("scenario wants %d agents but the limit is %d", total, appCfg.Limits.MaxAgents)
		}
		for _, o := range s.Obstacles {
			engine.AddObstacle(geom.Vec3{X: o.X, Z: o.Z}, o.Radius)
		}
		for _, g := range s.Spawns {
			engine.SpawnGroup(geom.Vec3{X: g.X, Z: g.Z}, g.Count, g.Spread, sim.SpawnOptions{
				MaxSpeed:       g.MaxSpeed,
				AggroRange:     g.AggroRange,
				AttackRange:    g.AttackRange,
				AttackCooldown: g.AttackCooldown,
			})
		}
		engine.UpdateTarget(geom.Vec3{X: s.Target.X, Z: s.Target.Z})
	} else {
		// Default setup: a cluster west of center converging on the origin.
		engine.SpawnGroup(geom.Vec3{X: -60}, agents, spread, sim.SpawnOptions{})
		engine.UpdateTarget(geom.Vec3{})
	}

	// Run flat out, no ticker.
	for i := 0; i < ticks; i++ {
		engine.Step()
	}

	snap := engine.Snapshot()
	stats.finalCounts = snap.Counts
	stats.agentCount = len(snap.Agents)
	stats.outcome = snap.Outcome

	sum, n := 0.0, 0
	for _, a := range snap.Agents {
		if a.State == "dead" {
			continue
		}
		sum += a.Position.Sub(snap.Target).XZ().Length()
		n++
	}
	if n > 0 {
		stats.meanDistance = sum / float64(n)
	}

	return stats, nil
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("phase_markers: first_chase=%s first_attack=%s\n",
		tickString(rs.firstChaseTick), tickString(rs.firstAttackTick))
	fmt.Printf("ticks=%d agents=%d solves=%d blocked_solves=%d outcome=%s\n",
		rs.ticks, rs.agentCount, rs.solves, rs.blockedSolves, rs.outcome)
	fmt.Printf("tick_ms: avg=%.3f p95=%.3f max=%.3f\n",
		avgMS(rs.tickDurations), p95MS(rs.tickDurations), maxMS(rs.tickDurations))
	if len(rs.solveDurations) > 0 {
		fmt.Printf("solve_ms: avg=%.3f max=%.3f\n",
			avgMS(rs.solveDurations), maxMS(rs.solveDurations))
	}
	c := rs.finalCounts
	fmt.Printf("final_states: idle=%d chasing=%d attacking=%d fleeing=%d dead=%d\n",
		c.Idle, c.Chasing, c.Attacking, c.Fleeing, c.Dead)
	fmt.Printf("mean_distance_to_target=%.2f\n", rs.meanDistance)
	fmt.Println()
}

func printAggregate(all []runStats) {
	if len(all) == 0 {
		return
	}

	chaseTicks := make([]int64, 0, len(all))
	attackTicks := make([]int64, 0, len(all))
	var allTicks []time.Duration
	distSum := 0.0
	totalSolves := 0
	totalBlocked := 0

	for _, rs := range all {
		if rs.firstChaseTick >= 0 {
			chaseTicks = append(chaseTicks, rs.firstChaseTick)
		}
		if rs.firstAttackTick >= 0 {
			attackTicks = append(attackTicks, rs.firstAttackTick)
		}
		allTicks = append(allTicks, rs.tickDurations...)
		distSum += rs.meanDistance
		totalSolves += rs.solves
		totalBlocked += rs.blockedSolves
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d\n", len(all))
	fmt.Printf("phase_marker_avg_ticks: first_chase=%s first_attack=%s\n",
		avgTickString(chaseTicks), avgTickString(attackTicks))
	fmt.Printf("tick_ms_overall: avg=%.3f p95=%.3f\n", avgMS(allTicks), p95MS(allTicks))
	fmt.Printf("solves_total=%d blocked_total=%d\n", totalSolves, totalBlocked)
	fmt.Printf("mean_distance_avg=%.2f\n", distSum/float64(len(all)))
}

func avgMS(ds []time.Duration) float64 {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return float64(sum) / float64(len(ds)) / float64(time.Millisecond)
}

func p95MS(ds []time.Duration) float64 {
	if len(ds) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(ds))
	copy(sorted, ds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return float64(sorted[len(sorted)*95/100]) / float64(time.Millisecond)
}

func maxMS(ds []time.Duration) float64 {
	var max time.Duration
	for _, d := range ds {
		if d > max {
			max = d
		}
	}
	return float64(max) / float64(time.Millisecond)
}

func tickString(t int64) string {
	if t < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d", t)
}

func avgTickString(vals []int64) string {
	if len(vals) == 0 {
		return "n/a"
	}
	var sum int64
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}
