package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"hordesim/internal/api"
	"hordesim/internal/config"
	"hordesim/internal/geom"
	"hordesim/internal/sim"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🐜 ================================")
	log.Println("🐜  HORDESIM - FLOW FIELD ENGINE")
	log.Println("🐜  Crowd movement at scale")
	log.Println("🐜 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	fieldCfg := appConfig.Field
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %d TPS, %dx%d cells @ %.1f units, re-solve every %.2fs",
		simCfg.TickRate, fieldCfg.Width, fieldCfg.Height, fieldCfg.CellSize, simCfg.GoalInterval)

	// Optional heightfield. Steering stays on the ground plane either way.
	var terrain sim.TerrainSampler
	if os.Getenv("TERRAIN") == "rolling" {
		terrain = sim.RollingTerrain{
			Amplitude:  getEnvFloat("TERRAIN_AMPLITUDE", 3.0),
			Wavelength: getEnvFloat("TERRAIN_WAVELENGTH", 40.0),
		}
		log.Println("⛰️ Rolling terrain enabled")
	}

	// Create simulation engine with centralized config
	engine := sim.NewEngine(sim.EngineConfig{
		Field:   fieldCfg,
		Sim:     simCfg,
		Agent:   appConfig.Agent,
		Limits:  appConfig.Limits,
		Terrain: terrain,
	})
	limits := appConfig.Limits
	log.Printf("🛡️ Resource limits: %d agents, %d per spawn, %d WS connections, %d WS per IP",
		limits.MaxAgents, limits.MaxSpawnPerRequest, limits.MaxWSConnections, limits.MaxWSPerIP)
	log.Printf("🎲 Seed: %d", engine.Seed())

	// Stamp a scenario file if one is configured
	if path := os.Getenv("SCENARIO"); path != "" {
		scenario, err := config.LoadScenario(path)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		applyScenario(engine, scenario, limits)
	}

	// Wire Prometheus collectors into the tick loop
	api.Instrument(engine)

	// Start debug server
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Create API server before starting the tick loop so the first
	// broadcast already has a router behind it
	server := api.NewServer(engine, serverCfg, limits)

	// Start simulation engine
	engine.Start()
	log.Println("✅ Simulation engine started")

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	engine.Stop()
	log.Println("👋 Goodbye!")
}

// applyScenario stamps obstacles, spawns the horde, and sets the initial
// target from a scenario file. Fatal on a scenario the limits cannot hold,
// since a silently truncated setup is worse than no setup.
func applyScenario(engine *sim.Engine, s *config.Scenario, limits config.ResourceLimits) {
	if total := s.TotalAgents(); total > limits.MaxAgents {
		log.Fatalf("❌ Scenario %q wants %d agents but the limit is %d", s.Name, total, limits.MaxAgents)
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

	log.Printf("📜 Scenario %q: %d obstacles, %d agents, target (%.1f, %.1f)",
		s.Name, len(s.Obstacles), s.TotalAgents(), s.Target.X, s.Target.Z)
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
