// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server tuning.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// FLOW FIELD CONFIGURATION
// =============================================================================

// FieldConfig holds the flow field grid dimensions.
// The field slides with the goal, so the grid only needs to cover the area
// where agents actively navigate, not the whole map.
type FieldConfig struct {
	Width    int     // Grid width in cells
	Height   int     // Grid height in cells
	CellSize float64 // World units per cell (smaller = smoother, costlier solves)
}

// DefaultField returns the default flow field configuration.
func DefaultField() FieldConfig {
	return FieldConfig{
		Width:    100,
		Height:   100,
		CellSize: 2.0, // 200x200 world units of coverage
	}
}

// FieldFromEnv returns field configuration with environment variable overrides.
func FieldFromEnv() FieldConfig {
	cfg := DefaultField()

	if w := getEnvInt("FIELD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("FIELD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if cs := getEnvFloat("FIELD_CELL_SIZE", 0); cs > 0 {
		cfg.CellSize = cs
	}

	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the tick loop and crowd behavior settings.
type SimConfig struct {
	TickRate         int     // Simulation ticks per second
	Seed             int64   // RNG seed; 0 seeds from the wall clock
	GoalInterval     float64 // Seconds between flow field re-solves
	SeparationEvery  int     // Run separation every N ticks
	SeparationRadius float64 // Interaction range for crowd separation
	SeparationForce  float64 // Impulse scale for crowd separation
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:         30,
		Seed:             0,
		GoalInterval:     0.35, // Re-solve often enough to track a moving target
		SeparationEvery:  4,    // Separation is the costliest pass; stagger it
		SeparationRadius: 2.5,
		SeparationForce:  8.0,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if s := getEnvInt64("SIM_SEED", 0); s != 0 {
		cfg.Seed = s
	}
	if gi := getEnvFloat("GOAL_INTERVAL", 0); gi > 0 {
		cfg.GoalInterval = gi
	}
	if se := getEnvInt("SEPARATION_EVERY", 0); se > 0 {
		cfg.SeparationEvery = se
	}
	if sr := getEnvFloat("SEPARATION_RADIUS", 0); sr > 0 {
		cfg.SeparationRadius = sr
	}
	if sf := getEnvFloat("SEPARATION_FORCE", 0); sf > 0 {
		cfg.SeparationForce = sf
	}

	return cfg
}

// =============================================================================
// AGENT DEFAULTS
// =============================================================================

// AgentConfig holds the stats a spawned agent gets when the spawner does
// not override them.
type AgentConfig struct {
	MaxSpeed       float64 // World units per second while chasing
	AggroRange     float64 // Distance at which an idle agent starts chasing
	AttackRange    float64 // Distance at which a chasing agent starts attacking
	AttackCooldown float64 // Seconds between attacks
}

// DefaultAgent returns the default agent stats.
func DefaultAgent() AgentConfig {
	return AgentConfig{
		MaxSpeed:       6.0,
		AggroRange:     85.0, // Large aggro keeps constant pressure on the target
		AttackRange:    2.5,
		AttackCooldown: 1.0,
	}
}

// AgentFromEnv returns agent defaults with environment variable overrides.
func AgentFromEnv() AgentConfig {
	cfg := DefaultAgent()

	if s := getEnvFloat("AGENT_SPEED", 0); s > 0 {
		cfg.MaxSpeed = s
	}
	if a := getEnvFloat("AGENT_AGGRO_RANGE", 0); a > 0 {
		cfg.AggroRange = a
	}
	if a := getEnvFloat("AGENT_ATTACK_RANGE", 0); a > 0 {
		cfg.AttackRange = a
	}
	if c := getEnvFloat("AGENT_ATTACK_COOLDOWN", 0); c > 0 {
		cfg.AttackCooldown = c
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxAgents          int // Hard cap on simulated agents
	MaxSpawnPerRequest int // Cap on agents created by one API call
	MaxWSConnections   int // Total WebSocket connection cap
	MaxWSPerIP         int // WebSocket connections allowed per client IP
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxAgents:          2000,
		MaxSpawnPerRequest: 500,
		MaxWSConnections:   500,
		MaxWSPerIP:         10,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if m := getEnvInt("MAX_AGENTS", 0); m > 0 {
		cfg.MaxAgents = m
	}
	if m := getEnvInt("MAX_SPAWN_PER_REQUEST", 0); m > 0 {
		cfg.MaxSpawnPerRequest = m
	}
	if m := getEnvInt("WS_MAX_CONNECTIONS", 0); m > 0 {
		cfg.MaxWSConnections = m
	}
	if m := getEnvInt("WS_MAX_PER_IP", 0); m > 0 {
		cfg.MaxWSPerIP = m
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int    // Main API and WebSocket port
	MetricsPort int    // Prometheus and pprof debug port
	BroadcastMS int    // Milliseconds between WebSocket state broadcasts
	AdminToken  string // Bearer token required on mutating routes; empty disables the check
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		MetricsPort: 6060,
		BroadcastMS: 100,
		AdminToken:  "",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("METRICS_PORT", 0); p > 0 {
		cfg.MetricsPort = p
	}
	if b := getEnvInt("WS_BROADCAST_MS", 0); b > 0 {
		cfg.BroadcastMS = b
	}
	if t := os.Getenv("ADMIN_TOKEN"); t != "" {
		cfg.AdminToken = t
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Field  FieldConfig
	Sim    SimConfig
	Agent  AgentConfig
	Limits ResourceLimits
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Field:  FieldFromEnv(),
		Sim:    SimFromEnv(),
		Agent:  AgentFromEnv(),
		Limits: LimitsFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
