package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a reproducible simulation setup loaded from a YAML
// file: where the horde spawns, what blocks the ground, and where the
// target starts. Zero-valued agent stats fall back to the AgentConfig
// defaults at spawn time.
type Scenario struct {
	Name      string       `yaml:"name"`
	Target    Point        `yaml:"target"`
	Obstacles []Obstacle   `yaml:"obstacles"`
	Spawns    []SpawnGroup `yaml:"spawns"`
}

// Point is a position on the ground plane.
type Point struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

// Obstacle is a blocked circle on the ground plane. The flow field stamps
// it as a square of blocked cells covering the radius.
type Obstacle struct {
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	Radius float64 `yaml:"radius"`
}

// SpawnGroup places Count agents scattered uniformly within Spread world
// units of a center point.
type SpawnGroup struct {
	Count          int     `yaml:"count"`
	X              float64 `yaml:"x"`
	Z              float64 `yaml:"z"`
	Spread         float64 `yaml:"spread"`
	MaxSpeed       float64 `yaml:"max_speed"`
	AggroRange     float64 `yaml:"aggro_range"`
	AttackRange    float64 `yaml:"attack_range"`
	AttackCooldown float64 `yaml:"attack_cooldown"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the scenario for values the simulation cannot accept.
func (s *Scenario) Validate() error {
	for i, o := range s.Obstacles {
		if o.Radius <= 0 {
			return fmt.Errorf("obstacle %d: radius must be positive, got %g", i, o.Radius)
		}
	}
	for i, g := range s.Spawns {
		if g.Count <= 0 {
			return fmt.Errorf("spawn group %d: count must be positive, got %d", i, g.Count)
		}
		if g.Spread < 0 {
			return fmt.Errorf("spawn group %d: spread must not be negative, got %g", i, g.Spread)
		}
		if g.MaxSpeed < 0 || g.AggroRange < 0 || g.AttackRange < 0 || g.AttackCooldown < 0 {
			return fmt.Errorf("spawn group %d: agent stats must not be negative", i)
		}
	}
	return nil
}

// TotalAgents returns the number of agents the scenario spawns, for
// checking against resource limits before applying it.
func (s *Scenario) TotalAgents() int {
	total := 0
	for _, g := range s.Spawns {
		total += g.Count
	}
	return total
}
