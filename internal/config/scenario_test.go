package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleScenario = `
name: canyon-rush
target:
  x: 40
  z: -10
obstacles:
  - { x: 10, z: 0, radius: 4 }
  - { x: 20, z: 5, radius: 2.5 }
spawns:
  - count: 50
    x: -60
    z: 0
    spread: 10
  - count: 20
    x: -40
    z: 30
    spread: 5
    max_speed: 12
    aggro_range: 120
`

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing scenario file: %v", err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, sampleScenario))
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}

	if s.Name != "canyon-rush" {
		t.Errorf("Name = %q", s.Name)
	}
	if s.Target.X != 40 || s.Target.Z != -10 {
		t.Errorf("Target = %+v", s.Target)
	}
	if len(s.Obstacles) != 2 {
		t.Fatalf("Expected 2 obstacles, got %d", len(s.Obstacles))
	}
	if s.Obstacles[1].Radius != 2.5 {
		t.Errorf("Obstacle radius = %f", s.Obstacles[1].Radius)
	}
	if len(s.Spawns) != 2 {
		t.Fatalf("Expected 2 spawn groups, got %d", len(s.Spawns))
	}
	if s.Spawns[0].MaxSpeed != 0 {
		t.Errorf("Unset max_speed should stay zero for default fallback, got %f", s.Spawns[0].MaxSpeed)
	}
	if s.Spawns[1].MaxSpeed != 12 || s.Spawns[1].AggroRange != 120 {
		t.Errorf("Override stats not parsed: %+v", s.Spawns[1])
	}
	if s.TotalAgents() != 70 {
		t.Errorf("TotalAgents = %d, want 70", s.TotalAgents())
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "scenario:") {
		t.Errorf("Error should carry the scenario prefix: %v", err)
	}
}

func TestLoadScenarioRejectsBadYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "spawns: [what"))
	if err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name     string
		scenario Scenario
		want     string
	}{
		{
			name:     "zero count",
			scenario: Scenario{Spawns: []SpawnGroup{{Count: 0}}},
			want:     "count",
		},
		{
			name:     "negative spread",
			scenario: Scenario{Spawns: []SpawnGroup{{Count: 5, Spread: -1}}},
			want:     "spread",
		},
		{
			name:     "zero obstacle radius",
			scenario: Scenario{Obstacles: []Obstacle{{Radius: 0}}},
			want:     "radius",
		},
		{
			name:     "negative agent stat",
			scenario: Scenario{Spawns: []SpawnGroup{{Count: 5, MaxSpeed: -2}}},
			want:     "stats",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scenario.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateAcceptsEmptyScenario(t *testing.T) {
	if err := (&Scenario{Name: "empty"}).Validate(); err != nil {
		t.Errorf("Scenario without spawns should validate: %v", err)
	}
}
