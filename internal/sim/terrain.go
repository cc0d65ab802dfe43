package sim

import "math"

// TerrainSampler reports ground height so the engine can keep agents
// snapped to the terrain while all steering happens on the XZ plane.
type TerrainSampler interface {
	SampleHeight(x, z float64) float64
}

// FlatTerrain is the default sampler: ground at Y zero everywhere.
type FlatTerrain struct{}

// SampleHeight implements TerrainSampler.
func (FlatTerrain) SampleHeight(x, z float64) float64 { return 0 }

// RollingTerrain is a cheap analytic heightfield of crossed sine waves,
// useful for demos and for testing that agents follow ground height.
type RollingTerrain struct {
	Amplitude  float64
	Wavelength float64
}

// SampleHeight implements TerrainSampler.
func (t RollingTerrain) SampleHeight(x, z float64) float64 {
	if t.Wavelength == 0 {
		return 0
	}
	k := 2 * math.Pi / t.Wavelength
	return t.Amplitude * (math.Sin(x*k) + math.Cos(z*k)) / 2
}
