package spatial

import (
	"math"

	"hordesim/internal/geom"
)

// Separator pushes crowded agents apart with short-range pairwise
// repulsion so they spread into a mob instead of collapsing onto one
// point. The hash and force scratch are reused across passes.
//
// Not safe for concurrent use.
type Separator struct {
	hash   *Hash
	forces []geom.Vec2
}

// NewSeparator creates a Separator with an empty hash.
func NewSeparator() *Separator {
	return &Separator{hash: NewHash(1)}
}

// Apply computes a repulsion impulse for every agent and adds it to that
// agent's velocity in place. positions[i] and velocities[i] must describe
// the same agent; the caller filters out agents that should not take part.
//
// radius is both the interaction range and the hash cell size. Each
// neighbor closer than radius contributes a push away from it, weighted
// linearly from full strength at zero distance down to nothing at the
// radius, so nearer neighbors dominate the direction. The summed push is
// normalized and scaled to the force magnitude before it lands on the
// velocity: a crowded agent always gets the same size of nudge, only its
// direction depends on the crowd. Only the XZ components of velocity are
// touched.
func (s *Separator) Apply(positions []geom.Vec3, velocities []*geom.Vec3, radius, force float64) {
	if len(positions) < 2 || radius <= 0 {
		return
	}

	s.hash.Reset(radius)
	for i, p := range positions {
		s.hash.Insert(int32(i), p.X, p.Z)
	}

	if cap(s.forces) < len(positions) {
		s.forces = make([]geom.Vec2, len(positions))
	}
	forces := s.forces[:len(positions)]
	for i := range forces {
		forces[i] = geom.Vec2{}
	}

	radiusSq := radius * radius
	for i, p := range positions {
		for _, j := range s.hash.Neighborhood(p.X, p.Z) {
			if int(j) == i {
				continue
			}
			o := positions[j]
			dx := p.X - o.X
			dz := p.Z - o.Z
			distSq := dx*dx + dz*dz
			// Skip coincident agents; there is no push direction between
			// two points on top of each other.
			if distSq >= radiusSq || distSq <= 0.001 {
				continue
			}
			dist := math.Sqrt(distSq)
			w := (1 - dist/radius) / dist
			forces[i].X += dx * w
			forces[i].Y += dz * w
		}
	}

	for i, v := range velocities {
		push := forces[i].NormalizeOrZero()
		v.X += push.X * force
		v.Z += push.Y * force
	}
}
