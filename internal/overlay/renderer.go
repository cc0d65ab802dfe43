// Package overlay renders the flow field and the horde into a PNG for
// the debug endpoint. One image answers most "why is the crowd doing
// that" questions faster than any JSON dump.
package overlay

import (
	"image"
	"image/color"
	"io"
	"math"

	"hordesim/internal/sim"
	"hordesim/internal/sim/flowfield"

	"github.com/fogleman/gg"
)

// Renderer draws field layers and agents at a fixed scale.
type Renderer struct {
	PixelsPerCell int // Defaults to 8 when zero
}

// state colors for agent dots
var stateColors = map[string]color.RGBA{
	"idle":      {150, 150, 150, 255},
	"chasing":   {255, 149, 0, 255},
	"attacking": {255, 62, 62, 255},
	"fleeing":   {80, 160, 255, 255},
	"dead":      {60, 60, 60, 255},
}

// WritePNG renders with default settings and encodes the PNG to w.
func WritePNG(w io.Writer, state flowfield.State, agents []sim.AgentView) error {
	return Renderer{}.render(state, agents).EncodePNG(w)
}

// Render draws the integration heat map, blocked cells, flow quivers, the
// goal marker and the agents into one image.
func (r Renderer) Render(state flowfield.State, agents []sim.AgentView) image.Image {
	return r.render(state, agents).Image()
}

func (r Renderer) render(state flowfield.State, agents []sim.AgentView) *gg.Context {
	ppc := r.PixelsPerCell
	if ppc <= 0 {
		ppc = 8
	}

	dc := gg.NewContext(state.Width*ppc, state.Height*ppc)

	r.drawCells(dc, state, ppc)
	r.drawFlow(dc, state, ppc)
	r.drawGoal(dc, state, ppc)
	r.drawAgents(dc, state, ppc, agents)

	return dc
}

func (r Renderer) drawCells(dc *gg.Context, state flowfield.State, ppc int) {
	// Background for anything unreached
	dc.SetColor(color.RGBA{14, 14, 20, 255})
	dc.DrawRectangle(0, 0, float64(state.Width*ppc), float64(state.Height*ppc))
	dc.Fill()

	// Scale the heat map against the farthest reached cell
	var maxInteg uint16 = 1
	for _, v := range state.Integration {
		if v != flowfield.Unreached && v > maxInteg {
			maxInteg = v
		}
	}

	for row := 0; row < state.Height; row++ {
		for col := 0; col < state.Width; col++ {
			idx := state.Index(col, row)

			if state.Costs[idx] == flowfield.CostBlocked {
				dc.SetColor(color.RGBA{96, 24, 24, 255})
			} else if state.Integration[idx] == flowfield.Unreached {
				continue
			} else {
				// Bright near the goal, fading with travel cost
				t := float64(state.Integration[idx]) / float64(maxInteg)
				v := uint8(40 + (1-t)*120)
				dc.SetColor(color.RGBA{v / 3, v / 2, v, 255})
			}

			dc.DrawRectangle(float64(col*ppc), float64(row*ppc), float64(ppc), float64(ppc))
			dc.Fill()
		}
	}
}

func (r Renderer) drawFlow(dc *gg.Context, state flowfield.State, ppc int) {
	dc.SetColor(color.RGBA{200, 200, 210, 160})
	dc.SetLineWidth(1)

	arm := float64(ppc) * 0.38
	for row := 0; row < state.Height; row++ {
		for col := 0; col < state.Width; col++ {
			dir := state.Directions[state.Index(col, row)]
			if dir.LengthSq() <= 0.001 {
				continue
			}

			cx := float64(col*ppc) + float64(ppc)/2
			cy := float64(row*ppc) + float64(ppc)/2
			dc.DrawLine(cx-dir.X*arm, cy-dir.Y*arm, cx+dir.X*arm, cy+dir.Y*arm)
			dc.Stroke()

			// Arrowhead dot at the pointing end
			dc.DrawCircle(cx+dir.X*arm, cy+dir.Y*arm, 1)
			dc.Fill()
		}
	}
}

func (r Renderer) drawGoal(dc *gg.Context, state flowfield.State, ppc int) {
	if !state.HasGoal {
		return
	}

	cx := float64(state.GoalCol*ppc) + float64(ppc)/2
	cy := float64(state.GoalRow*ppc) + float64(ppc)/2

	dc.SetColor(color.RGBA{83, 255, 69, 255})
	dc.DrawCircle(cx, cy, float64(ppc)*0.7)
	dc.Fill()

	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, float64(ppc)*0.9)
	dc.Stroke()
}

func (r Renderer) drawAgents(dc *gg.Context, state flowfield.State, ppc int, agents []sim.AgentView) {
	scale := float64(ppc) / state.CellSize
	radius := math.Max(2, float64(ppc)*0.3)

	for _, a := range agents {
		px := (a.Position.X - state.Origin.X) * scale
		py := (a.Position.Z - state.Origin.Y) * scale

		c, ok := stateColors[a.State]
		if !ok {
			c = color.RGBA{255, 255, 255, 255}
		}

		// Shadow
		dc.SetColor(color.RGBA{0, 0, 0, 128})
		dc.DrawCircle(px+1, py+1, radius)
		dc.Fill()

		dc.SetColor(c)
		dc.DrawCircle(px, py, radius)
		dc.Fill()

		// Facing tick. Yaw zero faces +Z, which is down the image.
		fx := math.Sin(a.Facing)
		fz := math.Cos(a.Facing)
		dc.SetLineWidth(1.5)
		dc.DrawLine(px, py, px+fx*radius*2, py+fz*radius*2)
		dc.Stroke()
	}
}
