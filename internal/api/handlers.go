package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"hordesim/internal/geom"
	"hordesim/internal/overlay"
	"hordesim/internal/sim"
	"hordesim/internal/sim/flowfield"
)

// Handler methods for routerHandlers. Used by both the standalone router
// (for tests) and the full Server.

func (h *routerHandlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, map[string]interface{}{
		"service": "hordesim",
		"tick":    snap.Tick,
		"agents":  len(snap.Agents),
	})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, map[string]interface{}{
		"tick":          snap.Tick,
		"agentCount":    h.engine.AgentCount(),
		"counts":        snap.Counts,
		"target":        snap.Target,
		"solve_outcome": snap.Outcome,
		"seed":          h.engine.Seed(),
	})
}

func (h *routerHandlers) handleGetField(w http.ResponseWriter, r *http.Request) {
	state := h.engine.FieldSnapshot()

	blocked, reached := 0, 0
	for i := range state.Costs {
		if state.Costs[i] == flowfield.CostBlocked {
			blocked++
		}
		if state.Integration[i] != flowfield.Unreached {
			reached++
		}
	}

	resp := map[string]interface{}{
		"width":         state.Width,
		"height":        state.Height,
		"cell_size":     state.CellSize,
		"origin":        state.Origin,
		"blocked_cells": blocked,
		"reached_cells": reached,
	}
	if state.HasGoal {
		resp["goal"] = map[string]int{"col": state.GoalCol, "row": state.GoalRow}
	}
	writeJSON(w, resp)
}

func (h *routerHandlers) handleFieldOverlay(w http.ResponseWriter, r *http.Request) {
	state := h.engine.FieldSnapshot()
	agents := h.engine.Snapshot().Agents

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := overlay.WritePNG(w, state, agents); err != nil {
		// Headers are already out, so all we can do is log.
		log.Printf("⚠️ Overlay render failed: %v", err)
	}
}

func (h *routerHandlers) handleSampleFlow(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	z, errZ := strconv.ParseFloat(r.URL.Query().Get("z"), 64)
	if errX != nil || errZ != nil {
		writeError(w, "x and z query parameters are required", http.StatusBadRequest)
		return
	}

	raw, smooth := h.engine.SampleFlow(geom.Vec3{X: x, Z: z})
	writeJSON(w, map[string]interface{}{
		"raw":    raw,
		"smooth": smooth,
	})
}

func (h *routerHandlers) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Z float64 `json:"z"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	target := geom.Vec3{X: req.X, Z: req.Z}
	h.engine.UpdateTarget(target)
	writeJSON(w, map[string]interface{}{
		"success": true,
		"target":  target,
	})
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X              float64 `json:"x"`
		Z              float64 `json:"z"`
		Count          int     `json:"count"`
		Spread         float64 `json:"spread"`
		MaxSpeed       float64 `json:"max_speed"`
		AggroRange     float64 `json:"aggro_range"`
		AttackRange    float64 `json:"attack_range"`
		AttackCooldown float64 `json:"attack_cooldown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Count <= 0 {
		req.Count = 10
	}
	if req.Count > h.limits.MaxSpawnPerRequest {
		req.Count = h.limits.MaxSpawnPerRequest
	}
	if req.Spread <= 0 {
		req.Spread = 5.0
	}

	spawned := h.engine.SpawnGroup(geom.Vec3{X: req.X, Z: req.Z}, req.Count, req.Spread, sim.SpawnOptions{
		MaxSpeed:       req.MaxSpeed,
		AggroRange:     req.AggroRange,
		AttackRange:    req.AttackRange,
		AttackCooldown: req.AttackCooldown,
	})

	if spawned == 0 {
		writeError(w, "Agent limit reached", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success":    true,
		"spawned":    spawned,
		"agentCount": h.engine.AgentCount(),
	})
}

func (h *routerHandlers) handleSetAgentState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    uint32 `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	state, ok := sim.ParseState(req.State)
	if !ok {
		writeError(w, "Unknown state: "+req.State, http.StatusBadRequest)
		return
	}

	if !h.engine.SetAgentState(req.ID, state) {
		writeError(w, "No such agent", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleReap(w http.ResponseWriter, r *http.Request) {
	removed := h.engine.RemoveDead()
	writeJSON(w, map[string]interface{}{
		"success": true,
		"removed": removed,
	})
}

func (h *routerHandlers) handleAddObstacle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X      float64 `json:"x"`
		Z      float64 `json:"z"`
		Radius float64 `json:"radius"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Radius <= 0 {
		req.Radius = 2.0
	}

	h.engine.AddObstacle(geom.Vec3{X: req.X, Z: req.Z}, req.Radius)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleClearObstacles(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearObstacles()
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
