package api

import (
	"log"
	"net/http"
	"time"

	"hordesim/internal/config"
	"hordesim/internal/sim"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket fan-out. Construction
// starts no goroutines and opens no listeners; Start does both. Tests use
// Router() with httptest instead of Start.
type Server struct {
	engine      *sim.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter

	broadcastEvery time.Duration
}

// NewServer wires the router, the rate limiter and the WebSocket hub for
// the given engine.
func NewServer(engine *sim.Engine, srvCfg config.ServerConfig, limits config.ResourceLimits) *Server {
	s := &Server{
		engine:         engine,
		wsHub:          NewWebSocketHub(engine, limits),
		rateLimiter:    NewIPRateLimiter(DefaultRateLimitConfig),
		broadcastEvery: time.Duration(srvCfg.BroadcastMS) * time.Millisecond,
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
		Limits:      limits,
		AdminToken:  srvCfg.AdminToken,
	})

	// WebSocket routes need the hub instance, so they sit outside NewRouter.
	s.router.Get("/ws", s.handleWS)

	return s
}

// Start runs the hub workers and serves HTTP on addr. Blocks like
// http.ListenAndServe.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.broadcastEvery)

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("   - state:   http://localhost%s/api/state", addr)
	log.Printf("   - overlay: http://localhost%s/api/field/overlay.png", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, mainly for stats.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop shuts down background workers. Open WebSocket connections close
// with the process.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
