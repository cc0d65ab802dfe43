package api

import (
	"net/http"
	"time"

	"hordesim/internal/config"
	"hordesim/internal/geom"
	"hordesim/internal/sim"
	"hordesim/internal/sim/flowfield"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface is the slice of the simulation engine the API layer
// uses. Keep it minimal; it exists so handler tests can run against a
// stub without the tick loop.
type EngineInterface interface {
	// Snapshot returns the latest immutable simulation snapshot
	Snapshot() *sim.Snapshot
	// SpawnGroup scatters count agents around center, returns how many fit
	SpawnGroup(center geom.Vec3, count int, spread float64, opts sim.SpawnOptions) int
	// UpdateTarget moves the shared chase target
	UpdateTarget(target geom.Vec3)
	// AddObstacle stamps a blocked circle into the flow field
	AddObstacle(center geom.Vec3, radius float64)
	// ClearObstacles resets all cell costs
	ClearObstacles()
	// SampleFlow reads the raw and smoothed flow direction at a point
	SampleFlow(p geom.Vec3) (raw, smooth geom.Vec2)
	// FieldSnapshot deep-copies the flow field layers
	FieldSnapshot() flowfield.State
	// SetAgentState forces one agent's behavior state
	SetAgentState(id uint32, s sim.AIState) bool
	// RemoveDead drops dead agents, returns how many went
	RemoveDead() int
	// AgentCount returns the live agent count
	AgentCount() int
	// Seed returns the seed the run started from
	Seed() int64
}

// RouterConfig carries the dependencies for the HTTP router. Designed for
// injection so tests can swap pieces:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:          engine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-built rate limiter. If nil, one is
	// created from RateLimitConfig (or the defaults).
	RateLimiter *IPRateLimiter

	// RateLimitConfig configures the limiter created when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// Limits caps spawn request sizes. Zero value falls back to defaults.
	Limits config.ResourceLimits

	// AdminToken, when set, locks every mutating route behind the token.
	AdminToken string

	// CORSOrigins overrides the default allowed origins.
	CORSOrigins []string

	// DisableLogging drops the request logger middleware (benchmarks).
	DisableLogging bool
}

// routerHandlers holds what the handler functions need.
type routerHandlers struct {
	engine EngineInterface
	limits config.ResourceLimits
}

// NewRouter constructs the HTTP router with all middleware and routes. It
// opens no listeners; the only background work is the cleanup loop of a
// rate limiter created here. Safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	limits := cfg.Limits
	if limits.MaxSpawnPerRequest <= 0 {
		limits = config.DefaultLimits()
	}
	h := &routerHandlers{engine: cfg.Engine, limits: limits}

	r.Route("/api", func(r chi.Router) {
		// Read side
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/field", h.handleGetField)
		r.Get("/field/overlay.png", h.handleFieldOverlay)
		r.Get("/flow/sample", h.handleSampleFlow)

		// Control side, token-guarded when a token is configured
		r.Group(func(r chi.Router) {
			if cfg.AdminToken != "" {
				r.Use(requireAdminToken(cfg.AdminToken))
			}
			r.Post("/target", h.handleSetTarget)
			r.Post("/horde/spawn", h.handleSpawn)
			r.Post("/horde/state", h.handleSetAgentState)
			r.Post("/horde/reap", h.handleReap)
			r.Post("/obstacles", h.handleAddObstacle)
			r.Delete("/obstacles", h.handleClearObstacles)
		})
	})

	r.Get("/", h.handleRoot)

	return r
}

// metricsMiddleware records per-route latency and status counts. The
// endpoint label is the chi route pattern, so cardinality stays bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		RecordRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
