package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains the dependencies needed to construct the HTTP
// router.
type RouterConfig struct {
	// BotHandler upgrades bot websocket connections (required).
	BotHandler http.HandlerFunc

	// SpectatorHandler upgrades spectator websocket connections
	// (required).
	SpectatorHandler http.HandlerFunc

	// CORSOrigins is an optional list of allowed CORS origins. If nil,
	// local development origins are allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// tests and benchmarks).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: this function is PURE - no goroutines, no listeners, no
// background workers - so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Websocket endpoints. Bots authenticate in-band after the upgrade;
	// spectators are anonymous.
	r.Get("/ws/bot", cfg.BotHandler)
	r.Get("/ws/spectate", cfg.SpectatorHandler)

	// Legacy aliases kept for older clients.
	r.Get("/ws", cfg.BotHandler)
	r.Get("/ws/spectator", cfg.SpectatorHandler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
