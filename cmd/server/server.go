// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/puckboard/internal/api"
	"github.com/codr1/puckboard/internal/api/imports"
	"github.com/codr1/puckboard/internal/api/leaderboard"
	"github.com/codr1/puckboard/internal/config"
	"github.com/codr1/puckboard/internal/ratelimit"
	"github.com/codr1/puckboard/internal/tracker"
)

func newServer(cfg *config.Config, trk *tracker.Tracker, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	leaderboard.InitHandlers(trk)
	imports.InitHandlers(trk, limiter, cfg.App.TrustProxy)

	// Register routes
	registerRoutes(router)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Leaderboard reads
	mux.HandleFunc("/api/v1/leaderboard", leaderboard.HandleLeaderboard)
	mux.HandleFunc("/api/v1/leaderboard/rows", leaderboard.HandleRows)
	mux.HandleFunc("/api/v1/teams", leaderboard.HandleTeams)
	mux.HandleFunc("/api/v1/status", leaderboard.HandleStatus)

	// Source imports
	mux.HandleFunc("/api/v1/imports/roster", imports.HandleImportRoster)
	mux.HandleFunc("/api/v1/imports/stats", imports.HandleImportStats)
}
