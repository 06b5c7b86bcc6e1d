// internal/api/leaderboard/handlers.go
package leaderboard

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/puckboard/internal/api/apiutil"
	"github.com/codr1/puckboard/internal/db"
	"github.com/codr1/puckboard/internal/fantasy"
	"github.com/codr1/puckboard/internal/request"
	"github.com/codr1/puckboard/internal/tracker"
)

const leaderboardQueryTimeout = 5 * time.Second

var (
	trk     *tracker.Tracker
	trkOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(t *tracker.Tracker) {
	if t == nil {
		return
	}
	trkOnce.Do(func() {
		trk = t
	})
}

func loadTracker() *tracker.Tracker {
	return trk
}

type leaderboardResponse struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Roster      db.RosterSnapshot        `json:"roster"`
	Stats       db.StatsSnapshot         `json:"stats"`
	Standings   []tracker.RankedStanding `json:"standings"`
	Unmatched   int                      `json:"unmatched"`
}

type rowsResponse struct {
	Team string              `json:"team,omitempty"`
	Rows []fantasy.MergedRow `json:"rows"`
}

type teamsResponse struct {
	Teams []string `json:"teams"`
}

// GET /api/v1/leaderboard
func HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	lb, ok := loadLeaderboard(w, r)
	if !ok {
		return
	}

	response := leaderboardResponse{
		GeneratedAt: lb.GeneratedAt,
		Roster:      lb.Roster,
		Stats:       lb.Stats,
		Standings:   lb.Standings,
		Unmatched:   lb.Unmatched,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write leaderboard response")
	}
}

// GET /api/v1/leaderboard/rows
func HandleRows(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	lb, ok := loadLeaderboard(w, r)
	if !ok {
		return
	}

	team := request.TeamFromQuery(r)
	response := rowsResponse{
		Team: team,
		Rows: lb.TeamRows(team),
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write rows response")
	}
}

// GET /api/v1/teams
func HandleTeams(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	lb, ok := loadLeaderboard(w, r)
	if !ok {
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, teamsResponse{Teams: lb.Teams()}); err != nil {
		logger.Error().Err(err).Msg("Failed to write teams response")
	}
}

// GET /api/v1/status
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t := loadTracker()
	if t == nil {
		logger.Error().Msg("Tracker not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leaderboardQueryTimeout)
	defer cancel()

	status, err := t.Status(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load snapshot status")
		http.Error(w, "Failed to load status", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, status); err != nil {
		logger.Error().Err(err).Msg("Failed to write status response")
	}
}

// loadLeaderboard computes the leaderboard from the latest snapshots
// and handles the shared error paths. The bool reports whether the
// caller should keep going.
func loadLeaderboard(w http.ResponseWriter, r *http.Request) (*tracker.Leaderboard, bool) {
	logger := log.Ctx(r.Context())

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	t := loadTracker()
	if t == nil {
		logger.Error().Msg("Tracker not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), leaderboardQueryTimeout)
	defer cancel()

	lb, err := t.Leaderboard(ctx)
	if errors.Is(err, tracker.ErrNoData) {
		http.Error(w, "No snapshots imported yet", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compute leaderboard")
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return nil, false
	}
	return lb, true
}
