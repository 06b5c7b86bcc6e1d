package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/codr1/puckboard/internal/db"
	"github.com/codr1/puckboard/internal/fantasy"
)

// RankedStanding decorates a standing with its 1-based leaderboard
// rank. Teams with equal total points share a rank; the next distinct
// total resumes at its positional rank.
type RankedStanding struct {
	Rank int `json:"rank"`
	fantasy.Standing
}

// Leaderboard is one full merge computed from the latest snapshots.
type Leaderboard struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Roster      db.RosterSnapshot  `json:"roster"`
	Stats       db.StatsSnapshot   `json:"stats"`
	Rows        []fantasy.MergedRow `json:"rows"`
	Standings   []RankedStanding   `json:"standings"`
	Unmatched   int                `json:"unmatched"`
}

// Leaderboard loads the latest roster and stats snapshots, runs the
// merge core over them, and returns the ranked result. It returns
// ErrNoData until both sources have been imported once.
func (t *Tracker) Leaderboard(ctx context.Context) (*Leaderboard, error) {
	rosterSnap, err := t.db.Queries.LatestRosterSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("load latest roster snapshot: %w", err)
	}

	statsSnap, err := t.db.Queries.LatestStatsSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("load latest stats snapshot: %w", err)
	}

	entries, err := t.db.Queries.ListRosterEntries(ctx, rosterSnap.ID)
	if err != nil {
		return nil, fmt.Errorf("load roster entries: %w", err)
	}
	records, err := t.db.Queries.ListStatsRecords(ctx, statsSnap.ID)
	if err != nil {
		return nil, fmt.Errorf("load stats records: %w", err)
	}

	rows := fantasy.Merge(entries, records)
	unmatched := 0
	for _, row := range rows {
		if !row.Matched() {
			unmatched++
		}
	}

	return &Leaderboard{
		GeneratedAt: time.Now().UTC(),
		Roster:      rosterSnap,
		Stats:       statsSnap,
		Rows:        rows,
		Standings:   Rank(fantasy.Standings(rows)),
		Unmatched:   unmatched,
	}, nil
}

// Rank assigns leaderboard ranks to standings already ordered by the
// merge core. Equal totals share a rank.
func Rank(standings []fantasy.Standing) []RankedStanding {
	ranked := make([]RankedStanding, 0, len(standings))
	lastPoints := 0
	lastRank := 0
	for i, standing := range standings {
		rank := i + 1
		if i > 0 && standing.TotalPoints == lastPoints {
			rank = lastRank
		}
		ranked = append(ranked, RankedStanding{Rank: rank, Standing: standing})
		lastPoints = standing.TotalPoints
		lastRank = rank
	}
	return ranked
}

// TeamRows returns the leaderboard's merged rows, optionally filtered
// to one team, ordered by points descending for display. The stable
// sort keeps roster order within equal point totals.
func (l *Leaderboard) TeamRows(team string) []fantasy.MergedRow {
	rows := make([]fantasy.MergedRow, 0, len(l.Rows))
	for _, row := range l.Rows {
		if team == "" || row.Team == team {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Points > rows[j].Points
	})
	return rows
}

// Teams lists the leaderboard's distinct teams in roster
// first-appearance order.
func (l *Leaderboard) Teams() []string {
	seen := make(map[string]struct{})
	teams := make([]string, 0)
	for _, row := range l.Rows {
		if _, ok := seen[row.Team]; ok {
			continue
		}
		seen[row.Team] = struct{}{}
		teams = append(teams, row.Team)
	}
	return teams
}

// Status reports the latest snapshot on each side, nil when a side has
// never been imported. Unlike Leaderboard it never fails on an empty
// store.
type Status struct {
	Roster *db.RosterSnapshot `json:"roster"`
	Stats  *db.StatsSnapshot  `json:"stats"`
}

func (t *Tracker) Status(ctx context.Context) (Status, error) {
	var status Status

	rosterSnap, err := t.db.Queries.LatestRosterSnapshot(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("load latest roster snapshot: %w", err)
	default:
		status.Roster = &rosterSnap
	}

	statsSnap, err := t.db.Queries.LatestStatsSnapshot(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("load latest stats snapshot: %w", err)
	default:
		status.Stats = &statsSnap
	}

	return status, nil
}
