// Package fantasy implements the roster/stats merge core: name
// normalization, candidate matching, and aggregation into standings.
// It operates on two already-loaded, ordered collections and holds no
// state between calls; loading, caching, and presentation belong to
// the callers.
package fantasy

// RosterEntry is one surviving row of the fantasy roster: a team and
// the free-text player name the team owner wrote down.
type RosterEntry struct {
	Team       string `json:"team"`
	PlayerName string `json:"playerName"`
}

// StatsRecord is one row of the tournament statistics export after
// header normalization. Country is optional in the source; numeric
// fields absent from the source are zero.
type StatsRecord struct {
	PlayerName string `json:"playerName"`
	Country    string `json:"country,omitempty"`
	Goals      int    `json:"goals"`
	Assists    int    `json:"assists"`
	Points     int    `json:"points"`
}

// MergedRow joins one roster entry with its matched stats record.
// MatchedName is nil when no stats record qualified; the numeric
// fields are then zero. Every roster entry produces exactly one
// MergedRow.
type MergedRow struct {
	Team        string  `json:"team"`
	RosterName  string  `json:"rosterName"`
	MatchedName *string `json:"matchedName"`
	Goals       int     `json:"goals"`
	Assists     int     `json:"assists"`
	Points      int     `json:"points"`
}

// Matched reports whether the row was populated from a stats record.
func (r MergedRow) Matched() bool {
	return r.MatchedName != nil
}

// Standing is one team's summed totals across its merged rows.
type Standing struct {
	Team         string `json:"team"`
	TotalGoals   int    `json:"totalGoals"`
	TotalAssists int    `json:"totalAssists"`
	TotalPoints  int    `json:"totalPoints"`
}
