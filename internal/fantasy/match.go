package fantasy

// matchThreshold is the number of shared name tokens required to
// declare two names the same player.
const matchThreshold = 2

// FindMatch scans stats in its given order and returns a pointer to
// the first record whose normalized name shares at least two tokens
// with the roster name. It returns nil when no record qualifies; that
// is a normal outcome, not an error, since roster players without
// tournament stats are an expected steady state.
//
// A roster name that normalizes to fewer than two tokens (a mononym)
// can never reach the threshold and therefore never matches. When
// several records qualify, the first in table order wins; there is no
// best-overlap tie-break.
func FindMatch(rosterName string, stats []StatsRecord) *StatsRecord {
	rosterTokens := NameTokens(rosterName)
	for i := range stats {
		if rosterTokens.Overlap(NameTokens(stats[i].PlayerName)) >= matchThreshold {
			return &stats[i]
		}
	}
	return nil
}
