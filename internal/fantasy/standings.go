package fantasy

import "sort"

// Standings groups merged rows by team, sums goals, assists, and
// points per team, and orders the result descending by total points.
// Teams are accumulated in first-appearance order and the sort is
// stable, so identical input ordering always yields identical output
// ordering, ties included.
func Standings(rows []MergedRow) []Standing {
	index := make(map[string]*Standing)
	ordered := make([]*Standing, 0)

	for _, row := range rows {
		entry, ok := index[row.Team]
		if !ok {
			entry = &Standing{Team: row.Team}
			index[row.Team] = entry
			ordered = append(ordered, entry)
		}
		entry.TotalGoals += row.Goals
		entry.TotalAssists += row.Assists
		entry.TotalPoints += row.Points
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalPoints > ordered[j].TotalPoints
	})

	standings := make([]Standing, 0, len(ordered))
	for _, entry := range ordered {
		standings = append(standings, *entry)
	}
	return standings
}
