package fantasy

// Merge produces exactly one MergedRow per roster entry, in roster
// order. Matched entries copy the stats record's name and numbers;
// unmatched entries keep zeros and a nil matched name. No roster entry
// is ever dropped, so len(Merge(roster, stats)) == len(roster).
func Merge(roster []RosterEntry, stats []StatsRecord) []MergedRow {
	rows := make([]MergedRow, 0, len(roster))
	for _, entry := range roster {
		row := MergedRow{
			Team:       entry.Team,
			RosterName: entry.PlayerName,
		}
		if record := FindMatch(entry.PlayerName, stats); record != nil {
			matched := record.PlayerName
			row.MatchedName = &matched
			row.Goals = record.Goals
			row.Assists = record.Assists
			row.Points = record.Points
		}
		rows = append(rows, row)
	}
	return rows
}
