// Package ingest loads the two puckboard source tables: the
// user-maintained fantasy roster and the tournament statistics export
// (CSV or HTML). Loaders validate and filter their input so the merge
// core only ever sees well-formed records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/codr1/puckboard/internal/fantasy"
)

// ErrNoTeamColumn is returned when the roster source has no
// recognizable team-assignment column.
var ErrNoTeamColumn = errors.New("roster source has no team column")

// ErrNoNameColumn is returned when a source has no recognizable player
// name column. A name column is the one thing a source cannot do
// without.
var ErrNoNameColumn = errors.New("source has no player name column")

// junkNames are placeholder rows roster owners leave behind in the
// sheet (draft slots, transaction notes). They are dropped before the
// roster reaches the merge core.
var junkNames = map[string]struct{}{
	"Draft":       {},
	"Trade":       {},
	"Bench":       {},
	"Slot":        {},
	"Player":      {},
	"Acq":         {},
	"Free Agency": {},
	"Waivers":     {},
}

// minNameRunes is the shortest player name the roster loader keeps.
const minNameRunes = 3

// LoadRoster parses a roster CSV into ordered entries. The source
// needs a player name column ("Player_Name") and a team column
// ("Fantasy_Team" or "Team"); header matching is case-insensitive.
// Junk names and names shorter than three characters are dropped.
func LoadRoster(r io.Reader) ([]fantasy.RosterEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	nameIdx := headerIndex(header, "Player_Name")
	if nameIdx < 0 {
		return nil, ErrNoNameColumn
	}
	teamIdx := headerIndex(header, "Fantasy_Team")
	if teamIdx < 0 {
		teamIdx = headerIndex(header, "Team")
	}
	if teamIdx < 0 {
		return nil, ErrNoTeamColumn
	}

	var entries []fantasy.RosterEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}

		name := strings.TrimSpace(cell(record, nameIdx))
		if !KeepRosterName(name) {
			continue
		}
		entries = append(entries, fantasy.RosterEntry{
			Team:       strings.TrimSpace(cell(record, teamIdx)),
			PlayerName: name,
		})
	}
	return entries, nil
}

// KeepRosterName reports whether a roster cell holds a real player
// name: not on the junk denylist and at least three characters long.
func KeepRosterName(name string) bool {
	if _, junk := junkNames[name]; junk {
		return false
	}
	return utf8.RuneCountInString(name) >= minNameRunes
}

// headerIndex finds the first header cell equal to name, ignoring case
// and surrounding whitespace. Returns -1 when absent.
func headerIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// cell returns record[idx] or "" when the row is too short.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
