package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/codr1/puckboard/internal/fantasy"
)

// Canonical stats column names after header normalization.
const (
	colPlayerName = "player_name"
	colGoals      = "goals"
	colAssists    = "assists"
	colPoints     = "points"
	colCountry    = "country"
)

// canonicalHeader maps the header variants seen across statistics
// exports onto canonical column names. Unrecognized headers map to ""
// and their columns are ignored.
func canonicalHeader(header string) string {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "name", "player", "skater":
		return colPlayerName
	case "g", "goals":
		return colGoals
	case "a", "assists":
		return colAssists
	case "p", "pts", "points":
		return colPoints
	case "team", "nation", "country":
		return colCountry
	default:
		return ""
	}
}

// statsColumns holds the resolved column positions of a stats source.
// Only the name column is mandatory; every other position may stay -1,
// in which case the field defaults to zero (numeric) or "" (country).
type statsColumns struct {
	name    int
	goals   int
	assists int
	points  int
	country int
}

// resolveStatsColumns maps a raw header row to column positions. The
// first occurrence of each canonical column wins. Returns
// ErrNoNameColumn when no header maps to the player name.
func resolveStatsColumns(header []string) (statsColumns, error) {
	cols := statsColumns{name: -1, goals: -1, assists: -1, points: -1, country: -1}
	for i, h := range header {
		switch canonicalHeader(h) {
		case colPlayerName:
			if cols.name < 0 {
				cols.name = i
			}
		case colGoals:
			if cols.goals < 0 {
				cols.goals = i
			}
		case colAssists:
			if cols.assists < 0 {
				cols.assists = i
			}
		case colPoints:
			if cols.points < 0 {
				cols.points = i
			}
		case colCountry:
			if cols.country < 0 {
				cols.country = i
			}
		}
	}
	if cols.name < 0 {
		return cols, ErrNoNameColumn
	}
	return cols, nil
}

// record builds a StatsRecord from one source row.
func (c statsColumns) record(row []string) fantasy.StatsRecord {
	return fantasy.StatsRecord{
		PlayerName: strings.TrimSpace(cell(row, c.name)),
		Country:    strings.TrimSpace(cell(row, c.country)),
		Goals:      statInt(cell(row, c.goals)),
		Assists:    statInt(cell(row, c.assists)),
		Points:     statInt(cell(row, c.points)),
	}
}

// statInt parses a stat cell, tolerating thousands separators and
// surrounding whitespace. Anything unparseable counts as zero, the
// same default as a missing column.
func statInt(value string) int {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

// LoadStatsCSV parses a statistics CSV export into ordered records.
// Header variants are normalized (see canonicalHeader); a missing name
// column is an error, missing numeric columns default every record's
// field to zero.
func LoadStatsCSV(r io.Reader) ([]fantasy.StatsRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read stats header: %w", err)
	}
	cols, err := resolveStatsColumns(header)
	if err != nil {
		return nil, err
	}

	var records []fantasy.StatsRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read stats row: %w", err)
		}
		records = append(records, cols.record(row))
	}
	return records, nil
}
