// cmd/tools/puckimport/main.go
//
// One-shot import: load a roster CSV and a stats export, run the merge,
// and print the standings and the per-player breakdown. No database or
// server required; useful for checking a source file before pointing
// the service at it.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/codr1/puckboard/internal/fantasy"
	"github.com/codr1/puckboard/internal/ingest"
	"github.com/codr1/puckboard/internal/tracker"
)

func main() {
	var (
		rosterPath  = flag.String("roster", "", "Path to roster CSV")
		statsPath   = flag.String("stats", "", "Path to stats export (CSV or HTML)")
		format      = flag.String("format", "csv", "Stats format (csv or html)")
		useFallback = flag.Bool("fallback", false, "Use the embedded stats dataset instead of -stats")
		team        = flag.String("team", "", "Only print the breakdown for this team")
		outPath     = flag.String("out", "", "Write the merged rows to a CSV file")
	)
	flag.Parse()

	if *rosterPath == "" {
		log.Println("The -roster flag is required:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *statsPath == "" && !*useFallback {
		log.Println("Either -stats or -fallback is required:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *format != "csv" && *format != "html" {
		log.Fatalf("Unsupported stats format: %s", *format)
	}

	roster := loadRoster(*rosterPath)
	stats := loadStats(*statsPath, *format, *useFallback)

	rows := fantasy.Merge(roster, stats)
	standings := tracker.Rank(fantasy.Standings(rows))

	printStandings(standings)
	fmt.Println()
	printRows(rows, *team)

	if *outPath != "" {
		if err := writeMergedCSV(*outPath, rows); err != nil {
			log.Fatalf("Failed to write %s: %v", *outPath, err)
		}
		fmt.Printf("\nWrote %d merged rows to %s\n", len(rows), *outPath)
	}
}

func loadRoster(path string) []fantasy.RosterEntry {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open roster: %v", err)
	}
	defer f.Close()

	roster, err := ingest.LoadRoster(f)
	if err != nil {
		log.Fatalf("Failed to parse roster: %v", err)
	}
	return roster
}

func loadStats(path, format string, useFallback bool) []fantasy.StatsRecord {
	if path == "" {
		stats, err := ingest.FallbackStats()
		if err != nil {
			log.Fatalf("Failed to load fallback stats: %v", err)
		}
		log.Println("Using the embedded fallback stats dataset")
		return stats
	}

	f, err := os.Open(path)
	if err != nil {
		if useFallback {
			log.Printf("Stats file unreadable (%v), using the embedded fallback dataset", err)
			return loadStats("", format, false)
		}
		log.Fatalf("Failed to open stats: %v", err)
	}
	defer f.Close()

	var stats []fantasy.StatsRecord
	if format == "html" {
		stats, err = ingest.LoadStatsHTML(f)
	} else {
		stats, err = ingest.LoadStatsCSV(f)
	}
	if err != nil {
		log.Fatalf("Failed to parse stats: %v", err)
	}
	return stats
}

func printStandings(standings []tracker.RankedStanding) {
	fmt.Printf("%-5s %-24s %4s %4s %4s\n", "Rank", "Team", "G", "A", "P")
	for _, standing := range standings {
		fmt.Printf("%-5d %-24s %4d %4d %4d\n",
			standing.Rank, standing.Team,
			standing.TotalGoals, standing.TotalAssists, standing.TotalPoints)
	}
}

func printRows(rows []fantasy.MergedRow, team string) {
	fmt.Printf("%-24s %-24s %-24s %4s %4s %4s\n",
		"Team", "Roster Player", "Matched Player", "G", "A", "P")
	for _, row := range rows {
		if team != "" && row.Team != team {
			continue
		}
		matched := "-"
		if row.MatchedName != nil {
			matched = *row.MatchedName
		}
		fmt.Printf("%-24s %-24s %-24s %4d %4d %4d\n",
			row.Team, row.RosterName, matched, row.Goals, row.Assists, row.Points)
	}
}

func writeMergedCSV(path string, rows []fantasy.MergedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Team", "Roster_Name", "Matched_Name", "Goals", "Assists", "Points"}); err != nil {
		return err
	}
	for _, row := range rows {
		matched := ""
		if row.MatchedName != nil {
			matched = *row.MatchedName
		}
		record := []string{
			row.Team,
			row.RosterName,
			matched,
			strconv.Itoa(row.Goals),
			strconv.Itoa(row.Assists),
			strconv.Itoa(row.Points),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
