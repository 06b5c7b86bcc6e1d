package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/codr1/puckboard/internal/fantasy"
)

// ErrNoStatsTable is returned when an HTML document contains no table
// with a recognizable player name header.
var ErrNoStatsTable = errors.New("no stats table found in html")

// LoadStatsHTML extracts statistics records from an HTML export. It
// scans the document's tables in order and uses the first one whose
// header row includes a player name column; header variants and
// numeric defaults follow the same rules as the CSV loader.
func LoadStatsHTML(r io.Reader) ([]fantasy.StatsRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse stats html: %w", err)
	}

	var records []fantasy.StatsRecord
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 1 {
			return true
		}

		cols, err := resolveStatsColumns(rowCells(rows.First()))
		if err != nil {
			return true
		}
		found = true

		rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			row := rowCells(tr)
			if len(row) == 0 {
				return
			}
			records = append(records, cols.record(row))
		})
		return false
	})

	if !found {
		return nil, ErrNoStatsTable
	}
	return records, nil
}

// rowCells collects the trimmed text of every th/td cell in a row.
// Non-breaking spaces, common in scraped exports, count as spaces.
func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("th, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ReplaceAll(sel.Text(), "\u00a0", " ")
		cells = append(cells, strings.TrimSpace(text))
	})
	return cells
}
