package ingest

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/codr1/puckboard/internal/fantasy"
)

//go:embed fallback.csv
var fallbackCSV []byte

// FallbackData returns the raw bytes of the embedded dataset, for
// callers that fingerprint or re-parse source bytes themselves.
func FallbackData() []byte {
	return fallbackCSV
}

// FallbackStats returns the statistics dataset embedded in the binary.
// It stands in when no stats source is configured or readable, so the
// leaderboard still renders with a stale-but-plausible table instead
// of an empty one. Callers should log when they fall back to it.
func FallbackStats() ([]fantasy.StatsRecord, error) {
	records, err := LoadStatsCSV(bytes.NewReader(fallbackCSV))
	if err != nil {
		return nil, fmt.Errorf("load embedded fallback stats: %w", err)
	}
	return records, nil
}
