// Package tracker composes the source loaders, the merge core, and the
// snapshot store. Imports go through here so every code path that
// writes a snapshot fingerprints its input the same way, and reads
// always reconstruct the merge from the latest stored snapshots.
package tracker

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/codr1/puckboard/internal/config"
	"github.com/codr1/puckboard/internal/db"
	"github.com/codr1/puckboard/internal/fantasy"
	"github.com/codr1/puckboard/internal/ingest"
)

// ErrNoData is returned by reads before both sources have been
// imported at least once.
var ErrNoData = errors.New("no imported snapshots yet")

// ErrSourceInvalid wraps parse failures so callers can tell a bad
// payload from a storage fault.
var ErrSourceInvalid = errors.New("invalid source payload")

// fallbackSource labels snapshots imported from the embedded dataset.
const fallbackSource = "fallback"

type Tracker struct {
	db      *db.DB
	sources config.SourcesConfig
}

func New(database *db.DB, sources config.SourcesConfig) *Tracker {
	return &Tracker{db: database, sources: sources}
}

// Fingerprint identifies source bytes so unchanged files are not
// re-imported. Hex-encoded BLAKE2b-256.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ImportRoster parses data as a roster CSV and stores it as the newest
// roster snapshot. The source label records where the bytes came from
// (a file path or "upload").
func (t *Tracker) ImportRoster(ctx context.Context, source string, data []byte) (db.RosterSnapshot, error) {
	entries, err := ingest.LoadRoster(bytes.NewReader(data))
	if err != nil {
		return db.RosterSnapshot{}, fmt.Errorf("parse roster source: %w: %w", ErrSourceInvalid, err)
	}

	snap := db.RosterSnapshot{
		ID:          uuid.New().String(),
		Source:      source,
		Fingerprint: Fingerprint(data),
		EntryCount:  int64(len(entries)),
		ImportedAt:  time.Now().UTC(),
	}
	err = t.db.RunInTx(ctx, func(tx *db.DB) error {
		if err := tx.Queries.CreateRosterSnapshot(ctx, db.CreateRosterSnapshotParams{
			ID:          snap.ID,
			Source:      snap.Source,
			Fingerprint: snap.Fingerprint,
			EntryCount:  snap.EntryCount,
			ImportedAt:  snap.ImportedAt,
		}); err != nil {
			return err
		}
		for i, entry := range entries {
			if err := tx.Queries.CreateRosterEntry(ctx, db.CreateRosterEntryParams{
				SnapshotID: snap.ID,
				Position:   int64(i),
				Team:       entry.Team,
				PlayerName: entry.PlayerName,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return db.RosterSnapshot{}, fmt.Errorf("store roster snapshot: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("snapshot_id", snap.ID).
		Str("source", source).
		Int64("entries", snap.EntryCount).
		Msg("Imported roster snapshot")
	return snap, nil
}

// ImportStats parses data in the given format ("csv" or "html",
// defaulting to CSV) and stores it as the newest stats snapshot.
func (t *Tracker) ImportStats(ctx context.Context, source, format string, data []byte) (db.StatsSnapshot, error) {
	records, err := parseStats(format, data)
	if err != nil {
		return db.StatsSnapshot{}, fmt.Errorf("parse stats source: %w: %w", ErrSourceInvalid, err)
	}

	snap := db.StatsSnapshot{
		ID:          uuid.New().String(),
		Source:      source,
		Fingerprint: Fingerprint(data),
		RecordCount: int64(len(records)),
		ImportedAt:  time.Now().UTC(),
	}
	err = t.db.RunInTx(ctx, func(tx *db.DB) error {
		if err := tx.Queries.CreateStatsSnapshot(ctx, db.CreateStatsSnapshotParams{
			ID:          snap.ID,
			Source:      snap.Source,
			Fingerprint: snap.Fingerprint,
			RecordCount: snap.RecordCount,
			ImportedAt:  snap.ImportedAt,
		}); err != nil {
			return err
		}
		for i, record := range records {
			if err := tx.Queries.CreateStatsRecord(ctx, db.CreateStatsRecordParams{
				SnapshotID: snap.ID,
				Position:   int64(i),
				PlayerName: record.PlayerName,
				Country:    record.Country,
				Goals:      int64(record.Goals),
				Assists:    int64(record.Assists),
				Points:     int64(record.Points),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return db.StatsSnapshot{}, fmt.Errorf("store stats snapshot: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("snapshot_id", snap.ID).
		Str("source", source).
		Int64("records", snap.RecordCount).
		Msg("Imported stats snapshot")
	return snap, nil
}

func parseStats(format string, data []byte) ([]fantasy.StatsRecord, error) {
	switch format {
	case "html":
		return ingest.LoadStatsHTML(bytes.NewReader(data))
	case "", "csv":
		return ingest.LoadStatsCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported stats format: %s", format)
	}
}

// RefreshResult reports what a refresh pass actually did.
type RefreshResult struct {
	RosterImported bool
	StatsImported  bool
	UsedFallback   bool
}

// Refresh re-reads the configured sources and imports whichever ones
// changed since their latest snapshot. Unchanged sources are skipped
// by fingerprint, so running this on a schedule is cheap when nobody
// edited the files.
func (t *Tracker) Refresh(ctx context.Context) (RefreshResult, error) {
	var result RefreshResult
	logger := log.Ctx(ctx)

	if t.sources.Roster.Path == "" {
		return result, errors.New("no roster source configured")
	}
	rosterData, err := os.ReadFile(t.sources.Roster.Path)
	if err != nil {
		return result, fmt.Errorf("read roster source: %w", err)
	}

	changed, err := t.rosterChanged(ctx, rosterData)
	if err != nil {
		return result, err
	}
	if changed {
		if _, err := t.ImportRoster(ctx, t.sources.Roster.Path, rosterData); err != nil {
			return result, err
		}
		result.RosterImported = true
	} else {
		logger.Debug().Str("path", t.sources.Roster.Path).Msg("Roster source unchanged")
	}

	statsData, statsSource, statsFormat, usedFallback, err := t.readStatsSource(ctx)
	if err != nil {
		return result, err
	}
	result.UsedFallback = usedFallback

	changed, err = t.statsChanged(ctx, statsData)
	if err != nil {
		return result, err
	}
	if changed {
		if _, err := t.ImportStats(ctx, statsSource, statsFormat, statsData); err != nil {
			return result, err
		}
		result.StatsImported = true
	} else {
		logger.Debug().Str("source", statsSource).Msg("Stats source unchanged")
	}

	return result, nil
}

func (t *Tracker) rosterChanged(ctx context.Context, data []byte) (bool, error) {
	latest, err := t.db.Queries.LatestRosterSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load latest roster snapshot: %w", err)
	}
	return latest.Fingerprint != Fingerprint(data), nil
}

func (t *Tracker) statsChanged(ctx context.Context, data []byte) (bool, error) {
	latest, err := t.db.Queries.LatestStatsSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load latest stats snapshot: %w", err)
	}
	return latest.Fingerprint != Fingerprint(data), nil
}

// readStatsSource resolves the stats bytes for a refresh: the
// configured file when readable, otherwise the embedded fallback
// dataset when enabled.
func (t *Tracker) readStatsSource(ctx context.Context) (data []byte, source, format string, usedFallback bool, err error) {
	if t.sources.Stats.Path != "" {
		data, err = os.ReadFile(t.sources.Stats.Path)
		if err == nil {
			return data, t.sources.Stats.Path, t.sources.Stats.Format, false, nil
		}
		if !t.sources.Fallback {
			return nil, "", "", false, fmt.Errorf("read stats source: %w", err)
		}
		log.Ctx(ctx).Warn().
			Err(err).
			Str("path", t.sources.Stats.Path).
			Msg("Stats source unreadable, using embedded fallback dataset")
	}
	if !t.sources.Fallback {
		return nil, "", "", false, errors.New("no stats source configured")
	}
	return ingest.FallbackData(), fallbackSource, "csv", true, nil
}
