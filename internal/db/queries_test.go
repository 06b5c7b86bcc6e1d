package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/puckboard/internal/fantasy"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestRosterSnapshotRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	entries := []fantasy.RosterEntry{
		{Team: "Ice Holes", PlayerName: "Connor McDavid"},
		{Team: "Puck Norris", PlayerName: "Nathan MacKinnon"},
		{Team: "Ice Holes", PlayerName: "Cale Makar"},
	}

	snapshotID := uuid.New().String()
	err := database.RunInTx(ctx, func(tx *DB) error {
		if err := tx.Queries.CreateRosterSnapshot(ctx, CreateRosterSnapshotParams{
			ID:          snapshotID,
			Source:      "upload",
			Fingerprint: "abc123",
			EntryCount:  int64(len(entries)),
			ImportedAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		for i, entry := range entries {
			if err := tx.Queries.CreateRosterEntry(ctx, CreateRosterEntryParams{
				SnapshotID: snapshotID,
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
		t.Fatalf("failed to store roster snapshot: %v", err)
	}

	snap, err := database.Queries.LatestRosterSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestRosterSnapshot returned error: %v", err)
	}
	if snap.ID != snapshotID {
		t.Fatalf("LatestRosterSnapshot.ID = %q, want %q", snap.ID, snapshotID)
	}
	if snap.EntryCount != int64(len(entries)) {
		t.Fatalf("LatestRosterSnapshot.EntryCount = %d, want %d", snap.EntryCount, len(entries))
	}

	got, err := database.Queries.ListRosterEntries(ctx, snapshotID)
	if err != nil {
		t.Fatalf("ListRosterEntries returned error: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Fatalf("ListRosterEntries = %v, want %v (source order must survive)", got, entries)
	}
}

func TestStatsSnapshotRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	records := []fantasy.StatsRecord{
		{PlayerName: "Connor McDavid", Country: "CAN", Goals: 4, Assists: 9, Points: 13},
		{PlayerName: "Auston Matthews", Country: "USA", Goals: 6, Assists: 3, Points: 9},
	}

	snapshotID := uuid.New().String()
	err := database.RunInTx(ctx, func(tx *DB) error {
		if err := tx.Queries.CreateStatsSnapshot(ctx, CreateStatsSnapshotParams{
			ID:          snapshotID,
			Source:      "mainquant.csv",
			Fingerprint: "def456",
			RecordCount: int64(len(records)),
			ImportedAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		for i, record := range records {
			if err := tx.Queries.CreateStatsRecord(ctx, CreateStatsRecordParams{
				SnapshotID: snapshotID,
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
		t.Fatalf("failed to store stats snapshot: %v", err)
	}

	got, err := database.Queries.ListStatsRecords(ctx, snapshotID)
	if err != nil {
		t.Fatalf("ListStatsRecords returned error: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("ListStatsRecords = %v, want %v (source order must survive)", got, records)
	}
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		err := database.Queries.CreateStatsSnapshot(ctx, CreateStatsSnapshotParams{
			ID:          id,
			Source:      "upload",
			Fingerprint: id,
			RecordCount: 0,
			ImportedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("failed to store snapshot %q: %v", id, err)
		}
	}

	snap, err := database.Queries.LatestStatsSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestStatsSnapshot returned error: %v", err)
	}
	if snap.ID != "newer" {
		t.Fatalf("LatestStatsSnapshot.ID = %q, want %q", snap.ID, "newer")
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	database := newTestDB(t)

	_, err := database.Queries.LatestRosterSnapshot(context.Background())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("LatestRosterSnapshot on empty store = %v, want sql.ErrNoRows", err)
	}
}
