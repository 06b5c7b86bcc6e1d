package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/codr1/puckboard/internal/fantasy"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries
// run inside and outside transactions.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries bundles the snapshot store's SQL. Row order is significant:
// entries and records are written with their source positions and read
// back ordered by them, so a snapshot round-trips the exact scan order
// the merge rule depends on.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// RosterSnapshot describes one stored roster import.
type RosterSnapshot struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	EntryCount  int64     `json:"entryCount"`
	ImportedAt  time.Time `json:"importedAt"`
}

// StatsSnapshot describes one stored statistics import.
type StatsSnapshot struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	RecordCount int64     `json:"recordCount"`
	ImportedAt  time.Time `json:"importedAt"`
}

type CreateRosterSnapshotParams struct {
	ID          string
	Source      string
	Fingerprint string
	EntryCount  int64
	ImportedAt  time.Time
}

func (q *Queries) CreateRosterSnapshot(ctx context.Context, arg CreateRosterSnapshotParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO roster_snapshots (id, source, fingerprint, entry_count, imported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Source, arg.Fingerprint, arg.EntryCount, arg.ImportedAt,
	)
	return err
}

type CreateRosterEntryParams struct {
	SnapshotID string
	Position   int64
	Team       string
	PlayerName string
}

func (q *Queries) CreateRosterEntry(ctx context.Context, arg CreateRosterEntryParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO roster_entries (snapshot_id, position, team, player_name)
		 VALUES (?, ?, ?, ?)`,
		arg.SnapshotID, arg.Position, arg.Team, arg.PlayerName,
	)
	return err
}

// LatestRosterSnapshot returns the most recent roster import, or
// sql.ErrNoRows when nothing has been imported yet.
func (q *Queries) LatestRosterSnapshot(ctx context.Context) (RosterSnapshot, error) {
	var snap RosterSnapshot
	err := q.db.QueryRowContext(ctx,
		`SELECT id, source, fingerprint, entry_count, imported_at
		 FROM roster_snapshots
		 ORDER BY imported_at DESC, rowid DESC
		 LIMIT 1`,
	).Scan(&snap.ID, &snap.Source, &snap.Fingerprint, &snap.EntryCount, &snap.ImportedAt)
	return snap, err
}

// ListRosterEntries returns a snapshot's entries in source order.
func (q *Queries) ListRosterEntries(ctx context.Context, snapshotID string) ([]fantasy.RosterEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT team, player_name
		 FROM roster_entries
		 WHERE snapshot_id = ?
		 ORDER BY position`,
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []fantasy.RosterEntry
	for rows.Next() {
		var entry fantasy.RosterEntry
		if err := rows.Scan(&entry.Team, &entry.PlayerName); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type CreateStatsSnapshotParams struct {
	ID          string
	Source      string
	Fingerprint string
	RecordCount int64
	ImportedAt  time.Time
}

func (q *Queries) CreateStatsSnapshot(ctx context.Context, arg CreateStatsSnapshotParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO stats_snapshots (id, source, fingerprint, record_count, imported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Source, arg.Fingerprint, arg.RecordCount, arg.ImportedAt,
	)
	return err
}

type CreateStatsRecordParams struct {
	SnapshotID string
	Position   int64
	PlayerName string
	Country    string
	Goals      int64
	Assists    int64
	Points     int64
}

func (q *Queries) CreateStatsRecord(ctx context.Context, arg CreateStatsRecordParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO stats_records (snapshot_id, position, player_name, country, goals, assists, points)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.SnapshotID, arg.Position, arg.PlayerName, arg.Country, arg.Goals, arg.Assists, arg.Points,
	)
	return err
}

// LatestStatsSnapshot returns the most recent statistics import, or
// sql.ErrNoRows when nothing has been imported yet.
func (q *Queries) LatestStatsSnapshot(ctx context.Context) (StatsSnapshot, error) {
	var snap StatsSnapshot
	err := q.db.QueryRowContext(ctx,
		`SELECT id, source, fingerprint, record_count, imported_at
		 FROM stats_snapshots
		 ORDER BY imported_at DESC, rowid DESC
		 LIMIT 1`,
	).Scan(&snap.ID, &snap.Source, &snap.Fingerprint, &snap.RecordCount, &snap.ImportedAt)
	return snap, err
}

// ListStatsRecords returns a snapshot's records in source order.
func (q *Queries) ListStatsRecords(ctx context.Context, snapshotID string) ([]fantasy.StatsRecord, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT player_name, country, goals, assists, points
		 FROM stats_records
		 WHERE snapshot_id = ?
		 ORDER BY position`,
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []fantasy.StatsRecord
	for rows.Next() {
		var record fantasy.StatsRecord
		if err := rows.Scan(&record.PlayerName, &record.Country, &record.Goals, &record.Assists, &record.Points); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
