package poi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteSnapshotStore implements SnapshotStore using SQLite. POIs are
// stored as JSON payloads; the snapshot is only ever read back wholesale,
// so there is nothing to gain from decomposing the record into columns.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// NewSQLiteSnapshotStore creates a new SQLite-backed snapshot store.
// The db parameter should be an open SQLite connection with migrations
// applied.
func NewSQLiteSnapshotStore(db *sql.DB) *SQLiteSnapshotStore {
	return &SQLiteSnapshotStore{db: db}
}

// Save atomically replaces the snapshot with the given directory.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, pois []POI) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM poi_snapshot`); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	savedAt := time.Now().UTC()
	insert := `
		INSERT INTO poi_snapshot (id, payload, saved_at)
		VALUES (?, ?, ?)`
	for i := range pois {
		payload, err := json.Marshal(&pois[i])
		if err != nil {
			return fmt.Errorf("encoding poi %s: %w", pois[i].ID, err)
		}
		if _, err := tx.ExecContext(ctx, insert, pois[i].ID, string(payload), savedAt); err != nil {
			return fmt.Errorf("inserting poi %s: %w", pois[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted directory and when it was saved.
func (s *SQLiteSnapshotStore) Load(ctx context.Context) ([]POI, time.Time, error) {
	query := `
		SELECT payload, saved_at
		FROM poi_snapshot
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	var (
		pois    []POI
		savedAt time.Time
	)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload, &savedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var p POI
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, time.Time{}, fmt.Errorf("decoding snapshot row: %w", err)
		}
		pois = append(pois, p)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	if len(pois) == 0 {
		return nil, time.Time{}, ErrNoSnapshot
	}
	return pois, savedAt, nil
}

var _ SnapshotStore = (*SQLiteSnapshotStore)(nil)
