package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"story-creation-assistant/story"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT    NOT NULL,
	version    INTEGER NOT NULL,
	state      TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (thread_id, version)
);
`

// SQLiteStore appends every save as a new version of its thread; Load
// returns the latest one.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, thread string) (*story.State, error) {
	if err := ValidateThread(thread); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE thread_id = ? ORDER BY version DESC LIMIT 1`, thread,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, thread)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	var st story.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", thread, err)
	}
	return &st, nil
}

func (s *SQLiteStore) Save(ctx context.Context, thread string, st *story.State) error {
	if err := ValidateThread(thread); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM checkpoints WHERE thread_id = ?`, thread,
	).Scan(&version); err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO checkpoints (thread_id, version, state, created_at) VALUES (?, ?, ?, ?)`,
		thread, version+1, string(data), time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Threads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT thread_id FROM checkpoints ORDER BY thread_id`)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var threads []string
	for rows.Next() {
		var thread string
		if err := rows.Scan(&thread); err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

// Versions returns how many snapshots of thread are stored.
func (s *SQLiteStore) Versions(ctx context.Context, thread string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints WHERE thread_id = ?`, thread).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting versions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
