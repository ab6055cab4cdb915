package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"exam-progress-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
    profile      TEXT PRIMARY KEY,
    snapshot     TEXT NOT NULL,
    last_updated TEXT NOT NULL
);
`

// LocalStore keeps progress snapshots in a local SQLite file, one row per
// profile. It is the client-side twin of the server progress stores.
type LocalStore struct {
	db *sql.DB
}

func OpenLocalStore(path string) (*LocalStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LocalStore{db: db}, nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) Load(ctx context.Context, profile string) (domain.Progress, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT snapshot FROM progress WHERE profile = ?", profile).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, err
	}
	var p domain.Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Progress{}, false, err
	}
	return p, true, nil
}

func (s *LocalStore) Save(ctx context.Context, profile string, p domain.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (profile, snapshot, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET snapshot = excluded.snapshot, last_updated = excluded.last_updated`,
		profile, string(raw), p.LastUpdated.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	return err
}

func (s *LocalStore) Delete(ctx context.Context, profile string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE profile = ?", profile)
	return err
}
