package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteBackend stores job state in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens a SQLite database at path, configures WAL mode and
// creates the checkpoints table.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteBackend{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	job_id     TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Load(ctx context.Context, jobID string) ([]byte, error) {
	var state string
	err := b.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE job_id = ?`, jobID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load %s", jobID)
	}
	return []byte(state), nil
}

func (b *SQLiteBackend) Save(ctx context.Context, jobID string, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO checkpoints (job_id, state, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(job_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		jobID, string(data),
	)
	return eris.Wrapf(err, "sqlite: save %s", jobID)
}

func (b *SQLiteBackend) Delete(ctx context.Context, jobID string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE job_id = ?`, jobID)
	return eris.Wrapf(err, "sqlite: delete %s", jobID)
}
