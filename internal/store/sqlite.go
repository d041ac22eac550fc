package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS history_entries (
	id         TEXT PRIMARY KEY,
	user_uid   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	phone_cmp  TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_configs (
	user_uid   TEXT PRIMARY KEY,
	config     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_user_created ON history_entries(user_uid, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_history_user_name_phone ON history_entries(user_uid, name, phone_cmp);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEntry(ctx context.Context, userUID string, entry *model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.Touch(time.Now())
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal entry")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history_entries (id, user_uid, created_at, name, phone_cmp, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, userUID, entry.CreatedAt, entry.Name, comparablePhone(entry.Phone), string(payload),
	)
	return eris.Wrap(err, "sqlite: insert entry")
}

func (s *SQLiteStore) UpdateEntry(ctx context.Context, userUID string, entry *model.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal entry")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE history_entries SET payload = ?, name = ?, phone_cmp = ? WHERE id = ? AND user_uid = ?`,
		string(payload), entry.Name, comparablePhone(entry.Phone), entry.ID, userUID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update entry %s", entry.ID)
	}
	return checkRowsAffected(res, "entry", entry.ID)
}

func (s *SQLiteStore) ListEntries(ctx context.Context, userUID string, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM history_entries WHERE user_uid = ? ORDER BY created_at DESC LIMIT ?`,
		userUID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entries")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate entries")
}

func (s *SQLiteStore) HasRecentEntry(ctx context.Context, userUID, name, phone string, since time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM history_entries WHERE user_uid = ? AND name = ? AND phone_cmp = ? AND created_at >= ?`,
		userUID, name, comparablePhone(phone), since.UnixMilli(),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: recent entry lookup")
	}
	return n > 0, nil
}

func (s *SQLiteStore) CountEntries(ctx context.Context, userUID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM history_entries WHERE user_uid = ?`,
		userUID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count entries")
	}
	return n, nil
}

func (s *SQLiteStore) GetUserConfig(ctx context.Context, userUID string) (*model.UserConfig, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM user_configs WHERE user_uid = ?`,
		userUID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get user config")
	}
	var cfg model.UserConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal user config")
	}
	return &cfg, nil
}

func (s *SQLiteStore) PutUserConfig(ctx context.Context, userUID string, cfg model.UserConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal user config")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_configs (user_uid, config, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_uid) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		userUID, string(raw), time.Now().UnixMilli(),
	)
	return eris.Wrap(err, "sqlite: put user config")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
