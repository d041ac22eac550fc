package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, abstracted so the
// Postgres backend can be unit-tested with pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS history_entries (
	id         TEXT PRIMARY KEY,
	user_uid   TEXT NOT NULL,
	created_at BIGINT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	phone_cmp  TEXT NOT NULL DEFAULT '',
	payload    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS user_configs (
	user_uid   TEXT PRIMARY KEY,
	config     JSONB NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_user_created ON history_entries(user_uid, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_history_user_name_phone ON history_entries(user_uid, name, phone_cmp);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveEntry(ctx context.Context, userUID string, entry *model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.Touch(time.Now())
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal entry")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO history_entries (id, user_uid, created_at, name, phone_cmp, payload) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, userUID, entry.CreatedAt, entry.Name, comparablePhone(entry.Phone), payload,
	)
	return eris.Wrap(err, "postgres: insert entry")
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, userUID string, entry *model.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal entry")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE history_entries SET payload = $1, name = $2, phone_cmp = $3 WHERE id = $4 AND user_uid = $5`,
		payload, entry.Name, comparablePhone(entry.Phone), entry.ID, userUID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update entry %s", entry.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("entry not found: %s", entry.ID)
	}
	return nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, userUID string, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM history_entries WHERE user_uid = $1 ORDER BY created_at DESC LIMIT $2`,
		userUID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entries")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		var e model.HistoryEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate entries")
}

func (s *PostgresStore) HasRecentEntry(ctx context.Context, userUID, name, phone string, since time.Time) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM history_entries WHERE user_uid = $1 AND name = $2 AND phone_cmp = $3 AND created_at >= $4`,
		userUID, name, comparablePhone(phone), since.UnixMilli(),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: recent entry lookup")
	}
	return n > 0, nil
}

func (s *PostgresStore) CountEntries(ctx context.Context, userUID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM history_entries WHERE user_uid = $1`,
		userUID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count entries")
	}
	return n, nil
}

func (s *PostgresStore) GetUserConfig(ctx context.Context, userUID string) (*model.UserConfig, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM user_configs WHERE user_uid = $1`,
		userUID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user config")
	}
	var cfg model.UserConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal user config")
	}
	return &cfg, nil
}

func (s *PostgresStore) PutUserConfig(ctx context.Context, userUID string, cfg model.UserConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal user config")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_configs (user_uid, config, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_uid) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`,
		userUID, raw, time.Now().UnixMilli(),
	)
	return eris.Wrap(err, "postgres: put user config")
}
