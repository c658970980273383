package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL. Session data is stored as
// jsonb and expiry is evaluated in SQL against the last-access column, so a
// dead entry is invisible to readers even before DeleteExpired removes it.
//
// The pool lifecycle is managed by the caller.
type PostgresStore[Data any] struct {
	pool   *pgxpool.Pool
	table  string
	maxAge time.Duration
	logger *slog.Logger
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*postgresStoreConfig)

type postgresStoreConfig struct {
	table  string
	maxAge time.Duration
	logger *slog.Logger
}

// WithPostgresTable sets the table name. Defaults to "sessions".
func WithPostgresTable(table string) PostgresStoreOption {
	return func(c *postgresStoreConfig) {
		if table != "" {
			c.table = table
		}
	}
}

// WithPostgresMaxAge sets the session time-to-live.
func WithPostgresMaxAge(maxAge time.Duration) PostgresStoreOption {
	return func(c *postgresStoreConfig) {
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// WithPostgresLogger sets the logger used by Migrate.
func WithPostgresLogger(logger *slog.Logger) PostgresStoreOption {
	return func(c *postgresStoreConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewPostgresStore creates a PostgreSQL-backed session store.
// Call Migrate once to create the backing table.
func NewPostgresStore[Data any](pool *pgxpool.Pool, opts ...PostgresStoreOption) *PostgresStore[Data] {
	cfg := postgresStoreConfig{
		table:  "sessions",
		maxAge: defaultMaxAge,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &PostgresStore[Data]{
		pool:   pool,
		table:  cfg.table,
		maxAge: cfg.maxAge,
		logger: cfg.logger,
	}
}

// Get returns the session for id, or ErrNotFound when the id is unknown or
// the row has expired.
func (ps *PostgresStore[Data]) Get(ctx context.Context, id string) (Session[Data], error) {
	var (
		raw        []byte
		createdAt  time.Time
		lastAccess time.Time
	)

	err := ps.pool.QueryRow(ctx, `
		SELECT data, created_at, last_access FROM `+ps.table+`
		WHERE id = $1 AND last_access > now() - $2::interval`,
		id, ps.maxAge).Scan(&raw, &createdAt, &lastAccess)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session[Data]{}, ErrNotFound
		}
		return Session[Data]{}, err
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return Session[Data]{}, err
	}

	return Session[Data]{
		ID:         id,
		Data:       data,
		CreatedAt:  createdAt,
		LastAccess: lastAccess,
	}, nil
}

// Set upserts the session and bumps its last-access time.
func (ps *PostgresStore[Data]) Set(ctx context.Context, id string, sess Session[Data]) error {
	raw, err := json.Marshal(sess.Data)
	if err != nil {
		return err
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO `+ps.table+` (id, data, created_at, last_access)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET data = $2, last_access = now()`,
		id, raw, createdAt)
	return err
}

// Destroy removes the session row. Absent ids are a no-op.
func (ps *PostgresStore[Data]) Destroy(ctx context.Context, id string) error {
	_, err := ps.pool.Exec(ctx, `DELETE FROM `+ps.table+` WHERE id = $1`, id)
	return err
}

// All returns a snapshot of the live sessions.
func (ps *PostgresStore[Data]) All(ctx context.Context) ([]Session[Data], error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, data, created_at, last_access FROM `+ps.table+`
		WHERE last_access > now() - $1::interval`, ps.maxAge)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session[Data]
	for rows.Next() {
		var (
			sess Session[Data]
			raw  []byte
		)
		if err := rows.Scan(&sess.ID, &raw, &sess.CreatedAt, &sess.LastAccess); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &sess.Data); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Len returns the count of live sessions.
func (ps *PostgresStore[Data]) Len(ctx context.Context) (int, error) {
	var n int
	err := ps.pool.QueryRow(ctx, `
		SELECT count(*) FROM `+ps.table+`
		WHERE last_access > now() - $1::interval`, ps.maxAge).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteExpired removes rows past the store's max age and returns how many
// were deleted. Run it periodically; readers never see expired rows either
// way because every query carries the expiry predicate.
func (ps *PostgresStore[Data]) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := ps.pool.Exec(ctx, `
		DELETE FROM `+ps.table+` WHERE last_access <= now() - $1::interval`,
		ps.maxAge)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Store[any] = (*PostgresStore[any])(nil)
