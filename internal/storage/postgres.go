package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"delegues-backend/internal/logger"
	"delegues-backend/internal/storage/migrations"
)

// PostgresStore keeps entries in the kv_entries table. Atomicity comes from
// INSERT ... ON CONFLICT and DELETE ... RETURNING, so several service
// instances may share one database.
type PostgresStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewPostgresStore wraps an existing connection pool. The caller keeps
// ownership of db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to dsn, checks the connection and applies the
// embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return &PostgresStore{db: db, ownsDB: true}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func nullExpiry(ttl time.Duration) sql.NullTime {
	t := expiry(time.Now(), ttl)
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries
	          WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`
	logger.StoreCall("Get", key)

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		logger.StoreResult("Get", key, nil, "found", false)
		return nil, ErrNotFound
	}
	logger.StoreResult("Get", key, err)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	logger.StoreCall("Set", key)

	_, err := s.db.ExecContext(ctx, query, key, value, nullExpiry(ttl))
	logger.StoreResult("Set", key, err)
	return err
}

func (s *PostgresStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	// An expired row counts as absent and is replaced in the same statement.
	query := `INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	          WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= NOW()`
	logger.StoreCall("SetIfAbsent", key)

	res, err := s.db.ExecContext(ctx, query, key, value, nullExpiry(ttl))
	if err != nil {
		logger.StoreResult("SetIfAbsent", key, err)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.StoreResult("SetIfAbsent", key, err, "rows_affected", n)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	query := `DELETE FROM kv_entries
	          WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
	          RETURNING value`
	logger.StoreCall("GetAndDelete", key)

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		logger.StoreResult("GetAndDelete", key, nil, "found", false)
		return nil, ErrNotFound
	}
	logger.StoreResult("GetAndDelete", key, err)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE key = $1`
	logger.StoreCall("Delete", key)

	_, err := s.db.ExecContext(ctx, query, key)
	logger.StoreResult("Delete", key, err)
	return err
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
	logger.StoreCall("PurgeExpired", "")

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		logger.StoreResult("PurgeExpired", "", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.StoreResult("PurgeExpired", "", err, "rows_affected", n)
	return n, err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
