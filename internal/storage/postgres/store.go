// Package postgres provides a Postgres-backed implementation of the storage.Store interface.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/expensedash/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for the ledger.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new Store and runs migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			created_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS expense_groups (
			id BIGSERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			creator TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS members (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL REFERENCES users(username),
			group_id BIGINT NOT NULL REFERENCES expense_groups(id),
			UNIQUE (name, group_id)
		);`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			group_id BIGINT NOT NULL REFERENCES expense_groups(id),
			payer TEXT NOT NULL,
			amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
			description TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS splits (
			expense_id BIGINT NOT NULL REFERENCES expenses(id),
			member_id BIGINT NOT NULL,
			amount_cents BIGINT NOT NULL,
			PRIMARY KEY (expense_id, member_id)
		);`,
		`CREATE TABLE IF NOT EXISTS join_requests (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL REFERENCES users(username),
			group_id BIGINT NOT NULL REFERENCES expense_groups(id),
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
			created_at BIGINT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_members_group_id ON members (group_id);`,
		`CREATE INDEX IF NOT EXISTS idx_members_name ON members (name);`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses (group_id);`,
		`CREATE INDEX IF NOT EXISTS idx_join_requests_group_id ON join_requests (group_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RegisterUser inserts a new user row.
func (s *Store) RegisterUser(ctx context.Context, username, token string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (username, token, created_at) VALUES ($1, $2, $3)",
		username, token, time.Now().Unix(),
	)
	if isUniqueViolation(err) {
		return storage.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ValidateUser reports whether username exists with exactly this token.
func (s *Store) ValidateUser(ctx context.Context, username, token string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND token = $2)",
		username, token,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("validate user: %w", err)
	}
	return ok, nil
}

// UserExists reports whether a user row exists.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return ok, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func exists(ctx context.Context, q querier, query string, arg any) (bool, error) {
	var ok bool
	if err := q.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// checkUserAndGroup maps missing rows to the storage sentinels.
func checkUserAndGroup(ctx context.Context, q querier, username string, groupID int64) error {
	ok, err := exists(ctx, q, "SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username)
	if err != nil {
		return fmt.Errorf("check user existence: %w", err)
	}
	if !ok {
		return storage.ErrUnknownUser
	}
	return checkGroup(ctx, q, groupID)
}

func checkGroup(ctx context.Context, q querier, groupID int64) error {
	ok, err := exists(ctx, q, "SELECT EXISTS (SELECT 1 FROM expense_groups WHERE id = $1)", groupID)
	if err != nil {
		return fmt.Errorf("check group existence: %w", err)
	}
	if !ok {
		return storage.ErrUnknownGroup
	}
	return nil
}
