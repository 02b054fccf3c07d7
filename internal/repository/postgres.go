package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaanK026/Harvia/internal/domain"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore runs migrations and connects a pool to databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := runPostgresMigrations(databaseURL); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func runPostgresMigrations(databaseURL string) error {
	d, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, user_id, created_at, updated_at FROM sessions WHERE session_id = $1`,
		sessionID).Scan(&session.SessionID, &session.UserID, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM messages WHERE session_id = $1 ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		session.History = append(session.History, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) AppendExchange(ctx context.Context, sessionID, userID, question, answer string) error {
	now := time.Now().UTC()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sessions (session_id, user_id, created_at, updated_at) VALUES ($1, $2, $3, $3)
			 ON CONFLICT (session_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
			sessionID, userID, now); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO messages (session_id, role, content, created_at) VALUES ($1, $2, $3, $5), ($1, $4, $6, $5)`,
			sessionID, string(domain.RoleUser), question, string(domain.RoleAssistant), now, answer); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ClearSession(ctx context.Context, sessionID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
