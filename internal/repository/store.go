// Package repository defines the session storage interface and implementations.
package repository

import (
	"context"
	"embed"
	"strings"

	"github.com/KaanK026/Harvia/internal/domain"
)

//go:embed migrations
var migrationsFS embed.FS

// Store persists conversation sessions. Implementations must be safe for
// concurrent use.
type Store interface {
	// GetSession returns the session with its ordered history, or nil when
	// the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// AppendExchange appends one question/answer pair, creating the session
	// when needed.
	AppendExchange(ctx context.Context, sessionID, userID, question, answer string) error

	// ClearSession removes the session and reports whether it existed.
	ClearSession(ctx context.Context, sessionID string) (bool, error)

	Close() error
}

// Open picks a Store implementation from the DSN: "memory", a postgres URL
// or a SQLite DSN.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	default:
		return NewSQLiteStore(dsn)
	}
}
