package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by pooled connections and transactions.
// Repositories only talk to the database through it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Scope wraps the connection serving one inbound event and ensures cleanup.
type Scope struct {
	Conn    Querier
	release func()
}

// NewScope wraps an arbitrary querier. Release may be nil.
func NewScope(conn Querier, release func()) *Scope {
	return &Scope{Conn: conn, release: release}
}

// Close releases the connection to the pool. Safe to call more than once.
func (s *Scope) Close() {
	if s == nil || s.release == nil {
		return
	}
	s.release()
	s.release = nil
}

// Acquire takes a pooled connection for the lifetime of one event.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Scope{Conn: conn, release: conn.Release}, nil
}
