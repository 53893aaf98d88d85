package database

import (
	"context"
	"fmt"

	"github.com/linkit-hq/linkit-engine/pkg/apperrors"
)

// Transactor runs a function inside one database transaction.
// Repositories called with the context passed to fn join that transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type transactor struct{}

// NewTransactor returns a Transactor that begins transactions on the scope found in ctx.
func NewTransactor() Transactor {
	return transactor{}
}

// InTx commits when fn returns nil and rolls back otherwise.
// Nested calls open a savepoint on the outer transaction.
func (transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok {
		return apperrors.ErrNoScope
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(SetScope(ctx, &Scope{Conn: tx})); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
