package database

import (
	"context"
)

type contextKey string

const (
	// ScopeKey is the context key for storing the event-scoped database connection.
	ScopeKey contextKey = "dbScope"
)

// GetScope retrieves the event-scoped database connection from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok && scope != nil
}

// SetScope stores the event-scoped database connection in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// ScopeProvider creates scoped contexts for background work that has no inbound request,
// such as the reminder task.
type ScopeProvider interface {
	WithScope(ctx context.Context) (context.Context, func(), error)
}

type scopeProvider struct {
	db *DB
}

// NewScopeProvider creates a ScopeProvider for the given database.
func NewScopeProvider(db *DB) ScopeProvider {
	return &scopeProvider{db: db}
}

// WithScope returns a context carrying a fresh connection scope.
// The cleanup function must be called when the scope is no longer needed.
func (p *scopeProvider) WithScope(ctx context.Context) (context.Context, func(), error) {
	scope, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return SetScope(ctx, scope), scope.Close, nil
}
