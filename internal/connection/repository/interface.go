package repository

import (
	"time"

	"inboxhub-backend/internal/connection/domain"
)

// ConnectionRepository defines the interface for connection state persistence
type ConnectionRepository interface {
	// Find a connection by its unique key; returns nil, nil when absent
	FindByUserAndProvider(userID string, provider domain.Provider) (*domain.Connection, error)
	// Find the connection holding a given provider account address
	FindByAccountEmail(provider domain.Provider, accountEmail string) (*domain.Connection, error)
	// List all connections for a user
	FindByUserID(userID string) ([]*domain.Connection, error)
	// List all connections in a given status (used by the periodic scheduler)
	FindByStatus(status domain.Status) ([]*domain.Connection, error)
	// Create or update the row for (user_id, provider)
	Upsert(conn *domain.Connection) error
	// UpdateStatus performs the single atomic status transition from -> to.
	// Returns domain.ErrInvalidTransition when the row is not in `from`.
	UpdateStatus(userID string, provider domain.Provider, from, to domain.Status) error
	// Advance the last successful sync watermark
	UpdateLastSync(userID string, provider domain.Provider, ts time.Time) error
}

// OAuthTokenRepository persists provider tokens, one row per connection
type OAuthTokenRepository interface {
	// Find the token for (user_id, provider); returns nil, nil when absent
	Find(userID string, provider domain.Provider) (*domain.OAuthToken, error)
	// Replace stores the token wholesale, creating the row if needed.
	// expires_at never moves backward for an existing row.
	Replace(token *domain.OAuthToken) error
	// Delete removes the token row (explicit disconnect)
	Delete(userID string, provider domain.Provider) error
}
