package usecase

import (
	"context"

	"inboxhub-backend/internal/connection/domain"
)

// ConnectionUsecase manages the per-(user, provider) connection lifecycle
type ConnectionUsecase interface {
	// AuthorizationURL returns the provider consent URL for a new grant
	AuthorizationURL(provider domain.Provider, state string) (string, error)
	// HandleCallback exchanges the authorization code, stores the token and
	// moves the connection to connected
	HandleCallback(ctx context.Context, userID string, provider domain.Provider, code string) (*domain.Connection, error)
	// Disconnect revokes and deletes the token and moves to disconnected
	Disconnect(ctx context.Context, userID string, provider domain.Provider) error
	// Status returns the current connection status
	Status(userID string, provider domain.Provider) (domain.Status, error)
	// List returns all connections for a user
	List(userID string) ([]*domain.Connection, error)
	// MarkRefreshRequired records a terminal auth failure (connected only)
	MarkRefreshRequired(userID string, provider domain.Provider) error
	// SetWatcher wires the mailbox push notification registrar after creation
	SetWatcher(w MailboxWatcher)
}

// TokenManager hands out valid access tokens, refreshing at most once
// concurrently per connection
type TokenManager interface {
	GetValidToken(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthToken, error)
}

// OAuthFlow is the provider side of the authorization dance
type OAuthFlow interface {
	AuthorizationURL(state string) string
	// Exchange trades an authorization code for tokens plus the provider
	// account address the grant belongs to
	Exchange(ctx context.Context, code string) (*domain.OAuthToken, string, error)
	Revoke(ctx context.Context, token *domain.OAuthToken) error
}

// TokenRefresher exchanges a refresh token for a fresh access token.
// Implementations return domain.ErrReauthRequired (wrapped) when the provider
// rejects the refresh token itself; anything else is treated as transient.
type TokenRefresher interface {
	Refresh(ctx context.Context, provider domain.Provider, refreshToken string) (*domain.OAuthToken, error)
}
