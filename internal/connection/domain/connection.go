package domain

import (
	"errors"
	"time"
)

// Provider identifies an external mail/chat account provider
type Provider string

const (
	ProviderGmail Provider = "gmail"
)

// Status is the connection lifecycle state
type Status string

const (
	StatusDisconnected    Status = "disconnected"
	StatusConnected       Status = "connected"
	StatusRefreshRequired Status = "refresh_required"
)

// CanTransitionTo reports whether the state machine allows moving to next.
// Disconnected is reachable from any state (explicit disconnect);
// refresh_required is reachable only from connected (terminal auth failure);
// connected is reachable from the other two via a fresh OAuth grant.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return false
	}
	switch next {
	case StatusDisconnected:
		return true
	case StatusConnected:
		return s == StatusDisconnected || s == StatusRefreshRequired
	case StatusRefreshRequired:
		return s == StatusConnected
	}
	return false
}

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrTokenNotFound      = errors.New("oauth token not found")
	ErrInvalidTransition  = errors.New("invalid connection status transition")

	// ErrReauthRequired means the refresh token itself was rejected by the
	// provider; the user must complete a new OAuth grant.
	ErrReauthRequired = errors.New("reauthorization required")

	// ErrTransientRefresh means the refresh failed for a retryable reason
	// (timeout, provider 5xx) and retries were exhausted.
	ErrTransientRefresh = errors.New("transient token refresh failure")

	// ErrUnauthorized is returned by providers on a 401 during sync; the
	// caller delegates to the TokenManager instead of retrying.
	ErrUnauthorized = errors.New("provider rejected credentials")
)

// Connection is the per-(user, provider) link state
type Connection struct {
	ID           string            `json:"id" gorm:"primaryKey"`
	UserID       string            `json:"user_id" gorm:"index:idx_user_provider,unique;not null"`
	Provider     Provider          `json:"provider" gorm:"index:idx_user_provider,unique;not null"`
	Status       Status            `json:"status" gorm:"not null;default:disconnected"`
	AccountEmail string            `json:"account_email,omitempty" gorm:"index"`
	LastSyncAt   *time.Time        `json:"last_sync_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// OAuthToken is owned by exactly one Connection and replaced wholesale on
// refresh or re-auth. Access and refresh tokens are stored sealed.
type OAuthToken struct {
	ID           string    `json:"-" gorm:"primaryKey"`
	UserID       string    `json:"-" gorm:"index:idx_token_user_provider,unique;not null"`
	Provider     Provider  `json:"-" gorm:"index:idx_token_user_provider,unique;not null"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Valid reports whether the access token is still usable at the given time,
// leaving margin for in-flight requests.
func (t *OAuthToken) Valid(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now.Add(margin))
}
