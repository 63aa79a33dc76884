package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/internal/connection/repository"
)

const (
	// refreshSafetyMargin keeps a token "expired" for callers slightly before
	// the provider does, so in-flight requests never race the real expiry.
	refreshSafetyMargin = 60 * time.Second

	refreshMaxAttempts = 3
	refreshBaseBackoff = 500 * time.Millisecond
)

// tokenManager implements TokenManager with a per-connection refresh lock
type tokenManager struct {
	tokenRepo repository.OAuthTokenRepository
	connRepo  repository.ConnectionRepository
	refresher TokenRefresher

	// one mutex per (user, provider); lifetime is the process, per design
	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
}

// NewTokenManager creates a new instance of tokenManager
func NewTokenManager(tokenRepo repository.OAuthTokenRepository, connRepo repository.ConnectionRepository, refresher TokenRefresher) TokenManager {
	return &tokenManager{
		tokenRepo: tokenRepo,
		connRepo:  connRepo,
		refresher: refresher,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *tokenManager) lockFor(userID string, provider domain.Provider) *sync.Mutex {
	key := userID + ":" + string(provider)
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	if lock, ok := m.locks[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	m.locks[key] = lock
	return lock
}

// GetValidToken returns a usable access token, refreshing it if necessary.
// At most one refresh call per connection is in flight at any time.
func (m *tokenManager) GetValidToken(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthToken, error) {
	token, err := m.tokenRepo.Find(userID, provider)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, domain.ErrTokenNotFound
	}
	if token.Valid(time.Now(), refreshSafetyMargin) {
		return token, nil
	}

	lock := m.lockFor(userID, provider)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited on the lock
	token, err = m.tokenRepo.Find(userID, provider)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, domain.ErrTokenNotFound
	}
	if token.Valid(time.Now(), refreshSafetyMargin) {
		return token, nil
	}

	refreshed, err := m.refreshWithRetry(ctx, provider, token.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrReauthRequired) {
			log.Printf("[TokenManager] Terminal refresh failure for user %s provider %s: %v", userID, provider, err)
			if terr := m.connRepo.UpdateStatus(userID, provider, domain.StatusConnected, domain.StatusRefreshRequired); terr != nil && !errors.Is(terr, domain.ErrInvalidTransition) {
				log.Printf("[TokenManager] Failed to mark connection refresh_required: %v", terr)
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientRefresh, err)
	}

	refreshed.UserID = userID
	refreshed.Provider = provider
	if refreshed.RefreshToken == "" {
		// Google omits the refresh token on refresh responses; keep the old one
		refreshed.RefreshToken = token.RefreshToken
	}
	if err := m.tokenRepo.Replace(refreshed); err != nil {
		return nil, err
	}
	log.Printf("[TokenManager] Refreshed %s token for user %s (expires %s)", provider, userID, refreshed.ExpiresAt.Format(time.RFC3339))
	return refreshed, nil
}

// refreshWithRetry retries transient failures with doubling backoff and gives
// up immediately on a terminal rejection.
func (m *tokenManager) refreshWithRetry(ctx context.Context, provider domain.Provider, refreshToken string) (*domain.OAuthToken, error) {
	backoff := refreshBaseBackoff
	var lastErr error

	for attempt := 1; attempt <= refreshMaxAttempts; attempt++ {
		token, err := m.refresher.Refresh(ctx, provider, refreshToken)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, domain.ErrReauthRequired) {
			return nil, err
		}
		lastErr = err
		log.Printf("[TokenManager] Refresh attempt %d/%d failed: %v", attempt, refreshMaxAttempts, err)

		if attempt == refreshMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
