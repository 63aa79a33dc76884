package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/internal/connection/repository"
)

// MailboxWatcher registers/unregisters provider push notifications for a
// connection. Optional; wired when Pub/Sub ingress is enabled.
type MailboxWatcher interface {
	Watch(ctx context.Context, token *domain.OAuthToken) error
	Stop(ctx context.Context, token *domain.OAuthToken) error
}

// connectionUsecase implements ConnectionUsecase
type connectionUsecase struct {
	connRepo  repository.ConnectionRepository
	tokenRepo repository.OAuthTokenRepository
	flows     map[domain.Provider]OAuthFlow
	watcher   MailboxWatcher
}

// NewConnectionUsecase creates a new instance of connectionUsecase
func NewConnectionUsecase(connRepo repository.ConnectionRepository, tokenRepo repository.OAuthTokenRepository, flows map[domain.Provider]OAuthFlow) ConnectionUsecase {
	return &connectionUsecase{
		connRepo:  connRepo,
		tokenRepo: tokenRepo,
		flows:     flows,
	}
}

// SetWatcher allows wiring the mailbox watcher after creation
func (u *connectionUsecase) SetWatcher(w MailboxWatcher) {
	u.watcher = w
}

func (u *connectionUsecase) AuthorizationURL(provider domain.Provider, state string) (string, error) {
	flow, ok := u.flows[provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
	return flow.AuthorizationURL(state), nil
}

// HandleCallback completes an OAuth grant: the token is stored (replacing any
// previous one wholesale) and the connection becomes connected.
func (u *connectionUsecase) HandleCallback(ctx context.Context, userID string, provider domain.Provider, code string) (*domain.Connection, error) {
	flow, ok := u.flows[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	token, accountEmail, err := flow.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	token.UserID = userID
	token.Provider = provider

	if err := u.tokenRepo.Replace(token); err != nil {
		return nil, err
	}

	existing, err := u.connRepo.FindByUserAndProvider(userID, provider)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Status.CanTransitionTo(domain.StatusConnected) && existing.Status != domain.StatusConnected {
		return nil, domain.ErrInvalidTransition
	}

	conn := &domain.Connection{
		UserID:       userID,
		Provider:     provider,
		Status:       domain.StatusConnected,
		AccountEmail: accountEmail,
		Metadata: map[string]string{
			"scope":        token.Scope,
			"connected_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if existing != nil {
		conn.LastSyncAt = existing.LastSyncAt
	}
	if err := u.connRepo.Upsert(conn); err != nil {
		return nil, err
	}
	log.Printf("[Connections] %s connected for user %s (%s)", provider, userID, accountEmail)

	if u.watcher != nil && provider == domain.ProviderGmail {
		if err := u.watcher.Watch(ctx, token); err != nil {
			log.Printf("[Connections] Failed to register mailbox watch: %v", err)
		}
	}
	return conn, nil
}

// Disconnect revokes the grant (best effort), deletes the stored token and
// records the disconnected state. Idempotent for already-disconnected rows.
func (u *connectionUsecase) Disconnect(ctx context.Context, userID string, provider domain.Provider) error {
	conn, err := u.connRepo.FindByUserAndProvider(userID, provider)
	if err != nil {
		return err
	}
	if conn == nil {
		return domain.ErrConnectionNotFound
	}
	if conn.Status == domain.StatusDisconnected {
		return nil
	}

	token, err := u.tokenRepo.Find(userID, provider)
	if err != nil {
		return err
	}
	if token != nil {
		if u.watcher != nil && provider == domain.ProviderGmail {
			if err := u.watcher.Stop(ctx, token); err != nil {
				log.Printf("[Connections] Failed to stop mailbox watch: %v", err)
			}
		}
		if flow, ok := u.flows[provider]; ok {
			if err := flow.Revoke(ctx, token); err != nil {
				// Revocation is best effort; the token row is deleted regardless
				log.Printf("[Connections] Token revocation failed for user %s: %v", userID, err)
			}
		}
	}

	if err := u.tokenRepo.Delete(userID, provider); err != nil {
		return err
	}
	if err := u.connRepo.UpdateStatus(userID, provider, conn.Status, domain.StatusDisconnected); err != nil {
		return err
	}
	log.Printf("[Connections] %s disconnected for user %s", provider, userID)
	return nil
}

func (u *connectionUsecase) Status(userID string, provider domain.Provider) (domain.Status, error) {
	conn, err := u.connRepo.FindByUserAndProvider(userID, provider)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return domain.StatusDisconnected, nil
	}
	return conn.Status, nil
}

func (u *connectionUsecase) List(userID string) ([]*domain.Connection, error) {
	return u.connRepo.FindByUserID(userID)
}

// MarkRefreshRequired records a terminal auth failure. Only legal from
// connected; a connection already flagged stays as-is.
func (u *connectionUsecase) MarkRefreshRequired(userID string, provider domain.Provider) error {
	err := u.connRepo.UpdateStatus(userID, provider, domain.StatusConnected, domain.StatusRefreshRequired)
	if errors.Is(err, domain.ErrInvalidTransition) {
		conn, ferr := u.connRepo.FindByUserAndProvider(userID, provider)
		if ferr == nil && conn != nil && conn.Status == domain.StatusRefreshRequired {
			return nil
		}
	}
	return err
}
