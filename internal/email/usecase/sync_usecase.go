package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	conndomain "inboxhub-backend/internal/connection/domain"
	connrepo "inboxhub-backend/internal/connection/repository"
	connusecase "inboxhub-backend/internal/connection/usecase"
	"inboxhub-backend/internal/email/domain"
	"inboxhub-backend/internal/email/repository"
)

const (
	providerMaxAttempts = 3
	providerBaseBackoff = 500 * time.Millisecond
)

// emailUsecase implements EmailUsecase
type emailUsecase struct {
	msgRepo    repository.MessageRepository
	threadRepo repository.ThreadRepository
	connRepo   connrepo.ConnectionRepository
	tokens     connusecase.TokenManager
	providers  map[conndomain.Provider]domain.MailProvider
	maxResults int

	mu       sync.Mutex
	inflight map[string]bool
}

// NewEmailUsecase creates a new instance of emailUsecase
func NewEmailUsecase(msgRepo repository.MessageRepository, threadRepo repository.ThreadRepository, connRepo connrepo.ConnectionRepository, tokens connusecase.TokenManager, providers map[conndomain.Provider]domain.MailProvider, maxResults int) EmailUsecase {
	if maxResults <= 0 {
		maxResults = 100
	}
	return &emailUsecase{
		msgRepo:    msgRepo,
		threadRepo: threadRepo,
		connRepo:   connRepo,
		tokens:     tokens,
		providers:  providers,
		maxResults: maxResults,
		inflight:   make(map[string]bool),
	}
}

func (u *emailUsecase) Sync(ctx context.Context, userID string, provider conndomain.Provider) (*domain.SyncResult, error) {
	if !u.begin(userID, provider) {
		return nil, domain.ErrSyncInProgress
	}
	defer u.end(userID, provider)
	return u.sync(ctx, userID, provider)
}

func (u *emailUsecase) TrySync(ctx context.Context, userID string, provider conndomain.Provider) (*domain.SyncResult, error) {
	if !u.begin(userID, provider) {
		log.Printf("[Sync] Skipping %s/%s, sync already running", userID, provider)
		return nil, nil
	}
	defer u.end(userID, provider)
	return u.sync(ctx, userID, provider)
}

func (u *emailUsecase) begin(userID string, provider conndomain.Provider) bool {
	key := userID + "/" + string(provider)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inflight[key] {
		return false
	}
	u.inflight[key] = true
	return true
}

func (u *emailUsecase) end(userID string, provider conndomain.Provider) {
	u.mu.Lock()
	delete(u.inflight, userID+"/"+string(provider))
	u.mu.Unlock()
}

func (u *emailUsecase) sync(ctx context.Context, userID string, provider conndomain.Provider) (*domain.SyncResult, error) {
	p, ok := u.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	conn, err := u.connRepo.FindByUserAndProvider(userID, provider)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, conndomain.ErrConnectionNotFound
	}
	switch conn.Status {
	case conndomain.StatusConnected:
	case conndomain.StatusRefreshRequired:
		return nil, conndomain.ErrReauthRequired
	default:
		return nil, fmt.Errorf("connection is %s", conn.Status)
	}

	// Fail fast on credentials before touching the provider
	token, err := u.tokens.GetValidToken(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if conn.LastSyncAt != nil {
		since = *conn.LastSyncAt
	}

	var refs []domain.MessageRef
	err = u.withBackoff(ctx, func() error {
		var listErr error
		refs, listErr = p.ListMessages(ctx, token, since, u.maxResults)
		return listErr
	})
	if err != nil {
		if errors.Is(err, conndomain.ErrUnauthorized) {
			u.flagReauth(userID, provider)
		}
		return nil, fmt.Errorf("message listing failed: %w", err)
	}
	log.Printf("[Sync] %s/%s: %d candidate messages since %v", userID, provider, len(refs), since)

	result := &domain.SyncResult{}
	touched := make(map[string]bool)
	watermark := since

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		exists, err := u.msgRepo.Exists(userID, string(provider), ref.ProviderMessageID)
		if err != nil {
			result.FailedCount++
			continue
		}
		if exists {
			continue
		}

		var remote *domain.RemoteMessage
		err = u.withBackoff(ctx, func() error {
			var getErr error
			remote, getErr = p.GetMessage(ctx, token, ref.ProviderMessageID)
			return getErr
		})
		if err != nil {
			if errors.Is(err, conndomain.ErrUnauthorized) {
				u.flagReauth(userID, provider)
				return result, err
			}
			result.FailedCount++
			log.Printf("[Sync] Failed to fetch message %s: %v", ref.ProviderMessageID, err)
			continue
		}

		msg := toMessage(userID, provider, remote)
		if msg.ThreadID == "" {
			msg.ThreadID = deriveThreadID(remote.Subject, remote.Sender, remote.Recipients, remote.CC)
		}

		created, err := u.msgRepo.Upsert(msg)
		if err != nil {
			result.FailedCount++
			log.Printf("[Sync] Failed to store message %s: %v", ref.ProviderMessageID, err)
			continue
		}
		if created {
			result.SyncedCount++
		}
		touched[msg.ThreadID] = true
		if remote.DateSent.After(watermark) {
			watermark = remote.DateSent
		}
	}

	for threadID := range touched {
		if err := u.refreshThread(userID, string(provider), threadID); err != nil {
			log.Printf("[Sync] Failed to update thread %s: %v", threadID, err)
		}
	}

	// The watermark only moves forward over committed messages, so an
	// interrupted run re-lists the tail instead of skipping it.
	if watermark.After(since) {
		if err := u.connRepo.UpdateLastSync(userID, provider, watermark); err != nil {
			return result, err
		}
	}

	log.Printf("[Sync] %s/%s completed: %d synced, %d failed", userID, provider, result.SyncedCount, result.FailedCount)
	return result, nil
}

// withBackoff retries transient provider failures with doubling delays
func (u *emailUsecase) withBackoff(ctx context.Context, op func() error) error {
	backoff := providerBaseBackoff
	var err error
	for attempt := 0; attempt < providerMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = op(); err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrRateLimited) && !errors.Is(err, domain.ErrProviderUnavailable) {
			return err
		}
	}
	return err
}

// flagReauth records a mid-sync 401. The transition only applies from
// connected; a connection already flagged is left alone.
func (u *emailUsecase) flagReauth(userID string, provider conndomain.Provider) {
	err := u.connRepo.UpdateStatus(userID, provider, conndomain.StatusConnected, conndomain.StatusRefreshRequired)
	if err != nil && !errors.Is(err, conndomain.ErrInvalidTransition) {
		log.Printf("[Sync] Failed to flag %s/%s for reauth: %v", userID, provider, err)
	}
}

// refreshThread recomputes one thread aggregate from its stored messages
func (u *emailUsecase) refreshThread(userID, provider, threadID string) error {
	msgs, err := u.msgRepo.FindByThread(userID, provider, threadID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	total, unread, err := u.msgRepo.ThreadStats(userID, provider, threadID)
	if err != nil {
		return err
	}

	thread, err := u.threadRepo.Find(userID, provider, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		thread = &domain.Thread{
			UserID:   userID,
			Provider: provider,
			ThreadID: threadID,
		}
	}

	labels := make([]string, 0)
	seen := make(map[string]bool)
	hasAttachments := false
	for _, m := range msgs {
		for _, l := range m.Labels {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
		if m.HasAttachments {
			hasAttachments = true
		}
	}

	latest := msgs[len(msgs)-1]
	thread.Subject = msgs[0].Subject
	thread.EmailCount = total
	thread.UnreadCount = unread
	thread.LatestSender = latest.Sender
	thread.LatestSnippet = latest.Snippet
	thread.LatestDate = latest.DateSent
	thread.Labels = labels
	thread.HasAttachments = hasAttachments

	return u.threadRepo.Save(thread)
}

func (u *emailUsecase) ListThreads(userID string, filter domain.ThreadFilter) ([]*domain.Thread, error) {
	return u.threadRepo.List(userID, filter)
}

func (u *emailUsecase) GetThread(userID string, provider conndomain.Provider, threadID string) (*domain.Thread, []*domain.Message, error) {
	thread, err := u.threadRepo.Find(userID, string(provider), threadID)
	if err != nil {
		return nil, nil, err
	}
	if thread == nil {
		return nil, nil, domain.ErrThreadNotFound
	}
	msgs, err := u.msgRepo.FindByThread(userID, string(provider), threadID)
	if err != nil {
		return nil, nil, err
	}
	return thread, msgs, nil
}

func (u *emailUsecase) MarkRead(userID, messageID string, read bool) (*domain.Message, error) {
	msg, err := u.msgRepo.SetRead(userID, messageID, read)
	if err != nil {
		return nil, err
	}
	if err := u.refreshThread(userID, msg.Provider, msg.ThreadID); err != nil {
		log.Printf("[Sync] Failed to update thread %s after read change: %v", msg.ThreadID, err)
	}
	return msg, nil
}

func (u *emailUsecase) MarkThreadRead(userID string, provider conndomain.Provider, threadID string) (*domain.Thread, error) {
	thread, err := u.threadRepo.Find(userID, string(provider), threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, domain.ErrThreadNotFound
	}

	msgs, err := u.msgRepo.FindByThread(userID, string(provider), threadID)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg.IsRead {
			continue
		}
		if _, err := u.msgRepo.SetRead(userID, msg.ID, true); err != nil {
			return nil, err
		}
	}

	if err := u.refreshThread(userID, string(provider), threadID); err != nil {
		return nil, err
	}
	return u.threadRepo.Find(userID, string(provider), threadID)
}

func toMessage(userID string, provider conndomain.Provider, remote *domain.RemoteMessage) *domain.Message {
	return &domain.Message{
		UserID:            userID,
		Provider:          string(provider),
		ProviderMessageID: remote.ProviderMessageID,
		ThreadID:          remote.ThreadID,
		Sender:            remote.Sender,
		Recipients:        remote.Recipients,
		CC:                remote.CC,
		DateSent:          remote.DateSent,
		Subject:           remote.Subject,
		Snippet:           remote.Snippet,
		BodyText:          remote.BodyText,
		BodyHTML:          remote.BodyHTML,
		Labels:            remote.Labels,
		HasAttachments:    remote.HasAttachments,
		IsRead:            remote.IsRead,
	}
}
