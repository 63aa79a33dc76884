package usecase

import (
	"context"

	conndomain "inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/internal/email/domain"
)

// EmailUsecase drives incremental sync and serves the stored inbox
type EmailUsecase interface {
	// Sync runs one incremental sync for a connection. A second call for the
	// same (user, provider) while one is running fails with ErrSyncInProgress.
	Sync(ctx context.Context, userID string, provider conndomain.Provider) (*domain.SyncResult, error)
	// TrySync is the scheduler variant: it silently skips when a sync for the
	// same connection is already running, returning nil, nil.
	TrySync(ctx context.Context, userID string, provider conndomain.Provider) (*domain.SyncResult, error)
	// ListThreads returns thread summaries, newest activity first
	ListThreads(userID string, filter domain.ThreadFilter) ([]*domain.Thread, error)
	// GetThread returns one thread and its messages oldest first
	GetThread(userID string, provider conndomain.Provider, threadID string) (*domain.Thread, []*domain.Message, error)
	// MarkRead flips the read flag on a message and updates its thread counts
	MarkRead(userID, messageID string, read bool) (*domain.Message, error)
	// MarkThreadRead marks every message of a thread read
	MarkThreadRead(userID string, provider conndomain.Provider, threadID string) (*domain.Thread, error)
}
