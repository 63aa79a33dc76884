package repository

import (
	"time"

	"inboxhub-backend/internal/email/domain"
)

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	// Exists checks the (user, provider, provider_message_id) unique key
	Exists(userID, provider, providerMessageID string) (bool, error)
	// FindByID returns a message by row id scoped to the user; nil, nil when absent
	FindByID(userID, id string) (*domain.Message, error)
	// Upsert inserts a new message or, for an existing row, updates only the
	// mutable fields (labels, is_read). Returns whether a row was created.
	Upsert(msg *domain.Message) (bool, error)
	// FindByThread returns all messages of a thread ordered oldest first
	FindByThread(userID, provider, threadID string) ([]*domain.Message, error)
	// ThreadStats returns total and unread counts for a thread
	ThreadStats(userID, provider, threadID string) (total int, unread int, err error)
	// FindUncategorized selects up to limit messages with no category, oldest
	// first for deterministic processing order; empty userID means all users
	FindUncategorized(userID string, limit int) ([]*domain.Message, error)
	// UpdateCategory persists the categorization result for one message
	UpdateCategory(id, category string, confidence float64, at time.Time, promptVersion string) error
	// SetRead flips the read flag; returns the affected message
	SetRead(userID, id string, read bool) (*domain.Message, error)
}

// ThreadRepository defines the interface for thread aggregate persistence
type ThreadRepository interface {
	// Find by the (user, provider, thread_id) key; nil, nil when absent
	Find(userID, provider, threadID string) (*domain.Thread, error)
	// Save creates or updates the aggregate row
	Save(thread *domain.Thread) error
	// List returns thread summaries for a user, newest activity first
	List(userID string, filter domain.ThreadFilter) ([]*domain.Thread, error)
}
