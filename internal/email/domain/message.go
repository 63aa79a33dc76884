package domain

import (
	"context"
	"errors"
	"time"

	conndomain "inboxhub-backend/internal/connection/domain"
)

var (
	// ErrSyncInProgress is returned when an explicit sync request races an
	// in-flight sync for the same (user, provider).
	ErrSyncInProgress = errors.New("sync already in progress")

	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("provider rate limited")
	ErrThreadNotFound      = errors.New("thread not found")
	ErrMessageNotFound     = errors.New("message not found")
)

// Message is one synced mail item. The row is created on first observation;
// sync only ever mutates labels, read state and categorization fields after
// that.
type Message struct {
	ID                    string     `json:"id" gorm:"primaryKey"`
	UserID                string     `json:"user_id" gorm:"index:idx_msg_unique,unique;not null"`
	Provider              string     `json:"provider" gorm:"index:idx_msg_unique,unique;not null"`
	ProviderMessageID     string     `json:"provider_message_id" gorm:"index:idx_msg_unique,unique;not null"`
	ThreadID              string     `json:"thread_id" gorm:"index"`
	Sender                string     `json:"sender"`
	Recipients            []string   `json:"recipients" gorm:"serializer:json"`
	CC                    []string   `json:"cc,omitempty" gorm:"serializer:json"`
	DateSent              time.Time  `json:"date_sent" gorm:"index"`
	Subject               string     `json:"subject"`
	Snippet               string     `json:"snippet"`
	BodyText              string     `json:"body_text,omitempty"`
	BodyHTML              string     `json:"body_html,omitempty"`
	Labels                []string   `json:"labels" gorm:"serializer:json"`
	HasAttachments        bool       `json:"has_attachments"`
	IsRead                bool       `json:"is_read"`
	Category              *string    `json:"category,omitempty" gorm:"index"`
	CategoryConfidence    *float64   `json:"category_confidence,omitempty"`
	CategorizedAt         *time.Time `json:"categorized_at,omitempty"`
	CategoryPromptVersion string     `json:"category_prompt_version,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Thread is the maintained aggregate over messages sharing a conversation
// identity. It is never authored directly; sync recomputes it as messages
// are upserted.
type Thread struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	UserID         string    `json:"user_id" gorm:"index:idx_thread_unique,unique;not null"`
	Provider       string    `json:"provider" gorm:"index:idx_thread_unique,unique;not null"`
	ThreadID       string    `json:"thread_id" gorm:"index:idx_thread_unique,unique;not null"`
	Subject        string    `json:"subject"`
	EmailCount     int       `json:"email_count"`
	UnreadCount    int       `json:"unread_count"`
	LatestSender   string    `json:"latest_sender"`
	LatestSnippet  string    `json:"latest_snippet"`
	LatestDate     time.Time `json:"latest_date" gorm:"index"`
	Labels         []string  `json:"labels" gorm:"serializer:json"`
	HasAttachments bool      `json:"has_attachments"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MessageRef is a lightweight listing entry from the provider
type MessageRef struct {
	ProviderMessageID string
	ThreadID          string
	Date              time.Time
}

// RemoteMessage is the normalized full message shape every provider adapter
// returns; SyncEngine never sees provider-specific payloads.
type RemoteMessage struct {
	ProviderMessageID string
	ThreadID          string
	Sender            string
	Recipients        []string
	CC                []string
	DateSent          time.Time
	Subject           string
	Snippet           string
	BodyText          string
	BodyHTML          string
	Labels            []string
	HasAttachments    bool
	IsRead            bool
}

// MailProvider is the provider boundary: anything exposing list/get over
// OAuth credentials can implement it.
type MailProvider interface {
	Name() conndomain.Provider
	// ListMessages returns identifiers newer than since (zero value means the
	// full first page), at most max entries, newest last.
	ListMessages(ctx context.Context, token *conndomain.OAuthToken, since time.Time, max int) ([]MessageRef, error)
	// GetMessage fetches and normalizes one full message
	GetMessage(ctx context.Context, token *conndomain.OAuthToken, providerMessageID string) (*RemoteMessage, error)
}

// SyncResult reports explicit per-message success/failure counts
type SyncResult struct {
	SyncedCount int `json:"synced_count"`
	FailedCount int `json:"failed_count"`
}

// ThreadFilter narrows thread listings
type ThreadFilter struct {
	Label      string
	UnreadOnly bool
	Limit      int
	Offset     int
}
