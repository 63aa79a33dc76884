package usecase

import (
	"context"

	"inboxhub-backend/internal/categorization/domain"
)

// PromptUpdate carries the editable fields of a prompt config. Nil/empty
// fields keep their current values.
type PromptUpdate struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Template    string   `json:"template,omitempty"`
}

// CategorizationUsecase assigns categories to synced messages and manages the
// per-user versioned prompt configuration.
type CategorizationUsecase interface {
	// CategorizeBatch processes up to limit uncategorized messages for a user
	// (empty userID means all users); limit <= 0 uses the configured batch size
	CategorizeBatch(ctx context.Context, userID string, limit int) (*domain.BatchResult, error)
	// CategorizeAll drains the uncategorized backlog batch by batch
	CategorizeAll(ctx context.Context, userID string) (*domain.BatchResult, error)
	// GetPromptConfig returns the user's active config, creating the default
	// on first access
	GetPromptConfig(userID string) (*domain.PromptConfig, error)
	// UpdatePromptConfig applies an edit and bumps the prompt version
	UpdatePromptConfig(userID string, update PromptUpdate) (*domain.PromptConfig, error)
	// ResetPromptConfig restores the default template and parameters
	ResetPromptConfig(userID string) (*domain.PromptConfig, error)
}
