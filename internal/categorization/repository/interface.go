package repository

import "inboxhub-backend/internal/categorization/domain"

// PromptConfigRepository defines the interface for prompt config persistence
type PromptConfigRepository interface {
	// FindActive returns the active config for (user, name); nil, nil when absent
	FindActive(userID, name string) (*domain.PromptConfig, error)
	// Save creates or updates a config row
	Save(config *domain.PromptConfig) error
	// Delete removes the (user, name) row
	Delete(userID, name string) error
}
