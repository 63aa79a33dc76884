package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrTemplateInvalid is returned when a prompt template is missing one of
	// the required placeholders.
	ErrTemplateInvalid = errors.New("prompt template invalid")

	// ErrModelTimeout is returned when the model call exceeds its deadline
	ErrModelTimeout = errors.New("model request timed out")

	// ErrMalformedResponse is returned when the model output contains no
	// parseable categorization JSON.
	ErrMalformedResponse = errors.New("malformed model response")
)

// CategoryOther is the catch-all bucket; unknown model output lands here
const CategoryOther = "OTHER"

// ValidCategories is the closed set of categories the model may assign
var ValidCategories = []string{
	"CLIENT_COMMUNICATION",
	"MARKET_RESEARCH",
	"REGULATORY_COMPLIANCE",
	"FINANCIAL_REPORTING",
	"TRANSACTION_ALERTS",
	"INTERNAL_OPERATIONS",
	"VENDOR_SERVICES",
	"MARKETING_SALES",
	"EDUCATIONAL_CONTENT",
	CategoryOther,
}

// IsValidCategory checks membership in the closed category set
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

// TemplatePlaceholders are the substitutions every template must carry
var TemplatePlaceholders = []string{"{subject}", "{sender}", "{content}"}

// ValidateTemplate checks that all required placeholders are present
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return ErrTemplateInvalid
	}
	for _, p := range TemplatePlaceholders {
		if !strings.Contains(template, p) {
			return ErrTemplateInvalid
		}
	}
	return nil
}

// PromptConfig is a user's versioned categorization prompt. Exactly one row
// per (user, name) is active; every template edit bumps the version.
type PromptConfig struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index:idx_prompt_user_name,unique;not null"`
	Name        string    `json:"name" gorm:"index:idx_prompt_user_name,unique;not null"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Version     string    `json:"prompt_version"`
	Template    string    `json:"template" gorm:"type:text"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Result is one categorization outcome
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// BatchResult reports a batch categorization run
type BatchResult struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
