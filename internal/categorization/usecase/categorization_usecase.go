package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"inboxhub-backend/internal/categorization/domain"
	"inboxhub-backend/internal/categorization/repository"
	emaildomain "inboxhub-backend/internal/email/domain"
	emailrepo "inboxhub-backend/internal/email/repository"
	"inboxhub-backend/pkg/llm"
)

const (
	promptName   = "email_categorization"
	systemPrompt = "You are an expert email categorization system for financial professionals."

	defaultModel       = "gpt-3.5-turbo"
	defaultTemperature = 0.1
	defaultMaxTokens   = 200
	defaultVersion     = "1.0"

	modelTimeout       = 10 * time.Second
	contentCharLimit   = 1000
	fallbackConfidence = 0.1
)

const defaultTemplate = `Categorize the following email into exactly one of these categories:

- CLIENT_COMMUNICATION: direct correspondence with clients about their accounts or portfolios
- MARKET_RESEARCH: analyst reports, market commentary, investment research
- REGULATORY_COMPLIANCE: regulator notices, compliance requirements, legal filings
- FINANCIAL_REPORTING: statements, earnings reports, performance summaries
- TRANSACTION_ALERTS: trade confirmations, transfers, payment notifications
- INTERNAL_OPERATIONS: internal company communication, HR, IT, scheduling
- VENDOR_SERVICES: invoices and correspondence from service providers
- MARKETING_SALES: promotional content, product pitches, newsletters selling services
- EDUCATIONAL_CONTENT: courses, webinars, industry education
- OTHER: anything that fits none of the above

Email:
Subject: {subject}
From: {sender}
Content: {content}

Respond with JSON only, in exactly this format:
{"category": "CATEGORY_NAME", "confidence": 0.95, "reasoning": "one short sentence"}`

// categorizationUsecase implements CategorizationUsecase
type categorizationUsecase struct {
	msgRepo    emailrepo.MessageRepository
	promptRepo repository.PromptConfigRepository
	client     llm.Client
	batchSize  int
	batchDelay time.Duration
}

// NewCategorizationUsecase creates a new instance of categorizationUsecase
func NewCategorizationUsecase(msgRepo emailrepo.MessageRepository, promptRepo repository.PromptConfigRepository, client llm.Client, batchSize int, batchDelay time.Duration) CategorizationUsecase {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &categorizationUsecase{
		msgRepo:    msgRepo,
		promptRepo: promptRepo,
		client:     client,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

func (u *categorizationUsecase) CategorizeBatch(ctx context.Context, userID string, limit int) (*domain.BatchResult, error) {
	if limit <= 0 {
		limit = u.batchSize
	}

	var config *domain.PromptConfig
	var err error
	if userID != "" {
		config, err = u.GetPromptConfig(userID)
		if err != nil {
			return nil, err
		}
	}

	messages, err := u.msgRepo.FindUncategorized(userID, limit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return &domain.BatchResult{}, nil
	}
	log.Printf("[Categorization] Processing %d uncategorized messages (user=%q)", len(messages), userID)

	result := &domain.BatchResult{Processed: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Prompt configs are per user; a sweep across all users resolves the
		// owner's config per message.
		cfg := config
		if cfg == nil {
			cfg, err = u.GetPromptConfig(msg.UserID)
			if err != nil {
				result.Failed++
				continue
			}
		}

		outcome, err := u.categorizeOne(ctx, cfg, msg)
		if err != nil {
			result.Failed++
			log.Printf("[Categorization] Failed to categorize message %s: %v", msg.ID, err)
			continue
		}

		err = u.msgRepo.UpdateCategory(msg.ID, outcome.Category, outcome.Confidence, time.Now().UTC(), cfg.Version)
		if err != nil {
			result.Failed++
			log.Printf("[Categorization] Failed to persist category for message %s: %v", msg.ID, err)
			continue
		}
		result.Successful++
	}

	log.Printf("[Categorization] Batch completed: %d successful, %d failed", result.Successful, result.Failed)
	return result, nil
}

func (u *categorizationUsecase) CategorizeAll(ctx context.Context, userID string) (*domain.BatchResult, error) {
	total := &domain.BatchResult{}
	for {
		batch, err := u.CategorizeBatch(ctx, userID, u.batchSize)
		if batch != nil {
			total.Processed += batch.Processed
			total.Successful += batch.Successful
			total.Failed += batch.Failed
		}
		if err != nil {
			return total, err
		}
		if batch.Processed == 0 {
			return total, nil
		}
		// A batch where nothing succeeded would reselect the same messages
		// forever; stop and let the next sweep retry.
		if batch.Successful == 0 {
			return total, nil
		}
		if u.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(u.batchDelay):
			}
		}
	}
}

// categorizeOne runs the model on one message and normalizes the outcome
func (u *categorizationUsecase) categorizeOne(ctx context.Context, cfg *domain.PromptConfig, msg *emaildomain.Message) (*domain.Result, error) {
	content := msg.BodyText
	if content == "" {
		content = msg.Snippet
	}
	if runes := []rune(content); len(runes) > contentCharLimit {
		content = string(runes[:contentCharLimit]) + "..."
	}

	prompt := renderTemplate(cfg.Template, msg.Subject, msg.Sender, content)

	callCtx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()

	response, err := u.client.Complete(callCtx, llm.CompletionRequest{
		Model:       cfg.Model,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrModelTimeout, err)
		}
		return nil, err
	}

	result, err := parseResult(response)
	if err != nil {
		return nil, err
	}

	if !domain.IsValidCategory(result.Category) {
		log.Printf("[Categorization] Unknown category %q, falling back to %s", result.Category, domain.CategoryOther)
		result.Category = domain.CategoryOther
		result.Confidence = fallbackConfidence
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	} else if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}

func (u *categorizationUsecase) GetPromptConfig(userID string) (*domain.PromptConfig, error) {
	config, err := u.promptRepo.FindActive(userID, promptName)
	if err != nil {
		return nil, err
	}
	if config != nil {
		return config, nil
	}

	log.Printf("[Categorization] Creating default prompt config for user %s", userID)
	config = defaultConfig(userID)
	if err := u.promptRepo.Save(config); err != nil {
		return nil, err
	}
	return config, nil
}

func (u *categorizationUsecase) UpdatePromptConfig(userID string, update PromptUpdate) (*domain.PromptConfig, error) {
	config, err := u.GetPromptConfig(userID)
	if err != nil {
		return nil, err
	}

	if update.Template != "" {
		if err := domain.ValidateTemplate(update.Template); err != nil {
			return nil, err
		}
		config.Template = update.Template
	}
	if update.Model != "" {
		config.Model = update.Model
	}
	if update.Temperature != nil {
		config.Temperature = *update.Temperature
	}
	if update.MaxTokens != nil {
		config.MaxTokens = *update.MaxTokens
	}

	config.Version = bumpVersion(config.Version)
	if err := u.promptRepo.Save(config); err != nil {
		return nil, err
	}
	log.Printf("[Categorization] Prompt config updated for user %s (version %s)", userID, config.Version)
	return config, nil
}

func (u *categorizationUsecase) ResetPromptConfig(userID string) (*domain.PromptConfig, error) {
	existing, err := u.promptRepo.FindActive(userID, promptName)
	if err != nil {
		return nil, err
	}

	config := defaultConfig(userID)
	if existing != nil {
		config.ID = existing.ID
		config.CreatedAt = existing.CreatedAt
	}
	if err := u.promptRepo.Save(config); err != nil {
		return nil, err
	}
	log.Printf("[Categorization] Prompt config reset to defaults for user %s", userID)
	return config, nil
}

func defaultConfig(userID string) *domain.PromptConfig {
	return &domain.PromptConfig{
		UserID:      userID,
		Name:        promptName,
		Model:       defaultModel,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Version:     defaultVersion,
		Template:    defaultTemplate,
		IsActive:    true,
	}
}

func renderTemplate(template, subject, sender, content string) string {
	out := strings.ReplaceAll(template, "{subject}", subject)
	out = strings.ReplaceAll(out, "{sender}", sender)
	out = strings.ReplaceAll(out, "{content}", content)
	return out
}

// parseResult extracts the categorization JSON from the model output, which
// may be wrapped in prose or a markdown code fence.
func parseResult(response string) (*domain.Result, error) {
	text := strings.TrimSpace(response)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", domain.ErrMalformedResponse)
	}

	var result domain.Result
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if result.Category == "" {
		return nil, fmt.Errorf("%w: missing category", domain.ErrMalformedResponse)
	}
	return &result, nil
}

// bumpVersion increments the prompt version by 0.1
func bumpVersion(version string) string {
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return defaultVersion
	}
	return strconv.FormatFloat(v+0.1, 'f', 1, 64)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
