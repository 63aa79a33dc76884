package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inboxhub-backend/internal/categorization/domain"
	"inboxhub-backend/internal/categorization/repository"
	emaildomain "inboxhub-backend/internal/email/domain"
	emailrepo "inboxhub-backend/internal/email/repository"
	"inboxhub-backend/pkg/llm"
)

type fakeLLM struct {
	mu    sync.Mutex
	calls int
	last  llm.CompletionRequest
	fn    func(req llm.CompletionRequest) (string, error)
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeLLM) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type catFixture struct {
	uc      CategorizationUsecase
	client  *fakeLLM
	msgRepo emailrepo.MessageRepository
}

func setupCatTest(t *testing.T, batchSize int) *catFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&emaildomain.Message{}, &domain.PromptConfig{}))

	msgRepo := emailrepo.NewMessageRepository(db)
	promptRepo := repository.NewPromptConfigRepository(db)

	client := &fakeLLM{fn: func(req llm.CompletionRequest) (string, error) {
		return `{"category": "MARKETING_SALES", "confidence": 0.92, "reasoning": "promotional"}`, nil
	}}

	uc := NewCategorizationUsecase(msgRepo, promptRepo, client, batchSize, 0)
	return &catFixture{uc: uc, client: client, msgRepo: msgRepo}
}

func seedMessage(t *testing.T, msgRepo emailrepo.MessageRepository, id, subject, body string) *emaildomain.Message {
	msg := &emaildomain.Message{
		UserID:            "u1",
		Provider:          "gmail",
		ProviderMessageID: id,
		ThreadID:          "th1",
		Sender:            "sender@example.com",
		DateSent:          time.Now().Add(-time.Hour),
		Subject:           subject,
		Snippet:           "snippet",
		BodyText:          body,
	}
	_, err := msgRepo.Upsert(msg)
	require.NoError(t, err)
	return msg
}

func TestCategorizeBatch(t *testing.T) {
	f := setupCatTest(t, 10)
	m1 := seedMessage(t, f.msgRepo, "m1", "50% off everything", "huge sale")
	seedMessage(t, f.msgRepo, "m2", "Weekly digest", "news")
	done := seedMessage(t, f.msgRepo, "m3", "Old mail", "already handled")
	require.NoError(t, f.msgRepo.UpdateCategory(done.ID, "OTHER", 0.5, time.Now(), "1.0"))

	result, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, f.client.count(), "already categorized messages are skipped")

	stored, err := f.msgRepo.FindByID("u1", m1.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "MARKETING_SALES", *stored.Category)
	require.NotNil(t, stored.CategoryConfidence)
	assert.InDelta(t, 0.92, *stored.CategoryConfidence, 0.001)
	assert.NotNil(t, stored.CategorizedAt)
	assert.Equal(t, "1.0", stored.CategoryPromptVersion)
}

func TestCategorizeBatchMalformedResponse(t *testing.T) {
	f := setupCatTest(t, 10)
	seedMessage(t, f.msgRepo, "m1", "Hello", "body")
	f.client.fn = func(req llm.CompletionRequest) (string, error) {
		return "I believe this is probably spam.", nil
	}

	result, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)

	// The message stays uncategorized and is picked up again next run
	pending, err := f.msgRepo.FindUncategorized("u1", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCategorizeBatchModelError(t *testing.T) {
	f := setupCatTest(t, 10)
	seedMessage(t, f.msgRepo, "m1", "Hello", "body")
	f.client.fn = func(req llm.CompletionRequest) (string, error) {
		return "", context.DeadlineExceeded
	}

	result, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Successful)
}

func TestCategorizeUnknownCategoryFallsBack(t *testing.T) {
	f := setupCatTest(t, 10)
	m1 := seedMessage(t, f.msgRepo, "m1", "Hello", "body")
	f.client.fn = func(req llm.CompletionRequest) (string, error) {
		return `{"category": "SPAM", "confidence": 0.9}`, nil
	}

	_, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)

	stored, err := f.msgRepo.FindByID("u1", m1.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Category)
	assert.Equal(t, domain.CategoryOther, *stored.Category)
	assert.InDelta(t, 0.1, *stored.CategoryConfidence, 0.001)
}

func TestCategorizeConfidenceClamped(t *testing.T) {
	f := setupCatTest(t, 10)
	m1 := seedMessage(t, f.msgRepo, "m1", "Hello", "body")
	f.client.fn = func(req llm.CompletionRequest) (string, error) {
		return `{"category": "OTHER", "confidence": 1.7}`, nil
	}

	_, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)

	stored, err := f.msgRepo.FindByID("u1", m1.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, *stored.CategoryConfidence, 0.001)
}

func TestCategorizePromptRendering(t *testing.T) {
	f := setupCatTest(t, 10)
	longBody := strings.Repeat("a", 1500)
	seedMessage(t, f.msgRepo, "m1", "Quarterly numbers", longBody)

	_, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)

	req := f.client.last
	assert.Equal(t, defaultModel, req.Model)
	assert.InDelta(t, defaultTemperature, req.Temperature, 0.001)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
	assert.Contains(t, req.Prompt, "Quarterly numbers")
	assert.Contains(t, req.Prompt, "sender@example.com")
	assert.Contains(t, req.Prompt, strings.Repeat("a", 1000)+"...")
	assert.NotContains(t, req.Prompt, strings.Repeat("a", 1001))
}

func TestCategorizeTruncatesOnRunes(t *testing.T) {
	f := setupCatTest(t, 10)
	seedMessage(t, f.msgRepo, "m1", "Résumé", strings.Repeat("é", 1200))

	_, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
	require.NoError(t, err)

	req := f.client.last
	assert.Contains(t, req.Prompt, strings.Repeat("é", 1000)+"...")
	assert.NotContains(t, req.Prompt, strings.Repeat("é", 1001))
	assert.True(t, utf8.ValidString(req.Prompt), "truncation must not split a rune")
}

func TestCategorizeAllDrainsBacklog(t *testing.T) {
	f := setupCatTest(t, 2)
	for i := 0; i < 5; i++ {
		seedMessage(t, f.msgRepo, fmt.Sprintf("m%d", i), "Subject", "body")
	}

	result, err := f.uc.CategorizeAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 5, result.Successful)
	assert.Equal(t, 5, f.client.count())

	pending, err := f.msgRepo.FindUncategorized("u1", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPromptConfigLifecycle(t *testing.T) {
	f := setupCatTest(t, 10)

	config, err := f.uc.GetPromptConfig("u1")
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, defaultModel, config.Model)
	assert.NoError(t, domain.ValidateTemplate(config.Template))

	t.Run("update bumps version", func(t *testing.T) {
		updated, err := f.uc.UpdatePromptConfig("u1", PromptUpdate{
			Template: "Sort this: {subject} {sender} {content}",
		})
		require.NoError(t, err)
		assert.Equal(t, "1.1", updated.Version)
		assert.Contains(t, updated.Template, "Sort this")
	})

	t.Run("invalid template is rejected", func(t *testing.T) {
		_, err := f.uc.UpdatePromptConfig("u1", PromptUpdate{
			Template: "no placeholders here",
		})
		assert.ErrorIs(t, err, domain.ErrTemplateInvalid)

		config, err := f.uc.GetPromptConfig("u1")
		require.NoError(t, err)
		assert.Equal(t, "1.1", config.Version, "rejected update must not bump the version")
	})

	t.Run("versioned results use the current version", func(t *testing.T) {
		m := seedMessage(t, f.msgRepo, "mv", "Hello", "body")
		_, err := f.uc.CategorizeBatch(context.Background(), "u1", 0)
		require.NoError(t, err)

		stored, err := f.msgRepo.FindByID("u1", m.ID)
		require.NoError(t, err)
		assert.Equal(t, "1.1", stored.CategoryPromptVersion)
	})

	t.Run("reset restores defaults", func(t *testing.T) {
		reset, err := f.uc.ResetPromptConfig("u1")
		require.NoError(t, err)
		assert.Equal(t, "1.0", reset.Version)
		assert.Equal(t, defaultTemplate, reset.Template)
	})
}
