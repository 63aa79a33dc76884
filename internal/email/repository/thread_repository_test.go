package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inboxhub-backend/internal/email/domain"
)

func setupThreadTest(t *testing.T) ThreadRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Thread{}))
	return NewThreadRepository(db)
}

func seedThread(t *testing.T, repo ThreadRepository, threadID string, latest time.Time, labels []string) {
	require.NoError(t, repo.Save(&domain.Thread{
		UserID:     "u1",
		Provider:   "gmail",
		ThreadID:   threadID,
		Subject:    "Subject " + threadID,
		EmailCount: 1,
		LatestDate: latest,
		Labels:     labels,
	}))
}

func TestThreadListNewestFirst(t *testing.T) {
	repo := setupThreadTest(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	seedThread(t, repo, "old", base, nil)
	seedThread(t, repo, "new", base.Add(time.Minute), nil)

	threads, err := repo.List("u1", domain.ThreadFilter{})
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "new", threads[0].ThreadID)
	assert.Equal(t, "old", threads[1].ThreadID)
}

func TestThreadListLabelFilterPaging(t *testing.T) {
	repo := setupThreadTest(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	// Labeled and unlabeled threads interleaved by recency
	for i := 0; i < 6; i++ {
		labels := []string{"STARRED"}
		if i%2 == 1 {
			labels = []string{"INBOX"}
		}
		seedThread(t, repo, fmt.Sprintf("th%d", i), base.Add(time.Duration(i)*time.Minute), labels)
	}

	t.Run("full page despite interleaving", func(t *testing.T) {
		threads, err := repo.List("u1", domain.ThreadFilter{Label: "STARRED", Limit: 2})
		require.NoError(t, err)
		require.Len(t, threads, 2)
		assert.Equal(t, "th4", threads[0].ThreadID)
		assert.Equal(t, "th2", threads[1].ThreadID)
	})

	t.Run("offset walks matching threads only", func(t *testing.T) {
		threads, err := repo.List("u1", domain.ThreadFilter{Label: "STARRED", Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, threads, 1)
		assert.Equal(t, "th0", threads[0].ThreadID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		threads, err := repo.List("u1", domain.ThreadFilter{Label: "STARRED", Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, threads)
	})
}

func TestThreadListUnreadOnly(t *testing.T) {
	repo := setupThreadTest(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	seedThread(t, repo, "read", base, nil)
	require.NoError(t, repo.Save(&domain.Thread{
		UserID:      "u1",
		Provider:    "gmail",
		ThreadID:    "unread",
		EmailCount:  2,
		UnreadCount: 1,
		LatestDate:  base.Add(time.Minute),
	}))

	threads, err := repo.List("u1", domain.ThreadFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "unread", threads[0].ThreadID)
}
