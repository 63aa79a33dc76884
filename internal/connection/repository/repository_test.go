package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/pkg/crypto"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&domain.Connection{}, &domain.OAuthToken{})
	require.NoError(t, err)

	return db
}

func TestConnectionRepositoryUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConnectionRepository(db)

	require.NoError(t, repo.Upsert(&domain.Connection{
		UserID:   "u1",
		Provider: domain.ProviderGmail,
		Status:   domain.StatusConnected,
	}))

	t.Run("transition applies when the row is in the expected state", func(t *testing.T) {
		err := repo.UpdateStatus("u1", domain.ProviderGmail, domain.StatusConnected, domain.StatusRefreshRequired)
		require.NoError(t, err)

		conn, err := repo.FindByUserAndProvider("u1", domain.ProviderGmail)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefreshRequired, conn.Status)
	})

	t.Run("stale expected state is rejected", func(t *testing.T) {
		err := repo.UpdateStatus("u1", domain.ProviderGmail, domain.StatusConnected, domain.StatusRefreshRequired)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("missing row is rejected", func(t *testing.T) {
		err := repo.UpdateStatus("nobody", domain.ProviderGmail, domain.StatusConnected, domain.StatusDisconnected)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestConnectionRepositoryUpsertKeepsOneRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConnectionRepository(db)

	require.NoError(t, repo.Upsert(&domain.Connection{
		UserID:   "u1",
		Provider: domain.ProviderGmail,
		Status:   domain.StatusConnected,
	}))
	require.NoError(t, repo.Upsert(&domain.Connection{
		UserID:       "u1",
		Provider:     domain.ProviderGmail,
		Status:       domain.StatusConnected,
		AccountEmail: "user@example.com",
	}))

	var count int64
	require.NoError(t, db.Model(&domain.Connection{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	conn, err := repo.FindByUserAndProvider("u1", domain.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", conn.AccountEmail)
}

func TestOAuthTokenRepositorySealsAtRest(t *testing.T) {
	db := setupTestDB(t)
	box, err := crypto.NewBox("unit-test-passphrase")
	require.NoError(t, err)
	repo := NewOAuthTokenRepository(db, box)

	require.NoError(t, repo.Replace(&domain.OAuthToken{
		UserID:       "u1",
		Provider:     domain.ProviderGmail,
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	var raw domain.OAuthToken
	require.NoError(t, db.First(&raw).Error)
	assert.NotEqual(t, "plain-access", raw.AccessToken)
	assert.NotEqual(t, "plain-refresh", raw.RefreshToken)

	token, err := repo.Find("u1", domain.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "plain-access", token.AccessToken)
	assert.Equal(t, "plain-refresh", token.RefreshToken)
}

func TestOAuthTokenRepositoryReplace(t *testing.T) {
	db := setupTestDB(t)
	box, err := crypto.NewBox("")
	require.NoError(t, err)
	repo := NewOAuthTokenRepository(db, box)

	later := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, repo.Replace(&domain.OAuthToken{
		UserID:       "u1",
		Provider:     domain.ProviderGmail,
		AccessToken:  "first",
		RefreshToken: "rt-1",
		ExpiresAt:    later,
	}))

	t.Run("replacement is wholesale and keeps one row", func(t *testing.T) {
		require.NoError(t, repo.Replace(&domain.OAuthToken{
			UserID:       "u1",
			Provider:     domain.ProviderGmail,
			AccessToken:  "second",
			RefreshToken: "rt-2",
			ExpiresAt:    later.Add(time.Hour),
		}))

		var count int64
		require.NoError(t, db.Model(&domain.OAuthToken{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)

		token, err := repo.Find("u1", domain.ProviderGmail)
		require.NoError(t, err)
		assert.Equal(t, "second", token.AccessToken)
		assert.Equal(t, "rt-2", token.RefreshToken)
	})

	t.Run("expires_at never moves backward", func(t *testing.T) {
		current, err := repo.Find("u1", domain.ProviderGmail)
		require.NoError(t, err)

		require.NoError(t, repo.Replace(&domain.OAuthToken{
			UserID:       "u1",
			Provider:     domain.ProviderGmail,
			AccessToken:  "third",
			RefreshToken: "rt-3",
			ExpiresAt:    later.Add(-time.Hour),
		}))

		token, err := repo.Find("u1", domain.ProviderGmail)
		require.NoError(t, err)
		assert.Equal(t, "third", token.AccessToken)
		assert.False(t, token.ExpiresAt.Before(current.ExpiresAt))
	})
}
