package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inboxhub-backend/internal/connection/domain"
	"inboxhub-backend/pkg/crypto"
)

// oauthTokenRepository implements OAuthTokenRepository using GORM.
// Token material is sealed before it touches the database.
type oauthTokenRepository struct {
	db  *gorm.DB
	box *crypto.Box
}

// NewOAuthTokenRepository creates a new instance of oauthTokenRepository
func NewOAuthTokenRepository(db *gorm.DB, box *crypto.Box) OAuthTokenRepository {
	return &oauthTokenRepository{db: db, box: box}
}

func (r *oauthTokenRepository) Find(userID string, provider domain.Provider) (*domain.OAuthToken, error) {
	var token domain.OAuthToken
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	access, err := r.box.Open(token.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := r.box.Open(token.RefreshToken)
	if err != nil {
		return nil, err
	}
	token.AccessToken = access
	token.RefreshToken = refresh
	return &token, nil
}

func (r *oauthTokenRepository) Replace(token *domain.OAuthToken) error {
	sealedAccess, err := r.box.Seal(token.AccessToken)
	if err != nil {
		return err
	}
	sealedRefresh, err := r.box.Seal(token.RefreshToken)
	if err != nil {
		return err
	}

	var existing domain.OAuthToken
	err = r.db.Where("user_id = ? AND provider = ?", token.UserID, token.Provider).First(&existing).Error

	now := time.Now()
	row := domain.OAuthToken{
		UserID:       token.UserID,
		Provider:     token.Provider,
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		TokenType:    token.TokenType,
		ExpiresAt:    token.ExpiresAt,
		Scope:        token.Scope,
		UpdatedAt:    now,
	}

	if err == gorm.ErrRecordNotFound {
		row.ID = uuid.New().String()
		row.CreatedAt = now
		return r.db.Create(&row).Error
	} else if err != nil {
		return err
	}

	// expires_at only moves forward for a live connection
	if row.ExpiresAt.Before(existing.ExpiresAt) {
		row.ExpiresAt = existing.ExpiresAt
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	return r.db.Save(&row).Error
}

func (r *oauthTokenRepository) Delete(userID string, provider domain.Provider) error {
	return r.db.Where("user_id = ? AND provider = ?", userID, provider).Delete(&domain.OAuthToken{}).Error
}
