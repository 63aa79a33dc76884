package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inboxhub-backend/internal/categorization/domain"
)

// promptConfigRepository implements PromptConfigRepository using GORM
type promptConfigRepository struct {
	db *gorm.DB
}

// NewPromptConfigRepository creates a new instance of promptConfigRepository
func NewPromptConfigRepository(db *gorm.DB) PromptConfigRepository {
	return &promptConfigRepository{db: db}
}

func (r *promptConfigRepository) FindActive(userID, name string) (*domain.PromptConfig, error) {
	var config domain.PromptConfig
	err := r.db.Where("user_id = ? AND name = ? AND is_active = ?", userID, name, true).
		First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *promptConfigRepository) Save(config *domain.PromptConfig) error {
	now := time.Now()
	if config.ID == "" {
		config.ID = uuid.New().String()
		config.CreatedAt = now
	}
	config.UpdatedAt = now
	return r.db.Save(config).Error
}

func (r *promptConfigRepository) Delete(userID, name string) error {
	return r.db.Where("user_id = ? AND name = ?", userID, name).
		Delete(&domain.PromptConfig{}).Error
}
