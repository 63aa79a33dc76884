package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inboxhub-backend/internal/email/domain"
)

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Exists(userID, provider, providerMessageID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).
		Where("user_id = ? AND provider = ? AND provider_message_id = ?", userID, provider, providerMessageID).
		Count(&count).Error
	return count > 0, err
}

func (r *messageRepository) FindByID(userID, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// Upsert keeps re-sync idempotent: the unique key decides insert vs update,
// and updates never touch the immutable core (subject, bodies, date).
func (r *messageRepository) Upsert(msg *domain.Message) (bool, error) {
	var existing domain.Message
	err := r.db.Where("user_id = ? AND provider = ? AND provider_message_id = ?",
		msg.UserID, msg.Provider, msg.ProviderMessageID).First(&existing).Error

	now := time.Now()
	if err == gorm.ErrRecordNotFound {
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		msg.CreatedAt = now
		msg.UpdatedAt = now
		if err := r.db.Create(msg).Error; err != nil {
			return false, err
		}
		return true, nil
	} else if err != nil {
		return false, err
	}

	err = r.db.Model(&domain.Message{}).Where("id = ?", existing.ID).
		Select("labels", "is_read", "updated_at").
		Updates(&domain.Message{Labels: msg.Labels, IsRead: msg.IsRead, UpdatedAt: now}).Error
	if err != nil {
		return false, err
	}
	msg.ID = existing.ID
	msg.ThreadID = existing.ThreadID
	return false, nil
}

func (r *messageRepository) FindByThread(userID, provider, threadID string) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := r.db.Where("user_id = ? AND provider = ? AND thread_id = ?", userID, provider, threadID).
		Order("date_sent ASC").Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) ThreadStats(userID, provider, threadID string) (int, int, error) {
	var total, unread int64
	if err := r.db.Model(&domain.Message{}).
		Where("user_id = ? AND provider = ? AND thread_id = ?", userID, provider, threadID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.Model(&domain.Message{}).
		Where("user_id = ? AND provider = ? AND thread_id = ? AND is_read = ?", userID, provider, threadID, false).
		Count(&unread).Error; err != nil {
		return 0, 0, err
	}
	return int(total), int(unread), nil
}

func (r *messageRepository) FindUncategorized(userID string, limit int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	q := r.db.Where("category IS NULL")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Order("date_sent ASC, id ASC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) UpdateCategory(id, category string, confidence float64, at time.Time, promptVersion string) error {
	return r.db.Model(&domain.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":                category,
			"category_confidence":     confidence,
			"categorized_at":          at,
			"category_prompt_version": promptVersion,
			"updated_at":              time.Now(),
		}).Error
}

func (r *messageRepository) SetRead(userID, id string, read bool) (*domain.Message, error) {
	msg, err := r.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, domain.ErrMessageNotFound
	}
	if msg.IsRead == read {
		return msg, nil
	}
	err = r.db.Model(&domain.Message{}).Where("id = ?", msg.ID).
		Updates(map[string]interface{}{"is_read": read, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, err
	}
	msg.IsRead = read
	return msg, nil
}
