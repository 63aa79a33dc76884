package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inboxhub-backend/internal/email/domain"
)

// threadRepository implements ThreadRepository using GORM
type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new instance of threadRepository
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Find(userID, provider, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	err := r.db.Where("user_id = ? AND provider = ? AND thread_id = ?", userID, provider, threadID).
		First(&thread).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) Save(thread *domain.Thread) error {
	now := time.Now()
	if thread.ID == "" {
		thread.ID = uuid.New().String()
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	return r.db.Save(thread).Error
}

func (r *threadRepository) List(userID string, filter domain.ThreadFilter) ([]*domain.Thread, error) {
	q := r.db.Where("user_id = ?", userID)
	if filter.UnreadOnly {
		q = q.Where("unread_count > 0")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var threads []*domain.Thread
	if filter.Label == "" {
		err := q.Order("latest_date DESC").Limit(limit).Offset(filter.Offset).Find(&threads).Error
		return threads, err
	}

	// The label filter walks the JSON column in Go; portable across postgres
	// and the sqlite test driver. Paging applies after the filter so labeled
	// listings page the same way unlabeled ones do.
	var all []*domain.Thread
	if err := q.Order("latest_date DESC").Find(&all).Error; err != nil {
		return nil, err
	}
	filtered := make([]*domain.Thread, 0, len(all))
	for _, t := range all {
		if contains(t.Labels, filter.Label) {
			filtered = append(filtered, t)
		}
	}
	if filter.Offset >= len(filtered) {
		return []*domain.Thread{}, nil
	}
	filtered = filtered[filter.Offset:]
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
