package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inboxhub-backend/internal/connection/domain"
)

// connectionRepository implements ConnectionRepository using GORM
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new instance of connectionRepository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) FindByUserAndProvider(userID string, provider domain.Provider) (*domain.Connection, error) {
	var conn domain.Connection
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&conn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) FindByAccountEmail(provider domain.Provider, accountEmail string) (*domain.Connection, error) {
	var conn domain.Connection
	err := r.db.Where("provider = ? AND account_email = ?", provider, accountEmail).First(&conn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) FindByUserID(userID string) ([]*domain.Connection, error) {
	var conns []*domain.Connection
	err := r.db.Where("user_id = ?", userID).Order("provider ASC").Find(&conns).Error
	return conns, err
}

func (r *connectionRepository) FindByStatus(status domain.Status) ([]*domain.Connection, error) {
	var conns []*domain.Connection
	err := r.db.Where("status = ?", status).Find(&conns).Error
	return conns, err
}

func (r *connectionRepository) Upsert(conn *domain.Connection) error {
	var existing domain.Connection
	err := r.db.Where("user_id = ? AND provider = ?", conn.UserID, conn.Provider).First(&existing).Error

	now := time.Now()
	if err == gorm.ErrRecordNotFound {
		if conn.ID == "" {
			conn.ID = uuid.New().String()
		}
		conn.CreatedAt = now
		conn.UpdatedAt = now
		return r.db.Create(conn).Error
	} else if err != nil {
		return err
	}

	conn.ID = existing.ID
	conn.CreatedAt = existing.CreatedAt
	conn.UpdatedAt = now
	return r.db.Save(conn).Error
}

// UpdateStatus is a conditional single-row update so concurrent transitions
// can never skip a state: the write only lands if the row is still in `from`.
func (r *connectionRepository) UpdateStatus(userID string, provider domain.Provider, from, to domain.Status) error {
	result := r.db.Model(&domain.Connection{}).
		Where("user_id = ? AND provider = ? AND status = ?", userID, provider, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *connectionRepository) UpdateLastSync(userID string, provider domain.Provider, ts time.Time) error {
	return r.db.Model(&domain.Connection{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]interface{}{
			"last_sync_at": ts,
			"updated_at":   time.Now(),
		}).Error
}
