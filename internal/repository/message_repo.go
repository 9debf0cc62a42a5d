package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pooyaostvoar/chess-mater/internal/models"
)

// UnreadSenderCount is one row of the unread-by-sender aggregate.
type UnreadSenderCount struct {
	UserID      uint  `gorm:"column:user_id"`
	UnreadCount int64 `gorm:"column:unread_count"`
}

// MessageRepository persists direct messages and answers the read-side queries
// the gateway and the unread summary depend on.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListBetween(ctx context.Context, userA, userB uint, limit int) ([]models.Message, error)
	MarkSeen(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (models.Message, error)
	UnreadCountsBySender(ctx context.Context, userID uint) ([]UnreadSenderCount, error)
	MessagedUserIDs(ctx context.Context, userID uint) ([]uint, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) ListBetween(ctx context.Context, userA, userB uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Most-recent-N query order, reversed to chronological ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkSeen flips is_seen to true. Re-marking a seen message or marking a
// missing one is a no-op, never an error.
func (r *messageRepository) MarkSeen(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_seen", true).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) UnreadCountsBySender(ctx context.Context, userID uint) ([]UnreadSenderCount, error) {
	var counts []UnreadSenderCount
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("from_user_id AS user_id, SUM(CASE WHEN is_seen = ? THEN 1 ELSE 0 END) AS unread_count", false).
		Where("to_user_id = ?", userID).
		Group("from_user_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *messageRepository) MessagedUserIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("from_user_id = ?", userID).
		Distinct().
		Pluck("to_user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
