package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pooyaostvoar/chess-mater/internal/models"
)

// ErrSubscriptionExists signals that the endpoint is already registered.
var ErrSubscriptionExists = errors.New("push subscription already exists")

// PushSubscriptionRepository stores Web Push subscriptions per user.
type PushSubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.PushSubscription) error
	ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	Delete(ctx context.Context, id uint) error
}

type pushSubscriptionRepository struct {
	db *gorm.DB
}

// NewPushSubscriptionRepository constructs a repository backed by GORM.
func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

func (r *pushSubscriptionRepository) Create(ctx context.Context, subscription *models.PushSubscription) error {
	err := r.db.WithContext(ctx).Create(subscription).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSubscriptionExists
	}
	return err
}

func (r *pushSubscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	var subscriptions []models.PushSubscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *pushSubscriptionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PushSubscription{}, id).Error
}
