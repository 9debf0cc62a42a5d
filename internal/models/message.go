package models

import "time"

// Message is a directed text note between two users. Everything except
// IsSeen is immutable once written; IsSeen only ever moves false -> true.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FromUserID uint      `gorm:"not null;index:idx_messages_pair" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null;index:idx_messages_pair" json:"to_user_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	IsSeen     bool      `gorm:"not null;default:false" json:"is_seen"`
	CreatedAt  time.Time `json:"created_at"`
}

// PushSubscription stores a browser Web Push subscription for a user.
// A user can hold several (one per browser/device).
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Endpoint  string    `gorm:"size:500;uniqueIndex" json:"endpoint"`
	P256dh    string    `gorm:"size:500" json:"p256dh"`
	Auth      string    `gorm:"size:500" json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}
