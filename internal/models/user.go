package models

import "time"

// User carries the display fields the messaging core needs when enriching
// conversation summaries. Account management lives elsewhere; this model is
// read-only here.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:64" json:"username"`
	Email          string    `gorm:"size:255" json:"email"`
	ProfilePicture string    `gorm:"size:500" json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
}
