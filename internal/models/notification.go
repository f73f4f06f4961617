package models

import "time"

// Notification is an in-app message for a single user
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index:idx_notification_user_read;not null" json:"user_id"`
	Type      string     `gorm:"size:50;index" json:"type"` // proposal.received, payment.released, ...
	Title     string     `gorm:"size:200" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	Link      string     `gorm:"size:500" json:"link"`
	ReadAt    *time.Time `gorm:"index:idx_notification_user_read" json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
