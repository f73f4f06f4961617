package models

import "time"

// SystemLog is one audit or operational event. Resource and ResourceID point at the
// marketplace record the event is about (a payment, milestone, proposal or project) when known.
type SystemLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Level      string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module     string    `gorm:"size:100;index" json:"module"`
	Action     string    `gorm:"size:200;index" json:"action"`
	Message    string    `gorm:"type:text" json:"message"`
	Resource   string    `gorm:"size:32;index:idx_system_logs_resource" json:"resource,omitempty"`
	ResourceID *uint     `gorm:"index:idx_system_logs_resource" json:"resource_id,omitempty"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	IP         string    `gorm:"size:50" json:"ip"`
	UserAgent  string    `gorm:"size:500" json:"user_agent"`
	Extra      string    `gorm:"type:text" json:"extra"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
