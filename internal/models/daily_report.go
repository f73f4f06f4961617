package models

import "time"

// DailyReport is the marketplace digest for one calendar day
type DailyReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReportDate time.Time `gorm:"uniqueIndex;not null" json:"report_date"`
	ReportType string    `gorm:"size:20;default:daily" json:"report_type"` // daily, weekly

	NewUsers         int     `json:"new_users"`
	NewProjects      int     `json:"new_projects"`
	NewProposals     int     `json:"new_proposals"`
	Hires            int     `json:"hires"`
	CompletedCount   int     `json:"completed_count"`
	ReleasedCount    int     `json:"released_count"`
	ReleasedAmount   float64 `json:"released_amount"` // GMV released
	PlatformFees     float64 `json:"platform_fees"`
	RefundedCount    int     `json:"refunded_count"`
	RefundedAmount   float64 `json:"refunded_amount"`
	EscrowHeldAmount float64 `json:"escrow_held_amount"`
	FailedReleases   int     `json:"failed_releases"`

	TopCategories string `gorm:"type:text" json:"top_categories"` // JSON
	TopSkills     string `gorm:"type:text" json:"top_skills"`     // JSON

	AIAnalysis  string `gorm:"type:text" json:"ai_analysis"`
	AIModelUsed string `gorm:"size:100" json:"ai_model_used"`

	NotifiedAt  *time.Time `json:"notified_at"`
	NotifyError string     `gorm:"type:text" json:"notify_error"`

	CreatedAt time.Time `json:"created_at"`
}

func (DailyReport) TableName() string { return "daily_reports" }
