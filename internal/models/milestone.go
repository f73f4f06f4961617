package models

import "time"

const (
	MilestoneStatusPending    = "pending"
	MilestoneStatusFunded     = "funded"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusSubmitted  = "submitted"
	MilestoneStatusApproved   = "approved"
	MilestoneStatusReleased   = "released"
	MilestoneStatusCancelled  = "cancelled"
)

// Milestone is a sub-deliverable of a project gating a partial payment
type Milestone struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ProjectID      uint       `gorm:"index;not null" json:"project_id"`
	Project        *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Amount         float64    `gorm:"not null" json:"amount"`
	DueDate        *time.Time `json:"due_date"`
	Position       int        `gorm:"default:0" json:"position"`
	Status         string     `gorm:"size:20;index;default:pending" json:"status"`
	SubmissionNote string     `gorm:"type:text" json:"submission_note"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	ApprovedAt     *time.Time `json:"approved_at"`
	ReleasedAt     *time.Time `json:"released_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Milestone) TableName() string { return "milestones" }

// IsActive reports whether money is committed but not yet paid out.
func (m *Milestone) IsActive() bool {
	switch m.Status {
	case MilestoneStatusFunded, MilestoneStatusInProgress, MilestoneStatusSubmitted, MilestoneStatusApproved:
		return true
	}
	return false
}
