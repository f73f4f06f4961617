package models

import "time"

const (
	ProposalStatusPending     = "pending"
	ProposalStatusShortlisted = "shortlisted"
	ProposalStatusAccepted    = "accepted"
	ProposalStatusRejected    = "rejected"
	ProposalStatusWithdrawn   = "withdrawn"
)

// Proposal is a freelancer's bid on an open project
type Proposal struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"uniqueIndex:idx_proposal_project_freelancer;not null" json:"project_id"`
	Project      *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	FreelancerID uint      `gorm:"uniqueIndex:idx_proposal_project_freelancer;not null" json:"freelancer_id"`
	Freelancer   *User     `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	TeamID       *uint     `json:"team_id"`
	CoverLetter  string    `gorm:"type:text;not null" json:"cover_letter"`
	Amount       float64   `gorm:"not null" json:"amount"`
	DurationDays int       `json:"duration_days"`
	Status       string    `gorm:"size:20;index;default:pending" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Proposal) TableName() string { return "proposals" }

// IsOpen reports whether the proposal can still be accepted or rejected.
func (p *Proposal) IsOpen() bool {
	return p.Status == ProposalStatusPending || p.Status == ProposalStatusShortlisted
}
