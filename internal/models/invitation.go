package models

import "time"

const (
	InvitationStatusPending   = "pending"
	InvitationStatusAccepted  = "accepted"
	InvitationStatusDeclined  = "declined"
	InvitationStatusCancelled = "cancelled"
	InvitationStatusExpired   = "expired"
)

// ProjectInvitation is a client's direct invite to a freelancer
type ProjectInvitation struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ProjectID    uint       `gorm:"index;not null" json:"project_id"`
	Project      *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ClientID     uint       `gorm:"index;not null" json:"client_id"`
	FreelancerID uint       `gorm:"index;not null" json:"freelancer_id"`
	Freelancer   *User      `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Message      string     `gorm:"type:text" json:"message"`
	Status       string     `gorm:"size:20;index;default:pending" json:"status"`
	ExpiresAt    time.Time  `gorm:"index" json:"expires_at"`
	RespondedAt  *time.Time `json:"responded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (ProjectInvitation) TableName() string { return "project_invitations" }

// Expired reports whether a pending invitation has passed its deadline.
func (i *ProjectInvitation) Expired(now time.Time) bool {
	return i.Status == InvitationStatusPending && now.After(i.ExpiresAt)
}
