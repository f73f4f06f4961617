package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProjectStatusDraft      = "draft"
	ProjectStatusOpen       = "open"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

const (
	BudgetFixed  = "fixed"
	BudgetHourly = "hourly"
)

const (
	VisibilityPublic     = "public"
	VisibilityInviteOnly = "invite_only"
)

// Project is a unit of work posted by a client
type Project struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	ClientID             uint           `gorm:"index;not null" json:"client_id"`
	Client               *User          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Title                string         `gorm:"size:200;not null" json:"title"`
	Description          string         `gorm:"type:text;not null" json:"description"`
	Category             string         `gorm:"size:100;index" json:"category"`
	Skills               []Skill        `gorm:"many2many:project_skills" json:"skills"`
	BudgetType           string         `gorm:"size:20;default:fixed" json:"budget_type"` // fixed, hourly
	BudgetMin            float64        `json:"budget_min"`
	BudgetMax            float64        `json:"budget_max"`
	Currency             string         `gorm:"size:3;default:INR" json:"currency"`
	ExperienceLevel      string         `gorm:"size:20;default:intermediate" json:"experience_level"` // entry, intermediate, expert
	Deadline             *time.Time     `json:"deadline"`
	DurationDays         int            `json:"duration_days"`
	Visibility           string         `gorm:"size:20;default:public" json:"visibility"`
	Status               string         `gorm:"size:20;index;default:draft" json:"status"`
	SelectedFreelancerID *uint          `gorm:"index" json:"selected_freelancer_id"`
	SelectedFreelancer   *User          `gorm:"foreignKey:SelectedFreelancerID" json:"selected_freelancer,omitempty"`
	SelectedProposalID   *uint          `json:"selected_proposal_id"`
	TeamID               *uint          `json:"team_id"`
	AgreedAmount         float64        `json:"agreed_amount"`
	ProposalCount        int            `gorm:"default:0" json:"proposal_count"`
	CompletedAt          *time.Time     `json:"completed_at"`
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }

// IsParty reports whether userID is the owner or the hired freelancer.
func (p *Project) IsParty(userID uint) bool {
	if p.ClientID == userID {
		return true
	}
	return p.SelectedFreelancerID != nil && *p.SelectedFreelancerID == userID
}
