package models

import "time"

const (
	ReviewClientToFreelancer = "client_to_freelancer"
	ReviewFreelancerToClient = "freelancer_to_client"
)

// Review is one party's rating of the other after a completed project
type Review struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectID     uint      `gorm:"uniqueIndex:idx_review_project_reviewer;not null" json:"project_id"`
	Project       *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ReviewerID    uint      `gorm:"uniqueIndex:idx_review_project_reviewer;not null" json:"reviewer_id"`
	Reviewer      *User     `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	RevieweeID    uint      `gorm:"index;not null" json:"reviewee_id"`
	Direction     string    `gorm:"size:30;not null" json:"direction"`
	Rating        int       `gorm:"not null" json:"rating"` // 1..5
	Communication *int      `json:"communication"`
	Quality       *int      `json:"quality"`
	Timeliness    *int      `json:"timeliness"`
	Comment       string    `gorm:"type:text" json:"comment"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
