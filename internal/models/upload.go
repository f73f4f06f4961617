package models

import "time"

const (
	UploadPurposeAvatar      = "avatar"
	UploadPurposeAttachment  = "attachment"
	UploadPurposePortfolio   = "portfolio"
	UploadPurposeDeliverable = "deliverable"
)

// Upload is the metadata of a stored file
type Upload struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerID      uint      `gorm:"index;not null" json:"owner_id"`
	OriginalName string    `gorm:"size:255" json:"original_name"`
	StoredName   string    `gorm:"uniqueIndex;size:100;not null" json:"stored_name"`
	MimeType     string    `gorm:"size:100" json:"mime_type"`
	Size         int64     `json:"size"`
	Purpose      string    `gorm:"size:20;default:attachment" json:"purpose"`
	URL          string    `gorm:"size:500" json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Upload) TableName() string { return "uploads" }
