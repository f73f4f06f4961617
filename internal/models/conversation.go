package models

import "time"

// Conversation is a two-party message thread, optionally tied to a project
type Conversation struct {
	ID            uint                      `gorm:"primaryKey" json:"id"`
	ProjectID     *uint                     `gorm:"index" json:"project_id"`
	PairKey       string                    `gorm:"uniqueIndex:idx_conversation_pair;size:64;not null" json:"-"` // "<lo>:<hi>"
	ProjectKey    uint                      `gorm:"uniqueIndex:idx_conversation_pair;default:0" json:"-"`        // 0 when unscoped
	Participants  []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	LastMessageAt *time.Time                `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

type ConversationParticipant struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"uniqueIndex:idx_participant;not null" json:"conversation_id"`
	UserID         uint       `gorm:"uniqueIndex:idx_participant;index;not null" json:"user_id"`
	User           *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	LastReadAt     *time.Time `json:"last_read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (ConversationParticipant) TableName() string { return "conversation_participants" }

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index:idx_message_conversation_created;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"index;not null" json:"sender_id"`
	Content        string    `gorm:"type:text" json:"content"`
	AttachmentID   *uint     `json:"attachment_id"`
	Attachment     *Upload   `gorm:"foreignKey:AttachmentID" json:"attachment,omitempty"`
	CreatedAt      time.Time `gorm:"index:idx_message_conversation_created" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
