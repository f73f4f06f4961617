package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// LLMConfig is one provider endpoint behind the proposal, project-description and digest assistants.
// Features narrows the assistants that may use it; empty means all of them.
type LLMConfig struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Name           string  `gorm:"size:100;not null" json:"name"`
	Provider       string  `gorm:"size:50;default:openai" json:"provider"`
	BaseURL        string  `gorm:"size:500" json:"base_url"`
	APIKey         string  `gorm:"size:500" json:"-"`
	APIKeyMask     string  `gorm:"-" json:"api_key_mask"`
	Model          string  `gorm:"size:100" json:"model"`
	MaxTokens      int     `gorm:"default:4096" json:"max_tokens"`
	Temperature    float64 `gorm:"default:0.3" json:"temperature"`
	TimeoutSeconds int     `gorm:"default:60" json:"timeout_seconds"`
	Features       string  `gorm:"size:255" json:"features"` // comma separated prompt purposes
	IsDefault      bool    `gorm:"default:false" json:"is_default"`
	IsActive       bool    `gorm:"default:true" json:"is_active"`

	LastUsedAt *time.Time `json:"last_used_at"`
	LastError  string     `gorm:"type:text" json:"last_error"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (LLMConfig) TableName() string { return "llm_configs" }

// MaskAPIKey keeps the first and last four characters
func (l *LLMConfig) MaskAPIKey() string {
	if len(l.APIKey) <= 8 {
		return "****"
	}
	return l.APIKey[:4] + "****" + l.APIKey[len(l.APIKey)-4:]
}

// Serves reports whether the config may answer requests of feature
func (l *LLMConfig) Serves(feature string) bool {
	if strings.TrimSpace(l.Features) == "" || feature == "" {
		return true
	}
	for _, f := range strings.Split(l.Features, ",") {
		if strings.TrimSpace(f) == feature {
			return true
		}
	}
	return false
}

// Timeout is the per-call deadline, defaulting to a minute
func (l *LLMConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}
