package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLLMConfig_Serves(t *testing.T) {
	tests := []struct {
		features string
		feature  string
		want     bool
	}{
		{"", "proposal_draft", true},
		{"  ", "daily_report", true},
		{"daily_report", "", true},
		{"daily_report", "daily_report", true},
		{"proposal_draft, daily_report", "daily_report", true},
		{"proposal_draft", "daily_report", false},
		{"daily_report_v2", "daily_report", false},
	}
	for _, tt := range tests {
		c := LLMConfig{Features: tt.features}
		assert.Equal(t, tt.want, c.Serves(tt.feature), "features=%q feature=%q", tt.features, tt.feature)
	}
}

func TestLLMConfig_Timeout(t *testing.T) {
	assert.Equal(t, time.Minute, (&LLMConfig{}).Timeout())
	assert.Equal(t, time.Minute, (&LLMConfig{TimeoutSeconds: -3}).Timeout())
	assert.Equal(t, 20*time.Second, (&LLMConfig{TimeoutSeconds: 20}).Timeout())
}

func TestLLMConfig_MaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", (&LLMConfig{APIKey: "short"}).MaskAPIKey())
	assert.Equal(t, "sk-a****wxyz", (&LLMConfig{APIKey: "sk-abcdefghwxyz"}).MaskAPIKey())
}
