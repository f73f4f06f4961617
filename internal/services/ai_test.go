package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"gorm.io/gorm"
)

// fakeChatServer answers OpenAI-style chat completions with content, or 500 when content is empty
func fakeChatServer(t *testing.T, content string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if content == "" {
			http.Error(w, `{"error":{"message":"upstream down"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "  " + content + "\n"},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 30, "total_tokens": 42},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func createLLMConfig(t *testing.T, db *gorm.DB, name, baseURL string, isDefault bool) *models.LLMConfig {
	t.Helper()
	c := &models.LLMConfig{
		Name:      name,
		Provider:  "openai",
		BaseURL:   baseURL,
		APIKey:    "sk-test",
		Model:     "test-model",
		IsDefault: isDefault,
		IsActive:  true,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func TestAIComplete_FallsBackAndRecordsUsage(t *testing.T) {
	db := newTestDB(t)
	broken, brokenCalls := fakeChatServer(t, "")
	healthy, healthyCalls := fakeChatServer(t, "Here is your cover letter.")
	createLLMConfig(t, db, "primary", broken.URL, true)
	createLLMConfig(t, db, "secondary", healthy.URL, false)

	userID := uint(7)
	result, err := NewAIService(db, nil).Complete(context.Background(), &CompletionRequest{
		Feature: PromptPurposeProposalDraft,
		UserID:  &userID,
		Prompt:  "write",
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is your cover letter.", result.Content)
	assert.Equal(t, "secondary", result.Config)
	assert.Equal(t, int32(1), atomic.LoadInt32(brokenCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(healthyCalls))

	var logs []models.AIUsageLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.False(t, logs[0].Success)
	assert.NotEmpty(t, logs[0].ErrorMessage)
	assert.True(t, logs[1].Success)
	assert.Equal(t, 42, logs[1].TotalTokens)
	require.NotNil(t, logs[1].UserID)
	assert.Equal(t, userID, *logs[1].UserID)

	var primary, secondary models.LLMConfig
	require.NoError(t, db.Where("name = ?", "primary").First(&primary).Error)
	require.NoError(t, db.Where("name = ?", "secondary").First(&secondary).Error)
	require.NotNil(t, primary.LastUsedAt)
	assert.NotEmpty(t, primary.LastError)
	require.NotNil(t, secondary.LastUsedAt)
	assert.Empty(t, secondary.LastError)
}

func TestAIComplete_SkipsConfigsForOtherFeatures(t *testing.T) {
	db := newTestDB(t)
	reportsOnly, reportCalls := fakeChatServer(t, "report text")
	general, generalCalls := fakeChatServer(t, "proposal text")
	c := createLLMConfig(t, db, "reports", reportsOnly.URL, true)
	require.NoError(t, db.Model(c).Update("features", PromptPurposeDailyReport).Error)
	createLLMConfig(t, db, "general", general.URL, false)

	svc := NewAIService(db, nil)
	result, err := svc.Complete(context.Background(), &CompletionRequest{Feature: PromptPurposeProposalDraft, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "general", result.Config)
	assert.Equal(t, int32(0), atomic.LoadInt32(reportCalls))

	result, err = svc.Complete(context.Background(), &CompletionRequest{Feature: PromptPurposeDailyReport, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "reports", result.Config)
	assert.Equal(t, int32(1), atomic.LoadInt32(reportCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(generalCalls))
}

func TestAIComplete_CallTimeoutFallsThrough(t *testing.T) {
	db := newTestDB(t)
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		slow.Close()
	})
	healthy, _ := fakeChatServer(t, "done")
	c := createLLMConfig(t, db, "slow", slow.URL, true)
	require.NoError(t, db.Model(c).Update("timeout_seconds", 1).Error)
	createLLMConfig(t, db, "fast", healthy.URL, false)

	result, err := NewAIService(db, nil).Complete(context.Background(), &CompletionRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fast", result.Config)

	var stored models.LLMConfig
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.NotEmpty(t, stored.LastError)
}

func TestAIComplete_AllFail(t *testing.T) {
	db := newTestDB(t)
	broken, _ := fakeChatServer(t, "")
	createLLMConfig(t, db, "only", broken.URL, true)

	_, err := NewAIService(db, nil).Complete(context.Background(), &CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all LLMs failed")
}

func TestAIComplete_NoConfiguration(t *testing.T) {
	db := newTestDB(t)
	_, err := NewAIService(db, &config.OpenAIConfig{}).Complete(context.Background(), &CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoLLM)
}

func TestOrderedLLMConfigs(t *testing.T) {
	db := newTestDB(t)
	createLLMConfig(t, db, "first", "http://a", false)
	createLLMConfig(t, db, "default", "http://b", true)
	pinned := createLLMConfig(t, db, "pinned", "http://c", false)
	disabled := createLLMConfig(t, db, "disabled", "http://d", false)
	require.NoError(t, db.Model(disabled).Update("is_active", false).Error)

	svc := NewAIService(db, nil)
	names := func(configs []models.LLMConfig) []string {
		out := make([]string, 0, len(configs))
		for _, c := range configs {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"default", "first", "pinned"}, names(svc.orderedLLMConfigs("")))

	require.NoError(t, NewSystemConfigService(db).Set("ai_matching_llm_config_id", strconv.Itoa(int(pinned.ID))))
	assert.Equal(t, []string{"pinned", "default", "first"}, names(svc.orderedLLMConfigs("matching")))
	assert.Equal(t, []string{"default", "first", "pinned"}, names(svc.orderedLLMConfigs("daily_report")))
}

func TestOrderedLLMConfigs_FileFallback(t *testing.T) {
	db := newTestDB(t)
	svc := NewAIService(db, &config.OpenAIConfig{APIKey: "sk-file", BaseURL: "http://file", Model: "gpt-file"})

	configs := svc.orderedLLMConfigs("")
	require.Len(t, configs, 1)
	assert.Equal(t, "fallback", configs[0].Name)
	assert.Equal(t, "gpt-file", configs[0].Model)
}

func TestAssistant_DraftProposal(t *testing.T) {
	m := newMarket(t)
	srv, _ := fakeChatServer(t, "Dear client, I can help.")
	createLLMConfig(t, m.db, "writer", srv.URL, true)
	assistant := NewAssistantService(m.db, NewAIService(m.db, nil))
	project := openProject(t, m, "")

	draft, err := assistant.DraftProposal(context.Background(), m.freelancerActor(), &ProposalDraftRequest{ProjectID: project.ID})
	require.NoError(t, err)
	assert.Equal(t, "Dear client, I can help.", draft.Content)

	_, err = assistant.DraftProposal(context.Background(), m.clientActor(), &ProposalDraftRequest{ProjectID: project.ID})
	requireAppError(t, err, 403)
}

func TestAssistant_NotConfigured(t *testing.T) {
	m := newMarket(t)
	assistant := NewAssistantService(m.db, NewAIService(m.db, nil))

	_, err := assistant.DescribeProject(context.Background(), m.clientActor(), &DescriptionRequest{Title: "Shop"})
	requireAppError(t, err, 500)
}
