package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestLLMConfig_CreateDefaults(t *testing.T) {
	svc := NewLLMConfigService(newTestDB(t))

	c, err := svc.Create(&CreateLLMConfigRequest{Name: "gpt", APIKey: "sk-1234567890", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider)
	assert.Equal(t, 4096, c.MaxTokens)
	assert.Equal(t, 0.3, c.Temperature)
	assert.True(t, c.IsActive)
	assert.Equal(t, "sk-1****7890", c.APIKeyMask)

	_, err = svc.Create(&CreateLLMConfigRequest{Name: "bad", Provider: "cohere", Model: "x"})
	requireAppError(t, err, 400)

	off, err := svc.Create(&CreateLLMConfigRequest{Name: "off", Model: "m", IsActive: boolPtr(false)})
	require.NoError(t, err)
	stored, err := svc.GetByID(off.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "****", stored.APIKeyMask)
}

func TestLLMConfig_SingleDefault(t *testing.T) {
	svc := NewLLMConfigService(newTestDB(t))

	first, err := svc.Create(&CreateLLMConfigRequest{Name: "a", Model: "m", IsDefault: true})
	require.NoError(t, err)
	second, err := svc.Create(&CreateLLMConfigRequest{Name: "b", Model: "m", IsDefault: true})
	require.NoError(t, err)

	got, err := svc.GetByID(first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)

	_, err = svc.Update(first.ID, &UpdateLLMConfigRequest{IsDefault: boolPtr(true)})
	require.NoError(t, err)
	got, err = svc.GetByID(second.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)

	active, err := svc.GetActive()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
}

func TestLLMConfig_UpdateKeepsKeyAndValidates(t *testing.T) {
	svc := NewLLMConfigService(newTestDB(t))
	c, err := svc.Create(&CreateLLMConfigRequest{Name: "a", APIKey: "sk-original-key", Model: "m"})
	require.NoError(t, err)

	empty := ""
	model := "m2"
	updated, err := svc.Update(c.ID, &UpdateLLMConfigRequest{APIKey: &empty, Model: &model})
	require.NoError(t, err)
	assert.Equal(t, "m2", updated.Model)
	assert.Equal(t, "sk-original-key", updated.APIKey)

	bad := "cohere"
	_, err = svc.Update(c.ID, &UpdateLLMConfigRequest{Provider: &bad})
	requireAppError(t, err, 400)

	_, err = svc.Update(999, &UpdateLLMConfigRequest{Model: &model})
	requireAppError(t, err, 404)
}

func TestLLMConfig_ListAndDelete(t *testing.T) {
	svc := NewLLMConfigService(newTestDB(t))
	_, err := svc.Create(&CreateLLMConfigRequest{Name: "openai main", Model: "gpt-4o"})
	require.NoError(t, err)
	claude, err := svc.Create(&CreateLLMConfigRequest{Name: "claude", Provider: "anthropic", Model: "claude-sonnet"})
	require.NoError(t, err)

	page, err := svc.List(&LLMConfigListRequest{Provider: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.PageSize)

	page, err = svc.List(&LLMConfigListRequest{Name: "gpt"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, svc.Delete(claude.ID))
	requireAppError(t, svc.Delete(claude.ID), 404)
}

func TestLLMConfig_TimeoutAndFeatures(t *testing.T) {
	svc := NewLLMConfigService(newTestDB(t))

	c, err := svc.Create(&CreateLLMConfigRequest{Name: "a", Model: "m", Features: []string{" daily_report ", ""}})
	require.NoError(t, err)
	assert.Equal(t, 60, c.TimeoutSeconds)
	assert.Equal(t, "daily_report", c.Features)
	assert.True(t, c.Serves(PromptPurposeDailyReport))
	assert.False(t, c.Serves(PromptPurposeProposalDraft))

	_, err = svc.Create(&CreateLLMConfigRequest{Name: "b", Model: "m", Features: []string{"matchmaking"}})
	requireAppError(t, err, 400)

	timeout := 15
	got, err := svc.Update(c.ID, &UpdateLLMConfigRequest{TimeoutSeconds: &timeout,
		Features: []string{PromptPurposeProposalDraft, PromptPurposeProjectDescription}})
	require.NoError(t, err)
	assert.Equal(t, 15, got.TimeoutSeconds)
	assert.Equal(t, "proposal_draft,project_description", got.Features)

	got, err = svc.Update(c.ID, &UpdateLLMConfigRequest{Features: []string{}})
	require.NoError(t, err)
	assert.Empty(t, got.Features)
	assert.True(t, got.Serves(PromptPurposeDailyReport))

	_, err = svc.Update(c.ID, &UpdateLLMConfigRequest{Features: []string{"nope"}})
	requireAppError(t, err, 400)
}
