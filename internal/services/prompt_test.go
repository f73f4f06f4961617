package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

func TestRenderPrompt(t *testing.T) {
	out := RenderPrompt("Hi {{ name }}, see {{project}}{{missing}}.", map[string]string{
		"name":    "Ada",
		"project": "the shop",
	})
	assert.Equal(t, "Hi Ada, see the shop.", out)
}

func TestPrompt_ForPurposeFallsBackToBuiltIn(t *testing.T) {
	svc := NewPromptService(newTestDB(t))

	assert.Contains(t, svc.ForPurpose(PromptPurposeDailyReport), "{{stats}}")
	assert.Empty(t, svc.ForPurpose("unknown"))
}

func TestPrompt_CreateDefaultOverridesBuiltIn(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDB(db))
	svc := NewPromptService(db)
	admin := createTestUser(t, db, models.RoleAdmin)

	_, err := svc.Create(Actor{UserID: admin.ID, Role: models.RoleAdmin}, &PromptRequest{
		Name: "bad", Purpose: "code_review", Content: "x",
	})
	requireAppError(t, err, 400)

	custom, err := svc.Create(Actor{UserID: admin.ID, Role: models.RoleAdmin}, &PromptRequest{
		Name:      " Friendly draft ",
		Purpose:   PromptPurposeProposalDraft,
		Content:   "Be friendly about {{project}}",
		IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Friendly draft", custom.Name)
	assert.True(t, custom.IsDefault)
	assert.Equal(t, admin.ID, custom.CreatedBy)
	assert.Equal(t, "Be friendly about {{project}}", svc.ForPurpose(PromptPurposeProposalDraft))

	var builtIn models.PromptTemplate
	require.NoError(t, db.Where("purpose = ? AND is_system = ?", PromptPurposeProposalDraft, true).First(&builtIn).Error)
	assert.False(t, builtIn.IsDefault)

	require.NoError(t, svc.SetDefault(builtIn.ID))
	assert.Equal(t, builtIn.Content, svc.ForPurpose(PromptPurposeProposalDraft))
}

func TestPrompt_BuiltInsAreProtected(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDB(db))
	svc := NewPromptService(db)

	var builtIn models.PromptTemplate
	require.NoError(t, db.Where("purpose = ? AND is_system = ?", PromptPurposeDailyReport, true).First(&builtIn).Error)

	requireAppError(t, svc.Delete(builtIn.ID), 400)
	_, err := svc.Update(builtIn.ID, &PromptRequest{Name: "x", Purpose: PromptPurposeProposalDraft, Content: "y"})
	requireAppError(t, err, 400)

	updated, err := svc.Update(builtIn.ID, &PromptRequest{Name: "Digest", Purpose: PromptPurposeDailyReport, Content: "short {{stats}}"})
	require.NoError(t, err)
	assert.Equal(t, "short {{stats}}", updated.Content)

	requireAppError(t, svc.Delete(12345), 404)
}

func TestPrompt_List(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDB(db))
	svc := NewPromptService(db)
	_, err := svc.Create(Actor{UserID: 1}, &PromptRequest{Name: "Extra digest", Purpose: PromptPurposeDailyReport, Content: "x"})
	require.NoError(t, err)

	page, err := svc.List(&PromptListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.True(t, page.Items[0].IsSystem)

	system := false
	page, err = svc.List(&PromptListRequest{IsSystem: &system})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "Extra digest", page.Items[0].Name)

	page, err = svc.List(&PromptListRequest{Purpose: PromptPurposeDailyReport})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
