package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

func TestProjectCreate_DraftAndPublish(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()

	draft, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{
		Title:       "  Mobile app  ",
		Description: "iOS and Android",
		BudgetMin:   100,
		BudgetMax:   300,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, draft.Status)
	assert.Equal(t, "Mobile app", draft.Title)
	assert.Equal(t, "INR", draft.Currency)
	assert.Equal(t, models.BudgetFixed, draft.BudgetType)
	assert.Equal(t, models.VisibilityPublic, draft.Visibility)

	var profile models.ClientProfile
	require.NoError(t, m.db.Where("user_id = ?", m.client.ID).First(&profile).Error)
	assert.Equal(t, 1, profile.ProjectsPosted)

	_, err = m.projects.Get(m.freelancerActor(), draft.ID)
	requireAppError(t, err, 404)

	published, err := m.projects.Publish(ctx, m.clientActor(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusOpen, published.Status)

	_, err = m.projects.Get(m.freelancerActor(), draft.ID)
	require.NoError(t, err)

	_, err = m.projects.Publish(ctx, m.clientActor(), draft.ID)
	requireAppError(t, err, 409)
}

func TestProjectCreate_Validation(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		req  CreateProjectRequest
	}{
		{"missing title", CreateProjectRequest{Description: "d", BudgetMax: 10}},
		{"missing description", CreateProjectRequest{Title: "t", BudgetMax: 10}},
		{"zero budget", CreateProjectRequest{Title: "t", Description: "d"}},
		{"inverted budget", CreateProjectRequest{Title: "t", Description: "d", BudgetMin: 50, BudgetMax: 10}},
		{"past deadline", CreateProjectRequest{Title: "t", Description: "d", BudgetMax: 10, Deadline: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.projects.Create(ctx, m.clientActor(), &tt.req)
			requireAppError(t, err, 400)
		})
	}

	_, err := m.projects.Create(ctx, m.freelancerActor(), &CreateProjectRequest{Title: "t", Description: "d", BudgetMax: 10})
	requireAppError(t, err, 403)
}

func TestProjectList_Visibility(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()

	public, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{
		Title: "Public", Description: "d", BudgetMax: 100, Publish: true,
	})
	require.NoError(t, err)
	private, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{
		Title: "Private", Description: "d", BudgetMax: 100, Publish: true, Visibility: models.VisibilityInviteOnly,
	})
	require.NoError(t, err)
	_, err = m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{Title: "Draft", Description: "d", BudgetMax: 100})
	require.NoError(t, err)

	page, err := m.projects.List(m.freelancerActor(), &ProjectListRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, public.ID, page.Items[0].ID)

	_, err = m.projects.Get(m.freelancerActor(), private.ID)
	requireAppError(t, err, 404)

	_, err = m.hiring.Invite(m.clientActor(), private.ID, &InviteRequest{FreelancerID: m.freelancer.ID})
	require.NoError(t, err)

	page, err = m.projects.List(m.freelancerActor(), &ProjectListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = m.projects.List(m.freelancerActor(), &ProjectListRequest{Search: "priv"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, private.ID, page.Items[0].ID)

	admin := createTestUser(t, m.db, models.RoleAdmin)
	page, err = m.projects.List(Actor{UserID: admin.ID, Role: models.RoleAdmin}, &ProjectListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestProjectCancel_RejectsOpenProposals(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	project, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{
		Title: "Logo", Description: "d", BudgetMax: 100, Publish: true,
	})
	require.NoError(t, err)
	proposal, err := m.proposals.Submit(ctx, m.freelancerActor(), project.ID, &SubmitProposalRequest{CoverLetter: "hi", Amount: 80})
	require.NoError(t, err)

	cancelled, err := m.projects.Cancel(m.clientActor(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCancelled, cancelled.Status)

	var p models.Proposal
	require.NoError(t, m.db.First(&p, proposal.ID).Error)
	assert.Equal(t, models.ProposalStatusRejected, p.Status)

	_, err = m.projects.Cancel(m.clientActor(), project.ID)
	requireAppError(t, err, 409)
}

func TestProjectComplete_BlockedByHeldFunds(t *testing.T) {
	m := newMarket(t)
	project := m.hire(t, 500)
	ms := m.addMilestone(t, project.ID, 500)
	m.fund(t, ms.ID)

	_, err := m.projects.Complete(m.clientActor(), project.ID)
	requireAppError(t, err, 409)

	_, err = m.projects.Complete(m.freelancerActor(), project.ID)
	requireAppError(t, err, 403)
}

func TestProjectComplete_WithoutMilestones(t *testing.T) {
	m := newMarket(t)
	project := m.hire(t, 500)

	done, err := m.projects.Complete(m.clientActor(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, done.Status)
	assert.Equal(t, 1, m.freelancerProfile(t).CompletedProjects)
}

func TestProjectDelete_OnlyDrafts(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	draft, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{Title: "t", Description: "d", BudgetMax: 10})
	require.NoError(t, err)
	open, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{Title: "t", Description: "d", BudgetMax: 10, Publish: true})
	require.NoError(t, err)

	require.NoError(t, m.projects.Delete(m.clientActor(), draft.ID))
	requireAppError(t, m.projects.Delete(m.clientActor(), open.ID), 409)

	_, err = m.projects.Get(m.clientActor(), draft.ID)
	requireAppError(t, err, 404)
}

func TestProjectUpdate_OnlyWhileOpen(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	project, err := m.projects.Create(ctx, m.clientActor(), &CreateProjectRequest{Title: "t", Description: "d", BudgetMax: 10, Publish: true})
	require.NoError(t, err)

	title := "Renamed"
	updated, err := m.projects.Update(m.clientActor(), project.ID, &UpdateProjectRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	badMin := 50.0
	_, err = m.projects.Update(m.clientActor(), project.ID, &UpdateProjectRequest{BudgetMin: &badMin})
	requireAppError(t, err, 400)

	hired := m.hire(t, 10)
	_, err = m.projects.Update(m.clientActor(), hired.ID, &UpdateProjectRequest{Title: &title})
	requireAppError(t, err, 409)
}
