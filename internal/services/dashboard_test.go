package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

func statusCount(counts []StatusCount, status string) int64 {
	for _, c := range counts {
		if c.Status == status {
			return c.Count
		}
	}
	return 0
}

func TestDashboard_EmptyClient(t *testing.T) {
	db := newTestDB(t)
	client := createTestUser(t, db, models.RoleClient)

	d, err := NewDashboardService(db).Get(context.Background(), Actor{UserID: client.ID, Role: models.RoleClient})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, d.Role)
	require.NotNil(t, d.Client)
	assert.Nil(t, d.Freelancer)
	assert.Nil(t, d.Admin)
	assert.Empty(t, d.Client.ProjectsByStatus)
	assert.Zero(t, d.Client.EscrowHeld)
}

func TestDashboard_ReflectsEscrowAndReleases(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	dashboards := NewDashboardService(m.db)

	project := m.hire(t, 1000)
	released := m.addMilestone(t, project.ID, 600)
	held := m.addMilestone(t, project.ID, 400)
	releasedPayment := m.fund(t, released.ID)
	m.fund(t, held.ID)
	m.approve(t, released.ID)
	require.NoError(t, m.payments.SetPayoutAccount(m.freelancerActor(), &PayoutAccountRequest{AccountID: "acc_dash"}))
	_, err := m.payments.Release(ctx, m.clientActor(), releasedPayment.ID)
	require.NoError(t, err)

	open := openProject(t, m, "")
	rival := createTestUser(t, m.db, models.RoleFreelancer)
	_, err = m.proposals.Submit(ctx, Actor{UserID: rival.ID, Role: models.RoleFreelancer}, open.ID,
		&SubmitProposalRequest{CoverLetter: "pick me", Amount: 200})
	require.NoError(t, err)
	_, err = m.hiring.Invite(m.clientActor(), open.ID, &InviteRequest{FreelancerID: m.freelancer.ID})
	require.NoError(t, err)

	d, err := dashboards.Get(ctx, m.clientActor())
	require.NoError(t, err)
	require.NotNil(t, d.Client)
	assert.Equal(t, int64(1), statusCount(d.Client.ProjectsByStatus, models.ProjectStatusInProgress))
	assert.Equal(t, int64(1), statusCount(d.Client.ProjectsByStatus, models.ProjectStatusOpen))
	assert.Equal(t, int64(1), d.Client.OpenProposals)
	assert.Equal(t, 1000.0, d.Client.TotalSpent)
	assert.Equal(t, 400.0, d.Client.EscrowHeld)

	d, err = dashboards.Get(ctx, m.freelancerActor())
	require.NoError(t, err)
	require.NotNil(t, d.Freelancer)
	assert.Equal(t, int64(1), d.Freelancer.ActiveProjects)
	assert.Equal(t, int64(1), d.Freelancer.PendingInvites)
	assert.Equal(t, 540.0, d.Freelancer.TotalEarnings)
	assert.Equal(t, 360.0, d.Freelancer.PendingReleases)
	assert.Zero(t, d.Freelancer.ActiveProposals)

	admin := createTestUser(t, m.db, models.RoleAdmin)
	d, err = dashboards.Get(ctx, Actor{UserID: admin.ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, d.Admin)
	assert.Equal(t, int64(2), statusCount(d.Admin.UsersByRole, models.RoleFreelancer))
	assert.Equal(t, int64(1), statusCount(d.Admin.UsersByRole, models.RoleAdmin))
	assert.Equal(t, 600.0, d.Admin.GMV)
	assert.Equal(t, 60.0, d.Admin.PlatformFees)
	assert.Equal(t, 400.0, d.Admin.EscrowHeld)
	assert.Zero(t, d.Admin.FailedReleases)
}

func TestDashboard_UnreadMessages(t *testing.T) {
	m := newMarket(t)
	project := m.hire(t, 300)

	var conv models.Conversation
	require.NoError(t, m.db.Where("project_id = ?", project.ID).First(&conv).Error)
	require.NoError(t, m.db.Create(&models.Message{ConversationID: conv.ID, SenderID: m.client.ID, Content: "welcome aboard"}).Error)

	d, err := NewDashboardService(m.db).Get(context.Background(), m.freelancerActor())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Freelancer.UnreadMessages)

	d, err = NewDashboardService(m.db).Get(context.Background(), m.clientActor())
	require.NoError(t, err)
	assert.Zero(t, d.Client.UnreadMessages)
}
