package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

func completedProject(t *testing.T, m *market) *models.Project {
	t.Helper()
	project := m.hire(t, 500)
	done, err := m.projects.Complete(m.clientActor(), project.ID)
	require.NoError(t, err)
	return done
}

func intPtr(v int) *int { return &v }

func TestReview_BothDirections(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	project := completedProject(t, m)

	r, err := m.reviews.Create(ctx, m.clientActor(), project.ID, &ReviewRequest{Rating: 4, Quality: intPtr(5), Comment: " solid work "})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewClientToFreelancer, r.Direction)
	assert.Equal(t, m.freelancer.ID, r.RevieweeID)
	assert.Equal(t, "solid work", r.Comment)

	_, err = m.reviews.Create(ctx, m.freelancerActor(), project.ID, &ReviewRequest{Rating: 5})
	require.NoError(t, err)

	profile := m.freelancerProfile(t)
	assert.Equal(t, 4.0, profile.Rating)
	assert.Equal(t, 1, profile.ReviewCount)

	var client models.ClientProfile
	require.NoError(t, m.db.Where("user_id = ?", m.client.ID).First(&client).Error)
	assert.Equal(t, 5.0, client.Rating)

	_, err = m.reviews.Create(ctx, m.clientActor(), project.ID, &ReviewRequest{Rating: 3})
	requireAppError(t, err, 409)

	list, err := m.reviews.ListForProject(project.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReview_Guards(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()

	inProgress := m.hire(t, 500)
	_, err := m.reviews.Create(ctx, m.clientActor(), inProgress.ID, &ReviewRequest{Rating: 5})
	requireAppError(t, err, 409)

	done, err := m.projects.Complete(m.clientActor(), inProgress.ID)
	require.NoError(t, err)

	_, err = m.reviews.Create(ctx, m.clientActor(), done.ID, &ReviewRequest{Rating: 6})
	requireAppError(t, err, 400)
	_, err = m.reviews.Create(ctx, m.clientActor(), done.ID, &ReviewRequest{Rating: 5, Timeliness: intPtr(6)})
	requireAppError(t, err, 400)

	stranger := createTestUser(t, m.db, models.RoleClient)
	_, err = m.reviews.Create(ctx, Actor{UserID: stranger.ID, Role: models.RoleClient}, done.ID, &ReviewRequest{Rating: 5})
	requireAppError(t, err, 403)
}

func TestReview_UpdateWindowAndModeration(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()
	project := completedProject(t, m)

	r, err := m.reviews.Create(ctx, m.clientActor(), project.ID, &ReviewRequest{Rating: 2})
	require.NoError(t, err)

	updated, err := m.reviews.Update(m.clientActor(), r.ID, &ReviewRequest{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, 4.0, m.freelancerProfile(t).Rating)

	_, err = m.reviews.Update(m.freelancerActor(), r.ID, &ReviewRequest{Rating: 1})
	requireAppError(t, err, 403)

	require.NoError(t, m.db.Model(&models.Review{}).Where("id = ?", r.ID).
		Update("created_at", time.Now().Add(-ReviewEditWindow-time.Hour)).Error)
	_, err = m.reviews.Update(m.clientActor(), r.ID, &ReviewRequest{Rating: 5})
	requireAppError(t, err, 409)

	requireAppError(t, m.reviews.Delete(m.clientActor(), r.ID), 403)
	admin := createTestUser(t, m.db, models.RoleAdmin)
	require.NoError(t, m.reviews.Delete(Actor{UserID: admin.ID, Role: models.RoleAdmin}, r.ID))

	profile := m.freelancerProfile(t)
	assert.Zero(t, profile.Rating)
	assert.Zero(t, profile.ReviewCount)

	page, err := m.reviews.ListForUser(m.freelancer.ID, &ReviewListRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestReview_UnratedSubRatings(t *testing.T) {
	m := newMarket(t)
	project := completedProject(t, m)

	r, err := m.reviews.Create(context.Background(), m.clientActor(), project.ID,
		&ReviewRequest{Rating: 4, Timeliness: intPtr(0), Quality: intPtr(5)})
	require.NoError(t, err)

	var stored models.Review
	require.NoError(t, m.db.First(&stored, r.ID).Error)
	require.NotNil(t, stored.Timeliness)
	assert.Zero(t, *stored.Timeliness)
	require.NotNil(t, stored.Quality)
	assert.Equal(t, 5, *stored.Quality)
	assert.Nil(t, stored.Communication)

	_, err = m.reviews.Update(m.clientActor(), r.ID, &ReviewRequest{Rating: 4, Communication: intPtr(-1)})
	requireAppError(t, err, 400)
}
