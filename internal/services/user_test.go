package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

func strPtr(v string) *string { return &v }

func TestUser_UpdateMeAndProfiles(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	freelancer := createTestUser(t, db, models.RoleFreelancer)

	me, err := users.UpdateMe(freelancer.ID, &UpdateMeRequest{FirstName: strPtr("  Ada "), Country: strPtr("gb")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.FirstName)
	assert.Equal(t, "GB", me.Country)

	rate := 45.0
	profile, err := users.UpdateFreelancerProfile(freelancer.ID, &UpdateFreelancerProfileRequest{
		Title:        strPtr(" Backend engineer "),
		HourlyRate:   &rate,
		Availability: strPtr(models.AvailabilityBusy),
	})
	require.NoError(t, err)
	assert.Equal(t, "Backend engineer", profile.Title)
	assert.Equal(t, 45.0, profile.HourlyRate)
	assert.Equal(t, models.AvailabilityBusy, profile.Availability)

	_, err = users.UpdateFreelancerProfile(freelancer.ID, &UpdateFreelancerProfileRequest{Availability: strPtr("asleep")})
	requireAppError(t, err, 400)
	negative := -1.0
	_, err = users.UpdateFreelancerProfile(freelancer.ID, &UpdateFreelancerProfileRequest{HourlyRate: &negative})
	requireAppError(t, err, 400)

	client := createTestUser(t, db, models.RoleClient)
	cp, err := users.UpdateClientProfile(client.ID, &UpdateClientProfileRequest{CompanyName: strPtr(" Acme ")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", cp.CompanyName)

	public, err := users.GetPublicProfile(freelancer.ID)
	require.NoError(t, err)
	require.NotNil(t, public.Freelancer)
	assert.Nil(t, public.Client)
}

func TestUser_ListFreelancers(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	golang := createSkill(t, db, "go")

	cheap := createTestUser(t, db, models.RoleFreelancer)
	giveSkills(t, db, cheap.ID, 20, golang)
	pricey := createTestUser(t, db, models.RoleFreelancer)
	require.NoError(t, db.Model(&models.FreelancerProfile{}).Where("user_id = ?", pricey.ID).
		Updates(map[string]interface{}{"hourly_rate": 90, "rating": 4.8}).Error)
	gone := createTestUser(t, db, models.RoleFreelancer)
	require.NoError(t, db.Model(gone).Update("is_active", false).Error)

	page, err := users.ListFreelancers(&FreelancerSearchRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	assert.Equal(t, pricey.ID, page.Items[0].UserID, "rating sorts first")

	page, err = users.ListFreelancers(&FreelancerSearchRequest{Skill: "go"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, cheap.ID, page.Items[0].UserID)

	maxRate := 50.0
	page, err = users.ListFreelancers(&FreelancerSearchRequest{MaxRate: &maxRate})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = users.ListFreelancers(&FreelancerSearchRequest{Sort: "rate"})
	require.NoError(t, err)
	assert.Equal(t, cheap.ID, page.Items[0].UserID)
}

func TestUser_AdminUpdate(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	admin := createTestUser(t, db, models.RoleAdmin)
	client := createTestUser(t, db, models.RoleClient)

	_, err := users.AdminUpdate(admin.ID, admin.ID, &AdminUpdateUserRequest{IsActive: boolPtr(false)})
	requireAppError(t, err, 400)
	requireAppError(t, users.Delete(admin.ID, admin.ID), 400)

	switched, err := users.AdminUpdate(admin.ID, client.ID, &AdminUpdateUserRequest{Role: strPtr(models.RoleFreelancer)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFreelancer, switched.Role)
	_, err = users.GetFreelancerProfile(client.ID)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.RefreshToken{UserID: client.ID, TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}).Error)
	_, err = users.AdminUpdate(admin.ID, client.ID, &AdminUpdateUserRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	var live int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked_at IS NULL", client.ID).Count(&live).Error)
	assert.Zero(t, live)

	promoted, err := users.PromoteByEmail(" " + client.Email + " ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	_, err = users.PromoteByEmail("nobody@example.com")
	requireAppError(t, err, 404)

	require.NoError(t, users.Delete(admin.ID, client.ID))
	_, err = users.GetByID(client.ID)
	requireAppError(t, err, 404)

	page, err := users.List(&UserListRequest{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
