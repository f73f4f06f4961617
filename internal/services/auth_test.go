package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	return NewAuthService(newTestDB(t), &config.JWTConfig{Secret: "test-secret", ExpireHour: 2}, &config.LDAPConfig{})
}

func registerRequest(email, role string) *RegisterRequest {
	return &RegisterRequest{
		Email:     email,
		Password:  "correct-horse",
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Role:      role,
		Country:   "in",
	}
}

func TestRegister_CreatesProfileAndSignsIn(t *testing.T) {
	auth := newTestAuthService(t)

	result, err := auth.Register(registerRequest(" Ada@Example.com ", models.RoleFreelancer), "127.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "Ada", result.User.FirstName)
	assert.Equal(t, "IN", result.User.Country)

	claims, err := utils.ParseToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, models.RoleFreelancer, claims.Role)

	var profiles int64
	require.NoError(t, auth.db.Model(&models.FreelancerProfile{}).Where("user_id = ?", result.User.ID).Count(&profiles).Error)
	assert.Equal(t, int64(1), profiles)

	_, err = auth.Register(registerRequest("ada@example.com", models.RoleClient), "", "")
	requireAppError(t, err, 409)
}

func TestRegister_Validation(t *testing.T) {
	auth := newTestAuthService(t)

	_, err := auth.Register(registerRequest("root@example.com", models.RoleAdmin), "", "")
	requireAppError(t, err, 400)

	req := registerRequest("short@example.com", models.RoleClient)
	req.Password = "short"
	_, err = auth.Register(req, "", "")
	requireAppError(t, err, 400)
}

func TestLogin_LocalAccounts(t *testing.T) {
	auth := newTestAuthService(t)
	registered, err := auth.Register(registerRequest("grace@example.com", models.RoleClient), "", "")
	require.NoError(t, err)

	result, err := auth.Login(&LoginRequest{Email: "GRACE@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)
	assert.NotNil(t, result.User.LastLogin)

	_, err = auth.Login(&LoginRequest{Username: "grace@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err, "username is accepted as an email alias")

	_, err = auth.Login(&LoginRequest{Email: "grace@example.com", Password: "wrong-horse"}, "", "")
	requireAppError(t, err, 401)

	_, err = auth.Login(&LoginRequest{Email: "grace@example.com", Password: "correct-horse", AuthType: "saml"}, "", "")
	requireAppError(t, err, 400)

	require.NoError(t, auth.db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)
	_, err = auth.Login(&LoginRequest{Email: "grace@example.com", Password: "correct-horse"}, "", "")
	requireAppError(t, err, 401)
}

func TestLogin_UpgradesWeakPasswordHash(t *testing.T) {
	auth := newTestAuthService(t)
	registered, err := auth.Register(registerRequest("hedy@example.com", models.RoleFreelancer), "", "")
	require.NoError(t, err)
	weak, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, auth.db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("password", string(weak)).Error)

	_, err = auth.Login(&LoginRequest{Email: "hedy@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, auth.db.First(&user, registered.User.ID).Error)
	assert.False(t, utils.NeedsRehash(user.Password))
	assert.True(t, utils.CheckPassword("correct-horse", user.Password))
}

func TestRefresh_RotatesToken(t *testing.T) {
	auth := newTestAuthService(t)
	login, err := auth.Register(registerRequest("linus@example.com", models.RoleFreelancer), "", "")
	require.NoError(t, err)

	rotated, err := auth.Refresh(login.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = auth.Refresh(login.RefreshToken, "", "")
	requireAppError(t, err, 401)

	_, err = auth.Refresh("", "", "")
	requireAppError(t, err, 401)
	_, err = auth.Refresh("not-a-token", "", "")
	requireAppError(t, err, 401)

	require.NoError(t, auth.RevokeRefreshToken(rotated.RefreshToken))
	_, err = auth.Refresh(rotated.RefreshToken, "", "")
	requireAppError(t, err, 401)

	var tokens []models.RefreshToken
	require.NoError(t, auth.db.Order("id").Find(&tokens).Error)
	require.Len(t, tokens, 2)
	assert.Equal(t, models.RevokeReasonRotated, tokens[0].RevokeReason)
	require.NotNil(t, tokens[0].ReplacedByTokenID)
	assert.Equal(t, tokens[1].ID, *tokens[0].ReplacedByTokenID)
	assert.Equal(t, models.RevokeReasonLogout, tokens[1].RevokeReason)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	auth := newTestAuthService(t)
	login, err := auth.Register(registerRequest("ada@example.com", models.RoleClient), "", "")
	require.NoError(t, err)
	require.NoError(t, auth.db.Model(&models.RefreshToken{}).Where("user_id = ?", login.User.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = auth.Refresh(login.RefreshToken, "", "")
	requireAppError(t, err, 401)
	assert.Contains(t, err.Error(), "expired")
}

func TestRevokeAllForUser(t *testing.T) {
	auth := newTestAuthService(t)
	first, err := auth.Register(registerRequest("ken@example.com", models.RoleClient), "", "")
	require.NoError(t, err)
	second, err := auth.Login(&LoginRequest{Email: "ken@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	require.NoError(t, auth.RevokeAllForUser(first.User.ID, models.RevokeReasonPasswordChanged))
	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		_, err := auth.Refresh(token, "", "")
		requireAppError(t, err, 401)
	}

	var reasons []string
	require.NoError(t, auth.db.Model(&models.RefreshToken{}).Where("user_id = ?", first.User.ID).Order("id").Pluck("revoke_reason", &reasons).Error)
	assert.Equal(t, []string{models.RevokeReasonPasswordChanged, models.RevokeReasonPasswordChanged}, reasons)
}

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Hour)
	assert.True(t, (&models.RefreshToken{ExpiresAt: now.Add(time.Hour)}).Usable(now))
	assert.False(t, (&models.RefreshToken{ExpiresAt: now.Add(-time.Second)}).Usable(now))
	assert.False(t, (&models.RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}).Usable(now))
}

func TestChangePassword(t *testing.T) {
	auth := newTestAuthService(t)
	login, err := auth.Register(registerRequest("barbara@example.com", models.RoleClient), "", "")
	require.NoError(t, err)
	id := login.User.ID

	requireAppError(t, auth.ChangePassword(id, &ChangePasswordRequest{OldPassword: "nope", NewPassword: "new-password"}), 400)
	requireAppError(t, auth.ChangePassword(id, &ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "short"}), 400)
	require.NoError(t, auth.ChangePassword(id, &ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "new-password"}))

	_, err = auth.Login(&LoginRequest{Email: "barbara@example.com", Password: "new-password"}, "", "")
	require.NoError(t, err)
}

func TestCreateAdminIfNotExists(t *testing.T) {
	auth := newTestAuthService(t)
	require.NoError(t, auth.CreateAdminIfNotExists())
	require.NoError(t, auth.CreateAdminIfNotExists())

	var admins int64
	require.NoError(t, auth.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)

	result, err := auth.Login(&LoginRequest{Email: DefaultAdminEmail, Password: DefaultAdminPassword}, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, result.User.Role)
}

func TestSplitDisplayName(t *testing.T) {
	first, last := splitDisplayName("Grace Brewster Hopper")
	assert.Equal(t, "Grace", first)
	assert.Equal(t, "Brewster Hopper", last)

	first, last = splitDisplayName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)
}
