package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultAdminEmail    = "admin@freelancehub.local"
	DefaultAdminPassword = "admin12345"
)

type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
	configSvc   *SystemConfigService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig) *AuthService {
	return &AuthService{
		db:          db,
		ldapService: NewLDAPService(db, ldapCfg),
		jwtConfig:   jwtCfg,
		configSvc:   NewSystemConfigService(db),
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Role      string `json:"role" binding:"required,oneof=client freelancer"`
	Country   string `json:"country" binding:"omitempty,len=2"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"` // LDAP uid; accepted as an alias of email for local accounts
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type" binding:"omitempty,oneof=local ldap"`
}

type LoginResult struct {
	AccessToken     string       `json:"token"`
	AccessExpireAt  time.Time    `json:"expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
	User            *models.User `json:"user"`
}

type RefreshResult struct {
	AccessToken     string    `json:"token"`
	AccessExpireAt  time.Time `json:"expire_at"`
	RefreshToken    string    `json:"refresh_token"`
	RefreshExpireAt time.Time `json:"refresh_expire_at"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a client or freelancer together with its empty profile and signs them in
func (s *AuthService) Register(req *RegisterRequest, clientIP, userAgent string) (*LoginResult, error) {
	if req.Role != models.RoleClient && req.Role != models.RoleFreelancer {
		return nil, response.NewBadRequest("role must be client or freelancer")
	}
	if len(req.Password) < 8 {
		return nil, response.NewBadRequest("password must be at least 8 characters")
	}

	email := normalizeEmail(req.Email)
	var count int64
	if err := s.db.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("email is already registered")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Country:   strings.ToUpper(req.Country),
		Role:      req.Role,
		AuthType:  "local",
		IsActive:  true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if isDuplicateKey(err) {
				return response.NewConflict("email is already registered")
			}
			return err
		}
		if user.Role == models.RoleFreelancer {
			return tx.Create(&models.FreelancerProfile{UserID: user.ID, Availability: models.AvailabilityAvailable}).Error
		}
		return tx.Create(&models.ClientProfile{UserID: user.ID}).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo("auth", "register", "user registered: "+user.Email, &user.ID, clientIP, userAgent, map[string]string{"role": user.Role})
	return s.issueTokens(user, clientIP, userAgent)
}

// Login authenticates a user and returns an access token plus a rotating refresh token
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var user *models.User
	var err error

	if req.AuthType == "" {
		req.AuthType = "local"
	}

	switch req.AuthType {
	case "local":
		identifier := req.Email
		if identifier == "" {
			identifier = req.Username
		}
		user, err = s.localAuth(identifier, req.Password)
	case "ldap":
		identifier := req.Username
		if identifier == "" {
			identifier = req.Email
		}
		user, err = s.ldapAuth(identifier, req.Password)
	default:
		return nil, response.NewBadRequest("invalid auth type")
	}
	if err != nil {
		LogWarning("auth", "login_failed", "login failed for "+req.Email+req.Username, nil, clientIP, userAgent, nil)
		return nil, err
	}

	result, err := s.issueTokens(user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(user).Update("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("[Auth] failed to update last_login")
	}
	user.LastLogin = &now
	return result, nil
}

func (s *AuthService) issueTokens(user *models.User, clientIP, userAgent string) (*LoginResult, error) {
	accessHours := s.getAccessTokenExpireHours()
	refreshHours := s.getRefreshTokenExpireHours()

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, accessHours)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExpireAt := time.Now().Add(time.Duration(refreshHours) * time.Hour)
	refreshRecord := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   refreshExpireAt,
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}
	if err := s.db.Create(&refreshRecord).Error; err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: refreshExpireAt,
		User:            user,
	}, nil
}

// Refresh rotates a refresh token; the presented token is revoked and linked to its replacement
func (s *AuthService) Refresh(refreshToken string, clientIP, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, response.NewUnauthorized("refresh token required")
	}

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hashRefreshToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}

	if !stored.Usable(time.Now()) {
		if stored.RevokedAt != nil {
			return nil, response.NewUnauthorized("refresh token revoked")
		}
		return nil, response.NewUnauthorized("refresh token expired")
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, response.NewUnauthorized("account is disabled")
	}

	accessHours := s.getAccessTokenExpireHours()
	refreshHours := s.getRefreshTokenExpireHours()

	newAccessToken, err := utils.GenerateToken(user.ID, user.Email, user.Role, accessHours)
	if err != nil {
		return nil, err
	}

	newRefreshToken, newRefreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newRefresh := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   newRefreshHash,
		ExpiresAt:   now.Add(time.Duration(refreshHours) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRefresh).Error; err != nil {
			return err
		}
		// guard against two concurrent refreshes of the same token
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Updates(map[string]interface{}{
				"revoked_at":           now,
				"revoke_reason":        models.RevokeReasonRotated,
				"replaced_by_token_id": newRefresh.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewUnauthorized("refresh token revoked")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:     newAccessToken,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    newRefreshToken,
		RefreshExpireAt: newRefresh.ExpiresAt,
	}, nil
}

// RevokeRefreshToken is the logout path
func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(refreshToken)).
		Updates(map[string]interface{}{"revoked_at": time.Now(), "revoke_reason": models.RevokeReasonLogout}).Error
}

// RevokeAllForUser signs a user out everywhere. reason is one of the models.RevokeReason values.
func (s *AuthService) RevokeAllForUser(userID uint, reason string) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]interface{}{"revoked_at": time.Now(), "revoke_reason": reason}).Error
}

func (s *AuthService) getAccessTokenExpireHours() int {
	hours := s.configSvc.GetInt("auth_access_token_expire_hours", s.jwtConfig.ExpireHour)
	if hours <= 0 {
		return s.jwtConfig.ExpireHour
	}
	return hours
}

func (s *AuthService) getRefreshTokenExpireHours() int {
	hours := s.configSvc.GetInt("auth_refresh_token_expire_hours", 720)
	if hours <= 0 {
		return 720
	}
	return hours
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) localAuth(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND auth_type = ?", normalizeEmail(email), "local").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !utils.CheckPassword(password, user.Password) {
		return nil, response.NewUnauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, response.NewUnauthorized("account is disabled")
	}
	if utils.NeedsRehash(user.Password) {
		if hashed, err := utils.HashPassword(password); err == nil {
			if err := s.db.Model(&user).UpdateColumn("password", hashed).Error; err != nil {
				logger.Warn().Err(err).Uint("user_id", user.ID).Msg("[Auth] failed to upgrade password hash")
			} else {
				user.Password = hashed
			}
		}
	}

	return &user, nil
}

// ldapAuth provisions directory users as admins on first login
func (s *AuthService) ldapAuth(username, password string) (*models.User, error) {
	if !s.ldapService.IsEnabled() {
		return nil, response.NewBadRequest("LDAP login is not enabled")
	}

	ldapUser, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		logger.Warn().Err(err).Str("username", username).Msg("[Auth] LDAP authentication failed")
		return nil, response.NewUnauthorized("invalid username or password")
	}

	email := normalizeEmail(ldapUser.Email)
	if email == "" {
		email = strings.ToLower(ldapUser.Username) + "@ldap.local"
	}
	firstName, lastName := splitDisplayName(ldapUser.DisplayName)

	var user models.User
	err = s.db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:      email,
			FirstName:  firstName,
			LastName:   lastName,
			Role:       models.RoleAdmin,
			AuthType:   "ldap",
			IsActive:   true,
			IsVerified: true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		LogInfo("auth", "ldap_provision", "provisioned LDAP admin "+email, &user.ID, "", "", nil)
	case err != nil:
		return nil, err
	case user.AuthType != "ldap":
		return nil, response.NewConflict("email belongs to a local account")
	}

	if !user.IsActive {
		return nil, response.NewUnauthorized("account is disabled")
	}

	if firstName != "" && (user.FirstName != firstName || user.LastName != lastName) {
		s.db.Model(&user).Updates(map[string]interface{}{"first_name": firstName, "last_name": lastName})
	}
	return &user, nil
}

func splitDisplayName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

// CreateAdminIfNotExists seeds a local admin on an empty install
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := utils.HashPassword(DefaultAdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:      DefaultAdminEmail,
		Password:   hashedPassword,
		FirstName:  "Administrator",
		Role:       models.RoleAdmin,
		AuthType:   "local",
		IsActive:   true,
		IsVerified: true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Warnf("[Auth] Created default admin %s, change the password after first login", DefaultAdminEmail)
	return nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService.IsEnabled()
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if user.AuthType != "local" {
		return response.NewBadRequest("LDAP users cannot change password here")
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewBadRequest("incorrect old password")
	}
	if len(req.NewPassword) < 8 {
		return response.NewBadRequest("password must be at least 8 characters")
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password", hashedPassword).Error
}
