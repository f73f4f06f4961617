package services

import (
	"strconv"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// PublicProfile is what other users see on a profile page
type PublicProfile struct {
	User       *models.User              `json:"user"`
	Freelancer *models.FreelancerProfile `json:"freelancer_profile,omitempty"`
	Client     *models.ClientProfile     `json:"client_profile,omitempty"`
	Rating     float64                   `json:"rating"`
	Reviews    int                       `json:"review_count"`
}

func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

func (s *UserService) GetPublicProfile(id uint) (*PublicProfile, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, response.NewNotFound("user not found")
	}

	profile := &PublicProfile{User: user}
	switch user.Role {
	case models.RoleFreelancer:
		var fp models.FreelancerProfile
		if err := s.db.Preload("Skills").Where(&models.FreelancerProfile{UserID: id}).First(&fp).Error; err == nil {
			profile.Freelancer = &fp
			profile.Rating = fp.Rating
			profile.Reviews = fp.ReviewCount
		}
	case models.RoleClient:
		var cp models.ClientProfile
		if err := s.db.Where(&models.ClientProfile{UserID: id}).First(&cp).Error; err == nil {
			profile.Client = &cp
			profile.Rating = cp.Rating
			profile.Reviews = cp.ReviewCount
		}
	}
	return profile, nil
}

type UpdateMeRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Avatar    *string `json:"avatar" binding:"omitempty,max=500"`
	Country   *string `json:"country" binding:"omitempty,len=2"`
}

func (s *UserService) UpdateMe(userID uint, req *UpdateMeRequest) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if req.Country != nil {
		updates["country"] = strings.ToUpper(*req.Country)
	}
	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(userID)
}

// GetFreelancerProfile returns the caller's profile, creating it for accounts that predate it
func (s *UserService) GetFreelancerProfile(userID uint) (*models.FreelancerProfile, error) {
	var fp models.FreelancerProfile
	err := s.db.Where(&models.FreelancerProfile{UserID: userID}).
		Attrs(models.FreelancerProfile{Availability: models.AvailabilityAvailable}).
		FirstOrCreate(&fp).Error
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&fp).Association("Skills").Find(&fp.Skills); err != nil {
		return nil, err
	}
	return &fp, nil
}

type UpdateFreelancerProfileRequest struct {
	Title           *string  `json:"title" binding:"omitempty,max=200"`
	Bio             *string  `json:"bio"`
	HourlyRate      *float64 `json:"hourly_rate" binding:"omitempty,min=0"`
	ExperienceYears *int     `json:"experience_years" binding:"omitempty,min=0,max=70"`
	Availability    *string  `json:"availability" binding:"omitempty,oneof=available busy unavailable"`
	Languages       *string  `json:"languages" binding:"omitempty,max=255"`
	PortfolioURL    *string  `json:"portfolio_url" binding:"omitempty,max=500"`
	SkillIDs        []uint   `json:"skill_ids"`
}

func (s *UserService) UpdateFreelancerProfile(userID uint, req *UpdateFreelancerProfileRequest) (*models.FreelancerProfile, error) {
	fp, err := s.GetFreelancerProfile(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return nil, response.NewBadRequest("hourly_rate must not be negative")
		}
		updates["hourly_rate"] = *req.HourlyRate
	}
	if req.ExperienceYears != nil {
		updates["experience_years"] = *req.ExperienceYears
	}
	if req.Availability != nil {
		switch *req.Availability {
		case models.AvailabilityAvailable, models.AvailabilityBusy, models.AvailabilityUnavailable:
			updates["availability"] = *req.Availability
		default:
			return nil, response.NewBadRequest("invalid availability")
		}
	}
	if req.Languages != nil {
		updates["languages"] = *req.Languages
	}
	if req.PortfolioURL != nil {
		updates["portfolio_url"] = *req.PortfolioURL
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(fp).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.SkillIDs != nil {
			return replaceProfileSkills(tx, fp, req.SkillIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetFreelancerProfile(userID)
}

// SetSkills replaces the freelancer's skill list
func (s *UserService) SetSkills(userID uint, skillIDs []uint) (*models.FreelancerProfile, error) {
	fp, err := s.GetFreelancerProfile(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return replaceProfileSkills(tx, fp, skillIDs)
	}); err != nil {
		return nil, err
	}
	return s.GetFreelancerProfile(userID)
}

func replaceProfileSkills(tx *gorm.DB, fp *models.FreelancerProfile, skillIDs []uint) error {
	skills, err := loadSkills(tx, skillIDs)
	if err != nil {
		return err
	}
	return tx.Model(fp).Association("Skills").Replace(skills)
}

func (s *UserService) GetClientProfile(userID uint) (*models.ClientProfile, error) {
	var cp models.ClientProfile
	if err := s.db.Where(&models.ClientProfile{UserID: userID}).FirstOrCreate(&cp).Error; err != nil {
		return nil, err
	}
	return &cp, nil
}

type UpdateClientProfileRequest struct {
	CompanyName *string `json:"company_name" binding:"omitempty,max=200"`
	Industry    *string `json:"industry" binding:"omitempty,max=100"`
	Website     *string `json:"website" binding:"omitempty,max=500"`
	Description *string `json:"description"`
}

func (s *UserService) UpdateClientProfile(userID uint, req *UpdateClientProfileRequest) (*models.ClientProfile, error) {
	cp, err := s.GetClientProfile(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*req.CompanyName)
	}
	if req.Industry != nil {
		updates["industry"] = *req.Industry
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := s.db.Model(cp).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetClientProfile(userID)
}

type FreelancerSearchRequest struct {
	PageRequest
	Skill        string   `form:"skill"` // slug or id
	MinRate      *float64 `form:"min_rate"`
	MaxRate      *float64 `form:"max_rate"`
	Availability string   `form:"availability"`
	MinRating    *float64 `form:"min_rating"`
	Search       string   `form:"search"`
	Sort         string   `form:"sort" binding:"omitempty,oneof=rating rate recent"`
}

// ListFreelancers is the public freelancer directory
func (s *UserService) ListFreelancers(req *FreelancerSearchRequest) (*PageResponse[models.FreelancerProfile], error) {
	req.normalize(20)

	activeUsers := s.db.Model(&models.User{}).Select("id").
		Where("role = ? AND is_active = ?", models.RoleFreelancer, true)
	query := s.db.Model(&models.FreelancerProfile{}).Where("user_id IN (?)", activeUsers)

	if req.Skill != "" {
		skillQuery := s.db.Model(&models.Skill{}).Select("id")
		if id, err := strconv.ParseUint(req.Skill, 10, 64); err == nil {
			skillQuery = skillQuery.Where("id = ?", id)
		} else {
			skillQuery = skillQuery.Where("slug = ?", req.Skill)
		}
		query = query.Where("id IN (?)",
			s.db.Table("freelancer_skills").Select("freelancer_profile_id").Where("skill_id IN (?)", skillQuery))
	}
	if req.MinRate != nil {
		query = query.Where("hourly_rate >= ?", *req.MinRate)
	}
	if req.MaxRate != nil {
		query = query.Where("hourly_rate <= ?", *req.MaxRate)
	}
	if req.Availability != "" {
		query = query.Where("availability = ?", req.Availability)
	}
	if req.MinRating != nil {
		query = query.Where("rating >= ?", *req.MinRating)
	}
	if req.Search != "" {
		p := likePattern(req.Search)
		named := s.db.Model(&models.User{}).Select("id").Where("first_name LIKE ? OR last_name LIKE ?", p, p)
		query = query.Where("title LIKE ? OR bio LIKE ? OR user_id IN (?)", p, p, named)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	switch req.Sort {
	case "rate":
		query = query.Order("hourly_rate ASC")
	case "recent":
		query = query.Order("updated_at DESC")
	default:
		query = query.Order("rating DESC").Order("review_count DESC")
	}

	var items []models.FreelancerProfile
	if err := query.Order("id").Preload("User").Preload("Skills").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}

type UserListRequest struct {
	PageRequest
	Search   string `form:"search"`
	Role     string `form:"role"`
	IsActive *bool  `form:"is_active"`
}

// List is the admin user listing
func (s *UserService) List(req *UserListRequest) (*PageResponse[models.User], error) {
	req.normalize(20)

	query := s.db.Model(&models.User{})
	if req.Search != "" {
		p := likePattern(req.Search)
		query = query.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", p, p, p)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var users []models.User
	if err := query.Order("created_at DESC").Offset(req.offset()).Limit(req.PageSize).Find(&users).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, users), nil
}

type AdminUpdateUserRequest struct {
	Role     *string `json:"role" binding:"omitempty,oneof=client freelancer admin"`
	IsActive *bool   `json:"is_active"`
}

func (s *UserService) AdminUpdate(actorID, id uint, req *AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if actorID == id && ((req.IsActive != nil && !*req.IsActive) || (req.Role != nil && *req.Role != models.RoleAdmin)) {
		return nil, response.NewBadRequest("cannot demote or disable your own account")
	}

	updates := make(map[string]interface{})
	if req.Role != nil {
		switch *req.Role {
		case models.RoleClient, models.RoleFreelancer, models.RoleAdmin:
			updates["role"] = *req.Role
		default:
			return nil, response.NewBadRequest("invalid role")
		}
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(user).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.IsActive != nil && !*req.IsActive {
			if err := tx.Model(&models.RefreshToken{}).
				Where("user_id = ? AND revoked_at IS NULL", id).
				Update("revoked_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
				return err
			}
		}
		if req.Role != nil {
			return ensureProfile(tx, id, *req.Role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// PromoteByEmail makes the account an admin, used by the operator CLI
func (s *UserService) PromoteByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	if err := s.db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
		return nil, err
	}
	user.Role = models.RoleAdmin
	return &user, nil
}

func ensureProfile(tx *gorm.DB, userID uint, role string) error {
	switch role {
	case models.RoleFreelancer:
		return tx.Where(&models.FreelancerProfile{UserID: userID}).
			Attrs(models.FreelancerProfile{Availability: models.AvailabilityAvailable}).
			FirstOrCreate(&models.FreelancerProfile{}).Error
	case models.RoleClient:
		return tx.Where(&models.ClientProfile{UserID: userID}).FirstOrCreate(&models.ClientProfile{}).Error
	}
	return nil
}

func (s *UserService) Delete(actorID, id uint) error {
	if actorID == id {
		return response.NewBadRequest("cannot delete your own account")
	}
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", id).
			Update("revoked_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}
