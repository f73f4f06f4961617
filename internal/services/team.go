package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

type TeamService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewTeamService(db *gorm.DB, notifier *NotificationService) *TeamService {
	return &TeamService{db: db, notifier: notifier}
}

type TeamRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=admin member"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

type TeamListRequest struct {
	PageRequest
	Search string `form:"search"`
	Mine   bool   `form:"mine"`
}

// teamRole returns the user's role in the team; non-members get 403
func teamRole(db *gorm.DB, teamID, userID uint) (string, error) {
	var team models.Team
	if err := db.Select("id").First(&team, teamID).Error; err != nil {
		return "", notFoundOr(err, "team not found")
	}
	var member models.TeamMember
	err := db.Where(&models.TeamMember{TeamID: teamID, UserID: userID}).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", response.NewForbidden("you are not a member of this team")
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *TeamService) Create(actor Actor, req *TeamRequest) (*models.Team, error) {
	if !actor.IsFreelancer() {
		return nil, response.NewForbidden("only freelancers can create teams")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("name is required")
	}

	team := models.Team{Name: name, Description: req.Description, OwnerID: actor.UserID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		return tx.Create(&models.TeamMember{TeamID: team.ID, UserID: actor.UserID, Role: models.TeamRoleOwner}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(team.ID)
}

func (s *TeamService) Get(id uint) (*models.Team, error) {
	var team models.Team
	err := s.db.Preload("Owner").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Members.User").
		First(&team, id).Error
	if err != nil {
		return nil, notFoundOr(err, "team not found")
	}
	return &team, nil
}

func (s *TeamService) Update(actor Actor, id uint, req *UpdateTeamRequest) (*models.Team, error) {
	if err := s.requireRole(id, actor.UserID, models.TeamRoleOwner); err != nil {
		return nil, err
	}
	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, response.NewBadRequest("name is required")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.Team{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(id)
}

func (s *TeamService) Delete(actor Actor, id uint) error {
	if err := s.requireRole(id, actor.UserID, models.TeamRoleOwner); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Team{}, id).Error
	})
}

func (s *TeamService) requireRole(teamID, userID uint, roles ...string) error {
	role, err := teamRole(s.db, teamID, userID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if role == r {
			return nil
		}
	}
	return response.NewForbidden("insufficient team role")
}

func (s *TeamService) AddMember(actor Actor, teamID uint, req *AddMemberRequest) (*models.Team, error) {
	actorRole, err := teamRole(s.db, teamID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.TeamRoleOwner && actorRole != models.TeamRoleAdmin {
		return nil, response.NewForbidden("only team owners or admins can add members")
	}

	role := req.Role
	if role == "" {
		role = models.TeamRoleMember
	}
	if role == models.TeamRoleAdmin && actorRole != models.TeamRoleOwner {
		return nil, response.NewForbidden("only the owner can add admins")
	}
	if role != models.TeamRoleAdmin && role != models.TeamRoleMember {
		return nil, response.NewBadRequest("invalid team role")
	}

	var user models.User
	if err := s.db.First(&user, req.UserID).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	if user.Role != models.RoleFreelancer || !user.IsActive {
		return nil, response.NewBadRequest("only active freelancers can join a team")
	}

	var count int64
	s.db.Model(&models.TeamMember{}).Where(&models.TeamMember{TeamID: teamID, UserID: user.ID}).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("user is already a member")
	}
	if err := s.db.Create(&models.TeamMember{TeamID: teamID, UserID: user.ID, Role: role}).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, response.NewConflict("user is already a member")
		}
		return nil, err
	}

	team, err := s.Get(teamID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(user.ID, NotifyTeamAdded, "Added to a team",
		fmt.Sprintf("You were added to the team \"%s\".", team.Name), fmt.Sprintf("/teams/%d", teamID))
	return team, nil
}

func (s *TeamService) ChangeRole(actor Actor, teamID, userID uint, req *ChangeRoleRequest) (*models.Team, error) {
	if err := s.requireRole(teamID, actor.UserID, models.TeamRoleOwner); err != nil {
		return nil, err
	}
	if req.Role != models.TeamRoleAdmin && req.Role != models.TeamRoleMember {
		return nil, response.NewBadRequest("invalid team role")
	}
	member, err := s.member(teamID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role == models.TeamRoleOwner {
		return nil, response.NewBadRequest("the owner's role cannot be changed")
	}
	if err := s.db.Model(member).Update("role", req.Role).Error; err != nil {
		return nil, err
	}
	return s.Get(teamID)
}

func (s *TeamService) member(teamID, userID uint) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := s.db.Where(&models.TeamMember{TeamID: teamID, UserID: userID}).First(&member).Error; err != nil {
		return nil, notFoundOr(err, "member not found")
	}
	return &member, nil
}

func (s *TeamService) RemoveMember(actor Actor, teamID, userID uint) (*models.Team, error) {
	actorRole, err := teamRole(s.db, teamID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.TeamRoleOwner && actorRole != models.TeamRoleAdmin {
		return nil, response.NewForbidden("only team owners or admins can remove members")
	}
	member, err := s.member(teamID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role == models.TeamRoleOwner {
		return nil, response.NewBadRequest("the owner cannot be removed")
	}
	if member.Role == models.TeamRoleAdmin && actorRole != models.TeamRoleOwner {
		return nil, response.NewForbidden("only the owner can remove admins")
	}
	if err := s.db.Delete(member).Error; err != nil {
		return nil, err
	}
	return s.Get(teamID)
}

func (s *TeamService) Leave(actor Actor, teamID uint) error {
	member, err := s.member(teamID, actor.UserID)
	if err != nil {
		return err
	}
	if member.Role == models.TeamRoleOwner {
		return response.NewBadRequest("the owner cannot leave; delete the team instead")
	}
	return s.db.Delete(member).Error
}

func (s *TeamService) List(actor Actor, req *TeamListRequest) (*PageResponse[models.Team], error) {
	req.normalize(20)

	query := s.db.Model(&models.Team{})
	if req.Mine {
		query = query.Where("id IN (?)", s.db.Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", actor.UserID))
	}
	if req.Search != "" {
		p := likePattern(req.Search)
		query = query.Where("name LIKE ? OR description LIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Team
	if err := query.Preload("Owner").Preload("Members").
		Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}
