package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewProjectService(db *gorm.DB, notifier *NotificationService) *ProjectService {
	return &ProjectService{db: db, notifier: notifier}
}

type CreateProjectRequest struct {
	Title           string     `json:"title" binding:"required,max=200"`
	Description     string     `json:"description" binding:"required"`
	Category        string     `json:"category" binding:"max=100"`
	SkillIDs        []uint     `json:"skill_ids"`
	BudgetType      string     `json:"budget_type" binding:"omitempty,oneof=fixed hourly"`
	BudgetMin       float64    `json:"budget_min" binding:"min=0,money"`
	BudgetMax       float64    `json:"budget_max" binding:"min=0,money"`
	Currency        string     `json:"currency" binding:"omitempty,len=3"`
	ExperienceLevel string     `json:"experience_level" binding:"omitempty,oneof=entry intermediate expert"`
	Deadline        *time.Time `json:"deadline"`
	DurationDays    int        `json:"duration_days" binding:"min=0"`
	Visibility      string     `json:"visibility" binding:"omitempty,oneof=public invite_only"`
	Publish         bool       `json:"publish"`
}

type UpdateProjectRequest struct {
	Title           *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description     *string    `json:"description" binding:"omitempty,min=1"`
	Category        *string    `json:"category" binding:"omitempty,max=100"`
	SkillIDs        []uint     `json:"skill_ids"`
	BudgetType      *string    `json:"budget_type" binding:"omitempty,oneof=fixed hourly"`
	BudgetMin       *float64   `json:"budget_min" binding:"omitempty,min=0,money"`
	BudgetMax       *float64   `json:"budget_max" binding:"omitempty,min=0,money"`
	ExperienceLevel *string    `json:"experience_level" binding:"omitempty,oneof=entry intermediate expert"`
	Deadline        *time.Time `json:"deadline"`
	DurationDays    *int       `json:"duration_days" binding:"omitempty,min=0"`
	Visibility      *string    `json:"visibility" binding:"omitempty,oneof=public invite_only"`
}

type ProjectListRequest struct {
	PageRequest
	Status          string   `form:"status"`
	Category        string   `form:"category"`
	Skill           string   `form:"skill"` // slug or id
	BudgetType      string   `form:"budget_type"`
	BudgetMin       *float64 `form:"budget_min"`
	BudgetMax       *float64 `form:"budget_max"`
	ExperienceLevel string   `form:"experience_level"`
	Search          string   `form:"search"`
}

var publicProjectStatuses = []string{
	models.ProjectStatusOpen,
	models.ProjectStatusInProgress,
	models.ProjectStatusCompleted,
}

func validateProjectFields(title, description string, budgetMin, budgetMax float64, deadline *time.Time) error {
	if strings.TrimSpace(title) == "" {
		return response.NewBadRequest("title is required")
	}
	if strings.TrimSpace(description) == "" {
		return response.NewBadRequest("description is required")
	}
	if budgetMin < 0 || budgetMax <= 0 {
		return response.NewBadRequest("budget must be greater than zero")
	}
	if budgetMin > budgetMax {
		return response.NewBadRequest("budget_min must not exceed budget_max")
	}
	if deadline != nil && !deadline.After(time.Now()) {
		return response.NewBadRequest("deadline must be in the future")
	}
	return nil
}

func (s *ProjectService) Create(ctx context.Context, actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	if !actor.IsClient() {
		return nil, response.NewForbidden("only clients can post projects")
	}
	if err := validateProjectFields(req.Title, req.Description, req.BudgetMin, req.BudgetMax, req.Deadline); err != nil {
		return nil, err
	}

	project := models.Project{
		ClientID:        actor.UserID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Category:        strings.TrimSpace(req.Category),
		BudgetType:      defaultString(req.BudgetType, models.BudgetFixed),
		BudgetMin:       req.BudgetMin,
		BudgetMax:       req.BudgetMax,
		Currency:        strings.ToUpper(defaultString(req.Currency, "INR")),
		ExperienceLevel: defaultString(req.ExperienceLevel, "intermediate"),
		Deadline:        req.Deadline,
		DurationDays:    req.DurationDays,
		Visibility:      defaultString(req.Visibility, models.VisibilityPublic),
		Status:          models.ProjectStatusDraft,
	}
	if req.Publish {
		project.Status = models.ProjectStatusOpen
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		skills, err := loadSkills(tx, req.SkillIDs)
		if err != nil {
			return err
		}
		project.Skills = skills
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return tx.Model(&models.ClientProfile{}).Where("user_id = ?", actor.UserID).
			UpdateColumn("projects_posted", gorm.Expr("projects_posted + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	if project.Status == models.ProjectStatusOpen {
		events.Emit(ctx, events.ProjectPublished, projectEventData(&project))
	}
	return s.load(project.ID)
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func projectEventData(p *models.Project) map[string]interface{} {
	return map[string]interface{}{
		"project_id": p.ID,
		"client_id":  p.ClientID,
		"title":      p.Title,
		"category":   p.Category,
		"budget_min": p.BudgetMin,
		"budget_max": p.BudgetMax,
		"currency":   p.Currency,
	}
}

func projectLink(id uint) string {
	return fmt.Sprintf("/projects/%d", id)
}

func (s *ProjectService) load(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Skills").Preload("Client").First(&project, id).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	return &project, nil
}

// ownedProject loads a project the actor must own
func ownedProject(db *gorm.DB, actor Actor, id uint) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, id).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	if project.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can do this")
	}
	return &project, nil
}

// canView applies the visibility rules of a single project
func (s *ProjectService) canView(actor Actor, p *models.Project) bool {
	if actor.IsAdmin() || p.IsParty(actor.UserID) {
		return true
	}
	public := false
	for _, st := range publicProjectStatuses {
		if p.Status == st {
			public = true
			break
		}
	}
	if !public {
		return false
	}
	if p.Visibility != models.VisibilityInviteOnly {
		return true
	}
	return isInvited(s.db, p.ID, actor.UserID)
}

func (s *ProjectService) Get(actor Actor, id uint) (*models.Project, error) {
	project, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, project) {
		return nil, response.NewNotFound("project not found")
	}
	return project, nil
}

func (s *ProjectService) Update(actor Actor, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := ownedProject(s.db, actor, id)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusDraft && project.Status != models.ProjectStatusOpen {
		return nil, response.NewConflict("project can only be edited while draft or open")
	}

	title, description := project.Title, project.Description
	budgetMin, budgetMax := project.BudgetMin, project.BudgetMax
	deadline := project.Deadline

	updates := make(map[string]interface{})
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		updates["title"] = title
	}
	if req.Description != nil {
		description = *req.Description
		updates["description"] = description
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.BudgetType != nil {
		updates["budget_type"] = *req.BudgetType
	}
	if req.BudgetMin != nil {
		budgetMin = *req.BudgetMin
		updates["budget_min"] = budgetMin
	}
	if req.BudgetMax != nil {
		budgetMax = *req.BudgetMax
		updates["budget_max"] = budgetMax
	}
	if req.ExperienceLevel != nil {
		updates["experience_level"] = *req.ExperienceLevel
	}
	if req.Deadline != nil {
		deadline = req.Deadline
		updates["deadline"] = *req.Deadline
	}
	if req.DurationDays != nil {
		updates["duration_days"] = *req.DurationDays
	}
	if req.Visibility != nil {
		updates["visibility"] = *req.Visibility
	}

	// an unchanged past deadline is not re-validated
	checkDeadline := deadline
	if req.Deadline == nil {
		checkDeadline = nil
	}
	if err := validateProjectFields(title, description, budgetMin, budgetMax, checkDeadline); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(project).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.SkillIDs != nil {
			skills, err := loadSkills(tx, req.SkillIDs)
			if err != nil {
				return err
			}
			return tx.Model(project).Association("Skills").Replace(skills)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(id)
}

func (s *ProjectService) Publish(ctx context.Context, actor Actor, id uint) (*models.Project, error) {
	project, err := ownedProject(s.db, actor, id)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusDraft {
		return nil, response.NewConflict("only draft projects can be published")
	}
	if project.Deadline != nil && !project.Deadline.After(time.Now()) {
		return nil, response.NewBadRequest("deadline must be in the future")
	}

	res := s.db.Model(&models.Project{}).
		Where("id = ? AND status = ?", id, models.ProjectStatusDraft).
		Update("status", models.ProjectStatusOpen)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, response.NewConflict("only draft projects can be published")
	}

	project.Status = models.ProjectStatusOpen
	events.Emit(ctx, events.ProjectPublished, projectEventData(project))
	return s.load(id)
}

// Cancel closes a project that has not started; open proposals are rejected and invitations expired
func (s *ProjectService) Cancel(actor Actor, id uint) (*models.Project, error) {
	project, err := ownedProject(s.db, actor, id)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusDraft && project.Status != models.ProjectStatusOpen {
		return nil, response.NewConflict("only draft or open projects can be cancelled")
	}

	var notified []uint
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status IN ?", id, []string{models.ProjectStatusDraft, models.ProjectStatusOpen}).
			Update("status", models.ProjectStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("only draft or open projects can be cancelled")
		}

		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND status IN ?", id, openProposalStatuses).
			Pluck("freelancer_id", &notified).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND status IN ?", id, openProposalStatuses).
			Update("status", models.ProposalStatusRejected).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProjectInvitation{}).
			Where("project_id = ? AND status = ?", id, models.InvitationStatusPending).
			Update("status", models.InvitationStatusExpired).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyMany(notified, NotifyProjectCancelled,
		"Project cancelled",
		fmt.Sprintf("The client cancelled \"%s\"; your proposal was closed.", project.Title),
		projectLink(id))
	return s.load(id)
}

// Delete soft-deletes a draft
func (s *ProjectService) Delete(actor Actor, id uint) error {
	project, err := ownedProject(s.db, actor, id)
	if err != nil {
		return err
	}
	if project.Status != models.ProjectStatusDraft {
		return response.NewConflict("only draft projects can be deleted")
	}
	return s.db.Delete(project).Error
}

// Complete closes an in-progress project whose escrow has been settled
func (s *ProjectService) Complete(actor Actor, id uint) (*models.Project, error) {
	project, err := ownedProject(s.db, actor, id)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusInProgress {
		return nil, response.NewConflict("only in-progress projects can be completed")
	}

	var active int64
	if err := s.db.Model(&models.Milestone{}).
		Where("project_id = ? AND status IN ?", id, activeMilestoneStatuses).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, response.NewConflict("project has milestones with unreleased funds")
	}

	var completed bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		completed, err = completeProject(tx, project)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, response.NewConflict("only in-progress projects can be completed")
	}

	notifyProjectCompleted(s.notifier, project)
	return s.load(id)
}

var activeMilestoneStatuses = []string{
	models.MilestoneStatusFunded,
	models.MilestoneStatusInProgress,
	models.MilestoneStatusSubmitted,
	models.MilestoneStatusApproved,
}

// completeProject moves an in_progress project to completed and credits the freelancer
func completeProject(tx *gorm.DB, project *models.Project) (bool, error) {
	now := time.Now().UTC()
	res := tx.Model(&models.Project{}).
		Where("id = ? AND status = ?", project.ID, models.ProjectStatusInProgress).
		Updates(map[string]interface{}{"status": models.ProjectStatusCompleted, "completed_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	project.Status = models.ProjectStatusCompleted
	project.CompletedAt = &now

	if project.SelectedFreelancerID != nil {
		if err := tx.Model(&models.FreelancerProfile{}).
			Where("user_id = ?", *project.SelectedFreelancerID).
			UpdateColumn("completed_projects", gorm.Expr("completed_projects + 1")).Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

// autoCompleteProject completes the project once no milestone is pending or holding funds
func autoCompleteProject(tx *gorm.DB, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := tx.First(&project, projectID).Error; err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusInProgress {
		return nil, nil
	}

	var remaining int64
	statuses := append([]string{models.MilestoneStatusPending}, activeMilestoneStatuses...)
	if err := tx.Model(&models.Milestone{}).
		Where("project_id = ? AND status IN ?", projectID, statuses).
		Count(&remaining).Error; err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, nil
	}

	completed, err := completeProject(tx, &project)
	if err != nil || !completed {
		return nil, err
	}
	return &project, nil
}

func notifyProjectCompleted(n *NotificationService, p *models.Project) {
	body := fmt.Sprintf("\"%s\" is complete. You can now leave a review.", p.Title)
	n.Notify(p.ClientID, NotifyProjectCompleted, "Project completed", body, projectLink(p.ID))
	if p.SelectedFreelancerID != nil {
		n.Notify(*p.SelectedFreelancerID, NotifyProjectCompleted, "Project completed", body, projectLink(p.ID))
	}
}

func applyProjectFilters(db, query *gorm.DB, req *ProjectListRequest) *gorm.DB {
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.BudgetType != "" {
		query = query.Where("budget_type = ?", req.BudgetType)
	}
	if req.ExperienceLevel != "" {
		query = query.Where("experience_level = ?", req.ExperienceLevel)
	}
	if req.BudgetMin != nil {
		query = query.Where("budget_max >= ?", *req.BudgetMin)
	}
	if req.BudgetMax != nil {
		query = query.Where("budget_min <= ?", *req.BudgetMax)
	}
	if req.Search != "" {
		p := likePattern(req.Search)
		query = query.Where("title LIKE ? OR description LIKE ?", p, p)
	}
	if req.Skill != "" {
		skillQuery := db.Model(&models.Skill{}).Select("id")
		if id, err := strconv.ParseUint(req.Skill, 10, 64); err == nil {
			skillQuery = skillQuery.Where("id = ?", id)
		} else {
			skillQuery = skillQuery.Where("slug = ?", req.Skill)
		}
		query = query.Where("id IN (?)",
			db.Table("project_skills").Select("project_id").Where("skill_id IN (?)", skillQuery))
	}
	return query
}

// List is the marketplace search; non-admins only see public listings and invite-only projects they were invited to
func (s *ProjectService) List(actor Actor, req *ProjectListRequest) (*PageResponse[models.Project], error) {
	req.normalize(20)

	query := s.db.Model(&models.Project{})
	if !actor.IsAdmin() {
		query = query.Where("status IN ?", publicProjectStatuses)
		invited := s.db.Model(&models.ProjectInvitation{}).Select("project_id").
			Where("freelancer_id = ? AND status IN ?", actor.UserID,
				[]string{models.InvitationStatusPending, models.InvitationStatusAccepted})
		query = query.Where("visibility = ? OR id IN (?) OR client_id = ?", models.VisibilityPublic, invited, actor.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	query = applyProjectFilters(s.db, query, req)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Project
	if err := query.Preload("Skills").Preload("Client").
		Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}

// ListMine returns owned projects for clients and hired-on projects for freelancers
func (s *ProjectService) ListMine(actor Actor, req *ProjectListRequest) (*PageResponse[models.Project], error) {
	req.normalize(20)

	query := s.db.Model(&models.Project{})
	if actor.IsFreelancer() {
		query = query.Where("selected_freelancer_id = ?", actor.UserID)
	} else {
		query = query.Where("client_id = ?", actor.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	query = applyProjectFilters(s.db, query, req)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Project
	if err := query.Preload("Skills").Preload("SelectedFreelancer").
		Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}
