package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// AssistantService writes drafts for users with the LLM chain
type AssistantService struct {
	db      *gorm.DB
	ai      *AIService
	prompts *PromptService
}

func NewAssistantService(db *gorm.DB, ai *AIService) *AssistantService {
	return &AssistantService{db: db, ai: ai, prompts: NewPromptService(db)}
}

type ProposalDraftRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Notes     string `json:"notes" binding:"max=2000"`
}

type DescriptionRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=10000"`
	SkillIDs    []uint `json:"skill_ids"`
	Notes       string `json:"notes" binding:"max=2000"`
}

func describeSkills(skills []models.Skill) string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

func describeProject(p *models.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", p.Title)
	if p.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", p.Category)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&sb, "Skills: %s\n", describeSkills(p.Skills))
	}
	if p.BudgetMax > 0 {
		fmt.Fprintf(&sb, "Budget (%s): %.2f - %.2f %s\n", p.BudgetType, p.BudgetMin, p.BudgetMax, p.Currency)
	}
	if p.DurationDays > 0 {
		fmt.Fprintf(&sb, "Duration: %d days\n", p.DurationDays)
	}
	fmt.Fprintf(&sb, "Experience level: %s\n\n%s", p.ExperienceLevel, p.Description)
	return sb.String()
}

func describeFreelancer(u *models.User, p *models.FreelancerProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", u.FullName())
	if p.Title != "" {
		fmt.Fprintf(&sb, "Headline: %s\n", p.Title)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&sb, "Skills: %s\n", describeSkills(p.Skills))
	}
	fmt.Fprintf(&sb, "Experience: %d years, %d completed projects, rating %.1f\n", p.ExperienceYears, p.CompletedProjects, p.Rating)
	if p.Bio != "" {
		fmt.Fprintf(&sb, "\n%s", p.Bio)
	}
	return sb.String()
}

func (s *AssistantService) complete(ctx context.Context, actor Actor, projectID *uint, purpose string, vars map[string]string) (*Completion, error) {
	prompt := RenderPrompt(s.prompts.ForPurpose(purpose), vars)
	result, err := s.ai.Complete(ctx, &CompletionRequest{
		Feature:   purpose,
		UserID:    &actor.UserID,
		ProjectID: projectID,
		Prompt:    prompt,
	})
	if errors.Is(err, ErrNoLLM) {
		return nil, response.NewServerError("the writing assistant is not configured")
	}
	return result, err
}

// DraftProposal writes a cover letter for a freelancer from the project and their profile
func (s *AssistantService) DraftProposal(ctx context.Context, actor Actor, req *ProposalDraftRequest) (*Completion, error) {
	if !actor.IsFreelancer() {
		return nil, response.NewForbidden("only freelancers can draft proposals")
	}
	var project models.Project
	if err := s.db.Preload("Skills").First(&project, req.ProjectID).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, response.NewConflict("project is not accepting proposals")
	}

	var user models.User
	if err := s.db.First(&user, actor.UserID).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	var profile models.FreelancerProfile
	if err := s.db.Preload("Skills").Where(&models.FreelancerProfile{UserID: actor.UserID}).First(&profile).Error; err != nil {
		return nil, notFoundOr(err, "freelancer profile not found")
	}

	return s.complete(ctx, actor, &project.ID, PromptPurposeProposalDraft, map[string]string{
		"project": describeProject(&project),
		"profile": describeFreelancer(&user, &profile),
		"notes":   strings.TrimSpace(req.Notes),
	})
}

// DescribeProject turns a client's rough notes into a structured description
func (s *AssistantService) DescribeProject(ctx context.Context, actor Actor, req *DescriptionRequest) (*Completion, error) {
	if !actor.IsClient() {
		return nil, response.NewForbidden("only clients can draft project descriptions")
	}
	skills, err := loadSkills(s.db, req.SkillIDs)
	if err != nil {
		return nil, err
	}
	draft := models.Project{
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Skills:          skills,
		ExperienceLevel: "intermediate",
	}
	return s.complete(ctx, actor, nil, PromptPurposeProjectDescription, map[string]string{
		"project": describeProject(&draft),
		"notes":   strings.TrimSpace(req.Notes),
	})
}
