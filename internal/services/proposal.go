package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

var openProposalStatuses = []string{models.ProposalStatusPending, models.ProposalStatusShortlisted}

type ProposalService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewProposalService(db *gorm.DB, notifier *NotificationService) *ProposalService {
	return &ProposalService{db: db, notifier: notifier}
}

type SubmitProposalRequest struct {
	CoverLetter  string  `json:"cover_letter" binding:"required"`
	Amount       float64 `json:"amount" binding:"required,gt=0,money"`
	DurationDays int     `json:"duration_days" binding:"min=0"`
	TeamID       *uint   `json:"team_id"`
}

type UpdateProposalRequest struct {
	CoverLetter  *string  `json:"cover_letter" binding:"omitempty,min=1"`
	Amount       *float64 `json:"amount" binding:"omitempty,gt=0,money"`
	DurationDays *int     `json:"duration_days" binding:"omitempty,min=0"`
}

type ProposalListRequest struct {
	PageRequest
	Status string `form:"status"`
}

func proposalLink(p *models.Proposal) string {
	return fmt.Sprintf("/projects/%d/proposals/%d", p.ProjectID, p.ID)
}

func (s *ProposalService) Submit(ctx context.Context, actor Actor, projectID uint, req *SubmitProposalRequest) (*models.Proposal, error) {
	if !actor.IsFreelancer() {
		return nil, response.NewForbidden("only freelancers can submit proposals")
	}
	if strings.TrimSpace(req.CoverLetter) == "" {
		return nil, response.NewBadRequest("cover_letter is required")
	}
	if req.Amount <= 0 {
		return nil, response.NewBadRequest("amount must be greater than zero")
	}

	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	if project.ClientID == actor.UserID {
		return nil, response.NewForbidden("cannot bid on your own project")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, response.NewConflict("project is not accepting proposals")
	}
	if project.Visibility == models.VisibilityInviteOnly && !hasAcceptedInvitation(s.db, projectID, actor.UserID) {
		return nil, response.NewForbidden("this project is invite-only")
	}
	if req.TeamID != nil {
		role, err := teamRole(s.db, *req.TeamID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if role != models.TeamRoleOwner && role != models.TeamRoleAdmin {
			return nil, response.NewForbidden("only team owners or admins can bid for a team")
		}
	}

	proposal := models.Proposal{
		ProjectID:    projectID,
		FreelancerID: actor.UserID,
		TeamID:       req.TeamID,
		CoverLetter:  req.CoverLetter,
		Amount:       req.Amount,
		DurationDays: req.DurationDays,
		Status:       models.ProposalStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND freelancer_id = ?", projectID, actor.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("you already submitted a proposal for this project")
		}
		if err := tx.Create(&proposal).Error; err != nil {
			if isDuplicateKey(err) {
				return response.NewConflict("you already submitted a proposal for this project")
			}
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", projectID).
			UpdateColumn("proposal_count", gorm.Expr("proposal_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(project.ClientID, NotifyProposalReceived,
		"New proposal",
		fmt.Sprintf("You received a proposal of %.2f %s on \"%s\".", proposal.Amount, project.Currency, project.Title),
		proposalLink(&proposal))
	events.Emit(ctx, events.ProposalSubmitted, map[string]interface{}{
		"proposal_id":   proposal.ID,
		"project_id":    projectID,
		"freelancer_id": actor.UserID,
		"amount":        proposal.Amount,
	})
	return s.load(proposal.ID)
}

func (s *ProposalService) load(id uint) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := s.db.Preload("Freelancer").Preload("Project").First(&proposal, id).Error; err != nil {
		return nil, notFoundOr(err, "proposal not found")
	}
	return &proposal, nil
}

// Get is visible to the author, the project owner and admins
func (s *ProposalService) Get(actor Actor, id uint) (*models.Proposal, error) {
	proposal, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || proposal.FreelancerID == actor.UserID {
		return proposal, nil
	}
	if proposal.Project != nil && proposal.Project.ClientID == actor.UserID {
		return proposal, nil
	}
	return nil, response.NewNotFound("proposal not found")
}

func (s *ProposalService) authored(actor Actor, id uint) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := s.db.First(&proposal, id).Error; err != nil {
		return nil, notFoundOr(err, "proposal not found")
	}
	if proposal.FreelancerID != actor.UserID {
		return nil, response.NewForbidden("only the author can change this proposal")
	}
	return &proposal, nil
}

func (s *ProposalService) Update(actor Actor, id uint, req *UpdateProposalRequest) (*models.Proposal, error) {
	proposal, err := s.authored(actor, id)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, response.NewConflict("only pending proposals can be edited")
	}

	updates := make(map[string]interface{})
	if req.CoverLetter != nil {
		if strings.TrimSpace(*req.CoverLetter) == "" {
			return nil, response.NewBadRequest("cover_letter is required")
		}
		updates["cover_letter"] = *req.CoverLetter
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, response.NewBadRequest("amount must be greater than zero")
		}
		updates["amount"] = *req.Amount
	}
	if req.DurationDays != nil {
		updates["duration_days"] = *req.DurationDays
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.Proposal{}).
			Where("id = ? AND status = ?", id, models.ProposalStatusPending).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, response.NewConflict("only pending proposals can be edited")
		}
	}
	return s.load(id)
}

func (s *ProposalService) Withdraw(actor Actor, id uint) (*models.Proposal, error) {
	proposal, err := s.authored(actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.moveOpenProposal(id, models.ProposalStatusWithdrawn); err != nil {
		return nil, err
	}

	var project models.Project
	if err := s.db.First(&project, proposal.ProjectID).Error; err == nil {
		s.notifier.Notify(project.ClientID, NotifyProposalWithdrawn, "Proposal withdrawn",
			fmt.Sprintf("A freelancer withdrew their proposal on \"%s\".", project.Title), projectLink(project.ID))
	}
	return s.load(id)
}

// moveOpenProposal changes status only if the proposal is still pending or shortlisted
func (s *ProposalService) moveOpenProposal(id uint, status string) error {
	res := s.db.Model(&models.Proposal{}).
		Where("id = ? AND status IN ?", id, openProposalStatuses).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewConflict("proposal is no longer open")
	}
	return nil
}

// ownerProposal loads a proposal on a project the actor owns
func (s *ProposalService) ownerProposal(actor Actor, id uint) (*models.Proposal, *models.Project, error) {
	var proposal models.Proposal
	if err := s.db.First(&proposal, id).Error; err != nil {
		return nil, nil, notFoundOr(err, "proposal not found")
	}
	project, err := ownedProject(s.db, actor, proposal.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return &proposal, project, nil
}

func (s *ProposalService) Shortlist(actor Actor, id uint) (*models.Proposal, error) {
	proposal, project, err := s.ownerProposal(actor, id)
	if err != nil {
		return nil, err
	}
	if proposal.Status == models.ProposalStatusShortlisted {
		return s.load(id)
	}
	if err := s.moveOpenProposal(id, models.ProposalStatusShortlisted); err != nil {
		return nil, err
	}
	s.notifier.Notify(proposal.FreelancerID, NotifyProposalShortlist, "You were shortlisted",
		fmt.Sprintf("Your proposal on \"%s\" was shortlisted.", project.Title), proposalLink(proposal))
	return s.load(id)
}

func (s *ProposalService) Reject(actor Actor, id uint) (*models.Proposal, error) {
	proposal, project, err := s.ownerProposal(actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.moveOpenProposal(id, models.ProposalStatusRejected); err != nil {
		return nil, err
	}
	s.notifier.Notify(proposal.FreelancerID, NotifyProposalRejected, "Proposal declined",
		fmt.Sprintf("Your proposal on \"%s\" was declined.", project.Title), proposalLink(proposal))
	return s.load(id)
}

// ListForProject is restricted to the project owner and admins
func (s *ProposalService) ListForProject(actor Actor, projectID uint, req *ProposalListRequest) (*PageResponse[models.Proposal], error) {
	if !actor.IsAdmin() {
		if _, err := ownedProject(s.db, actor, projectID); err != nil {
			return nil, err
		}
	}
	req.normalize(20)

	query := s.db.Model(&models.Proposal{}).Where("project_id = ?", projectID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Proposal
	if err := query.Preload("Freelancer").Order("created_at ASC").Order("id ASC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}

func (s *ProposalService) ListMine(actor Actor, req *ProposalListRequest) (*PageResponse[models.Proposal], error) {
	req.normalize(20)

	query := s.db.Model(&models.Proposal{}).Where("freelancer_id = ?", actor.UserID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Proposal
	if err := query.Preload("Project").Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}
