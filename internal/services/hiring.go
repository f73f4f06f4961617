package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

const defaultInvitationDays = 7

type HiringService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewHiringService(db *gorm.DB, notifier *NotificationService) *HiringService {
	return &HiringService{db: db, notifier: notifier}
}

// HireResult is returned when a proposal is accepted
type HireResult struct {
	Project      *models.Project      `json:"project"`
	Proposal     *models.Proposal     `json:"proposal"`
	Conversation *models.Conversation `json:"conversation"`
}

// AcceptProposal hires the proposal's freelancer and closes every other open proposal in one transaction
func (s *HiringService) AcceptProposal(ctx context.Context, actor Actor, proposalID uint) (*HireResult, error) {
	var proposal models.Proposal
	if err := s.db.First(&proposal, proposalID).Error; err != nil {
		return nil, notFoundOr(err, "proposal not found")
	}
	project, err := ownedProject(s.db, actor, proposal.ProjectID)
	if err != nil {
		return nil, err
	}
	if !proposal.IsOpen() {
		return nil, response.NewConflict("proposal is no longer open")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, response.NewConflict("project is not open")
	}

	var rejected []uint
	var conversation *models.Conversation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Proposal{}).
			Where("id = ? AND status IN ?", proposal.ID, openProposalStatuses).
			Update("status", models.ProposalStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("proposal is no longer open")
		}

		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND id <> ? AND status IN ?", project.ID, proposal.ID, openProposalStatuses).
			Pluck("freelancer_id", &rejected).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Proposal{}).
			Where("project_id = ? AND id <> ? AND status IN ?", project.ID, proposal.ID, openProposalStatuses).
			Update("status", models.ProposalStatusRejected).Error; err != nil {
			return err
		}

		res = tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", project.ID, models.ProjectStatusOpen).
			Updates(map[string]interface{}{
				"status":                 models.ProjectStatusInProgress,
				"selected_freelancer_id": proposal.FreelancerID,
				"selected_proposal_id":   proposal.ID,
				"agreed_amount":          proposal.Amount,
				"team_id":                proposal.TeamID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("project is not open")
		}

		if err := tx.Model(&models.ProjectInvitation{}).
			Where("project_id = ? AND status = ?", project.ID, models.InvitationStatusPending).
			Update("status", models.InvitationStatusExpired).Error; err != nil {
			return err
		}

		var err error
		conversation, err = ensureConversation(tx, &project.ID, project.ClientID, proposal.FreelancerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(proposal.FreelancerID, NotifyProposalAccepted, "You're hired!",
		fmt.Sprintf("Your proposal on \"%s\" was accepted.", project.Title), projectLink(project.ID))
	s.notifier.NotifyMany(rejected, NotifyProposalRejected, "Proposal declined",
		fmt.Sprintf("The client hired someone else for \"%s\".", project.Title), projectLink(project.ID))
	events.Emit(ctx, events.ProposalAccepted, map[string]interface{}{
		"proposal_id":   proposal.ID,
		"project_id":    project.ID,
		"client_id":     project.ClientID,
		"freelancer_id": proposal.FreelancerID,
		"amount":        proposal.Amount,
		"team_id":       proposal.TeamID,
	})

	var hired models.Project
	if err := s.db.Preload("Skills").Preload("SelectedFreelancer").First(&hired, project.ID).Error; err != nil {
		return nil, err
	}
	var accepted models.Proposal
	if err := s.db.First(&accepted, proposal.ID).Error; err != nil {
		return nil, err
	}
	return &HireResult{Project: &hired, Proposal: &accepted, Conversation: conversation}, nil
}

type InviteRequest struct {
	FreelancerID  uint   `json:"freelancer_id" binding:"required"`
	Message       string `json:"message"`
	ExpiresInDays int    `json:"expires_in_days" binding:"omitempty,min=1,max=60"`
}

func invitationLink(inv *models.ProjectInvitation) string {
	return fmt.Sprintf("/invitations/%d", inv.ID)
}

// expireStale lazily marks pending invitations past their deadline
func expireStale(db *gorm.DB, where string, args ...interface{}) error {
	return db.Model(&models.ProjectInvitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, time.Now().UTC()).
		Where(where, args...).
		Update("status", models.InvitationStatusExpired).Error
}

func (s *HiringService) Invite(actor Actor, projectID uint, req *InviteRequest) (*models.ProjectInvitation, error) {
	project, err := ownedProject(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, response.NewConflict("only open projects accept invitations")
	}

	var freelancer models.User
	if err := s.db.First(&freelancer, req.FreelancerID).Error; err != nil {
		return nil, notFoundOr(err, "freelancer not found")
	}
	if freelancer.Role != models.RoleFreelancer || !freelancer.IsActive {
		return nil, response.NewBadRequest("invitations can only be sent to active freelancers")
	}

	days := req.ExpiresInDays
	if days <= 0 {
		days = defaultInvitationDays
	}
	invitation := models.ProjectInvitation{
		ProjectID:    projectID,
		ClientID:     actor.UserID,
		FreelancerID: freelancer.ID,
		Message:      strings.TrimSpace(req.Message),
		Status:       models.InvitationStatusPending,
		ExpiresAt:    time.Now().UTC().AddDate(0, 0, days),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := expireStale(tx, "project_id = ? AND freelancer_id = ?", projectID, freelancer.ID); err != nil {
			return err
		}
		var pending int64
		if err := tx.Model(&models.ProjectInvitation{}).
			Where("project_id = ? AND freelancer_id = ? AND status = ?", projectID, freelancer.ID, models.InvitationStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return response.NewConflict("freelancer already has a pending invitation to this project")
		}
		return tx.Create(&invitation).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(freelancer.ID, NotifyInvitationReceived, "Project invitation",
		fmt.Sprintf("You were invited to bid on \"%s\".", project.Title), invitationLink(&invitation))
	return s.getInvitation(invitation.ID)
}

func (s *HiringService) getInvitation(id uint) (*models.ProjectInvitation, error) {
	var inv models.ProjectInvitation
	if err := s.db.Preload("Project").Preload("Freelancer").First(&inv, id).Error; err != nil {
		return nil, notFoundOr(err, "invitation not found")
	}
	return &inv, nil
}

// Respond lets the invited freelancer accept or decline
func (s *HiringService) Respond(actor Actor, id uint, accept bool) (*models.ProjectInvitation, error) {
	inv, err := s.getInvitation(id)
	if err != nil {
		return nil, err
	}
	if inv.FreelancerID != actor.UserID {
		return nil, response.NewNotFound("invitation not found")
	}
	if inv.Expired(time.Now()) {
		s.db.Model(&models.ProjectInvitation{}).
			Where("id = ? AND status = ?", id, models.InvitationStatusPending).
			Update("status", models.InvitationStatusExpired)
		return nil, response.NewConflict("invitation has expired")
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, response.NewConflict("invitation is no longer pending")
	}
	if accept && (inv.Project == nil || inv.Project.Status != models.ProjectStatusOpen) {
		return nil, response.NewConflict("project is no longer open")
	}

	status := models.InvitationStatusDeclined
	verb := "declined"
	if accept {
		status = models.InvitationStatusAccepted
		verb = "accepted"
	}
	res := s.db.Model(&models.ProjectInvitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]interface{}{"status": status, "responded_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, response.NewConflict("invitation is no longer pending")
	}

	title := ""
	if inv.Project != nil {
		title = inv.Project.Title
	}
	s.notifier.Notify(inv.ClientID, NotifyInvitationAnswered, "Invitation "+verb,
		fmt.Sprintf("Your invitation for \"%s\" was %s.", title, verb), projectLink(inv.ProjectID))
	return s.getInvitation(id)
}

func (s *HiringService) CancelInvitation(actor Actor, id uint) (*models.ProjectInvitation, error) {
	inv, err := s.getInvitation(id)
	if err != nil {
		return nil, err
	}
	if inv.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the inviting client can cancel")
	}
	res := s.db.Model(&models.ProjectInvitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Update("status", models.InvitationStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, response.NewConflict("invitation is no longer pending")
	}
	return s.getInvitation(id)
}

type InvitationListRequest struct {
	PageRequest
	Status string `form:"status"`
}

func (s *HiringService) ListSent(actor Actor, req *InvitationListRequest) (*PageResponse[models.ProjectInvitation], error) {
	return s.listInvitations("client_id = ?", actor.UserID, req)
}

func (s *HiringService) ListReceived(actor Actor, req *InvitationListRequest) (*PageResponse[models.ProjectInvitation], error) {
	return s.listInvitations("freelancer_id = ?", actor.UserID, req)
}

func (s *HiringService) listInvitations(where string, userID uint, req *InvitationListRequest) (*PageResponse[models.ProjectInvitation], error) {
	req.normalize(20)
	if err := expireStale(s.db, where, userID); err != nil {
		return nil, err
	}

	query := s.db.Model(&models.ProjectInvitation{}).Where(where, userID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.ProjectInvitation
	if err := query.Preload("Project").Preload("Freelancer").
		Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}

// isInvited reports whether the freelancer holds a live invitation to the project
func isInvited(db *gorm.DB, projectID, freelancerID uint) bool {
	var count int64
	db.Model(&models.ProjectInvitation{}).
		Where("project_id = ? AND freelancer_id = ?", projectID, freelancerID).
		Where("status = ? OR (status = ? AND expires_at >= ?)",
			models.InvitationStatusAccepted, models.InvitationStatusPending, time.Now().UTC()).
		Count(&count)
	return count > 0
}

func hasAcceptedInvitation(db *gorm.DB, projectID, freelancerID uint) bool {
	var count int64
	db.Model(&models.ProjectInvitation{}).
		Where("project_id = ? AND freelancer_id = ? AND status = ?", projectID, freelancerID, models.InvitationStatusAccepted).
		Count(&count)
	return count > 0
}
