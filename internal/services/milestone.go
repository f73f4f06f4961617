package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// Who may drive a milestone transition
const (
	milestoneByClient     = "client"
	milestoneByFreelancer = "freelancer"
	milestoneBySystem     = "system"
)

// milestoneTransitions maps from -> to -> allowed actors
var milestoneTransitions = map[string]map[string][]string{
	models.MilestoneStatusPending: {
		models.MilestoneStatusFunded:    {milestoneBySystem},
		models.MilestoneStatusCancelled: {milestoneByClient, milestoneBySystem},
	},
	models.MilestoneStatusFunded: {
		models.MilestoneStatusInProgress: {milestoneByFreelancer},
		models.MilestoneStatusCancelled:  {milestoneBySystem},
	},
	models.MilestoneStatusInProgress: {
		models.MilestoneStatusSubmitted: {milestoneByFreelancer},
	},
	models.MilestoneStatusSubmitted: {
		models.MilestoneStatusInProgress: {milestoneByClient},
		models.MilestoneStatusApproved:   {milestoneByClient},
	},
	models.MilestoneStatusApproved: {
		models.MilestoneStatusReleased: {milestoneBySystem},
	},
}

// CanTransitionMilestone reports whether from -> to exists for any actor
func CanTransitionMilestone(from, to string) bool {
	_, ok := milestoneTransitions[from][to]
	return ok
}

func checkMilestoneTransition(from, to, by string) error {
	allowed, ok := milestoneTransitions[from][to]
	if !ok {
		return response.NewConflict(fmt.Sprintf("milestone cannot move from %s to %s", from, to))
	}
	for _, a := range allowed {
		if a == by {
			return nil
		}
	}
	return response.NewForbidden(fmt.Sprintf("the %s cannot move a milestone to %s", by, to))
}

// transitionMilestone applies a checked transition guarded on the current status
func transitionMilestone(tx *gorm.DB, m *models.Milestone, to, by string, extra map[string]interface{}) error {
	if err := checkMilestoneTransition(m.Status, to, by); err != nil {
		return err
	}
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Milestone{}).Where("id = ? AND status = ?", m.ID, m.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewConflict("milestone was changed by another request")
	}
	m.Status = to
	return nil
}

type MilestoneService struct {
	db       *gorm.DB
	notifier *NotificationService
	payments *PaymentService
}

func NewMilestoneService(db *gorm.DB, notifier *NotificationService, payments *PaymentService) *MilestoneService {
	return &MilestoneService{db: db, notifier: notifier, payments: payments}
}

type CreateMilestoneRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount" binding:"required,gt=0,money"`
	DueDate     *time.Time `json:"due_date"`
	Position    *int       `json:"position"`
}

type UpdateMilestoneRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount" binding:"omitempty,gt=0,money"`
	DueDate     *time.Time `json:"due_date"`
	Position    *int       `json:"position"`
}

type MilestoneNoteRequest struct {
	Note string `json:"note"`
}

func milestoneLink(m *models.Milestone) string {
	return fmt.Sprintf("/projects/%d/milestones/%d", m.ProjectID, m.ID)
}

// committedAmount sums non-cancelled milestones, optionally skipping one
func committedAmount(tx *gorm.DB, projectID, excludeID uint) (float64, error) {
	var total float64
	query := tx.Model(&models.Milestone{}).
		Where("project_id = ? AND status <> ?", projectID, models.MilestoneStatusCancelled)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

func checkBudget(tx *gorm.DB, project *models.Project, excludeID uint, amount float64) error {
	committed, err := committedAmount(tx, project.ID, excludeID)
	if err != nil {
		return err
	}
	if utils.RoundMoney(committed+amount) > utils.RoundMoney(project.AgreedAmount) {
		return response.NewBadRequest(fmt.Sprintf(
			"milestones would total %.2f, above the agreed amount %.2f", committed+amount, project.AgreedAmount))
	}
	return nil
}

func (s *MilestoneService) Create(actor Actor, projectID uint, req *CreateMilestoneRequest) (*models.Milestone, error) {
	project, err := ownedProject(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusInProgress {
		return nil, response.NewConflict("milestones can only be added to in-progress projects")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, response.NewBadRequest("title is required")
	}
	if req.Amount <= 0 {
		return nil, response.NewBadRequest("amount must be greater than zero")
	}

	milestone := models.Milestone{
		ProjectID:   projectID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Amount:      utils.RoundMoney(req.Amount),
		DueDate:     req.DueDate,
		Status:      models.MilestoneStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkBudget(tx, project, 0, milestone.Amount); err != nil {
			return err
		}
		if req.Position != nil {
			milestone.Position = *req.Position
		} else {
			var maxPos int
			if err := tx.Model(&models.Milestone{}).Where("project_id = ?", projectID).
				Select("COALESCE(MAX(position), 0)").Scan(&maxPos).Error; err != nil {
				return err
			}
			milestone.Position = maxPos + 1
		}
		return tx.Create(&milestone).Error
	})
	if err != nil {
		return nil, err
	}

	if project.SelectedFreelancerID != nil {
		s.notifier.Notify(*project.SelectedFreelancerID, NotifyMilestoneCreated, "New milestone",
			fmt.Sprintf("Milestone \"%s\" (%.2f %s) was added to \"%s\".", milestone.Title, milestone.Amount, project.Currency, project.Title),
			milestoneLink(&milestone))
	}
	return &milestone, nil
}

// milestoneWithProject loads a milestone and its project
func (s *MilestoneService) milestoneWithProject(id uint) (*models.Milestone, *models.Project, error) {
	var m models.Milestone
	if err := s.db.First(&m, id).Error; err != nil {
		return nil, nil, notFoundOr(err, "milestone not found")
	}
	var p models.Project
	if err := s.db.First(&p, m.ProjectID).Error; err != nil {
		return nil, nil, notFoundOr(err, "project not found")
	}
	return &m, &p, nil
}

func (s *MilestoneService) Get(actor Actor, id uint) (*models.Milestone, error) {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !p.IsParty(actor.UserID) {
		return nil, response.NewNotFound("milestone not found")
	}
	return m, nil
}

func (s *MilestoneService) List(actor Actor, projectID uint) ([]models.Milestone, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	if !actor.IsAdmin() && !project.IsParty(actor.UserID) {
		return nil, response.NewForbidden("only the project parties can see milestones")
	}
	milestones := []models.Milestone{}
	if err := s.db.Where("project_id = ?", projectID).Order("position").Order("id").Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

func (s *MilestoneService) Update(actor Actor, id uint, req *UpdateMilestoneRequest) (*models.Milestone, error) {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can edit milestones")
	}
	if m.Status != models.MilestoneStatusPending {
		return nil, response.NewConflict("only pending milestones can be edited")
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, response.NewBadRequest("title is required")
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Amount != nil {
			amount := utils.RoundMoney(*req.Amount)
			if amount <= 0 {
				return response.NewBadRequest("amount must be greater than zero")
			}
			if amount != m.Amount {
				live, err := countLivePayments(tx, m.ID)
				if err != nil {
					return err
				}
				if live > 0 {
					return response.NewConflict("amount cannot change while the milestone has an open payment order")
				}
			}
			if err := checkBudget(tx, p, m.ID, amount); err != nil {
				return err
			}
			updates["amount"] = amount
		}
		if len(updates) == 0 {
			return nil
		}
		res := tx.Model(&models.Milestone{}).
			Where("id = ? AND status = ?", id, models.MilestoneStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("only pending milestones can be edited")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(actor, id)
}

func (s *MilestoneService) Delete(actor Actor, id uint) error {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return err
	}
	if p.ClientID != actor.UserID {
		return response.NewForbidden("only the project owner can delete milestones")
	}
	if m.Status != models.MilestoneStatusPending {
		return response.NewConflict("only pending milestones can be deleted")
	}

	live, err := countLivePayments(s.db, id)
	if err != nil {
		return err
	}
	if live > 0 {
		return response.NewConflict("milestone has an open payment order")
	}
	return s.db.Delete(m).Error
}

// countLivePayments counts payments of the milestone that are neither failed nor refunded
func countLivePayments(db *gorm.DB, milestoneID uint) (int64, error) {
	var live int64
	err := db.Model(&models.Payment{}).
		Where("milestone_id = ? AND status NOT IN ?", milestoneID, []string{models.PaymentStatusFailed, models.PaymentStatusRefunded}).
		Count(&live).Error
	return live, err
}

// Start is the freelancer beginning work on a funded milestone
func (s *MilestoneService) Start(actor Actor, id uint) (*models.Milestone, error) {
	return s.freelancerStep(actor, id, models.MilestoneStatusInProgress, nil, "started work on")
}

func (s *MilestoneService) Submit(actor Actor, id uint, req *MilestoneNoteRequest) (*models.Milestone, error) {
	extra := map[string]interface{}{
		"submission_note": strings.TrimSpace(req.Note),
		"submitted_at":    time.Now().UTC(),
	}
	return s.freelancerStep(actor, id, models.MilestoneStatusSubmitted, extra, "submitted")
}

func (s *MilestoneService) freelancerStep(actor Actor, id uint, to string, extra map[string]interface{}, verb string) (*models.Milestone, error) {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return nil, err
	}
	if p.SelectedFreelancerID == nil || *p.SelectedFreelancerID != actor.UserID {
		return nil, response.NewForbidden("only the hired freelancer can do this")
	}
	if err := transitionMilestone(s.db, m, to, milestoneByFreelancer, extra); err != nil {
		return nil, err
	}
	s.notifier.Notify(p.ClientID, NotifyMilestoneUpdated, "Milestone update",
		fmt.Sprintf("The freelancer %s \"%s\".", verb, m.Title), milestoneLink(m))
	return s.Get(actor, id)
}

// RequestRevision sends a submitted milestone back to the freelancer
func (s *MilestoneService) RequestRevision(actor Actor, id uint, req *MilestoneNoteRequest) (*models.Milestone, error) {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can request revisions")
	}
	if err := transitionMilestone(s.db, m, models.MilestoneStatusInProgress, milestoneByClient, nil); err != nil {
		return nil, err
	}
	if p.SelectedFreelancerID != nil {
		body := fmt.Sprintf("The client requested changes to \"%s\".", m.Title)
		if note := strings.TrimSpace(req.Note); note != "" {
			body += "\n\n" + note
		}
		s.notifier.Notify(*p.SelectedFreelancerID, NotifyMilestoneUpdated, "Revision requested", body, milestoneLink(m))
	}
	return s.Get(actor, id)
}

// Approve accepts the work and schedules the escrow release
func (s *MilestoneService) Approve(ctx context.Context, actor Actor, id uint) (*models.Milestone, error) {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can approve milestones")
	}

	now := time.Now().UTC()
	releaseAt := s.payments.ReleaseDate(now)
	var payment *models.Payment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := transitionMilestone(tx, m, models.MilestoneStatusApproved, milestoneByClient,
			map[string]interface{}{"approved_at": now}); err != nil {
			return err
		}
		var err error
		payment, err = s.payments.scheduleRelease(tx, m, releaseAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	if p.SelectedFreelancerID != nil {
		s.notifier.Notify(*p.SelectedFreelancerID, NotifyMilestoneUpdated, "Milestone approved",
			fmt.Sprintf("\"%s\" was approved. Funds are scheduled for release on %s.",
				m.Title, payment.ReleaseAt.Format("2006-01-02")), milestoneLink(m))
	}
	events.Emit(ctx, events.MilestoneApproved, map[string]interface{}{
		"milestone_id": m.ID,
		"project_id":   m.ProjectID,
		"payment_id":   payment.ID,
		"release_at":   payment.ReleaseAt,
	})
	return s.Get(actor, id)
}

// Cancel drops a pending milestone or refunds a funded one
func (s *MilestoneService) Cancel(ctx context.Context, actor Actor, id uint, reason string) (*models.Milestone, error) {
	m, p, err := s.milestoneWithProject(id)
	if err != nil {
		return nil, err
	}
	if p.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can cancel milestones")
	}

	switch m.Status {
	case models.MilestoneStatusPending:
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := transitionMilestone(tx, m, models.MilestoneStatusCancelled, milestoneByClient, nil); err != nil {
				return err
			}
			// an unpaid checkout order for this milestone can no longer be paid
			return tx.Model(&models.Payment{}).
				Where("milestone_id = ? AND status = ?", id, models.PaymentStatusCreated).
				Updates(map[string]interface{}{"status": models.PaymentStatusFailed, "failure_reason": "milestone cancelled"}).Error
		})
		if err != nil {
			return nil, err
		}
	case models.MilestoneStatusFunded:
		var payment models.Payment
		if err := s.db.Where("milestone_id = ? AND status = ?", id, models.PaymentStatusHeld).First(&payment).Error; err != nil {
			return nil, notFoundOr(err, "held payment not found")
		}
		if _, err := s.payments.Refund(ctx, actor, payment.ID, reason); err != nil {
			return nil, err
		}
	default:
		return nil, checkMilestoneTransition(m.Status, models.MilestoneStatusCancelled, milestoneByClient)
	}

	if p.SelectedFreelancerID != nil {
		s.notifier.Notify(*p.SelectedFreelancerID, NotifyMilestoneUpdated, "Milestone cancelled",
			fmt.Sprintf("The client cancelled \"%s\".", m.Title), milestoneLink(m))
	}
	return s.Get(actor, id)
}
