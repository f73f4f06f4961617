package services

import (
	"time"

	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/chat"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// Notification types
const (
	NotifyProposalReceived   = "proposal.received"
	NotifyProposalShortlist  = "proposal.shortlisted"
	NotifyProposalRejected   = "proposal.rejected"
	NotifyProposalAccepted   = "proposal.accepted"
	NotifyProposalWithdrawn  = "proposal.withdrawn"
	NotifyInvitationReceived = "invitation.received"
	NotifyInvitationAnswered = "invitation.answered"
	NotifyMilestoneCreated   = "milestone.created"
	NotifyMilestoneUpdated   = "milestone.updated"
	NotifyPaymentHeld        = "payment.held"
	NotifyPaymentReleased    = "payment.released"
	NotifyPaymentFailed      = "payment.release_failed"
	NotifyPaymentRefunded    = "payment.refunded"
	NotifyProjectCompleted   = "project.completed"
	NotifyProjectCancelled   = "project.cancelled"
	NotifyReviewReceived     = "review.received"
	NotifyTeamAdded          = "team.member_added"
	NotifyMessageReceived    = "message.received"
)

// SSE event type for live notifications
const sseEventNotification = "notification"

type NotificationService struct {
	db    *gorm.DB
	email *EmailService
}

// NewNotificationService creates the in-app notifier; email may be nil
func NewNotificationService(db *gorm.DB, email *EmailService) *NotificationService {
	return &NotificationService{db: db, email: email}
}

// Create persists a notification and pushes it to the user's live channels
func (s *NotificationService) Create(userID uint, nType, title, body, link string) (*models.Notification, error) {
	n := &models.Notification{
		UserID: userID,
		Type:   nType,
		Title:  title,
		Body:   body,
		Link:   link,
	}
	if err := s.db.Create(n).Error; err != nil {
		metrics.IncNotification("inapp", err)
		return nil, err
	}
	metrics.IncNotification("inapp", nil)

	PublishUserEvent(userID, sseEventNotification, n)
	chat.GetHub().SendToUser(userID, chat.NewEnvelope(chat.TypeNotify, 0, n))

	s.sendEmail(n)
	return n, nil
}

// Notify is Create for callers that have already committed their change
func (s *NotificationService) Notify(userID uint, nType, title, body, link string) {
	if s == nil || userID == 0 {
		return
	}
	if _, err := s.Create(userID, nType, title, body, link); err != nil {
		logger.Warn().Err(err).Uint("user_id", userID).Str("type", nType).Msg("[Notification] create failed")
	}
}

func (s *NotificationService) NotifyMany(userIDs []uint, nType, title, body, link string) {
	for _, id := range userIDs {
		s.Notify(id, nType, title, body, link)
	}
}

func (s *NotificationService) sendEmail(n *models.Notification) {
	if s.email == nil || !s.email.Enabled() {
		return
	}
	var user models.User
	if err := s.db.Select("id", "email", "first_name", "last_name").First(&user, n.UserID).Error; err != nil {
		return
	}
	subject, body := BuildNotificationEmail(n, user.FullName())
	if err := s.email.Enqueue(user.Email, subject, body); err != nil {
		logger.Warn().Err(err).Uint("notification_id", n.ID).Msg("[Notification] email enqueue failed")
	}
}

type NotificationListRequest struct {
	PageRequest
	UnreadOnly bool `form:"unread_only"`
}

func (s *NotificationService) List(userID uint, req *NotificationListRequest) (*PageResponse[models.Notification], error) {
	req.normalize(20)

	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if req.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Notification
	if err := query.Order("created_at DESC, id DESC").Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).Where("user_id = ? AND read_at IS NULL", userID).Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	var n models.Notification
	if err := s.db.First(&n, id).Error; err != nil {
		return notFoundOr(err, "notification not found")
	}
	if n.UserID != userID {
		return response.NewNotFound("notification not found")
	}
	if n.ReadAt != nil {
		return nil
	}
	return s.db.Model(&n).Update("read_at", time.Now().UTC()).Error
}

// MarkAllRead returns the number of notifications it touched
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	res := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}
