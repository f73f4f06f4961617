package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/chat"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

const defaultMaxMessageBytes = 4000

// MessagingService stores conversations and implements chat.Handler for the websocket relay
type MessagingService struct {
	db       *gorm.DB
	notifier *NotificationService
	hub      *chat.Hub
	maxBytes int
}

func NewMessagingService(db *gorm.DB, notifier *NotificationService, hub *chat.Hub, maxBytes int) *MessagingService {
	if maxBytes <= 0 {
		maxBytes = defaultMaxMessageBytes
	}
	return &MessagingService{db: db, notifier: notifier, hub: hub, maxBytes: maxBytes}
}

func pairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ensureConversation returns the conversation of the pair in the given project scope, creating it when missing
func ensureConversation(tx *gorm.DB, projectID *uint, a, b uint) (*models.Conversation, error) {
	var projectKey uint
	if projectID != nil {
		projectKey = *projectID
	}

	var conv models.Conversation
	err := tx.Where("pair_key = ? AND project_key = ?", pairKey(a, b), projectKey).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{
		ProjectID:  projectID,
		PairKey:    pairKey(a, b),
		ProjectKey: projectKey,
		Participants: []models.ConversationParticipant{
			{UserID: a},
			{UserID: b},
		},
	}
	if err := tx.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

type StartConversationRequest struct {
	UserID    uint  `json:"user_id" binding:"required"`
	ProjectID *uint `json:"project_id"`
}

func (s *MessagingService) StartConversation(actor Actor, req *StartConversationRequest) (*models.Conversation, error) {
	if req.UserID == actor.UserID {
		return nil, response.NewBadRequest("cannot start a conversation with yourself")
	}
	var other models.User
	if err := s.db.First(&other, req.UserID).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	if !other.IsActive {
		return nil, response.NewNotFound("user not found")
	}
	if req.ProjectID != nil {
		var project models.Project
		if err := s.db.First(&project, *req.ProjectID).Error; err != nil {
			return nil, notFoundOr(err, "project not found")
		}
		if project.ClientID != actor.UserID && project.ClientID != other.ID {
			return nil, response.NewForbidden("project conversations must include the project owner")
		}
	}

	var conv *models.Conversation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		conv, err = ensureConversation(tx, req.ProjectID, actor.UserID, other.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.getConversation(conv.ID)
}

func (s *MessagingService) getConversation(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Preload("Participants.User").First(&conv, id).Error; err != nil {
		return nil, notFoundOr(err, "conversation not found")
	}
	return &conv, nil
}

// participant loads the caller's membership; non-participants see 404
func (s *MessagingService) participant(conversationID, userID uint) (*models.ConversationParticipant, error) {
	var p models.ConversationParticipant
	err := s.db.Where(&models.ConversationParticipant{ConversationID: conversationID, UserID: userID}).First(&p).Error
	if err != nil {
		return nil, notFoundOr(err, "conversation not found")
	}
	return &p, nil
}

func (s *MessagingService) otherParticipants(conversationID, userID uint) []uint {
	var ids []uint
	s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		Pluck("user_id", &ids)
	return ids
}

// ConversationSummary is one row of the inbox
type ConversationSummary struct {
	models.Conversation
	LastMessage *models.Message `json:"last_message"`
	UnreadCount int64           `json:"unread_count"`
}

func (s *MessagingService) ListConversations(actor Actor, req *PageRequest) (*PageResponse[ConversationSummary], error) {
	req.normalize(20)

	mine := s.db.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", actor.UserID)
	query := s.db.Model(&models.Conversation{}).Where("id IN (?)", mine)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var convs []models.Conversation
	if err := query.Preload("Participants.User").
		Order("last_message_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&convs).Error; err != nil {
		return nil, err
	}

	items := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := ConversationSummary{Conversation: conv}

		var last models.Message
		if err := s.db.Where("conversation_id = ?", conv.ID).Order("id DESC").First(&last).Error; err == nil {
			summary.LastMessage = &last
		}
		for _, p := range conv.Participants {
			if p.UserID == actor.UserID {
				summary.UnreadCount = s.unreadIn(conv.ID, actor.UserID, p.LastReadAt)
			}
		}
		items = append(items, summary)
	}
	return newPage(*req, total, items), nil
}

func (s *MessagingService) unreadIn(conversationID, userID uint, lastRead *time.Time) int64 {
	query := s.db.Model(&models.Message{}).Where("conversation_id = ? AND sender_id <> ?", conversationID, userID)
	if lastRead != nil {
		query = query.Where("created_at > ?", *lastRead)
	}
	var count int64
	query.Count(&count)
	return count
}

func (s *MessagingService) UnreadTotal(actor Actor) (int64, error) {
	var total int64
	err := unreadMessages(s.db, actor.UserID, &total)
	return total, err
}

type MessageListRequest struct {
	Before uint `form:"before"`
	Limit  int  `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ListMessages pages newest first; Before is the id of the oldest message already shown
func (s *MessagingService) ListMessages(actor Actor, conversationID uint, req *MessageListRequest) ([]models.Message, error) {
	if _, err := s.participant(conversationID, actor.UserID); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	query := s.db.Where("conversation_id = ?", conversationID)
	if req.Before > 0 {
		query = query.Where("id < ?", req.Before)
	}
	messages := []models.Message{}
	if err := query.Preload("Attachment").Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

type SendMessageRequest struct {
	Content      string `json:"content"`
	AttachmentID *uint  `json:"attachment_id"`
}

func (s *MessagingService) SendMessage(ctx context.Context, actor Actor, conversationID uint, req *SendMessageRequest) (*models.Message, error) {
	if _, err := s.participant(conversationID, actor.UserID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.AttachmentID == nil {
		return nil, response.NewBadRequest("message must have content or an attachment")
	}
	if len(content) > s.maxBytes {
		return nil, response.NewBadRequest(fmt.Sprintf("message exceeds %d bytes", s.maxBytes))
	}
	if req.AttachmentID != nil {
		var upload models.Upload
		if err := s.db.First(&upload, *req.AttachmentID).Error; err != nil {
			return nil, notFoundOr(err, "attachment not found")
		}
		if upload.OwnerID != actor.UserID {
			return nil, response.NewForbidden("attachment belongs to another user")
		}
	}

	msg := models.Message{
		ConversationID: conversationID,
		SenderID:       actor.UserID,
		Content:        content,
		AttachmentID:   req.AttachmentID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", conversationID).
			Update("last_message_at", msg.CreatedAt).Error; err != nil {
			return err
		}
		return tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, actor.UserID).
			Update("last_read_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	if msg.AttachmentID != nil {
		s.db.Preload("Attachment").First(&msg, msg.ID)
	}

	recipients := s.otherParticipants(conversationID, actor.UserID)
	s.hub.SendToUsers(append(recipients, actor.UserID), chat.NewEnvelope(chat.TypeMessageNew, conversationID, msg))
	for _, id := range recipients {
		if !s.hub.IsOnline(id) {
			s.notifier.Notify(id, NotifyMessageReceived, "New message", previewText(content, 120),
				fmt.Sprintf("/messages/%d", conversationID))
		}
	}
	return &msg, nil
}

func previewText(s string, n int) string {
	if s == "" {
		return "Sent an attachment"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (s *MessagingService) MarkRead(actor Actor, conversationID uint) error {
	p, err := s.participant(conversationID, actor.UserID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.db.Model(p).Update("last_read_at", now).Error; err != nil {
		return err
	}
	s.hub.SendToUsers(s.otherParticipants(conversationID, actor.UserID),
		chat.NewEnvelope(chat.TypeMessageRead, conversationID, map[string]interface{}{
			"user_id": actor.UserID,
			"read_at": now,
		}))
	return nil
}

// HandleClientEvent serves frames sent over the websocket
func (s *MessagingService) HandleClientEvent(ctx context.Context, userID uint, env *chat.Envelope) error {
	actor := Actor{UserID: userID}
	switch env.Type {
	case chat.TypeMessageSend:
		var req SendMessageRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				return response.NewBadRequest("invalid message payload")
			}
		}
		_, err := s.SendMessage(ctx, actor, env.ConversationID, &req)
		return err
	case chat.TypeMessageRead:
		return s.MarkRead(actor, env.ConversationID)
	case chat.TypeTyping:
		if _, err := s.participant(env.ConversationID, userID); err != nil {
			return err
		}
		s.hub.SendToUsers(s.otherParticipants(env.ConversationID, userID),
			chat.NewEnvelope(chat.TypeTyping, env.ConversationID, map[string]uint{"user_id": userID}))
		return nil
	default:
		return response.NewBadRequest("unsupported event type: " + env.Type)
	}
}

// UserOnline tells the user's conversation partners about presence changes
func (s *MessagingService) UserOnline(userID uint, online bool) {
	var partners []uint
	mine := s.db.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", userID)
	if err := s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id IN (?) AND user_id <> ?", mine, userID).
		Distinct("user_id").Pluck("user_id", &partners).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", userID).Msg("[Messaging] presence lookup failed")
		return
	}
	if len(partners) == 0 {
		return
	}
	s.hub.SendToUsers(partners, chat.NewEnvelope(chat.TypePresence, 0, map[string]interface{}{
		"user_id": userID,
		"online":  online,
	}))
}
