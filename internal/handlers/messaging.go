package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/middleware"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/internal/services/chat"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

type MessagingHandler struct {
	messagingService *services.MessagingService
	hub              *chat.Hub
}

func NewMessagingHandler(messagingService *services.MessagingService, hub *chat.Hub) *MessagingHandler {
	return &MessagingHandler{messagingService: messagingService, hub: hub}
}

// StartConversation opens or returns the conversation with another user
// POST /api/v1/conversations
func (h *MessagingHandler) StartConversation(c *gin.Context) {
	var req services.StartConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, err := h.messagingService.StartConversation(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, conv)
}

// GET /api/v1/conversations
func (h *MessagingHandler) ListConversations(c *gin.Context) {
	var req services.PageRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.messagingService.ListConversations(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/conversations/unread
func (h *MessagingHandler) UnreadTotal(c *gin.Context) {
	total, err := h.messagingService.UnreadTotal(actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"unread": total})
}

// ListMessages pages newest-first; pass ?before=<message id> for older pages
// GET /api/v1/conversations/:id/messages
func (h *MessagingHandler) ListMessages(c *gin.Context) {
	id, ok := paramID(c, "id", "conversation")
	if !ok {
		return
	}

	var req services.MessageListRequest
	if !bindQuery(c, &req) {
		return
	}

	messages, err := h.messagingService.ListMessages(actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messages)
}

// POST /api/v1/conversations/:id/messages
func (h *MessagingHandler) SendMessage(c *gin.Context) {
	id, ok := paramID(c, "id", "conversation")
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messagingService.SendMessage(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}

// POST /api/v1/conversations/:id/read
func (h *MessagingHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id", "conversation")
	if !ok {
		return
	}

	if err := h.messagingService.MarkRead(actorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "conversation marked as read", nil)
}

// ServeWS upgrades to the realtime chat socket; authenticated by QueryTokenAuth
// GET /ws?token=
func (h *MessagingHandler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		// The upgrader has already written the HTTP error
		logger.Warn().Err(err).Uint("user_id", userID).Msg("[Chat] websocket upgrade failed")
	}
}
