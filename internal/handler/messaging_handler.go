package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ascai/internal/service"
	"ascai/internal/ws"
)

// Browser clients send the bearer token during the handshake, so same-origin
// checks add nothing here; cross-site pages cannot read the token.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// MessagingHandler handles direct messaging endpoints and the websocket
// attachment point.
type MessagingHandler struct {
	messagingService service.MessagingService
	hub              *ws.Hub
}

// NewMessagingHandler creates a new messaging handler.
func NewMessagingHandler(messagingService service.MessagingService, hub *ws.Hub) *MessagingHandler {
	return &MessagingHandler{messagingService: messagingService, hub: hub}
}

// StartConversationRequest identifies the peer to talk to.
type StartConversationRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// SendMessageRequest represents a new message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// StartConversation godoc
// @Summary Start or resume a conversation with another member
// @Tags messaging
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StartConversationRequest true "Peer"
// @Success 200 {object} model.Conversation
// @Failure 400 {object} errors.ErrorResponse
// @Router /conversations [post]
func (h *MessagingHandler) StartConversation(c echo.Context) error {
	var req StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	conversation, err := h.messagingService.StartConversation(c.Request().Context(), currentUser(c), req.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, conversation)
}

// GetConversation godoc
// @Summary Get a conversation
// @Tags messaging
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.Conversation
// @Failure 403 {object} errors.ErrorResponse
// @Router /conversations/{id} [get]
func (h *MessagingHandler) GetConversation(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	conversation, err := h.messagingService.GetConversation(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, conversation)
}

// ListConversations godoc
// @Summary List the caller's conversations, most recent first
// @Tags messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} listResponse
// @Router /conversations [get]
func (h *MessagingHandler) ListConversations(c echo.Context) error {
	offset, limit := pagination(c)
	conversations, total, err := h.messagingService.ListConversations(c.Request().Context(), currentUser(c).ID, offset, limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: conversations, Total: total})
}

// SendMessage godoc
// @Summary Send a message in a conversation
// @Tags messaging
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} model.Message
// @Failure 403 {object} errors.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *MessagingHandler) SendMessage(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message, err := h.messagingService.SendMessage(c.Request().Context(), id, currentUser(c), req.Content)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, message)
}

// ListMessages godoc
// @Summary List a conversation's messages, newest first
// @Tags messaging
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /conversations/{id}/messages [get]
func (h *MessagingHandler) ListMessages(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	offset, limit := pagination(c)
	messages, total, err := h.messagingService.ListMessages(c.Request().Context(), id, currentUser(c), offset, limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: messages, Total: total})
}

// MarkRead godoc
// @Summary Mark a conversation's messages as read
// @Tags messaging
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /conversations/{id}/read [post]
func (h *MessagingHandler) MarkRead(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.messagingService.MarkRead(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CountUnread godoc
// @Summary Count the caller's unread messages
// @Tags messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Router /conversations/unread [get]
func (h *MessagingHandler) CountUnread(c echo.Context) error {
	count, err := h.messagingService.CountUnread(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}

// GetPresence godoc
// @Summary Get a user's online state
// @Tags messaging
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.UserPresence
// @Failure 404 {object} errors.ErrorResponse
// @Router /presence/{id} [get]
func (h *MessagingHandler) GetPresence(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	presence, err := h.messagingService.GetPresence(c.Request().Context(), uint(userID))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, presence)
}

// Connect godoc
// @Summary Upgrade to a websocket for real-time chat
// @Tags messaging
// @Security BearerAuth
// @Success 101 "Switching Protocols"
// @Router /ws [get]
func (h *MessagingHandler) Connect(c echo.Context) error {
	user := currentUser(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ws.Serve(c.Request().Context(), h.hub, conn, user, h.messagingService)
	return nil
}
