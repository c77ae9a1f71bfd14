package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ascai/internal/model"
	"ascai/internal/service"
)

// ForumHandler handles forum endpoints: categories, threads, replies, votes,
// flags and notifications.
type ForumHandler struct {
	forumService service.ForumService
}

// NewForumHandler creates a new forum handler.
func NewForumHandler(forumService service.ForumService) *ForumHandler {
	return &ForumHandler{forumService: forumService}
}

// ForumCategoryRequest represents a new forum category.
type ForumCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	SortOrder   int    `json:"sort_order"`
	ViewRole    string `json:"view_role" validate:"omitempty,oneof=public member board admin"`
	PostRole    string `json:"post_role" validate:"omitempty,oneof=public member board admin"`
}

// ThreadRequest represents a new thread.
type ThreadRequest struct {
	CategorySlug string `json:"category_slug" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Content      string `json:"content" validate:"required"`
	Tags         string `json:"tags"`
}

// EditThreadRequest represents a thread edit.
type EditThreadRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ModerateRequest represents a moderation action on a thread.
type ModerateRequest struct {
	Action string `json:"action" validate:"required,oneof=lock unlock pin unpin approve reject delete"`
	Reason string `json:"reason"`
}

// ReplyRequest represents a new reply.
type ReplyRequest struct {
	Content       string  `json:"content" validate:"required"`
	ParentReplyID *string `json:"parent_reply_id" validate:"omitempty,uuid"`
}

// EditReplyRequest represents a reply edit.
type EditReplyRequest struct {
	Content string `json:"content" validate:"required"`
}

// VoteRequest represents a vote on a thread or reply.
type VoteRequest struct {
	Target   string `json:"target" validate:"required,oneof=thread reply"`
	TargetID string `json:"target_id" validate:"required,uuid"`
	Type     string `json:"type" validate:"required,oneof=upvote downvote"`
}

// FlagRequest represents a content flag.
type FlagRequest struct {
	Target      string `json:"target" validate:"required,oneof=thread reply"`
	TargetID    string `json:"target_id" validate:"required,uuid"`
	Reason      string `json:"reason" validate:"required,oneof=spam inappropriate harassment copyright other"`
	Description string `json:"description"`
}

// ReviewFlagRequest represents a flag review decision.
type ReviewFlagRequest struct {
	Status string `json:"status" validate:"required,oneof=resolved dismissed"`
}

// MarkNotificationsRequest selects notifications to mark read; empty means all.
type MarkNotificationsRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,uuid"`
}

// CreateCategory godoc
// @Summary Create a forum category
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ForumCategoryRequest true "Category data"
// @Success 201 {object} model.ForumCategory
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/categories [post]
func (h *ForumHandler) CreateCategory(c echo.Context) error {
	var req ForumCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category := &model.ForumCategory{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
		ViewRole:    model.Role(req.ViewRole),
		PostRole:    model.Role(req.PostRole),
	}
	if err := h.forumService.CreateCategory(c.Request().Context(), category, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

// ListCategories godoc
// @Summary List forum categories visible to the caller
// @Tags forum
// @Produce json
// @Success 200 {array} model.ForumCategory
// @Router /forum/categories [get]
func (h *ForumHandler) ListCategories(c echo.Context) error {
	categories, err := h.forumService.ListCategories(c.Request().Context(), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

// CreateThread godoc
// @Summary Start a thread
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ThreadRequest true "Thread data"
// @Success 201 {object} model.Thread
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/threads [post]
func (h *ForumHandler) CreateThread(c echo.Context) error {
	var req ThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	thread, err := h.forumService.CreateThread(c.Request().Context(), req.CategorySlug, req.Title, req.Content, req.Tags, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, thread)
}

// GetThread godoc
// @Summary Get a thread by slug
// @Tags forum
// @Produce json
// @Param slug path string true "Thread slug"
// @Success 200 {object} model.Thread
// @Failure 404 {object} errors.ErrorResponse
// @Router /forum/threads/{slug} [get]
func (h *ForumHandler) GetThread(c echo.Context) error {
	thread, err := h.forumService.GetThread(c.Request().Context(), c.Param("slug"), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, thread)
}

// ListThreads godoc
// @Summary List threads
// @Tags forum
// @Produce json
// @Param category query string false "Category slug"
// @Param search query string false "Search title and content"
// @Success 200 {object} listResponse
// @Router /forum/threads [get]
func (h *ForumHandler) ListThreads(c echo.Context) error {
	offset, limit := pagination(c)
	threads, total, err := h.forumService.ListThreads(c.Request().Context(), c.QueryParam("category"), c.QueryParam("search"), offset, limit, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: threads, Total: total})
}

// EditThread godoc
// @Summary Edit a thread
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param request body EditThreadRequest true "New content"
// @Success 200 {object} model.Thread
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/threads/{id} [put]
func (h *ForumHandler) EditThread(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req EditThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	thread, err := h.forumService.EditThread(c.Request().Context(), id, req.Title, req.Content, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, thread)
}

// ModerateThread godoc
// @Summary Apply a moderation action to a thread
// @Tags forum
// @Accept json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param request body ModerateRequest true "Action"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/threads/{id}/moderate [post]
func (h *ForumHandler) ModerateThread(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ModerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.forumService.ModerateThread(c.Request().Context(), id, model.ModerationAction(req.Action), req.Reason, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateReply godoc
// @Summary Reply to a thread
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param request body ReplyRequest true "Reply data"
// @Success 201 {object} model.Reply
// @Failure 409 {object} errors.ErrorResponse
// @Router /forum/threads/{id}/replies [post]
func (h *ForumHandler) CreateReply(c echo.Context) error {
	threadID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var parentReplyID *uuid.UUID
	if req.ParentReplyID != nil {
		id, err := uuid.Parse(*req.ParentReplyID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid parent_reply_id")
		}
		parentReplyID = &id
	}

	reply, err := h.forumService.CreateReply(c.Request().Context(), threadID, req.Content, parentReplyID, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, reply)
}

// ListReplies godoc
// @Summary List a thread's replies
// @Tags forum
// @Produce json
// @Param id path string true "Thread ID"
// @Success 200 {object} listResponse
// @Router /forum/threads/{id}/replies [get]
func (h *ForumHandler) ListReplies(c echo.Context) error {
	threadID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	offset, limit := pagination(c)
	replies, total, err := h.forumService.ListReplies(c.Request().Context(), threadID, offset, limit, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: replies, Total: total})
}

// EditReply godoc
// @Summary Edit a reply
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Reply ID"
// @Param request body EditReplyRequest true "New content"
// @Success 200 {object} model.Reply
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/replies/{id} [put]
func (h *ForumHandler) EditReply(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req EditReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reply, err := h.forumService.EditReply(c.Request().Context(), id, req.Content, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, reply)
}

// DeleteReply godoc
// @Summary Delete a reply
// @Tags forum
// @Security BearerAuth
// @Param id path string true "Reply ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/replies/{id} [delete]
func (h *ForumHandler) DeleteReply(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.forumService.DeleteReply(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Vote godoc
// @Summary Vote on a thread or reply
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VoteRequest true "Vote"
// @Success 200 {object} service.VoteCounts
// @Failure 404 {object} errors.ErrorResponse
// @Router /forum/votes [post]
func (h *ForumHandler) Vote(c echo.Context) error {
	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	targetID, err := parseUUID(req.TargetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid target_id")
	}
	counts, err := h.forumService.Vote(c.Request().Context(), model.ContentTarget(req.Target), targetID, model.VoteType(req.Type), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, counts)
}

// FlagContent godoc
// @Summary Flag a thread or reply for moderation
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FlagRequest true "Flag"
// @Success 201 {object} model.Flag
// @Failure 409 {object} errors.ErrorResponse
// @Router /forum/flags [post]
func (h *ForumHandler) FlagContent(c echo.Context) error {
	var req FlagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	targetID, err := parseUUID(req.TargetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid target_id")
	}
	flag, err := h.forumService.FlagContent(c.Request().Context(), model.ContentTarget(req.Target), targetID, model.FlagReason(req.Reason), req.Description, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, flag)
}

// ListFlags godoc
// @Summary List content flags
// @Tags forum
// @Produce json
// @Security BearerAuth
// @Param status query string false "Flag status" default(pending)
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/flags [get]
func (h *ForumHandler) ListFlags(c echo.Context) error {
	offset, limit := pagination(c)
	flags, total, err := h.forumService.ListFlags(c.Request().Context(), model.FlagStatus(c.QueryParam("status")), offset, limit, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: flags, Total: total})
}

// ListModerationActions godoc
// @Summary List the moderation trail
// @Tags forum
// @Produce json
// @Security BearerAuth
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/moderation [get]
func (h *ForumHandler) ListModerationActions(c echo.Context) error {
	offset, limit := pagination(c)
	actions, total, err := h.forumService.ListModerationActions(c.Request().Context(), offset, limit, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: actions, Total: total})
}

// ReviewFlag godoc
// @Summary Resolve or dismiss a content flag
// @Tags forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Flag ID"
// @Param request body ReviewFlagRequest true "Decision"
// @Success 200 {object} model.Flag
// @Failure 403 {object} errors.ErrorResponse
// @Router /forum/flags/{id}/review [post]
func (h *ForumHandler) ReviewFlag(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReviewFlagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	flag, err := h.forumService.ReviewFlag(c.Request().Context(), id, model.FlagStatus(req.Status), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, flag)
}

// ListNotifications godoc
// @Summary List the caller's forum notifications
// @Tags forum
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Unread only"
// @Success 200 {object} listResponse
// @Router /forum/notifications [get]
func (h *ForumHandler) ListNotifications(c echo.Context) error {
	offset, limit := pagination(c)
	notifications, total, err := h.forumService.ListNotifications(c.Request().Context(), currentUser(c).ID, c.QueryParam("unread") == "true", offset, limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: notifications, Total: total})
}

// MarkNotificationsRead godoc
// @Summary Mark forum notifications as read
// @Tags forum
// @Accept json
// @Security BearerAuth
// @Param request body MarkNotificationsRequest true "Notification IDs; empty marks all"
// @Success 204 "No Content"
// @Router /forum/notifications/read [post]
func (h *ForumHandler) MarkNotificationsRead(c echo.Context) error {
	var req MarkNotificationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
		}
		ids = append(ids, id)
	}

	if err := h.forumService.MarkNotificationsRead(c.Request().Context(), currentUser(c).ID, ids); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CountUnreadNotifications godoc
// @Summary Count the caller's unread forum notifications
// @Tags forum
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Router /forum/notifications/unread [get]
func (h *ForumHandler) CountUnreadNotifications(c echo.Context) error {
	count, err := h.forumService.CountUnreadNotifications(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}
