package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"ascai/internal/model"
	"ascai/internal/repository"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	auditLogs repository.AuditLogRepository
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditLogs repository.AuditLogRepository) *AuditHandler {
	return &AuditHandler{auditLogs: auditLogs}
}

// ListLogs godoc
// @Summary List audit log entries
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param entity query string false "Entity name"
// @Param action query string false "Action"
// @Param actor_id query int false "Actor user ID"
// @Param from query string false "Start time (RFC 3339)"
// @Param to query string false "End time (RFC 3339)"
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /audit [get]
func (h *AuditHandler) ListLogs(c echo.Context) error {
	offset, limit := pagination(c)
	filter := repository.AuditLogFilter{
		Entity: c.QueryParam("entity"),
		Action: model.AuditAction(c.QueryParam("action")),
		Offset: offset,
		Limit:  limit,
	}
	if raw := c.QueryParam("actor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		actorID := uint(id)
		filter.ActorID = &actorID
	}
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		filter.From = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		filter.To = &t
	}

	logs, total, err := h.auditLogs.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: logs, Total: total})
}
