// Package handler translates HTTP requests into service calls. Handlers bind
// and validate DTOs, resolve the authenticated user and map domain errors to
// HTTP responses.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "ascai/internal/errors"
	"ascai/internal/model"
)

// ContextUserKey is where middleware stores the authenticated user.
const ContextUserKey = "currentUser"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// currentUser returns the authenticated user, or nil on public routes.
func currentUser(c echo.Context) *model.User {
	u, _ := c.Get(ContextUserKey).(*model.User)
	return u
}

// respondError maps a service error onto the standard error envelope.
func respondError(err error) error {
	var httpErr *apperrors.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = apperrors.MapErrorToHTTP(err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// pagination reads page/page_size query params into an offset and limit.
func pagination(c echo.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("page_size"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return (page - 1) * limit, limit
}

// parseUUID parses a UUID from a request body field.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// parseUUIDParam parses a path parameter as a UUID.
func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// listResponse is the standard paginated list envelope.
type listResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}
