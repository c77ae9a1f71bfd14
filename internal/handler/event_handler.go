package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/service"
)

// EventHandler handles event and registration endpoints.
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// EventRequest represents event create and update payloads.
type EventRequest struct {
	Title                string     `json:"title" validate:"required"`
	Description          string     `json:"description" validate:"required"`
	Location             string     `json:"location" validate:"required"`
	StartsAt             time.Time  `json:"starts_at" validate:"required"`
	EndsAt               time.Time  `json:"ends_at" validate:"required,gtfield=StartsAt"`
	CategoryID           *string    `json:"category_id" validate:"omitempty,uuid"`
	RegistrationRequired bool       `json:"registration_required"`
	MaxAttendees         *int       `json:"max_attendees" validate:"omitempty,min=1"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	Visibility           string     `json:"visibility" validate:"omitempty,oneof=public members board"`
	ImageURL             string     `json:"image_url" validate:"omitempty,url"`
}

// RegisterEventRequest carries the optional fields of a signup.
type RegisterEventRequest struct {
	DietaryRequirements string `json:"dietary_requirements"`
	SpecialRequests     string `json:"special_requests"`
}

// CheckInRequest identifies the attendee to check in.
type CheckInRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// CreateCategoryRequest represents a new category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// PublishRequest toggles published state.
type PublishRequest struct {
	Published bool `json:"published"`
}

func (r EventRequest) toInput() (service.EventInput, error) {
	input := service.EventInput{
		Title:                r.Title,
		Description:          r.Description,
		Location:             r.Location,
		StartsAt:             r.StartsAt,
		EndsAt:               r.EndsAt,
		RegistrationRequired: r.RegistrationRequired,
		MaxAttendees:         r.MaxAttendees,
		RegistrationDeadline: r.RegistrationDeadline,
		Visibility:           model.Visibility(r.Visibility),
		ImageURL:             r.ImageURL,
	}
	if r.CategoryID != nil {
		id, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return input, err
		}
		input.CategoryID = &id
	}
	return input, nil
}

// CreateEvent godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EventRequest true "Event data"
// @Success 201 {object} model.Event
// @Failure 403 {object} errors.ErrorResponse
// @Router /events [post]
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	input, err := req.toInput()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
	}

	event, err := h.eventService.CreateEvent(c.Request().Context(), input, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body EventRequest true "Event data"
// @Success 200 {object} model.Event
// @Failure 403 {object} errors.ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	input, err := req.toInput()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
	}

	event, err := h.eventService.UpdateEvent(c.Request().Context(), id, input, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, event)
}

// PublishEvent godoc
// @Summary Publish or unpublish an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body PublishRequest true "Published flag"
// @Success 200 {object} model.Event
// @Failure 403 {object} errors.ErrorResponse
// @Router /events/{id}/publish [put]
func (h *EventHandler) PublishEvent(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req PublishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event, err := h.eventService.PublishEvent(c.Request().Context(), id, req.Published, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.eventService.DeleteEvent(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetEvent godoc
// @Summary Get an event by slug or ID
// @Tags events
// @Produce json
// @Param slug path string true "Event slug or ID"
// @Success 200 {object} model.Event
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{slug} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	event, err := h.eventService.GetEvent(c.Request().Context(), c.Param("slug"), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events visible to the caller
// @Tags events
// @Produce json
// @Param category_id query string false "Category ID"
// @Param search query string false "Search title and description"
// @Param time query string false "upcoming, past or all" default(upcoming)
// @Param from query string false "Start date (RFC 3339)"
// @Param to query string false "End date (RFC 3339)"
// @Success 200 {object} listResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	offset, limit := pagination(c)
	filter := repository.EventFilter{
		Search: c.QueryParam("search"),
		Time:   repository.EventTimeFilter(c.QueryParam("time")),
		Offset: offset,
		Limit:  limit,
	}
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		filter.CategoryID = &id
	}
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		filter.DateFrom = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		filter.DateTo = &t
	}

	events, total, err := h.eventService.ListEvents(c.Request().Context(), filter, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: events, Total: total})
}

// Register godoc
// @Summary Register for an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body RegisterEventRequest true "Registration details"
// @Success 201 {object} model.EventRegistration
// @Failure 409 {object} errors.ErrorResponse
// @Router /events/{id}/register [post]
func (h *EventHandler) Register(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req RegisterEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	registration, err := h.eventService.Register(c.Request().Context(), id, currentUser(c), service.RegistrationDetails{
		DietaryRequirements: req.DietaryRequirements,
		SpecialRequests:     req.SpecialRequests,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, registration)
}

// Unregister godoc
// @Summary Cancel an event registration
// @Tags events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id}/register [delete]
func (h *EventHandler) Unregister(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.eventService.Unregister(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckIn godoc
// @Summary Check an attendee in at the door
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body CheckInRequest true "Attendee"
// @Success 200 {object} model.EventRegistration
// @Failure 409 {object} errors.ErrorResponse
// @Router /events/{id}/check-in [post]
func (h *EventHandler) CheckIn(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req CheckInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	registration, err := h.eventService.CheckIn(c.Request().Context(), id, req.UserID, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, registration)
}

// ListRegistrations godoc
// @Summary List an event's registrations
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {array} model.EventRegistration
// @Failure 403 {object} errors.ErrorResponse
// @Router /events/{id}/registrations [get]
func (h *EventHandler) ListRegistrations(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	registrations, err := h.eventService.ListRegistrations(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, registrations)
}

// ListOwnRegistrations godoc
// @Summary List the authenticated user's event registrations
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.EventRegistration
// @Router /events/registrations/me [get]
func (h *EventHandler) ListOwnRegistrations(c echo.Context) error {
	registrations, err := h.eventService.ListUserRegistrations(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, registrations)
}

// CreateCategory godoc
// @Summary Create an event category
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "Category data"
// @Success 201 {object} model.EventCategory
// @Failure 403 {object} errors.ErrorResponse
// @Router /events/categories [post]
func (h *EventHandler) CreateCategory(c echo.Context) error {
	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.eventService.CreateCategory(c.Request().Context(), req.Name, req.Description, req.Color, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

// ListCategories godoc
// @Summary List event categories
// @Tags events
// @Produce json
// @Success 200 {array} model.EventCategory
// @Router /events/categories [get]
func (h *EventHandler) ListCategories(c echo.Context) error {
	categories, err := h.eventService.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, categories)
}
