package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/service"
)

// MemberHandler handles member directory, application and badge endpoints.
type MemberHandler struct {
	memberService service.MemberService
}

// NewMemberHandler creates a new member handler.
func NewMemberHandler(memberService service.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// UpdateMemberProfileRequest carries optional member profile fields; omitted
// fields are kept.
type UpdateMemberProfileRequest struct {
	University      *string    `json:"university"`
	Course          *string    `json:"course"`
	YearOfStudy     *int       `json:"year_of_study" validate:"omitempty,min=1,max=10"`
	GraduationYear  *int       `json:"graduation_year" validate:"omitempty,min=1950"`
	City            *string    `json:"city"`
	CountryOfOrigin *string    `json:"country_of_origin"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	ProfilePublic   *bool      `json:"profile_public"`
	EmailPublic     *bool      `json:"email_public"`
	LinkedIn        *string    `json:"linkedin" validate:"omitempty,url"`
	Website         *string    `json:"website" validate:"omitempty,url"`
}

// ApplyRequest represents a membership application.
type ApplyRequest struct {
	Notes string `json:"notes"`
}

// ReviewApplicationRequest represents an application review decision.
type ReviewApplicationRequest struct {
	Approve     bool   `json:"approve"`
	ReviewNotes string `json:"review_notes"`
}

// SetMemberStatusRequest represents a membership status change.
type SetMemberStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended pending"`
}

// CreateBadgeRequest represents a new badge definition.
type CreateBadgeRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	Icon        string `json:"icon"`
}

func (r CreateBadgeRequest) toModel() *model.MemberBadge {
	return &model.MemberBadge{
		Name:        r.Name,
		Description: r.Description,
		Category:    model.BadgeCategory(r.Category),
		Icon:        r.Icon,
	}
}

// AwardBadgeRequest represents a manual badge award.
type AwardBadgeRequest struct {
	BadgeID string `json:"badge_id" validate:"required,uuid"`
	Notes   string `json:"notes"`
}

// UpdateSettingsRequest represents a subscription settings change.
type UpdateSettingsRequest struct {
	DefaultDurationYears int `json:"default_duration_years" validate:"required,min=1"`
}

// ListMembers godoc
// @Summary List the member directory
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param status query string false "Membership status"
// @Param category query string false "Member category"
// @Param search query string false "Search university, course or city"
// @Success 200 {object} listResponse
// @Router /members [get]
func (h *MemberHandler) ListMembers(c echo.Context) error {
	offset, limit := pagination(c)
	filter := repository.MemberFilter{
		Status:   model.MembershipStatus(c.QueryParam("status")),
		Category: model.MemberCategory(c.QueryParam("category")),
		Search:   c.QueryParam("search"),
		Offset:   offset,
		Limit:    limit,
	}

	members, total, err := h.memberService.ListMembers(c.Request().Context(), filter, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: members, Total: total})
}

// GetMember godoc
// @Summary Get a member profile
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Success 200 {object} model.Member
// @Failure 404 {object} errors.ErrorResponse
// @Router /members/{id} [get]
func (h *MemberHandler) GetMember(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	member, err := h.memberService.GetMember(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, member)
}

// GetOwnMember godoc
// @Summary Get the authenticated user's member profile
// @Tags members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Member
// @Failure 404 {object} errors.ErrorResponse
// @Router /members/me [get]
func (h *MemberHandler) GetOwnMember(c echo.Context) error {
	member, err := h.memberService.GetMemberByUser(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, member)
}

// UpdateOwnMember godoc
// @Summary Update the authenticated user's member profile
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateMemberProfileRequest true "Profile fields"
// @Success 200 {object} model.Member
// @Failure 400 {object} errors.ErrorResponse
// @Router /members/me [put]
func (h *MemberHandler) UpdateOwnMember(c echo.Context) error {
	var req UpdateMemberProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	member, err := h.memberService.UpdateMemberProfile(c.Request().Context(), currentUser(c).ID, service.MemberProfileUpdate{
		University:      req.University,
		Course:          req.Course,
		YearOfStudy:     req.YearOfStudy,
		GraduationYear:  req.GraduationYear,
		City:            req.City,
		CountryOfOrigin: req.CountryOfOrigin,
		DateOfBirth:     req.DateOfBirth,
		ProfilePublic:   req.ProfilePublic,
		EmailPublic:     req.EmailPublic,
		LinkedIn:        req.LinkedIn,
		Website:         req.Website,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, member)
}

// Apply godoc
// @Summary Apply for membership
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ApplyRequest true "Application notes"
// @Success 201 {object} model.MemberApplication
// @Failure 409 {object} errors.ErrorResponse
// @Router /members/applications [post]
func (h *MemberHandler) Apply(c echo.Context) error {
	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	application, err := h.memberService.Apply(c.Request().Context(), currentUser(c).ID, req.Notes)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, application)
}

// ListApplications godoc
// @Summary List membership applications
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param status query string false "Application status"
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /members/applications [get]
func (h *MemberHandler) ListApplications(c echo.Context) error {
	offset, limit := pagination(c)
	applications, total, err := h.memberService.ListApplications(c.Request().Context(), model.ApplicationStatus(c.QueryParam("status")), offset, limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: applications, Total: total})
}

// ReviewApplication godoc
// @Summary Approve or reject a membership application
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body ReviewApplicationRequest true "Review decision"
// @Success 200 {object} model.MemberApplication
// @Failure 409 {object} errors.ErrorResponse
// @Router /members/applications/{id}/review [post]
func (h *MemberHandler) ReviewApplication(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReviewApplicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	application, err := h.memberService.ReviewApplication(c.Request().Context(), id, req.Approve, req.ReviewNotes, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, application)
}

// VerifyMember godoc
// @Summary Mark a member as verified
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Success 200 {object} model.Member
// @Failure 403 {object} errors.ErrorResponse
// @Router /members/{id}/verify [post]
func (h *MemberHandler) VerifyMember(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	member, err := h.memberService.VerifyMember(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, member)
}

// SetMemberStatus godoc
// @Summary Change a member's membership status
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Param request body SetMemberStatusRequest true "New status"
// @Success 200 {object} model.Member
// @Failure 403 {object} errors.ErrorResponse
// @Router /members/{id}/status [put]
func (h *MemberHandler) SetMemberStatus(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req SetMemberStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	member, err := h.memberService.SetMemberStatus(c.Request().Context(), id, model.MembershipStatus(req.Status), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, member)
}

// CreateBadge godoc
// @Summary Create a badge definition
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBadgeRequest true "Badge data"
// @Success 201 {object} model.MemberBadge
// @Failure 403 {object} errors.ErrorResponse
// @Router /members/badges [post]
func (h *MemberHandler) CreateBadge(c echo.Context) error {
	var req CreateBadgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	badge := req.toModel()
	if err := h.memberService.CreateBadge(c.Request().Context(), badge, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, badge)
}

// ListBadges godoc
// @Summary List badge definitions
// @Tags members
// @Produce json
// @Success 200 {array} model.MemberBadge
// @Router /members/badges [get]
func (h *MemberHandler) ListBadges(c echo.Context) error {
	badges, err := h.memberService.ListBadges(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, badges)
}

// AwardBadge godoc
// @Summary Award a badge to a member
// @Tags members
// @Accept json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Param request body AwardBadgeRequest true "Badge to award"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /members/{id}/badges [post]
func (h *MemberHandler) AwardBadge(c echo.Context) error {
	memberID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req AwardBadgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	badgeID, err := parseUUID(req.BadgeID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid badge_id")
	}
	if err := h.memberService.AwardBadge(c.Request().Context(), memberID, badgeID, req.Notes, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAchievements godoc
// @Summary List a member's earned badges
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Success 200 {array} model.MemberAchievement
// @Router /members/{id}/badges [get]
func (h *MemberHandler) ListAchievements(c echo.Context) error {
	memberID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	achievements, err := h.memberService.ListAchievements(c.Request().Context(), memberID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, achievements)
}

// GetSettings godoc
// @Summary Get subscription settings
// @Tags members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SubscriptionSettings
// @Router /members/settings [get]
func (h *MemberHandler) GetSettings(c echo.Context) error {
	settings, err := h.memberService.GetSettings(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update subscription settings
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateSettingsRequest true "Settings"
// @Success 200 {object} model.SubscriptionSettings
// @Failure 403 {object} errors.ErrorResponse
// @Router /members/settings [put]
func (h *MemberHandler) UpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	settings, err := h.memberService.UpdateSettings(c.Request().Context(), req.DefaultDurationYears, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, settings)
}
