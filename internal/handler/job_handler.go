package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/service"
)

// JobHandler handles job board endpoints.
type JobHandler struct {
	jobService service.JobService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobService service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// JobRequest represents job posting create and update payloads.
type JobRequest struct {
	Title        string           `json:"title" validate:"required"`
	Description  string           `json:"description" validate:"required"`
	CompanyName  string           `json:"company_name" validate:"required"`
	Location     string           `json:"location"`
	Type         string           `json:"type" validate:"required,oneof=full_time part_time internship contract temporary"`
	SalaryMin    *decimal.Decimal `json:"salary_min"`
	SalaryMax    *decimal.Decimal `json:"salary_max"`
	Requirements string           `json:"requirements"`
	Deadline     *time.Time       `json:"deadline"`
}

// JobApplicationRequest represents a job application.
type JobApplicationRequest struct {
	CoverLetter string `json:"cover_letter" validate:"required"`
	ResumeURL   string `json:"resume_url" validate:"omitempty,url"`
}

// ReviewJobApplicationRequest represents an employer-side review.
type ReviewJobApplicationRequest struct {
	Status string `json:"status" validate:"required,oneof=reviewed accepted rejected"`
	Notes  string `json:"notes"`
}

func (r JobRequest) toInput() service.JobInput {
	return service.JobInput{
		Title:        r.Title,
		Description:  r.Description,
		CompanyName:  r.CompanyName,
		Location:     r.Location,
		Type:         model.JobType(r.Type),
		SalaryMin:    r.SalaryMin,
		SalaryMax:    r.SalaryMax,
		Requirements: r.Requirements,
		Deadline:     r.Deadline,
	}
}

// CreateJob godoc
// @Summary Create a job posting
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body JobRequest true "Job data"
// @Success 201 {object} model.JobPosting
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobs [post]
func (h *JobHandler) CreateJob(c echo.Context) error {
	var req JobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	job, err := h.jobService.CreateJob(c.Request().Context(), req.toInput(), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, job)
}

// UpdateJob godoc
// @Summary Update a job posting
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param request body JobRequest true "Job data"
// @Success 200 {object} model.JobPosting
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobs/{id} [put]
func (h *JobHandler) UpdateJob(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req JobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	job, err := h.jobService.UpdateJob(c.Request().Context(), id, req.toInput(), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// CloseJob godoc
// @Summary Close a job posting to new applications
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} model.JobPosting
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobs/{id}/close [post]
func (h *JobHandler) CloseJob(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	job, err := h.jobService.CloseJob(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// DeleteJob godoc
// @Summary Delete a job posting
// @Tags jobs
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobs/{id} [delete]
func (h *JobHandler) DeleteJob(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.jobService.DeleteJob(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetJob godoc
// @Summary Get a job posting by slug
// @Tags jobs
// @Produce json
// @Param slug path string true "Job slug"
// @Success 200 {object} model.JobPosting
// @Failure 404 {object} errors.ErrorResponse
// @Router /jobs/{slug} [get]
func (h *JobHandler) GetJob(c echo.Context) error {
	job, err := h.jobService.GetJob(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// ListJobs godoc
// @Summary List job postings
// @Tags jobs
// @Produce json
// @Param type query string false "Job type"
// @Param location query string false "Location"
// @Param search query string false "Search title, company and description"
// @Param include_closed query bool false "Include closed postings"
// @Success 200 {object} listResponse
// @Router /jobs [get]
func (h *JobHandler) ListJobs(c echo.Context) error {
	offset, limit := pagination(c)
	filter := repository.JobFilter{
		Type:       model.JobType(c.QueryParam("type")),
		Location:   c.QueryParam("location"),
		Search:     c.QueryParam("search"),
		ActiveOnly: c.QueryParam("include_closed") != "true",
		Offset:     offset,
		Limit:      limit,
	}

	jobs, total, err := h.jobService.ListJobs(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: jobs, Total: total})
}

// Apply godoc
// @Summary Apply to a job posting
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param request body JobApplicationRequest true "Application data"
// @Success 201 {object} model.JobApplication
// @Failure 409 {object} errors.ErrorResponse
// @Router /jobs/{id}/apply [post]
func (h *JobHandler) Apply(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req JobApplicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	application, err := h.jobService.Apply(c.Request().Context(), id, currentUser(c), req.CoverLetter, req.ResumeURL)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, application)
}

// ReviewApplication godoc
// @Summary Review a job application
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body ReviewJobApplicationRequest true "Review decision"
// @Success 200 {object} model.JobApplication
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobs/applications/{id}/review [post]
func (h *JobHandler) ReviewApplication(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReviewJobApplicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	application, err := h.jobService.ReviewApplication(c.Request().Context(), id, model.ApplicationReviewStatus(req.Status), req.Notes, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, application)
}

// ListApplications godoc
// @Summary List a job's applications
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobs/{id}/applications [get]
func (h *JobHandler) ListApplications(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	offset, limit := pagination(c)
	applications, total, err := h.jobService.ListApplications(c.Request().Context(), id, currentUser(c), offset, limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: applications, Total: total})
}

// ListOwnApplications godoc
// @Summary List the authenticated user's job applications
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.JobApplication
// @Router /jobs/applications/me [get]
func (h *JobHandler) ListOwnApplications(c echo.Context) error {
	applications, err := h.jobService.ListUserApplications(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, applications)
}
