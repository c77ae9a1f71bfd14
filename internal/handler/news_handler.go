package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/service"
)

// NewsHandler handles news post and category endpoints.
type NewsHandler struct {
	newsService service.NewsService
}

// NewNewsHandler creates a new news handler.
func NewNewsHandler(newsService service.NewsService) *NewsHandler {
	return &NewsHandler{newsService: newsService}
}

// NewsRequest represents news post create and update payloads.
type NewsRequest struct {
	Title      string  `json:"title" validate:"required"`
	Content    string  `json:"content" validate:"required"`
	Excerpt    string  `json:"excerpt"`
	CategoryID *string `json:"category_id" validate:"omitempty,uuid"`
	Type       string  `json:"type" validate:"omitempty,oneof=important general academic cultural social"`
	Visibility string  `json:"visibility" validate:"omitempty,oneof=public members board"`
	ImageURL   string  `json:"image_url" validate:"omitempty,url"`
}

// NewsCategoryRequest represents a new news category.
type NewsCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (r NewsRequest) toInput() (service.NewsInput, error) {
	input := service.NewsInput{
		Title:      r.Title,
		Content:    r.Content,
		Excerpt:    r.Excerpt,
		Type:       model.NewsType(r.Type),
		Visibility: model.Visibility(r.Visibility),
		ImageURL:   r.ImageURL,
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

// CreatePost godoc
// @Summary Create a news post
// @Tags news
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body NewsRequest true "Post data"
// @Success 201 {object} model.NewsPost
// @Failure 403 {object} errors.ErrorResponse
// @Router /news [post]
func (h *NewsHandler) CreatePost(c echo.Context) error {
	var req NewsRequest
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

	post, err := h.newsService.CreatePost(c.Request().Context(), input, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Update a news post
// @Tags news
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body NewsRequest true "Post data"
// @Success 200 {object} model.NewsPost
// @Failure 403 {object} errors.ErrorResponse
// @Router /news/{id} [put]
func (h *NewsHandler) UpdatePost(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req NewsRequest
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

	post, err := h.newsService.UpdatePost(c.Request().Context(), id, input, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// PublishPost godoc
// @Summary Publish or unpublish a news post
// @Tags news
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body PublishRequest true "Published flag"
// @Success 200 {object} model.NewsPost
// @Failure 403 {object} errors.ErrorResponse
// @Router /news/{id}/publish [put]
func (h *NewsHandler) PublishPost(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req PublishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	post, err := h.newsService.PublishPost(c.Request().Context(), id, req.Published, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a news post
// @Tags news
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /news/{id} [delete]
func (h *NewsHandler) DeletePost(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.newsService.DeletePost(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetPost godoc
// @Summary Get a news post by slug
// @Tags news
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} model.NewsPost
// @Failure 404 {object} errors.ErrorResponse
// @Router /news/{slug} [get]
func (h *NewsHandler) GetPost(c echo.Context) error {
	post, err := h.newsService.GetPost(c.Request().Context(), c.Param("slug"), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// ListPosts godoc
// @Summary List news posts visible to the caller
// @Tags news
// @Produce json
// @Param category query string false "Category slug"
// @Param type query string false "Post type"
// @Param search query string false "Search title and content"
// @Success 200 {object} listResponse
// @Router /news [get]
func (h *NewsHandler) ListPosts(c echo.Context) error {
	offset, limit := pagination(c)
	filter := repository.NewsFilter{
		CategorySlug: c.QueryParam("category"),
		Type:         model.NewsType(c.QueryParam("type")),
		Search:       c.QueryParam("search"),
		Offset:       offset,
		Limit:        limit,
	}

	posts, total, err := h.newsService.ListPosts(c.Request().Context(), filter, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: posts, Total: total})
}

// CreateCategory godoc
// @Summary Create a news category
// @Tags news
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body NewsCategoryRequest true "Category data"
// @Success 201 {object} model.NewsCategory
// @Failure 403 {object} errors.ErrorResponse
// @Router /news/categories [post]
func (h *NewsHandler) CreateCategory(c echo.Context) error {
	var req NewsCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := h.newsService.CreateCategory(c.Request().Context(), req.Name, req.Description, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

// ListCategories godoc
// @Summary List news categories
// @Tags news
// @Produce json
// @Success 200 {array} model.NewsCategory
// @Router /news/categories [get]
func (h *NewsHandler) ListCategories(c echo.Context) error {
	categories, err := h.newsService.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, categories)
}
