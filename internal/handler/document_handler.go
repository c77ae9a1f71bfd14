package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/service"
)

// Upload cap for document files.
const maxUploadSize = 50 << 20

// DocumentHandler handles the document archive endpoints.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// FolderRequest represents folder create payloads.
type FolderRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	AccessLevel string  `json:"access_level" validate:"omitempty,oneof=public members board admin"`
}

// MoveFolderRequest represents a folder move.
type MoveFolderRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

// TagRequest represents a new document tag.
type TagRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// CreateFolder godoc
// @Summary Create a document folder
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FolderRequest true "Folder data"
// @Success 201 {object} model.DocumentFolder
// @Failure 403 {object} errors.ErrorResponse
// @Router /documents/folders [post]
func (h *DocumentHandler) CreateFolder(c echo.Context) error {
	var req FolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parent_id")
	}

	folder, err := h.documentService.CreateFolder(c.Request().Context(), req.Name, req.Description, parentID, model.AccessLevel(req.AccessLevel), currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, folder)
}

// MoveFolder godoc
// @Summary Move a folder to a new parent
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Folder ID"
// @Param request body MoveFolderRequest true "New parent"
// @Success 200 {object} model.DocumentFolder
// @Failure 409 {object} errors.ErrorResponse
// @Router /documents/folders/{id}/move [put]
func (h *DocumentHandler) MoveFolder(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req MoveFolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parent_id")
	}

	folder, err := h.documentService.MoveFolder(c.Request().Context(), id, parentID, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, folder)
}

// DeleteFolder godoc
// @Summary Delete an empty folder
// @Tags documents
// @Security BearerAuth
// @Param id path string true "Folder ID"
// @Success 204 "No Content"
// @Failure 409 {object} errors.ErrorResponse
// @Router /documents/folders/{id} [delete]
func (h *DocumentHandler) DeleteFolder(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.documentService.DeleteFolder(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFolders godoc
// @Summary List folders the caller can access
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param parent_id query string false "Parent folder ID; omit for root folders"
// @Success 200 {array} model.DocumentFolder
// @Router /documents/folders [get]
func (h *DocumentHandler) ListFolders(c echo.Context) error {
	var parentID *uuid.UUID
	if raw := c.QueryParam("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid parent_id")
		}
		parentID = &id
	}

	folders, err := h.documentService.ListFolders(c.Request().Context(), parentID, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, folders)
}

// Upload godoc
// @Summary Upload a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Document file"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param folder_id formData string false "Folder ID"
// @Param tag_ids formData string false "Comma-separated tag IDs"
// @Success 201 {object} model.Document
// @Failure 400 {object} errors.ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds upload limit")
	}

	title := c.FormValue("title")
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	upload := service.DocumentUpload{
		Title:       title,
		Description: c.FormValue("description"),
		FileName:    fileHeader.Filename,
		FileSize:    fileHeader.Size,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
	}

	if raw := c.FormValue("folder_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid folder_id")
		}
		upload.FolderID = &id
	}
	if raw := c.FormValue("tag_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid tag_ids")
			}
			upload.TagIDs = append(upload.TagIDs, id)
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()
	upload.Content = src

	document, err := h.documentService.Upload(c.Request().Context(), upload, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, document)
}

// GetDocument godoc
// @Summary Get document metadata
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 404 {object} errors.ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	document, err := h.documentService.GetDocument(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, document)
}

// Download godoc
// @Summary Download a document's file
// @Tags documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	document, content, err := h.documentService.Download(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	defer content.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, document.FileName))
	return c.Stream(http.StatusOK, document.ContentType, content)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags documents
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No Content"
// @Failure 403 {object} errors.ErrorResponse
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.documentService.DeleteDocument(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDocuments godoc
// @Summary List documents the caller can access
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param folder_id query string false "Folder ID"
// @Param tag query string false "Tag slug"
// @Param search query string false "Search title and file name"
// @Success 200 {object} listResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c echo.Context) error {
	offset, limit := pagination(c)
	filter := repository.DocumentFilter{
		TagSlug: c.QueryParam("tag"),
		Search:  c.QueryParam("search"),
		Offset:  offset,
		Limit:   limit,
	}
	if raw := c.QueryParam("folder_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid folder_id")
		}
		filter.FolderID = &id
	}

	documents, total, err := h.documentService.ListDocuments(c.Request().Context(), filter, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: documents, Total: total})
}

// CreateTag godoc
// @Summary Create a document tag
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TagRequest true "Tag data"
// @Success 201 {object} model.DocumentTag
// @Failure 403 {object} errors.ErrorResponse
// @Router /documents/tags [post]
func (h *DocumentHandler) CreateTag(c echo.Context) error {
	var req TagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tag, err := h.documentService.CreateTag(c.Request().Context(), req.Name, req.Color, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, tag)
}

// ListTags godoc
// @Summary List document tags
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.DocumentTag
// @Router /documents/tags [get]
func (h *DocumentHandler) ListTags(c echo.Context) error {
	tags, err := h.documentService.ListTags(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, tags)
}
