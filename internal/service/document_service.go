package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/storage"
)

// DocumentUpload carries the metadata and content of a file upload.
type DocumentUpload struct {
	Title       string
	Description string
	FileName    string
	FileSize    int64
	ContentType string
	FolderID    *uuid.UUID
	TagIDs      []uuid.UUID
	Content     io.Reader
}

// DocumentService manages the document archive: folders, files and tags.
type DocumentService interface {
	CreateFolder(ctx context.Context, name, description string, parentID *uuid.UUID, accessLevel model.AccessLevel, actor *model.User) (*model.DocumentFolder, error)
	MoveFolder(ctx context.Context, folderID uuid.UUID, newParentID *uuid.UUID, actor *model.User) (*model.DocumentFolder, error)
	DeleteFolder(ctx context.Context, folderID uuid.UUID, actor *model.User) error
	ListFolders(ctx context.Context, parentID *uuid.UUID, viewer *model.User) ([]model.DocumentFolder, error)

	Upload(ctx context.Context, upload DocumentUpload, actor *model.User) (*model.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID, viewer *model.User) (*model.Document, error)
	Download(ctx context.Context, id uuid.UUID, viewer *model.User) (*model.Document, io.ReadCloser, error)
	DeleteDocument(ctx context.Context, id uuid.UUID, actor *model.User) error
	ListDocuments(ctx context.Context, filter repository.DocumentFilter, viewer *model.User) ([]model.Document, int64, error)

	CreateTag(ctx context.Context, name, color string, actor *model.User) (*model.DocumentTag, error)
	ListTags(ctx context.Context) ([]model.DocumentTag, error)
}

type documentService struct {
	documents repository.DocumentRepository
	files     storage.Store
	recorder  audit.Recorder
}

// NewDocumentService creates a new document service.
func NewDocumentService(documents repository.DocumentRepository, files storage.Store, recorder audit.Recorder) DocumentService {
	return &documentService{
		documents: documents,
		files:     files,
		recorder:  recorder,
	}
}

// CreateFolder adds a folder. Board only; the access level defaults to
// members when unset.
func (s *documentService) CreateFolder(ctx context.Context, name, description string, parentID *uuid.UUID, accessLevel model.AccessLevel, actor *model.User) (*model.DocumentFolder, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	if parentID != nil {
		if _, err := s.findFolder(ctx, *parentID); err != nil {
			return nil, err
		}
	}

	folder := &model.DocumentFolder{
		Name:        name,
		Slug:        slug.Make(name),
		Description: description,
		ParentID:    parentID,
		AccessLevel: accessLevel,
		CreatedByID: &actor.ID,
	}
	if folder.AccessLevel == "" {
		folder.AccessLevel = model.AccessMembers
	}
	if err := s.documents.CreateFolder(ctx, folder); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "document_folder",
		EntityID: folder.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("folder %q created", folder.Name),
	})
	return folder, nil
}

// MoveFolder reparents a folder. A folder can never be moved under itself or
// any of its descendants.
func (s *documentService) MoveFolder(ctx context.Context, folderID uuid.UUID, newParentID *uuid.UUID, actor *model.User) (*model.DocumentFolder, error) {
	folder, err := s.findFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.CanEdit(actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	if newParentID != nil {
		if *newParentID == folderID {
			return nil, apperrors.ErrCircularFolder
		}
		// Walk up from the proposed parent; hitting the folder means a cycle.
		cursor := newParentID
		for cursor != nil {
			parent, err := s.findFolder(ctx, *cursor)
			if err != nil {
				return nil, err
			}
			if parent.ID == folderID {
				return nil, apperrors.ErrCircularFolder
			}
			cursor = parent.ParentID
		}
	}

	folder.ParentID = newParentID
	if err := s.documents.UpdateFolder(ctx, folder); err != nil {
		return nil, fmt.Errorf("update folder: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditUpdate,
		Entity:   "document_folder",
		EntityID: folder.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("folder %q moved", folder.Name),
	})
	return folder, nil
}

// DeleteFolder removes an empty folder. Admins always may; board members
// only for folders they created.
func (s *documentService) DeleteFolder(ctx context.Context, folderID uuid.UUID, actor *model.User) error {
	folder, err := s.findFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if !folder.CanDelete(actor) {
		return apperrors.ErrPermissionDenied
	}

	contents, err := s.documents.CountFolderContents(ctx, folderID)
	if err != nil {
		return fmt.Errorf("count folder contents: %w", err)
	}
	if contents > 0 {
		return apperrors.NewHTTPError(http.StatusConflict, "folder is not empty", "FOLDER_NOT_EMPTY")
	}

	if err := s.documents.DeleteFolder(ctx, folder); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditDelete,
		Entity:   "document_folder",
		EntityID: folder.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("folder %q deleted", folder.Name),
	})
	return nil
}

func (s *documentService) findFolder(ctx context.Context, id uuid.UUID) (*model.DocumentFolder, error) {
	folder, err := s.documents.FindFolderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find folder: %w", err)
	}
	return folder, nil
}

// ListFolders returns the folders under a parent the viewer may open.
func (s *documentService) ListFolders(ctx context.Context, parentID *uuid.UUID, viewer *model.User) ([]model.DocumentFolder, error) {
	folders, err := s.documents.ListFolders(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	visible := folders[:0]
	for _, f := range folders {
		if f.CanAccess(viewer) {
			visible = append(visible, f)
		}
	}
	return visible, nil
}

// Upload stores the file bytes and creates the metadata row. Board only.
func (s *documentService) Upload(ctx context.Context, upload DocumentUpload, actor *model.User) (*model.Document, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	if upload.FolderID != nil {
		if _, err := s.findFolder(ctx, *upload.FolderID); err != nil {
			return nil, err
		}
	}

	key := storage.NewKey()
	if err := s.files.Save(key, upload.Content); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	doc := &model.Document{
		Title:        upload.Title,
		Description:  upload.Description,
		FileName:     upload.FileName,
		FileSize:     upload.FileSize,
		ContentType:  upload.ContentType,
		StorageKey:   key,
		FolderID:     upload.FolderID,
		UploadedByID: &actor.ID,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		// Orphaned bytes are worse than a lost upload.
		_ = s.files.Delete(key)
		return nil, fmt.Errorf("create document: %w", err)
	}

	if len(upload.TagIDs) > 0 {
		tags, err := s.documents.FindTagsByID(ctx, upload.TagIDs)
		if err != nil {
			return nil, fmt.Errorf("find tags: %w", err)
		}
		if err := s.documents.ReplaceTags(ctx, doc, tags); err != nil {
			return nil, fmt.Errorf("tag document: %w", err)
		}
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "document",
		EntityID: doc.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("document %q uploaded", doc.Title),
	})
	return doc, nil
}

// GetDocument returns metadata for a document the viewer may access.
func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID, viewer *model.User) (*model.Document, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	if !doc.CanAccess(viewer) {
		return nil, apperrors.ErrNotFound
	}
	return doc, nil
}

// Download opens the file content and counts the download. The caller closes
// the reader.
func (s *documentService) Download(ctx context.Context, id uuid.UUID, viewer *model.User) (*model.Document, io.ReadCloser, error) {
	doc, err := s.GetDocument(ctx, id, viewer)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.files.Open(doc.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}

	if err := s.documents.IncrementDownloadCount(ctx, doc.ID); err != nil {
		content.Close()
		return nil, nil, fmt.Errorf("count download: %w", err)
	}
	return doc, content, nil
}

// DeleteDocument removes metadata and stored bytes. Board only.
func (s *documentService) DeleteDocument(ctx context.Context, id uuid.UUID, actor *model.User) error {
	if actor == nil || !actor.IsBoardMember() {
		return apperrors.ErrPermissionDenied
	}

	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find document: %w", err)
	}

	if err := s.documents.Delete(ctx, doc); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.files.Delete(doc.StorageKey); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditDelete,
		Entity:   "document",
		EntityID: doc.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("document %q deleted", doc.Title),
	})
	return nil
}

// ListDocuments returns documents the viewer may access.
func (s *documentService) ListDocuments(ctx context.Context, filter repository.DocumentFilter, viewer *model.User) ([]model.Document, int64, error) {
	docs, total, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	visible := docs[:0]
	for i := range docs {
		if docs[i].CanAccess(viewer) {
			visible = append(visible, docs[i])
		}
	}
	return visible, total, nil
}

// CreateTag adds a tag to the catalogue. Board only.
func (s *documentService) CreateTag(ctx context.Context, name, color string, actor *model.User) (*model.DocumentTag, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	tag := &model.DocumentTag{
		Name: name,
		Slug: slug.Make(name),
	}
	if color != "" {
		tag.Color = color
	}
	if err := s.documents.CreateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// ListTags returns the tag catalogue.
func (s *documentService) ListTags(ctx context.Context) ([]model.DocumentTag, error) {
	return s.documents.ListTags(ctx)
}
