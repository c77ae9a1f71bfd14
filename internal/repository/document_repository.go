package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	FolderID *uuid.UUID
	TagSlug  string
	Search   string
	Offset   int
	Limit    int
}

// DocumentRepository defines persistence for folders, documents and tags.
type DocumentRepository interface {
	CreateFolder(ctx context.Context, folder *model.DocumentFolder) error
	UpdateFolder(ctx context.Context, folder *model.DocumentFolder) error
	DeleteFolder(ctx context.Context, folder *model.DocumentFolder) error
	FindFolderByID(ctx context.Context, id uuid.UUID) (*model.DocumentFolder, error)
	ListFolders(ctx context.Context, parentID *uuid.UUID) ([]model.DocumentFolder, error)
	CountFolderContents(ctx context.Context, folderID uuid.UUID) (int64, error)

	Create(ctx context.Context, doc *model.Document) error
	Update(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error)
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) error
	ReplaceTags(ctx context.Context, doc *model.Document, tags []model.DocumentTag) error

	CreateTag(ctx context.Context, tag *model.DocumentTag) error
	ListTags(ctx context.Context) ([]model.DocumentTag, error)
	FindTagBySlug(ctx context.Context, slug string) (*model.DocumentTag, error)
	FindTagsByID(ctx context.Context, ids []uuid.UUID) ([]model.DocumentTag, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) CreateFolder(ctx context.Context, folder *model.DocumentFolder) error {
	return r.db.WithContext(ctx).Create(folder).Error
}

func (r *documentRepository) UpdateFolder(ctx context.Context, folder *model.DocumentFolder) error {
	return r.db.WithContext(ctx).Save(folder).Error
}

func (r *documentRepository) DeleteFolder(ctx context.Context, folder *model.DocumentFolder) error {
	return r.db.WithContext(ctx).Delete(folder).Error
}

func (r *documentRepository) FindFolderByID(ctx context.Context, id uuid.UUID) (*model.DocumentFolder, error) {
	var folder model.DocumentFolder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&folder).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListFolders returns folders under the given parent; nil lists top-level ones.
func (r *documentRepository) ListFolders(ctx context.Context, parentID *uuid.UUID) ([]model.DocumentFolder, error) {
	q := r.db.WithContext(ctx)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}

	var folders []model.DocumentFolder
	err := q.Order("name").Find(&folders).Error
	return folders, err
}

// CountFolderContents counts documents plus direct subfolders, used to refuse
// deleting non-empty folders.
func (r *documentRepository) CountFolderContents(ctx context.Context, folderID uuid.UUID) (int64, error) {
	var docs int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("folder_id = ?", folderID).Count(&docs).Error; err != nil {
		return 0, err
	}
	var subfolders int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentFolder{}).Where("parent_id = ?", folderID).Count(&subfolders).Error; err != nil {
		return 0, err
	}
	return docs + subfolders, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) Update(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *documentRepository) Delete(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Delete(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Preload("Folder").Preload("Tags").Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns a page of documents matching the filter plus the total count.
func (r *documentRepository) List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Document{})
	if filter.FolderID != nil {
		q = q.Where("folder_id = ?", *filter.FolderID)
	}
	if filter.TagSlug != "" {
		q = q.Joins("JOIN document_tag_links ON document_tag_links.document_id = documents.id").
			Joins("JOIN document_tags ON document_tags.id = document_tag_links.document_tag_id").
			Where("document_tags.slug = ?", filter.TagSlug)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ? OR file_name LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []model.Document
	err := q.Preload("Folder").Preload("Tags").
		Order("created_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// IncrementDownloadCount bumps the download counter without loading the row.
func (r *documentRepository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

// ReplaceTags swaps the document's tag set for the given one.
func (r *documentRepository) ReplaceTags(ctx context.Context, doc *model.Document, tags []model.DocumentTag) error {
	return r.db.WithContext(ctx).Model(doc).Association("Tags").Replace(tags)
}

func (r *documentRepository) CreateTag(ctx context.Context, tag *model.DocumentTag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *documentRepository) ListTags(ctx context.Context) ([]model.DocumentTag, error) {
	var tags []model.DocumentTag
	err := r.db.WithContext(ctx).Order("name").Find(&tags).Error
	return tags, err
}

func (r *documentRepository) FindTagBySlug(ctx context.Context, slug string) (*model.DocumentTag, error) {
	var tag model.DocumentTag
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *documentRepository) FindTagsByID(ctx context.Context, ids []uuid.UUID) ([]model.DocumentTag, error) {
	var tags []model.DocumentTag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}
