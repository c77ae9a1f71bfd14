package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// NewsFilter narrows news listings.
type NewsFilter struct {
	Visibilities []model.Visibility
	CategorySlug string
	Type         model.NewsType
	Search       string
	Offset       int
	Limit        int
}

// NewsRepository defines persistence for news posts and categories.
type NewsRepository interface {
	CreateCategory(ctx context.Context, category *model.NewsCategory) error
	ListCategories(ctx context.Context) ([]model.NewsCategory, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*model.NewsCategory, error)

	Create(ctx context.Context, post *model.NewsPost) error
	Update(ctx context.Context, post *model.NewsPost) error
	Delete(ctx context.Context, post *model.NewsPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NewsPost, error)
	FindBySlug(ctx context.Context, slug string) (*model.NewsPost, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter NewsFilter) ([]model.NewsPost, int64, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

type newsRepository struct {
	db *gorm.DB
}

// NewNewsRepository creates a new news repository.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

func (r *newsRepository) CreateCategory(ctx context.Context, category *model.NewsCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *newsRepository) ListCategories(ctx context.Context) ([]model.NewsCategory, error) {
	var categories []model.NewsCategory
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (r *newsRepository) FindCategoryBySlug(ctx context.Context, slug string) (*model.NewsCategory, error) {
	var category model.NewsCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *newsRepository) Create(ctx context.Context, post *model.NewsPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *newsRepository) Update(ctx context.Context, post *model.NewsPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *newsRepository) Delete(ctx context.Context, post *model.NewsPost) error {
	return r.db.WithContext(ctx).Delete(post).Error
}

func (r *newsRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.NewsPost, error) {
	var post model.NewsPost
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Category").Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *newsRepository) FindBySlug(ctx context.Context, slug string) (*model.NewsPost, error) {
	var post model.NewsPost
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Category").Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *newsRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.NewsPost{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// List returns published posts matching the filter, newest first, plus the
// total count.
func (r *newsRepository) List(ctx context.Context, filter NewsFilter) ([]model.NewsPost, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.NewsPost{}).Where("is_published = ?", true)

	if len(filter.Visibilities) > 0 {
		q = q.Where("visibility IN ?", filter.Visibilities)
	}
	if filter.CategorySlug != "" {
		q = q.Joins("JOIN news_categories ON news_categories.id = news_posts.category_id").
			Where("news_categories.slug = ?", filter.CategorySlug)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []model.NewsPost
	err := q.Preload("Author").Preload("Category").
		Order("published_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// IncrementViewCount bumps the view counter without loading the row.
func (r *newsRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.NewsPost{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}
