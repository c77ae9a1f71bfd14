package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// NewsInput carries the editable fields of a news post.
type NewsInput struct {
	Title      string
	Content    string
	Excerpt    string
	CategoryID *uuid.UUID
	Type       model.NewsType
	Visibility model.Visibility
	ImageURL   string
}

// NewsService manages news posts and categories. Post content is stored as
// sanitized HTML.
type NewsService interface {
	CreatePost(ctx context.Context, input NewsInput, author *model.User) (*model.NewsPost, error)
	UpdatePost(ctx context.Context, id uuid.UUID, input NewsInput, actor *model.User) (*model.NewsPost, error)
	PublishPost(ctx context.Context, id uuid.UUID, publish bool, actor *model.User) (*model.NewsPost, error)
	DeletePost(ctx context.Context, id uuid.UUID, actor *model.User) error
	GetPost(ctx context.Context, postSlug string, viewer *model.User) (*model.NewsPost, error)
	ListPosts(ctx context.Context, filter repository.NewsFilter, viewer *model.User) ([]model.NewsPost, int64, error)

	CreateCategory(ctx context.Context, name, description string, actor *model.User) (*model.NewsCategory, error)
	ListCategories(ctx context.Context) ([]model.NewsCategory, error)
}

type newsService struct {
	news      repository.NewsRepository
	sanitizer *bluemonday.Policy
	recorder  audit.Recorder
}

// NewNewsService creates a new news service.
func NewNewsService(news repository.NewsRepository, recorder audit.Recorder) NewsService {
	return &newsService{
		news:      news,
		sanitizer: bluemonday.UGCPolicy(),
		recorder:  recorder,
	}
}

// CreatePost creates an unpublished news post authored by the actor.
func (s *newsService) CreatePost(ctx context.Context, input NewsInput, author *model.User) (*model.NewsPost, error) {
	if author == nil || !author.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	postSlug, err := s.uniqueSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	post := &model.NewsPost{
		Title:      input.Title,
		Slug:       postSlug,
		Content:    s.sanitizer.Sanitize(input.Content),
		Excerpt:    input.Excerpt,
		AuthorID:   author.ID,
		CategoryID: input.CategoryID,
		Type:       input.Type,
		Visibility: input.Visibility,
		ImageURL:   input.ImageURL,
	}
	if post.Type == "" {
		post.Type = model.NewsGeneral
	}
	if post.Visibility == "" {
		post.Visibility = model.VisibilityPublic
	}
	if err := s.news.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "news_post",
		EntityID: post.ID.String(),
		ActorID:  &author.ID,
		Summary:  fmt.Sprintf("news post %q created", post.Title),
	})
	return post, nil
}

func (s *newsService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.news.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// UpdatePost applies changes. Author or admin only.
func (s *newsService) UpdatePost(ctx context.Context, id uuid.UUID, input NewsInput, actor *model.User) (*model.NewsPost, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManagePost(post, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	if input.Title != "" {
		post.Title = input.Title
	}
	if input.Content != "" {
		post.Content = s.sanitizer.Sanitize(input.Content)
	}
	if input.Excerpt != "" {
		post.Excerpt = input.Excerpt
	}
	if input.CategoryID != nil {
		post.CategoryID = input.CategoryID
	}
	if input.Type != "" {
		post.Type = input.Type
	}
	if input.Visibility != "" {
		post.Visibility = input.Visibility
	}
	if input.ImageURL != "" {
		post.ImageURL = input.ImageURL
	}

	if err := s.news.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditUpdate,
		Entity:   "news_post",
		EntityID: post.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("news post %q updated", post.Title),
	})
	return post, nil
}

// PublishPost publishes or retracts a post; the publication timestamp is set
// on first publish only.
func (s *newsService) PublishPost(ctx context.Context, id uuid.UUID, publish bool, actor *model.User) (*model.NewsPost, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManagePost(post, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	post.IsPublished = publish
	if publish && post.PublishedAt == nil {
		now := time.Now()
		post.PublishedAt = &now
	}
	if err := s.news.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	summary := "news post retracted"
	if publish {
		summary = "news post published"
	}
	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "news_post",
		EntityID: post.ID.String(),
		ActorID:  &actor.ID,
		Summary:  summary,
	})
	return post, nil
}

// DeletePost removes a post. Author or admin only.
func (s *newsService) DeletePost(ctx context.Context, id uuid.UUID, actor *model.User) error {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}
	if !canManagePost(post, actor) {
		return apperrors.ErrPermissionDenied
	}

	if err := s.news.Delete(ctx, post); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditDelete,
		Entity:   "news_post",
		EntityID: post.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("news post %q deleted", post.Title),
	})
	return nil
}

func (s *newsService) findPost(ctx context.Context, id uuid.UUID) (*model.NewsPost, error) {
	post, err := s.news.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}

func canManagePost(post *model.NewsPost, actor *model.User) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return actor.IsBoardMember() && post.AuthorID == actor.ID
}

// GetPost resolves a published post by slug, enforces visibility and counts
// the view. Unpublished posts are visible only to their manager.
func (s *newsService) GetPost(ctx context.Context, postSlug string, viewer *model.User) (*model.NewsPost, error) {
	post, err := s.news.FindBySlug(ctx, postSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}

	if !post.IsPublished && !canManagePost(post, viewer) {
		return nil, apperrors.ErrNotFound
	}
	if !post.CanView(viewer) {
		return nil, apperrors.ErrNotFound
	}

	if err := s.news.IncrementViewCount(ctx, post.ID); err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}
	return post, nil
}

// ListPosts lists published posts the viewer may see.
func (s *newsService) ListPosts(ctx context.Context, filter repository.NewsFilter, viewer *model.User) ([]model.NewsPost, int64, error) {
	filter.Visibilities = visibleTiers(viewer)
	return s.news.List(ctx, filter)
}

// CreateCategory adds a news category.
func (s *newsService) CreateCategory(ctx context.Context, name, description string, actor *model.User) (*model.NewsCategory, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	category := &model.NewsCategory{
		Name:        name,
		Slug:        slug.Make(name),
		Description: description,
	}
	if err := s.news.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// ListCategories returns all news categories.
func (s *newsService) ListCategories(ctx context.Context) ([]model.NewsCategory, error) {
	return s.news.ListCategories(ctx)
}
