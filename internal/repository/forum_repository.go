package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// ThreadFilter narrows thread listings within a category.
type ThreadFilter struct {
	CategoryID   *uuid.UUID
	Search       string
	ApprovedOnly bool
	Offset       int
	Limit        int
}

// ForumRepository defines persistence for the discussion boards: categories,
// threads, replies, votes, flags, notifications and moderation records.
type ForumRepository interface {
	CreateCategory(ctx context.Context, category *model.ForumCategory) error
	UpdateCategory(ctx context.Context, category *model.ForumCategory) error
	ListCategories(ctx context.Context, activeOnly bool) ([]model.ForumCategory, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.ForumCategory, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*model.ForumCategory, error)

	CreateThread(ctx context.Context, thread *model.Thread) error
	UpdateThread(ctx context.Context, thread *model.Thread) error
	DeleteThread(ctx context.Context, thread *model.Thread) error
	FindThreadByID(ctx context.Context, id uuid.UUID) (*model.Thread, error)
	FindThreadBySlug(ctx context.Context, slug string) (*model.Thread, error)
	ThreadSlugExists(ctx context.Context, slug string) (bool, error)
	ListThreads(ctx context.Context, filter ThreadFilter) ([]model.Thread, int64, error)
	IncrementThreadViews(ctx context.Context, id uuid.UUID) error
	TouchThreadActivity(ctx context.Context, id uuid.UUID, at time.Time, replyDelta int) error

	CreateReply(ctx context.Context, reply *model.Reply) error
	UpdateReply(ctx context.Context, reply *model.Reply) error
	DeleteReply(ctx context.Context, reply *model.Reply) error
	FindReplyByID(ctx context.Context, id uuid.UUID) (*model.Reply, error)
	ListReplies(ctx context.Context, threadID uuid.UUID, offset, limit int) ([]model.Reply, int64, error)

	FindVote(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, userID uint) (*model.Vote, error)
	CreateVote(ctx context.Context, vote *model.Vote) error
	UpdateVote(ctx context.Context, vote *model.Vote) error
	DeleteVote(ctx context.Context, vote *model.Vote) error
	CountVotes(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, voteType model.VoteType) (int64, error)

	CreateFlag(ctx context.Context, flag *model.Flag) error
	UpdateFlag(ctx context.Context, flag *model.Flag) error
	FindFlagByID(ctx context.Context, id uuid.UUID) (*model.Flag, error)
	ListFlags(ctx context.Context, status model.FlagStatus, offset, limit int) ([]model.Flag, int64, error)
	HasFlagged(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, reporterID uint) (bool, error)

	CreateNotification(ctx context.Context, n *model.ForumNotification) error
	ListNotifications(ctx context.Context, recipientID uint, unreadOnly bool, offset, limit int) ([]model.ForumNotification, int64, error)
	MarkNotificationsRead(ctx context.Context, recipientID uint, ids []uuid.UUID) error
	CountUnreadNotifications(ctx context.Context, recipientID uint) (int64, error)

	CreateModeratorAction(ctx context.Context, action *model.ModeratorAction) error
	ListModeratorActions(ctx context.Context, offset, limit int) ([]model.ModeratorAction, int64, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository creates a new forum repository.
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) CreateCategory(ctx context.Context, category *model.ForumCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *forumRepository) UpdateCategory(ctx context.Context, category *model.ForumCategory) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *forumRepository) ListCategories(ctx context.Context, activeOnly bool) ([]model.ForumCategory, error) {
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var categories []model.ForumCategory
	err := q.Order("sort_order, name").Find(&categories).Error
	return categories, err
}

func (r *forumRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.ForumCategory, error) {
	var category model.ForumCategory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *forumRepository) FindCategoryBySlug(ctx context.Context, slug string) (*model.ForumCategory, error) {
	var category model.ForumCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *forumRepository) CreateThread(ctx context.Context, thread *model.Thread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *forumRepository) UpdateThread(ctx context.Context, thread *model.Thread) error {
	return r.db.WithContext(ctx).Save(thread).Error
}

func (r *forumRepository) DeleteThread(ctx context.Context, thread *model.Thread) error {
	return r.db.WithContext(ctx).Delete(thread).Error
}

func (r *forumRepository) FindThreadByID(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	var thread model.Thread
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Category").Where("id = ?", id).First(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *forumRepository) FindThreadBySlug(ctx context.Context, slug string) (*model.Thread, error) {
	var thread model.Thread
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Category").Where("slug = ?", slug).First(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *forumRepository) ThreadSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Thread{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// ListThreads returns pinned threads first, then by recent activity.
func (r *forumRepository) ListThreads(ctx context.Context, filter ThreadFilter) ([]model.Thread, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Thread{})
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ApprovedOnly {
		q = q.Where("is_approved = ?", true)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var threads []model.Thread
	err := q.Preload("Author").
		Order("is_pinned DESC, last_activity_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&threads).Error
	if err != nil {
		return nil, 0, err
	}
	return threads, total, nil
}

// IncrementThreadViews bumps the view counter without loading the row.
func (r *forumRepository) IncrementThreadViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// TouchThreadActivity updates the activity timestamp and adjusts the reply
// counter in one statement.
func (r *forumRepository) TouchThreadActivity(ctx context.Context, id uuid.UUID, at time.Time, replyDelta int) error {
	updates := map[string]interface{}{"last_activity_at": at}
	if replyDelta != 0 {
		updates["reply_count"] = gorm.Expr("reply_count + ?", replyDelta)
	}
	return r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

func (r *forumRepository) CreateReply(ctx context.Context, reply *model.Reply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *forumRepository) UpdateReply(ctx context.Context, reply *model.Reply) error {
	return r.db.WithContext(ctx).Save(reply).Error
}

func (r *forumRepository) DeleteReply(ctx context.Context, reply *model.Reply) error {
	return r.db.WithContext(ctx).Delete(reply).Error
}

func (r *forumRepository) FindReplyByID(ctx context.Context, id uuid.UUID) (*model.Reply, error) {
	var reply model.Reply
	if err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&reply).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

func (r *forumRepository) ListReplies(ctx context.Context, threadID uuid.UUID, offset, limit int) ([]model.Reply, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Reply{}).Where("thread_id = ? AND is_approved = ?", threadID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var replies []model.Reply
	err := q.Preload("Author").Order("created_at ASC").Offset(offset).Limit(limit).Find(&replies).Error
	if err != nil {
		return nil, 0, err
	}
	return replies, total, nil
}

func (r *forumRepository) FindVote(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, userID uint) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND user_id = ?", target, targetID, userID).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *forumRepository) CreateVote(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *forumRepository) UpdateVote(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Save(vote).Error
}

func (r *forumRepository) DeleteVote(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Delete(vote).Error
}

func (r *forumRepository) CountVotes(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, voteType model.VoteType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("target_type = ? AND target_id = ? AND type = ?", target, targetID, voteType).
		Count(&count).Error
	return count, err
}

func (r *forumRepository) CreateFlag(ctx context.Context, flag *model.Flag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}

func (r *forumRepository) UpdateFlag(ctx context.Context, flag *model.Flag) error {
	return r.db.WithContext(ctx).Save(flag).Error
}

func (r *forumRepository) FindFlagByID(ctx context.Context, id uuid.UUID) (*model.Flag, error) {
	var flag model.Flag
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&flag).Error; err != nil {
		return nil, err
	}
	return &flag, nil
}

func (r *forumRepository) ListFlags(ctx context.Context, status model.FlagStatus, offset, limit int) ([]model.Flag, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Flag{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var flags []model.Flag
	err := q.Order("created_at ASC").Offset(offset).Limit(limit).Find(&flags).Error
	if err != nil {
		return nil, 0, err
	}
	return flags, total, nil
}

// HasFlagged reports whether the reporter already has an open flag on the target.
func (r *forumRepository) HasFlagged(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, reporterID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Flag{}).
		Where("target_type = ? AND target_id = ? AND reporter_id = ? AND status = ?",
			target, targetID, reporterID, model.FlagPending).
		Count(&count).Error
	return count > 0, err
}

func (r *forumRepository) CreateNotification(ctx context.Context, n *model.ForumNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *forumRepository) ListNotifications(ctx context.Context, recipientID uint, unreadOnly bool, offset, limit int) ([]model.ForumNotification, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ForumNotification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []model.ForumNotification
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkNotificationsRead marks the given notifications read; an empty id list
// marks all of the recipient's notifications.
func (r *forumRepository) MarkNotificationsRead(ctx context.Context, recipientID uint, ids []uuid.UUID) error {
	q := r.db.WithContext(ctx).Model(&model.ForumNotification{}).Where("recipient_id = ?", recipientID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	return q.UpdateColumn("is_read", true).Error
}

func (r *forumRepository) CountUnreadNotifications(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ForumNotification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *forumRepository) CreateModeratorAction(ctx context.Context, action *model.ModeratorAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *forumRepository) ListModeratorActions(ctx context.Context, offset, limit int) ([]model.ModeratorAction, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ModeratorAction{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var actions []model.ModeratorAction
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&actions).Error
	if err != nil {
		return nil, 0, err
	}
	return actions, total, nil
}
