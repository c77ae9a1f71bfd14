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

// VoteCounts summarizes votes on a thread or reply.
type VoteCounts struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

// ForumService manages the discussion boards: categories, threads, replies,
// voting, flagging, notifications and moderation.
type ForumService interface {
	CreateCategory(ctx context.Context, category *model.ForumCategory, actor *model.User) error
	ListCategories(ctx context.Context, viewer *model.User) ([]model.ForumCategory, error)

	CreateThread(ctx context.Context, categorySlug, title, content, tags string, author *model.User) (*model.Thread, error)
	GetThread(ctx context.Context, threadSlug string, viewer *model.User) (*model.Thread, error)
	ListThreads(ctx context.Context, categorySlug, search string, offset, limit int, viewer *model.User) ([]model.Thread, int64, error)
	EditThread(ctx context.Context, threadID uuid.UUID, title, content string, actor *model.User) (*model.Thread, error)
	ModerateThread(ctx context.Context, threadID uuid.UUID, action model.ModerationAction, reason string, moderator *model.User) error

	CreateReply(ctx context.Context, threadID uuid.UUID, content string, parentReplyID *uuid.UUID, author *model.User) (*model.Reply, error)
	EditReply(ctx context.Context, replyID uuid.UUID, content string, actor *model.User) (*model.Reply, error)
	DeleteReply(ctx context.Context, replyID uuid.UUID, actor *model.User) error
	ListReplies(ctx context.Context, threadID uuid.UUID, offset, limit int, viewer *model.User) ([]model.Reply, int64, error)

	Vote(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, voteType model.VoteType, voter *model.User) (*VoteCounts, error)
	CountVotes(ctx context.Context, target model.ContentTarget, targetID uuid.UUID) (*VoteCounts, error)

	FlagContent(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, reason model.FlagReason, description string, reporter *model.User) (*model.Flag, error)
	ReviewFlag(ctx context.Context, flagID uuid.UUID, status model.FlagStatus, moderator *model.User) (*model.Flag, error)
	ListFlags(ctx context.Context, status model.FlagStatus, offset, limit int, moderator *model.User) ([]model.Flag, int64, error)
	ListModerationActions(ctx context.Context, offset, limit int, moderator *model.User) ([]model.ModeratorAction, int64, error)

	ListNotifications(ctx context.Context, userID uint, unreadOnly bool, offset, limit int) ([]model.ForumNotification, int64, error)
	MarkNotificationsRead(ctx context.Context, userID uint, ids []uuid.UUID) error
	CountUnreadNotifications(ctx context.Context, userID uint) (int64, error)
}

type forumService struct {
	forum     repository.ForumRepository
	sanitizer *bluemonday.Policy
	recorder  audit.Recorder
}

// NewForumService creates a new forum service.
func NewForumService(forum repository.ForumRepository, recorder audit.Recorder) ForumService {
	return &forumService{
		forum:     forum,
		sanitizer: bluemonday.UGCPolicy(),
		recorder:  recorder,
	}
}

// CreateCategory adds a board section. Admin only.
func (s *forumService) CreateCategory(ctx context.Context, category *model.ForumCategory, actor *model.User) error {
	if actor == nil || !actor.IsAdmin() {
		return apperrors.ErrPermissionDenied
	}
	if category.Slug == "" {
		category.Slug = slug.Make(category.Name)
	}
	if err := s.forum.CreateCategory(ctx, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// ListCategories returns active categories the viewer may read.
func (s *forumService) ListCategories(ctx context.Context, viewer *model.User) ([]model.ForumCategory, error) {
	categories, err := s.forum.ListCategories(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	visible := categories[:0]
	for _, c := range categories {
		if c.CanUserView(viewer) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// CreateThread opens a discussion in a category the author may post to.
func (s *forumService) CreateThread(ctx context.Context, categorySlug, title, content, tags string, author *model.User) (*model.Thread, error) {
	category, err := s.forum.FindCategoryBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	if !category.CanUserPost(author) {
		return nil, apperrors.ErrPermissionDenied
	}

	threadSlug, err := s.uniqueThreadSlug(ctx, title)
	if err != nil {
		return nil, err
	}

	thread := &model.Thread{
		Title:      title,
		Slug:       threadSlug,
		Content:    s.sanitizer.Sanitize(content),
		CategoryID: category.ID,
		AuthorID:   author.ID,
		IsApproved: true,
		Tags:       tags,
	}
	if err := s.forum.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "thread",
		EntityID: thread.ID.String(),
		ActorID:  &author.ID,
		Summary:  fmt.Sprintf("thread %q opened", thread.Title),
	})
	return thread, nil
}

func (s *forumService) uniqueThreadSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.forum.ThreadSlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// GetThread resolves a thread by slug, enforces the category's view gate and
// counts the view.
func (s *forumService) GetThread(ctx context.Context, threadSlug string, viewer *model.User) (*model.Thread, error) {
	thread, err := s.forum.FindThreadBySlug(ctx, threadSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find thread: %w", err)
	}

	if !thread.Category.CanUserView(viewer) {
		return nil, apperrors.ErrNotFound
	}
	if !thread.IsApproved && (viewer == nil || (!viewer.IsBoardMember() && viewer.ID != thread.AuthorID)) {
		return nil, apperrors.ErrNotFound
	}

	if err := s.forum.IncrementThreadViews(ctx, thread.ID); err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}
	return thread, nil
}

// ListThreads lists approved threads in a category the viewer may read.
func (s *forumService) ListThreads(ctx context.Context, categorySlug, search string, offset, limit int, viewer *model.User) ([]model.Thread, int64, error) {
	filter := repository.ThreadFilter{
		Search:       search,
		ApprovedOnly: viewer == nil || !viewer.IsBoardMember(),
		Offset:       offset,
		Limit:        limit,
	}

	if categorySlug != "" {
		category, err := s.forum.FindCategoryBySlug(ctx, categorySlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, apperrors.ErrNotFound
			}
			return nil, 0, fmt.Errorf("find category: %w", err)
		}
		if !category.CanUserView(viewer) {
			return nil, 0, apperrors.ErrPermissionDenied
		}
		filter.CategoryID = &category.ID
	}

	return s.forum.ListThreads(ctx, filter)
}

// EditThread updates a thread's title or content. Author or board only;
// locked threads only the board may touch.
func (s *forumService) EditThread(ctx context.Context, threadID uuid.UUID, title, content string, actor *model.User) (*model.Thread, error) {
	thread, err := s.findThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (actor.ID != thread.AuthorID && !actor.IsBoardMember()) {
		return nil, apperrors.ErrPermissionDenied
	}
	if thread.IsLocked && !actor.IsBoardMember() {
		return nil, apperrors.ErrThreadLocked
	}

	if title != "" {
		thread.Title = title
	}
	if content != "" {
		thread.Content = s.sanitizer.Sanitize(content)
	}
	if err := s.forum.UpdateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("update thread: %w", err)
	}
	return thread, nil
}

// ModerateThread applies a moderation action and records it in the
// moderation trail.
func (s *forumService) ModerateThread(ctx context.Context, threadID uuid.UUID, action model.ModerationAction, reason string, moderator *model.User) error {
	if moderator == nil || !moderator.IsBoardMember() {
		return apperrors.ErrPermissionDenied
	}

	thread, err := s.findThread(ctx, threadID)
	if err != nil {
		return err
	}

	switch action {
	case model.ModerationLock:
		thread.IsLocked = true
	case model.ModerationUnlock:
		thread.IsLocked = false
	case model.ModerationPin:
		thread.IsPinned = true
	case model.ModerationUnpin:
		thread.IsPinned = false
	case model.ModerationApprove:
		thread.IsApproved = true
	case model.ModerationReject:
		thread.IsApproved = false
	case model.ModerationDelete:
		if err := s.forum.DeleteThread(ctx, thread); err != nil {
			return fmt.Errorf("delete thread: %w", err)
		}
	default:
		return fmt.Errorf("unknown moderation action %q", action)
	}

	if action != model.ModerationDelete {
		if err := s.forum.UpdateThread(ctx, thread); err != nil {
			return fmt.Errorf("update thread: %w", err)
		}
	}

	record := &model.ModeratorAction{
		ModeratorID: &moderator.ID,
		Action:      action,
		TargetType:  model.TargetThread,
		TargetID:    thread.ID,
		Reason:      reason,
	}
	if err := s.forum.CreateModeratorAction(ctx, record); err != nil {
		return fmt.Errorf("record moderation: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "thread",
		EntityID: thread.ID.String(),
		ActorID:  &moderator.ID,
		Summary:  fmt.Sprintf("thread %s", action),
	})

	s.notify(ctx, thread.AuthorID, moderator.ID, model.NotifyModeration, model.TargetThread, thread.ID,
		fmt.Sprintf("Your thread %q was subject to moderation: %s", thread.Title, action))
	return nil
}

func (s *forumService) findThread(ctx context.Context, id uuid.UUID) (*model.Thread, error) {
	thread, err := s.forum.FindThreadByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find thread: %w", err)
	}
	return thread, nil
}

// CreateReply posts a reply. The thread must be unlocked and the author must
// clear the category's post gate; the thread author is notified.
func (s *forumService) CreateReply(ctx context.Context, threadID uuid.UUID, content string, parentReplyID *uuid.UUID, author *model.User) (*model.Reply, error) {
	thread, err := s.findThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.Category.CanUserPost(author) {
		return nil, apperrors.ErrPermissionDenied
	}
	if thread.IsLocked {
		return nil, apperrors.ErrThreadLocked
	}

	if parentReplyID != nil {
		parent, err := s.findReply(ctx, *parentReplyID)
		if err != nil {
			return nil, err
		}
		if parent.ThreadID != thread.ID {
			return nil, apperrors.ErrNotFound
		}
	}

	reply := &model.Reply{
		ThreadID:      thread.ID,
		AuthorID:      author.ID,
		Content:       s.sanitizer.Sanitize(content),
		ParentReplyID: parentReplyID,
		IsApproved:    true,
	}
	if err := s.forum.CreateReply(ctx, reply); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}

	if err := s.forum.TouchThreadActivity(ctx, thread.ID, time.Now(), 1); err != nil {
		return nil, fmt.Errorf("touch thread: %w", err)
	}

	s.notify(ctx, thread.AuthorID, author.ID, model.NotifyReply, model.TargetThread, thread.ID,
		fmt.Sprintf("%s replied to your thread %q", author.FullName(), thread.Title))
	return reply, nil
}

// EditReply updates a reply's content and marks it edited. Author or board.
func (s *forumService) EditReply(ctx context.Context, replyID uuid.UUID, content string, actor *model.User) (*model.Reply, error) {
	reply, err := s.findReply(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (actor.ID != reply.AuthorID && !actor.IsBoardMember()) {
		return nil, apperrors.ErrPermissionDenied
	}

	reply.Content = s.sanitizer.Sanitize(content)
	reply.IsEdited = true
	if err := s.forum.UpdateReply(ctx, reply); err != nil {
		return nil, fmt.Errorf("update reply: %w", err)
	}
	return reply, nil
}

// DeleteReply removes a reply. Author or board.
func (s *forumService) DeleteReply(ctx context.Context, replyID uuid.UUID, actor *model.User) error {
	reply, err := s.findReply(ctx, replyID)
	if err != nil {
		return err
	}
	if actor == nil || (actor.ID != reply.AuthorID && !actor.IsBoardMember()) {
		return apperrors.ErrPermissionDenied
	}

	if err := s.forum.DeleteReply(ctx, reply); err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}
	if err := s.forum.TouchThreadActivity(ctx, reply.ThreadID, time.Now(), -1); err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	return nil
}

func (s *forumService) findReply(ctx context.Context, id uuid.UUID) (*model.Reply, error) {
	reply, err := s.forum.FindReplyByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find reply: %w", err)
	}
	return reply, nil
}

// ListReplies returns a thread's replies in chronological order.
func (s *forumService) ListReplies(ctx context.Context, threadID uuid.UUID, offset, limit int, viewer *model.User) ([]model.Reply, int64, error) {
	thread, err := s.findThread(ctx, threadID)
	if err != nil {
		return nil, 0, err
	}
	if !thread.Category.CanUserView(viewer) {
		return nil, 0, apperrors.ErrPermissionDenied
	}
	return s.forum.ListReplies(ctx, threadID, offset, limit)
}

// Vote casts, switches or withdraws a vote: voting the same way twice removes
// the vote, voting the other way switches it.
func (s *forumService) Vote(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, voteType model.VoteType, voter *model.User) (*VoteCounts, error) {
	if voter == nil || !voter.IsMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	existing, err := s.forum.FindVote(ctx, target, targetID, voter.ID)
	switch {
	case err == nil && existing.Type == voteType:
		if err := s.forum.DeleteVote(ctx, existing); err != nil {
			return nil, fmt.Errorf("delete vote: %w", err)
		}
	case err == nil:
		existing.Type = voteType
		if err := s.forum.UpdateVote(ctx, existing); err != nil {
			return nil, fmt.Errorf("update vote: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		vote := &model.Vote{
			TargetType: target,
			TargetID:   targetID,
			UserID:     voter.ID,
			Type:       voteType,
		}
		if err := s.forum.CreateVote(ctx, vote); err != nil {
			return nil, fmt.Errorf("create vote: %w", err)
		}
	default:
		return nil, fmt.Errorf("find vote: %w", err)
	}

	return s.CountVotes(ctx, target, targetID)
}

// CountVotes returns the vote tallies for a thread or reply.
func (s *forumService) CountVotes(ctx context.Context, target model.ContentTarget, targetID uuid.UUID) (*VoteCounts, error) {
	up, err := s.forum.CountVotes(ctx, target, targetID, model.VoteUp)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	down, err := s.forum.CountVotes(ctx, target, targetID, model.VoteDown)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	return &VoteCounts{Upvotes: up, Downvotes: down}, nil
}

// FlagContent reports a thread or reply. One open flag per reporter per
// target.
func (s *forumService) FlagContent(ctx context.Context, target model.ContentTarget, targetID uuid.UUID, reason model.FlagReason, description string, reporter *model.User) (*model.Flag, error) {
	if reporter == nil || !reporter.IsMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	flagged, err := s.forum.HasFlagged(ctx, target, targetID, reporter.ID)
	if err != nil {
		return nil, fmt.Errorf("check flag: %w", err)
	}
	if flagged {
		return nil, apperrors.ErrAlreadyApplied
	}

	flag := &model.Flag{
		TargetType:  target,
		TargetID:    targetID,
		ReporterID:  reporter.ID,
		Reason:      reason,
		Description: description,
		Status:      model.FlagPending,
	}
	if err := s.forum.CreateFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("create flag: %w", err)
	}
	return flag, nil
}

// ReviewFlag settles a report.
func (s *forumService) ReviewFlag(ctx context.Context, flagID uuid.UUID, status model.FlagStatus, moderator *model.User) (*model.Flag, error) {
	if moderator == nil || !moderator.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	flag, err := s.forum.FindFlagByID(ctx, flagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find flag: %w", err)
	}

	now := time.Now()
	flag.Status = status
	flag.ReviewedByID = &moderator.ID
	flag.ReviewedAt = &now
	if err := s.forum.UpdateFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("update flag: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "flag",
		EntityID: flag.ID.String(),
		ActorID:  &moderator.ID,
		Summary:  fmt.Sprintf("flag marked %s", status),
	})
	return flag, nil
}

// ListFlags returns reports for the moderation queue.
func (s *forumService) ListFlags(ctx context.Context, status model.FlagStatus, offset, limit int, moderator *model.User) ([]model.Flag, int64, error) {
	if moderator == nil || !moderator.IsBoardMember() {
		return nil, 0, apperrors.ErrPermissionDenied
	}
	return s.forum.ListFlags(ctx, status, offset, limit)
}

// ListModerationActions returns the moderation trail, newest first.
func (s *forumService) ListModerationActions(ctx context.Context, offset, limit int, moderator *model.User) ([]model.ModeratorAction, int64, error) {
	if moderator == nil || !moderator.IsBoardMember() {
		return nil, 0, apperrors.ErrPermissionDenied
	}
	return s.forum.ListModeratorActions(ctx, offset, limit)
}

// notify writes an in-app notification unless the recipient caused the event
// themselves.
func (s *forumService) notify(ctx context.Context, recipientID, actorID uint, kind model.NotificationType, target model.ContentTarget, targetID uuid.UUID, message string) {
	if recipientID == actorID {
		return
	}
	n := &model.ForumNotification{
		RecipientID: recipientID,
		Type:        kind,
		TargetType:  target,
		TargetID:    targetID,
		Message:     message,
	}
	_ = s.forum.CreateNotification(ctx, n)
}

// ListNotifications returns the user's notifications.
func (s *forumService) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, offset, limit int) ([]model.ForumNotification, int64, error) {
	return s.forum.ListNotifications(ctx, userID, unreadOnly, offset, limit)
}

// MarkNotificationsRead marks the given notifications read; no ids means all.
func (s *forumService) MarkNotificationsRead(ctx context.Context, userID uint, ids []uuid.UUID) error {
	return s.forum.MarkNotificationsRead(ctx, userID, ids)
}

// CountUnreadNotifications returns the user's unread notification count.
func (s *forumService) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	return s.forum.CountUnreadNotifications(ctx, userID)
}
