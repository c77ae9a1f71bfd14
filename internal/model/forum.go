package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// roleClears reports whether a user satisfies a role gate such as a forum
// category's view/post requirement.
func roleClears(required Role, u *User) bool {
	switch required {
	case RolePublic:
		return true
	case RoleMember:
		return u != nil && u.IsMember()
	case RoleBoard:
		return u != nil && u.IsBoardMember()
	case RoleAdmin:
		return u != nil && u.IsAdmin()
	}
	return false
}

// ForumCategory is a discussion board section with per-role gates.
type ForumCategory struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Slug        string    `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Icon        string    `json:"icon,omitempty" gorm:"size:50"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`

	// Minimum roles required to read and to post.
	ViewRole Role `json:"view_role" gorm:"size:10;not null;default:'public'"`
	PostRole Role `json:"post_role" gorm:"size:10;not null;default:'member'"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *ForumCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CanUserView reports whether the user may read the category.
func (c *ForumCategory) CanUserView(u *User) bool {
	return roleClears(c.ViewRole, u)
}

// CanUserPost reports whether the user may open threads or reply.
func (c *ForumCategory) CanUserPost(u *User) bool {
	if u == nil {
		return false
	}
	return roleClears(c.PostRole, u)
}

// Thread is a forum discussion.
type Thread struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title      string    `json:"title" gorm:"size:200;not null"`
	Slug       string    `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CategoryID uuid.UUID `json:"category_id" gorm:"type:char(36);not null;index:idx_threads_cat_activity"`
	AuthorID   uint      `json:"author_id" gorm:"not null;index"`

	IsPinned   bool `json:"is_pinned" gorm:"default:false"`
	IsLocked   bool `json:"is_locked" gorm:"default:false"`
	IsApproved bool `json:"is_approved" gorm:"default:true;index"`

	ViewCount  int `json:"view_count" gorm:"default:0"`
	ReplyCount int `json:"reply_count" gorm:"default:0"`

	Tags string `json:"tags,omitempty" gorm:"size:200"` // comma-separated

	LastActivityAt time.Time `json:"last_activity_at" gorm:"autoCreateTime;index:idx_threads_cat_activity"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Category ForumCategory `json:"-" gorm:"foreignKey:CategoryID"`
	Author   User          `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Reply is a post inside a thread, optionally nested under a parent reply.
type Reply struct {
	ID            uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	ThreadID      uuid.UUID  `json:"thread_id" gorm:"type:char(36);not null;index:idx_replies_thread_created"`
	AuthorID      uint       `json:"author_id" gorm:"not null;index"`
	Content       string     `json:"content" gorm:"type:text;not null"`
	ParentReplyID *uuid.UUID `json:"parent_reply_id,omitempty" gorm:"type:char(36);index"`
	IsApproved    bool       `json:"is_approved" gorm:"default:true"`
	IsEdited      bool       `json:"is_edited" gorm:"default:false"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index:idx_replies_thread_created"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relations
	Thread Thread `json:"-" gorm:"foreignKey:ThreadID"`
	Author User   `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ContentTarget names the kind of forum content a vote, flag or moderation
// action points at. Explicit enum instead of dynamic content-type dispatch.
type ContentTarget string

const (
	TargetThread ContentTarget = "thread"
	TargetReply  ContentTarget = "reply"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// Vote records a user's vote on a thread or reply. One row per user per target.
type Vote struct {
	ID         uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	TargetType ContentTarget `json:"target_type" gorm:"size:10;not null;uniqueIndex:idx_votes_target_user"`
	TargetID   uuid.UUID     `json:"target_id" gorm:"type:char(36);not null;uniqueIndex:idx_votes_target_user"`
	UserID     uint          `json:"user_id" gorm:"not null;uniqueIndex:idx_votes_target_user"`
	Type       VoteType      `json:"type" gorm:"size:10;not null"`
	CreatedAt  time.Time     `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// FlagReason is why content was reported.
type FlagReason string

const (
	FlagSpam          FlagReason = "spam"
	FlagInappropriate FlagReason = "inappropriate"
	FlagHarassment    FlagReason = "harassment"
	FlagCopyright     FlagReason = "copyright"
	FlagOther         FlagReason = "other"
)

// FlagStatus is the moderation state of a report.
type FlagStatus string

const (
	FlagPending   FlagStatus = "pending"
	FlagReviewed  FlagStatus = "reviewed"
	FlagResolved  FlagStatus = "resolved"
	FlagDismissed FlagStatus = "dismissed"
)

// Flag is a user report against a thread or reply.
type Flag struct {
	ID           uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	TargetType   ContentTarget `json:"target_type" gorm:"size:10;not null;index:idx_flags_target"`
	TargetID     uuid.UUID     `json:"target_id" gorm:"type:char(36);not null;index:idx_flags_target"`
	ReporterID   uint          `json:"reporter_id" gorm:"not null;index"`
	Reason       FlagReason    `json:"reason" gorm:"size:20;not null"`
	Description  string        `json:"description,omitempty" gorm:"type:text"`
	Status       FlagStatus    `json:"status" gorm:"size:20;not null;default:'pending';index"`
	ReviewedByID *uint         `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (f *Flag) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// NotificationType classifies forum notifications.
type NotificationType string

const (
	NotifyReply      NotificationType = "reply"
	NotifyMention    NotificationType = "mention"
	NotifyVote       NotificationType = "vote"
	NotifyModeration NotificationType = "moderation"
)

// ForumNotification is an in-app notification about forum activity.
type ForumNotification struct {
	ID          uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	RecipientID uint             `json:"recipient_id" gorm:"not null;index:idx_notifications_recipient_read"`
	Type        NotificationType `json:"type" gorm:"size:20;not null"`
	TargetType  ContentTarget    `json:"target_type" gorm:"size:10;not null"`
	TargetID    uuid.UUID        `json:"target_id" gorm:"type:char(36);not null"`
	Message     string           `json:"message" gorm:"type:text;not null"`
	IsRead      bool             `json:"is_read" gorm:"default:false;index:idx_notifications_recipient_read"`
	IsEmailed   bool             `json:"is_emailed" gorm:"default:false"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (n *ForumNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// ModerationAction names what a moderator did.
type ModerationAction string

const (
	ModerationLock    ModerationAction = "lock"
	ModerationUnlock  ModerationAction = "unlock"
	ModerationPin     ModerationAction = "pin"
	ModerationUnpin   ModerationAction = "unpin"
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
	ModerationDelete  ModerationAction = "delete"
)

// ModeratorAction is the moderation audit trail for the forums.
type ModeratorAction struct {
	ID          uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	ModeratorID *uint            `json:"moderator_id,omitempty" gorm:"index"`
	Action      ModerationAction `json:"action" gorm:"size:20;not null;index"`
	TargetType  ContentTarget    `json:"target_type" gorm:"size:10;not null"`
	TargetID    uuid.UUID        `json:"target_id" gorm:"type:char(36);not null"`
	Reason      string           `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (a *ModeratorAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
