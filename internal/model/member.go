package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MembershipStatus represents the lifecycle state of a membership.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipInactive  MembershipStatus = "inactive"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipPending   MembershipStatus = "pending"
)

// MemberCategory classifies a member.
type MemberCategory string

const (
	CategoryStudent  MemberCategory = "student"
	CategoryAlumni   MemberCategory = "alumni"
	CategoryHonorary MemberCategory = "honorary"
)

// Member is the extended association profile linked one-to-one with a User.
type Member struct {
	ID               uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	UserID           uint             `json:"user_id" gorm:"uniqueIndex;not null"`
	MembershipNumber string           `json:"membership_number,omitempty" gorm:"size:20;uniqueIndex"`
	Status           MembershipStatus `json:"status" gorm:"size:10;not null;default:'pending';index"`
	Category         MemberCategory   `json:"category" gorm:"size:10;not null;default:'student'"`

	// Academic information
	University     string `json:"university,omitempty" gorm:"size:200"`
	Course         string `json:"course,omitempty" gorm:"size:200"`
	YearOfStudy    *int   `json:"year_of_study,omitempty"`
	GraduationYear *int   `json:"graduation_year,omitempty"`

	City            string     `json:"city,omitempty" gorm:"size:100"`
	CountryOfOrigin string     `json:"country_of_origin" gorm:"size:100;default:'Cameroon'"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`

	JoinedAt         time.Time  `json:"joined_at" gorm:"autoCreateTime;index"`
	MembershipExpiry *time.Time `json:"membership_expiry,omitempty"`

	// Privacy settings
	ProfilePublic bool `json:"profile_public" gorm:"default:true"`
	EmailPublic   bool `json:"email_public" gorm:"default:false"`

	LinkedIn string `json:"linkedin,omitempty" gorm:"size:255"`
	Website  string `json:"website,omitempty" gorm:"size:255"`

	IsVerified   bool       `json:"is_verified" gorm:"default:false"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	VerifiedByID *uint      `json:"verified_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsActiveMember reports whether the member holds active status.
func (m *Member) IsActiveMember() bool {
	return m.Status == MembershipActive
}

// IsSubscriptionActive reports whether the subscription is paid up: the member
// must be active and hold an expiry date in the future.
func (m *Member) IsSubscriptionActive() bool {
	if !m.IsActiveMember() || m.MembershipExpiry == nil {
		return false
	}
	return m.MembershipExpiry.After(time.Now())
}

// IsSubscriptionExpired reports whether a set expiry date has passed.
func (m *Member) IsSubscriptionExpired() bool {
	if m.MembershipExpiry == nil {
		return false
	}
	return !m.MembershipExpiry.After(time.Now())
}

// DaysUntilExpiry returns the days remaining on the subscription, negative if
// already expired. The second return is false when no expiry is set.
func (m *Member) DaysUntilExpiry() (int, bool) {
	if m.MembershipExpiry == nil {
		return 0, false
	}
	return int(time.Until(*m.MembershipExpiry).Hours() / 24), true
}

// ApplicationStatus represents the review state of a membership application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// MemberApplication is a request to join the association, reviewed by the board.
type MemberApplication struct {
	ID           uuid.UUID         `json:"id" gorm:"type:char(36);primaryKey"`
	UserID       uint              `json:"user_id" gorm:"not null;index"`
	Status       ApplicationStatus `json:"status" gorm:"size:10;not null;default:'pending';index"`
	Notes        string            `json:"notes,omitempty" gorm:"type:text"`
	ReviewedByID *uint             `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
	ReviewNotes  string            `json:"review_notes,omitempty" gorm:"type:text"`
	CreatedAt    time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time         `json:"updated_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *MemberApplication) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BadgeCategory groups badges in the catalogue.
type BadgeCategory string

const (
	BadgeMembership  BadgeCategory = "membership"
	BadgeActivity    BadgeCategory = "activity"
	BadgeAchievement BadgeCategory = "achievement"
	BadgeSpecial     BadgeCategory = "special"
)

// MemberBadge is an awardable badge definition.
type MemberBadge struct {
	ID          uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string        `json:"name" gorm:"size:100;not null"`
	Description string        `json:"description,omitempty" gorm:"type:text"`
	Icon        string        `json:"icon,omitempty" gorm:"size:50"`
	Category    BadgeCategory `json:"category" gorm:"size:20;not null;default:'achievement'"`
	CreatedAt   time.Time     `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (b *MemberBadge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// MemberAchievement links a member to an earned badge.
type MemberAchievement struct {
	ID       uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	MemberID uuid.UUID `json:"member_id" gorm:"type:char(36);not null;uniqueIndex:idx_achievements_member_badge"`
	BadgeID  uuid.UUID `json:"badge_id" gorm:"type:char(36);not null;uniqueIndex:idx_achievements_member_badge"`
	Notes    string    `json:"notes,omitempty" gorm:"type:text"`
	EarnedAt time.Time `json:"earned_at" gorm:"autoCreateTime"`

	Badge MemberBadge `json:"badge,omitempty" gorm:"foreignKey:BadgeID"`
}

// BeforeCreate sets UUID before creating the record.
func (a *MemberAchievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SubscriptionSettings is a singleton row holding membership subscription
// defaults. Always stored with ID 1.
type SubscriptionSettings struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	DefaultDurationYears int       `json:"default_duration_years" gorm:"not null;default:2"`
	UpdatedByID          *uint     `json:"updated_by_id,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}
