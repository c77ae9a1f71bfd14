package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Visibility restricts who can see a piece of content.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityMembers Visibility = "members"
	VisibilityBoard   Visibility = "board"
)

// VisibleTo reports whether a user (possibly nil for anonymous) clears the tier.
func (v Visibility) VisibleTo(u *User) bool {
	switch v {
	case VisibilityPublic:
		return true
	case VisibilityMembers:
		return u != nil && u.IsMember()
	case VisibilityBoard:
		return u != nil && u.IsBoardMember()
	}
	return false
}

// EventCategory groups events.
type EventCategory struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Slug        string    `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Color       string    `json:"color" gorm:"size:7;default:'#3498db'"` // hex color code
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *EventCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Event is a capacity-bounded happening members can register for.
type Event struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title" gorm:"size:200;not null"`
	Slug        string    `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Location    string    `json:"location" gorm:"size:200;not null"`

	StartsAt time.Time `json:"starts_at" gorm:"not null;index:idx_events_published_start"`
	EndsAt   time.Time `json:"ends_at" gorm:"not null"`

	OrganizerID uint       `json:"organizer_id" gorm:"not null;index"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" gorm:"type:char(36);index"`

	// Registration settings. MaxAttendees nil means unlimited capacity.
	RegistrationRequired bool       `json:"registration_required" gorm:"default:true"`
	MaxAttendees         *int       `json:"max_attendees,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`

	Visibility  Visibility `json:"visibility" gorm:"size:10;not null;default:'public';index"`
	IsPublished bool       `json:"is_published" gorm:"default:false;index:idx_events_published_start"`

	ImageURL  string    `json:"image_url,omitempty" gorm:"size:500"`
	ViewCount int       `json:"view_count" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Organizer User           `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID"`
	Category  *EventCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// BeforeCreate sets UUID before creating the record.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CanView reports whether the user clears the event's visibility tier.
func (e *Event) CanView(u *User) bool {
	return e.Visibility.VisibleTo(u)
}

// RegistrationOpen reports whether the event currently accepts registrations
// from the given user: published, registration required, visibility cleared,
// deadline not passed and event not started. Whether the user already holds a
// registration is a persistence question answered by the service layer.
func (e *Event) RegistrationOpen(u *User, now time.Time) bool {
	if !e.IsPublished || !e.RegistrationRequired {
		return false
	}
	if u == nil {
		return false
	}
	if !e.Visibility.VisibleTo(u) {
		return false
	}
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return false
	}
	return now.Before(e.StartsAt)
}

// Unlimited reports whether the event has no capacity bound.
func (e *Event) Unlimited() bool {
	return e.MaxAttendees == nil
}

// IsUpcoming reports whether the event starts in the future.
func (e *Event) IsUpcoming(now time.Time) bool {
	return now.Before(e.StartsAt)
}

// IsPast reports whether the event already ended.
func (e *Event) IsPast(now time.Time) bool {
	return now.After(e.EndsAt)
}

// RegistrationStatus is the state of a registration row.
//
// State machine: REGISTERED ⇄ CANCELLED (re-registration reuses the row),
// WAITLISTED → REGISTERED (promotion) or CANCELLED, REGISTERED → ATTENDED
// (one-way, via check-in).
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAttended   RegistrationStatus = "attended"
)

// EventRegistration is a user's signup for an event. A user holds at most one
// row per event, enforced by the unique index.
type EventRegistration struct {
	ID      uuid.UUID          `json:"id" gorm:"type:char(36);primaryKey"`
	UserID  uint               `json:"user_id" gorm:"not null;uniqueIndex:idx_registrations_user_event"`
	EventID uuid.UUID          `json:"event_id" gorm:"type:char(36);not null;uniqueIndex:idx_registrations_user_event;index:idx_registrations_event_status"`
	Status  RegistrationStatus `json:"status" gorm:"size:15;not null;default:'registered';index:idx_registrations_event_status"`

	RegisteredAt time.Time  `json:"registered_at" gorm:"autoCreateTime;index"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`

	DietaryRequirements string `json:"dietary_requirements,omitempty" gorm:"type:text"`
	SpecialRequests     string `json:"special_requests,omitempty" gorm:"type:text"`
	AdminNotes          string `json:"-" gorm:"type:text"` // internal, board-only

	// Relations
	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Event Event `json:"-" gorm:"foreignKey:EventID"`
}

// BeforeCreate sets UUID before creating the record.
func (r *EventRegistration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the registration still holds or contends for a spot.
func (r *EventRegistration) IsActive() bool {
	return r.Status == RegistrationRegistered || r.Status == RegistrationWaitlisted
}

// ReminderType classifies event emails sent to registrants.
type ReminderType string

const (
	ReminderRegistration ReminderType = "registration"
	ReminderDaysBefore   ReminderType = "days_before"
	ReminderUpdate       ReminderType = "update"
)

// EventReminder tracks emails sent for an event so they are not re-sent.
type EventReminder struct {
	ID             uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	EventID        uuid.UUID    `json:"event_id" gorm:"type:char(36);not null;index:idx_reminders_event_type"`
	RegistrationID *uuid.UUID   `json:"registration_id,omitempty" gorm:"type:char(36);index"`
	Type           ReminderType `json:"type" gorm:"size:20;not null;index:idx_reminders_event_type"`
	DaysBefore     *int         `json:"days_before,omitempty"`
	RecipientEmail string       `json:"recipient_email" gorm:"size:255;not null"`
	SentAt         time.Time    `json:"sent_at" gorm:"autoCreateTime;index"`
}

// BeforeCreate sets UUID before creating the record.
func (r *EventReminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
