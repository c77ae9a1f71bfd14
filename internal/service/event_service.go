package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/mailer"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// EventInput carries the editable fields of an event.
type EventInput struct {
	Title                string
	Description          string
	Location             string
	StartsAt             time.Time
	EndsAt               time.Time
	CategoryID           *uuid.UUID
	RegistrationRequired bool
	MaxAttendees         *int
	RegistrationDeadline *time.Time
	Visibility           model.Visibility
	ImageURL             string
}

// RegistrationDetails carries the optional fields of a signup.
type RegistrationDetails struct {
	DietaryRequirements string
	SpecialRequests     string
}

// EventService manages events and the capacity-bounded registration flow.
//
// Register and Unregister run inside a database transaction holding a row
// lock on the event, so two concurrent signups for the last seat cannot both
// succeed and a cancellation cannot race its waitlist promotion.
type EventService interface {
	CreateEvent(ctx context.Context, input EventInput, organizer *model.User) (*model.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, input EventInput, actor *model.User) (*model.Event, error)
	PublishEvent(ctx context.Context, id uuid.UUID, publish bool, actor *model.User) (*model.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID, actor *model.User) error
	GetEvent(ctx context.Context, slugOrID string, viewer *model.User) (*model.Event, error)
	ListEvents(ctx context.Context, filter repository.EventFilter, viewer *model.User) ([]model.Event, int64, error)

	Register(ctx context.Context, eventID uuid.UUID, user *model.User, details RegistrationDetails) (*model.EventRegistration, error)
	Unregister(ctx context.Context, eventID uuid.UUID, user *model.User) error
	CheckIn(ctx context.Context, eventID uuid.UUID, attendeeID uint, actor *model.User) (*model.EventRegistration, error)
	ListRegistrations(ctx context.Context, eventID uuid.UUID, actor *model.User) ([]model.EventRegistration, error)
	ListUserRegistrations(ctx context.Context, userID uint) ([]model.EventRegistration, error)

	CreateCategory(ctx context.Context, name, description, color string, actor *model.User) (*model.EventCategory, error)
	ListCategories(ctx context.Context) ([]model.EventCategory, error)
}

type eventService struct {
	events   repository.EventRepository
	mailer   mailer.Service
	recorder audit.Recorder
}

// NewEventService creates a new event service.
func NewEventService(events repository.EventRepository, mail mailer.Service, recorder audit.Recorder) EventService {
	return &eventService{
		events:   events,
		mailer:   mail,
		recorder: recorder,
	}
}

// CreateEvent creates an unpublished event organized by the actor.
func (s *eventService) CreateEvent(ctx context.Context, input EventInput, organizer *model.User) (*model.Event, error) {
	if organizer == nil || !organizer.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	eventSlug, err := s.uniqueSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	event := &model.Event{
		Title:                input.Title,
		Slug:                 eventSlug,
		Description:          input.Description,
		Location:             input.Location,
		StartsAt:             input.StartsAt,
		EndsAt:               input.EndsAt,
		OrganizerID:          organizer.ID,
		CategoryID:           input.CategoryID,
		RegistrationRequired: input.RegistrationRequired,
		MaxAttendees:         input.MaxAttendees,
		RegistrationDeadline: input.RegistrationDeadline,
		Visibility:           input.Visibility,
		ImageURL:             input.ImageURL,
	}
	if event.Visibility == "" {
		event.Visibility = model.VisibilityPublic
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "event",
		EntityID: event.ID.String(),
		ActorID:  &organizer.ID,
		Summary:  fmt.Sprintf("event %q created", event.Title),
	})
	return event, nil
}

// uniqueSlug slugifies the title and appends a counter on collision.
func (s *eventService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.events.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// UpdateEvent applies changes to an event. Organizer or board only.
func (s *eventService) UpdateEvent(ctx context.Context, id uuid.UUID, input EventInput, actor *model.User) (*model.Event, error) {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(event, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	if input.Title != "" && input.Title != event.Title {
		event.Title = input.Title
	}
	if input.Description != "" {
		event.Description = input.Description
	}
	if input.Location != "" {
		event.Location = input.Location
	}
	if !input.StartsAt.IsZero() {
		event.StartsAt = input.StartsAt
	}
	if !input.EndsAt.IsZero() {
		event.EndsAt = input.EndsAt
	}
	if input.CategoryID != nil {
		event.CategoryID = input.CategoryID
	}
	if input.MaxAttendees != nil {
		event.MaxAttendees = input.MaxAttendees
	}
	if input.RegistrationDeadline != nil {
		event.RegistrationDeadline = input.RegistrationDeadline
	}
	if input.Visibility != "" {
		event.Visibility = input.Visibility
	}
	if input.ImageURL != "" {
		event.ImageURL = input.ImageURL
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditUpdate,
		Entity:   "event",
		EntityID: event.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("event %q updated", event.Title),
	})
	return event, nil
}

// PublishEvent toggles the published flag.
func (s *eventService) PublishEvent(ctx context.Context, id uuid.UUID, publish bool, actor *model.User) (*model.Event, error) {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(event, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	event.IsPublished = publish
	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	summary := "event unpublished"
	if publish {
		summary = "event published"
	}
	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "event",
		EntityID: event.ID.String(),
		ActorID:  &actor.ID,
		Summary:  summary,
	})
	return event, nil
}

// DeleteEvent removes an event. Admins only; organizers unpublish instead.
func (s *eventService) DeleteEvent(ctx context.Context, id uuid.UUID, actor *model.User) error {
	if actor == nil || !actor.IsAdmin() {
		return apperrors.ErrPermissionDenied
	}

	event, err := s.findEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, event); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditDelete,
		Entity:   "event",
		EntityID: event.ID.String(),
		ActorID:  &actor.ID,
		Summary:  fmt.Sprintf("event %q deleted", event.Title),
	})
	return nil
}

func (s *eventService) findEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

func canManageEvent(event *model.Event, actor *model.User) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return actor.IsBoardMember() && event.OrganizerID == actor.ID
}

// GetEvent resolves an event by slug (or ID for board tooling), enforces
// visibility and counts the view. Unpublished events are visible only to
// their manager.
func (s *eventService) GetEvent(ctx context.Context, slugOrID string, viewer *model.User) (*model.Event, error) {
	var (
		event *model.Event
		err   error
	)
	if id, parseErr := uuid.Parse(slugOrID); parseErr == nil {
		event, err = s.events.FindByID(ctx, id)
	} else {
		event, err = s.events.FindBySlug(ctx, slugOrID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}

	if !event.IsPublished && !canManageEvent(event, viewer) {
		return nil, apperrors.ErrNotFound
	}
	if !event.CanView(viewer) {
		return nil, apperrors.ErrNotFound
	}

	if err := s.events.IncrementViewCount(ctx, event.ID); err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}
	return event, nil
}

// ListEvents lists published events the viewer may see. The visibility filter
// is derived from the viewer's role, never from the request.
func (s *eventService) ListEvents(ctx context.Context, filter repository.EventFilter, viewer *model.User) ([]model.Event, int64, error) {
	filter.Visibilities = visibleTiers(viewer)
	return s.events.List(ctx, filter)
}

func visibleTiers(viewer *model.User) []model.Visibility {
	switch {
	case viewer != nil && viewer.IsBoardMember():
		return []model.Visibility{model.VisibilityPublic, model.VisibilityMembers, model.VisibilityBoard}
	case viewer != nil && viewer.IsMember():
		return []model.Visibility{model.VisibilityPublic, model.VisibilityMembers}
	default:
		return []model.Visibility{model.VisibilityPublic}
	}
}

// Register signs the user up for an event. The whole decision — is the event
// open, does the user already hold a row, is there a seat left — happens
// under a row lock on the event. A cancelled row is reused instead of
// inserting a second one, and a full event yields a waitlist spot rather
// than an error.
func (s *eventService) Register(ctx context.Context, eventID uuid.UUID, user *model.User, details RegistrationDetails) (*model.EventRegistration, error) {
	if user == nil {
		return nil, apperrors.ErrPermissionDenied
	}

	var result *model.EventRegistration
	err := s.events.Transaction(ctx, func(tx repository.EventRepository) error {
		event, err := tx.FindByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		now := time.Now()
		if !event.RegistrationOpen(user, now) {
			return apperrors.ErrRegistrationClosed
		}

		existing, err := tx.FindRegistration(ctx, event.ID, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find registration: %w", err)
		}
		if existing != nil && existing.IsActive() {
			return apperrors.ErrAlreadyRegistered
		}

		status := model.RegistrationRegistered
		if !event.Unlimited() {
			registered, err := tx.CountRegistrations(ctx, event.ID, model.RegistrationRegistered)
			if err != nil {
				return fmt.Errorf("count registrations: %w", err)
			}
			if registered >= int64(*event.MaxAttendees) {
				status = model.RegistrationWaitlisted
			}
		}

		if existing != nil {
			existing.Status = status
			existing.DietaryRequirements = details.DietaryRequirements
			existing.SpecialRequests = details.SpecialRequests
			existing.RegisteredAt = now
			if err := tx.UpdateRegistration(ctx, existing); err != nil {
				return fmt.Errorf("update registration: %w", err)
			}
			result = existing
			return nil
		}

		reg := &model.EventRegistration{
			UserID:              user.ID,
			EventID:             event.ID,
			Status:              status,
			DietaryRequirements: details.DietaryRequirements,
			SpecialRequests:     details.SpecialRequests,
		}
		if err := tx.CreateRegistration(ctx, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	event, findErr := s.events.FindByID(ctx, eventID)
	if findErr == nil {
		s.sendRegistrationMail(ctx, event, user, result)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "event_registration",
		EntityID: result.ID.String(),
		ActorID:  &user.ID,
		Summary:  fmt.Sprintf("registration %s", result.Status),
		Metadata: map[string]interface{}{"event_id": eventID.String()},
	})
	return result, nil
}

func (s *eventService) sendRegistrationMail(ctx context.Context, event *model.Event, user *model.User, reg *model.EventRegistration) {
	body := fmt.Sprintf("You are registered for %q on %s.", event.Title, event.StartsAt.Format("2 January 2006 15:04"))
	if reg.Status == model.RegistrationWaitlisted {
		body = fmt.Sprintf("%q is currently full. You are on the waitlist and will be notified when a spot opens.", event.Title)
	}
	s.mailer.Send(&mailer.Message{
		To:       []mail.Address{{Name: user.FullName(), Address: user.Email}},
		Subject:  fmt.Sprintf("Registration for %s", event.Title),
		TextBody: body,
	})

	reminder := &model.EventReminder{
		EventID:        event.ID,
		RegistrationID: &reg.ID,
		Type:           model.ReminderRegistration,
		RecipientEmail: user.Email,
	}
	_ = s.events.CreateReminder(ctx, reminder)
}

// Unregister cancels the user's active registration. When a confirmed
// registration cancels, the oldest waitlisted registration is promoted into
// the freed seat within the same transaction.
func (s *eventService) Unregister(ctx context.Context, eventID uuid.UUID, user *model.User) error {
	if user == nil {
		return apperrors.ErrPermissionDenied
	}

	var promoted *model.EventRegistration
	err := s.events.Transaction(ctx, func(tx repository.EventRepository) error {
		if _, err := tx.FindByIDForUpdate(ctx, eventID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		reg, err := tx.FindRegistration(ctx, eventID, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotRegistered
			}
			return fmt.Errorf("find registration: %w", err)
		}
		if !reg.IsActive() {
			return apperrors.ErrNotRegistered
		}

		freedSeat := reg.Status == model.RegistrationRegistered
		reg.Status = model.RegistrationCancelled
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}

		if !freedSeat {
			return nil
		}
		next, err := tx.FirstWaitlisted(ctx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("find waitlisted: %w", err)
		}
		next.Status = model.RegistrationRegistered
		if err := tx.UpdateRegistration(ctx, next); err != nil {
			return fmt.Errorf("promote registration: %w", err)
		}
		promoted = next
		return nil
	})
	if err != nil {
		return err
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "event_registration",
		EntityID: eventID.String(),
		ActorID:  &user.ID,
		Summary:  "registration cancelled",
	})

	if promoted != nil {
		s.notifyPromotion(ctx, eventID, promoted)
	}
	return nil
}

func (s *eventService) notifyPromotion(ctx context.Context, eventID uuid.UUID, reg *model.EventRegistration) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return
	}
	promotedReg, err := s.events.FindRegistration(ctx, eventID, reg.UserID)
	if err != nil || promotedReg.User.Email == "" {
		return
	}
	user := promotedReg.User

	s.mailer.Send(&mailer.Message{
		To:       []mail.Address{{Name: user.FullName(), Address: user.Email}},
		Subject:  fmt.Sprintf("A spot opened for %s", event.Title),
		TextBody: fmt.Sprintf("Good news: a spot opened up and you are now registered for %q.", event.Title),
	})

	reminder := &model.EventReminder{
		EventID:        event.ID,
		RegistrationID: &reg.ID,
		Type:           model.ReminderUpdate,
		RecipientEmail: user.Email,
	}
	_ = s.events.CreateReminder(ctx, reminder)
}

// CheckIn marks a confirmed registration as attended. Only registered rows
// can check in; waitlisted or cancelled ones cannot.
func (s *eventService) CheckIn(ctx context.Context, eventID uuid.UUID, attendeeID uint, actor *model.User) (*model.EventRegistration, error) {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(event, actor) {
		return nil, apperrors.ErrPermissionDenied
	}

	reg, err := s.events.FindRegistration(ctx, eventID, attendeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotRegistered
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if reg.Status != model.RegistrationRegistered {
		return nil, apperrors.ErrNotCheckedInable
	}

	now := time.Now()
	reg.Status = model.RegistrationAttended
	reg.CheckedInAt = &now
	if err := s.events.UpdateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "event_registration",
		EntityID: reg.ID.String(),
		ActorID:  &actor.ID,
		Summary:  "attendee checked in",
	})
	return reg, nil
}

// ListRegistrations returns an event's attendee list for its manager.
func (s *eventService) ListRegistrations(ctx context.Context, eventID uuid.UUID, actor *model.User) ([]model.EventRegistration, error) {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(event, actor) {
		return nil, apperrors.ErrPermissionDenied
	}
	return s.events.ListRegistrations(ctx, eventID, false)
}

// ListUserRegistrations returns the user's own active registrations.
func (s *eventService) ListUserRegistrations(ctx context.Context, userID uint) ([]model.EventRegistration, error) {
	return s.events.ListRegistrationsByUser(ctx, userID)
}

// CreateCategory adds an event category.
func (s *eventService) CreateCategory(ctx context.Context, name, description, color string, actor *model.User) (*model.EventCategory, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	category := &model.EventCategory{
		Name:        name,
		Slug:        slug.Make(name),
		Description: description,
	}
	if color != "" {
		category.Color = color
	}
	if err := s.events.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// ListCategories returns all event categories.
func (s *eventService) ListCategories(ctx context.Context) ([]model.EventCategory, error) {
	return s.events.ListCategories(ctx)
}
