package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ascai/internal/model"
)

// EventTimeFilter selects events relative to now.
type EventTimeFilter string

const (
	EventsUpcoming EventTimeFilter = "upcoming"
	EventsPast     EventTimeFilter = "past"
	EventsAll      EventTimeFilter = "all"
)

// EventFilter narrows event listings.
type EventFilter struct {
	Visibilities []model.Visibility // empty means no visibility restriction
	CategoryID   *uuid.UUID
	Search       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Time         EventTimeFilter
	Offset       int
	Limit        int
}

// EventRepository defines persistence for events, registrations and reminders.
//
// Transaction runs fn against a repository bound to one database transaction;
// FindByIDForUpdate takes a row lock on the event so capacity accounting and
// waitlist promotion are serialized per event.
type EventRepository interface {
	Transaction(ctx context.Context, fn func(txRepo EventRepository) error) error

	CreateCategory(ctx context.Context, category *model.EventCategory) error
	ListCategories(ctx context.Context) ([]model.EventCategory, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.EventCategory, error)

	Create(ctx context.Context, event *model.Event) error
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, event *model.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Event, error)
	FindBySlug(ctx context.Context, slug string) (*model.Event, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter EventFilter) ([]model.Event, int64, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	FindRegistration(ctx context.Context, eventID uuid.UUID, userID uint) (*model.EventRegistration, error)
	CreateRegistration(ctx context.Context, reg *model.EventRegistration) error
	UpdateRegistration(ctx context.Context, reg *model.EventRegistration) error
	CountRegistrations(ctx context.Context, eventID uuid.UUID, status model.RegistrationStatus) (int64, error)
	FirstWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.EventRegistration, error)
	ListRegistrations(ctx context.Context, eventID uuid.UUID, includeCancelled bool) ([]model.EventRegistration, error)
	ListRegistrationsByUser(ctx context.Context, userID uint) ([]model.EventRegistration, error)

	CreateReminder(ctx context.Context, reminder *model.EventReminder) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Transaction executes fn inside a database transaction. The repository passed
// to fn shares the transaction handle, so row locks taken through it hold
// until fn returns.
func (r *eventRepository) Transaction(ctx context.Context, fn func(txRepo EventRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&eventRepository{db: tx})
	})
}

func (r *eventRepository) CreateCategory(ctx context.Context, category *model.EventCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *eventRepository) ListCategories(ctx context.Context) ([]model.EventCategory, error) {
	var categories []model.EventCategory
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (r *eventRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.EventCategory, error) {
	var category model.EventCategory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Delete(event).Error
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Preload("Category").Preload("Organizer").Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByIDForUpdate locks the event row (SELECT ... FOR UPDATE) for the
// duration of the surrounding transaction.
func (r *eventRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Preload("Category").Preload("Organizer").Where("slug = ?", slug).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Event{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// List returns a page of events matching the filter plus the total count.
func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]model.Event, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Event{}).Where("is_published = ?", true)

	if len(filter.Visibilities) > 0 {
		q = q.Where("visibility IN ?", filter.Visibilities)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ? OR location LIKE ?", like, like, like)
	}
	if filter.DateFrom != nil {
		q = q.Where("starts_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("starts_at <= ?", *filter.DateTo)
	}
	switch filter.Time {
	case EventsUpcoming:
		q = q.Where("starts_at >= ?", time.Now())
	case EventsPast:
		q = q.Where("ends_at < ?", time.Now())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []model.Event
	err := q.Preload("Category").Preload("Organizer").
		Order("starts_at DESC, created_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// IncrementViewCount bumps the view counter without loading the row.
func (r *eventRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *eventRepository) FindRegistration(ctx context.Context, eventID uuid.UUID, userID uint) (*model.EventRegistration, error) {
	var reg model.EventRegistration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *eventRepository) CreateRegistration(ctx context.Context, reg *model.EventRegistration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *eventRepository) UpdateRegistration(ctx context.Context, reg *model.EventRegistration) error {
	return r.db.WithContext(ctx).Save(reg).Error
}

// CountRegistrations counts an event's registrations holding the given status.
func (r *eventRepository) CountRegistrations(ctx context.Context, eventID uuid.UUID, status model.RegistrationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.EventRegistration{}).
		Where("event_id = ? AND status = ?", eventID, status).
		Count(&count).Error
	return count, err
}

// FirstWaitlisted returns the oldest waitlisted registration for the event.
// Promotion order is insertion order: first waitlisted, first promoted.
func (r *eventRepository) FirstWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.EventRegistration, error) {
	var reg model.EventRegistration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, model.RegistrationWaitlisted).
		Order("registered_at ASC").
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *eventRepository) ListRegistrations(ctx context.Context, eventID uuid.UUID, includeCancelled bool) ([]model.EventRegistration, error) {
	q := r.db.WithContext(ctx).Preload("User").Where("event_id = ?", eventID)
	if !includeCancelled {
		q = q.Where("status <> ?", model.RegistrationCancelled)
	}

	var regs []model.EventRegistration
	err := q.Order("registered_at ASC").Find(&regs).Error
	return regs, err
}

func (r *eventRepository) ListRegistrationsByUser(ctx context.Context, userID uint) ([]model.EventRegistration, error) {
	var regs []model.EventRegistration
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.RegistrationCancelled).
		Order("registered_at DESC").
		Find(&regs).Error
	return regs, err
}

func (r *eventRepository) CreateReminder(ctx context.Context, reminder *model.EventReminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}
