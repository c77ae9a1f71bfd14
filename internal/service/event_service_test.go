package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/mailer"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// MockEventRepository is a mock implementation of EventRepository.
type MockEventRepository struct {
	mock.Mock
}

// Transaction runs fn against the mock itself, standing in for a repository
// bound to one transaction.
func (m *MockEventRepository) Transaction(ctx context.Context, fn func(txRepo repository.EventRepository) error) error {
	return fn(m)
}

func (m *MockEventRepository) CreateCategory(ctx context.Context, category *model.EventCategory) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockEventRepository) ListCategories(ctx context.Context) ([]model.EventCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EventCategory), args.Error(1)
}

func (m *MockEventRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.EventCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventCategory), args.Error(1)
}

func (m *MockEventRepository) Create(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Update(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, filter repository.EventFilter) ([]model.Event, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Event), args.Get(1).(int64), args.Error(2)
}

func (m *MockEventRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEventRepository) FindRegistration(ctx context.Context, eventID uuid.UUID, userID uint) (*model.EventRegistration, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventRegistration), args.Error(1)
}

func (m *MockEventRepository) CreateRegistration(ctx context.Context, reg *model.EventRegistration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockEventRepository) UpdateRegistration(ctx context.Context, reg *model.EventRegistration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockEventRepository) CountRegistrations(ctx context.Context, eventID uuid.UUID, status model.RegistrationStatus) (int64, error) {
	args := m.Called(ctx, eventID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) FirstWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.EventRegistration, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventRegistration), args.Error(1)
}

func (m *MockEventRepository) ListRegistrations(ctx context.Context, eventID uuid.UUID, includeCancelled bool) ([]model.EventRegistration, error) {
	args := m.Called(ctx, eventID, includeCancelled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EventRegistration), args.Error(1)
}

func (m *MockEventRepository) ListRegistrationsByUser(ctx context.Context, userID uint) ([]model.EventRegistration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EventRegistration), args.Error(1)
}

func (m *MockEventRepository) CreateReminder(ctx context.Context, reminder *model.EventReminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

// MockMailer discards mail but records that it was asked to send.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(messages ...*mailer.Message) {
	m.Called(messages)
}

func testEvent(capacity *int) *model.Event {
	deadline := time.Now().Add(24 * time.Hour)
	return &model.Event{
		ID:                   uuid.New(),
		Title:                "Summer Meetup",
		Slug:                 "summer-meetup",
		StartsAt:             time.Now().Add(48 * time.Hour),
		EndsAt:               time.Now().Add(52 * time.Hour),
		OrganizerID:          7,
		RegistrationRequired: true,
		MaxAttendees:         capacity,
		RegistrationDeadline: &deadline,
		Visibility:           model.VisibilityPublic,
		IsPublished:          true,
	}
}

func memberUser(id uint) *model.User {
	return &model.User{
		ID:       id,
		Email:    "user@example.com",
		Role:     model.RoleMember,
		IsActive: true,
	}
}

func newTestEventService(repo *MockEventRepository, mail *MockMailer) EventService {
	return NewEventService(repo, mail, audit.Nop{})
}

func TestEventService_Register_CapacityAndWaitlist(t *testing.T) {
	capacity := 2

	tests := []struct {
		name           string
		registered     int64
		existing       *model.EventRegistration
		expectedStatus model.RegistrationStatus
		expectedError  error
	}{
		{
			name:           "seat available",
			registered:     1,
			expectedStatus: model.RegistrationRegistered,
		},
		{
			name:           "event full goes to waitlist",
			registered:     2,
			expectedStatus: model.RegistrationWaitlisted,
		},
		{
			name:          "already registered",
			registered:    1,
			existing:      &model.EventRegistration{Status: model.RegistrationRegistered},
			expectedError: apperrors.ErrAlreadyRegistered,
		},
		{
			name:          "already waitlisted",
			registered:    2,
			existing:      &model.EventRegistration{Status: model.RegistrationWaitlisted},
			expectedError: apperrors.ErrAlreadyRegistered,
		},
		{
			name:           "cancelled row is reused",
			registered:     1,
			existing:       &model.EventRegistration{ID: uuid.New(), Status: model.RegistrationCancelled},
			expectedStatus: model.RegistrationRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent(&capacity)
			user := memberUser(42)

			repo := new(MockEventRepository)
			repo.On("FindByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
			if tt.existing != nil {
				tt.existing.UserID = user.ID
				tt.existing.EventID = event.ID
				repo.On("FindRegistration", mock.Anything, event.ID, user.ID).Return(tt.existing, nil)
			} else {
				repo.On("FindRegistration", mock.Anything, event.ID, user.ID).Return(nil, gorm.ErrRecordNotFound)
			}

			if tt.expectedError == nil {
				repo.On("CountRegistrations", mock.Anything, event.ID, model.RegistrationRegistered).Return(tt.registered, nil)
				if tt.existing != nil {
					repo.On("UpdateRegistration", mock.Anything, tt.existing).Return(nil)
				} else {
					repo.On("CreateRegistration", mock.Anything, mock.AnythingOfType("*model.EventRegistration")).Return(nil)
				}
				repo.On("FindByID", mock.Anything, event.ID).Return(event, nil)
				repo.On("CreateReminder", mock.Anything, mock.AnythingOfType("*model.EventReminder")).Return(nil)
			}

			mail := new(MockMailer)
			mail.On("Send", mock.Anything).Maybe()

			svc := newTestEventService(repo, mail)
			reg, err := svc.Register(context.Background(), event.ID, user, RegistrationDetails{})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, reg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, reg.Status)
			}
			repo.AssertExpectations(t)
		})
	}
}

// A capacity-2 event with A and B registered: C lands on the waitlist, and
// when A cancels, C is promoted into the freed seat.
func TestEventService_WaitlistPromotionOnCancel(t *testing.T) {
	capacity := 2
	event := testEvent(&capacity)
	userA := memberUser(1)
	userC := memberUser(3)

	regA := &model.EventRegistration{ID: uuid.New(), UserID: userA.ID, EventID: event.ID, Status: model.RegistrationRegistered}
	regC := &model.EventRegistration{
		ID:      uuid.New(),
		UserID:  userC.ID,
		EventID: event.ID,
		Status:  model.RegistrationWaitlisted,
		User:    *userC,
	}

	repo := new(MockEventRepository)
	repo.On("FindByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
	repo.On("FindRegistration", mock.Anything, event.ID, userA.ID).Return(regA, nil)
	repo.On("UpdateRegistration", mock.Anything, regA).Return(nil)
	repo.On("FirstWaitlisted", mock.Anything, event.ID).Return(regC, nil)
	repo.On("UpdateRegistration", mock.Anything, regC).Return(nil)
	repo.On("FindByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("FindRegistration", mock.Anything, event.ID, userC.ID).Return(regC, nil)
	repo.On("CreateReminder", mock.Anything, mock.AnythingOfType("*model.EventReminder")).Return(nil)

	mail := new(MockMailer)
	mail.On("Send", mock.Anything)

	svc := newTestEventService(repo, mail)
	err := svc.Unregister(context.Background(), event.ID, userA)

	assert.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, regA.Status)
	assert.Equal(t, model.RegistrationRegistered, regC.Status)
	repo.AssertExpectations(t)
	mail.AssertExpectations(t)
}

// Cancelling a waitlisted registration frees no seat, so nobody is promoted.
func TestEventService_CancelWaitlistedDoesNotPromote(t *testing.T) {
	capacity := 2
	event := testEvent(&capacity)
	user := memberUser(3)
	reg := &model.EventRegistration{ID: uuid.New(), UserID: user.ID, EventID: event.ID, Status: model.RegistrationWaitlisted}

	repo := new(MockEventRepository)
	repo.On("FindByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
	repo.On("FindRegistration", mock.Anything, event.ID, user.ID).Return(reg, nil)
	repo.On("UpdateRegistration", mock.Anything, reg).Return(nil)

	svc := newTestEventService(repo, new(MockMailer))
	err := svc.Unregister(context.Background(), event.ID, user)

	assert.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, reg.Status)
	repo.AssertNotCalled(t, "FirstWaitlisted", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestEventService_Unregister_NotRegistered(t *testing.T) {
	capacity := 2
	event := testEvent(&capacity)
	user := memberUser(9)

	repo := new(MockEventRepository)
	repo.On("FindByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
	repo.On("FindRegistration", mock.Anything, event.ID, user.ID).Return(nil, gorm.ErrRecordNotFound)

	svc := newTestEventService(repo, new(MockMailer))
	err := svc.Unregister(context.Background(), event.ID, user)

	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)
}

func TestEventService_Register_ClosedEvents(t *testing.T) {
	capacity := 10
	user := memberUser(5)

	tests := []struct {
		name  string
		setup func(e *model.Event)
	}{
		{
			name:  "deadline passed",
			setup: func(e *model.Event) { past := time.Now().Add(-time.Hour); e.RegistrationDeadline = &past },
		},
		{
			name:  "event already started",
			setup: func(e *model.Event) { e.StartsAt = time.Now().Add(-time.Hour) },
		},
		{
			name:  "unpublished",
			setup: func(e *model.Event) { e.IsPublished = false },
		},
		{
			name:  "registration not required",
			setup: func(e *model.Event) { e.RegistrationRequired = false },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent(&capacity)
			tt.setup(event)

			repo := new(MockEventRepository)
			repo.On("FindByIDForUpdate", mock.Anything, event.ID).Return(event, nil)

			svc := newTestEventService(repo, new(MockMailer))
			reg, err := svc.Register(context.Background(), event.ID, user, RegistrationDetails{})

			assert.ErrorIs(t, err, apperrors.ErrRegistrationClosed)
			assert.Nil(t, reg)
		})
	}
}

func TestEventService_Register_UnlimitedNeverWaitlists(t *testing.T) {
	event := testEvent(nil)
	user := memberUser(11)

	repo := new(MockEventRepository)
	repo.On("FindByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
	repo.On("FindRegistration", mock.Anything, event.ID, user.ID).Return(nil, gorm.ErrRecordNotFound)
	repo.On("CreateRegistration", mock.Anything, mock.AnythingOfType("*model.EventRegistration")).Return(nil)
	repo.On("FindByID", mock.Anything, event.ID).Return(event, nil)
	repo.On("CreateReminder", mock.Anything, mock.AnythingOfType("*model.EventReminder")).Return(nil)

	mail := new(MockMailer)
	mail.On("Send", mock.Anything)

	svc := newTestEventService(repo, mail)
	reg, err := svc.Register(context.Background(), event.ID, user, RegistrationDetails{})

	assert.NoError(t, err)
	assert.Equal(t, model.RegistrationRegistered, reg.Status)
	repo.AssertNotCalled(t, "CountRegistrations", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventService_CheckIn(t *testing.T) {
	capacity := 5
	organizer := &model.User{ID: 7, Role: model.RoleBoard, IsActive: true}

	tests := []struct {
		name          string
		status        model.RegistrationStatus
		expectedError error
	}{
		{name: "registered can check in", status: model.RegistrationRegistered},
		{name: "waitlisted cannot", status: model.RegistrationWaitlisted, expectedError: apperrors.ErrNotCheckedInable},
		{name: "cancelled cannot", status: model.RegistrationCancelled, expectedError: apperrors.ErrNotCheckedInable},
		{name: "attended cannot re-check-in", status: model.RegistrationAttended, expectedError: apperrors.ErrNotCheckedInable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent(&capacity)
			reg := &model.EventRegistration{ID: uuid.New(), UserID: 42, EventID: event.ID, Status: tt.status}

			repo := new(MockEventRepository)
			repo.On("FindByID", mock.Anything, event.ID).Return(event, nil)
			repo.On("FindRegistration", mock.Anything, event.ID, uint(42)).Return(reg, nil)
			if tt.expectedError == nil {
				repo.On("UpdateRegistration", mock.Anything, reg).Return(nil)
			}

			svc := newTestEventService(repo, new(MockMailer))
			got, err := svc.CheckIn(context.Background(), event.ID, 42, organizer)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, model.RegistrationAttended, got.Status)
				assert.NotNil(t, got.CheckedInAt)
			}
		})
	}
}

func TestEventService_CheckIn_PermissionDenied(t *testing.T) {
	capacity := 5
	event := testEvent(&capacity)
	otherBoard := &model.User{ID: 99, Role: model.RoleBoard, IsActive: true}

	repo := new(MockEventRepository)
	repo.On("FindByID", mock.Anything, event.ID).Return(event, nil)

	svc := newTestEventService(repo, new(MockMailer))
	_, err := svc.CheckIn(context.Background(), event.ID, 42, otherBoard)

	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestEventService_ListEvents_VisibilityDerivedFromRole(t *testing.T) {
	tests := []struct {
		name     string
		viewer   *model.User
		expected []model.Visibility
	}{
		{
			name:     "anonymous sees public only",
			viewer:   nil,
			expected: []model.Visibility{model.VisibilityPublic},
		},
		{
			name:     "member sees public and members",
			viewer:   memberUser(1),
			expected: []model.Visibility{model.VisibilityPublic, model.VisibilityMembers},
		},
		{
			name:     "board sees everything",
			viewer:   &model.User{ID: 2, Role: model.RoleBoard, IsActive: true},
			expected: []model.Visibility{model.VisibilityPublic, model.VisibilityMembers, model.VisibilityBoard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockEventRepository)
			repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.EventFilter) bool {
				return assert.ObjectsAreEqual(tt.expected, f.Visibilities)
			})).Return([]model.Event{}, int64(0), nil)

			svc := newTestEventService(repo, new(MockMailer))
			_, _, err := svc.ListEvents(context.Background(), repository.EventFilter{}, tt.viewer)

			assert.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestEventService_CreateEvent_SlugCollision(t *testing.T) {
	organizer := &model.User{ID: 7, Role: model.RoleBoard, IsActive: true}

	repo := new(MockEventRepository)
	repo.On("SlugExists", mock.Anything, "summer-meetup").Return(true, nil)
	repo.On("SlugExists", mock.Anything, "summer-meetup-2").Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Event")).Return(nil)

	svc := newTestEventService(repo, new(MockMailer))
	event, err := svc.CreateEvent(context.Background(), EventInput{
		Title:    "Summer Meetup",
		StartsAt: time.Now().Add(time.Hour),
		EndsAt:   time.Now().Add(2 * time.Hour),
	}, organizer)

	assert.NoError(t, err)
	assert.Equal(t, "summer-meetup-2", event.Slug)
	assert.Equal(t, model.VisibilityPublic, event.Visibility)
}

func TestEventService_DeleteEvent_AdminOnly(t *testing.T) {
	capacity := 5
	event := testEvent(&capacity)
	board := &model.User{ID: 7, Role: model.RoleBoard, IsActive: true}

	repo := new(MockEventRepository)
	svc := newTestEventService(repo, new(MockMailer))

	err := svc.DeleteEvent(context.Background(), event.ID, board)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
