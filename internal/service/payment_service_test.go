package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, status model.PaymentStatus, paymentType model.PaymentType, offset, limit int) ([]model.Payment, int64, error) {
	args := m.Called(ctx, status, paymentType, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Payment), args.Get(1).(int64), args.Error(2)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *model.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) Update(ctx context.Context, member *model.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberRepository) FindByUserID(ctx context.Context, userID uint) (*model.Member, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberRepository) List(ctx context.Context, filter repository.MemberFilter) ([]model.Member, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Member), args.Get(1).(int64), args.Error(2)
}

func (m *MockMemberRepository) CreateApplication(ctx context.Context, app *model.MemberApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockMemberRepository) UpdateApplication(ctx context.Context, app *model.MemberApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockMemberRepository) FindApplicationByID(ctx context.Context, id uuid.UUID) (*model.MemberApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MemberApplication), args.Error(1)
}

func (m *MockMemberRepository) ListApplications(ctx context.Context, status model.ApplicationStatus, offset, limit int) ([]model.MemberApplication, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.MemberApplication), args.Get(1).(int64), args.Error(2)
}

func (m *MockMemberRepository) HasPendingApplication(ctx context.Context, userID uint) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMemberRepository) CreateBadge(ctx context.Context, badge *model.MemberBadge) error {
	args := m.Called(ctx, badge)
	return args.Error(0)
}

func (m *MockMemberRepository) ListBadges(ctx context.Context) ([]model.MemberBadge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MemberBadge), args.Error(1)
}

func (m *MockMemberRepository) FindBadgeByID(ctx context.Context, id uuid.UUID) (*model.MemberBadge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MemberBadge), args.Error(1)
}

func (m *MockMemberRepository) FindBadgeLike(ctx context.Context, category model.BadgeCategory, nameSubstr string) (*model.MemberBadge, error) {
	args := m.Called(ctx, category, nameSubstr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MemberBadge), args.Error(1)
}

func (m *MockMemberRepository) HasAchievement(ctx context.Context, memberID, badgeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, memberID, badgeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMemberRepository) CreateAchievement(ctx context.Context, achievement *model.MemberAchievement) error {
	args := m.Called(ctx, achievement)
	return args.Error(0)
}

func (m *MockMemberRepository) ListAchievements(ctx context.Context, memberID uuid.UUID) ([]model.MemberAchievement, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MemberAchievement), args.Error(1)
}

func (m *MockMemberRepository) LoadSettings(ctx context.Context) (*model.SubscriptionSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubscriptionSettings), args.Error(1)
}

func (m *MockMemberRepository) SaveSettings(ctx context.Context, settings *model.SubscriptionSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func boardUser(id uint) *model.User {
	u := memberUser(id)
	u.Role = model.RoleBoard
	return u
}

func adminUser(id uint) *model.User {
	u := memberUser(id)
	u.Role = model.RoleAdmin
	return u
}

func pendingPayment(userID uint, paymentType model.PaymentType) *model.Payment {
	return &model.Payment{
		ID:     uuid.New(),
		UserID: userID,
		Amount: MembershipFee,
		Type:   paymentType,
		Status: model.PaymentStatusPending,
	}
}

func newTestPaymentService(payments *MockPaymentRepository, members *MockMemberRepository) PaymentService {
	return NewPaymentService(payments, members, audit.Nop{})
}

func TestPaymentService_CreatePayment(t *testing.T) {
	t.Run("membership payment linked to member profile", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		members := new(MockMemberRepository)
		svc := newTestPaymentService(payments, members)

		member := &model.Member{ID: uuid.New(), UserID: 3}
		members.On("FindByUserID", mock.Anything, uint(3)).Return(member, nil)
		payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		payment, err := svc.CreatePayment(context.Background(), 3, MembershipFee, model.PaymentMembership, "bank_transfer", "")
		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, payment.Status)
		if assert.NotNil(t, payment.MemberID) {
			assert.Equal(t, member.ID, *payment.MemberID)
		}
	})

	t.Run("membership payment before profile exists", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		members := new(MockMemberRepository)
		svc := newTestPaymentService(payments, members)

		members.On("FindByUserID", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound)
		payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		payment, err := svc.CreatePayment(context.Background(), 3, MembershipFee, model.PaymentMembership, "cash", "")
		assert.NoError(t, err)
		assert.Nil(t, payment.MemberID)
	})

	t.Run("donation skips member lookup", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		members := new(MockMemberRepository)
		svc := newTestPaymentService(payments, members)

		payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		_, err := svc.CreatePayment(context.Background(), 3, decimal.RequireFromString("25.00"), model.PaymentDonation, "paypal", "keep it up")
		assert.NoError(t, err)
		members.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		members := new(MockMemberRepository)
		svc := newTestPaymentService(payments, members)

		for _, raw := range []string{"0.00", "-5.00"} {
			_, err := svc.CreatePayment(context.Background(), 3, decimal.RequireFromString(raw), model.PaymentDonation, "cash", "")
			assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
		}
		payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_CompletePayment_ExtendsMembership(t *testing.T) {
	settings := &model.SubscriptionSettings{ID: 1, DefaultDurationYears: 2}

	tests := []struct {
		name          string
		currentExpiry *time.Time
		wantBaseFunc  func(paidAt time.Time, current *time.Time) time.Time
	}{
		{
			name:          "no expiry extends from payment date",
			currentExpiry: nil,
			wantBaseFunc: func(paidAt time.Time, _ *time.Time) time.Time {
				return paidAt
			},
		},
		{
			name: "early renewal extends from current expiry",
			currentExpiry: func() *time.Time {
				t := time.Now().AddDate(0, 6, 0)
				return &t
			}(),
			wantBaseFunc: func(_ time.Time, current *time.Time) time.Time {
				return *current
			},
		},
		{
			name: "lapsed membership extends from payment date",
			currentExpiry: func() *time.Time {
				t := time.Now().AddDate(-1, 0, 0)
				return &t
			}(),
			wantBaseFunc: func(paidAt time.Time, _ *time.Time) time.Time {
				return paidAt
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentRepository)
			members := new(MockMemberRepository)
			svc := newTestPaymentService(payments, members)

			payment := pendingPayment(3, model.PaymentMembership)
			member := &model.Member{
				ID:               uuid.New(),
				UserID:           3,
				Status:           model.MembershipPending,
				MembershipExpiry: tt.currentExpiry,
			}

			payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
			payments.On("Update", mock.Anything, payment).Return(nil)
			members.On("FindByUserID", mock.Anything, uint(3)).Return(member, nil)
			members.On("LoadSettings", mock.Anything).Return(settings, nil)
			members.On("Update", mock.Anything, member).Return(nil)

			completed, err := svc.CompletePayment(context.Background(), payment.ID, "TX-123", boardUser(1))
			assert.NoError(t, err)
			assert.Equal(t, model.PaymentStatusCompleted, completed.Status)
			assert.Equal(t, "TX-123", completed.TransactionID)
			assert.NotNil(t, completed.PaidAt)

			assert.Equal(t, model.MembershipActive, member.Status)
			if assert.NotNil(t, member.MembershipExpiry) {
				want := tt.wantBaseFunc(*completed.PaidAt, tt.currentExpiry).AddDate(settings.DefaultDurationYears, 0, 0)
				assert.WithinDuration(t, want, *member.MembershipExpiry, time.Second)
			}
		})
	}
}

// Paying before the application is approved settles the payment but leaves
// the membership period to be granted when the board approves the profile;
// the payment stays unlinked (nil MemberID) so approval can pick it up.
func TestPaymentService_CompletePayment_BeforeApprovalDefersExtension(t *testing.T) {
	payments := new(MockPaymentRepository)
	members := new(MockMemberRepository)
	svc := newTestPaymentService(payments, members)

	payment := pendingPayment(3, model.PaymentMembership)
	payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	payments.On("Update", mock.Anything, payment).Return(nil)
	members.On("FindByUserID", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound)

	completed, err := svc.CompletePayment(context.Background(), payment.ID, "TX-1", boardUser(1))
	assert.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, completed.Status)
	assert.Nil(t, completed.MemberID)
	members.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPaymentService_CompletePayment_EventPaymentLeavesMembershipAlone(t *testing.T) {
	payments := new(MockPaymentRepository)
	members := new(MockMemberRepository)
	svc := newTestPaymentService(payments, members)

	payment := pendingPayment(3, model.PaymentEvent)
	payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	payments.On("Update", mock.Anything, payment).Return(nil)

	_, err := svc.CompletePayment(context.Background(), payment.ID, "TX-2", boardUser(1))
	assert.NoError(t, err)
	members.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
}

func TestPaymentService_SettlementStateMachine(t *testing.T) {
	tests := []struct {
		name          string
		status        model.PaymentStatus
		settle        func(svc PaymentService, id uuid.UUID) error
		expectedError error
	}{
		{
			name:   "complete requires pending",
			status: model.PaymentStatusCompleted,
			settle: func(svc PaymentService, id uuid.UUID) error {
				_, err := svc.CompletePayment(context.Background(), id, "TX", boardUser(1))
				return err
			},
			expectedError: apperrors.ErrPaymentSettled,
		},
		{
			name:   "fail requires pending",
			status: model.PaymentStatusRefunded,
			settle: func(svc PaymentService, id uuid.UUID) error {
				_, err := svc.FailPayment(context.Background(), id, boardUser(1))
				return err
			},
			expectedError: apperrors.ErrPaymentSettled,
		},
		{
			name:   "refund requires completed",
			status: model.PaymentStatusPending,
			settle: func(svc PaymentService, id uuid.UUID) error {
				_, err := svc.RefundPayment(context.Background(), id, adminUser(1))
				return err
			},
			expectedError: apperrors.ErrPaymentSettled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentRepository)
			members := new(MockMemberRepository)
			svc := newTestPaymentService(payments, members)

			payment := pendingPayment(3, model.PaymentMembership)
			payment.Status = tt.status
			payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

			err := tt.settle(svc, payment.ID)
			assert.ErrorIs(t, err, tt.expectedError)
			payments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestPaymentService_RefundPayment(t *testing.T) {
	t.Run("admin refunds completed payment", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		members := new(MockMemberRepository)
		svc := newTestPaymentService(payments, members)

		payment := pendingPayment(3, model.PaymentMembership)
		payment.Status = model.PaymentStatusCompleted
		payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		payments.On("Update", mock.Anything, payment).Return(nil)

		refunded, err := svc.RefundPayment(context.Background(), payment.ID, adminUser(1))
		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusRefunded, refunded.Status)
	})

	t.Run("board member cannot refund", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		members := new(MockMemberRepository)
		svc := newTestPaymentService(payments, members)

		_, err := svc.RefundPayment(context.Background(), uuid.New(), boardUser(1))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		payments.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_SettlementPermissions(t *testing.T) {
	payments := new(MockPaymentRepository)
	members := new(MockMemberRepository)
	svc := newTestPaymentService(payments, members)

	_, err := svc.CompletePayment(context.Background(), uuid.New(), "TX", memberUser(3))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.FailPayment(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestPaymentService_GetPayment_Visibility(t *testing.T) {
	tests := []struct {
		name          string
		viewer        *model.User
		expectedError error
	}{
		{name: "owner sees own payment", viewer: memberUser(3)},
		{name: "board sees any payment", viewer: boardUser(9)},
		{name: "other member denied", viewer: memberUser(4), expectedError: apperrors.ErrPermissionDenied},
		{name: "anonymous denied", viewer: nil, expectedError: apperrors.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentRepository)
			members := new(MockMemberRepository)
			svc := newTestPaymentService(payments, members)

			payment := pendingPayment(3, model.PaymentMembership)
			payments.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

			got, err := svc.GetPayment(context.Background(), payment.ID, tt.viewer)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, payment.ID, got.ID)
		})
	}
}

func TestPaymentService_GetPayment_NotFound(t *testing.T) {
	payments := new(MockPaymentRepository)
	members := new(MockMemberRepository)
	svc := newTestPaymentService(payments, members)

	id := uuid.New()
	payments.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetPayment(context.Background(), id, boardUser(1))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
