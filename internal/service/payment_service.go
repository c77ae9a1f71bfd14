package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ascai/internal/audit"
	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// MembershipFee is the standard subscription fee in euros.
var MembershipFee = decimal.RequireFromString("10.00")

// PaymentService records payments and applies completed membership payments
// to the member's subscription.
type PaymentService interface {
	CreatePayment(ctx context.Context, userID uint, amount decimal.Decimal, paymentType model.PaymentType, method, notes string) (*model.Payment, error)
	CompletePayment(ctx context.Context, paymentID uuid.UUID, transactionID string, actor *model.User) (*model.Payment, error)
	FailPayment(ctx context.Context, paymentID uuid.UUID, actor *model.User) (*model.Payment, error)
	RefundPayment(ctx context.Context, paymentID uuid.UUID, actor *model.User) (*model.Payment, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID, viewer *model.User) (*model.Payment, error)
	ListPayments(ctx context.Context, status model.PaymentStatus, paymentType model.PaymentType, offset, limit int) ([]model.Payment, int64, error)
	ListUserPayments(ctx context.Context, userID uint) ([]model.Payment, error)
}

type paymentService struct {
	payments repository.PaymentRepository
	members  repository.MemberRepository
	recorder audit.Recorder
}

// NewPaymentService creates a new payment service.
func NewPaymentService(payments repository.PaymentRepository, members repository.MemberRepository, recorder audit.Recorder) PaymentService {
	return &paymentService{
		payments: payments,
		members:  members,
		recorder: recorder,
	}
}

// CreatePayment records a pending payment for the user. Membership payments
// are linked to the member profile when one exists.
func (s *paymentService) CreatePayment(ctx context.Context, userID uint, amount decimal.Decimal, paymentType model.PaymentType, method, notes string) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	payment := &model.Payment{
		UserID:        userID,
		Amount:        amount,
		Type:          paymentType,
		Status:        model.PaymentStatusPending,
		PaymentMethod: method,
		Notes:         notes,
	}

	if paymentType == model.PaymentMembership {
		member, err := s.members.FindByUserID(ctx, userID)
		if err == nil {
			payment.MemberID = &member.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find member: %w", err)
		}
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditCreate,
		Entity:   "payment",
		EntityID: payment.ID.String(),
		ActorID:  &userID,
		Summary:  fmt.Sprintf("%s payment of %s recorded", paymentType, amount.StringFixed(2)),
	})
	return payment, nil
}

// CompletePayment settles a pending payment. Completed membership payments
// extend the subscription: the new expiry is the configured duration past
// whichever is later, the payment date or the current expiry, so paying early
// never loses time.
func (s *paymentService) CompletePayment(ctx context.Context, paymentID uuid.UUID, transactionID string, actor *model.User) (*model.Payment, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.ErrPaymentSettled
	}

	now := time.Now()
	payment.Status = model.PaymentStatusCompleted
	payment.TransactionID = transactionID
	payment.PaidAt = &now
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if payment.Type == model.PaymentMembership {
		if err := s.applyMembershipPayment(ctx, payment, now); err != nil {
			return nil, err
		}
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "payment",
		EntityID: payment.ID.String(),
		ActorID:  &actor.ID,
		Summary:  "payment completed",
		Metadata: map[string]interface{}{"transaction_id": transactionID},
	})
	return payment, nil
}

func (s *paymentService) applyMembershipPayment(ctx context.Context, payment *model.Payment, paidAt time.Time) error {
	member, err := s.members.FindByUserID(ctx, payment.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // payment precedes the member profile; applied on approval
		}
		return fmt.Errorf("find member: %w", err)
	}

	settings, err := s.members.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	base := paidAt
	if member.MembershipExpiry != nil && member.MembershipExpiry.After(base) {
		base = *member.MembershipExpiry
	}
	expiry := base.AddDate(settings.DefaultDurationYears, 0, 0)

	member.MembershipExpiry = &expiry
	member.Status = model.MembershipActive
	if err := s.members.Update(ctx, member); err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

// FailPayment marks a pending payment as failed.
func (s *paymentService) FailPayment(ctx context.Context, paymentID uuid.UUID, actor *model.User) (*model.Payment, error) {
	if actor == nil || !actor.IsBoardMember() {
		return nil, apperrors.ErrPermissionDenied
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.ErrPaymentSettled
	}

	payment.Status = model.PaymentStatusFailed
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "payment",
		EntityID: payment.ID.String(),
		ActorID:  &actor.ID,
		Summary:  "payment failed",
	})
	return payment, nil
}

// RefundPayment reverses a completed payment. The subscription itself is not
// rolled back automatically; the board adjusts the member separately if
// needed.
func (s *paymentService) RefundPayment(ctx context.Context, paymentID uuid.UUID, actor *model.User) (*model.Payment, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperrors.ErrPermissionDenied
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment.Status != model.PaymentStatusCompleted {
		return nil, apperrors.ErrPaymentSettled
	}

	payment.Status = model.PaymentStatusRefunded
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	s.recorder.Record(audit.Event{
		Action:   model.AuditStatusChange,
		Entity:   "payment",
		EntityID: payment.ID.String(),
		ActorID:  &actor.ID,
		Summary:  "payment refunded",
	})
	return payment, nil
}

// GetPayment returns a payment visible to its owner or the board.
func (s *paymentService) GetPayment(ctx context.Context, paymentID uuid.UUID, viewer *model.User) (*model.Payment, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}

	if viewer == nil || (viewer.ID != payment.UserID && !viewer.IsBoardMember()) {
		return nil, apperrors.ErrPermissionDenied
	}
	return payment, nil
}

// ListPayments returns a filtered page of all payments. Board only, enforced
// at the router.
func (s *paymentService) ListPayments(ctx context.Context, status model.PaymentStatus, paymentType model.PaymentType, offset, limit int) ([]model.Payment, int64, error) {
	return s.payments.List(ctx, status, paymentType, offset, limit)
}

// ListUserPayments returns the user's own payment history.
func (s *paymentService) ListUserPayments(ctx context.Context, userID uint) ([]model.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}
