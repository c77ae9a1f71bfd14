package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// PaymentRepository defines payment persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Payment, error)
	List(ctx context.Context, status model.PaymentStatus, paymentType model.PaymentType, offset, limit int) ([]model.Payment, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment record.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Update updates an existing payment record.
func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// FindByID finds a payment by ID.
func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByUser returns all payments made by a user, newest first.
func (r *paymentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// List returns a filtered page of payments plus the total count.
func (r *paymentRepository) List(ctx context.Context, status model.PaymentStatus, paymentType model.PaymentType, offset, limit int) ([]model.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Payment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if paymentType != "" {
		q = q.Where("type = ?", paymentType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []model.Payment
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
