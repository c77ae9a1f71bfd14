package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentType classifies what a payment is for.
type PaymentType string

const (
	PaymentMembership PaymentType = "membership"
	PaymentEvent      PaymentType = "event"
	PaymentDonation   PaymentType = "donation"
	PaymentOther      PaymentType = "other"
)

// PaymentStatus represents the status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is a financial ledger row. Completed membership payments feed
// membership activation and expiry extension.
type Payment struct {
	ID            uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserID        uint            `json:"user_id" gorm:"not null;index"`
	MemberID      *uuid.UUID      `json:"member_id,omitempty" gorm:"type:char(36);index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Type          PaymentType     `json:"type" gorm:"size:20;not null;default:'membership';index"`
	Status        PaymentStatus   `json:"status" gorm:"size:20;not null;default:'pending';index"`
	TransactionID string          `json:"transaction_id,omitempty" gorm:"size:100"`
	PaymentMethod string          `json:"payment_method,omitempty" gorm:"size:50"`
	Notes         string          `json:"notes,omitempty" gorm:"type:text"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
