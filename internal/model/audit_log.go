package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction names what happened to an entity.
type AuditAction string

const (
	AuditCreate       AuditAction = "create"
	AuditUpdate       AuditAction = "update"
	AuditDelete       AuditAction = "delete"
	AuditStatusChange AuditAction = "status_change"
)

// AuditLog is one persisted audit event. Rows are written by the audit
// recorder's background worker, not by request handlers directly.
type AuditLog struct {
	ID       uuid.UUID   `json:"id" gorm:"type:char(36);primaryKey"`
	Action   AuditAction `json:"action" gorm:"size:20;not null;index"`
	Entity   string      `json:"entity" gorm:"size:50;not null;index:idx_audit_entity"`
	EntityID string      `json:"entity_id" gorm:"size:36;not null;index:idx_audit_entity"`
	ActorID  *uint       `json:"actor_id,omitempty" gorm:"index"`
	Summary  string      `json:"summary" gorm:"size:500;not null"`
	Metadata string      `json:"metadata,omitempty" gorm:"type:json"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
