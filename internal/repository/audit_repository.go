package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ascai/internal/model"
)

// AuditLogFilter narrows audit trail queries.
type AuditLogFilter struct {
	Entity  string
	Action  model.AuditAction
	ActorID *uint
	From    *time.Time
	To      *time.Time
	Offset  int
	Limit   int
}

// AuditLogRepository persists and queries audit rows. Create and CreateBatch
// satisfy the audit recorder's store interface.
type AuditLogRepository interface {
	Create(ctx context.Context, row *model.AuditLog) error
	CreateBatch(ctx context.Context, rows []model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, row *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// CreateBatch inserts a worker's flushed batch in one statement.
func (r *auditLogRepository) CreateBatch(ctx context.Context, rows []model.AuditLog) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// List returns a page of audit rows matching the filter, newest first.
func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.Entity != "" {
		q = q.Where("entity = ?", filter.Entity)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ActorID != nil {
		q = q.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.AuditLog
	err := q.Order("created_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
