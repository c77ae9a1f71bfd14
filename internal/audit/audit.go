// Package audit records domain events emitted explicitly by mutating
// services. Events carry a typed action and entity name instead of reacting to
// arbitrary model saves, and are persisted by an asynchronous batching worker.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ascai/internal/model"
)

// Event is one domain event worth auditing.
type Event struct {
	Action   model.AuditAction
	Entity   string
	EntityID string
	ActorID  *uint
	Summary  string
	Metadata map[string]interface{}
}

// Recorder accepts events for asynchronous persistence.
type Recorder interface {
	Record(e Event)
}

// Store persists audit rows. Satisfied by repository.AuditLogRepository.
type Store interface {
	Create(ctx context.Context, row *model.AuditLog) error
	CreateBatch(ctx context.Context, rows []model.AuditLog) error
}

type recorder struct {
	store Store
	ch    chan model.AuditLog
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(store Store) Recorder {
	r := &recorder{
		store: store,
		ch:    make(chan model.AuditLog, 100),
	}
	go r.worker(context.Background())
	return r
}

// Record enqueues an event without blocking the caller. When the queue is
// full the row is written synchronously instead of being dropped.
func (r *recorder) Record(e Event) {
	row := model.AuditLog{
		Action:   e.Action,
		Entity:   e.Entity,
		EntityID: e.EntityID,
		ActorID:  e.ActorID,
		Summary:  e.Summary,
	}
	if e.Metadata != nil {
		if data, err := json.Marshal(e.Metadata); err == nil {
			row.Metadata = string(data)
		}
	}

	select {
	case r.ch <- row:
	default:
		if err := r.store.Create(context.Background(), &row); err != nil {
			log.Printf("audit: write failed: %v", err)
		}
	}
}

// worker batches queued rows and flushes them on size or on a ticker.
func (r *recorder) worker(ctx context.Context) {
	batch := make([]model.AuditLog, 0, 10)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.store.CreateBatch(ctx, batch); err != nil {
			log.Printf("audit: batch write failed: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case row, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= 10 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

// Nop is a Recorder that discards all events. Used in tests.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Event) {}
