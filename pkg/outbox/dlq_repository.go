package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"gorm.io/gorm"
)

const (
	maxDeadLetterMessage = 1024
	defaultListLimit     = 50
)

// DeadLetter copies an outbox row into its dead letter form.
func DeadLetter(event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, at time.Time) models.OutboxDLQ {
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      at.UTC(),
	}
	if cause != nil {
		msg := clip(cause.Error(), maxDeadLetterMessage)
		entry.ErrorMessage = &msg
	}
	return entry
}

// DLQRepository reads and writes outbox_dlq.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx writes entry inside the publisher's claim transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := clip(*entry.ErrorMessage, maxDeadLetterMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List returns dead letters newest first. An empty reason matches all.
func (r *DLQRepository) List(ctx context.Context, limit int, reason enums.OutboxDLQErrorReason) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := r.db.WithContext(ctx).Order("failed_at DESC").Order("id").Limit(limit)
	if reason != "" {
		q = q.Where("error_reason = ?", reason)
	}
	var rows []models.OutboxDLQ
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteFailedBefore prunes dead letters older than cutoff and reports how
// many went.
func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	res := tx.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

// clip cuts s to at most max bytes without splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
