package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shipment-console/pkg/redis"
)

const deliveredValue = "1"

// Ledger remembers which outbox rows a consumer already delivered, so a row whose
// publish succeeded but whose published_at update was lost is not sent twice.
// Keys look like `shipconsole:idempotency:evt:delivered:<consumer>:<outbox_id>`.
type Ledger struct {
	store    redis.IdempotencyStore
	consumer string
	ttl      time.Duration
}

// NewLedger builds a ledger for one consumer. ttl 0 keeps entries forever.
func NewLedger(store redis.IdempotencyStore, consumer string, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if consumer == "" {
		return nil, errors.New("consumer name is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Ledger{store: store, consumer: consumer, ttl: ttl}, nil
}

// Delivered reports whether eventID was already marked.
func (l *Ledger) Delivered(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := l.key(eventID)
	if err != nil {
		return false, err
	}
	value, err := l.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value != "", nil
}

// MarkDelivered records eventID. It returns false when the mark already existed.
func (l *Ledger) MarkDelivered(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := l.key(eventID)
	if err != nil {
		return false, err
	}
	return l.store.SetNX(ctx, key, deliveredValue, l.ttl)
}

// Forget drops the mark so the row is delivered again on the next poll.
func (l *Ledger) Forget(ctx context.Context, eventID uuid.UUID) error {
	key, err := l.key(eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(eventID uuid.UUID) (string, error) {
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return l.store.IdempotencyKey(fmt.Sprintf("evt:delivered:%s", l.consumer), eventID.String()), nil
}
