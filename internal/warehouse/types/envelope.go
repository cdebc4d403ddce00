package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/shipment-console/pkg/enums"
)

// Envelope is a shipment event as it arrives from the Pub/Sub subscription.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	ActorUserID   string                    `json:"actor_user_id,omitempty"`
	Payload       json.RawMessage           `json:"payload"`
}
