package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EnvelopeVersion is written on every new event. Consumers accept anything up
// to it.
const EnvelopeVersion = 1

var ErrEmptyData = errors.New("envelope data is empty")

// ActorRef is the operator whose confirm or cancel produced the event.
type ActorRef struct {
	UserID   string `json:"userId"`
	VendorID string `json:"vendorId,omitempty"`
	Role     string `json:"role,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds and what gets published
// as the Pub/Sub message body. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored or published envelope and rejects versions
// newer than this build understands.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("envelope version %d is newer than %d", env.Version, EnvelopeVersion)
	}
	return env, nil
}

// DecodeData unmarshals the event body into dst.
func (e PayloadEnvelope) DecodeData(dst any) error {
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyData
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}
