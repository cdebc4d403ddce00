package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/shipment-console/api/responses"
	"github.com/angelmondragon/shipment-console/api/validators"
	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = 200
)

type deadLetterView struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	AggregateID  string          `json:"aggregate_id"`
	ErrorReason  string          `json:"error_reason"`
	ErrorMessage string          `json:"error_message,omitempty"`
	AttemptCount int             `json:"attempt_count"`
	FailedAt     time.Time       `json:"failed_at"`
	Payload      json.RawMessage `json:"payload"`
}

func newDeadLetterView(row models.OutboxDLQ) deadLetterView {
	view := deadLetterView{
		ID:           row.ID.String(),
		EventID:      row.EventID.String(),
		EventType:    string(row.EventType),
		AggregateID:  row.AggregateID.String(),
		ErrorReason:  string(row.ErrorReason),
		AttemptCount: row.AttemptCount,
		FailedAt:     row.FailedAt,
		Payload:      row.Payload,
	}
	if row.ErrorMessage != nil {
		view.ErrorMessage = *row.ErrorMessage
	}
	return view
}

type deadLetterLister interface {
	List(ctx context.Context, limit int, reason enums.OutboxDLQErrorReason) ([]models.OutboxDLQ, error)
}

// AdminDeadLetters lists shipment events the publisher gave up on, newest first,
// optionally narrowed to one error reason.
func AdminDeadLetters(repo deadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter repository unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultDeadLetterLimit, 1, maxDeadLetterLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var reason enums.OutboxDLQErrorReason
		if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
			if reason, err = enums.ParseOutboxDLQErrorReason(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown dead letter reason").
					WithDetails(map[string]any{"field": "reason"}))
				return
			}
		}
		rows, err := repo.List(r.Context(), limit, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		items := make([]deadLetterView, 0, len(rows))
		for _, row := range rows {
			items = append(items, newDeadLetterView(row))
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "count": len(items)})
	}
}
