package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/types"
)

// RequestIDHeader is set by the request id middleware before any handler runs.
const RequestIDHeader = "X-Request-Id"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(context.Background(), nil, w, status, types.SuccessEnvelope{Data: data})
}

// WriteError resolves err to its public form, logs it at a level matching the
// status and writes the error envelope.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	pub := pkgerrors.Resolve(err)
	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(pub.Code),
			Message:   pub.Message,
			Retryable: pub.Retryable,
			Details:   pub.Details,
		},
		RequestID: w.Header().Get(RequestIDHeader),
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["status"] = pub.Status
		if typed := pkgerrors.As(err); typed != nil {
			if d, ok := typed.Details().(map[string]any); ok {
				for _, key := range []string{"lines", "field", "line_no"} {
					if v, ok := d[key]; ok {
						fields[key] = v
					}
				}
			}
		}
		ctx = logg.WithFields(ctx, fields)
		if pub.Status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(ctx, logg, w, pub.Status, payload)
}

func writeJSON(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logg != nil {
		logg.Error(ctx, "response.encode_failed", err)
	}
}
