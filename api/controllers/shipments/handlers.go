package shipments

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shipment-console/api/middleware"
	"github.com/angelmondragon/shipment-console/api/responses"
	"github.com/angelmondragon/shipment-console/api/validators"
	"github.com/angelmondragon/shipment-console/internal/fulfillment"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

// Console is the engine surface the handlers drive.
type Console interface {
	Sessions() *fulfillment.Store
	Search(ctx context.Context, s *fulfillment.Session, actor fulfillment.Actor, query fulfillment.SearchQuery) error
	OpenDetail(ctx context.Context, s *fulfillment.Session, actor fulfillment.Actor, key fulfillment.SummaryKey) error
	AddExpiry(s *fulfillment.Session, lineNo int, detail fulfillment.ExpiryDetail) error
	UpdateExpiry(s *fulfillment.Session, lineNo, idx int, detail fulfillment.ExpiryDetail) error
	RemoveExpiry(s *fulfillment.Session, lineNo, idx int) error
	SetExpiries(s *fulfillment.Session, lineNo int, details []fulfillment.ExpiryDetail) error
	SetShipmentFields(s *fulfillment.Session, fields fulfillment.ShipmentFields) error
	ToggleLine(s *fulfillment.Session, pos int) error
	SelectAll(s *fulfillment.Session) error
	SelectBatch(s *fulfillment.Session, outboundDate string) error
	ClearSelection(s *fulfillment.Session) error
	Confirm(ctx context.Context, s *fulfillment.Session, actor fulfillment.Actor, opts fulfillment.ConfirmOptions) (*fulfillment.ConfirmOutcome, error)
	Cancel(ctx context.Context, s *fulfillment.Session, actor fulfillment.Actor, opts fulfillment.CancelOptions) (*fulfillment.CancelOutcome, error)
	Reset(s *fulfillment.Session) error
}

// CreateSession opens an empty console session for the caller.
func CreateSession(console Console, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "console unavailable"))
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		s := console.Sessions().Create(userID)
		if logg != nil {
			logg.Info(logg.WithConsoleSession(r.Context(), s.ID), "console.session.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{Session: s.View()})
	}
}

// GetSession renders the session: summaries with confirmed emphasis, lines with
// flags, the selection and the busy indicator.
func GetSession(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// CloseSession drops the caller's session.
func CloseSession(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		if s.Busy() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "another console operation is in progress"))
			return
		}
		console.Sessions().Delete(s.ID)
		w.WriteHeader(http.StatusNoContent)
	})
}

// Search replaces the summary list. Vendor operators are pinned to their vendor.
func Search(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		var req searchRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := fulfillment.SearchQuery{
			DateFrom: strings.TrimSpace(req.DateFrom),
			DateTo:   strings.TrimSpace(req.DateTo),
			VendorID: strings.TrimSpace(req.VendorID),
			StoreID:  strings.TrimSpace(req.StoreID),
			AgentID:  strings.TrimSpace(req.AgentID),
			Status:   req.Status,
			Query:    validators.SanitizeString(req.Query, maxQueryLength),
		}
		if err := console.Search(r.Context(), s, actorFrom(r), query); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// OpenDetail loads the lines of one summary from the current search.
func OpenDetail(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		var req detailRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := fulfillment.SummaryKey{OrderDate: req.OrderDate, OrderSeq: req.OrderSeq}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrder(ctx, key.OrderDate, key.OrderSeq)
		}
		if err := console.OpenDetail(ctx, s, actorFrom(r), key); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// ReplaceExpiries sets the whole lot list of one line.
func ReplaceExpiries(console Console, logg *logger.Logger) http.HandlerFunc {
	return withLine(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session, lineNo int) {
		var req replaceExpiriesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details, err := req.toDetails()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := console.SetExpiries(s, lineNo, details); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// AddExpiry appends one lot to a line.
func AddExpiry(console Console, logg *logger.Logger) http.HandlerFunc {
	return withLine(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session, lineNo int) {
		var req expiryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := req.toDetail()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := console.AddExpiry(s, lineNo, detail); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{Session: s.View()})
	})
}

// UpdateExpiry replaces one lot of a line.
func UpdateExpiry(console Console, logg *logger.Logger) http.HandlerFunc {
	return withLine(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session, lineNo int) {
		idx, err := intParam(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req expiryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := req.toDetail()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := console.UpdateExpiry(s, lineNo, idx, detail); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// RemoveExpiry drops one lot of a line; a persisted lot is remembered for deletion.
func RemoveExpiry(console Console, logg *logger.Logger) http.HandlerFunc {
	return withLine(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session, lineNo int) {
		idx, err := intParam(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := console.RemoveExpiry(s, lineNo, idx); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// SetShipmentFields applies the shared shipment fields to every editable line.
func SetShipmentFields(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		var req shipmentFieldsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := console.SetShipmentFields(s, req.toFields()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// UpdateSelection toggles one line, selects every eligible line, selects one
// outbound-date batch or clears.
func UpdateSelection(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		var req selectionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var err error
		switch req.Action {
		case selectionToggle:
			if req.Position == nil {
				err = pkgerrors.New(pkgerrors.CodeValidation, "position is required to toggle a line")
				break
			}
			err = console.ToggleLine(s, *req.Position)
		case selectionAll:
			err = console.SelectAll(s)
		case selectionClear:
			err = console.ClearSelection(s)
		case selectionBatch:
			if req.OutboundDate == "" {
				err = pkgerrors.New(pkgerrors.CodeValidation, "outbound_date is required to select a batch")
				break
			}
			err = console.SelectBatch(s, req.OutboundDate)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

// Confirm submits the open detail per vendor. A consent_required outcome asks
// the caller to resend with accept_partial.
func Confirm(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		var req confirmRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := console.Confirm(r.Context(), s, actorFrom(r), fulfillment.ConfirmOptions{AcceptPartial: req.AcceptPartial})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmResponse{Outcome: outcome, Session: s.View()})
	})
}

// Cancel returns the batch plan, or reverts it once confirmed is set.
func Cancel(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		var req cancelRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := console.Cancel(r.Context(), s, actorFrom(r), fulfillment.CancelOptions{Confirmed: req.Confirmed})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelResponse{Outcome: outcome, Session: s.View()})
	})
}

// Reset clears the search, the detail and the confirmed emphasis.
func Reset(console Console, logg *logger.Logger) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		if err := console.Reset(s); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: s.View()})
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session)

func withSession(console Console, logg *logger.Logger, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "console unavailable"))
			return
		}
		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}
		s, err := console.Sessions().GetOwned(sessionID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithConsoleSession(ctx, s.ID)
		}
		next(w, r.WithContext(ctx), s)
	}
}

func withLine(console Console, logg *logger.Logger, next func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session, lineNo int)) http.HandlerFunc {
	return withSession(console, logg, func(w http.ResponseWriter, r *http.Request, s *fulfillment.Session) {
		lineNo, err := intParam(r, "lineNo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, s, lineNo)
	})
}

func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).WithDetails(map[string]any{name: raw})
	}
	return v, nil
}

func actorFrom(r *http.Request) fulfillment.Actor {
	ctx := r.Context()
	return fulfillment.Actor{
		UserID:   middleware.UserIDFromContext(ctx),
		VendorID: middleware.VendorIDFromContext(ctx),
		Role:     middleware.RoleFromContext(ctx),
	}
}
