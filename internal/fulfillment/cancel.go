package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shipment-console/pkg/enums"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const opCancel = "cancel"

// CancelOptions carries the operator's second-step confirmation.
type CancelOptions struct {
	Confirmed bool `json:"confirmed"`
}

// CancelPlan is the same-outbound-date batch a cancellation would revert.
type CancelPlan struct {
	OutboundDate string `json:"outbound_date"`
	LineNos      []int  `json:"line_nos"`
	Positions    []int  `json:"positions"`
	Reference    string `json:"reference"`
}

// CancelOutcome reports how a cancellation ended.
type CancelOutcome struct {
	Status  enums.ShipmentOutcome `json:"status"`
	Plan    *CancelPlan           `json:"plan,omitempty"`
	Message string                `json:"message,omitempty"`
}

// Canceller runs the cancellation flow against a session.
type Canceller struct {
	gateway  Gateway
	recorder Recorder
	logg     *logger.Logger
}

// NewCanceller wires a Canceller. recorder may be nil.
func NewCanceller(gateway Gateway, recorder Recorder, logg *logger.Logger) (*Canceller, error) {
	if gateway == nil {
		return nil, errors.New("gateway required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Canceller{gateway: gateway, recorder: recorder, logg: logg}, nil
}

// Cancel reverts one whole outbound-date batch of the open detail. Without
// opts.Confirmed it only returns the plan.
func (c *Canceller) Cancel(ctx context.Context, s *Session, actor Actor, opts CancelOptions) (outcome *CancelOutcome, err error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logg.Error(ctx, "shipment.cancel.panic", fmt.Errorf("panic: %v", r))
			outcome = nil
			err = pkgerrors.New(pkgerrors.CodeInternal, "shipment cancellation failed")
		}
		c.recorder.ObserveOperation(opCancel, time.Since(start), err)
	}()

	st := s.snapshot()
	plan, lines, err := planCancel(st)
	if err != nil {
		return nil, err
	}
	if !opts.Confirmed {
		return &CancelOutcome{
			Status:  enums.ShipmentOutcomeConfirmationRequired,
			Plan:    plan,
			Message: fmt.Sprintf("cancel shipment %s covering line(s) %s?", plan.Reference, joinInts(plan.LineNos)),
		}, nil
	}

	summary := *st.current
	vendorID := actor.VendorID
	if vendorID == "" {
		vendorID = strings.TrimSpace(summary.VendorID)
	}
	req := CancelRequest{
		OrderDate: summary.OrderDate,
		OrderSeq:  summary.OrderSeq,
		VendorID:  vendorID,
		UserID:    actor.UserID,
		Lines:     lines,
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"order_date":    summary.OrderDate,
		"order_seq":     summary.OrderSeq,
		"outbound_date": plan.OutboundDate,
		"user_id":       actor.UserID,
	})

	result, err := c.gateway.CancelShipment(ctx, req)
	if err != nil {
		c.recorder.RecordCancel(false)
		c.logg.Error(ctx, "shipment.cancel.failed", err)
		return nil, wrapGatewayError(err, "cancel shipment")
	}
	if !result.Success {
		c.recorder.RecordCancel(false)
		msg := result.Message
		if msg == "" {
			msg = "cancellation rejected"
		}
		c.logg.Warn(c.logg.WithField(ctx, "message", msg), "shipment.cancel.rejected")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msg)
	}
	c.recorder.RecordCancel(true)

	if loadErr := loadDetail(ctx, c.gateway, s, actor, summary); loadErr != nil {
		s.invalidateDetail()
		c.logg.Warn(c.logg.WithField(ctx, "error", loadErr.Error()), "shipment.cancel.reload_failed")
	}
	if reloadErr := reloadSummaries(ctx, c.gateway, s, actor); reloadErr != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", reloadErr.Error()), "shipment.cancel.reload_failed")
	}

	c.logg.Info(ctx, "shipment.cancel.complete")
	msg := result.Message
	if msg == "" {
		msg = fmt.Sprintf("shipment %s cancelled", plan.Reference)
	}
	return &CancelOutcome{Status: enums.ShipmentOutcomeSuccess, Plan: plan, Message: msg}, nil
}

// planCancel resolves the full batch and applies the inbound guard and the
// unanimous-selection rule.
func planCancel(st sessionState) (*CancelPlan, []CancelLine, error) {
	if st.current == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "select an order summary first")
	}
	flags := DeriveFlags(st.loaded, st.lines)
	shippedDate := func(i int) (string, bool) {
		if i >= len(st.loaded) {
			return "", false
		}
		return NormalizeDate(st.loaded[i].OutboundDate)
	}

	selected := st.selection
	if selected.Empty() && batchFullyShipped(flags) {
		var positions []int
		for i := range st.lines {
			if _, ok := shippedDate(i); ok && !flags[i].Locked {
				positions = append(positions, i)
			}
		}
		selected = NewSelection(positions...)
	}

	var date string
	for _, pos := range selected.Positions() {
		if pos >= len(flags) || flags[pos].Locked {
			continue
		}
		if d, ok := shippedDate(pos); ok {
			date = d
			break
		}
	}
	if date == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "select shipped lines to cancel")
	}

	var batch []int
	for i := range st.lines {
		if d, ok := shippedDate(i); ok && d == date {
			batch = append(batch, i)
		}
	}

	var received []int
	for _, pos := range batch {
		if st.loaded[pos].ReceivingDate != "" {
			received = append(received, st.lines[pos].LineNo)
		}
	}
	if len(received) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("shipment of %s has already been received and cannot be cancelled", date)).
			WithDetails(map[string]any{"lines": received, "outbound_date": date})
	}

	full := NewSelection(batch...)
	if !selected.Equal(full) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cancellation must cover every line shipped on %s", date)).
			WithDetails(map[string]any{"required_positions": full.Positions(), "selected_positions": selected.Positions()})
	}

	plan := &CancelPlan{
		OutboundDate: date,
		Positions:    full.Positions(),
		Reference:    ShipmentReference(date, st.current.OrderDate, st.current.OrderSeq),
	}
	lines := make([]CancelLine, 0, len(batch))
	for _, pos := range batch {
		line := st.lines[pos]
		plan.LineNos = append(plan.LineNos, line.LineNo)
		lines = append(lines, CancelLine{LineNo: line.LineNo, VendorID: strings.TrimSpace(line.VendorID)})
	}
	return plan, lines, nil
}

// batchFullyShipped reports whether no line is still pending and at least one shipped.
func batchFullyShipped(flags []LineFlags) bool {
	if !anyShipped(flags) {
		return false
	}
	for _, f := range flags {
		if !f.Locked && !f.Shipped {
			return false
		}
	}
	return true
}
