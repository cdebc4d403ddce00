package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/shipment-console/pkg/enums"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const opConfirm = "confirm"

// ConfirmOptions carries the operator's answers to earlier prompts.
type ConfirmOptions struct {
	// AcceptPartial proceeds past the zero-quantity consent gate.
	AcceptPartial bool `json:"accept_partial"`
}

// PartitionResult is the answer for one vendor partition.
type PartitionResult struct {
	VendorID string `json:"vendor_id"`
	LineNos  []int  `json:"line_nos"`
	Sent     bool   `json:"sent"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

// ConfirmOutcome reports how a confirmation ended. ZeroQtyLines is only set for
// consent_required.
type ConfirmOutcome struct {
	Status       enums.ShipmentOutcome `json:"status"`
	ZeroQtyLines []int                 `json:"zero_qty_lines,omitempty"`
	Partitions   []PartitionResult     `json:"partitions,omitempty"`
	SuccessCount int                   `json:"success_count"`
	FailureCount int                   `json:"failure_count"`
	Message      string                `json:"message,omitempty"`
}

type vendorPartition struct {
	vendorID string
	fields   ShipmentFields
	lines    []OrderLine
	payload  []ConfirmLine
}

type confirmPlan struct {
	summary    OrderSummary
	partitions []vendorPartition
}

// Confirmer runs the confirmation flow against a session.
type Confirmer struct {
	gateway  Gateway
	recorder Recorder
	logg     *logger.Logger
}

// NewConfirmer wires a Confirmer. recorder may be nil.
func NewConfirmer(gateway Gateway, recorder Recorder, logg *logger.Logger) (*Confirmer, error) {
	if gateway == nil {
		return nil, errors.New("gateway required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Confirmer{gateway: gateway, recorder: recorder, logg: logg}, nil
}

// Confirm submits the open detail, one sequential request per vendor partition.
func (c *Confirmer) Confirm(ctx context.Context, s *Session, actor Actor, opts ConfirmOptions) (outcome *ConfirmOutcome, err error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	dispatched := false
	defer func() {
		if r := recover(); r != nil {
			c.logg.Error(ctx, "shipment.confirm.panic", fmt.Errorf("panic: %v", r))
			// Some partitions may already be confirmed server-side.
			if dispatched {
				s.invalidateDetail()
			}
			outcome = nil
			err = pkgerrors.New(pkgerrors.CodeInternal, "shipment confirmation failed")
		}
		c.recorder.ObserveOperation(opConfirm, time.Since(start), err)
	}()

	plan, gate, err := planConfirm(s.snapshot(), opts)
	if err != nil {
		return nil, err
	}
	if gate != nil {
		return gate, nil
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"order_date": plan.summary.OrderDate,
		"order_seq":  plan.summary.OrderSeq,
		"user_id":    actor.UserID,
	})

	dispatched = true
	results := make([]PartitionResult, 0, len(plan.partitions))
	for _, p := range plan.partitions {
		res := c.submit(ctx, plan.summary, actor, p)
		c.recorder.RecordPartition(p.vendorID, res.Success)
		results = append(results, res)
	}

	outcome = aggregate(results)

	s.invalidateDetail()
	if reloadErr := reloadSummaries(ctx, c.gateway, s, actor); reloadErr != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", reloadErr.Error()), "shipment.confirm.reload_failed")
	}

	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"status":    string(outcome.Status),
		"succeeded": outcome.SuccessCount,
		"failed":    outcome.FailureCount,
	}), "shipment.confirm.complete")
	return outcome, nil
}

func (c *Confirmer) submit(ctx context.Context, summary OrderSummary, actor Actor, p vendorPartition) PartitionResult {
	res := PartitionResult{VendorID: p.vendorID, LineNos: lineNumbers(p.lines)}
	if p.vendorID == "" {
		res.Message = "vendor info missing: " + describeLines(p.lines)
		c.logg.Warn(c.logg.WithField(ctx, "lines", res.LineNos), "shipment.confirm.vendor_missing")
		return res
	}

	req := ConfirmRequest{
		OrderDate:      summary.OrderDate,
		OrderSeq:       summary.OrderSeq,
		VendorID:       p.vendorID,
		UserID:         actor.UserID,
		ShipmentFields: p.fields,
		Lines:          p.payload,
	}
	res.Sent = true
	result, err := c.gateway.ConfirmShipment(ctx, req)
	pctx := c.logg.WithField(ctx, "vendor_id", p.vendorID)
	switch {
	case err != nil:
		res.Message = errorMessage(err)
		c.logg.Error(pctx, "shipment.confirm.partition", err)
	case !result.Success:
		res.Message = result.Message
		if res.Message == "" {
			res.Message = "confirmation rejected"
		}
		c.logg.Warn(c.logg.WithField(pctx, "message", res.Message), "shipment.confirm.partition")
	default:
		res.Success = true
		res.Message = result.Message
		c.logg.Info(pctx, "shipment.confirm.partition")
	}
	return res
}

// planConfirm applies the preconditions, the consent gate and reconciliation, then
// builds the vendor partitions. A non-nil outcome means stop and ask the operator.
func planConfirm(st sessionState, opts ConfirmOptions) (*confirmPlan, *ConfirmOutcome, error) {
	if st.current == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "select an order summary first")
	}
	flags := DeriveFlags(st.loaded, st.lines)

	var selected []OrderLine
	first := -1
	for i, line := range st.lines {
		if !st.selection.Contains(i) || !flags[i].Editable() {
			continue
		}
		selected = append(selected, line)
		if first < 0 && ExpiryTotal(line) > 0 {
			first = i
		}
	}
	if first < 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one unshipped line with expiry quantities")
	}
	batch := st.lines[first].ShipmentFields
	if !batch.Complete() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
			"outbound date, estimated arrival, ship method and logistics company are required").
			WithDetails(map[string]any{"line_no": st.lines[first].LineNo})
	}

	if !opts.AcceptPartial {
		var zero []int
		for _, line := range selected {
			if line.OutboundQty == 0 {
				zero = append(zero, line.LineNo)
			}
		}
		if len(zero) > 0 {
			return nil, &ConfirmOutcome{
				Status:       enums.ShipmentOutcomeConsentRequired,
				ZeroQtyLines: zero,
				Message:      fmt.Sprintf("lines %s have no outbound quantity", joinInts(zero)),
			}, nil
		}
	}

	if err := ValidateReconciliation(selected); err != nil {
		return nil, nil, err
	}

	return &confirmPlan{
		summary:    *st.current,
		partitions: partitionByVendor(st.lines, flags, st.selection, batch),
	}, nil, nil
}

// partitionByVendor groups every editable line by vendor in first-appearance order.
// Unselected lines carry quantity 0 and empty lists.
func partitionByVendor(lines []OrderLine, flags []LineFlags, sel Selection, batch ShipmentFields) []vendorPartition {
	var out []vendorPartition
	index := map[string]int{}
	for i, line := range lines {
		if !flags[i].Editable() {
			continue
		}
		vendor := strings.TrimSpace(line.VendorID)
		idx, ok := index[vendor]
		if !ok {
			idx = len(out)
			index[vendor] = idx
			out = append(out, vendorPartition{vendorID: vendor})
		}
		p := &out[idx]
		p.lines = append(p.lines, line)
		p.payload = append(p.payload, confirmLine(line, vendor, sel.Contains(i)))
	}
	for i := range out {
		out[i].fields = batch
		for _, line := range out[i].lines {
			if line.ShipmentFields.Complete() {
				out[i].fields = line.ShipmentFields
				break
			}
		}
	}
	return out
}

func confirmLine(line OrderLine, vendor string, selected bool) ConfirmLine {
	cl := ConfirmLine{
		LineNo:           line.LineNo,
		VendorID:         vendor,
		Expiries:         []ExpiryDetail{},
		DeletedExpiryIDs: []int64{},
	}
	if !selected {
		return cl
	}
	cl.Quantity = line.OutboundQty
	clone := line.Clone()
	if clone.Expiries != nil {
		cl.Expiries = clone.Expiries
	}
	if clone.DeletedExpiryIDs != nil {
		cl.DeletedExpiryIDs = clone.DeletedExpiryIDs
	}
	return cl
}

func aggregate(results []PartitionResult) *ConfirmOutcome {
	out := &ConfirmOutcome{Partitions: results}
	var failures error
	for _, r := range results {
		if r.Success {
			out.SuccessCount++
			continue
		}
		out.FailureCount++
		label := r.VendorID
		if label == "" {
			label = "unknown vendor"
		}
		failures = multierr.Append(failures, fmt.Errorf("%s: %s", label, r.Message))
	}
	var messages []string
	for _, e := range multierr.Errors(failures) {
		messages = append(messages, e.Error())
	}
	switch {
	case out.FailureCount == 0:
		out.Status = enums.ShipmentOutcomeAllSuccess
		out.Message = fmt.Sprintf("%d shipment(s) confirmed", out.SuccessCount)
	case out.SuccessCount == 0:
		out.Status = enums.ShipmentOutcomeAllFailure
		out.Message = strings.Join(messages, "; ")
	default:
		out.Status = enums.ShipmentOutcomePartial
		out.Message = fmt.Sprintf("%d succeeded, %d failed: %s",
			out.SuccessCount, out.FailureCount, strings.Join(messages, "; "))
	}
	return out
}

func lineNumbers(lines []OrderLine) []int {
	out := make([]int, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.LineNo)
	}
	return out
}

func describeLines(lines []OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		goods := l.GoodsName
		if goods == "" {
			goods = l.GoodsCode
		}
		parts = append(parts, fmt.Sprintf("%s (line %d)", goods, l.LineNo))
	}
	return strings.Join(parts, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}
