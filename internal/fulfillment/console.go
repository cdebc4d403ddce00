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

const (
	opSearch = "search"
	opDetail = "detail"
)

// ConsoleParams wires a Console.
type ConsoleParams struct {
	Gateway  Gateway
	Recorder Recorder
	Logger   *logger.Logger
	Store    *Store
	// SearchWindowDays fills an empty date range with the trailing window ending today.
	SearchWindowDays int
	Now              func() time.Time
}

// Console is the operator-facing service. All per-operator state lives in the
// Session handed to each call.
type Console struct {
	gateway   Gateway
	recorder  Recorder
	logg      *logger.Logger
	store     *Store
	confirmer *Confirmer
	canceller *Canceller
	window    int
	now       func() time.Time
}

// NewConsole validates the params and builds the orchestrators.
func NewConsole(p ConsoleParams) (*Console, error) {
	if p.Gateway == nil {
		return nil, errors.New("gateway required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.Recorder == nil {
		p.Recorder = noopRecorder{}
	}
	if p.Store == nil {
		p.Store = NewStore(0)
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	confirmer, err := NewConfirmer(p.Gateway, p.Recorder, p.Logger)
	if err != nil {
		return nil, err
	}
	canceller, err := NewCanceller(p.Gateway, p.Recorder, p.Logger)
	if err != nil {
		return nil, err
	}
	return &Console{
		gateway:   p.Gateway,
		recorder:  p.Recorder,
		logg:      p.Logger,
		store:     p.Store,
		confirmer: confirmer,
		canceller: canceller,
		window:    p.SearchWindowDays,
		now:       p.Now,
	}, nil
}

// Sessions exposes the session registry.
func (c *Console) Sessions() *Store { return c.store }

// Search replaces the summary list with a fresh search.
func (c *Console) Search(ctx context.Context, s *Session, actor Actor, query SearchQuery) (err error) {
	if _, perr := enums.ParseShipmentStatus(query.Status); perr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid status filter")
	}
	query = c.defaultWindow(query)
	if query.DateFrom != "" && query.DateTo != "" && query.DateFrom > query.DateTo {
		return pkgerrors.New(pkgerrors.CodeValidation, "date_from must not be after date_to")
	}

	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	start := time.Now()
	defer func() { c.recorder.ObserveOperation(opSearch, time.Since(start), err) }()

	summaries, err := loadSummaries(ctx, c.gateway, s, actor, query)
	if err != nil {
		c.logg.Error(ctx, "shipment.search.failed", err)
		return err
	}
	c.logg.Info(c.logg.WithField(ctx, "results", len(summaries)), "shipment.search.complete")
	return nil
}

func (c *Console) defaultWindow(query SearchQuery) SearchQuery {
	query.DateFrom = NormalizeDateOrEmpty(query.DateFrom)
	query.DateTo = NormalizeDateOrEmpty(query.DateTo)
	if query.DateFrom != "" || query.DateTo != "" || c.window <= 0 {
		return query
	}
	today := c.now()
	query.DateTo = today.Format(dashedLayout)
	query.DateFrom = today.AddDate(0, 0, -c.window).Format(dashedLayout)
	return query
}

// OpenDetail loads the lines of one summary from the last search.
func (c *Console) OpenDetail(ctx context.Context, s *Session, actor Actor, key SummaryKey) (err error) {
	key.OrderDate = NormalizeDateOrEmpty(key.OrderDate)
	var summary *OrderSummary
	for _, sum := range s.snapshot().summaries {
		if sum.Key() == key {
			found := sum
			summary = &found
			break
		}
	}
	if summary == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order summary not found in the current search").
			WithDetails(map[string]any{"order_date": key.OrderDate, "order_seq": key.OrderSeq})
	}

	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	start := time.Now()
	defer func() { c.recorder.ObserveOperation(opDetail, time.Since(start), err) }()

	return loadDetail(ctx, c.gateway, s, actor, *summary)
}

// AddExpiry appends a lot to the line with lineNo.
func (c *Console) AddExpiry(s *Session, lineNo int, detail ExpiryDetail) error {
	return c.editLine(s, lineNo, func(line OrderLine) (OrderLine, error) {
		return AddExpiry(line, detail)
	})
}

// UpdateExpiry replaces lot idx of the line with lineNo.
func (c *Console) UpdateExpiry(s *Session, lineNo, idx int, detail ExpiryDetail) error {
	return c.editLine(s, lineNo, func(line OrderLine) (OrderLine, error) {
		return UpdateExpiry(line, idx, detail)
	})
}

// RemoveExpiry drops lot idx of the line with lineNo.
func (c *Console) RemoveExpiry(s *Session, lineNo, idx int) error {
	return c.editLine(s, lineNo, func(line OrderLine) (OrderLine, error) {
		return RemoveExpiry(line, idx)
	})
}

// SetExpiries replaces the whole lot list of the line with lineNo.
func (c *Console) SetExpiries(s *Session, lineNo int, details []ExpiryDetail) error {
	return c.editLine(s, lineNo, func(line OrderLine) (OrderLine, error) {
		return ReplaceExpiries(line, details)
	})
}

func (c *Console) editLine(s *Session, lineNo int, fn func(OrderLine) (OrderLine, error)) error {
	return s.updateLines(func(lines []OrderLine, flags []LineFlags) ([]OrderLine, error) {
		pos := positionOf(lines, lineNo)
		if pos < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line not found").
				WithDetails(map[string]any{"line_no": lineNo})
		}
		if !flags[pos].Editable() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line is already shipped or received").
				WithDetails(map[string]any{"line_no": lineNo})
		}
		next, err := fn(lines[pos])
		if err != nil {
			return nil, err
		}
		lines[pos] = next
		return lines, nil
	})
}

// SetShipmentFields applies the shared shipment fields to every editable line.
func (c *Console) SetShipmentFields(s *Session, fields ShipmentFields) error {
	clean, err := normalizeShipmentFields(fields)
	if err != nil {
		return err
	}
	return s.applyShipmentFields(clean)
}

func normalizeShipmentFields(fields ShipmentFields) (ShipmentFields, error) {
	for name, value := range map[string]*string{
		"outbound_date":     &fields.OutboundDate,
		"estimated_arrival": &fields.EstimatedArrival,
	} {
		if strings.TrimSpace(*value) == "" {
			*value = ""
			continue
		}
		dashed, ok := NormalizeDate(*value)
		if !ok {
			return fields, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s", name)).
				WithDetails(map[string]any{name: *value})
		}
		*value = dashed
	}
	if fields.OutboundDate != "" && fields.EstimatedArrival != "" && fields.EstimatedArrival < fields.OutboundDate {
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "estimated arrival must not be before the outbound date")
	}
	fields.ShipMethod = strings.TrimSpace(fields.ShipMethod)
	fields.LogisticsCompany = strings.TrimSpace(fields.LogisticsCompany)
	fields.TransportNo = strings.TrimSpace(fields.TransportNo)
	fields.Memo = strings.TrimSpace(fields.Memo)
	return fields, nil
}

// ToggleLine flips one not-received line in or out of the selection.
func (c *Console) ToggleLine(s *Session, pos int) error {
	return s.updateSelection(func(sel Selection, _ []OrderLine, flags []LineFlags) (Selection, error) {
		return sel.Toggle(pos, flags)
	})
}

// SelectAll selects every not-locked line.
func (c *Console) SelectAll(s *Session) error {
	return s.updateSelection(func(_ Selection, _ []OrderLine, flags []LineFlags) (Selection, error) {
		return SelectAllEligible(flags), nil
	})
}

// SelectBatch replaces the selection with the lines shipped on outboundDate,
// the set a cancellation of that batch needs.
func (c *Console) SelectBatch(s *Session, outboundDate string) error {
	return s.updateSelection(func(_ Selection, loaded []OrderLine, flags []LineFlags) (Selection, error) {
		return SelectBatch(loaded, flags, outboundDate)
	})
}

// ClearSelection empties the selection.
func (c *Console) ClearSelection(s *Session) error {
	return s.updateSelection(func(Selection, []OrderLine, []LineFlags) (Selection, error) {
		return Selection{}, nil
	})
}

// Confirm runs the confirmation orchestrator.
func (c *Console) Confirm(ctx context.Context, s *Session, actor Actor, opts ConfirmOptions) (*ConfirmOutcome, error) {
	return c.confirmer.Confirm(ctx, s, actor, opts)
}

// Cancel runs the cancellation orchestrator.
func (c *Console) Cancel(ctx context.Context, s *Session, actor Actor, opts CancelOptions) (*CancelOutcome, error) {
	return c.canceller.Cancel(ctx, s, actor, opts)
}

// Reset drops the search, the detail and the confirmed-key set.
func (c *Console) Reset(s *Session) error {
	return s.reset()
}

func positionOf(lines []OrderLine, lineNo int) int {
	for i, l := range lines {
		if l.LineNo == lineNo {
			return i
		}
	}
	return -1
}
