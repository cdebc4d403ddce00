package shipments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shipment-console/internal/fulfillment"
	"github.com/angelmondragon/shipment-console/pkg/db"
	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox"
	"github.com/angelmondragon/shipment-console/pkg/outbox/payloads"
)

// ServiceParams wires the shipment service.
type ServiceParams struct {
	DB         txRunner
	Repository Repository
	Outbox     outboxEmitter
	Logger     *logger.Logger
}

// Service answers the console's collaborator calls against the purchase-order
// tables. Business rejections come back as an unsuccessful Result, never as errors.
type Service struct {
	db     txRunner
	repo   Repository
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

var _ fulfillment.Gateway = (*Service)(nil)

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

// rejection aborts a transaction with a message returned to the operator.
type rejection struct {
	msg string
}

func (r rejection) Error() string { return r.msg }

func reject(format string, args ...any) error {
	return rejection{msg: fmt.Sprintf(format, args...)}
}

func (s *Service) SearchOrders(ctx context.Context, query fulfillment.SearchQuery) ([]fulfillment.OrderSummary, error) {
	from, err := optionalDate("date_from", query.DateFrom)
	if err != nil {
		return nil, err
	}
	to, err := optionalDate("date_to", query.DateTo)
	if err != nil {
		return nil, err
	}
	if _, err := enums.ParseShipmentStatus(query.Status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}

	rows, err := s.repo.SearchSummaries(ctx, SearchFilters{
		DateFrom: from,
		DateTo:   to,
		VendorID: strings.TrimSpace(query.VendorID),
		StoreID:  strings.TrimSpace(query.StoreID),
		AgentID:  strings.TrimSpace(query.AgentID),
		Status:   query.Status,
		Query:    query.Query,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search purchase orders")
	}

	out := make([]fulfillment.OrderSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, fulfillment.OrderSummary{
			OrderDate:        row.OrderDate,
			OrderSeq:         row.OrderSeq,
			StoreID:          row.StoreID,
			StoreName:        row.StoreName,
			AgentID:          deref(row.AgentID),
			VendorID:         row.VendorID,
			VendorName:       row.VendorName,
			TotalOrderQty:    row.TotalOrderQty,
			TotalOutboundQty: row.TotalOutboundQty,
			TotalAmount:      row.TotalAmount,
			OutboundDate:     deref(row.OutboundDate),
			EstimatedArrival: deref(row.EstimatedArrival),
		})
	}
	return out, nil
}

func (s *Service) GetOrderDetails(ctx context.Context, orderDate string, orderSeq int, vendorID string) ([]fulfillment.RawLine, error) {
	key, err := orderKey(orderDate, orderSeq)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, key)
	if err != nil {
		return nil, notFoundOr(err, "purchase order not found")
	}
	if vendorID != "" && order.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}

	rows, err := s.repo.ListDetailRows(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order lines")
	}
	out := make([]fulfillment.RawLine, 0, len(rows))
	for _, row := range rows {
		raw := fulfillment.RawLine{
			OrderDate:        row.OrderDate,
			OrderSeq:         row.OrderSeq,
			LineNo:           row.LineNo,
			GoodsCode:        row.GoodsCode,
			GoodsName:        row.GoodsName,
			VendorID:         row.VendorID,
			OrderQty:         row.OrderQty,
			OutboundQty:      row.OutboundQty,
			UnitPrice:        row.UnitPrice,
			Amount:           row.Amount,
			OutboundDate:     deref(row.OutboundDate),
			EstimatedArrival: deref(row.EstimatedArrival),
			ReceivingDate:    deref(row.ReceivingDate),
			ShipMethod:       row.ShipMethod,
			LogisticsCompany: row.LogisticsCompany,
			TransportNo:      row.TransportNo,
			Memo:             row.Memo,
			ExpiryID:         row.ExpiryID,
			ExpiryDate:       deref(row.ExpiryDate),
			LotNumber:        deref(row.LotNumber),
		}
		if row.ExpiryQty != nil {
			raw.ExpiryQty = *row.ExpiryQty
		}
		out = append(out, raw)
	}
	return out, nil
}

// ConfirmShipment records one vendor partition. Every line is checked inside a
// single transaction: a line may ship at most once, never after receipt, and its
// persisted lots must add up to the confirmed quantity.
func (s *Service) ConfirmShipment(ctx context.Context, req fulfillment.ConfirmRequest) (fulfillment.Result, error) {
	key, err := orderKey(req.OrderDate, req.OrderSeq)
	if err != nil {
		return fulfillment.Result{}, err
	}
	fields, err := confirmFields(req)
	if err != nil {
		return fulfillment.Result{}, err
	}
	vendorID := strings.TrimSpace(req.VendorID)
	if vendorID == "" {
		return fulfillment.Result{Success: false, Message: "vendor info missing"}, nil
	}
	if len(req.Lines) == 0 {
		return fulfillment.Result{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order":     key.String(),
		"vendor_id": vendorID,
		"user_id":   req.UserID,
	})

	var event payloads.ShipmentConfirmedEvent
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject("purchase order %s not found", key)
			}
			return err
		}

		lines, err := s.loadLines(ctx, repo, key, confirmLineNos(req.Lines))
		if err != nil {
			return err
		}

		event = payloads.ShipmentConfirmedEvent{
			OrderDate:        key.OrderDate,
			OrderSeq:         key.OrderSeq,
			VendorID:         vendorID,
			StoreID:          order.StoreID,
			Reference:        fulfillment.ShipmentReference(fields.OutboundDate, key.OrderDate, key.OrderSeq),
			OutboundDate:     fields.OutboundDate,
			EstimatedArrival: fields.EstimatedArrival,
			ShipMethod:       fields.ShipMethod,
			LogisticsCompany: fields.LogisticsCompany,
			TransportNo:      fields.TransportNo,
			Lines:            make([]payloads.ShipmentLine, 0, len(req.Lines)),
			ConfirmedAt:      s.now().UTC(),
		}

		for _, reqLine := range req.Lines {
			line := lines[reqLine.LineNo]
			if strings.TrimSpace(line.VendorID) != vendorID {
				return reject("line %d belongs to another vendor", reqLine.LineNo)
			}
			if line.Received() {
				return reject("line %d was already received", reqLine.LineNo)
			}
			if line.Shipped() {
				return reject("line %d was already shipped on %s", reqLine.LineNo, deref(line.OutboundDate))
			}
			if reqLine.Quantity < 0 {
				return reject("line %d: quantity cannot be negative", reqLine.LineNo)
			}

			lots, err := applyLots(ctx, repo, key, reqLine)
			if err != nil {
				return err
			}

			update := fields
			update.Quantity = reqLine.Quantity
			update.ShippedBy = req.UserID
			affected, err := repo.MarkLineShipped(ctx, key, reqLine.LineNo, update)
			if err != nil {
				return err
			}
			if affected == 0 {
				return reject("line %d changed while confirming", reqLine.LineNo)
			}
			event.Lines = append(event.Lines, payloads.ShipmentLine{
				LineNo:   reqLine.LineNo,
				Quantity: reqLine.Quantity,
				Lots:     lots,
			})
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentConfirmed,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   key.AggregateID(),
			Actor:         &outbox.ActorRef{UserID: req.UserID, VendorID: vendorID},
			Data:          event,
			OccurredAt:    event.ConfirmedAt,
		})
	})
	if err != nil {
		return s.settle(ctx, "shipment.confirm.rejected", err)
	}

	s.logg.Info(s.logg.WithField(ctx, "lines", len(event.Lines)), "shipment.confirm.persisted")
	return fulfillment.Result{Success: true, Message: fmt.Sprintf("shipment %s confirmed", event.Reference)}, nil
}

// CancelShipment withdraws every line shipped on one outbound date. Received lines
// and partial batches are refused.
func (s *Service) CancelShipment(ctx context.Context, req fulfillment.CancelRequest) (fulfillment.Result, error) {
	key, err := orderKey(req.OrderDate, req.OrderSeq)
	if err != nil {
		return fulfillment.Result{}, err
	}
	if len(req.Lines) == 0 {
		return fulfillment.Result{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	lineNos := make([]int, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineNos = append(lineNos, line.LineNo)
	}
	vendorID := strings.TrimSpace(req.VendorID)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order":     key.String(),
		"vendor_id": vendorID,
		"user_id":   req.UserID,
	})

	var event payloads.ShipmentCancelledEvent
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject("purchase order %s not found", key)
			}
			return err
		}
		if vendorID != "" && order.VendorID != vendorID {
			return reject("purchase order %s belongs to another vendor", key)
		}

		lines, err := s.loadLines(ctx, repo, key, lineNos)
		if err != nil {
			return err
		}

		outboundDate := ""
		for _, lineNo := range lineNos {
			line := lines[lineNo]
			if line.Received() {
				return reject("line %d was already received", lineNo)
			}
			if !line.Shipped() {
				return reject("line %d has not been shipped", lineNo)
			}
			if outboundDate == "" {
				outboundDate = *line.OutboundDate
			} else if *line.OutboundDate != outboundDate {
				return reject("lines were shipped on different dates")
			}
		}

		batch, err := repo.FindLinesShippedOn(ctx, key, outboundDate)
		if err != nil {
			return err
		}
		batchNos := make([]int, 0, len(batch))
		for _, line := range batch {
			if line.Received() {
				return reject("line %d was already received", line.LineNo)
			}
			batchNos = append(batchNos, line.LineNo)
		}
		if !sameLineSet(batchNos, lineNos) {
			return reject("cancellation must cover every line shipped on %s", outboundDate)
		}

		affected, err := repo.ClearShipment(ctx, key, outboundDate, lineNos)
		if err != nil {
			return err
		}
		if affected != int64(len(lineNos)) {
			return reject("shipment changed while cancelling")
		}

		sort.Ints(lineNos)
		event = payloads.ShipmentCancelledEvent{
			OrderDate:    key.OrderDate,
			OrderSeq:     key.OrderSeq,
			VendorID:     order.VendorID,
			StoreID:      order.StoreID,
			Reference:    fulfillment.ShipmentReference(outboundDate, key.OrderDate, key.OrderSeq),
			OutboundDate: outboundDate,
			LineNos:      lineNos,
			CancelledAt:  s.now().UTC(),
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentCancelled,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   key.AggregateID(),
			Actor:         &outbox.ActorRef{UserID: req.UserID, VendorID: vendorID},
			Data:          event,
			OccurredAt:    event.CancelledAt,
		})
	})
	if err != nil {
		return s.settle(ctx, "shipment.cancel.rejected", err)
	}

	s.logg.Info(s.logg.WithField(ctx, "lines", event.LineNos), "shipment.cancel.persisted")
	return fulfillment.Result{Success: true, Message: fmt.Sprintf("shipment %s cancelled", event.Reference)}, nil
}

// loadLines fetches the requested lines and rejects unknown line numbers.
func (s *Service) loadLines(ctx context.Context, repo Repository, key OrderKey, lineNos []int) (map[int]models.PurchaseOrderLine, error) {
	rows, err := repo.FindLines(ctx, key, lineNos)
	if err != nil {
		return nil, err
	}
	byNo := make(map[int]models.PurchaseOrderLine, len(rows))
	for _, row := range rows {
		byNo[row.LineNo] = row
	}
	for _, lineNo := range lineNos {
		if _, ok := byNo[lineNo]; !ok {
			return nil, reject("line %d not found on purchase order %s", lineNo, key)
		}
	}
	return byNo, nil
}

// applyLots deletes, updates and inserts the line's lots, then checks the
// persisted total against the confirmed quantity.
func applyLots(ctx context.Context, repo Repository, key OrderKey, line fulfillment.ConfirmLine) ([]payloads.ShipmentLot, error) {
	if line.Quantity == 0 {
		if err := repo.DeleteLineExpiries(ctx, key, line.LineNo); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := repo.DeleteExpiries(ctx, key, line.LineNo, line.DeletedExpiryIDs); err != nil {
		return nil, err
	}

	for _, detail := range line.Expiries {
		date, ok := fulfillment.NormalizeDate(detail.ExpiryDate)
		if !ok {
			return nil, reject("line %d: invalid expiry date %q", line.LineNo, detail.ExpiryDate)
		}
		if detail.Quantity < 0 {
			return nil, reject("line %d: lot quantity cannot be negative", line.LineNo)
		}
		lot := models.LineExpiry{
			OrderDate:  key.OrderDate,
			OrderSeq:   key.OrderSeq,
			LineNo:     line.LineNo,
			ExpiryDate: date,
			Quantity:   detail.Quantity,
			LotNumber:  strings.TrimSpace(detail.LotNumber),
		}
		if detail.ID == nil {
			if err := repo.CreateExpiry(ctx, &lot); err != nil {
				return nil, err
			}
			continue
		}
		lot.ID = *detail.ID
		affected, err := repo.UpdateExpiry(ctx, lot)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, reject("line %d: lot %d no longer exists", line.LineNo, lot.ID)
		}
	}

	persisted, err := repo.ListLineExpiries(ctx, key, line.LineNo)
	if err != nil {
		return nil, err
	}
	total := 0
	lots := make([]payloads.ShipmentLot, 0, len(persisted))
	for _, lot := range persisted {
		total += lot.Quantity
		lots = append(lots, payloads.ShipmentLot{ExpiryDate: lot.ExpiryDate, Quantity: lot.Quantity, LotNumber: lot.LotNumber})
	}
	if total != line.Quantity {
		return nil, reject("line %d: expiry lots total %d but %d are being shipped", line.LineNo, total, line.Quantity)
	}
	return lots, nil
}

// settle turns a rejection into an unsuccessful result and anything else into an error.
func (s *Service) settle(ctx context.Context, event string, err error) (fulfillment.Result, error) {
	var rej rejection
	if errors.As(err, &rej) {
		s.logg.Warn(s.logg.WithField(ctx, "reason", rej.msg), event)
		return fulfillment.Result{Success: false, Message: rej.msg}, nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return fulfillment.Result{}, typed
	}
	if db.IsConcurrentWrite(err) {
		s.logg.Warn(ctx, event)
		return fulfillment.Result{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order changed by another operator, reload and retry")
	}
	s.logg.Error(ctx, event, err)
	return fulfillment.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist shipment")
}

func confirmFields(req fulfillment.ConfirmRequest) (ShipmentUpdate, error) {
	outboundDate, ok := fulfillment.NormalizeDate(req.OutboundDate)
	if !ok {
		return ShipmentUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "outbound date is required").
			WithDetails(map[string]any{"field": "outbound_date"})
	}
	arrival, ok := fulfillment.NormalizeDate(req.EstimatedArrival)
	if !ok {
		return ShipmentUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "estimated arrival is required").
			WithDetails(map[string]any{"field": "estimated_arrival"})
	}
	if arrival < outboundDate {
		return ShipmentUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "estimated arrival cannot precede the outbound date")
	}
	method := strings.TrimSpace(req.ShipMethod)
	company := strings.TrimSpace(req.LogisticsCompany)
	if method == "" || company == "" {
		return ShipmentUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "ship method and logistics company are required")
	}
	return ShipmentUpdate{
		OutboundDate:     outboundDate,
		EstimatedArrival: arrival,
		ShipMethod:       method,
		LogisticsCompany: company,
		TransportNo:      strings.TrimSpace(req.TransportNo),
		Memo:             strings.TrimSpace(req.Memo),
	}, nil
}

func confirmLineNos(lines []fulfillment.ConfirmLine) []int {
	out := make([]int, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.LineNo)
	}
	return out
}

func orderKey(orderDate string, orderSeq int) (OrderKey, error) {
	date, ok := fulfillment.NormalizeDate(orderDate)
	if !ok {
		return OrderKey{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid order date").
			WithDetails(map[string]any{"order_date": orderDate})
	}
	if orderSeq <= 0 {
		return OrderKey{}, pkgerrors.New(pkgerrors.CodeValidation, "order sequence must be positive")
	}
	return OrderKey{OrderDate: date, OrderSeq: orderSeq}, nil
}

func optionalDate(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	date, ok := fulfillment.NormalizeDate(raw)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid date").WithDetails(map[string]any{"field": field})
	}
	return date, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func sameLineSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, n := range a {
		seen[n]++
	}
	for _, n := range b {
		if seen[n] == 0 {
			return false
		}
		seen[n]--
	}
	return true
}
