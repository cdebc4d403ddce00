package fulfillment

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

type stubGateway struct {
	mu        sync.Mutex
	searchFn  func(ctx context.Context, query SearchQuery) ([]OrderSummary, error)
	detailFn  func(ctx context.Context, orderDate string, orderSeq int, vendorID string) ([]RawLine, error)
	confirmFn func(ctx context.Context, req ConfirmRequest) (Result, error)
	cancelFn  func(ctx context.Context, req CancelRequest) (Result, error)

	searches []SearchQuery
	details  int
	confirms []ConfirmRequest
	cancels  []CancelRequest
}

func (g *stubGateway) SearchOrders(ctx context.Context, query SearchQuery) ([]OrderSummary, error) {
	g.mu.Lock()
	g.searches = append(g.searches, query)
	g.mu.Unlock()
	if g.searchFn != nil {
		return g.searchFn(ctx, query)
	}
	return nil, nil
}

func (g *stubGateway) GetOrderDetails(ctx context.Context, orderDate string, orderSeq int, vendorID string) ([]RawLine, error) {
	g.mu.Lock()
	g.details++
	g.mu.Unlock()
	if g.detailFn != nil {
		return g.detailFn(ctx, orderDate, orderSeq, vendorID)
	}
	return nil, nil
}

func (g *stubGateway) ConfirmShipment(ctx context.Context, req ConfirmRequest) (Result, error) {
	g.mu.Lock()
	g.confirms = append(g.confirms, req)
	g.mu.Unlock()
	if g.confirmFn != nil {
		return g.confirmFn(ctx, req)
	}
	return Result{Success: true}, nil
}

func (g *stubGateway) CancelShipment(ctx context.Context, req CancelRequest) (Result, error) {
	g.mu.Lock()
	g.cancels = append(g.cancels, req)
	g.mu.Unlock()
	if g.cancelFn != nil {
		return g.cancelFn(ctx, req)
	}
	return Result{Success: true}, nil
}

type recordedPartition struct {
	vendorID string
	success  bool
}

type stubRecorder struct {
	operations []string
	partitions []recordedPartition
	cancels    []bool
}

func (r *stubRecorder) ObserveOperation(op string, _ time.Duration, _ error) {
	r.operations = append(r.operations, op)
}

func (r *stubRecorder) RecordPartition(vendorID string, success bool) {
	r.partitions = append(r.partitions, recordedPartition{vendorID: vendorID, success: success})
}

func (r *stubRecorder) RecordCancel(success bool) {
	r.cancels = append(r.cancels, success)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestConsole(t *testing.T, gw Gateway) *Console {
	t.Helper()
	console, err := NewConsole(ConsoleParams{
		Gateway: gw,
		Logger:  testLogger(),
		Now:     func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return console
}

var testFields = ShipmentFields{
	OutboundDate:     "2025-01-05",
	EstimatedArrival: "2025-01-07",
	ShipMethod:       "truck",
	LogisticsCompany: "Acme Freight",
}

var testSummary = OrderSummary{OrderDate: "2025-01-02", OrderSeq: 7, VendorID: "V1", StoreID: "S1"}

func lot(qty int) ExpiryDetail {
	return ExpiryDetail{ExpiryDate: "2026-06-30", Quantity: qty}
}

func persistedLot(id int64, qty int) ExpiryDetail {
	return ExpiryDetail{ID: &id, ExpiryDate: "2026-06-30", Quantity: qty}
}

// pendingLine is an unshipped line whose outbound quantity equals its lot total.
func pendingLine(no int, vendor string, lots ...ExpiryDetail) OrderLine {
	line := OrderLine{
		LineNo:    no,
		GoodsCode: "G" + string(rune('A'+no-1)),
		GoodsName: "Goods " + string(rune('A'+no-1)),
		VendorID:  vendor,
		OrderQty:  20,
		Expiries:  append([]ExpiryDetail{}, lots...),
	}
	line.OutboundQty = ExpiryTotal(line)
	return line
}

// shippedLine is a line the server already confirmed on outboundDate.
func shippedLine(no int, vendor, outboundDate, receivingDate string) OrderLine {
	line := pendingLine(no, vendor, lot(5))
	line.ShipmentFields = testFields
	line.OutboundDate = outboundDate
	line.ReceivingDate = receivingDate
	return line
}

// seedSession installs a search result and an opened detail without a gateway.
func seedSession(lines ...OrderLine) *Session {
	s := NewSession("test")
	s.replaceSummaries(SearchQuery{}, []OrderSummary{testSummary})
	s.replaceDetail(testSummary, lines)
	return s
}

// seedReady seeds the session and fills the shared shipment fields.
func seedReady(t *testing.T, lines ...OrderLine) *Session {
	t.Helper()
	s := seedSession(lines...)
	require.NoError(t, s.applyShipmentFields(testFields))
	return s
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
	return typed
}
