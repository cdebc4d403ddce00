package fulfillment

import (
	"context"
	"time"
)

// Gateway is the collaborator contract the console consumes. Transport, auth and
// serialization belong to the implementation.
type Gateway interface {
	SearchOrders(ctx context.Context, query SearchQuery) ([]OrderSummary, error)
	GetOrderDetails(ctx context.Context, orderDate string, orderSeq int, vendorID string) ([]RawLine, error)
	ConfirmShipment(ctx context.Context, req ConfirmRequest) (Result, error)
	CancelShipment(ctx context.Context, req CancelRequest) (Result, error)
}

// Recorder receives operation metrics. pkg/metrics provides the prometheus version.
type Recorder interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	RecordPartition(vendorID string, success bool)
	RecordCancel(success bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, time.Duration, error) {}
func (noopRecorder) RecordPartition(string, bool)                  {}
func (noopRecorder) RecordCancel(bool)                             {}
