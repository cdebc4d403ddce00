package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

const resultOK = "ok"

// ShipmentMetrics records console operations. It satisfies fulfillment.Recorder.
type ShipmentMetrics struct {
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
	partitions *prometheus.CounterVec
	cancels    *prometheus.CounterVec
}

// NewShipmentMetrics registers the console metrics on the provided registerer.
// A nil registerer yields a recorder that drops everything.
func NewShipmentMetrics(reg prometheus.Registerer) *ShipmentMetrics {
	if reg == nil {
		return &ShipmentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_operation_duration_seconds",
		Help:    "Duration of console operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_operations_total",
		Help: "Console operations by result code.",
	}, []string{"operation", "result"})
	partitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_confirm_partitions_total",
		Help: "Vendor partitions submitted for confirmation.",
	}, []string{"vendor", "result"})
	cancels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_cancels_total",
		Help: "Shipment cancellations submitted.",
	}, []string{"result"})
	reg.MustRegister(duration, operations, partitions, cancels)
	return &ShipmentMetrics{
		duration:   duration,
		operations: operations,
		partitions: partitions,
		cancels:    cancels,
	}
}

// ObserveOperation records the duration and the result code of one operation.
func (m *ShipmentMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordPartition counts one vendor partition answer.
func (m *ShipmentMetrics) RecordPartition(vendorID string, success bool) {
	if m == nil || m.partitions == nil {
		return
	}
	m.partitions.WithLabelValues(normalizeLabel(vendorID), outcomeLabel(success)).Inc()
}

// RecordCancel counts one cancellation answer.
func (m *ShipmentMetrics) RecordCancel(success bool) {
	if m == nil || m.cancels == nil {
		return
	}
	m.cancels.WithLabelValues(outcomeLabel(success)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return resultOK
	}
	return string(pkgerrors.CodeOf(err))
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
