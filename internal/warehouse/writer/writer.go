package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/shipment-console/internal/warehouse/types"
	pkgbigquery "github.com/angelmondragon/shipment-console/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls the warehouse writer.
type Config struct {
	FactsTable  string
	LotsTable   string
	BatchSize   int
	RetryPolicy RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter inserts shipment rows with retries and optional batching.
type BigQueryWriter struct {
	client     tableInserter
	factsTable string
	lotsTable  string
	batchSize  int
	retry      RetryPolicy

	mu         sync.Mutex
	factBuffer []types.ShipmentFactRow
	lotBuffer  []types.ShipmentLotRow
}

// New creates a BigQueryWriter backed by a shared client.
func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	facts := strings.TrimSpace(cfg.FactsTable)
	if facts == "" {
		return nil, errors.New("shipment facts table is required")
	}
	lots := strings.TrimSpace(cfg.LotsTable)
	if lots == "" {
		return nil, errors.New("shipment lots table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retry := cfg.RetryPolicy
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}

	return &BigQueryWriter{
		client:     client,
		factsTable: facts,
		lotsTable:  lots,
		batchSize:  batchSize,
		retry:      retry,
	}, nil
}

// InsertFact buffers one shipment fact row and flushes at batch size.
func (w *BigQueryWriter) InsertFact(ctx context.Context, row types.ShipmentFactRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.factBuffer = append(w.factBuffer, row)
	if len(w.factBuffer) >= w.batchSize {
		return w.flushFacts(ctx)
	}
	return nil
}

// InsertLots writes every lot of one event together so a partial event never lands.
func (w *BigQueryWriter) InsertLots(ctx context.Context, rows []types.ShipmentLotRow) error {
	if len(rows) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lotBuffer = append(w.lotBuffer, rows...)
	if len(w.lotBuffer) >= w.batchSize {
		return w.flushLots(ctx)
	}
	return nil
}

// Flush writes any buffered rows immediately.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushFacts(ctx); err != nil {
		return err
	}
	return w.flushLots(ctx)
}

func (w *BigQueryWriter) flushFacts(ctx context.Context) error {
	if len(w.factBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.factBuffer))
	for i := range w.factBuffer {
		rows[i] = &w.factBuffer[i]
	}
	if err := w.insertWithRetry(ctx, w.factsTable, rows); err != nil {
		return err
	}
	w.factBuffer = w.factBuffer[:0]
	return nil
}

func (w *BigQueryWriter) flushLots(ctx context.Context) error {
	if len(w.lotBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.lotBuffer))
	for i := range w.lotBuffer {
		rows[i] = &w.lotBuffer[i]
	}
	if err := w.insertWithRetry(ctx, w.lotsTable, rows); err != nil {
		return err
	}
	w.lotBuffer = w.lotBuffer[:0]
	return nil
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		timer.Stop()

		backoff = minDuration(backoff*2, w.retry.MaximumBackoff)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi *cbigquery.MultiError
	if errors.As(err, &multi) {
		if multi == nil || len(*multi) == 0 {
			return false
		}
		for _, inner := range *multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme *cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if pme == nil || len(*pme) == 0 {
			return false
		}
		for _, rowErr := range *pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var rowErr *cbigquery.RowInsertionError
	if errors.As(err, &rowErr) {
		if rowErr == nil || len(rowErr.Errors) == 0 {
			return false
		}
		for _, inner := range rowErr.Errors {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}

// EncodeJSON serializes a payload for a BigQuery JSON column.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	case []byte:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	if len(marshaled) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}
