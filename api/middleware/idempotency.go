package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shipment-console/api/responses"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	pkgredis "github.com/angelmondragon/shipment-console/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 128
	replayTTL               = 24 * time.Hour
	// inflightTTL bounds how long a crashed request keeps its key reserved.
	inflightTTL = time.Minute

	consoleSessionsPrefix = "/api/v1/console/sessions/"
)

// Confirm and cancel write to the order tables. A retried submit must not
// post a second batch.
var replayedActions = map[string]bool{
	"/confirm": true,
	"/cancel":  true,
}

// IdempotencyStore adds overwrite to the redis idempotency surface so a
// reservation can be replaced by the final response.
type IdempotencyStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

const (
	stateInflight = "inflight"
	stateDone     = "done"
)

type replayRecord struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency runs a shipment mutation at most once per Idempotency-Key and
// operator. Completed 2xx answers are replayed verbatim; anything else frees
// the key so the operator can retry.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !requiresIdempotency(r.Method, routePattern(r)) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			switch {
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxIdempotencyKeyLength:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(operatorScope(r), clientKey)
			hash := requestHash(r, body)

			reserved, err := reserve(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayExisting(ctx, store, logg, w, key, hash)
				return
			}

			capture := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// Detached so a client hang-up does not leave the key reserved.
			settleCtx := context.WithoutCancel(ctx)
			status := capture.statusCode()
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				if err := store.Del(settleCtx, key); err != nil && logg != nil {
					logg.Error(settleCtx, "idempotency.release_failed", err)
				}
				return
			}

			done, err := json.Marshal(replayRecord{
				State:       stateDone,
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err == nil {
				err = store.Set(settleCtx, key, string(done), replayTTL)
			}
			if err != nil && logg != nil {
				logg.Error(settleCtx, "idempotency.persist_failed", err)
			}
		})
	}
}

func reserve(ctx context.Context, store IdempotencyStore, key, hash string) (bool, error) {
	pending, err := json.Marshal(replayRecord{State: stateInflight, RequestHash: hash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(pending), inflightTTL)
}

func replayExisting(ctx context.Context, store IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "previous attempt with this Idempotency-Key just finished, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State != stateDone:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this Idempotency-Key is still running"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

func requiresIdempotency(method, pattern string) bool {
	if method != http.MethodPost || !strings.HasPrefix(pattern, consoleSessionsPrefix) {
		return false
	}
	idx := strings.LastIndex(pattern, "/")
	return replayedActions[pattern[idx:]]
}

func operatorScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{UserIDFromContext(ctx), VendorIDFromContext(ctx), r.URL.Path}, "|")
}

func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write(bytes.TrimSpace(body))
	return hex.EncodeToString(h.Sum(nil))
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
