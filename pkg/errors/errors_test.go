package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "another operation is in progress", retryable: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "shipment state does not allow this change", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "too many shipment changes, slow down", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "shipment store unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestResolveHidesInternalText(t *testing.T) {
	pub := Resolve(fmt.Errorf("wrapped: %w", stdErrors.New("dial tcp 10.0.0.3:5432")))
	if pub.Code != CodeInternal || pub.Status != http.StatusInternalServerError {
		t.Fatalf("expected internal, got %+v", pub)
	}
	if pub.Message != "internal server error" || pub.Details != nil {
		t.Fatalf("internal text leaked: %+v", pub)
	}

	dep := Resolve(Wrap(CodeDependency, stdErrors.New("timeout"), "load purchase order lines").WithDetails(map[string]any{"db": "down"}))
	if dep.Message != "shipment store unavailable" || dep.Details == nil || !dep.Retryable {
		t.Fatalf("unexpected dependency view %+v", dep)
	}
}

func TestResolveExposesCallerMessage(t *testing.T) {
	pub := Resolve(New(CodeValidation, "line 2: expiry quantities do not add up").WithDetails(map[string]any{"lines": []int{2}}))
	if pub.Message != "line 2: expiry quantities do not add up" {
		t.Fatalf("expected caller message, got %q", pub.Message)
	}
	if pub.Details == nil || pub.Retryable {
		t.Fatalf("unexpected validation view %+v", pub)
	}

	empty := Resolve(New(CodeStateConflict, ""))
	if empty.Message != "shipment state does not allow this change" {
		t.Fatalf("expected public fallback, got %q", empty.Message)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("expected internal for untyped error, got %s", got)
	}
	wrapped := fmt.Errorf("outer: %w", New(CodeStateConflict, "received"))
	if got := CodeOf(wrapped); got != CodeStateConflict {
		t.Fatalf("expected state conflict through wrapping, got %s", got)
	}
	if !IsCode(wrapped, CodeStateConflict) || IsCode(wrapped, CodeConflict) {
		t.Fatalf("IsCode mismatch for %v", wrapped)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "confirm shipment")

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
	if dump.Postgres != nil {
		t.Fatalf("expected no postgres detail, got %+v", dump.Postgres)
	}
	if _, ok := dump.Fields()["pg_code"]; ok {
		t.Fatalf("pg fields should be omitted without a driver error")
	}
	if empty := Dump(nil); empty.TopMessage != "" || len(empty.Chain) != 0 {
		t.Fatalf("expected empty dump for nil, got %+v", empty)
	}
}

func TestDumpCapturesPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "line_expiries_pkey", TableName: "line_expiries"}
	dump := Dump(Wrap(CodeDependency, fmt.Errorf("upsert lot: %w", pgErr), "persist shipment"))
	if dump.Postgres == nil || dump.Postgres.Constraint != "line_expiries_pkey" {
		t.Fatalf("expected pgx detail, got %+v", dump.Postgres)
	}
	if dump.Fields()["pg_table"] != "line_expiries" {
		t.Fatalf("unexpected fields %v", dump.Fields())
	}

	legacy := Dump(&pq.Error{Code: "40001", Message: "could not serialize access"})
	if legacy.Postgres == nil || legacy.Postgres.Code != "40001" {
		t.Fatalf("expected pq detail, got %+v", legacy.Postgres)
	}
}
