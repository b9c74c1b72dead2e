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
		{code: CodeApprovalPending, status: http.StatusForbidden, publicMsg: "account pending approval"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeSignatureMismatch, status: http.StatusBadRequest, publicMsg: "payment signature mismatch"},
		{code: CodeRegionRestricted, status: http.StatusUnprocessableEntity, publicMsg: "service not available in this region", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
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

func TestApprovalPendingIsDistinctFromUnauthorized(t *testing.T) {
	pending := New(CodeApprovalPending, "account pending approval")
	if IsCode(pending, CodeUnauthorized) {
		t.Fatal("approval pending must not read as unauthorized")
	}
	if MetadataFor(CodeApprovalPending).HTTPStatus == MetadataFor(CodeUnauthorized).HTTPStatus {
		t.Fatal("approval pending should not share the unauthorized status")
	}
}

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	base := New(CodeInsufficientStock, "not enough tomatoes")
	wrapped := fmt.Errorf("create order: %w", base)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("untyped errors should map to internal")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("gateway down")
	err := Wrap(CodeDependency, cause, "create payment intent")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Details() != nil {
		t.Fatal("expected no details by default")
	}
	err = err.WithDetails(map[string]string{"provider": "razorpay"})
	if err.Details() == nil {
		t.Fatal("expected details after WithDetails")
	}
}

func TestDumpCollectsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "create user")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "users_email_key" {
		t.Fatalf("unexpected pg details: %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %v", dump.Chain)
	}
	fields := dump.Fields()
	if fields["pg_table"] != "users" {
		t.Fatalf("expected pg_table field, got %v", fields)
	}
}

func TestDumpFieldsOmitEmptyPostgresDetails(t *testing.T) {
	fields := Dump(stdErrors.New("plain")).Fields()
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("expected no pg fields, got %v", fields)
	}
	if PGCode(&pq.Error{Code: "23503"}) != "23503" {
		t.Fatal("expected pq code to be surfaced")
	}
}
