package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := Wrap(CodeDependency, cause, "submit orders")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Error() != "DEPENDENCY_ERROR: submit orders" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsFindsTypedErrorThroughFmtWrap(t *testing.T) {
	inner := New(CodeValidation, "cart contains no items")
	outer := fmt.Errorf("checkout: %w", inner)

	typed := As(outer)
	if typed == nil || typed.Code() != CodeValidation {
		t.Fatalf("expected validation error, got %v", typed)
	}
	if !IsCode(outer, CodeValidation) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(outer, CodeConflict) {
		t.Fatal("expected IsCode to reject other codes")
	}
	if IsCode(nil, CodeValidation) {
		t.Fatal("nil error must not match")
	}
}

func TestWithDetailBuildsMap(t *testing.T) {
	err := New(CodeValidation, "variant selection incomplete").WithDetail("missing_axis", "size")
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["missing_axis"] != "size" {
		t.Fatalf("unexpected details %+v", details)
	}

	err = err.WithDetail("product_id", 7)
	details = err.Details().(map[string]any)
	if len(details) != 2 {
		t.Fatalf("expected 2 detail keys, got %d", len(details))
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", meta.HTTPStatus)
	}
	if MetadataFor(CodeDependency).HTTPStatus != http.StatusServiceUnavailable {
		t.Fatal("expected dependency errors to map to 503")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("timeout"), "orders api")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %q", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}

func TestDumpFlagsTimeouts(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("geocode: %w", context.DeadlineExceeded), "resolve location")
	fields := Dump(err).Fields()
	if fields["timeout"] != true {
		t.Fatalf("expected timeout flag, got %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatal("pg fields must be omitted for non-postgres errors")
	}
}

func TestDumpReadsPgxErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key", ConstraintName: "outbox_dlq_event_id_key"}
	fields := Dump(Wrap(CodeConflict, pgErr, "insert dlq")).Fields()
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "outbox_dlq_event_id_key" {
		t.Fatalf("unexpected pg fields %v", fields)
	}
	if _, ok := fields["pg_table"]; ok {
		t.Fatal("empty pg fields must be omitted")
	}
}
