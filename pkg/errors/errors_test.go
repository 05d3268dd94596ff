package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeInsufficientFunds, http.StatusUnprocessableEntity, false},
		{CodePlanLimitViolation, http.StatusUnprocessableEntity, false},
		{CodeDuplicateHash, http.StatusConflict, false},
		{CodeTransactionNotPending, http.StatusConflict, false},
		{CodeTemporaryFailure, http.StatusServiceUnavailable, true},
	}
	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable=%v", tc.code, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row locked")
	err := Wrap(CodeTemporaryFailure, cause, "ledger busy")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to satisfy errors.Is")
	}
	if got := err.Error(); got != "TEMPORARY_FAILURE: ledger busy" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeInsufficientFunds, "balance too low")
	outer := fmt.Errorf("debit account: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInsufficientFunds {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("approve: %w", New(CodeTransactionNotPending, "already resolved"))
	if !HasCode(err, CodeTransactionNotPending) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeDuplicateHash) {
		t.Fatal("unexpected code match")
	}
	if HasCode(nil, CodeInternal) {
		t.Fatal("nil error must not match")
	}
}
