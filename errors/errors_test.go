package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestCircuitOpen(t *testing.T) {
	err := CircuitOpen("slack-api")

	if err.Code != ErrCodeCircuitOpen {
		t.Errorf("expected CIRCUIT_OPEN, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("circuit-open must not be immediately retryable")
	}
	if err.Details["dependency"] != "slack-api" {
		t.Errorf("expected dependency detail, got %v", err.Details)
	}
}

func TestRetryExhaustedWrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := RetryExhausted("send_message", 3, cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause through Unwrap")
	}
	if err.Details["attempts"] != 3 {
		t.Errorf("expected attempts detail, got %v", err.Details)
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", err.HTTPStatus)
	}
}

func TestBulkheadErrors(t *testing.T) {
	rejected := BulkheadRejected("db")
	if rejected.Code != ErrCodeBulkheadFull {
		t.Errorf("expected BULKHEAD_FULL, got %s", rejected.Code)
	}
	timeout := BulkheadTimeout("db")
	if timeout.Code != ErrCodeBulkheadTimeout {
		t.Errorf("expected BULKHEAD_TIMEOUT, got %s", timeout.Code)
	}
	if rejected.HTTPStatus != http.StatusServiceUnavailable || timeout.HTTPStatus != http.StatusServiceUnavailable {
		t.Error("bulkhead rejections should map to 503")
	}
}

func TestAsAppError(t *testing.T) {
	base := Timeout("fetch")
	wrapped := stderrors.Join(stderrors.New("outer"), base)

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to find the AppError")
	}
	if appErr.Code != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", appErr.Code)
	}

	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("plain error should not convert")
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(RateLimited("api")); got != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", got)
	}
	if got := HTTPStatus(stderrors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("expected 500 for non-AppError, got %d", got)
	}
}

func TestIsRetryableCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeServiceUnavailable, true},
		{ErrCodeRateLimited, true},
		{ErrCodeCircuitOpen, false},
		{ErrCodeRetryExhausted, false},
		{ErrCodeBulkheadFull, false},
	}

	for _, tt := range tests {
		if got := IsRetryableCode(tt.code); got != tt.want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestToResponse(t *testing.T) {
	err := CircuitOpen("chat")
	resp := err.ToResponse()

	if resp.Error.Code != ErrCodeCircuitOpen {
		t.Errorf("expected code in response body, got %s", resp.Error.Code)
	}
	if resp.Error.Message == "" {
		t.Error("expected message in response body")
	}
}
