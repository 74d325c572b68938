package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/execkit/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("operation", "send_message")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("operation", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("operation", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	v := New()
	v.RequiredUUID("entry_id", uuid.New().String())
	if v.HasErrors() {
		t.Errorf("expected no errors for valid UUID, got %v", v.Errors())
	}

	v2 := New()
	v2.RequiredUUID("entry_id", "not-a-uuid")
	if !v2.HasErrors() {
		t.Error("expected error for malformed UUID")
	}

	v3 := New()
	v3.RequiredUUID("entry_id", uuid.Nil.String())
	if !v3.HasErrors() {
		t.Error("expected error for nil UUID")
	}
}

func TestValidatorRanges(t *testing.T) {
	v := New()
	v.Min("max_attempts", 3, 1)
	v.Max("max_attempts", 3, 10)
	v.Range("max_concurrent", 10, 1, 100)
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v2 := New()
	v2.Min("max_attempts", 0, 1)
	v2.Range("max_concurrent", 500, 1, 100)
	if len(v2.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %v", v2.Errors())
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("strategy", "exponential", []string{"fixed", "linear", "exponential"})
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v2 := New()
	v2.OneOf("strategy", "random", []string{"fixed", "linear", "exponential"})
	if !v2.HasErrors() {
		t.Error("expected error for disallowed value")
	}
}

func TestValidateCollectsAllFields(t *testing.T) {
	v := New()
	v.Required("dependency", "")
	v.Required("operation", "")

	err := v.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "dependency") || !strings.Contains(err.Message, "operation") {
		t.Errorf("expected both fields in message, got %q", err.Message)
	}
}

func TestStructValidate(t *testing.T) {
	type retrySettings struct {
		MaxAttempts int     `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
		Strategy    string  `mapstructure:"strategy" validate:"omitempty,oneof=fixed linear exponential"`
		Jitter      float64 `mapstructure:"jitter" validate:"gte=0,lte=1"`
	}

	if err := Validate(retrySettings{MaxAttempts: 3, Strategy: "exponential", Jitter: 0.1}); err != nil {
		t.Errorf("expected valid struct, got %v", err)
	}

	err := Validate(retrySettings{MaxAttempts: 0, Strategy: "random", Jitter: 2})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	for _, field := range []string{"max_attempts", "strategy", "jitter"} {
		if !strings.Contains(appErr.Message, field) {
			t.Errorf("expected %s in message, got %q", field, appErr.Message)
		}
	}
}
