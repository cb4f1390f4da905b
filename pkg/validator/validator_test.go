package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

type registerInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	FarmType string `validate:"omitempty,oneof=vegetable floriculture nursery"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()
	err := v.Struct(registerInput{Email: "nope", Password: "short", FarmType: "orchard"})
	if err == nil {
		t.Fatalf("expected validation error")
	}

	got := FormatValidationError(err)
	want := map[string]string{
		"email":     "must be a valid email address",
		"password":  "must be at least 8 characters",
		"farm_type": "must be one of: vegetable, floriculture, nursery",
	}
	for k, msg := range want {
		if got[k] != msg {
			t.Fatalf("field %q = %q, want %q (all: %v)", k, got[k], msg, got)
		}
	}
}

func TestFormatValidationErrorFallsBackToBody(t *testing.T) {
	got := FormatValidationError(errors.New("unexpected EOF"))
	if got["body"] != "unexpected EOF" {
		t.Fatalf("body = %q", got["body"])
	}
}
