package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

type loginBody struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Region   string `form:"region" validate:"max=3"`
}

func TestFromBindError(t *testing.T) {
	v := validator.New()
	dst := &loginBody{Email: "nope", Password: "abc", Region: "toolong"}

	got := FromBindError(v.Struct(dst), dst)

	want := FieldErrors{
		"email":    "Enter a valid email address.",
		"password": "Must be at least 6 characters.",
		"region":   "Must be at most 3 characters.",
	}
	if len(got) != len(want) {
		t.Fatalf("FromBindError() = %v, want %v", got, want)
	}
	for k, msg := range want {
		if got[k] != msg {
			t.Errorf("field %q = %q, want %q", k, got[k], msg)
		}
	}
}

func TestFromBindErrorNonValidation(t *testing.T) {
	got := FromBindError(errors.New("unexpected EOF"), &loginBody{})
	if got["_"] == "" {
		t.Errorf("FromBindError() = %v, want a body-level message", got)
	}
}
