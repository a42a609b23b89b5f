package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestE_MatchesKindWithErrorsIs(t *testing.T) {
	err := E(ErrConflict, "Email Already Register, please login !")

	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected errors.Is(err, ErrConflict) to hold")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("did not expect errors.Is(err, ErrNotFound) to hold")
	}
}

func TestE_MessageIsCallerFacing(t *testing.T) {
	err := E(ErrValidation, "Name is Required")

	if got := err.Error(); got != "Name is Required" {
		t.Fatalf("expected message %q, got %q", "Name is Required", got)
	}
}

func TestE_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("signup: %w", E(ErrExpired, "OTP has expired"))

	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected wrapped error to still match ErrExpired")
	}
}
