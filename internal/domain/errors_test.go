package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorIsMatchesReason(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same sentinel",
			err:    ErrInsufficientStock,
			target: ErrInsufficientStock,
			want:   true,
		},
		{
			name:   "detail does not matter",
			err:    ErrInsufficientStock.WithDetail("Tomato: 3 left"),
			target: ErrInsufficientStock,
			want:   true,
		},
		{
			name:   "wrapped validation error",
			err:    fmt.Errorf("add item: %w", ErrNonPositiveQuantity),
			target: ErrNonPositiveQuantity,
			want:   true,
		},
		{
			name:   "different reason",
			err:    ErrEmptyCart,
			target: ErrMissingCustomerName,
			want:   false,
		},
		{
			name:   "plain error",
			err:    errors.New("empty cart"),
			target: ErrEmptyCart,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	if got := ErrEmptyCart.Error(); got != "empty cart" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := ErrInsufficientStock.WithDetail("Leek").Error(); got != "insufficient stock: Leek" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("submit: %w", ErrEmptyCart)) {
		t.Fatal("wrapped validation error must be detected")
	}
	if IsValidation(ErrNetwork) {
		t.Fatal("network error is not a validation error")
	}
	if IsValidation(nil) {
		t.Fatal("nil is not a validation error")
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unauthorized", err: ErrUnauthorized, want: true},
		{name: "joined unauthorized", err: errors.Join(ErrUnauthorized, errors.New("status 403")), want: true},
		{name: "missing token", err: fmt.Errorf("verify: %w", ErrTokenNotFound), want: true},
		{name: "rejected", err: ErrRejected, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}
