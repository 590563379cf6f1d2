package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "user not found"},
			want: "user not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to update profile",
				Cause:   errors.New("provider unavailable"),
			},
			want: "failed to update profile: provider unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap_ContextErrors(t *testing.T) {
	err := Wrap(fmt.Errorf("get user: %w", context.DeadlineExceeded), ErrCodeUnavailable, "identity lookup")
	if !IsTimeout(err) {
		t.Errorf("Wrap(deadline).Code = %v, want %v", err.Code, ErrCodeTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Wrap should keep the cause reachable")
	}

	if got := Wrap(context.Canceled, ErrCodeInternal, "x").Code; got != ErrCodeCanceled {
		t.Errorf("Wrap(canceled).Code = %v, want %v", got, ErrCodeCanceled)
	}

	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestValidationField(t *testing.T) {
	err := fmt.Errorf("submit: %w", ValidationField("companyName", "Company name is required"))
	if !IsValidation(err) {
		t.Fatal("expected validation error")
	}
	if got := GetField(err); got != "companyName" {
		t.Errorf("GetField() = %q, want companyName", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Conflict("x"), http.StatusConflict},
		{Wrap(errors.New("down"), ErrCodeUnavailable, "x"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
