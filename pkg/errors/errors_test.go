package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("mongo down")

	tests := []struct {
		name    string
		err     *AppError
		code    string
		status  int
		message string
	}{
		{"not found", NotFound("Booking"), CodeNotFound, http.StatusNotFound, "Booking not found"},
		{"validation", Validation("bad booking", nil), CodeValidation, http.StatusUnprocessableEntity, "bad booking"},
		{"invalid input", InvalidInput("bad json"), CodeInvalidInput, http.StatusBadRequest, "bad json"},
		{"unauthorized", Unauthorized("token required"), CodeUnauthorized, http.StatusUnauthorized, "token required"},
		{"forbidden", Forbidden("not yours"), CodeForbidden, http.StatusForbidden, "not yours"},
		{"conflict", Conflict("slot taken"), CodeConflict, http.StatusConflict, "slot taken"},
		{"internal", Internal("store failed", cause), CodeInternal, http.StatusInternalServerError, "store failed"},
		{"timeout", Timeout("too slow"), CodeTimeout, http.StatusGatewayTimeout, "too slow"},
		{"unavailable", Unavailable("Notifier"), CodeUnavailable, http.StatusServiceUnavailable, "Notifier is temporarily unavailable"},
		{"rate limited", RateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests, "slow down"},
		{"payload too large", PayloadTooLarge(1024), CodePayloadTooLarge, http.StatusRequestEntityTooLarge, "Request body exceeds 1024 bytes"},
		{"unsupported media type", UnsupportedMediaType("json only"), CodeUnsupportedMediaType, http.StatusUnsupportedMediaType, "json only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode())
			assert.Equal(t, tt.message, tt.err.Message)
		})
	}

	assert.Same(t, cause, Internal("x", cause).Err)
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: gone", New(CodeNotFound, "gone", http.StatusNotFound).Error())

	wrapped := Wrap(errors.New("dial tcp"), CodeInternal, "store failed", http.StatusInternalServerError)
	assert.Equal(t, "INTERNAL_ERROR: store failed (caused by: dial tcp)", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "dial tcp")
}

func TestAppError_StatusCodeDefault(t *testing.T) {
	err := &AppError{Code: CodeInternal, Message: "no status"}
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "b-1")

	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, map[string]any{"resource": "Booking", "id": "b-1"}, err.Details)
}

func TestAppError_ToJSON(t *testing.T) {
	err := Conflict("Time slot is already booked").WithDetails(map[string]any{"booking_id": "b-7"})

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(err.ToJSON(), &body))
	assert.Equal(t, CodeConflict, body.Code)
	assert.Equal(t, "Time slot is already booked", body.Message)
	assert.Equal(t, "b-7", body.Details["booking_id"])

	assert.NotContains(t, string(NotFound("Booking").ToJSON()), "details")
}

func TestAsAppError(t *testing.T) {
	conflict := Conflict("slot taken")
	assert.Same(t, conflict, AsAppError(fmt.Errorf("create booking: %w", conflict)))

	plain := errors.New("boom")
	got := AsAppError(plain)
	assert.Equal(t, CodeInternal, got.Code)
	assert.Same(t, plain, got.Err)

	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", conflict)))
	assert.False(t, IsAppError(plain))
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "conflict", err: Conflict("taken"), code: CodeConflict, want: true},
		{name: "wrapped forbidden", err: fmt.Errorf("x: %w", Forbidden("no")), code: CodeForbidden, want: true},
		{name: "different code", err: NotFound("Booking"), code: CodeConflict, want: false},
		{name: "plain error", err: errors.New("boom"), code: CodeInternal, want: false},
		{name: "nil", err: nil, code: CodeInternal, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(Validation("bad", nil)))
	assert.True(t, IsValidation(InvalidInput("bad")))
	assert.False(t, IsValidation(Conflict("taken")))
}
