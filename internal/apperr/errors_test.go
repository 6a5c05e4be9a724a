package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      NotFound("booking"),
			expected: "NOT_FOUND: booking not found",
		},
		{
			name:     "with cause",
			err:      Internal("commit failed", errors.New("deadlock")),
			expected: "INTERNAL_ERROR: commit failed (caused by: deadlock)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("reconcile: %w", AlreadySettled(7))
	e := As(wrapped)
	assert.Equal(t, CodeAlreadySettled, e.Code)
	assert.Equal(t, http.StatusConflict, e.HTTPStatus)
	assert.Equal(t, uint64(7), e.Details["milestone_id"])

	plain := As(errors.New("boom"))
	assert.Equal(t, CodeInternal, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(Expired("link expired"), CodeExpired))
	assert.False(t, HasCode(NotFound("link"), CodeExpired))
	assert.False(t, HasCode(errors.New("x"), CodeExpired))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusGone, Expired("x").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, InvalidTransition("weird").HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, ScheduleInput("x", nil).HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").HTTPStatus)
}
