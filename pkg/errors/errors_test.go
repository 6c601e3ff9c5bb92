package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("enroll: %w", Clone(ErrQuotaExceeded, "limit 24"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrQuotaExceeded.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "limit 24", appErr.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestIs(t *testing.T) {
	assert.True(t, Is(Clone(ErrConflict, "duplicate"), ErrConflict))
	assert.False(t, Is(Clone(ErrConflict, "duplicate"), ErrForbidden))
	assert.False(t, Is(nil, ErrConflict))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "section not found")
	assert.Equal(t, "section not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}
