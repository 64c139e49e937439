package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	require.NotNil(t, notFound)
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	conflict := NewConcurrencyConflict("conversation", nil)
	assert.Same(t, conflict, error(ToDomainError(fmt.Errorf("wrapped: %w", conflict))))
}

func TestInvalidArgumentKeepsCause(t *testing.T) {
	cause := errors.New("response precedes start")
	err := NewInvalidArgument(cause, map[string]any{"field": "response"})

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeInvalidArgument))
	assert.False(t, HasCode(err, CodeConflict))
	assert.Equal(t, http.StatusBadRequest, ToDomainError(err).HTTPStatus)
}

func TestStateConflictKeepsCause(t *testing.T) {
	cause := errors.New("cannot archive")
	err := NewStateConflict(cause, map[string]any{"state": "Archived"})

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeConflict))
	assert.Equal(t, http.StatusConflict, ToDomainError(err).HTTPStatus)
}
