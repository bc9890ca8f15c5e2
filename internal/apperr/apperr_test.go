package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := Validation("winner count must be between 1 and 20")
	assert.Equal(t, CodeValidation, CodeOf(err))
	assert.True(t, IsValidation(err))
	assert.False(t, IsState(err))
}

func TestCodeOfWrapped(t *testing.T) {
	inner := State("giveaway is no longer active")
	wrapped := fmt.Errorf("entering: %w", inner)

	assert.Equal(t, CodeState, CodeOf(wrapped))
	assert.True(t, IsState(wrapped))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "giveaway is no longer active", e.UserMessage())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.False(t, IsValidation(errors.New("boom")))
}

func TestExternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := External(cause, "could not save the giveaway")

	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "could not save the giveaway", err.UserMessage())
}
