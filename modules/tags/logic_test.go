package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novabot/nova/internal/apperr"
)

func TestNormalizeName(t *testing.T) {
	got, err := normalizeName("  My-Tag_1  ")
	require.NoError(t, err)
	assert.Equal(t, "my-tag_1", got)

	for _, bad := range []string{"a", "", "has space", "emoji🌸", "UPPER!", strings.Repeat("x", 33)} {
		_, err := normalizeName(bad)
		assert.True(t, apperr.IsValidation(err), "name %q", bad)
	}

	got, err = normalizeName(strings.Repeat("x", 32))
	require.NoError(t, err)
	assert.Len(t, got, 32)
}

func TestValidateContent(t *testing.T) {
	assert.NoError(t, validateContent("hello"))
	assert.NoError(t, validateContent(strings.Repeat("x", 2000)))
	assert.True(t, apperr.IsValidation(validateContent("")))
	assert.True(t, apperr.IsValidation(validateContent("   ")))
	assert.True(t, apperr.IsValidation(validateContent(strings.Repeat("x", 2001))))
}
