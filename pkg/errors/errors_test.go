package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrPermissionDenied, "model %s requires tier %d", "chat-pro", 2)
	assert.True(t, Is(err, ErrPermissionDenied))
	assert.False(t, Is(err, ErrUnknownModel))
	assert.Contains(t, err.Error(), "chat-pro")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}

func TestValidationErrorMatchesSchemaValidation(t *testing.T) {
	err := NewValidationError("caller_tier", "unknown tier", 42)
	assert.True(t, Is(err, ErrSchemaValidation))

	var ve *ValidationError
	require.True(t, As(err, &ve))
	assert.Equal(t, "caller_tier", ve.Field)

	// Wrapping keeps the match.
	wrapped := Wrap(err, "request rejected")
	assert.True(t, Is(wrapped, ErrSchemaValidation))
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("REGISTRY", "lookup failed", ErrUnknownModel)
	assert.True(t, Is(err, ErrUnknownModel))
	assert.Contains(t, err.Error(), "REGISTRY")
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.False(t, m.HasErrors())
	assert.NoError(t, m.ToError())

	m.Add(nil)
	assert.False(t, m.HasErrors())

	m.Add(New("first"))
	m.Add(New("second"))
	require.True(t, m.HasErrors())
	require.Error(t, m.ToError())
	assert.Contains(t, m.Error(), "multiple errors (2)")
}
