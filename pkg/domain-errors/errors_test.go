package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesCode(t *testing.T) {
	err := New(CodeNotOwner, "caller does not own this unit")
	assert.True(t, HasCode(err, CodeNotOwner))
	assert.False(t, HasCode(err, CodeUnitNotFound))
	assert.Equal(t, CodeNotOwner, CodeOf(err))
	assert.Equal(t, "caller does not own this unit", MessageOf(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load unit")

	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(nil, CodeConflict, "state mismatch")
	assert.True(t, HasCode(err, CodeConflict))
	assert.NoError(t, errors.Unwrap(err))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeRecipientNotRegistered, "recipient is not a registered participant")
	outer := fmt.Errorf("transfer 42: %w", inner)

	assert.True(t, HasCode(outer, CodeRecipientNotRegistered))
	assert.Equal(t, CodeRecipientNotRegistered, CodeOf(outer))
}

func TestNonDomainErrorDefaults(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Empty(t, MessageOf(err))
	assert.False(t, HasCode(err, CodeInternal))
}
