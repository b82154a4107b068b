package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "croptrace/pkg/domain-errors"
)

func TestParseHandle_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseHandle("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects whitespace-only string", func(t *testing.T) {
		_, err := ParseHandle("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects embedded spaces", func(t *testing.T) {
		_, err := ParseHandle("farmer alba")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := ParseHandle("farmer\x00alba")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects overlong handles", func(t *testing.T) {
		_, err := ParseHandle(strings.Repeat("a", MaxHandleLength+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		h, err := ParseHandle("  farmer-alba  ")
		require.NoError(t, err)
		assert.Equal(t, Handle("farmer-alba"), h)
	})

	t.Run("accepts address-style handles", func(t *testing.T) {
		h, err := ParseHandle("0x3f5CE5FBFe3E9af3971dD833D26bA9b5C936f0bE")
		require.NoError(t, err)
		assert.False(t, h.IsZero())
	})
}

func TestParseUnitID(t *testing.T) {
	t.Run("accepts zero", func(t *testing.T) {
		u, err := ParseUnitID("0")
		require.NoError(t, err)
		assert.Equal(t, UnitID(0), u)
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUnitID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative values", func(t *testing.T) {
		_, err := ParseUnitID("-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-numeric input", func(t *testing.T) {
		_, err := ParseUnitID("abc")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round-trips through String", func(t *testing.T) {
		u, err := ParseUnitID("18446744073709551615")
		require.NoError(t, err)
		assert.Equal(t, "18446744073709551615", u.String())
	})
}
