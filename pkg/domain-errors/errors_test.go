package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped error keeps cause and code", func(t *testing.T) {
		err := Wrap(cause, CodeUnavailable, "discovery unreachable")
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeUnavailable))
		assert.Equal(t, CodeUnavailable, CodeOf(err))
		assert.Contains(t, err.Error(), "discovery unreachable")
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", New(CodeInvalidInput, "bad key"))
		assert.True(t, Is(err, CodeInvalidInput))
	})

	t.Run("plain errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(cause))
		assert.False(t, HasCode(cause, CodeInternal))
	})
}
