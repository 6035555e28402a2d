package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndHasCode(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped cause is reachable", func(t *testing.T) {
		err := Wrap(cause, CodeUnavailable, "ledger unavailable")
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeUnavailable))
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, "ledger unavailable: connection refused", err.Error())
	})

	t.Run("nested codes are all visible", func(t *testing.T) {
		inner := Wrap(cause, CodeUnavailable, "lock backend")
		outer := Wrap(fmt.Errorf("escalate: %w", inner), CodeInternal, "record violation")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnavailable))
		assert.Equal(t, CodeInternal, CodeOf(outer))
	})

	t.Run("uncoded error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(cause))
		assert.False(t, Is(cause, CodeInternal))
	})
}
