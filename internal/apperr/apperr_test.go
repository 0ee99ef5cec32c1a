package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NotFound("Order not found"))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "Order not found", MessageOf(wrapped))
	assert.Equal(t, "Internal server error", MessageOf(errors.New("boom")))
}

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("ledger: %w", InsufficientStock("Kopi", 3))

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestInsufficientStock_Message(t *testing.T) {
	err := InsufficientStock("Kopi Gayo", 4)
	assert.Equal(t, "Insufficient stock for Kopi Gayo. Available: 4", err.Message)
	assert.Equal(t, int64(4), err.Available)

	anon := InsufficientStock("", 0)
	assert.Equal(t, "Insufficient stock. Available: 0", anon.Message)
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("cannot load order", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
}
