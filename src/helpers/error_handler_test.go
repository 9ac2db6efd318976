package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment-observer/src/logger"
)

// -----------------------------------------------------------------------------

func TestObserverErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &DatabaseError{ObserverError{Message: "save failed", Cause: cause}}

	assert.Equal(t, "save failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var dbErr *DatabaseError
	assert.ErrorAs(t, error(err), &dbErr)
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(log, "op", 3, time.Millisecond, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("recovers after failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(log, "op", 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		cause := errors.New("persistent")
		err := RetryWithBackoff(log, "op", 3, time.Millisecond, func() error {
			calls++
			return cause
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, cause)
	})
}

// -----------------------------------------------------------------------------

func TestErrorHandlerCounts(t *testing.T) {
	h := NewErrorHandler(logger.NewLogger("ERROR", "test"))

	h.Handle(nil, "noop")
	assert.Equal(t, 0, h.ErrorCount)

	h.Handle(errors.New("boom"), "scan")
	h.Handle(errors.New("boom again"), "scan")
	assert.Equal(t, 2, h.ErrorCount)

	h.ResetErrorCount()
	assert.Equal(t, 0, h.ErrorCount)
}
