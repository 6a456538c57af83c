package circuit_breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/bookstore-service/pkg/circuit_breaker"
	"github.com/stretchr/testify/require"
)

func Test_circuitBreaker_Call(t *testing.T) {
	t.Parallel()

	var calls int
	successfulService := func() error {
		calls++
		return nil
	}
	errService := errors.New("service error")
	failingService := func() error {
		calls++
		return errService
	}

	const timeout = 50 * time.Millisecond
	cb := circuit_breaker.New(10, timeout, 0.3, 2)

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Call(successfulService))
	}
	require.Equal(t, circuit_breaker.Closed, cb.State())

	require.ErrorIs(t, cb.Call(failingService), errService)
	require.ErrorIs(t, cb.Call(failingService), errService)
	require.Equal(t, circuit_breaker.Closed, cb.State())
	require.ErrorIs(t, cb.Call(failingService), errService)
	require.Equal(t, circuit_breaker.Open, cb.State())

	before := calls
	require.ErrorIs(t, cb.Call(successfulService), circuit_breaker.ErrOpenCB)
	require.Equal(t, before, calls, "open breaker must not call the service")

	time.Sleep(timeout + 30*time.Millisecond)
	require.NoError(t, cb.Call(successfulService))
	require.Equal(t, circuit_breaker.HalfOpen, cb.State())
	require.NoError(t, cb.Call(successfulService))
	require.Equal(t, circuit_breaker.Closed, cb.State())

	for i := 0; i < 3; i++ {
		_ = cb.Call(failingService)
	}
	require.Equal(t, circuit_breaker.Open, cb.State())

	time.Sleep(timeout + 30*time.Millisecond)
	require.ErrorIs(t, cb.Call(failingService), errService)
	require.Equal(t, circuit_breaker.Open, cb.State())

	cb.Reset()
	require.Equal(t, circuit_breaker.Closed, cb.State())
}
