package httpx

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerWrapper_Execute_Success(t *testing.T) {
	breaker := NewCircuitBreaker("success-test", 30*time.Second, 3, nil)

	err := breaker.Execute(func() error {
		return nil
	})

	assert.NoError(t, err)
}

func TestCircuitBreakerWrapper_Execute_ErrorWrapping(t *testing.T) {
	breaker := NewCircuitBreaker("error-wrap-test", 30*time.Second, 3, nil)
	testError := errors.New("original error")

	err := breaker.Execute(func() error {
		return testError
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, testError)
	assert.Contains(t, err.Error(), "breaker (error-wrap-test)")
	assert.False(t, IsOpen(err))
}

func TestCircuitBreakerWrapper_Execute_CircuitOpen(t *testing.T) {
	breaker := NewCircuitBreaker("circuit-open-test", time.Minute, 2, nil)
	wrapper, _ := breaker.(*circuitBreakerWrapper) //nolint:errcheck

	for i := 0; i < 2; i++ {
		err := breaker.Execute(func() error {
			return errors.New("failure")
		})
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, wrapper.breaker.State())

	called := false
	err := breaker.Execute(func() error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
	assert.True(t, IsOpen(err))
}

func TestCircuitBreakerWrapper_Execute_CircuitRecovery(t *testing.T) {
	breaker := NewCircuitBreaker("recovery-test", 50*time.Millisecond, 1, nil)

	err := breaker.Execute(func() error {
		return errors.New("trigger failure")
	})
	assert.Error(t, err)

	time.Sleep(100 * time.Millisecond)

	err = breaker.Execute(func() error {
		return nil
	})
	assert.NoError(t, err)
}
