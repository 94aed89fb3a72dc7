package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBackend = errors.New("backend failure")

func failingCall() error { return errBackend }
func okCall() error      { return nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(failingCall), errBackend)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(okCall), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	cb.Execute(failingCall)
	cb.Execute(failingCall)
	cb.Execute(okCall)
	cb.Execute(failingCall)
	cb.Execute(failingCall)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond})

	cb.Execute(failingCall)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	assert.NoError(t, cb.Execute(okCall))
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond, HalfOpenMax: 2})

	cb.Execute(failingCall)
	time.Sleep(20 * time.Millisecond)

	assert.NoError(t, cb.Execute(okCall))
	assert.NoError(t, cb.Execute(okCall))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond})

	cb.Execute(failingCall)
	time.Sleep(20 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failingCall), errBackend)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})

	cb.Execute(failingCall)
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(okCall))
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	changes := make(chan State, 4)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 1,
		Timeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			changes <- to
		},
	})

	cb.Execute(failingCall)

	select {
	case to := <-changes:
		assert.Equal(t, StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("expected state change callback")
	}
}
