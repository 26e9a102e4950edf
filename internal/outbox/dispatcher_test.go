package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	d := NewDispatcher(nil, nil, time.Second, 10, 5, time.Minute)

	require.Equal(t, time.Minute, d.backoffDelay(1))
	require.Equal(t, 2*time.Minute, d.backoffDelay(2))
	require.Equal(t, 4*time.Minute, d.backoffDelay(3))
	require.Equal(t, 32*time.Minute, d.backoffDelay(6))
}

func TestBackoffDelayCapsAtOneHour(t *testing.T) {
	d := NewDispatcher(nil, nil, time.Second, 10, 5, time.Minute)

	require.Equal(t, time.Hour, d.backoffDelay(7))
	require.Equal(t, time.Hour, d.backoffDelay(20))
}

func TestNewDispatcherAppliesDefaults(t *testing.T) {
	d := NewDispatcher(nil, nil, time.Second, 10, 0, 0)

	require.Equal(t, 5, d.maxAttempts)
	require.Equal(t, time.Minute, d.baseDelay)
}
