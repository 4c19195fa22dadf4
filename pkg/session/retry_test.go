package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPolicy(max int, initial, ceiling time.Duration) (*retryPolicy, *[]time.Duration) {
	r := newRetryPolicy(Config{
		MaxReconnects:  max,
		InitialBackoff: initial,
		MaxBackoff:     ceiling,
	})
	slept := &[]time.Duration{}
	r.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return r, slept
}

func TestRetryPolicy_ExponentialBackoffWithCeiling(t *testing.T) {
	r, slept := testPolicy(10, 2*time.Second, 10*time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, r.Next())
	}

	assert.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}, *slept)
}

func TestRetryPolicy_CapExhaustion(t *testing.T) {
	r, slept := testPolicy(2, time.Millisecond, time.Second)

	assert.True(t, r.Next())
	assert.True(t, r.Next())
	assert.False(t, r.Next())
	assert.Len(t, *slept, 2)
}

func TestRetryPolicy_ZeroMaxIsUnbounded(t *testing.T) {
	r, _ := testPolicy(0, time.Nanosecond, time.Nanosecond)

	for i := 0; i < 100; i++ {
		assert.True(t, r.Next())
	}
}
