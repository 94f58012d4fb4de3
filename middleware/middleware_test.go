package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/shtsoft/poolio"
)

func TestThrottle(t *testing.T) {
	p, err := poolio.New(4)
	require.NoError(t, err)

	// 100 jobs/s with burst 1: 4 jobs can't finish faster than ~30ms
	p.Use(Throttle(rate.Limit(100), 1))

	var counter int32
	st := time.Now()
	for range 4 {
		require.NoError(t, p.Submit(func() { atomic.AddInt32(&counter, 1) }))
	}
	require.NoError(t, p.Close())

	assert.Equal(t, int32(4), atomic.LoadInt32(&counter))
	assert.GreaterOrEqual(t, time.Since(st), 25*time.Millisecond)
}

func TestThrottle_BurstFloor(t *testing.T) {
	p, err := poolio.New(1)
	require.NoError(t, err)

	p.Use(Throttle(rate.Inf, 0)) // burst below 1 is clamped, must not reject jobs

	var done int32
	require.NoError(t, p.Submit(func() { atomic.AddInt32(&done, 1) }))
	require.NoError(t, p.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestTimed(t *testing.T) {
	p, err := poolio.New(2)
	require.NoError(t, err)

	var mu sync.Mutex
	var durations []time.Duration
	p.Use(Timed(func(d time.Duration) {
		mu.Lock()
		durations = append(durations, d)
		mu.Unlock()
	}))

	for range 3 {
		require.NoError(t, p.Submit(func() { time.Sleep(5 * time.Millisecond) }))
	}
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, durations, 3)
	for _, d := range durations {
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	}
}

func TestTimed_ObservesPanickingJob(t *testing.T) {
	p, err := poolio.New(1)
	require.NoError(t, err)

	var observed int32
	p.Use(Timed(func(time.Duration) { atomic.AddInt32(&observed, 1) }))

	require.NoError(t, p.Submit(func() { panic("oh no") }))
	require.NoError(t, p.Close())

	assert.Equal(t, int32(1), atomic.LoadInt32(&observed), "duration reported even when the job panics")
}

func TestRecovery(t *testing.T) {
	p, err := poolio.New(1)
	require.NoError(t, err)

	var mu sync.Mutex
	var causes []any
	p.Use(Recovery(func(cause any) {
		mu.Lock()
		causes = append(causes, cause)
		mu.Unlock()
	}))

	require.NoError(t, p.Submit(func() { panic("first") }))
	require.NoError(t, p.Submit(func() {})) // non-panicking jobs pass through untouched
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, causes, 1)
	assert.Equal(t, "first", causes[0])

	// the middleware recovered before the pool's containment, so the pool
	// never saw a panic
	assert.Equal(t, 0, p.Metrics().Stats().Panicked)
	assert.Equal(t, 2, p.Metrics().Stats().Processed)
}

func TestRecovery_NilHandler(t *testing.T) {
	p, err := poolio.New(1)
	require.NoError(t, err)

	p.Use(Recovery(nil))

	var after int32
	require.NoError(t, p.Submit(func() { panic("swallowed") }))
	require.NoError(t, p.Submit(func() { atomic.AddInt32(&after, 1) }))
	require.NoError(t, p.Close())

	assert.Equal(t, int32(1), atomic.LoadInt32(&after))
}
