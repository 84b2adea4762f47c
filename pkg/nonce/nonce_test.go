package nonce

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(ms int64) *fakeClock {
	return &fakeClock{t: time.UnixMilli(ms)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	c.t = time.UnixMilli(ms)
	c.mu.Unlock()
}

const baseMillis int64 = 1_700_000_000_000

func TestFactory_FrozenClock(t *testing.T) {
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now), WithPrecision(Milliseconds))

	assert.Equal(t, baseMillis, f.Next())
	assert.Equal(t, baseMillis+1, f.Next())
	assert.Equal(t, baseMillis+2, f.Next())
}

func TestFactory_BackwardClock(t *testing.T) {
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now))

	first := f.Next()
	clock.Set(baseMillis - 5)
	second := f.Next()

	assert.Equal(t, baseMillis, first)
	assert.Equal(t, baseMillis+1, second)
}

func TestFactory_ClockAdvancesPastBumpedValue(t *testing.T) {
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now))

	f.Next()
	f.Next()
	clock.Set(baseMillis + 100)

	assert.Equal(t, baseMillis+100, f.Next())
}

func TestFactory_BurstWithinOneUnit(t *testing.T) {
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now))

	got := make([]int64, 1000)
	for i := range got {
		got[i] = f.Next()
	}
	for i, v := range got {
		require.Equal(t, baseMillis+int64(i), v, "call %d", i)
	}
}

func TestFactory_StrictlyIncreasingOnWallClock(t *testing.T) {
	f := New(WithPrecision(Seconds))

	prev := f.Next()
	for i := 0; i < 10_000; i++ {
		v := f.Next()
		require.Greater(t, v, prev)
		prev = v
	}
}

func TestFactory_Concurrent(t *testing.T) {
	const (
		callers = 16
		perCall = 500
	)
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now))

	results := make([][]int64, callers)
	var wg sync.WaitGroup
	for k := 0; k < callers; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			out := make([]int64, 0, perCall)
			for m := 0; m < perCall; m++ {
				out = append(out, f.Next())
				if m%50 == 0 {
					clock.Set(baseMillis + int64(m/50))
				}
			}
			results[k] = out
		}(k)
	}
	wg.Wait()

	seen := make(map[int64]struct{}, callers*perCall)
	all := make([]int64, 0, callers*perCall)
	for _, out := range results {
		// each caller observes its own calls in increasing order
		for i := 1; i < len(out); i++ {
			require.Greater(t, out[i], out[i-1])
		}
		for _, v := range out {
			_, dup := seen[v]
			require.False(t, dup, "duplicate nonce %d", v)
			seen[v] = struct{}{}
			all = append(all, v)
		}
	}
	require.Len(t, all, callers*perCall)

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		require.Greater(t, all[i], all[i-1])
	}
	assert.Equal(t, all[len(all)-1], f.Last())
}

func TestFactory_Precision(t *testing.T) {
	at := time.Date(2015, 3, 1, 12, 0, 0, 123_456_789, time.UTC)
	now := func() time.Time { return at }

	tests := []struct {
		precision Precision
		want      int64
	}{
		{Seconds, at.Unix()},
		{Milliseconds, at.UnixMilli()},
		{Microseconds, at.UnixMicro()},
		{Nanoseconds, at.UnixNano()},
	}
	for _, tt := range tests {
		t.Run(tt.precision.String(), func(t *testing.T) {
			f := New(WithClock(now), WithPrecision(tt.precision))
			assert.Equal(t, tt.want, f.Next())
		})
	}
}

func TestParsePrecision(t *testing.T) {
	for in, want := range map[string]Precision{
		"s":            Seconds,
		"MS":           Milliseconds,
		" us ":         Microseconds,
		"microseconds": Microseconds,
		"ns":           Nanoseconds,
	} {
		got, err := ParsePrecision(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePrecision("minutes")
	assert.Error(t, err)
}

func TestFactory_NextStringAndLast(t *testing.T) {
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now))

	assert.Zero(t, f.Last())
	assert.Equal(t, "1700000000000", f.NextString())
	assert.Equal(t, baseMillis, f.Last())

	var _ Source = f
}

func TestFactory_SetPrecisionKeepsSequence(t *testing.T) {
	clock := newFakeClock(baseMillis)
	f := New(WithClock(clock.Now), WithPrecision(Microseconds))

	last := f.Next()
	assert.Equal(t, baseMillis*1000, last)

	// Seconds are far below the microsecond values already issued.
	f.SetPrecision(Seconds)
	assert.Equal(t, last+1, f.Next())

	f.SetPrecision(Nanoseconds)
	assert.Equal(t, baseMillis*1_000_000, f.Next())
}
