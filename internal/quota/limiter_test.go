package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int{}}
}

func (m *memCounter) IncrementPlayCount(_ context.Context, userID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[userID+"|"+day]++
	return m.counts[userID+"|"+day], nil
}

func (m *memCounter) IncrementPlayCountWithin(_ context.Context, userID, day string, ceiling int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + day
	if m.counts[key] >= ceiling {
		return m.counts[key], false, nil
	}
	m.counts[key]++
	return m.counts[key], true, nil
}

func (m *memCounter) GetPlayCount(_ context.Context, userID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[userID+"|"+day], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestConsume_IncrementThenCheck(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	l := NewLimiter(counter, PolicyIncrementThenCheck).WithClock(fixedClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))

	for i := 1; i <= 3; i++ {
		d, err := l.Consume(ctx, "u1", 3)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, i, d.Count)
		require.Equal(t, 3-i, d.Remaining)
	}

	d, err := l.Consume(ctx, "u1", 3)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	// the rejected call was still counted
	require.Equal(t, 4, d.Count)
}

func TestConsume_CheckThenIncrement(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	l := NewLimiter(counter, PolicyCheckThenIncrement).WithClock(fixedClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))

	for i := 0; i < 2; i++ {
		d, err := l.Consume(ctx, "u1", 2)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := l.Consume(ctx, "u1", 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 2, d.Count)

	stored, _ := counter.GetPlayCount(ctx, "u1", "2025-03-01")
	require.Equal(t, 2, stored)
}

func TestConsume_RemainingAfterPriorPlays(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	counter.counts["u1|2025-03-01"] = 5
	l := NewLimiter(counter, "").WithClock(fixedClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)))

	d, err := l.Consume(ctx, "u1", 20)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 14, d.Remaining)
}

func TestConsume_DayRollover(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	now := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	l := NewLimiter(counter, PolicyIncrementThenCheck).WithClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		_, err := l.Consume(ctx, "u1", 5)
		require.NoError(t, err)
	}
	d, err := l.Consume(ctx, "u1", 5)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	now = now.Add(2 * time.Minute)
	d, err = l.Consume(ctx, "u1", 5)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 4, d.Remaining)
	require.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), d.ResetAt)
}

func TestConsume_ConcurrentNeverExceedsCeiling(t *testing.T) {
	for _, policy := range []string{PolicyIncrementThenCheck, PolicyCheckThenIncrement} {
		t.Run(policy, func(t *testing.T) {
			ctx := context.Background()
			l := NewLimiter(newMemCounter(), policy)

			const ceiling = 7
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					d, err := l.Consume(ctx, "u1", ceiling)
					if err != nil || !d.Allowed {
						return
					}
					mu.Lock()
					accepted++
					mu.Unlock()
				}()
			}
			wg.Wait()
			require.Equal(t, ceiling, accepted)
		})
	}
}

func TestPeek(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	counter.counts["u1|2025-03-01"] = 25
	l := NewLimiter(counter, "").WithClock(fixedClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)))

	d, err := l.Peek(ctx, "u1", 20)
	require.NoError(t, err)
	require.Equal(t, 0, d.Remaining)
	require.False(t, d.Allowed)

	d, err = l.Peek(ctx, "other", 20)
	require.NoError(t, err)
	require.Equal(t, 20, d.Remaining)
}

func TestNewLimiter_UnknownPolicyFallsBack(t *testing.T) {
	require.Equal(t, PolicyIncrementThenCheck, NewLimiter(newMemCounter(), "bogus").Policy())
	require.Equal(t, PolicyCheckThenIncrement, NewLimiter(newMemCounter(), " CHECK_THEN_INCREMENT ").Policy())
}
