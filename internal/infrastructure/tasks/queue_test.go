package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueue_RunsTasks(t *testing.T) {
	q := NewQueue(4, 0, zap.NewNop())
	var count int64
	for i := 0; i < 20; i++ {
		ok := q.Enqueue("work", string(rune('a'+i)), func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
		require.True(t, ok)
	}
	q.Wait()
	assert.Equal(t, int64(20), atomic.LoadInt64(&count))
}

func TestQueue_DedupesInFlightIds(t *testing.T) {
	q := NewQueue(2, 0, zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})

	var runs int64
	ok := q.Enqueue("work", "dup", func(ctx context.Context) error {
		close(started)
		atomic.AddInt64(&runs, 1)
		<-release
		return nil
	})
	require.True(t, ok)
	<-started

	assert.False(t, q.Enqueue("work", "dup", func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}), "an in-flight id must not be scheduled twice")
	assert.True(t, q.InFlight("dup"))

	close(release)
	q.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&runs))
	assert.False(t, q.InFlight("dup"))

	// Once drained the id is free again.
	assert.True(t, q.Enqueue("work", "dup", func(ctx context.Context) error { return nil }))
	q.Wait()
}

func TestQueue_BoundsConcurrency(t *testing.T) {
	q := NewQueue(2, 0, zap.NewNop())
	var current, peak int64
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		q.Enqueue("work", string(rune('a'+i)), func(ctx context.Context) error {
			n := atomic.AddInt64(&current, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return nil
		})
	}
	q.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(2))
}

func TestQueue_TaskTimeoutExpiresContext(t *testing.T) {
	q := NewQueue(1, 20*time.Millisecond, zap.NewNop())
	got := make(chan error, 1)
	ok := q.Enqueue("work", "slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			got <- ctx.Err()
		case <-time.After(5 * time.Second):
			got <- nil
		}
		return nil
	})
	require.True(t, ok)
	q.Wait()
	assert.ErrorIs(t, <-got, context.DeadlineExceeded)
}

func TestQueue_ZeroTimeoutLeavesContextOpen(t *testing.T) {
	q := NewQueue(1, 0, zap.NewNop())
	var deadlineSet bool
	q.Enqueue("work", "free", func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})
	q.Wait()
	assert.False(t, deadlineSet)
}

func TestQueue_ShutdownRejectsNewTasks(t *testing.T) {
	q := NewQueue(1, 0, zap.NewNop())
	q.Shutdown()
	assert.False(t, q.Enqueue("work", "late", func(ctx context.Context) error { return nil }))
}

func TestBarrier_FiresExactlyOnce(t *testing.T) {
	var fired int64
	var gotFailures int
	b := NewBarrier(3, func(failures int) {
		atomic.AddInt64(&fired, 1)
		gotFailures = failures
	})

	b.Done(false)
	b.Done(true)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fired))
	b.Done(false)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired))
	assert.Equal(t, 1, gotFailures)

	// Extra completions after firing are ignored.
	b.Done(true)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired))
}

func TestBarrier_ConcurrentDone(t *testing.T) {
	const n = 100
	var fired int64
	b := NewBarrier(n, func(failures int) {
		atomic.AddInt64(&fired, 1)
	})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Done(false)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired))
}

func TestSplit_SmallFanoutUsesSingleBarrier(t *testing.T) {
	var failures int
	done := false
	leaves := Split(3, 10, func(f int) {
		done = true
		failures = f
	})
	require.Len(t, leaves, 1)
	leaves[0].Done(true)
	leaves[0].Done(false)
	leaves[0].Done(false)
	assert.True(t, done)
	assert.Equal(t, 1, failures)
}

func TestSplit_AggregatesSubGroupFailures(t *testing.T) {
	var fired int64
	var total int
	leaves := Split(25, 10, func(f int) {
		atomic.AddInt64(&fired, 1)
		total = f
	})
	require.Len(t, leaves, 3)

	// 10 + 10 + 5 completions; one failure in each group.
	for g, size := range []int{10, 10, 5} {
		for i := 0; i < size; i++ {
			leaves[g].Done(i == 0)
		}
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&fired))
	assert.Equal(t, 3, total)
}
