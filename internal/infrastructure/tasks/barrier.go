package tasks

import "sync"

// Barrier fans in a fixed number of task completions and fires its callback
// exactly once when the last one arrives. Failures are counted, not fatal:
// the callback receives the failure total and decides what it means.
type Barrier struct {
	mu        sync.Mutex
	remaining int
	failures  int
	fired     bool
	onDone    func(failures int)
}

// NewBarrier creates a barrier over total completions. A zero total fires
// immediately on the first Resolve call (see Resolve for the degenerate
// case) — callers with nothing to wait for should invoke the callback
// themselves.
func NewBarrier(total int, onDone func(failures int)) *Barrier {
	return &Barrier{remaining: total, onDone: onDone}
}

// Done records one completion. failed marks it as unsuccessful. The callback
// runs on the goroutine delivering the final completion.
func (b *Barrier) Done(failed bool) {
	b.mu.Lock()
	if b.fired || b.remaining == 0 {
		b.mu.Unlock()
		return
	}
	if failed {
		b.failures++
	}
	b.remaining--
	fire := b.remaining == 0
	if fire {
		b.fired = true
	}
	failures := b.failures
	b.mu.Unlock()

	if fire && b.onDone != nil {
		b.onDone(failures)
	}
}

// Split builds a two-level fan-in over n completions: completions are
// grouped into sub-barriers of at most groupSize, and each full sub-group
// reports a single completion to the parent. Returns the leaf barriers in
// order; the parent callback still fires exactly once with the total leaf
// failure count.
func Split(n, groupSize int, onDone func(failures int)) []*Barrier {
	if groupSize <= 0 || n <= groupSize {
		return []*Barrier{NewBarrier(n, onDone)}
	}
	groups := (n + groupSize - 1) / groupSize

	var mu sync.Mutex
	totalFailures := 0
	parent := NewBarrier(groups, func(_ int) {
		mu.Lock()
		f := totalFailures
		mu.Unlock()
		if onDone != nil {
			onDone(f)
		}
	})

	leaves := make([]*Barrier, 0, groups)
	remaining := n
	for remaining > 0 {
		size := groupSize
		if remaining < size {
			size = remaining
		}
		leaves = append(leaves, NewBarrier(size, func(failures int) {
			mu.Lock()
			totalFailures += failures
			mu.Unlock()
			parent.Done(false)
		}))
		remaining -= size
	}
	return leaves
}
