package parallel_test

import (
	"sync/atomic"
	"testing"

	"qoiproc/parallel"
)

func TestPool(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4, 0} {
		pool := parallel.Start(workers)

		var count atomic.Int64
		for i := 0; i < 100; i++ {
			pool.Do(func() { count.Add(1) })
		}
		pool.Wait()

		if got := count.Load(); got != 100 {
			t.Fatalf("workers=%d: ran %d items, want 100", workers, got)
		}
	}
}

func TestPoolWaitIdempotent(t *testing.T) {
	t.Parallel()

	pool := parallel.Start(2)
	pool.Do(func() {})
	pool.Wait()
	pool.Wait()
}
