package persist_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/persist"
)

// blockingWriter holds every write until release is closed, recording how
// many writes overlap.
type blockingWriter struct {
	started  chan struct{}
	release  chan struct{}
	active   atomic.Int32
	overlap  atomic.Bool
	writes   atomic.Int32
	failWith error
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (w *blockingWriter) write(_ context.Context) error {
	if w.active.Add(1) > 1 {
		w.overlap.Store(true)
	}
	defer w.active.Add(-1)
	w.writes.Add(1)
	w.started <- struct{}{}
	<-w.release
	return w.failWith
}

func TestSave_CoalescesOverlappingRequests(t *testing.T) {
	w := newBlockingWriter()
	var refreshes atomic.Int32
	c := persist.New(w.write, persist.WithRefresh(func() { refreshes.Add(1) }))

	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background(), false) }()
	<-w.started

	for i := 0; i < 10; i++ {
		assert.NilError(t, c.Save(context.Background(), i == 7))
	}

	close(w.release)
	assert.NilError(t, <-done)

	assert.Equal(t, w.writes.Load(), int32(2), "one in-flight write plus one drained follow-up")
	assert.Assert(t, !w.overlap.Load(), "writes must never overlap")
	assert.Equal(t, refreshes.Load(), int32(1), "refresh fires once for the merged batch")

	stats := c.Stats()
	assert.DeepEqual(t, stats, persist.Stats{Writes: 2, Coalesced: 10, Refreshes: 1})
}

func TestSave_NoRefreshWhenNotRequested(t *testing.T) {
	var refreshes int
	c := persist.New(func(context.Context) error { return nil }, persist.WithRefresh(func() { refreshes++ }))

	assert.NilError(t, c.Save(context.Background(), false))
	assert.Equal(t, refreshes, 0)
	assert.NilError(t, c.Save(context.Background(), true))
	assert.Equal(t, refreshes, 1)
}

func TestSave_ReturnsWriteError(t *testing.T) {
	boom := errors.New("disk full")
	c := persist.New(func(context.Context) error { return boom })

	err := c.Save(context.Background(), false)
	assert.Assert(t, errors.Is(err, boom))
	assert.Equal(t, c.Stats().Failures, 1)
}

func TestSave_ConcurrentCallersNeverOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	c := persist.New(func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Save(context.Background(), false)
		}()
	}
	wg.Wait()
	c.Wait()

	assert.Equal(t, maxActive.Load(), int32(1))
	stats := c.Stats()
	assert.Equal(t, stats.Writes+stats.Coalesced >= 50, true)
}

func TestSchedule_DebouncesAndFlushes(t *testing.T) {
	var writes atomic.Int32
	c := persist.New(func(context.Context) error {
		writes.Add(1)
		return nil
	}, persist.WithDebounce(time.Hour))

	c.Schedule(false)
	c.Schedule(true)
	c.Schedule(false)
	assert.Equal(t, writes.Load(), int32(0))

	assert.NilError(t, c.Flush(context.Background()))
	assert.Equal(t, writes.Load(), int32(1))
	assert.Equal(t, c.Stats().Refreshes, 1)

	assert.NilError(t, c.Flush(context.Background()))
	assert.Equal(t, writes.Load(), int32(1), "nothing scheduled")
}

func TestSchedule_FiresAfterDelay(t *testing.T) {
	fired := make(chan struct{}, 1)
	c := persist.New(func(context.Context) error {
		fired <- struct{}{}
		return nil
	}, persist.WithDebounce(10*time.Millisecond))

	c.Schedule(false)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled save never ran")
	}
	c.Wait()
}
