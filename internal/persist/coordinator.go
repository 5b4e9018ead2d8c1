package persist

import (
	"context"
	"sync"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
)

// WriteFunc snapshots current state and writes it as one blob.
type WriteFunc func(ctx context.Context) error

// Stats counts coordinator activity.
type Stats struct {
	Writes    int
	Coalesced int
	Failures  int
	Refreshes int
}

// Coordinator serializes writes. A Save that arrives while a write is in
// flight is recorded in a single pending slot and returns at once; the
// writer drains the slot in a loop, so any number of overlapping requests
// collapse into one follow-up write. The refresh callback fires once after
// the drain if any of the merged requests asked for it.
type Coordinator struct {
	write     WriteFunc
	onRefresh func()
	log       logger.Logger
	delay     time.Duration

	mu             sync.Mutex
	writing        bool
	pending        bool
	pendingRefresh bool
	idle           *sync.Cond
	timer          *time.Timer
	timerRefresh   bool
	stats          Stats
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRefresh sets the callback run after a write that requested a refresh.
func WithRefresh(fn func()) Option {
	return func(c *Coordinator) { c.onRefresh = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithDebounce sets the delay used by Schedule.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

// New creates a Coordinator around write.
func New(write WriteFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		write: write,
		log:   logger.Nop(),
		delay: 300 * time.Millisecond,
	}
	c.idle = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save writes now, or coalesces into the pending slot if a write is in
// flight. The owning caller returns the error of the last write it ran;
// a coalesced caller returns nil.
func (c *Coordinator) Save(ctx context.Context, refresh bool) error {
	c.mu.Lock()
	owner := c.claimLocked(refresh)
	c.mu.Unlock()
	if !owner {
		c.log.Debug("save coalesced into pending write", logger.Bool("refresh", refresh))
		return nil
	}
	return c.drain(ctx, refresh)
}

// claimLocked makes the caller the writer, or records its request in the
// pending slot when a write is already in flight.
func (c *Coordinator) claimLocked(refresh bool) bool {
	if c.writing {
		c.pending = true
		c.pendingRefresh = c.pendingRefresh || refresh
		c.stats.Coalesced++
		return false
	}
	c.writing = true
	return true
}

func (c *Coordinator) drain(ctx context.Context, refresh bool) error {
	var lastErr error
	for {
		lastErr = c.write(ctx)

		c.mu.Lock()
		c.stats.Writes++
		if lastErr != nil {
			c.stats.Failures++
		}
		if !c.pending {
			c.writing = false
			if refresh {
				c.stats.Refreshes++
			}
			c.idle.Broadcast()
			c.mu.Unlock()
			break
		}
		c.pending = false
		refresh = refresh || c.pendingRefresh
		c.pendingRefresh = false
		c.mu.Unlock()
	}

	if lastErr != nil {
		c.log.Error("save failed", logger.Error(lastErr))
	}
	if refresh && c.onRefresh != nil {
		c.onRefresh()
	}
	return lastErr
}

// Schedule requests a save after the debounce delay. Calls within the
// delay restart the timer and merge their refresh flags.
func (c *Coordinator) Schedule(refresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerRefresh = c.timerRefresh || refresh
	if c.timer != nil {
		c.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		if c.timer != t {
			c.idle.Broadcast()
			c.mu.Unlock()
			return
		}
		r := c.timerRefresh
		c.timerRefresh = false
		c.timer = nil
		owner := c.claimLocked(r)
		c.idle.Broadcast()
		c.mu.Unlock()
		if owner {
			// Background save; failures are logged and counted.
			_ = c.drain(context.Background(), r)
		}
	})
	c.timer = t
	c.idle.Broadcast()
}

// Flush runs a scheduled save immediately and waits for any in-flight
// write, including one the timer has just started, to finish.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	t := c.timer
	stopped := t != nil && t.Stop()
	r := c.timerRefresh
	if stopped {
		c.timer = nil
		c.timerRefresh = false
	}
	for !stopped && t != nil && c.timer == t {
		// Fired but not yet claimed; the callback broadcasts when it runs.
		c.idle.Wait()
	}
	c.mu.Unlock()

	if stopped {
		if err := c.Save(ctx, r); err != nil {
			return err
		}
	}
	c.Wait()
	return nil
}

// Wait blocks until no write is in flight.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	for c.writing {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
