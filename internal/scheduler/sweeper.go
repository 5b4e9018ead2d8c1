package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
)

// DefaultSweepInterval is used when NewSweeper gets a zero interval.
const DefaultSweepInterval = time.Hour

// Archive purges archive entries past their retention window and returns the
// keys it removed. *library.Library satisfies it.
type Archive interface {
	Sweep(ctx context.Context) ([]string, error)
}

// Sweeper periodically enforces archive retention.
type Sweeper struct {
	archive  Archive
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{} // set by Start
}

// NewSweeper creates a sweeper over archive.
func NewSweeper(archive Archive, log logger.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Sweeper{
		archive:  archive,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once, then on every tick until Stop or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Warn("initial archive sweep failed", logger.Error(err))
	}

	s.done = make(chan struct{})
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error("archive sweep failed", logger.Error(err))
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop started by Start and waits for it to exit.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.done != nil {
		<-s.done
	}
}

// Sweep runs a single retention pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	removed, err := s.archive.Sweep(ctx)
	if err != nil {
		return 0, err
	}

	if len(removed) > 0 {
		s.logger.Info("archive sweep completed",
			logger.Int("removed", len(removed)),
			logger.Strings("keys", removed))
	} else {
		s.logger.Debug("no archived bookmarks past retention")
	}
	return len(removed), nil
}
