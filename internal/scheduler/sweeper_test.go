package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/library"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/scheduler"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/storage"
)

type fakeArchive struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeArchive) Sweep(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, f.err
}

func (f *fakeArchive) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSweeper_SweepRemovesExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()
	p := storage.NewMemory(nil)
	lib, err := library.Open(ctx, p, library.WithClock(func() time.Time { return now }))
	assert.NilError(t, err)

	_, err = lib.Update(ctx, func(s *model.Store) bool {
		s.Settings.ArchiveRetentionDays = 7
		s.AddBookmark(model.NewBookmarkParams{URL: "https://old.example"})
		s.AddBookmark(model.NewBookmarkParams{URL: "https://new.example"})
		s.ArchiveBookmark("https://old.example")
		s.ArchiveBookmark("https://new.example")
		s.Archived["https://old.example/"].ArchivedAt = now.Add(-8 * 24 * time.Hour)
		return true
	})
	assert.NilError(t, err)
	saves := p.Saves()

	sweeper := scheduler.NewSweeper(lib, logger.Nop(), time.Hour)
	removed, err := sweeper.Sweep(ctx)
	assert.NilError(t, err)
	assert.Equal(t, removed, 1)
	assert.Equal(t, p.Saves(), saves+1)

	err = lib.View(func(s *model.Store) {
		_, ok := s.Archived["https://new.example/"]
		assert.Assert(t, ok)
		assert.Equal(t, len(s.Archived), 1)
	})
	assert.NilError(t, err)

	// nothing left to purge, nothing written
	removed, err = sweeper.Sweep(ctx)
	assert.NilError(t, err)
	assert.Equal(t, removed, 0)
	assert.Equal(t, p.Saves(), saves+1)
}

func TestSweeper_StartRunsImmediatelyAndOnTick(t *testing.T) {
	archive := &fakeArchive{}
	sweeper := scheduler.NewSweeper(archive, logger.Nop(), 10*time.Millisecond)

	sweeper.Start(context.Background())
	assert.Assert(t, archive.Calls() >= 1)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if archive.Calls() >= 3 {
			return poll.Success()
		}
		return poll.Continue("waiting for ticks, got %d", archive.Calls())
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))

	sweeper.Stop()
	calls := archive.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, archive.Calls(), calls, "no sweeps after Stop")

	// second Stop is harmless
	sweeper.Stop()
}

func TestSweeper_ErrorsDoNotStopLoop(t *testing.T) {
	archive := &fakeArchive{err: errors.New("storage down")}
	sweeper := scheduler.NewSweeper(archive, logger.Nop(), 10*time.Millisecond)

	_, err := sweeper.Sweep(context.Background())
	assert.ErrorContains(t, err, "storage down")

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if archive.Calls() >= 3 {
			return poll.Success()
		}
		return poll.Continue("waiting for retries")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))

	cancel()
	sweeper.Stop()
}

func TestSweeper_StopWithoutStart(t *testing.T) {
	sweeper := scheduler.NewSweeper(&fakeArchive{}, nil, 0)
	sweeper.Stop()
}
